package scheduler

import (
	"context"
	"fmt"
	"log"

	"github.com/robfig/cron/v3"
)

// RateWarmer refreshes the daily rate cache.
type RateWarmer interface {
	Warm(ctx context.Context) float64
}

// SessionCounter reports how many users have a live session worker.
type SessionCounter interface {
	Active() int
}

// Scheduler manages all cron tasks.
type Scheduler struct {
	Cron     *cron.Cron
	Rates    RateWarmer
	Sessions SessionCounter
	Ctx      context.Context
}

// NewScheduler creates a new Scheduler. Cron specs include a seconds field.
func NewScheduler(ctx context.Context, rates RateWarmer, sessions SessionCounter) *Scheduler {
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds()),
		Rates:    rates,
		Sessions: sessions,
		Ctx:      ctx,
	}
}

// RegisterAll registers the rate warm-up and stats tasks.
func (s *Scheduler) RegisterAll(rateWarmCron, statsCron string) error {
	if _, err := s.Cron.AddFunc(rateWarmCron, s.warmRate); err != nil {
		return fmt.Errorf("register rate warm task: %w", err)
	}
	if _, err := s.Cron.AddFunc(statsCron, s.logStats); err != nil {
		return fmt.Errorf("register stats task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Println("[INFO] scheduler started")
}

// Stop stops the cron scheduler and waits for running tasks.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Println("[INFO] scheduler stopped")
}

// RunRateWarmNow executes the rate warm-up immediately (RUN_ON_START).
func (s *Scheduler) RunRateWarmNow() {
	s.warmRate()
}

func (s *Scheduler) warmRate() {
	v := s.Rates.Warm(s.Ctx)
	log.Printf("[INFO] rate warm-up done: 1 USD = %.4f RUB", v)
}

func (s *Scheduler) logStats() {
	log.Printf("[INFO] active sessions: %d", s.Sessions.Active())
}
