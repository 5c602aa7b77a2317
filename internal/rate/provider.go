package rate

import (
	"context"
	"log"
	"sync"
	"time"

	"SplitBot/internal/recorder"

	"golang.org/x/sync/singleflight"
)

// DefaultFallback is served when the feed cannot be read, in RUB per USD.
const DefaultFallback = 80.0

// Provider serves one fetched rate per local calendar day to every caller.
type Provider struct {
	Fetcher  Fetcher
	Fallback float64
	Recorder recorder.Recorder
	Now      func() time.Time

	mu    sync.Mutex
	value float64
	day   string // local date the value was fetched on; empty when unset

	group singleflight.Group
}

// NewProvider creates a Provider with an empty cache.
func NewProvider(fetcher Fetcher, fallback float64, rec recorder.Recorder) *Provider {
	if fallback <= 0 {
		fallback = DefaultFallback
	}
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	return &Provider{
		Fetcher:  fetcher,
		Fallback: fallback,
		Recorder: rec,
		Now:      time.Now,
	}
}

// Rate returns today's rate, fetching it at most once per day. It never fails:
// a feed error yields the fallback and leaves the cache untouched.
func (p *Provider) Rate(ctx context.Context) float64 {
	if v, ok := p.Peek(); ok {
		return v
	}
	v, _, _ := p.group.Do("usd", func() (interface{}, error) {
		if v, ok := p.Peek(); ok {
			return v, nil
		}
		return p.refresh(context.WithoutCancel(ctx)), nil
	})
	return v.(float64)
}

// Peek returns the cached rate and whether it belongs to today.
func (p *Provider) Peek() (float64, bool) {
	today := dayKey(p.Now())
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.day != today {
		return 0, false
	}
	return p.value, true
}

// Warm loads the rate for the current day if it is not cached yet.
func (p *Provider) Warm(ctx context.Context) float64 {
	return p.Rate(ctx)
}

func (p *Provider) refresh(ctx context.Context) float64 {
	today := dayKey(p.Now())
	v, err := p.Fetcher.FetchUSD(ctx)
	evt := &recorder.RateFetchEvent{Source: p.Fetcher.Name(), Value: v, OK: err == nil}
	if err != nil {
		evt.Value = 0
		evt.Error = err.Error()
		log.Printf("[WARN] %v, using fallback %.2f", err, p.Fallback)
		p.record(evt)
		return p.Fallback
	}

	p.mu.Lock()
	p.value, p.day = v, today
	p.mu.Unlock()

	log.Printf("[INFO] USD rate for %s: %.4f (%s)", today, v, p.Fetcher.Name())
	p.record(evt)
	return v
}

func (p *Provider) record(evt *recorder.RateFetchEvent) {
	if err := p.Recorder.RecordRateFetch(evt); err != nil {
		log.Printf("[ERROR] record rate fetch: %v", err)
	}
}

func dayKey(t time.Time) string {
	return t.Local().Format("2006-01-02")
}
