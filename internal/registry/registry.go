package registry

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"
	"unicode/utf8"

	"SplitBot/internal/conversation"
	"SplitBot/internal/history"
	"SplitBot/internal/model"
)

// RateReader is the read side of the rate provider used by the rate command.
type RateReader interface {
	Rate(ctx context.Context) float64
	Peek() (float64, bool)
}

// Options tunes the registry.
type Options struct {
	IdleTimeout     time.Duration // 0 keeps sessions until they end
	HistoryLimit    int
	HistoryMaxChars int
	InboxSize       int
}

// Registry routes inbound messages to per-user sessions. Each user with work
// in flight owns one worker goroutine, so a user's messages are applied one at
// a time in submission order while different users proceed concurrently.
type Registry struct {
	machine *conversation.Machine
	history *history.Store
	rates   RateReader
	opts    Options

	mu      sync.Mutex
	workers map[int64]*worker
	quit    chan struct{}
	wg      sync.WaitGroup
	closed  bool
}

type request struct {
	ctx  context.Context
	text string
	done func(model.Reply)
}

type worker struct {
	userID  int64
	inbox   chan request
	pending int // guarded by Registry.mu
}

// New creates a Registry.
func New(machine *conversation.Machine, hist *history.Store, rates RateReader, opts Options) *Registry {
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 10
	}
	if opts.HistoryMaxChars <= 0 {
		opts.HistoryMaxChars = 4000
	}
	if opts.InboxSize <= 0 {
		opts.InboxSize = 32
	}
	return &Registry{
		machine: machine,
		history: hist,
		rates:   rates,
		opts:    opts,
		workers: make(map[int64]*worker),
		quit:    make(chan struct{}),
	}
}

var (
	// ErrClosed is returned for messages submitted after Shutdown.
	ErrClosed = errors.New("registry closed")
	// ErrBusy is returned when the user's queue is full; the message is dropped.
	ErrBusy = errors.New("too many pending messages")
)

// Dispatch applies text to the user's session and waits for the reply.
func (r *Registry) Dispatch(ctx context.Context, userID int64, text string) (model.Reply, error) {
	ch := make(chan model.Reply, 1)
	if err := r.Submit(ctx, userID, text, func(rep model.Reply) { ch <- rep }); err != nil {
		return model.Reply{}, err
	}
	select {
	case rep := <-ch:
		return rep, nil
	case <-r.quit:
		return model.Reply{}, ErrClosed
	case <-ctx.Done():
		return model.Reply{}, ctx.Err()
	}
}

// Submit queues text for the user's worker and returns without waiting; done is
// called from the worker with the reply. Calls made in order for one user are
// applied in order. A user whose queue is full gets ErrBusy and the message is
// dropped, so one slow user never holds up the caller.
func (r *Registry) Submit(ctx context.Context, userID int64, text string, done func(model.Reply)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	w, ok := r.workers[userID]
	if !ok {
		w = &worker{userID: userID, inbox: make(chan request, r.opts.InboxSize)}
		r.workers[userID] = w
		r.wg.Add(1)
		go r.loop(w)
	}

	// The send never blocks, so it can happen under the lock; pending > 0 then
	// keeps the worker alive until it has taken this request.
	select {
	case w.inbox <- request{ctx: ctx, text: text, done: done}:
		w.pending++
		return nil
	default:
		return ErrBusy
	}
}

// Active returns the number of users with a live worker.
func (r *Registry) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.workers)
}

// Shutdown stops all workers; in-flight sessions are dropped.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	close(r.quit)
	r.mu.Unlock()
	r.wg.Wait()
}

func (r *Registry) loop(w *worker) {
	defer r.wg.Done()

	var st conversation.State
	var idle *time.Timer
	var idleC <-chan time.Time
	stopIdle := func() {
		if idle != nil {
			idle.Stop()
			idle, idleC = nil, nil
		}
	}
	defer stopIdle()

	for {
		select {
		case req := <-w.inbox:
			stopIdle()
			var rep model.Reply
			st, rep = r.handle(req.ctx, w.userID, st, req.text)
			if req.done != nil {
				req.done(rep)
			}

			r.mu.Lock()
			w.pending--
			if st == nil && w.pending == 0 {
				delete(r.workers, w.userID)
				r.mu.Unlock()
				return
			}
			r.mu.Unlock()

			if st != nil && r.opts.IdleTimeout > 0 {
				idle = time.NewTimer(r.opts.IdleTimeout)
				idleC = idle.C
			}

		case <-idleC:
			idle, idleC = nil, nil
			r.mu.Lock()
			if w.pending > 0 {
				r.mu.Unlock()
				continue
			}
			delete(r.workers, w.userID)
			r.mu.Unlock()
			log.Printf("[INFO] user %d session expired in %s", w.userID, conversation.StateName(st))
			return

		case <-r.quit:
			return
		}
	}
}

func (r *Registry) handle(ctx context.Context, userID int64, st conversation.State, text string) (conversation.State, model.Reply) {
	ev := conversation.Translate(text)
	switch ev.Kind {
	case conversation.KindHistory:
		return st, model.Reply{Text: r.renderHistory(userID), Choices: conversation.Choices(st)}
	case conversation.KindClearHistory:
		r.history.Clear(userID)
		return st, model.Reply{Text: "🗑 История очищена.", Choices: conversation.Choices(st)}
	case conversation.KindHelp:
		return st, model.Reply{Text: HelpText, Choices: conversation.Choices(st)}
	case conversation.KindRate:
		return st, model.Reply{Text: r.renderRate(ctx), Choices: conversation.Choices(st)}
	}

	next, rep, err := r.machine.Handle(ctx, userID, st, ev)
	if err != nil {
		log.Printf("[ERROR] user %d in %s on %s: %v", userID, conversation.StateName(st), ev.Kind, err)
		return nil, model.Reply{Text: "⚠️ Внутренняя ошибка, расчёт сброшен. Начните заново: /start"}
	}
	if conversation.StateName(st) != conversation.StateName(next) {
		log.Printf("[INFO] user %d: %s -> %s", userID, conversation.StateName(st), conversation.StateName(next))
	}
	return next, rep
}

func (r *Registry) renderHistory(userID int64) string {
	entries := r.history.List(userID, r.opts.HistoryLimit)
	if len(entries) == 0 {
		return "📜 История пуста."
	}
	header := fmt.Sprintf("📜 Последние расчёты (%d):\n\n", len(entries))
	budget := r.opts.HistoryMaxChars - utf8.RuneCountInString(header)
	if budget < 1 {
		// No room for the header; the newest entries still fit the cap.
		return history.Render(entries, r.opts.HistoryMaxChars)
	}
	return header + history.Render(entries, budget)
}

func (r *Registry) renderRate(ctx context.Context) string {
	v := r.rates.Rate(ctx)
	if _, ok := r.rates.Peek(); !ok {
		return fmt.Sprintf("⚠️ Курс ЦБ сейчас недоступен, используется резервный: 1 $ = %s ₽", model.Money(v))
	}
	return fmt.Sprintf("🔄 Курс ЦБ РФ на сегодня: 1 $ = %s ₽", model.Money(v))
}

// HelpText is the static usage message.
const HelpText = `🧮 Калькулятор доли с закрыва.

/start — начать новый расчёт
/cancel — отменить текущий расчёт
/rate — курс ЦБ РФ на сегодня
/history — последние 10 расчётов
/clearhistory — очистить историю
/help — эта справка

Дробные числа можно вводить через точку или запятую.`
