// Package engine owns the single application state and feeds it actions one
// at a time.
//
// Actions are queued in an unbounded mailbox and reduced in arrival order on
// the goroutine running Run. Effects returned by the reducer are started
// before the next queued action is taken; synchronous sends are reduced
// depth-first ahead of the queue.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/BTreeMap/FieldOps/internal/effect"
	"github.com/BTreeMap/FieldOps/internal/reducer"
)

// ErrStopped is returned by Dispatch once the engine has stopped.
var ErrStopped = errors.New("engine stopped")

// Observer is told about every reduced action. It runs on the engine
// goroutine and must not block or call Dispatch.
type Observer[S, A any] func(action A, before, after S)

// Opts holds optional engine settings.
type Opts[S, A any] struct {
	Observers []Observer[S, A]
	Name      func(A) string
}

// Option configures an Engine.
type Option[S, A any] func(*Opts[S, A])

// WithObserver registers an observer.
func WithObserver[S, A any](o Observer[S, A]) Option[S, A] {
	return func(opts *Opts[S, A]) {
		opts.Observers = append(opts.Observers, o)
	}
}

// WithActionNames sets how actions are named in logs and metrics.
func WithActionNames[S, A any](name func(A) string) Option[S, A] {
	return func(opts *Opts[S, A]) {
		opts.Name = name
	}
}

type envelope[S any, A any] struct {
	action A
	reply  chan S
}

// Engine is the single owner of a state value of type S.
type Engine[S, A, E any] struct {
	session string
	reduce  reducer.Reducer[S, A, E]
	env     E
	runtime *effect.Runtime[A]
	opts    Opts[S, A]

	// state is only touched by the Run goroutine.
	state S

	snapMu   sync.RWMutex
	snapshot S

	mu      sync.Mutex
	mailbox []envelope[S, A]
	stopped bool
	signal  chan struct{}
	done    chan struct{}
}

// New creates an engine holding initial. Call Run to start processing.
func New[S, A, E any](initial S, r reducer.Reducer[S, A, E], env E, opts ...Option[S, A]) *Engine[S, A, E] {
	o := Opts[S, A]{Name: func(a A) string { return fmt.Sprintf("%T", a) }}
	for _, opt := range opts {
		opt(&o)
	}
	return &Engine[S, A, E]{
		session:  uuid.NewString(),
		reduce:   r,
		env:      env,
		runtime:  effect.NewRuntime[A](context.Background()),
		opts:     o,
		state:    initial,
		snapshot: initial,
		signal:   make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

// Session is a random identifier for this engine instance.
func (e *Engine[S, A, E]) Session() string { return e.session }

// State returns the state after the most recently reduced action.
func (e *Engine[S, A, E]) State() S {
	e.snapMu.RLock()
	defer e.snapMu.RUnlock()
	return e.snapshot
}

// Send queues a for reduction. It never blocks. Actions sent after the engine
// stopped are dropped.
func (e *Engine[S, A, E]) Send(a A) {
	e.enqueue(envelope[S, A]{action: a})
}

// Dispatch queues a and waits until it, and every action it sent
// synchronously, has been reduced. It returns the resulting state.
func (e *Engine[S, A, E]) Dispatch(ctx context.Context, a A) (S, error) {
	reply := make(chan S, 1)
	if !e.enqueue(envelope[S, A]{action: a, reply: reply}) {
		var zero S
		return zero, ErrStopped
	}
	select {
	case s := <-reply:
		return s, nil
	case <-ctx.Done():
		var zero S
		return zero, ctx.Err()
	case <-e.done:
		var zero S
		return zero, ErrStopped
	}
}

// Outstanding reports how many effects are running under id.
func (e *Engine[S, A, E]) Outstanding(id effect.ID) int {
	return e.runtime.Outstanding(id)
}

// Run reduces queued actions until ctx is done, then cancels all running
// effects and waits for them.
func (e *Engine[S, A, E]) Run(ctx context.Context) error {
	slog.Info("Engine.Run: started", "session", e.session)
	defer func() {
		e.mu.Lock()
		e.stopped = true
		e.mailbox = nil
		e.mu.Unlock()
		close(e.done)
		e.runtime.Close()
		slog.Info("Engine.Run: stopped", "session", e.session)
	}()

	for {
		env, ok := e.next(ctx)
		if !ok {
			return ctx.Err()
		}
		e.process(env)
	}
}

func (e *Engine[S, A, E]) enqueue(env envelope[S, A]) bool {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		slog.Debug("Engine.Send: engine stopped, dropping action", "action", e.opts.Name(env.action))
		return false
	}
	e.mailbox = append(e.mailbox, env)
	mailboxDepth.Set(float64(len(e.mailbox)))
	e.mu.Unlock()

	select {
	case e.signal <- struct{}{}:
	default:
	}
	return true
}

func (e *Engine[S, A, E]) next(ctx context.Context) (envelope[S, A], bool) {
	for {
		e.mu.Lock()
		if len(e.mailbox) > 0 {
			env := e.mailbox[0]
			e.mailbox[0] = envelope[S, A]{}
			e.mailbox = e.mailbox[1:]
			mailboxDepth.Set(float64(len(e.mailbox)))
			e.mu.Unlock()
			return env, true
		}
		e.mu.Unlock()

		select {
		case <-e.signal:
		case <-ctx.Done():
			return envelope[S, A]{}, false
		}
	}
}

func (e *Engine[S, A, E]) process(env envelope[S, A]) {
	queue := []A{env.action}
	for len(queue) > 0 {
		a := queue[0]
		queue = queue[1:]

		before := e.state
		eff := e.reduce(&e.state, a, e.env)

		e.snapMu.Lock()
		e.snapshot = e.state
		e.snapMu.Unlock()

		name := e.opts.Name(a)
		actionsProcessed.WithLabelValues(name).Inc()
		slog.Debug("Engine.process: reduced", "session", e.session, "action", name, "effects", len(eff.Steps()))

		for _, o := range e.opts.Observers {
			o(a, before, e.state)
		}

		sent, _ := e.runtime.Execute(eff, e.Send)
		if len(sent) > 0 {
			queue = append(sent, queue...)
		}
	}
	if env.reply != nil {
		env.reply <- e.state
	}
}
