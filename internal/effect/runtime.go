package effect

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"
)

var closedDone = func() chan struct{} {
	c := make(chan struct{})
	close(c)
	return c
}()

type task struct {
	id     ID
	kind   Kind
	cancel context.CancelFunc
}

// Runtime executes effects and tracks outstanding operations by identity.
//
// Results are delivered through a sink supplied per Execute call. The sink is
// invoked while the runtime holds its lock, so it must not block and must not
// call back into the runtime.
type Runtime[A any] struct {
	ctx  context.Context
	stop context.CancelFunc

	mu     sync.Mutex
	tasks  map[uint64]*task
	byID   map[ID]map[uint64]struct{}
	seq    uint64
	closed bool

	wg sync.WaitGroup
}

// NewRuntime creates a runtime whose operations are children of parent.
func NewRuntime[A any](parent context.Context) *Runtime[A] {
	ctx, stop := context.WithCancel(parent)
	return &Runtime[A]{
		ctx:   ctx,
		stop:  stop,
		tasks: make(map[uint64]*task),
		byID:  make(map[ID]map[uint64]struct{}),
	}
}

// Execute starts e. Identities are registered and cancellations applied
// before Execute returns. Send leaves reached synchronously are returned in
// order instead of being passed to sink; sends reached after asynchronous work
// go to sink. The returned channel closes once all work of e has finished.
func (r *Runtime[A]) Execute(e Effect[A], sink func(A)) ([]A, <-chan struct{}) {
	var sent []A
	done := r.execute(e, sink, &sent)
	return sent, done
}

// Outstanding reports how many operations are registered under id.
func (r *Runtime[A]) Outstanding(id ID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID[id])
}

// Close cancels every outstanding operation and waits for them to return.
func (r *Runtime[A]) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.stop()
	r.wg.Wait()
	slog.Debug("Runtime.Close: all effects finished")
}

func (r *Runtime[A]) execute(e Effect[A], sink func(A), sync *[]A) <-chan struct{} {
	switch e.kind {
	case KindNone:
		return closedDone
	case KindSend:
		if sync != nil {
			*sync = append(*sync, e.action)
		} else {
			r.mu.Lock()
			sink(e.action)
			r.mu.Unlock()
		}
		return closedDone
	case KindCancel:
		r.cancelID(e.id)
		return closedDone
	case KindRun, KindStream, KindFireAndForget:
		return r.start(e, sink)
	case KindMerge:
		return r.merge(e.children, sink, sync)
	case KindConcatenate:
		return r.concatenate(e.children, sink, sync)
	default:
		panic(fmt.Sprintf("effect: unknown kind %d", e.kind))
	}
}

func (r *Runtime[A]) start(e Effect[A], sink func(A)) <-chan struct{} {
	ctx, token, ok := r.register(e.id, e.kind)
	if !ok {
		return closedDone
	}
	effectsStarted.WithLabelValues(e.kind.String()).Inc()
	effectsInflight.Inc()

	done := make(chan struct{})
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer close(done)
		defer effectsInflight.Dec()

		switch e.kind {
		case KindRun:
			a := e.run(ctx)
			r.finish(token, func() {
				effectsDelivered.WithLabelValues(KindRun.String()).Inc()
				sink(a)
			})
		case KindStream:
			e.stream(ctx, func(a A) {
				r.mu.Lock()
				defer r.mu.Unlock()
				if _, live := r.tasks[token]; live {
					effectsDelivered.WithLabelValues(KindStream.String()).Inc()
					sink(a)
				}
			})
			r.finish(token, nil)
		case KindFireAndForget:
			e.fire(ctx)
			r.finish(token, nil)
		}
	}()
	return done
}

func (r *Runtime[A]) merge(children []Effect[A], sink func(A), sync *[]A) <-chan struct{} {
	var pending []<-chan struct{}
	for _, c := range children {
		d := r.execute(c, sink, sync)
		if !isDone(d) {
			pending = append(pending, d)
		}
	}
	if len(pending) == 0 {
		return closedDone
	}

	done := make(chan struct{})
	var g errgroup.Group
	for _, d := range pending {
		g.Go(func() error {
			<-d
			return nil
		})
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		_ = g.Wait()
		close(done)
	}()
	return done
}

func (r *Runtime[A]) concatenate(children []Effect[A], sink func(A), sync *[]A) <-chan struct{} {
	for i, c := range children {
		d := r.execute(c, sink, sync)
		if isDone(d) {
			continue
		}
		rest := children[i+1:]
		done := make(chan struct{})
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			defer close(done)
			<-d
			for _, next := range rest {
				if r.ctx.Err() != nil {
					return
				}
				<-r.execute(next, sink, nil)
			}
		}()
		return done
	}
	return closedDone
}

func (r *Runtime[A]) register(id ID, kind Kind) (context.Context, uint64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		slog.Debug("Runtime.register: runtime closed, dropping effect", "kind", kind, "id", id)
		return nil, 0, false
	}
	ctx, cancel := context.WithCancel(r.ctx)
	r.seq++
	token := r.seq
	r.tasks[token] = &task{id: id, kind: kind, cancel: cancel}
	if id != nil {
		if r.byID[id] == nil {
			r.byID[id] = make(map[uint64]struct{})
		}
		r.byID[id][token] = struct{}{}
	}
	slog.Debug("Runtime.register: effect started", "kind", kind, "id", id, "token", token)
	return ctx, token, true
}

// finish unregisters token and, if it was still live, runs deliver under the
// lock. A cancelled token delivers nothing.
func (r *Runtime[A]) finish(token uint64, deliver func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, live := r.tasks[token]
	if !live {
		return
	}
	r.unregisterLocked(token, t)
	t.cancel()
	if deliver != nil {
		deliver()
	}
}

func (r *Runtime[A]) cancelID(id ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tokens := r.byID[id]
	if len(tokens) == 0 {
		slog.Debug("Runtime.cancelID: nothing outstanding", "id", id)
		return
	}
	// unregisterLocked shrinks tokens as the loop runs.
	count := len(tokens)
	for token := range tokens {
		t := r.tasks[token]
		r.unregisterLocked(token, t)
		t.cancel()
		effectsCancelled.WithLabelValues(t.kind.String()).Inc()
	}
	slog.Debug("Runtime.cancelID: cancelled", "id", id, "count", count)
}

func (r *Runtime[A]) unregisterLocked(token uint64, t *task) {
	delete(r.tasks, token)
	if t.id == nil {
		return
	}
	if set := r.byID[t.id]; set != nil {
		delete(set, token)
		if len(set) == 0 {
			delete(r.byID, t.id)
		}
	}
}

func isDone(d <-chan struct{}) bool {
	select {
	case <-d:
		return true
	default:
		return false
	}
}
