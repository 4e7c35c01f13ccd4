// Package effect describes side effects as values and executes them.
//
// A reducer never performs work itself. It returns an Effect describing the
// work (run an operation, subscribe to a stream, cancel something) and the
// Runtime executes it, feeding produced actions back to the caller.
package effect

import "context"

// ID identifies a logical operation for cancellation. IDs must be comparable;
// typed string constants and small structs of comparable fields are typical.
type ID = any

// Kind tells what an Effect does.
type Kind int

// Effect kinds.
const (
	KindNone Kind = iota
	KindSend
	KindRun
	KindStream
	KindFireAndForget
	KindMerge
	KindConcatenate
	KindCancel
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindSend:
		return "send"
	case KindRun:
		return "run"
	case KindStream:
		return "stream"
	case KindFireAndForget:
		return "fire_and_forget"
	case KindMerge:
		return "merge"
	case KindConcatenate:
		return "concatenate"
	case KindCancel:
		return "cancel"
	default:
		return "unknown"
	}
}

// Effect is an immutable description of asynchronous work producing actions
// of type A. The zero value is None.
type Effect[A any] struct {
	kind     Kind
	id       ID
	action   A
	run      func(context.Context) A
	stream   func(context.Context, func(A))
	fire     func(context.Context)
	children []Effect[A]
}

// None returns the effect that does nothing.
func None[A any]() Effect[A] {
	return Effect[A]{}
}

// Send feeds a back into the reducer immediately after the current action.
func Send[A any](a A) Effect[A] {
	return Effect[A]{kind: KindSend, action: a}
}

// Run wraps an asynchronous operation whose result becomes exactly one action,
// unless the operation is cancelled first.
func Run[A any](op func(ctx context.Context) A) Effect[A] {
	return Effect[A]{kind: KindRun, run: op}
}

// Stream wraps a long-lived subscription that may emit any number of actions
// until its context is cancelled or the function returns.
func Stream[A any](subscribe func(ctx context.Context, send func(A))) Effect[A] {
	return Effect[A]{kind: KindStream, stream: subscribe}
}

// FireAndForget runs work whose outcome is discarded.
func FireAndForget[A any](work func(ctx context.Context)) Effect[A] {
	return Effect[A]{kind: KindFireAndForget, fire: work}
}

// Cancel stops every outstanding operation registered under id. It is a no-op
// when nothing is outstanding.
func Cancel[A any](id ID) Effect[A] {
	return Effect[A]{kind: KindCancel, id: id}
}

// CancelAll cancels several identities.
func CancelAll[A any](ids ...ID) Effect[A] {
	effects := make([]Effect[A], 0, len(ids))
	for _, id := range ids {
		effects = append(effects, Cancel[A](id))
	}
	return Merge(effects...)
}

// Merge runs effects concurrently. Their synchronous parts (Send, Cancel and
// registration of identities) happen in declaration order.
func Merge[A any](effects ...Effect[A]) Effect[A] {
	return group(KindMerge, effects)
}

// Concatenate runs effects one after another; each starts when the previous
// one has finished.
func Concatenate[A any](effects ...Effect[A]) Effect[A] {
	return group(KindConcatenate, effects)
}

func group[A any](kind Kind, effects []Effect[A]) Effect[A] {
	kept := make([]Effect[A], 0, len(effects))
	for _, e := range effects {
		if e.kind != KindNone {
			kept = append(kept, e)
		}
	}
	switch len(kept) {
	case 0:
		return None[A]()
	case 1:
		return kept[0]
	}
	return Effect[A]{kind: kind, children: kept}
}

// Cancellable registers a Run, Stream or FireAndForget effect under id so a
// later Cancel(id) can stop it. Starting a second operation under the same id
// does not cancel the first.
func (e Effect[A]) Cancellable(id ID) Effect[A] {
	switch e.kind {
	case KindRun, KindStream, KindFireAndForget:
		e.id = id
	}
	return e
}

// Kind reports what the effect does.
func (e Effect[A]) Kind() Kind { return e.kind }

// ID returns the cancellation identity, or nil.
func (e Effect[A]) ID() ID { return e.id }

// IsNone reports whether the effect does nothing.
func (e Effect[A]) IsNone() bool { return e.kind == KindNone }

// Map transforms every action the effect produces.
func Map[A, B any](e Effect[A], f func(A) B) Effect[B] {
	out := Effect[B]{kind: e.kind, id: e.id, fire: e.fire}
	switch e.kind {
	case KindSend:
		out.action = f(e.action)
	case KindRun:
		run := e.run
		out.run = func(ctx context.Context) B { return f(run(ctx)) }
	case KindStream:
		stream := e.stream
		out.stream = func(ctx context.Context, send func(B)) {
			stream(ctx, func(a A) { send(f(a)) })
		}
	case KindMerge, KindConcatenate:
		out.children = make([]Effect[B], len(e.children))
		for i, c := range e.children {
			out.children[i] = Map(c, f)
		}
	}
	return out
}
