package optic

import "encoding/json"

// Either holds exactly one of a Left value (by convention a failure) or a
// Right value (a success).
type Either[L, R any] struct {
	Left    L
	Right   R
	IsRight bool
}

// Left builds a failed Either.
func Left[L, R any](l L) Either[L, R] {
	return Either[L, R]{Left: l}
}

// Right builds a successful Either.
func Right[L, R any](r R) Either[L, R] {
	return Either[L, R]{Right: r, IsRight: true}
}

// Get returns the right value in comma-ok form.
func (e Either[L, R]) Get() (R, bool) {
	return e.Right, e.IsRight
}

// Failure returns the left value in comma-ok form.
func (e Either[L, R]) Failure() (L, bool) {
	return e.Left, !e.IsRight
}

// MarshalJSON encodes a success as {"ok": R} and a failure as {"error": L}.
func (e Either[L, R]) MarshalJSON() ([]byte, error) {
	if e.IsRight {
		return json.Marshal(struct {
			OK R `json:"ok"`
		}{e.Right})
	}
	return json.Marshal(struct {
		Error L `json:"error"`
	}{e.Left})
}

// MapEither applies f to a right value.
func MapEither[L, R, S any](e Either[L, R], f func(R) S) Either[L, S] {
	if !e.IsRight {
		return Left[L, S](e.Left)
	}
	return Right[L](f(e.Right))
}

// FlatMapEither chains a computation that may itself fail.
func FlatMapEither[L, R, S any](e Either[L, R], f func(R) Either[L, S]) Either[L, S] {
	if !e.IsRight {
		return Left[L, S](e.Left)
	}
	return f(e.Right)
}

// Fold collapses both cases into one value.
func Fold[L, R, T any](e Either[L, R], onLeft func(L) T, onRight func(R) T) T {
	if e.IsRight {
		return onRight(e.Right)
	}
	return onLeft(e.Left)
}
