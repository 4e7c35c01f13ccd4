package optic

import "encoding/json"

// Option is a value that may be absent. It is comparable whenever T is, so it
// can be used as a map key or compared with ==.
type Option[T any] struct {
	Value T
	Valid bool
}

// Some wraps a present value.
func Some[T any](v T) Option[T] {
	return Option[T]{Value: v, Valid: true}
}

// None returns the absent value.
func None[T any]() Option[T] {
	return Option[T]{}
}

// OptionOf adapts the comma-ok idiom.
func OptionOf[T any](v T, ok bool) Option[T] {
	if !ok {
		return None[T]()
	}
	return Some(v)
}

// Get returns the value in comma-ok form.
func (o Option[T]) Get() (T, bool) {
	return o.Value, o.Valid
}

// OrElse returns the value, or def when absent.
func (o Option[T]) OrElse(def T) T {
	if !o.Valid {
		return def
	}
	return o.Value
}

// MarshalJSON encodes an absent option as null.
func (o Option[T]) MarshalJSON() ([]byte, error) {
	if !o.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

// UnmarshalJSON decodes null as absent.
func (o *Option[T]) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*o = None[T]()
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*o = Some(v)
	return nil
}

// MapOption applies f to a present value.
func MapOption[T, U any](o Option[T], f func(T) U) Option[U] {
	if !o.Valid {
		return None[U]()
	}
	return Some(f(o.Value))
}

// FlatMapOption chains a computation that may itself produce no value.
func FlatMapOption[T, U any](o Option[T], f func(T) Option[U]) Option[U] {
	if !o.Valid {
		return None[U]()
	}
	return f(o.Value)
}

// ZipOption combines two options; the result is present only when both are.
func ZipOption[A, B, C any](a Option[A], b Option[B], f func(A, B) C) Option[C] {
	if !a.Valid || !b.Valid {
		return None[C]()
	}
	return Some(f(a.Value, b.Value))
}
