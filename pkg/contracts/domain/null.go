package domain

import "fmt"

// Null is a value that may be absent. The zero value is null.
type Null[T any] struct {
	Val   T
	Valid bool
}

// Some returns a present value.
func Some[T any](v T) Null[T] {
	return Null[T]{Val: v, Valid: true}
}

// None returns a null value.
func None[T any]() Null[T] {
	return Null[T]{}
}

// Or returns the value when present, otherwise fallback.
func (n Null[T]) Or(fallback T) T {
	if n.Valid {
		return n.Val
	}
	return fallback
}

// String renders null as the empty string.
func (n Null[T]) String() string {
	if !n.Valid {
		return ""
	}
	return fmt.Sprint(n.Val)
}

// MulNull multiplies the present operands. Any null operand yields null.
func MulNull(vals ...Null[float64]) Null[float64] {
	out := 1.0
	for _, v := range vals {
		if !v.Valid {
			return Null[float64]{}
		}
		out *= v.Val
	}
	return Some(out)
}

// AddNull adds v to acc, treating a null accumulator as "no contributor yet".
// A null v leaves acc unchanged, so a sum stays null until a value is seen.
func AddNull(acc, v Null[float64]) Null[float64] {
	if !v.Valid {
		return acc
	}
	if !acc.Valid {
		return v
	}
	return Some(acc.Val + v.Val)
}
