package book

import "errors"

var (
	// ErrInvalidQuantity is returned when a submission's quantity is not
	// strictly positive. No state is mutated and no id is allocated.
	ErrInvalidQuantity = errors.New("book: quantity must be positive")

	// ErrInvalidPrice is returned when a submission's price is negative.
	ErrInvalidPrice = errors.New("book: price must be non-negative")

	// ErrBookPoisoned is returned by Validate when an internal invariant
	// is found violated. It is a bug-detection signal, not a recoverable
	// runtime condition: a poisoned Book should be torn down.
	ErrBookPoisoned = errors.New("book: invariant violated")
)
