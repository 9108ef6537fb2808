package router

import "errors"

var (
	// ErrUnknownSymbol is returned when an operation names a symbol the
	// router was not constructed with.
	ErrUnknownSymbol = errors.New("router: unknown symbol")

	// ErrShuttingDown is returned when a dispatch is attempted after
	// Shutdown has been called.
	ErrShuttingDown = errors.New("router: shutting down")
)
