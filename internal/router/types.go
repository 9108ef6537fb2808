// Package router is the multi-symbol collaborator sitting above the
// matching core. It owns one book.Book per symbol, each serialized
// behind its own tomb-supervised goroutine so that many symbols can run
// concurrently while a single Book stays a single-threaded mutator.
package router

// Symbol names one tradable instrument; the router namespaces order
// identity per symbol so a token minted on one book never collides with
// one minted on another.
type Symbol string
