package router

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"

	"matchcore/internal/book"
)

// command is one unit of work handed to a symbol's serializing
// goroutine; fn runs on that goroutine and done is closed once it has.
type command struct {
	fn   func()
	done chan struct{}
}

// symbolWorker pairs one book.Book with the channel that serializes
// every submit/cancel/query call into it, one command queue per symbol
// instead of per connection.
type symbolWorker struct {
	book *book.Book
	cmds chan command
}

// tokenEntry maps an externally-issued uuid.UUID back to the Book's own
// monotone OrderID on the symbol that minted it.
type tokenEntry struct {
	symbol Symbol
	id     book.OrderID
}

// SymbolRouter fans submissions, cancels, and queries out to one Book
// per symbol, each guarded by its own tomb-supervised goroutine.
type SymbolRouter struct {
	mu      sync.RWMutex
	workers map[Symbol]*symbolWorker
	tokens  map[uuid.UUID]tokenEntry
	t       *tomb.Tomb
}

// NewRouter starts one command goroutine per symbol, supervised by a
// shared tomb.Tomb derived from ctx. Cancelling ctx or calling Shutdown
// tears every symbol's goroutine down together.
func NewRouter(ctx context.Context, symbols ...Symbol) (*SymbolRouter, context.Context) {
	t, ctx := tomb.WithContext(ctx)
	r := &SymbolRouter{
		workers: make(map[Symbol]*symbolWorker, len(symbols)),
		tokens:  make(map[uuid.UUID]tokenEntry),
		t:       t,
	}
	for _, sym := range symbols {
		w := &symbolWorker{book: book.NewBook(), cmds: make(chan command, 64)}
		r.workers[sym] = w
		r.t.Go(func() error { return r.serve(w) })
		log.Info().Str("symbol", string(sym)).Msg("book online")
	}
	return r, ctx
}

// serve drains w's command channel until the tomb is dying.
func (r *SymbolRouter) serve(w *symbolWorker) error {
	for {
		select {
		case <-r.t.Dying():
			return nil
		case cmd := <-w.cmds:
			cmd.fn()
			close(cmd.done)
		}
	}
}

// run dispatches fn onto w's serializing goroutine and blocks until it
// has executed, ctx is cancelled, or the router is shutting down.
func (r *SymbolRouter) run(ctx context.Context, w *symbolWorker, fn func()) error {
	done := make(chan struct{})
	select {
	case w.cmds <- command{fn: fn, done: done}:
	case <-ctx.Done():
		return ctx.Err()
	case <-r.t.Dying():
		return ErrShuttingDown
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *SymbolRouter) worker(sym Symbol) (*symbolWorker, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.workers[sym]
	return w, ok
}

// SubmitLimit places a limit order on sym's book and mints an opaque
// uuid.UUID token for it. The token is kept for later cancellation only
// when part of the order rests on the book; a fully filled taker's token
// cancels nothing.
func (r *SymbolRouter) SubmitLimit(ctx context.Context, sym Symbol, side book.Side, price book.Ticks, qty book.Qty, ts int64) (uuid.UUID, []book.Trade, error) {
	w, ok := r.worker(sym)
	if !ok {
		return uuid.Nil, nil, ErrUnknownSymbol
	}

	var (
		token  uuid.UUID
		trades []book.Trade
		subErr error
	)
	if err := r.run(ctx, w, func() {
		id, tr, e := w.book.SubmitLimit(side, price, qty, ts)
		if e != nil {
			subErr = e
			log.Error().Err(e).Str("symbol", string(sym)).Msg("rejected submission")
			return
		}
		trades = tr

		var filled book.Qty
		for _, tr := range trades {
			if tr.TakerID == id {
				filled += tr.Qty
			}
		}
		token = uuid.New()
		if filled < qty {
			// Only orders still resting on the book need a token to
			// cancel later; an immediately fully-filled taker leaves
			// nothing behind to cancel, so don't track it forever.
			r.mu.Lock()
			r.tokens[token] = tokenEntry{symbol: sym, id: id}
			r.mu.Unlock()
		}
	}); err != nil {
		return uuid.Nil, nil, err
	}
	return token, trades, subErr
}

// CancelLazy tombstones the order behind token without splicing its
// queue position. Returns false, nil for an unknown or already-dead
// token; that's a miss, not an error.
func (r *SymbolRouter) CancelLazy(ctx context.Context, token uuid.UUID) (bool, error) {
	return r.cancel(ctx, token, (*book.Book).CancelLazy)
}

// CancelEager removes the order behind token from its book immediately.
func (r *SymbolRouter) CancelEager(ctx context.Context, token uuid.UUID) (bool, error) {
	return r.cancel(ctx, token, (*book.Book).CancelEager)
}

func (r *SymbolRouter) cancel(ctx context.Context, token uuid.UUID, method func(*book.Book, book.OrderID) bool) (bool, error) {
	r.mu.RLock()
	entry, ok := r.tokens[token]
	r.mu.RUnlock()
	if !ok {
		return false, nil
	}

	w, ok := r.worker(entry.symbol)
	if !ok {
		return false, ErrUnknownSymbol
	}

	var cancelled bool
	if err := r.run(ctx, w, func() {
		cancelled = method(w.book, entry.id)
		if !cancelled {
			log.Warn().
				Str("symbol", string(entry.symbol)).
				Str("token", token.String()).
				Msg("cancel missed: order already gone")
		}
	}); err != nil {
		return false, err
	}
	if cancelled {
		r.mu.Lock()
		delete(r.tokens, token)
		r.mu.Unlock()
	}
	return cancelled, nil
}

// Depth returns a DepthSnapshot for sym's book.
func (r *SymbolRouter) Depth(ctx context.Context, sym Symbol, n int) (book.DepthSnapshot, error) {
	w, ok := r.worker(sym)
	if !ok {
		return book.DepthSnapshot{}, ErrUnknownSymbol
	}
	var snap book.DepthSnapshot
	err := r.run(ctx, w, func() { snap = w.book.Depth(n) })
	return snap, err
}

// Shutdown kills every symbol's goroutine and waits for them to exit.
func (r *SymbolRouter) Shutdown() error {
	r.t.Kill(nil)
	return r.t.Wait()
}
