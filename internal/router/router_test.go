package router

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matchcore/internal/book"
)

func TestRouter_SubmitAndCrossAcrossSymbols(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r, ctx := NewRouter(ctx, "AAPL", "MSFT")
	defer r.Shutdown()

	_, trades, err := r.SubmitLimit(ctx, "AAPL", book.Ask, 100, 10, 1)
	require.NoError(t, err)
	assert.Empty(t, trades)

	_, trades, err = r.SubmitLimit(ctx, "AAPL", book.Bid, 100, 10, 2)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, book.Qty(10), trades[0].Qty)

	depth, err := r.Depth(ctx, "MSFT", 5)
	require.NoError(t, err)
	assert.Empty(t, depth.Bids)
	assert.Empty(t, depth.Asks)
}

func TestRouter_UnknownSymbol(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r, ctx := NewRouter(ctx, "AAPL")
	defer r.Shutdown()

	_, _, err := r.SubmitLimit(ctx, "TSLA", book.Bid, 100, 1, 1)
	assert.ErrorIs(t, err, ErrUnknownSymbol)
}

func TestRouter_CancelByToken(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r, ctx := NewRouter(ctx, "AAPL")
	defer r.Shutdown()

	token, _, err := r.SubmitLimit(ctx, "AAPL", book.Bid, 99, 5, 1)
	require.NoError(t, err)

	ok, err := r.CancelLazy(ctx, token)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.CancelLazy(ctx, token)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRouter_CancelUnknownToken(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r, ctx := NewRouter(ctx, "AAPL")
	defer r.Shutdown()

	ok, err := r.CancelEager(ctx, uuid.Nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRouter_FullyFilledTakerTokenNotTracked(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r, ctx := NewRouter(ctx, "AAPL")
	defer r.Shutdown()

	_, _, err := r.SubmitLimit(ctx, "AAPL", book.Ask, 100, 5, 1)
	require.NoError(t, err)

	token, trades, err := r.SubmitLimit(ctx, "AAPL", book.Bid, 100, 5, 2)
	require.NoError(t, err)
	require.Len(t, trades, 1)

	// The taker fully filled immediately; there is nothing left on the
	// book to cancel, so its token was never tracked.
	ok, err := r.CancelLazy(ctx, token)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRouter_ShutdownStopsDispatch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r, ctx := NewRouter(ctx, "AAPL")
	require.NoError(t, r.Shutdown())

	deadline, deadlineCancel := context.WithTimeout(ctx, 200*time.Millisecond)
	defer deadlineCancel()

	_, _, err := r.SubmitLimit(deadline, "AAPL", book.Bid, 100, 1, 1)
	assert.Error(t, err)
}
