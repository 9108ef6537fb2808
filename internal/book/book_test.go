package book

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitLimit_NoCrossRest(t *testing.T) {
	b := NewBook()

	_, trades, err := b.SubmitLimit(Ask, 100, 10, 1)
	require.NoError(t, err)
	assert.Empty(t, trades)

	_, trades, err = b.SubmitLimit(Bid, 99, 5, 2)
	require.NoError(t, err)
	assert.Empty(t, trades)

	bb, ok := b.BestBid()
	assert.True(t, ok)
	assert.Equal(t, Ticks(99), bb)

	ba, ok := b.BestAsk()
	assert.True(t, ok)
	assert.Equal(t, Ticks(100), ba)

	depth := b.Depth(10)
	assert.Len(t, depth.Bids, 1)
	assert.Len(t, depth.Asks, 1)
}

func TestSubmitLimit_ExactCrossFullFill(t *testing.T) {
	b := NewBook()

	askID, _, err := b.SubmitLimit(Ask, 100, 10, 1)
	require.NoError(t, err)

	bidID, trades, err := b.SubmitLimit(Bid, 100, 10, 2)
	require.NoError(t, err)

	require.Len(t, trades, 1)
	assert.Equal(t, Trade{TakerID: bidID, MakerID: askID, Price: 100, Qty: 10, TS: 2}, trades[0])

	_, ok := b.BestBid()
	assert.False(t, ok)
	_, ok = b.BestAsk()
	assert.False(t, ok)
}

func TestSubmitLimit_PartialTaker(t *testing.T) {
	b := NewBook()

	ask100, _, err := b.SubmitLimit(Ask, 100, 3, 1)
	require.NoError(t, err)
	ask101, _, err := b.SubmitLimit(Ask, 101, 7, 2)
	require.NoError(t, err)

	_, trades, err := b.SubmitLimit(Bid, 101, 8, 3)
	require.NoError(t, err)

	require.Len(t, trades, 2)
	assert.Equal(t, ask100, trades[0].MakerID)
	assert.Equal(t, Qty(3), trades[0].Qty)
	assert.Equal(t, Ticks(100), trades[0].Price)

	assert.Equal(t, ask101, trades[1].MakerID)
	assert.Equal(t, Qty(5), trades[1].Qty)
	assert.Equal(t, Ticks(101), trades[1].Price)

	assert.Equal(t, Qty(2), b.QuantityAt(Ask, 101))
	_, ok := b.BestBid()
	assert.False(t, ok)
}

func TestSubmitLimit_PriceTimePriority(t *testing.T) {
	b := NewBook()

	a, _, err := b.SubmitLimit(Ask, 100, 4, 1)
	require.NoError(t, err)
	bb, _, err := b.SubmitLimit(Ask, 100, 6, 2)
	require.NoError(t, err)

	_, trades, err := b.SubmitLimit(Bid, 100, 7, 3)
	require.NoError(t, err)

	require.Len(t, trades, 2)
	assert.Equal(t, a, trades[0].MakerID)
	assert.Equal(t, Qty(4), trades[0].Qty)
	assert.Equal(t, bb, trades[1].MakerID)
	assert.Equal(t, Qty(3), trades[1].Qty)

	assert.Equal(t, Qty(3), b.QuantityAt(Ask, 100))
}

func TestCancelLazy_SweptDuringMatch(t *testing.T) {
	b := NewBook()

	a, _, err := b.SubmitLimit(Ask, 100, 5, 1)
	require.NoError(t, err)
	bb, _, err := b.SubmitLimit(Ask, 100, 5, 2)
	require.NoError(t, err)

	assert.True(t, b.CancelLazy(a))

	_, trades, err := b.SubmitLimit(Bid, 100, 5, 3)
	require.NoError(t, err)

	require.Len(t, trades, 1)
	assert.Equal(t, bb, trades[0].MakerID)

	_, ok := b.BestAsk()
	assert.False(t, ok)
}

func TestLevel_GhostAfterTailTombstone(t *testing.T) {
	b := NewBook()

	a, _, err := b.SubmitLimit(Ask, 100, 5, 1)
	require.NoError(t, err)
	bb, _, err := b.SubmitLimit(Ask, 100, 3, 2)
	require.NoError(t, err)

	// B tombstoned behind the still-live head A: the level's queue is
	// non-empty but carries no live quantity once A is drained.
	assert.True(t, b.CancelLazy(bb))

	_, trades, err := b.SubmitLimit(Bid, 100, 5, 3)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, a, trades[0].MakerID)

	_, ok := b.BestAsk()
	assert.False(t, ok, "level must be gone once its last live order is filled")

	depth := b.Depth(0)
	assert.Zero(t, depth.AskLevelCount)
	assert.Empty(t, depth.Asks)
}

func TestDepth_CrossLevelWalk(t *testing.T) {
	b := NewBook()

	_, _, err := b.SubmitLimit(Ask, 100, 2, 1)
	require.NoError(t, err)
	_, _, err = b.SubmitLimit(Ask, 101, 2, 2)
	require.NoError(t, err)
	_, _, err = b.SubmitLimit(Ask, 102, 2, 3)
	require.NoError(t, err)

	depth := b.Depth(3)
	require.Len(t, depth.Asks, 3)
	assert.Equal(t, []LevelView{{100, 2}, {101, 2}, {102, 2}}, depth.Asks)
	assert.Empty(t, depth.Bids)

	_, trades, err := b.SubmitLimit(Bid, 102, 5, 4)
	require.NoError(t, err)

	require.Len(t, trades, 3)
	assert.Equal(t, Qty(2), trades[0].Qty)
	assert.Equal(t, Qty(2), trades[1].Qty)
	assert.Equal(t, Qty(1), trades[2].Qty)

	assert.Equal(t, Qty(1), b.QuantityAt(Ask, 102))
}

func TestCancelEager_GhostClearedWithLeadingTombstone(t *testing.T) {
	b := NewBook()

	a, _, err := b.SubmitLimit(Bid, 50, 5, 1)
	require.NoError(t, err)
	bb, _, err := b.SubmitLimit(Bid, 50, 3, 2)
	require.NoError(t, err)

	// A tombstoned first but left in place (lazy), then B spliced out
	// directly (eager): the queue still holds A's tombstone afterward.
	assert.True(t, b.CancelLazy(a))
	assert.True(t, b.CancelEager(bb))

	_, ok := b.BestBid()
	assert.False(t, ok, "level must be gone once it carries no live orders")
	assert.Zero(t, b.Depth(0).BidLevelCount)
}

func TestCancelIdempotence(t *testing.T) {
	b := NewBook()
	id, _, err := b.SubmitLimit(Bid, 99, 5, 1)
	require.NoError(t, err)

	assert.True(t, b.CancelLazy(id))
	assert.False(t, b.CancelLazy(id))

	b2 := NewBook()
	id2, _, err := b2.SubmitLimit(Bid, 99, 5, 1)
	require.NoError(t, err)
	assert.True(t, b2.CancelEager(id2))
	assert.False(t, b2.CancelEager(id2))
}

func TestLazyEagerEquivalence(t *testing.T) {
	run := func(cancel func(b *Book, id OrderID) bool) []Trade {
		b := NewBook()
		a, _, _ := b.SubmitLimit(Ask, 100, 5, 1)
		_, _, _ = b.SubmitLimit(Ask, 100, 5, 2)
		cancel(b, a)
		_, trades, _ := b.SubmitLimit(Bid, 100, 5, 3)
		return trades
	}

	lazy := run((*Book).CancelLazy)
	eager := run((*Book).CancelEager)
	assert.Equal(t, lazy, eager)
}

func TestUnknownCancel(t *testing.T) {
	b := NewBook()
	assert.False(t, b.CancelLazy(9999))
	assert.False(t, b.CancelEager(9999))
}

func TestInvalidSubmissions(t *testing.T) {
	b := NewBook()

	_, _, err := b.SubmitLimit(Bid, 100, 0, 1)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, _, err = b.SubmitLimit(Bid, -1, 10, 1)
	assert.ErrorIs(t, err, ErrInvalidPrice)

	assert.Equal(t, 0, b.TotalLiveOrders())
}

func TestTimestampClampPolicy(t *testing.T) {
	b := NewBook()
	_, _, err := b.SubmitLimit(Bid, 100, 1, 10)
	require.NoError(t, err)

	id, _, err := b.SubmitLimit(Bid, 99, 1, 1)
	require.NoError(t, err)

	// The clamped order must carry ts >= 10, not the submitted 1.
	entry := b.index[id]
	assert.GreaterOrEqual(t, entry.order.arrival, int64(10))
}

func TestPeekBestSweepsTombstones(t *testing.T) {
	b := NewBook()
	a, _, _ := b.SubmitLimit(Bid, 100, 5, 1)
	_, _, _ = b.SubmitLimit(Bid, 100, 5, 2)
	b.CancelLazy(a)

	best, ok := b.PeekBest(Bid)
	require.True(t, ok)
	assert.NotEqual(t, a, best.ID)
}

func TestMidAndSpread(t *testing.T) {
	b := NewBook()
	_, _, _ = b.SubmitLimit(Bid, 99, 1, 1)
	_, _, _ = b.SubmitLimit(Ask, 102, 1, 2)

	mid, ok := b.Mid()
	require.True(t, ok)
	assert.Equal(t, Ticks(100), mid) // floor(201/2)

	spread, ok := b.Spread()
	require.True(t, ok)
	assert.Equal(t, Ticks(3), spread)
}

func TestValidate_HealthyBookHasNoViolations(t *testing.T) {
	b := NewBook()
	_, _, _ = b.SubmitLimit(Bid, 99, 5, 1)
	_, _, _ = b.SubmitLimit(Ask, 101, 5, 2)
	_, _, _ = b.SubmitLimit(Bid, 101, 3, 3)
	assert.NoError(t, b.Validate())
}

func TestMassConservation(t *testing.T) {
	b := NewBook()
	_, _, _ = b.SubmitLimit(Ask, 100, 10, 1)

	bidID, trades, err := b.SubmitLimit(Bid, 100, 6, 2)
	require.NoError(t, err)

	var traded Qty
	for _, tr := range trades {
		traded += tr.Qty
	}
	assert.Equal(t, Qty(6), traded)

	entry, ok := b.index[bidID]
	assert.False(t, ok, "fully-filled taker should not rest or be indexed")
	_ = entry
}
