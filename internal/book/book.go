package book

// indexEntry is the Book's global id -> order lookup. It carries direct
// pointers to the order and the level it rests on so cancels do not need
// to re-walk the ladder; it is never itself mutated by a lazy cancel,
// which only tombstones the order it points at.
type indexEntry struct {
	order *Order
	level *PriceLevel
	side  Side
}

// Book is a single-symbol limit order book: a pair of side ladders, a
// global order index for cancellation, and the submit/cancel/query
// entry points. A Book is a single-threaded mutator; submit and cancel
// calls on one Book must be serialized by the caller.
type Book struct {
	bids  *Ladder
	asks  *Ladder
	index map[OrderID]*indexEntry

	nextID OrderID
	lastTS int64
}

// NewBook constructs an empty book.
func NewBook() *Book {
	return &Book{
		bids:  newBidLadder(),
		asks:  newAskLadder(),
		index: make(map[OrderID]*indexEntry),
	}
}

func (b *Book) ladderFor(side Side) *Ladder {
	if side == Bid {
		return b.bids
	}
	return b.asks
}

func (b *Book) opposing(side Side) *Ladder {
	if side == Bid {
		return b.asks
	}
	return b.bids
}

// SubmitLimit accepts a new limit order, matches it against the
// opposing ladder under strict price-time priority, and rests any
// residual quantity on its own ladder. It returns the assigned id and
// the trades generated, in emission order.
//
// Timestamps are required to be non-decreasing; this Book's policy is
// to clamp a lower ts up to the last accepted ts rather than reject the
// submission, tolerating wall-clock jitter across concurrent callers.
func (b *Book) SubmitLimit(side Side, price Ticks, qty Qty, ts int64) (OrderID, []Trade, error) {
	if qty == 0 {
		return 0, nil, ErrInvalidQuantity
	}
	if price < 0 {
		return 0, nil, ErrInvalidPrice
	}
	if ts < b.lastTS {
		ts = b.lastTS
	} else {
		b.lastTS = ts
	}

	b.nextID++
	id := b.nextID
	taker := newOrder(id, side, price, qty, ts)

	opp := b.opposing(side)
	var trades []Trade

	for taker.remaining > 0 && opp.crosses(side, price) {
		level, ok := opp.bestLevel()
		if !ok {
			break
		}
		head := level.peekHeadLive()
		if head == nil {
			opp.delete(level.Price)
			continue
		}

		fillQty := min(taker.remaining, head.remaining)
		trades = append(trades, Trade{
			TakerID: id,
			MakerID: head.id,
			Price:   head.price,
			Qty:     fillQty,
			TS:      ts,
		})

		headID, exhausted := level.fillHead(fillQty)
		if exhausted {
			delete(b.index, headID)
		}
		taker.reduce(fillQty)

		if level.isEmptyOfLive() {
			opp.delete(level.Price)
		}
	}

	if taker.remaining > 0 {
		own := b.ladderFor(side)
		level := own.getOrCreate(price)
		level.enqueue(taker)
		b.index[id] = &indexEntry{order: taker, level: level, side: side}
	}

	return id, trades, nil
}

// CancelLazy marks id dead in place without touching its queue position.
// Idempotent: the first call on a live order returns true; subsequent
// calls on the same id return false. Unknown ids return false.
func (b *Book) CancelLazy(id OrderID) bool {
	entry, ok := b.index[id]
	if !ok || !entry.order.live {
		return false
	}
	entry.level.markDead(entry.order)
	return true
}

// CancelEager removes id from its level's queue and from the Book index
// immediately, deleting the level if it becomes empty of live orders.
// Same idempotence contract as CancelLazy.
func (b *Book) CancelEager(id OrderID) bool {
	entry, ok := b.index[id]
	if !ok || !entry.order.live {
		return false
	}
	entry.level.removeByID(id)
	delete(b.index, id)
	if entry.level.isEmptyOfLive() {
		b.ladderFor(entry.side).delete(entry.level.Price)
	}
	return true
}

// BestBid returns the maximum bid price, or false if the bid side is
// empty.
func (b *Book) BestBid() (Ticks, bool) { return b.bids.bestPrice() }

// BestAsk returns the minimum ask price, or false if the ask side is
// empty.
func (b *Book) BestAsk() (Ticks, bool) { return b.asks.bestPrice() }

// Mid returns the integer floor of (best_bid+best_ask)/2. Defined only
// when both sides are present.
func (b *Book) Mid() (Ticks, bool) {
	bb, ok := b.BestBid()
	if !ok {
		return 0, false
	}
	ba, ok := b.BestAsk()
	if !ok {
		return 0, false
	}
	return floorDiv2(bb + ba), true
}

// Spread returns best_ask - best_bid. Defined only when both sides are
// present.
func (b *Book) Spread() (Ticks, bool) {
	bb, ok := b.BestBid()
	if !ok {
		return 0, false
	}
	ba, ok := b.BestAsk()
	if !ok {
		return 0, false
	}
	return ba - bb, true
}

func floorDiv2(sum Ticks) Ticks {
	if sum >= 0 || sum%2 == 0 {
		return sum / 2
	}
	return sum/2 - 1
}

// Depth reports the top n price levels on each side, best-first, with
// aggregate live quantity per level. n <= 0 returns every level.
func (b *Book) Depth(n int) DepthSnapshot {
	snap := DepthSnapshot{
		BidLevelCount: b.bids.Count(),
		AskLevelCount: b.asks.Count(),
	}
	if bb, ok := b.BestBid(); ok {
		snap.BestBid = &bb
	}
	if ba, ok := b.BestAsk(); ok {
		snap.BestAsk = &ba
	}
	for _, lvl := range b.bids.Levels(n) {
		snap.Bids = append(snap.Bids, LevelView{Price: lvl.Price, Qty: lvl.total})
	}
	for _, lvl := range b.asks.Levels(n) {
		snap.Asks = append(snap.Asks, LevelView{Price: lvl.Price, Qty: lvl.total})
	}
	return snap
}

// PeekBest returns the head live order on side's best level, sweeping
// any dead tombstones and empty levels encountered along the way. This
// is a read operation with a mutating side effect (tombstone sweep).
func (b *Book) PeekBest(side Side) (OrderBest, bool) {
	ladder := b.ladderFor(side)
	for {
		lvl, ok := ladder.bestLevel()
		if !ok {
			return OrderBest{}, false
		}
		head := lvl.peekHeadLive()
		if head == nil {
			ladder.delete(lvl.Price)
			continue
		}
		return OrderBest{ID: head.id, Price: head.price, Qty: head.remaining}, true
	}
}

// TotalLiveOrders counts live orders across both sides via the index.
func (b *Book) TotalLiveOrders() int {
	n := 0
	for _, e := range b.index {
		if e.order.live {
			n++
		}
	}
	return n
}

// QuantityAt reports the aggregate live quantity resting at price on
// side, or zero if no level exists there.
func (b *Book) QuantityAt(side Side, price Ticks) Qty {
	lvl, ok := b.ladderFor(side).levelAt(price)
	if !ok {
		return 0
	}
	return lvl.total
}

// Validate checks the book's structural invariants (best-bid/best-ask
// ordering, per-level quantity accounting, index/level consistency) and
// returns ErrBookPoisoned wrapping the violated invariant if any is
// found. It is not called on the hot path; it is a test and diagnostics
// helper.
func (b *Book) Validate() error {
	if bb, ok := b.BestBid(); ok {
		if ba, ok := b.BestAsk(); ok && bb >= ba {
			return wrapPoisoned("best_bid >= best_ask")
		}
	}
	for _, lvl := range b.bids.Items() {
		if err := validateLevel(lvl); err != nil {
			return err
		}
	}
	for _, lvl := range b.asks.Items() {
		if err := validateLevel(lvl); err != nil {
			return err
		}
	}
	for id, e := range b.index {
		if e.order.id != id {
			return wrapPoisoned("index id mismatch")
		}
		if _, ok := b.ladderFor(e.side).levelAt(e.level.Price); !ok {
			return wrapPoisoned("index points at a level no longer in its ladder")
		}
	}
	return nil
}

func validateLevel(lvl *PriceLevel) error {
	var sum Qty
	for _, o := range lvl.orders {
		if o.live {
			sum += o.remaining
		}
	}
	if sum != lvl.total {
		return wrapPoisoned("level total_quantity diverges from live order sum")
	}
	return nil
}

func wrapPoisoned(reason string) error {
	return &poisonedError{reason: reason}
}

type poisonedError struct{ reason string }

func (e *poisonedError) Error() string { return "book: invariant violated: " + e.reason }
func (e *poisonedError) Unwrap() error { return ErrBookPoisoned }
