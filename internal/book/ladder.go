package book

import "github.com/tidwall/btree"

// Ladder is an ordered price -> PriceLevel map for one side of the book.
// Bid and ask differ only in comparator direction: the bid ladder orders
// greatest-price-first, the ask ladder least-price-first, so "best" is
// always the tree's minimum under its own comparator and Scan always
// yields levels best-to-worst.
type Ladder struct {
	side Side
	tree *btree.BTreeG[*PriceLevel]
}

func newBidLadder() *Ladder {
	return &Ladder{
		side: Bid,
		tree: btree.NewBTreeG(func(a, b *PriceLevel) bool { return a.Price > b.Price }),
	}
}

func newAskLadder() *Ladder {
	return &Ladder{
		side: Ask,
		tree: btree.NewBTreeG(func(a, b *PriceLevel) bool { return a.Price < b.Price }),
	}
}

// bestLevel returns the level at the best price, or false if the ladder
// is empty.
func (l *Ladder) bestLevel() (*PriceLevel, bool) {
	return l.tree.Min()
}

// bestPrice returns the best price tick, or false if the ladder is
// empty.
func (l *Ladder) bestPrice() (Ticks, bool) {
	lvl, ok := l.tree.Min()
	if !ok {
		return 0, false
	}
	return lvl.Price, true
}

// levelAt returns the level at price, if any, without creating it.
func (l *Ladder) levelAt(price Ticks) (*PriceLevel, bool) {
	return l.tree.Get(&PriceLevel{Price: price})
}

// getOrCreate returns the level at price, creating an empty one and
// inserting it into the tree if absent.
func (l *Ladder) getOrCreate(price Ticks) *PriceLevel {
	if lvl, ok := l.tree.Get(&PriceLevel{Price: price}); ok {
		return lvl
	}
	lvl := newPriceLevel(price)
	l.tree.Set(lvl)
	return lvl
}

// delete removes the level at price from the ladder. Safe to call on a
// price with no level.
func (l *Ladder) delete(price Ticks) {
	l.tree.Delete(&PriceLevel{Price: price})
}

// crosses reports whether this ladder's best price crosses against a
// taker of the opposite side at takerPrice.
func (l *Ladder) crosses(takerSide Side, takerPrice Ticks) bool {
	best, ok := l.bestPrice()
	if !ok {
		return false
	}
	if takerSide == Bid {
		// l is the opposing ask ladder: bid crosses an ask at or below its price.
		return best <= takerPrice
	}
	// l is the opposing bid ladder: ask crosses a bid at or above its price.
	return best >= takerPrice
}

// Count is the number of non-empty price levels.
func (l *Ladder) Count() int { return l.tree.Len() }

// Levels returns up to n levels best-first. n <= 0 means unbounded.
func (l *Ladder) Levels(n int) []*PriceLevel {
	out := make([]*PriceLevel, 0, max(n, 0))
	l.tree.Scan(func(lvl *PriceLevel) bool {
		out = append(out, lvl)
		return n <= 0 || len(out) < n
	})
	return out
}

// Items returns every level, best-first. Convenience for tests.
func (l *Ladder) Items() []*PriceLevel {
	return l.Levels(0)
}
