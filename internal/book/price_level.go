package book

// PriceLevel is the FIFO queue of orders resting at one price tick, plus
// the aggregate live quantity at that tick. Orders leave the queue only
// from the head (matching) or by exact-id splice (eager cancel); lazy
// cancel tombstones an order in place without touching the queue.
type PriceLevel struct {
	Price  Ticks
	orders []*Order
	total  Qty
}

func newPriceLevel(price Ticks) *PriceLevel {
	return &PriceLevel{Price: price}
}

// enqueue appends a resting order to the tail of the queue.
func (l *PriceLevel) enqueue(o *Order) {
	l.orders = append(l.orders, o)
	l.total += o.remaining
}

// peekHeadLive returns the first live order, sweeping dead tombstones
// off the head as it scans. This is the only place tombstones are
// physically discarded outside of eager cancel.
func (l *PriceLevel) peekHeadLive() *Order {
	for len(l.orders) > 0 {
		head := l.orders[0]
		if head.live {
			return head
		}
		l.orders = l.orders[1:]
	}
	return nil
}

// fillHead reduces the live head order by qty. If the head is exhausted
// it is popped and killed; the caller is responsible for removing its id
// from the Book's index, since the level has no access to it.
func (l *PriceLevel) fillHead(qty Qty) (headID OrderID, exhausted bool) {
	head := l.orders[0]
	head.reduce(qty)
	l.total -= qty
	headID = head.id
	if head.remaining == 0 {
		head.kill()
		l.orders = l.orders[1:]
		exhausted = true
	}
	return headID, exhausted
}

// removeByID splices the order with the given id out of the queue
// wherever it sits, killing it and debiting total if it was still live.
// Reports whether the order was found and whether it was live.
func (l *PriceLevel) removeByID(id OrderID) (found, wasLive bool) {
	for i, o := range l.orders {
		if o.id != id {
			continue
		}
		wasLive = o.live
		if wasLive {
			l.total -= o.remaining
		}
		o.kill()
		l.orders = append(l.orders[:i:i], l.orders[i+1:]...)
		return true, wasLive
	}
	return false, false
}

// markDead tombstones an order in place without splicing the queue,
// debiting total immediately (lazy-cancel bookkeeping). Requires the
// order still be live.
func (l *PriceLevel) markDead(o *Order) {
	l.total -= o.remaining
	o.kill()
}

// isEmptyOfLive reports whether the queue has no live orders left.
func (l *PriceLevel) isEmptyOfLive() bool {
	for _, o := range l.orders {
		if o.live {
			return false
		}
	}
	return true
}

// TotalQuantity is the aggregate remaining quantity of live orders only.
func (l *PriceLevel) TotalQuantity() Qty { return l.total }

// Orders exposes the raw queue, head first, tombstones included. Used by
// tests and introspection; matching code uses peekHeadLive instead.
func (l *PriceLevel) Orders() []*Order {
	return l.orders
}
