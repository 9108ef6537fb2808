package transport

import (
	"encoding/binary"

	"matchcore/internal/book"
	"matchcore/internal/router"
)

// ExecutionReportMsg reports a single fill to a client; the server
// sends one per trade, to the connection that submitted the taker
// order only.
type ExecutionReportMsg struct {
	Symbol  router.Symbol
	TakerID book.OrderID
	MakerID book.OrderID
	Price   book.Ticks
	Qty     book.Qty
	TS      int64
}

const executionReportFixedLen = symbolFieldLen + 8 + 8 + 8 + 8 + 8

// EncodeExecutionReport serializes a trade report.
func EncodeExecutionReport(r ExecutionReportMsg) []byte {
	buf := make([]byte, BaseHeaderLen+1+executionReportFixedLen)
	binary.BigEndian.PutUint16(buf[0:2], uint16(ExecutionReport))
	buf[2] = 0 // report type discriminator, reserved
	body := buf[3:]

	packSymbol(body[0:symbolFieldLen], r.Symbol)
	off := symbolFieldLen
	binary.BigEndian.PutUint64(body[off:off+8], uint64(r.TakerID))
	off += 8
	binary.BigEndian.PutUint64(body[off:off+8], uint64(r.MakerID))
	off += 8
	binary.BigEndian.PutUint64(body[off:off+8], uint64(r.Price))
	off += 8
	binary.BigEndian.PutUint64(body[off:off+8], uint64(r.Qty))
	off += 8
	binary.BigEndian.PutUint64(body[off:off+8], uint64(r.TS))
	return buf
}

// DecodeExecutionReport parses a trade report body (post type tag).
func DecodeExecutionReport(body []byte) (ExecutionReportMsg, error) {
	if len(body) < 1+executionReportFixedLen {
		return ExecutionReportMsg{}, ErrMessageTooShort
	}
	body = body[1:]
	var r ExecutionReportMsg
	r.Symbol = unpackSymbol(body[0:symbolFieldLen])
	off := symbolFieldLen
	r.TakerID = book.OrderID(binary.BigEndian.Uint64(body[off : off+8]))
	off += 8
	r.MakerID = book.OrderID(binary.BigEndian.Uint64(body[off : off+8]))
	off += 8
	r.Price = book.Ticks(int64(binary.BigEndian.Uint64(body[off : off+8])))
	off += 8
	r.Qty = book.Qty(binary.BigEndian.Uint64(body[off : off+8]))
	off += 8
	r.TS = int64(binary.BigEndian.Uint64(body[off : off+8]))
	return r, nil
}

// EncodeErrorReport serializes a rejection/error back to the client
// that caused it.
func EncodeErrorReport(message string) []byte {
	buf := make([]byte, BaseHeaderLen+4+len(message))
	binary.BigEndian.PutUint16(buf[0:2], uint16(ErrorReportType))
	binary.BigEndian.PutUint32(buf[2:6], uint32(len(message)))
	copy(buf[6:], message)
	return buf
}

// DecodeErrorReport parses an error report body.
func DecodeErrorReport(body []byte) (string, error) {
	if len(body) < 4 {
		return "", ErrMessageTooShort
	}
	n := binary.BigEndian.Uint32(body[0:4])
	if uint32(len(body)-4) < n {
		return "", ErrMessageTooShort
	}
	return string(body[4 : 4+n]), nil
}

const depthLevelLen = 16 // price(8) + qty(8)

// EncodeDepthReport serializes a DepthSnapshot for the wire, one
// fixed-width level entry per price level, best-first on each side.
func EncodeDepthReport(sym router.Symbol, snap book.DepthSnapshot) []byte {
	size := BaseHeaderLen + symbolFieldLen + 1 + 8 + 1 + 8 + 4 + 4 + 2 + 2
	size += len(snap.Bids) * depthLevelLen
	size += len(snap.Asks) * depthLevelLen
	buf := make([]byte, size)

	binary.BigEndian.PutUint16(buf[0:2], uint16(DepthReport))
	body := buf[BaseHeaderLen:]

	packSymbol(body[0:symbolFieldLen], sym)
	off := symbolFieldLen

	if snap.BestBid != nil {
		body[off] = 1
		binary.BigEndian.PutUint64(body[off+1:off+9], uint64(*snap.BestBid))
	}
	off += 9

	if snap.BestAsk != nil {
		body[off] = 1
		binary.BigEndian.PutUint64(body[off+1:off+9], uint64(*snap.BestAsk))
	}
	off += 9

	binary.BigEndian.PutUint32(body[off:off+4], uint32(snap.BidLevelCount))
	off += 4
	binary.BigEndian.PutUint32(body[off:off+4], uint32(snap.AskLevelCount))
	off += 4

	binary.BigEndian.PutUint16(body[off:off+2], uint16(len(snap.Bids)))
	off += 2
	for _, lvl := range snap.Bids {
		binary.BigEndian.PutUint64(body[off:off+8], uint64(lvl.Price))
		binary.BigEndian.PutUint64(body[off+8:off+16], uint64(lvl.Qty))
		off += depthLevelLen
	}

	binary.BigEndian.PutUint16(body[off:off+2], uint16(len(snap.Asks)))
	off += 2
	for _, lvl := range snap.Asks {
		binary.BigEndian.PutUint64(body[off:off+8], uint64(lvl.Price))
		binary.BigEndian.PutUint64(body[off+8:off+16], uint64(lvl.Qty))
		off += depthLevelLen
	}

	return buf
}

// DecodeDepthReport parses a depth report body (post type tag).
func DecodeDepthReport(body []byte) (router.Symbol, book.DepthSnapshot, error) {
	const fixedLen = symbolFieldLen + 1 + 8 + 1 + 8 + 4 + 4 + 2
	if len(body) < fixedLen {
		return "", book.DepthSnapshot{}, ErrMessageTooShort
	}
	sym := unpackSymbol(body[0:symbolFieldLen])
	off := symbolFieldLen

	var snap book.DepthSnapshot
	if body[off] == 1 {
		v := book.Ticks(int64(binary.BigEndian.Uint64(body[off+1 : off+9])))
		snap.BestBid = &v
	}
	off += 9
	if body[off] == 1 {
		v := book.Ticks(int64(binary.BigEndian.Uint64(body[off+1 : off+9])))
		snap.BestAsk = &v
	}
	off += 9

	snap.BidLevelCount = int(binary.BigEndian.Uint32(body[off : off+4]))
	off += 4
	snap.AskLevelCount = int(binary.BigEndian.Uint32(body[off : off+4]))
	off += 4

	nBids := int(binary.BigEndian.Uint16(body[off : off+2]))
	off += 2
	if len(body) < off+nBids*depthLevelLen {
		return "", book.DepthSnapshot{}, ErrMessageTooShort
	}
	for i := 0; i < nBids; i++ {
		price := book.Ticks(int64(binary.BigEndian.Uint64(body[off : off+8])))
		qty := book.Qty(binary.BigEndian.Uint64(body[off+8 : off+16]))
		snap.Bids = append(snap.Bids, book.LevelView{Price: price, Qty: qty})
		off += depthLevelLen
	}

	if len(body) < off+2 {
		return "", book.DepthSnapshot{}, ErrMessageTooShort
	}
	nAsks := int(binary.BigEndian.Uint16(body[off : off+2]))
	off += 2
	if len(body) < off+nAsks*depthLevelLen {
		return "", book.DepthSnapshot{}, ErrMessageTooShort
	}
	for i := 0; i < nAsks; i++ {
		price := book.Ticks(int64(binary.BigEndian.Uint64(body[off : off+8])))
		qty := book.Qty(binary.BigEndian.Uint64(body[off+8 : off+16]))
		snap.Asks = append(snap.Asks, book.LevelView{Price: price, Qty: qty})
		off += depthLevelLen
	}

	return sym, snap, nil
}
