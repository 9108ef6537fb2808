// Package transport is the binary wire protocol spoken over the TCP
// front door: a hand-rolled fixed-header format with a 2-byte message
// type, fixed-width fields, then variable-length trailers where needed.
// Ticks and quantities are encoded as plain big-endian integers rather
// than IEEE-754 floats, since the core trades in integer ticks, not
// float64 prices.
package transport

import (
	"encoding/binary"
	"errors"

	"github.com/google/uuid"

	"matchcore/internal/book"
	"matchcore/internal/router"
)

var (
	ErrMessageTooShort    = errors.New("transport: message too short")
	ErrInvalidMessageType = errors.New("transport: invalid message type")
)

// MessageType tags an inbound client request.
type MessageType uint16

const (
	Heartbeat MessageType = iota
	NewOrder
	CancelOrder
	DepthRequest
)

// ReportType tags an outbound server report.
type ReportType uint16

const (
	ExecutionReport ReportType = iota
	ErrorReportType
	DepthReport
)

const symbolFieldLen = 8

// BaseHeaderLen is the size of the message-type tag every message
// starts with.
const BaseHeaderLen = 2

// NewOrderHeaderLen covers symbol(8) + side(1) + price(8) + qty(8) +
// ts(8) + ownerLen(1), before the variable-length owner name.
const NewOrderHeaderLen = symbolFieldLen + 1 + 8 + 8 + 8 + 1

// CancelOrderLen covers symbol(8) + mode(1) + token(16).
const CancelOrderLen = symbolFieldLen + 1 + 16

// DepthRequestLen covers symbol(8) + levels(2).
const DepthRequestLen = symbolFieldLen + 2

// NewOrderMessage is a parsed place-order request.
type NewOrderMessage struct {
	Symbol router.Symbol
	Side   book.Side
	Price  book.Ticks
	Qty    book.Qty
	TS     int64
	Owner  string
}

// CancelMessage is a parsed cancel request. Eager selects eager
// cancellation; otherwise the request is lazy.
type CancelMessage struct {
	Symbol router.Symbol
	Token  uuid.UUID
	Eager  bool
}

// DepthRequestMessage is a parsed depth-snapshot request.
type DepthRequestMessage struct {
	Symbol router.Symbol
	Levels int
}

func packSymbol(buf []byte, sym router.Symbol) {
	clear(buf[:symbolFieldLen])
	copy(buf[:symbolFieldLen], sym)
}

func unpackSymbol(buf []byte) router.Symbol {
	n := 0
	for n < len(buf) && buf[n] != 0 {
		n++
	}
	return router.Symbol(buf[:n])
}

// DecodeMessageType reads the 2-byte type tag and returns the remaining
// body.
func DecodeMessageType(msg []byte) (MessageType, []byte, error) {
	if len(msg) < BaseHeaderLen {
		return 0, nil, ErrMessageTooShort
	}
	return MessageType(binary.BigEndian.Uint16(msg[0:2])), msg[2:], nil
}

// EncodeNewOrder serializes a place-order request.
func EncodeNewOrder(m NewOrderMessage) []byte {
	ownerLen := len(m.Owner)
	buf := make([]byte, BaseHeaderLen+NewOrderHeaderLen+ownerLen)

	binary.BigEndian.PutUint16(buf[0:2], uint16(NewOrder))
	body := buf[BaseHeaderLen:]

	packSymbol(body[0:symbolFieldLen], m.Symbol)
	off := symbolFieldLen
	body[off] = byte(m.Side)
	off++
	binary.BigEndian.PutUint64(body[off:off+8], uint64(m.Price))
	off += 8
	binary.BigEndian.PutUint64(body[off:off+8], uint64(m.Qty))
	off += 8
	binary.BigEndian.PutUint64(body[off:off+8], uint64(m.TS))
	off += 8
	body[off] = uint8(ownerLen)
	off++
	copy(body[off:], m.Owner)

	return buf
}

// DecodeNewOrder parses a place-order request body (post message-type
// tag).
func DecodeNewOrder(body []byte) (NewOrderMessage, error) {
	if len(body) < NewOrderHeaderLen {
		return NewOrderMessage{}, ErrMessageTooShort
	}
	var m NewOrderMessage
	m.Symbol = unpackSymbol(body[0:symbolFieldLen])
	off := symbolFieldLen
	m.Side = book.Side(body[off])
	off++
	m.Price = book.Ticks(int64(binary.BigEndian.Uint64(body[off : off+8])))
	off += 8
	m.Qty = book.Qty(binary.BigEndian.Uint64(body[off : off+8]))
	off += 8
	m.TS = int64(binary.BigEndian.Uint64(body[off : off+8]))
	off += 8
	ownerLen := int(body[off])
	off++
	if len(body) < off+ownerLen {
		return NewOrderMessage{}, ErrMessageTooShort
	}
	m.Owner = string(body[off : off+ownerLen])
	return m, nil
}

// EncodeCancel serializes a cancel request.
func EncodeCancel(m CancelMessage) []byte {
	buf := make([]byte, BaseHeaderLen+CancelOrderLen)
	binary.BigEndian.PutUint16(buf[0:2], uint16(CancelOrder))
	body := buf[BaseHeaderLen:]
	packSymbol(body[0:symbolFieldLen], m.Symbol)
	off := symbolFieldLen
	if m.Eager {
		body[off] = 1
	}
	off++
	tokenBytes, _ := m.Token.MarshalBinary()
	copy(body[off:off+16], tokenBytes)
	return buf
}

// DecodeCancel parses a cancel request body.
func DecodeCancel(body []byte) (CancelMessage, error) {
	if len(body) < CancelOrderLen {
		return CancelMessage{}, ErrMessageTooShort
	}
	var m CancelMessage
	m.Symbol = unpackSymbol(body[0:symbolFieldLen])
	off := symbolFieldLen
	m.Eager = body[off] != 0
	off++
	token, err := uuid.FromBytes(body[off : off+16])
	if err != nil {
		return CancelMessage{}, err
	}
	m.Token = token
	return m, nil
}

// EncodeDepthRequest serializes a depth-snapshot request.
func EncodeDepthRequest(m DepthRequestMessage) []byte {
	buf := make([]byte, BaseHeaderLen+DepthRequestLen)
	binary.BigEndian.PutUint16(buf[0:2], uint16(DepthRequest))
	body := buf[BaseHeaderLen:]
	packSymbol(body[0:symbolFieldLen], m.Symbol)
	binary.BigEndian.PutUint16(body[symbolFieldLen:symbolFieldLen+2], uint16(m.Levels))
	return buf
}

// DecodeDepthRequest parses a depth-snapshot request body.
func DecodeDepthRequest(body []byte) (DepthRequestMessage, error) {
	if len(body) < DepthRequestLen {
		return DepthRequestMessage{}, ErrMessageTooShort
	}
	var m DepthRequestMessage
	m.Symbol = unpackSymbol(body[0:symbolFieldLen])
	m.Levels = int(binary.BigEndian.Uint16(body[symbolFieldLen : symbolFieldLen+2]))
	return m, nil
}
