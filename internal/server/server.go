// Package server is the TCP front door: a tomb-supervised accept loop
// handing connections to a worker pool, a session handler draining
// parsed messages, and execution/error reports pushed back to clients.
package server

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"

	"matchcore/internal/book"
	"matchcore/internal/router"
	"matchcore/internal/transport"
)

const (
	maxRecvSize        = 4 * 1024
	defaultNWorkers    = 10
	defaultReadTimeout = time.Second
)

var (
	ErrImproperConversion = errors.New("server: improper type conversion")
	ErrClientDoesNotExist = errors.New("server: client does not exist")
)

// Router is the subset of router.SymbolRouter the transport layer
// drives; an interface so the server can be tested without a live
// router.
type Router interface {
	SubmitLimit(ctx context.Context, sym router.Symbol, side book.Side, price book.Ticks, qty book.Qty, ts int64) (uuid.UUID, []book.Trade, error)
	CancelLazy(ctx context.Context, token uuid.UUID) (bool, error)
	CancelEager(ctx context.Context, token uuid.UUID) (bool, error)
	Depth(ctx context.Context, sym router.Symbol, n int) (book.DepthSnapshot, error)
}

// clientMessage links a raw inbound message to the connection it
// arrived on.
type clientMessage struct {
	address string
	raw     []byte
}

// Server is the TCP listener driving a Router.
type Server struct {
	address string
	port    int
	rtr     Router
	pool    WorkerPool

	cancel context.CancelFunc

	sessionsLock sync.Mutex
	sessions     map[string]net.Conn

	inbound chan clientMessage
}

func New(address string, port int, rtr Router) *Server {
	return &Server{
		address:  address,
		port:     port,
		rtr:      rtr,
		pool:     NewWorkerPool(defaultNWorkers),
		sessions: make(map[string]net.Conn),
		inbound:  make(chan clientMessage, defaultNWorkers),
	}
}

func (s *Server) Shutdown() {
	log.Info().Msg("server shutting down")
	if s.cancel != nil {
		s.cancel()
	}
}

// Run accepts connections until ctx is cancelled. It blocks.
func (s *Server) Run(ctx context.Context) {
	defer s.Shutdown()

	ctx, s.cancel = context.WithCancel(ctx)
	t, ctx := tomb.WithContext(ctx)

	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", fmt.Sprintf("%s:%d", s.address, s.port))
	if err != nil {
		log.Error().Err(err).Msg("unable to start listener")
		return
	}
	defer func() {
		if err := listener.Close(); err != nil {
			log.Error().Err(err).Msg("unable to close listener")
		}
	}()

	t.Go(func() error {
		s.pool.Setup(t, s.handleConnection)
		return nil
	})
	t.Go(func() error {
		return s.sessionHandler(t)
	})

	log.Info().Str("address", s.address).Int("port", s.port).Msg("server running")

	for {
		select {
		case <-ctx.Done():
			return
		default:
			conn, err := listener.Accept()
			if err != nil {
				log.Error().Err(err).Msg("error accepting client")
				continue
			}
			log.Info().Str("address", conn.RemoteAddr().String()).Msg("new client connected")
			s.addSession(conn)
			s.pool.AddTask(conn)
		}
	}
}

func (s *Server) sessionHandler(t *tomb.Tomb) error {
	for {
		select {
		case <-t.Dying():
			return nil
		case msg := <-s.inbound:
			if err := s.handle(msg); err != nil {
				log.Error().Err(err).Str("address", msg.address).Msg("error handling message")
				s.reportError(msg.address, err)
			}
		}
	}
}

func (s *Server) handle(msg clientMessage) error {
	typ, body, err := transport.DecodeMessageType(msg.raw)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultReadTimeout)
	defer cancel()

	switch typ {
	case transport.NewOrder:
		m, err := transport.DecodeNewOrder(body)
		if err != nil {
			return err
		}
		token, trades, err := s.rtr.SubmitLimit(ctx, m.Symbol, m.Side, m.Price, m.Qty, m.TS)
		if err != nil {
			return err
		}
		_ = token // host-level order acknowledgement is out of core scope; trades are reported below.
		for _, tr := range trades {
			s.sendReport(msg.address, transport.EncodeExecutionReport(transport.ExecutionReportMsg{
				Symbol:  m.Symbol,
				TakerID: tr.TakerID,
				MakerID: tr.MakerID,
				Price:   tr.Price,
				Qty:     tr.Qty,
				TS:      tr.TS,
			}))
		}
		return nil

	case transport.CancelOrder:
		m, err := transport.DecodeCancel(body)
		if err != nil {
			return err
		}
		var ok bool
		if m.Eager {
			ok, err = s.rtr.CancelEager(ctx, m.Token)
		} else {
			ok, err = s.rtr.CancelLazy(ctx, m.Token)
		}
		if err != nil {
			return err
		}
		if !ok {
			log.Warn().Str("token", m.Token.String()).Msg("cancel missed")
		}
		return nil

	case transport.DepthRequest:
		m, err := transport.DecodeDepthRequest(body)
		if err != nil {
			return err
		}
		snap, err := s.rtr.Depth(ctx, m.Symbol, m.Levels)
		if err != nil {
			return err
		}
		s.sendReport(msg.address, transport.EncodeDepthReport(m.Symbol, snap))
		return nil

	default:
		return transport.ErrInvalidMessageType
	}
}

// sendReport writes payload to address's connection prefixed with a
// 4-byte big-endian length, so the client can frame a report out of the
// TCP stream without guessing its variable-length report bodies apart.
func (s *Server) sendReport(address string, payload []byte) {
	s.sessionsLock.Lock()
	conn, ok := s.sessions[address]
	s.sessionsLock.Unlock()
	if !ok {
		log.Error().Str("address", address).Msg("cannot report: client gone")
		return
	}

	framed := make([]byte, 4+len(payload))
	binary.BigEndian.PutUint32(framed[0:4], uint32(len(payload)))
	copy(framed[4:], payload)

	if _, err := conn.Write(framed); err != nil {
		log.Error().Err(err).Str("address", address).Msg("unable to send report")
		s.removeSession(address)
	}
}

func (s *Server) reportError(address string, cause error) {
	s.sendReport(address, transport.EncodeErrorReport(cause.Error()))
}

// handleConnection reads one message off conn, forwards it to the
// session handler, then re-queues conn for its next message. If the
// read fails the session is torn down instead of requeued.
func (s *Server) handleConnection(t *tomb.Tomb, task any) error {
	conn, ok := task.(net.Conn)
	if !ok {
		return ErrImproperConversion
	}

	if err := conn.SetReadDeadline(time.Now().Add(defaultReadTimeout)); err != nil {
		log.Error().Err(err).Msg("failed setting read deadline")
		return nil
	}

	buffer := make([]byte, maxRecvSize)
	select {
	case <-t.Dying():
		return nil
	default:
		n, err := conn.Read(buffer)
		if err != nil {
			log.Debug().Err(err).Str("address", conn.RemoteAddr().String()).Msg("connection read ended")
			s.removeSession(conn.RemoteAddr().String())
			return nil
		}

		msg := make([]byte, n)
		copy(msg, buffer[:n])

		select {
		case s.inbound <- clientMessage{address: conn.RemoteAddr().String(), raw: msg}:
		case <-t.Dying():
			return nil
		}

		s.pool.AddTask(conn)
	}
	return nil
}

func (s *Server) addSession(conn net.Conn) {
	s.sessionsLock.Lock()
	defer s.sessionsLock.Unlock()
	s.sessions[conn.RemoteAddr().String()] = conn
}

func (s *Server) removeSession(address string) {
	s.sessionsLock.Lock()
	defer s.sessionsLock.Unlock()
	if conn, ok := s.sessions[address]; ok {
		_ = conn.Close()
		delete(s.sessions, address)
	}
}
