package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"matchcore/internal/book"
	"matchcore/internal/router"
	"matchcore/internal/transport"
)

func main() {
	serverAddr := flag.String("server", "127.0.0.1:9001", "Address of the matching server")
	symbol := flag.String("symbol", "AAPL", "Symbol to trade")
	action := flag.String("action", "place", "Action to perform: ['place', 'cancel', 'depth']")
	sideStr := flag.String("side", "buy", "Order side: 'buy' or 'sell'")
	price := flag.Int64("price", 100, "Limit price in ticks")
	qtyStr := flag.String("qty", "10", "Quantity or comma-separated list (e.g. 10,20,50)")
	token := flag.String("token", "", "Order token to cancel (UUID)")
	eager := flag.Bool("eager", false, "Use eager cancellation instead of lazy")
	levels := flag.Int("levels", 10, "Number of depth levels to request")

	flag.Parse()

	conn, err := net.Dial("tcp", *serverAddr)
	if err != nil {
		log.Fatalf("failed to connect to %s: %v", *serverAddr, err)
	}
	defer conn.Close()
	fmt.Printf("connected to %s\n", *serverAddr)

	go readReports(conn)

	side := book.Bid
	if strings.EqualFold(*sideStr, "sell") {
		side = book.Ask
	}

	switch strings.ToLower(*action) {
	case "place":
		for _, q := range parseQuantities(*qtyStr) {
			raw := transport.EncodeNewOrder(transport.NewOrderMessage{
				Symbol: router.Symbol(*symbol),
				Side:   side,
				Price:  book.Ticks(*price),
				Qty:    book.Qty(q),
				TS:     time.Now().UnixNano(),
			})
			if _, err := conn.Write(raw); err != nil {
				log.Printf("failed to place order (qty %d): %v", q, err)
				continue
			}
			fmt.Printf("-> sent %s %s %d @ %d\n", strings.ToUpper(*sideStr), *symbol, q, *price)
			time.Sleep(5 * time.Millisecond)
		}

	case "cancel":
		if *token == "" {
			log.Fatal("-token is required for cancel")
		}
		tok, err := uuid.Parse(*token)
		if err != nil {
			log.Fatalf("invalid token: %v", err)
		}
		raw := transport.EncodeCancel(transport.CancelMessage{
			Symbol: router.Symbol(*symbol),
			Token:  tok,
			Eager:  *eager,
		})
		if _, err := conn.Write(raw); err != nil {
			log.Printf("failed to send cancel: %v", err)
		} else {
			fmt.Printf("-> sent cancel for %s\n", *token)
		}

	case "depth":
		raw := transport.EncodeDepthRequest(transport.DepthRequestMessage{
			Symbol: router.Symbol(*symbol),
			Levels: *levels,
		})
		if _, err := conn.Write(raw); err != nil {
			log.Printf("failed to request depth: %v", err)
		} else {
			fmt.Printf("-> requested depth for %s\n", *symbol)
		}

	default:
		log.Fatalf("unknown action: %s", *action)
	}

	fmt.Println("listening for reports... (press ctrl+c to exit)")
	select {}
}

func parseQuantities(input string) []uint64 {
	var result []uint64
	for _, p := range strings.Split(input, ",") {
		p = strings.TrimSpace(p)
		val, err := strconv.ParseUint(p, 10, 64)
		if err != nil {
			log.Printf("warning: invalid quantity %q, skipping", p)
			continue
		}
		result = append(result, val)
	}
	return result
}

// readReports drains and prints whatever reports the server pushes
// back: execution reports, error reports, and depth reports. Each report
// is framed with a 4-byte length prefix (see Server.sendReport), so a
// full report body is always read in one shot instead of being
// reconstructed field-by-field off the stream. The formatting of these
// reports for a human is deliberately minimal; a real CLI front end is
// out of the core's scope.
func readReports(conn net.Conn) {
	for {
		lenBuf := make([]byte, 4)
		if _, err := io.ReadFull(conn, lenBuf); err != nil {
			if err != io.EOF {
				log.Printf("connection lost: %v", err)
			}
			os.Exit(0)
		}
		size := binary.BigEndian.Uint32(lenBuf)

		payload := make([]byte, size)
		if _, err := io.ReadFull(conn, payload); err != nil {
			log.Printf("error reading report body: %v", err)
			os.Exit(0)
		}

		typ, body, err := transport.DecodeMessageType(payload)
		if err != nil {
			log.Printf("bad report header: %v", err)
			continue
		}

		switch transport.ReportType(typ) {
		case transport.ExecutionReport:
			r, err := transport.DecodeExecutionReport(body)
			if err != nil {
				log.Printf("error decoding execution report: %v", err)
				continue
			}
			fmt.Printf("\n[EXECUTION] %s taker=%d maker=%d qty=%d price=%d\n",
				r.Symbol, r.TakerID, r.MakerID, r.Qty, r.Price)

		case transport.ErrorReportType:
			msg, err := transport.DecodeErrorReport(body)
			if err != nil {
				log.Printf("error decoding error report: %v", err)
				continue
			}
			fmt.Printf("\n[ERROR] %s\n", msg)

		case transport.DepthReport:
			sym, snap, err := transport.DecodeDepthReport(body)
			if err != nil {
				log.Printf("error decoding depth report: %v", err)
				continue
			}
			fmt.Printf("\n[DEPTH] %s bids=%v asks=%v\n", sym, snap.Bids, snap.Asks)

		default:
			log.Printf("unknown report type %d", typ)
		}
	}
}
