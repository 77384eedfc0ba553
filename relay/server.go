// Package relay is the socket service: it consumes depth snapshots and
// trade records from the message bus and fans them out to websocket
// subscribers.
package relay

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	match "github.com/ordinex/venue"
	"github.com/ordinex/venue/bus"
	"github.com/ordinex/venue/protocol"
)

const (
	subscriberBuffer = 16
	writeTimeout     = 10 * time.Second
)

// Stream is the slice of the message bus the relay needs: ordered
// subscriptions delivered over a channel.
type Stream interface {
	Subscribe(ctx context.Context, subject string, buffer int) (<-chan bus.Message, error)
}

// Server relays bus traffic to websocket subscribers. The book view keeps
// the most recent depth snapshot so that a freshly connected subscriber
// sees the current book immediately instead of waiting for the next tick.
type Server struct {
	stream   Stream
	upgrader websocket.Upgrader
	books    *Hub
	trades   *Hub
	view     *match.AggregatedBook
}

// NewServer creates a relay over the given event stream.
func NewServer(stream Stream) *Server {
	return &Server{
		stream: stream,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		books:  NewHub(),
		trades: NewHub(),
		view:   match.NewAggregatedBook(),
	}
}

// Routes returns the websocket endpoints.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/order-books", s.handleOrderBooks)
	mux.HandleFunc("/trades", s.handleTrades)
	return mux
}

// Run consumes the snapshot and trade subjects until the context is
// cancelled. Payloads are relayed verbatim.
func (s *Server) Run(ctx context.Context) error {
	snapshots, err := s.stream.Subscribe(ctx, protocol.SubjectBookSnapshot, subscriberBuffer)
	if err != nil {
		return err
	}
	trades, err := s.stream.Subscribe(ctx, protocol.SubjectTradeExecuted, subscriberBuffer)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-snapshots:
			if !ok {
				return nil
			}
			s.applySnapshot(msg.Data)
			s.books.Broadcast(msg.Data)
		case msg, ok := <-trades:
			if !ok {
				return nil
			}
			s.trades.Broadcast(msg.Data)
		}
	}
}

func (s *Server) applySnapshot(data []byte) {
	var snapshot protocol.DepthSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		slog.Warn("dropping undecodable depth snapshot", "error", err)
		return
	}
	s.view.Apply(&snapshot)
}

func (s *Server) handleOrderBooks(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	initial, err := json.Marshal(s.view.Snapshot())
	if err == nil {
		_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, initial); err != nil {
			_ = conn.Close()
			return
		}
	}

	s.serve(conn, s.books)
}

func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	s.serve(conn, s.trades)
}

// serve pumps hub payloads to one connection until the peer goes away.
func (s *Server) serve(conn *websocket.Conn, hub *Hub) {
	sub := hub.Subscribe(subscriberBuffer)
	defer func() {
		hub.Unsubscribe(sub)
		_ = conn.Close()
	}()

	// Read pump: subscribers never send payloads, but reading is required
	// to process control frames and notice a dropped peer.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case payload, ok := <-sub.C:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		}
	}
}
