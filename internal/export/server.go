package export

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"forex-signalsv1/internal/signal"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Read path for trusted internal collaborators; no origin policy.
	CheckOrigin: func(*http.Request) bool { return true },
}

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 50 * time.Second
)

// Server serves the HTTP + WS export endpoints.
type Server struct {
	hub  *Hub
	book *signal.Book
}

// NewServer creates the export server over hub and the active-trades book.
func NewServer(hub *Hub, book *signal.Book) *Server {
	return &Server{hub: hub, book: book}
}

// Run serves on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) {
	mux := http.NewServeMux()
	mux.HandleFunc("/trades", s.handleTrades)
	mux.HandleFunc("/ranks", s.handleRanks)
	mux.HandleFunc("/ws", s.handleWS)

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutCtx)
	}()

	log.Printf("[export] serving on %s", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Printf("[export] server error: %v", err)
	}
}

// handleTrades returns the active-trades book as JSON.
func (s *Server) handleTrades(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.book.List())
}

// handleRanks returns the latest rank snapshot.
func (s *Server) handleRanks(w http.ResponseWriter, _ *http.Request) {
	ranks, at := s.hub.LatestRanks()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"ranks": ranks,
		"ts":    at,
	})
}

// handleWS upgrades the connection and attaches the client to the hub.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[export] upgrade: %v", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, 64)}
	s.hub.register(c)

	go s.writePump(c)
	go s.readPump(c)
}

// writePump drains the client's send channel and keeps the connection alive.
func (s *Server) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards client messages; the feed is one-way.
func (s *Server) readPump(c *client) {
	defer func() {
		s.hub.unregister(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
