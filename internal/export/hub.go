// Package export exposes evaluator state to external collaborators: a JSON
// read path for the active-trades book and latest ranks, plus a WebSocket
// feed of emitted signals and rank snapshots.
package export

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"forex-signalsv1/internal/model"

	"github.com/gorilla/websocket"
)

// Envelope wraps every WS message with its type.
type Envelope struct {
	Type string          `json:"type"` // "signal" | "ranks"
	TS   time.Time       `json:"ts"`
	Data json.RawMessage `json:"data"`
}

// Hub fans out evaluator events to connected WebSocket clients and caches
// the latest rank snapshot for the HTTP read path.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]bool
	ranks   model.RankMap
	ranksAt time.Time
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*client]bool)}
}

// PublishSignal broadcasts a newly emitted trade signal.
func (h *Hub) PublishSignal(sig *model.TradeSignal) {
	h.broadcast("signal", sig.JSON())
}

// PublishRanks stores and broadcasts a rank snapshot.
func (h *Hub) PublishRanks(ranks model.RankMap, at time.Time) {
	h.mu.Lock()
	h.ranks = ranks
	h.ranksAt = at
	h.mu.Unlock()

	raw, err := json.Marshal(ranks)
	if err != nil {
		return
	}
	h.broadcast("ranks", raw)
}

// LatestRanks returns the most recent rank snapshot and its timestamp.
func (h *Hub) LatestRanks() (model.RankMap, time.Time) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.ranks, h.ranksAt
}

func (h *Hub) broadcast(msgType string, data []byte) {
	env := Envelope{Type: msgType, TS: time.Now().UTC(), Data: data}
	payload, err := json.Marshal(env)
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			// slow client, drop the message
		}
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = true
	n := len(h.clients)
	h.mu.Unlock()
	log.Printf("[export] client connected (%d total)", n)
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	n := len(h.clients)
	h.mu.Unlock()
	log.Printf("[export] client disconnected (%d total)", n)
}
