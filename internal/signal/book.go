package signal

import (
	"log"
	"sync"

	"forex-signalsv1/internal/model"
)

// Persister is the durable side of the active-trades book.
type Persister interface {
	SaveTrades([]model.TradeSignal) error
	LoadTrades() ([]model.TradeSignal, error)
}

// Book is the mutex-guarded list of open trade signals, shared with
// collaborators such as the news-relevance filter and the export hub.
// Signals are appended on emit and removed only by external trade-lifecycle
// management.
type Book struct {
	mu     sync.RWMutex
	trades []model.TradeSignal
	store  Persister // nil → in-memory only
}

// NewBook creates a book and restores persisted trades when a store is given.
func NewBook(store Persister) *Book {
	b := &Book{store: store}
	if store == nil {
		return b
	}
	trades, err := store.LoadTrades()
	if err != nil {
		log.Printf("[book] restore failed, starting empty: %v", err)
		return b
	}
	b.trades = trades
	if len(trades) > 0 {
		log.Printf("[book] restored %d active trades", len(trades))
	}
	return b
}

// Append adds a signal to the book.
func (b *Book) Append(t model.TradeSignal) {
	b.mu.Lock()
	b.trades = append(b.trades, t)
	b.mu.Unlock()
}

// List returns a copy of the current book, oldest first.
func (b *Book) List() []model.TradeSignal {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]model.TradeSignal, len(b.trades))
	copy(out, b.trades)
	return out
}

// Remove drops the signal with the given ID. Returns false if absent.
func (b *Book) Remove(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.trades {
		if b.trades[i].ID == id {
			b.trades = append(b.trades[:i], b.trades[i+1:]...)
			return true
		}
	}
	return false
}

// Len returns the number of open signals.
func (b *Book) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.trades)
}

// Currencies returns the set of currencies referenced by open signals,
// the key input for the news-relevance filter.
func (b *Book) Currencies() map[model.Currency]bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[model.Currency]bool)
	for i := range b.trades {
		out[b.trades[i].Pair.Base] = true
		out[b.trades[i].Pair.Quote] = true
	}
	return out
}

// Flush persists the current book. Called per tick and on shutdown.
func (b *Book) Flush() {
	if b.store == nil {
		return
	}
	b.mu.RLock()
	snapshot := make([]model.TradeSignal, len(b.trades))
	copy(snapshot, b.trades)
	b.mu.RUnlock()

	if err := b.store.SaveTrades(snapshot); err != nil {
		log.Printf("[book] flush failed: %v", err)
	}
}
