// Package sqlite persists evaluator state that must survive restarts:
// cooldown timestamps, the active-trades book, and alerted news events.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"forex-signalsv1/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

// Config configures the SQLite state store.
type Config struct {
	DBPath string // e.g. "data/state.db"
}

// Store is a single-writer SQLite store for evaluator state.
type Store struct {
	db *sql.DB
}

// DB returns the underlying sql.DB for health checks.
func (s *Store) DB() *sql.DB { return s.db }

// New opens the database, enables WAL mode, and creates the schema.
func New(cfg Config) (*Store, error) {
	db, err := sql.Open("sqlite3", cfg.DBPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// Single-writer discipline
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	log.Printf("[sqlite] opened state database at %s", cfg.DBPath)
	return &Store{db: db}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS cooldowns (
			pair      TEXT    NOT NULL,
			category  TEXT    NOT NULL,
			fired_at  INTEGER NOT NULL,
			PRIMARY KEY (pair, category)
		);

		CREATE TABLE IF NOT EXISTS active_trades (
			id         TEXT PRIMARY KEY,
			data       TEXT    NOT NULL,
			created_at INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS alerted_events (
			event_key  TEXT PRIMARY KEY,
			alerted_at INTEGER NOT NULL
		);
	`)
	return err
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// ---- cooldowns ----

// LoadCooldowns returns every stored (pair, category) → fired-at mapping.
func (s *Store) LoadCooldowns() (map[string]map[string]time.Time, error) {
	rows, err := s.db.Query(`SELECT pair, category, fired_at FROM cooldowns`)
	if err != nil {
		return nil, fmt.Errorf("sqlite load cooldowns: %w", err)
	}
	defer rows.Close()

	out := make(map[string]map[string]time.Time)
	for rows.Next() {
		var pair, category string
		var firedAt int64
		if err := rows.Scan(&pair, &category, &firedAt); err != nil {
			return nil, fmt.Errorf("sqlite scan cooldown: %w", err)
		}
		if out[pair] == nil {
			out[pair] = make(map[string]time.Time)
		}
		out[pair][category] = time.Unix(firedAt, 0).UTC()
	}
	return out, rows.Err()
}

// PutCooldown upserts the fired-at timestamp for one key.
func (s *Store) PutCooldown(pair, category string, firedAt time.Time) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO cooldowns (pair, category, fired_at) VALUES (?, ?, ?)`,
		pair, category, firedAt.Unix(),
	)
	return err
}

// DeleteCooldownCategory removes every key in the given category.
func (s *Store) DeleteCooldownCategory(category string) error {
	res, err := s.db.Exec(`DELETE FROM cooldowns WHERE category = ?`, category)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		log.Printf("[sqlite] pruned %d cooldown keys for category %q", n, category)
	}
	return nil
}

// ---- active trades ----

// SaveTrades replaces the persisted active-trades book in one transaction.
func (s *Store) SaveTrades(trades []model.TradeSignal) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM active_trades`); err != nil {
		tx.Rollback()
		return err
	}
	stmt, err := tx.Prepare(`INSERT INTO active_trades (id, data, created_at) VALUES (?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for i := range trades {
		t := &trades[i]
		if _, err := stmt.Exec(t.ID, string(t.JSON()), t.CreatedAt.Unix()); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// LoadTrades returns the persisted active-trades book, oldest first.
func (s *Store) LoadTrades() ([]model.TradeSignal, error) {
	rows, err := s.db.Query(`SELECT data FROM active_trades ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("sqlite load trades: %w", err)
	}
	defer rows.Close()

	var out []model.TradeSignal
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("sqlite scan trade: %w", err)
		}
		var t model.TradeSignal
		if err := json.Unmarshal([]byte(raw), &t); err != nil {
			log.Printf("[sqlite] skipping corrupt trade row: %v", err)
			continue
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ---- alerted news events ----

// MarkEventAlerted records that a calendar event alert has been sent.
func (s *Store) MarkEventAlerted(eventKey string, at time.Time) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO alerted_events (event_key, alerted_at) VALUES (?, ?)`,
		eventKey, at.Unix(),
	)
	return err
}

// LoadAlertedEvents returns the set of already-alerted event keys.
func (s *Store) LoadAlertedEvents() (map[string]time.Time, error) {
	rows, err := s.db.Query(`SELECT event_key, alerted_at FROM alerted_events`)
	if err != nil {
		return nil, fmt.Errorf("sqlite load alerted events: %w", err)
	}
	defer rows.Close()

	out := make(map[string]time.Time)
	for rows.Next() {
		var key string
		var at int64
		if err := rows.Scan(&key, &at); err != nil {
			return nil, fmt.Errorf("sqlite scan alerted event: %w", err)
		}
		out[key] = time.Unix(at, 0).UTC()
	}
	return out, rows.Err()
}

// PruneAlertedEvents deletes event records older than cutoff so the key
// space does not grow across calendar weeks.
func (s *Store) PruneAlertedEvents(cutoff time.Time) error {
	res, err := s.db.Exec(`DELETE FROM alerted_events WHERE alerted_at < ?`, cutoff.Unix())
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		log.Printf("[sqlite] pruned %d stale alerted events", n)
	}
	return nil
}
