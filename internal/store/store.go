package store

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/sentinel/internal/database"
)

// Store wraps the embedded database connection and owns all Bar,
// MarketCacheEntry, CrawledDatum, and AgentSignal persistence. Connection
// pragmas (WAL journal, NORMAL synchronous) are configured by the
// underlying database.DB using database.ProfileStandard.
type Store struct {
	db  *database.DB
	log zerolog.Logger
}

// Open opens (creating if absent) the market database at path and ensures
// all tables exist.
func Open(path string, log zerolog.Logger) (*Store, error) {
	db, err := database.New(database.Config{
		Path:    path,
		Profile: database.ProfileStandard,
		Name:    "market",
	})
	if err != nil {
		return nil, fmt.Errorf("open market database: %w", err)
	}

	s := &Store{db: db, log: log.With().Str("component", "store").Logger()}
	if err := s.initTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init market tables: %w", err)
	}
	return s, nil
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initTables() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS kline_cache (
			symbol     TEXT NOT NULL,
			interval   TEXT NOT NULL,
			open_time  INTEGER NOT NULL,
			close_time INTEGER NOT NULL,
			open       TEXT NOT NULL,
			high       TEXT NOT NULL,
			low        TEXT NOT NULL,
			close      TEXT NOT NULL,
			volume     TEXT NOT NULL,
			UNIQUE(symbol, interval, open_time)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_kline_symbol_interval ON kline_cache(symbol, interval)`,
		`CREATE TABLE IF NOT EXISTS market_cache (
			symbol          TEXT PRIMARY KEY,
			price           TEXT NOT NULL,
			price_change_24h TEXT NOT NULL,
			high_24h        TEXT NOT NULL,
			low_24h         TEXT NOT NULL,
			volume_24h      TEXT NOT NULL,
			updated_at      DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS crawled_data (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			data_type  TEXT NOT NULL,
			date       DATE NOT NULL,
			value      TEXT NOT NULL,
			raw        TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(data_type, date)
		)`,
		`CREATE TABLE IF NOT EXISTS agent_signals (
			id               INTEGER PRIMARY KEY AUTOINCREMENT,
			agent_id         TEXT,
			strategy_name    TEXT,
			symbol           TEXT NOT NULL,
			action           TEXT NOT NULL,
			conviction       REAL,
			price_at_signal  TEXT,
			reason           TEXT,
			raw_analysis     TEXT,
			stop_loss        TEXT,
			take_profit      TEXT,
			created_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_agent_signals_symbol ON agent_signals(symbol)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec schema statement: %w", err)
		}
	}
	return nil
}

// WithTx executes fn inside a dedicated transaction on the store's
// connection, committing on success and rolling back on error or panic.
// Writers invoked from a fire-and-forget context must call this rather
// than accept a caller's open transaction, so a writer never joins a
// transaction it doesn't own.
func (s *Store) WithTx(fn func(*sql.Tx) error) error {
	return database.WithTransaction(s.db.Conn(), fn)
}
