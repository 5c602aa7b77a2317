package recorder

import (
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	"SplitBot/internal/model"

	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists calculations and rate fetches to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL so dashboards can read while the bot writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite recorder opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS calculations (
			id               TEXT PRIMARY KEY,
			timestamp        INTEGER NOT NULL,
			user_id          INTEGER NOT NULL,
			amount_origin    REAL,
			rate             REAL,
			rate_source      TEXT,
			amount_foreign   REAL,
			drop_percent     REAL,
			amount_after_drop REAL,
			my_share         REAL,
			participants     INTEGER,
			per_person       REAL,
			origin_earned    REAL,
			remark           TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_calc_ts ON calculations(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_calc_user ON calculations(user_id)`,

		`CREATE TABLE IF NOT EXISTS rate_fetches (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp INTEGER NOT NULL,
			source    TEXT,
			value     REAL,
			ok        INTEGER,
			error     TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_rate_ts ON rate_fetches(timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordCalculation(c *model.Calculation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	at := c.At
	if at.IsZero() {
		at = time.Now()
	}
	_, err := r.db.Exec(`INSERT INTO calculations
		(id, timestamp, user_id, amount_origin, rate, rate_source, amount_foreign,
		 drop_percent, amount_after_drop, my_share, participants, per_person,
		 origin_earned, remark)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		c.ID, at.Unix(), c.UserID, c.AmountOrigin, c.Rate, string(c.RateSource), c.AmountForeign,
		c.DropPercent, c.AmountAfterDrop, c.MyShare, c.Participants, c.PerPerson,
		c.OriginEarned, string(c.Remark),
	)
	return err
}

func (r *SQLiteRecorder) RecordRateFetch(evt *RateFetchEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ok := 0
	if evt.OK {
		ok = 1
	}
	_, err := r.db.Exec(`INSERT INTO rate_fetches
		(timestamp, source, value, ok, error)
		VALUES (?,?,?,?,?)`,
		time.Now().Unix(), evt.Source, evt.Value, ok, evt.Error,
	)
	return err
}

func (r *SQLiteRecorder) Close() error {
	log.Println("[INFO] closing sqlite recorder")
	return r.db.Close()
}
