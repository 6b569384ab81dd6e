package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mj1618/page-tracker/internal/model"
	_ "modernc.org/sqlite" // CGO-free SQLite
)

// ErrNotFound is returned when a database holds no session.
var ErrNotFound = errors.New("no session stored")

// Database is a SQLite file of exported sessions.
type Database struct {
	db *sql.DB
}

// Open creates or opens the database at path.
func Open(path string) (*Database, error) {
	// WAL + busy timeout to avoid "database is locked"
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Database{db: db}, nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS sessions(
	  id           TEXT    PRIMARY KEY,
	  start_iso    TEXT    NOT NULL,
	  end_iso      TEXT    NOT NULL,
	  total_events INTEGER NOT NULL,
	  saved_utc    INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS events(
	  session_id TEXT    NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	  seq        INTEGER NOT NULL,
	  ts_utc     INTEGER NOT NULL,
	  ts_iso     TEXT    NOT NULL,
	  type       TEXT    NOT NULL CHECK (type IN ('PAGE_VIEW','CLICK','SCROLL','VISIBILITY_CHANGE','KEYDOWN','FORM_SUBMIT')),
	  data_json  TEXT    NOT NULL CHECK (json_valid(data_json)),
	  PRIMARY KEY (session_id, seq)
	);
	CREATE INDEX IF NOT EXISTS idx_events_type ON events(type);
	`)
	if err != nil {
		return fmt.Errorf("failed to create database tables: %w", err)
	}
	return nil
}

func (d *Database) Close() error {
	return d.db.Close()
}

// SaveBundle stores a session and its events, replacing any earlier copy of
// the same session.
func (d *Database) SaveBundle(b model.ExportBundle) error {
	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM events WHERE session_id = ?`, b.SessionID); err != nil {
		return fmt.Errorf("failed to replace session: %w", err)
	}
	if _, err := tx.Exec(`INSERT OR REPLACE INTO sessions(id, start_iso, end_iso, total_events, saved_utc) VALUES(?,?,?,?,?)`,
		b.SessionID, isoTime(b.StartTime), isoTime(b.EndTime), b.TotalEvents, time.Now().UnixMilli()); err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO events(session_id, seq, ts_utc, ts_iso, type, data_json) VALUES(?,?,?,?,?,json(?))`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, ev := range b.Events {
		data, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("failed to marshal event %d: %w", ev.Sequence, err)
		}
		if _, err := stmt.Exec(b.SessionID, ev.Sequence, ev.Timestamp.UnixMilli(), isoTime(ev.Timestamp), string(ev.Type), string(data)); err != nil {
			return fmt.Errorf("failed to insert event %d: %w", ev.Sequence, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Sessions lists stored session ids, most recently saved first.
func (d *Database) Sessions() ([]string, error) {
	rows, err := d.db.Query(`SELECT id FROM sessions ORDER BY saved_utc DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// LatestBundle loads the most recently saved session.
func (d *Database) LatestBundle() (model.ExportBundle, error) {
	ids, err := d.Sessions()
	if err != nil {
		return model.ExportBundle{}, err
	}
	if len(ids) == 0 {
		return model.ExportBundle{}, ErrNotFound
	}
	return d.LoadBundle(ids[0])
}

// LoadBundle rebuilds the bundle for one session.
func (d *Database) LoadBundle(sessionID string) (model.ExportBundle, error) {
	b := model.ExportBundle{SessionID: sessionID}
	var start, end string
	err := d.db.QueryRow(`SELECT start_iso, end_iso, total_events FROM sessions WHERE id = ?`, sessionID).
		Scan(&start, &end, &b.TotalEvents)
	if errors.Is(err, sql.ErrNoRows) {
		return b, fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
	}
	if err != nil {
		return b, fmt.Errorf("failed to read session: %w", err)
	}
	if b.StartTime, err = time.Parse(time.RFC3339Nano, start); err != nil {
		return b, fmt.Errorf("bad start time %q: %w", start, err)
	}
	if b.EndTime, err = time.Parse(time.RFC3339Nano, end); err != nil {
		return b, fmt.Errorf("bad end time %q: %w", end, err)
	}

	rows, err := d.db.Query(`SELECT data_json FROM events WHERE session_id = ? ORDER BY seq`, sessionID)
	if err != nil {
		return b, fmt.Errorf("failed to read events: %w", err)
	}
	defer rows.Close()
	b.Events = []model.Event{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return b, err
		}
		var ev model.Event
		if err := json.Unmarshal([]byte(data), &ev); err != nil {
			return b, fmt.Errorf("failed to decode event: %w", err)
		}
		b.Events = append(b.Events, ev)
	}
	return b, rows.Err()
}

func isoTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
