// Package store persists stint and agent records in a local SQLite
// database shared with the rest of the pitwall tooling.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/pitwall/stint-tracker/internal/stint"
	"github.com/pitwall/stint-tracker/internal/tire"
)

type DB struct {
	db *sql.DB
}

// Open opens or creates the database and applies the schema.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}

	// WAL so the desktop UI can read while the tracker writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "enable WAL")
	}

	schema := `
	CREATE TABLE IF NOT EXISTS stints (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		stint_key TEXT NOT NULL UNIQUE,
		session_id TEXT NOT NULL,
		driver TEXT NOT NULL,
		completed_at TEXT NOT NULL,
		pit_time TEXT NOT NULL,
		tire_data TEXT NOT NULL,
		created_at TEXT DEFAULT (datetime('now'))
	);
	CREATE INDEX IF NOT EXISTS idx_stints_session ON stints(session_id);

	CREATE TABLE IF NOT EXISTS agents (
		name TEXT PRIMARY KEY,
		pid INTEGER NOT NULL,
		started_at TEXT NOT NULL,
		last_heartbeat TEXT NOT NULL
	);
	`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "apply schema")
	}

	return &DB{db: db}, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

// cornerDoc pairs the incoming and outgoing state for one corner in the
// stored tire document.
type cornerDoc struct {
	Incoming tire.CornerState `json:"incoming"`
	Outgoing tire.CornerState `json:"outgoing"`
}

type tireDoc struct {
	Corners map[tire.Corner]cornerDoc `json:"corners"`
	Changed tire.ChangeResult         `json:"tires_changed"`
}

// UpsertStint inserts a stint record unless one with the same key already
// exists. Returns the row id and whether this call inserted it, so the
// caller can log created vs deduped.
func (d *DB) UpsertStint(rec *stint.Record) (int64, bool, error) {
	doc := tireDoc{
		Corners: make(map[tire.Corner]cornerDoc, len(tire.Corners)),
		Changed: rec.Changes,
	}
	for _, corner := range tire.Corners {
		doc.Corners[corner] = cornerDoc{
			Incoming: rec.Incoming[corner],
			Outgoing: rec.Outgoing[corner],
		}
	}
	tireJSON, err := json.Marshal(doc)
	if err != nil {
		return 0, false, errors.Wrap(err, "encode tire data")
	}

	res, err := d.db.Exec(`
		INSERT INTO stints (stint_key, session_id, driver, completed_at, pit_time, tire_data)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(stint_key) DO NOTHING
	`, rec.Key, rec.SessionID, rec.Driver,
		rec.CompletedAt.UTC().Format(time.RFC3339), stint.FormatHMS(rec.PitTime), string(tireJSON))
	if err != nil {
		return 0, false, errors.Wrap(err, "insert stint")
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, false, errors.Wrap(err, "rows affected")
	}
	if n > 0 {
		id, err := res.LastInsertId()
		if err != nil {
			return 0, false, errors.Wrap(err, "last insert id")
		}
		return id, true, nil
	}

	var id int64
	if err := d.db.QueryRow(`SELECT id FROM stints WHERE stint_key = ?`, rec.Key).Scan(&id); err != nil {
		return 0, false, errors.Wrap(err, "lookup deduped stint")
	}
	return id, false, nil
}

// StoredStint is a stint row as read back from the database.
type StoredStint struct {
	ID          int64
	SessionID   string
	Driver      string
	CompletedAt time.Time
	PitTime     string
	Changed     tire.ChangeResult
	Corners     map[tire.Corner]cornerDoc
}

// LatestStint returns the most recent stint for a session, or nil when the
// session has none. Used to resume the practice baseline.
func (d *DB) LatestStint(sessionID string) (*StoredStint, error) {
	rows, err := d.listStints(sessionID, 1)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// ListStints returns all stints for a session, newest first.
func (d *DB) ListStints(sessionID string) ([]StoredStint, error) {
	return d.listStints(sessionID, 0)
}

func (d *DB) listStints(sessionID string, limit int) ([]StoredStint, error) {
	q := `
		SELECT id, session_id, driver, completed_at, pit_time, tire_data
		FROM stints
		WHERE session_id = ?
		ORDER BY completed_at DESC, id DESC
	`
	args := []any{sessionID}
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := d.db.Query(q, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query stints")
	}
	defer rows.Close()

	var result []StoredStint
	for rows.Next() {
		var s StoredStint
		var completed, tireJSON string
		if err := rows.Scan(&s.ID, &s.SessionID, &s.Driver, &completed, &s.PitTime, &tireJSON); err != nil {
			return nil, errors.Wrap(err, "scan stint")
		}
		if s.CompletedAt, err = time.Parse(time.RFC3339, completed); err != nil {
			return nil, errors.Wrapf(err, "stint %d completed_at", s.ID)
		}
		var doc tireDoc
		if err := json.Unmarshal([]byte(tireJSON), &doc); err != nil {
			return nil, errors.Wrapf(err, "stint %d tire data", s.ID)
		}
		s.Changed = doc.Changed
		s.Corners = doc.Corners
		result = append(result, s)
	}
	return result, rows.Err()
}

// RegisterAgent claims an agent name. A live holder of the same name makes
// the registration pick a numbered variant; a stale holder is taken over.
// Returns the name actually registered.
func (d *DB) RegisterAgent(name string, pid int, startedAt, now time.Time, staleAfter time.Duration) (string, error) {
	candidate := name
	for i := 2; ; i++ {
		var lastBeat string
		err := d.db.QueryRow(`SELECT last_heartbeat FROM agents WHERE name = ?`, candidate).Scan(&lastBeat)
		switch {
		case err == sql.ErrNoRows:
			// Free.
		case err != nil:
			return "", errors.Wrap(err, "check agent name")
		default:
			beat, perr := time.Parse(time.RFC3339, lastBeat)
			if perr == nil && now.Sub(beat) < staleAfter {
				candidate = fmt.Sprintf("%s-%d", name, i)
				continue
			}
			// Stale holder, take the name over.
		}

		_, err = d.db.Exec(`
			INSERT INTO agents (name, pid, started_at, last_heartbeat)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(name) DO UPDATE SET
				pid = excluded.pid,
				started_at = excluded.started_at,
				last_heartbeat = excluded.last_heartbeat
		`, candidate, pid, startedAt.UTC().Format(time.RFC3339), now.UTC().Format(time.RFC3339))
		if err != nil {
			return "", errors.Wrap(err, "register agent")
		}
		return candidate, nil
	}
}

// Heartbeat refreshes the agent's liveness timestamp, creating the record
// if a cleanup swept it in the meantime.
func (d *DB) Heartbeat(name string, pid int, at time.Time) error {
	_, err := d.db.Exec(`
		INSERT INTO agents (name, pid, started_at, last_heartbeat)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			pid = excluded.pid,
			last_heartbeat = excluded.last_heartbeat
	`, name, pid, at.UTC().Format(time.RFC3339), at.UTC().Format(time.RFC3339))
	return errors.Wrap(err, "update heartbeat")
}

// CleanStaleAgents removes agents whose last heartbeat is older than the
// cutoff. Returns how many were swept.
func (d *DB) CleanStaleAgents(cutoff time.Time) (int64, error) {
	res, err := d.db.Exec(`DELETE FROM agents WHERE last_heartbeat < ?`,
		cutoff.UTC().Format(time.RFC3339))
	if err != nil {
		return 0, errors.Wrap(err, "clean stale agents")
	}
	return res.RowsAffected()
}

// DeleteAgent removes this tracker's own record on clean shutdown.
func (d *DB) DeleteAgent(name string) error {
	_, err := d.db.Exec(`DELETE FROM agents WHERE name = ?`, name)
	return errors.Wrap(err, "delete agent")
}
