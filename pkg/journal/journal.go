// Package journal records console events (vehicle snapshots, dispatched
// commands, operator actions) in a SQLite database.
package journal

import (
	"database/sql"
	_ "embed"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/open-teleop/dronectl/pkg/processing"
)

//go:embed schema.sql
var schemaSQL string

// DefaultLimit is used by Recent when limit is not positive.
const DefaultLimit = 50

// MaxLimit caps Recent.
const MaxLimit = 1000

// Entry is one journaled event.
type Entry struct {
	ID          int64     `json:"id"`
	Topic       string    `json:"topic"`
	ContentType string    `json:"content_type"`
	Payload     []byte    `json:"payload"`
	RecordedAt  time.Time `json:"recorded_at"`
}

// Store handles database operations
type Store struct {
	dbPath string

	db     *sql.DB
	dbOnce sync.Once
	dbErr  error

	closeOnce sync.Once
	closeErr  error
}

// New returns a store for dbPath. The database is opened on first use.
func New(dbPath string) *Store {
	return &Store{dbPath: dbPath}
}

func (s *Store) getDB() (*sql.DB, error) {
	s.dbOnce.Do(func() {
		db, err := sql.Open("sqlite3", "file:"+s.dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
		if err != nil {
			s.dbErr = err
			return
		}

		if _, err = db.Exec(schemaSQL); err != nil {
			_ = db.Close()
			s.dbErr = fmt.Errorf("initializing schema: %w", err)
			return
		}

		s.db = db
	})

	return s.db, s.dbErr
}

const insertEventSQL = `
INSERT INTO events (topic, content_type, payload, recorded_at_ns)
VALUES (?, ?, ?, ?)`

// Append stores one event and returns its ID.
func (s *Store) Append(topic, contentType string, payload []byte, at time.Time) (id int64, err error) {
	db, err := s.getDB()
	if err != nil {
		return 0, fmt.Errorf("getting connection: %w", err)
	}

	result, err := db.Exec(insertEventSQL, topic, contentType, payload, at.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("inserting event: %w", err)
	}
	return result.LastInsertId()
}

// HandleMessage journals msg, making the store a processing sink.
func (s *Store) HandleMessage(msg *processing.Message) error {
	_, err := s.Append(msg.Topic, msg.ContentType, msg.Data, time.Unix(0, msg.Timestamp))
	return err
}

const selectRecentSQL = `
SELECT
    id,
    topic,
    content_type,
    payload,
    recorded_at_ns
FROM events
WHERE
    (? = '' OR topic = ?)
ORDER BY id DESC
LIMIT ?`

// Recent returns up to limit entries, newest first. An empty topic matches all.
func (s *Store) Recent(topic string, limit int) (entries []Entry, err error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	db, err := s.getDB()
	if err != nil {
		return nil, fmt.Errorf("getting connection: %w", err)
	}

	rows, err := db.Query(selectRecentSQL, topic, topic, limit)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer func() {
		if cErr := rows.Close(); cErr != nil && err == nil {
			err = fmt.Errorf("closing rows: %w", cErr)
		}
	}()

	entries = []Entry{}
	for rows.Next() {
		var (
			e  Entry
			ns int64
		)
		if err = rows.Scan(&e.ID, &e.Topic, &e.ContentType, &e.Payload, &ns); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		e.RecordedAt = time.Unix(0, ns)
		entries = append(entries, e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating events: %w", err)
	}
	return entries, nil
}

// Close releases the database. It is safe to call more than once.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		if s.db != nil {
			s.closeErr = s.db.Close()
		}
	})
	return s.closeErr
}
