package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// timeLayout sorts lexically in chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Record is one processed turn.
type Record struct {
	ID         string
	Timestamp  time.Time
	Operations int
	Succeeded  int
	Failed     int
	// Commands are the command strings dispatched to the shell.
	Commands   []string
	Summary    string
}

// Store persists turn records in a SQLite database.
type Store struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// DefaultPath is <root>/.directive/history.db.
func DefaultPath(root string) string {
	return filepath.Join(root, ".directive", "history.db")
}

// Open creates (or opens) the database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	db.SetMaxOpenConns(1)
	s := &Store{db: db, path: path}
	if err := s.init(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize history database: %w", err)
	}
	return s, nil
}

func (s *Store) init() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS turns (
		id TEXT PRIMARY KEY,
		timestamp TEXT NOT NULL,
		operations INTEGER,
		succeeded INTEGER,
		failed INTEGER,
		commands TEXT,
		summary TEXT
	);`)
	return err
}

// Save inserts a record, assigning an id and timestamp when missing.
func (s *Store) Save(rec Record) (Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`INSERT INTO turns
		(id, timestamp, operations, succeeded, failed, commands, summary)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.Timestamp.UTC().Format(timeLayout),
		rec.Operations,
		rec.Succeeded,
		rec.Failed,
		strings.Join(rec.Commands, "\n"),
		rec.Summary,
	)
	return rec, err
}

// SetCommands replaces the dispatched commands of the record with id.
func (s *Store) SetCommands(id string, commands []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.Exec(`UPDATE turns SET commands = ? WHERE id = ?`, strings.Join(commands, "\n"), id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("no history record with id %s", id)
	}
	return nil
}

// Records returns the newest records first. limit <= 0 returns all.
func (s *Store) Records(limit int) ([]Record, error) {
	query := "SELECT id, timestamp, operations, succeeded, failed, commands, summary FROM turns ORDER BY timestamp DESC"
	var args []interface{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var ts, commands string
		if err := rows.Scan(&rec.ID, &ts, &rec.Operations, &rec.Succeeded, &rec.Failed, &commands, &rec.Summary); err != nil {
			return nil, err
		}
		if t, err := time.Parse(timeLayout, ts); err == nil {
			rec.Timestamp = t
		}
		if commands != "" {
			rec.Commands = strings.Split(commands, "\n")
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Path returns the database path.
func (s *Store) Path() string {
	return s.path
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}
