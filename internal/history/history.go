package history

import (
	"database/sql"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"golang.org/x/crypto/blake2b"
	_ "modernc.org/sqlite"
)

const (
	DialectSQLite   = "sqlite"
	DialectPostgres = "postgres"
)

// Entry is one recorded encode or decode. Keys and texts are never stored;
// KeyDigest identifies the key without revealing it.
type Entry struct {
	Time      time.Time
	Channel   string
	SenderID  string
	Op        string
	KeyDigest string
	InputLen  int
	OutputLen int
}

// History records every cipher operation to a SQL database.
type History struct {
	db      *sql.DB
	dialect string
}

// Open connects to a sqlite file path or a postgres DSN and ensures the
// cipher_history table exists.
func Open(driver, dsn string) (*History, error) {
	switch driver {
	case "", DialectSQLite:
		driver = DialectSQLite
		if !strings.HasPrefix(dsn, "file:") {
			dsn = "file:" + dsn
		}
		if !strings.Contains(dsn, "?") {
			dsn += "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
		}
	case DialectPostgres:
	default:
		return nil, fmt.Errorf("history: unsupported driver %q", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("history: open db: %w", err)
	}
	h, err := New(db, driver)
	if err != nil {
		db.Close()
		return nil, err
	}
	return h, nil
}

// New wraps an open database and creates the table if needed.
func New(db *sql.DB, dialect string) (*History, error) {
	id := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if dialect == DialectPostgres {
		id = "BIGSERIAL PRIMARY KEY"
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS cipher_history (
		id         ` + id + `,
		ts         TEXT    NOT NULL,
		channel    TEXT    NOT NULL,
		sender_id  TEXT    NOT NULL,
		op         TEXT    NOT NULL,
		key_digest TEXT    NOT NULL,
		input_len  INTEGER NOT NULL,
		output_len INTEGER NOT NULL
	)`); err != nil {
		return nil, fmt.Errorf("history: create table: %w", err)
	}
	return &History{db: db, dialect: dialect}, nil
}

// Record inserts one row. It is safe to call concurrently.
func (h *History) Record(channel, senderID, op, key string, inputLen, outputLen int) error {
	ts := time.Now().UTC().Format(time.RFC3339)
	_, err := h.db.Exec(
		h.rebind(`INSERT INTO cipher_history (ts, channel, sender_id, op, key_digest, input_len, output_len) VALUES (?, ?, ?, ?, ?, ?, ?)`),
		ts, channel, senderID, op, KeyDigest(key), inputLen, outputLen,
	)
	if err != nil {
		return fmt.Errorf("history: record: %w", err)
	}
	return nil
}

// Recent returns up to n entries, newest first.
func (h *History) Recent(n int) ([]Entry, error) {
	rows, err := h.db.Query(
		h.rebind(`SELECT ts, channel, sender_id, op, key_digest, input_len, output_len FROM cipher_history ORDER BY id DESC LIMIT ?`),
		n,
	)
	if err != nil {
		return nil, fmt.Errorf("history: query: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var ts string
		if err := rows.Scan(&ts, &e.Channel, &e.SenderID, &e.Op, &e.KeyDigest, &e.InputLen, &e.OutputLen); err != nil {
			return nil, fmt.Errorf("history: scan: %w", err)
		}
		e.Time, _ = time.Parse(time.RFC3339, ts)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close closes the underlying database connection.
func (h *History) Close() error {
	return h.db.Close()
}

// KeyDigest returns the hex BLAKE2b-256 digest of key.
func KeyDigest(key string) string {
	sum := blake2b.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// rebind rewrites ? placeholders as $n for postgres.
func (h *History) rebind(query string) string {
	if h.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}
