// Package index persists message records in a SQLite table with secondary
// indexes, stored alongside the archive. The layout carries nothing that is
// not re-derivable from the archive, so there is no schema versioning: any
// mismatch is resolved by a forced rebuild.
package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound reports a lookup for an id that is not in the index.
var ErrNotFound = errors.New("record not found")

// InsertBatchSize is the number of records committed per transaction during
// a rebuild. Partial final batches are committed as well.
const InsertBatchSize = 5000

const defaultSQLiteParams = "?_journal_mode=WAL&_busy_timeout=5000"

// messagesDDL is instantiated for both the live table and the rebuild
// scratch table, so the swap always produces an identical layout.
const messagesDDL = `
CREATE TABLE %s (
	id INTEGER PRIMARY KEY,
	offset INTEGER NOT NULL,
	size INTEGER NOT NULL,
	date_raw TEXT NOT NULL DEFAULT '',
	date_utc TEXT,
	sender TEXT NOT NULL DEFAULT '',
	subject TEXT NOT NULL DEFAULT '',
	recipients_to TEXT NOT NULL DEFAULT '',
	recipients_cc TEXT NOT NULL DEFAULT '',
	recipients_bcc TEXT NOT NULL DEFAULT '',
	has_attachments INTEGER NOT NULL DEFAULT 0,
	message_id TEXT NOT NULL DEFAULT '',
	in_reply_to TEXT NOT NULL DEFAULT '',
	references_raw TEXT NOT NULL DEFAULT '',
	thread_id TEXT NOT NULL DEFAULT ''
)`

var indexDDL = []string{
	"CREATE INDEX idx_messages_date_utc ON messages(date_utc)",
	"CREATE INDEX idx_messages_sender ON messages(sender)",
	"CREATE INDEX idx_messages_subject ON messages(subject)",
	"CREATE INDEX idx_messages_has_attachments ON messages(has_attachments)",
	"CREATE INDEX idx_messages_recipients_to ON messages(recipients_to)",
	"CREATE INDEX idx_messages_recipients_cc ON messages(recipients_cc)",
	"CREATE INDEX idx_messages_recipients_bcc ON messages(recipients_bcc)",
	"CREATE INDEX idx_messages_message_id ON messages(message_id)",
	"CREATE INDEX idx_messages_in_reply_to ON messages(in_reply_to)",
	"CREATE INDEX idx_messages_thread_id ON messages(thread_id)",
}

// recordColumns is the column list shared by inserts and selects. The id is
// excluded on insert; it is assigned densely in scan order by the rowid.
const recordColumns = `offset, size, date_raw, date_utc, sender, subject,
	recipients_to, recipients_cc, recipients_bcc, has_attachments,
	message_id, in_reply_to, references_raw, thread_id`

// Store provides access to the persisted message index.
type Store struct {
	db     *sql.DB
	dbPath string
}

// PathFor derives the index location for an archive: index.sqlite in the
// archive's directory.
func PathFor(mboxPath string) string {
	return filepath.Join(filepath.Dir(mboxPath), "index.sqlite")
}

// Open opens or creates the index database at the given path.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create index directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+defaultSQLiteParams)
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping index: %w", err)
	}

	return &Store{db: db, dbPath: dbPath}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying connection for the query engine.
func (s *Store) DB() *sql.DB {
	return s.db
}

// HasIndex reports whether a populated messages table exists.
func (s *Store) HasIndex(ctx context.Context) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='messages'
	`).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check index: %w", err)
	}
	return count > 0, nil
}

func (s *Store) withTx(fn func(tx *sql.Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Rebuild replaces the entire messages table from the record sequence
// produced by next (which returns io.EOF when done). Records are inserted
// into a scratch table in transactions of InsertBatchSize; the old table is
// dropped and the scratch table renamed in one final transaction, so
// readers never observe a partially built index. Returns the record count.
func (s *Store) Rebuild(ctx context.Context, next func() (*Record, error)) (int64, error) {
	if _, err := s.db.ExecContext(ctx, "DROP TABLE IF EXISTS messages_new"); err != nil {
		return 0, fmt.Errorf("drop scratch table: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(messagesDDL, "messages_new")); err != nil {
		return 0, fmt.Errorf("create scratch table: %w", err)
	}

	insertSQL := fmt.Sprintf(
		"INSERT INTO messages_new (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		recordColumns,
	)

	var total int64
	done := false
	for !done {
		err := s.withTx(func(tx *sql.Tx) error {
			stmt, err := tx.Prepare(insertSQL)
			if err != nil {
				return fmt.Errorf("prepare insert: %w", err)
			}
			defer stmt.Close()

			for n := 0; n < InsertBatchSize; n++ {
				rec, err := next()
				if err == io.EOF {
					done = true
					return nil
				}
				if err != nil {
					return err
				}

				var dateUTC any
				if rec.DateUTC != "" {
					dateUTC = rec.DateUTC
				}
				if _, err := stmt.Exec(
					rec.Offset, rec.Length, rec.DateRaw, dateUTC,
					rec.Sender, rec.Subject,
					joinAddrs(rec.RecipientsTo), joinAddrs(rec.RecipientsCc), joinAddrs(rec.RecipientsBcc),
					boolToInt(rec.HasAttachments),
					rec.MessageID, rec.InReplyTo, rec.ReferencesRaw, rec.ThreadID,
				); err != nil {
					return fmt.Errorf("insert record: %w", err)
				}
				total++
			}
			return nil
		})
		if err != nil {
			return total, err
		}
	}

	// Atomic swap: drop-and-rename plus index creation in one transaction.
	err := s.withTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec("DROP TABLE IF EXISTS messages"); err != nil {
			return fmt.Errorf("drop old table: %w", err)
		}
		if _, err := tx.Exec("ALTER TABLE messages_new RENAME TO messages"); err != nil {
			return fmt.Errorf("swap tables: %w", err)
		}
		for _, ddl := range indexDDL {
			if _, err := tx.Exec(ddl); err != nil {
				return fmt.Errorf("create index: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return total, err
	}
	return total, nil
}

// ThreadAssignment is one thread_id write-back produced by the resolver.
type ThreadAssignment struct {
	ID       int64
	ThreadID string
}

// UpdateThreadIDs writes thread ids onto existing records in batches. No
// other field is touched.
func (s *Store) UpdateThreadIDs(ctx context.Context, assignments []ThreadAssignment) error {
	for start := 0; start < len(assignments); start += InsertBatchSize {
		end := start + InsertBatchSize
		if end > len(assignments) {
			end = len(assignments)
		}
		batch := assignments[start:end]

		err := s.withTx(func(tx *sql.Tx) error {
			stmt, err := tx.Prepare("UPDATE messages SET thread_id = ? WHERE id = ?")
			if err != nil {
				return fmt.Errorf("prepare update: %w", err)
			}
			defer stmt.Close()

			for _, a := range batch {
				if _, err := stmt.Exec(a.ThreadID, a.ID); err != nil {
					return fmt.Errorf("update thread id for %d: %w", a.ID, err)
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return nil
}

// Get returns one record, or ErrNotFound.
func (s *Store) Get(ctx context.Context, id int64) (*Record, error) {
	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT id, %s FROM messages WHERE id = ?", recordColumns), id)
	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("message %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get message %d: %w", id, err)
	}
	return rec, nil
}

// ThreadSource carries the reply-graph fields the resolver needs.
type ThreadSource struct {
	ID        int64
	MessageID string
	InReplyTo string
}

// ThreadSources returns (id, message_id, in_reply_to) for every record, in
// id order.
func (s *Store) ThreadSources(ctx context.Context) ([]ThreadSource, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, message_id, in_reply_to FROM messages ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list thread sources: %w", err)
	}
	defer rows.Close()

	var out []ThreadSource
	for rows.Next() {
		var ts ThreadSource
		if err := rows.Scan(&ts.ID, &ts.MessageID, &ts.InReplyTo); err != nil {
			return nil, fmt.Errorf("scan thread source: %w", err)
		}
		out = append(out, ts)
	}
	return out, rows.Err()
}

// Stats holds index statistics.
type Stats struct {
	MessageCount   int64
	ThreadCount    int64
	WithAttachment int64
	WithDate       int64
	DatabaseSize   int64
}

// GetStats returns statistics about the index.
func (s *Store) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}
	queries := []struct {
		query string
		dest  *int64
	}{
		{"SELECT COUNT(*) FROM messages", &stats.MessageCount},
		{"SELECT COUNT(DISTINCT thread_id) FROM messages WHERE thread_id != ''", &stats.ThreadCount},
		{"SELECT COUNT(*) FROM messages WHERE has_attachments = 1", &stats.WithAttachment},
		{"SELECT COUNT(*) FROM messages WHERE date_utc IS NOT NULL", &stats.WithDate},
	}
	for _, q := range queries {
		if err := s.db.QueryRowContext(ctx, q.query).Scan(q.dest); err != nil {
			return nil, fmt.Errorf("stats %q: %w", q.query, err)
		}
	}

	if info, err := os.Stat(s.dbPath); err == nil {
		stats.DatabaseSize = info.Size()
	}
	return stats, nil
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// ScanRecord reads one record from a row produced with recordColumns
// (id first).
func ScanRecord(row rowScanner) (*Record, error) {
	return scanRecord(row)
}

func scanRecord(row rowScanner) (*Record, error) {
	var (
		rec     Record
		dateUTC sql.NullString
		to      string
		cc      string
		bcc     string
		hasAtt  int
	)
	err := row.Scan(
		&rec.ID, &rec.Offset, &rec.Length, &rec.DateRaw, &dateUTC,
		&rec.Sender, &rec.Subject, &to, &cc, &bcc, &hasAtt,
		&rec.MessageID, &rec.InReplyTo, &rec.ReferencesRaw, &rec.ThreadID,
	)
	if err != nil {
		return nil, err
	}
	rec.DateUTC = dateUTC.String
	rec.RecipientsTo = splitAddrs(to)
	rec.RecipientsCc = splitAddrs(cc)
	rec.RecipientsBcc = splitAddrs(bcc)
	rec.HasAttachments = hasAtt != 0
	return &rec, nil
}

// RecordColumns exposes the select column list (without id) so the query
// engine builds SELECTs that scanRecord can read.
func RecordColumns() string {
	return strings.Join(strings.Fields(recordColumns), " ")
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
