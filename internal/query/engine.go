// Package query composes filter predicates into index queries and, for body
// text, falls back to seeking into the archive: body content is not indexed,
// so body filtering is a linear pass over the index-matched candidates.
package query

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mboxtools/mboxidx/internal/header"
	"github.com/mboxtools/mboxidx/internal/index"
	"github.com/mboxtools/mboxidx/internal/mbox"
	"github.com/mboxtools/mboxidx/internal/message"
)

// Filter is a conjunctive predicate set: every supplied filter must match.
// Zero values mean "no constraint".
type Filter struct {
	// After is an inclusive lower bound and Before an exclusive upper bound
	// on the normalized UTC date. Records without a parseable date never
	// match a date bound.
	After  *time.Time
	Before *time.Time

	// Case-insensitive substring matches.
	Sender    string
	Subject   string
	Recipient string // matches any of To, Cc, Bcc

	// Body is a case-insensitive substring matched against extracted body
	// text via the archive fallback pass.
	Body string

	HasAttachment bool

	// Limit bounds the result count; zero means unlimited. With a body
	// filter the limit applies to the post-filtered stream, never to the
	// index query feeding it.
	Limit int
}

// Engine answers queries against the index, reopening the archive per
// access for body filtering and message retrieval.
type Engine struct {
	store       *index.Store
	archivePath string
	log         *slog.Logger
}

// NewEngine creates an engine over an open index store and its archive.
func NewEngine(store *index.Store, archivePath string, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{store: store, archivePath: archivePath, log: log}
}

// List returns the records matching the filter, ordered by normalized date
// descending. Records with no date sort as the lowest value (last under
// this ordering).
func (e *Engine) List(ctx context.Context, f Filter) ([]*index.Record, error) {
	// With a body filter the index query must run unlimited: limiting
	// first would silently under-return whenever body matching rejects
	// candidates that filled the quota.
	indexLimit := f.Limit
	if f.Body != "" {
		indexLimit = 0
	}

	candidates, err := e.queryIndex(ctx, f, indexLimit)
	if err != nil {
		return nil, err
	}
	if f.Body == "" {
		return candidates, nil
	}

	needle := strings.ToLower(f.Body)
	var out []*index.Record
	for _, rec := range candidates {
		body, err := e.bodyText(rec)
		if err != nil {
			// A candidate that cannot be read back is treated as
			// non-matching; the query goes on.
			e.log.Debug("skipping unreadable candidate", "id", rec.ID, "error", err)
			continue
		}
		if !strings.Contains(strings.ToLower(body), needle) {
			continue
		}
		out = append(out, rec)
		if f.Limit > 0 && len(out) >= f.Limit {
			break
		}
	}
	return out, nil
}

// Count returns how many records match the filter, ignoring any limit.
func (e *Engine) Count(ctx context.Context, f Filter) (int64, error) {
	if f.Body != "" {
		f.Limit = 0
		recs, err := e.List(ctx, f)
		if err != nil {
			return 0, err
		}
		return int64(len(recs)), nil
	}

	where, args := buildConditions(f)
	var count int64
	err := e.store.DB().QueryRowContext(ctx,
		"SELECT COUNT(*) FROM messages WHERE "+where, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return count, nil
}

// Get returns one record by id, or index.ErrNotFound.
func (e *Engine) Get(ctx context.Context, id int64) (*index.Record, error) {
	return e.store.Get(ctx, id)
}

// Thread returns every record sharing the given record's thread id, ordered
// by normalized date ascending. A record with no thread id is its own
// singleton conversation.
func (e *Engine) Thread(ctx context.Context, id int64) ([]*index.Record, error) {
	rec, err := e.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.ThreadID == "" {
		return []*index.Record{rec}, nil
	}

	rows, err := e.store.DB().QueryContext(ctx,
		"SELECT id, "+index.RecordColumns()+
			" FROM messages WHERE thread_id = ? ORDER BY date_utc ASC, id ASC",
		rec.ThreadID)
	if err != nil {
		return nil, fmt.Errorf("query thread %q: %w", rec.ThreadID, err)
	}
	defer rows.Close()

	var out []*index.Record
	for rows.Next() {
		r, err := index.ScanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan thread record: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Stats reports index statistics.
func (e *Engine) Stats(ctx context.Context) (*index.Stats, error) {
	return e.store.GetStats(ctx)
}

// Message seeks into the archive and reparses one record's message.
func (e *Engine) Message(rec *index.Record) (*message.Message, error) {
	raw, err := mbox.ReadExtent(e.archivePath, rec.Offset, rec.Length)
	if err != nil {
		return nil, err
	}
	return message.Parse(raw)
}

func (e *Engine) bodyText(rec *index.Record) (string, error) {
	msg, err := e.Message(rec)
	if err != nil {
		return "", err
	}
	return msg.BodyText(), nil
}

func (e *Engine) queryIndex(ctx context.Context, f Filter, limit int) ([]*index.Record, error) {
	where, args := buildConditions(f)

	// SQLite already sorts NULLs low, but the dateless-last placement is
	// load-bearing here, so spell it out.
	q := "SELECT id, " + index.RecordColumns() + " FROM messages WHERE " + where +
		" ORDER BY (date_utc IS NULL) ASC, date_utc DESC, id DESC"
	if limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := e.store.DB().QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var out []*index.Record
	for rows.Next() {
		rec, err := index.ScanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// buildConditions renders the filter's index-backed predicates. The body
// filter is deliberately absent: it is not an index predicate.
func buildConditions(f Filter) (string, []any) {
	var conditions []string
	var args []any

	if f.After != nil {
		conditions = append(conditions, "date_utc >= ?")
		args = append(args, header.NormalizeDate(*f.After))
	}
	if f.Before != nil {
		conditions = append(conditions, "date_utc < ?")
		args = append(args, header.NormalizeDate(*f.Before))
	}
	if f.Sender != "" {
		conditions = append(conditions, "sender LIKE ? COLLATE NOCASE")
		args = append(args, "%"+f.Sender+"%")
	}
	if f.Subject != "" {
		conditions = append(conditions, "subject LIKE ? COLLATE NOCASE")
		args = append(args, "%"+f.Subject+"%")
	}
	if f.Recipient != "" {
		conditions = append(conditions,
			"(recipients_to LIKE ? COLLATE NOCASE OR recipients_cc LIKE ? COLLATE NOCASE OR recipients_bcc LIKE ? COLLATE NOCASE)")
		needle := "%" + f.Recipient + "%"
		args = append(args, needle, needle, needle)
	}
	if f.HasAttachment {
		conditions = append(conditions, "has_attachments = 1")
	}

	if len(conditions) == 0 {
		return "1=1", nil
	}
	return strings.Join(conditions, " AND "), args
}
