package index

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "index.sqlite"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testRecords() []*Record {
	return []*Record{
		{
			Offset: 0, Length: 120,
			DateRaw: "Mon, 01 Jan 2024 10:00:00 +0000", DateUTC: "2024-01-01 10:00:00",
			Sender: "Alice Smith <alice@example.com>", Subject: "hello",
			RecipientsTo: []string{"bob@example.com"},
			MessageID:    "m1@example.com",
		},
		{
			Offset: 120, Length: 190,
			DateRaw: "Mon, 01 Jan 2024 11:00:00 +0000", DateUTC: "2024-01-01 11:00:00",
			Sender: "bob@example.com", Subject: "Re: hello",
			RecipientsTo:   []string{"alice@example.com"},
			RecipientsCc:   []string{"carol@example.com"},
			HasAttachments: true,
			MessageID:      "m2@example.com", InReplyTo: "m1@example.com",
		},
		{
			Offset: 310, Length: 80,
			DateRaw: "bogus", Sender: "carol@example.com", Subject: "unrelated",
			ReferencesRaw: "<phantom@nowhere>",
		},
	}
}

func feed(recs []*Record) func() (*Record, error) {
	i := 0
	return func() (*Record, error) {
		if i >= len(recs) {
			return nil, io.EOF
		}
		r := recs[i]
		i++
		return r, nil
	}
}

func rebuild(t *testing.T, s *Store, recs []*Record) int64 {
	t.Helper()
	n, err := s.Rebuild(context.Background(), feed(recs))
	if err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	return n
}

func TestRebuildAndGet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if n := rebuild(t, s, testRecords()); n != 3 {
		t.Fatalf("Rebuild count = %d, want 3", n)
	}

	got, err := s.Get(ctx, 2)
	if err != nil {
		t.Fatalf("Get(2): %v", err)
	}
	want := testRecords()[1]
	want.ID = 2
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("record mismatch (-want +got):\n%s", diff)
	}

	// Missing date stays absent.
	r3, err := s.Get(ctx, 3)
	if err != nil {
		t.Fatalf("Get(3): %v", err)
	}
	if r3.DateUTC != "" {
		t.Errorf("DateUTC = %q, want empty", r3.DateUTC)
	}

	_, err = s.Get(ctx, 99)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(99) = %v, want ErrNotFound", err)
	}
}

// Rebuilding from the same input yields identical records, ids included,
// because ids are assigned in scan order.
func TestRebuildIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	rebuild(t, s, testRecords())
	first := allRecords(t, s, ctx)

	rebuild(t, s, testRecords())
	second := allRecords(t, s, ctx)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("rebuild not idempotent (-first +second):\n%s", diff)
	}
}

func TestUpdateThreadIDs(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	rebuild(t, s, testRecords())

	err := s.UpdateThreadIDs(ctx, []ThreadAssignment{
		{ID: 1, ThreadID: "m1@example.com"},
		{ID: 2, ThreadID: "m1@example.com"},
	})
	if err != nil {
		t.Fatalf("UpdateThreadIDs: %v", err)
	}

	r1, err := s.Get(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if r1.ThreadID != "m1@example.com" {
		t.Errorf("ThreadID = %q", r1.ThreadID)
	}
	if r1.Subject != "hello" {
		t.Errorf("unrelated field changed: %q", r1.Subject)
	}

	r3, err := s.Get(ctx, 3)
	if err != nil {
		t.Fatal(err)
	}
	if r3.ThreadID != "" {
		t.Errorf("record 3 thread id = %q, want empty", r3.ThreadID)
	}
}

func TestThreadSources(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	rebuild(t, s, testRecords())

	srcs, err := s.ThreadSources(ctx)
	if err != nil {
		t.Fatalf("ThreadSources: %v", err)
	}
	want := []ThreadSource{
		{ID: 1, MessageID: "m1@example.com"},
		{ID: 2, MessageID: "m2@example.com", InReplyTo: "m1@example.com"},
		{ID: 3},
	}
	if diff := cmp.Diff(want, srcs); diff != "" {
		t.Errorf("ThreadSources mismatch (-want +got):\n%s", diff)
	}
}

func TestGetStats(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	rebuild(t, s, testRecords())
	if err := s.UpdateThreadIDs(ctx, []ThreadAssignment{
		{ID: 1, ThreadID: "m1@example.com"},
		{ID: 2, ThreadID: "m1@example.com"},
	}); err != nil {
		t.Fatal(err)
	}

	stats, err := s.GetStats(ctx)
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if stats.MessageCount != 3 || stats.ThreadCount != 1 || stats.WithAttachment != 1 || stats.WithDate != 2 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestHasIndex(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	ok, err := s.HasIndex(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("HasIndex true before rebuild")
	}

	rebuild(t, s, testRecords())

	ok, err = s.HasIndex(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("HasIndex false after rebuild")
	}
}

func TestPathFor(t *testing.T) {
	got := PathFor("/data/mail/archive.mbox")
	if got != "/data/mail/index.sqlite" {
		t.Errorf("PathFor = %q", got)
	}
}

func allRecords(t *testing.T, s *Store, ctx context.Context) []*Record {
	t.Helper()
	rows, err := s.DB().QueryContext(ctx,
		"SELECT id, "+RecordColumns()+" FROM messages ORDER BY id")
	if err != nil {
		t.Fatalf("query all: %v", err)
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		rec, err := ScanRecord(rows)
		if err != nil {
			t.Fatalf("scan: %v", err)
		}
		out = append(out, rec)
	}
	return out
}
