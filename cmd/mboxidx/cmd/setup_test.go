package cmd

import (
	"testing"
	"time"
)

func resetSearchFlags() {
	searchFrom, searchTo, searchSubject, searchBody = "", "", "", ""
	searchAfter, searchBefore = "", ""
	searchHasAtt, searchCount = false, false
	searchLimit = 50
}

func TestBuildFilter_ParsesDates(t *testing.T) {
	resetSearchFlags()
	searchAfter = "2024-01-15"
	searchBefore = "2024-02-01"
	defer resetSearchFlags()

	f, err := buildFilter()
	if err != nil {
		t.Fatalf("buildFilter: %v", err)
	}
	if f.After == nil || !f.After.Equal(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("After = %v", f.After)
	}
	if f.Before == nil || !f.Before.Equal(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Before = %v", f.Before)
	}
}

func TestBuildFilter_RejectsBadDate(t *testing.T) {
	resetSearchFlags()
	searchAfter = "Jan 15 2024"
	defer resetSearchFlags()

	if _, err := buildFilter(); err == nil {
		t.Fatal("buildFilter should reject a non-ISO date")
	}
}

func TestParseID(t *testing.T) {
	if _, err := parseID("0"); err == nil {
		t.Error("id 0 should be rejected")
	}
	if _, err := parseID("abc"); err == nil {
		t.Error("non-numeric id should be rejected")
	}
	id, err := parseID("42")
	if err != nil || id != 42 {
		t.Errorf("parseID(42) = %d, %v", id, err)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate(short) = %q", got)
	}
	if got := truncate("a long subject line", 10); got != "a long ..." {
		t.Errorf("truncate = %q", got)
	}
	// Rune-aware: multibyte input must not be cut mid-rune.
	if got := truncate("日本語のメールの件名です", 6); got != "日本語..." {
		t.Errorf("truncate(multibyte) = %q", got)
	}
}
