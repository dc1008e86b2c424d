package thread

import (
	"fmt"
	"testing"

	"github.com/mboxtools/mboxidx/internal/index"
)

func TestResolve_DirectReplyGrouping(t *testing.T) {
	// Message 2 replies to message 1; message 3 references a nonexistent id
	// (References is deliberately not used for grouping anyway).
	sources := []index.ThreadSource{
		{ID: 1, MessageID: "m1@x"},
		{ID: 2, MessageID: "m2@x", InReplyTo: "m1@x"},
		{ID: 3, MessageID: "m3@x"},
	}

	got := Resolve(sources)
	byID := assignmentMap(got)

	if byID[1] == "" || byID[1] != byID[2] {
		t.Errorf("messages 1 and 2 should share a thread id: %q vs %q", byID[1], byID[2])
	}
	if byID[3] == "" {
		t.Errorf("message 3 should have its own thread id")
	}
	if byID[3] == byID[1] {
		t.Errorf("message 3 must not join thread %q", byID[1])
	}
}

func TestResolve_ReplyToUnknownIDStaysSingleton(t *testing.T) {
	sources := []index.ThreadSource{
		{ID: 1, MessageID: "m1@x", InReplyTo: "phantom@nowhere"},
		{ID: 2, MessageID: "m2@x", InReplyTo: "phantom@nowhere"},
	}

	byID := assignmentMap(Resolve(sources))
	// Both reply to the same phantom ancestor, but it is not in the archive:
	// under-merge on purpose.
	if byID[1] == byID[2] {
		t.Errorf("phantom parent must not merge threads: %q", byID[1])
	}
}

func TestResolve_TransitiveChain(t *testing.T) {
	sources := []index.ThreadSource{
		{ID: 1, MessageID: "a@x"},
		{ID: 2, MessageID: "b@x", InReplyTo: "a@x"},
		{ID: 3, MessageID: "c@x", InReplyTo: "b@x"},
		{ID: 4, MessageID: "d@x", InReplyTo: "c@x"},
		{ID: 5, MessageID: "e@x"},
	}

	byID := assignmentMap(Resolve(sources))
	for id := int64(2); id <= 4; id++ {
		if byID[id] != byID[1] {
			t.Errorf("message %d not in chain thread: %q vs %q", id, byID[id], byID[1])
		}
	}
	if byID[5] == byID[1] {
		t.Errorf("message 5 wrongly merged")
	}
}

func TestResolve_NoMessageIDMeansNoThread(t *testing.T) {
	sources := []index.ThreadSource{
		{ID: 1},
		{ID: 2, MessageID: "m2@x"},
	}
	byID := assignmentMap(Resolve(sources))
	if byID[1] != "" {
		t.Errorf("record without message id got thread %q", byID[1])
	}
	if byID[2] == "" {
		t.Errorf("record with message id got no thread")
	}
}

func TestResolve_LargeChainStaysLinearish(t *testing.T) {
	// A long reply chain exercises path compression; mostly a guard against
	// accidental quadratic find.
	const n = 50000
	sources := make([]index.ThreadSource, 0, n)
	sources = append(sources, index.ThreadSource{ID: 1, MessageID: "m0"})
	for i := 1; i < n; i++ {
		sources = append(sources, index.ThreadSource{
			ID:        int64(i + 1),
			MessageID: fmt.Sprintf("m%d", i),
			InReplyTo: fmt.Sprintf("m%d", i-1),
		})
	}

	byID := assignmentMap(Resolve(sources))
	if byID[1] != byID[n] {
		t.Errorf("chain ends in different threads: %q vs %q", byID[1], byID[n])
	}
}

func TestBuildTree(t *testing.T) {
	records := []*index.Record{
		{ID: 1, MessageID: "root@x", DateUTC: "2024-01-01 10:00:00"},
		{ID: 2, MessageID: "r1@x", InReplyTo: "root@x", DateUTC: "2024-01-01 12:00:00"},
		{ID: 3, MessageID: "r2@x", InReplyTo: "root@x", DateUTC: "2024-01-01 11:00:00"},
		{ID: 4, MessageID: "rr@x", InReplyTo: "r2@x", DateUTC: "2024-01-01 13:00:00"},
		// Reply whose parent is outside the group: becomes a second root.
		{ID: 5, MessageID: "stray@x", InReplyTo: "missing@x", DateUTC: "2024-01-02 09:00:00"},
	}

	roots := BuildTree(records)
	if len(roots) != 2 {
		t.Fatalf("got %d roots, want 2", len(roots))
	}
	if roots[0].Record.ID != 1 || roots[1].Record.ID != 5 {
		t.Errorf("root order: %d, %d", roots[0].Record.ID, roots[1].Record.ID)
	}

	children := roots[0].Children
	if len(children) != 2 {
		t.Fatalf("root has %d children, want 2", len(children))
	}
	// Children sorted by date ascending: id 3 (11:00) before id 2 (12:00).
	if children[0].Record.ID != 3 || children[1].Record.ID != 2 {
		t.Errorf("child order: %d, %d", children[0].Record.ID, children[1].Record.ID)
	}
	if len(children[0].Children) != 1 || children[0].Children[0].Record.ID != 4 {
		t.Errorf("nested reply misplaced")
	}
}

func assignmentMap(assignments []index.ThreadAssignment) map[int64]string {
	m := make(map[int64]string, len(assignments))
	for _, a := range assignments {
		m[a.ID] = a.ThreadID
	}
	return m
}
