// Package thread reconstructs conversations from reply headers. Messages
// are partitioned with a disjoint-set union over message ids, using only
// direct In-Reply-To edges: the broader References chain would merge
// unrelated threads whenever both mention an ancestor absent from the
// archive, which is worse than under-merging.
package thread

import (
	"sort"

	"github.com/mboxtools/mboxidx/internal/index"
)

// disjointSet is a map-based union-find with path compression, scoped to a
// single resolve pass. Roots are chosen arbitrarily; path compression alone
// keeps amortized cost near-linear for this workload.
type disjointSet struct {
	parent map[string]string
}

func newDisjointSet() *disjointSet {
	return &disjointSet{parent: make(map[string]string)}
}

// add registers id as its own set if not already present.
func (d *disjointSet) add(id string) {
	if _, ok := d.parent[id]; !ok {
		d.parent[id] = id
	}
}

// contains reports whether id is in the domain.
func (d *disjointSet) contains(id string) bool {
	_, ok := d.parent[id]
	return ok
}

// find returns the canonical root of id's set, compressing the path.
func (d *disjointSet) find(id string) string {
	root := id
	for d.parent[root] != root {
		root = d.parent[root]
	}
	for d.parent[id] != root {
		id, d.parent[id] = d.parent[id], root
	}
	return root
}

// union merges the sets containing a and b.
func (d *disjointSet) union(a, b string) {
	ra, rb := d.find(a), d.find(b)
	if ra != rb {
		d.parent[ra] = rb
	}
}

// Resolve partitions the records into reply groups and returns one thread
// id assignment per record. Records without a message id get an empty
// thread id: no reconstruction is possible for them, so each is a singleton
// outside the partition.
func Resolve(sources []index.ThreadSource) []index.ThreadAssignment {
	ds := newDisjointSet()

	for _, src := range sources {
		if src.MessageID != "" {
			ds.add(src.MessageID)
		}
	}

	// Union only on edges whose parent is a known message id; a reply to a
	// message outside the archive stays in its own set.
	for _, src := range sources {
		if src.MessageID == "" || src.InReplyTo == "" {
			continue
		}
		if ds.contains(src.InReplyTo) {
			ds.union(src.MessageID, src.InReplyTo)
		}
	}

	out := make([]index.ThreadAssignment, 0, len(sources))
	for _, src := range sources {
		a := index.ThreadAssignment{ID: src.ID}
		if src.MessageID != "" {
			a.ThreadID = ds.find(src.MessageID)
		}
		out = append(out, a)
	}
	return out
}

// Node is one message in a thread display tree.
type Node struct {
	Record   *index.Record
	Children []*Node
}

// BuildTree arranges one group's records into reply trees. Parent links are
// In-Reply-To edges restricted to members of the group; children are sorted
// by normalized date ascending, as are the roots. A group may fragment into
// several trees when the true root is missing from the archive.
func BuildTree(records []*index.Record) []*Node {
	byMessageID := make(map[string]*Node, len(records))
	nodes := make([]*Node, 0, len(records))
	for _, rec := range records {
		n := &Node{Record: rec}
		nodes = append(nodes, n)
		if rec.MessageID != "" {
			byMessageID[rec.MessageID] = n
		}
	}

	var roots []*Node
	for _, n := range nodes {
		if parent, ok := byMessageID[n.Record.InReplyTo]; ok && parent != n {
			parent.Children = append(parent.Children, n)
		} else {
			roots = append(roots, n)
		}
	}

	sortNodes(roots)
	for _, n := range nodes {
		sortNodes(n.Children)
	}
	return roots
}

// sortNodes orders siblings by normalized date ascending; dateless records
// sort first, ties break on id for determinism.
func sortNodes(nodes []*Node) {
	sort.SliceStable(nodes, func(i, j int) bool {
		a, b := nodes[i].Record, nodes[j].Record
		if a.DateUTC != b.DateUTC {
			return a.DateUTC < b.DateUTC
		}
		return a.ID < b.ID
	})
}
