package category

import (
	"slices"
	"strings"

	"github.com/hirosato/finance-ledger/internal/domain/ledger"
)

// PathSeparator joins category names into a full name
const PathSeparator = " / "

// maxDepth bounds ancestor walks so a corrupted parent chain cannot loop
const maxDepth = 64

// Tree is an arena of categories addressed by id
type Tree struct {
	nodes map[int64]ledger.Category
	roots ledger.Roots
}

// NewTree indexes cats by id
func NewTree(cats []ledger.Category, roots ledger.Roots) *Tree {
	nodes := make(map[int64]ledger.Category, len(cats))
	for _, c := range cats {
		nodes[c.ID] = c
	}
	return &Tree{nodes: nodes, roots: roots}
}

// Get returns the category with id
func (t *Tree) Get(id int64) (ledger.Category, bool) {
	c, ok := t.nodes[id]
	return c, ok
}

// Ancestors returns the chain from id up to its root, id first. The walk
// stops at a missing parent or a repeated id.
func (t *Tree) Ancestors(id int64) []ledger.Category {
	var chain []ledger.Category
	seen := map[int64]bool{}
	for id != 0 && len(chain) < maxDepth && !seen[id] {
		c, ok := t.nodes[id]
		if !ok {
			break
		}
		seen[id] = true
		chain = append(chain, c)
		id = c.ParentID
	}
	return chain
}

// Root returns the id of the root above id
func (t *Tree) Root(id int64) int64 {
	chain := t.Ancestors(id)
	if len(chain) == 0 {
		return 0
	}
	return chain[len(chain)-1].ID
}

// TopLevel returns the ancestor right below the root, or id itself when id
// is a root or a direct child of one.
func (t *Tree) TopLevel(id int64) int64 {
	chain := t.Ancestors(id)
	if len(chain) < 2 {
		return id
	}
	return chain[len(chain)-2].ID
}

// FullName joins the names from below the root down to id
func (t *Tree) FullName(id int64) string {
	chain := t.Ancestors(id)
	if len(chain) == 0 {
		return ""
	}
	if len(chain) == 1 {
		return chain[0].Name
	}
	names := make([]string, 0, len(chain)-1)
	for i := len(chain) - 2; i >= 0; i-- {
		names = append(names, chain[i].Name)
	}
	return strings.Join(names, PathSeparator)
}

// Level is the distance from the root; roots are level 0
func (t *Tree) Level(id int64) int {
	chain := t.Ancestors(id)
	if len(chain) == 0 {
		return 0
	}
	return len(chain) - 1
}

// Kind classifies id by its root
func (t *Tree) Kind(id int64) ledger.Kind {
	return t.roots.KindOf(t.Root(id))
}

// View describes id for listing
func (t *Tree) View(id int64) View {
	c := t.nodes[id]
	return View{
		Category: c,
		FullName: t.FullName(id),
		RootID:   t.Root(id),
		Kind:     t.Kind(id),
		Level:    t.Level(id),
	}
}

// Descendants returns id plus every category whose full name extends id's
// under the same root.
func (t *Tree) Descendants(id int64) []int64 {
	root := t.Root(id)
	prefix := strings.ToLower(t.FullName(id)) + PathSeparator
	out := []int64{id}
	for other := range t.nodes {
		if other == id || t.Root(other) != root {
			continue
		}
		if id == root || strings.HasPrefix(strings.ToLower(t.FullName(other)), prefix) {
			out = append(out, other)
		}
	}
	slices.Sort(out[1:])
	return out
}
