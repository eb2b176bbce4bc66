// Package foldertree aggregates the flat vault listing into a
// hierarchical folder tree with cached per-folder note counts.
package foldertree

import (
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/veleda/skald/internal/models"
)

// Node is one folder in the tree. Children is keyed by child folder
// name; Entries holds the files directly inside, sorted case
// insensitively by name with path as the explicit secondary key.
type Node struct {
	Name     string           `json:"name"`
	Path     string           `json:"path"`
	Children map[string]*Node `json:"children,omitempty"`
	Entries  []models.Entry   `json:"entries"`
	// NoteCount is the direct count plus the recursive sum over
	// children, recomputed bottom-up after every rebuild.
	NoteCount int `json:"note_count"`
}

// Build constructs the tree from the authoritative entry list plus the
// explicit folder paths (so empty folders still appear). Any structural
// mutation in the vault triggers a full rebuild through this function;
// there is no incremental patching.
func Build(entries []models.Entry, folderPaths []string) *Node {
	root := &Node{Children: map[string]*Node{}}

	for _, fp := range folderPaths {
		ensureFolder(root, fp)
	}
	for _, e := range entries {
		node := root
		if e.Folder != "" {
			node = ensureFolder(root, e.Folder)
		}
		node.Entries = append(node.Entries, e)
	}

	sortEntries(root)
	recountNotes(root)
	return root
}

// Lookup returns the node for a '/'-separated folder path, or nil when
// the folder does not exist. The empty path is the root.
func (n *Node) Lookup(folderPath string) *Node {
	if folderPath == "" {
		return n
	}
	node := n
	for _, seg := range strings.Split(folderPath, "/") {
		child, ok := node.Children[seg]
		if !ok {
			return nil
		}
		node = child
	}
	return node
}

func ensureFolder(root *Node, folderPath string) *Node {
	node := root
	var prefix string
	for _, seg := range strings.Split(folderPath, "/") {
		if seg == "" {
			continue
		}
		if prefix == "" {
			prefix = seg
		} else {
			prefix += "/" + seg
		}
		child, ok := node.Children[seg]
		if !ok {
			child = &Node{Name: seg, Path: prefix, Children: map[string]*Node{}}
			node.Children[seg] = child
		}
		node = child
	}
	return node
}

func sortEntries(n *Node) {
	c := newCollator()
	sortNodeEntries(n, c)
}

func sortNodeEntries(n *Node, c *collate.Collator) {
	sort.SliceStable(n.Entries, func(i, j int) bool {
		a, b := n.Entries[i], n.Entries[j]
		if cmp := c.CompareString(a.Name, b.Name); cmp != 0 {
			return cmp < 0
		}
		// Equal under collation: order by path so the result never
		// depends on backend listing order.
		return a.Path < b.Path
	})
	for _, child := range n.Children {
		sortNodeEntries(child, c)
	}
}

func newCollator() *collate.Collator {
	return collate.New(language.Und, collate.IgnoreCase)
}

func recountNotes(n *Node) int {
	count := 0
	for _, e := range n.Entries {
		if e.Kind == models.KindNote {
			count++
		}
	}
	for _, child := range n.Children {
		count += recountNotes(child)
	}
	n.NoteCount = count
	return count
}
