// Package calltree reconstructs the hierarchical call graph of a simulated
// transaction from the flat trace, attributes gas per frame and locates the
// frames where failures actually originate.
package calltree

import (
	"sort"
	"strconv"
	"strings"

	"github.com/holiman/uint256"

	"tx-forecast-lab/internal/domain"
)

// Node is one call frame placed in the tree. Built once per result and
// immutable thereafter.
type Node struct {
	Entry domain.TraceEntry
	Key   string // canonical path encoding, "" for a root
	Depth int
	Index int // position among siblings (last path segment)

	InclusiveGas *uint256.Int // gas of this frame including all descendants
	ExclusiveGas *uint256.Int // gas of this frame's own execution

	Children []*Node

	// IsErrorOrigin marks the deepest frame(s) where a failure actually
	// occurred. Upstream repeats an error string on every ancestor frame it
	// unwinds through; those ancestors carry SubtreeHasError instead.
	IsErrorOrigin   bool
	SubtreeHasError bool
}

// Tree is the built call hierarchy. Multiple roots occur when a transaction
// makes several top-level calls.
type Tree struct {
	Roots      []*Node
	NodesByKey map[string]*Node
}

// PathKey encodes a trace address as a stable string key ("" for the empty
// path, "1.0.2" otherwise).
func PathKey(path []int) string {
	if len(path) == 0 {
		return ""
	}
	parts := make([]string, len(path))
	for i, seg := range path {
		parts[i] = strconv.Itoa(seg)
	}
	return strings.Join(parts, ".")
}

// Build converts a flat trace into the call tree. Entries with a missing
// path are treated as roots; duplicate paths keep the first entry. Zero
// entries yield empty roots, not an error.
func Build(entries []domain.TraceEntry) *Tree {
	tree := &Tree{NodesByKey: make(map[string]*Node, len(entries))}

	var ordered []*Node
	for _, e := range entries {
		key := PathKey(e.TraceAddress)
		if _, dup := tree.NodesByKey[key]; dup {
			continue
		}
		n := &Node{
			Entry:        e,
			Key:          key,
			Depth:        len(e.TraceAddress),
			InclusiveGas: e.GasUsed.Big(),
		}
		if n.Depth > 0 {
			n.Index = e.TraceAddress[n.Depth-1]
		}
		tree.NodesByKey[key] = n
		ordered = append(ordered, n)
	}

	// Parent adjacency in one scan. A node whose parent key resolves to no
	// entry is kept as a root rather than rejected.
	for _, n := range ordered {
		if n.Depth == 0 {
			tree.Roots = append(tree.Roots, n)
			continue
		}
		parentKey := PathKey(n.Entry.TraceAddress[:n.Depth-1])
		parent, ok := tree.NodesByKey[parentKey]
		if !ok {
			tree.Roots = append(tree.Roots, n)
			continue
		}
		parent.Children = append(parent.Children, n)
	}

	for _, n := range ordered {
		sort.Slice(n.Children, func(i, j int) bool {
			return n.Children[i].Index < n.Children[j].Index
		})
	}

	sort.SliceStable(tree.Roots, func(i, j int) bool {
		a, b := tree.Roots[i], tree.Roots[j]
		if a.Depth != b.Depth {
			return a.Depth < b.Depth
		}
		return a.Index < b.Index
	})

	for _, root := range tree.Roots {
		finalize(root)
	}
	return tree
}

// finalize computes exclusive gas and the error flags bottom-up.
func finalize(n *Node) {
	childSum := new(uint256.Int)
	childError := false
	n.SubtreeHasError = false
	for _, c := range n.Children {
		finalize(c)
		childSum.Add(childSum, c.InclusiveGas)
		if c.Entry.Error != "" {
			childError = true
		}
		if c.SubtreeHasError {
			n.SubtreeHasError = true
		}
	}

	// Never negative even when upstream gas accounting is inconsistent.
	if n.InclusiveGas.Cmp(childSum) > 0 {
		n.ExclusiveGas = new(uint256.Int).Sub(n.InclusiveGas, childSum)
	} else {
		n.ExclusiveGas = new(uint256.Int)
	}

	n.IsErrorOrigin = n.Entry.Error != "" && !childError
	if n.IsErrorOrigin {
		n.SubtreeHasError = true
	}
}
