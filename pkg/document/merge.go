package document

import (
	"encoding/json"
	"fmt"
)

// Build returns a document holding value at path: len(path)-1 nested
// branches ending in a single leaf.
func Build(path Path, value json.RawMessage) (*Node, error) {
	if err := path.Validate(); err != nil {
		return nil, err
	}
	node, err := Leaf(value)
	if err != nil {
		return nil, err
	}
	return Nest(path, node), nil
}

// Nest returns child wrapped in one branch per segment of path. Segments are
// not validated, so paths taken from stored documents (which may use the
// empty key for a node's own value) can be re-rooted.
func Nest(path Path, child *Node) *Node {
	node := child
	for i := len(path) - 1; i >= 0; i-- {
		parent := NewBranch()
		parent.set(path[i], node)
		node = parent
	}
	return node
}

// Merge returns a copy of root with value stored at path. Missing branches
// are created. A write whose path runs through an existing leaf fails with a
// *ConflictError and root is left as it was. A nil root is an empty branch.
func Merge(root *Node, path Path, value json.RawMessage) (*Node, error) {
	if err := path.Validate(); err != nil {
		return nil, err
	}
	leaf, err := Leaf(value)
	if err != nil {
		return nil, err
	}
	return mergeLeaf(root, path, leaf)
}

// MergeNode overlays every leaf of other onto root, in other's key order.
// Paths inside other are trusted as they are.
func MergeNode(root, other *Node) (*Node, error) {
	if other.IsLeaf() {
		return nil, fmt.Errorf("%w: cannot overlay a leaf onto a document root", ErrKeyPathConflict)
	}
	out := root
	if out == nil {
		out = NewBranch()
	}
	err := other.Walk(func(path Path, leaf *Node) error {
		merged, err := mergeLeaf(out, path, leaf)
		if err != nil {
			return err
		}
		out = merged
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func mergeLeaf(root *Node, path Path, leaf *Node) (*Node, error) {
	if root == nil {
		root = NewBranch()
	}
	if root.IsLeaf() {
		return nil, &ConflictError{Path: path.Clone(), At: Path{}}
	}
	return setAt(root, path, 0, leaf)
}

func setAt(n *Node, path Path, depth int, leaf *Node) (*Node, error) {
	name := path[depth]
	if depth == len(path)-1 {
		out := n.shallowCopy()
		out.set(name, leaf)
		return out, nil
	}

	child := n.children[name]
	switch {
	case child == nil:
		child = NewBranch()
	case child.IsLeaf():
		return nil, &ConflictError{Path: path.Clone(), At: path[:depth+1].Clone()}
	}

	updated, err := setAt(child, path, depth+1, leaf)
	if err != nil {
		return nil, err
	}
	out := n.shallowCopy()
	out.set(name, updated)
	return out, nil
}
