package document

import (
	"bytes"
	"encoding/json"
	"fmt"
	"unicode/utf8"
)

// Node is either a leaf holding a compact JSON value or a branch of named
// children. The zero value is an empty branch.
type Node struct {
	value    json.RawMessage
	keys     []string
	children map[string]*Node
}

// NewBranch returns an empty branch.
func NewBranch() *Node {
	return &Node{children: make(map[string]*Node)}
}

// Leaf wraps a JSON value. The value is stored in compact form.
func Leaf(value json.RawMessage) (*Node, error) {
	compact, err := compactJSON(value)
	if err != nil {
		return nil, err
	}
	return &Node{value: compact}, nil
}

// TextLeaf encodes raw file contents as a JSON string value.
func TextLeaf(data []byte) (json.RawMessage, error) {
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%w: text is not valid UTF-8", ErrInvalidValue)
	}
	return encodeJSON(string(data))
}

// IsLeaf reports whether n holds a value rather than children.
func (n *Node) IsLeaf() bool {
	return n != nil && n.value != nil
}

// Value returns a copy of the leaf value, or nil for branches.
func (n *Node) Value() json.RawMessage {
	if !n.IsLeaf() {
		return nil
	}
	return append(json.RawMessage(nil), n.value...)
}

// Keys returns the branch keys in insertion order.
func (n *Node) Keys() []string {
	if n == nil || n.IsLeaf() {
		return nil
	}
	return append([]string(nil), n.keys...)
}

// Len returns the number of children of a branch.
func (n *Node) Len() int {
	if n == nil || n.IsLeaf() {
		return 0
	}
	return len(n.keys)
}

// Child returns the named child of a branch, or nil.
func (n *Node) Child(name string) *Node {
	if n == nil || n.IsLeaf() {
		return nil
	}
	return n.children[name]
}

// Lookup walks path from n. An empty path resolves to n itself.
func (n *Node) Lookup(path Path) (*Node, bool) {
	cur := n
	for _, seg := range path {
		cur = cur.Child(seg)
		if cur == nil {
			return nil, false
		}
	}
	return cur, cur != nil
}

// Walk calls fn for every leaf below n, depth first in insertion order.
func (n *Node) Walk(fn func(path Path, leaf *Node) error) error {
	return n.walk(nil, fn)
}

func (n *Node) walk(prefix Path, fn func(path Path, leaf *Node) error) error {
	if n == nil {
		return nil
	}
	if n.IsLeaf() {
		return fn(prefix, n)
	}
	for _, key := range n.keys {
		if err := n.children[key].walk(prefix.Append(key), fn); err != nil {
			return err
		}
	}
	return nil
}

// Equal compares two trees. Branch key order is not significant.
func (n *Node) Equal(other *Node) bool {
	if n.IsLeaf() || other.IsLeaf() {
		return n.IsLeaf() && other.IsLeaf() && bytes.Equal(n.value, other.value)
	}
	if n.Len() != other.Len() {
		return false
	}
	for _, key := range n.Keys() {
		peer := other.Child(key)
		if peer == nil || !n.children[key].Equal(peer) {
			return false
		}
	}
	return true
}

// MarshalJSON encodes the tree compactly, branch keys in insertion order.
func (n *Node) MarshalJSON() ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := n.encode(buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalJSON replaces n with the decoded document.
func (n *Node) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(data)
	if err != nil {
		return err
	}
	*n = *parsed
	return nil
}

func (n *Node) encode(buf *bytes.Buffer) error {
	if n.IsLeaf() {
		buf.Write(n.value)
		return nil
	}
	buf.WriteByte('{')
	if n != nil {
		for i, key := range n.keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			encodedKey, err := encodeJSON(key)
			if err != nil {
				return err
			}
			buf.Write(encodedKey)
			buf.WriteByte(':')
			if err := n.children[key].encode(buf); err != nil {
				return err
			}
		}
	}
	buf.WriteByte('}')
	return nil
}

// Parse decodes a JSON document. Objects become branches, preserving key
// order; any other JSON value becomes a leaf.
func Parse(data []byte) (*Node, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || !json.Valid(trimmed) {
		return nil, fmt.Errorf("%w: cannot parse document", ErrInvalidValue)
	}
	if trimmed[0] != '{' {
		return Leaf(trimmed)
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}
	node := NewBranch()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("%w: unexpected token %v", ErrInvalidValue, tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("%w: key %q: %v", ErrInvalidValue, key, err)
		}
		child, err := Parse(raw)
		if err != nil {
			return nil, err
		}
		node.set(key, child)
	}
	return node, nil
}

func (n *Node) set(name string, child *Node) {
	if n.children == nil {
		n.children = make(map[string]*Node)
	}
	if _, exists := n.children[name]; !exists {
		n.keys = append(n.keys, name)
	}
	n.children[name] = child
}

// shallowCopy copies a branch's key list and child map; children are shared.
func (n *Node) shallowCopy() *Node {
	out := &Node{
		keys:     append([]string(nil), n.keys...),
		children: make(map[string]*Node, len(n.children)),
	}
	for k, v := range n.children {
		out.children[k] = v
	}
	return out
}

func compactJSON(value json.RawMessage) (json.RawMessage, error) {
	buf := &bytes.Buffer{}
	if err := json.Compact(buf, value); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}
	return json.RawMessage(buf.Bytes()), nil
}

func encodeJSON(v any) ([]byte, error) {
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
