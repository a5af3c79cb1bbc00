package components

import (
	"bytes"
	"encoding/json"
	"fmt"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/nearsocial/bos_sdk_go/pkg/document"
)

// WidgetKey is the account subtree holding components.
const WidgetKey = "widget"

// Component is a widget's source code and optional metadata.
type Component struct {
	Name     string
	Code     string
	Metadata json.RawMessage
}

// HasMetadata reports whether the component carries a non-null metadata value.
func (c Component) HasMetadata() bool {
	trimmed := bytes.TrimSpace(c.Metadata)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

// Equal compares code and metadata. Metadata key order is not significant.
func (c Component) Equal(other Component) bool {
	if c.Code != other.Code || c.HasMetadata() != other.HasMetadata() {
		return false
	}
	if !c.HasMetadata() {
		return true
	}
	a, errA := document.Parse(c.Metadata)
	b, errB := document.Parse(other.Metadata)
	if errA != nil || errB != nil {
		return bytes.Equal(c.Metadata, other.Metadata)
	}
	return a.Equal(b)
}

// FromAccount reads the widget branch of an account record. A nil account or
// one without widgets yields an empty map. Malformed records are reported in a
// *DecodeError while the rest are returned.
func FromAccount(account *document.Node) (map[string]Component, error) {
	out := make(map[string]Component)
	widgets := account.Child(WidgetKey)
	if widgets == nil || widgets.IsLeaf() {
		return out, nil
	}
	failures := &DecodeError{}
	for _, name := range widgets.Keys() {
		c, err := fromRecord(name, widgets.Child(name))
		if err != nil {
			failures.add(name, err)
			continue
		}
		out[name] = c
	}
	return out, failures.orNil()
}

func fromRecord(name string, record *document.Node) (Component, error) {
	if record.IsLeaf() {
		code, ok := stringValue(record)
		if !ok {
			return Component{}, fmt.Errorf("%w: %s is not a string", ErrInvalidRecord, name)
		}
		return Component{Name: name, Code: code}, nil
	}
	codeNode := record.Child("")
	if codeNode == nil {
		return Component{}, fmt.Errorf("%w: %s has no code", ErrInvalidRecord, name)
	}
	code, ok := stringValue(codeNode)
	if !ok {
		return Component{}, fmt.Errorf("%w: %s code is not a string", ErrInvalidRecord, name)
	}
	c := Component{Name: name, Code: code}
	if meta := record.Child("metadata"); meta != nil {
		data, err := meta.MarshalJSON()
		if err != nil {
			return Component{}, fmt.Errorf("%w: %s metadata: %v", ErrInvalidRecord, name, err)
		}
		c.Metadata = data
	}
	return c, nil
}

func stringValue(n *document.Node) (string, bool) {
	raw := n.Value()
	if len(raw) == 0 || raw[0] != '"' {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// ToDocument builds {account: {widget: {name: record}}} where record is the
// bare code, or {"": code, "metadata": ...} when metadata is present.
func ToDocument(account string, flat map[string]Component) (*document.Node, error) {
	root := document.NewBranch()
	names := maps.Keys(flat)
	slices.Sort(names)
	for _, name := range names {
		record, err := encodeRecord(flat[name])
		if err != nil {
			return nil, fmt.Errorf("components: encode %s: %w", name, err)
		}
		root, err = document.Merge(root, document.Path{account, WidgetKey, name}, record)
		if err != nil {
			return nil, err
		}
	}
	return root, nil
}

func encodeRecord(c Component) (json.RawMessage, error) {
	code, err := document.TextLeaf([]byte(c.Code))
	if err != nil {
		return nil, err
	}
	if !c.HasMetadata() {
		return code, nil
	}
	buf := &bytes.Buffer{}
	buf.WriteString(`{"":`)
	buf.Write(code)
	buf.WriteString(`,"metadata":`)
	if err := json.Compact(buf, c.Metadata); err != nil {
		return nil, fmt.Errorf("%w: metadata: %v", document.ErrInvalidValue, err)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Diff returns the local components that are missing remotely or differ from
// the remote copy.
func Diff(local, remote map[string]Component) map[string]Component {
	out := make(map[string]Component)
	for name, c := range local {
		if prev, ok := remote[name]; ok && prev.Equal(c) {
			continue
		}
		out[name] = c
	}
	return out
}
