package deposit

import (
	"bytes"
	"encoding/json"

	"github.com/nearsocial/bos_sdk_go/pkg/document"
)

// Estimator computes how many additional storage bytes a write occupies.
// existing is nil when nothing is stored at the key. Results are never negative.
type Estimator interface {
	DeltaBytes(existing, next json.RawMessage) int64
}

// Size returns the canonical on-wire size of a JSON value: the length of its
// compact encoding. A nil value has size zero.
func Size(value json.RawMessage) int64 {
	trimmed := bytes.TrimSpace(value)
	if len(trimmed) == 0 {
		return 0
	}
	buf := &bytes.Buffer{}
	if err := json.Compact(buf, trimmed); err != nil {
		return int64(len(trimmed))
	}
	return int64(buf.Len())
}

// WriteEstimator is implemented by estimators that can size a whole set
// document against the stored tree it will be merged into.
type WriteEstimator interface {
	WriteDelta(stored, data *document.Node) int64
}

// LeafDeltas returns, per account, the bytes a set of data adds on top of
// stored: for every leaf of data, its compact size minus the compact size of
// whatever stored holds at the same path. Keys are not billed. Negative
// entries are storage released by the write.
func LeafDeltas(stored, data *document.Node) map[string]int64 {
	deltas := make(map[string]int64)
	_ = data.Walk(func(path document.Path, leaf *document.Node) error {
		deltas[path.Account()] += Size(leaf.Value()) - storedSize(stored, path)
		return nil
	})
	return deltas
}

func storedSize(stored *document.Node, path document.Path) int64 {
	node, ok := stored.Lookup(path)
	if !ok {
		return 0
	}
	raw, err := node.MarshalJSON()
	if err != nil {
		return 0
	}
	return Size(raw)
}

// WireEstimator charges the difference between compact JSON sizes.
type WireEstimator struct{}

// DeltaBytes implements Estimator.
func (WireEstimator) DeltaBytes(existing, next json.RawMessage) int64 {
	delta := Size(next) - Size(existing)
	if delta < 0 {
		return 0
	}
	return delta
}

// WriteDelta implements WriteEstimator with the net of LeafDeltas.
func (WireEstimator) WriteDelta(stored, data *document.Node) int64 {
	var delta int64
	for _, d := range LeafDeltas(stored, data) {
		delta += d
	}
	return max(delta, 0)
}

const (
	socialKeyValueOverhead = 40*3 + 8 + 12
	socialNodeOverhead     = 40*2 + 8 + 10
	socialMinValueSize     = 8
)

// SocialEstimator mirrors the storage estimate used by NearSocial front ends:
// every new node and key carries a fixed overhead, keys count twice and values
// are billed at a minimum of eight bytes.
type SocialEstimator struct{}

// DeltaBytes implements Estimator.
func (SocialEstimator) DeltaBytes(existing, next json.RawMessage) int64 {
	nextNode, err := document.Parse(next)
	if err != nil {
		return WireEstimator{}.DeltaBytes(existing, next)
	}
	var prevNode *document.Node
	if len(bytes.TrimSpace(existing)) > 0 {
		prevNode, err = document.Parse(existing)
		if err != nil {
			return WireEstimator{}.DeltaBytes(existing, next)
		}
	}
	delta := socialEstimate(nextNode, prevNode)
	if delta < 0 {
		return 0
	}
	return delta
}

// WriteDelta implements WriteEstimator. data and stored are both rooted above
// the account keys.
func (SocialEstimator) WriteDelta(stored, data *document.Node) int64 {
	return max(socialEstimate(data, stored), 0)
}

func socialEstimate(data, prev *document.Node) int64 {
	if !data.IsLeaf() {
		var inner int64
		for _, key := range data.Keys() {
			child := data.Child(key)
			if prevChild := prev.Child(key); prevChild != nil {
				inner += socialEstimate(child, prevChild)
				continue
			}
			inner += int64(len(key))*2 + socialEstimate(child, nil) + socialKeyValueOverhead
		}
		if prev != nil && !prev.IsLeaf() {
			return inner
		}
		return socialNodeOverhead + inner
	}

	size := max(leafLen(data), socialMinValueSize)
	switch {
	case prev == nil:
		return size
	case prev.IsLeaf() && isString(prev):
		return size - leafLen(prev)
	default:
		return size - socialMinValueSize
	}
}

// leafLen is the byte length of a string leaf's contents, or of the compact
// JSON for any other leaf.
func leafLen(n *document.Node) int64 {
	raw := n.Value()
	if isString(n) {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return int64(len(s))
		}
	}
	return int64(len(raw))
}

func isString(n *document.Node) bool {
	raw := n.Value()
	return len(raw) > 0 && raw[0] == '"'
}
