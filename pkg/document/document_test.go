package document_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nearsocial/bos_sdk_go/pkg/document"
)

func mustStoreKey(t *testing.T, key string) document.Path {
	t.Helper()
	p, err := document.ParseStoreKey(key)
	require.NoError(t, err)
	return p
}

func marshal(t *testing.T, n *document.Node) string {
	t.Helper()
	data, err := n.MarshalJSON()
	require.NoError(t, err)
	return string(data)
}

func TestParsePaths(t *testing.T) {
	p, err := document.ParsePath("a.b.widget")
	require.NoError(t, err)
	assert.Equal(t, document.Path{"a", "b", "widget"}, p)
	assert.Equal(t, "a/b/widget", p.StoreKey())

	key := mustStoreKey(t, "alice.near/profile/name")
	assert.Equal(t, document.Path{"alice.near", "profile", "name"}, key)
	assert.Equal(t, "alice.near", key.Account())
	assert.Equal(t, "alice.near/profile/name/**", key.Subtree())

	for _, bad := range []string{"", "  ", "a..b", ".a", "a."} {
		_, err := document.ParsePath(bad)
		assert.ErrorIs(t, err, document.ErrInvalidKeyPath, "input %q", bad)
	}
	for _, bad := range []string{"alice.near//name", "alice.near/widget/**", "alice.near/*"} {
		_, err := document.ParseStoreKey(bad)
		assert.ErrorIs(t, err, document.ErrInvalidKeyPath, "input %q", bad)
	}
}

func TestBuildRoundTrip(t *testing.T) {
	values := []string{`"Alice"`, `42`, `true`, `null`, `[1,2,3]`, `{"nested":{"deep":"x"}}`}
	paths := []string{"alice.near", "alice.near/profile", "alice.near/profile/name", "a/b/c/d/e"}

	for _, key := range paths {
		for _, value := range values {
			path := mustStoreKey(t, key)
			doc, err := document.Build(path, json.RawMessage(value))
			require.NoError(t, err)

			got, ok := doc.Lookup(path)
			require.True(t, ok, "lookup %s", key)
			require.True(t, got.IsLeaf())
			assert.JSONEq(t, value, string(got.Value()))
		}
	}
}

func TestBuildShape(t *testing.T) {
	doc, err := document.Build(mustStoreKey(t, "alice.near/profile/name"), json.RawMessage(`"Alice"`))
	require.NoError(t, err)
	assert.Equal(t, `{"alice.near":{"profile":{"name":"Alice"}}}`, marshal(t, doc))

	_, err = document.Build(nil, json.RawMessage(`1`))
	assert.ErrorIs(t, err, document.ErrInvalidKeyPath)

	_, err = document.Build(document.Path{"a"}, json.RawMessage(`{not json`))
	assert.ErrorIs(t, err, document.ErrInvalidValue)
}

func TestMergeIdempotent(t *testing.T) {
	path := mustStoreKey(t, "alice.near/profile/name")
	base, err := document.Build(mustStoreKey(t, "alice.near/profile/image"), json.RawMessage(`{"url":"x"}`))
	require.NoError(t, err)

	once, err := document.Merge(base, path, json.RawMessage(`"Alice"`))
	require.NoError(t, err)
	twice, err := document.Merge(once, path, json.RawMessage(`"Alice"`))
	require.NoError(t, err)

	assert.True(t, once.Equal(twice))
	assert.Equal(t, marshal(t, once), marshal(t, twice))
}

func TestMergeDisjointPrefixes(t *testing.T) {
	root, err := document.Build(mustStoreKey(t, "alice.near/profile/name"), json.RawMessage(`"Alice"`))
	require.NoError(t, err)

	merged, err := document.Merge(root, mustStoreKey(t, "alice.near/widget/Feed"), json.RawMessage(`"<div/>"`))
	require.NoError(t, err)
	merged, err = document.Merge(merged, mustStoreKey(t, "bob.near/profile/name"), json.RawMessage(`"Bob"`))
	require.NoError(t, err)

	name, ok := merged.Lookup(mustStoreKey(t, "alice.near/profile/name"))
	require.True(t, ok)
	assert.Equal(t, `"Alice"`, string(name.Value()))

	assert.Equal(t,
		`{"alice.near":{"profile":{"name":"Alice"},"widget":{"Feed":"<div/>"}},"bob.near":{"profile":{"name":"Bob"}}}`,
		marshal(t, merged))

	// the original tree is untouched
	assert.Equal(t, `{"alice.near":{"profile":{"name":"Alice"}}}`, marshal(t, root))
}

func TestMergeConflictLeavesTreeUnmodified(t *testing.T) {
	root, err := document.Build(mustStoreKey(t, "alice.near/profile"), json.RawMessage(`"plain"`))
	require.NoError(t, err)
	before := marshal(t, root)

	_, err = document.Merge(root, mustStoreKey(t, "alice.near/profile/name"), json.RawMessage(`"Alice"`))
	require.Error(t, err)
	assert.ErrorIs(t, err, document.ErrKeyPathConflict)

	var conflict *document.ConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, document.Path{"alice.near", "profile"}, conflict.At)
	assert.Equal(t, before, marshal(t, root))

	leafRoot, err := document.Leaf(json.RawMessage(`1`))
	require.NoError(t, err)
	_, err = document.Merge(leafRoot, document.Path{"x"}, json.RawMessage(`2`))
	assert.ErrorIs(t, err, document.ErrKeyPathConflict)
}

func TestMergeOverwritesBranchAtExactPath(t *testing.T) {
	root, err := document.Build(mustStoreKey(t, "alice.near/profile/name"), json.RawMessage(`"Alice"`))
	require.NoError(t, err)

	merged, err := document.Merge(root, mustStoreKey(t, "alice.near/profile"), json.RawMessage(`"flat"`))
	require.NoError(t, err)
	assert.Equal(t, `{"alice.near":{"profile":"flat"}}`, marshal(t, merged))
}

func TestMergeNodeDetectsRemoteConflict(t *testing.T) {
	remote, err := document.Parse([]byte(`{"alice.near":{"profile":{"name":"Old","tags":{"dev":""}}}}`))
	require.NoError(t, err)
	desired, err := document.Build(mustStoreKey(t, "alice.near/profile/name"), json.RawMessage(`"New"`))
	require.NoError(t, err)

	merged, err := document.MergeNode(remote, desired)
	require.NoError(t, err)
	assert.Equal(t, `{"alice.near":{"profile":{"name":"New","tags":{"dev":""}}}}`, marshal(t, merged))

	clash, err := document.Build(mustStoreKey(t, "alice.near/profile/name/first"), json.RawMessage(`"A"`))
	require.NoError(t, err)
	_, err = document.MergeNode(remote, clash)
	assert.ErrorIs(t, err, document.ErrKeyPathConflict)
}

func TestParsePreservesOrder(t *testing.T) {
	src := `{ "z": 1, "a": {"y": "2", "b": [1, 2]}, "m": null }`
	doc, err := document.Parse([]byte(src))
	require.NoError(t, err)
	assert.Equal(t, []string{"z", "a", "m"}, doc.Keys())
	assert.Equal(t, `{"z":1,"a":{"y":"2","b":[1,2]},"m":null}`, marshal(t, doc))

	var decoded document.Node
	require.NoError(t, json.Unmarshal([]byte(src), &decoded))
	assert.True(t, decoded.Equal(doc))

	_, err = document.Parse([]byte(`{"a":`))
	assert.ErrorIs(t, err, document.ErrInvalidValue)
}

func TestTextLeaf(t *testing.T) {
	raw, err := document.TextLeaf([]byte("line <1>\n\"quoted\""))
	require.NoError(t, err)
	assert.Equal(t, `"line <1>\n\"quoted\""`, string(raw))

	_, err = document.TextLeaf([]byte{0xff, 0xfe})
	assert.ErrorIs(t, err, document.ErrInvalidValue)
}

func TestNestKeepsStoredKeys(t *testing.T) {
	record, err := document.Parse([]byte(`{"":"<div/>","metadata":{"title":"Feed"}}`))
	require.NoError(t, err)

	doc := document.Nest(document.Path{"alice.near", "widget", "Feed"}, record)
	assert.Equal(t, `{"alice.near":{"widget":{"Feed":{"":"<div/>","metadata":{"title":"Feed"}}}}}`, marshal(t, doc))

	merged, err := document.MergeNode(document.NewBranch(), doc)
	require.NoError(t, err)
	code, ok := merged.Lookup(document.Path{"alice.near", "widget", "Feed", ""})
	require.True(t, ok)
	assert.Equal(t, `"<div/>"`, string(code.Value()))
}
