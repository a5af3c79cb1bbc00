package mock

import (
	"context"
	"fmt"
	"strings"

	"github.com/nearsocial/bos_sdk_go/pkg/document"
)

// Get implements socialdb.Backend. Keys ending in /** return the subtree;
// other keys return the value only when a leaf is stored there.
func (c *Contract) Get(ctx context.Context, contract string, keys []string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := c.checkContract(contract); err != nil {
		return nil, err
	}

	c.mu.RLock()
	root := c.root
	c.mu.RUnlock()

	out := document.NewBranch()
	for _, key := range keys {
		subtree := strings.HasSuffix(key, document.SubtreeSuffix)
		path, err := document.ParseStoreKey(strings.TrimSuffix(key, document.SubtreeSuffix))
		if err != nil {
			return nil, fmt.Errorf("mock socialdb: key %q: %w", key, err)
		}
		node, ok := root.Lookup(path)
		if !ok || (!subtree && !node.IsLeaf()) {
			continue
		}
		out, err = document.MergeNode(out, document.Nest(path, node))
		if err != nil {
			return nil, err
		}
	}
	return out.MarshalJSON()
}

// StorageBalanceOf implements socialdb.Backend.
func (c *Contract) StorageBalanceOf(ctx context.Context, contract, accountID string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := c.checkContract(contract); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	acc, ok := c.accounts[accountID]
	if !ok {
		return []byte("null"), nil
	}
	return balanceJSON(acc.total, c.available(acc)), nil
}

// StoragePricePerByte implements socialdb.Backend.
func (c *Contract) StoragePricePerByte(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return []byte(c.price.String()), nil
}
