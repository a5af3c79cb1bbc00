package socialdb

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"github.com/nearsocial/bos_sdk_go/internal/httpx"
	"github.com/nearsocial/bos_sdk_go/pkg/deposit"
	"github.com/nearsocial/bos_sdk_go/pkg/document"
)

// Client reads one SocialDB contract.
type Client struct {
	backend  Backend
	contract string
	logger   zerolog.Logger
	httpOpts []httpx.Option
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger used for remote calls. The default discards.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithTransport passes options to the HTTP transport built by New.
func WithTransport(opts ...httpx.Option) Option {
	return func(c *Client) {
		c.httpOpts = append(c.httpOpts, opts...)
	}
}

// New returns a Client for contract reached through the JSON-RPC endpoint rpcURL.
func New(rpcURL, contract string, opts ...Option) (*Client, error) {
	c := newClient(nil, contract, opts)
	httpOpts := append([]httpx.Option{httpx.WithLogger(c.logger)}, c.httpOpts...)
	transport, err := httpx.NewClient(rpcURL, httpOpts...)
	if err != nil {
		return nil, fmt.Errorf("socialdb: %w", err)
	}
	c.backend = NewHTTPBackend(transport)
	return c, c.validate()
}

// NewWithBackend returns a Client over a custom backend, e.g. a mock contract.
func NewWithBackend(b Backend, contract string, opts ...Option) (*Client, error) {
	c := newClient(b, contract, opts)
	if b == nil {
		return nil, errors.New("socialdb: backend is nil")
	}
	return c, c.validate()
}

func newClient(b Backend, contract string, opts []Option) *Client {
	c := &Client{backend: b, contract: strings.TrimSpace(contract), logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) validate() error {
	if c.contract == "" {
		return errors.New("socialdb: contract account is required")
	}
	return nil
}

// Contract returns the contract account id.
func (c *Client) Contract() string {
	return c.contract
}

// Get runs the contract's get method. Keys are store keys, optionally ending
// in /** to select a whole subtree. A null result is an empty document.
func (c *Client) Get(ctx context.Context, keys ...string) (*document.Node, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("socialdb: at least one key is required")
	}
	target := strings.Join(keys, ",")
	c.logger.Debug().Str("contract", c.contract).Strs("keys", keys).Msg("socialdb get")

	raw, err := c.backend.Get(ctx, c.contract, keys)
	if err != nil {
		c.logger.Warn().Err(err).Strs("keys", keys).Msg("socialdb get failed")
		return nil, remote("get", target, err)
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return document.NewBranch(), nil
	}
	doc, err := document.Parse(raw)
	if err != nil {
		return nil, remote("get", target, err)
	}
	if doc.IsLeaf() {
		return nil, remote("get", target, fmt.Errorf("result is not an object: %s", raw))
	}
	return doc, nil
}

// ReadKey returns the value stored at key, re-encoded as compact JSON when
// it is a subtree. The boolean is false when nothing is stored there.
func (c *Client) ReadKey(ctx context.Context, key document.Path) (json.RawMessage, bool, error) {
	if err := key.Validate(); err != nil {
		return nil, false, err
	}
	doc, err := c.Get(ctx, key.StoreKey(), key.Subtree())
	if err != nil {
		return nil, false, err
	}
	return ValueAt(doc, key)
}

// Snapshot fetches everything a write at key can collide with: the value or
// subtree stored at key plus any leaf stored at one of its ancestors.
func (c *Client) Snapshot(ctx context.Context, key document.Path) (*document.Node, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	keys := []string{key.StoreKey(), key.Subtree()}
	for i := len(key) - 1; i >= 1; i-- {
		keys = append(keys, key[:i].StoreKey())
	}
	return c.Get(ctx, keys...)
}

// ValueAt extracts the value stored at key from a fetched document. Subtrees
// are re-encoded as compact JSON; empty branches count as absent.
func ValueAt(doc *document.Node, key document.Path) (json.RawMessage, bool, error) {
	node, ok := doc.Lookup(key)
	if !ok {
		return nil, false, nil
	}
	if node.IsLeaf() {
		return node.Value(), true, nil
	}
	if node.Len() == 0 {
		return nil, false, nil
	}
	data, err := node.MarshalJSON()
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Account fetches <account>/<subtree...>/** and returns the account's record,
// or nil when the account has no data there.
func (c *Client) Account(ctx context.Context, account string, subtree ...string) (*document.Node, error) {
	path := document.Path{account}.Append(subtree...)
	if err := path.Validate(); err != nil {
		return nil, err
	}
	doc, err := c.Get(ctx, path.Subtree())
	if err != nil {
		return nil, err
	}
	record := doc.Child(account)
	if record == nil || record.IsLeaf() || record.Len() == 0 {
		return nil, nil
	}
	return record, nil
}

// StorageBalance returns the account's storage balance on the contract. An
// account without a storage record is reported as not registered.
func (c *Client) StorageBalance(ctx context.Context, account string) (*deposit.Balance, error) {
	if strings.TrimSpace(account) == "" {
		return nil, fmt.Errorf("socialdb: account is required")
	}
	raw, err := c.backend.StorageBalanceOf(ctx, c.contract, account)
	if err != nil {
		return nil, remote("storage_balance_of", account, err)
	}
	balance, err := parseBalance(raw)
	if err != nil {
		return nil, remote("storage_balance_of", account, err)
	}
	c.logger.Debug().
		Str("account", account).
		Bool("registered", balance.Registered).
		Str("available", balance.Available.String()).
		Msg("storage balance")
	return balance, nil
}

func parseBalance(raw []byte) (*deposit.Balance, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return &deposit.Balance{Total: new(big.Int), Available: new(big.Int)}, nil
	}
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("malformed storage balance %s", raw)
	}
	parsed := gjson.ParseBytes(raw)
	total, err := amountField(parsed, "total")
	if err != nil {
		return nil, err
	}
	available, err := amountField(parsed, "available")
	if err != nil {
		return nil, err
	}
	return &deposit.Balance{Registered: true, Total: total, Available: available}, nil
}

func amountField(v gjson.Result, name string) (*big.Int, error) {
	field := v.Get(name)
	if !field.Exists() {
		return nil, fmt.Errorf("storage balance missing %q", name)
	}
	raw := field.Raw
	if field.Type == gjson.String {
		raw = field.String()
	}
	return deposit.ParseAmount(raw)
}

// StoragePricePerByte returns the network storage price in yoctoNEAR per byte.
func (c *Client) StoragePricePerByte(ctx context.Context) (*big.Int, error) {
	raw, err := c.backend.StoragePricePerByte(ctx)
	if err != nil {
		return nil, remote("storage price", "", err)
	}
	value := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	price, err := deposit.ParseAmount(value)
	if err != nil {
		return nil, remote("storage price", "", err)
	}
	return price, nil
}
