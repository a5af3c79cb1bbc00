// Package mock provides an in-memory SocialDB contract. It serves the view
// calls of socialdb.Backend and executes set and storage_deposit calls as a
// tx.Submitter, charging storage the way the client prices it: the compact
// JSON size of every written value, against the account's storage balance.
package mock

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"github.com/nearsocial/bos_sdk_go/internal/devseed"
	"github.com/nearsocial/bos_sdk_go/pkg/deposit"
	"github.com/nearsocial/bos_sdk_go/pkg/document"
	"github.com/nearsocial/bos_sdk_go/pkg/tx"
)

// DefaultContract is the account id the mock answers to unless configured.
const DefaultContract = "social.near"

type account struct {
	total *big.Int
	usage int64
}

// Contract is an in-memory SocialDB contract safe for concurrent use.
type Contract struct {
	mu       sync.RWMutex
	id       string
	price    *big.Int
	root     *document.Node
	accounts map[string]*account
	calls    []*tx.Call
	logger   zerolog.Logger
}

// Option configures a Contract.
type Option func(*Contract)

// WithContractID sets the account id the contract answers to.
func WithContractID(id string) Option {
	return func(c *Contract) {
		if strings.TrimSpace(id) != "" {
			c.id = id
		}
	}
}

// WithPrice sets the storage price per byte.
func WithPrice(price *big.Int) Option {
	return func(c *Contract) {
		if price != nil {
			c.price = new(big.Int).Set(price)
		}
	}
}

// WithLogger logs executed calls.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Contract) {
		c.logger = logger
	}
}

// New returns an empty contract priced at the protocol storage cost.
func New(opts ...Option) *Contract {
	c := &Contract{
		id:       DefaultContract,
		price:    new(big.Int).Set(deposit.StorageCostPerByte),
		root:     document.NewBranch(),
		accounts: make(map[string]*account),
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ID returns the contract account id.
func (c *Contract) ID() string {
	return c.id
}

// Seed loads accounts and documents. Seeded data counts towards storage
// usage but is not charged.
func (c *Contract) Seed(seed *devseed.SocialDBSeed) error {
	if seed == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if seed.PricePerByte != "" {
		price, err := deposit.ParseAmount(seed.PricePerByte)
		if err != nil {
			return fmt.Errorf("mock socialdb: seed price: %w", err)
		}
		c.price = price
	}
	for _, entry := range seed.Accounts {
		acc := c.ensureAccount(entry.ID)
		if entry.Balance != "" {
			total, err := deposit.ParseAmount(entry.Balance)
			if err != nil {
				return fmt.Errorf("mock socialdb: seed balance for %s: %w", entry.ID, err)
			}
			acc.total = total
		}
		if len(bytes.TrimSpace(entry.Data)) == 0 {
			continue
		}
		data, err := document.Parse(entry.Data)
		if err != nil {
			return fmt.Errorf("mock socialdb: seed data for %s: %w", entry.ID, err)
		}
		charges, merged, err := c.apply(c.root, document.Nest(document.Path{entry.ID}, data))
		if err != nil {
			return fmt.Errorf("mock socialdb: seed data for %s: %w", entry.ID, err)
		}
		c.root = merged
		acc.usage += charges[entry.ID]
	}
	return nil
}

// SetPrice changes the storage price, as a protocol upgrade would.
func (c *Contract) SetPrice(price *big.Int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.price = new(big.Int).Set(price)
}

// SetBalance overwrites an account's total storage balance, registering it.
func (c *Contract) SetBalance(accountID string, total *big.Int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ensureAccount(accountID).total = new(big.Int).Set(total)
}

// Usage returns the bytes billed to accountID.
func (c *Contract) Usage(accountID string) int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if acc, ok := c.accounts[accountID]; ok {
		return acc.usage
	}
	return 0
}

// Calls returns the calls submitted so far, successful or not.
func (c *Contract) Calls() []*tx.Call {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]*tx.Call(nil), c.calls...)
}

// Document returns the stored document of every account.
func (c *Contract) Document() *document.Node {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.root
}

func (c *Contract) ensureAccount(id string) *account {
	acc, ok := c.accounts[id]
	if !ok {
		acc = &account{total: new(big.Int)}
		c.accounts[id] = acc
	}
	return acc
}

func (c *Contract) available(acc *account) *big.Int {
	used := new(big.Int).Mul(big.NewInt(acc.usage), c.price)
	out := new(big.Int).Sub(acc.total, used)
	if out.Sign() < 0 {
		out.SetInt64(0)
	}
	return out
}

func (c *Contract) checkContract(contract string) error {
	if contract != c.id {
		return fmt.Errorf("mock socialdb: account %s is not the SocialDB contract %s", contract, c.id)
	}
	return nil
}

// apply overlays data onto root and returns the byte delta per account, as
// deposit.LeafDeltas bills it.
func (c *Contract) apply(root, data *document.Node) (map[string]int64, *document.Node, error) {
	merged, err := document.MergeNode(root, data)
	if err != nil {
		return nil, nil, err
	}
	return deposit.LeafDeltas(root, data), merged, nil
}

func newTxHash() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func failed(reason string) *tx.Status {
	return &tx.Status{Success: false, Reason: reason, TxHash: newTxHash()}
}

func balanceJSON(total, available *big.Int) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(`{"total":"%s","available":"%s"}`, total, available))
}

func argString(args []byte, path string) string {
	return gjson.GetBytes(args, path).String()
}
