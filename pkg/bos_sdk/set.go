package bos_sdk

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nearsocial/bos_sdk_go/pkg/deposit"
	"github.com/nearsocial/bos_sdk_go/pkg/document"
	"github.com/nearsocial/bos_sdk_go/pkg/socialdb"
	"github.com/nearsocial/bos_sdk_go/pkg/tx"
)

// MethodSet is the SocialDB write method.
const MethodSet = "set"

// SetRequest writes Value at the store key Key ("alice.near/profile/name").
type SetRequest struct {
	Key   string
	Value json.RawMessage
	// Signer defaults to the account that owns Key.
	Signer string
}

// PreparedSet is the first phase of a write: the shaped document, the remote
// value it replaces and the quoted deposit.
type PreparedSet struct {
	Key      document.Path
	Signer   string
	Document *document.Node
	// Existing is the compact value currently stored at Key, nil when absent.
	Existing json.RawMessage
	Quote    *deposit.Quote
	// Call carries the quoted deposit until Finalize reconciles it.
	Call *tx.Call
}

// Finalized is a prepared write reconciled against the current balance.
type Finalized struct {
	Prepared   *PreparedSet
	Settlement *deposit.Settlement
	Call       *tx.Call
}

// SetResult is the outcome of Set.
type SetResult struct {
	*Finalized
	Status *tx.Status
}

// PrepareSet validates the key, shapes the document and quotes the deposit.
// The write is checked against remote state so that a key below a stored
// leaf fails with document.ErrKeyPathConflict before anything is submitted.
func (r *Runtime) PrepareSet(ctx context.Context, req SetRequest) (*PreparedSet, error) {
	key, err := document.ParseStoreKey(req.Key)
	if err != nil {
		return nil, err
	}
	if len(key) < 2 {
		return nil, fmt.Errorf("%w: %q must name a key below the account", document.ErrInvalidKeyPath, req.Key)
	}
	doc, err := document.Build(key, req.Value)
	if err != nil {
		return nil, err
	}
	snapshot, err := r.Client.Snapshot(ctx, key)
	if err != nil {
		return nil, err
	}
	if _, err := document.MergeNode(snapshot, doc); err != nil {
		return nil, fmt.Errorf("bos_sdk: set %s: %w", key, err)
	}
	existing, _, err := socialdb.ValueAt(snapshot, key)
	if err != nil {
		return nil, err
	}

	price, err := r.Client.StoragePricePerByte(ctx)
	if err != nil {
		return nil, err
	}
	quote, err := r.Engine.QuoteWrite(snapshot, doc, price)
	if err != nil {
		return nil, fmt.Errorf("bos_sdk: set %s: %w", key, err)
	}
	call, err := r.Builder.Build(r.Client.Contract(), MethodSet, map[string]any{"data": doc}, quote.Required)
	if err != nil {
		return nil, err
	}

	signer := req.Signer
	if signer == "" {
		signer = key.Account()
	}
	r.Logger.Info().
		Str("key", key.StoreKey()).
		Str("signer", signer).
		Int64("delta_bytes", quote.DeltaBytes).
		Str("quoted", deposit.FormatNEAR(quote.Required)).
		Msg("prepared set")
	return &PreparedSet{
		Key:      key,
		Signer:   signer,
		Document: doc,
		Existing: existing,
		Quote:    quote,
		Call:     call,
	}, nil
}

// Finalize re-reads the storage balance of the key's account and the current
// price, and attaches only what that balance does not already cover. The
// signer's own balance is not consulted: the contract bills the account the
// data is written under.
func (r *Runtime) Finalize(ctx context.Context, p *PreparedSet) (*Finalized, error) {
	if p == nil {
		return nil, fmt.Errorf("bos_sdk: prepared set is nil")
	}
	settlement, err := r.reconcile(ctx, p.Key.Account(), p.Quote)
	if err != nil {
		return nil, fmt.Errorf("bos_sdk: set %s: %w", p.Key, err)
	}
	return &Finalized{
		Prepared:   p,
		Settlement: settlement,
		Call:       p.Call.WithDeposit(settlement.Attached),
	}, nil
}

// Set prepares, finalizes and submits a write.
func (r *Runtime) Set(ctx context.Context, req SetRequest) (*SetResult, error) {
	prepared, err := r.PrepareSet(ctx, req)
	if err != nil {
		return nil, err
	}
	finalized, err := r.Finalize(ctx, prepared)
	if err != nil {
		return nil, err
	}
	status, err := r.Submit(ctx, finalized.Call)
	return &SetResult{Finalized: finalized, Status: status}, err
}

func (r *Runtime) reconcile(ctx context.Context, account string, q *deposit.Quote) (*deposit.Settlement, error) {
	balance, err := r.Client.StorageBalance(ctx, account)
	if err != nil {
		return nil, err
	}
	price, err := r.Client.StoragePricePerByte(ctx)
	if err != nil {
		return nil, err
	}
	settlement, err := r.Engine.Reconcile(q, balance, price)
	if err != nil {
		return nil, err
	}
	r.Logger.Info().
		Str("account", account).
		Bool("covered", settlement.Covered).
		Bool("registration", settlement.Registration).
		Str("available", deposit.FormatNEAR(settlement.Available)).
		Str("attached", deposit.FormatNEAR(settlement.Attached)).
		Msg("reconciled deposit")
	return settlement, nil
}
