package bos_sdk

import (
	"context"
	"fmt"
	"io/fs"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/nearsocial/bos_sdk_go/pkg/components"
	"github.com/nearsocial/bos_sdk_go/pkg/deposit"
	"github.com/nearsocial/bos_sdk_go/pkg/document"
	"github.com/nearsocial/bos_sdk_go/pkg/tx"
)

// PreparedDeploy holds the components that differ from the account's remote
// copy and the call that uploads them. Call is nil when nothing changed.
type PreparedDeploy struct {
	Account  string
	Signer   string
	Changed  []string
	Document *document.Node
	Quote    *deposit.Quote
	Call     *tx.Call
}

// DeployResult is the outcome of Deploy.
type DeployResult struct {
	Prepared   *PreparedDeploy
	Settlement *deposit.Settlement
	Call       *tx.Call
	Status     *tx.Status
}

// PrepareDeploy encodes the components found in src, compares them with
// <account>/widget/** and quotes an upload of the ones that are new or
// changed. The quote covers only the changed records, billed leaf by leaf
// against their stored versions.
func (r *Runtime) PrepareDeploy(ctx context.Context, account string, src fs.FS, signer string) (*PreparedDeploy, error) {
	if err := (document.Path{account}).Validate(); err != nil {
		return nil, err
	}
	if signer == "" {
		signer = account
	}
	log := r.Logger.With().Str("account", account).Logger()

	local, err := components.Encode(src)
	if err != nil {
		return nil, fmt.Errorf("bos_sdk: read local components: %w", err)
	}
	record, err := r.Client.Account(ctx, account, components.WidgetKey)
	if err != nil {
		return nil, err
	}
	remote, err := components.FromAccount(record)
	if err != nil {
		log.Warn().Err(err).Msg("remote components not decoded, they will be replaced")
	}

	changed := components.Diff(local, remote)
	prepared := &PreparedDeploy{Account: account, Signer: signer, Changed: maps.Keys(changed)}
	slices.Sort(prepared.Changed)
	if len(changed) == 0 {
		log.Info().Int("local", len(local)).Msg("components up to date")
		return prepared, nil
	}

	doc, err := components.ToDocument(account, changed)
	if err != nil {
		return nil, err
	}
	var stored *document.Node
	if record != nil {
		stored = document.Nest(document.Path{account}, record)
	}

	price, err := r.Client.StoragePricePerByte(ctx)
	if err != nil {
		return nil, err
	}
	quote, err := r.Engine.QuoteWrite(stored, doc, price)
	if err != nil {
		return nil, fmt.Errorf("bos_sdk: deploy %s: %w", account, err)
	}
	call, err := r.Builder.Build(r.Client.Contract(), MethodSet, map[string]any{"data": doc}, quote.Required)
	if err != nil {
		return nil, err
	}

	log.Info().
		Strs("changed", prepared.Changed).
		Int64("delta_bytes", quote.DeltaBytes).
		Str("quoted", deposit.FormatNEAR(quote.Required)).
		Msg("prepared deploy")
	prepared.Document = doc
	prepared.Quote = quote
	prepared.Call = call
	return prepared, nil
}

// Deploy uploads the changed components of src. When nothing changed no call
// is built or submitted. Without a submitter the reconciled call is returned
// together with ErrNoSubmitter.
func (r *Runtime) Deploy(ctx context.Context, account string, src fs.FS, signer string) (*DeployResult, error) {
	prepared, err := r.PrepareDeploy(ctx, account, src, signer)
	if err != nil {
		return nil, err
	}
	result := &DeployResult{Prepared: prepared}
	if prepared.Call == nil {
		return result, nil
	}

	settlement, err := r.reconcile(ctx, account, prepared.Quote)
	if err != nil {
		return nil, fmt.Errorf("bos_sdk: deploy %s: %w", account, err)
	}
	result.Settlement = settlement
	result.Call = prepared.Call.WithDeposit(settlement.Attached)

	result.Status, err = r.Submit(ctx, result.Call)
	return result, err
}
