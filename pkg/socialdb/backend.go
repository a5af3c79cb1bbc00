package socialdb

import (
	"context"
	"fmt"

	"github.com/nearsocial/bos_sdk_go/internal/httpx"
	"github.com/nearsocial/bos_sdk_go/internal/nearrpc"
)

// Backend executes contract view calls. Results are the raw JSON values
// returned by the contract.
type Backend interface {
	// Get runs get({"keys": keys}) on contract.
	Get(ctx context.Context, contract string, keys []string) ([]byte, error)
	// StorageBalanceOf runs storage_balance_of({"account_id": account}); an
	// unregistered account yields null.
	StorageBalanceOf(ctx context.Context, contract, account string) ([]byte, error)
	// StoragePricePerByte returns the network price as a decimal string.
	StoragePricePerByte(ctx context.Context) ([]byte, error)
}

type httpBackend struct {
	client *httpx.Client
}

// NewHTTPBackend returns a Backend speaking NEAR JSON-RPC through client.
func NewHTTPBackend(client *httpx.Client) Backend {
	return &httpBackend{client: client}
}

func (b *httpBackend) Get(ctx context.Context, contract string, keys []string) ([]byte, error) {
	args, err := httpx.MarshalJSON(map[string][]string{"keys": keys})
	if err != nil {
		return nil, err
	}
	return b.view(ctx, contract, "get", args)
}

func (b *httpBackend) StorageBalanceOf(ctx context.Context, contract, account string) ([]byte, error) {
	args, err := httpx.MarshalJSON(map[string]string{"account_id": account})
	if err != nil {
		return nil, err
	}
	return b.view(ctx, contract, "storage_balance_of", args)
}

func (b *httpBackend) StoragePricePerByte(ctx context.Context) ([]byte, error) {
	if b == nil || b.client == nil {
		return nil, fmt.Errorf("socialdb: http backend not configured")
	}
	body, err := b.client.PostJSON(ctx, "", nearrpc.ProtocolConfig())
	if err != nil {
		return nil, err
	}
	price, err := nearrpc.StorageAmountPerByte(body)
	if err != nil {
		return nil, err
	}
	return []byte(price), nil
}

func (b *httpBackend) view(ctx context.Context, contract, method string, args []byte) ([]byte, error) {
	if b == nil || b.client == nil {
		return nil, fmt.Errorf("socialdb: http backend not configured")
	}
	body, err := b.client.PostJSON(ctx, "", nearrpc.CallFunction(contract, method, args))
	if err != nil {
		return nil, err
	}
	return nearrpc.CallFunctionResult(body)
}
