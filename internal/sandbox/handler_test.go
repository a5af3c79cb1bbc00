package sandbox_test

import (
	"context"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nearsocial/bos_sdk_go/internal/httpx"
	"github.com/nearsocial/bos_sdk_go/internal/nearrpc"
	"github.com/nearsocial/bos_sdk_go/internal/sandbox"
	"github.com/nearsocial/bos_sdk_go/pkg/document"
	"github.com/nearsocial/bos_sdk_go/pkg/socialdb"
	"github.com/nearsocial/bos_sdk_go/pkg/socialdb/mock"
	"github.com/nearsocial/bos_sdk_go/pkg/tx"
)

func newSandbox(t *testing.T) (*mock.Contract, string) {
	t.Helper()
	contract := mock.New(mock.WithPrice(big.NewInt(1)))
	srv := httptest.NewServer(sandbox.NewHandler(contract, zerolog.Nop()))
	t.Cleanup(srv.Close)
	return contract, srv.URL
}

func newClient(t *testing.T, url, contract string) *socialdb.Client {
	t.Helper()
	client, err := socialdb.New(url, contract, socialdb.WithTransport(httpx.WithRetryPolicy(httpx.NoRetry)))
	require.NoError(t, err)
	return client
}

func TestSandboxServesContractViews(t *testing.T) {
	contract, url := newSandbox(t)
	client := newClient(t, url, contract.ID())
	ctx := context.Background()

	contract.SetBalance("alice.near", big.NewInt(100))
	call, err := tx.NewBuilder().Build(contract.ID(), "set", map[string]any{
		"data": map[string]any{"alice.near": map[string]any{"profile": map[string]string{"name": "Alice <3"}}},
	}, nil)
	require.NoError(t, err)
	status, err := contract.Submit(ctx, call)
	require.NoError(t, err)
	require.True(t, status.Success, status.Reason)

	value, ok, err := client.ReadKey(ctx, document.Path{"alice.near", "profile", "name"})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `"Alice <3"`, string(value))

	balance, err := client.StorageBalance(ctx, "alice.near")
	require.NoError(t, err)
	assert.True(t, balance.Registered)
	assert.Equal(t, int64(100-contract.Usage("alice.near")), balance.Available.Int64())

	balance, err = client.StorageBalance(ctx, "bob.near")
	require.NoError(t, err)
	assert.False(t, balance.Registered)

	price, err := client.StoragePricePerByte(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), price.Int64())
}

func TestSandboxReportsContractErrors(t *testing.T) {
	_, url := newSandbox(t)
	other := newClient(t, url, "other.near")

	_, err := other.Get(context.Background(), "alice.near/**")
	require.Error(t, err)
	assert.ErrorIs(t, err, socialdb.ErrRemoteUnavailable)
	var rpcErr *nearrpc.Error
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, "CONTRACT_EXECUTION_ERROR", rpcErr.Name)
}

func TestSandboxRejectsUnknownMethods(t *testing.T) {
	contract := mock.New()
	srv := httptest.NewServer(sandbox.NewHandler(contract, zerolog.Nop()))
	defer srv.Close()

	transport, err := httpx.NewClient(srv.URL, httpx.WithRetryPolicy(httpx.NoRetry))
	require.NoError(t, err)
	body, err := transport.PostJSON(context.Background(), "", nearrpc.NewRequest("block", map[string]string{"finality": "final"}))
	require.NoError(t, err)
	_, err = nearrpc.ExtractResult(body)
	var rpcErr *nearrpc.Error
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, "REQUEST_VALIDATION_ERROR", rpcErr.Name)

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
