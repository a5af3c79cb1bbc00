package nearrpc

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractResult(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected string
		wantErr  error
	}{
		{
			name:     "object result",
			body:     `{"jsonrpc":"2.0","id":"1","result":{"block_height":7}}`,
			expected: `{"block_height":7}`,
		},
		{
			name:     "null error is ignored",
			body:     `{"jsonrpc":"2.0","id":"1","error":null,"result":"ok"}`,
			expected: `"ok"`,
		},
		{
			name:    "missing result",
			body:    `{"jsonrpc":"2.0","id":"1"}`,
			wantErr: ErrMalformed,
		},
		{
			name:    "empty body",
			body:    ``,
			wantErr: ErrMalformed,
		},
		{
			name:    "not an object",
			body:    `[1,2]`,
			wantErr: ErrMalformed,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got, err := ExtractResult([]byte(tc.body))
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, string(got))
		})
	}
}

func TestExtractResultError(t *testing.T) {
	body := `{"jsonrpc":"2.0","id":"1","error":{"name":"HANDLER_ERROR","cause":{"name":"UNKNOWN_ACCOUNT","info":{}},"code":-32000,"message":"Server error","data":"account nobody.near does not exist"}}`
	_, err := ExtractResult([]byte(body))
	require.Error(t, err)

	var rpcErr *Error
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, int64(-32000), rpcErr.Code)
	assert.Equal(t, "HANDLER_ERROR", rpcErr.Name)
	assert.Equal(t, "UNKNOWN_ACCOUNT", rpcErr.Cause)
	assert.Contains(t, err.Error(), "account nobody.near does not exist")
}

func TestCallFunctionResult(t *testing.T) {
	payload := []byte(`{"alice.near":{"profile":{"name":"Alice"}}}`)
	values := make([]int, len(payload))
	for i, b := range payload {
		values[i] = int(b)
	}
	encoded, err := json.Marshal(values)
	require.NoError(t, err)

	body := `{"jsonrpc":"2.0","id":"1","result":{"result":` + string(encoded) + `,"logs":[],"block_height":1,"block_hash":"h"}}`
	got, err := CallFunctionResult([]byte(body))
	require.NoError(t, err)
	assert.Equal(t, string(payload), string(got))

	_, err = CallFunctionResult([]byte(`{"result":{"error":"wasm execution failed with error: MethodNotFound","logs":[]}}`))
	var rpcErr *Error
	require.True(t, errors.As(err, &rpcErr))
	assert.Contains(t, rpcErr.Message, "MethodNotFound")

	_, err = CallFunctionResult([]byte(`{"result":{"result":[1,300]}}`))
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = CallFunctionResult([]byte(`{"result":{"result":"nope"}}`))
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestStorageAmountPerByte(t *testing.T) {
	price, err := StorageAmountPerByte([]byte(`{"result":{"runtime_config":{"storage_amount_per_byte":"10000000000000000000"}}}`))
	require.NoError(t, err)
	assert.Equal(t, "10000000000000000000", price)

	_, err = StorageAmountPerByte([]byte(`{"result":{"runtime_config":{}}}`))
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestCallFunctionRequest(t *testing.T) {
	req := CallFunction("social.near", "get", []byte(`{"keys":["alice.near/**"]}`))
	assert.Equal(t, Version, req.JSONRPC)
	assert.Equal(t, MethodQuery, req.Method)
	assert.NotEmpty(t, req.ID)
	assert.NotEqual(t, req.ID, CallFunction("social.near", "get", nil).ID)

	params, ok := req.Params.(CallFunctionParams)
	require.True(t, ok)
	assert.Equal(t, "call_function", params.RequestType)
	assert.Equal(t, "final", params.Finality)
	args, err := base64.StdEncoding.DecodeString(params.ArgsBase64)
	require.NoError(t, err)
	assert.Equal(t, `{"keys":["alice.near/**"]}`, string(args))
}
