// Package nearrpc shapes NEAR JSON-RPC 2.0 requests and unwraps their
// responses. It knows nothing about transport.
package nearrpc

import (
	"encoding/base64"

	"github.com/google/uuid"
)

const (
	Version = "2.0"

	MethodQuery          = "query"
	MethodProtocolConfig = "EXPERIMENTAL_protocol_config"

	FinalityFinal = "final"
)

// Request is a JSON-RPC 2.0 request envelope.
type Request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      string `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

// NewRequest returns a request with a fresh random id.
func NewRequest(method string, params any) Request {
	return Request{
		JSONRPC: Version,
		ID:      uuid.NewString(),
		Method:  method,
		Params:  params,
	}
}

// CallFunctionParams are the params of a view-function query.
type CallFunctionParams struct {
	RequestType string `json:"request_type"`
	Finality    string `json:"finality"`
	AccountID   string `json:"account_id"`
	MethodName  string `json:"method_name"`
	ArgsBase64  string `json:"args_base64"`
}

// CallFunction builds a query that runs a contract view method against the
// final block.
func CallFunction(contract, method string, args []byte) Request {
	return NewRequest(MethodQuery, CallFunctionParams{
		RequestType: "call_function",
		Finality:    FinalityFinal,
		AccountID:   contract,
		MethodName:  method,
		ArgsBase64:  base64.StdEncoding.EncodeToString(args),
	})
}

// ProtocolConfig builds the request used to read the current runtime config.
func ProtocolConfig() Request {
	return NewRequest(MethodProtocolConfig, map[string]string{"finality": FinalityFinal})
}
