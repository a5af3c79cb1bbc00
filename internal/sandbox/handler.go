// Package sandbox serves the NEAR JSON-RPC subset used by the SocialDB client
// on top of any socialdb.Backend, typically the in-memory mock contract.
package sandbox

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"github.com/nearsocial/bos_sdk_go/internal/nearrpc"
	"github.com/nearsocial/bos_sdk_go/pkg/socialdb"
)

const (
	codeParseError  = -32700
	codeServerError = -32000
	maxRequestBytes = 1 << 20
)

type rpcError struct {
	Code    int64           `json:"code"`
	Name    string          `json:"name"`
	Cause   json.RawMessage `json:"cause,omitempty"`
	Message string          `json:"message"`
	Data    string          `json:"data,omitempty"`
}

type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

// Handler answers query/call_function for any view method of the backend and
// EXPERIMENTAL_protocol_config.
type Handler struct {
	backend socialdb.Backend
	logger  zerolog.Logger
	height  atomic.Int64
}

// NewHandler returns a Handler over backend.
func NewHandler(backend socialdb.Backend, logger zerolog.Logger) *Handler {
	h := &Handler{backend: backend, logger: logger}
	h.height.Store(1)
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes))
	if err != nil || !gjson.ValidBytes(body) {
		writeJSON(w, response{JSONRPC: nearrpc.Version, ID: json.RawMessage("null"), Error: &rpcError{
			Code: codeParseError, Name: "REQUEST_VALIDATION_ERROR", Message: "Parse error",
		}})
		return
	}
	req := gjson.ParseBytes(body)
	id := json.RawMessage(req.Get("id").Raw)
	if len(id) == 0 {
		id = json.RawMessage("null")
	}
	method := req.Get("method").String()
	log := h.logger.With().Str("rpc_method", method).Logger()

	var result json.RawMessage
	var rpcErr *rpcError
	switch method {
	case nearrpc.MethodQuery:
		result, rpcErr = h.query(r.Context(), req.Get("params"))
	case nearrpc.MethodProtocolConfig:
		result, rpcErr = h.protocolConfig(r.Context())
	default:
		rpcErr = &rpcError{Code: codeServerError, Name: "REQUEST_VALIDATION_ERROR", Message: "Method not found", Data: method}
	}
	if rpcErr != nil {
		log.Warn().Str("error", rpcErr.Name).Str("data", rpcErr.Data).Msg("rpc request failed")
	} else {
		log.Debug().Msg("rpc request served")
	}
	writeJSON(w, response{JSONRPC: nearrpc.Version, ID: id, Result: result, Error: rpcErr})
}

func (h *Handler) query(ctx context.Context, params gjson.Result) (json.RawMessage, *rpcError) {
	if kind := params.Get("request_type").String(); kind != "call_function" {
		return nil, &rpcError{Code: codeServerError, Name: "REQUEST_VALIDATION_ERROR", Message: "unsupported request_type", Data: kind}
	}
	args, err := base64.StdEncoding.DecodeString(params.Get("args_base64").String())
	if err != nil {
		return nil, &rpcError{Code: codeServerError, Name: "REQUEST_VALIDATION_ERROR", Message: "invalid args_base64", Data: err.Error()}
	}
	contract := params.Get("account_id").String()
	parsed := gjson.ParseBytes(args)

	var value []byte
	switch method := params.Get("method_name").String(); method {
	case "get":
		var keys []string
		for _, k := range parsed.Get("keys").Array() {
			keys = append(keys, k.String())
		}
		value, err = h.backend.Get(ctx, contract, keys)
	case "storage_balance_of":
		value, err = h.backend.StorageBalanceOf(ctx, contract, parsed.Get("account_id").String())
	default:
		return h.block(contractError("MethodResolveError(MethodNotFound): " + method)), nil
	}
	if err != nil {
		return h.block(contractError(err.Error())), nil
	}
	return h.block(callResult(value)), nil
}

func (h *Handler) protocolConfig(ctx context.Context) (json.RawMessage, *rpcError) {
	price, err := h.backend.StoragePricePerByte(ctx)
	if err != nil {
		return nil, &rpcError{Code: codeServerError, Name: "HANDLER_ERROR", Message: "Server error", Data: err.Error()}
	}
	out, err := json.Marshal(map[string]any{
		"runtime_config": map[string]string{"storage_amount_per_byte": string(price)},
	})
	if err != nil {
		return nil, &rpcError{Code: codeServerError, Name: "INTERNAL_ERROR", Message: err.Error()}
	}
	return out, nil
}

// block adds the block fields every query result carries.
func (h *Handler) block(fields []byte) json.RawMessage {
	height := h.height.Add(1)
	out := append([]byte(nil), fields[:len(fields)-1]...)
	out = append(out, `,"block_height":`...)
	out = strconv.AppendInt(out, height, 10)
	out = append(out, `,"block_hash":"`...)
	out = append(out, uuid.NewString()...)
	out = append(out, `"}`...)
	return out
}

// callResult encodes a view return value the way nodes do: as an array of bytes.
func callResult(value []byte) []byte {
	out := []byte(`{"result":[`)
	for i, b := range value {
		if i > 0 {
			out = append(out, ',')
		}
		out = strconv.AppendInt(out, int64(b), 10)
	}
	return append(out, `],"logs":[]}`...)
}

func contractError(msg string) []byte {
	quoted, _ := json.Marshal(msg)
	return append(append([]byte(`{"error":`), quoted...), `,"logs":[]}`...)
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
