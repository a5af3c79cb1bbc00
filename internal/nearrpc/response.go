package nearrpc

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

// ErrMalformed is returned for responses that are not a JSON-RPC envelope of
// the expected shape.
var ErrMalformed = errors.New("nearrpc: malformed response")

// Error is a JSON-RPC level failure, or a view call that aborted inside the
// contract.
type Error struct {
	Code    int64
	Name    string
	Cause   string
	Message string
	Data    string
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := e.Message
	if e.Data != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Data)
	}
	if e.Cause != "" {
		return fmt.Sprintf("nearrpc: %s (%s): %s", e.Name, e.Cause, msg)
	}
	if e.Name != "" {
		return fmt.Sprintf("nearrpc: %s: %s", e.Name, msg)
	}
	return fmt.Sprintf("nearrpc: %s", msg)
}

// ExtractResult returns the raw "result" member of a JSON-RPC response, or an
// *Error when the response carries an "error" member.
func ExtractResult(body []byte) ([]byte, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || !gjson.ValidBytes(trimmed) {
		return nil, fmt.Errorf("%w: body is not JSON", ErrMalformed)
	}
	parsed := gjson.ParseBytes(trimmed)
	if !parsed.IsObject() {
		return nil, fmt.Errorf("%w: body is not an object", ErrMalformed)
	}
	if rpcErr := parsed.Get("error"); rpcErr.Exists() && rpcErr.Type != gjson.Null {
		return nil, decodeError(rpcErr)
	}
	result := parsed.Get("result")
	if !result.Exists() {
		return nil, fmt.Errorf("%w: missing result", ErrMalformed)
	}
	return []byte(result.Raw), nil
}

func decodeError(v gjson.Result) *Error {
	if v.Type == gjson.String {
		return &Error{Message: v.String()}
	}
	e := &Error{
		Code:    v.Get("code").Int(),
		Name:    v.Get("name").String(),
		Cause:   v.Get("cause.name").String(),
		Message: v.Get("message").String(),
	}
	if data := v.Get("data"); data.Exists() {
		if data.Type == gjson.String {
			e.Data = data.String()
		} else {
			e.Data = data.Raw
		}
	}
	if e.Message == "" {
		e.Message = "request failed"
	}
	return e
}

// CallFunctionResult unwraps a call_function query: the contract's return
// value arrives as an array of bytes under result.result. An error reported
// by the contract under result.error becomes an *Error.
func CallFunctionResult(body []byte) ([]byte, error) {
	raw, err := ExtractResult(body)
	if err != nil {
		return nil, err
	}
	result := gjson.ParseBytes(raw)
	if contractErr := result.Get("error"); contractErr.Exists() {
		return nil, &Error{Name: "CONTRACT_EXECUTION_ERROR", Message: contractErr.String()}
	}
	values := result.Get("result")
	if !values.IsArray() {
		return nil, fmt.Errorf("%w: call_function result is not a byte array", ErrMalformed)
	}
	out := make([]byte, 0, len(values.Raw)/2)
	var bad error
	values.ForEach(func(_, b gjson.Result) bool {
		n := b.Int()
		if b.Type != gjson.Number || n < 0 || n > 255 {
			bad = fmt.Errorf("%w: byte value %s out of range", ErrMalformed, b.Raw)
			return false
		}
		out = append(out, byte(n))
		return true
	})
	if bad != nil {
		return nil, bad
	}
	return out, nil
}

// StorageAmountPerByte reads runtime_config.storage_amount_per_byte from an
// EXPERIMENTAL_protocol_config response. The value is a decimal string.
func StorageAmountPerByte(body []byte) (string, error) {
	raw, err := ExtractResult(body)
	if err != nil {
		return "", err
	}
	price := gjson.GetBytes(raw, "runtime_config.storage_amount_per_byte")
	if !price.Exists() {
		return "", fmt.Errorf("%w: runtime_config.storage_amount_per_byte missing", ErrMalformed)
	}
	return price.String(), nil
}
