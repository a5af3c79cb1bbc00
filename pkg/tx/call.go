package tx

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// DefaultGas is the gas ceiling attached to SocialDB writes (300 TGas).
const DefaultGas uint64 = 300_000_000_000_000

// Builder produces Calls with a fixed gas ceiling.
type Builder struct {
	Gas uint64
}

// NewBuilder returns a Builder using DefaultGas.
func NewBuilder() Builder {
	return Builder{Gas: DefaultGas}
}

// Call is an immutable function-call descriptor.
type Call struct {
	receiver string
	method   string
	args     []byte
	gas      uint64
	deposit  *big.Int
}

// Build encodes args as compact JSON and returns the call descriptor. A nil
// deposit is zero. args may be a json.RawMessage, which is compacted as is.
func (b Builder) Build(receiver, method string, args any, deposit *big.Int) (*Call, error) {
	if strings.TrimSpace(receiver) == "" {
		return nil, errors.New("tx: receiver is required")
	}
	if strings.TrimSpace(method) == "" {
		return nil, errors.New("tx: method is required")
	}
	if deposit != nil && deposit.Sign() < 0 {
		return nil, fmt.Errorf("tx: negative deposit %s", deposit)
	}
	encoded, err := encodeArgs(args)
	if err != nil {
		return nil, fmt.Errorf("tx: encode %s args: %w", method, err)
	}
	gas := b.Gas
	if gas == 0 {
		gas = DefaultGas
	}
	return &Call{
		receiver: receiver,
		method:   method,
		args:     encoded,
		gas:      gas,
		deposit:  cloneAmount(deposit),
	}, nil
}

// Receiver is the contract account the call is sent to.
func (c *Call) Receiver() string { return c.receiver }

// Method is the contract method name.
func (c *Call) Method() string { return c.method }

// Gas is the attached gas limit.
func (c *Call) Gas() uint64 { return c.gas }

// Args returns a copy of the encoded arguments.
func (c *Call) Args() []byte {
	return append([]byte(nil), c.args...)
}

// Deposit returns a copy of the attached deposit in yoctoNEAR.
func (c *Call) Deposit() *big.Int {
	return cloneAmount(c.deposit)
}

// WithDeposit returns a copy of c carrying deposit.
func (c *Call) WithDeposit(deposit *big.Int) *Call {
	next := *c
	next.args = c.Args()
	next.deposit = cloneAmount(deposit)
	return &next
}

type callJSON struct {
	Receiver   string          `json:"receiver_id"`
	Method     string          `json:"method_name"`
	Args       json.RawMessage `json:"args"`
	ArgsBase64 string          `json:"args_base64"`
	Gas        string          `json:"gas"`
	Deposit    string          `json:"deposit"`
}

// MarshalJSON renders the call for an external signer. Amounts are decimal
// strings since they exceed the float64 range.
func (c *Call) MarshalJSON() ([]byte, error) {
	return marshalCompact(callJSON{
		Receiver:   c.receiver,
		Method:     c.method,
		Args:       json.RawMessage(c.args),
		ArgsBase64: base64.StdEncoding.EncodeToString(c.args),
		Gas:        fmt.Sprintf("%d", c.gas),
		Deposit:    c.deposit.String(),
	})
}

func (c *Call) String() string {
	return fmt.Sprintf("%s.%s(%d bytes, gas=%d, deposit=%s)", c.receiver, c.method, len(c.args), c.gas, c.deposit)
}

func encodeArgs(args any) ([]byte, error) {
	if args == nil {
		return []byte("{}"), nil
	}
	switch v := args.(type) {
	case json.RawMessage:
		return compact(v)
	case []byte:
		return compact(v)
	}
	return marshalCompact(args)
}

func compact(data []byte) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := json.Compact(buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func marshalCompact(v any) ([]byte, error) {
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func cloneAmount(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}
