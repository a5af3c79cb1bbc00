package mock

import (
	"context"
	"fmt"
	"math/big"

	"github.com/tidwall/gjson"

	"github.com/nearsocial/bos_sdk_go/pkg/deposit"
	"github.com/nearsocial/bos_sdk_go/pkg/document"
	"github.com/nearsocial/bos_sdk_go/pkg/tx"
)

// Submit implements tx.Submitter. Failed executions are reported through the
// returned status, not as errors; state is only changed by successful calls.
//
// A call carries no signer, so the attached deposit of set is credited to the
// first account in its data.
func (c *Contract) Submit(ctx context.Context, call *tx.Call) (*tx.Status, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if call == nil {
		return nil, fmt.Errorf("mock socialdb: call is nil")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, call)

	if call.Receiver() != c.id {
		return failed(fmt.Sprintf("AccountDoesNotExist: %s", call.Receiver())), nil
	}
	var status *tx.Status
	switch call.Method() {
	case "set":
		status = c.set(call)
	case "storage_deposit":
		status = c.storageDeposit(call)
	default:
		status = failed(fmt.Sprintf("MethodResolveError(MethodNotFound): %s", call.Method()))
	}

	event := c.logger.Info()
	if !status.Success {
		event = c.logger.Warn().Str("reason", status.Reason)
	}
	event.Str("method", call.Method()).
		Str("deposit", call.Deposit().String()).
		Str("tx", status.TxHash).
		Bool("success", status.Success).
		Msg("mock socialdb call")
	return status, nil
}

func (c *Contract) set(call *tx.Call) *tx.Status {
	args := call.Args()
	raw := gjson.GetBytes(args, "data")
	if !raw.IsObject() {
		return failed("InvalidArgs: data must be an object")
	}
	data, err := document.Parse([]byte(raw.Raw))
	if err != nil {
		return failed(fmt.Sprintf("InvalidArgs: %v", err))
	}
	accounts := data.Keys()
	if len(accounts) == 0 {
		return &tx.Status{Success: true, TxHash: newTxHash()}
	}

	charges, merged, err := c.apply(c.root, data)
	if err != nil {
		return failed(fmt.Sprintf("Smart contract panicked: %v", err))
	}

	attached := call.Deposit()
	totals := make(map[string]*big.Int, len(accounts))
	for i, id := range accounts {
		acc, registered := c.accounts[id]
		total := new(big.Int)
		usage := int64(0)
		if registered {
			total.Set(acc.total)
			usage = acc.usage
		}
		if i == 0 {
			total.Add(total, attached)
		}
		if !registered && total.Sign() == 0 {
			return failed(fmt.Sprintf("Smart contract panicked: The account %s is not registered", id))
		}
		next := usage + charges[id]
		if next < 0 {
			next = 0
		}
		required := new(big.Int).Mul(big.NewInt(next), c.price)
		if required.Cmp(total) > 0 {
			short := new(big.Int).Sub(required, total)
			return failed(fmt.Sprintf("Smart contract panicked: Not enough storage balance for %s: requires %s more", id, deposit.FormatNEAR(short)))
		}
		totals[id] = total
	}

	for _, id := range accounts {
		acc := c.ensureAccount(id)
		acc.total = totals[id]
		acc.usage += charges[id]
		if acc.usage < 0 {
			acc.usage = 0
		}
	}
	c.root = merged
	return &tx.Status{Success: true, TxHash: newTxHash()}
}

func (c *Contract) storageDeposit(call *tx.Call) *tx.Status {
	id := argString(call.Args(), "account_id")
	if id == "" {
		return failed("InvalidArgs: account_id is required")
	}
	attached := call.Deposit()
	acc, registered := c.accounts[id]
	if !registered && attached.Sign() == 0 {
		return failed(fmt.Sprintf("Smart contract panicked: The attached deposit is less than the minimum storage balance for %s", id))
	}
	acc = c.ensureAccount(id)
	acc.total = new(big.Int).Add(acc.total, attached)
	return &tx.Status{Success: true, Value: balanceJSON(acc.total, c.available(acc)), TxHash: newTxHash()}
}
