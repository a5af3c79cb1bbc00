package deposit

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/nearsocial/bos_sdk_go/pkg/document"
)

// Policy tunes how quotes are turned into attached deposits.
type Policy struct {
	// Estimator sizes the byte delta. Nil means WireEstimator.
	Estimator Estimator
	// Floor is the smallest deposit ever attached. Nil means zero.
	Floor *big.Int
	// Ceiling rejects deposits above it with ErrDepositShortfall. Nil disables the check.
	Ceiling *big.Int
	// ExtraBytes is headroom added to every write.
	ExtraBytes int64
	// RegistrationBytes is charged when the account has no storage record yet.
	RegistrationBytes int64
	// MinRegistration is the minimum deposit accepted for a first registration.
	MinRegistration *big.Int
}

// DefaultPolicy charges exactly the wire byte delta with a zero floor.
func DefaultPolicy() Policy {
	return Policy{Estimator: WireEstimator{}}
}

// SocialDBPolicy reproduces the NearSocial tooling defaults: the per-node
// estimate, 5000 bytes of headroom, and 500 bytes plus a 2000-byte minimum
// balance for accounts registering storage for the first time.
func SocialDBPolicy() Policy {
	return Policy{
		Estimator:         SocialEstimator{},
		ExtraBytes:        5000,
		RegistrationBytes: 500,
		MinRegistration:   cost(2000, StorageCostPerByte),
	}
}

// Balance is an account's storage balance as reported by storage_balance_of.
type Balance struct {
	Registered bool
	Total      *big.Int
	Available  *big.Int
}

// Quote is the first-phase deposit estimate for a write.
type Quote struct {
	DeltaBytes   int64
	ExtraBytes   int64
	PricePerByte *big.Int
	Required     *big.Int
}

// Settlement is a quote reconciled against the current balance and price.
type Settlement struct {
	Quote        Quote
	Bytes        int64
	PricePerByte *big.Int
	Required     *big.Int
	Available    *big.Int
	Attached     *big.Int
	// Covered is true when the existing balance pays for the write.
	Covered bool
	// Registration is true when the account had no storage record.
	Registration bool
}

// RequiredDeposit returns the balance needed to store next where existing is
// stored now, minus what alreadyPaid covers. Sizes are compact JSON lengths;
// shrinking writes require nothing.
func RequiredDeposit(existing, next json.RawMessage, pricePerByte, alreadyPaid *big.Int) *big.Int {
	delta := WireEstimator{}.DeltaBytes(existing, next)
	return shortfall(cost(delta, pricePerByte), alreadyPaid)
}

// Engine performs the quote and reconcile phases for a policy.
type Engine struct {
	policy Policy
}

// NewEngine returns an Engine for policy.
func NewEngine(policy Policy) *Engine {
	if policy.Estimator == nil {
		policy.Estimator = WireEstimator{}
	}
	return &Engine{policy: policy}
}

// Policy returns the engine's policy.
func (e *Engine) Policy() Policy {
	return e.policy
}

// Quote sizes the write of next over existing at the given price.
func (e *Engine) Quote(existing, next json.RawMessage, pricePerByte *big.Int) (*Quote, error) {
	if err := checkPrice(pricePerByte); err != nil {
		return nil, err
	}
	return e.quote(e.policy.Estimator.DeltaBytes(existing, next), pricePerByte)
}

// QuoteWrite sizes data, a complete set document, against stored, the remote
// tree it will be merged into. Estimators without a WriteEstimator
// implementation compare the two documents as whole values.
func (e *Engine) QuoteWrite(stored, data *document.Node, pricePerByte *big.Int) (*Quote, error) {
	if err := checkPrice(pricePerByte); err != nil {
		return nil, err
	}
	if est, ok := e.policy.Estimator.(WriteEstimator); ok {
		return e.quote(est.WriteDelta(stored, data), pricePerByte)
	}
	next, err := data.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("deposit: encode write: %w", err)
	}
	var existing json.RawMessage
	if stored != nil {
		if existing, err = stored.MarshalJSON(); err != nil {
			return nil, fmt.Errorf("deposit: encode stored data: %w", err)
		}
	}
	return e.quote(e.policy.Estimator.DeltaBytes(existing, next), pricePerByte)
}

func (e *Engine) quote(delta int64, pricePerByte *big.Int) (*Quote, error) {
	q := &Quote{
		DeltaBytes:   delta,
		ExtraBytes:   e.policy.ExtraBytes,
		PricePerByte: clone(pricePerByte),
		Required:     cost(delta+e.policy.ExtraBytes, pricePerByte),
	}
	if err := e.checkCeiling(q.Required); err != nil {
		return nil, err
	}
	return q, nil
}

// Reconcile reprices q with the freshly resolved price and attaches only what
// the current balance does not already cover. A nil price keeps the quoted one;
// a nil balance is an unregistered account.
func (e *Engine) Reconcile(q *Quote, balance *Balance, pricePerByte *big.Int) (*Settlement, error) {
	if q == nil {
		return nil, fmt.Errorf("deposit: quote is nil")
	}
	if pricePerByte == nil {
		pricePerByte = q.PricePerByte
	}
	if err := checkPrice(pricePerByte); err != nil {
		return nil, err
	}

	registration := balance == nil || !balance.Registered
	bytes := q.DeltaBytes + q.ExtraBytes
	if registration {
		bytes += e.policy.RegistrationBytes
	}
	required := cost(bytes, pricePerByte)

	available := new(big.Int)
	if balance != nil && balance.Available != nil {
		available.Set(balance.Available)
	}

	short := shortfall(required, available)
	if registration && e.policy.MinRegistration != nil {
		short = maxAmount(short, e.policy.MinRegistration)
	}
	covered := short.Sign() == 0

	floor := e.policy.Floor
	if floor == nil {
		floor = new(big.Int)
	}
	attached := maxAmount(short, floor)
	if err := e.checkCeiling(attached); err != nil {
		return nil, err
	}

	return &Settlement{
		Quote:        *q,
		Bytes:        bytes,
		PricePerByte: clone(pricePerByte),
		Required:     required,
		Available:    available,
		Attached:     attached,
		Covered:      covered,
		Registration: registration,
	}, nil
}

func (e *Engine) checkCeiling(amount *big.Int) error {
	if e.policy.Ceiling == nil || amount.Cmp(e.policy.Ceiling) <= 0 {
		return nil
	}
	return &CeilingError{Required: clone(amount), Ceiling: clone(e.policy.Ceiling)}
}

func checkPrice(price *big.Int) error {
	if price == nil || price.Sign() < 0 {
		return fmt.Errorf("%w: storage price must be a non-negative integer", ErrInvalidAmount)
	}
	return nil
}
