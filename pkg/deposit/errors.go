package deposit

import (
	"errors"
	"fmt"
	"math/big"
)

var (
	// ErrDepositShortfall is returned when a deposit exceeds the configured ceiling.
	ErrDepositShortfall = errors.New("deposit: required deposit exceeds ceiling")
	// ErrInvalidAmount is returned for negative or malformed amounts.
	ErrInvalidAmount = errors.New("deposit: invalid amount")
)

// CeilingError carries the amount that tripped the safety ceiling.
type CeilingError struct {
	Required *big.Int
	Ceiling  *big.Int
}

func (e *CeilingError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("deposit: required deposit %s exceeds ceiling %s", FormatNEAR(e.Required), FormatNEAR(e.Ceiling))
}

func (e *CeilingError) Unwrap() error {
	return ErrDepositShortfall
}
