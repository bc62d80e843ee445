package models

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	dErrors "pollbook/pkg/domain-errors"
)

// DefaultVoteFee is 0.1 XLM expressed in stroops.
const DefaultVoteFee int64 = 1_000_000

var (
	maxAmount = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 127), big.NewInt(1))
	minAmount = new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 127))
)

// Amount is a signed 128-bit quantity in the smallest currency unit.
// The zero value is 0. Amounts are immutable.
type Amount struct {
	v *big.Int
}

func NewAmount(n int64) Amount {
	return Amount{v: big.NewInt(n)}
}

// ParseAmount parses a base-10 integer within the signed 128-bit range.
func ParseAmount(s string) (Amount, error) {
	v, ok := new(big.Int).SetString(strings.TrimSpace(s), 10)
	if !ok {
		return Amount{}, dErrors.New(dErrors.CodeInvalidInput, "amount must be a base-10 integer")
	}
	if v.Cmp(maxAmount) > 0 || v.Cmp(minAmount) < 0 {
		return Amount{}, dErrors.New(dErrors.CodeInvalidInput, "amount is outside the signed 128-bit range")
	}
	return Amount{v: v}, nil
}

func (a Amount) value() *big.Int {
	if a.v == nil {
		return new(big.Int)
	}
	return a.v
}

func (a Amount) String() string {
	return a.value().String()
}

func (a Amount) Equal(b Amount) bool {
	return a.value().Cmp(b.value()) == 0
}

// MarshalJSON encodes the amount as a decimal string.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("amount must be a JSON string: %w", err)
	}
	parsed, err := ParseAmount(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
