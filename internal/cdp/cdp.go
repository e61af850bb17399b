package cdp

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

var (
	ErrNothingToRepay = errors.New("nothing to repay")
	ErrInvalidTarget  = errors.New("target health factor must be positive")
	ErrNoPrice        = errors.New("asset price is zero")
)

// RateMode is the Aave v3 interest rate mode of a debt.
type RateMode uint8

const (
	Stable   RateMode = 1
	Variable RateMode = 2
)

func (r RateMode) String() string {
	switch r {
	case Stable:
		return "stable"
	case Variable:
		return "variable"
	}
	return fmt.Sprintf("RateMode(%d)", uint8(r))
}

// ParseRateMode accepts "stable", "variable", "1" or "2".
func ParseRateMode(s string) (RateMode, error) {
	switch s {
	case "stable", "1":
		return Stable, nil
	case "variable", "2", "":
		return Variable, nil
	}
	return 0, fmt.Errorf("unknown rate mode %q", s)
}

// Position is one reserve of a borrower. Balances are in token units, not base units.
type Position struct {
	Asset                common.Address
	Symbol               string
	Decimals             int32
	Supplied             decimal.Decimal
	StableDebt           decimal.Decimal
	VariableDebt         decimal.Decimal
	PriceUSD             decimal.Decimal
	LiquidationThreshold decimal.Decimal // fraction, 0.8 for 80%
	CollateralEnabled    bool
}

func (p Position) Debt(mode RateMode) decimal.Decimal {
	if mode == Stable {
		return p.StableDebt
	}
	return p.VariableDebt
}

func (p Position) name() string {
	if p.Symbol != "" {
		return p.Symbol
	}
	return p.Asset.Hex()
}

// Snapshot is a borrower's position at one block. It is never refreshed in place.
type Snapshot struct {
	Owner        common.Address
	Block        uint64
	Positions    []Position
	HealthFactor decimal.Decimal
}

// Position finds the reserve of asset.
func (s *Snapshot) Position(asset common.Address) (Position, bool) {
	for _, p := range s.Positions {
		if p.Asset == asset {
			return p, true
		}
	}
	return Position{}, false
}

// CollateralValue sums supplied * price * liquidation threshold over collateral-enabled reserves.
func (s *Snapshot) CollateralValue() decimal.Decimal {
	sum := decimal.Zero
	for _, p := range s.Positions {
		if p.CollateralEnabled {
			sum = sum.Add(p.Supplied.Mul(p.PriceUSD).Mul(p.LiquidationThreshold))
		}
	}
	return sum
}

// DebtValue sums both debt modes over every reserve.
func (s *Snapshot) DebtValue() decimal.Decimal {
	sum := decimal.Zero
	for _, p := range s.Positions {
		sum = sum.Add(p.StableDebt.Add(p.VariableDebt).Mul(p.PriceUSD))
	}
	return sum
}

// ComputedHealthFactor derives the health factor from the positions. It is false when there is no debt.
func (s *Snapshot) ComputedHealthFactor() (decimal.Decimal, bool) {
	debt := s.DebtValue()
	if debt.IsZero() {
		return decimal.Zero, false
	}
	return s.CollateralValue().Div(debt), true
}

// DeltaToRepay returns how much of asset's mode debt must be repaid, in token units, for the health
// factor to reach target. The result is zero when the position is already at or above target, or
// when the delta is under tolerance * borrowed. It never exceeds the borrowed amount.
func DeltaToRepay(s *Snapshot, target decimal.Decimal, asset common.Address, mode RateMode, tolerance decimal.Decimal) (decimal.Decimal, error) {
	if !target.IsPositive() {
		return decimal.Zero, ErrInvalidTarget
	}
	pos, ok := s.Position(asset)
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s is not a reserve of %s", ErrNothingToRepay, asset.Hex(), s.Owner.Hex())
	}
	borrowed := pos.Debt(mode)
	if !borrowed.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: there is no %s borrowed amount of token %s", ErrNothingToRepay, mode, pos.name())
	}
	if !pos.PriceUSD.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrNoPrice, pos.name())
	}
	hf := s.HealthFactor
	if hf.IsZero() {
		hf, _ = s.ComputedHealthFactor()
	}
	if hf.GreaterThanOrEqual(target) {
		return decimal.Zero, nil
	}

	otherDebt := decimal.Zero
	for _, p := range s.Positions {
		debt := p.StableDebt.Add(p.VariableDebt)
		if p.Asset == asset {
			debt = debt.Sub(borrowed)
		}
		otherDebt = otherDebt.Add(debt.Mul(p.PriceUSD))
	}

	newDebtValue := s.CollateralValue().Div(target).Sub(otherDebt)
	delta := borrowed.Sub(newDebtValue.Div(pos.PriceUSD))

	switch {
	case delta.GreaterThan(borrowed):
		delta = borrowed
	case !delta.IsPositive():
		return decimal.Zero, nil
	}
	if delta.LessThan(tolerance.Mul(borrowed)) {
		return decimal.Zero, nil
	}
	return delta, nil
}

// DeltaToRepayBaseUnits is DeltaToRepay truncated to the token's base units.
func DeltaToRepayBaseUnits(s *Snapshot, target decimal.Decimal, asset common.Address, mode RateMode, tolerance decimal.Decimal) (*big.Int, error) {
	delta, err := DeltaToRepay(s, target, asset, mode, tolerance)
	if err != nil {
		return nil, err
	}
	pos, _ := s.Position(asset)
	return ToBaseUnits(delta, pos.Decimals), nil
}

// ToBaseUnits truncates amount * 10^decimals.
func ToBaseUnits(amount decimal.Decimal, decimals int32) *big.Int {
	return amount.Shift(decimals).Truncate(0).BigInt()
}

// FromBaseUnits converts a raw token amount to token units.
func FromBaseUnits(raw *big.Int, decimals int32) decimal.Decimal {
	return decimal.NewFromBigInt(raw, -decimals)
}
