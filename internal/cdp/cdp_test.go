package cdp

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	weth = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	dai  = common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F")
	usdc = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	safe = common.HexToAddress("0x849D52316331967b6fF1198e5E32A0eB168D039d")
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// $10,000 of collateral at 0.8 against $3,000 of DAI.
func singleDebt() *Snapshot {
	s := &Snapshot{
		Owner: safe,
		Positions: []Position{
			{Asset: weth, Symbol: "WETH", Decimals: 18, Supplied: d("5"), PriceUSD: d("2000"), LiquidationThreshold: d("0.8"), CollateralEnabled: true},
			{Asset: dai, Symbol: "DAI", Decimals: 18, VariableDebt: d("3000"), PriceUSD: d("1"), LiquidationThreshold: d("0.77")},
		},
	}
	s.HealthFactor, _ = s.ComputedHealthFactor()
	return s
}

func TestSnapshotValues(t *testing.T) {
	s := singleDebt()
	assert.True(t, s.CollateralValue().Equal(d("8000")))
	assert.True(t, s.DebtValue().Equal(d("3000")))
	hf, ok := s.ComputedHealthFactor()
	require.True(t, ok)
	assert.Equal(t, "2.6667", hf.StringFixed(4))

	_, ok = (&Snapshot{}).ComputedHealthFactor()
	assert.False(t, ok)
}

func TestDeltaToRepaySingleDebt(t *testing.T) {
	// 8000 / 5 = 1600 allowed debt, so 3000 - 1600 = 1400 must go.
	delta, err := DeltaToRepay(singleDebt(), d("5"), dai, Variable, d("0.01"))
	require.NoError(t, err)
	assert.True(t, delta.Equal(d("1400")), delta.String())

	raw, err := DeltaToRepayBaseUnits(singleDebt(), d("5"), dai, Variable, d("0.01"))
	require.NoError(t, err)
	want, _ := new(big.Int).SetString("1400000000000000000000", 10)
	assert.Equal(t, want, raw)
}

func TestDeltaToRepayConverges(t *testing.T) {
	s := singleDebt()
	target, tol := d("3.3"), d("0.001")

	delta, err := DeltaToRepay(s, target, dai, Variable, tol)
	require.NoError(t, err)
	require.True(t, delta.IsPositive())

	s.Positions[1].VariableDebt = s.Positions[1].VariableDebt.Sub(delta)
	s.HealthFactor, _ = s.ComputedHealthFactor()
	assert.True(t, s.HealthFactor.Sub(target).Abs().LessThan(d("0.000001")), s.HealthFactor.String())

	again, err := DeltaToRepay(s, target, dai, Variable, tol)
	require.NoError(t, err)
	assert.True(t, again.IsZero(), again.String())
}

func TestDeltaToRepayAboveTarget(t *testing.T) {
	for _, target := range []string{"1.5", "2.6", "2.66"} {
		delta, err := DeltaToRepay(singleDebt(), d(target), dai, Variable, decimal.Zero)
		require.NoError(t, err)
		assert.True(t, delta.IsZero(), target)
	}

	s := singleDebt()
	s.HealthFactor = d("3")
	delta, err := DeltaToRepay(s, d("3"), dai, Variable, decimal.Zero)
	require.NoError(t, err)
	assert.True(t, delta.IsZero())
}

func TestDeltaToRepayNothingBorrowed(t *testing.T) {
	_, err := DeltaToRepay(singleDebt(), d("5"), dai, Stable, d("0.01"))
	assert.ErrorIs(t, err, ErrNothingToRepay)
	assert.ErrorContains(t, err, "no stable borrowed amount of token DAI")

	_, err = DeltaToRepay(singleDebt(), d("5"), weth, Variable, d("0.01"))
	assert.ErrorIs(t, err, ErrNothingToRepay)

	_, err = DeltaToRepay(singleDebt(), d("5"), usdc, Variable, d("0.01"))
	assert.ErrorIs(t, err, ErrNothingToRepay)

	_, err = DeltaToRepay(singleDebt(), decimal.Zero, dai, Variable, d("0.01"))
	assert.ErrorIs(t, err, ErrInvalidTarget)

	unpriced := singleDebt()
	unpriced.Positions[1].PriceUSD = decimal.Zero
	_, err = DeltaToRepay(unpriced, d("5"), dai, Variable, d("0.01"))
	assert.ErrorIs(t, err, ErrNoPrice)
	assert.ErrorContains(t, err, "DAI")
}

func TestDeltaToRepayClampsToBorrowed(t *testing.T) {
	s := singleDebt()
	// USDC debt alone already exceeds what the collateral supports at HF 5.
	s.Positions = append(s.Positions, Position{Asset: usdc, Symbol: "USDC", Decimals: 6, VariableDebt: d("2500"), PriceUSD: d("1")})
	s.HealthFactor, _ = s.ComputedHealthFactor()

	delta, err := DeltaToRepay(s, d("5"), dai, Variable, d("0.01"))
	require.NoError(t, err)
	assert.True(t, delta.Equal(d("3000")), delta.String())

	raw, err := DeltaToRepayBaseUnits(s, d("5"), usdc, Variable, decimal.Zero)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(2_500_000_000), raw)
}

func TestDeltaToRepayNeverExceedsBorrowed(t *testing.T) {
	for _, target := range []string{"1.01", "2.7", "4", "10", "1000"} {
		s := singleDebt()
		s.Positions = append(s.Positions, Position{Asset: usdc, Symbol: "USDC", Decimals: 6, StableDebt: d("700"), PriceUSD: d("0.999")})
		s.HealthFactor, _ = s.ComputedHealthFactor()
		for _, asset := range []struct {
			a    common.Address
			mode RateMode
		}{{dai, Variable}, {usdc, Stable}} {
			delta, err := DeltaToRepay(s, d(target), asset.a, asset.mode, decimal.Zero)
			require.NoError(t, err)
			pos, _ := s.Position(asset.a)
			assert.True(t, delta.LessThanOrEqual(pos.Debt(asset.mode)), "%s %s", target, delta)
			assert.False(t, delta.IsNegative())
		}
	}
}

func TestDeltaToRepayCountsOtherRateModeAsOtherDebt(t *testing.T) {
	s := singleDebt()
	s.Positions[1].StableDebt = d("500")
	s.HealthFactor, _ = s.ComputedHealthFactor()

	// 1600 allowed in total, 500 of it stays as stable debt.
	delta, err := DeltaToRepay(s, d("5"), dai, Variable, decimal.Zero)
	require.NoError(t, err)
	assert.True(t, delta.Equal(d("1900")), delta.String())
}

func TestDeltaToRepayDeadZone(t *testing.T) {
	s := singleDebt()
	// HF 2.6667, target 2.7 needs about 37.04 DAI, about 1.2% of the borrowed amount.
	delta, err := DeltaToRepay(s, d("2.7"), dai, Variable, d("0.01"))
	require.NoError(t, err)
	assert.Equal(t, "37.04", delta.StringFixed(2))

	delta, err = DeltaToRepay(s, d("2.7"), dai, Variable, d("0.02"))
	require.NoError(t, err)
	assert.True(t, delta.IsZero())
}

func TestToBaseUnitsTruncates(t *testing.T) {
	assert.Equal(t, big.NewInt(1_234_567), ToBaseUnits(d("1.2345679"), 6))
	assert.Zero(t, ToBaseUnits(d("0.0000009"), 6).Sign())
	assert.True(t, FromBaseUnits(big.NewInt(1_500_000), 6).Equal(d("1.5")))
}

func TestParseRateMode(t *testing.T) {
	m, err := ParseRateMode("stable")
	require.NoError(t, err)
	assert.Equal(t, Stable, m)
	m, err = ParseRateMode("2")
	require.NoError(t, err)
	assert.Equal(t, Variable, m)
	_, err = ParseRateMode("fixed")
	assert.Error(t, err)
}
