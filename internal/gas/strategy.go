package gas

import (
	"errors"
	"fmt"
	"math/big"
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
)

// ErrUnknownStrategy is returned by ParseStrategy for names outside Strategies.
var ErrUnknownStrategy = errors.New("unknown gas strategy")

// Strategy holds the multipliers applied to the gas estimate and to the base fee.
type Strategy struct {
	Name            string
	LimitMultiplier decimal.Decimal
	FeeMultiplier   decimal.Decimal
}

var (
	Normal = Strategy{
		Name:            "normal",
		LimitMultiplier: decimal.RequireFromString("1.4"),
		FeeMultiplier:   decimal.RequireFromString("1.2"),
	}
	Aggressive = Strategy{
		Name:            "aggressive",
		LimitMultiplier: decimal.NewFromInt(3),
		FeeMultiplier:   decimal.NewFromInt(2),
	}
)

// Strategies indexes the named strategies by lowercase name.
var Strategies = map[string]Strategy{
	Normal.Name:     Normal,
	Aggressive.Name: Aggressive,
}

// ParseStrategy resolves a strategy by name (case-insensitive).
func ParseStrategy(name string) (Strategy, error) {
	s, ok := Strategies[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Strategy{}, fmt.Errorf("%w: %q (known: %s)", ErrUnknownStrategy, name, strings.Join(Names(), ", "))
	}
	return s, nil
}

// Names lists the known strategy names, sorted.
func Names() []string {
	out := make([]string, 0, len(Strategies))
	for n := range Strategies {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Equal compares name and both multipliers.
func (s Strategy) Equal(o Strategy) bool {
	return s.Name == o.Name && s.LimitMultiplier.Equal(o.LimitMultiplier) && s.FeeMultiplier.Equal(o.FeeMultiplier)
}

func (s Strategy) String() string {
	return fmt.Sprintf("%s(limit x%s, fee x%s)", s.Name, s.LimitMultiplier, s.FeeMultiplier)
}

// GasLimit returns floor(estimate * LimitMultiplier).
func (s Strategy) GasLimit(estimate uint64) uint64 {
	v := decimal.NewFromBigInt(new(big.Int).SetUint64(estimate), 0).Mul(s.LimitMultiplier).Floor()
	return v.BigInt().Uint64()
}

// MaxFee returns priority + floor(baseFee * FeeMultiplier).
func (s Strategy) MaxFee(baseFee, priority *big.Int) *big.Int {
	scaled := decimal.NewFromBigInt(baseFee, 0).Mul(s.FeeMultiplier).Floor().BigInt()
	return scaled.Add(scaled, priority)
}

// Selector holds the active strategy of one executor. Set performs no validation.
type Selector struct {
	mu  sync.RWMutex
	cur Strategy
}

// NewSelector starts with s, or Normal when s is the zero value.
func NewSelector(s Strategy) *Selector {
	if s.Name == "" && s.LimitMultiplier.IsZero() && s.FeeMultiplier.IsZero() {
		s = Normal
	}
	return &Selector{cur: s}
}

func (sl *Selector) Get() Strategy {
	sl.mu.RLock()
	defer sl.mu.RUnlock()
	return sl.cur
}

func (sl *Selector) Set(s Strategy) {
	sl.mu.Lock()
	sl.cur = s
	sl.mu.Unlock()
}
