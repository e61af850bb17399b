package gas

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/core/types"
)

var ErrNoBaseFee = errors.New("no baseFee (pre-1559?)")

// HeaderReader is the part of ethclient used for the base fee.
type HeaderReader interface {
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
}

// TipSuggester answers eth_maxPriorityFeePerGas.
type TipSuggester interface {
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
}

// FeeSource combines both reads.
type FeeSource interface {
	HeaderReader
	TipSuggester
}

// Fees are the EIP-1559 fee fields of a transaction.
type Fees struct {
	Tip     *big.Int
	FeeCap  *big.Int
	BaseFee *big.Int
}

// Latest base fee and head number.
func LatestBaseFee(ctx context.Context, hr HeaderReader) (*big.Int, *big.Int, error) {
	h, err := hr.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	if h.BaseFee == nil {
		return nil, h.Number, ErrNoBaseFee
	}
	return new(big.Int).Set(h.BaseFee), new(big.Int).Set(h.Number), nil
}

// Suggest derives the fees under s. Non-nil tip or feeCap are taken verbatim and skip the
// corresponding network read.
func Suggest(ctx context.Context, src FeeSource, s Strategy, tip, feeCap *big.Int) (Fees, error) {
	out := Fees{}
	if tip != nil {
		out.Tip = new(big.Int).Set(tip)
	} else {
		t, err := src.SuggestGasTipCap(ctx)
		if err != nil {
			return Fees{}, fmt.Errorf("priority fee: %w", err)
		}
		out.Tip = t
	}
	if feeCap != nil {
		out.FeeCap = new(big.Int).Set(feeCap)
		return out, nil
	}
	base, _, err := LatestBaseFee(ctx, src)
	if err != nil {
		return Fees{}, fmt.Errorf("base fee: %w", err)
	}
	out.BaseFee = base
	out.FeeCap = s.MaxFee(base, out.Tip)
	return out, nil
}

func GweiToWei(g int64) *big.Int {
	x := new(big.Int).SetInt64(g)
	return x.Mul(x, big.NewInt(1_000_000_000))
}

// Human-readable helpers (ETH/gwei).
func FmtETH(x *big.Int) string {
	if x == nil {
		return "0"
	}
	r := new(big.Rat).SetFrac(new(big.Int).Set(x), big.NewInt(1_000_000_000_000_000_000))
	return r.FloatString(6)
}

func FmtGwei(x *big.Int) string {
	if x == nil {
		return "0"
	}
	r := new(big.Rat).SetFrac(new(big.Int).Set(x), big.NewInt(1_000_000_000))
	return r.FloatString(2)
}
