package gas

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum"
)

// HistoryReader is the eth_feeHistory subset of *ethclient.Client.
type HistoryReader interface {
	FeeHistory(ctx context.Context, blockCount uint64, lastBlock *big.Int, rewardPercentiles []float64) (*ethereum.FeeHistory, error)
}

var ErrEmptyFeeHistory = errors.New("feeHistory: empty reward")

// RewardStats aggregates min/avg/max priority fees for one percentile.
type RewardStats struct {
	Min *big.Int
	Avg *big.Int
	Max *big.Int
}

// History summarises the last blocks of eth_feeHistory.
type History struct {
	OldestBlock *big.Int
	// NextBaseFee is the base fee of the block after the newest one in the window.
	NextBaseFee *big.Int
	Rewards     map[int]RewardStats
}

// FeeHistoryStats returns min/avg/max rewards over the last blocks for the given percentiles.
func FeeHistoryStats(ctx context.Context, hr HistoryReader, blocks int, percentiles []int) (*History, error) {
	if blocks <= 0 {
		blocks = 100
	}
	if len(percentiles) == 0 {
		percentiles = []int{50, 95, 99}
	}
	pcts := make([]float64, len(percentiles))
	for i, p := range percentiles {
		pcts[i] = float64(p)
	}

	fh, err := hr.FeeHistory(ctx, uint64(blocks), nil, pcts)
	if err != nil {
		return nil, err
	}
	if len(fh.Reward) == 0 {
		return nil, ErrEmptyFeeHistory
	}

	out := &History{OldestBlock: fh.OldestBlock, Rewards: make(map[int]RewardStats, len(percentiles))}
	if n := len(fh.BaseFee); n > 0 && fh.BaseFee[n-1] != nil {
		out.NextBaseFee = new(big.Int).Set(fh.BaseFee[n-1])
	}
	for j, p := range percentiles {
		st := RewardStats{Avg: new(big.Int), Max: new(big.Int)}
		rows := 0
		for _, row := range fh.Reward {
			if j >= len(row) || row[j] == nil {
				continue
			}
			v := row[j]
			if st.Min == nil || v.Cmp(st.Min) < 0 {
				st.Min = new(big.Int).Set(v)
			}
			if v.Cmp(st.Max) > 0 {
				st.Max = new(big.Int).Set(v)
			}
			st.Avg.Add(st.Avg, v)
			rows++
		}
		if rows > 0 {
			st.Avg.Div(st.Avg, big.NewInt(int64(rows)))
		}
		if st.Min == nil {
			st.Min = new(big.Int)
		}
		out.Rewards[p] = st
	}
	return out, nil
}

// PeakTip is the largest reward seen across all percentiles.
func (h *History) PeakTip() *big.Int {
	peak := new(big.Int)
	for _, st := range h.Rewards {
		if st.Max != nil && st.Max.Cmp(peak) > 0 {
			peak = st.Max
		}
	}
	return new(big.Int).Set(peak)
}
