package main

import (
	"fmt"
	"io"
	"math/big"
	"sort"

	"github.com/spf13/cobra"

	"github.com/ligun0805/roles-keeper/internal/gas"
)

func newFeesCmd(a *app) *cobra.Command {
	var (
		blocks   int
		pcts     []int
		gasUnits uint64
	)
	cmd := &cobra.Command{
		Use:   "fees",
		Short: "Print the current base fee, the fees each gas strategy would pay and recent priority fees",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ec, err := a.dial(cmd.Context(), a.st.RPCURL)
			if err != nil {
				return err
			}
			base, head, err := gas.LatestBaseFee(cmd.Context(), ec)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "[net] head=%s baseFee(now): %s gwei\n", head, gas.FmtGwei(base))

			tip, err := ec.SuggestGasTipCap(cmd.Context())
			if err != nil {
				return fmt.Errorf("priority fee: %w", err)
			}
			for _, name := range gas.Names() {
				s := gas.Strategies[name]
				printStrategyFees(w, s, gas.Fees{Tip: tip, FeeCap: s.MaxFee(base, tip), BaseFee: base}, gasUnits)
			}

			h, err := gas.FeeHistoryStats(cmd.Context(), ec, blocks, pcts)
			if err != nil {
				fmt.Fprintln(w, "[net] feeHistory error:", friendlyErr(err))
				return nil
			}
			printHistory(w, blocks, h, base)
			return nil
		},
	}
	cmd.Flags().IntVar(&blocks, "blocks", 100, "eth_feeHistory window")
	cmd.Flags().IntSliceVar(&pcts, "percentiles", []int{50, 95, 99}, "Reward percentiles")
	cmd.Flags().Uint64Var(&gasUnits, "gas", 0, "Gas units to price (0 skips the cost line)")
	return cmd
}

func printStrategyFees(w io.Writer, s gas.Strategy, f gas.Fees, gasUnits uint64) {
	fmt.Fprintf(w, "[%s] limit×%s fee×%s: tip=%s gwei maxFee=%s gwei\n",
		s.Name, s.LimitMultiplier, s.FeeMultiplier, gas.FmtGwei(f.Tip), gas.FmtGwei(f.FeeCap))
	if gasUnits == 0 {
		return
	}
	limit := s.GasLimit(gasUnits)
	cost := new(big.Int).Mul(new(big.Int).SetUint64(limit), f.FeeCap)
	fmt.Fprintf(w, "    gas(%d→%d) max cost: %s ETH\n", gasUnits, limit, gas.FmtETH(cost))
}

func printHistory(w io.Writer, blocks int, h *gas.History, base *big.Int) {
	if h.NextBaseFee != nil {
		fmt.Fprintf(w, "[net] baseFee(next): %s gwei\n", gas.FmtGwei(h.NextBaseFee))
	}
	fmt.Fprintf(w, "[net] reward stats last %d blocks:\n", blocks)
	pcts := make([]int, 0, len(h.Rewards))
	for p := range h.Rewards {
		pcts = append(pcts, p)
	}
	sort.Ints(pcts)
	for _, p := range pcts {
		st := h.Rewards[p]
		fmt.Fprintf(w, "  p%-2d min/avg/max: %s / %s / %s gwei\n", p, gas.FmtGwei(st.Min), gas.FmtGwei(st.Avg), gas.FmtGwei(st.Max))
	}
	peak := new(big.Int).Add(base, h.PeakTip())
	fmt.Fprintf(w, "[net] peak fee (base + max tip): %s gwei\n", gas.FmtGwei(peak))
}
