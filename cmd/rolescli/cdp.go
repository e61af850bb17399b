package main

import (
	"errors"
	"fmt"
	"io"
	"math/big"
	"text/tabwriter"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/ligun0805/roles-keeper/internal/cdp"
	"github.com/ligun0805/roles-keeper/internal/logging"
)

func newCDPCmd(a *app) *cobra.Command {
	var (
		owner, asset, mode, target string
		block                      uint64
	)
	cmd := &cobra.Command{
		Use:   "cdp",
		Short: "Print the lending position of the avatar and the repayment that restores the target health factor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.st.ValidateCommon(); err != nil {
				return err
			}
			if owner == "" {
				owner = a.st.AvatarSafeAddress
			}
			if owner == "" {
				return errors.New("no position owner: set AVATAR_SAFE_ADDRESS or --owner")
			}
			ownerAddr, err := parseAddress("owner", owner)
			if err != nil {
				return err
			}
			tgt := a.st.TargetHealthFactor
			if target != "" {
				if tgt, err = decimal.NewFromString(target); err != nil {
					return fmt.Errorf("--target: %w", err)
				}
			}
			rateMode, err := cdp.ParseRateMode(mode)
			if err != nil {
				return err
			}
			market, err := cdp.LookupMarket(a.st.LendingMarket)
			if err != nil {
				return err
			}

			ec, err := a.dial(cmd.Context(), a.st.RPCURL)
			if err != nil {
				return err
			}
			reader := cdp.NewReader(ec, market,
				cdp.WithRateLimit(a.st.RPCRateLimit),
				cdp.WithLogger(logging.Component(a.log, "cdp")),
			)
			var at *big.Int
			if block != 0 {
				at = new(big.Int).SetUint64(block)
			}
			snap, err := reader.Snapshot(cmd.Context(), ownerAddr, at)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			printSnapshot(w, market.Name, snap)
			if asset == "" {
				return nil
			}
			assetAddr, err := parseAddress("--asset", asset)
			if err != nil {
				return err
			}
			return printRepay(w, snap, tgt, assetAddr, rateMode, a.st.Tolerance)
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "Position owner (default AVATAR_SAFE_ADDRESS)")
	cmd.Flags().StringVar(&asset, "asset", "", "Debt asset to compute the repayment for")
	cmd.Flags().StringVar(&mode, "mode", "variable", "Rate mode of the debt (stable|variable)")
	cmd.Flags().StringVar(&target, "target", "", "Target health factor (default TARGET_HEALTH_FACTOR)")
	cmd.Flags().Uint64Var(&block, "block", 0, "Block number to read at (default latest)")
	return cmd
}

func printSnapshot(w io.Writer, market string, s *cdp.Snapshot) {
	fmt.Fprintf(w, "market=%s owner=%s\n", market, s.Owner.Hex())
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SYMBOL\tSUPPLIED\tSTABLE DEBT\tVARIABLE DEBT\tPRICE USD\tLT\tCOLLATERAL")
	for _, p := range s.Positions {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%v\n",
			p.Symbol, p.Supplied.StringFixed(4), p.StableDebt.StringFixed(4), p.VariableDebt.StringFixed(4),
			p.PriceUSD.StringFixed(4), p.LiquidationThreshold.String(), p.CollateralEnabled)
	}
	_ = tw.Flush()
	fmt.Fprintf(w, "collateral (LT-weighted)=%s USD debt=%s USD health factor=%s\n",
		s.CollateralValue().StringFixed(2), s.DebtValue().StringFixed(2), s.HealthFactor.StringFixed(4))
}

func printRepay(w io.Writer, s *cdp.Snapshot, target decimal.Decimal, asset common.Address, mode cdp.RateMode, tolerance decimal.Decimal) error {
	delta, err := cdp.DeltaToRepay(s, target, asset, mode, tolerance)
	if err != nil {
		return err
	}
	pos, _ := s.Position(asset)
	if delta.IsZero() {
		fmt.Fprintf(w, "no %s repayment needed for target %s\n", pos.Symbol, target)
		return nil
	}
	fmt.Fprintf(w, "repay %s %s (%s debt, base units %s) to reach health factor %s\n",
		delta.String(), pos.Symbol, mode, cdp.ToBaseUnits(delta, pos.Decimals), target)
	return nil
}
