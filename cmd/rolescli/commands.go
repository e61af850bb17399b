package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/spf13/cobra"

	"github.com/ligun0805/roles-keeper/internal/gas"
	"github.com/ligun0805/roles-keeper/internal/roles"
	"github.com/ligun0805/roles-keeper/internal/txn"
)

func newConfigCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective settings with secrets masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			printConfig(cmd.OutOrStdout(), a)
			return nil
		},
	}
}

func printConfig(w io.Writer, a *app) {
	st := a.st
	fmt.Fprintln(w, "=== CONFIG (.env) ===")
	fmt.Fprintln(w, "RPC_URL             :", st.RPCURL)
	fmt.Fprintln(w, "RPC_URL_EXECUTION   :", st.ExecutionURL())
	chain := "(from node)"
	if st.ChainID != 0 {
		chain = fmt.Sprint(st.ChainID)
	}
	fmt.Fprintln(w, "CHAIN_ID            :", chain)
	fmt.Fprintln(w, "ROLES_MOD_ADDRESS   :", orDash(st.RolesModAddress))
	if st.RoleKey != "" {
		fmt.Fprintln(w, "ROLE_KEY            :", st.RoleKey)
	} else {
		fmt.Fprintln(w, "ROLE                :", st.Role)
	}
	fmt.Fprintln(w, "PRIVATE_KEY         :", maskHex(st.PrivateKeyHex))
	if st.PrivateKeyHex != "" {
		if addr, err := roles.AddressFromKey(st.PrivateKeyHex); err == nil {
			fmt.Fprintln(w, "  -> signer        :", addr.Hex())
		} else {
			fmt.Fprintln(w, "  -> signer        : invalid key:", err)
		}
	}
	fmt.Fprintln(w, "BOT_ADDRESS         :", orDash(st.BotAddress))
	fmt.Fprintln(w, "AVATAR_SAFE_ADDRESS :", orDash(st.AvatarSafeAddress))
	strategy := st.GasStrategy
	if a.strategyFlag != "" {
		strategy = a.strategyFlag + " (--gas-strategy)"
	}
	fmt.Fprintln(w, "GAS_STRATEGY        :", strategy)
	fmt.Fprintln(w, "SHOULD_REVERT       :", st.ShouldRevert)
	fmt.Fprintln(w, "RECEIPT_TIMEOUT     :", st.ReceiptTimeout)
	fmt.Fprintln(w, "LENDING_MARKET      :", st.LendingMarket)
	fmt.Fprintln(w, "TARGET_HEALTH_FACTOR:", st.TargetHealthFactor)
	fmt.Fprintln(w, "TOLERANCE           :", st.Tolerance)
	fmt.Fprintln(w, "=====================")
	if err := st.Validate(); err != nil {
		fmt.Fprintln(w, err)
	}
}

func newSelectorsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "selectors [0xselector]",
		Short: "List known roles modifier error selectors, or resolve one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			if len(args) == 1 {
				sig, ok := roles.DefaultSelectors.LookupHex(args[0])
				if !ok {
					return fmt.Errorf("unknown selector %s", args[0])
				}
				fmt.Fprintln(w, sig)
				return nil
			}
			for _, e := range roles.DefaultSelectors.Entries() {
				fmt.Fprintf(w, "%s  %s\n", e[0], e[1])
			}
			return nil
		},
	}
}

// callFlags are the calldata flags shared by check, build and send.
type callFlags struct {
	to, data, value []string
	operation       string
}

func (f *callFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringArrayVar(&f.to, "to", nil, "Target address; repeat to batch through MultiSend")
	cmd.Flags().StringArrayVar(&f.data, "data", nil, "Calldata hex, one per --to")
	cmd.Flags().StringArrayVar(&f.value, "value", nil, "Value in ETH, one per --to")
	cmd.Flags().StringVar(&f.operation, "operation", "call", "call|delegatecall; delegatecall takes a single --to")
	_ = cmd.MarkFlagRequired("to")
}

func (f *callFlags) transactables() ([]txn.Transactable, error) {
	op, err := parseOperation(f.operation)
	if err != nil {
		return nil, err
	}
	return buildTransactables(f.to, f.data, f.value, op)
}

// feeFlags override network-derived fees, in gwei.
type feeFlags struct {
	tip, maxFee string
}

func (f *feeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.tip, "tip-gwei", "", "Max priority fee in gwei (default: node suggestion)")
	cmd.Flags().StringVar(&f.maxFee, "max-fee-gwei", "", "Max fee per gas in gwei (default: tip + base fee × strategy)")
}

func (f *feeFlags) opts() (roles.BuildOpts, error) {
	tip, err := parseGwei(f.tip)
	if err != nil {
		return roles.BuildOpts{}, fmt.Errorf("--tip-gwei: %w", err)
	}
	maxFee, err := parseGwei(f.maxFee)
	if err != nil {
		return roles.BuildOpts{}, fmt.Errorf("--max-fee-gwei: %w", err)
	}
	return roles.BuildOpts{MaxPriorityFee: tip, MaxFeePerGas: maxFee}, nil
}

func newCheckCmd(a *app) *cobra.Command {
	var (
		calls callFlags
		block uint64
	)
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Statically call the role transaction and classify a revert",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			txs, err := calls.transactables()
			if err != nil {
				return err
			}
			m, err := a.mod(cmd.Context())
			if err != nil {
				return err
			}
			var at *big.Int
			if block != 0 {
				at = new(big.Int).SetUint64(block)
			}
			if _, err := roles.Check(cmd.Context(), m, txs, at); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "OK: %d call(s) pass the roles check for %s\n", len(txs), m.Account().Hex())
			return nil
		},
	}
	calls.register(cmd)
	cmd.Flags().Uint64Var(&block, "block", 0, "Block number to check at (default latest)")
	return cmd
}

func newBuildCmd(a *app) *cobra.Command {
	var (
		calls callFlags
		fees  feeFlags
		raw   bool
	)
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the unsigned role transaction and print it as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			txs, err := calls.transactables()
			if err != nil {
				return err
			}
			opts, err := fees.opts()
			if err != nil {
				return err
			}
			m, err := a.mod(cmd.Context())
			if err != nil {
				return err
			}
			tx, err := roles.Build(cmd.Context(), m, txs, opts)
			if err != nil {
				return err
			}
			if raw {
				fmt.Fprintln(cmd.OutOrStdout(), roles.TxAsHex(tx))
				return nil
			}
			return printTx(cmd.OutOrStdout(), m.GasStrategy(), tx)
		},
	}
	calls.register(cmd)
	fees.register(cmd)
	cmd.Flags().BoolVar(&raw, "raw", false, "Print the unsigned transaction as typed-envelope hex instead of JSON")
	return cmd
}

func printTx(w io.Writer, s gas.Strategy, tx *types.Transaction) error {
	b, err := json.MarshalIndent(tx, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(w, string(b))
	maxCost := new(big.Int).Mul(tx.GasFeeCap(), new(big.Int).SetUint64(tx.Gas()))
	fmt.Fprintf(w, "strategy=%s gas=%d tip=%s gwei maxFee=%s gwei maxCost=%s ETH\n",
		s, tx.Gas(), gas.FmtGwei(tx.GasTipCap()), gas.FmtGwei(tx.GasFeeCap()), gas.FmtETH(maxCost))
	return nil
}

func newSendCmd(a *app) *cobra.Command {
	var (
		calls   callFlags
		fees    feeFlags
		noCheck bool
		wait    bool
	)
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Check, sign and broadcast the role transaction",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			txs, err := calls.transactables()
			if err != nil {
				return err
			}
			opts, err := fees.opts()
			if err != nil {
				return err
			}
			m, err := a.mod(cmd.Context())
			if err != nil {
				return err
			}
			hash, err := roles.Send(cmd.Context(), m, txs, roles.ExecOpts{BuildOpts: opts, SkipCheck: noCheck})
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintln(w, "sent:", hash)
			if !wait {
				return nil
			}
			return printReceipt(w, m.WaitReceipt(cmd.Context(), common.HexToHash(hash)))
		},
	}
	calls.register(cmd)
	fees.register(cmd)
	cmd.Flags().BoolVar(&noCheck, "no-check", false, "Skip the static check before signing")
	cmd.Flags().BoolVar(&wait, "wait", false, "Wait for the receipt (RECEIPT_TIMEOUT)")
	return cmd
}

func newReceiptCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "receipt <tx hash>",
		Short: "Wait for a transaction receipt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := parseHash(args[0])
			if err != nil {
				return err
			}
			if err := a.st.ValidateCommon(); err != nil {
				return err
			}
			ec, err := a.dial(cmd.Context(), a.st.ExecutionURL())
			if err != nil {
				return err
			}
			res := roles.PollReceipt(cmd.Context(), ec, hash, a.st.ReceiptTimeout, a.st.ReceiptPoll)
			return printReceipt(cmd.OutOrStdout(), res)
		},
	}
}

// printReceipt returns an error for every outcome except a successful mined transaction.
func printReceipt(w io.Writer, res roles.ReceiptResult) error {
	switch res.Status {
	case roles.ReceiptPending:
		return fmt.Errorf("receipt still pending: %w", res.Err)
	case roles.ReceiptFailed:
		return fmt.Errorf("receipt lookup failed: %w", res.Err)
	}
	r := res.Receipt
	fee := new(big.Int)
	if r.EffectiveGasPrice != nil {
		fee.Mul(r.EffectiveGasPrice, new(big.Int).SetUint64(r.GasUsed))
	}
	fmt.Fprintf(w, "tx=%s block=%s gasUsed=%d fee=%s ETH status=%d\n",
		r.TxHash.Hex(), r.BlockNumber, r.GasUsed, gas.FmtETH(fee), r.Status)
	if res.Reverted() {
		return fmt.Errorf("transaction %s reverted on chain", r.TxHash.Hex())
	}
	return nil
}

func newDecodeMultiSendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decode-multisend <hex>",
		Short: "Decode multiSend(bytes) calldata or a packed transactions blob",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := parseHexData(args[0])
			if err != nil {
				return err
			}
			txs, err := txn.DecodeMultiSend(raw)
			if err != nil {
				if txs, err = txn.DecodeMultiSendEntries(raw); err != nil {
					return err
				}
			}
			w := cmd.OutOrStdout()
			for i, t := range txs {
				fmt.Fprintf(w, "%d: %s\n", i, t)
			}
			return nil
		},
	}
}
