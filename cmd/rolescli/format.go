package main

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/shopspring/decimal"

	"github.com/ligun0805/roles-keeper/internal/txn"
)

// parseUnits converts a decimal amount to base units, e.g. "1.5" with 18 decimals.
// Digits beyond the unit's precision are an error, not silently dropped.
func parseUnits(s string, decimals int32) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return new(big.Int), nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("bad amount %q: %w", s, err)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("bad amount %q: negative", s)
	}
	shifted := d.Shift(decimals)
	if !shifted.Equal(shifted.Truncate(0)) {
		return nil, fmt.Errorf("bad amount %q: more than %d decimals", s, decimals)
	}
	return shifted.BigInt(), nil
}

func parseETH(s string) (*big.Int, error) { return parseUnits(s, 18) }

// parseGwei returns nil for an empty string so that the fee is derived from the network.
func parseGwei(s string) (*big.Int, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	return parseUnits(s, 9)
}

// parseHexData accepts calldata with or without 0x.
func parseHexData(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "0x" {
		return nil, nil
	}
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		s = "0x" + s
	}
	b, err := hexutil.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("bad calldata: %w", err)
	}
	return b, nil
}

func parseAddress(name, s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%s: %q is not a hex address", name, s)
	}
	return common.HexToAddress(s), nil
}

func parseHash(s string) (common.Hash, error) {
	b, err := hexutil.Decode(strings.TrimSpace(s))
	if err != nil || len(b) != common.HashLength {
		return common.Hash{}, fmt.Errorf("bad transaction hash %q", s)
	}
	return common.BytesToHash(b), nil
}

func parseOperation(s string) (txn.Operation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "call", "0":
		return txn.Call, nil
	case "delegatecall", "delegate", "1":
		return txn.DelegateCall, nil
	}
	return 0, fmt.Errorf("unknown operation %q (call|delegatecall)", s)
}

var (
	errCallFlags         = errors.New("--to, --data and --value must be given the same number of times")
	errBatchDelegateCall = errors.New("--operation delegatecall takes a single --to")
)

// buildTransactables pairs repeated --to/--data/--value flags in order.
func buildTransactables(tos, datas, values []string, op txn.Operation) ([]txn.Transactable, error) {
	if len(tos) == 0 {
		return nil, errors.New("at least one --to is required")
	}
	if len(datas) != 0 && len(datas) != len(tos) {
		return nil, errCallFlags
	}
	if len(values) != 0 && len(values) != len(tos) {
		return nil, errCallFlags
	}
	if op == txn.DelegateCall && len(tos) > 1 {
		return nil, errBatchDelegateCall
	}
	out := make([]txn.Transactable, 0, len(tos))
	for i, to := range tos {
		addr, err := parseAddress("--to", to)
		if err != nil {
			return nil, err
		}
		var data []byte
		if len(datas) != 0 {
			if data, err = parseHexData(datas[i]); err != nil {
				return nil, err
			}
		}
		value := new(big.Int)
		if len(values) != 0 {
			if value, err = parseETH(values[i]); err != nil {
				return nil, err
			}
		}
		out = append(out, txn.NewTx(addr, value, data, op))
	}
	return out, nil
}
