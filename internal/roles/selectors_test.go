package roles

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectorTableRoundTrip(t *testing.T) {
	all := append(append([]string{}, KnownErrors...), RolesV2Errors...)
	require.Len(t, KnownErrors, 19)
	assert.Equal(t, len(all), DefaultSelectors.Len())

	for _, sig := range all {
		h := SelectorHex(sig)
		require.Len(t, h, 10)
		got, ok := DefaultSelectors.LookupHex(h)
		assert.True(t, ok, sig)
		assert.Equal(t, sig, got)

		_, ok = DefaultSelectors.LookupHex(h[2:])
		assert.False(t, ok, "missing prefix must not match")
		got, ok = DefaultSelectors.LookupHex("0x" + strings.ToUpper(h[2:]))
		assert.True(t, ok)
		assert.Equal(t, sig, got)
	}
}

func TestSelectorMatchesABIErrorID(t *testing.T) {
	e := abi.NewError("ConditionViolation", abi.Arguments{
		{Type: mustABIType("uint8")},
		{Type: mustABIType("bytes32")},
	})
	sel := Selector("ConditionViolation(uint8,bytes32)")
	assert.Equal(t, e.ID[:4], sel[:])
}

func mustABIType(s string) abi.Type {
	ty, err := abi.NewType(s, "", nil)
	if err != nil {
		panic(err)
	}
	return ty
}

func TestSelectorTableIgnoresOrder(t *testing.T) {
	a := NewSelectorTable([]string{"NoMembership()", "SendNotAllowed()"})
	b := NewSelectorTable([]string{"SendNotAllowed()", "NoMembership()"})
	assert.Equal(t, a.Entries(), b.Entries())
}

func TestLookupHexRejectsMalformed(t *testing.T) {
	for _, s := range []string{"", "0x", "0x1234", "0xzzzzzzzz", "0x123456789"} {
		_, ok := DefaultSelectors.LookupHex(s)
		assert.False(t, ok, s)
	}
}

func TestClassifyCallError(t *testing.T) {
	target := SelectorHex("TargetAddressNotAllowed()")
	targetBytes, _ := hexutil.Decode(target)
	revertString, err := abi.Arguments{{Type: mustABIType("string")}}.Pack("not owner")
	require.NoError(t, err)
	revertString = append(hexutil.MustDecode("0x08c379a0"), revertString...)

	tests := []struct {
		name       string
		err        error
		revert     bool
		reason     string
		classified bool
	}{
		{"hex string", rpcRevert{data: target}, true, "TargetAddressNotAllowed()", true},
		{"bytes", rpcRevert{data: targetBytes}, true, "TargetAddressNotAllowed()", true},
		{"hexutil bytes", rpcRevert{data: hexutil.Bytes(targetBytes)}, true, "TargetAddressNotAllowed()", true},
		{"map", rpcRevert{data: map[string]interface{}{"data": target}}, true, "TargetAddressNotAllowed()", true},
		{"wrapped", fmt.Errorf("eth_call: %w", rpcRevert{data: target}), true, "TargetAddressNotAllowed()", true},
		{"v2 with args", rpcRevert{data: SelectorHex("ConditionViolation(uint8,bytes32)") + strings.Repeat("0", 128)}, true, "ConditionViolation(uint8,bytes32)", true},
		{"revert string", rpcRevert{data: hexutil.Encode(revertString)}, true, `Error("not owner")`, true},
		{"unknown selector", rpcRevert{data: "0xdeadbeef"}, true, "", false},
		{"reverted without data", errors.New("execution reverted"), true, "", false},
		{"network", errors.New("context deadline exceeded"), false, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyCallError(tt.err, DefaultSelectors)
			if !tt.revert {
				assert.Same(t, tt.err, got)
				return
			}
			assert.ErrorIs(t, got, ErrTransactionWouldBeReverted)
			reason, ok := RevertReason(got)
			assert.Equal(t, tt.classified, ok)
			assert.Equal(t, tt.reason, reason)
			if !tt.classified {
				// the node error stays reachable
				assert.True(t, errors.Is(got, tt.err) || errors.Unwrap(got) == tt.err)
				assert.Contains(t, got.Error(), tt.err.Error())
			}
		})
	}
}
