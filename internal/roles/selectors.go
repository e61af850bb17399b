package roles

import (
	"encoding/hex"
	"sort"
	"strings"

	gethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// KnownErrors are the custom errors of the Roles Modifier v1.
var KnownErrors = []string{
	"NoMembership()",
	"ArraysDifferentLength()",
	"FunctionSignatureTooShort()",
	"DelegateCallNotAllowed()",
	"TargetAddressNotAllowed()",
	"FunctionNotAllowed()",
	"SendNotAllowed()",
	"ParameterNotAllowed()",
	"ParameterNotOneOfAllowed()",
	"ParameterLessThanAllowed()",
	"ParameterGreaterThanAllowed()",
	"UnacceptableMultiSendOffset()",
	"UnsuitableOneOfComparison()",
	"UnsuitableRelativeComparison()",
	"UnsuitableStaticCompValueSize()",
	"UnsuitableDynamic32CompValueSize()",
	"ScopeMaxParametersExceeded()",
	"NotEnoughCompValuesForOneOf()",
	"CalldataOutOfBounds()",
}

// RolesV2Errors are the v2 errors not already in KnownErrors.
var RolesV2Errors = []string{
	"ConditionViolation(uint8,bytes32)",
	"NotAuthorized(address)",
	"MalformedMultiEntrypoint()",
	"ModuleTransactionFailed()",
}

// DefaultSelectors covers both contract versions.
var DefaultSelectors = NewSelectorTable(append(append([]string{}, KnownErrors...), RolesV2Errors...))

// Selector returns the first four bytes of keccak256(sig).
func Selector(sig string) [4]byte {
	var s [4]byte
	copy(s[:], gethcrypto.Keccak256([]byte(sig))[:4])
	return s
}

// SelectorHex is Selector as 0x-prefixed lowercase hex, 10 chars.
func SelectorHex(sig string) string {
	s := Selector(sig)
	return "0x" + hex.EncodeToString(s[:])
}

// SelectorTable maps custom error selectors to their signatures. Read-only after construction.
type SelectorTable struct {
	bySel map[[4]byte]string
}

func NewSelectorTable(sigs []string) SelectorTable {
	t := SelectorTable{bySel: make(map[[4]byte]string, len(sigs))}
	for _, sig := range sigs {
		t.bySel[Selector(sig)] = sig
	}
	return t
}

func (t SelectorTable) Len() int { return len(t.bySel) }

func (t SelectorTable) Lookup(sel [4]byte) (string, bool) {
	sig, ok := t.bySel[sel]
	return sig, ok
}

// LookupHex accepts "0x" followed by exactly 8 hex digits, any case.
func (t SelectorTable) LookupHex(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if len(s) != 10 || !strings.HasPrefix(strings.ToLower(s), "0x") {
		return "", false
	}
	b, err := hex.DecodeString(s[2:])
	if err != nil {
		return "", false
	}
	var sel [4]byte
	copy(sel[:], b)
	return t.Lookup(sel)
}

// Classify resolves the selector at the head of revert data.
func (t SelectorTable) Classify(revertData []byte) (string, bool) {
	if len(revertData) < 4 {
		return "", false
	}
	var sel [4]byte
	copy(sel[:], revertData[:4])
	return t.Lookup(sel)
}

// Entries returns selector hex -> signature pairs sorted by signature.
func (t SelectorTable) Entries() [][2]string {
	out := make([][2]string, 0, len(t.bySel))
	for sel, sig := range t.bySel {
		out = append(out, [2]string{"0x" + hex.EncodeToString(sel[:]), sig})
	}
	sort.Slice(out, func(i, j int) bool { return out[i][1] < out[j][1] })
	return out
}
