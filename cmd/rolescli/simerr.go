package main

import (
	"context"
	"errors"
	"strings"

	"github.com/ligun0805/roles-keeper/internal/roles"
)

// friendlyErr normalizes common node and roles errors for readable CLI output.
func friendlyErr(err error) string {
	if err == nil {
		return ""
	}
	var rev *roles.RevertError
	if errors.As(err, &rev) && !rev.Classified() && len(rev.Data) >= 4 {
		return err.Error() + " (unknown selector " + rev.Selector + ")"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timed out waiting for the node: " + err.Error()
	}

	s := err.Error()
	ls := strings.ToLower(s)
	switch {
	case strings.Contains(ls, "insufficient funds for gas"):
		return "insufficient ETH for gas: " + s
	case strings.Contains(ls, "nonce too low"), strings.Contains(ls, "already known"):
		return "nonce already used: " + s
	case strings.Contains(ls, "replacement transaction underpriced"):
		return "a pending transaction with this nonce pays more: " + s
	case strings.Contains(ls, "too many requests"), strings.Contains(ls, "-32005"):
		return "rate limited by RPC: " + s
	case strings.Contains(ls, "invalid character '<'"):
		return "non-JSON/HTML response (proxy/cf?)"
	case strings.Contains(ls, "dial tcp"), strings.Contains(ls, "lookup "), strings.Contains(ls, "connection refused"):
		return "network/DNS error: " + s
	}
	return s
}
