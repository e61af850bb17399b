package cdp

import (
	"context"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
)

func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	return strings.Contains(s, "Too Many Requests") || strings.Contains(s, "-32005")
}

var retryBackoff = 200 * time.Millisecond

// callWithRetry makes up to 3 attempts. The backoff doubles after rate-limit errors.
func (r *Reader) callWithRetry(ctx context.Context, msg ethereum.CallMsg, block *big.Int) ([]byte, error) {
	const maxAttempts = 3
	backoff := retryBackoff
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}
		ret, err := r.c.CallContract(ctx, msg, block)
		if err == nil {
			return ret, nil
		}
		lastErr = err
		if attempt < maxAttempts {
			r.log.WithError(err).WithField("attempt", attempt).Debug("eth_call failed, retrying")
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			if isRateLimitError(err) {
				backoff *= 2
			}
		}
	}
	return nil, lastErr
}
