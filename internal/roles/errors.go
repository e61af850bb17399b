package roles

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

var (
	ErrTransactionWouldBeReverted = errors.New("transaction would be reverted")
	ErrMissingCredential          = errors.New("either a private key or an account must be configured")
	ErrCredentialMismatch         = errors.New("private key does not belong to the configured account")
	ErrNoPrivateKey               = errors.New("executor has no private key, cannot sign")
	ErrNoModAddress               = errors.New("roles modifier address is not set")
)

// RevertError is a predicted revert. Reason is the custom error signature (or decoded revert
// string) when the payload was recognised; otherwise Err carries the node's error unchanged.
type RevertError struct {
	Reason   string
	Selector string
	Data     []byte
	Err      error
}

func (e *RevertError) Error() string {
	if e.Reason != "" {
		return ErrTransactionWouldBeReverted.Error() + ": " + e.Reason
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", ErrTransactionWouldBeReverted, e.Err)
	}
	if len(e.Data) > 0 {
		return fmt.Sprintf("%s: data %s", ErrTransactionWouldBeReverted, hexutil.Encode(e.Data))
	}
	return ErrTransactionWouldBeReverted.Error()
}

func (e *RevertError) Is(target error) bool { return target == ErrTransactionWouldBeReverted }

func (e *RevertError) Unwrap() error { return e.Err }

// Classified reports whether the revert was mapped to a known reason.
func (e *RevertError) Classified() bool { return e.Reason != "" }

// RevertReason returns the classified reason of err, if any.
func RevertReason(err error) (string, bool) {
	var re *RevertError
	if errors.As(err, &re) && re.Classified() {
		return re.Reason, true
	}
	return "", false
}
