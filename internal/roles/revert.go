package roles

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// extractRevertData pulls the revert payload out of a go-ethereum RPC error.
func extractRevertData(err error) ([]byte, bool) {
	if err == nil {
		return nil, false
	}

	type dataErr interface{ ErrorData() interface{} }

	for e := err; e != nil; e = errors.Unwrap(e) {
		var de dataErr
		if !errors.As(e, &de) {
			continue
		}
		switch v := de.ErrorData().(type) {
		case string:
			if strings.HasPrefix(v, "0x") {
				if b, err := hexutil.Decode(v); err == nil {
					return b, true
				}
			}
		case []byte:
			return v, true
		case hexutil.Bytes:
			return v, true
		case map[string]interface{}:
			if data, ok := v["data"].(string); ok && strings.HasPrefix(data, "0x") {
				if b, err := hexutil.Decode(data); err == nil {
					return b, true
				}
			}
		}
	}
	return nil, false
}

func isExecutionReverted(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "execution reverted")
}

// classifyCallError turns an eth_call error into a *RevertError when the node reported a revert.
// Other errors (transport, timeouts) come back unchanged.
func classifyCallError(err error, table SelectorTable) error {
	if err == nil {
		return nil
	}
	data, ok := extractRevertData(err)
	if !ok && !isExecutionReverted(err) {
		return err
	}
	re := &RevertError{Data: data, Err: err}
	if len(data) >= 4 {
		re.Selector = hexutil.Encode(data[:4])
	}
	if sig, ok := table.Classify(data); ok {
		re.Reason = sig
		return re
	}
	if reason, uerr := abi.UnpackRevert(data); uerr == nil {
		re.Reason = fmt.Sprintf("Error(%q)", reason)
	}
	return re
}
