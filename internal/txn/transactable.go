package txn

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Operation is the Safe/Zodiac Enum.Operation.
type Operation uint8

const (
	Call         Operation = 0
	DelegateCall Operation = 1
)

func (o Operation) String() string {
	switch o {
	case Call:
		return "CALL"
	case DelegateCall:
		return "DELEGATECALL"
	}
	return fmt.Sprintf("Operation(%d)", uint8(o))
}

// Transactable is the minimal shape needed to execute a call through the roles modifier.
type Transactable interface {
	Target() common.Address
	Value() *big.Int
	Data() []byte
	Operation() Operation
}

// Tx is the plain Transactable.
type Tx struct {
	To    common.Address
	Wei   *big.Int
	Input []byte
	Op    Operation
}

func NewTx(to common.Address, value *big.Int, data []byte, op Operation) Tx {
	return Tx{To: to, Wei: value, Input: data, Op: op}
}

func (t Tx) Target() common.Address { return t.To }
func (t Tx) Data() []byte           { return t.Input }
func (t Tx) Operation() Operation   { return t.Op }

func (t Tx) Value() *big.Int {
	if t.Wei == nil {
		return new(big.Int)
	}
	return t.Wei
}

func (t Tx) String() string {
	return fmt.Sprintf("%s %s value=%s data=%s", t.Op, t.To.Hex(), t.Value(), hexutil.Encode(t.Input))
}
