package roles

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/ligun0805/roles-keeper/internal/txn"
)

const execMethod = "execTransactionWithRole"

const rolesV1ABI = `[{"inputs":[{"internalType":"address","name":"to","type":"address"},{"internalType":"uint256","name":"value","type":"uint256"},` +
	`{"internalType":"bytes","name":"data","type":"bytes"},{"internalType":"enum Enum.Operation","name":"operation","type":"uint8"},` +
	`{"internalType":"uint16","name":"role","type":"uint16"},{"internalType":"bool","name":"shouldRevert","type":"bool"}],"name":"execTransactionWithRole",` +
	`"outputs":[{"internalType":"bool","name":"success","type":"bool"}],"stateMutability":"nonpayable","type":"function"}]`

const rolesV2ABI = `[{"inputs":[{"internalType":"address","name":"to","type":"address"},{"internalType":"uint256","name":"value","type":"uint256"},` +
	`{"internalType":"bytes","name":"data","type":"bytes"},{"internalType":"enum Enum.Operation","name":"operation","type":"uint8"},` +
	`{"internalType":"bytes32","name":"roleKey","type":"bytes32"},{"internalType":"bool","name":"shouldRevert","type":"bool"}],"name":"execTransactionWithRole",` +
	`"outputs":[{"internalType":"bool","name":"success","type":"bool"}],"stateMutability":"nonpayable","type":"function"}]`

var (
	rolesV1 = mustABI(rolesV1ABI)
	rolesV2 = mustABI(rolesV2ABI)
)

func mustABI(s string) abi.ABI {
	a, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic(err)
	}
	return a
}

// RoleKey pads a v2 role name to bytes32, left aligned.
func RoleKey(name string) ([32]byte, error) {
	var k [32]byte
	if len(name) > 32 {
		return k, fmt.Errorf("role key %q longer than 32 bytes", name)
	}
	copy(k[:], name)
	return k, nil
}

// roleCall identifies the role argument of execTransactionWithRole.
type roleCall struct {
	role  uint16
	key   [32]byte
	keyed bool
}

func (r roleCall) String() string {
	if r.keyed {
		return strings.TrimRight(string(r.key[:]), "\x00")
	}
	return fmt.Sprint(r.role)
}

func (r roleCall) pack(to common.Address, value *big.Int, data []byte, op txn.Operation, shouldRevert bool) ([]byte, error) {
	if value == nil {
		value = new(big.Int)
	}
	if data == nil {
		data = []byte{}
	}
	if r.keyed {
		return rolesV2.Pack(execMethod, to, value, data, uint8(op), r.key, shouldRevert)
	}
	return rolesV1.Pack(execMethod, to, value, data, uint8(op), r.role, shouldRevert)
}

func unpackSuccess(ret []byte) (bool, error) {
	vals, err := rolesV1.Unpack(execMethod, ret)
	if err != nil {
		return false, fmt.Errorf("decode %s result: %w", execMethod, err)
	}
	ok, _ := vals[0].(bool)
	return ok, nil
}
