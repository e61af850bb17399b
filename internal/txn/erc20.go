package txn

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	gethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// Sel returns the 4-byte function selector of sig.
func Sel(sig string) []byte {
	h := gethcrypto.Keccak256([]byte(sig))
	return h[:4]
}

// EncodeERC20Transfer encodes transfer(address,uint256).
func EncodeERC20Transfer(to common.Address, amount *big.Int) []byte {
	return encodeAddrAmount("transfer(address,uint256)", to, amount)
}

// EncodeERC20Approve encodes approve(address,uint256).
func EncodeERC20Approve(spender common.Address, amount *big.Int) []byte {
	return encodeAddrAmount("approve(address,uint256)", spender, amount)
}

// Approve is a ready-to-pack ERC-20 approve call.
func Approve(token, spender common.Address, amount *big.Int) Tx {
	return NewTx(token, new(big.Int), EncodeERC20Approve(spender, amount), Call)
}

func encodeAddrAmount(sig string, a common.Address, amount *big.Int) []byte {
	data := make([]byte, 0, 4+64)
	data = append(data, Sel(sig)...)
	data = append(data, common.LeftPadBytes(a.Bytes(), 32)...)
	data = append(data, common.LeftPadBytes(amount.Bytes(), 32)...)
	return data
}
