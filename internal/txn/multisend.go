package txn

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	gethcrypto "github.com/ethereum/go-ethereum/crypto"
)

var (
	ErrNoTransactions   = errors.New("no transactions")
	ErrNoMultiSend      = errors.New("no multisend deployment for chain")
	ErrMalformedPayload = errors.New("malformed multisend payload")
)

// Safe MultiSend 1.3.0, same address on every chain it is deployed to.
var MultiSend130 = common.HexToAddress("0xA238CBeb142c10Ef7Ad8442C6D1f9E89e07e7761")

var multiSends = map[uint64]common.Address{
	1:        MultiSend130, // ethereum
	10:       MultiSend130, // optimism
	56:       MultiSend130, // bsc
	100:      MultiSend130, // gnosis
	137:      MultiSend130, // polygon
	8453:     MultiSend130, // base
	42161:    MultiSend130, // arbitrum
	43114:    MultiSend130, // avalanche
	11155111: MultiSend130, // sepolia
}

var (
	multiSendSelector = gethcrypto.Keccak256([]byte("multiSend(bytes)"))[:4]
	bytesArgs         = abi.Arguments{{Type: mustType("bytes")}}
)

func mustType(t string) abi.Type {
	ty, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(err)
	}
	return ty
}

// MultiSendAddress returns the multisend deployment for chainID.
func MultiSendAddress(chainID *big.Int) (common.Address, error) {
	if chainID == nil || !chainID.IsUint64() {
		return common.Address{}, fmt.Errorf("%w: %v", ErrNoMultiSend, chainID)
	}
	a, ok := multiSends[chainID.Uint64()]
	if !ok {
		return common.Address{}, fmt.Errorf("%w: %s", ErrNoMultiSend, chainID)
	}
	return a, nil
}

type packConfig struct {
	multiSend *common.Address
}

type PackOption func(*packConfig)

// WithMultiSend overrides the chain's multisend contract.
func WithMultiSend(addr common.Address) PackOption {
	return func(c *packConfig) { c.multiSend = &addr }
}

// Pack collapses txs into one Transactable. A single element is returned as is; more are wrapped
// into a DELEGATECALL to multiSend(bytes) with zero value.
func Pack(txs []Transactable, chainID *big.Int, opts ...PackOption) (Transactable, error) {
	switch len(txs) {
	case 0:
		return nil, ErrNoTransactions
	case 1:
		return txs[0], nil
	}
	cfg := packConfig{}
	for _, o := range opts {
		o(&cfg)
	}
	var target common.Address
	if cfg.multiSend != nil {
		target = *cfg.multiSend
	} else {
		a, err := MultiSendAddress(chainID)
		if err != nil {
			return nil, err
		}
		target = a
	}
	data, err := EncodeMultiSend(txs)
	if err != nil {
		return nil, err
	}
	return NewTx(target, new(big.Int), data, DelegateCall), nil
}

// EncodeMultiSendEntries packs each tx as op(1) | to(20) | value(32) | len(32) | data.
func EncodeMultiSendEntries(txs []Transactable) []byte {
	var buf bytes.Buffer
	for _, t := range txs {
		data := t.Data()
		buf.WriteByte(byte(t.Operation()))
		buf.Write(t.Target().Bytes())
		buf.Write(common.LeftPadBytes(t.Value().Bytes(), 32))
		buf.Write(common.LeftPadBytes(new(big.Int).SetInt64(int64(len(data))).Bytes(), 32))
		buf.Write(data)
	}
	return buf.Bytes()
}

// EncodeMultiSend returns the calldata of multiSend(bytes).
func EncodeMultiSend(txs []Transactable) ([]byte, error) {
	for _, t := range txs {
		if t.Value().Sign() < 0 {
			return nil, fmt.Errorf("negative value for %s", t.Target().Hex())
		}
	}
	args, err := bytesArgs.Pack(EncodeMultiSendEntries(txs))
	if err != nil {
		return nil, err
	}
	return append(append([]byte{}, multiSendSelector...), args...), nil
}

// DecodeMultiSend reverses EncodeMultiSend.
func DecodeMultiSend(calldata []byte) ([]Tx, error) {
	if len(calldata) < 4 || !bytes.Equal(calldata[:4], multiSendSelector) {
		return nil, fmt.Errorf("%w: not a multiSend(bytes) call", ErrMalformedPayload)
	}
	vals, err := bytesArgs.Unpack(calldata[4:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return DecodeMultiSendEntries(vals[0].([]byte))
}

// DecodeMultiSendEntries splits the packed entries.
func DecodeMultiSendEntries(packed []byte) ([]Tx, error) {
	const head = 1 + 20 + 32 + 32
	var out []Tx
	for off := 0; off < len(packed); {
		if len(packed)-off < head {
			return nil, fmt.Errorf("%w: truncated entry at offset %d", ErrMalformedPayload, off)
		}
		op := Operation(packed[off])
		to := common.BytesToAddress(packed[off+1 : off+21])
		value := new(big.Int).SetBytes(packed[off+21 : off+53])
		n := new(big.Int).SetBytes(packed[off+53 : off+85])
		off += head
		if !n.IsInt64() || n.Int64() > int64(len(packed)-off) {
			return nil, fmt.Errorf("%w: data length %s exceeds payload", ErrMalformedPayload, n)
		}
		data := append([]byte{}, packed[off:off+int(n.Int64())]...)
		off += int(n.Int64())
		out = append(out, NewTx(to, value, data, op))
	}
	return out, nil
}
