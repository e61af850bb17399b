package roles

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// rpcRevert mimics the rpc.DataError go-ethereum returns for reverted calls.
type rpcRevert struct {
	data interface{}
}

func (e rpcRevert) Error() string          { return "execution reverted" }
func (e rpcRevert) ErrorCode() int         { return 3 }
func (e rpcRevert) ErrorData() interface{} { return e.data }

type fakeBackend struct {
	mu sync.Mutex

	chainID  *big.Int
	callRet  []byte
	callErr  error
	estimate uint64
	estErr   error
	baseFee  *big.Int
	tip      *big.Int
	nonceErr error
	sendErr  error

	// receipts are served after notFoundFor lookups of the hash.
	receipts    map[common.Hash]*types.Receipt
	notFoundFor int
	receiptErr  error

	calls        []ethereum.CallMsg
	estimates    int
	nonceReads   int
	receiptReads int
	sent         []*types.Transaction
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		chainID:  big.NewInt(100),
		callRet:  packSuccess(true),
		estimate: 100_000,
		baseFee:  big.NewInt(100),
		tip:      big.NewInt(2),
		receipts: map[common.Hash]*types.Receipt{},
	}
}

func packSuccess(ok bool) []byte {
	b, err := rolesV1.Methods[execMethod].Outputs.Pack(ok)
	if err != nil {
		panic(err)
	}
	return b
}

func (f *fakeBackend) ChainID(context.Context) (*big.Int, error) {
	return new(big.Int).Set(f.chainID), nil
}

func (f *fakeBackend) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, msg)
	if f.callErr != nil {
		return nil, f.callErr
	}
	return f.callRet, nil
}

func (f *fakeBackend) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.estimates++
	return f.estimate, f.estErr
}

func (f *fakeBackend) HeaderByNumber(context.Context, *big.Int) (*types.Header, error) {
	return &types.Header{Number: big.NewInt(1), BaseFee: new(big.Int).Set(f.baseFee)}, nil
}

func (f *fakeBackend) SuggestGasTipCap(context.Context) (*big.Int, error) {
	return new(big.Int).Set(f.tip), nil
}

// PendingNonceAt counts what was already sent, like a node's pending pool would.
func (f *fakeBackend) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nonceReads++
	return uint64(len(f.sent)), f.nonceErr
}

func (f *fakeBackend) SendTransaction(_ context.Context, tx *types.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, tx)
	return nil
}

func (f *fakeBackend) TransactionReceipt(_ context.Context, h common.Hash) (*types.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.receiptReads++
	if f.receiptErr != nil {
		return nil, f.receiptErr
	}
	r, ok := f.receipts[h]
	if !ok || f.receiptReads <= f.notFoundFor {
		return nil, ethereum.NotFound
	}
	return r, nil
}

func (f *fakeBackend) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type recordingSender struct {
	sent []*types.Transaction
}

func (r *recordingSender) SendTransaction(_ context.Context, tx *types.Transaction) error {
	r.sent = append(r.sent, tx)
	return nil
}
