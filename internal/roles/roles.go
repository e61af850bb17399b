package roles

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/core/types"

	"github.com/ligun0805/roles-keeper/internal/txn"
)

// Check packs txs and statically calls them through the roles modifier.
func Check(ctx context.Context, m *Mod, txs []txn.Transactable, block *big.Int) (bool, error) {
	t, err := m.Pack(ctx, txs)
	if err != nil {
		return false, err
	}
	return m.CheckTx(ctx, t, block)
}

// Build packs txs and returns the unsigned role transaction.
func Build(ctx context.Context, m *Mod, txs []txn.Transactable, opts BuildOpts) (*types.Transaction, error) {
	t, err := m.Pack(ctx, txs)
	if err != nil {
		return nil, err
	}
	return m.BuildTx(ctx, t, opts)
}

// Send packs txs, checks them unless opts.SkipCheck, and broadcasts. Returns the tx hash.
func Send(ctx context.Context, m *Mod, txs []txn.Transactable, opts ExecOpts) (string, error) {
	t, err := m.Pack(ctx, txs)
	if err != nil {
		return "", err
	}
	return m.ExecuteTx(ctx, t, opts)
}
