package roles

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

type ReceiptStatus int

const (
	ReceiptPending ReceiptStatus = iota
	ReceiptConfirmed
	ReceiptFailed
)

func (s ReceiptStatus) String() string {
	switch s {
	case ReceiptPending:
		return "pending"
	case ReceiptConfirmed:
		return "confirmed"
	case ReceiptFailed:
		return "failed"
	}
	return fmt.Sprintf("ReceiptStatus(%d)", int(s))
}

// ReceiptResult is the outcome of waiting for a transaction.
//
//	Confirmed: Receipt is set (the transaction may still have reverted, see Reverted).
//	Pending:   not mined before the deadline; Err holds the context error.
//	Failed:    the node returned an error other than not-found.
type ReceiptResult struct {
	Status  ReceiptStatus
	Receipt *types.Receipt
	Err     error
}

func (r ReceiptResult) Confirmed() bool { return r.Status == ReceiptConfirmed }

// Reverted is true for a mined transaction with status 0.
func (r ReceiptResult) Reverted() bool {
	return r.Confirmed() && r.Receipt != nil && r.Receipt.Status == types.ReceiptStatusFailed
}

// ReceiptReader looks up mined transactions. *ethclient.Client satisfies it.
type ReceiptReader interface {
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// WaitReceipt polls for the receipt until it is found or the executor's receipt timeout passes.
func (m *Mod) WaitReceipt(ctx context.Context, hash common.Hash) ReceiptResult {
	res := PollReceipt(ctx, m.b, hash, m.cfg.ReceiptTimeout, m.cfg.ReceiptPollInterval)
	log := m.log.WithField("tx", hash.Hex()).WithField("status", res.Status.String())
	switch {
	case res.Status == ReceiptFailed:
		log.WithError(res.Err).Warn("receipt lookup failed")
	case res.Reverted():
		log.Warn("transaction mined but reverted")
	default:
		log.Debug("receipt wait finished")
	}
	return res
}

// PollReceipt polls rr every interval until the receipt is found or timeout passes.
// It needs no executor, only a node.
func PollReceipt(ctx context.Context, rr ReceiptReader, hash common.Hash, timeout, every time.Duration) ReceiptResult {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	queryTicker := time.NewTicker(every)
	defer queryTicker.Stop()

	for {
		receipt, err := rr.TransactionReceipt(ctx, hash)
		switch {
		case err == nil && receipt != nil:
			return ReceiptResult{Status: ReceiptConfirmed, Receipt: receipt}
		case err != nil && ctx.Err() != nil:
			return ReceiptResult{Status: ReceiptPending, Err: ctx.Err()}
		case err != nil && !errors.Is(err, ethereum.NotFound):
			return ReceiptResult{Status: ReceiptFailed, Err: err}
		}

		select {
		case <-ctx.Done():
			return ReceiptResult{Status: ReceiptPending, Err: ctx.Err()}
		case <-queryTicker.C:
		}
	}
}
