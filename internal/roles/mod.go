package roles

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	gethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/sirupsen/logrus"

	"github.com/ligun0805/roles-keeper/internal/gas"
	"github.com/ligun0805/roles-keeper/internal/logging"
	"github.com/ligun0805/roles-keeper/internal/txn"
)

// TxSender broadcasts signed transactions.
type TxSender interface {
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}

// Config describes one role-scoped signer.
type Config struct {
	ModAddress common.Address
	Role       uint16
	RoleKey    string // roles v2; takes precedence over Role when set

	// One of PrivateKeyHex or Account is required. Account-only executors can check and build.
	PrivateKeyHex string
	Account       common.Address

	Operation txn.Operation
	Value     *big.Int
	Nonce     *uint64

	Strategy gas.Strategy
	ChainID  *big.Int

	// AllowSilentFailure sends shouldRevert=false.
	AllowSilentFailure bool

	// MultiSend overrides the chain's multisend contract when packing batches.
	MultiSend *common.Address

	// Broadcast, when set, receives signed transactions instead of the backend.
	Broadcast TxSender

	ReceiptPollInterval time.Duration
	ReceiptTimeout      time.Duration

	Selectors *SelectorTable
	Logger    *logrus.Entry
}

// BuildOpts carries caller-supplied fees. Nil fields are derived from the network.
type BuildOpts struct {
	MaxPriorityFee *big.Int
	MaxFeePerGas   *big.Int
}

type ExecOpts struct {
	BuildOpts
	SkipCheck bool
}

// Mod executes calls through execTransactionWithRole.
type Mod struct {
	b       Backend
	send    TxSender
	cfg     Config
	role    roleCall
	prv     *ecdsa.PrivateKey
	account common.Address
	gas     *gas.Selector
	table   SelectorTable
	log     *logrus.Entry

	chainMu sync.Mutex
	chainID *big.Int
}

// NewMod validates credentials up front: a missing key and account is an error here, not at first use.
func NewMod(b Backend, cfg Config) (*Mod, error) {
	if cfg.ModAddress == (common.Address{}) {
		return nil, ErrNoModAddress
	}
	m := &Mod{b: b, send: b, cfg: cfg, table: DefaultSelectors}
	if cfg.Broadcast != nil {
		m.send = cfg.Broadcast
	}
	if cfg.Selectors != nil {
		m.table = *cfg.Selectors
	}

	switch {
	case cfg.PrivateKeyHex != "":
		prv, err := hexToECDSAPriv(cfg.PrivateKeyHex)
		if err != nil {
			return nil, fmt.Errorf("private key: %w", err)
		}
		m.prv = prv
		m.account = gethcrypto.PubkeyToAddress(prv.PublicKey)
		if cfg.Account != (common.Address{}) && cfg.Account != m.account {
			return nil, fmt.Errorf("%w: key is %s, account is %s", ErrCredentialMismatch, m.account.Hex(), cfg.Account.Hex())
		}
	case cfg.Account != (common.Address{}):
		m.account = cfg.Account
	default:
		return nil, ErrMissingCredential
	}

	if cfg.RoleKey != "" {
		k, err := RoleKey(cfg.RoleKey)
		if err != nil {
			return nil, err
		}
		m.role = roleCall{key: k, keyed: true}
	} else {
		m.role = roleCall{role: cfg.Role}
	}

	if cfg.ChainID != nil {
		m.chainID = new(big.Int).Set(cfg.ChainID)
	}
	if m.cfg.ReceiptPollInterval <= 0 {
		m.cfg.ReceiptPollInterval = time.Second
	}
	if m.cfg.ReceiptTimeout <= 0 {
		m.cfg.ReceiptTimeout = 120 * time.Second
	}
	m.gas = gas.NewSelector(cfg.Strategy)

	log := cfg.Logger
	if log == nil {
		log = logging.Discard()
	}
	m.log = log.WithFields(logrus.Fields{
		"component": "roles",
		"roles_mod": cfg.ModAddress.Hex(),
		"role":      m.role.String(),
		"account":   m.account.Hex(),
	})
	return m, nil
}

func (m *Mod) Account() common.Address { return m.account }

func (m *Mod) ModAddress() common.Address { return m.cfg.ModAddress }

func (m *Mod) CanSign() bool { return m.prv != nil }

// GasStrategy returns this executor's active strategy.
func (m *Mod) GasStrategy() gas.Strategy { return m.gas.Get() }

// SetGasStrategy replaces it for subsequent builds. No validation.
func (m *Mod) SetGasStrategy(s gas.Strategy) { m.gas.Set(s) }

// ChainID returns the configured chain id or asks the node once.
func (m *Mod) ChainID(ctx context.Context) (*big.Int, error) {
	m.chainMu.Lock()
	defer m.chainMu.Unlock()
	if m.chainID != nil {
		return new(big.Int).Set(m.chainID), nil
	}
	id, err := m.b.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("chain id: %w", err)
	}
	m.chainID = id
	return new(big.Int).Set(id), nil
}

// Calldata encodes execTransactionWithRole for a call to target with the configured operation and value.
func (m *Mod) Calldata(target common.Address, data []byte) ([]byte, error) {
	return m.calldata(m.tx(target, data))
}

func (m *Mod) calldata(t txn.Transactable) ([]byte, error) {
	return m.role.pack(t.Target(), t.Value(), t.Data(), t.Operation(), !m.cfg.AllowSilentFailure)
}

func (m *Mod) tx(target common.Address, data []byte) txn.Tx {
	return txn.NewTx(target, m.cfg.Value, data, m.cfg.Operation)
}

func (m *Mod) msg(input []byte) ethereum.CallMsg {
	to := m.cfg.ModAddress
	return ethereum.CallMsg{From: m.account, To: &to, Data: input}
}

func (m *Mod) EstimateGas(ctx context.Context, target common.Address, data []byte) (uint64, error) {
	return m.EstimateGasTx(ctx, m.tx(target, data))
}

// EstimateGasTx estimates the role call as sent from the executor's account.
func (m *Mod) EstimateGasTx(ctx context.Context, t txn.Transactable) (uint64, error) {
	input, err := m.calldata(t)
	if err != nil {
		return 0, err
	}
	g, err := m.b.EstimateGas(ctx, m.msg(input))
	if err != nil {
		return 0, classifyCallError(err, m.table)
	}
	return g, nil
}

// Check statically calls the role method at block (nil = latest). A predicted revert is a *RevertError.
func (m *Mod) Check(ctx context.Context, target common.Address, data []byte, block *big.Int) (bool, error) {
	return m.CheckTx(ctx, m.tx(target, data), block)
}

func (m *Mod) CheckTx(ctx context.Context, t txn.Transactable, block *big.Int) (bool, error) {
	input, err := m.calldata(t)
	if err != nil {
		return false, err
	}
	log := m.log.WithField("target", t.Target().Hex())
	ret, err := m.b.CallContract(ctx, m.msg(input), block)
	if err != nil {
		cerr := classifyCallError(err, m.table)
		log.WithError(cerr).Warn("static check failed")
		return false, cerr
	}
	ok, err := unpackSuccess(ret)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, &RevertError{Reason: execMethod + " returned false"}
	}
	log.Debug("static check passed")
	return true, nil
}

func (m *Mod) Build(ctx context.Context, target common.Address, data []byte, opts BuildOpts) (*types.Transaction, error) {
	return m.BuildTx(ctx, m.tx(target, data), opts)
}

// BuildTx assembles the unsigned EIP-1559 transaction. Fees not given in opts follow the active
// gas strategy, the limit is the scaled estimate, and the nonce is Config.Nonce or the pending nonce.
func (m *Mod) BuildTx(ctx context.Context, t txn.Transactable, opts BuildOpts) (*types.Transaction, error) {
	input, err := m.calldata(t)
	if err != nil {
		return nil, err
	}
	chainID, err := m.ChainID(ctx)
	if err != nil {
		return nil, err
	}
	strategy := m.gas.Get()

	est, err := m.EstimateGasTx(ctx, t)
	if err != nil {
		return nil, err
	}
	fees, err := gas.Suggest(ctx, m.b, strategy, opts.MaxPriorityFee, opts.MaxFeePerGas)
	if err != nil {
		return nil, err
	}

	var nonce uint64
	if m.cfg.Nonce != nil {
		nonce = *m.cfg.Nonce
	} else {
		nonce, err = m.b.PendingNonceAt(ctx, m.account)
		if err != nil {
			return nil, fmt.Errorf("nonce: %w", err)
		}
	}

	to := m.cfg.ModAddress
	tx := buildDynamicTx(chainID, nonce, &to, new(big.Int), strategy.GasLimit(est), fees.Tip, fees.FeeCap, input)
	m.log.WithFields(logrus.Fields{
		"target":   t.Target().Hex(),
		"strategy": strategy.Name,
		"nonce":    nonce,
		"gas":      tx.Gas(),
		"tip_gwei": gas.FmtGwei(fees.Tip),
		"cap_gwei": gas.FmtGwei(fees.FeeCap),
	}).Debug("built role transaction")
	return tx, nil
}

func (m *Mod) Execute(ctx context.Context, target common.Address, data []byte, opts ExecOpts) (string, error) {
	return m.ExecuteTx(ctx, m.tx(target, data), opts)
}

// ExecuteTx checks (unless skipped), builds, signs and broadcasts. Nothing is sent when the check
// predicts a revert. The signer's lock is held throughout so nonces do not collide.
func (m *Mod) ExecuteTx(ctx context.Context, t txn.Transactable, opts ExecOpts) (string, error) {
	if m.prv == nil {
		return "", ErrNoPrivateKey
	}
	unlock := lockSigner(m.account)
	defer unlock()

	if !opts.SkipCheck {
		if _, err := m.CheckTx(ctx, t, nil); err != nil {
			return "", err
		}
	}
	tx, err := m.BuildTx(ctx, t, opts.BuildOpts)
	if err != nil {
		return "", err
	}
	signed, err := signTx(tx, tx.ChainId(), m.prv)
	if err != nil {
		return "", fmt.Errorf("sign: %w", err)
	}
	if err := m.send.SendTransaction(ctx, signed); err != nil {
		return "", fmt.Errorf("send %s: %w", signed.Hash().Hex(), err)
	}
	m.log.WithFields(logrus.Fields{"target": t.Target().Hex(), "tx": signed.Hash().Hex(), "nonce": signed.Nonce()}).Info("role transaction sent")
	return signed.Hash().Hex(), nil
}

// Pack collapses txs for this executor's chain.
func (m *Mod) Pack(ctx context.Context, txs []txn.Transactable) (txn.Transactable, error) {
	if len(txs) <= 1 {
		return txn.Pack(txs, nil)
	}
	if m.cfg.MultiSend != nil {
		return txn.Pack(txs, nil, txn.WithMultiSend(*m.cfg.MultiSend))
	}
	chainID, err := m.ChainID(ctx)
	if err != nil {
		return nil, err
	}
	return txn.Pack(txs, chainID)
}
