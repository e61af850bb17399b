package main

import (
	"context"
	"fmt"
	"io"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sirupsen/logrus"

	"github.com/ligun0805/roles-keeper/internal/config"
	"github.com/ligun0805/roles-keeper/internal/gas"
	"github.com/ligun0805/roles-keeper/internal/logging"
	"github.com/ligun0805/roles-keeper/internal/roles"
)

// app holds what the commands share: settings, the logger and dialled clients.
type app struct {
	st  config.Settings
	log *logrus.Logger

	askKey       bool
	strategyFlag string

	logCloser io.Closer
	clients   []*ethclient.Client
}

func newApp() *app {
	return &app{log: logrus.New()}
}

func (a *app) init() error {
	a.st = config.Load()
	closer, err := logging.Configure(a.log, &logging.Config{
		Level:      a.st.LogLevel,
		Format:     a.st.LogFormat,
		Output:     a.st.LogOutput,
		MaxAgeDays: a.st.LogMaxAgeDays,
	})
	if err != nil {
		return err
	}
	a.logCloser = closer
	if a.askKey && a.st.PrivateKeyHex == "" {
		pk, err := readPassword("Private key: ")
		if err != nil {
			return err
		}
		a.st.PrivateKeyHex = pk
	}
	return nil
}

func (a *app) close() {
	for _, c := range a.clients {
		c.Close()
	}
	a.clients = nil
	if a.logCloser != nil {
		_ = a.logCloser.Close()
	}
}

func (a *app) dial(ctx context.Context, url string) (*ethclient.Client, error) {
	ec, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("dial RPC %s: %w", url, err)
	}
	a.clients = append(a.clients, ec)
	return ec, nil
}

// executorConfig maps settings to a roles.Config. It does not touch the network.
func (a *app) executorConfig() (roles.Config, error) {
	if err := a.st.Validate(); err != nil {
		return roles.Config{}, err
	}
	strategy, err := gas.ParseStrategy(a.st.GasStrategy)
	if err != nil {
		return roles.Config{}, err
	}
	cfg := roles.Config{
		ModAddress:          common.HexToAddress(a.st.RolesModAddress),
		Role:                a.st.Role,
		RoleKey:             a.st.RoleKey,
		PrivateKeyHex:       a.st.PrivateKeyHex,
		Strategy:            strategy,
		AllowSilentFailure:  !a.st.ShouldRevert,
		ReceiptPollInterval: a.st.ReceiptPoll,
		ReceiptTimeout:      a.st.ReceiptTimeout,
		Logger:              logrus.NewEntry(a.log),
	}
	if a.st.BotAddress != "" {
		cfg.Account = common.HexToAddress(a.st.BotAddress)
	}
	if a.st.ChainID != 0 {
		cfg.ChainID = new(big.Int).SetUint64(a.st.ChainID)
	}
	return cfg, nil
}

// mod dials RPC_URL (and RPC_URL_EXECUTION when it differs) and returns a ready executor.
func (a *app) mod(ctx context.Context) (*roles.Mod, error) {
	cfg, err := a.executorConfig()
	if err != nil {
		return nil, err
	}
	ec, err := a.dial(ctx, a.st.RPCURL)
	if err != nil {
		return nil, err
	}
	if url := a.st.ExecutionURL(); url != a.st.RPCURL {
		exec, err := a.dial(ctx, url)
		if err != nil {
			return nil, err
		}
		cfg.Broadcast = exec
	}
	m, err := roles.NewMod(ec, cfg)
	if err != nil {
		return nil, err
	}
	if a.strategyFlag != "" {
		s, err := gas.ParseStrategy(a.strategyFlag)
		if err != nil {
			return nil, fmt.Errorf("--gas-strategy: %w", err)
		}
		m.SetGasStrategy(s)
	}
	a.log.WithFields(logrus.Fields{
		"roles_mod": m.ModAddress().Hex(),
		"account":   m.Account().Hex(),
		"strategy":  m.GasStrategy().Name,
		"can_sign":  m.CanSign(),
	}).Debug("executor ready")
	return m, nil
}
