package cdp

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/ligun0805/roles-keeper/internal/logging"
)

// Caller runs eth_call and reads the head block number. *ethclient.Client satisfies it.
type Caller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	BlockNumber(ctx context.Context) (uint64, error)
}

// Market points at one Aave v3 family deployment.
type Market struct {
	Name              string
	AddressesProvider common.Address
	DataProvider      common.Address
}

var Markets = map[string]Market{
	"spark": {
		Name:              "spark",
		AddressesProvider: common.HexToAddress("0x02C3eA4e34C0cBd694D2adFa2c690EECbC1793eE"),
		DataProvider:      common.HexToAddress("0xFc21d6d146E6086B8359705C8b28512a983db0cb"),
	},
	"aavev3": {
		Name:              "aavev3",
		AddressesProvider: common.HexToAddress("0x2f39d218133AFaB8F2B819B1066c7E434Ad94E9e"),
		DataProvider:      common.HexToAddress("0x7B4EB56E7CD4b454BA8ff71E4518426369a138a3"),
	},
}

// LookupMarket resolves a market by name.
func LookupMarket(name string) (Market, error) {
	m, ok := Markets[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Market{}, fmt.Errorf("unknown lending market %q", name)
	}
	return m, nil
}

const lendingABI = `[
{"name":"getPool","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
{"name":"getPriceOracle","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
{"name":"getAllReservesTokens","type":"function","stateMutability":"view","inputs":[],
 "outputs":[{"name":"","type":"tuple[]","components":[{"name":"symbol","type":"string"},{"name":"tokenAddress","type":"address"}]}]},
{"name":"getUserReserveData","type":"function","stateMutability":"view","inputs":[{"name":"asset","type":"address"},{"name":"user","type":"address"}],
 "outputs":[{"name":"currentATokenBalance","type":"uint256"},{"name":"currentStableDebt","type":"uint256"},{"name":"currentVariableDebt","type":"uint256"},
  {"name":"principalStableDebt","type":"uint256"},{"name":"scaledVariableDebt","type":"uint256"},{"name":"stableBorrowRate","type":"uint256"},
  {"name":"liquidityRate","type":"uint256"},{"name":"stableRateLastUpdated","type":"uint40"},{"name":"usageAsCollateralEnabled","type":"bool"}]},
{"name":"getReserveConfigurationData","type":"function","stateMutability":"view","inputs":[{"name":"asset","type":"address"}],
 "outputs":[{"name":"decimals","type":"uint256"},{"name":"ltv","type":"uint256"},{"name":"liquidationThreshold","type":"uint256"},
  {"name":"liquidationBonus","type":"uint256"},{"name":"reserveFactor","type":"uint256"},{"name":"usageAsCollateralEnabled","type":"bool"},
  {"name":"borrowingEnabled","type":"bool"},{"name":"stableBorrowRateEnabled","type":"bool"},{"name":"isActive","type":"bool"},{"name":"isFrozen","type":"bool"}]},
{"name":"BASE_CURRENCY_UNIT","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
{"name":"getAssetPrice","type":"function","stateMutability":"view","inputs":[{"name":"asset","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
{"name":"getUserAccountData","type":"function","stateMutability":"view","inputs":[{"name":"user","type":"address"}],
 "outputs":[{"name":"totalCollateralBase","type":"uint256"},{"name":"totalDebtBase","type":"uint256"},{"name":"availableBorrowsBase","type":"uint256"},
  {"name":"currentLiquidationThreshold","type":"uint256"},{"name":"ltv","type":"uint256"},{"name":"healthFactor","type":"uint256"}]}
]`

var lending = func() abi.ABI {
	a, err := abi.JSON(strings.NewReader(lendingABI))
	if err != nil {
		panic(err)
	}
	return a
}()

var bpsDenominator = decimal.NewFromInt(10_000)

type reserveToken struct {
	Symbol       string
	TokenAddress common.Address
}

// Reader loads Snapshots from the chain.
type Reader struct {
	c       Caller
	market  Market
	limiter *rate.Limiter
	log     *logrus.Entry
}

type ReaderOption func(*Reader)

// WithRateLimit caps eth_call throughput. perSecond <= 0 disables the limit.
func WithRateLimit(perSecond float64) ReaderOption {
	return func(r *Reader) {
		if perSecond > 0 {
			r.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

func WithLogger(l *logrus.Entry) ReaderOption {
	return func(r *Reader) {
		if l != nil {
			r.log = l
		}
	}
}

func NewReader(c Caller, m Market, opts ...ReaderOption) *Reader {
	r := &Reader{c: c, market: m, log: logging.Discard()}
	for _, o := range opts {
		o(r)
	}
	r.log = r.log.WithFields(logrus.Fields{"component": "cdp", "market": m.Name})
	return r
}

func (r *Reader) call(ctx context.Context, to common.Address, block *big.Int, method string, args ...interface{}) ([]interface{}, error) {
	input, err := lending.Pack(method, args...)
	if err != nil {
		return nil, err
	}
	ret, err := r.callWithRetry(ctx, ethereum.CallMsg{To: &to, Data: input}, block)
	if err != nil {
		return nil, fmt.Errorf("%s on %s: %w", method, to.Hex(), err)
	}
	out, err := lending.Unpack(method, ret)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", method, err)
	}
	return out, nil
}

func (r *Reader) address(ctx context.Context, to common.Address, block *big.Int, method string) (common.Address, error) {
	out, err := r.call(ctx, to, block, method)
	if err != nil {
		return common.Address{}, err
	}
	return out[0].(common.Address), nil
}

// pin resolves a nil block to the current head so every call of one read sees the same state.
func (r *Reader) pin(ctx context.Context, block *big.Int) (*big.Int, error) {
	if block != nil {
		return block, nil
	}
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	n, err := r.c.BlockNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("block number: %w", err)
	}
	return new(big.Int).SetUint64(n), nil
}

// HealthFactor reads getUserAccountData(owner).healthFactor / 1e18.
func (r *Reader) HealthFactor(ctx context.Context, owner common.Address, block *big.Int) (decimal.Decimal, error) {
	block, err := r.pin(ctx, block)
	if err != nil {
		return decimal.Zero, err
	}
	pool, err := r.address(ctx, r.market.AddressesProvider, block, "getPool")
	if err != nil {
		return decimal.Zero, err
	}
	return r.healthFactor(ctx, pool, owner, block)
}

func (r *Reader) healthFactor(ctx context.Context, pool, owner common.Address, block *big.Int) (decimal.Decimal, error) {
	out, err := r.call(ctx, pool, block, "getUserAccountData", owner)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromBigInt(out[5].(*big.Int), -18), nil
}

// Snapshot reads every reserve the owner supplies or borrows at block (nil = latest).
// Reserves with no balance are left out.
func (r *Reader) Snapshot(ctx context.Context, owner common.Address, block *big.Int) (*Snapshot, error) {
	start := time.Now()
	block, err := r.pin(ctx, block)
	if err != nil {
		return nil, err
	}
	pool, err := r.address(ctx, r.market.AddressesProvider, block, "getPool")
	if err != nil {
		return nil, err
	}
	oracle, err := r.address(ctx, r.market.AddressesProvider, block, "getPriceOracle")
	if err != nil {
		return nil, err
	}
	out, err := r.call(ctx, oracle, block, "BASE_CURRENCY_UNIT")
	if err != nil {
		return nil, err
	}
	baseUnit := decimal.NewFromBigInt(out[0].(*big.Int), 0)
	if baseUnit.IsZero() {
		return nil, fmt.Errorf("oracle %s reports zero BASE_CURRENCY_UNIT", oracle.Hex())
	}

	out, err = r.call(ctx, r.market.DataProvider, block, "getAllReservesTokens")
	if err != nil {
		return nil, err
	}
	var reserves []reserveToken
	if err := lending.Methods["getAllReservesTokens"].Outputs.Copy(&reserves, out); err != nil {
		return nil, fmt.Errorf("decode reserves: %w", err)
	}

	snap := &Snapshot{Owner: owner, Block: block.Uint64()}
	for _, res := range reserves {
		ud, err := r.call(ctx, r.market.DataProvider, block, "getUserReserveData", res.TokenAddress, owner)
		if err != nil {
			return nil, err
		}
		aBal, stable, variable := ud[0].(*big.Int), ud[1].(*big.Int), ud[2].(*big.Int)
		if aBal.Sign() == 0 && stable.Sign() == 0 && variable.Sign() == 0 {
			continue
		}
		conf, err := r.call(ctx, r.market.DataProvider, block, "getReserveConfigurationData", res.TokenAddress)
		if err != nil {
			return nil, err
		}
		price, err := r.call(ctx, oracle, block, "getAssetPrice", res.TokenAddress)
		if err != nil {
			return nil, err
		}
		dec := int32(conf[0].(*big.Int).Int64())
		snap.Positions = append(snap.Positions, Position{
			Asset:                res.TokenAddress,
			Symbol:               res.Symbol,
			Decimals:             dec,
			Supplied:             FromBaseUnits(aBal, dec),
			StableDebt:           FromBaseUnits(stable, dec),
			VariableDebt:         FromBaseUnits(variable, dec),
			PriceUSD:             decimal.NewFromBigInt(price[0].(*big.Int), 0).Div(baseUnit),
			LiquidationThreshold: decimal.NewFromBigInt(conf[2].(*big.Int), 0).Div(bpsDenominator),
			CollateralEnabled:    ud[8].(bool),
		})
	}

	snap.HealthFactor, err = r.healthFactor(ctx, pool, owner, block)
	if err != nil {
		return nil, err
	}
	r.log.WithFields(logrus.Fields{
		"owner":         owner.Hex(),
		"block":         snap.Block,
		"positions":     len(snap.Positions),
		"health_factor": snap.HealthFactor.StringFixed(4),
		"took":          time.Since(start).String(),
	}).Debug("cdp snapshot")
	return snap, nil
}
