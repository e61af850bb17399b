package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/hashicorp/go-multierror"
	"github.com/shopspring/decimal"

	"github.com/ligun0805/roles-keeper/internal/gas"
)

// Settings keeps all configuration options.
// Field names follow the env keys they are read from.
type Settings struct {
	RPCURL          string
	RPCURLExecution string
	ChainID         uint64 // 0 = ask the node

	RolesModAddress   string
	Role              uint16
	RoleKey           string
	PrivateKeyHex     string
	BotAddress        string
	AvatarSafeAddress string

	GasStrategy    string
	ShouldRevert   bool
	ReceiptTimeout time.Duration
	ReceiptPoll    time.Duration

	LendingMarket      string
	TargetHealthFactor decimal.Decimal
	Tolerance          decimal.Decimal
	RPCRateLimit       float64

	LogLevel      string
	LogFormat     string
	LogOutput     string
	LogMaxAgeDays int

	unparsed []unparsed
}

// unparsed is a key that was set to a value Load could not parse.
type unparsed struct {
	key, val string
}

// Load reads settings from environment supporting both UPPER_CASE and lower_case keys.
func Load() Settings {
	st := Settings{}
	bad := func(keys []string, val string) {
		st.unparsed = append(st.unparsed, unparsed{key: keys[len(keys)-1], val: val})
	}
	get := func(keys []string, def string) string {
		for _, k := range keys {
			if v := strings.TrimSpace(os.Getenv(k)); v != "" {
				return v
			}
		}
		return def
	}
	getInt := func(keys []string, def int) int {
		s := get(keys, "")
		if s == "" {
			return def
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			bad(keys, s)
			return def
		}
		return n
	}
	getUint := func(keys []string, def uint64, bits int) uint64 {
		s := get(keys, "")
		if s == "" {
			return def
		}
		n, err := strconv.ParseUint(s, 10, bits)
		if err != nil {
			bad(keys, s)
			return def
		}
		return n
	}
	getFloat := func(keys []string, def float64) float64 {
		s := get(keys, "")
		if s == "" {
			return def
		}
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			bad(keys, s)
			return def
		}
		return n
	}
	getDecimal := func(keys []string, def string) decimal.Decimal {
		s := get(keys, def)
		d, err := decimal.NewFromString(s)
		if err != nil {
			bad(keys, s)
			return decimal.RequireFromString(def)
		}
		return d
	}
	getBool := func(keys []string, def bool) bool {
		s := strings.ToLower(get(keys, ""))
		if s == "" {
			return def
		}
		switch s {
		case "1", "true", "yes", "on":
			return true
		case "0", "false", "no", "off":
			return false
		}
		bad(keys, s)
		return def
	}
	getDuration := func(keys []string, def time.Duration) time.Duration {
		s := get(keys, "")
		if s == "" {
			return def
		}
		if d, err := time.ParseDuration(s); err == nil {
			return d
		}
		// bare numbers are seconds
		if n, err := strconv.Atoi(s); err == nil {
			return time.Duration(n) * time.Second
		}
		bad(keys, s)
		return def
	}

	st.RPCURL = get([]string{"rpc_url", "RPC_URL"}, "https://eth.llamarpc.com")
	st.RPCURLExecution = get([]string{"rpc_url_execution", "RPC_URL_EXECUTION"}, "")
	st.ChainID = getUint([]string{"chain_id", "CHAIN_ID"}, 0, 64)

	st.RolesModAddress = get([]string{"roles_mod_address", "ROLES_MOD_ADDRESS"}, "")
	st.Role = uint16(getUint([]string{"role", "ROLE"}, 0, 16))
	st.RoleKey = get([]string{"role_key", "ROLE_KEY"}, "")
	st.PrivateKeyHex = get([]string{"private_key", "PRIVATE_KEY"}, "")
	st.BotAddress = get([]string{"bot_address", "BOT_ADDRESS"}, "")
	st.AvatarSafeAddress = get([]string{"avatar_safe_address", "AVATAR_SAFE_ADDRESS"}, "")

	st.GasStrategy = strings.ToLower(get([]string{"gas_strategy", "GAS_STRATEGY"}, gas.Normal.Name))
	st.ShouldRevert = getBool([]string{"should_revert", "SHOULD_REVERT"}, true)
	st.ReceiptTimeout = getDuration([]string{"receipt_timeout", "RECEIPT_TIMEOUT"}, 120*time.Second)
	st.ReceiptPoll = getDuration([]string{"receipt_poll", "RECEIPT_POLL"}, time.Second)

	st.LendingMarket = strings.ToLower(get([]string{"lending_market", "LENDING_MARKET"}, "spark"))
	st.TargetHealthFactor = getDecimal([]string{"target_health_factor", "TARGET_HEALTH_FACTOR"}, "1.5")
	st.Tolerance = getDecimal([]string{"tolerance", "TOLERANCE"}, "0.01")
	st.RPCRateLimit = getFloat([]string{"rpc_rate_limit", "RPC_RATE_LIMIT"}, 0)

	st.LogLevel = get([]string{"log_level", "LOG_LEVEL"}, "info")
	st.LogFormat = get([]string{"log_format", "LOG_FORMAT"}, "textcolour")
	st.LogOutput = get([]string{"log_output", "LOG_OUTPUT"}, "stderr")
	st.LogMaxAgeDays = getInt([]string{"log_max_age_days", "LOG_MAX_AGE_DAYS"}, 7)

	return st
}

// ExecutionURL is the endpoint transactions are broadcast to.
func (s Settings) ExecutionURL() string {
	if s.RPCURLExecution != "" {
		return s.RPCURLExecution
	}
	return s.RPCURL
}

// Validate reports every invalid setting at once, including missing executor credentials.
func (s Settings) Validate() error { return s.validate(true) }

// ValidateCommon is Validate without the executor requirements. Read-only commands use it.
func (s Settings) ValidateCommon() error { return s.validate(false) }

func (s Settings) validate(executor bool) error {
	var errs *multierror.Error
	errInvalid := "invalid config for %s: %s"

	for _, u := range s.unparsed {
		errs = multierror.Append(errs, fmt.Errorf(errInvalid, u.key, fmt.Sprintf("cannot parse %q", u.val)))
	}

	if executor && s.RolesModAddress == "" {
		errs = multierror.Append(errs, fmt.Errorf(errInvalid, "ROLES_MOD_ADDRESS", "must be set"))
	}
	for _, a := range []struct{ key, val string }{
		{"ROLES_MOD_ADDRESS", s.RolesModAddress},
		{"BOT_ADDRESS", s.BotAddress},
		{"AVATAR_SAFE_ADDRESS", s.AvatarSafeAddress},
	} {
		if a.val != "" && !common.IsHexAddress(a.val) {
			errs = multierror.Append(errs, fmt.Errorf(errInvalid, a.key, "not a hex address"))
		}
	}
	if executor && s.PrivateKeyHex == "" && s.BotAddress == "" {
		errs = multierror.Append(errs, fmt.Errorf(errInvalid, "PRIVATE_KEY", "PRIVATE_KEY or BOT_ADDRESS must be set"))
	}
	if len(s.RoleKey) > 32 {
		errs = multierror.Append(errs, fmt.Errorf(errInvalid, "ROLE_KEY", "longer than 32 bytes"))
	}
	if _, err := gas.ParseStrategy(s.GasStrategy); err != nil {
		errs = multierror.Append(errs, fmt.Errorf(errInvalid, "GAS_STRATEGY", err))
	}
	if s.ReceiptTimeout <= 0 || s.ReceiptPoll <= 0 {
		errs = multierror.Append(errs, fmt.Errorf(errInvalid, "RECEIPT_TIMEOUT/RECEIPT_POLL", "must be >0"))
	}
	if !s.TargetHealthFactor.GreaterThan(decimal.NewFromInt(1)) {
		errs = multierror.Append(errs, fmt.Errorf(errInvalid, "TARGET_HEALTH_FACTOR", "must be >1"))
	}
	if s.Tolerance.IsNegative() || s.Tolerance.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		errs = multierror.Append(errs, fmt.Errorf(errInvalid, "TOLERANCE", "must be >=0 and <1"))
	}
	if s.RPCRateLimit < 0 {
		errs = multierror.Append(errs, fmt.Errorf(errInvalid, "RPC_RATE_LIMIT", "must be >=0"))
	}
	switch s.LogFormat {
	case "json", "textcolour", "textnocolour":
	default:
		errs = multierror.Append(errs, fmt.Errorf(errInvalid, "LOG_FORMAT", "must be json, textcolour or textnocolour"))
	}
	return errs.ErrorOrNil()
}
