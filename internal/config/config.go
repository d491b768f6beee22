package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/zeromicro/go-zero/core/conf"
	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/core/service"

	"seidefi/pkg/confkit"
	llmpkg "seidefi/pkg/llm"
	perppkg "seidefi/pkg/perp"
)

// ChainConf configures the EVM chain connection and signing key.
type ChainConf struct {
	RPCURL string `json:",optional"`
	// PrivateKeyEnv names the environment variable holding the hex-encoded
	// signing key. The key itself never appears in config files.
	PrivateKeyEnv  string `json:",default=SEI_PRIVATE_KEY"`
	NativeSymbol   string `json:",default=SEI"`
	NativeDecimals int    `json:",default=18"`
}

// TokenConf describes one ERC-20 token known to the agent.
type TokenConf struct {
	Symbol   string
	Address  string
	Decimals int `json:",default=18"`
}

// DexConf configures swap routing: the on-chain V2 router and the HTTP
// aggregator used for best-route execution.
type DexConf struct {
	RouterAddress string      `json:",optional"`
	AggregatorURL string      `json:",optional"`
	SlippageBps   int         `json:",default=50"`
	QuoteSymbol   string      `json:",default=USDC"`
	Tokens        []TokenConf `json:",optional"`
}

// OracleConf configures price and funding-rate sources.
type OracleConf struct {
	PythURL string `json:",optional"`
	// FundingVenues lists the CEX funding feeds to poll, in trust order.
	// Supported: binance, bybit, okx.
	FundingVenues []string `json:",optional"`
}

// RouterConf configures geography-aware perp venue selection.
type RouterConf struct {
	Geography  string `json:",default=global"`
	Preference string `json:",default=geographic"`
}

// ArbConf configures the funding-rate arbitrage scanner.
type ArbConf struct {
	Symbols     []string `json:",optional"`
	NotionalUSD float64  `json:",default=1000"`
}

// RebalanceConf carries default parameters for AMM position management.
type RebalanceConf struct {
	Threshold     float64 `json:",default=0.02"`
	RangeWidth    float64 `json:",default=0.1"`
	FeeDelta      float64 `json:",optional"`
	SlippageDelta float64 `json:",optional"`
}

type CacheTTL struct {
	Short  int `json:",default=10"` // seconds
	Medium int `json:",default=60"`
	Long   int `json:",default=300"`
}

type Config struct {
	service.ServiceConf
	// Env indicates the running environment: test | dev | prod.
	// Defaults to test. In test mode perp trades route to the simulator.
	Env string   `json:",default=test"`
	TTL CacheTTL

	Chain     ChainConf     `json:",optional"`
	Dex       DexConf       `json:",optional"`
	Oracle    OracleConf    `json:",optional"`
	Router    RouterConf    `json:",optional"`
	Arb       ArbConf
	Rebalance RebalanceConf

	LLM  confkit.Section[llmpkg.Config]  `json:",optional"`
	Perp confkit.Section[perppkg.Config] `json:",optional"`

	mainPath string
	baseDir  string
}

func (c *Config) IsTestEnv() bool {
	return c.Env == "test" || c.Env == ""
}

func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}
	return cfg
}

func Load(path string) (*Config, error) {
	confkit.LoadDotenvOnce()

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path %s: %w", path, err)
	}

	var cfg Config
	if err := conf.Load(absPath, &cfg, conf.UseEnv()); err != nil {
		return nil, fmt.Errorf("load config %s: %w", absPath, err)
	}

	cfg.mainPath = absPath
	cfg.baseDir = filepath.Dir(absPath)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.hydrateSections(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Env)) {
	case "", "test", "dev", "prod":
		if strings.TrimSpace(c.Env) == "" {
			c.Env = "test"
		}
	default:
		return errors.New("config: env must be one of test|dev|prod")
	}
	if err := c.validateTTL(); err != nil {
		return err
	}
	if c.Arb.NotionalUSD <= 0 {
		return errors.New("config: arb.notionalUSD must be positive")
	}
	if c.Rebalance.Threshold <= 0 || c.Rebalance.Threshold >= 1 {
		return errors.New("config: rebalance.threshold must be in (0, 1)")
	}
	if c.Rebalance.RangeWidth <= 0 || c.Rebalance.RangeWidth >= 1 {
		return errors.New("config: rebalance.rangeWidth must be in (0, 1)")
	}
	if c.Dex.SlippageBps < 0 || c.Dex.SlippageBps > 10_000 {
		return errors.New("config: dex.slippageBps must be in [0, 10000]")
	}
	for _, venue := range c.Oracle.FundingVenues {
		switch strings.ToLower(strings.TrimSpace(venue)) {
		case "binance", "bybit", "okx":
		default:
			return fmt.Errorf("config: unsupported funding venue %q", venue)
		}
	}
	return nil
}

func (c *Config) validateTTL() error {
	if c.TTL.Short <= 0 {
		return errors.New("config: ttl.short must be positive")
	}
	if c.TTL.Medium <= 0 {
		return errors.New("config: ttl.medium must be positive")
	}
	if c.TTL.Long <= 0 {
		return errors.New("config: ttl.long must be positive")
	}
	return nil
}

func (c *Config) hydrateSections() error {
	base := c.baseDir

	if err := c.LLM.Hydrate(base, llmpkg.LoadConfig); err != nil {
		// An llm.yaml full of unset ${VAR} references means the deployment
		// runs without an LLM; regex parsing still covers every action.
		if errors.Is(err, llmpkg.ErrUnresolvedEnv) {
			logx.Infof("config: llm disabled: %v", err)
			c.LLM.Value = nil
		} else {
			return fmt.Errorf("load llm config: %w", err)
		}
	}
	if err := c.Perp.Hydrate(base, perppkg.LoadConfig); err != nil {
		return fmt.Errorf("load perp config: %w", err)
	}
	return nil
}

func (c *Config) MainPath() string {
	return c.mainPath
}

func (c *Config) BaseDir() string {
	return c.baseDir
}
