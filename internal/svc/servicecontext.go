package svc

import (
	"context"
	"log"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"seidefi/internal/cache"
	"seidefi/internal/config"
	"seidefi/pkg/actions"
	"seidefi/pkg/amm"
	"seidefi/pkg/chain"
	"seidefi/pkg/dex"
	"seidefi/pkg/fundingarb"
	"seidefi/pkg/georouter"
	"seidefi/pkg/ilrisk"
	llmpkg "seidefi/pkg/llm"
	"seidefi/pkg/oracle"
	"seidefi/pkg/oracle/feeds"
	"seidefi/pkg/perp"
	_ "seidefi/pkg/perp/coinbase"
	_ "seidefi/pkg/perp/onchain"
	"seidefi/pkg/perp/sim"
)

type ServiceContext struct {
	Config config.Config
	TTL    cache.TTLSet

	// Chain is nil when no RPC endpoint is configured; on-chain actions
	// are simply not registered in that case.
	Chain      *chain.Client
	Tokens     *dex.Registry
	Aggregator *dex.Aggregator
	DexRouter  *dex.Router

	Oracle *oracle.Oracle

	PerpProviders map[string]perp.Provider
	PerpRouter    *georouter.Router

	AMM        *amm.Manager
	ILRisk     *ilrisk.Engine
	FundingArb *fundingarb.Engine

	LLM     *llmpkg.Client
	Actions *actions.Registry
}

func NewServiceContext(c config.Config) *ServiceContext {
	svc := &ServiceContext{
		Config: c,
		TTL:    cache.NewTTLSet(c.TTL),
	}

	svc.initChain()
	svc.initDex()
	svc.initOracle()
	svc.initPerp()
	svc.initEngines()
	svc.initLLM()
	svc.initActions()

	return svc
}

func (s *ServiceContext) initChain() {
	rpcURL := strings.TrimSpace(s.Config.Chain.RPCURL)
	if rpcURL == "" {
		return
	}
	key := os.Getenv(s.Config.Chain.PrivateKeyEnv)
	client, err := chain.Dial(context.Background(), rpcURL, key)
	if err != nil {
		log.Fatalf("failed to dial chain rpc: %v", err)
	}
	s.Chain = client
}

func (s *ServiceContext) initDex() {
	if len(s.Config.Dex.Tokens) == 0 {
		return
	}
	tokens := make([]dex.Token, 0, len(s.Config.Dex.Tokens))
	for _, t := range s.Config.Dex.Tokens {
		tokens = append(tokens, dex.Token{
			Symbol:   t.Symbol,
			Address:  common.HexToAddress(t.Address),
			Decimals: t.Decimals,
		})
	}
	registry, err := dex.NewRegistry(tokens, s.Config.Dex.QuoteSymbol)
	if err != nil {
		log.Fatalf("failed to build token registry: %v", err)
	}
	s.Tokens = registry

	if s.Chain == nil {
		return
	}
	if url := strings.TrimSpace(s.Config.Dex.AggregatorURL); url != "" {
		s.Aggregator = dex.NewAggregator(url, s.Chain, registry,
			dex.WithSlippageBps(int64(s.Config.Dex.SlippageBps)))
	}
	if addr := strings.TrimSpace(s.Config.Dex.RouterAddress); addr != "" {
		s.DexRouter = dex.NewRouter(common.HexToAddress(addr), s.Chain, registry)
	}
}

func (s *ServiceContext) initOracle() {
	var pythOpts []feeds.PythOption
	if url := strings.TrimSpace(s.Config.Oracle.PythURL); url != "" {
		pythOpts = append(pythOpts, feeds.WithPythBaseURL(url))
	}
	sources := []oracle.Source{feeds.NewPythSource(pythOpts...)}

	venues := s.Config.Oracle.FundingVenues
	if len(venues) == 0 {
		venues = []string{"binance", "bybit", "okx"}
	}
	fundingSources := make([]oracle.FundingSource, 0, len(venues))
	for _, venue := range venues {
		switch strings.ToLower(strings.TrimSpace(venue)) {
		case "binance":
			fundingSources = append(fundingSources, feeds.NewBinanceFunding())
		case "bybit":
			fundingSources = append(fundingSources, feeds.NewBybitFunding())
		case "okx":
			fundingSources = append(fundingSources, feeds.NewOKXFunding())
		}
	}

	s.Oracle = oracle.New(sources, fundingSources,
		oracle.WithPriceTTL(cache.PriceTTL(s.TTL)),
		oracle.WithFundingTTL(cache.FundingTTL(s.TTL)),
	)
}

func (s *ServiceContext) initPerp() {
	perpCfg := s.Config.Perp.Value
	if perpCfg == nil {
		perpCfg = &perp.Config{
			Default:   "sim",
			Providers: map[string]*perp.ProviderConfig{"sim": {Type: "sim"}},
		}
	}
	providers, err := perpCfg.BuildProviders()
	if err != nil {
		log.Fatalf("failed to build perp providers: %v", err)
	}
	s.PerpProviders = providers

	var regulated, onchainProv perp.Provider
	regulatedCredentialed := false
	for name, pc := range perpCfg.Providers {
		switch strings.ToLower(pc.Type) {
		case "coinbase":
			regulated = providers[name]
			regulatedCredentialed = pc.HasCredentials()
		case "onchain":
			onchainProv = providers[name]
		case "sim":
			if onchainProv == nil {
				onchainProv = providers[name]
			}
		}
	}
	// Test runs never touch a live venue.
	if s.Config.IsTestEnv() {
		regulated = nil
		regulatedCredentialed = false
		onchainProv = sim.New()
	}

	s.PerpRouter = georouter.NewRouter(georouter.Config{
		Geography:            georouter.Geography(s.Config.Router.Geography),
		Preference:           georouter.Preference(s.Config.Router.Preference),
		RegulatedCredentials: regulatedCredentialed,
	}, regulated, onchainProv)
}

func (s *ServiceContext) initEngines() {
	s.AMM = amm.NewManager()
	s.ILRisk = ilrisk.NewEngine(hedgeDispatcher{router: s.PerpRouter})

	// Funding arbitrage needs a DEX spot venue for the long leg. Prefer the
	// aggregator, fall back to direct router swaps sized off the oracle;
	// without either the engine can still scan.
	var spot fundingarb.SpotTrader
	switch {
	case s.Aggregator != nil:
		spot = s.Aggregator
	case s.DexRouter != nil:
		spot = dex.NewRouterSpot(s.DexRouter, s.Tokens, s.Oracle, s.Config.Dex.SlippageBps)
	}
	provider, err := s.PerpRouter.SelectProvider()
	if err != nil {
		log.Fatalf("failed to select perp provider: %v", err)
	}
	s.FundingArb = fundingarb.NewEngine(s.Oracle, spot, provider)
}

func (s *ServiceContext) initLLM() {
	if s.Config.LLM.Value == nil {
		return
	}
	client, err := llmpkg.NewClient(s.Config.LLM.Value)
	if err != nil {
		log.Fatalf("failed to init llm client: %v", err)
	}
	s.LLM = client
}

func (s *ServiceContext) initActions() {
	var acts []actions.Action

	if s.Chain != nil && s.Tokens != nil {
		acts = append(acts, actions.NewTransferAction(s.Chain, s.Tokens, s.Config.Chain.NativeSymbol))
	}
	if s.Aggregator != nil && s.Tokens != nil {
		acts = append(acts, actions.NewSwapAction(s.Aggregator, s.Tokens))
	}
	var wallet actions.BalanceReader
	if s.Chain != nil {
		wallet = s.Chain
	}

	acts = append(acts,
		actions.NewPerpTradeAction(s.PerpRouter),
		actions.NewFundingArbAction(s.FundingArb, s.Config.Arb.Symbols, s.Config.Arb.NotionalUSD),
		actions.NewRebalanceAction(s.AMM, s.Oracle, actions.RebalanceDefaults{
			Threshold:     s.Config.Rebalance.Threshold,
			RangeWidth:    s.Config.Rebalance.RangeWidth,
			FeeDelta:      s.Config.Rebalance.FeeDelta,
			SlippageDelta: s.Config.Rebalance.SlippageDelta,
		}),
		actions.NewILHedgeAction(s.ILRisk),
		actions.NewPortfolioAction(wallet, s.PerpRouter, s.AMM, s.FundingArb, s.Config.Chain.NativeSymbol),
	)

	var extractor actions.IntentExtractor
	if s.LLM != nil {
		specs := make([]llmpkg.ActionSpec, 0, len(acts))
		for _, a := range acts {
			specs = append(specs, llmpkg.ActionSpec{
				Name:        a.Name(),
				Description: a.Description(),
				Params:      a.ParamNames(),
			})
		}
		extractor = llmpkg.NewExtractor(s.LLM, specs)
	}

	registry := actions.NewRegistry(extractor)
	for _, a := range acts {
		registry.Register(a)
	}
	s.Actions = registry
}

// hedgeDispatcher adapts the geographic router to the IL engine's dispatch
// interface.
type hedgeDispatcher struct {
	router *georouter.Router
}

func (d hedgeDispatcher) DispatchHedge(ctx context.Context, order ilrisk.HedgeOrder) error {
	base := order.Pair
	if i := strings.IndexByte(base, '/'); i > 0 {
		base = base[:i]
	}
	_, err := d.router.ExecuteHedge(ctx, perp.LPView{
		Pair:     order.Pair,
		Base:     base,
		ValueUSD: order.ValueUSD,
		Ratio:    order.Ratio,
	})
	return err
}
