package cli

import (
	"fmt"
	"strings"

	"github.com/zeromicro/go-zero/core/logx"

	"seidefi/internal/config"
	"seidefi/pkg/confkit"
)

// ConfigSummaryLines returns human readable lines describing the loaded app config.
func ConfigSummaryLines(cfg *config.Config) []string {
	if cfg == nil {
		return []string{"Configuration: <nil>"}
	}

	lines := []string{
		fmt.Sprintf("Environment: %s", cfg.Env),
		fmt.Sprintf("Chain RPC: %s", presence(strings.TrimSpace(cfg.Chain.RPCURL) != "")),
		fmt.Sprintf("Dex router: %s", presence(strings.TrimSpace(cfg.Dex.RouterAddress) != "")),
		fmt.Sprintf("Dex aggregator: %s", presence(strings.TrimSpace(cfg.Dex.AggregatorURL) != "")),
		fmt.Sprintf("Known tokens: %d", len(cfg.Dex.Tokens)),
		fmt.Sprintf("Funding venues: %s", venueList(cfg.Oracle.FundingVenues)),
		fmt.Sprintf("Perp routing: geography=%s preference=%s", cfg.Router.Geography, cfg.Router.Preference),
		fmt.Sprintf("Arb universe: %s (notional $%.0f)", venueList(cfg.Arb.Symbols), cfg.Arb.NotionalUSD),
		fmt.Sprintf("TTL (short/medium/long): %ds / %ds / %ds", cfg.TTL.Short, cfg.TTL.Medium, cfg.TTL.Long),
		sectionLine("LLM config", cfg.LLM),
		sectionLine("Perp config", cfg.Perp),
	}

	return lines
}

// LogConfigSummary emits the configuration summary using logx.
func LogConfigSummary(cfg *config.Config) {
	lines := ConfigSummaryLines(cfg)
	if len(lines) == 0 {
		return
	}
	logx.Info("configuration summary")
	for _, line := range lines {
		logx.Infof("config • %s", line)
	}
}

func presence(ok bool) string {
	if ok {
		return "configured"
	}
	return "not configured"
}

func venueList(values []string) string {
	if len(values) == 0 {
		return "none"
	}
	return strings.Join(values, ", ")
}

func sectionLine[T any](name string, section confkit.Section[T]) string {
	switch {
	case strings.TrimSpace(section.File) != "":
		return fmt.Sprintf("%s: %s", name, section.File)
	case section.Value != nil:
		return fmt.Sprintf("%s: inline", name)
	default:
		return fmt.Sprintf("%s: not configured", name)
	}
}
