package actions

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"seidefi/pkg/amm"
	"seidefi/pkg/chain"
	"seidefi/pkg/fundingarb"
)

// BalanceReader is the read surface of chain.Client the portfolio view uses.
type BalanceReader interface {
	Address() common.Address
	NativeBalance(ctx context.Context, addr common.Address) (*big.Int, error)
}

// PortfolioAction summarises everything the agent is holding or running:
// wallet balance, perp positions, liquidity positions and funding-arb legs.
// Every collaborator is optional; missing ones are skipped in the report.
type PortfolioAction struct {
	wallet       BalanceReader
	perps        ProviderSelector
	amm          *amm.Manager
	arb          *fundingarb.Engine
	nativeSymbol string
}

// NewPortfolioAction wires the portfolio status handler.
func NewPortfolioAction(wallet BalanceReader, perps ProviderSelector, ammManager *amm.Manager, arb *fundingarb.Engine, nativeSymbol string) *PortfolioAction {
	return &PortfolioAction{
		wallet:       wallet,
		perps:        perps,
		amm:          ammManager,
		arb:          arb,
		nativeSymbol: strings.ToUpper(nativeSymbol),
	}
}

func (a *PortfolioAction) Name() string { return "portfolio" }
func (a *PortfolioAction) Description() string {
	return "show portfolio status across wallet, perps, LP and funding positions"
}
func (a *PortfolioAction) ParamNames() []string {
	return nil
}

func (a *PortfolioAction) Validate(msg Message) bool {
	return containsAny(msg.Text, "portfolio", "balance", "holdings", "my positions")
}

func (a *PortfolioAction) Execute(ctx context.Context, msg Message) *Result {
	var b strings.Builder
	content := make(map[string]any)
	b.WriteString("Portfolio status:\n")

	if a.wallet != nil {
		if bal, err := a.wallet.NativeBalance(ctx, a.wallet.Address()); err == nil {
			native := chain.FromBaseUnits(bal, nativeDecimals)
			fmt.Fprintf(&b, "- Wallet %s: %s %s\n", a.wallet.Address().Hex(), formatAmount(native), a.nativeSymbol)
			content["wallet_native"] = native
		} else {
			fmt.Fprintf(&b, "- Wallet balance unavailable: %v\n", err)
		}
	}

	if a.perps != nil {
		if provider, err := a.perps.SelectProvider(); err == nil {
			if positions, err := provider.GetPositions(ctx); err == nil {
				if len(positions) == 0 {
					fmt.Fprintf(&b, "- No perp positions on %s\n", provider.Name())
				}
				for _, pos := range positions {
					fmt.Fprintf(&b, "- Perp %s %s: $%s at %dx, PnL $%.2f (%s)\n",
						pos.Side, pos.Symbol, formatAmount(pos.SizeUSD), pos.Leverage, pos.UnrealizedPnL, provider.Name())
				}
				content["perp_positions"] = positions
			} else {
				fmt.Fprintf(&b, "- Perp positions unavailable on %s: %v\n", provider.Name(), err)
			}
		}
	}

	if a.amm != nil {
		for _, pair := range a.amm.Symbols() {
			if pos, ok := a.amm.Snapshot(pair); ok {
				fmt.Fprintf(&b, "- LP %s: size %s, range [%s, %s]\n",
					pair, formatAmount(pos.Size), formatAmount(pos.Range.Min), formatAmount(pos.Range.Max))
			}
		}
		content["lp_pairs"] = a.amm.Symbols()
	}

	if a.arb != nil {
		positions := a.arb.Positions()
		for _, pos := range positions {
			fmt.Fprintf(&b, "- Funding arb %s: %s, est. PnL $%.2f\n", pos.ID, pos.Status, pos.FundingPnL)
		}
		content["funding_positions"] = positions
	}

	return &Result{Text: b.String(), Content: content}
}
