package actions

import (
	"context"
	"math/big"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"seidefi/pkg/chain"
	"seidefi/pkg/dex"
)

const nativeDecimals = 18

// transferPattern matches "send 1.5 SEI to 0x...". Looser phrasings fall
// back to the individual field parsers or LLM extraction.
var transferPattern = regexp.MustCompile(`(?i)\b(?:send|transfer)\s+\$?(\d+(?:\.\d+)?)\s+([A-Za-z]{2,10})\s+to\b`)

// ChainClient is the transfer surface of chain.Client.
type ChainClient interface {
	TransferNative(ctx context.Context, to common.Address, amountWei *big.Int) (string, error)
	TransferToken(ctx context.Context, token, to common.Address, amount *big.Int) (string, error)
}

// TransferAction sends native coin or ERC-20 tokens to an address.
type TransferAction struct {
	chain        ChainClient
	tokens       *dex.Registry
	nativeSymbol string
}

// NewTransferAction wires the transfer handler. nativeSymbol names the
// chain-native coin so it routes around the ERC-20 path.
func NewTransferAction(chainClient ChainClient, tokens *dex.Registry, nativeSymbol string) *TransferAction {
	return &TransferAction{chain: chainClient, tokens: tokens, nativeSymbol: strings.ToUpper(nativeSymbol)}
}

func (a *TransferAction) Name() string { return "transfer" }

func (a *TransferAction) Description() string {
	return "send native coin or ERC-20 tokens to an address"
}

func (a *TransferAction) ParamNames() []string { return []string{"amount", "token", "recipient"} }

func (a *TransferAction) Validate(msg Message) bool {
	return containsAny(msg.Text, "send", "transfer") && addressPattern.MatchString(msg.Text)
}

func (a *TransferAction) Execute(ctx context.Context, msg Message) *Result {
	amount, symbol, ok := a.parseTransfer(msg)
	if !ok {
		return errorResult("I couldn't work out the amount and token to send. Try e.g. \"send 1.5 SEI to 0x...\".")
	}
	recipient, ok := parseAddress(msg, "recipient")
	if !ok {
		return errorResult("I couldn't find a valid recipient address (0x followed by 40 hex characters).")
	}
	if amount <= 0 {
		return errorResult("transfer amount must be positive, got %v", amount)
	}

	var tx string
	var err error
	if symbol == a.nativeSymbol {
		tx, err = a.chain.TransferNative(ctx, recipient, chain.ToBaseUnits(amount, nativeDecimals))
	} else {
		tok, lookupErr := a.tokens.Lookup(symbol)
		if lookupErr != nil {
			return errorResult("I don't know the token %q.", symbol)
		}
		tx, err = a.chain.TransferToken(ctx, tok.Address, recipient, chain.ToBaseUnits(amount, tok.Decimals))
	}
	if err != nil {
		return errorResult("transfer failed: %v", err)
	}

	return &Result{
		Text: "Sent " + formatAmount(amount) + " " + symbol + " to " + recipient.Hex() + ". Tx: " + tx,
		Content: map[string]any{
			"amount":    amount,
			"token":     symbol,
			"recipient": recipient.Hex(),
			"tx":        tx,
		},
	}
}

func (a *TransferAction) parseTransfer(msg Message) (float64, string, bool) {
	if m := transferPattern.FindStringSubmatch(msg.Text); m != nil {
		if amounts := parseAmounts(m[1]); len(amounts) == 1 {
			return amounts[0], strings.ToUpper(m[2]), true
		}
	}
	amount, okAmount := parseAmount(msg, "amount")
	symbol, okSymbol := parseSymbol(msg, "token", a.knownToken)
	if okAmount && okSymbol {
		return amount, symbol, true
	}
	return 0, "", false
}

func (a *TransferAction) knownToken(symbol string) bool {
	if symbol == a.nativeSymbol {
		return true
	}
	_, err := a.tokens.Lookup(symbol)
	return err == nil
}
