package dex

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"seidefi/pkg/chain"
)

const (
	defaultAggTimeout  = 8 * time.Second
	defaultSlippageBps = 50
	quoteRetryPause    = 500 * time.Millisecond
)

// QuoteResult is an aggregator route quote. AmountOut is the expected fill
// before slippage.
type QuoteResult struct {
	RouteID     string
	TokenIn     Token
	TokenOut    Token
	AmountIn    *big.Int
	AmountOut   *big.Int
	PriceImpact float64
}

// Aggregator quotes and executes swaps through an off-chain routing service
// that returns ready-to-send transaction payloads.
type Aggregator struct {
	baseURL     string
	httpClient  *http.Client
	sender      TxSender
	registry    *Registry
	slippageBps int64
	retryPause  time.Duration
}

// AggregatorOption customises an Aggregator.
type AggregatorOption func(*Aggregator)

// WithAggHTTPClient swaps the HTTP client. Test hook.
func WithAggHTTPClient(hc *http.Client) AggregatorOption {
	return func(a *Aggregator) {
		if hc != nil {
			a.httpClient = hc
		}
	}
}

// WithSlippageBps overrides the default 50bps slippage tolerance.
func WithSlippageBps(bps int64) AggregatorOption {
	return func(a *Aggregator) {
		if bps >= 0 {
			a.slippageBps = bps
		}
	}
}

// WithQuoteRetryPause shortens the retry pause. Test hook.
func WithQuoteRetryPause(d time.Duration) AggregatorOption {
	return func(a *Aggregator) { a.retryPause = d }
}

// NewAggregator binds the routing service at baseURL to a transaction sender.
func NewAggregator(baseURL string, sender TxSender, registry *Registry, opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{
		baseURL:     strings.TrimRight(baseURL, "/"),
		httpClient:  &http.Client{Timeout: defaultAggTimeout},
		sender:      sender,
		registry:    registry,
		slippageBps: defaultSlippageBps,
		retryPause:  quoteRetryPause,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Aggregator) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

type quoteResponse struct {
	RouteID     string  `json:"routeId"`
	AmountIn    string  `json:"amountIn"`
	AmountOut   string  `json:"amountOut"`
	PriceImpact float64 `json:"priceImpact"`
}

type swapResponse struct {
	To    string `json:"to"`
	Data  string `json:"data"`
	Value string `json:"value"`
}

// Quote fetches a route for selling amountIn of tokenIn into tokenOut.
// Quotes are idempotent reads, so a failed fetch is retried once.
func (a *Aggregator) Quote(ctx context.Context, tokenIn, tokenOut Token, amountIn *big.Int) (*QuoteResult, error) {
	if amountIn == nil || amountIn.Sign() <= 0 {
		return nil, fmt.Errorf("dex: quote amount must be positive")
	}
	q := url.Values{}
	q.Set("tokenIn", tokenIn.Address.Hex())
	q.Set("tokenOut", tokenOut.Address.Hex())
	q.Set("amountIn", amountIn.String())
	q.Set("slippageBps", fmt.Sprintf("%d", a.slippageBps))
	endpoint := a.baseURL + "/v1/quote?" + q.Encode()

	var resp quoteResponse
	err := a.getJSON(ctx, endpoint, &resp)
	if err != nil {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(a.retryPause):
		}
		err = a.getJSON(ctx, endpoint, &resp)
	}
	if err != nil {
		return nil, fmt.Errorf("dex: quote %s->%s: %w", tokenIn.Symbol, tokenOut.Symbol, err)
	}

	out, ok := new(big.Int).SetString(resp.AmountOut, 10)
	if !ok {
		return nil, fmt.Errorf("dex: quote %s->%s: bad amountOut %q", tokenIn.Symbol, tokenOut.Symbol, resp.AmountOut)
	}
	return &QuoteResult{
		RouteID:     resp.RouteID,
		TokenIn:     tokenIn,
		TokenOut:    tokenOut,
		AmountIn:    new(big.Int).Set(amountIn),
		AmountOut:   out,
		PriceImpact: resp.PriceImpact,
	}, nil
}

// Swap builds the transaction for a previously fetched quote and broadcasts
// it, returning the tx hash.
func (a *Aggregator) Swap(ctx context.Context, quote *QuoteResult) (string, error) {
	if quote == nil || quote.RouteID == "" {
		return "", fmt.Errorf("dex: swap requires a quoted route")
	}
	body, err := json.Marshal(map[string]string{
		"routeId":   quote.RouteID,
		"recipient": a.sender.Address().Hex(),
	})
	if err != nil {
		return "", fmt.Errorf("dex: encode swap request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/v1/swap", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("dex: build swap request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	httpResp, err := a.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("dex: swap route %s: %w", quote.RouteID, err)
	}
	defer httpResp.Body.Close()
	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return "", fmt.Errorf("dex: read swap response: %w", err)
	}
	if httpResp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("dex: swap route %s: status %d: %s", quote.RouteID, httpResp.StatusCode, strings.TrimSpace(string(raw)))
	}
	var resp swapResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("dex: decode swap response: %w", err)
	}

	data, err := hex.DecodeString(strings.TrimPrefix(resp.Data, "0x"))
	if err != nil {
		return "", fmt.Errorf("dex: decode swap calldata: %w", err)
	}
	value := big.NewInt(0)
	if resp.Value != "" {
		if _, ok := value.SetString(resp.Value, 10); !ok {
			return "", fmt.Errorf("dex: bad swap value %q", resp.Value)
		}
	}
	tx, err := a.sender.SendCall(ctx, common.HexToAddress(resp.To), value, data, swapGasFallback)
	if err != nil {
		return "", fmt.Errorf("dex: broadcast swap: %w", err)
	}
	return tx, nil
}

// BuySpot swaps usdAmount of the quote stable into the named token. It is
// the spot hedge leg for funding positions collecting short-side funding.
func (a *Aggregator) BuySpot(ctx context.Context, symbol string, usdAmount float64) (string, error) {
	tok, err := a.registry.Lookup(symbol)
	if err != nil {
		return "", err
	}
	if usdAmount <= 0 {
		return "", fmt.Errorf("dex: spot buy amount must be positive, got %v", usdAmount)
	}
	stable := a.registry.Quote()
	quote, err := a.Quote(ctx, stable, tok, chain.ToBaseUnits(usdAmount, stable.Decimals))
	if err != nil {
		return "", err
	}
	return a.Swap(ctx, quote)
}

// SellSpot swaps a usdAmount-worth of the named token back into the quote
// stable. The token amount is derived from a fresh forward quote, so the
// realized proceeds track the current rate rather than a stored entry price.
func (a *Aggregator) SellSpot(ctx context.Context, symbol string, usdAmount float64) (string, error) {
	tok, err := a.registry.Lookup(symbol)
	if err != nil {
		return "", err
	}
	if usdAmount <= 0 {
		return "", fmt.Errorf("dex: spot sell amount must be positive, got %v", usdAmount)
	}
	stable := a.registry.Quote()
	forward, err := a.Quote(ctx, stable, tok, chain.ToBaseUnits(usdAmount, stable.Decimals))
	if err != nil {
		return "", err
	}
	quote, err := a.Quote(ctx, tok, stable, forward.AmountOut)
	if err != nil {
		return "", err
	}
	return a.Swap(ctx, quote)
}
