package feeds

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"seidefi/pkg/oracle"
)

const (
	defaultBinanceBaseURL = "https://fapi.binance.com"
	defaultBybitBaseURL   = "https://api.bybit.com"
	defaultOKXBaseURL     = "https://www.okx.com"
)

// FundingOption configures any of the funding feed clients.
type FundingOption func(*fundingClient)

// WithFundingBaseURL overrides the venue endpoint.
func WithFundingBaseURL(base string) FundingOption {
	return func(c *fundingClient) {
		if base != "" {
			c.baseURL = strings.TrimRight(base, "/")
		}
	}
}

// WithFundingHTTPClient injects a custom http.Client.
func WithFundingHTTPClient(hc *http.Client) FundingOption {
	return func(c *fundingClient) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

type fundingClient struct {
	baseURL    string
	httpClient *http.Client
}

func newFundingClient(baseURL string, opts []FundingOption) fundingClient {
	c := fundingClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// usdtPerp renders "ETH" as "ETHUSDT".
func usdtPerp(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol)) + "USDT"
}

// BinanceFunding reads funding rates from the Binance futures API.
type BinanceFunding struct {
	fundingClient
}

// NewBinanceFunding constructs the Binance funding source.
func NewBinanceFunding(opts ...FundingOption) *BinanceFunding {
	return &BinanceFunding{newFundingClient(defaultBinanceBaseURL, opts)}
}

// Name identifies the venue.
func (s *BinanceFunding) Name() string { return "binance" }

// GetFundingRate fetches the premium index entry for symbol's USDT perp.
func (s *BinanceFunding) GetFundingRate(ctx context.Context, symbol string) (*oracle.FundingRate, error) {
	var resp struct {
		LastFundingRate string `json:"lastFundingRate"`
		NextFundingTime int64  `json:"nextFundingTime"`
		Time            int64  `json:"time"`
	}
	endpoint := fmt.Sprintf("%s/fapi/v1/premiumIndex?symbol=%s", s.baseURL, usdtPerp(symbol))
	if err := doGet(ctx, s.httpClient, endpoint, &resp); err != nil {
		return nil, err
	}
	rate, err := strconv.ParseFloat(resp.LastFundingRate, 64)
	if err != nil {
		return nil, fmt.Errorf("binance: parse funding rate %q: %w", resp.LastFundingRate, err)
	}
	return &oracle.FundingRate{
		Exchange:    s.Name(),
		Symbol:      strings.ToUpper(symbol),
		Rate:        rate,
		NextFunding: time.UnixMilli(resp.NextFundingTime),
		Timestamp:   time.UnixMilli(resp.Time),
	}, nil
}

// BybitFunding reads funding rates from the Bybit v5 market API.
type BybitFunding struct {
	fundingClient
}

// NewBybitFunding constructs the Bybit funding source.
func NewBybitFunding(opts ...FundingOption) *BybitFunding {
	return &BybitFunding{newFundingClient(defaultBybitBaseURL, opts)}
}

// Name identifies the venue.
func (s *BybitFunding) Name() string { return "bybit" }

// GetFundingRate fetches the linear ticker for symbol's USDT perp.
func (s *BybitFunding) GetFundingRate(ctx context.Context, symbol string) (*oracle.FundingRate, error) {
	var resp struct {
		Result struct {
			List []struct {
				FundingRate     string `json:"fundingRate"`
				NextFundingTime string `json:"nextFundingTime"`
			} `json:"list"`
		} `json:"result"`
	}
	endpoint := fmt.Sprintf("%s/v5/market/tickers?category=linear&symbol=%s", s.baseURL, usdtPerp(symbol))
	if err := doGet(ctx, s.httpClient, endpoint, &resp); err != nil {
		return nil, err
	}
	if len(resp.Result.List) == 0 {
		return nil, fmt.Errorf("bybit: no ticker for %s", symbol)
	}
	entry := resp.Result.List[0]
	rate, err := strconv.ParseFloat(entry.FundingRate, 64)
	if err != nil {
		return nil, fmt.Errorf("bybit: parse funding rate %q: %w", entry.FundingRate, err)
	}
	next, _ := strconv.ParseInt(entry.NextFundingTime, 10, 64)
	return &oracle.FundingRate{
		Exchange:    s.Name(),
		Symbol:      strings.ToUpper(symbol),
		Rate:        rate,
		NextFunding: time.UnixMilli(next),
		Timestamp:   time.Now(),
	}, nil
}

// OKXFunding reads funding rates from the OKX public API.
type OKXFunding struct {
	fundingClient
}

// NewOKXFunding constructs the OKX funding source.
func NewOKXFunding(opts ...FundingOption) *OKXFunding {
	return &OKXFunding{newFundingClient(defaultOKXBaseURL, opts)}
}

// Name identifies the venue.
func (s *OKXFunding) Name() string { return "okx" }

// GetFundingRate fetches the swap funding entry for symbol.
func (s *OKXFunding) GetFundingRate(ctx context.Context, symbol string) (*oracle.FundingRate, error) {
	var resp struct {
		Data []struct {
			FundingRate     string `json:"fundingRate"`
			NextFundingTime string `json:"nextFundingTime"`
			Ts              string `json:"ts"`
		} `json:"data"`
	}
	instID := strings.ToUpper(strings.TrimSpace(symbol)) + "-USDT-SWAP"
	endpoint := fmt.Sprintf("%s/api/v5/public/funding-rate?instId=%s", s.baseURL, instID)
	if err := doGet(ctx, s.httpClient, endpoint, &resp); err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("okx: no funding data for %s", symbol)
	}
	entry := resp.Data[0]
	rate, err := strconv.ParseFloat(entry.FundingRate, 64)
	if err != nil {
		return nil, fmt.Errorf("okx: parse funding rate %q: %w", entry.FundingRate, err)
	}
	next, _ := strconv.ParseInt(entry.NextFundingTime, 10, 64)
	ts, _ := strconv.ParseInt(entry.Ts, 10, 64)
	return &oracle.FundingRate{
		Exchange:    s.Name(),
		Symbol:      strings.ToUpper(symbol),
		Rate:        rate,
		NextFunding: time.UnixMilli(next),
		Timestamp:   time.UnixMilli(ts),
	}, nil
}
