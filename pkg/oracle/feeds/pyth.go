package feeds

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"seidefi/pkg/oracle"
)

const defaultPythBaseURL = "https://hermes.pyth.network"

// pythFeedIDs maps symbols to Pyth price feed identifiers.
var pythFeedIDs = map[string]string{
	"BTC":  "e62df6c8b4a85fe1a67db44dc12de5db330f7ac66b72dc658afedf0f4a415b43",
	"ETH":  "ff61491a931112ddf1bd8147cd1b641375f79f5825126d665480874634fd0ace",
	"SEI":  "53614f1cb0c031d4af66c04cb9c756234adad0e1cee85303795091499a4084eb",
	"SOL":  "ef0d8b6fda2ceba41da15d4095d1da392a0d2f8ed0c6c7bc0f4cfac8c280b56d",
	"USDC": "eaa020c61cc479712813461ce153894a96a6c00b21ed0cfc2798d1f9a9e9c94a",
	"USDT": "2b89b9dc8fdf9f34709a5b106b472f0f39bb6ca9ce04b0fd7f2e971688e2e53b",
}

// PythSource reads spot prices from a Pyth Hermes endpoint.
type PythSource struct {
	baseURL    string
	httpClient *http.Client
}

// PythOption configures a PythSource.
type PythOption func(*PythSource)

// WithPythBaseURL overrides the Hermes endpoint (tests point this at httptest).
func WithPythBaseURL(base string) PythOption {
	return func(s *PythSource) {
		if base != "" {
			s.baseURL = strings.TrimRight(base, "/")
		}
	}
}

// WithPythHTTPClient injects a custom http.Client.
func WithPythHTTPClient(hc *http.Client) PythOption {
	return func(s *PythSource) {
		if hc != nil {
			s.httpClient = hc
		}
	}
}

// NewPythSource constructs a Hermes-backed price source.
func NewPythSource(opts ...PythOption) *PythSource {
	s := &PythSource{
		baseURL:    defaultPythBaseURL,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name identifies the source in fallback order and logs.
func (s *PythSource) Name() string { return "pyth" }

type pythResponse struct {
	Parsed []struct {
		ID    string `json:"id"`
		Price struct {
			Price       string `json:"price"`
			Conf        string `json:"conf"`
			Expo        int    `json:"expo"`
			PublishTime int64  `json:"publish_time"`
		} `json:"price"`
	} `json:"parsed"`
}

// GetPrice fetches the latest price update for symbol's feed.
func (s *PythSource) GetPrice(ctx context.Context, symbol string) (*oracle.Quote, error) {
	feedID, ok := pythFeedIDs[strings.ToUpper(strings.TrimSpace(symbol))]
	if !ok {
		return nil, fmt.Errorf("pyth: no feed id for symbol %s", symbol)
	}
	endpoint := fmt.Sprintf("%s/v2/updates/price/latest?ids[]=%s", s.baseURL, url.QueryEscape(feedID))

	var resp pythResponse
	if err := doGet(ctx, s.httpClient, endpoint, &resp); err != nil {
		return nil, err
	}
	if len(resp.Parsed) == 0 {
		return nil, fmt.Errorf("pyth: empty update for %s", symbol)
	}

	raw := resp.Parsed[0].Price
	mantissa, err := strconv.ParseFloat(raw.Price, 64)
	if err != nil {
		return nil, fmt.Errorf("pyth: parse price %q: %w", raw.Price, err)
	}
	price := mantissa * math.Pow10(raw.Expo)
	if price <= 0 {
		return nil, fmt.Errorf("pyth: non-positive price for %s", symbol)
	}

	confidence := 0.95
	if conf, err := strconv.ParseFloat(raw.Conf, 64); err == nil && price > 0 {
		// Narrower confidence interval relative to price means a firmer quote.
		confidence = math.Max(0, 1-conf*math.Pow10(raw.Expo)/price)
	}

	return &oracle.Quote{
		Symbol:     strings.ToUpper(symbol),
		Price:      price,
		Timestamp:  time.Unix(raw.PublishTime, 0),
		Source:     s.Name(),
		Confidence: confidence,
	}, nil
}
