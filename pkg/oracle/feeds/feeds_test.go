package feeds

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPythSource_GetPrice(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/updates/price/latest", r.URL.Path)
		assert.NotEmpty(t, r.URL.Query()["ids[]"], "feed id must be passed")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"parsed": [{
				"id": "ff61491a",
				"price": {"price": "227512345678", "conf": "98765432", "expo": -8, "publish_time": 1735600000}
			}]
		}`))
	}))
	defer server.Close()

	src := NewPythSource(WithPythBaseURL(server.URL))
	quote, err := src.GetPrice(context.Background(), "eth")
	require.NoError(t, err)
	assert.Equal(t, "ETH", quote.Symbol)
	assert.InDelta(t, 2275.12345678, quote.Price, 1e-8, "price applies the exponent")
	assert.Equal(t, "pyth", quote.Source)
	assert.Greater(t, quote.Confidence, 0.99, "tight confidence interval yields high confidence")
}

func TestPythSource_UnknownSymbol(t *testing.T) {
	src := NewPythSource()
	_, err := src.GetPrice(context.Background(), "NOPE")
	assert.ErrorContains(t, err, "no feed id")
}

func TestPythSource_EmptyUpdate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"parsed": []}`))
	}))
	defer server.Close()

	src := NewPythSource(WithPythBaseURL(server.URL))
	_, err := src.GetPrice(context.Background(), "ETH")
	assert.ErrorContains(t, err, "empty update")
}

func TestBinanceFunding_GetFundingRate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/fapi/v1/premiumIndex", r.URL.Path)
		assert.Equal(t, "ETHUSDT", r.URL.Query().Get("symbol"))
		_, _ = w.Write([]byte(`{"lastFundingRate": "0.00010000", "nextFundingTime": 1735603200000, "time": 1735600000000}`))
	}))
	defer server.Close()

	src := NewBinanceFunding(WithFundingBaseURL(server.URL))
	rate, err := src.GetFundingRate(context.Background(), "ETH")
	require.NoError(t, err)
	assert.Equal(t, "binance", rate.Exchange)
	assert.InDelta(t, 0.0001, rate.Rate, 1e-12)
	assert.Equal(t, int64(1735603200000), rate.NextFunding.UnixMilli())
}

func TestBybitFunding_GetFundingRate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v5/market/tickers", r.URL.Path)
		assert.Equal(t, "linear", r.URL.Query().Get("category"))
		_, _ = w.Write([]byte(`{"result": {"list": [{"fundingRate": "0.00015", "nextFundingTime": "1735603200000"}]}}`))
	}))
	defer server.Close()

	src := NewBybitFunding(WithFundingBaseURL(server.URL))
	rate, err := src.GetFundingRate(context.Background(), "ETH")
	require.NoError(t, err)
	assert.InDelta(t, 0.00015, rate.Rate, 1e-12)
}

func TestBybitFunding_EmptyList(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"result": {"list": []}}`))
	}))
	defer server.Close()

	src := NewBybitFunding(WithFundingBaseURL(server.URL))
	_, err := src.GetFundingRate(context.Background(), "ETH")
	assert.ErrorContains(t, err, "no ticker")
}

func TestOKXFunding_GetFundingRate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v5/public/funding-rate", r.URL.Path)
		assert.Equal(t, "SEI-USDT-SWAP", r.URL.Query().Get("instId"))
		_, _ = w.Write([]byte(`{"data": [{"fundingRate": "-0.00005", "nextFundingTime": "1735603200000", "ts": "1735600000000"}]}`))
	}))
	defer server.Close()

	src := NewOKXFunding(WithFundingBaseURL(server.URL))
	rate, err := src.GetFundingRate(context.Background(), "SEI")
	require.NoError(t, err)
	assert.InDelta(t, -0.00005, rate.Rate, 1e-12, "negative funding passes through")
	assert.Equal(t, "SEI", rate.Symbol)
}

func TestFunding_UpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "teapot", http.StatusTeapot)
	}))
	defer server.Close()

	src := NewBinanceFunding(WithFundingBaseURL(server.URL))
	_, err := src.GetFundingRate(context.Background(), "ETH")
	assert.ErrorContains(t, err, "status 418")
}
