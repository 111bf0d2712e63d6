package binance

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/alphatracker/internal/domain"
)

func newTestClient(baseURL string) *Client {
	return NewClient(Config{
		SpotHost:          baseURL,
		FuturesHost:       baseURL,
		AlphaHost:         baseURL,
		RetryMaxAttempts:  3,
		RetryBaseDelay:    time.Millisecond,
		RateLimitCooldown: time.Millisecond,
		MinRequestGap:     0,
		UniverseTimeout:   2 * time.Second,
		ListingTimeout:    2 * time.Second,
		TickerTimeout:     2 * time.Second,
	}, slog.New(slog.DiscardHandler))
}

const universeOK = `{
	"code": "000000",
	"message": null,
	"success": true,
	"data": [{
		"alphaId": "ALPHA_42",
		"symbol": "ZORA",
		"name": "Zora",
		"price": "0.0123",
		"percentChange24h": "-3.5",
		"volume24h": "1250000.75",
		"marketCap": "98000000",
		"holders": "10523",
		"chainName": "Base",
		"contractAddress": "0xabc"
	}]
}`

func TestFetchUniverse(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, alphaListPath, r.URL.Path)
		w.Write([]byte(universeOK))
	}))
	defer ts.Close()

	tokens, err := newTestClient(ts.URL).FetchUniverse(context.Background())
	require.NoError(t, err)
	require.Len(t, tokens, 1)

	got := tokens[0]
	assert.Equal(t, "ZORA", got.Symbol)
	assert.Equal(t, "Zora", got.Name)
	assert.InDelta(t, 0.0123, got.PriceUSDT, 1e-9)
	assert.InDelta(t, -3.5, got.Change24hPct, 1e-9)
	assert.InDelta(t, 1250000.75, got.Volume24h, 1e-9)
	assert.Equal(t, int64(10523), got.Holders)
	assert.Equal(t, "Base", got.ChainName)
	assert.Equal(t, "ALPHA_42", got.AlphaID)
}

func TestFetchUniverseRejectsBadEnvelope(t *testing.T) {
	cases := map[string]string{
		"in-band failure": `{"code": "500100", "message": "oops", "success": false}`,
		"missing data":    `{"code": "000000", "success": true}`,
		"not json":        `<html>maintenance</html>`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(body))
			}))
			defer ts.Close()

			_, err := newTestClient(ts.URL).FetchUniverse(context.Background())
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrInvalidResponse), "got %v", err)
		})
	}
}

func TestRetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "internal", http.StatusInternalServerError)
	}))
	defer ts.Close()

	_, err := newTestClient(ts.URL).FetchUniverse(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUpstream))
	assert.Equal(t, int32(3), hits.Load())
}

func TestRetriesTransportFailures(t *testing.T) {
	var hits atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		// Kill the connection before any response bytes are written.
		if hj, ok := w.(http.Hijacker); ok {
			if conn, _, err := hj.Hijack(); err == nil {
				conn.Close()
			}
		}
	}))
	defer ts.Close()

	_, err := newTestClient(ts.URL).FetchUniverse(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUpstream))
	assert.Equal(t, int32(3), hits.Load())
}

func TestFailsFastOnNotFound(t *testing.T) {
	var hits atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer ts.Close()

	_, err := newTestClient(ts.URL).FetchUniverse(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	assert.Equal(t, int32(1), hits.Load())
}

func TestRecoversAfterRateLimit(t *testing.T) {
	var hits atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			http.Error(w, "slow down", http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(universeOK))
	}))
	defer ts.Close()

	tokens, err := newTestClient(ts.URL).FetchUniverse(context.Background())
	require.NoError(t, err)
	assert.Len(t, tokens, 1)
	assert.Equal(t, int32(2), hits.Load())
}

func TestCheckListingTriesContractFormats(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("symbol") {
		case "ZORAUSDC":
			w.Write([]byte(`{"symbols": [{
				"symbol": "ZORAUSDC",
				"status": "TRADING",
				"contractType": "PERPETUAL",
				"onboardDate": 1718064000000,
				"baseAsset": "ZORA",
				"quoteAsset": "USDC",
				"pricePrecision": 7,
				"quantityPrecision": 0
			}]}`))
		default:
			http.Error(w, `{"code":-1121,"msg":"Invalid symbol."}`, http.StatusBadRequest)
		}
	}))
	defer ts.Close()

	info, err := newTestClient(ts.URL).CheckListing(context.Background(), "ZORA")
	require.NoError(t, err)

	assert.True(t, info.Available)
	assert.Equal(t, "ZORAUSDC", info.ContractSymbol)
	assert.Equal(t, "TRADING", info.Status)
	assert.Equal(t, "PERPETUAL", info.ContractType)
	require.NotNil(t, info.ListingDate)
	assert.Equal(t, time.UnixMilli(1718064000000).UTC(), *info.ListingDate)
}

func TestCheckListingNoContractIsAnAnswer(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"code":-1121,"msg":"Invalid symbol."}`, http.StatusBadRequest)
	}))
	defer ts.Close()

	info, err := newTestClient(ts.URL).CheckListing(context.Background(), "ghost")
	require.NoError(t, err)

	assert.False(t, info.Available)
	assert.Equal(t, domain.ListingStatusNotFound, info.Status)
	assert.Equal(t, "GHOST", info.BaseAsset)
}

func TestCheckListingSettledContractIsNotAvailable(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"symbols": [{"symbol": "ZORAUSDT", "status": "SETTLING"}]}`))
	}))
	defer ts.Close()

	info, err := newTestClient(ts.URL).CheckListing(context.Background(), "ZORA")
	require.NoError(t, err)

	assert.False(t, info.Available)
	assert.Equal(t, "SETTLING", info.Status)
}

func TestTicker24hQuoteFallback(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("symbol") {
		case "ZORAUSDC":
			w.Write([]byte(`{
				"symbol": "ZORAUSDC",
				"lastPrice": "0.0123",
				"priceChangePercent": "4.20",
				"volume": "5000000",
				"quoteVolume": "61500",
				"highPrice": "0.0130",
				"lowPrice": "0.0110"
			}`))
		default:
			http.Error(w, `{"code":-1121,"msg":"Invalid symbol."}`, http.StatusBadRequest)
		}
	}))
	defer ts.Close()

	ticker, err := newTestClient(ts.URL).Ticker24h(context.Background(), "ZORA")
	require.NoError(t, err)

	assert.Equal(t, "ZORAUSDC", ticker.Symbol)
	assert.InDelta(t, 0.0123, ticker.LastPrice, 1e-9)
	assert.InDelta(t, 4.20, ticker.Change24hPct, 1e-9)
}

func TestTicker24hNoSpotPair(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"code":-1121,"msg":"Invalid symbol."}`, http.StatusBadRequest)
	}))
	defer ts.Close()

	_, err := newTestClient(ts.URL).Ticker24h(context.Background(), "GHOST")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}
