package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/alanyoungcy/alphatracker/internal/domain"
)

// tickerPath is the spot 24h rolling ticker endpoint.
const tickerPath = "/api/v3/ticker/24hr"

// Ticker24h returns the 24h spot ticker for a base asset. It tries the USDT
// pair first and falls back to USDC when the USDT pair does not exist. A base
// asset without either pair yields domain.ErrNotFound.
func (c *Client) Ticker24h(ctx context.Context, symbol string) (Ticker, error) {
	norm := domain.NormalizeSymbol(symbol)

	for _, quote := range []string{"USDT", "USDC"} {
		pair := norm + quote
		body, err := c.doGet(ctx, c.cfg.SpotHost+tickerPath+"?symbol="+pair, c.cfg.TickerTimeout)
		if err != nil {
			if status := httpStatus(err); status == http.StatusBadRequest || status == http.StatusNotFound {
				continue
			}
			return Ticker{}, fmt.Errorf("binance: ticker %s: %w", pair, err)
		}

		var resp apiTicker
		if err := json.Unmarshal(body, &resp); err != nil {
			return Ticker{}, fmt.Errorf("binance: %w: decode ticker %s: %v",
				domain.ErrInvalidResponse, pair, err)
		}
		return resp.toTicker(), nil
	}

	return Ticker{}, fmt.Errorf("binance: ticker %s: %w: no spot pair", norm, domain.ErrNotFound)
}
