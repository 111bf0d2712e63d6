package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/alanyoungcy/alphatracker/internal/domain"
)

// exchangeInfoPath is the futures exchange information endpoint, filterable
// by contract symbol.
const exchangeInfoPath = "/fapi/v1/exchangeInfo"

// CheckListing reports the futures-listing state of one base asset. It tries
// the plausible contract symbol formats in order and returns the first match.
// A symbol with no contract in any format is the business answer
// Status=NOT_FOUND, not an error.
func (c *Client) CheckListing(ctx context.Context, symbol string) (domain.ListingInfo, error) {
	norm := domain.NormalizeSymbol(symbol)

	candidates := []string{norm + "USDT"}
	if symbol != norm {
		candidates = append(candidates, symbol+"USDT")
	}
	candidates = append(candidates, norm+"USDC")

	for _, contract := range candidates {
		if err := c.waitTurn(ctx); err != nil {
			return domain.ListingInfo{}, fmt.Errorf("binance: check listing %s: %w", norm, err)
		}

		query := url.Values{}
		query.Set("symbol", contract)
		reqURL := c.cfg.FuturesHost + exchangeInfoPath + "?" + query.Encode()

		body, err := c.doGet(ctx, reqURL, c.cfg.ListingTimeout)
		if err != nil {
			// The endpoint rejects unknown contract symbols with a
			// client error; that just means "try the next format".
			if status := httpStatus(err); status == http.StatusBadRequest || status == http.StatusNotFound {
				continue
			}
			return domain.ListingInfo{}, fmt.Errorf("binance: check listing %s: %w", norm, err)
		}

		var resp exchangeInfoResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return domain.ListingInfo{}, fmt.Errorf("binance: %w: decode exchange info for %s: %v",
				domain.ErrInvalidResponse, contract, err)
		}

		for i := range resp.Symbols {
			if resp.Symbols[i].Symbol == contract {
				info := resp.Symbols[i].ToDomainListing()
				c.logger.Debug("listing lookup hit",
					slog.String("symbol", norm),
					slog.String("contract", info.ContractSymbol),
					slog.String("status", info.Status),
				)
				return info, nil
			}
		}
	}

	return domain.ListingInfo{
		Available: false,
		Status:    domain.ListingStatusNotFound,
		BaseAsset: norm,
	}, nil
}
