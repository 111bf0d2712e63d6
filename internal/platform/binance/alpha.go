package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/alphatracker/internal/domain"
)

// alphaListPath is the public alpha token-list endpoint on the exchange's
// main host.
const alphaListPath = "/bapi/defi/v1/public/wallet-direct/buw/wallet/cex/alpha/all/token/list"

// FetchUniverse returns the full alpha token universe. The list is fetched
// fresh on every call; a malformed or unsuccessful payload yields
// domain.ErrInvalidResponse.
func (c *Client) FetchUniverse(ctx context.Context) ([]domain.UniverseToken, error) {
	body, err := c.doGet(ctx, c.cfg.AlphaHost+alphaListPath, c.cfg.UniverseTimeout)
	if err != nil {
		return nil, fmt.Errorf("binance: fetch universe: %w", err)
	}

	var resp alphaListResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("binance: %w: decode universe: %v", domain.ErrInvalidResponse, err)
	}
	if !resp.Success || resp.Code != alphaSuccessCode {
		return nil, fmt.Errorf("binance: %w: universe code=%s message=%s",
			domain.ErrInvalidResponse, resp.Code, resp.Message)
	}
	if resp.Data == nil {
		return nil, fmt.Errorf("binance: %w: universe payload has no token list", domain.ErrInvalidResponse)
	}

	tokens := make([]domain.UniverseToken, 0, len(resp.Data))
	for i := range resp.Data {
		tokens = append(tokens, resp.Data[i].ToDomainUniverseToken())
	}

	c.logger.Debug("fetched alpha universe", slog.Int("count", len(tokens)))
	return tokens, nil
}
