package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/alphatracker/internal/domain"
	"github.com/alanyoungcy/alphatracker/internal/service"
)

// TokenHandler serves the token tracking and verification endpoints.
type TokenHandler struct {
	tokens     *service.TokenService
	reconciler *service.Reconciler
	verifier   *service.Verifier
	prices     domain.PriceCache
	logger     *slog.Logger
}

// NewTokenHandler creates a TokenHandler.
func NewTokenHandler(
	tokens *service.TokenService,
	reconciler *service.Reconciler,
	verifier *service.Verifier,
	prices domain.PriceCache,
	logger *slog.Logger,
) *TokenHandler {
	return &TokenHandler{
		tokens:     tokens,
		reconciler: reconciler,
		verifier:   verifier,
		prices:     prices,
		logger:     logHandler(logger, "tokens"),
	}
}

// ListTokens returns the tracked set, or the full reconciled view when
// all_available=true is passed. futures_only=true keeps only tokens with a
// confirmed futures listing.
// GET /api/tokens
func (h *TokenHandler) ListTokens(w http.ResponseWriter, r *http.Request) {
	futuresOnly := parseBoolParam(r, "futures_only")

	if parseBoolParam(r, "all_available") {
		result, err := h.reconciler.Reconcile(r.Context())
		if err != nil {
			h.logger.Error("on-demand reconcile failed", slog.String("error", err.Error()))
			writeError(w, http.StatusBadGateway, "universe fetch failed")
			return
		}
		tokens := result.Tokens
		if futuresOnly {
			filtered := tokens[:0]
			for _, t := range tokens {
				if t.FuturesListed != nil && *t.FuturesListed {
					filtered = append(filtered, t)
				}
			}
			tokens = filtered
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"pass_id": result.PassID,
			"count":   len(tokens),
			"tokens":  tokens,
		})
		return
	}

	tracked, err := h.tokens.ListTracked(r.Context())
	if err != nil {
		h.logger.Error("list tracked failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list tokens")
		return
	}
	if futuresOnly {
		filtered := tracked[:0]
		for _, t := range tracked {
			if t.FuturesListed != nil && *t.FuturesListed {
				filtered = append(filtered, t)
			}
		}
		tracked = filtered
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":  len(tracked),
		"tokens": tracked,
	})
}

// trackRequest is the body of POST /api/tokens.
type trackRequest struct {
	Symbol          string `json:"symbol"`
	Name            string `json:"name"`
	Priority        int    `json:"priority"`
	Notes           string `json:"notes"`
	ChainID         string `json:"chain_id"`
	ContractAddress string `json:"contract_address"`
}

// TrackToken adds a symbol to the tracked set.
// POST /api/tokens
func (h *TokenHandler) TrackToken(w http.ResponseWriter, r *http.Request) {
	var req trackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}

	token, err := h.tokens.Track(r.Context(), domain.TrackedToken{
		Symbol:          req.Symbol,
		Name:            req.Name,
		Priority:        req.Priority,
		Notes:           req.Notes,
		ChainID:         req.ChainID,
		ContractAddress: req.ContractAddress,
	})
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			writeError(w, http.StatusConflict, "token is already tracked")
			return
		}
		h.logger.Error("track failed", slog.String("symbol", req.Symbol), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to track token")
		return
	}
	writeJSON(w, http.StatusCreated, token)
}

// GetToken resolves one token by symbol.
// GET /api/tokens/{symbol}
func (h *TokenHandler) GetToken(w http.ResponseWriter, r *http.Request) {
	symbol := pathParam(r, "symbol")

	token, err := h.tokens.Get(r.Context(), symbol)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "token not found")
			return
		}
		h.logger.Error("get token failed", slog.String("symbol", symbol), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to get token")
		return
	}
	writeJSON(w, http.StatusOK, token)
}

// UntrackToken soft-deletes a tracked token.
// DELETE /api/tokens/{symbol}
func (h *TokenHandler) UntrackToken(w http.ResponseWriter, r *http.Request) {
	symbol := pathParam(r, "symbol")

	if err := h.tokens.Untrack(r.Context(), symbol); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "token not tracked")
			return
		}
		h.logger.Error("untrack failed", slog.String("symbol", symbol), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to untrack token")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "untracked"})
}

// SetPriority updates a token's sort weight.
// PUT /api/tokens/{symbol}/priority
func (h *TokenHandler) SetPriority(w http.ResponseWriter, r *http.Request) {
	symbol := pathParam(r, "symbol")

	var req struct {
		Priority int `json:"priority"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := h.tokens.SetPriority(r.Context(), symbol, req.Priority); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "token not tracked")
			return
		}
		h.logger.Error("set priority failed", slog.String("symbol", symbol), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to set priority")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// SetNotes updates a token's curator notes.
// PUT /api/tokens/{symbol}/notes
func (h *TokenHandler) SetNotes(w http.ResponseWriter, r *http.Request) {
	symbol := pathParam(r, "symbol")

	var req struct {
		Notes string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := h.tokens.SetNotes(r.Context(), symbol, req.Notes); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "token not tracked")
			return
		}
		h.logger.Error("set notes failed", slog.String("symbol", symbol), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to set notes")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// GetPrice returns the latest cached price for a symbol.
// GET /api/tokens/{symbol}/price
func (h *TokenHandler) GetPrice(w http.ResponseWriter, r *http.Request) {
	symbol := pathParam(r, "symbol")

	price, ts, err := h.prices.GetPrice(r.Context(), symbol)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no price recorded for symbol")
			return
		}
		h.logger.Error("get price failed", slog.String("symbol", symbol), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to get price")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"symbol":     domain.NormalizeSymbol(symbol),
		"price_usdt": price,
		"updated_at": ts.UTC().Format(time.RFC3339),
	})
}

// VerifyFutures runs an on-demand two-factor verification for a symbol. The
// optional name query parameter enables strict mode.
// GET /api/tokens/{symbol}/futures
func (h *TokenHandler) VerifyFutures(w http.ResponseWriter, r *http.Request) {
	symbol := pathParam(r, "symbol")
	name := r.URL.Query().Get("name")

	outcome, err := h.verifier.Verify(r.Context(), symbol, name)
	if err != nil {
		if errors.Is(err, domain.ErrInconclusive) {
			// The upstream check failed; the verdict is unknown, not false.
			writeJSON(w, http.StatusBadGateway, outcome)
			return
		}
		h.logger.Error("verify failed", slog.String("symbol", symbol), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "verification failed")
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

// GetHistory returns recent price samples for a symbol, newest first.
// GET /api/tokens/{symbol}/history
func (h *TokenHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	symbol := pathParam(r, "symbol")
	limit := parseLimit(r, 100, 1000)

	points, err := h.tokens.History(r.Context(), symbol, limit)
	if err != nil {
		h.logger.Error("get history failed", slog.String("symbol", symbol), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to get history")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"symbol": domain.NormalizeSymbol(symbol),
		"count":  len(points),
		"points": points,
	})
}

// SearchTokens returns tracked tokens matching a query.
// GET /api/tokens/search/{query}
func (h *TokenHandler) SearchTokens(w http.ResponseWriter, r *http.Request) {
	query := pathParam(r, "query")
	limit := parseLimit(r, 50, 200)

	tokens, err := h.tokens.Search(r.Context(), query, limit)
	if err != nil {
		h.logger.Error("search failed", slog.String("query", query), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":  len(tokens),
		"tokens": tokens,
	})
}
