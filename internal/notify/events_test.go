package notify

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/alanyoungcy/alphatracker/internal/domain"
)

func TestFuturesListedAlert(t *testing.T) {
	onboard := time.Date(2025, 6, 11, 0, 0, 0, 0, time.UTC)
	title, msg := FuturesListedAlert("ZORA", domain.ListingInfo{
		Available:      true,
		ContractSymbol: "ZORAUSDT",
		ContractType:   "PERPETUAL",
		ListingDate:    &onboard,
	})

	assert.Contains(t, title, "ZORA")
	assert.Contains(t, msg, "ZORAUSDT")
	assert.Contains(t, msg, "PERPETUAL")
	assert.Contains(t, msg, "2025-06-11")
}

func TestReconcileFailedAlert(t *testing.T) {
	title, msg := ReconcileFailedAlert("pass-123", errors.New("universe fetch: HTTP 503"))

	assert.Contains(t, title, "failed")
	assert.Contains(t, msg, "pass-123")
	assert.Contains(t, msg, "HTTP 503")
}
