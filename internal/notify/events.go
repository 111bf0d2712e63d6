package notify

import (
	"fmt"
	"strings"

	"github.com/alanyoungcy/alphatracker/internal/domain"
)

// Event types recognized by the notifier filter.
const (
	EventFuturesListed   = "futures_listed"
	EventReconcileFailed = "reconcile_failed"
	EventError           = "error"
)

// FuturesListedAlert renders the title and message for a verdict flipping to
// listed.
func FuturesListedAlert(symbol string, listing domain.ListingInfo) (title, message string) {
	title = fmt.Sprintf("Futures listed: %s", symbol)

	var b strings.Builder
	fmt.Fprintf(&b, "Contract %s is now available.", listing.ContractSymbol)
	if listing.ContractType != "" {
		fmt.Fprintf(&b, "\nType: %s", listing.ContractType)
	}
	if listing.ListingDate != nil {
		fmt.Fprintf(&b, "\nOnboarded: %s", listing.ListingDate.Format("2006-01-02 15:04 MST"))
	}
	return title, b.String()
}

// ReconcileFailedAlert renders the title and message for an aborted
// reconciliation pass.
func ReconcileFailedAlert(passID string, err error) (title, message string) {
	return "Reconciliation pass failed", fmt.Sprintf("Pass %s aborted: %v", passID, err)
}
