// Package domain defines the core entities of the alpha token tracker and the
// store/cache interfaces its services depend on. Concrete implementations live
// in internal/store, internal/cache, and internal/platform.
package domain

import (
	"strings"
	"time"
)

// TrackedToken is a locally persisted row for an alpha token. A row exists for
// every symbol a curator follows (IsActive) and for every untracked symbol
// whose futures-listing verdict has been cached by the reconciliation engine.
type TrackedToken struct {
	ID               int64
	Symbol           string // uppercase base-asset ticker, unique
	Name             string
	Priority         int // sort weight among tracked tokens, >= 0
	Notes            string
	IsActive         bool // curator actively follows this token
	FuturesListed    *bool
	FuturesCheckedAt *time.Time
	ChainID          string
	ContractAddress  string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// UniverseToken is one entry of the externally reported alpha token universe.
// It is fetched fresh on every reconciliation pass and never persisted; only
// the derived futures-listing verdict is cached via TrackedToken.
type UniverseToken struct {
	Symbol            string
	Name              string
	PriceUSDT         float64
	Change24hPct      float64
	Volume24h         float64
	MarketCap         float64
	FDV               float64
	TotalSupply       float64
	CirculatingSupply float64
	Liquidity         float64
	Holders           int64
	ChainName         string
	ContractAddress   string
	AlphaID           string
}

// ListingInfo describes the derivatives-listing state of one base asset on the
// upstream exchange. Absence of a contract is a valid business answer
// (Status == ListingStatusNotFound), not an error.
type ListingInfo struct {
	Available         bool
	ContractSymbol    string // e.g. "BTCUSDT"
	Status            string // exchange status, or ListingStatusNotFound
	ContractType      string
	ListingDate       *time.Time
	BaseAsset         string
	QuoteAsset        string
	PricePrecision    int
	QuantityPrecision int
}

// ListingStatusNotFound is the Status of a ListingInfo for a symbol with no
// contract on the upstream exchange's books.
const ListingStatusNotFound = "NOT_FOUND"

// VerificationMode selects how strictly a listing signal is matched against
// the local catalog before it is trusted.
type VerificationMode string

const (
	// VerifyStrict requires both symbol and name identity; used whenever a
	// name is available on both sides.
	VerifyStrict VerificationMode = "STRICT"
	// VerifyRelaxed requires only symbol identity; used when a name is
	// missing on either side.
	VerifyRelaxed VerificationMode = "RELAXED"
)

// Reasons recorded on a VerificationOutcome when the verdict is false or
// could not be determined.
const (
	ReasonNoCatalogEntry = "NO_CATALOG_ENTRY"
	ReasonNotListed      = "NOT_LISTED"
	ReasonSymbolMismatch = "SYMBOL_MISMATCH"
	ReasonNameMismatch   = "NAME_MISMATCH"
	ReasonUpstreamError  = "UPSTREAM_ERROR"
)

// VerificationOutcome is the result of one two-factor verification attempt
// for a single symbol.
type VerificationOutcome struct {
	Symbol      string // normalized symbol the verdict applies to
	Verdict     bool
	Mode        VerificationMode
	SymbolMatch bool
	NameMatch   *bool // nil when a name was unavailable on either side
	Reason      string
	Listing     ListingInfo
	CheckedAt   time.Time
}

// MergedToken is one entry of the reconciled view: a universe token joined
// with its local tracking state. The merged view is recomputed on every
// reconciliation pass and never persisted as a whole.
type MergedToken struct {
	UniverseToken

	IsTracked      bool
	Priority       int
	Notes          string
	FuturesListed  *bool // nil = unknown (never verified, or verification failed)
	LastVerifiedAt *time.Time
}

// PricePoint is one append-only price history sample for a tracked token.
type PricePoint struct {
	Symbol     string
	PriceUSDT  float64
	Volume24h  float64
	RecordedAt time.Time
}

// NormalizeSymbol is the single symbol-cleaning rule applied at every
// boundary: strip one leading '$' marker, trim whitespace, uppercase.
// "$zora " and "zora" both normalize to "ZORA".
func NormalizeSymbol(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	return strings.ToUpper(s)
}
