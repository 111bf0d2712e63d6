package binance

import (
	"strconv"
	"time"

	"github.com/alanyoungcy/alphatracker/internal/domain"
)

// alphaListResponse is the envelope of the alpha token-list endpoint. The
// endpoint reports success both via HTTP 200 and via the in-band code field.
type alphaListResponse struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Success bool            `json:"success"`
	Data    []APIAlphaToken `json:"data"`
}

// alphaSuccessCode is the in-band success code of the alpha endpoints.
const alphaSuccessCode = "000000"

// APIAlphaToken is one alpha universe entry as returned by the upstream API.
// Numeric fields arrive as strings.
type APIAlphaToken struct {
	AlphaID           string `json:"alphaId"`
	Symbol            string `json:"symbol"`
	Name              string `json:"name"`
	Price             string `json:"price"`
	PercentChange24h  string `json:"percentChange24h"`
	Volume24h         string `json:"volume24h"`
	MarketCap         string `json:"marketCap"`
	FDV               string `json:"fdv"`
	TotalSupply       string `json:"totalSupply"`
	CirculatingSupply string `json:"circulatingSupply"`
	Liquidity         string `json:"liquidity"`
	Holders           string `json:"holders"`
	ChainName         string `json:"chainName"`
	ContractAddress   string `json:"contractAddress"`
}

// ToDomainUniverseToken converts an API alpha entry to the domain type.
func (t *APIAlphaToken) ToDomainUniverseToken() domain.UniverseToken {
	return domain.UniverseToken{
		Symbol:            t.Symbol,
		Name:              t.Name,
		PriceUSDT:         parseFloat(t.Price),
		Change24hPct:      parseFloat(t.PercentChange24h),
		Volume24h:         parseFloat(t.Volume24h),
		MarketCap:         parseFloat(t.MarketCap),
		FDV:               parseFloat(t.FDV),
		TotalSupply:       parseFloat(t.TotalSupply),
		CirculatingSupply: parseFloat(t.CirculatingSupply),
		Liquidity:         parseFloat(t.Liquidity),
		Holders:           parseInt(t.Holders),
		ChainName:         t.ChainName,
		ContractAddress:   t.ContractAddress,
		AlphaID:           t.AlphaID,
	}
}

// exchangeInfoResponse is the (filtered) futures exchange information
// response. When queried with a symbol parameter it contains at most one
// entry.
type exchangeInfoResponse struct {
	Symbols []APIFuturesSymbol `json:"symbols"`
}

// APIFuturesSymbol is one contract definition from the futures exchange
// information endpoint.
type APIFuturesSymbol struct {
	Symbol            string `json:"symbol"`
	Status            string `json:"status"`
	ContractType      string `json:"contractType"`
	OnboardDate       int64  `json:"onboardDate"`
	BaseAsset         string `json:"baseAsset"`
	QuoteAsset        string `json:"quoteAsset"`
	PricePrecision    int    `json:"pricePrecision"`
	QuantityPrecision int    `json:"quantityPrecision"`
}

// contractStatusTrading is the exchange status of an actively trading
// contract.
const contractStatusTrading = "TRADING"

// ToDomainListing converts a contract definition to a domain ListingInfo.
func (s *APIFuturesSymbol) ToDomainListing() domain.ListingInfo {
	info := domain.ListingInfo{
		Available:         s.Status == contractStatusTrading,
		ContractSymbol:    s.Symbol,
		Status:            s.Status,
		ContractType:      s.ContractType,
		BaseAsset:         s.BaseAsset,
		QuoteAsset:        s.QuoteAsset,
		PricePrecision:    s.PricePrecision,
		QuantityPrecision: s.QuantityPrecision,
	}
	if s.OnboardDate > 0 {
		t := time.UnixMilli(s.OnboardDate).UTC()
		info.ListingDate = &t
	}
	return info
}

// Ticker holds the 24h rolling statistics for one spot trading pair.
type Ticker struct {
	Symbol       string
	LastPrice    float64
	Change24hPct float64
	Volume24h    float64
	QuoteVolume  float64
	High24h      float64
	Low24h       float64
}

// apiTicker is the spot 24h ticker response. Numeric fields arrive as
// strings.
type apiTicker struct {
	Symbol             string `json:"symbol"`
	LastPrice          string `json:"lastPrice"`
	PriceChangePercent string `json:"priceChangePercent"`
	Volume             string `json:"volume"`
	QuoteVolume        string `json:"quoteVolume"`
	HighPrice          string `json:"highPrice"`
	LowPrice           string `json:"lowPrice"`
}

func (t *apiTicker) toTicker() Ticker {
	return Ticker{
		Symbol:       t.Symbol,
		LastPrice:    parseFloat(t.LastPrice),
		Change24hPct: parseFloat(t.PriceChangePercent),
		Volume24h:    parseFloat(t.Volume),
		QuoteVolume:  parseFloat(t.QuoteVolume),
		High24h:      parseFloat(t.HighPrice),
		Low24h:       parseFloat(t.LowPrice),
	}
}

// parseFloat converts an API numeric string, treating empty or malformed
// values as zero.
func parseFloat(s string) float64 {
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

// parseInt converts an API integer string, treating empty or malformed
// values as zero.
func parseInt(s string) int64 {
	if s == "" {
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
