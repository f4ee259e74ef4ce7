package domain

import (
	"math"

	"github.com/shopspring/decimal"
)

// QuoteProposal is what a strategy returns for one interval.
// Prices stay float64 at the strategy boundary so that non-finite values can be detected.
type QuoteProposal struct {
	BidPrice  float64   `json:"bid_price"`
	BidVolume int64     `json:"bid_volume"`
	AskPrice  float64   `json:"ask_price"`
	AskVolume int64     `json:"ask_volume"`
	OrderType OrderType `json:"-"`
}

// CheckFinite returns an *InputError for the first NaN or infinite price.
func (q QuoteProposal) CheckFinite(source string) error {
	if !IsFinite(q.BidPrice) {
		return NewInputError(source, "bid_price", q.BidPrice)
	}
	if !IsFinite(q.AskPrice) {
		return NewInputError(source, "ask_price", q.AskPrice)
	}
	return nil
}

// Validate rejects a proposal the sanitizer cannot repair: a non-finite price or an
// order type built by neither NewLimitOrderType nor NewMarketOrderType.
func (q QuoteProposal) Validate(source string) error {
	if err := q.CheckFinite(source); err != nil {
		return err
	}
	switch k := q.OrderType.Kind(); k {
	case OrderKindLimit, OrderKindMarket:
		return nil
	default:
		return &InputError{Source: source, Field: "order_type", Value: float64(k), Err: ErrUnknownOrderKind}
	}
}

// Quote is a market bid/ask pair in decimal form.
type Quote struct {
	Bid decimal.Decimal `json:"bid"`
	Ask decimal.Decimal `json:"ask"`
}

// NewQuote converts float prices into a Quote.
func NewQuote(bid, ask float64) Quote {
	return Quote{Bid: decimal.NewFromFloat(bid), Ask: decimal.NewFromFloat(ask)}
}

// IsFinite reports whether f is neither NaN nor infinite.
func IsFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
