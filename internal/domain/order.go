package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Side is the direction of a resting order from the market maker's point of view.
type Side int

const (
	SideBuy Side = iota + 1
	SideSell
)

// String returns the string representation of Side
func (s Side) String() string {
	switch s {
	case SideBuy:
		return "BUY"
	case SideSell:
		return "SELL"
	default:
		return "UNKNOWN"
	}
}

// OrderKind tells the loop how to treat a quote proposal.
type OrderKind int

const (
	OrderKindLimit OrderKind = iota + 1
	OrderKindMarket
)

// String returns the string representation of OrderKind
func (k OrderKind) String() string {
	switch k {
	case OrderKindLimit:
		return "LIMIT"
	case OrderKindMarket:
		return "MARKET"
	default:
		return "UNKNOWN"
	}
}

// OrderType describes whether a proposal is a market order or a limit order valid
// over [FromTime, ToTime]. It is immutable once constructed.
type OrderType struct {
	kind     OrderKind
	fromTime int
	toTime   int
}

// NewLimitOrderType creates a limit order type valid for intervals [from, to].
func NewLimitOrderType(from, to int) OrderType {
	return OrderType{kind: OrderKindLimit, fromTime: from, toTime: to}
}

// NewMarketOrderType creates a market order type issued at ts.
// For market orders FromTime == ToTime == ts.
func NewMarketOrderType(ts int) OrderType {
	return OrderType{kind: OrderKindMarket, fromTime: ts, toTime: ts}
}

func (o OrderType) Kind() OrderKind { return o.kind }
func (o OrderType) FromTime() int   { return o.fromTime }
func (o OrderType) ToTime() int     { return o.toTime }
func (o OrderType) IsMarket() bool  { return o.kind == OrderKindMarket }

func (o OrderType) String() string {
	return fmt.Sprintf("OrderType(kind=%s, from=%d, to=%d)", o.kind, o.fromTime, o.toTime)
}

// RestingOrder is a limit order waiting in the book.
// Prices are decimal; volumes are whole units of the simulated asset.
type RestingOrder struct {
	ID       string          `json:"id"`
	Side     Side            `json:"side"`
	Price    decimal.Decimal `json:"price"`
	Volume   int64           `json:"volume"`
	FromTime int             `json:"from_time"`
	ToTime   int             `json:"to_time"`
	PlacedAt int             `json:"placed_at"`
}

// IsExpired reports whether the order's validity window has passed.
func (o *RestingOrder) IsExpired(now int) bool {
	return now > o.ToTime
}

// IsActive reports whether now falls inside [FromTime, ToTime].
func (o *RestingOrder) IsActive(now int) bool {
	return now >= o.FromTime && now <= o.ToTime
}
