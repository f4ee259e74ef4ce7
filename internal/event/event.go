package event

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Type names the payload of a stream message.
type Type string

const (
	TypeInterval Type = "interval"
	TypeSummary  Type = "summary"
)

// IntervalEvent is emitted once per closed interval of a run.
type IntervalEvent struct {
	RunID     string          `json:"run_id"`
	Interval  int             `json:"interval"`
	OrderKind string          `json:"order_kind"`
	BidPrice  float64         `json:"bid_price"`
	BidVolume int64           `json:"bid_volume"`
	AskPrice  float64         `json:"ask_price"`
	AskVolume int64           `json:"ask_volume"`
	MarketBid decimal.Decimal `json:"market_bid"`
	MarketAsk decimal.Decimal `json:"market_ask"`
	Fills     int             `json:"fills"`
	Profit    decimal.Decimal `json:"profit"`
	Cash      decimal.Decimal `json:"cash"`
	Holding   int64           `json:"holding"`
	Resting   int             `json:"resting"`
}

// SummaryEvent is emitted when a run completes.
type SummaryEvent struct {
	RunID        string          `json:"run_id"`
	Strategy     string          `json:"strategy"`
	Intervals    int             `json:"intervals"`
	FinalCash    decimal.Decimal `json:"final_cash"`
	FinalHolding int64           `json:"final_holding"`
	MarkToMarket decimal.Decimal `json:"mark_to_market"`
}

type envelope struct {
	Type Type `json:"type"`
	Data any  `json:"data"`
}

// Encode wraps a payload with its type tag for the wire.
func Encode(t Type, payload any) ([]byte, error) {
	return json.Marshal(envelope{Type: t, Data: payload})
}
