package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RunRecord is the persisted summary of one simulation run
type RunRecord struct {
	ID             string           `gorm:"primaryKey" json:"id"`
	Strategy       string           `json:"strategy" gorm:"index"`
	Intervals      int              `json:"intervals"`
	InitialCash    decimal.Decimal  `json:"initial_cash" gorm:"type:text"`
	FinalCash      decimal.Decimal  `json:"final_cash" gorm:"type:text"`
	FinalHolding   int64            `json:"final_holding"`
	LastMarketBid  decimal.Decimal  `json:"last_market_bid" gorm:"type:text"`
	LastMarketAsk  decimal.Decimal  `json:"last_market_ask" gorm:"type:text"`
	MarkToMarket   decimal.Decimal  `json:"mark_to_market" gorm:"type:text"`
	Warnings       int              `json:"warnings"`
	LogPath        string           `json:"log_path"`
	StartedAt      time.Time        `json:"started_at" gorm:"index"`
	FinishedAt     time.Time        `json:"finished_at"`
	IntervalValues []IntervalRecord `json:"intervals_detail,omitempty" gorm:"foreignKey:RunID;constraint:OnDelete:CASCADE"`
}

// IntervalRecord is one persisted ledger row of a run
type IntervalRecord struct {
	ID        uint            `gorm:"primaryKey" json:"-"`
	RunID     string          `gorm:"index" json:"run_id"`
	Interval  int             `json:"interval"`
	OrderKind string          `json:"order_kind"`
	MarketBid decimal.Decimal `json:"market_bid" gorm:"type:text"`
	MarketAsk decimal.Decimal `json:"market_ask" gorm:"type:text"`
	Profit    decimal.Decimal `json:"profit" gorm:"type:text"`
	Cash      decimal.Decimal `json:"cash" gorm:"type:text"`
	Holding   int64           `json:"holding"`
}
