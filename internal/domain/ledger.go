package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Ledger tracks cash, holding, and per-interval profit for one simulation run.
// It is the only place where cash and holding change, and it checks its invariants
// after every interval.
type Ledger struct {
	initialCash decimal.Decimal
	cash        decimal.Decimal
	holding     int64

	// cash moved since the last CloseInterval
	pending decimal.Decimal

	profit    []decimal.Decimal
	marketBid []decimal.Decimal
	marketAsk []decimal.Decimal
}

// NewLedger creates a ledger seeded with the initial cash and market quote.
func NewLedger(initialCash decimal.Decimal, initial Quote) *Ledger {
	return &Ledger{
		initialCash: initialCash,
		cash:        initialCash,
		marketBid:   []decimal.Decimal{initial.Bid},
		marketAsk:   []decimal.Decimal{initial.Ask},
	}
}

// Cash returns the current cash balance.
func (l *Ledger) Cash() decimal.Decimal { return l.cash }

// Holding returns the current inventory.
func (l *Ledger) Holding() int64 { return l.holding }

// InitialCash returns the cash the run started with.
func (l *Ledger) InitialCash() decimal.Decimal { return l.initialCash }

// Deposit adds inventory outside of trading (run seeding). Cash is untouched.
func (l *Ledger) Deposit(volume int64) {
	if volume < 0 {
		panic(fmt.Sprintf("LEDGER_NEGATIVE_DEPOSIT: %d", volume))
	}
	l.holding += volume
}

// Affordable returns floor(cash / price), or 0 when price or cash is not positive.
func (l *Ledger) Affordable(price decimal.Decimal) int64 {
	if !price.IsPositive() || !l.cash.IsPositive() {
		return 0
	}
	n := l.cash.Div(price).Floor().IntPart()
	// Div rounds at DivisionPrecision; step back if that rounded us over the edge.
	for n > 0 && price.Mul(decimal.NewFromInt(n)).GreaterThan(l.cash) {
		n--
	}
	return n
}

// Buy settles a purchase of volume units at price and returns the signed cash delta.
// Panics if cash would go negative; callers cap volume with Affordable first.
func (l *Ledger) Buy(price decimal.Decimal, volume int64) decimal.Decimal {
	if volume <= 0 {
		return decimal.Zero
	}
	cost := price.Mul(decimal.NewFromInt(volume))
	if cost.GreaterThan(l.cash) {
		panic(fmt.Sprintf("LEDGER_INSUFFICIENT_CASH: need %s, available %s", cost, l.cash))
	}
	l.cash = l.cash.Sub(cost)
	l.holding += volume
	l.pending = l.pending.Sub(cost)
	return cost.Neg()
}

// Sell settles a sale of volume units at price and returns the signed cash delta.
// Panics if holding would go negative.
func (l *Ledger) Sell(price decimal.Decimal, volume int64) decimal.Decimal {
	if volume <= 0 {
		return decimal.Zero
	}
	if volume > l.holding {
		panic(fmt.Sprintf("LEDGER_INSUFFICIENT_HOLDING: need %d, available %d", volume, l.holding))
	}
	proceeds := price.Mul(decimal.NewFromInt(volume))
	l.cash = l.cash.Add(proceeds)
	l.holding -= volume
	l.pending = l.pending.Add(proceeds)
	return proceeds
}

// CloseInterval records the interval's realized cashflow as its profit, appends the
// next market quote to history, and returns the recorded profit.
func (l *Ledger) CloseInterval(next Quote) decimal.Decimal {
	p := l.pending
	l.profit = append(l.profit, p)
	l.marketBid = append(l.marketBid, next.Bid)
	l.marketAsk = append(l.marketAsk, next.Ask)
	l.pending = decimal.Zero
	return p
}

// TotalProfit returns the sum of all closed interval profits.
func (l *Ledger) TotalProfit() decimal.Decimal {
	total := decimal.Zero
	for _, p := range l.profit {
		total = total.Add(p)
	}
	return total
}

// LastQuote returns the most recent market quote in history.
func (l *Ledger) LastQuote() Quote {
	n := len(l.marketBid)
	return Quote{Bid: l.marketBid[n-1], Ask: l.marketAsk[n-1]}
}

// MarkToMarket values the holding at the last market ask and adds cash.
func (l *Ledger) MarkToMarket() decimal.Decimal {
	return decimal.NewFromInt(l.holding).Mul(l.LastQuote().Ask).Add(l.cash)
}

// Profit returns a copy of the per-interval profit history.
func (l *Ledger) Profit() []decimal.Decimal {
	return append([]decimal.Decimal(nil), l.profit...)
}

// MarketBids returns a copy of the market bid history (seed first).
func (l *Ledger) MarketBids() []decimal.Decimal {
	return append([]decimal.Decimal(nil), l.marketBid...)
}

// MarketAsks returns a copy of the market ask history (seed first).
func (l *Ledger) MarketAsks() []decimal.Decimal {
	return append([]decimal.Decimal(nil), l.marketAsk...)
}

// VerifyInvariant checks that the ledger satisfies its invariants.
// Call this after any interval to ensure data integrity.
func (l *Ledger) VerifyInvariant() {
	// Invariant 1: Cash must be non-negative
	if l.cash.IsNegative() {
		panic(fmt.Sprintf("LEDGER_INVARIANT_NEGATIVE_CASH: %s", l.cash))
	}

	// Invariant 2: Holding must be non-negative
	if l.holding < 0 {
		panic(fmt.Sprintf("LEDGER_INVARIANT_NEGATIVE_HOLDING: %d", l.holding))
	}

	// Invariant 3: Cash reconciles with recorded profit
	expected := l.initialCash.Add(l.TotalProfit()).Add(l.pending)
	if !expected.Equal(l.cash) {
		panic(fmt.Sprintf("LEDGER_INVARIANT_UNRECONCILED: cash=%s, initial+profit=%s", l.cash, expected))
	}

	// Invariant 4: One quote per closed interval plus the seed
	if len(l.marketBid) != len(l.profit)+1 || len(l.marketAsk) != len(l.profit)+1 {
		panic(fmt.Sprintf("LEDGER_INVARIANT_HISTORY_LENGTH: profit=%d, bids=%d, asks=%d",
			len(l.profit), len(l.marketBid), len(l.marketAsk)))
	}
}

// LedgerSnapshot is a copy of the ledger state (for state dump and reporting).
type LedgerSnapshot struct {
	InitialCash decimal.Decimal   `json:"initial_cash"`
	Cash        decimal.Decimal   `json:"cash"`
	Holding     int64             `json:"holding"`
	Pending     decimal.Decimal   `json:"pending"`
	Profit      []decimal.Decimal `json:"profit"`
	MarketBid   []decimal.Decimal `json:"market_bid"`
	MarketAsk   []decimal.Decimal `json:"market_ask"`
}

// Snapshot returns a copy of the ledger.
func (l *Ledger) Snapshot() LedgerSnapshot {
	return LedgerSnapshot{
		InitialCash: l.initialCash,
		Cash:        l.cash,
		Holding:     l.holding,
		Pending:     l.pending,
		Profit:      l.Profit(),
		MarketBid:   l.MarketBids(),
		MarketAsk:   l.MarketAsks(),
	}
}
