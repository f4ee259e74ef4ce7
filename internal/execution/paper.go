package execution

import (
	"log/slog"

	"mm_sim/internal/domain"

	"github.com/shopspring/decimal"
)

// Fill records one execution against the synthetic market.
type Fill struct {
	Interval   int              `json:"interval"`
	OrderID    string           `json:"order_id,omitempty"`
	Kind       domain.OrderKind `json:"kind"`
	Side       domain.Side      `json:"side"`
	LimitPrice decimal.Decimal  `json:"limit_price"` // zero for market orders
	Price      decimal.Decimal  `json:"price"`       // market quote the fill settled at
	Requested  int64            `json:"requested"`
	Volume     int64            `json:"volume"`
	CashDelta  decimal.Decimal  `json:"cash_delta"`
}

// PaperExecution executes market orders and sweeps the limit book against the
// synthetic market quote, settling every fill on the ledger.
// Volumes are capped by available cash and holding; caps are reported as warnings.
type PaperExecution struct {
	ledger *domain.Ledger
	book   *LimitBook
	fills  []Fill
	logger *slog.Logger

	warnings int
	expired  int
}

// NewPaperExecution creates an executor over a fresh limit book.
func NewPaperExecution(ledger *domain.Ledger, logger *slog.Logger) *PaperExecution {
	if logger == nil {
		logger = slog.Default()
	}
	return &PaperExecution{
		ledger: ledger,
		book:   NewLimitBook(),
		logger: logger,
	}
}

// Ledger returns the ledger this executor settles on.
func (p *PaperExecution) Ledger() *domain.Ledger { return p.ledger }

// Book returns the limit book.
func (p *PaperExecution) Book() *LimitBook { return p.book }

// Deposit seeds inventory before trading starts.
func (p *PaperExecution) Deposit(volume int64) {
	p.ledger.Deposit(volume)
}

// GetFills returns a copy of all fills so far.
func (p *PaperExecution) GetFills() []Fill {
	return append([]Fill(nil), p.fills...)
}

// FillCount returns the number of fills so far.
func (p *PaperExecution) FillCount() int { return len(p.fills) }

// FillsSince returns a copy of the fills recorded after the first n.
func (p *PaperExecution) FillsSince(n int) []Fill {
	if n >= len(p.fills) {
		return nil
	}
	return append([]Fill(nil), p.fills[n:]...)
}

// Warnings returns the number of capping/skip warnings raised so far.
func (p *PaperExecution) Warnings() int { return p.warnings }

// Expired returns the number of limit orders removed by expiry so far.
func (p *PaperExecution) Expired() int { return p.expired }

// ExecuteMarket fills a market buy at market.Ask and a market sell at market.Bid.
// There is no price condition. Buy settles before sell. Returns the signed cash delta.
func (p *PaperExecution) ExecuteMarket(t int, market domain.Quote, buyVolume, sellVolume int64) decimal.Decimal {
	flow := decimal.Zero

	if buyVolume > 0 {
		if !market.Ask.IsPositive() {
			p.warn("Market ask is not positive, skipping market buy", t, slog.String("ask", market.Ask.String()))
		} else {
			fill := min(buyVolume, p.ledger.Affordable(market.Ask))
			if fill < buyVolume {
				p.warn("Insufficient cash, capping market buy", t,
					slog.Int64("requested", buyVolume), slog.Int64("filled", fill))
			}
			if fill > 0 {
				delta := p.ledger.Buy(market.Ask, fill)
				flow = flow.Add(delta)
				p.record(Fill{Interval: t, Kind: domain.OrderKindMarket, Side: domain.SideBuy,
					Price: market.Ask, Requested: buyVolume, Volume: fill, CashDelta: delta})
			}
		}
	}

	if sellVolume > 0 {
		if !market.Bid.IsPositive() {
			p.warn("Market bid is not positive, skipping market sell", t, slog.String("bid", market.Bid.String()))
		} else {
			fill := min(sellVolume, p.ledger.Holding())
			if fill < sellVolume {
				p.warn("Insufficient holding, capping market sell", t,
					slog.Int64("requested", sellVolume), slog.Int64("filled", fill))
			}
			if fill > 0 {
				delta := p.ledger.Sell(market.Bid, fill)
				flow = flow.Add(delta)
				p.record(Fill{Interval: t, Kind: domain.OrderKindMarket, Side: domain.SideSell,
					Price: market.Bid, Requested: sellVolume, Volume: fill, CashDelta: delta})
			}
		}
	}

	return flow
}

// PlaceLimit inserts resting orders for each side of q with positive volume and
// returns their IDs. An inverted window is rejected.
func (p *PaperExecution) PlaceLimit(t int, q domain.QuoteProposal, ot domain.OrderType) []string {
	if ot.FromTime() > ot.ToTime() {
		p.warn("Limit window is inverted, dropping quote", t,
			slog.Int("from", ot.FromTime()), slog.Int("to", ot.ToTime()))
		return nil
	}

	var ids []string
	if q.BidVolume > 0 {
		ids = append(ids, p.book.Insert(domain.RestingOrder{
			Side:     domain.SideBuy,
			Price:    decimal.NewFromFloat(q.BidPrice),
			Volume:   q.BidVolume,
			FromTime: ot.FromTime(),
			ToTime:   ot.ToTime(),
			PlacedAt: t,
		}))
	}
	if q.AskVolume > 0 {
		ids = append(ids, p.book.Insert(domain.RestingOrder{
			Side:     domain.SideSell,
			Price:    decimal.NewFromFloat(q.AskPrice),
			Volume:   q.AskVolume,
			FromTime: ot.FromTime(),
			ToTime:   ot.ToTime(),
			PlacedAt: t,
		}))
	}
	return ids
}

// Sweep expires stale orders and executes every active order whose limit the market
// quote satisfies. Cash moves at the market quote. Returns the signed cash delta.
func (p *PaperExecution) Sweep(t int, market domain.Quote) decimal.Decimal {
	flow := decimal.Zero

	expired := p.book.Sweep(t, func(o *domain.RestingOrder) bool {
		var delta decimal.Decimal
		var fill int64

		switch o.Side {
		case domain.SideSell:
			// Seller accepts the market bid when it is at or above the limit.
			if o.Price.GreaterThan(market.Bid) || p.ledger.Holding() < 0 || !market.Bid.IsPositive() {
				return false
			}
			fill = min(o.Volume, p.ledger.Holding())
			if fill == 0 {
				p.warn("No holding to deliver, limit sell stays resting", t, slog.String("order_id", o.ID))
				return false
			}
			if fill < o.Volume {
				p.warn("Insufficient holding, capping limit sell", t,
					slog.String("order_id", o.ID), slog.Int64("requested", o.Volume), slog.Int64("filled", fill))
			}
			delta = p.ledger.Sell(market.Bid, fill)
			p.record(Fill{Interval: t, OrderID: o.ID, Kind: domain.OrderKindLimit, Side: domain.SideSell,
				LimitPrice: o.Price, Price: market.Bid, Requested: o.Volume, Volume: fill, CashDelta: delta})

		case domain.SideBuy:
			if o.Price.LessThan(market.Ask) || p.ledger.Cash().IsNegative() {
				return false
			}
			fill = min(o.Volume, p.ledger.Affordable(market.Ask))
			if fill == 0 {
				p.warn("No cash to pay, limit buy stays resting", t, slog.String("order_id", o.ID))
				return false
			}
			if fill < o.Volume {
				p.warn("Insufficient cash, capping limit buy", t,
					slog.String("order_id", o.ID), slog.Int64("requested", o.Volume), slog.Int64("filled", fill))
			}
			delta = p.ledger.Buy(market.Ask, fill)
			p.record(Fill{Interval: t, OrderID: o.ID, Kind: domain.OrderKindLimit, Side: domain.SideBuy,
				LimitPrice: o.Price, Price: market.Ask, Requested: o.Volume, Volume: fill, CashDelta: delta})

		default:
			return false
		}

		flow = flow.Add(delta)
		return true
	})

	for _, o := range expired {
		p.expired++
		p.logger.Info("Limit order expired",
			slog.Int("interval", t),
			slog.String("order_id", o.ID),
			slog.String("side", o.Side.String()),
			slog.String("price", o.Price.String()),
			slog.Int64("volume", o.Volume),
			slog.Int("to_time", o.ToTime))
	}

	return flow
}

func (p *PaperExecution) record(f Fill) {
	p.fills = append(p.fills, f)
	p.logger.Info("FILL",
		slog.Int("interval", f.Interval),
		slog.String("kind", f.Kind.String()),
		slog.String("side", f.Side.String()),
		slog.String("price", f.Price.String()),
		slog.Int64("volume", f.Volume),
		slog.String("cash_delta", f.CashDelta.String()))
}

func (p *PaperExecution) warn(msg string, t int, attrs ...any) {
	p.warnings++
	p.logger.Warn(msg, append([]any{slog.Int("interval", t)}, attrs...)...)
}
