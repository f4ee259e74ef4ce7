package execution

import (
	"io"
	"log/slog"
	"testing"

	"mm_sim/internal/domain"

	"github.com/shopspring/decimal"
	"pgregory.net/rapid"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func newPaper(cash string) *PaperExecution {
	ledger := domain.NewLedger(d(cash), domain.Quote{Bid: d("100.5"), Ask: d("99.5")})
	return NewPaperExecution(ledger, quiet())
}

func TestPaperExecution_MarketBuy(t *testing.T) {
	paper := newPaper("10000")
	market := domain.Quote{Bid: d("100.5"), Ask: d("99.5")}

	flow := paper.ExecuteMarket(0, market, 50, 0)

	if !flow.Equal(d("-4975")) {
		t.Errorf("Expected flow -4975, got %s", flow)
	}
	if paper.Ledger().Holding() != 50 {
		t.Errorf("Expected holding 50, got %d", paper.Ledger().Holding())
	}
	if !paper.Ledger().Cash().Equal(d("5025")) {
		t.Errorf("Expected cash 5025, got %s", paper.Ledger().Cash())
	}

	fills := paper.GetFills()
	if len(fills) != 1 {
		t.Fatalf("Expected 1 fill, got %d", len(fills))
	}
	if fills[0].Side != domain.SideBuy || fills[0].Kind != domain.OrderKindMarket {
		t.Errorf("Expected MARKET BUY, got %s %s", fills[0].Kind, fills[0].Side)
	}
}

func TestPaperExecution_MarketBuyCappedByCash(t *testing.T) {
	paper := newPaper("10000")
	market := domain.Quote{Bid: d("100.5"), Ask: d("99.5")}

	paper.ExecuteMarket(0, market, 1_000_000, 0)

	if paper.Ledger().Holding() != 100 {
		t.Errorf("Expected holding 100 (floor(10000/99.5)), got %d", paper.Ledger().Holding())
	}
	if !paper.Ledger().Cash().Equal(d("50")) {
		t.Errorf("Expected cash 50, got %s", paper.Ledger().Cash())
	}
	if paper.Warnings() != 1 {
		t.Errorf("Expected 1 capping warning, got %d", paper.Warnings())
	}
}

func TestPaperExecution_MarketSell(t *testing.T) {
	paper := newPaper("0")
	paper.Deposit(10)
	market := domain.Quote{Bid: d("100.5"), Ask: d("99.5")}

	flow := paper.ExecuteMarket(0, market, 0, 4)

	if !flow.Equal(d("402")) {
		t.Errorf("Expected flow 402, got %s", flow)
	}
	if paper.Ledger().Holding() != 6 {
		t.Errorf("Expected holding 6, got %d", paper.Ledger().Holding())
	}
}

func TestPaperExecution_MarketSellCappedByHolding(t *testing.T) {
	paper := newPaper("0")
	paper.Deposit(3)
	market := domain.Quote{Bid: d("100"), Ask: d("101")}

	paper.ExecuteMarket(0, market, 0, 10)

	if paper.Ledger().Holding() != 0 {
		t.Errorf("Expected holding 0, got %d", paper.Ledger().Holding())
	}
	if !paper.Ledger().Cash().Equal(d("300")) {
		t.Errorf("Expected cash 300, got %s", paper.Ledger().Cash())
	}
}

func TestPaperExecution_MarketSkipsNonPositivePrice(t *testing.T) {
	paper := newPaper("100")
	paper.Deposit(1)
	market := domain.Quote{Bid: decimal.Zero, Ask: d("-1")}

	flow := paper.ExecuteMarket(0, market, 5, 1)

	if !flow.IsZero() {
		t.Errorf("Expected no cashflow, got %s", flow)
	}
	if paper.Warnings() != 2 {
		t.Errorf("Expected 2 warnings, got %d", paper.Warnings())
	}
}

func TestPaperExecution_LimitSellFillsWhenBidReaches(t *testing.T) {
	paper := newPaper("0")
	paper.Deposit(10)

	ids := paper.PlaceLimit(0, domain.QuoteProposal{AskPrice: 101, AskVolume: 10}, domain.NewLimitOrderType(0, 10))
	if len(ids) != 1 {
		t.Fatalf("Expected 1 resting order, got %d", len(ids))
	}

	for now := 0; now < 7; now++ {
		flow := paper.Sweep(now, domain.Quote{Bid: d("100"), Ask: d("99")})
		if !flow.IsZero() {
			t.Fatalf("Sell at 101 must not fill at bid 100 (t=%d)", now)
		}
	}

	flow := paper.Sweep(7, domain.Quote{Bid: d("101"), Ask: d("100")})
	if !flow.Equal(d("1010")) {
		t.Errorf("Expected flow 1010, got %s", flow)
	}
	if paper.Book().Len() != 0 {
		t.Error("Executed order should leave the book")
	}

	fills := paper.GetFills()
	if len(fills) != 1 || fills[0].Interval != 7 {
		t.Fatalf("Expected one fill at t=7, got %+v", fills)
	}
	if !fills[0].LimitPrice.Equal(d("101")) || !fills[0].Price.Equal(d("101")) {
		t.Errorf("Unexpected fill prices: limit=%s price=%s", fills[0].LimitPrice, fills[0].Price)
	}
}

func TestPaperExecution_LimitSellSettlesAtMarketBid(t *testing.T) {
	paper := newPaper("0")
	paper.Deposit(2)
	paper.PlaceLimit(0, domain.QuoteProposal{AskPrice: 100, AskVolume: 2}, domain.NewLimitOrderType(0, 3))

	flow := paper.Sweep(1, domain.Quote{Bid: d("103"), Ask: d("102")})

	if !flow.Equal(d("206")) {
		t.Errorf("Expected cash to move at the market bid (206), got %s", flow)
	}
}

func TestPaperExecution_LimitBuy(t *testing.T) {
	paper := newPaper("1000")
	paper.PlaceLimit(0, domain.QuoteProposal{BidPrice: 100, BidVolume: 50}, domain.NewLimitOrderType(0, 5))

	// Ask above the limit: no fill.
	if flow := paper.Sweep(0, domain.Quote{Bid: d("102"), Ask: d("101")}); !flow.IsZero() {
		t.Fatalf("Buy at 100 must not fill at ask 101, got %s", flow)
	}

	// Ask at the limit: fills, capped by cash: floor(1000/100) = 10.
	flow := paper.Sweep(1, domain.Quote{Bid: d("101"), Ask: d("100")})
	if !flow.Equal(d("-1000")) {
		t.Errorf("Expected flow -1000, got %s", flow)
	}
	if paper.Ledger().Holding() != 10 {
		t.Errorf("Expected holding 10, got %d", paper.Ledger().Holding())
	}
	if paper.Book().Len() != 0 {
		t.Error("Order is removed after any execution")
	}
}

func TestPaperExecution_EligibleButUnfundedStaysResting(t *testing.T) {
	paper := newPaper("10")
	paper.PlaceLimit(0, domain.QuoteProposal{BidPrice: 100, BidVolume: 1}, domain.NewLimitOrderType(0, 5))

	paper.Sweep(0, domain.Quote{Bid: d("100"), Ask: d("99")})

	if paper.Book().Len() != 1 {
		t.Error("Zero-volume fill is not an execution; order should stay")
	}
	if len(paper.GetFills()) != 0 {
		t.Error("No fill expected")
	}
}

func TestPaperExecution_ExpiredNeverExecutes(t *testing.T) {
	paper := newPaper("0")
	paper.Deposit(5)
	paper.PlaceLimit(0, domain.QuoteProposal{AskPrice: 1, AskVolume: 5}, domain.NewLimitOrderType(0, 5))

	flow := paper.Sweep(6, domain.Quote{Bid: d("500"), Ask: d("499")})

	if !flow.IsZero() {
		t.Errorf("Expired order executed: %s", flow)
	}
	if paper.Book().Len() != 0 {
		t.Error("Expired order should be gone")
	}
	if paper.Expired() != 1 {
		t.Errorf("Expected 1 expiry, got %d", paper.Expired())
	}
}

func TestPaperExecution_PlaceLimitSkipsZeroVolumeAndInvertedWindow(t *testing.T) {
	paper := newPaper("100")

	if ids := paper.PlaceLimit(0, domain.QuoteProposal{BidPrice: 1, AskPrice: 2}, domain.NewLimitOrderType(0, 1)); len(ids) != 0 {
		t.Errorf("Zero volumes should not rest, got %d", len(ids))
	}
	if ids := paper.PlaceLimit(0, domain.QuoteProposal{BidPrice: 1, BidVolume: 1}, domain.NewLimitOrderType(5, 1)); len(ids) != 0 {
		t.Errorf("Inverted window should be rejected, got %d", len(ids))
	}
	if paper.Warnings() != 1 {
		t.Errorf("Expected 1 warning, got %d", paper.Warnings())
	}
}

func TestPaperExecution_FIFOWhenBothEligible(t *testing.T) {
	paper := newPaper("150")
	paper.PlaceLimit(0, domain.QuoteProposal{BidPrice: 100, BidVolume: 1}, domain.NewLimitOrderType(0, 5))
	paper.PlaceLimit(1, domain.QuoteProposal{BidPrice: 120, BidVolume: 1}, domain.NewLimitOrderType(0, 5))

	// Cash covers one unit only; the older order wins even though the newer pays more.
	paper.Sweep(2, domain.Quote{Bid: d("101"), Ask: d("100")})

	fills := paper.GetFills()
	if len(fills) != 1 {
		t.Fatalf("Expected 1 fill, got %d", len(fills))
	}
	if !fills[0].LimitPrice.Equal(d("100")) {
		t.Errorf("Expected the first-inserted order to fill, got limit %s", fills[0].LimitPrice)
	}
	if paper.Book().Len() != 1 {
		t.Errorf("Expected the unfunded order to stay, got %d", paper.Book().Len())
	}
}

// Property: no sequence of market or limit executions can drive cash or holding negative.
func TestProperty_CappingKeepsLedgerNonNegative(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cash := rapid.Int64Range(0, 100_000).Draw(t, "cash")
		paper := newPaper(decimal.NewFromInt(cash).String())
		paper.Deposit(rapid.Int64Range(0, 500).Draw(t, "holding"))

		steps := rapid.IntRange(1, 20).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			bid := decimal.NewFromInt(rapid.Int64Range(1, 500).Draw(t, "bid"))
			ask := decimal.NewFromInt(rapid.Int64Range(1, 500).Draw(t, "ask"))
			market := domain.Quote{Bid: bid, Ask: ask}

			if rapid.Bool().Draw(t, "market") {
				paper.ExecuteMarket(i, market,
					rapid.Int64Range(0, 1_000_000).Draw(t, "buy"),
					rapid.Int64Range(0, 1_000_000).Draw(t, "sell"))
			} else {
				paper.PlaceLimit(i, domain.QuoteProposal{
					BidPrice:  float64(rapid.Int64Range(1, 500).Draw(t, "limitBid")),
					BidVolume: rapid.Int64Range(0, 1_000_000).Draw(t, "limitBuy"),
					AskPrice:  float64(rapid.Int64Range(1, 500).Draw(t, "limitAsk")),
					AskVolume: rapid.Int64Range(0, 1_000_000).Draw(t, "limitSell"),
				}, domain.NewLimitOrderType(i, i+3))
			}
			paper.Sweep(i, market)
			paper.Ledger().CloseInterval(market)

			if paper.Ledger().Cash().IsNegative() {
				t.Fatalf("cash went negative: %s", paper.Ledger().Cash())
			}
			if paper.Ledger().Holding() < 0 {
				t.Fatalf("holding went negative: %d", paper.Ledger().Holding())
			}
			paper.Ledger().VerifyInvariant()
		}
	})
}
