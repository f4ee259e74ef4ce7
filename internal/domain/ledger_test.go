package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newTestLedger(cash string) *Ledger {
	return NewLedger(d(cash), Quote{Bid: d("100.5"), Ask: d("99.5")})
}

func TestLedger_Affordable(t *testing.T) {
	l := newTestLedger("10000")

	if got := l.Affordable(d("99.5")); got != 100 {
		t.Errorf("Expected 100, got %d", got)
	}

	t.Run("exact multiple", func(t *testing.T) {
		l := newTestLedger("298.5")
		if got := l.Affordable(d("99.5")); got != 3 {
			t.Errorf("Expected 3, got %d", got)
		}
	})

	t.Run("not enough for one unit", func(t *testing.T) {
		l := newTestLedger("50")
		if got := l.Affordable(d("99.5")); got != 0 {
			t.Errorf("Expected 0, got %d", got)
		}
	})

	t.Run("non-positive price", func(t *testing.T) {
		if got := l.Affordable(decimal.Zero); got != 0 {
			t.Errorf("Expected 0 for zero price, got %d", got)
		}
		if got := l.Affordable(d("-1")); got != 0 {
			t.Errorf("Expected 0 for negative price, got %d", got)
		}
	})

	t.Run("repeating division", func(t *testing.T) {
		l := newTestLedger("10")
		if got := l.Affordable(d("3")); got != 3 {
			t.Errorf("Expected 3, got %d", got)
		}
	})
}

func TestLedger_BuySell(t *testing.T) {
	l := newTestLedger("10000")

	delta := l.Buy(d("99.5"), 100)
	if !delta.Equal(d("-9950")) {
		t.Errorf("Expected delta -9950, got %s", delta)
	}
	if !l.Cash().Equal(d("50")) {
		t.Errorf("Expected cash 50, got %s", l.Cash())
	}
	if l.Holding() != 100 {
		t.Errorf("Expected holding 100, got %d", l.Holding())
	}

	delta = l.Sell(d("101"), 40)
	if !delta.Equal(d("4040")) {
		t.Errorf("Expected delta 4040, got %s", delta)
	}
	if l.Holding() != 60 {
		t.Errorf("Expected holding 60, got %d", l.Holding())
	}

	profit := l.CloseInterval(Quote{Bid: d("101"), Ask: d("100")})
	if !profit.Equal(d("-5910")) {
		t.Errorf("Expected interval profit -5910, got %s", profit)
	}
	l.VerifyInvariant()
}

func TestLedger_ZeroVolumeIsNoop(t *testing.T) {
	l := newTestLedger("100")
	if !l.Buy(d("10"), 0).IsZero() || !l.Sell(d("10"), 0).IsZero() {
		t.Error("Zero volume should not move cash")
	}
	if !l.Cash().Equal(d("100")) || l.Holding() != 0 {
		t.Error("Zero volume should not change state")
	}
}

func TestLedger_OverspendPanics(t *testing.T) {
	l := newTestLedger("50")
	defer func() {
		if r := recover(); r == nil {
			t.Error("Buy beyond cash should panic")
		}
	}()
	l.Buy(d("99.5"), 1)
}

func TestLedger_OversellPanics(t *testing.T) {
	l := newTestLedger("50")
	defer func() {
		if r := recover(); r == nil {
			t.Error("Sell beyond holding should panic")
		}
	}()
	l.Sell(d("99.5"), 1)
}

func TestLedger_MarkToMarket(t *testing.T) {
	l := newTestLedger("10000")
	l.Buy(d("99.5"), 100)
	l.CloseInterval(Quote{Bid: d("100.5"), Ask: d("99.5")})
	l.CloseInterval(Quote{Bid: d("102"), Ask: d("101")})

	// 100 * 101 + 50
	if got := l.MarkToMarket(); !got.Equal(d("10150")) {
		t.Errorf("Expected 10150, got %s", got)
	}
	l.VerifyInvariant()
}

func TestLedger_Reconciliation(t *testing.T) {
	l := newTestLedger("1000")
	l.Deposit(5)
	for i := 0; i < 10; i++ {
		l.Buy(d("9.75"), 3)
		l.Sell(d("10.25"), 2)
		l.CloseInterval(Quote{Bid: d("10.25"), Ask: d("9.75")})
		l.VerifyInvariant()
	}
	if !l.Cash().Equal(l.InitialCash().Add(l.TotalProfit())) {
		t.Errorf("Cash %s does not reconcile with profit %s", l.Cash(), l.TotalProfit())
	}
	if len(l.MarketBids()) != 11 || len(l.Profit()) != 10 {
		t.Errorf("Unexpected history lengths: bids=%d profit=%d", len(l.MarketBids()), len(l.Profit()))
	}
	if l.Holding() != 15 {
		t.Errorf("Expected holding 15, got %d", l.Holding())
	}
}

func TestLedger_Snapshot(t *testing.T) {
	l := newTestLedger("100")
	snap := l.Snapshot()
	snap.MarketBid[0] = d("1")
	if !l.LastQuote().Bid.Equal(d("100.5")) {
		t.Error("Snapshot must not alias ledger history")
	}
}
