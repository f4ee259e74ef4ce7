package domain

import "testing"

func TestOrderType_Constructors(t *testing.T) {
	t.Run("market order is pinned to issue time", func(t *testing.T) {
		ot := NewMarketOrderType(7)
		if !ot.IsMarket() || ot.Kind() != OrderKindMarket {
			t.Errorf("Expected MARKET, got %s", ot.Kind())
		}
		if ot.FromTime() != 7 || ot.ToTime() != 7 {
			t.Errorf("Expected window [7,7], got [%d,%d]", ot.FromTime(), ot.ToTime())
		}
	})

	t.Run("limit order keeps its window", func(t *testing.T) {
		ot := NewLimitOrderType(3, 103)
		if ot.IsMarket() {
			t.Error("Limit order should not be market")
		}
		if ot.FromTime() != 3 || ot.ToTime() != 103 {
			t.Errorf("Expected window [3,103], got [%d,%d]", ot.FromTime(), ot.ToTime())
		}
	})

	t.Run("zero value is neither", func(t *testing.T) {
		var ot OrderType
		if ot.Kind().String() != "UNKNOWN" {
			t.Errorf("Expected UNKNOWN, got %s", ot.Kind())
		}
	})
}

func TestRestingOrder_Window(t *testing.T) {
	o := RestingOrder{FromTime: 2, ToTime: 5}

	tests := []struct {
		now     int
		active  bool
		expired bool
	}{
		{1, false, false},
		{2, true, false},
		{5, true, false},
		{6, false, true},
	}
	for _, tt := range tests {
		if got := o.IsActive(tt.now); got != tt.active {
			t.Errorf("IsActive(%d) = %v, want %v", tt.now, got, tt.active)
		}
		if got := o.IsExpired(tt.now); got != tt.expired {
			t.Errorf("IsExpired(%d) = %v, want %v", tt.now, got, tt.expired)
		}
	}
}

func TestSide_String(t *testing.T) {
	if SideBuy.String() != "BUY" || SideSell.String() != "SELL" || Side(0).String() != "UNKNOWN" {
		t.Error("Unexpected side strings")
	}
}
