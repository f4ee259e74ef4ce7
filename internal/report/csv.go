package report

import (
	"encoding/csv"
	"os"
	"strconv"

	"mm_sim/internal/engine"
)

// WriteLedgerCSV writes one row per interval of a run.
func WriteLedgerCSV(path string, ledger []engine.LedgerRow) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	header := []string{
		"interval",
		"order_kind",
		"bid_price",
		"bid_volume",
		"ask_price",
		"ask_volume",
		"market_bid",
		"market_ask",
		"market_flow",
		"limit_flow",
		"profit",
		"cash",
		"holding",
		"mark_to_market",
		"fills",
		"resting",
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, r := range ledger {
		row := []string{
			strconv.Itoa(r.Interval),
			r.OrderKind,
			fmtFloat(r.BidPrice),
			strconv.FormatInt(r.BidVolume, 10),
			fmtFloat(r.AskPrice),
			strconv.FormatInt(r.AskVolume, 10),
			r.MarketBid.String(),
			r.MarketAsk.String(),
			r.MarketFlow.String(),
			r.LimitFlow.String(),
			r.Profit.String(),
			r.Cash.String(),
			strconv.FormatInt(r.Holding, 10),
			r.MarkToMarket.String(),
			strconv.Itoa(r.Fills),
			strconv.Itoa(r.Resting),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

func fmtFloat(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
