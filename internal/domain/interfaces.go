package domain

// MarketGenerator produces the next interval's market quote given the engine's quotes
// and the flow it traded. Implementations may be stochastic; the engine treats them as opaque.
type MarketGenerator interface {
	NextQuote(bid float64, bidVolume int64, ask float64, askVolume int64) (nextBid, nextAsk float64)
}

// QuotePerturber models the price impact of trading at market.
type QuotePerturber interface {
	Perturb(bid, ask float64) (float64, float64)
}

// RunRepository defines how finished runs are persisted
type RunRepository interface {
	SaveRun(run *RunRecord) error
	GetRun(id string) (*RunRecord, error)
	ListRuns() ([]RunRecord, error)
	DeleteRun(id string) error
}
