package market

// Scripted replays a fixed sequence of quotes, one per call, and holds the last
// quote once the script is exhausted. It ignores the engine's flow.
type Scripted struct {
	quotes [][2]float64
	next   int
}

// NewScripted creates a generator from (bid, ask) pairs.
func NewScripted(quotes ...[2]float64) *Scripted {
	return &Scripted{quotes: quotes}
}

// Fixed returns a generator that always produces the same quote.
func Fixed(bid, ask float64) *Scripted {
	return NewScripted([2]float64{bid, ask})
}

// NextQuote returns the next scripted quote.
func (s *Scripted) NextQuote(float64, int64, float64, int64) (float64, float64) {
	if len(s.quotes) == 0 {
		return 0, 0
	}
	i := min(s.next, len(s.quotes)-1)
	s.next++
	return s.quotes[i][0], s.quotes[i][1]
}

// Calls returns how many quotes have been requested.
func (s *Scripted) Calls() int { return s.next }
