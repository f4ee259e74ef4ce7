package event

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
)

func TestReleaseIntervalEvent_Resets(t *testing.T) {
	ev := AcquireIntervalEvent()
	ev.RunID = "run"
	ev.Interval = 9
	ev.Cash = decimal.NewFromInt(5)
	ev.Holding = 3

	ReleaseIntervalEvent(ev)

	if ev.RunID != "" || ev.Interval != 0 || !ev.Cash.IsZero() || ev.Holding != 0 {
		t.Errorf("Expected zeroed event, got %+v", ev)
	}

	// nil is ignored
	ReleaseIntervalEvent(nil)
}

func TestEncode(t *testing.T) {
	b, err := Encode(TypeInterval, &IntervalEvent{RunID: "r1", Interval: 2, Cash: decimal.RequireFromString("50.25")})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	var msg struct {
		Type Type `json:"type"`
		Data struct {
			RunID    string `json:"run_id"`
			Interval int    `json:"interval"`
			Cash     string `json:"cash"`
		} `json:"data"`
	}
	if err := json.Unmarshal(b, &msg); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if msg.Type != TypeInterval {
		t.Errorf("Expected type interval, got %s", msg.Type)
	}
	if msg.Data.RunID != "r1" || msg.Data.Interval != 2 || msg.Data.Cash != "50.25" {
		t.Errorf("Unexpected payload %+v", msg.Data)
	}
}

func TestWarmup(t *testing.T) {
	Warmup(16)
	ev := AcquireIntervalEvent()
	if ev == nil {
		t.Fatal("Expected pooled event")
	}
	ReleaseIntervalEvent(ev)
}
