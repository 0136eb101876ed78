package planner

import (
	"errors"
	"io"
	"strconv"
	"testing"

	"github.com/liamashdown/batchplanner/internal/wager"
	"github.com/sirupsen/logrus"
)

const (
	now        = int64(1754645318)
	secondsDay = int64(86400)
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func rawAt(index int, ts int64) wager.RawWager {
	return wager.RawWager{
		Index:           index,
		TargetTimestamp: strconv.FormatInt(ts, 10),
		PriceMin:        "0.2100",
		PriceMax:        "0.2550",
		Stake:           "0.001",
	}
}

func TestPlanTwelveFutureWagers(t *testing.T) {
	raws := make([]wager.RawWager, 12)
	for i := range raws {
		raws[i] = rawAt(i, now+secondsDay)
	}

	plan, err := New(10, 2, quietLogger()).Plan(raws, now)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}

	if len(plan.Batches) != 2 {
		t.Fatalf("got %d batches, want 2", len(plan.Batches))
	}
	if plan.Batches[0].Size() != 10 || plan.Batches[1].Size() != 2 {
		t.Errorf("sizes: got %d and %d, want 10 and 2", plan.Batches[0].Size(), plan.Batches[1].Size())
	}

	next := 0
	for _, b := range plan.Batches {
		for _, w := range b.Wagers {
			if w.Index != next {
				t.Errorf("batch %d: got wager %d, want %d", b.Number, w.Index, next)
			}
			next++
		}
	}
	if plan.Dropped != 0 {
		t.Errorf("Dropped = %d, want 0", plan.Dropped)
	}
}

func TestPlanDropsPastWager(t *testing.T) {
	raws := []wager.RawWager{
		rawAt(0, now+2*secondsDay),
		rawAt(1, now-secondsDay),
		rawAt(2, now+secondsDay),
	}

	plan, err := New(10, 2, quietLogger()).Plan(raws, now)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}

	if plan.Dropped != 1 {
		t.Errorf("Dropped = %d, want 1", plan.Dropped)
	}
	if len(plan.Batches) != 1 || plan.Batches[0].Size() != 2 {
		t.Fatalf("got %d batches, want 1 batch of 2", len(plan.Batches))
	}
	// sorted by target time: wager 2 (day 1) before wager 0 (day 2)
	if plan.Batches[0].Wagers[0].Index != 2 || plan.Batches[0].Wagers[1].Index != 0 {
		t.Errorf("order: got %d, %d, want 2, 0", plan.Batches[0].Wagers[0].Index, plan.Batches[0].Wagers[1].Index)
	}

	first, last, ok := plan.TargetRange()
	if !ok || first != now+secondsDay || last != now+2*secondsDay {
		t.Errorf("TargetRange = %d, %d, %v", first, last, ok)
	}
}

func TestPlanScalesReferenceWager(t *testing.T) {
	raws := []wager.RawWager{{
		TargetTimestamp: strconv.FormatInt(now+secondsDay, 10),
		PriceMin:        "0.5213",
		PriceMax:        "0.5890",
		Stake:           "0.1",
	}}

	plan, err := New(10, 2, quietLogger()).Plan(raws, now)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}

	w := plan.Batches[0].Wagers[0]
	if w.PriceMinScaled != 5213 || w.PriceMaxScaled != 5890 {
		t.Errorf("band: got %d-%d, want 5213-5890", w.PriceMinScaled, w.PriceMaxScaled)
	}
	if w.StakeWei() != "100000000000000000" {
		t.Errorf("stake: got %s, want 100000000000000000", w.StakeWei())
	}
	if plan.Batches[0].TotalStakeWei() != "100000000000000000" {
		t.Errorf("total stake: got %s", plan.Batches[0].TotalStakeWei())
	}
}

func TestPlanNothingEligible(t *testing.T) {
	raws := []wager.RawWager{rawAt(0, now-10), rawAt(1, now)}

	plan, err := New(10, 2, quietLogger()).Plan(raws, now)
	if err != nil {
		t.Fatalf("empty eligible set must not fail: %v", err)
	}
	if !plan.Empty() || len(plan.Batches) != 0 || plan.Dropped != 2 {
		t.Errorf("got eligible=%d batches=%d dropped=%d, want 0/0/2", len(plan.Eligible), len(plan.Batches), plan.Dropped)
	}
	if _, _, ok := plan.TargetRange(); ok {
		t.Error("TargetRange ok on empty plan")
	}
}

func TestPlanErrors(t *testing.T) {
	t.Run("malformed record", func(t *testing.T) {
		raws := []wager.RawWager{rawAt(0, now+secondsDay), {Index: 1, TargetTimestamp: "soon"}}
		_, err := New(10, 2, quietLogger()).Plan(raws, now)

		var formatErr *wager.InputFormatError
		if !errors.As(err, &formatErr) {
			t.Fatalf("got %v, want *wager.InputFormatError", err)
		}
		if formatErr.Index != 1 || formatErr.Field != wager.FieldTargetTimestamp {
			t.Errorf("got wager %d field %s, want wager 1 field %s", formatErr.Index, formatErr.Field, wager.FieldTargetTimestamp)
		}
	})

	t.Run("zero batch size", func(t *testing.T) {
		_, err := New(0, 2, quietLogger()).Plan(nil, now)

		var cfgErr *wager.InvalidConfigurationError
		if !errors.As(err, &cfgErr) {
			t.Fatalf("got %v, want *wager.InvalidConfigurationError", err)
		}
	})
}
