package planner

import (
	"errors"
	"fmt"
	"time"

	"github.com/liamashdown/batchplanner/internal/metrics"
	"github.com/liamashdown/batchplanner/internal/wager"
	"github.com/sirupsen/logrus"
)

// Plan is the result of converting, filtering and batching one input collection
type Plan struct {
	AsOf      int64
	BatchSize int
	Read      int
	Eligible  []wager.CanonicalWager
	Dropped   int
	Batches   []wager.Batch
}

// Empty reports whether no wager survived the eligibility filter
func (p *Plan) Empty() bool {
	return len(p.Eligible) == 0
}

// TargetRange returns the first and last eligible target times
func (p *Plan) TargetRange() (first, last int64, ok bool) {
	if p.Empty() {
		return 0, 0, false
	}
	return p.Eligible[0].TargetTimestamp, p.Eligible[len(p.Eligible)-1].TargetTimestamp, true
}

// Planner runs Converter, Filter+Sorter and Batcher in sequence
type Planner struct {
	converter *wager.Converter
	batchSize int
	log       logrus.FieldLogger
}

// New creates a planner
func New(batchSize int, defaultDayOffset int64, log logrus.FieldLogger) *Planner {
	return &Planner{
		converter: wager.NewConverter(defaultDayOffset),
		batchSize: batchSize,
		log:       log,
	}
}

// Plan converts raws, keeps the wagers targeting a time after asOf and groups
// them into batches. Any malformed record aborts the whole plan.
func (p *Planner) Plan(raws []wager.RawWager, asOf int64) (*Plan, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStage("plan", time.Since(start))
	}()

	canonical, err := p.converter.ConvertAll(raws)
	if err != nil {
		var formatErr *wager.InputFormatError
		if errors.As(err, &formatErr) {
			metrics.RecordInputError(formatErr.Field)
		}
		return nil, fmt.Errorf("convert wagers: %w", err)
	}

	eligible, dropped := wager.Eligible(canonical, asOf)
	if dropped > 0 {
		p.log.WithFields(logrus.Fields{
			"dropped": dropped,
			"as_of":   asOf,
		}).Info("Dropped wagers whose target time has passed")
	}

	batches, err := wager.Partition(eligible, p.batchSize)
	if err != nil {
		return nil, fmt.Errorf("partition wagers: %w", err)
	}

	sizes := make([]int, len(batches))
	for i, b := range batches {
		sizes[i] = b.Size()
	}
	metrics.RecordPlan(len(raws), len(eligible), dropped, sizes)

	p.log.WithFields(logrus.Fields{
		"read":       len(raws),
		"eligible":   len(eligible),
		"dropped":    dropped,
		"batches":    len(batches),
		"batch_size": p.batchSize,
	}).Info("Plan built")

	return &Plan{
		AsOf:      asOf,
		BatchSize: p.batchSize,
		Read:      len(raws),
		Eligible:  eligible,
		Dropped:   dropped,
		Batches:   batches,
	}, nil
}
