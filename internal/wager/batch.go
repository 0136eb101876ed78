package wager

import (
	"cmp"
	"slices"
	"strconv"
)

// Eligible returns the wagers whose target time is after asOf, sorted by
// target time. Equal target times keep their relative input order. The
// number of wagers left out is returned alongside.
func Eligible(wagers []CanonicalWager, asOf int64) ([]CanonicalWager, int) {
	kept := make([]CanonicalWager, 0, len(wagers))
	for _, w := range wagers {
		if w.TargetTimestamp > asOf {
			kept = append(kept, w)
		}
	}

	slices.SortStableFunc(kept, func(a, b CanonicalWager) int {
		return cmp.Compare(a.TargetTimestamp, b.TargetTimestamp)
	})

	return kept, len(wagers) - len(kept)
}

// Partition splits wagers into consecutive batches of at most size wagers.
// Batch boundaries fall at multiples of size and only the last batch may be
// short. An empty input yields no batches.
func Partition(wagers []CanonicalWager, size int) ([]Batch, error) {
	if size < 1 {
		return nil, &InvalidConfigurationError{Setting: "batch size", Value: strconv.Itoa(size), Reason: "must be at least 1"}
	}

	batches := make([]Batch, 0, (len(wagers)+size-1)/size)
	for start := 0; start < len(wagers); start += size {
		end := min(start+size, len(wagers))
		batches = append(batches, Batch{
			Number: len(batches) + 1,
			Wagers: slices.Clone(wagers[start:end]),
		})
	}
	return batches, nil
}
