package wager

import (
	"github.com/shopspring/decimal"
)

// Fixed-point precision expected by the prediction market contract
const (
	PriceDecimals int32 = 4  // basis points
	StakeDecimals int32 = 18 // wei
)

// MaxBatchSize is the largest batch placeBatchBets accepts
const MaxBatchSize = 10

// Field names as they appear in input records
const (
	FieldTargetTimestamp = "targetTimestamp"
	FieldPriceMin        = "priceMin"
	FieldPriceMax        = "priceMax"
	FieldStake           = "stake"
	FieldDayOffset       = "dayOffset"
)

// RawWager is a wager as authored by a human, in decimal units.
// Numeric fields hold the literal text from the input so parsing stays exact.
// An empty string means the field was absent.
type RawWager struct {
	Index           int // position in the input collection
	TargetTimestamp string
	PriceMin        string
	PriceMax        string
	Stake           string
	DayOffset       string // optional
}

// CanonicalWager is a wager in the contract's integer units.
// It is built once by a Converter and never modified.
type CanonicalWager struct {
	Index           int
	TargetTimestamp int64
	PriceMinScaled  int64
	PriceMaxScaled  int64
	StakeScaled     decimal.Decimal // integral, may exceed int64
	DayOffset       int64

	OriginalPriceMin decimal.Decimal
	OriginalPriceMax decimal.Decimal
	OriginalStake    decimal.Decimal
}

// StakeWei returns the scaled stake as a base-10 integer string
func (w CanonicalWager) StakeWei() string {
	return w.StakeScaled.StringFixed(0)
}

// Batch is a contiguous group of wagers submitted in one placeBatchBets call
type Batch struct {
	Number int // 1-indexed
	Wagers []CanonicalWager
}

// Size returns the number of wagers in the batch
func (b Batch) Size() int {
	return len(b.Wagers)
}

// TotalStake sums StakeScaled over the batch
func (b Batch) TotalStake() decimal.Decimal {
	total := decimal.Zero
	for _, w := range b.Wagers {
		total = total.Add(w.StakeScaled)
	}
	return total
}

// TotalStakeWei returns TotalStake as a base-10 integer string
func (b Batch) TotalStakeWei() string {
	return b.TotalStake().StringFixed(0)
}

// Timestamps, PriceMins and PriceMaxs return the parallel arrays placeBatchBets takes.
func (b Batch) Timestamps() []int64 {
	out := make([]int64, len(b.Wagers))
	for i, w := range b.Wagers {
		out[i] = w.TargetTimestamp
	}
	return out
}

func (b Batch) PriceMins() []int64 {
	out := make([]int64, len(b.Wagers))
	for i, w := range b.Wagers {
		out[i] = w.PriceMinScaled
	}
	return out
}

func (b Batch) PriceMaxs() []int64 {
	out := make([]int64, len(b.Wagers))
	for i, w := range b.Wagers {
		out[i] = w.PriceMaxScaled
	}
	return out
}
