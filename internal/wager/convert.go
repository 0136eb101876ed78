package wager

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

var maxInt64 = decimal.NewFromInt(math.MaxInt64)

// Bounds on parsed literals. Arithmetic on a decimal costs time proportional
// to its exponent, so "1e999999999" is rejected before any is done.
const (
	maxIntegerDigits  = 40
	maxFractionDigits = 64
)

// Converter maps RawWagers to CanonicalWagers.
//
// Scaling multiplies the exact decimal value by 10^PriceDecimals or
// 10^StakeDecimals and rounds half up to an integer. Inputs with no more
// precision than the target scale convert exactly.
type Converter struct {
	DefaultDayOffset int64
}

// NewConverter creates a converter that assigns defaultDayOffset to records
// that carry no dayOffset of their own
func NewConverter(defaultDayOffset int64) *Converter {
	return &Converter{DefaultDayOffset: defaultDayOffset}
}

// Convert produces the canonical form of raw
func (c *Converter) Convert(raw RawWager) (CanonicalWager, error) {
	ts, err := parseInteger(raw.Index, FieldTargetTimestamp, raw.TargetTimestamp)
	if err != nil {
		return CanonicalWager{}, err
	}

	priceMin, err := parseDecimal(raw.Index, FieldPriceMin, raw.PriceMin)
	if err != nil {
		return CanonicalWager{}, err
	}
	priceMax, err := parseDecimal(raw.Index, FieldPriceMax, raw.PriceMax)
	if err != nil {
		return CanonicalWager{}, err
	}
	if priceMin.GreaterThan(priceMax) {
		return CanonicalWager{}, &InputFormatError{
			Index: raw.Index,
			Field: FieldPriceMin,
			Value: strings.TrimSpace(raw.PriceMin),
			Err:   ErrInvertedBand,
		}
	}
	stake, err := parseDecimal(raw.Index, FieldStake, raw.Stake)
	if err != nil {
		return CanonicalWager{}, err
	}

	priceMinScaled, err := scaleToInt64(raw.Index, FieldPriceMin, raw.PriceMin, priceMin)
	if err != nil {
		return CanonicalWager{}, err
	}
	priceMaxScaled, err := scaleToInt64(raw.Index, FieldPriceMax, raw.PriceMax, priceMax)
	if err != nil {
		return CanonicalWager{}, err
	}

	dayOffset := c.DefaultDayOffset
	if strings.TrimSpace(raw.DayOffset) != "" {
		dayOffset, err = parseInteger(raw.Index, FieldDayOffset, raw.DayOffset)
		if err != nil {
			return CanonicalWager{}, err
		}
	}

	return CanonicalWager{
		Index:            raw.Index,
		TargetTimestamp:  ts,
		PriceMinScaled:   priceMinScaled,
		PriceMaxScaled:   priceMaxScaled,
		StakeScaled:      Scale(stake, StakeDecimals),
		DayOffset:        dayOffset,
		OriginalPriceMin: priceMin,
		OriginalPriceMax: priceMax,
		OriginalStake:    stake,
	}, nil
}

// ConvertAll converts every record, stopping at the first malformed one
func (c *Converter) ConvertAll(raws []RawWager) ([]CanonicalWager, error) {
	out := make([]CanonicalWager, 0, len(raws))
	for _, raw := range raws {
		w, err := c.Convert(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, nil
}

// Scale returns round(d * 10^places) with halves rounded away from zero
func Scale(d decimal.Decimal, places int32) decimal.Decimal {
	return d.Shift(places).Round(0)
}

func parseDecimal(index int, field, text string) (decimal.Decimal, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return decimal.Zero, &InputFormatError{Index: index, Field: field, Err: ErrMissingField}
	}
	d, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero, &InputFormatError{Index: index, Field: field, Value: text, Err: ErrNotNumeric}
	}
	if d.IsNegative() {
		return decimal.Zero, &InputFormatError{Index: index, Field: field, Value: text, Err: ErrNegative}
	}
	exp := int64(d.Exponent())
	if exp < -maxFractionDigits || int64(d.NumDigits())+exp > maxIntegerDigits {
		return decimal.Zero, &InputFormatError{Index: index, Field: field, Value: text, Err: ErrOutOfRange}
	}
	return d, nil
}

func parseInteger(index int, field, text string) (int64, error) {
	d, err := parseDecimal(index, field, text)
	if err != nil {
		return 0, err
	}
	if !d.IsInteger() {
		return 0, &InputFormatError{Index: index, Field: field, Value: strings.TrimSpace(text), Err: ErrNotInteger}
	}
	if d.GreaterThan(maxInt64) {
		return 0, &InputFormatError{Index: index, Field: field, Value: strings.TrimSpace(text), Err: ErrOutOfRange}
	}
	return d.IntPart(), nil
}

func scaleToInt64(index int, field, text string, d decimal.Decimal) (int64, error) {
	scaled := Scale(d, PriceDecimals)
	if scaled.GreaterThan(maxInt64) {
		return 0, &InputFormatError{Index: index, Field: field, Value: strings.TrimSpace(text), Err: ErrOutOfRange}
	}
	return scaled.IntPart(), nil
}
