package script

import (
	_ "embed"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/template"

	"github.com/liamashdown/batchplanner/internal/wager"
)

//go:embed templates/PlaceBatch.s.sol.tmpl
var placeBatchSource string

var placeBatchTemplate = template.Must(template.New("PlaceBatch.s.sol").Parse(placeBatchSource))

// ScriptData is everything the batch script template substitutes
type ScriptData struct {
	BatchNumber      int
	ContractName     string
	ContractImport   string
	PrivateKeyEnv    string
	MarketAddressEnv string
	Positions        string // input positions of the members, for the reader
	Bets             []BetData
}

// BetData is one placeBatchBets member as the script declares it.
// Stake is the decimal ether amount; the script converts it to wei itself.
type BetData struct {
	Slot            int // array index in the script
	Number          int // 1-based, for log lines
	TargetTimestamp int64
	DayOffset       int64
	PriceMin        int64
	PriceMax        int64
	Stake           string
}

// Renderer turns a batch into Foundry script source
type Renderer struct {
	ContractName     string
	ContractImport   string
	PrivateKeyEnv    string
	MarketAddressEnv string
}

// Data builds the template input for b
func (r *Renderer) Data(b wager.Batch) ScriptData {
	bets := make([]BetData, len(b.Wagers))
	positions := make([]string, len(b.Wagers))
	for i, w := range b.Wagers {
		bets[i] = BetData{
			Slot:            i,
			Number:          i + 1,
			TargetTimestamp: w.TargetTimestamp,
			DayOffset:       w.DayOffset,
			PriceMin:        w.PriceMinScaled,
			PriceMax:        w.PriceMaxScaled,
			Stake:           etherLiteral(w),
		}
		positions[i] = strconv.Itoa(w.Index)
	}

	return ScriptData{
		BatchNumber:      b.Number,
		ContractName:     r.ContractName,
		ContractImport:   r.ContractImport,
		PrivateKeyEnv:    r.PrivateKeyEnv,
		MarketAddressEnv: r.MarketAddressEnv,
		Positions:        strings.Join(positions, ", "),
		Bets:             bets,
	}
}

// Render writes the script for b to w
func (r *Renderer) Render(w io.Writer, b wager.Batch) error {
	if b.Size() == 0 {
		return fmt.Errorf("batch %d has no bets", b.Number)
	}
	if err := placeBatchTemplate.Execute(w, r.Data(b)); err != nil {
		return fmt.Errorf("render batch %d: %w", b.Number, err)
	}
	return nil
}

// etherLiteral is the original stake limited to wei precision, so that
// "<stake> ether" is always an integral number of wei in Solidity
func etherLiteral(w wager.CanonicalWager) string {
	return w.OriginalStake.Round(wager.StakeDecimals).String()
}
