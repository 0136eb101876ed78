package report

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/liamashdown/batchplanner/internal/planner"
	"github.com/liamashdown/batchplanner/internal/wager"
)

// forgeSignature is the entry point of the generic batch placement script
const forgeSignature = "run(uint256[],uint256[],uint256[])"

// Summary writes the review report with one forge command per batch
type Summary struct {
	ForgeScript string // path of the batch placement script passed to forge
	RPCURLEnv   string // shell variable holding the RPC endpoint
	Unit        string // display name of the native currency
}

// NewSummary creates a summary writer
func NewSummary(forgeScript, rpcURLEnv string) *Summary {
	return &Summary{
		ForgeScript: forgeScript,
		RPCURLEnv:   rpcURLEnv,
		Unit:        "ETH",
	}
}

// Write renders plan to w. Output depends only on plan.
func (s *Summary) Write(w io.Writer, plan *planner.Plan) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "# Converted %d valid bets into %d batches\n", len(plan.Eligible), len(plan.Batches))
	fmt.Fprintf(bw, "# Reference timestamp: %d\n", plan.AsOf)
	fmt.Fprintf(bw, "# Dropped %d past-dated bets\n", plan.Dropped)

	first, last, ok := plan.TargetRange()
	if !ok {
		fmt.Fprintf(bw, "# No eligible bets, nothing to submit\n")
		return bw.Flush()
	}
	fmt.Fprintf(bw, "# Valid bets range: %d to %d\n", first, last)
	fmt.Fprintln(bw)

	for _, b := range plan.Batches {
		s.writeBatch(bw, b)
	}

	return bw.Flush()
}

func (s *Summary) writeBatch(w io.Writer, b wager.Batch) {
	total := b.TotalStake()

	fmt.Fprintf(w, "# Batch %d: %d bets\n", b.Number, b.Size())
	fmt.Fprintf(w, "# Total stake: %s %s (%s wei)\n",
		total.Shift(-wager.StakeDecimals).StringFixed(6), s.Unit, b.TotalStakeWei())
	fmt.Fprintln(w)

	fmt.Fprintf(w, "# Batch %d command:\n", b.Number)
	fmt.Fprint(w, s.Command(b))
	fmt.Fprintln(w)

	for i, bet := range b.Wagers {
		fmt.Fprintf(w, "#   Bet %d: %s %s, %s-%s -> %d-%d BPS\n",
			i+1,
			bet.OriginalStake.StringFixed(6), s.Unit,
			bet.OriginalPriceMin.StringFixed(4), bet.OriginalPriceMax.StringFixed(4),
			bet.PriceMinScaled, bet.PriceMaxScaled,
		)
	}
	fmt.Fprintln(w)
}

// Command returns the forge invocation that submits b, one flag per line
func (s *Summary) Command(b wager.Batch) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "forge script %s --sig %q \\\n", s.ForgeScript, forgeSignature)
	fmt.Fprintf(&sb, "  --rpc-url $%s \\\n", s.RPCURLEnv)
	sb.WriteString("  --broadcast \\\n")
	fmt.Fprintf(&sb, "  --value %s \\\n", b.TotalStakeWei())
	fmt.Fprintf(&sb, "  -- %s %s %s\n", uintArray(b.Timestamps()), uintArray(b.PriceMins()), uintArray(b.PriceMaxs()))
	return sb.String()
}

// uintArray formats values as a quoted uint256[] literal forge can parse
func uintArray(values []int64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.FormatInt(v, 10)
	}
	return `"[` + strings.Join(parts, ",") + `]"`
}
