package script

import (
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/liamashdown/batchplanner/internal/wager"
	"github.com/sirupsen/logrus"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func plannedBatches(t *testing.T, count int) []wager.Batch {
	t.Helper()
	raws := make([]wager.RawWager, count)
	for i := range raws {
		raws[i] = wager.RawWager{Index: i, TargetTimestamp: "2000000000", PriceMin: "0.2", PriceMax: "0.3", Stake: "0.001"}
	}
	wagers, err := wager.NewConverter(2).ConvertAll(raws)
	if err != nil {
		t.Fatalf("ConvertAll failed: %v", err)
	}
	batches, err := wager.Partition(wagers, wager.MaxBatchSize)
	if err != nil {
		t.Fatalf("Partition failed: %v", err)
	}
	return batches
}

func TestExistingBatches(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"PlaceBatch1.s.sol",
		"PlaceBatch12.s.sol",
		"PlaceBatch3.s.sol",
		"PlaceBatch0.s.sol",
		"PlaceBatch4.s.sol.bak",
		".PlaceBatch5.s.sol.123.tmp",
		"PlaceBatchBets.s.sol",
		"README.md",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "PlaceBatch20.s.sol"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	got, err := ExistingBatches(dir)
	if err != nil {
		t.Fatalf("ExistingBatches failed: %v", err)
	}
	if want := []int{1, 3, 12}; !slices.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}

	next, err := NextBatch(dir)
	if err != nil {
		t.Fatalf("NextBatch failed: %v", err)
	}
	if next != 13 {
		t.Errorf("NextBatch = %d, want 13", next)
	}
}

func TestNextBatchMissingDir(t *testing.T) {
	next, err := NextBatch(filepath.Join(t.TempDir(), "not-yet"))
	if err != nil {
		t.Fatalf("NextBatch failed: %v", err)
	}
	if next != 1 {
		t.Errorf("NextBatch = %d, want 1", next)
	}
}

func TestWriteFromResumesAfterExistingBatch(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, FileName(1))
	const handWritten = "// batch 1 already broadcast\n"
	if err := os.WriteFile(existing, []byte(handWritten), 0o644); err != nil {
		t.Fatalf("write existing script: %v", err)
	}

	w := NewWriter(dir, testRenderer(), quietLogger())
	start, err := w.StartBatch(0, 0)
	if err != nil {
		t.Fatalf("StartBatch failed: %v", err)
	}
	if start != 2 {
		t.Fatalf("StartBatch = %d, want 2", start)
	}

	batches := plannedBatches(t, 25)
	artifacts, err := w.WriteFrom(batches, start)
	if err != nil {
		t.Fatalf("WriteFrom failed: %v", err)
	}

	if len(artifacts) != 2 {
		t.Fatalf("got %d artifacts, want 2", len(artifacts))
	}
	if artifacts[0].Number != 2 || artifacts[0].Bets != 10 {
		t.Errorf("artifact 0 = %+v, want batch 2 with 10 bets", artifacts[0])
	}
	if artifacts[1].Number != 3 || artifacts[1].Bets != 5 {
		t.Errorf("artifact 1 = %+v, want batch 3 with 5 bets", artifacts[1])
	}
	// 5 * 0.001 ether
	if artifacts[1].TotalStakeWei != "5000000000000000" {
		t.Errorf("artifact 1 total = %s, want 5000000000000000", artifacts[1].TotalStakeWei)
	}

	data, err := os.ReadFile(existing)
	if err != nil {
		t.Fatalf("read existing script: %v", err)
	}
	if string(data) != handWritten {
		t.Error("batch 1 script was overwritten")
	}

	got, err := ExistingBatches(dir)
	if err != nil {
		t.Fatalf("ExistingBatches failed: %v", err)
	}
	if want := []int{1, 2, 3}; !slices.Equal(got, want) {
		t.Errorf("scripts on disk: got %v, want %v", got, want)
	}

	third, err := os.ReadFile(filepath.Join(dir, FileName(3)))
	if err != nil {
		t.Fatalf("read batch 3: %v", err)
	}
	if !strings.Contains(string(third), "contract PlaceBatch3Script") || !strings.Contains(string(third), "new BetData[](5);") {
		t.Error("batch 3 script has wrong contents")
	}
}

func TestWriteFromExplicitStart(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, testRenderer(), quietLogger())

	start, err := w.StartBatch(2, 9)
	if err != nil {
		t.Fatalf("StartBatch failed: %v", err)
	}

	artifacts, err := w.WriteFrom(plannedBatches(t, 25), start)
	if err != nil {
		t.Fatalf("WriteFrom failed: %v", err)
	}
	if len(artifacts) != 2 {
		t.Errorf("got %d artifacts, want 2", len(artifacts))
	}
	if _, err := os.Stat(filepath.Join(dir, FileName(1))); !os.IsNotExist(err) {
		t.Errorf("batch 1 script should not exist, stat err = %v", err)
	}
}

func TestWriteFromNothingLeft(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, testRenderer(), quietLogger())

	artifacts, err := w.WriteFrom(plannedBatches(t, 5), 4)
	if err != nil {
		t.Fatalf("WriteFrom failed: %v", err)
	}
	if len(artifacts) != 0 {
		t.Errorf("got %d artifacts, want 0", len(artifacts))
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("output dir has %d entries, want 0", len(entries))
	}
}

func TestWriteFromCreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "script", "batch_scripts")
	w := NewWriter(dir, testRenderer(), quietLogger())

	artifacts, err := w.WriteFrom(plannedBatches(t, 3), 1)
	if err != nil {
		t.Fatalf("WriteFrom failed: %v", err)
	}
	if len(artifacts) != 1 || artifacts[0].Path != filepath.Join(dir, "PlaceBatch1.s.sol") {
		t.Errorf("artifacts = %+v", artifacts)
	}
}

func TestWriteFromUnwritableDir(t *testing.T) {
	parent := t.TempDir()
	blocker := filepath.Join(parent, "file")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("write blocker: %v", err)
	}

	w := NewWriter(filepath.Join(blocker, "out"), testRenderer(), quietLogger())
	_, err := w.WriteFrom(plannedBatches(t, 1), 1)
	if err == nil || !strings.Contains(err.Error(), blocker) {
		t.Errorf("got %v, want error naming %s", err, blocker)
	}
}

func TestStartBatchUsesRecordedCheckpoint(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, FileName(1)), []byte("x"), 0o644); err != nil {
		t.Fatalf("write script: %v", err)
	}
	w := NewWriter(dir, testRenderer(), quietLogger())

	tests := []struct {
		name     string
		explicit int
		recorded int
		want     int
	}{
		{"directory only", 0, 0, 2},
		{"checkpoint ahead of directory", 0, 5, 6},
		{"checkpoint behind directory", 0, 1, 2},
		{"explicit wins", 3, 5, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := w.StartBatch(tt.explicit, tt.recorded)
			if err != nil {
				t.Fatalf("StartBatch failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}
