package script

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"

	"github.com/liamashdown/batchplanner/internal/metrics"
	"github.com/liamashdown/batchplanner/internal/wager"
	"github.com/sirupsen/logrus"
)

var fileNamePattern = regexp.MustCompile(`^PlaceBatch([1-9][0-9]*)\.s\.sol$`)

// FileName returns the script file name for batch n
func FileName(n int) string {
	return "PlaceBatch" + strconv.Itoa(n) + ".s.sol"
}

// ExistingBatches lists the batch numbers that already have a script in dir,
// ascending. A missing directory has none.
func ExistingBatches(dir string) ([]int, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan output dir %s: %w", dir, err)
	}

	var numbers []int
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		m := fileNamePattern.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		numbers = append(numbers, n)
	}
	slices.Sort(numbers)
	return numbers, nil
}

// NextBatch returns the batch number after the highest script in dir, or 1
func NextBatch(dir string) (int, error) {
	numbers, err := ExistingBatches(dir)
	if err != nil {
		return 0, err
	}
	if len(numbers) == 0 {
		return 1, nil
	}
	return numbers[len(numbers)-1] + 1, nil
}

// Artifact describes a script written to disk
type Artifact struct {
	Number        int
	Path          string
	Bets          int
	TotalStakeWei string
}

// Writer renders batches into an output directory
type Writer struct {
	dir      string
	renderer *Renderer
	log      logrus.FieldLogger
}

// NewWriter creates a writer for dir
func NewWriter(dir string, renderer *Renderer, log logrus.FieldLogger) *Writer {
	return &Writer{dir: dir, renderer: renderer, log: log}
}

// StartBatch resolves the first batch to generate. A positive explicit value
// wins. Otherwise generation continues after the highest script in the
// directory or the highest batch recorded elsewhere, whichever is later.
func (w *Writer) StartBatch(explicit, recorded int) (int, error) {
	if explicit > 0 {
		return explicit, nil
	}
	next, err := NextBatch(w.dir)
	if err != nil {
		return 0, err
	}
	return max(next, recorded+1), nil
}

// WriteFrom writes a script for every batch numbered start or higher.
// Scripts for lower batch numbers are left as they are.
func (w *Writer) WriteFrom(batches []wager.Batch, start int) ([]Artifact, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir %s: %w", w.dir, err)
	}

	var artifacts []Artifact
	for _, b := range batches {
		if b.Number < start {
			metrics.RecordArtifact("skipped")
			continue
		}

		path := filepath.Join(w.dir, FileName(b.Number))
		if err := writeFileAtomic(path, func(out io.Writer) error {
			return w.renderer.Render(out, b)
		}); err != nil {
			metrics.RecordArtifact("error")
			return artifacts, err
		}
		metrics.RecordArtifact("written")

		artifact := Artifact{
			Number:        b.Number,
			Path:          path,
			Bets:          b.Size(),
			TotalStakeWei: b.TotalStakeWei(),
		}
		artifacts = append(artifacts, artifact)

		w.log.WithFields(logrus.Fields{
			"batch":     artifact.Number,
			"bets":      artifact.Bets,
			"total_wei": artifact.TotalStakeWei,
			"path":      artifact.Path,
		}).Info("Generated batch script")
	}

	if len(artifacts) == 0 {
		w.log.WithFields(logrus.Fields{
			"start":   start,
			"batches": len(batches),
		}).Info("No new batches to generate")
	}

	return artifacts, nil
}

// writeFileAtomic renders into a temp file beside path and renames it into place
func writeFileAtomic(path string, render func(io.Writer) error) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", path, err)
	}
	defer func() {
		if err != nil {
			os.Remove(tmp.Name())
		}
	}()

	if err = render(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename into %s: %w", path, err)
	}
	return nil
}
