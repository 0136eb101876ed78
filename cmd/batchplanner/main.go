package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/liamashdown/batchplanner/internal/config"
	"github.com/liamashdown/batchplanner/internal/input"
	"github.com/liamashdown/batchplanner/internal/metrics"
	"github.com/liamashdown/batchplanner/internal/planner"
	"github.com/liamashdown/batchplanner/internal/report"
	"github.com/liamashdown/batchplanner/internal/script"
	"github.com/liamashdown/batchplanner/internal/storage"
	"github.com/sirupsen/logrus"
)

const (
	commandSummary  = "summary"
	commandGenerate = "generate"
)

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: batchplanner <command> [flags]

Commands:
  summary    print batches and forge commands for the wagers in the input file
  generate   write one PlaceBatch<N>.s.sol script per batch not yet generated

Run "batchplanner <command> -h" for the flags of a command.
`)
}

func main() {
	// Logs go to stderr so the summary report owns stdout
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetOutput(os.Stderr)
	log.SetLevel(logrus.InfoLevel)

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	command := os.Args[1]
	if command != commandSummary && command != commandGenerate {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", command)
		usage()
		os.Exit(2)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}

	// Flags override the environment
	fs := flag.NewFlagSet(command, flag.ExitOnError)
	fs.StringVar(&cfg.InputPath, "input", cfg.InputPath, "wager file to read")
	format := fs.String("format", string(cfg.InputFormat), "input format: json or yaml (default: from file extension)")
	asOf := fs.Int64("as-of", 0, "reference unix time, wagers targeting it or earlier are dropped (default: AS_OF, else now)")
	fs.IntVar(&cfg.BatchSize, "batch-size", cfg.BatchSize, "wagers per batch")
	if command == commandGenerate {
		fs.StringVar(&cfg.OutputDir, "out", cfg.OutputDir, "directory for generated scripts")
		fs.IntVar(&cfg.StartBatch, "start", cfg.StartBatch, "first batch to generate (default: after the last generated batch)")
	}
	if err := fs.Parse(os.Args[2:]); err != nil {
		os.Exit(2)
	}
	cfg.InputFormat = config.InputFormat(strings.ToLower(*format))
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "as-of" {
			cfg.AsOf = asOf
		}
	})

	if err := cfg.Validate(); err != nil {
		log.WithError(err).Fatal("Invalid configuration")
	}

	configureLogger(log, cfg)

	log.WithFields(logrus.Fields{
		"command":     command,
		"environment": cfg.Environment,
		"input":       cfg.InputPath,
		"batch_size":  cfg.BatchSize,
		"ledger":      cfg.DatabaseDSN != "",
	}).Debug("Configuration loaded")

	runErr := run(command, cfg, log)

	if cfg.MetricsTextfile != "" {
		if err := metrics.WriteTextfile(cfg.MetricsTextfile, time.Now()); err != nil {
			log.WithError(err).Warn("Failed to write metrics textfile")
		}
	}

	if runErr != nil {
		log.WithError(runErr).Fatal("Batch planning failed")
	}
}

func configureLogger(log *logrus.Logger, cfg *config.Config) {
	if cfg.LogFormat == "text" {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	// Validate has already parsed the level
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}
}

func run(command string, cfg *config.Config, log *logrus.Logger) error {
	// One clock reading per run
	now := time.Now()
	asOf := cfg.ReferenceTime(now)

	var ledger *storage.DB
	if cfg.DatabaseDSN != "" {
		db, err := storage.New(cfg, log)
		if err != nil {
			return fmt.Errorf("connect ledger: %w", err)
		}
		defer db.Close()

		if err := db.AutoMigrate(); err != nil {
			return fmt.Errorf("migrate ledger: %w", err)
		}
		ledger = db
	}

	loadStart := time.Now()
	raws, err := input.Load(cfg.InputPath, cfg.InputFormat)
	metrics.RecordStage("load", time.Since(loadStart))
	if err != nil {
		return err
	}

	plan, err := planner.New(cfg.BatchSize, cfg.DefaultDayOffset, log).Plan(raws, asOf)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	runID := uuid.NewString()
	log.WithField("run_id", runID).Debug("Plan ready")

	switch command {
	case commandSummary:
		if err := report.NewSummary(cfg.ForgeScript, cfg.RPCURLEnv).Write(os.Stdout, plan); err != nil {
			return fmt.Errorf("write summary: %w", err)
		}
		if ledger != nil {
			record := storage.NewPlanRun(runID, command, cfg.InputPath, plan, 0, now.Unix())
			batches := storage.NewPlannedBatches(runID, plan.Batches, nil, now.Unix())
			if err := ledger.RecordRun(ctx, record, batches, 0); err != nil {
				return fmt.Errorf("record run: %w", err)
			}
		}
		return nil

	case commandGenerate:
		return generate(ctx, cfg, log, ledger, runID, plan, now)
	}

	return fmt.Errorf("unknown command %q", command)
}

func generate(
	ctx context.Context,
	cfg *config.Config,
	log *logrus.Logger,
	ledger *storage.DB,
	runID string,
	plan *planner.Plan,
	now time.Time,
) error {
	renderer := &script.Renderer{
		ContractName:     cfg.ContractName,
		ContractImport:   cfg.ContractImport,
		PrivateKeyEnv:    cfg.PrivateKeyEnv,
		MarketAddressEnv: cfg.MarketAddressEnv,
	}
	writer := script.NewWriter(cfg.OutputDir, renderer, log)

	recorded := 0
	if ledger != nil {
		n, err := ledger.LastGeneratedBatch(ctx)
		if err != nil {
			return fmt.Errorf("read checkpoint: %w", err)
		}
		recorded = n
	}

	start, err := writer.StartBatch(cfg.StartBatch, recorded)
	if err != nil {
		return err
	}

	renderStart := time.Now()
	artifacts, err := writer.WriteFrom(plan.Batches, start)
	metrics.RecordStage("render", time.Since(renderStart))
	if err != nil {
		return fmt.Errorf("generate scripts: %w", err)
	}

	paths := make(map[int]string, len(artifacts))
	lastGenerated := 0
	for _, a := range artifacts {
		paths[a.Number] = a.Path
		lastGenerated = max(lastGenerated, a.Number)
	}

	if ledger != nil {
		record := storage.NewPlanRun(runID, commandGenerate, cfg.InputPath, plan, start, now.Unix())
		batches := storage.NewPlannedBatches(runID, plan.Batches, paths, now.Unix())
		if err := ledger.RecordRun(ctx, record, batches, lastGenerated); err != nil {
			return fmt.Errorf("record run: %w", err)
		}
	}

	log.WithFields(logrus.Fields{
		"output_dir":  cfg.OutputDir,
		"start_batch": start,
		"generated":   len(artifacts),
		"total_bets":  len(plan.Eligible),
		"batches":     len(plan.Batches),
	}).Info("Script generation complete")

	for _, a := range artifacts {
		fmt.Fprintf(os.Stdout, "Generated %s with %d bets\n", a.Path, a.Bets)
	}

	return nil
}
