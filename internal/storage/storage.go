package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/liamashdown/batchplanner/internal/config"
	"github.com/liamashdown/batchplanner/internal/metrics"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// StateLastGeneratedBatch holds the highest batch number a script was generated for
const StateLastGeneratedBatch = "last_generated_batch"

// DB wraps the GORM database connection
type DB struct {
	conn *gorm.DB
	log  *logrus.Logger
}

// New creates a new database connection with GORM
func New(cfg *config.Config, log *logrus.Logger) (*DB, error) {
	// Configure GORM logger
	gormLogger := logger.New(
		&gormLogAdapter{log: log},
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	conn, err := gorm.Open(mysql.Open(cfg.DatabaseDSN), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.DatabaseMaxConns)
	sqlDB.SetMaxIdleConns(max(cfg.DatabaseMaxConns/2, 1))
	sqlDB.SetConnMaxIdleTime(cfg.DatabaseMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	log.Debug("Database connection established")

	return &DB{conn: conn, log: log}, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	sqlDB, err := db.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// AutoMigrate creates or updates the ledger tables
func (db *DB) AutoMigrate() error {
	return db.conn.AutoMigrate(
		&AppState{},
		&PlanRun{},
		&PlannedBatch{},
	)
}

// GetState retrieves a state value by key
func (db *DB) GetState(ctx context.Context, key string) (string, error) {
	start := time.Now()
	var state AppState
	result := db.conn.WithContext(ctx).Where("state_key = ?", key).First(&state)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		metrics.RecordDatabaseQuery("get_state", time.Since(start), nil)
		return "", nil
	}
	metrics.RecordDatabaseQuery("get_state", time.Since(start), result.Error)
	if result.Error != nil {
		return "", result.Error
	}
	return state.StateValue, nil
}

// SetState sets a state value
func (db *DB) SetState(ctx context.Context, key, value string) error {
	start := time.Now()
	state := AppState{
		StateKey:   key,
		StateValue: value,
		UpdatedTS:  time.Now().Unix(),
	}
	err := db.conn.WithContext(ctx).Save(&state).Error
	metrics.RecordDatabaseQuery("set_state", time.Since(start), err)
	return err
}

// LastGeneratedBatch returns the checkpointed batch number, 0 if none
func (db *DB) LastGeneratedBatch(ctx context.Context) (int, error) {
	value, err := db.GetState(ctx, StateLastGeneratedBatch)
	if err != nil {
		return 0, fmt.Errorf("get %s: %w", StateLastGeneratedBatch, err)
	}
	if value == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("parse %s %q: %w", StateLastGeneratedBatch, value, err)
	}
	return n, nil
}

// RecordRun stores a run with its batches and advances the generated-batch
// checkpoint when lastGenerated is above it, all in one transaction
func (db *DB) RecordRun(ctx context.Context, run *PlanRun, batches []PlannedBatch, lastGenerated int) error {
	start := time.Now()
	err := db.conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(run).Error; err != nil {
			return fmt.Errorf("insert plan run: %w", err)
		}
		if len(batches) > 0 {
			if err := tx.Create(&batches).Error; err != nil {
				return fmt.Errorf("insert planned batches: %w", err)
			}
		}
		if lastGenerated <= 0 {
			return nil
		}

		var state AppState
		res := tx.Where("state_key = ?", StateLastGeneratedBatch).First(&state)
		if res.Error != nil && !errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return fmt.Errorf("read checkpoint: %w", res.Error)
		}
		if current, _ := strconv.Atoi(state.StateValue); current >= lastGenerated {
			return nil
		}
		return tx.Save(&AppState{
			StateKey:   StateLastGeneratedBatch,
			StateValue: strconv.Itoa(lastGenerated),
			UpdatedTS:  run.CreatedTS,
		}).Error
	})
	metrics.RecordDatabaseQuery("record_run", time.Since(start), err)
	if err != nil {
		return err
	}

	db.log.WithFields(logrus.Fields{
		"run_id":  run.RunID,
		"batches": len(batches),
	}).Debug("Run recorded in ledger")
	return nil
}

// gormLogAdapter adapts logrus to GORM's logger interface
type gormLogAdapter struct {
	log *logrus.Logger
}

func (l *gormLogAdapter) Printf(format string, args ...interface{}) {
	l.log.Debugf(format, args...)
}
