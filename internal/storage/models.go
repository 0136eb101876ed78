package storage

import (
	"github.com/liamashdown/batchplanner/internal/planner"
	"github.com/liamashdown/batchplanner/internal/wager"
)

// AppState stores application state for checkpointing
type AppState struct {
	StateKey   string `gorm:"primaryKey;size:64"`
	StateValue string `gorm:"type:text;not null"`
	UpdatedTS  int64  `gorm:"not null;index"`
}

func (AppState) TableName() string {
	return "app_state"
}

// PlanRun records one invocation of the planner
type PlanRun struct {
	RunID          string `gorm:"primaryKey;size:36"`
	Command        string `gorm:"size:16;not null;index"` // summary, generate
	InputPath      string `gorm:"size:512;not null"`
	AsOfTS         int64  `gorm:"not null;index"`
	BatchSize      int    `gorm:"not null"`
	WagersRead     int    `gorm:"not null"`
	WagersEligible int    `gorm:"not null"`
	WagersDropped  int    `gorm:"not null"`
	BatchesPlanned int    `gorm:"not null"`
	StartBatch     int    `gorm:"not null;default:0"` // first generated batch, 0 for summaries
	CreatedTS      int64  `gorm:"not null;index"`
}

func (PlanRun) TableName() string {
	return "plan_runs"
}

// PlannedBatch records one batch of a run and, once generated, its script
type PlannedBatch struct {
	RunID         string `gorm:"primaryKey;size:36"`
	BatchNumber   int    `gorm:"primaryKey"`
	BetCount      int    `gorm:"not null"`
	TotalStakeWei string `gorm:"size:80;not null"` // uint256 in base 10
	FirstTargetTS int64  `gorm:"not null"`
	LastTargetTS  int64  `gorm:"not null"`
	ArtifactPath  string `gorm:"size:512"`
	CreatedTS     int64  `gorm:"not null;index"`
}

func (PlannedBatch) TableName() string {
	return "planned_batches"
}

// NewPlanRun builds the run record for plan
func NewPlanRun(runID, command, inputPath string, plan *planner.Plan, startBatch int, now int64) *PlanRun {
	return &PlanRun{
		RunID:          runID,
		Command:        command,
		InputPath:      inputPath,
		AsOfTS:         plan.AsOf,
		BatchSize:      plan.BatchSize,
		WagersRead:     plan.Read,
		WagersEligible: len(plan.Eligible),
		WagersDropped:  plan.Dropped,
		BatchesPlanned: len(plan.Batches),
		StartBatch:     startBatch,
		CreatedTS:      now,
	}
}

// NewPlannedBatches builds one record per batch. artifacts maps batch numbers
// to the script written for them; batches without a script get an empty path.
func NewPlannedBatches(runID string, batches []wager.Batch, artifacts map[int]string, now int64) []PlannedBatch {
	records := make([]PlannedBatch, 0, len(batches))
	for _, b := range batches {
		if b.Size() == 0 {
			continue
		}
		records = append(records, PlannedBatch{
			RunID:         runID,
			BatchNumber:   b.Number,
			BetCount:      b.Size(),
			TotalStakeWei: b.TotalStakeWei(),
			FirstTargetTS: b.Wagers[0].TargetTimestamp,
			LastTargetTS:  b.Wagers[b.Size()-1].TargetTimestamp,
			ArtifactPath:  artifacts[b.Number],
			CreatedTS:     now,
		})
	}
	return records
}
