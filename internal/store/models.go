package store

import (
	"encoding/json"
	"time"
)

const (
	RunStatusRunning   = "running"
	RunStatusSucceeded = "succeeded"
	RunStatusFailed    = "failed"
)

// PipelineRun maps trust.pipeline_runs.
type PipelineRun struct {
	RunID          int64      `gorm:"column:run_id;primaryKey;autoIncrement"`
	RunUUID        string     `gorm:"column:run_uuid;type:uuid;not null;unique"`
	Command        string     `gorm:"column:command;type:text;not null"`
	Status         string     `gorm:"column:status;type:text;not null;default:running"`
	ItemsProcessed int        `gorm:"column:items_processed;type:integer;not null;default:0"`
	ItemsEmitted   int        `gorm:"column:items_emitted;type:integer;not null;default:0"`
	ErrorMessage   *string    `gorm:"column:error_message;type:text"`
	StartedAt      time.Time  `gorm:"column:started_at;type:timestamptz;not null;default:now()"`
	FinishedAt     *time.Time `gorm:"column:finished_at;type:timestamptz"`
}

func (PipelineRun) TableName() string { return "trust.pipeline_runs" }

// MergeDirectiveRow maps trust.merge_directives.
type MergeDirectiveRow struct {
	DirectiveID    int64           `gorm:"column:directive_id;primaryKey;autoIncrement"`
	RunID          int64           `gorm:"column:run_id;type:bigint;not null;index"`
	EntityKind     string          `gorm:"column:entity_kind;type:text;not null"`
	CanonicalID    string          `gorm:"column:canonical_id;type:text;not null"`
	MergedIDs      json.RawMessage `gorm:"column:merged_ids;type:jsonb;not null"`
	Confidence     float64         `gorm:"column:confidence;type:double precision;not null"`
	RequiresReview bool            `gorm:"column:requires_review;type:boolean;not null;default:false"`
	Reason         string          `gorm:"column:reason;type:text;not null;default:''"`
	CreatedAt      time.Time       `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (MergeDirectiveRow) TableName() string { return "trust.merge_directives" }

// ScoreSnapshotRow maps trust.score_snapshots, one row per server per day.
type ScoreSnapshotRow struct {
	SnapshotDate       time.Time       `gorm:"column:snapshot_date;type:date;primaryKey"`
	ServerID           string          `gorm:"column:server_id;type:text;primaryKey"`
	Score              float64         `gorm:"column:score;type:double precision;not null"`
	EvidenceConfidence int             `gorm:"column:evidence_confidence;type:smallint;not null"`
	RiskFlags          json.RawMessage `gorm:"column:risk_flags;type:jsonb;not null"`
	FailFastFlags      json.RawMessage `gorm:"column:fail_fast_flags;type:jsonb;not null"`
	CreatedAt          time.Time       `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (ScoreSnapshotRow) TableName() string { return "trust.score_snapshots" }

// BriefRow maps trust.daily_briefs.
type BriefRow struct {
	BriefDate time.Time       `gorm:"column:brief_date;type:date;primaryKey"`
	RunID     int64           `gorm:"column:run_id;type:bigint;not null"`
	Payload   json.RawMessage `gorm:"column:payload;type:jsonb;not null"`
	CreatedAt time.Time       `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (BriefRow) TableName() string { return "trust.daily_briefs" }

func autoMigrateModels() []any {
	return []any{
		&PipelineRun{},
		&MergeDirectiveRow{},
		&ScoreSnapshotRow{},
		&BriefRow{},
	}
}
