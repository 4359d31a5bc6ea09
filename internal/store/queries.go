package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"horse.fit/trustbrief/internal/brief"
	"horse.fit/trustbrief/internal/globaltime"
	"horse.fit/trustbrief/internal/resolve"
)

// StartRun opens a run ledger entry for command.
func (p *Pool) StartRun(ctx context.Context, command string) (PipelineRun, error) {
	run := PipelineRun{
		RunUUID:   uuid.NewString(),
		Command:   command,
		Status:    RunStatusRunning,
		StartedAt: globaltime.UTC(),
	}
	if err := p.gdb.WithContext(ctx).Create(&run).Error; err != nil {
		return PipelineRun{}, fmt.Errorf("insert pipeline run: %w", err)
	}
	return run, nil
}

// FinishRun closes a run with its counts. A non-nil runErr marks it failed.
func (p *Pool) FinishRun(ctx context.Context, runID int64, processed, emitted int, runErr error) error {
	status := RunStatusSucceeded
	var message *string
	if runErr != nil {
		status = RunStatusFailed
		text := runErr.Error()
		message = &text
	}

	res := p.gdb.WithContext(ctx).
		Model(&PipelineRun{}).
		Where("run_id = ?", runID).
		Updates(map[string]any{
			"status":          status,
			"items_processed": processed,
			"items_emitted":   emitted,
			"error_message":   message,
			"finished_at":     globaltime.UTC(),
		})
	if res.Error != nil {
		return fmt.Errorf("update pipeline run %d: %w", runID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("pipeline run %d not found", runID)
	}
	return nil
}

// SaveMergeDirectives records directives for the curation store.
func (p *Pool) SaveMergeDirectives(ctx context.Context, runID int64, directives []resolve.MergeDirective) error {
	if len(directives) == 0 {
		return nil
	}
	rows, err := directiveRows(runID, directives)
	if err != nil {
		return err
	}
	if err := p.gdb.WithContext(ctx).CreateInBatches(rows, 200).Error; err != nil {
		return fmt.Errorf("insert merge directives: %w", err)
	}
	return nil
}

// SaveSnapshot stores the records' scores as the snapshot for day, replacing
// any rows already stored for the same server and day.
func (p *Pool) SaveSnapshot(ctx context.Context, day time.Time, records []brief.ServerRecord) error {
	return upsertSnapshot(p.gdb.WithContext(ctx), day, records)
}

// LoadSnapshot returns the snapshot stored for day. A day without rows yields
// an empty snapshot.
func (p *Pool) LoadSnapshot(ctx context.Context, day time.Time) (brief.Snapshot, error) {
	var rows []ScoreSnapshotRow
	err := p.gdb.WithContext(ctx).
		Where("snapshot_date = ?", globaltime.DayStartOf(day)).
		Order("server_id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query score snapshot: %w", err)
	}
	return snapshotFromRows(rows)
}

// SaveDailyBrief stores today's snapshot and the brief computed from it in one
// transaction; both are written or neither is. The brief replaces an earlier
// one for the same date.
func (p *Pool) SaveDailyBrief(ctx context.Context, runID int64, day time.Time, records []brief.ServerRecord, daily brief.DailyBrief) error {
	return p.gdb.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := upsertSnapshot(tx, day, records); err != nil {
			return err
		}
		return upsertBrief(tx, runID, daily)
	})
}

func upsertSnapshot(db *gorm.DB, day time.Time, records []brief.ServerRecord) error {
	if len(records) == 0 {
		return nil
	}
	rows, err := snapshotRows(day, brief.SnapshotFromRecords(records))
	if err != nil {
		return err
	}
	err = db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "snapshot_date"}, {Name: "server_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"score", "evidence_confidence", "risk_flags", "fail_fast_flags"}),
	}).CreateInBatches(rows, 500).Error
	if err != nil {
		return fmt.Errorf("upsert score snapshot: %w", err)
	}
	return nil
}

func upsertBrief(db *gorm.DB, runID int64, daily brief.DailyBrief) error {
	row, err := briefRow(runID, daily)
	if err != nil {
		return err
	}
	err = db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "brief_date"}},
		DoUpdates: clause.AssignmentColumns([]string{"run_id", "payload"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("upsert daily brief: %w", err)
	}
	return nil
}

func briefRow(runID int64, daily brief.DailyBrief) (BriefRow, error) {
	day, err := time.Parse("2006-01-02", daily.Date)
	if err != nil {
		return BriefRow{}, fmt.Errorf("parse brief date %q: %w", daily.Date, err)
	}
	payload, err := json.Marshal(daily)
	if err != nil {
		return BriefRow{}, fmt.Errorf("encode brief: %w", err)
	}
	return BriefRow{BriefDate: day, RunID: runID, Payload: payload}, nil
}

func directiveRows(runID int64, directives []resolve.MergeDirective) ([]MergeDirectiveRow, error) {
	rows := make([]MergeDirectiveRow, 0, len(directives))
	for _, directive := range directives {
		merged, err := json.Marshal(directive.MergedIDs)
		if err != nil {
			return nil, fmt.Errorf("encode merged ids for %s: %w", directive.CanonicalID, err)
		}
		rows = append(rows, MergeDirectiveRow{
			RunID:          runID,
			EntityKind:     string(directive.Kind),
			CanonicalID:    directive.CanonicalID,
			MergedIDs:      merged,
			Confidence:     directive.Confidence,
			RequiresReview: directive.RequiresReview,
			Reason:         directive.Reason,
		})
	}
	return rows, nil
}

func snapshotRows(day time.Time, snapshot brief.Snapshot) ([]ScoreSnapshotRow, error) {
	rows := make([]ScoreSnapshotRow, 0, len(snapshot))
	for serverID, entry := range snapshot {
		riskFlags, err := encodeFlags(entry.RiskFlags)
		if err != nil {
			return nil, fmt.Errorf("encode risk flags for %s: %w", serverID, err)
		}
		failFast, err := encodeFlags(entry.FailFastFlags)
		if err != nil {
			return nil, fmt.Errorf("encode fail-fast flags for %s: %w", serverID, err)
		}
		rows = append(rows, ScoreSnapshotRow{
			SnapshotDate:       globaltime.DayStartOf(day),
			ServerID:           serverID,
			Score:              entry.Score,
			EvidenceConfidence: entry.EvidenceConfidence,
			RiskFlags:          riskFlags,
			FailFastFlags:      failFast,
		})
	}
	return rows, nil
}

func snapshotFromRows(rows []ScoreSnapshotRow) (brief.Snapshot, error) {
	snapshot := make(brief.Snapshot, len(rows))
	for _, row := range rows {
		var riskFlags, failFast []string
		if err := decodeFlags(row.RiskFlags, &riskFlags); err != nil {
			return nil, fmt.Errorf("decode risk flags for %s: %w", row.ServerID, err)
		}
		if err := decodeFlags(row.FailFastFlags, &failFast); err != nil {
			return nil, fmt.Errorf("decode fail-fast flags for %s: %w", row.ServerID, err)
		}
		snapshot[row.ServerID] = brief.ScoreSnapshotEntry{
			Score:              row.Score,
			EvidenceConfidence: row.EvidenceConfidence,
			RiskFlags:          riskFlags,
			FailFastFlags:      failFast,
		}
	}
	return snapshot, nil
}

func encodeFlags(flags []string) (json.RawMessage, error) {
	if flags == nil {
		flags = []string{}
	}
	return json.Marshal(flags)
}

func decodeFlags(raw json.RawMessage, out *[]string) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, out)
}
