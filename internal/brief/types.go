// Package brief computes the day-over-day deltas behind the daily trust brief:
// top movers, top downgrades, new entrants and the tier/evidence distribution.
package brief

import "time"

// Tier is the coarse trust bucket of a server.
type Tier string

const (
	TierA Tier = "A"
	TierB Tier = "B"
	TierC Tier = "C"
	TierD Tier = "D"
)

// Tiers lists every tier from most to least trusted.
var Tiers = []Tier{TierA, TierB, TierC, TierD}

const (
	MinEvidenceConfidence = 0
	MaxEvidenceConfidence = 3
)

// ReasonCode explains a score movement in a brief entry.
type ReasonCode string

const (
	ReasonEvidenceAdded        ReasonCode = "EvidenceAdded"
	ReasonFailFastFlagResolved ReasonCode = "FailFastFlagResolved"
	ReasonNewFailFastFlag      ReasonCode = "NewFailFastFlag"
	ReasonNewRiskFlag          ReasonCode = "NewRiskFlag"

	// Unattributed codes are attached when no specific signal explains the
	// change. Entries carrying them have Unattributed set.
	ReasonAuthClarified        ReasonCode = "AuthClarified"
	ReasonToolListDiffResolved ReasonCode = "ToolListDiffResolved"
	ReasonEvidenceRemoved      ReasonCode = "EvidenceRemoved"
	ReasonToolScopeExpanded    ReasonCode = "ToolScopeExpanded"
)

// ServerRecord is the current assessed state of one server.
type ServerRecord struct {
	ServerID           string    `json:"server_id" yaml:"server_id"`
	ServerName         string    `json:"server_name" yaml:"server_name"`
	ProviderID         string    `json:"provider_id" yaml:"provider_id"`
	ProviderName       string    `json:"provider_name" yaml:"provider_name"`
	TrustScore         float64   `json:"trust_score" yaml:"trust_score"`
	Tier               Tier      `json:"tier" yaml:"tier"`
	EvidenceConfidence int       `json:"evidence_confidence" yaml:"evidence_confidence"`
	RiskFlags          []string  `json:"risk_flags" yaml:"risk_flags"`
	FailFastFlags      []string  `json:"fail_fast_flags" yaml:"fail_fast_flags"`
	LastAssessedAt     time.Time `json:"last_assessed_at" yaml:"last_assessed_at"`
	Slug               string    `json:"slug" yaml:"slug"`
}

// ScoreSnapshotEntry is the prior-day state of one server.
type ScoreSnapshotEntry struct {
	Score              float64  `json:"score" yaml:"score"`
	EvidenceConfidence int      `json:"evidence_confidence" yaml:"evidence_confidence"`
	RiskFlags          []string `json:"risk_flags" yaml:"risk_flags"`
	FailFastFlags      []string `json:"fail_fast_flags" yaml:"fail_fast_flags"`
}

// Snapshot maps server id to its prior-day entry.
type Snapshot map[string]ScoreSnapshotEntry

// SnapshotFromRecords captures today's records as the next day's prior snapshot.
func SnapshotFromRecords(records []ServerRecord) Snapshot {
	snapshot := make(Snapshot, len(records))
	for _, record := range records {
		snapshot[record.ServerID] = ScoreSnapshotEntry{
			Score:              record.TrustScore,
			EvidenceConfidence: record.EvidenceConfidence,
			RiskFlags:          append([]string(nil), record.RiskFlags...),
			FailFastFlags:      append([]string(nil), record.FailFastFlags...),
		}
	}
	return snapshot
}

// FlagChanges lists flags added and removed between two assessments.
type FlagChanges struct {
	Added   []string `json:"added"`
	Removed []string `json:"removed"`
}

// ServerRef identifies the server a brief entry is about.
type ServerRef struct {
	ServerID     string `json:"server_id"`
	ServerName   string `json:"server_name"`
	ProviderID   string `json:"provider_id"`
	ProviderName string `json:"provider_name"`
	Permalink    string `json:"permalink"`
}

// Mover is a server whose trust score rose.
type Mover struct {
	ServerRef
	ScoreDelta      float64      `json:"score_delta"`
	EvidenceDelta   int          `json:"evidence_delta"`
	Reasons         []ReasonCode `json:"reasons"`
	FailFastChanges FlagChanges  `json:"fail_fast_changes"`
	Unattributed    bool         `json:"unattributed"`
}

// Downgrade is a server whose trust score fell or that gained a fail-fast flag.
type Downgrade struct {
	ServerRef
	ScoreDelta      float64      `json:"score_delta"`
	EvidenceDelta   int          `json:"evidence_delta"`
	Reasons         []ReasonCode `json:"reasons"`
	FailFastChanges FlagChanges  `json:"fail_fast_changes"`
	RiskFlagChanges FlagChanges  `json:"risk_flag_changes"`
	Unattributed    bool         `json:"unattributed"`
}

// NewEntrant is a server assessed within the new-entrant window.
type NewEntrant struct {
	ServerRef
	TrustScore         float64   `json:"trust_score"`
	Tier               Tier      `json:"tier"`
	EvidenceConfidence int       `json:"evidence_confidence"`
	FailFastFlags      []string  `json:"fail_fast_flags"`
	LastAssessedAt     time.Time `json:"last_assessed_at"`
}

// TierSnapshot is the distribution of the current record set.
type TierSnapshot struct {
	Total        int          `json:"total"`
	ByTier       map[Tier]int `json:"by_tier"`
	ByEvidence   map[int]int  `json:"by_evidence"`
	WithFailFast int          `json:"with_fail_fast"`
}

// DailyBrief is the full set of brief objects for one day.
type DailyBrief struct {
	Date         string       `json:"date"`
	GeneratedAt  time.Time    `json:"generated_at"`
	Movers       []Mover      `json:"movers"`
	Downgrades   []Downgrade  `json:"downgrades"`
	NewEntrants  []NewEntrant `json:"new_entrants"`
	TierSnapshot TierSnapshot `json:"tier_snapshot"`
}
