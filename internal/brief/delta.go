package brief

import (
	"sort"
	"time"
)

const (
	DefaultMaxMovers        = 5
	DefaultMaxDowngrades    = 5
	DefaultMaxNewEntrants   = 10
	DefaultNewEntrantWindow = 24 * time.Hour

	// moverNoiseFloor is the smallest score gain reported without an evidence
	// gain or a resolved fail-fast flag.
	moverNoiseFloor = 2

	// forcedDowngradeDelta is reported for a downgrade caused only by a new
	// fail-fast flag while the score did not fall.
	forcedDowngradeDelta = -1
)

// TopMovers returns servers with a prior snapshot whose score rose, largest gain
// first and evidence gain breaking ties. Gains below two points are dropped
// unless evidence rose or a fail-fast flag was resolved.
func (c *Calculator) TopMovers(records []ServerRecord, prior Snapshot, maxResults int) []Mover {
	movers := make([]Mover, 0)
	for _, record := range records {
		previous, ok := prior[record.ServerID]
		if !ok {
			continue
		}

		scoreDelta := record.TrustScore - previous.Score
		evidenceDelta := record.EvidenceConfidence - previous.EvidenceConfidence
		removedFailFast := setDifference(previous.FailFastFlags, record.FailFastFlags)
		addedFailFast := setDifference(record.FailFastFlags, previous.FailFastFlags)

		if scoreDelta < moverNoiseFloor && evidenceDelta <= 0 && len(removedFailFast) == 0 {
			continue
		}
		if scoreDelta <= 0 {
			continue
		}

		reasons := make([]ReasonCode, 0, 2)
		if evidenceDelta > 0 {
			reasons = append(reasons, ReasonEvidenceAdded)
		}
		if len(removedFailFast) > 0 {
			reasons = append(reasons, ReasonFailFastFlagResolved)
		}
		unattributed := evidenceDelta == 0 && len(removedFailFast) == 0 && len(addedFailFast) == 0
		if unattributed {
			reasons = append(reasons, ReasonAuthClarified, ReasonToolListDiffResolved)
		}

		movers = append(movers, Mover{
			ServerRef:     c.ref(record),
			ScoreDelta:    scoreDelta,
			EvidenceDelta: evidenceDelta,
			Reasons:       reasons,
			FailFastChanges: FlagChanges{
				Added:   addedFailFast,
				Removed: removedFailFast,
			},
			Unattributed: unattributed,
		})
	}

	sort.SliceStable(movers, func(i, j int) bool {
		if movers[i].ScoreDelta != movers[j].ScoreDelta {
			return movers[i].ScoreDelta > movers[j].ScoreDelta
		}
		return movers[i].EvidenceDelta > movers[j].EvidenceDelta
	})
	return truncate(movers, maxResults, DefaultMaxMovers)
}

// TopDowngrades returns servers with a prior snapshot whose score fell or that
// gained a fail-fast flag, largest drop first and most added flags breaking
// ties. A downgrade caused only by a new fail-fast flag reports a delta of -1.
func (c *Calculator) TopDowngrades(records []ServerRecord, prior Snapshot, maxResults int) []Downgrade {
	downgrades := make([]Downgrade, 0)
	for _, record := range records {
		previous, ok := prior[record.ServerID]
		if !ok {
			continue
		}

		scoreDelta := record.TrustScore - previous.Score
		evidenceDelta := record.EvidenceConfidence - previous.EvidenceConfidence
		addedFailFast := setDifference(record.FailFastFlags, previous.FailFastFlags)
		removedFailFast := setDifference(previous.FailFastFlags, record.FailFastFlags)
		addedRisk := setDifference(record.RiskFlags, previous.RiskFlags)
		removedRisk := setDifference(previous.RiskFlags, record.RiskFlags)

		if scoreDelta >= 0 && len(addedFailFast) == 0 {
			continue
		}
		if scoreDelta >= 0 {
			scoreDelta = forcedDowngradeDelta
		}

		reasons := make([]ReasonCode, 0, 4)
		if len(addedFailFast) > 0 {
			reasons = append(reasons, ReasonNewFailFastFlag)
		}
		if len(addedRisk) > 0 {
			reasons = append(reasons, ReasonNewRiskFlag)
		}
		unattributed := len(addedFailFast) == 0 && len(removedFailFast) == 0
		if unattributed {
			reasons = append(reasons, ReasonEvidenceRemoved, ReasonToolScopeExpanded)
		}

		downgrades = append(downgrades, Downgrade{
			ServerRef:     c.ref(record),
			ScoreDelta:    scoreDelta,
			EvidenceDelta: evidenceDelta,
			Reasons:       reasons,
			FailFastChanges: FlagChanges{
				Added:   addedFailFast,
				Removed: removedFailFast,
			},
			RiskFlagChanges: FlagChanges{
				Added:   addedRisk,
				Removed: removedRisk,
			},
			Unattributed: unattributed,
		})
	}

	sort.SliceStable(downgrades, func(i, j int) bool {
		if downgrades[i].ScoreDelta != downgrades[j].ScoreDelta {
			return downgrades[i].ScoreDelta < downgrades[j].ScoreDelta
		}
		return addedFlagCount(downgrades[i]) > addedFlagCount(downgrades[j])
	})
	return truncate(downgrades, maxResults, DefaultMaxDowngrades)
}

// NewEntrants returns servers last assessed at or after cutoff, most recent first.
func (c *Calculator) NewEntrants(records []ServerRecord, cutoff time.Time, maxResults int) []NewEntrant {
	entrants := make([]NewEntrant, 0)
	for _, record := range records {
		if record.LastAssessedAt.IsZero() || record.LastAssessedAt.Before(cutoff) {
			continue
		}
		entrants = append(entrants, NewEntrant{
			ServerRef:          c.ref(record),
			TrustScore:         record.TrustScore,
			Tier:               record.Tier,
			EvidenceConfidence: record.EvidenceConfidence,
			FailFastFlags:      append([]string(nil), record.FailFastFlags...),
			LastAssessedAt:     record.LastAssessedAt,
		})
	}

	sort.SliceStable(entrants, func(i, j int) bool {
		return entrants[i].LastAssessedAt.After(entrants[j].LastAssessedAt)
	})
	return truncate(entrants, maxResults, DefaultMaxNewEntrants)
}

// Distribution counts servers per tier and per evidence level, and servers
// carrying at least one fail-fast flag. Unknown tiers and out-of-range evidence
// levels count toward Total only.
func Distribution(records []ServerRecord) TierSnapshot {
	snapshot := TierSnapshot{
		ByTier:     make(map[Tier]int, len(Tiers)),
		ByEvidence: make(map[int]int, MaxEvidenceConfidence+1),
	}
	for _, tier := range Tiers {
		snapshot.ByTier[tier] = 0
	}
	for level := MinEvidenceConfidence; level <= MaxEvidenceConfidence; level++ {
		snapshot.ByEvidence[level] = 0
	}

	for _, record := range records {
		snapshot.Total++
		if _, ok := snapshot.ByTier[record.Tier]; ok {
			snapshot.ByTier[record.Tier]++
		}
		if _, ok := snapshot.ByEvidence[record.EvidenceConfidence]; ok {
			snapshot.ByEvidence[record.EvidenceConfidence]++
		}
		if len(record.FailFastFlags) > 0 {
			snapshot.WithFailFast++
		}
	}
	return snapshot
}

func addedFlagCount(d Downgrade) int {
	return len(d.FailFastChanges.Added) + len(d.RiskFlagChanges.Added)
}

// setDifference returns the distinct values of left absent from right, in the
// order they first appear in left.
func setDifference(left, right []string) []string {
	exclude := make(map[string]struct{}, len(right))
	for _, value := range right {
		exclude[value] = struct{}{}
	}

	out := make([]string, 0)
	for _, value := range left {
		if _, ok := exclude[value]; ok {
			continue
		}
		exclude[value] = struct{}{}
		out = append(out, value)
	}
	return out
}

func truncate[T any](items []T, maxResults, fallback int) []T {
	if maxResults <= 0 {
		maxResults = fallback
	}
	if len(items) > maxResults {
		return items[:maxResults]
	}
	return items
}
