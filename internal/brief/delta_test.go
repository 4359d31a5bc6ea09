package brief

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestTopMovers_SuppressesSmallGainWithoutSignals(t *testing.T) {
	t.Parallel()

	records := []ServerRecord{{ServerID: "s1", TrustScore: 71, EvidenceConfidence: 1}}
	prior := Snapshot{"s1": {Score: 70, EvidenceConfidence: 1}}

	if movers := NewCalculator("").TopMovers(records, prior, 5); len(movers) != 0 {
		t.Fatalf("expected one-point gain to be suppressed, got %+v", movers)
	}
}

func TestTopMovers_SmallGainKeptWithEvidenceOrResolvedFlag(t *testing.T) {
	t.Parallel()

	records := []ServerRecord{
		{ServerID: "evidence", TrustScore: 71, EvidenceConfidence: 2},
		{ServerID: "resolved", TrustScore: 70.5, EvidenceConfidence: 1},
		{ServerID: "flat", TrustScore: 70, EvidenceConfidence: 3},
	}
	prior := Snapshot{
		"evidence": {Score: 70, EvidenceConfidence: 1},
		"resolved": {Score: 70, EvidenceConfidence: 1, FailFastFlags: []string{"static-keys"}},
		"flat":     {Score: 70, EvidenceConfidence: 1},
	}

	movers := NewCalculator("").TopMovers(records, prior, 5)
	if len(movers) != 2 {
		t.Fatalf("expected 2 movers (flat score filtered), got %+v", movers)
	}
	if movers[0].ServerID != "evidence" || movers[0].Reasons[0] != ReasonEvidenceAdded {
		t.Fatalf("unexpected first mover: %+v", movers[0])
	}
	if movers[1].ServerID != "resolved" {
		t.Fatalf("unexpected second mover: %+v", movers[1])
	}
	if diff := cmp.Diff([]ReasonCode{ReasonFailFastFlagResolved}, movers[1].Reasons); diff != "" {
		t.Fatalf("unexpected reasons (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"static-keys"}, movers[1].FailFastChanges.Removed); diff != "" {
		t.Fatalf("unexpected removed flags (-want +got):\n%s", diff)
	}
	for _, mover := range movers {
		if mover.ScoreDelta <= 0 {
			t.Fatalf("mover with non-positive delta: %+v", mover)
		}
	}
}

func TestTopMovers_UnattributedFallbackAndOrdering(t *testing.T) {
	t.Parallel()

	records := []ServerRecord{
		{ServerID: "a", TrustScore: 60, EvidenceConfidence: 1},
		{ServerID: "b", TrustScore: 75, EvidenceConfidence: 1},
		{ServerID: "c", TrustScore: 75, EvidenceConfidence: 3},
		{ServerID: "new", TrustScore: 99},
	}
	prior := Snapshot{
		"a": {Score: 50, EvidenceConfidence: 1},
		"b": {Score: 70, EvidenceConfidence: 1},
		"c": {Score: 70, EvidenceConfidence: 2},
	}

	movers := NewCalculator("").TopMovers(records, prior, 0)
	ids := make([]string, 0, len(movers))
	for _, mover := range movers {
		ids = append(ids, mover.ServerID)
	}
	if diff := cmp.Diff([]string{"a", "c", "b"}, ids); diff != "" {
		t.Fatalf("unexpected mover order (-want +got):\n%s", diff)
	}

	if !movers[0].Unattributed {
		t.Fatalf("expected unattributed mover: %+v", movers[0])
	}
	if diff := cmp.Diff([]ReasonCode{ReasonAuthClarified, ReasonToolListDiffResolved}, movers[0].Reasons); diff != "" {
		t.Fatalf("unexpected fallback reasons (-want +got):\n%s", diff)
	}
	if movers[1].Unattributed {
		t.Fatalf("did not expect evidence-backed mover to be unattributed")
	}
}

func TestTopMovers_FallbackOnlyWhenNoSignalChanged(t *testing.T) {
	t.Parallel()

	records := []ServerRecord{
		{ServerID: "evidence-drop", TrustScore: 80, EvidenceConfidence: 1},
		{ServerID: "flag-added", TrustScore: 80, EvidenceConfidence: 2, FailFastFlags: []string{"static-keys"}},
	}
	prior := Snapshot{
		"evidence-drop": {Score: 70, EvidenceConfidence: 2},
		"flag-added":    {Score: 70, EvidenceConfidence: 2},
	}

	movers := NewCalculator("").TopMovers(records, prior, 5)
	if len(movers) != 2 {
		t.Fatalf("expected 2 movers, got %+v", movers)
	}
	for _, mover := range movers {
		if mover.Unattributed {
			t.Fatalf("expected %s to be attributed to a changed signal: %+v", mover.ServerID, mover)
		}
		if len(mover.Reasons) != 0 {
			t.Fatalf("expected no fallback reasons for %s, got %v", mover.ServerID, mover.Reasons)
		}
	}
	if movers[0].ServerID != "flag-added" || movers[1].ServerID != "evidence-drop" {
		t.Fatalf("expected evidence delta to break the score tie, got %s then %s", movers[0].ServerID, movers[1].ServerID)
	}
	if diff := cmp.Diff([]string{"static-keys"}, movers[0].FailFastChanges.Added); diff != "" {
		t.Fatalf("unexpected added flags (-want +got):\n%s", diff)
	}
}

func TestTopMovers_Truncates(t *testing.T) {
	t.Parallel()

	var records []ServerRecord
	prior := Snapshot{}
	for i, id := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		records = append(records, ServerRecord{ServerID: id, TrustScore: float64(60 + i*3)})
		prior[id] = ScoreSnapshotEntry{Score: 50}
	}

	if got := len(NewCalculator("").TopMovers(records, prior, 0)); got != DefaultMaxMovers {
		t.Fatalf("expected default truncation to %d, got %d", DefaultMaxMovers, got)
	}
	if got := len(NewCalculator("").TopMovers(records, prior, 3)); got != 3 {
		t.Fatalf("expected truncation to 3, got %d", got)
	}
}

func TestTopDowngrades_NewFailFastFlagForcesNegativeDelta(t *testing.T) {
	t.Parallel()

	records := []ServerRecord{{ServerID: "s1", TrustScore: 80, FailFastFlags: []string{"static-keys"}}}
	prior := Snapshot{"s1": {Score: 80}}

	downgrades := NewCalculator("").TopDowngrades(records, prior, 5)
	if len(downgrades) != 1 {
		t.Fatalf("expected 1 downgrade, got %d", len(downgrades))
	}
	got := downgrades[0]
	if got.ScoreDelta != -1 {
		t.Fatalf("expected forced delta -1, got %f", got.ScoreDelta)
	}
	if diff := cmp.Diff([]ReasonCode{ReasonNewFailFastFlag}, got.Reasons); diff != "" {
		t.Fatalf("unexpected reasons (-want +got):\n%s", diff)
	}
	if got.Unattributed {
		t.Fatalf("did not expect fail-fast downgrade to be unattributed")
	}
}

func TestTopDowngrades_ScoreDropAndOrdering(t *testing.T) {
	t.Parallel()

	records := []ServerRecord{
		{ServerID: "small", TrustScore: 79},
		{ServerID: "big", TrustScore: 60, RiskFlags: []string{"broad-scopes"}},
		{ServerID: "tie-more-flags", TrustScore: 70, RiskFlags: []string{"r1", "r2"}, FailFastFlags: []string{"ff"}},
		{ServerID: "tie-fewer-flags", TrustScore: 70, RiskFlags: []string{"r1"}},
		{ServerID: "up", TrustScore: 90},
		{ServerID: "absent", TrustScore: 10},
	}
	prior := Snapshot{
		"small":           {Score: 80},
		"big":             {Score: 80},
		"tie-more-flags":  {Score: 80},
		"tie-fewer-flags": {Score: 80},
		"up":              {Score: 80},
	}

	downgrades := NewCalculator("").TopDowngrades(records, prior, 10)
	ids := make([]string, 0, len(downgrades))
	for _, d := range downgrades {
		ids = append(ids, d.ServerID)
		if d.ScoreDelta >= 0 {
			t.Fatalf("downgrade with non-negative delta: %+v", d)
		}
	}
	if diff := cmp.Diff([]string{"big", "tie-more-flags", "tie-fewer-flags", "small"}, ids); diff != "" {
		t.Fatalf("unexpected downgrade order (-want +got):\n%s", diff)
	}

	big := downgrades[0]
	wantReasons := []ReasonCode{ReasonNewRiskFlag, ReasonEvidenceRemoved, ReasonToolScopeExpanded}
	if diff := cmp.Diff(wantReasons, big.Reasons); diff != "" {
		t.Fatalf("unexpected reasons (-want +got):\n%s", diff)
	}
	if !big.Unattributed {
		t.Fatalf("expected unattributed marker when no fail-fast flag changed")
	}

	moreFlags := downgrades[1]
	if diff := cmp.Diff([]ReasonCode{ReasonNewFailFastFlag, ReasonNewRiskFlag}, moreFlags.Reasons); diff != "" {
		t.Fatalf("unexpected reasons (-want +got):\n%s", diff)
	}
}

func TestNewEntrants_WindowAndOrdering(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	records := []ServerRecord{
		{ServerID: "two-hours", LastAssessedAt: now.Add(-2 * time.Hour)},
		{ServerID: "thirty-hours", LastAssessedAt: now.Add(-30 * time.Hour)},
		{ServerID: "ten-minutes", LastAssessedAt: now.Add(-10 * time.Minute)},
		{ServerID: "exact-cutoff", LastAssessedAt: now.Add(-24 * time.Hour)},
		{ServerID: "never"},
	}

	entrants := NewCalculator("").NewEntrants(records, now.Add(-24*time.Hour), 0)
	ids := make([]string, 0, len(entrants))
	for _, e := range entrants {
		ids = append(ids, e.ServerID)
	}
	if diff := cmp.Diff([]string{"ten-minutes", "two-hours", "exact-cutoff"}, ids); diff != "" {
		t.Fatalf("unexpected entrants (-want +got):\n%s", diff)
	}
}

func TestDistribution(t *testing.T) {
	t.Parallel()

	got := Distribution([]ServerRecord{
		{Tier: TierA, EvidenceConfidence: 3},
		{Tier: TierA, EvidenceConfidence: 2, FailFastFlags: []string{"x"}},
		{Tier: TierD, EvidenceConfidence: 0, FailFastFlags: []string{"y", "z"}},
		{Tier: "E", EvidenceConfidence: 7},
	})

	want := TierSnapshot{
		Total:        4,
		ByTier:       map[Tier]int{TierA: 2, TierB: 0, TierC: 0, TierD: 1},
		ByEvidence:   map[int]int{0: 1, 1: 0, 2: 1, 3: 1},
		WithFailFast: 2,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected distribution (-want +got):\n%s", diff)
	}
}

func TestSetDifference(t *testing.T) {
	t.Parallel()

	got := setDifference([]string{"a", "b", "a", "c"}, []string{"b"})
	if diff := cmp.Diff([]string{"a", "c"}, got); diff != "" {
		t.Fatalf("unexpected difference (-want +got):\n%s", diff)
	}
}
