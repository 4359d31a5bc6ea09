package resolve

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestResolveServers_ExactRepoURL(t *testing.T) {
	t.Parallel()

	directives := ResolveServers(
		[]Candidate{{ID: "cand-1", RepoURL: "https://github.com/Org/Repo.git"}},
		[]Candidate{{ID: "srv-1", RepoURL: "https://github.com/org/repo"}},
	)

	want := []MergeDirective{{
		Kind:           KindServer,
		CanonicalID:    "cand-1",
		MergedIDs:      []string{"srv-1"},
		Confidence:     1.0,
		RequiresReview: false,
		Reason:         "Exact match on repo URL",
	}}
	if diff := cmp.Diff(want, directives); diff != "" {
		t.Fatalf("unexpected directives (-want +got):\n%s", diff)
	}
}

func TestResolveServers_ProviderDomainAndSimilarName(t *testing.T) {
	t.Parallel()

	directives := ResolveServers(
		[]Candidate{{ID: "cand-1", Name: "Notion MCP Server", ProviderDomain: "notion.so"}},
		[]Candidate{{ID: "srv-1", Name: "notion-mcp-servers", ProviderDomain: "https://www.notion.so"}},
	)
	if len(directives) != 1 {
		t.Fatalf("expected 1 directive, got %d", len(directives))
	}

	similarity := 1 - 1.0/18.0
	got := directives[0]
	if math.Abs(got.Confidence-similarity*0.9) > 1e-9 {
		t.Fatalf("unexpected confidence: got %f want %f", got.Confidence, similarity*0.9)
	}
	if got.Reason != "Same provider domain with similar name (similarity 0.94)" {
		t.Fatalf("unexpected reason: %q", got.Reason)
	}
	if got.RequiresReview {
		t.Fatalf("did not expect review for confidence %f", got.Confidence)
	}
}

func TestResolveServers_NameBelowSimilarityFloor(t *testing.T) {
	t.Parallel()

	// "notion-mcp" vs "notion-mcp-server" scores about 0.59, below the 0.85 floor.
	directives := ResolveServers(
		[]Candidate{{ID: "cand-1", Name: "Notion MCP", ProviderDomain: "notion.so"}},
		[]Candidate{{ID: "srv-1", Name: "notion-mcp-server", ProviderDomain: "notion.so"}},
	)
	if len(directives) != 0 {
		t.Fatalf("expected no directive, got %+v", directives)
	}
}

func TestResolveServers_LowConfidenceRequiresReview(t *testing.T) {
	t.Parallel()

	directives := ResolveServers(
		[]Candidate{{ID: "cand-1", ProviderID: "prv_acme", RepoURL: "https://github.com/acme/postgres-toolkit"}},
		[]Candidate{{ID: "srv-1", ProviderID: "prv_acme", RepoURL: "https://code.acme.dev/mirror/postgres-toolbox.git"}},
	)
	if len(directives) != 1 {
		t.Fatalf("expected 1 directive, got %d", len(directives))
	}

	got := directives[0]
	want := (1 - 3.0/16.0) * 0.85
	if math.Abs(got.Confidence-want) > 1e-9 {
		t.Fatalf("unexpected confidence: got %f want %f", got.Confidence, want)
	}
	if !got.RequiresReview {
		t.Fatalf("expected review for confidence %f", got.Confidence)
	}
}

func TestResolveServers_PrecedenceShortCircuits(t *testing.T) {
	t.Parallel()

	candidate := Candidate{
		ID:             "cand-1",
		Name:           "Weather MCP",
		RepoURL:        "https://github.com/acme/weather-mcp",
		EndpointHost:   "mcp.weather.dev",
		ProviderDomain: "weather.dev",
	}
	existing := []Candidate{
		{ID: "by-host", EndpointHost: "MCP.weather.dev "},
		{ID: "by-repo", RepoURL: "https://github.com/ACME/weather-mcp.git"},
		{ID: "by-name", Name: "weather-mcp", ProviderDomain: "weather.dev"},
	}

	directives := ResolveServers([]Candidate{candidate}, existing)
	if len(directives) != 1 {
		t.Fatalf("expected 1 directive, got %d", len(directives))
	}
	if diff := cmp.Diff([]string{"by-repo"}, directives[0].MergedIDs); diff != "" {
		t.Fatalf("expected repo match to short-circuit lower heuristics (-want +got):\n%s", diff)
	}
	if directives[0].Confidence != 1.0 {
		t.Fatalf("unexpected confidence: %f", directives[0].Confidence)
	}
}

func TestResolveServers_EndpointHostBlocksNameHeuristics(t *testing.T) {
	t.Parallel()

	directives := ResolveServers(
		[]Candidate{{ID: "cand-1", Name: "Weather MCP", EndpointURL: "https://mcp.weather.dev/sse", ProviderDomain: "weather.dev"}},
		[]Candidate{
			{ID: "by-name", Name: "weather-mcp", ProviderDomain: "weather.dev"},
			{ID: "by-host", EndpointHost: "mcp.weather.dev"},
		},
	)
	if len(directives) != 1 {
		t.Fatalf("expected 1 directive, got %d", len(directives))
	}
	got := directives[0]
	if diff := cmp.Diff([]string{"by-host"}, got.MergedIDs); diff != "" {
		t.Fatalf("unexpected merged ids (-want +got):\n%s", diff)
	}
	if got.Confidence != 0.95 || got.Reason != "Exact match on endpoint host" {
		t.Fatalf("unexpected directive: %+v", got)
	}
}

func TestResolveServers_FirstCandidateClaimsExistingRecord(t *testing.T) {
	t.Parallel()

	directives := ResolveServers(
		[]Candidate{
			{ID: "cand-a", RepoURL: "https://github.com/org/repo"},
			{ID: "cand-b", RepoURL: "https://github.com/org/repo.git"},
		},
		[]Candidate{{ID: "srv-1", RepoURL: "https://github.com/Org/Repo"}},
	)
	if len(directives) != 1 {
		t.Fatalf("expected exactly one directive, got %d", len(directives))
	}
	if directives[0].CanonicalID != "cand-a" {
		t.Fatalf("expected first candidate to claim the record, got %q", directives[0].CanonicalID)
	}
}

func TestResolveServers_MissingFieldsYieldNothing(t *testing.T) {
	t.Parallel()

	directives := ResolveServers(
		[]Candidate{
			{ID: "cand-1"},
			{ID: "", RepoURL: "https://github.com/org/repo"},
			{ID: "cand-3", Name: "Lonely", Extra: map[string]any{"stars": 3}},
		},
		[]Candidate{
			{ID: "srv-1"},
			{ID: "srv-2", RepoURL: "https://github.com/org/repo"},
		},
	)
	if len(directives) != 0 {
		t.Fatalf("expected no directives, got %+v", directives)
	}
}

func TestResolveServers_IgnoresRecordsFromTheSameBatch(t *testing.T) {
	t.Parallel()

	directives := ResolveServers(
		[]Candidate{
			{ID: "srv-1", RepoURL: "https://github.com/org/repo"},
			{ID: "srv-2", RepoURL: "https://github.com/org/repo"},
		},
		[]Candidate{
			{ID: "srv-1", RepoURL: "https://github.com/org/repo"},
			{ID: "srv-2", RepoURL: "https://github.com/org/repo"},
			{ID: "srv-3", RepoURL: "https://github.com/Org/Repo.git"},
		},
	)
	if len(directives) != 1 {
		t.Fatalf("expected one directive, got %+v", directives)
	}
	if directives[0].CanonicalID != "srv-1" || len(directives[0].MergedIDs) != 1 || directives[0].MergedIDs[0] != "srv-3" {
		t.Fatalf("unexpected directive: %+v", directives[0])
	}
}

func TestResolveProviders(t *testing.T) {
	t.Parallel()

	directives := ResolveProviders(
		[]Candidate{
			{ID: "p-new-1", Name: "Notion Labs", ProviderDomain: "https://www.notion.so"},
			{ID: "p-new-2", Name: "Acme Corporation", ProviderDomain: "acme.example"},
			{ID: "p-new-3", Name: "Completely Different"},
		},
		[]Candidate{
			{ID: "p-1", Name: "Notion", ProviderDomain: "notion.so"},
			{ID: "p-2", Name: "ACME Corporations", ProviderDomain: "acme-corp.example"},
		},
	)
	if len(directives) != 2 {
		t.Fatalf("expected 2 directives, got %d", len(directives))
	}
	if directives[0].Confidence != 1.0 || directives[0].Reason != "Exact match on domain" {
		t.Fatalf("unexpected domain directive: %+v", directives[0])
	}

	want := (1 - 1.0/17.0) * 0.95
	if math.Abs(directives[1].Confidence-want) > 1e-9 {
		t.Fatalf("unexpected name confidence: got %f want %f", directives[1].Confidence, want)
	}
	if directives[1].Kind != KindProvider {
		t.Fatalf("unexpected kind: %q", directives[1].Kind)
	}
}

func TestResolveEndpoints(t *testing.T) {
	t.Parallel()

	directives := ResolveEndpoints(
		[]Candidate{
			{ID: "e-new-1", EndpointURL: "http://www.mcp.example.com/sse?utm_source=feed"},
			{ID: "e-new-2", EndpointURL: "https://tools.example.org/v2/mcp"},
		},
		[]Candidate{
			{ID: "e-1", EndpointURL: "https://mcp.example.com/sse"},
			{ID: "e-2", EndpointURL: "https://tools.example.org/v1/mcp"},
		},
	)

	want := []MergeDirective{
		{
			Kind:        KindEndpoint,
			CanonicalID: "e-new-1",
			MergedIDs:   []string{"e-1"},
			Confidence:  1.0,
			Reason:      "Exact match on endpoint URL",
		},
		{
			Kind:        KindEndpoint,
			CanonicalID: "e-new-2",
			MergedIDs:   []string{"e-2"},
			Confidence:  0.95,
			Reason:      "Exact match on endpoint host",
		},
	}
	if diff := cmp.Diff(want, directives); diff != "" {
		t.Fatalf("unexpected directives (-want +got):\n%s", diff)
	}
}

func TestResolve_DirectiveInvariants(t *testing.T) {
	t.Parallel()

	candidates := fixtureCandidates()
	existing := fixtureExisting()

	for _, ladder := range []Ladder{ServerLadder(), ProviderLadder()} {
		for _, directive := range NewResolver(ladder).Resolve(candidates, existing) {
			if directive.Confidence < 0 || directive.Confidence > 1 {
				t.Fatalf("confidence out of range: %+v", directive)
			}
			if directive.RequiresReview != (directive.Confidence > 0 && directive.Confidence < 0.7) {
				t.Fatalf("requires_review does not follow confidence: %+v", directive)
			}
			if len(directive.MergedIDs) == 0 {
				t.Fatalf("directive without merged ids: %+v", directive)
			}
		}
	}
}

func TestResolveServers_Idempotent(t *testing.T) {
	t.Parallel()

	candidates := fixtureCandidates()
	existing := fixtureExisting()

	first := ResolveServers(candidates, existing)
	if len(first) == 0 {
		t.Fatalf("expected fixture to produce directives")
	}

	canonical := CanonicalSet(existing, candidates, first)
	if second := ResolveServers(candidates, canonical); len(second) != 0 {
		t.Fatalf("expected no directives on re-run, got %+v", second)
	}
}

func TestResolveServers_IdempotentWithDuplicatesInBatch(t *testing.T) {
	t.Parallel()

	candidates := []Candidate{
		{ID: "cand-a", RepoURL: "https://github.com/org/repo"},
		{ID: "cand-b", RepoURL: "https://github.com/Org/Repo.git"},
	}
	existing := []Candidate{{ID: "srv-1", RepoURL: "github.com/org/repo"}}

	first := ResolveServers(candidates, existing)
	want := []MergeDirective{{
		Kind:        KindServer,
		CanonicalID: "cand-a",
		MergedIDs:   []string{"srv-1"},
		Confidence:  1,
		Reason:      "Exact match on repo URL",
	}}
	if diff := cmp.Diff(want, first); diff != "" {
		t.Fatalf("unexpected first run (-want +got):\n%s", diff)
	}

	canonical := CanonicalSet(existing, candidates, first)
	if second := ResolveServers(candidates, canonical); len(second) != 0 {
		t.Fatalf("expected no directives on re-run, got %+v", second)
	}
}

func fixtureCandidates() []Candidate {
	return []Candidate{
		{ID: "c-notion", Name: "Notion MCP Server", RepoURL: "https://github.com/makenotion/notion-mcp-server.git", ProviderDomain: "notion.so"},
		{ID: "c-linear", Name: "Linear", EndpointURL: "https://mcp.linear.app/sse", ProviderDomain: "linear.app"},
		{ID: "c-acme", Name: "Acme Tools", ProviderID: "prv_acme", RepoURL: "https://code.acme.dev/acme/postgres-toolkit"},
		{ID: "c-new", Name: "Brand New Server", RepoURL: "https://github.com/someone/brand-new"},
	}
}

func fixtureExisting() []Candidate {
	return []Candidate{
		{ID: "s-notion", Name: "notion-mcp-server", RepoURL: "https://github.com/MakeNotion/notion-mcp-server", ProviderDomain: "notion.so"},
		{ID: "s-linear", Name: "Linear MCP", EndpointHost: "mcp.linear.app", ProviderDomain: "linear.app"},
		{ID: "s-acme", Name: "Acme Postgres", ProviderID: "prv_acme", RepoURL: "https://github.com/acme/postgres-toolbox"},
		{ID: "s-other", Name: "Unrelated", RepoURL: "https://github.com/x/unrelated"},
	}
}
