package resolve

import (
	"fmt"
	"strings"

	"horse.fit/trustbrief/internal/textnorm"
)

const (
	// ReviewThreshold is the confidence below which a merge needs human review.
	ReviewThreshold = 0.7

	serverNameSimilarityFloor     = 0.85
	serverRepoNameSimilarityFloor = 0.8
	providerNameSimilarityFloor   = 0.9
)

// Heuristic is one rung of a resolution ladder. It runs only while the
// candidate's confidence is below Ceiling. Match returns a raw score in [0,1];
// the resulting confidence is score*Weight.
type Heuristic struct {
	Name    string
	Ceiling float64
	Weight  float64
	Match   func(candidate, existing Candidate) (score float64, ok bool)
	Reason  func(score float64) string
}

// Ladder is an ordered list of heuristics for one entity kind.
type Ladder struct {
	Kind       EntityKind
	Heuristics []Heuristic
	// NeverReview marks every merge from this ladder as unambiguous.
	NeverReview bool
}

// LadderFor returns the built-in ladder for kind.
func LadderFor(kind EntityKind) (Ladder, error) {
	switch kind {
	case KindProvider:
		return ProviderLadder(), nil
	case KindServer:
		return ServerLadder(), nil
	case KindEndpoint:
		return EndpointLadder(), nil
	default:
		return Ladder{}, fmt.Errorf("no ladder for entity kind %q", kind)
	}
}

// ServerLadder: repo URL, endpoint host, provider domain + name, provider id + repo name.
func ServerLadder() Ladder {
	return Ladder{
		Kind: KindServer,
		Heuristics: []Heuristic{
			{
				Name:    "repo_url",
				Ceiling: 1.0,
				Weight:  1.0,
				Match:   exactField(Candidate.normalizedRepoURL),
				Reason:  fixedReason("Exact match on repo URL"),
			},
			{
				Name:    "endpoint_host",
				Ceiling: 1.0,
				Weight:  0.95,
				Match:   exactField(Candidate.host),
				Reason:  fixedReason("Exact match on endpoint host"),
			},
			{
				Name:    "provider_domain_name",
				Ceiling: 0.9,
				Weight:  0.9,
				Match:   matchDomainAndName,
				Reason:  similarityReason("Same provider domain with similar name"),
			},
			{
				Name:    "provider_id_repo_name",
				Ceiling: 0.8,
				Weight:  0.85,
				Match:   matchProviderAndRepoName,
				Reason:  similarityReason("Same provider with similar repo name"),
			},
		},
	}
}

// ProviderLadder: exact domain, then similar legal name.
func ProviderLadder() Ladder {
	return Ladder{
		Kind: KindProvider,
		Heuristics: []Heuristic{
			{
				Name:    "domain",
				Ceiling: 1.0,
				Weight:  1.0,
				Match:   exactField(Candidate.domain),
				Reason:  fixedReason("Exact match on domain"),
			},
			{
				Name:    "name",
				Ceiling: 1.0,
				Weight:  0.95,
				Match:   similarField(func(c Candidate) string { return c.Name }, providerNameSimilarityFloor),
				Reason:  similarityReason("Similar provider name"),
			},
		},
	}
}

// EndpointLadder: exact endpoint URL, then exact host.
func EndpointLadder() Ladder {
	return Ladder{
		Kind:        KindEndpoint,
		NeverReview: true,
		Heuristics: []Heuristic{
			{
				Name:    "endpoint_url",
				Ceiling: 1.0,
				Weight:  1.0,
				Match:   exactField(Candidate.normalizedEndpointURL),
				Reason:  fixedReason("Exact match on endpoint URL"),
			},
			{
				Name:    "endpoint_host",
				Ceiling: 1.0,
				Weight:  0.95,
				Match:   exactField(Candidate.host),
				Reason:  fixedReason("Exact match on endpoint host"),
			},
		},
	}
}

func exactField(field func(Candidate) string) func(Candidate, Candidate) (float64, bool) {
	return func(candidate, existing Candidate) (float64, bool) {
		left := field(candidate)
		if left == "" {
			return 0, false
		}
		if left != field(existing) {
			return 0, false
		}
		return 1, true
	}
}

func similarField(field func(Candidate) string, floor float64) func(Candidate, Candidate) (float64, bool) {
	return func(candidate, existing Candidate) (float64, bool) {
		left := strings.TrimSpace(field(candidate))
		right := strings.TrimSpace(field(existing))
		if left == "" || right == "" {
			return 0, false
		}
		similarity := textnorm.Similarity(left, right)
		if similarity < floor {
			return 0, false
		}
		return similarity, true
	}
}

func matchDomainAndName(candidate, existing Candidate) (float64, bool) {
	domain := candidate.domain()
	if domain == "" || domain != existing.domain() {
		return 0, false
	}
	return similarField(func(c Candidate) string { return c.Name }, serverNameSimilarityFloor)(candidate, existing)
}

func matchProviderAndRepoName(candidate, existing Candidate) (float64, bool) {
	providerID := strings.TrimSpace(candidate.ProviderID)
	if providerID == "" || providerID != strings.TrimSpace(existing.ProviderID) {
		return 0, false
	}
	return similarField(Candidate.repoName, serverRepoNameSimilarityFloor)(candidate, existing)
}

func fixedReason(reason string) func(float64) string {
	return func(float64) string { return reason }
}

func similarityReason(prefix string) func(float64) string {
	return func(score float64) string {
		return fmt.Sprintf("%s (similarity %.2f)", prefix, score)
	}
}
