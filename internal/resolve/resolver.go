// Package resolve merges incoming candidate records into an existing canonical
// set using ordered heuristic ladders.
package resolve

import "strings"

// MergeDirective tells a curation store to collapse MergedIDs into CanonicalID.
type MergeDirective struct {
	Kind           EntityKind `json:"entity_kind"`
	CanonicalID    string     `json:"canonical_id"`
	MergedIDs      []string   `json:"merged_ids"`
	Confidence     float64    `json:"confidence"`
	RequiresReview bool       `json:"requires_review"`
	Reason         string     `json:"reason"`
}

// Resolver runs one ladder. It holds no state between calls and is safe for
// concurrent use.
type Resolver struct {
	ladder Ladder
}

func NewResolver(ladder Ladder) *Resolver {
	return &Resolver{ladder: ladder}
}

// Kind reports the entity kind the resolver's ladder handles.
func (r *Resolver) Kind() EntityKind {
	return r.ladder.Kind
}

// Resolve matches every candidate against existing. Each candidate is visited
// once and each existing record is claimed by at most one candidate; the first
// candidate to match a record wins it. Existing records that are themselves
// candidates of this batch are never matched. Candidates without a match
// produce no directive.
func (r *Resolver) Resolve(candidates, existing []Candidate) []MergeDirective {
	processed := make(map[string]struct{}, len(candidates)+len(existing))
	inBatch := make(map[string]struct{}, len(candidates))
	for _, candidate := range candidates {
		if id := strings.TrimSpace(candidate.ID); id != "" {
			inBatch[id] = struct{}{}
		}
	}
	var directives []MergeDirective

	for _, candidate := range candidates {
		candidateID := strings.TrimSpace(candidate.ID)
		if candidateID == "" {
			continue
		}
		if _, done := processed[candidateID]; done {
			continue
		}

		matched := []string{candidateID}
		confidence := 0.0
		reason := ""

		for _, h := range r.ladder.Heuristics {
			if confidence >= h.Ceiling {
				continue
			}
			for _, record := range existing {
				recordID := strings.TrimSpace(record.ID)
				if recordID == "" {
					continue
				}
				if _, sibling := inBatch[recordID]; sibling {
					continue
				}
				if _, claimed := processed[recordID]; claimed {
					continue
				}
				score, ok := h.Match(candidate, record)
				if !ok {
					continue
				}
				processed[recordID] = struct{}{}
				matched = append(matched, recordID)
				confidence = clampUnit(score * h.Weight)
				reason = h.Reason(score)
				break
			}
		}

		processed[candidateID] = struct{}{}
		if len(matched) < 2 {
			continue
		}

		directives = append(directives, MergeDirective{
			Kind:           r.ladder.Kind,
			CanonicalID:    matched[0],
			MergedIDs:      matched[1:],
			Confidence:     confidence,
			RequiresReview: !r.ladder.NeverReview && NeedsReview(confidence),
			Reason:         reason,
		})
	}

	return directives
}

// NeedsReview reports whether a merge at confidence must go to human review.
func NeedsReview(confidence float64) bool {
	return confidence > 0 && confidence < ReviewThreshold
}

// ResolveProviders runs the provider ladder.
func ResolveProviders(candidates, existing []Candidate) []MergeDirective {
	return NewResolver(ProviderLadder()).Resolve(candidates, existing)
}

// ResolveServers runs the server ladder.
func ResolveServers(candidates, existing []Candidate) []MergeDirective {
	return NewResolver(ServerLadder()).Resolve(candidates, existing)
}

// ResolveEndpoints runs the endpoint ladder.
func ResolveEndpoints(candidates, existing []Candidate) []MergeDirective {
	return NewResolver(EndpointLadder()).Resolve(candidates, existing)
}

func clampUnit(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
