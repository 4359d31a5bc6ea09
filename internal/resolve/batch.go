package resolve

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// ResolveBatches resolves independent candidate batches (for example one per
// source connector) in parallel against the same existing set. Each batch gets
// its own processed set. Results are returned in batch order; pass them through
// ApplyDirectives before writing to a shared store.
func (r *Resolver) ResolveBatches(ctx context.Context, batches [][]Candidate, existing []Candidate) ([][]MergeDirective, error) {
	results := make([][]MergeDirective, len(batches))

	g, gctx := errgroup.WithContext(ctx)
	for i, batch := range batches {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = r.Resolve(batch, existing)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Conflict records a directive dropped because one of its merged ids had
// already been claimed by an earlier directive.
type Conflict struct {
	Directive MergeDirective `json:"directive"`
	ClaimedID string         `json:"claimed_id"`
	ClaimedBy string         `json:"claimed_by"`
}

// ApplyDirectives is the serialization point for directives coming from
// parallel batches. Directives are taken in order; one that would merge a record
// already merged by an earlier directive, or merge away an earlier canonical id,
// is dropped and reported as a conflict.
func ApplyDirectives(batches ...[]MergeDirective) ([]MergeDirective, []Conflict) {
	claimedBy := make(map[string]string)
	var applied []MergeDirective
	var conflicts []Conflict

	for _, batch := range batches {
		for _, directive := range batch {
			if id, owner, ok := firstClaimed(directive, claimedBy); ok {
				conflicts = append(conflicts, Conflict{
					Directive: directive,
					ClaimedID: id,
					ClaimedBy: owner,
				})
				continue
			}
			claimedBy[directive.CanonicalID] = directive.CanonicalID
			for _, id := range directive.MergedIDs {
				claimedBy[id] = directive.CanonicalID
			}
			applied = append(applied, directive)
		}
	}
	return applied, conflicts
}

func firstClaimed(directive MergeDirective, claimedBy map[string]string) (id, owner string, ok bool) {
	for _, merged := range directive.MergedIDs {
		if owner, ok := claimedBy[merged]; ok {
			return merged, owner, true
		}
	}
	if owner, ok := claimedBy[directive.CanonicalID]; ok && owner != directive.CanonicalID {
		return directive.CanonicalID, owner, true
	}
	return "", "", false
}

// CanonicalSet returns the canonical records left after applying directives:
// existing records minus every merged id, plus the candidates.
func CanonicalSet(existing, candidates []Candidate, directives []MergeDirective) []Candidate {
	merged := make(map[string]struct{})
	for _, directive := range directives {
		for _, id := range directive.MergedIDs {
			merged[id] = struct{}{}
		}
	}

	out := make([]Candidate, 0, len(existing)+len(candidates))
	seen := make(map[string]struct{}, len(existing)+len(candidates))
	for _, group := range [][]Candidate{existing, candidates} {
		for _, record := range group {
			if _, gone := merged[record.ID]; gone {
				continue
			}
			if _, dup := seen[record.ID]; dup {
				continue
			}
			seen[record.ID] = struct{}{}
			out = append(out, record)
		}
	}
	return out
}

// Summary counts directives by review outcome.
type Summary struct {
	Directives     int `json:"directives"`
	MergedRecords  int `json:"merged_records"`
	AutoMerges     int `json:"auto_merges"`
	RequiresReview int `json:"requires_review"`
}

func Summarize(directives []MergeDirective) Summary {
	var s Summary
	for _, directive := range directives {
		s.Directives++
		s.MergedRecords += len(directive.MergedIDs)
		if directive.RequiresReview {
			s.RequiresReview++
		} else {
			s.AutoMerges++
		}
	}
	return s
}
