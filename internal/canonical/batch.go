package canonical

import (
	"errors"
	"strings"
)

// ServerInput is one raw server record awaiting identity assignment.
type ServerInput struct {
	CandidateID       string `json:"candidate_id" yaml:"candidate_id"`
	ProviderLegalName string `json:"provider_legal_name" yaml:"provider_legal_name"`
	ProviderDomain    string `json:"provider_domain" yaml:"provider_domain"`
	Name              string `json:"name" yaml:"name"`
	RepoURL           string `json:"repo_url" yaml:"repo_url"`
	EndpointURL       string `json:"endpoint_url" yaml:"endpoint_url"`
	ProductPageURL    string `json:"product_page_url" yaml:"product_page_url"`
	TopSourceURL      string `json:"top_source_url" yaml:"top_source_url"`
}

// Assignment is the identity derived for one ServerInput.
type Assignment struct {
	CandidateID       string           `json:"candidate_id"`
	ProviderID        string           `json:"provider_id"`
	ServerID          string           `json:"server_id"`
	PrimaryIdentifier string           `json:"primary_identifier"`
	IdentifierSource  IdentifierSource `json:"identifier_source"`
}

// BatchResult separates successful assignments from per-record failures.
type BatchResult struct {
	Assigned []Assignment              `json:"assigned"`
	Failed   []*MissingIdentifierError `json:"failed"`
}

// AssignServerIDs derives provider and server ids for every input. A record
// without a usable identifier is reported in Failed and the batch continues.
func AssignServerIDs(inputs []ServerInput) BatchResult {
	result := BatchResult{
		Assigned: make([]Assignment, 0, len(inputs)),
	}

	for _, in := range inputs {
		candidateID := strings.TrimSpace(in.CandidateID)

		providerID, err := ProviderID(in.ProviderLegalName, in.ProviderDomain)
		if err != nil {
			result.Failed = append(result.Failed, withCandidate(err, candidateID))
			continue
		}

		primary, err := SelectPrimaryIdentifier(ServerKey{
			ProviderID:     providerID,
			Name:           in.Name,
			RepoURL:        in.RepoURL,
			EndpointURL:    in.EndpointURL,
			ProductPageURL: in.ProductPageURL,
			TopSourceURL:   in.TopSourceURL,
		})
		if err != nil {
			result.Failed = append(result.Failed, withCandidate(err, candidateID))
			continue
		}

		result.Assigned = append(result.Assigned, Assignment{
			CandidateID:       candidateID,
			ProviderID:        providerID,
			ServerID:          ServerIDFromPrimary(providerID, primary),
			PrimaryIdentifier: primary.Value,
			IdentifierSource:  primary.Source,
		})
	}

	return result
}

func withCandidate(err error, candidateID string) *MissingIdentifierError {
	var missing *MissingIdentifierError
	if errors.As(err, &missing) {
		return &MissingIdentifierError{CandidateID: candidateID, Entity: missing.Entity}
	}
	return &MissingIdentifierError{CandidateID: candidateID, Entity: "server"}
}
