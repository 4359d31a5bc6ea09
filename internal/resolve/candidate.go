package resolve

import (
	"encoding/json"
	"fmt"
	"strings"

	"horse.fit/trustbrief/internal/textnorm"
)

// EntityKind selects which heuristic ladder resolves a batch.
type EntityKind string

const (
	KindProvider EntityKind = "provider"
	KindServer   EntityKind = "server"
	KindEndpoint EntityKind = "endpoint"
)

// ParseEntityKind accepts a kind name in any case.
func ParseEntityKind(raw string) (EntityKind, error) {
	switch kind := EntityKind(strings.ToLower(strings.TrimSpace(raw))); kind {
	case KindProvider, KindServer, KindEndpoint:
		return kind, nil
	default:
		return "", fmt.Errorf("unknown entity kind %q (want provider, server or endpoint)", raw)
	}
}

// Candidate is a record to resolve, either incoming or already canonical.
// Fields a source does not know are left empty; source-specific attributes are
// kept in Extra and never take part in matching.
type Candidate struct {
	ID             string         `json:"id"`
	Name           string         `json:"name,omitempty"`
	RepoURL        string         `json:"repo_url,omitempty"`
	EndpointURL    string         `json:"endpoint_url,omitempty"`
	EndpointHost   string         `json:"endpoint_host,omitempty"`
	ProviderDomain string         `json:"provider_domain,omitempty"`
	ProviderID     string         `json:"provider_id,omitempty"`
	Extra          map[string]any `json:"extra,omitempty"`
}

var knownCandidateFields = map[string]struct{}{
	"id":              {},
	"name":            {},
	"repo_url":        {},
	"endpoint_url":    {},
	"endpoint_host":   {},
	"provider_domain": {},
	"provider_id":     {},
	"extra":           {},
}

// UnmarshalJSON decodes the known fields and folds every other top-level key
// into Extra.
func (c *Candidate) UnmarshalJSON(data []byte) error {
	type plain Candidate
	var decoded plain
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}

	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for key, raw := range all {
		if _, known := knownCandidateFields[key]; known {
			continue
		}
		var value any
		if err := json.Unmarshal(raw, &value); err != nil {
			return fmt.Errorf("decode extra field %q: %w", key, err)
		}
		if decoded.Extra == nil {
			decoded.Extra = make(map[string]any)
		}
		decoded.Extra[key] = value
	}

	*c = Candidate(decoded)
	return nil
}

func (c Candidate) normalizedRepoURL() string {
	return textnorm.NormalizeRepoURL(c.RepoURL)
}

func (c Candidate) normalizedEndpointURL() string {
	return textnorm.NormalizeEndpointURL(c.EndpointURL)
}

// host prefers the explicit endpoint host and falls back to the host of the
// endpoint URL.
func (c Candidate) host() string {
	if host := textnorm.NormalizeHost(c.EndpointHost); host != "" {
		return host
	}
	return textnorm.EndpointHost(c.EndpointURL)
}

func (c Candidate) domain() string {
	return textnorm.NormalizeDomain(c.ProviderDomain)
}

func (c Candidate) repoName() string {
	return textnorm.RepoName(c.RepoURL)
}
