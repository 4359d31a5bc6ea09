// Package canonical assigns deterministic identities to providers, servers and
// endpoints from normalized composite keys.
package canonical

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"horse.fit/trustbrief/internal/textnorm"
)

const (
	hashHexLength = 16

	ProviderPrefix = "prv_"
	ServerPrefix   = "srv_"
	EndpointPrefix = "ept_"

	keySeparator = "|"
)

// IdentifierSource names the field a server's primary identifier came from.
type IdentifierSource string

const (
	SourceRepoURL        IdentifierSource = "repo_url"
	SourceEndpointDomain IdentifierSource = "endpoint_domain"
	SourceProductPage    IdentifierSource = "product_page"
	SourceNameAndSource  IdentifierSource = "name_and_top_source"
)

// ServerKey carries the fields a server identity may be derived from.
type ServerKey struct {
	ProviderID     string
	Name           string
	RepoURL        string
	EndpointURL    string
	ProductPageURL string
	TopSourceURL   string
}

// PrimaryIdentifier is the normalized value chosen to identify a server within
// its provider.
type PrimaryIdentifier struct {
	Value  string
	Source IdentifierSource
}

// ProviderID hashes the normalized legal name and domain of a provider.
func ProviderID(legalName, domain string) (string, error) {
	name := textnorm.NormalizeName(legalName)
	normalizedDomain := textnorm.NormalizeDomain(domain)
	if name == "" && normalizedDomain == "" {
		return "", &MissingIdentifierError{Entity: "provider"}
	}
	return ProviderPrefix + hashKey(name, normalizedDomain), nil
}

// SelectPrimaryIdentifier picks the first available identifier in precedence
// order: repository URL, hosted endpoint domain, product page URL, then name
// joined with the top source URL.
func SelectPrimaryIdentifier(key ServerKey) (PrimaryIdentifier, error) {
	if repo := textnorm.NormalizeRepoURL(key.RepoURL); repo != "" {
		return PrimaryIdentifier{Value: repo, Source: SourceRepoURL}, nil
	}
	if host := textnorm.NormalizeDomain(key.EndpointURL); host != "" {
		return PrimaryIdentifier{Value: host, Source: SourceEndpointDomain}, nil
	}
	if page := textnorm.NormalizeEndpointURL(key.ProductPageURL); page != "" {
		return PrimaryIdentifier{Value: page, Source: SourceProductPage}, nil
	}

	name := textnorm.NormalizeName(key.Name)
	source := textnorm.NormalizeEndpointURL(key.TopSourceURL)
	if name != "" && source != "" {
		return PrimaryIdentifier{Value: name + keySeparator + source, Source: SourceNameAndSource}, nil
	}

	return PrimaryIdentifier{}, &MissingIdentifierError{Entity: "server"}
}

// ServerID hashes the provider id together with the server's primary identifier.
func ServerID(key ServerKey) (string, error) {
	primary, err := SelectPrimaryIdentifier(key)
	if err != nil {
		return "", err
	}
	return ServerIDFromPrimary(key.ProviderID, primary), nil
}

// ServerIDFromPrimary hashes an already selected primary identifier.
func ServerIDFromPrimary(providerID string, primary PrimaryIdentifier) string {
	return ServerPrefix + hashKey(strings.TrimSpace(providerID), primary.Value)
}

// EndpointID hashes a server id together with a normalized endpoint URL.
func EndpointID(serverID, endpointURL string) (string, error) {
	normalized := textnorm.NormalizeEndpointURL(endpointURL)
	if normalized == "" {
		return "", &MissingIdentifierError{Entity: "endpoint"}
	}
	return EndpointPrefix + hashKey(strings.TrimSpace(serverID), normalized), nil
}

func hashKey(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, keySeparator)))
	return hex.EncodeToString(sum[:])[:hashHexLength]
}
