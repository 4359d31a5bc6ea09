package textnorm

import (
	"net/url"
	"path"
	"strings"
)

var trackingQueryKeys = map[string]struct{}{
	"fbclid":  {},
	"gclid":   {},
	"mc_cid":  {},
	"mc_eid":  {},
	"ref":     {},
	"ref_src": {},
}

var sourceForgeHosts = map[string]struct{}{
	"github.com": {},
	"gitlab.com": {},
}

// NormalizeRepoURL reduces a repository URL to a comparable key. GitHub and
// GitLab URLs become "host/owner/repo" with the ".git" suffix and surrounding
// slashes removed; other hosts become lowercase host+path. Input that does not
// parse as an absolute URL is returned trimmed and lowercased.
func NormalizeRepoURL(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}

	parsed, ok := parseAbsolute(trimmed)
	if !ok {
		return strings.ToLower(trimmed)
	}

	host := stripWWW(strings.ToLower(parsed.Hostname()))
	if _, ok := sourceForgeHosts[host]; ok {
		repoPath := strings.Trim(strings.ToLower(parsed.Path), "/")
		repoPath = strings.TrimSuffix(repoPath, ".git")
		repoPath = strings.Trim(repoPath, "/")
		if repoPath == "" {
			return host
		}
		return host + "/" + repoPath
	}

	return strings.ToLower(parsed.Host + parsed.Path)
}

// NormalizeEndpointURL strips tracking parameters, upgrades http to https,
// drops a leading "www." and default ports, and rebuilds
// "scheme://host/path?query". Unparseable input is returned trimmed and lowercased.
func NormalizeEndpointURL(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}

	parsed, ok := parseAbsolute(trimmed)
	if !ok {
		return strings.ToLower(trimmed)
	}

	scheme := strings.ToLower(parsed.Scheme)
	if scheme == "http" {
		scheme = "https"
	}

	host := stripWWW(strings.ToLower(parsed.Hostname()))
	if port := parsed.Port(); port != "" && port != "443" && port != "80" {
		host = host + ":" + port
	}

	escapedPath := parsed.EscapedPath()
	if escapedPath == "" {
		escapedPath = "/"
	}

	q := parsed.Query()
	for key := range q {
		lower := strings.ToLower(key)
		if strings.HasPrefix(lower, "utm_") {
			q.Del(key)
			continue
		}
		if _, ok := trackingQueryKeys[lower]; ok {
			q.Del(key)
		}
	}

	var b strings.Builder
	b.WriteString(scheme)
	b.WriteString("://")
	b.WriteString(host)
	b.WriteString(escapedPath)
	if len(q) > 0 {
		b.WriteByte('?')
		b.WriteString(q.Encode())
	}
	return b.String()
}

// NormalizeHost lowercases and trims a host name and drops a leading "www."
// and a trailing dot. A value carrying a scheme is reduced to its host first.
func NormalizeHost(raw string) string {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	if trimmed == "" {
		return ""
	}
	if strings.Contains(trimmed, "://") {
		if parsed, ok := parseAbsolute(trimmed); ok {
			trimmed = parsed.Hostname()
		}
	}
	return stripWWW(strings.TrimSuffix(trimmed, "."))
}

// EndpointHost returns the normalized host of an endpoint URL, or "" when the
// URL has no host.
func EndpointHost(rawURL string) string {
	parsed, ok := parseAbsolute(strings.TrimSpace(rawURL))
	if !ok {
		return ""
	}
	return NormalizeHost(parsed.Hostname())
}

// NormalizeDomain reduces a domain or site URL to a bare lowercase host with no
// scheme, port, path or leading "www.".
func NormalizeDomain(raw string) string {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	if trimmed == "" {
		return ""
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}
	parsed, ok := parseAbsolute(trimmed)
	if !ok {
		return strings.ToLower(strings.TrimSpace(raw))
	}
	return NormalizeHost(parsed.Hostname())
}

// RepoName returns the last non-empty path segment of a repository URL with a
// trailing ".git" removed.
func RepoName(repoURL string) string {
	trimmed := strings.TrimSpace(repoURL)
	if trimmed == "" {
		return ""
	}

	repoPath := trimmed
	if parsed, ok := parseAbsolute(trimmed); ok {
		repoPath = parsed.Path
	}
	repoPath = strings.TrimRight(repoPath, "/")
	if repoPath == "" {
		return ""
	}

	name := path.Base(repoPath)
	if name == "." || name == "/" {
		return ""
	}
	if strings.HasSuffix(strings.ToLower(name), ".git") {
		name = name[:len(name)-len(".git")]
	}
	return name
}

func parseAbsolute(raw string) (*url.URL, bool) {
	if raw == "" {
		return nil, false
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, false
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, false
	}
	return parsed, true
}

func stripWWW(host string) string {
	return strings.TrimPrefix(host, "www.")
}
