package security

import (
	"net/url"
	"strings"

	"github.com/mlld-lang/mlld-go/internal/errors"
	"github.com/mlld-lang/mlld-go/internal/iface"
)

// IsURL detects URLs by protocol check (spec §4.1 "URL detection uses
// protocol check").
func IsURL(input string) bool {
	u, err := url.Parse(input)
	if err != nil {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

// gistHostSuffix identifies GitHub Gist URLs eligible for the
// auto-rewrite to their raw form (spec §4.7 URL policy).
const gistHostSuffix = "gist.github.com"

// RewriteGistURL rewrites a gist.github.com URL to its raw content
// form, when the policy enables it and the URL matches.
func RewriteGistURL(raw string, policy iface.URLPolicy) string {
	if !policy.RewriteGists {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil || !strings.HasSuffix(u.Host, gistHostSuffix) {
		return raw
	}
	if strings.Contains(u.Path, "/raw/") {
		return raw
	}
	return strings.TrimRight(raw, "/") + "/raw"
}

// ValidateURL enforces the domain and protocol rules of the §4.7 URL
// policy: allowed/blocked domains and required HTTPS. The policy's
// MaxBytes and Timeout are not applied here, nor by the import path or
// the fetch client, which uses its own fixed 30-second timeout and
// reads the whole response body.
func ValidateURL(raw string, policy iface.URLPolicy) error {
	u, err := url.Parse(raw)
	if err != nil {
		return errors.New(errors.KindURLPolicyViolation, errors.Location{}, "import", "invalid URL %q: %v", raw, err)
	}
	if policy.RequireHTTPS && u.Scheme != "https" {
		return errors.New(errors.KindURLPolicyViolation, errors.Location{}, "import", "URL %q must use https", raw)
	}
	host := u.Hostname()
	for _, blocked := range policy.BlockedDomains {
		if matchesDomain(host, blocked) {
			return errors.New(errors.KindURLPolicyViolation, errors.Location{}, "import", "domain %q is blocked", host)
		}
	}
	if len(policy.AllowedDomains) > 0 {
		allowed := false
		for _, dom := range policy.AllowedDomains {
			if matchesDomain(host, dom) {
				allowed = true
				break
			}
		}
		if !allowed {
			return errors.New(errors.KindURLPolicyViolation, errors.Location{}, "import", "domain %q is not in the allowlist", host)
		}
	}
	return nil
}

func matchesDomain(host, pattern string) bool {
	if host == pattern {
		return true
	}
	return strings.HasSuffix(host, "."+pattern)
}
