package dnsbrute

import (
	"strings"

	"golang.org/x/net/publicsuffix"
)

// IsRootDomain reports whether domain is its own registrable root
// under the public suffix list. Bare public suffixes count as roots:
// there is nothing above them to climb to.
func IsRootDomain(domain string) bool {
	domain = strings.TrimSuffix(strings.ToLower(domain), ".")
	if suffix, _ := publicsuffix.PublicSuffix(domain); suffix == domain {
		return true
	}
	root, err := publicsuffix.EffectiveTLDPlusOne(domain)
	return err == nil && root == domain
}

// ParentDomain returns the domain one label up from domain. A root
// domain is its own parent: the whole zone is its own wildcard scope.
func ParentDomain(domain string) string {
	if IsRootDomain(domain) {
		return domain
	}
	if i := strings.Index(domain, "."); i >= 0 {
		return domain[i+1:]
	}
	return domain
}
