// Package dnsbrute resolves candidate subdomains of a target domain
// against the zone's own authoritative nameservers and filters out
// answers produced by wildcard (catch-all) DNS configurations, so that
// subdomain enumeration only reports genuinely provisioned hosts.
package dnsbrute

import (
	"fmt"
	"strings"

	"github.com/miekg/dns"
)

// Kind is the record type a Record describes. Only the three kinds the
// engine works with are valid.
type Kind uint16

const (
	KindNS    = Kind(dns.TypeNS)
	KindA     = Kind(dns.TypeA)
	KindCNAME = Kind(dns.TypeCNAME)
)

func (k Kind) String() string {
	return dns.Type(k).String()
}

// TTLUnknown marks a Record whose upstream answer carried no usable TTL.
const TTLUnknown = -1

// Record is one DNS answer. Kind is fixed at construction. Answer is
// appended to only while a wildcard baseline is being accumulated and
// must be treated as immutable once the Record reaches a caller.
type Record struct {
	Domain string
	Kind   Kind
	TTL    int
	Answer []string
}

// NewRecord validates kind and constructs a Record.
func NewRecord(domain string, kind Kind, ttl int, answer []string) (*Record, error) {
	switch kind {
	case KindNS, KindA, KindCNAME:
	default:
		return nil, fmt.Errorf("dnsbrute: invalid record kind %d", uint16(kind))
	}
	return &Record{Domain: domain, Kind: kind, TTL: ttl, Answer: answer}, nil
}

func (r *Record) String() string {
	return fmt.Sprintf("%s - %s - %d - [%s]", r.Domain, r.Kind, r.TTL, strings.Join(r.Answer, " "))
}

func (r *Record) contains(want string) bool {
	for _, have := range r.Answer {
		if strings.EqualFold(have, want) {
			return true
		}
	}
	return false
}
