package dnsbrute

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Baselines caches, per parent domain, the answer a synthetic
// never-provisioned hostname under that parent receives. Entries are
// written once by Ensure and read-only afterward; an entry with an
// empty answer set records that the probe ran and found no wildcard
// behavior. Entries are never evicted during a run.
type Baselines struct {
	resolver *Resolver
	flight   singleflight.Group
	mu       sync.RWMutex
	records  map[string]*Record
}

func NewBaselines(resolver *Resolver) *Baselines {
	return &Baselines{resolver: resolver, records: make(map[string]*Record)}
}

// Ensure returns the baseline for parent, probing for it first if it
// has not been attempted yet. Safe for concurrent use: for any parent
// the probe runs at most once per process, and concurrent callers for
// the same parent block until the one probe completes.
func (b *Baselines) Ensure(ctx context.Context, parent string) *Record {
	if rec := b.get(parent); rec != nil {
		return rec
	}
	v, _, _ := b.flight.Do(parent, func() (any, error) {
		if rec := b.get(parent); rec != nil {
			return rec, nil
		}
		rec := b.probe(ctx, parent)
		b.mu.Lock()
		b.records[parent] = rec
		b.mu.Unlock()
		return rec, nil
	})
	return v.(*Record)
}

func (b *Baselines) get(parent string) (rec *Record) {
	b.mu.RLock()
	rec = b.records[parent]
	b.mu.RUnlock()
	return
}

// probe queries a hostname guaranteed not to be provisioned on
// purpose: the md5 hex digest of the parent domain as the leftmost
// label. Query errors are swallowed; a zone without a wildcard is the
// expected outcome, not a failure.
func (b *Baselines) probe(ctx context.Context, parent string) *Record {
	sum := md5.Sum([]byte(parent))
	synthetic := hex.EncodeToString(sum[:]) + "." + parent

	rec := &Record{Domain: parent, Kind: KindA, TTL: TTLUnknown}
	if ips, ttl, err := b.resolver.LookupA(ctx, synthetic); err == nil {
		for _, ip := range ips {
			if s := ip.String(); !rec.contains(s) {
				rec.Answer = append(rec.Answer, s)
			}
		}
		rec.TTL = ttl
	}
	if target, ttl, err := b.resolver.LookupCNAME(ctx, synthetic); err == nil {
		if !rec.contains(target) {
			rec.Answer = append(rec.Answer, target)
		}
		if ttl != TTLUnknown {
			rec.TTL = ttl
		}
	}

	if len(rec.Answer) > 0 {
		b.resolver.logger().Debug("wildcard baseline", "parent", parent, "answer", rec.Answer, "ttl", rec.TTL)
	}
	return rec
}

// IsWildcard reports whether rec matches the wildcard baseline for its
// parent domain. An empty baseline means the zone showed no catch-all
// behavior and nothing is suppressed. CNAME answers match on the
// answer set alone. A answers additionally require the exact baseline
// TTL: a legitimately provisioned host can share the wildcard's IP,
// but it only shares its TTL at query time when served by the same
// catch-all rule. Every answer must be present in the baseline; a
// partial overlap is not a wildcard.
func IsWildcard(rec, baseline *Record) bool {
	if baseline == nil || len(baseline.Answer) == 0 {
		return false
	}
	for _, answer := range rec.Answer {
		if !baseline.contains(answer) {
			return false
		}
	}
	if rec.Kind == KindCNAME {
		return true
	}
	return rec.TTL == baseline.TTL
}
