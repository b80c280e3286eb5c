package dnsbrute

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Pipeline consumes candidate subdomains, resolves them through the
// authoritative resolver and reports the records that survive
// wildcard filtering.
type Pipeline struct {
	Resolver  *Resolver
	Baselines *Baselines
	Workers   int
	Report    func(*Record) // nil means log at info level
}

func NewPipeline(resolver *Resolver) *Pipeline {
	return &Pipeline{
		Resolver:  resolver,
		Baselines: NewBaselines(resolver),
		Workers:   1,
	}
}

// Run consumes candidates until the channel is closed or ctx is
// cancelled. In-flight queries run to their natural completion or
// timeout; they are not cancelled early.
func (p *Pipeline) Run(ctx context.Context, candidates <-chan string) error {
	g := new(errgroup.Group)
	for range max(p.Workers, 1) {
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case domain, ok := <-candidates:
					if !ok {
						return nil
					}
					if rec := p.Query(ctx, domain); rec != nil {
						p.report(rec)
					}
				}
			}
		})
	}
	return g.Wait()
}

func (p *Pipeline) report(rec *Record) {
	if p.Report != nil {
		p.Report(rec)
		return
	}
	p.Resolver.logger().Info("resolved", "record", rec)
}

// Query resolves one candidate. The parent's wildcard baseline is
// ensured first, then CNAME is attempted strictly before A; the first
// kind that answers becomes the candidate record, which is checked
// against the baseline. A nil return means the domain does not
// resolve or was suppressed as a wildcard match.
func (p *Pipeline) Query(ctx context.Context, domain string) *Record {
	baseline := p.Baselines.Ensure(ctx, ParentDomain(domain))

	var rec *Record
	if target, ttl, err := p.Resolver.LookupCNAME(ctx, domain); err == nil {
		rec = &Record{Domain: domain, Kind: KindCNAME, TTL: ttl, Answer: []string{target}}
	} else if ips, ttl, err := p.Resolver.LookupA(ctx, domain); err == nil {
		answer := make([]string, 0, len(ips))
		for _, ip := range ips {
			answer = append(answer, ip.String())
		}
		rec = &Record{Domain: domain, Kind: KindA, TTL: ttl, Answer: answer}
	}
	if rec == nil {
		return nil
	}
	if IsWildcard(rec, baseline) {
		p.Resolver.logger().Debug("wildcard suppressed", "record", rec)
		return nil
	}
	return rec
}
