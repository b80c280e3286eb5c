package dnsbrute

import (
	"context"
	"fmt"
	"net/netip"
	"sync"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"
)

// Bootstrap discovers the authoritative nameservers for root and
// returns a Resolver bound to exactly their addresses. The NS lookup
// runs through the recursive seed resolver; its failure, or an empty
// NS set, is unrecoverable for the run and reported as an error for
// the driver to act on. Individual NS hosts that fail to resolve are
// logged and skipped. The returned Resolver inherits the seed's
// dialer, port, timeout and logger, and must be used for every later
// subdomain query: asking the zone's own servers avoids stale answers
// from intermediate caches and lets wildcard detection observe the
// zone's true current state.
func Bootstrap(ctx context.Context, root string, seed *Resolver) (*Resolver, error) {
	hosts, _, err := seed.LookupNS(ctx, root)
	if err != nil {
		return nil, fmt.Errorf("dnsbrute: NS lookup for %s: %w", root, err)
	}

	var mu sync.Mutex
	var addrs []netip.Addr
	var errs *multierror.Error
	g, gctx := errgroup.WithContext(ctx)
	for _, host := range hosts {
		g.Go(func() error {
			ips, _, err := seed.LookupA(gctx, host)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				// one NS host failing to resolve does not abort the batch
				errs = multierror.Append(errs, fmt.Errorf("%s: %w", host, err))
				return nil
			}
			addrs = append(addrs, ips...)
			return nil
		})
	}
	_ = g.Wait()
	if err := errs.ErrorOrNil(); err != nil {
		seed.logger().Debug("some NS hosts did not resolve", "domain", root, "err", err)
	}

	addrs = dedupAddrs(addrs)
	if len(addrs) == 0 {
		return nil, fmt.Errorf("dnsbrute: %s: %w", root, ErrNoNameservers)
	}
	seed.logger().Debug("authoritative nameservers", "domain", root, "hosts", hosts, "addrs", addrs)
	return seed.derive(addrs), nil
}
