package dnsbrute

import (
	"context"
	"net/netip"
	"sort"
	"sync"
	"time"
)

// OrderNameservers sorts the nameserver set by current latency and
// removes servers that don't respond within cutoff. If no server
// makes the cutoff the set is left unchanged.
func (r *Resolver) OrderNameservers(ctx context.Context, cutoff time.Duration) {
	if _, ok := ctx.Deadline(); !ok {
		newctx, cancel := context.WithTimeout(ctx, cutoff*2)
		defer cancel()
		ctx = newctx
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var l []*nsRtt
	var wg sync.WaitGroup
	for _, addr := range r.nameservers {
		rt := &nsRtt{addr: addr}
		l = append(l, rt)
		wg.Add(1)
		go timeNameserver(ctx, r, &wg, rt)
	}
	wg.Wait()
	sort.Slice(l, func(i, j int) bool { return l[i].rtt < l[j].rtt })
	var keep []netip.Addr
	useIPv6 := false
	for _, rt := range l {
		if rt.rtt <= cutoff {
			useIPv6 = useIPv6 || rt.addr.Is6()
			keep = append(keep, rt.addr)
		}
	}
	if len(keep) > 0 {
		r.nameservers = keep
		r.useIPv6 = useIPv6
	}
}
