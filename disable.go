package dnsbrute

import (
	"errors"
	"net"
	"net/netip"
	"strings"
	"syscall"
)

func (r *Resolver) usingUDP() (yes bool) {
	r.mu.RLock()
	yes = r.useUDP
	r.mu.RUnlock()
	return
}

func (r *Resolver) usingIPv6() (yes bool) {
	r.mu.RLock()
	yes = r.useIPv6
	r.mu.RUnlock()
	return
}

// maybeDisableIPv6 drops IPv6 nameservers from the set when the host
// has no IPv6 route. IPv4 servers are never removed this way.
func (r *Resolver) maybeDisableIPv6(err error) (disabled bool) {
	if err != nil {
		errstr := err.Error()
		if errors.Is(err, syscall.ENETUNREACH) || errors.Is(err, syscall.EHOSTUNREACH) ||
			strings.Contains(errstr, "network is unreachable") || strings.Contains(errstr, "no route to host") {
			r.mu.Lock()
			defer r.mu.Unlock()
			if r.useIPv6 {
				disabled = true
				r.useIPv6 = false
				var kept []netip.Addr
				for _, addr := range r.nameservers {
					if addr.Is4() {
						kept = append(kept, addr)
					}
				}
				if len(kept) > 0 {
					r.nameservers = kept
				}
			}
		}
	}
	return
}

// maybeDisableUdp switches the resolver to TCP-only when the platform
// reports UDP as unsupported. Timeouts never disable UDP.
func (r *Resolver) maybeDisableUdp(err error) (disabled bool) {
	var ne net.Error
	if errors.As(err, &ne) && !ne.Timeout() {
		errstr := err.Error()
		if errors.Is(err, syscall.ENOSYS) || errors.Is(err, syscall.EPROTONOSUPPORT) || strings.Contains(errstr, "network not implemented") {
			r.mu.Lock()
			defer r.mu.Unlock()
			disabled = r.useUDP
			r.useUDP = false
		}
	}
	return
}
