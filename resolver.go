package dnsbrute

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/netip"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/miekg/dns"
	"golang.org/x/net/proxy"
)

// DefaultTimeout bounds every individual DNS query.
const DefaultTimeout = 3 * time.Second

// ErrNoAnswer means a query completed without a usable answer of the
// requested kind. NXDOMAIN, an empty answer section, a timeout and a
// transport failure all fold into it; callers never branch on which.
var ErrNoAnswer = errors.New("dnsbrute: no answer")

// ErrNoNameservers means the resolver has no nameserver addresses to
// query.
var ErrNoNameservers = errors.New("dnsbrute: no nameserver addresses")

// Resolver issues queries against a fixed nameserver address set using
// github.com/miekg/dns for wire format and transport. The set is
// read-mostly after construction; only transport degradation
// (see disable.go) and OrderNameservers mutate it.
type Resolver struct {
	proxy.ContextDialer
	Timeout     time.Duration
	DNSPort     uint16
	Recurse     bool // request recursion; off for authoritative sets
	Log         *slog.Logger
	mu          sync.RWMutex // protects following
	useUDP      bool
	useIPv6     bool
	nameservers []netip.Addr
}

// New returns a Resolver bound to the given nameserver addresses.
func New(nameservers []netip.Addr) *Resolver {
	return &Resolver{
		ContextDialer: &net.Dialer{},
		Timeout:       DefaultTimeout,
		DNSPort:       53,
		useUDP:        true,
		useIPv6:       true,
		nameservers:   dedupAddrs(nameservers),
	}
}

// NewSeed returns a recursive Resolver using the nameservers from
// /etc/resolv.conf. Bootstrap needs a recursive seed before an
// authoritative set exists.
func NewSeed() (*Resolver, error) {
	conf, err := dns.ClientConfigFromFile("/etc/resolv.conf")
	if err != nil {
		return nil, fmt.Errorf("dnsbrute: reading resolv.conf: %w", err)
	}
	var addrs []netip.Addr
	for _, server := range conf.Servers {
		if addr, err := netip.ParseAddr(server); err == nil {
			addrs = append(addrs, addr)
		}
	}
	if len(addrs) == 0 {
		return nil, ErrNoNameservers
	}
	r := New(addrs)
	r.Recurse = true
	return r, nil
}

// derive returns a Resolver bound to addrs that inherits dialer, port,
// timeout and logger from r. Derived resolvers do not request
// recursion: they are meant for authoritative nameserver sets.
func (r *Resolver) derive(addrs []netip.Addr) *Resolver {
	nr := New(addrs)
	nr.ContextDialer = r.ContextDialer
	nr.Timeout = r.Timeout
	nr.DNSPort = r.DNSPort
	nr.Log = r.Log
	return nr
}

// Nameservers returns a copy of the current nameserver address set.
func (r *Resolver) Nameservers() (addrs []netip.Addr) {
	r.mu.RLock()
	addrs = append(addrs, r.nameservers...)
	r.mu.RUnlock()
	return
}

func (r *Resolver) logger() *slog.Logger {
	if r.Log != nil {
		return r.Log
	}
	return slog.Default()
}

// LookupNS returns the NS hostnames for domain and the answer TTL.
func (r *Resolver) LookupNS(ctx context.Context, domain string) (hosts []string, ttl int, err error) {
	ttl = TTLUnknown
	var resp *dns.Msg
	if resp, err = r.query(ctx, domain, dns.TypeNS); err == nil {
		for _, rr := range resp.Answer {
			if ns, ok := rr.(*dns.NS); ok {
				if ttl == TTLUnknown {
					ttl = int(ns.Hdr.Ttl)
				}
				hosts = append(hosts, strings.ToLower(strings.TrimSuffix(ns.Ns, ".")))
			}
		}
		if len(hosts) == 0 {
			err = ErrNoAnswer
		}
	}
	return
}

// LookupA returns the A record addresses for domain. The TTL is taken
// from the first returned answer.
func (r *Resolver) LookupA(ctx context.Context, domain string) (addrs []netip.Addr, ttl int, err error) {
	ttl = TTLUnknown
	var resp *dns.Msg
	if resp, err = r.query(ctx, domain, dns.TypeA); err == nil {
		for _, rr := range resp.Answer {
			if a, ok := rr.(*dns.A); ok {
				if addr := ipToAddr(a.A); addr.IsValid() {
					if ttl == TTLUnknown {
						ttl = int(a.Hdr.Ttl)
					}
					addrs = append(addrs, addr)
				}
			}
		}
		if len(addrs) == 0 {
			err = ErrNoAnswer
		}
	}
	return
}

// LookupCNAME returns the canonical name domain points at. A zero TTL
// in the answer is reported as TTLUnknown.
func (r *Resolver) LookupCNAME(ctx context.Context, domain string) (target string, ttl int, err error) {
	ttl = TTLUnknown
	var resp *dns.Msg
	if resp, err = r.query(ctx, domain, dns.TypeCNAME); err == nil {
		err = ErrNoAnswer
		for _, rr := range resp.Answer {
			if cname, ok := rr.(*dns.CNAME); ok {
				target = strings.ToLower(strings.TrimSuffix(cname.Target, "."))
				if cname.Hdr.Ttl > 0 {
					ttl = int(cname.Hdr.Ttl)
				}
				err = nil
				break
			}
		}
	}
	return
}

// query asks the nameserver set for qname/qtype, taking the first
// response it gets. A response with any rcode other than success is
// ErrNoAnswer: during enumeration, NXDOMAIN is the expected outcome.
func (r *Resolver) query(ctx context.Context, qname string, qtype uint16) (resp *dns.Msg, err error) {
	servers := r.Nameservers()
	if len(servers) == 0 {
		return nil, ErrNoNameservers
	}
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(strings.ToLower(qname)), qtype)
	m.RecursionDesired = r.Recurse
	setEDNS(m)
	for _, svr := range ordered(servers) {
		var qerr error
		if resp, qerr = r.exchange(ctx, m, svr); qerr != nil || resp == nil {
			continue
		}
		if resp.Rcode != dns.RcodeSuccess {
			return nil, ErrNoAnswer
		}
		return resp, nil
	}
	return nil, ErrNoAnswer
}

// -------- Transport ---------

func (r *Resolver) exchange(ctx context.Context, m *dns.Msg, server netip.Addr) (resp *dns.Msg, err error) {
	if resp, err = r.exchangeWithNetwork(ctx, "udp", m, server); err != nil {
		if r.maybeDisableUdp(err) {
			err = nil
		}
	}
	if err == nil && (resp == nil || resp.Truncated) {
		resp, err = r.exchangeWithNetwork(ctx, "tcp", m, server)
	}
	return
}

func (r *Resolver) exchangeWithNetwork(ctx context.Context, network string, m *dns.Msg, server netip.Addr) (resp *dns.Msg, err error) {
	if r.usable(network, server) {
		var dnsConn *dns.Conn
		if dnsConn, err = r.dialDNSConn(ctx, network, server); err == nil {
			defer dnsConn.Close()
			deadline := r.deadline(ctx)
			if !deadline.IsZero() {
				_ = dnsConn.SetDeadline(deadline)
			}
			start := time.Now()
			if err = dnsConn.WriteMsg(m); err == nil {
				if resp, err = dnsConn.ReadMsg(); err == nil && resp != nil && len(m.Question) > 0 {
					r.logger().Debug("dns exchange",
						"proto", formatProto(network, server),
						"server", server.String(),
						"qtype", dns.Type(m.Question[0].Qtype).String(),
						"qname", m.Question[0].Name,
						"rcode", dns.RcodeToString[resp.Rcode],
						"elapsed", time.Since(start).Round(time.Millisecond))
				}
			}
		}
	}
	return
}

func (r *Resolver) dialDNSConn(ctx context.Context, network string, server netip.Addr) (dnsConn *dns.Conn, err error) {
	var rawConn net.Conn
	addrPort := r.addrPort(server)
	if rawConn, err = r.DialContext(ctx, network, addrPort.String()); err == nil {
		dnsConn = &dns.Conn{Conn: rawConn}
		if strings.HasPrefix(network, "udp") {
			dnsConn.UDPSize = dns.DefaultMsgSize
		}
	} else if server.Is6() {
		r.maybeDisableIPv6(err)
	}
	return
}

func (r *Resolver) usable(protocol string, addr netip.Addr) (yes bool) {
	yes = strings.HasPrefix(protocol, "tcp") || r.usingUDP()
	yes = yes && (addr.Is4() || r.usingIPv6())
	return
}

func (r *Resolver) addrPort(addr netip.Addr) netip.AddrPort {
	return netip.AddrPortFrom(addr, r.DNSPort)
}

func (r *Resolver) deadline(ctx context.Context) time.Time {
	var deadline time.Time
	if ctx != nil {
		if d, ok := ctx.Deadline(); ok {
			deadline = d
		}
	}
	if r.Timeout > 0 {
		limit := time.Now().Add(r.Timeout)
		if deadline.IsZero() || limit.Before(deadline) {
			deadline = limit
		}
	}
	return deadline
}

// -------- Helpers ---------

func setEDNS(m *dns.Msg) {
	opt := &dns.OPT{Hdr: dns.RR_Header{Name: ".", Rrtype: dns.TypeOPT}}
	opt.SetUDPSize(1232)
	m.Extra = append(m.Extra, opt)
}

func ordered(in []netip.Addr) []netip.Addr {
	out := append([]netip.Addr(nil), in...)
	sort.Slice(out, func(i, j int) bool { return out[i].Compare(out[j]) < 0 })
	return out
}

func dedupAddrs(addrs []netip.Addr) []netip.Addr {
	seen := map[netip.Addr]struct{}{}
	var out []netip.Addr
	for _, addr := range addrs {
		if _, ok := seen[addr]; !ok {
			seen[addr] = struct{}{}
			out = append(out, addr)
		}
	}
	return out
}

func ipToAddr(ip net.IP) (addr netip.Addr) {
	if ip != nil {
		if v4 := ip.To4(); v4 != nil {
			addr = netip.AddrFrom4([4]byte(v4))
		} else if v6 := ip.To16(); v6 != nil {
			addr = netip.AddrFrom16([16]byte(v6))
		}
	}
	return
}

func formatProto(network string, addr netip.Addr) string {
	suffix := "6"
	if addr.Is4() {
		suffix = "4"
	}
	return network + suffix
}
