package dnsbrute

import (
	"fmt"
	"log/slog"
	"net"
	"net/netip"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/require"
)

// zoneHandler serves scripted answers for tests. Keys are
// "QTYPE fqdn". Unknown names get NXDOMAIN, unless a wildcard A
// answer is configured for the zone, which then catches every A query
// below the zone apex like a catch-all rule would.
type zoneHandler struct {
	mu             sync.Mutex
	queries        map[string]int
	answers        map[string][]dns.RR
	wildcardSuffix string // zone apex as fqdn, e.g. "example.com."
	wildcardIP     string
	wildcardTTL    uint32
}

func newZoneHandler() *zoneHandler {
	return &zoneHandler{
		queries: make(map[string]int),
		answers: make(map[string][]dns.RR),
	}
}

func (z *zoneHandler) add(t *testing.T, rrtext string) {
	t.Helper()
	rr, err := dns.NewRR(rrtext)
	require.NoError(t, err)
	key := dns.Type(rr.Header().Rrtype).String() + " " + rr.Header().Name
	z.answers[key] = append(z.answers[key], rr)
}

func (z *zoneHandler) catchAll(zone, ip string, ttl uint32) {
	z.wildcardSuffix = dns.Fqdn(zone)
	z.wildcardIP = ip
	z.wildcardTTL = ttl
}

func (z *zoneHandler) count(qtype, qname string) int {
	z.mu.Lock()
	defer z.mu.Unlock()
	return z.queries[qtype+" "+dns.Fqdn(qname)]
}

func (z *zoneHandler) ServeDNS(w dns.ResponseWriter, req *dns.Msg) {
	q := req.Question[0]
	key := dns.Type(q.Qtype).String() + " " + q.Name
	z.mu.Lock()
	z.queries[key]++
	rrs := z.answers[key]
	z.mu.Unlock()

	m := new(dns.Msg)
	m.SetReply(req)
	switch {
	case len(rrs) > 0:
		m.Answer = append(m.Answer, rrs...)
	case z.wildcardIP != "" && q.Qtype == dns.TypeA && strings.HasSuffix(q.Name, "."+z.wildcardSuffix):
		rr, _ := dns.NewRR(fmt.Sprintf("%s %d IN A %s", q.Name, z.wildcardTTL, z.wildcardIP))
		m.Answer = append(m.Answer, rr)
	default:
		m.Rcode = dns.RcodeNameError
	}
	_ = w.WriteMsg(m)
}

func serveLocal(t *testing.T, handler dns.Handler) netip.AddrPort {
	t.Helper()
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	srv := &dns.Server{PacketConn: pc, Handler: handler}
	go func() { _ = srv.ActivateAndServe() }()
	t.Cleanup(func() { _ = srv.Shutdown() })
	return netip.MustParseAddrPort(pc.LocalAddr().String())
}

// localResolver returns a Resolver bound to an in-process DNS server
// running handler. No test traffic leaves the loopback interface.
func localResolver(t *testing.T, handler dns.Handler) *Resolver {
	t.Helper()
	ap := serveLocal(t, handler)
	r := New([]netip.Addr{ap.Addr()})
	r.DNSPort = ap.Port()
	r.Timeout = time.Second
	r.Log = slog.New(slog.DiscardHandler)
	return r
}
