package dnsbrute

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// wildcardZone answers every unknown A query below example.com with
// 198.51.100.9 (TTL 300) and provisions mail and www for real.
func wildcardZone(t *testing.T) *zoneHandler {
	t.Helper()
	zone := newZoneHandler()
	zone.catchAll("example.com", "198.51.100.9", 300)
	zone.add(t, "mail.example.com. 3600 IN A 198.51.100.50")
	zone.add(t, "www.example.com. 600 IN CNAME web.example.com.")
	return zone
}

func TestQuerySuppressesWildcardMatch(t *testing.T) {
	t.Parallel()
	p := NewPipeline(localResolver(t, wildcardZone(t)))
	require.Nil(t, p.Query(t.Context(), "random123.example.com"))
}

func TestQueryReportsProvisionedHost(t *testing.T) {
	t.Parallel()
	p := NewPipeline(localResolver(t, wildcardZone(t)))
	rec := p.Query(t.Context(), "mail.example.com")
	require.NotNil(t, rec)
	require.Equal(t, KindA, rec.Kind)
	require.Equal(t, []string{"198.51.100.50"}, rec.Answer)
	require.Equal(t, 3600, rec.TTL)
}

func TestQueryPrefersCNAME(t *testing.T) {
	t.Parallel()
	p := NewPipeline(localResolver(t, wildcardZone(t)))
	rec := p.Query(t.Context(), "www.example.com")
	require.NotNil(t, rec)
	require.Equal(t, KindCNAME, rec.Kind)
	require.Equal(t, []string{"web.example.com"}, rec.Answer)
	require.Equal(t, 600, rec.TTL)
}

func TestQueryNonResolvingDomain(t *testing.T) {
	t.Parallel()
	p := NewPipeline(localResolver(t, newZoneHandler()))
	require.Nil(t, p.Query(t.Context(), "ghost.example.com"))
}

func TestQuerySuppressesWildcardCNAMEIgnoringTTL(t *testing.T) {
	t.Parallel()
	zone := newZoneHandler()
	zone.add(t, syntheticName("example.com")+". 120 IN CNAME parking.example.net.")
	zone.add(t, "shop.example.com. 9999 IN CNAME parking.example.net.")
	p := NewPipeline(localResolver(t, zone))
	require.Nil(t, p.Query(t.Context(), "shop.example.com"))
}

func TestRunReportsOnlySurvivors(t *testing.T) {
	t.Parallel()
	p := NewPipeline(localResolver(t, wildcardZone(t)))
	p.Workers = 4

	var mu sync.Mutex
	var got []string
	p.Report = func(rec *Record) {
		mu.Lock()
		got = append(got, rec.Domain)
		mu.Unlock()
	}

	candidates := make(chan string)
	go func() {
		defer close(candidates)
		for _, domain := range []string{
			"mail.example.com",
			"random123.example.com",
			"random456.example.com",
			"www.example.com",
		} {
			candidates <- domain
		}
	}()

	require.NoError(t, p.Run(t.Context(), candidates))
	require.ElementsMatch(t, []string{"mail.example.com", "www.example.com"}, got)
}
