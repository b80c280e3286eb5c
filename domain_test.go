package dnsbrute

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsRootDomain(t *testing.T) {
	t.Parallel()
	require.True(t, IsRootDomain("example.com"))
	require.True(t, IsRootDomain("Example.COM."))
	require.False(t, IsRootDomain("www.example.com"))
	require.False(t, IsRootDomain("a.b.example.com"))
	// a bare public suffix has nothing above it
	require.True(t, IsRootDomain("com"))
	require.True(t, IsRootDomain("co.uk"))
}

func TestParentDomain(t *testing.T) {
	t.Parallel()
	require.Equal(t, "b.example.com", ParentDomain("a.b.example.com"))
	require.Equal(t, "example.com", ParentDomain("b.example.com"))
	// a root domain is its own parent
	require.Equal(t, "example.com", ParentDomain("example.com"))
}
