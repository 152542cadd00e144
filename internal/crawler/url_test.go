package crawler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"HTTP://Example.COM:80", "http://example.com/"},
		{"https://example.com:443/a#section", "https://example.com/a"},
		{"https://example.com/?b=2&a=1", "https://example.com/?a=1&b=2"},
		{"https://example.com:8443/a", "https://example.com:8443/a"},
		{"https://example.com/a?print", "https://example.com/a?print"},
		{"https://example.com/list?page=2;sort=asc", "https://example.com/list?page=2;sort=asc"},
		{"https://example.com/?z=1;y=2&a=3", "https://example.com/?a=3&z=1;y=2"},
		{"https://example.com/?b=2&&a=1", "https://example.com/?a=1&b=2"},
		{"https://example.com/?k=2&a=0&k=1", "https://example.com/?a=0&k=2&k=1"},
		{"https://example.com/?q=a%20b+c", "https://example.com/?q=a%20b+c"},
	}
	for _, tc := range tests {
		got, err := NormalizeURL(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}

	_, err := NormalizeURL("http://[::1")
	require.Error(t, err)
}

func TestResolveReference(t *testing.T) {
	t.Parallel()

	got, err := ResolveReference("https://example.com/dir/page", "../other")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/other", got)

	got, err = ResolveReference("https://example.com/dir/", "  //cdn.example.com/x ")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/x", got)

	got, err = ResolveReference("https://example.com/", "/a&quot;b")
	require.NoError(t, err)
	assert.Contains(t, got, "&quot;")

	_, err = ResolveReference("https://example.com/", "   ")
	require.Error(t, err)
}

func TestQueryKeys(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want []string
	}{
		{"", []string{}},
		{"a=1&b=2", []string{"a", "b"}},
		{"utm_source=x;y=1", []string{"utm_source"}},
		{"print", []string{"print"}},
		{"utm%5Fsource=x", []string{"utm_source"}},
		{"a+b=1&&c", []string{"a b", "c"}},
		{"bad%zzkey=1", []string{"bad%zzkey"}},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, queryKeys(tc.raw), tc.raw)
	}
}
