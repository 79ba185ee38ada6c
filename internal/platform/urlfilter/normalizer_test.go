package urlfilter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizer_Normalize(t *testing.T) {
	normalizer := NewNormalizer()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"lowercase scheme and host", "HTTPS://EXAMPLE.COM/path", "https://example.com/path"},
		{"empty path becomes root", "http://a.example", "http://a.example/"},
		{"remove default port 80", "http://a.example:80/x", "http://a.example/x"},
		{"remove default port 443", "https://a.example:443/x", "https://a.example/x"},
		{"keep non default port", "https://a.example:80/x", "https://a.example:80/x"},
		{"remove fragment", "https://a.example/page#section", "https://a.example/page"},
		{"drop userinfo", "http://user:pw@a.example/x", "http://a.example/x"},
		{"resolve dot segments", "http://a.example/a/./b/../c", "http://a.example/a/c"},
		{"keep trailing slash", "http://a.example/dir/", "http://a.example/dir/"},
		{"sort query parameters", "http://a.example/x?z=3&a=1&m=2", "http://a.example/x?a=1&m=2&z=3"},
		{"trailing dot host", "http://a.example./x", "http://a.example/x"},
		{"ipv4 host", "http://203.0.113.5/x", "http://203.0.113.5/x"},
		{"ipv6 host", "http://[2001:DB8::1]:8080/x", "http://[2001:db8::1]:8080/x"},
		{"idn host", "http://bücher.example/", "http://xn--bcher-kva.example/"},
		{"keep encoded slash", "http://a.example/r%2Fx", "http://a.example/r%2Fx"},
		{"uppercase escapes", "http://a.example/r%2fx?q=%3a", "http://a.example/r%2Fx?q=%3A"},
		{"decode unreserved escapes", "http://a.example/%7Euser/%41", "http://a.example/~user/A"},
		{"keep repeated value order", "http://a.example/go?b=1&a=2&a=1", "http://a.example/go?a=2&a=1&b=1"},
		{"keep empty value", "http://a.example/go?flag&a=", "http://a.example/go?a=&flag"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := normalizer.Normalize(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestNormalizer_EquivalentVisits(t *testing.T) {
	normalizer := NewNormalizer()

	a, err := normalizer.Normalize("HTTP://A.Example:80/x?b=2&a=1#top")
	require.NoError(t, err)
	b, err := normalizer.Normalize("http://a.example/x?a=1&b=2")
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestNormalizer_TrackingParams(t *testing.T) {
	strict := NewNormalizer()
	relaxed := NewNormalizer(WithTrackingParamsIgnored())

	first := "http://a.example/x?id=7&utm_source=mail1"
	second := "http://a.example/x?id=7&utm_source=mail2"

	s1, _ := strict.Normalize(first)
	s2, _ := strict.Normalize(second)
	assert.NotEqual(t, s1, s2)

	r1, _ := relaxed.Normalize(first)
	r2, _ := relaxed.Normalize(second)
	assert.Equal(t, r1, r2)
	assert.Equal(t, "http://a.example/x?id=7", r1)
}

func TestNormalizer_Rejects(t *testing.T) {
	normalizer := NewNormalizer()

	for _, raw := range []string{"", "/relative", "ftp://a.example/", "javascript:void(0)", "http://bad host/"} {
		_, err := normalizer.Normalize(raw)
		assert.Error(t, err, raw)
	}
}

func TestNormalizer_DistinctResources(t *testing.T) {
	normalizer := NewNormalizer()

	pairs := [][2]string{
		{"http://a.example/r%2Fx", "http://a.example/r/x"},
		{"http://a.example/go?a=1&a=2", "http://a.example/go?a=2&a=1"},
		{"http://a.example/x?q=a%26b", "http://a.example/x?q=a&b"},
	}

	for _, pair := range pairs {
		first, err := normalizer.Normalize(pair[0])
		require.NoError(t, err)
		second, err := normalizer.Normalize(pair[1])
		require.NoError(t, err)
		assert.NotEqual(t, first, second, "%s vs %s", pair[0], pair[1])
	}
}
