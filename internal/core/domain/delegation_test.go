// internal/core/domain/delegation_test.go
package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustKey(t *testing.T, raw string) AttributionKey {
	t.Helper()
	key, err := ParseAttributionKey(raw)
	require.NoError(t, err)
	return key
}

func TestDelegationTable_LongestPrefix(t *testing.T) {
	table, err := NewDelegationTable("test", []DelegationEntry{
		{Range: "203.0.0.0/8", Services: []string{"https://rir.example/rdap/"}},
		{Range: "203.0.113.0/24", Services: []string{"https://registry-a.example/"}},
		{Range: "203.0.113.128/25", Services: []string{"https://registry-c.example/"}},
		{Range: "2001:db8::/32", Services: []string{"https://v6.example/"}},
	})
	require.NoError(t, err)

	tests := []struct {
		key  string
		want string
		ok   bool
	}{
		{"203.0.113.5", "203.0.113.0/24", true},
		{"203.0.113.200", "203.0.113.128/25", true},
		{"203.9.9.9", "203.0.0.0/8", true},
		{"::ffff:203.0.113.5", "203.0.113.0/24", true},
		{"2001:db8::1", "2001:db8::/32", true},
		{"198.51.100.1", "", false},
		{"2001:db9::1", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			entry, ok := table.Match(mustKey(t, tt.key))
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, entry.Range)
		})
	}
}

func TestDelegationTable_LongestSuffix(t *testing.T) {
	table, err := NewDelegationTable("test", []DelegationEntry{
		{Range: "example", Services: []string{"https://registry-b.example/"}},
		{Range: "special.example", Services: []string{"https://registry-s.example/"}},
		{Range: "UK.", Services: []string{"https://uk.example/"}},
		{Range: "co.uk", Services: []string{"https://co-uk.example/"}},
	})
	require.NoError(t, err)

	tests := []struct {
		key  string
		want string
		ok   bool
	}{
		{"a.example", "example", true},
		{"example", "example", true},
		{"login.special.example", "special.example", true},
		{"notspecial.example", "example", true},
		{"shop.co.uk", "co.uk", true},
		{"gov.uk", "UK.", true},
		{"a.test", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			entry, ok := table.Match(mustKey(t, tt.key))
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, entry.Range)
		})
	}
}

func TestDelegationTable_SpacesAreIndependent(t *testing.T) {
	table, err := NewDelegationTable("test", []DelegationEntry{
		{Range: "203.0.113.0/24", Services: []string{"https://registry-a.example/"}},
	})
	require.NoError(t, err)

	// A domain key never consults CIDR entries, even if it looks numeric-ish.
	_, ok := table.Match(AttributionKey{Value: "113.0.203.in-addr.arpa", Type: KeyDomain})
	assert.False(t, ok)

	ipEntries, domainEntries := table.Len()
	assert.Equal(t, 1, ipEntries)
	assert.Equal(t, 0, domainEntries)
}

func TestDelegationTable_Unavailable(t *testing.T) {
	table := UnavailableDelegationTable("https://data.iana.org/rdap/")

	assert.False(t, table.Available())
	_, ok := table.Match(mustKey(t, "203.0.113.5"))
	assert.False(t, ok)
	_, ok = table.Match(mustKey(t, "a.example"))
	assert.False(t, ok)

	var nilTable *DelegationTable
	_, ok = nilTable.Match(mustKey(t, "a.example"))
	assert.False(t, ok)
}

func TestDelegationTable_DuplicateRangeLastWins(t *testing.T) {
	table, err := NewDelegationTable("test", []DelegationEntry{
		{Range: "203.0.113.0/24", Services: []string{"https://old.example/"}},
		{Range: "203.0.113.7/24", Services: []string{"https://new.example/"}},
	})
	require.NoError(t, err)

	entry, ok := table.Match(mustKey(t, "203.0.113.5"))
	require.True(t, ok)
	assert.Equal(t, "https://new.example/", entry.Service())
	ipEntries, _ := table.Len()
	assert.Equal(t, 1, ipEntries)
}

func TestNewDelegationTable_Rejects(t *testing.T) {
	_, err := NewDelegationTable("test", []DelegationEntry{{Range: "203.0.113.0/33", Services: []string{"https://x/"}}})
	assert.Error(t, err)

	_, err = NewDelegationTable("test", []DelegationEntry{{Range: "example"}})
	assert.Error(t, err)

	_, err = NewDelegationTable("test", []DelegationEntry{{Range: " . ", Services: []string{"https://x/"}}})
	assert.Error(t, err)
}

func TestDelegationEntry_Service(t *testing.T) {
	entry := DelegationEntry{Services: []string{"http://plain.example/", "https://secure.example/"}}
	assert.Equal(t, "https://secure.example/", entry.Service())

	entry = DelegationEntry{Services: []string{"http://plain.example/"}}
	assert.Equal(t, "http://plain.example/", entry.Service())

	assert.Empty(t, DelegationEntry{}.Service())
}
