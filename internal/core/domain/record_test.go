// internal/core/domain/record_test.go
package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"phishtrace/internal/platform/errors"
)

func TestOutputRecord_UnmarshalFlexibleJSON(t *testing.T) {
	payload := `{
		"senders": ["203.0.113.5", {"ip": "198.51.100.7", "header": "Received[1]"}],
		"urls": ["http://a.example/x", {"url": "https://c.example/", "position": "body:12"}]
	}`

	var rec OutputRecord
	require.NoError(t, json.Unmarshal([]byte(payload), &rec))

	assert.Equal(t, []SenderAddress{
		{IP: "203.0.113.5"},
		{IP: "198.51.100.7", Header: "Received[1]"},
	}, rec.Senders)
	assert.Equal(t, []URLSeed{
		{URL: "http://a.example/x"},
		{URL: "https://c.example/", Position: "body:12"},
	}, rec.Seeds)
}

func TestOutputRecord_UnmarshalFlexibleYAML(t *testing.T) {
	payload := `
senders:
  - 203.0.113.5
  - ip: 198.51.100.7
    header: Received[1]
urls:
  - http://a.example/x
  - url: https://c.example/
    position: body:12
`
	var rec OutputRecord
	require.NoError(t, yaml.Unmarshal([]byte(payload), &rec))

	require.Len(t, rec.Senders, 2)
	assert.Equal(t, "203.0.113.5", rec.Senders[0].IP)
	assert.Equal(t, "Received[1]", rec.Senders[1].Header)
	require.Len(t, rec.Seeds, 2)
	assert.Equal(t, "body:12", rec.Seeds[1].Position)
}

func TestOutputRecord_CloneLeavesOriginalUntouched(t *testing.T) {
	orig := NewOutputRecord([]string{"203.0.113.5"}, []string{"http://a.example/x"})
	orig.Chains = []*Chain{NewChain(orig.Seeds[0])}
	orig.Attribution = map[string]*AttributionRecord{
		"a.example": {Key: "a.example", Type: KeyDomain, Registration: &Registration{Organization: "Org", Status: []string{"active"}}},
	}

	cp := orig.Clone()
	cp.Senders[0].IP = "198.51.100.1"
	cp.Seeds = append(cp.Seeds, URLSeed{URL: "http://z.example/"})
	cp.Chains[0].State = ChainFinalPage
	cp.Attribution["a.example"].Registration.Organization = "changed"
	cp.Attribution["a.example"].Registration.Status[0] = "changed"
	cp.AddWarning("warned %d", 1)

	assert.Equal(t, "203.0.113.5", orig.Senders[0].IP)
	assert.Len(t, orig.Seeds, 1)
	assert.Equal(t, ChainStart, orig.Chains[0].State)
	assert.Equal(t, "Org", orig.Attribution["a.example"].Registration.Organization)
	assert.Equal(t, "active", orig.Attribution["a.example"].Registration.Status[0])
	assert.Empty(t, orig.Warnings)
}

func TestOutputRecord_Validate(t *testing.T) {
	valid := NewOutputRecord([]string{"203.0.113.5"}, []string{"http://a.example/x"})
	assert.NoError(t, valid.Validate())

	invalid := NewOutputRecord([]string{"203.0.113"}, []string{"mailto:x@example.com"})
	err := invalid.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidRecord))
	assert.Contains(t, err.Error(), "senders[0]")
	assert.Contains(t, err.Error(), "urls[0]")
}

func TestOutputRecord_AttributionKeys(t *testing.T) {
	rec := NewOutputRecord([]string{"203.0.113.5", "::ffff:203.0.113.5", " not-an-ip "}, nil)
	chain := NewChain(URLSeed{URL: "http://a.example/x"})
	chain.Append(&FulfillmentNode{Host: "a.example", Requested: true})
	chain.Append(&FulfillmentNode{Host: "B.Example", Requested: true})
	chain.Append(&FulfillmentNode{Host: "a.example", Requested: true})
	chain.Append(&FulfillmentNode{Host: "c.example", Status: NodeDepthExceeded})
	rec.Chains = []*Chain{chain}

	assert.Equal(t, []string{"203.0.113.5", "not-an-ip", "a.example", "b.example"}, rec.AttributionKeys())
}

func TestOutputRecord_Lookup(t *testing.T) {
	shared := &AttributionRecord{Key: "a.example"}
	rec := OutputRecord{Attribution: map[string]*AttributionRecord{"a.example": shared}}

	got, ok := rec.Lookup("A.EXAMPLE.")
	require.True(t, ok)
	assert.Same(t, shared, got)

	_, ok = rec.Lookup("b.example")
	assert.False(t, ok)
}

func TestOutputRecord_Summary(t *testing.T) {
	rec := OutputRecord{
		Chains: []*Chain{
			{State: ChainFinalPage, Nodes: []*FulfillmentNode{{Requested: true}, {Requested: true}}},
			{State: ChainLoopDetected, Nodes: []*FulfillmentNode{{Requested: true}, {Requested: false}}},
		},
		Attribution: map[string]*AttributionRecord{
			"a.example":   {Registration: &Registration{}},
			"b.example":   {Failure: FailureOf(KindNoDelegation, "none")},
			"203.0.113.5": {Failure: FailureOf(KindTimeout, "deadline")},
		},
	}

	s := rec.Summary()
	assert.Equal(t, 2, s.Chains)
	assert.Equal(t, 3, s.Hops)
	assert.Equal(t, 1, s.ChainsByState[ChainLoopDetected])
	assert.Equal(t, 3, s.Keys)
	assert.Equal(t, 1, s.Resolved)
	assert.Equal(t, 1, s.FailuresByKind[KindTimeout])
	assert.Equal(t, []string{"203.0.113.5", "a.example", "b.example"}, rec.SortedAttributionKeys())
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"nil", nil, ""},
		{"failure passthrough", FailureOf(KindLoopDetected, "x"), KindLoopDetected},
		{"wrapped failure", fmt.Errorf("hop: %w", FailureOf(KindDepthExceeded, "x")), KindDepthExceeded},
		{"platform timeout", errors.Wrap(errors.ErrTimeout, "call"), KindTimeout},
		{"context deadline", fmt.Errorf("get: %w", context.DeadlineExceeded), KindTimeout},
		{"context canceled", context.Canceled, KindTimeout},
		{"tls", errors.Mark(errors.ErrTLS, errors.New("x509")), KindTLSFailure},
		{"no delegation", errors.ErrNoDelegation, KindNoDelegation},
		{"not found", errors.ErrNotFound, KindNotFound},
		{"invalid input", errors.ErrInvalidInput, KindInvalidInput},
		{"malformed", errors.Wrap(errors.ErrInvalidResponse, "json"), KindMalformedResponse},
		{"transient", errors.ErrTransient, KindTransientNetwork},
		{"unknown", errors.New("boom"), KindTransientNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}

	f := NewFailure(errors.Wrap(errors.ErrNotFound, "rdap 404"))
	assert.Equal(t, KindNotFound, f.Kind)
	assert.Equal(t, "not_found: rdap 404: resource not found", f.Error())
	assert.Nil(t, NewFailure(nil))
}

func TestParseAttributionKey(t *testing.T) {
	key, err := ParseAttributionKey(" 2001:DB8::1 ")
	require.NoError(t, err)
	assert.Equal(t, AttributionKey{Value: "2001:db8::1", Type: KeyIP}, key)

	key, err = ParseAttributionKey("Login.Example.")
	require.NoError(t, err)
	assert.Equal(t, AttributionKey{Value: "login.example", Type: KeyDomain}, key)

	_, err = ParseAttributionKey("bad host")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownKey))
	assert.Equal(t, KindInvalidInput, KindOf(err))
	assert.Equal(t, "bad host", KeyString(" bad host "))
}
