// internal/core/usecases/attribution_map_test.go
package usecases

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phishtrace/internal/core/domain"
)

func TestAttributionMap_SingleClaimUnderContention(t *testing.T) {
	m := NewAttributionMap()

	var winners atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if m.Claim("a.example") {
				winners.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), winners.Load())
	assert.Equal(t, []string{"a.example"}, m.Keys())
	assert.Equal(t, []string{"a.example"}, m.Pending())
}

func TestAttributionMap_PublishIsWriteOnce(t *testing.T) {
	m := NewAttributionMap()
	first := &domain.AttributionRecord{Key: "a.example", Registration: &domain.Registration{Name: "first"}}
	second := &domain.AttributionRecord{Key: "a.example", Registration: &domain.Registration{Name: "second"}}

	require.True(t, m.Claim("a.example"))
	assert.True(t, m.Publish(first))
	assert.False(t, m.Publish(second))

	got, claimed, err := m.Await(context.Background(), "a.example")
	require.NoError(t, err)
	assert.True(t, claimed)
	assert.Same(t, first, got)
	assert.Empty(t, m.Pending())
}

func TestAttributionMap_PublishWithoutClaim(t *testing.T) {
	m := NewAttributionMap()
	rec := &domain.AttributionRecord{Key: "bad host"}

	assert.True(t, m.Publish(rec))
	assert.False(t, m.Claim("bad host"))

	snap := m.Snapshot()
	assert.Same(t, rec, snap["bad host"])
}

func TestAttributionMap_Await(t *testing.T) {
	m := NewAttributionMap()
	rec := &domain.AttributionRecord{Key: "203.0.113.5"}
	require.True(t, m.Claim(rec.Key))

	go func() {
		time.Sleep(10 * time.Millisecond)
		m.Publish(rec)
	}()

	got, claimed, err := m.Await(context.Background(), rec.Key)
	require.NoError(t, err)
	assert.True(t, claimed)
	assert.Same(t, rec, got)

	got, claimed, err = m.Await(context.Background(), "198.51.100.1")
	require.NoError(t, err)
	assert.False(t, claimed)
	assert.Nil(t, got)
}

func TestAttributionMap_AwaitHonoursContext(t *testing.T) {
	m := NewAttributionMap()
	require.True(t, m.Claim("a.example"))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, claimed, err := m.Await(ctx, "a.example")
	assert.True(t, claimed)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAttributionMap_SnapshotSkipsPending(t *testing.T) {
	m := NewAttributionMap()
	m.Claim("a.example")
	m.Claim("b.example")
	m.Publish(&domain.AttributionRecord{Key: "b.example"})

	snap := m.Snapshot()
	assert.Len(t, snap, 1)
	assert.Contains(t, snap, "b.example")
	assert.Equal(t, []string{"a.example"}, m.Pending())
	assert.Equal(t, []string{"a.example", "b.example"}, m.Keys())
}

func TestAttributionMap_AwaitPrefersPublishedRecord(t *testing.T) {
	m := NewAttributionMap()
	rec := &domain.AttributionRecord{Key: "a.example"}
	require.True(t, m.Publish(rec))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for i := 0; i < 20; i++ {
		got, claimed, err := m.Await(ctx, "a.example")
		require.NoError(t, err)
		assert.True(t, claimed)
		assert.Same(t, rec, got)
	}
}
