package discovery

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"icc.tech/aes67-agent/internal/sdp"
)

func testDescriptor(name, addr string, port int) *sdp.Descriptor {
	return &sdp.Descriptor{
		SessionName:   name,
		MulticastAddr: addr,
		Port:          port,
		SampleRate:    48000,
		Channels:      2,
		ChannelLabels: []string{"L", "R"},
	}
}

func TestRegistryUpsert(t *testing.T) {
	r := NewRegistry()
	now := time.Now()

	s, isNew := r.Upsert("10.0.0.1:0001", testDescriptor("A", "239.1.1.1", 5004), "10.0.0.1", now)
	assert.True(t, isNew)
	assert.Equal(t, "10.0.0.1:0001", s.ID)
	assert.True(t, s.Active)
	assert.Equal(t, now, s.FirstSeen)
	assert.Equal(t, now, s.LastSeen)

	// Re-announcement updates in place, never reports new again.
	later := now.Add(30 * time.Second)
	s, isNew = r.Upsert("10.0.0.1:0001", testDescriptor("A v2", "239.1.1.1", 5004), "10.0.0.1", later)
	assert.False(t, isNew)
	assert.Equal(t, "A v2", s.Descriptor.SessionName)
	assert.Equal(t, now, s.FirstSeen)
	assert.Equal(t, later, s.LastSeen)

	assert.Equal(t, 1, r.ActiveCount())
}

func TestRegistrySnapshotDoesNotAliasState(t *testing.T) {
	r := NewRegistry()
	s, _ := r.Upsert("id", testDescriptor("A", "239.1.1.1", 5004), "10.0.0.1", time.Now())

	s.Descriptor.SessionName = "mutated"
	s.Descriptor.ChannelLabels[0] = "X"

	got, ok := r.FindByName("A")
	require.True(t, ok)
	assert.Equal(t, "A", got.Descriptor.SessionName)
	assert.Equal(t, []string{"L", "R"}, got.Descriptor.ChannelLabels)
}

func TestRegistryMarkDeleted(t *testing.T) {
	r := NewRegistry()
	now := time.Now()
	r.Upsert("id", testDescriptor("A", "239.1.1.1", 5004), "10.0.0.1", now)

	s, ok := r.MarkDeleted("id")
	assert.True(t, ok)
	assert.False(t, s.Active)
	assert.Equal(t, 0, r.ActiveCount())

	// Deletion of an unknown ID is a silent no-op.
	_, ok = r.MarkDeleted("never-announced")
	assert.False(t, ok)

	// Deleted records stay listed and reactivate on re-announcement.
	assert.Len(t, r.List(false), 1)
	assert.Empty(t, r.List(true))

	s, isNew := r.Upsert("id", testDescriptor("A", "239.1.1.1", 5004), "10.0.0.1", now.Add(time.Minute))
	assert.False(t, isNew)
	assert.True(t, s.Active)
	assert.Equal(t, 1, r.ActiveCount())
}

func TestRegistrySweepExpired(t *testing.T) {
	r := NewRegistry()
	base := time.Now()
	timeout := 300 * time.Second

	r.Upsert("old", testDescriptor("Old", "239.1.1.1", 5004), "10.0.0.1", base)
	r.Upsert("fresh", testDescriptor("Fresh", "239.1.1.2", 5004), "10.0.0.2", base.Add(200*time.Second))

	// Exactly at the timeout is not yet expired.
	expired := r.SweepExpired(base.Add(300*time.Second), timeout)
	assert.Empty(t, expired)
	assert.Equal(t, 2, r.ActiveCount())

	expired = r.SweepExpired(base.Add(301*time.Second), timeout)
	require.Len(t, expired, 1)
	assert.Equal(t, "old", expired[0].ID)
	assert.False(t, expired[0].Active)
	assert.Equal(t, 1, r.ActiveCount())

	// Already-inactive streams are not re-expired.
	expired = r.SweepExpired(base.Add(302*time.Second), timeout)
	assert.Empty(t, expired)

	// Expired records are kept for history.
	assert.Len(t, r.List(false), 2)
}

func TestRegistryFind(t *testing.T) {
	r := NewRegistry()
	now := time.Now()
	r.Upsert("a", testDescriptor("Studio A", "239.1.1.1", 5004), "10.0.0.1", now)
	r.Upsert("b", testDescriptor("Studio B", "239.1.1.2", 5006), "10.0.0.2", now)

	s, ok := r.FindByAddress("239.1.1.2", 5006)
	require.True(t, ok)
	assert.Equal(t, "Studio B", s.Descriptor.SessionName)

	// Port 0 matches any port.
	s, ok = r.FindByAddress("239.1.1.1", 0)
	require.True(t, ok)
	assert.Equal(t, "Studio A", s.Descriptor.SessionName)

	_, ok = r.FindByAddress("239.1.1.1", 9999)
	assert.False(t, ok)

	s, ok = r.FindByName("Studio B")
	require.True(t, ok)
	assert.Equal(t, "b", s.ID)

	_, ok = r.FindByName("Studio C")
	assert.False(t, ok)
}

func TestRegistryConcurrentAccess(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := fmt.Sprintf("10.0.0.%d:0001", n)
			for j := 0; j < 100; j++ {
				r.Upsert(id, testDescriptor("S", "239.1.1.1", 5004), "10.0.0.1", time.Now())
				r.List(true)
				r.FindByAddress("239.1.1.1", 0)
				r.SweepExpired(time.Now(), time.Hour)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 8, r.ActiveCount())
}
