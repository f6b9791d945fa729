package discovery

import (
	"sync"
	"time"

	"icc.tech/aes67-agent/internal/sdp"
)

// Registry is the concurrent map of discovered streams. Every read or
// write of the map happens under one mutex held only for the duration
// of the map operation — never across a socket read or a subscriber
// callback.
type Registry struct {
	mu      sync.RWMutex
	streams map[string]*Stream
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{streams: make(map[string]*Stream)}
}

// Upsert records an announcement. A new ID inserts a record with
// firstSeen=lastSeen=now and returns isNew=true; a known ID replaces
// the descriptor, refreshes lastSeen and reactivates the record
// without re-reporting it as new. The returned snapshot is safe to
// hand to subscribers.
func (r *Registry) Upsert(id string, desc *sdp.Descriptor, originIP string, now time.Time) (Stream, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.streams[id]; ok {
		s.Descriptor = desc
		s.LastSeen = now
		s.Active = true
		return s.snapshot(), false
	}

	s := &Stream{
		ID:         id,
		Descriptor: desc,
		OriginIP:   originIP,
		FirstSeen:  now,
		LastSeen:   now,
		Active:     true,
	}
	r.streams[id] = s
	return s.snapshot(), true
}

// MarkDeleted deactivates the stream for an explicit SAP deletion.
// A deletion for an ID never announced is a silent no-op (ok=false).
func (r *Registry) MarkDeleted(id string) (Stream, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.streams[id]
	if !ok {
		return Stream{}, false
	}
	s.Active = false
	return s.snapshot(), true
}

// SweepExpired deactivates every active stream whose last announcement
// is older than timeout. Expired records stay in the registry so an
// identical re-announcement reactivates the entry instead of creating
// a duplicate. Returns snapshots of the streams expired by this sweep.
func (r *Registry) SweepExpired(now time.Time, timeout time.Duration) []Stream {
	r.mu.Lock()
	defer r.mu.Unlock()

	var expired []Stream
	for _, s := range r.streams {
		if s.Active && now.Sub(s.LastSeen) > timeout {
			s.Active = false
			expired = append(expired, s.snapshot())
		}
	}
	return expired
}

// List returns snapshots of all records, optionally only active ones.
func (r *Registry) List(activeOnly bool) []Stream {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Stream, 0, len(r.streams))
	for _, s := range r.streams {
		if activeOnly && !s.Active {
			continue
		}
		out = append(out, s.snapshot())
	}
	return out
}

// FindByAddress returns the first stream with the given multicast
// address, and matching port when port is non-zero.
func (r *Registry) FindByAddress(addr string, port int) (Stream, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, s := range r.streams {
		if s.Descriptor.MulticastAddr == addr && (port == 0 || s.Descriptor.Port == port) {
			return s.snapshot(), true
		}
	}
	return Stream{}, false
}

// FindByName returns the first stream whose session name matches
// exactly.
func (r *Registry) FindByName(name string) (Stream, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, s := range r.streams {
		if s.Descriptor.SessionName == name {
			return s.snapshot(), true
		}
	}
	return Stream{}, false
}

// ActiveCount returns the number of active streams.
func (r *Registry) ActiveCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, s := range r.streams {
		if s.Active {
			n++
		}
	}
	return n
}
