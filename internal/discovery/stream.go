// Package discovery implements SAP/SDP stream discovery: a multicast
// listener feeding a registry of announced AES67 streams with aging
// and expiry.
package discovery

import (
	"time"

	"icc.tech/aes67-agent/internal/sdp"
)

// Stream is one discovered AES67 stream. The registry owns the live
// record; all query and event paths hand out value copies whose
// Descriptor does not alias registry state.
type Stream struct {
	// ID is derived from the SAP origin address and message-id hash
	// ("<origin>:<msgid-hex>"). Re-announcements with the same ID
	// update the record in place; an origin reusing a message-id hash
	// for an unrelated session silently overwrites.
	ID string `json:"id"`

	Descriptor *sdp.Descriptor `json:"descriptor"`

	// OriginIP is the address observed on the wire; it may differ
	// from the SDP-embedded origin.
	OriginIP string `json:"origin_ip"`

	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`

	// Active is cleared on SAP deletion or expiry; records are never
	// removed so a re-announcement reactivates the same entry.
	Active bool `json:"active"`
}

// snapshot returns a copy safe to hand outside the registry lock.
func (s *Stream) snapshot() Stream {
	c := *s
	c.Descriptor = s.Descriptor.Clone()
	return c
}

// Statistics are the monotonic counters of one running service
// instance, reset only by restarting the service.
type Statistics struct {
	PacketsReceived uint64 `json:"packets_received"`
	PacketsInvalid  uint64 `json:"packets_invalid"`
	Announcements   uint64 `json:"announcements"`
	Deletions       uint64 `json:"deletions"`
	SDPParseErrors  uint64 `json:"sdp_parse_errors"`
	ActiveStreams   int    `json:"active_streams"`
}

// EventType classifies stream lifecycle events.
type EventType string

const (
	// EventNew fires on the first announcement for a stream ID.
	EventNew EventType = "new"
	// EventDeleted fires on an explicit SAP deletion.
	EventDeleted EventType = "deleted"
)

// Event is delivered to subscribers on stream lifecycle transitions.
// Stream is a snapshot; mutating it has no effect on the registry.
type Event struct {
	Type   EventType
	Stream Stream
}

// Callback receives stream lifecycle events. Callbacks run outside the
// registry lock; a panicking callback is recovered and logged and
// never affects the receive loop or other subscribers.
type Callback func(Event)
