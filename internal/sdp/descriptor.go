// Package sdp parses Session Description Protocol payloads (RFC 8866)
// carrying SMPTE ST 2110-30 / AES67 audio stream descriptions.
package sdp

// Descriptor is the parsed form of one SDP payload describing an
// ST 2110-30 audio stream.
type Descriptor struct {
	SessionName    string `json:"session_name"`
	SessionID      string `json:"session_id"`
	SessionVersion string `json:"session_version"`
	OriginAddr     string `json:"origin_addr"`
	SessionInfo    string `json:"session_info,omitempty"` // i= line

	MulticastAddr string `json:"multicast_addr"`
	Port          int    `json:"port"`
	PayloadType   int    `json:"payload_type"`
	Encoding      string `json:"encoding"` // e.g. "L24"
	SampleRate    int    `json:"sample_rate"`
	Channels      int    `json:"channels"`

	// PTime is the packet time in milliseconds; SamplesPerPacket is
	// derived from it and the sample rate.
	PTime            float64 `json:"ptime"`
	SamplesPerPacket int     `json:"samples_per_packet"`

	SourceAddr string `json:"source_addr,omitempty"` // SSM source
	IsSSM      bool   `json:"is_ssm"`

	ChannelLabels   []string `json:"channel_labels"`
	ChannelOrderRaw string   `json:"channel_order_raw,omitempty"` // e.g. "SMPTE2110.(51,ST)"

	MediaClk       string `json:"mediaclk,omitempty"`
	MediaClkOffset int    `json:"mediaclk_offset"`
	TSRefClk       string `json:"ts_refclk,omitempty"`
	PTPGrandmaster string `json:"ptp_grandmaster,omitempty"`
	PTPDomain      int    `json:"ptp_domain"`

	// ST2110Compliant is true when the media clock is directly
	// referenced to PTP with zero offset (mediaclk:direct=0).
	ST2110Compliant  bool   `json:"st2110_compliant"`
	ConformanceLevel string `json:"conformance_level,omitempty"` // A, B, C, AX, BX, CX

	// RawSDP keeps the unparsed payload for diagnostics.
	RawSDP string `json:"raw_sdp,omitempty"`
}

// newDescriptor returns a Descriptor with the ST 2110-30 field defaults
// used before any a= attribute overrides them.
func newDescriptor(raw string) *Descriptor {
	return &Descriptor{
		PayloadType:      96,
		Encoding:         "L24",
		SampleRate:       48000,
		Channels:         2,
		PTime:            1.0,
		SamplesPerPacket: 48,
		RawSDP:           raw,
	}
}

// Clone returns a copy of d whose ChannelLabels slice does not alias
// the receiver's. Registry snapshots hand these to callers.
func (d *Descriptor) Clone() *Descriptor {
	if d == nil {
		return nil
	}
	c := *d
	if d.ChannelLabels != nil {
		c.ChannelLabels = append([]string(nil), d.ChannelLabels...)
	}
	return &c
}
