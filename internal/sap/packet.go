// Package sap implements the Session Announcement Protocol wire format
// (RFC 2974, announcement subset).
//
// SAP frame layout:
//
//	Offset  Size      Description
//	------  ----      -----------
//	0       1         V V V A R T E C  (V=version, A=addr type, R=reserved,
//	                                    T=msg type, E=encrypted, C=compressed)
//	1       1         Authentication data length, in 32-bit words
//	2       2         Message-identifier hash (big-endian uint16)
//	4       4 or 16   Origin address (IPv4 or IPv6 per A bit)
//	…       authLen*4 Authentication data (skipped on receive)
//	…       …         Optional NUL-terminated MIME type, then SDP payload
//
// Encrypted and compressed payloads are rejected rather than decoded;
// both are effectively unused on AES67 networks.
package sap

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net/netip"
	"strings"
)

// Well-known SAP destinations (RFC 2974 §3).
const (
	AddrGlobal = "224.2.127.254"   // global scope
	AddrAdmin  = "239.255.255.255" // administrative scope
	Port       = 9875
	Version    = 1
)

// mimeSDP is the payload type marker written by the encoder and
// stripped by the decoder when present.
const mimeSDP = "application/sdp"

// mimeScanLimit bounds how far into the payload a NUL terminator is
// searched for; a NUL beyond this is treated as payload content.
const mimeScanLimit = 64

// Decode failure modes, matchable with errors.Is.
var (
	ErrTooShort    = errors.New("sap: packet shorter than 8 bytes")
	ErrVersion     = errors.New("sap: unsupported protocol version")
	ErrUnsupported = errors.New("sap: encrypted or compressed payload not supported")
	ErrTruncated   = errors.New("sap: packet truncated inside authentication data")
)

// Header byte 0 flag masks.
const (
	flagIPv6       = 0x10
	flagDeletion   = 0x04
	flagEncrypted  = 0x02
	flagCompressed = 0x01
)

// Packet is one decoded SAP frame.
type Packet struct {
	Version   uint8
	IPv6      bool   // origin address family (A bit)
	Deletion  bool   // true for session deletion, false for announcement
	MsgIDHash uint16 // sender-chosen announcement identifier
	Origin    string // textual origin address from the header
	SDP       string // payload with any MIME prefix stripped, lossy UTF-8
}

// StreamID derives the stable registry key for this announcement:
// origin address plus the message-id hash as four lowercase hex digits.
func (p *Packet) StreamID() string {
	return fmt.Sprintf("%s:%04x", p.Origin, p.MsgIDHash)
}

// Decode parses a raw SAP datagram. sender is the UDP source address of
// the datagram and is used as the origin fallback when the in-header
// origin bytes do not parse.
func Decode(data []byte, sender netip.Addr) (*Packet, error) {
	if len(data) < 8 {
		return nil, ErrTooShort
	}

	b0 := data[0]
	version := (b0 >> 5) & 0x07
	if version != Version {
		return nil, fmt.Errorf("%w: got %d", ErrVersion, version)
	}
	if b0&(flagEncrypted|flagCompressed) != 0 {
		return nil, ErrUnsupported
	}

	p := &Packet{
		Version:   version,
		IPv6:      b0&flagIPv6 != 0,
		Deletion:  b0&flagDeletion != 0,
		MsgIDHash: binary.BigEndian.Uint16(data[2:4]),
	}

	originLen := 4
	if p.IPv6 {
		originLen = 16
	}
	payloadOffset := 4 + originLen
	if len(data) < payloadOffset {
		return nil, ErrTruncated
	}

	if addr, ok := netip.AddrFromSlice(data[4 : 4+originLen]); ok {
		p.Origin = addr.String()
	} else {
		p.Origin = sender.String()
	}

	authLen := int(data[1])
	payloadOffset += authLen * 4
	if payloadOffset >= len(data) {
		return nil, ErrTruncated
	}

	payload := data[payloadOffset:]
	payload = stripMIME(payload)

	// Lossy decode: invalid UTF-8 sequences are replaced, never fatal.
	p.SDP = strings.ToValidUTF8(string(payload), "�")

	return p, nil
}

// stripMIME removes a leading NUL-terminated MIME type string when one
// occurs within the scan limit. Everything after the NUL is payload.
func stripMIME(payload []byte) []byte {
	limit := len(payload)
	if limit > mimeScanLimit {
		limit = mimeScanLimit
	}
	for i := 0; i < limit; i++ {
		if payload[i] == 0 {
			return payload[i+1:]
		}
	}
	return payload
}

// Encode serialises an IPv4 SAP frame carrying sdp as its payload,
// prefixed with the "application/sdp" MIME marker. Zero authentication
// data is written. The caller owns the returned slice.
func Encode(sdp string, origin netip.Addr, msgIDHash uint16, deletion bool) []byte {
	buf := make([]byte, 0, 8+len(mimeSDP)+1+len(sdp))

	b0 := byte(Version << 5)
	if deletion {
		b0 |= flagDeletion
	}
	buf = append(buf, b0, 0) // flags, auth length
	buf = binary.BigEndian.AppendUint16(buf, msgIDHash)

	v4 := origin.As4()
	buf = append(buf, v4[:]...)

	buf = append(buf, mimeSDP...)
	buf = append(buf, 0)
	buf = append(buf, sdp...)
	return buf
}
