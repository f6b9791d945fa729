// Package announce sends SMPTE ST 2110-30 compliant SAP/SDP
// announcements, used to exercise stream discovery on a quiet network.
package announce

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"net"
	"net/netip"
	"strings"
	"time"

	"golang.org/x/net/ipv4"

	"icc.tech/aes67-agent/internal/sap"
)

// multicastTTL keeps test announcements within the local site.
const multicastTTL = 4

// standardConfigs maps common channel counts to their SMPTE 2110
// grouping symbol.
var standardConfigs = map[int]string{
	1: "M",
	2: "ST",
	6: "51",
	8: "71",
}

// Options describe the announced stream.
type Options struct {
	SessionName string
	SessionInfo string

	MulticastAddr string
	Port          int
	SampleRate    int
	Channels      int
	Encoding      string  // L16 or L24
	PTime         float64 // ms

	OriginIP       string
	PTPGrandmaster string
	PTPDomain      int

	// ChannelConfig overrides the derived grouping symbols, e.g.
	// "51,ST" for eight channels as 5.1 plus a stereo pair.
	ChannelConfig string

	// Destination of the SAP datagrams.
	SAPAddr string
	SAPPort int
}

func (o Options) withDefaults() Options {
	if o.SessionName == "" {
		o.SessionName = "Test Stream"
	}
	if o.MulticastAddr == "" {
		o.MulticastAddr = "239.69.1.100"
	}
	if o.Port == 0 {
		o.Port = 5004
	}
	if o.SampleRate == 0 {
		o.SampleRate = 48000
	}
	if o.Channels == 0 {
		o.Channels = 2
	}
	if o.Encoding == "" {
		o.Encoding = "L24"
	}
	if o.PTime == 0 {
		o.PTime = 1.0
	}
	if o.OriginIP == "" {
		o.OriginIP = "192.168.1.100"
	}
	if o.PTPGrandmaster == "" {
		o.PTPGrandmaster = "00-00-00-00-00-00-00-00"
	}
	if o.SAPAddr == "" {
		o.SAPAddr = sap.AddrAdmin
	}
	if o.SAPPort == 0 {
		o.SAPPort = sap.Port
	}
	return o
}

// ChannelOrder derives the SMPTE 2110 channel-order symbol list for a
// channel count: the standard grouping when one exists, otherwise
// per-channel mono symbols.
func ChannelOrder(channels int, override string) string {
	if override != "" {
		return override
	}
	if cfg, ok := standardConfigs[channels]; ok {
		return cfg
	}
	symbols := make([]string, channels)
	for i := range symbols {
		symbols[i] = "M"
	}
	return strings.Join(symbols, ",")
}

// BuildSDP renders the RFC 8866 session description for o, with the
// ST 2110-10/30 attributes (ptime, channel-order, mediaclk:direct=0,
// ts-refclk) and CRLF line endings.
func BuildSDP(o Options, sessionID int64) string {
	o = o.withDefaults()
	pt := 96

	var b strings.Builder
	line := func(format string, args ...any) {
		fmt.Fprintf(&b, format, args...)
		b.WriteString("\r\n")
	}

	line("v=0")
	line("o=- %d %d IN IP4 %s", sessionID, sessionID, o.OriginIP)
	line("s=%s", o.SessionName)
	if o.SessionInfo != "" {
		line("i=%s", o.SessionInfo)
	}
	line("c=IN IP4 %s/32", o.MulticastAddr)
	line("t=0 0")
	line("m=audio %d RTP/AVP %d", o.Port, pt)
	line("a=rtpmap:%d %s/%d/%d", pt, o.Encoding, o.SampleRate, o.Channels)
	line("a=ptime:%g", o.PTime)
	line("a=fmtp:%d channel-order=SMPTE2110.(%s)", pt, ChannelOrder(o.Channels, o.ChannelConfig))
	// ST 2110 mandates a media clock directly referenced to PTP with
	// zero offset, and the PTP reference clock identity.
	line("a=mediaclk:direct=0")
	line("a=ts-refclk:ptp=IEEE1588-2008:%s:%d", o.PTPGrandmaster, o.PTPDomain)

	return b.String()
}

// Announcer repeatedly sends the SAP frame for one session. The
// message-id hash is fixed per Announcer so receivers update a single
// stream instead of accumulating duplicates.
type Announcer struct {
	opts      Options
	sessionID int64
	msgID     uint16
	dest      *net.UDPAddr
}

// New creates an announcer with a random session id and message-id
// hash.
func New(opts Options) (*Announcer, error) {
	opts = opts.withDefaults()

	dest := net.ParseIP(opts.SAPAddr)
	if dest == nil || dest.To4() == nil {
		return nil, fmt.Errorf("invalid sap destination %q", opts.SAPAddr)
	}
	if origin := net.ParseIP(opts.OriginIP); origin == nil || origin.To4() == nil {
		return nil, fmt.Errorf("invalid origin address %q", opts.OriginIP)
	}

	return &Announcer{
		opts:      opts,
		sessionID: rand.Int63n(900000) + 100000,
		msgID:     uint16(rand.Uint32()),
		dest:      &net.UDPAddr{IP: dest, Port: opts.SAPPort},
	}, nil
}

// Options returns the announcer's effective (defaulted) options.
func (a *Announcer) Options() Options { return a.opts }

// MsgID returns the announcement's message-id hash.
func (a *Announcer) MsgID() uint16 { return a.msgID }

// SDP renders the current session description.
func (a *Announcer) SDP() string {
	return BuildSDP(a.opts, a.sessionID)
}

// Send transmits one announcement (or deletion) frame and returns its
// size in bytes.
func (a *Announcer) Send(deletion bool) (int, error) {
	origin, err := netip.ParseAddr(a.opts.OriginIP)
	if err != nil {
		return 0, fmt.Errorf("origin address: %w", err)
	}

	frame := sap.Encode(a.SDP(), origin.Unmap(), a.msgID, deletion)

	conn, err := net.ListenPacket("udp4", ":0")
	if err != nil {
		return 0, fmt.Errorf("open announce socket: %w", err)
	}
	defer conn.Close()

	p := ipv4.NewPacketConn(conn)
	p.SetMulticastTTL(multicastTTL)
	p.SetMulticastLoopback(true)

	if _, err := conn.WriteTo(frame, a.dest); err != nil {
		return 0, fmt.Errorf("send announcement: %w", err)
	}
	return len(frame), nil
}

// Run sends announcements every interval until count frames have been
// sent (count <= 0 = until cancelled) or the context ends. An interval
// of zero sends a single frame.
func (a *Announcer) Run(ctx context.Context, interval time.Duration, count int, deletion bool) (int, error) {
	sent := 0
	for {
		n, err := a.Send(deletion)
		if err != nil {
			return sent, err
		}
		sent++
		slog.Info("sap announcement sent", "bytes", n, "count", sent,
			"session", a.opts.SessionName, "deletion", deletion)

		if interval <= 0 || (count > 0 && sent >= count) {
			return sent, nil
		}
		select {
		case <-ctx.Done():
			return sent, ctx.Err()
		case <-time.After(interval):
		}
	}
}
