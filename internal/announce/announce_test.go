package announce

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"icc.tech/aes67-agent/internal/sap"
	"icc.tech/aes67-agent/internal/sdp"
)

func TestChannelOrder(t *testing.T) {
	assert.Equal(t, "M", ChannelOrder(1, ""))
	assert.Equal(t, "ST", ChannelOrder(2, ""))
	assert.Equal(t, "51", ChannelOrder(6, ""))
	assert.Equal(t, "71", ChannelOrder(8, ""))
	assert.Equal(t, "M,M,M", ChannelOrder(3, ""))
	assert.Equal(t, "51,ST", ChannelOrder(8, "51,ST"))
}

func TestBuildSDPParsesBack(t *testing.T) {
	text := BuildSDP(Options{
		SessionName:    "Announce Test",
		SessionInfo:    "two channels",
		MulticastAddr:  "239.69.10.1",
		Port:           5004,
		SampleRate:     48000,
		Channels:       2,
		Encoding:       "L24",
		PTime:          1.0,
		OriginIP:       "192.168.10.5",
		PTPGrandmaster: "00-11-22-FF-FE-33-44-55",
		PTPDomain:      0,
	}, 123456)

	d := sdp.Parse(text)
	require.NotNil(t, d)

	assert.Equal(t, "Announce Test", d.SessionName)
	assert.Equal(t, "two channels", d.SessionInfo)
	assert.Equal(t, "123456", d.SessionID)
	assert.Equal(t, "192.168.10.5", d.OriginAddr)
	assert.Equal(t, "239.69.10.1", d.MulticastAddr)
	assert.Equal(t, 5004, d.Port)
	assert.Equal(t, "L24", d.Encoding)
	assert.Equal(t, 48000, d.SampleRate)
	assert.Equal(t, 2, d.Channels)
	assert.Equal(t, 1.0, d.PTime)
	assert.Equal(t, []string{"L", "R"}, d.ChannelLabels)
	assert.Equal(t, "00-11-22-FF-FE-33-44-55", d.PTPGrandmaster)
	assert.True(t, d.ST2110Compliant)
	assert.Equal(t, "A", d.ConformanceLevel)
}

func TestBuildSDPSurroundChannelConfig(t *testing.T) {
	text := BuildSDP(Options{
		SessionName:   "Surround",
		Channels:      8,
		ChannelConfig: "51,ST",
	}, 1)

	assert.Contains(t, text, "channel-order=SMPTE2110.(51,ST)")

	d := sdp.Parse(text)
	require.NotNil(t, d)
	assert.Equal(t, []string{"L", "R", "C", "LFE", "Ls", "Rs", "L", "R"}, d.ChannelLabels)
}

func TestNewValidatesAddresses(t *testing.T) {
	_, err := New(Options{SAPAddr: "bogus"})
	assert.Error(t, err)

	_, err = New(Options{OriginIP: "bogus"})
	assert.Error(t, err)

	a, err := New(Options{})
	require.NoError(t, err)
	assert.Equal(t, sap.AddrAdmin, a.Options().SAPAddr)
	assert.Equal(t, sap.Port, a.Options().SAPPort)
}

// The SAP frame carries a 4-byte origin, so an IPv6 origin must be
// rejected up front instead of blowing up when the frame is built.
func TestNewRejectsIPv6Origin(t *testing.T) {
	_, err := New(Options{OriginIP: "2001:db8::1"})
	assert.Error(t, err)

	_, err = New(Options{SAPAddr: "ff02::2:7ffe"})
	assert.Error(t, err)
}

func TestAnnouncerFrameRoundTrip(t *testing.T) {
	a, err := New(Options{SessionName: "Frame Test", MulticastAddr: "239.69.10.2"})
	require.NoError(t, err)

	origin := netip.MustParseAddr(a.Options().OriginIP)
	frame := sap.Encode(a.SDP(), origin, a.MsgID(), false)

	pkt, err := sap.Decode(frame, origin)
	require.NoError(t, err)
	assert.Equal(t, a.MsgID(), pkt.MsgIDHash)
	assert.False(t, pkt.Deletion)

	d := sdp.Parse(pkt.SDP)
	require.NotNil(t, d)
	assert.Equal(t, "Frame Test", d.SessionName)
	assert.Equal(t, "239.69.10.2", d.MulticastAddr)
}
