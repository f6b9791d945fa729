package sdp

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fullSDP = "v=0\r\n" +
	"o=- 123456 1 IN IP4 192.168.1.10\r\n" +
	"s=Studio A Mix\r\n" +
	"i=Main program feed\r\n" +
	"c=IN IP4 239.1.1.1/32\r\n" +
	"t=0 0\r\n" +
	"m=audio 5004 RTP/AVP 96\r\n" +
	"a=rtpmap:96 L24/48000/2\r\n" +
	"a=ptime:1\r\n" +
	"a=mediaclk:direct=0\r\n" +
	"a=ts-refclk:ptp=IEEE1588-2008:00-11-22-ff-fe-33-44-55:0\r\n"

func TestParseFullDescriptor(t *testing.T) {
	d := Parse(fullSDP)
	require.NotNil(t, d)

	assert.Equal(t, "Studio A Mix", d.SessionName)
	assert.Equal(t, "123456", d.SessionID)
	assert.Equal(t, "1", d.SessionVersion)
	assert.Equal(t, "192.168.1.10", d.OriginAddr)
	assert.Equal(t, "Main program feed", d.SessionInfo)
	assert.Equal(t, "239.1.1.1", d.MulticastAddr)
	assert.Equal(t, 5004, d.Port)
	assert.Equal(t, 96, d.PayloadType)
	assert.Equal(t, "L24", d.Encoding)
	assert.Equal(t, 48000, d.SampleRate)
	assert.Equal(t, 2, d.Channels)
	assert.Equal(t, 1.0, d.PTime)
	assert.Equal(t, 48, d.SamplesPerPacket)
	assert.Equal(t, []string{"L", "R"}, d.ChannelLabels)
	assert.Equal(t, "00-11-22-FF-FE-33-44-55", d.PTPGrandmaster)
	assert.Equal(t, 0, d.PTPDomain)
	assert.True(t, d.ST2110Compliant)
	assert.Equal(t, "A", d.ConformanceLevel)
	assert.Equal(t, fullSDP, d.RawSDP)
}

func TestParseAcceptsBareLF(t *testing.T) {
	d := Parse(strings.ReplaceAll(fullSDP, "\r\n", "\n"))
	require.NotNil(t, d)
	assert.Equal(t, "239.1.1.1", d.MulticastAddr)
	assert.Equal(t, 5004, d.Port)
}

func TestParseMissingConnectionLine(t *testing.T) {
	text := "v=0\r\n" +
		"s=No Address\r\n" +
		"m=audio 5004 RTP/AVP 96\r\n"
	assert.Nil(t, Parse(text))
}

func TestParseMissingAudioSection(t *testing.T) {
	text := "v=0\r\n" +
		"s=No Media\r\n" +
		"c=IN IP4 239.1.1.1\r\n"
	assert.Nil(t, Parse(text))
}

func TestParseDefaultsWithoutAttributes(t *testing.T) {
	text := "v=0\r\n" +
		"s=Minimal\r\n" +
		"c=IN IP4 239.1.1.1\r\n" +
		"m=audio 5004 RTP/AVP 97\r\n"

	d := Parse(text)
	require.NotNil(t, d)
	assert.Equal(t, 97, d.PayloadType)
	assert.Equal(t, 48000, d.SampleRate)
	assert.Equal(t, 2, d.Channels)
	assert.Equal(t, 1.0, d.PTime)
	assert.Equal(t, 48, d.SamplesPerPacket)
	assert.Equal(t, []string{"L", "R"}, d.ChannelLabels)
}

func TestParseSSMSourceFilter(t *testing.T) {
	text := "v=0\r\n" +
		"s=SSM Stream\r\n" +
		"c=IN IP4 232.1.1.1\r\n" +
		"m=audio 5004 RTP/AVP 96\r\n" +
		"a=source-filter: incl IN IP4 232.1.1.1 192.168.1.20\r\n"

	d := Parse(text)
	require.NotNil(t, d)
	assert.True(t, d.IsSSM)
	assert.Equal(t, "192.168.1.20", d.SourceAddr)
}

func TestParseChannelOrder(t *testing.T) {
	text := "v=0\r\n" +
		"s=Surround\r\n" +
		"c=IN IP4 239.1.1.1\r\n" +
		"m=audio 5004 RTP/AVP 96\r\n" +
		"a=rtpmap:96 L24/48000/8\r\n" +
		"a=fmtp:96 channel-order=SMPTE2110.(51,ST)\r\n"

	d := Parse(text)
	require.NotNil(t, d)
	assert.Equal(t, 8, d.Channels)
	assert.Equal(t, "SMPTE2110.(51,ST)", d.ChannelOrderRaw)
	assert.Equal(t, []string{"L", "R", "C", "LFE", "Ls", "Rs", "L", "R"}, d.ChannelLabels)
}

func TestParseRtpmapWithoutChannelCount(t *testing.T) {
	text := "v=0\r\n" +
		"s=Implicit Stereo\r\n" +
		"c=IN IP4 239.1.1.1\r\n" +
		"m=audio 5004 RTP/AVP 96\r\n" +
		"a=rtpmap:96 L16/44100\r\n"

	d := Parse(text)
	require.NotNil(t, d)
	assert.Equal(t, "L16", d.Encoding)
	assert.Equal(t, 44100, d.SampleRate)
	assert.Equal(t, 2, d.Channels)
}

func TestParsePTimeDerivesSamplesPerPacket(t *testing.T) {
	text := "v=0\r\n" +
		"s=Short Packet\r\n" +
		"c=IN IP4 239.1.1.1\r\n" +
		"m=audio 5004 RTP/AVP 96\r\n" +
		"a=rtpmap:96 L24/96000/4\r\n" +
		"a=ptime:0.125\r\n"

	d := Parse(text)
	require.NotNil(t, d)
	assert.Equal(t, 0.125, d.PTime)
	assert.Equal(t, 12, d.SamplesPerPacket)
	assert.Equal(t, "BX", d.ConformanceLevel)
}

func TestParseIgnoresNonAudioAttributes(t *testing.T) {
	// The video section's attributes must not leak into the audio
	// descriptor.
	text := "v=0\r\n" +
		"s=Mixed Media\r\n" +
		"c=IN IP4 239.1.1.1\r\n" +
		"m=audio 5004 RTP/AVP 96\r\n" +
		"a=rtpmap:96 L24/48000/2\r\n" +
		"m=video 5006 RTP/AVP 112\r\n" +
		"a=rtpmap:112 raw/90000\r\n"

	d := Parse(text)
	require.NotNil(t, d)
	assert.Equal(t, 5004, d.Port)
	assert.Equal(t, "L24", d.Encoding)
	assert.Equal(t, 48000, d.SampleRate)
}

func TestParseGarbageInput(t *testing.T) {
	assert.Nil(t, Parse(""))
	assert.Nil(t, Parse("not sdp at all"))
	assert.Nil(t, Parse("v=0\r\nx\r\n=\r\na=\r\n"))
}
