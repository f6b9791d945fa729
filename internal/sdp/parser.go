package sdp

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	rtpmapRe       = regexp.MustCompile(`^rtpmap:(\d+)\s+(\w+)/(\d+)(?:/(\d+))?`)
	sourceFilterRe = regexp.MustCompile(`incl\s+IN\s+IP\d\s+\S+\s+(\S+)`)
	channelOrderRe = regexp.MustCompile(`channel-order=(\S+\.\([^)]+\))`)
)

// Parse builds a Descriptor from SDP text. It never panics on
// malformed input; it returns nil when the payload lacks a multicast
// address or a usable port, the minimum needed to receive the stream.
//
// Both CRLF and bare LF line endings are accepted (RFC 8866 §5), lines
// are trimmed and anything shorter than "x=y" is skipped. Only the
// audio media section contributes a= attributes; other media types end
// audio attribute parsing.
func Parse(text string) *Descriptor {
	d := newDescriptor(text)
	inAudio := false

	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		line = strings.TrimSpace(line)
		if len(line) < 3 || line[1] != '=' {
			continue
		}

		value := line[2:]
		switch line[0] {
		case 'o':
			// o=<username> <sess-id> <sess-version> <nettype> <addrtype> <addr>
			parts := strings.Fields(value)
			if len(parts) >= 6 {
				d.SessionID = parts[1]
				d.SessionVersion = parts[2]
				d.OriginAddr = parts[5]
			}

		case 's':
			d.SessionName = value

		case 'i':
			d.SessionInfo = value

		case 'c':
			// c=<nettype> <addrtype> <connection-address>[/<ttl>][/<num>]
			parts := strings.Fields(value)
			if len(parts) >= 3 {
				addr, _, _ := strings.Cut(parts[2], "/")
				d.MulticastAddr = addr
			}

		case 'm':
			parts := strings.Fields(value)
			if len(parts) >= 4 && parts[0] == "audio" {
				inAudio = true
				d.Port, _ = strconv.Atoi(parts[1])
				d.PayloadType, _ = strconv.Atoi(parts[3])
			} else {
				inAudio = false
			}

		case 'a':
			if inAudio {
				parseAudioAttribute(d, value)
			}
		}
	}

	if d.MulticastAddr == "" || d.Port <= 0 {
		return nil
	}

	applyDefaults(d)
	return d
}

// parseAudioAttribute handles one a= line inside the audio media section.
func parseAudioAttribute(d *Descriptor, value string) {
	switch {
	case strings.HasPrefix(value, "rtpmap:"):
		// a=rtpmap:<pt> <encoding>/<clock>[/<channels>]
		m := rtpmapRe.FindStringSubmatch(value)
		if m != nil {
			d.PayloadType, _ = strconv.Atoi(m[1])
			d.Encoding = m[2]
			d.SampleRate, _ = strconv.Atoi(m[3])
			if m[4] != "" {
				d.Channels, _ = strconv.Atoi(m[4])
			} else {
				d.Channels = 2
			}
		}

	case strings.HasPrefix(value, "ptime:"):
		if ptime, err := strconv.ParseFloat(value[len("ptime:"):], 64); err == nil {
			d.PTime = ptime
			if d.SampleRate > 0 {
				d.SamplesPerPacket = int(math.Round(float64(d.SampleRate) * ptime / 1000))
			}
		}

	case strings.HasPrefix(value, "source-filter:"):
		// a=source-filter: incl IN IP4 <dest> <source>
		m := sourceFilterRe.FindStringSubmatch(value)
		if m != nil {
			d.SourceAddr = m[1]
			d.IsSSM = true
		}

	case strings.HasPrefix(value, "mediaclk:"):
		d.MediaClk = value[len("mediaclk:"):]
		d.ST2110Compliant, d.MediaClkOffset = ParseMediaClk(d.MediaClk)

	case strings.HasPrefix(value, "ts-refclk:"):
		d.TSRefClk = value[len("ts-refclk:"):]
		d.PTPGrandmaster, d.PTPDomain = ParseTSRefClk(d.TSRefClk)

	case strings.HasPrefix(value, "fmtp:"):
		m := channelOrderRe.FindStringSubmatch(value)
		if m != nil {
			d.ChannelOrderRaw = m[1]
			d.ChannelLabels = ExpandChannelOrder(d.ChannelOrderRaw)
		}
	}
}

// applyDefaults fills the remaining zero fields once the mandatory
// address and port are known, then derives the conformance level.
func applyDefaults(d *Descriptor) {
	if d.SampleRate == 0 {
		d.SampleRate = 48000
	}
	if d.Channels == 0 {
		d.Channels = 2
	}
	if d.SamplesPerPacket == 0 {
		d.SamplesPerPacket = 48
	}

	if len(d.ChannelLabels) == 0 {
		switch d.Channels {
		case 1:
			d.ChannelLabels = []string{"M"}
		case 2:
			d.ChannelLabels = []string{"L", "R"}
		default:
			labels := make([]string, d.Channels)
			for i := range labels {
				labels[i] = fmt.Sprintf("Ch %d", i+1)
			}
			d.ChannelLabels = labels
		}
	}

	d.ConformanceLevel = ConformanceLevel(d.Channels, d.PTime, d.SampleRate)
}
