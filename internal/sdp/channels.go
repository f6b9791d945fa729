package sdp

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// channelGroups maps SMPTE ST 2110-30 channel grouping symbols
// (Table 1) to their ordered per-channel role labels.
var channelGroups = map[string][]string{
	"M":    {"M"},                      // Mono
	"DM":   {"M1", "M2"},               // Dual Mono
	"ST":   {"L", "R"},                 // Stereo
	"LtRt": {"Lt", "Rt"},               // Matrix Stereo
	"51":   {"L", "R", "C", "LFE", "Ls", "Rs"},
	"71":   {"L", "R", "C", "LFE", "Lss", "Rss", "Lrs", "Rrs"},
	"222": {"L", "R", "C", "LFE", "Lss", "Rss", "Lrs", "Rrs",
		"Tfl", "Tfr", "Tfc", "Tsl", "Tsr", "Tbl", "Tbr",
		"Tbc", "Ltf", "Rtf", "Ltr", "Rtr", "Lw", "Rw", "LFE2", "Cb"},
	"SGRP": {"St1L", "St1R", "St2L", "St2R"}, // SDI stereo group
}

var (
	symbolListRe = regexp.MustCompile(`\(([^)]+)\)`)
	undefinedRe  = regexp.MustCompile(`^U(\d+)$`)
	tsRefClkRe   = regexp.MustCompile(`ptp=IEEE1588-\d+:([0-9A-Fa-f-]+):(\d+)`)
	mediaClkRe   = regexp.MustCompile(`^direct=(\d+)`)
)

// ExpandChannelOrder expands a channel-order attribute value such as
// "SMPTE2110.(51,ST)" into the concatenated per-channel labels of its
// symbols, here ["L","R","C","LFE","Ls","Rs","L","R"]. Undefined
// groups U<n> expand to n sequential placeholders; unknown symbols are
// kept literally as a single label.
func ExpandChannelOrder(raw string) []string {
	m := symbolListRe.FindStringSubmatch(raw)
	if m == nil {
		return nil
	}

	var labels []string
	for _, symbol := range strings.Split(m[1], ",") {
		symbol = strings.TrimSpace(symbol)
		switch {
		case symbol == "":
		case undefinedRe.MatchString(symbol):
			count, _ := strconv.Atoi(symbol[1:])
			for i := 0; i < count; i++ {
				labels = append(labels, fmt.Sprintf("U%d", len(labels)+1))
			}
		default:
			if group, ok := channelGroups[symbol]; ok {
				labels = append(labels, group...)
			} else {
				labels = append(labels, symbol)
			}
		}
	}
	return labels
}

// ptimeTolerance is the slack for packet-time comparisons, in ms.
const ptimeTolerance = 0.01

// ConformanceLevel classifies a stream per ST 2110-30:
//
//	A:  1-8  ch, 1 ms,     48/44.1 kHz (also AES67)
//	B:  1-8  ch, 0.125 ms, 48/44.1 kHz
//	C:  1-64 ch, 0.125 ms, 48/44.1 kHz
//	AX: 1-4  ch, 1 ms,     96 kHz
//	BX: 1-4  ch, 0.125 ms, 96 kHz
//	CX: 1-32 ch, 0.125 ms, 96 kHz
//
// Returns "" for non-conformant combinations.
func ConformanceLevel(channels int, ptimeMs float64, sampleRate int) string {
	is1ms := abs(ptimeMs-1.0) < ptimeTolerance
	is125us := abs(ptimeMs-0.125) < ptimeTolerance

	if sampleRate == 96000 {
		switch {
		case is1ms && channels <= 4:
			return "AX"
		case is125us && channels <= 4:
			return "BX"
		case is125us && channels <= 32:
			return "CX"
		}
		return ""
	}

	switch {
	case is1ms && channels <= 8:
		return "A"
	case is125us && channels <= 8:
		return "B"
	case is125us && channels <= 64:
		return "C"
	}
	return ""
}

// ParseTSRefClk extracts the PTP grandmaster identity and domain from a
// ts-refclk attribute value of the form
// "ptp=IEEE1588-2008:00-11-22-FF-FE-33-44-55:0". The grandmaster is
// uppercased. Returns ("", 0) when the value is not a PTP reference.
func ParseTSRefClk(value string) (grandmaster string, domain int) {
	m := tsRefClkRe.FindStringSubmatch(value)
	if m == nil {
		return "", 0
	}
	domain, _ = strconv.Atoi(m[2])
	return strings.ToUpper(m[1]), domain
}

// ParseMediaClk inspects a mediaclk attribute value. ST 2110 requires
// "direct=0": a direct media clock with zero offset from PTP. Returns
// the compliance flag and the parsed offset, -1 when absent.
func ParseMediaClk(value string) (compliant bool, offset int) {
	m := mediaClkRe.FindStringSubmatch(value)
	if m == nil {
		return false, -1
	}
	offset, _ = strconv.Atoi(m[1])
	return offset == 0, offset
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
