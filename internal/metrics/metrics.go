// Package metrics implements Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SAPPacketsReceivedTotal counts all datagrams read from the SAP socket
	SAPPacketsReceivedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "aes67_agent_sap_packets_received_total",
			Help: "Total number of SAP datagrams received",
		},
	)

	// SAPPacketsInvalidTotal counts datagrams dropped before SDP parsing
	SAPPacketsInvalidTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aes67_agent_sap_packets_invalid_total",
			Help: "Total number of SAP datagrams dropped as invalid",
		},
		[]string{"reason"},
	)

	// SAPAnnouncementsTotal counts announcements for new stream IDs
	SAPAnnouncementsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "aes67_agent_sap_announcements_total",
			Help: "Total number of new stream announcements processed",
		},
	)

	// SAPDeletionsTotal counts explicit SAP deletions for known streams
	SAPDeletionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "aes67_agent_sap_deletions_total",
			Help: "Total number of SAP deletions processed",
		},
	)

	// SDPParseErrorsTotal counts announcement payloads that failed SDP parsing
	SDPParseErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "aes67_agent_sdp_parse_errors_total",
			Help: "Total number of SDP payloads that could not be parsed",
		},
	)

	// ActiveStreams tracks the current number of active discovered streams
	ActiveStreams = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "aes67_agent_active_streams",
			Help: "Current number of active discovered streams",
		},
	)
)
