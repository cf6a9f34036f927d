// Package metrics defines the Prometheus instrumentation of the link layer.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// PacketsReceivedTotal counts decoded inbound packets by message name.
	PacketsReceivedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "glink_packets_received_total",
			Help: "Total number of decoded MAVLink packets received.",
		},
		[]string{"message"},
	)

	// PacketsDroppedTotal counts inbound packets dropped before dispatch.
	// reason: parse_error, signature_mismatch
	PacketsDroppedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "glink_packets_dropped_total",
			Help: "Total number of inbound packets dropped before dispatch.",
		},
		[]string{"reason"},
	)

	// CommandsTotal counts issued vehicle commands by outcome.
	// status: accepted, denied, timeout, error
	CommandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "glink_commands_total",
			Help: "Total number of vehicle commands issued.",
		},
		[]string{"command", "status"},
	)

	// CommandLatency records the time from command send to settlement.
	CommandLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "glink_command_latency_seconds",
			Help:    "Latency from command send to acknowledgement or denial.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"command"},
	)

	// VehiclesDiscovered tracks the number of vehicle sessions on the
	// current connection.
	VehiclesDiscovered = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "glink_vehicles_discovered",
			Help: "Number of vehicle sessions on the current connection.",
		},
	)

	// ExpectationsPending tracks the number of pending command expectations.
	ExpectationsPending = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "glink_expectations_pending",
			Help: "Number of command expectations awaiting a reply.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		PacketsReceivedTotal,
		PacketsDroppedTotal,
		CommandsTotal,
		CommandLatency,
		VehiclesDiscovered,
		ExpectationsPending,
	)
}
