// Prometheus collectors for the HAN decoding pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Reasons a frame can be dropped after framing.
const (
	DropChecksum    = "checksum"
	DropMalformed   = "malformed"
	DropUnsupported = "unsupported"
)

var (
	FramesReceived = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "han_frames_received_total",
		Help: "HDLC frames delimited by the framer.",
	})
	FramesDropped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "han_frames_dropped_total",
		Help: "Frames discarded by the decoder, by reason.",
	}, []string{"reason"})
	FramerResyncs = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "han_framer_resyncs_total",
		Help: "Times the framer abandoned a frame and resynchronised on the next flag.",
	})
	FramerOverflows = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "han_framer_overflows_total",
		Help: "Frames that announced more than the maximum frame length.",
	})
	RecordsDispatched = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "han_records_dispatched_total",
		Help: "OBIS records handed to the dispatcher.",
	})
	ListenerFaults = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "han_listener_faults_total",
		Help: "Listener invocations that returned an error or panicked.",
	})
	LinkBytesDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "han_link_bytes_dropped_total",
		Help: "Bytes dropped because the link receive queue was full.",
	})
	LinkReconnects = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "han_link_reconnects_total",
		Help: "Times the serial link was reopened after a failure.",
	})
)

func init() {
	prometheus.MustRegister(
		FramesReceived,
		FramesDropped,
		FramerResyncs,
		FramerOverflows,
		RecordsDispatched,
		ListenerFaults,
		LinkBytesDropped,
		LinkReconnects,
	)
}

// Handler serves the default registry for /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
