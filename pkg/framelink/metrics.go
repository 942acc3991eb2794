package framelink

import "github.com/prometheus/client_golang/prometheus"

const namespace = "cbuf"

// Drop reasons
const (
	ReasonMalformed   = "malformed"
	ReasonMisrouted   = "misrouted"
	ReasonOversize    = "oversize"
	ReasonBacklogFull = "backlog_full"
	ReasonSendError   = "send_error"
)

// Metrics holds per-link frame counters. One instance is shared by every link
// of a host; the link name is a label.
type Metrics struct {
	FramesSent     *prometheus.CounterVec
	FramesReceived *prometheus.CounterVec
	FramesDropped  *prometheus.CounterVec
	BacklogDepth   *prometheus.GaugeVec
}

// NewMetrics creates the collectors and registers them with reg when it is
// not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		FramesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "link",
			Name:      "frames_sent_total",
			Help:      "Frames drained from the send buffer and transmitted",
		}, []string{"link"}),
		FramesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "link",
			Name:      "frames_received_total",
			Help:      "Valid frames received from the peer",
		}, []string{"link"}),
		FramesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "link",
			Name:      "frames_dropped_total",
			Help:      "Frames discarded, by reason",
		}, []string{"link", "reason"}),
		BacklogDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "link",
			Name:      "backlog_frames",
			Help:      "Received frames waiting for room in the receive buffer",
		}, []string{"link"}),
	}
	if reg != nil {
		reg.MustRegister(m.FramesSent, m.FramesReceived, m.FramesDropped, m.BacklogDepth)
	}
	return m
}
