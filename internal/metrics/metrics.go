package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "roomrelay_sessions_active",
		Help: "The current number of admitted signaling sessions.",
	})
	Admissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "roomrelay_admissions_total",
		Help: "Connection attempts by outcome (admitted or rejection reason).",
	}, []string{"result"})
	Messages = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "roomrelay_messages_total",
		Help: "Inbound messages by outcome (accepted, control or rejection reason).",
	}, []string{"result"})
	Deliveries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "roomrelay_deliveries_total",
		Help: "Messages queued to recipients by the broadcast router.",
	})
	Skipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "roomrelay_deliveries_skipped_total",
		Help: "Recipients skipped because their connection was not writable.",
	})
	AbuseNotices = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "roomrelay_abuse_notices_total",
		Help: "Abuse notices reported, by reason.",
	}, []string{"reason"})
	AbuseDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "roomrelay_abuse_notices_dropped_total",
		Help: "Abuse notices dropped because the telemetry queue was full.",
	})
	AttemptEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "roomrelay_attempt_entries",
		Help: "Per-address connection attempt windows currently tracked.",
	})
)
