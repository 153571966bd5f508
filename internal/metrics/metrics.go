package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks the messaging and moderation critical paths.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	MessagesSent       *prometheus.CounterVec
	MessagesFlagged    prometheus.Counter
	SendDuration       prometheus.Histogram
	DeliveryFailures   prometheus.Counter
	RoomsOpened        prometheus.Counter
	ReportsFiled       *prometheus.CounterVec
	RoomsEscalated     prometheus.Counter
	ModerationActions  *prometheus.CounterVec
	AutomaticBans      prometheus.Counter
	AppealsFiled       prometheus.Counter
	RateLimitedRequest *prometheus.CounterVec
}

// New registers every metric on reg. Pass prometheus.DefaultRegisterer in
// production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		MessagesSent: f.NewCounterVec(prometheus.CounterOpts{
			Name: "safety_messages_sent_total",
			Help: "Messages persisted, by message type",
		}, []string{"type"}),
		MessagesFlagged: f.NewCounter(prometheus.CounterOpts{
			Name: "safety_messages_flagged_total",
			Help: "Messages that tripped at least one safety detector",
		}),
		SendDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "safety_send_duration_seconds",
			Help:    "Duration of the send transaction",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		DeliveryFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "safety_delivery_failures_total",
			Help: "Best-effort live deliveries that failed",
		}),
		RoomsOpened: f.NewCounter(prometheus.CounterOpts{
			Name: "safety_rooms_opened_total",
			Help: "Rooms created (existing rooms returned are not counted)",
		}),
		ReportsFiled: f.NewCounterVec(prometheus.CounterOpts{
			Name: "safety_reports_filed_total",
			Help: "Reports filed, by report type",
		}, []string{"type"}),
		RoomsEscalated: f.NewCounter(prometheus.CounterOpts{
			Name: "safety_rooms_escalated_total",
			Help: "Rooms moved to reported by the report threshold",
		}),
		ModerationActions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "safety_moderation_actions_total",
			Help: "Ledger entries written, by action",
		}, []string{"action"}),
		AutomaticBans: f.NewCounter(prometheus.CounterOpts{
			Name: "safety_automatic_bans_total",
			Help: "Temporary bans triggered by the strike threshold",
		}),
		AppealsFiled: f.NewCounter(prometheus.CounterOpts{
			Name: "safety_appeals_filed_total",
			Help: "Appeals accepted into pending state",
		}),
		RateLimitedRequest: f.NewCounterVec(prometheus.CounterOpts{
			Name: "safety_rate_limited_requests_total",
			Help: "Requests rejected by the rate limiter, by bucket",
		}, []string{"bucket"}),
	}
}

func (m *Metrics) MessageSent(msgType string, flagged bool, start time.Time) {
	if m == nil {
		return
	}
	m.MessagesSent.WithLabelValues(msgType).Inc()
	if flagged {
		m.MessagesFlagged.Inc()
	}
	m.SendDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) DeliveryFailed() {
	if m == nil {
		return
	}
	m.DeliveryFailures.Inc()
}

func (m *Metrics) RoomOpened() {
	if m == nil {
		return
	}
	m.RoomsOpened.Inc()
}

func (m *Metrics) ReportFiled(reportType string, escalated bool) {
	if m == nil {
		return
	}
	m.ReportsFiled.WithLabelValues(reportType).Inc()
	if escalated {
		m.RoomsEscalated.Inc()
	}
}

func (m *Metrics) ActionRecorded(action string) {
	if m == nil {
		return
	}
	m.ModerationActions.WithLabelValues(action).Inc()
}

func (m *Metrics) AutomaticBan() {
	if m == nil {
		return
	}
	m.AutomaticBans.Inc()
}

func (m *Metrics) AppealFiled() {
	if m == nil {
		return
	}
	m.AppealsFiled.Inc()
}

func (m *Metrics) RateLimited(bucket string) {
	if m == nil {
		return
	}
	m.RateLimitedRequest.WithLabelValues(bucket).Inc()
}
