package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics содержит метрики realtime-сервиса.
type Metrics struct {
	ConnectionsActive prometheus.Gauge
	FramesReceived    *prometheus.CounterVec
	FramesSent        *prometheus.CounterVec
	FramesDropped     *prometheus.CounterVec
	AuthFailures      prometheus.Counter

	ReportsFiled      prometheus.Counter
	PostsHidden       prometheus.Counter
	ModerationActions *prometheus.CounterVec
	VotesCast         prometheus.Counter
}

// New создает метрики и регистрирует их в reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ConnectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ws_connections_active",
			Help: "Number of open websocket connections",
		}),
		FramesReceived: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ws_frames_received_total",
				Help: "Inbound websocket frames by message kind",
			},
			[]string{"kind"},
		),
		FramesSent: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ws_frames_sent_total",
				Help: "Outbound frames queued for delivery by message type",
			},
			[]string{"type"},
		),
		FramesDropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ws_frames_dropped_total",
				Help: "Outbound frames dropped because the connection was closed or saturated",
			},
			[]string{"type"},
		),
		AuthFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ws_auth_failures_total",
			Help: "Rejected authenticate messages",
		}),
		ReportsFiled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "forum_reports_filed_total",
			Help: "Accepted post reports",
		}),
		PostsHidden: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "forum_posts_hidden_total",
			Help: "Posts hidden after crossing the report threshold",
		}),
		ModerationActions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forum_moderation_actions_total",
				Help: "Admin moderation actions by kind",
			},
			[]string{"action"},
		),
		VotesCast: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "forum_poll_votes_total",
			Help: "Poll votes cast or changed",
		}),
	}

	reg.MustRegister(
		m.ConnectionsActive,
		m.FramesReceived,
		m.FramesSent,
		m.FramesDropped,
		m.AuthFailures,
		m.ReportsFiled,
		m.PostsHidden,
		m.ModerationActions,
		m.VotesCast,
	)
	return m
}

// NewUnregistered создает метрики в отдельном реестре (для тестов и утилит).
func NewUnregistered() *Metrics {
	return New(prometheus.NewRegistry())
}
