package bancho

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the prometheus collectors the server feeds. Everything
// registers on the default registry, scraped through /metrics.
type Metrics struct {
	OnlineUsers   prometheus.Gauge
	ActiveMatches prometheus.Gauge
	LoginsTotal   prometheus.Counter
	PacketsTotal  *prometheus.CounterVec
	MessagesTotal prometheus.Counter
	PubSubTotal   *prometheus.CounterVec
}

// NewMetrics registers the collector set on reg and returns it. Tests
// pass a fresh registry so repeated construction does not collide.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		OnlineUsers: factory.NewGauge(prometheus.GaugeOpts{
			Name: "bancho_online_users",
			Help: "Number of currently connected sessions",
		}),
		ActiveMatches: factory.NewGauge(prometheus.GaugeOpts{
			Name: "bancho_active_matches",
			Help: "Number of live multiplayer rooms",
		}),
		LoginsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "bancho_logins_total",
			Help: "Total number of successful logins",
		}),
		PacketsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bancho_packets_total",
			Help: "Total number of client packets handled, by packet id",
		}, []string{"id"}),
		MessagesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "bancho_chat_messages_total",
			Help: "Total number of chat messages delivered",
		}),
		PubSubTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bancho_pubsub_events_total",
			Help: "Total number of redis pubsub events handled, by channel",
		}, []string{"channel"}),
	}
}
