package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Portal groups the service-level counters.
type Portal struct {
	MessagesSent       prometheus.Counter
	TicketsCreated     prometheus.Counter
	RefreshRuns        prometheus.Counter
	RefreshDuration    prometheus.Observer
	RealtimeClients    prometheus.Gauge
	RealtimeBroadcasts *prometheus.CounterVec
}

var (
	portalOnce sync.Once
	portalInst *Portal
)

// Get returns the process-wide metrics instance.
func Get() *Portal {
	portalOnce.Do(func() {
		portalInst = newPortal()
	})
	return portalInst
}

func newPortal() *Portal {
	return &Portal{
		MessagesSent: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "opsdesk",
			Subsystem: "chat",
			Name:      "messages_sent_total",
			Help:      "Messages accepted by the chat service",
		}),
		TicketsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "opsdesk",
			Subsystem: "tickets",
			Name:      "created_total",
			Help:      "Tickets created through the portal",
		}),
		RefreshRuns: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "opsdesk",
			Subsystem: "scheduler",
			Name:      "unread_refresh_runs_total",
			Help:      "Executions of the unread-count refresh job",
		}),
		RefreshDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: "opsdesk",
			Subsystem: "scheduler",
			Name:      "unread_refresh_duration_seconds",
			Help:      "Duration of unread-count refresh executions",
			Buckets:   prometheus.DefBuckets,
		}),
		RealtimeClients: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "opsdesk",
			Subsystem: "realtime",
			Name:      "connected_clients",
			Help:      "Currently connected websocket clients",
		}),
		RealtimeBroadcasts: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "opsdesk",
			Subsystem: "realtime",
			Name:      "broadcasts_total",
			Help:      "Events pushed to websocket clients, labeled by event type",
		}, []string{"event"}),
	}
}
