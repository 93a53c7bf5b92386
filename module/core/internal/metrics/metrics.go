package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ReportsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "atj_reports_total",
		Help: "Accepted event reports by type.",
	}, []string{"type"})

	ReportsRejectedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "atj_reports_rejected_total",
		Help: "Reports rejected by validation.",
	})

	EventsExpiredTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "atj_events_expired_total",
		Help: "Events removed by the expiry sweep.",
	})

	RadiusQueriesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "atj_radius_queries_total",
		Help: "Radius queries served.",
	})
)

// Register installs the static collectors plus gauges backed by live counts
// from the store and hub.
func Register(activeEvents func() int, subscribers func() int, droppedUpdates func() uint64) {
	prometheus.MustRegister(
		ReportsTotal,
		ReportsRejectedTotal,
		EventsExpiredTotal,
		RadiusQueriesTotal,
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "atj_events_active",
			Help: "Events currently held in the store.",
		}, func() float64 { return float64(activeEvents()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "atj_live_subscribers",
			Help: "Currently connected live-feed subscribers.",
		}, func() float64 { return float64(subscribers()) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "atj_subscriber_dropped_updates_total",
			Help: "Updates discarded because a subscriber queue overflowed.",
		}, func() float64 { return float64(droppedUpdates()) }),
	)
}
