package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	activityPersistGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "deal_service",
		Subsystem: "persistence",
		Name:      "last_activity_persisted_timestamp_seconds",
		Help:      "Unix timestamp of the most recent feed activity persisted to Postgres.",
	})
	liveDeliveredGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "deal_service",
		Subsystem: "stream",
		Name:      "last_live_delivery_timestamp_seconds",
		Help:      "Unix timestamp of the most recent activity fanned out to live subscribers.",
	})
)

func init() {
	prometheus.MustRegister(activityPersistGauge, liveDeliveredGauge)
}

// RecordActivityPersisted updates the persistence watermark gauge.
func RecordActivityPersisted(ts time.Time) {
	if ts.IsZero() {
		return
	}
	activityPersistGauge.Set(float64(ts.Unix()))
}

// RecordLiveDelivered updates the live fan-out watermark gauge.
func RecordLiveDelivered(ts time.Time) {
	if ts.IsZero() {
		return
	}
	liveDeliveredGauge.Set(float64(ts.Unix()))
}
