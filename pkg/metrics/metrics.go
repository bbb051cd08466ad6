package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors of the dispatch service. All
// methods are safe on a nil receiver so components can run without metrics.
type Metrics struct {
	// Hoppie transport
	HoppieRequestsTotal   *prometheus.CounterVec
	HoppieRequestDuration *prometheus.HistogramVec

	// Service
	SendsTotal   *prometheus.CounterVec
	SendRetries  prometheus.Counter
	PollsTotal   *prometheus.CounterVec
	MergedTotal  prometheus.Counter
	StoreSize    prometheus.Gauge
	SyncActive   prometheus.Gauge
	DroppedTotal *prometheus.CounterVec
}

// New registers all collectors on reg. A nil reg uses the default
// registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		HoppieRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "acars_hoppie_requests_total",
				Help: "Requests made to the Hoppie network by operation and result",
			},
			[]string{"op", "result"},
		),
		HoppieRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "acars_hoppie_request_duration_seconds",
				Help:    "Duration of requests to the Hoppie network",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"op"},
		),
		SendsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "acars_sends_total",
				Help: "Outbound messages by final result",
			},
			[]string{"result"},
		),
		SendRetries: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "acars_send_retries_total",
				Help: "Send attempts repeated after a connection failure",
			},
		),
		PollsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "acars_polls_total",
				Help: "Mailbox polls by result (ok, failed, skipped)",
			},
			[]string{"result"},
		),
		MergedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "acars_messages_merged_total",
				Help: "Received messages merged into the store",
			},
		),
		StoreSize: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "acars_store_messages",
				Help: "Messages currently held in the store",
			},
		),
		SyncActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "acars_sync_active",
				Help: "1 while the sync loop is active",
			},
		),
		DroppedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "acars_messages_dropped_total",
				Help: "Received messages dropped during merge by reason",
			},
			[]string{"reason"},
		),
	}
}

// RecordHoppieRequest records one transport call.
func (m *Metrics) RecordHoppieRequest(op, result string, duration time.Duration) {
	if m == nil {
		return
	}
	m.HoppieRequestsTotal.WithLabelValues(op, result).Inc()
	m.HoppieRequestDuration.WithLabelValues(op).Observe(duration.Seconds())
}

func (m *Metrics) RecordSend(success bool) {
	if m == nil {
		return
	}
	m.SendsTotal.WithLabelValues(resultLabel(success)).Inc()
}

func (m *Metrics) RecordSendRetry() {
	if m == nil {
		return
	}
	m.SendRetries.Inc()
}

// RecordPoll records a mailbox poll; result is ok, failed or skipped.
func (m *Metrics) RecordPoll(result string, merged int) {
	if m == nil {
		return
	}
	m.PollsTotal.WithLabelValues(result).Inc()
	if merged > 0 {
		m.MergedTotal.Add(float64(merged))
	}
}

func (m *Metrics) RecordDropped(reason string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.DroppedTotal.WithLabelValues(reason).Add(float64(n))
}

func (m *Metrics) SetStoreSize(n int) {
	if m == nil {
		return
	}
	m.StoreSize.Set(float64(n))
}

func (m *Metrics) SetSyncActive(active bool) {
	if m == nil {
		return
	}
	if active {
		m.SyncActive.Set(1)
		return
	}
	m.SyncActive.Set(0)
}

func resultLabel(success bool) string {
	if success {
		return "ok"
	}
	return "failed"
}
