package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetrics_NilReceiverIsNoop(t *testing.T) {
	var m *Metrics

	require.NotPanics(t, func() {
		m.RecordHoppieRequest("send", "ok", time.Second)
		m.RecordSend(true)
		m.RecordSendRetry()
		m.RecordPoll("ok", 3)
		m.RecordDropped("duplicate_id", 1)
		m.SetStoreSize(10)
		m.SetSyncActive(true)
	})
}

func TestMetrics_RecordPollCountsMerged(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordPoll("ok", 2)
	m.RecordPoll("ok", 0)
	m.RecordPoll("skipped", 0)

	require.Equal(t, 2.0, testutil.ToFloat64(m.PollsTotal.WithLabelValues("ok")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.PollsTotal.WithLabelValues("skipped")))
	require.Equal(t, 2.0, testutil.ToFloat64(m.MergedTotal))
}

func TestMetrics_SyncActiveGauge(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.SetSyncActive(true)
	require.Equal(t, 1.0, testutil.ToFloat64(m.SyncActive))

	m.SetSyncActive(false)
	require.Equal(t, 0.0, testutil.ToFloat64(m.SyncActive))
}
