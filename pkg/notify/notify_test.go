package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	calls []string
}

func (r *recorder) Notify(_ context.Context, success bool, message string) {
	if success {
		r.calls = append(r.calls, "ok:"+message)
		return
	}
	r.calls = append(r.calls, "fail:"+message)
}

func TestMulti_FansOut(t *testing.T) {
	a, b := &recorder{}, &recorder{}

	Multi{a, nil, b, LogNotifier{}}.Notify(context.Background(), false, "send failed")

	assert.Equal(t, []string{"fail:send failed"}, a.calls)
	assert.Equal(t, []string{"fail:send failed"}, b.calls)
}

func TestWebhookNotifier_PostsPayload(t *testing.T) {
	var got Payload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL, time.Second)
	n.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

	require.NoError(t, n.Send(context.Background(), true, "message sent to JAL123"))

	assert.True(t, got.Success)
	assert.Equal(t, "message sent to JAL123", got.Message)
	assert.Equal(t, "2024-05-01T12:00:00Z", got.Timestamp)
	assert.Equal(t, "acars-dispatch", got.Source)
}

func TestWebhookNotifier_ReportsHTTPFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL, time.Second)

	require.Error(t, n.Send(context.Background(), false, "x"))
	assert.NotPanics(t, func() { n.Notify(context.Background(), false, "x") })
}
