package hoppie

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jalvirtual/acars-dispatch/internal/domain"
	"github.com/jalvirtual/acars-dispatch/pkg/metrics"
)

func newTestClient(t *testing.T, baseURL string, timeout time.Duration) *Client {
	t.Helper()
	return NewClient(Config{BaseURL: baseURL, StatusURL: baseURL, Timeout: timeout}, nil)
}

func weatherRequest() domain.OutboundRequest {
	return domain.OutboundRequest{
		From:      "JALV",
		To:        "JAL123",
		Type:      domain.TypeTelex,
		Packet:    "REQUEST WEATHER",
		LogonCode: "secret",
	}
}

func TestClient_SendOK(t *testing.T) {
	var got url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query()
		fmt.Fprint(w, "ok")
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, time.Second)

	require.NoError(t, client.Send(context.Background(), weatherRequest()))
	assert.Equal(t, "secret", got.Get("logon"))
	assert.Equal(t, "JALV", got.Get("from"))
	assert.Equal(t, "JAL123", got.Get("to"))
	assert.Equal(t, "telex", got.Get("type"))
	assert.Equal(t, "REQUEST WEATHER", got.Get("packet"))
}

func TestClient_SendRejectedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "error {illegal logon code}")
	}))
	defer srv.Close()

	err := newTestClient(t, srv.URL, time.Second).Send(context.Background(), weatherRequest())

	require.ErrorIs(t, err, ErrRejected)
	assert.False(t, IsRetryable(err))
}

func TestClient_ServerRejectedCarriesStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	client := NewClient(Config{BaseURL: srv.URL, Timeout: time.Second}, m)

	err := client.Send(context.Background(), weatherRequest())

	require.ErrorIs(t, err, ErrServerRejected)
	require.ErrorIs(t, err, &Error{Kind: KindServerRejected, Status: http.StatusServiceUnavailable})
	assert.NotErrorIs(t, err, &Error{Kind: KindServerRejected, Status: http.StatusBadGateway})
	assert.False(t, IsRetryable(err))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HoppieRequestsTotal.WithLabelValues("send", "http_error")))
}

func TestClient_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	err := newTestClient(t, srv.URL, 50*time.Millisecond).Send(context.Background(), weatherRequest())

	require.ErrorIs(t, err, ErrTimeout)
	assert.True(t, IsRetryable(err))
}

func TestClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	baseURL := srv.URL
	srv.Close()

	err := newTestClient(t, baseURL, time.Second).Send(context.Background(), weatherRequest())

	require.ErrorIs(t, err, ErrUnreachable)
	assert.True(t, IsRetryable(err))
}

func TestClient_MissingCredentialMakesNoRequest(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer srv.Close()

	req := weatherRequest()
	req.LogonCode = ""

	err := newTestClient(t, srv.URL, time.Second).Send(context.Background(), req)

	require.ErrorIs(t, err, ErrMissingCredential)
	assert.Zero(t, atomic.LoadInt32(&hits))
}

func TestClient_Receive(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "read", r.URL.Query().Get("packet"))
		fmt.Fprint(w, "JAL123:JALV:telex:HELLO\nJAL456:JALV:telex:REQUEST%20PDC\n")
	}))
	defer srv.Close()

	now := time.Now()
	messages, err := newTestClient(t, srv.URL, time.Second).Receive(context.Background(), "JALV", "secret", now)

	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "HELLO", messages[0].Content)
	assert.Equal(t, "REQUEST PDC", messages[1].Content)
}

func TestClient_FetchStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"status_code":"ok","system_time":"20240501120000","system_load_percent":12.5,`+
			`"online_users":{"IVAO":3,"None":1,"VATSIM":40},"notams":["MAINTENANCE 0200Z"]}`)
	}))
	defer srv.Close()

	status, err := newTestClient(t, srv.URL, time.Second).FetchStatus(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "ok", status.StatusCode)
	assert.Equal(t, 40, status.UserCount.VATSIM)
	assert.Equal(t, []string{"MAINTENANCE 0200Z"}, status.Notams)
}

func TestClient_FetchStatusMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html>down</html>")
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL, time.Second).FetchStatus(context.Background())
	require.ErrorIs(t, err, ErrMalformed)
}
