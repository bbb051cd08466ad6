package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jalvirtual/acars-dispatch/internal/domain"
	"github.com/jalvirtual/acars-dispatch/internal/store"
	"github.com/jalvirtual/acars-dispatch/pkg/hoppie"
)

//
// Test fakes – only for this file.
//

type fakeClient struct {
	mu sync.Mutex

	sendErrs   []error
	sendCalls  []domain.OutboundRequest
	received   []domain.ACARSMessage
	receiveErr error
	entered    chan struct{}
	block      chan struct{}
}

func (f *fakeClient) Send(ctx context.Context, req domain.OutboundRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.sendCalls = append(f.sendCalls, req)
	if req.LogonCode == "" {
		return hoppie.ErrMissingCredential
	}
	if len(f.sendErrs) == 0 {
		return nil
	}
	err := f.sendErrs[0]
	f.sendErrs = f.sendErrs[1:]
	return err
}

func (f *fakeClient) Receive(ctx context.Context, station, logonCode string, now time.Time) ([]domain.ACARSMessage, error) {
	if f.entered != nil {
		close(f.entered)
		f.entered = nil
	}
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.received, f.receiveErr
}

func (f *fakeClient) FetchStatus(ctx context.Context) (*hoppie.Status, error) {
	return &hoppie.Status{StatusCode: "ok"}, nil
}

func (f *fakeClient) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sendCalls)
}

type recordingNotifier struct {
	mu       sync.Mutex
	outcomes []bool
}

func (n *recordingNotifier) Notify(_ context.Context, success bool, _ string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.outcomes = append(n.outcomes, success)
}

func (n *recordingNotifier) snapshot() []bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]bool(nil), n.outcomes...)
}

// waitOutcomes waits for the notifier, which runs off the send path.
func waitOutcomes(t *testing.T, n *recordingNotifier, want []bool) {
	t.Helper()
	assert.Eventually(t, func() bool {
		return assert.ObjectsAreEqual(want, n.snapshot())
	}, time.Second, 5*time.Millisecond)
}

func newTestService(client hoppieClient, s *store.MessageStore, n *recordingNotifier) *ACARSService {
	svc := NewACARSService(client, s, n, nil, Config{MaxAttempts: 3, RetryDelay: time.Millisecond})
	_ = svc.SetCredentials(domain.Credentials{Station: "JALV", LogonCode: "secret"})
	return svc
}

func weatherRequest() domain.OutboundRequest {
	return domain.OutboundRequest{From: "JALV", To: "JAL123", Type: domain.TypeTelex, Packet: "REQUEST WEATHER"}
}

func TestSend_OKAppendsOneSentMessage(t *testing.T) {
	s := store.New(nil)
	n := &recordingNotifier{}
	svc := newTestService(&fakeClient{}, s, n)

	before := s.Len()
	msg, err := svc.Send(context.Background(), weatherRequest())

	require.NoError(t, err)
	require.Equal(t, before+1, s.Len())

	stored := s.Snapshot()[0]
	assert.Equal(t, msg.ID, stored.ID)
	assert.Equal(t, domain.StatusSent, stored.Status)
	assert.Equal(t, "REQUEST WEATHER", stored.Content)
	assert.Equal(t, "JALV", stored.From)
	assert.Equal(t, "JAL123", stored.To)
	waitOutcomes(t, n, []bool{true})
}

// Runs the whole path against a real transport that answers 503.
func TestSend_ServerRejected503LeavesStoreUnchanged(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := hoppie.NewClient(hoppie.Config{BaseURL: srv.URL, Timeout: time.Second}, nil)
	s := store.New(nil)
	n := &recordingNotifier{}
	svc := newTestService(client, s, n)

	_, err := svc.Send(context.Background(), weatherRequest())

	require.ErrorIs(t, err, &hoppie.Error{Kind: hoppie.KindServerRejected, Status: http.StatusServiceUnavailable})
	assert.Zero(t, s.Len())
	waitOutcomes(t, n, []bool{false})
}

func TestSend_PDCStartsPending(t *testing.T) {
	s := store.New(nil)
	svc := newTestService(&fakeClient{}, s, &recordingNotifier{})

	req := weatherRequest()
	req.Type = domain.TypePDC
	req.Packet = "CLEARED TO RJTT"

	msg, err := svc.Send(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, msg.Status)
}

func TestSend_FillsFromAndLogonFromCredentials(t *testing.T) {
	client := &fakeClient{}
	svc := newTestService(client, store.New(nil), &recordingNotifier{})

	req := weatherRequest()
	req.From = ""

	msg, err := svc.Send(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "JALV", msg.From)
	require.Len(t, client.sendCalls, 1)
	assert.Equal(t, "secret", client.sendCalls[0].LogonCode)
}

func TestSend_MissingCredential(t *testing.T) {
	client := &fakeClient{}
	s := store.New(nil)
	svc := NewACARSService(client, s, &recordingNotifier{}, nil, Config{MaxAttempts: 3})

	_, err := svc.Send(context.Background(), weatherRequest())

	require.ErrorIs(t, err, hoppie.ErrMissingCredential)
	assert.Equal(t, 1, client.calls(), "no retry on a missing credential")
	assert.Zero(t, s.Len())
}

func TestSend_RetriesConnectionFailures(t *testing.T) {
	client := &fakeClient{sendErrs: []error{
		&hoppie.Error{Kind: hoppie.KindTimeout},
		&hoppie.Error{Kind: hoppie.KindUnreachable},
	}}
	s := store.New(nil)
	svc := newTestService(client, s, &recordingNotifier{})

	_, err := svc.Send(context.Background(), weatherRequest())

	require.NoError(t, err)
	assert.Equal(t, 3, client.calls())
	assert.Equal(t, 1, s.Len())
}

func TestSend_GivesUpAfterMaxAttempts(t *testing.T) {
	client := &fakeClient{sendErrs: []error{
		&hoppie.Error{Kind: hoppie.KindTimeout},
		&hoppie.Error{Kind: hoppie.KindTimeout},
		&hoppie.Error{Kind: hoppie.KindTimeout},
		nil,
	}}
	s := store.New(nil)
	svc := newTestService(client, s, &recordingNotifier{})

	_, err := svc.Send(context.Background(), weatherRequest())

	require.ErrorIs(t, err, hoppie.ErrTimeout)
	assert.Equal(t, 3, client.calls())
	assert.Zero(t, s.Len())
}

func TestSend_DoesNotRetryRejections(t *testing.T) {
	client := &fakeClient{sendErrs: []error{&hoppie.Error{Kind: hoppie.KindRejected, Body: "error"}}}
	svc := newTestService(client, store.New(nil), &recordingNotifier{})

	_, err := svc.Send(context.Background(), weatherRequest())

	require.ErrorIs(t, err, hoppie.ErrRejected)
	assert.Equal(t, 1, client.calls())
}

func TestSend_RetryWaitHonoursCancellation(t *testing.T) {
	client := &fakeClient{sendErrs: []error{&hoppie.Error{Kind: hoppie.KindUnreachable}}}
	svc := NewACARSService(client, store.New(nil), &recordingNotifier{}, nil, Config{MaxAttempts: 3, RetryDelay: time.Hour})
	_ = svc.SetCredentials(domain.Credentials{Station: "JALV", LogonCode: "secret"})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := svc.Send(ctx, weatherRequest())

	require.ErrorIs(t, err, hoppie.ErrUnreachable)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, 1, client.calls())
}

func TestSend_InvalidType(t *testing.T) {
	svc := newTestService(&fakeClient{}, store.New(nil), &recordingNotifier{})

	req := weatherRequest()
	req.Type = "fax"

	_, err := svc.Send(context.Background(), req)
	require.ErrorIs(t, err, ErrInvalidType)
}

func TestSend_ValidatesPriorityAndNormalizesCallsigns(t *testing.T) {
	client := &fakeClient{}
	s := store.New(nil)
	svc := newTestService(client, s, &recordingNotifier{})

	req := weatherRequest()
	req.Priority = "critical"
	_, err := svc.Send(context.Background(), req)
	require.ErrorIs(t, err, ErrInvalidPriority)
	assert.Zero(t, client.calls())

	req = weatherRequest()
	req.From = " jalv"
	req.To = "jal123 "
	msg, err := svc.Send(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "JALV", msg.From)
	assert.Equal(t, "JAL123", msg.To)
	assert.Equal(t, "JAL123", client.sendCalls[0].To)
}

// blockingNotifier holds every notification until release is closed.
type blockingNotifier struct {
	release chan struct{}
}

func (n *blockingNotifier) Notify(ctx context.Context, _ bool, _ string) {
	select {
	case <-n.release:
	case <-ctx.Done():
	}
}

func TestSend_SlowNotifierDoesNotDelayAcknowledgedSend(t *testing.T) {
	n := &blockingNotifier{release: make(chan struct{})}
	defer close(n.release)

	svc := NewACARSService(&fakeClient{}, store.New(nil), n, nil, Config{MaxAttempts: 1})
	require.NoError(t, svc.SetCredentials(domain.Credentials{Station: "JALV", LogonCode: "secret"}))

	done := make(chan error, 1)
	go func() {
		_, err := svc.Send(context.Background(), weatherRequest())
		done <- err
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatalf("send waited for the notifier")
	}
}

func TestSendTemplate_ClearanceStartsPendingAndCanBeAccepted(t *testing.T) {
	ctx := context.Background()
	s := store.New(nil)
	svc := newTestService(&fakeClient{}, s, &recordingNotifier{})

	msg, err := svc.SendTemplate(ctx, "rops-pdc", "JAL123", "")
	require.NoError(t, err)
	assert.Equal(t, domain.TypePDC, msg.Type)

	stored, err := s.Get(msg.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, stored.Status)

	require.NoError(t, s.UpdateStatus(ctx, msg.ID, domain.StatusAccepted))

	stored, err = s.Get(msg.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAccepted, stored.Status)
}

func TestSendTemplate(t *testing.T) {
	client := &fakeClient{}
	s := store.New(nil)
	svc := newTestService(client, s, &recordingNotifier{})

	msg, err := svc.SendTemplate(context.Background(), "final-loadsheet", "JAL123", domain.PriorityHigh)

	require.NoError(t, err)
	assert.Equal(t, domain.TypeLoadsheet, msg.Type)
	assert.Equal(t, domain.PriorityHigh, msg.Priority)
	assert.Contains(t, client.sendCalls[0].Packet, "FINAL LOADSHEET")

	_, err = svc.SendTemplate(context.Background(), "nope", "JAL123", "")
	require.Error(t, err)
}

func TestRefresh_MergesReceived(t *testing.T) {
	client := &fakeClient{received: []domain.ACARSMessage{
		{ID: "r1", From: "JAL123", To: "JALV", Content: "HELLO", Status: domain.StatusDelivered},
	}}
	s := store.New(nil)
	svc := newTestService(client, s, &recordingNotifier{})

	n, err := svc.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = svc.Refresh(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 1, s.Len())
}

func TestRefresh_FailureLeavesStoreUnchanged(t *testing.T) {
	client := &fakeClient{receiveErr: &hoppie.Error{Kind: hoppie.KindUnreachable}}
	s := store.New(nil)
	svc := newTestService(client, s, &recordingNotifier{})

	_, err := svc.Refresh(context.Background())

	require.ErrorIs(t, err, hoppie.ErrUnreachable)
	assert.Zero(t, s.Len())
}

func TestRefresh_RequiresCredentials(t *testing.T) {
	svc := NewACARSService(&fakeClient{}, store.New(nil), nil, nil, Config{})

	_, err := svc.Refresh(context.Background())
	require.ErrorIs(t, err, hoppie.ErrMissingCredential)
}

func TestRefresh_SkipsWhileInFlight(t *testing.T) {
	entered := make(chan struct{})
	client := &fakeClient{entered: entered, block: make(chan struct{})}
	svc := newTestService(client, store.New(nil), &recordingNotifier{})

	done := make(chan error, 1)
	go func() {
		_, err := svc.Refresh(context.Background())
		done <- err
	}()

	<-entered

	_, err := svc.Refresh(context.Background())
	require.True(t, errors.Is(err, ErrRefreshInFlight))

	close(client.block)
	require.NoError(t, <-done)
}

func TestRefresh_DisposedStoreDiscardsResult(t *testing.T) {
	client := &fakeClient{received: []domain.ACARSMessage{{ID: "late", From: "JAL1", To: "JALV"}}}
	s := store.New(nil)
	svc := newTestService(client, s, &recordingNotifier{})

	s.Dispose()

	_, err := svc.Refresh(context.Background())
	require.ErrorIs(t, err, store.ErrStoreDisposed)
	assert.Zero(t, s.Len())
}

func TestSetCredentials(t *testing.T) {
	svc := NewACARSService(&fakeClient{}, store.New(nil), nil, nil, Config{})

	require.ErrorIs(t, svc.SetCredentials(domain.Credentials{Station: "JALV"}), hoppie.ErrMissingCredential)

	require.NoError(t, svc.SetCredentials(domain.Credentials{Station: " jalv ", LogonCode: "secret"}))
	assert.Equal(t, "JALV", svc.Credentials().Station)

	svc.ClearCredentials()
	assert.False(t, svc.Credentials().Valid())
}
