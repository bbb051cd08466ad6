package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/jalvirtual/acars-dispatch/internal/domain"
	"github.com/jalvirtual/acars-dispatch/internal/store"
	"github.com/jalvirtual/acars-dispatch/internal/templates"
	"github.com/jalvirtual/acars-dispatch/pkg/hoppie"
	"github.com/jalvirtual/acars-dispatch/pkg/logger"
	"github.com/jalvirtual/acars-dispatch/pkg/metrics"
	"github.com/jalvirtual/acars-dispatch/pkg/notify"
)

var (
	ErrRefreshInFlight = errors.New("refresh already in flight")
	ErrInvalidType     = errors.New("unknown message type")
	ErrInvalidPriority = errors.New("unknown priority")
)

// Small internal interfaces so the service can be tested without the
// network or a database.
type hoppieClient interface {
	Send(ctx context.Context, req domain.OutboundRequest) error
	Receive(ctx context.Context, station, logonCode string, now time.Time) ([]domain.ACARSMessage, error)
	FetchStatus(ctx context.Context) (*hoppie.Status, error)
}

type messageStore interface {
	Append(ctx context.Context, msg domain.ACARSMessage) error
	Merge(ctx context.Context, incoming []domain.ACARSMessage) (int, error)
}

type Config struct {
	// MaxAttempts bounds send attempts; only timeouts and connection
	// failures are attempted again.
	MaxAttempts int
	RetryDelay  time.Duration
}

type ACARSService struct {
	client   hoppieClient
	store    messageStore
	notifier notify.Notifier
	metrics  *metrics.Metrics
	config   Config

	credMu      sync.RWMutex
	credentials domain.Credentials

	refreshing *semaphore.Weighted

	now   func() time.Time
	newID func() string
}

func NewACARSService(
	client hoppieClient,
	messages messageStore,
	notifier notify.Notifier,
	m *metrics.Metrics,
	config Config,
) *ACARSService {
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}
	if notifier == nil {
		notifier = notify.LogNotifier{}
	}

	return &ACARSService{
		client:     client,
		store:      messages,
		notifier:   notifier,
		metrics:    m,
		config:     config,
		refreshing: semaphore.NewWeighted(1),
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// SetCredentials installs the logon used for sends and polls.
func (s *ACARSService) SetCredentials(creds domain.Credentials) error {
	if !creds.Valid() {
		return hoppie.ErrMissingCredential
	}

	creds.Station = normalizeCallsign(creds.Station)

	s.credMu.Lock()
	s.credentials = creds
	s.credMu.Unlock()

	return nil
}

func (s *ACARSService) ClearCredentials() {
	s.credMu.Lock()
	s.credentials = domain.Credentials{}
	s.credMu.Unlock()
}

func (s *ACARSService) Credentials() domain.Credentials {
	s.credMu.RLock()
	defer s.credMu.RUnlock()
	return s.credentials
}

// Send transmits req and, once the network acknowledges it, records the
// message in the store. A failed send never touches the store.
func (s *ACARSService) Send(ctx context.Context, req domain.OutboundRequest) (*domain.ACARSMessage, error) {
	creds := s.Credentials()
	if req.LogonCode == "" {
		req.LogonCode = creds.LogonCode
	}
	if req.From == "" {
		req.From = creds.Station
	}
	req.From = normalizeCallsign(req.From)
	req.To = normalizeCallsign(req.To)

	if req.Type == "" {
		req.Type = domain.TypeTelex
	}
	if !req.Type.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidType, req.Type)
	}
	if req.Priority != "" && !req.Priority.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPriority, req.Priority)
	}

	if err := s.sendWithRetry(ctx, req); err != nil {
		s.metrics.RecordSend(false)
		s.notify(ctx, false, fmt.Sprintf("Message to %s failed: %v", req.To, err))
		return nil, err
	}

	msg := domain.NewOutboundMessage(s.newID(), req, s.now())

	// Acknowledged by the network, so a storage failure is only logged.
	if err := s.store.Append(ctx, msg); err != nil {
		logger.Errorf("Message %s sent to %s but not recorded: %v", msg.ID, msg.To, err)
	}

	s.metrics.RecordSend(true)
	s.notify(ctx, true, fmt.Sprintf("Message sent to %s", msg.To))
	logger.Infof("Sent %s message %s from %s to %s", msg.Type, msg.ID, msg.From, msg.To)

	return &msg, nil
}

// notify runs the notifier off the request path.
func (s *ACARSService) notify(ctx context.Context, success bool, message string) {
	go s.notifier.Notify(context.WithoutCancel(ctx), success, message)
}

func normalizeCallsign(callsign string) string {
	return strings.ToUpper(strings.TrimSpace(callsign))
}

func (s *ACARSService) sendWithRetry(ctx context.Context, req domain.OutboundRequest) error {
	var lastErr error

	for attempt := 1; attempt <= s.config.MaxAttempts; attempt++ {
		lastErr = s.client.Send(ctx, req)
		if lastErr == nil {
			return nil
		}

		if !hoppie.IsRetryable(lastErr) || attempt == s.config.MaxAttempts {
			break
		}

		logger.Warnf("Send to %s failed (attempt %d/%d): %v, retrying in %v",
			req.To, attempt, s.config.MaxAttempts, lastErr, s.config.RetryDelay)
		s.metrics.RecordSendRetry()

		if err := wait(ctx, s.config.RetryDelay); err != nil {
			return lastErr
		}
	}

	return lastErr
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SendTemplate sends a company template to a flight.
func (s *ACARSService) SendTemplate(
	ctx context.Context,
	templateID, to string,
	priority domain.Priority,
) (*domain.ACARSMessage, error) {
	tpl, err := templates.Lookup(templateID)
	if err != nil {
		return nil, err
	}

	return s.Send(ctx, domain.OutboundRequest{
		To:       to,
		Type:     tpl.Type,
		Packet:   tpl.Content,
		Priority: priority,
	})
}

// Refresh drains the mailbox once and merges the result. At most one
// refresh runs at a time; a concurrent call returns ErrRefreshInFlight
// instead of queueing.
func (s *ACARSService) Refresh(ctx context.Context) (int, error) {
	if !s.refreshing.TryAcquire(1) {
		s.metrics.RecordPoll("skipped", 0)
		return 0, ErrRefreshInFlight
	}
	defer s.refreshing.Release(1)

	creds := s.Credentials()
	if !creds.Valid() {
		s.metrics.RecordPoll("skipped", 0)
		return 0, hoppie.ErrMissingCredential
	}

	received, err := s.client.Receive(ctx, creds.Station, creds.LogonCode, s.now())
	if err != nil {
		s.metrics.RecordPoll("failed", 0)
		return 0, fmt.Errorf("receive for %s: %w", creds.Station, err)
	}

	merged, err := s.store.Merge(ctx, received)
	if err != nil {
		if errors.Is(err, store.ErrStoreDisposed) {
			logger.Debugf("Discarding %d received messages, store is disposed", len(received))
		}
		s.metrics.RecordPoll("failed", merged)
		return merged, fmt.Errorf("merge received messages: %w", err)
	}

	s.metrics.RecordPoll("ok", merged)
	if merged > 0 {
		logger.Infof("Received %d new messages for %s", merged, creds.Station)
	}

	return merged, nil
}

// NetworkStatus reports the Hoppie system status and NOTAMs.
func (s *ACARSService) NetworkStatus(ctx context.Context) (*hoppie.Status, error) {
	return s.client.FetchStatus(ctx)
}
