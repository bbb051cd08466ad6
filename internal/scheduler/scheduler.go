package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jalvirtual/acars-dispatch/internal/domain"
	"github.com/jalvirtual/acars-dispatch/pkg/hoppie"
	"github.com/jalvirtual/acars-dispatch/pkg/logger"
	"github.com/jalvirtual/acars-dispatch/pkg/metrics"
	"github.com/jalvirtual/acars-dispatch/pkg/notify"
)

// DefaultInterval is the mailbox poll cadence.
const DefaultInterval = 30 * time.Second

// refresher is the part of ACARSService the sync loop drives. It lets us
// unit test the loop with a small fake implementation.
type refresher interface {
	Refresh(ctx context.Context) (int, error)
	SetCredentials(creds domain.Credentials) error
	ClearCredentials()
}

type State string

const (
	StateIdle   State = "idle"
	StateActive State = "active"
)

// Scheduler is the sync loop. It is idle until credentials arrive, then
// polls the mailbox every interval until deactivated.
type Scheduler struct {
	service        refresher
	notifier       notify.Notifier
	metrics        *metrics.Metrics
	interval       time.Duration
	alertThreshold int // consecutive failed polls before an alert, 0 disables
	skipErr        error

	// Internal state
	state    State
	station  string
	stopChan chan struct{}
	doneChan chan struct{}
	mu       sync.RWMutex

	// Statistics
	lastRunAt       time.Time
	lastSuccessAt   time.Time
	lastError       string
	runsCount       int64
	mergedCount     int64
	skippedCount    int64
	failedCount     int64
	lastAlertSentAt time.Time

	consecutiveFailures int
}

type Option func(*Scheduler)

func WithNotifier(n notify.Notifier) Option {
	return func(s *Scheduler) { s.notifier = n }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Scheduler) { s.metrics = m }
}

func WithAlertThreshold(n int) Option {
	return func(s *Scheduler) { s.alertThreshold = n }
}

// WithSkipError names the error the refresher returns for a poll that was
// skipped because another one is still running.
func WithSkipError(err error) Option {
	return func(s *Scheduler) { s.skipErr = err }
}

func NewScheduler(service refresher, interval time.Duration, opts ...Option) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}

	s := &Scheduler{
		service:  service,
		interval: interval,
		state:    StateIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Activate installs credentials and starts polling. The first refresh runs
// immediately. Calling it while active only swaps the credentials.
// Credentials change only under s.mu, so a stop that is still draining the
// previous loop cannot wipe them.
func (s *Scheduler) Activate(ctx context.Context, creds domain.Credentials) error {
	if !creds.Valid() {
		return hoppie.ErrMissingCredential
	}

	s.mu.Lock()

	if err := s.service.SetCredentials(creds); err != nil {
		s.mu.Unlock()
		return err
	}

	s.station = creds.Station

	if s.state == StateActive {
		s.mu.Unlock()
		logger.Infof("Sync loop already active, credentials updated for %s", creds.Station)
		return nil
	}

	s.state = StateActive
	s.consecutiveFailures = 0
	s.stopChan = make(chan struct{})
	s.doneChan = make(chan struct{})
	stopChan, doneChan := s.stopChan, s.doneChan
	s.metrics.SetSyncActive(true)
	s.mu.Unlock()

	logger.Infof("Starting sync loop for %s with interval: %v", creds.Station, s.interval)

	go s.run(ctx, stopChan, doneChan)

	return nil
}

func (s *Scheduler) run(ctx context.Context, stopChan <-chan struct{}, doneChan chan<- struct{}) {
	defer close(doneChan)

	s.poll(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.poll(ctx)

		case <-stopChan:
			logger.Debugf("Sync loop received stop signal")
			return

		case <-ctx.Done():
			logger.Warnf("Sync loop context cancelled")
			s.markIdle(stopChan)
			return
		}
	}
}

// poll runs one refresh. Failures are recorded and logged, never returned.
func (s *Scheduler) poll(ctx context.Context) {
	s.mu.Lock()
	s.lastRunAt = time.Now()
	s.runsCount++
	runNumber := s.runsCount
	s.mu.Unlock()

	merged, err := s.service.Refresh(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		if s.skipErr != nil && errors.Is(err, s.skipErr) {
			s.skippedCount++
			logger.Debugf("[Poll #%d] Skipped, previous refresh still running", runNumber)
			return
		}

		s.failedCount++
		s.consecutiveFailures++
		s.lastError = err.Error()
		logger.Warnf("[Poll #%d] Refresh failed (consecutive: %d): %v", runNumber, s.consecutiveFailures, err)

		if s.alertThreshold > 0 && s.consecutiveFailures == s.alertThreshold && s.notifier != nil {
			s.lastAlertSentAt = time.Now()
			go s.notifier.Notify(context.WithoutCancel(ctx), false, fmt.Sprintf(
				"Mailbox polling for %s failed %d times in a row: %v",
				s.station, s.consecutiveFailures, err,
			))
		}
		return
	}

	if s.consecutiveFailures > 0 {
		logger.Infof("[Poll #%d] Recovered after %d failed polls", runNumber, s.consecutiveFailures)
	}
	s.consecutiveFailures = 0
	s.lastError = ""
	s.lastSuccessAt = time.Now()
	s.mergedCount += int64(merged)

	logger.Debugf("[Poll #%d] Merged %d messages", runNumber, merged)
}

// Deactivate stops polling and forgets the credentials. In-flight refresh
// calls are allowed to finish before it returns.
func (s *Scheduler) Deactivate() {
	s.mu.Lock()

	s.service.ClearCredentials()

	if s.state != StateActive {
		s.mu.Unlock()
		return
	}

	s.state = StateIdle
	s.station = ""
	stopChan := s.stopChan
	doneChan := s.doneChan
	s.metrics.SetSyncActive(false)
	s.mu.Unlock()

	close(stopChan)
	<-doneChan

	logger.Infof("Sync loop stopped")
}

// markIdle retires a loop whose context ended. A loop that was already
// replaced by a newer Activate leaves the current state alone.
func (s *Scheduler) markIdle(stopChan <-chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateActive || s.stopChan != stopChan {
		return
	}

	s.state = StateIdle
	s.station = ""
	s.service.ClearCredentials()
	s.metrics.SetSyncActive(false)
}

func (s *Scheduler) IsActive() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state == StateActive
}

func (s *Scheduler) GetStatus() SyncStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := SyncStatus{
		State:               s.state,
		Station:             s.station,
		Interval:            s.interval.String(),
		LastRunAt:           s.lastRunAt,
		LastSuccessAt:       s.lastSuccessAt,
		LastError:           s.lastError,
		RunsCount:           s.runsCount,
		MergedCount:         s.mergedCount,
		SkippedCount:        s.skippedCount,
		FailedCount:         s.failedCount,
		ConsecutiveFailures: s.consecutiveFailures,
		LastAlertSentAt:     s.lastAlertSentAt,
	}

	if s.state == StateActive && !s.lastRunAt.IsZero() {
		status.NextRunAt = s.lastRunAt.Add(s.interval)
	}

	return status
}

type SyncStatus struct {
	State               State     `json:"state"`
	Station             string    `json:"station,omitempty"`
	Interval            string    `json:"interval"`
	LastRunAt           time.Time `json:"lastRunAt,omitempty"`
	NextRunAt           time.Time `json:"nextRunAt,omitempty"`
	LastSuccessAt       time.Time `json:"lastSuccessAt,omitempty"`
	LastError           string    `json:"lastError,omitempty"`
	RunsCount           int64     `json:"runsCount"`
	MergedCount         int64     `json:"mergedCount"`
	SkippedCount        int64     `json:"skippedCount"`
	FailedCount         int64     `json:"failedCount"`
	ConsecutiveFailures int       `json:"consecutiveFailures"`
	LastAlertSentAt     time.Time `json:"lastAlertSentAt,omitempty"`
}
