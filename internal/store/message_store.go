package store

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jalvirtual/acars-dispatch/internal/domain"
	"github.com/jalvirtual/acars-dispatch/pkg/logger"
	"github.com/jalvirtual/acars-dispatch/pkg/metrics"
)

var (
	ErrMessageNotFound   = errors.New("message not found")
	ErrIllegalTransition = errors.New("illegal status transition")
	ErrDuplicateID       = errors.New("message id already exists")
	ErrStoreDisposed     = errors.New("message store disposed")
)

// Persister is the durable side of the store. Implementations replace the
// whole log on every save.
type Persister interface {
	LoadMessages(ctx context.Context) ([]domain.ACARSMessage, error)
	SaveMessages(ctx context.Context, messages []domain.ACARSMessage) error
}

type Option func(*MessageStore)

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *MessageStore) { s.metrics = m }
}

// WithDedupWindow enables content fingerprint dedup on merge: an incoming
// message is dropped when one with the same from, to and content already
// exists within window of its timestamp. Zero disables it.
func WithDedupWindow(window time.Duration) Option {
	return func(s *MessageStore) { s.dedupWindow = window }
}

// MessageStore is the single source of truth for the message log. Index 0
// is the head; every mutation is atomic and persisted before it returns.
type MessageStore struct {
	mu        sync.RWMutex
	messages  []domain.ACARSMessage
	ids       map[string]struct{}
	persister Persister
	metrics   *metrics.Metrics

	dedupWindow time.Duration
	disposed    bool
}

// New builds an empty store. A nil persister keeps everything in memory.
func New(persister Persister, opts ...Option) *MessageStore {
	s := &MessageStore{
		ids:       make(map[string]struct{}),
		persister: persister,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Append inserts a locally originated message at the head.
func (s *MessageStore) Append(ctx context.Context, msg domain.ACARSMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		return ErrStoreDisposed
	}
	if msg.ID == "" {
		return fmt.Errorf("append: empty message id")
	}
	if _, exists := s.ids[msg.ID]; exists {
		return fmt.Errorf("append %s: %w", msg.ID, ErrDuplicateID)
	}

	next := make([]domain.ACARSMessage, 0, len(s.messages)+1)
	next = append(next, msg)
	next = append(next, s.messages...)

	return s.commitLocked(ctx, next)
}

// Merge prepends a received batch in its received order and returns how
// many messages were inserted. Messages whose id is already present, and
// repeats within the batch, are dropped.
func (s *MessageStore) Merge(ctx context.Context, incoming []domain.ACARSMessage) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		return 0, ErrStoreDisposed
	}
	if len(incoming) == 0 {
		return 0, nil
	}

	var recent map[[sha256.Size]byte][]time.Time
	if s.dedupWindow > 0 {
		recent = make(map[[sha256.Size]byte][]time.Time)
		for _, m := range s.messages {
			fp := fingerprint(m)
			recent[fp] = append(recent[fp], m.Timestamp)
		}
	}

	type batchKey struct {
		from, to, content string
		ts                int64
	}

	batch := make(map[batchKey]struct{}, len(incoming))
	batchIDs := make(map[string]struct{}, len(incoming))
	accepted := make([]domain.ACARSMessage, 0, len(incoming))

	var dupID, dupBatch, dupContent int

	for _, m := range incoming {
		if m.ID == "" {
			dupID++
			continue
		}
		if _, exists := s.ids[m.ID]; exists {
			dupID++
			continue
		}
		if _, exists := batchIDs[m.ID]; exists {
			dupID++
			continue
		}

		key := batchKey{from: m.From, to: m.To, content: m.Content, ts: m.Timestamp.UnixNano()}
		if _, exists := batch[key]; exists {
			dupBatch++
			continue
		}

		if recent != nil {
			fp := fingerprint(m)
			if withinWindow(recent[fp], m.Timestamp, s.dedupWindow) {
				dupContent++
				continue
			}
			recent[fp] = append(recent[fp], m.Timestamp)
		}

		batch[key] = struct{}{}
		batchIDs[m.ID] = struct{}{}
		accepted = append(accepted, m)
	}

	s.metrics.RecordDropped("duplicate_id", dupID)
	s.metrics.RecordDropped("duplicate_in_batch", dupBatch)
	s.metrics.RecordDropped("duplicate_content", dupContent)

	if len(accepted) == 0 {
		return 0, nil
	}

	next := make([]domain.ACARSMessage, 0, len(s.messages)+len(accepted))
	next = append(next, accepted...)
	next = append(next, s.messages...)

	if err := s.commitLocked(ctx, next); err != nil {
		return 0, err
	}

	logger.Debugf("Merged %d of %d received messages", len(accepted), len(incoming))

	return len(accepted), nil
}

// UpdateStatus moves a message along the transition table. Anything the
// table does not allow returns ErrIllegalTransition and changes nothing.
func (s *MessageStore) UpdateStatus(ctx context.Context, id string, status domain.MessageStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		return ErrStoreDisposed
	}

	i := s.indexLocked(id)
	if i < 0 {
		return fmt.Errorf("update %s: %w", id, ErrMessageNotFound)
	}

	current := s.messages[i].Status
	if !domain.CanTransition(current, status) {
		return fmt.Errorf("update %s from %s to %s: %w", id, current, status, ErrIllegalTransition)
	}

	next := s.snapshotLocked()
	next[i].Status = status

	return s.commitLocked(ctx, next)
}

func (s *MessageStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		return ErrStoreDisposed
	}

	i := s.indexLocked(id)
	if i < 0 {
		return fmt.Errorf("delete %s: %w", id, ErrMessageNotFound)
	}

	next := make([]domain.ACARSMessage, 0, len(s.messages)-1)
	next = append(next, s.messages[:i]...)
	next = append(next, s.messages[i+1:]...)

	return s.commitLocked(ctx, next)
}

func (s *MessageStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		return ErrStoreDisposed
	}

	return s.commitLocked(ctx, nil)
}

// Load replaces the in-memory log with the persisted one and returns it.
func (s *MessageStore) Load(ctx context.Context) ([]domain.ACARSMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		return nil, ErrStoreDisposed
	}
	if s.persister == nil {
		return s.snapshotLocked(), nil
	}

	loaded, err := s.persister.LoadMessages(ctx)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}

	messages := make([]domain.ACARSMessage, 0, len(loaded))
	ids := make(map[string]struct{}, len(loaded))
	for _, m := range loaded {
		if m.ID == "" {
			continue
		}
		if _, dup := ids[m.ID]; dup {
			continue
		}
		ids[m.ID] = struct{}{}
		messages = append(messages, m)
	}

	s.messages = messages
	s.ids = ids
	s.metrics.SetStoreSize(len(messages))

	logger.Infof("Loaded %d messages from persistence", len(messages))

	return s.snapshotLocked(), nil
}

// Save writes the current log to the persister.
func (s *MessageStore) Save(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		return ErrStoreDisposed
	}

	return s.commitLocked(ctx, s.messages)
}

// Dispose detaches the store. Every later mutation, including the result of
// a refresh that was still in flight, is refused.
func (s *MessageStore) Dispose() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disposed = true
}

type ListFilter struct {
	Status domain.MessageStatus
}

// List returns the log sorted by timestamp, newest first. Equal timestamps
// keep insertion order.
func (s *MessageStore) List(filter ListFilter) []domain.ACARSMessage {
	s.mu.RLock()
	out := make([]domain.ACARSMessage, 0, len(s.messages))
	for _, m := range s.messages {
		if filter.Status != "" && m.Status != filter.Status {
			continue
		}
		out = append(out, m)
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})

	return out
}

// GroupByDay buckets the sorted log by UTC calendar day, newest day first.
func (s *MessageStore) GroupByDay() []domain.DayGroup {
	var groups []domain.DayGroup

	for _, m := range s.List(ListFilter{}) {
		day := domain.DayKey(m.Timestamp)
		if n := len(groups); n > 0 && groups[n-1].Day == day {
			groups[n-1].Messages = append(groups[n-1].Messages, m)
			continue
		}
		groups = append(groups, domain.DayGroup{Day: day, Messages: []domain.ACARSMessage{m}})
	}

	return groups
}

func (s *MessageStore) Get(id string) (domain.ACARSMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexLocked(id)
	if i < 0 {
		return domain.ACARSMessage{}, ErrMessageNotFound
	}
	return s.messages[i], nil
}

func (s *MessageStore) Stats() domain.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := domain.Stats{
		Total:    len(s.messages),
		ByStatus: make(map[domain.MessageStatus]int),
	}
	for _, m := range s.messages {
		stats.ByStatus[m.Status]++
	}
	return stats
}

func (s *MessageStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// Snapshot returns the log in insertion order.
func (s *MessageStore) Snapshot() []domain.ACARSMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *MessageStore) indexLocked(id string) int {
	if _, ok := s.ids[id]; !ok {
		return -1
	}
	for i := range s.messages {
		if s.messages[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *MessageStore) snapshotLocked() []domain.ACARSMessage {
	out := make([]domain.ACARSMessage, len(s.messages))
	copy(out, s.messages)
	return out
}

// commitLocked persists next and only then installs it as the live log, so
// a failed save leaves memory and storage in agreement.
func (s *MessageStore) commitLocked(ctx context.Context, next []domain.ACARSMessage) error {
	if s.persister != nil {
		snapshot := make([]domain.ACARSMessage, len(next))
		copy(snapshot, next)

		if err := s.persister.SaveMessages(ctx, snapshot); err != nil {
			logger.Errorf("Failed to persist %d messages: %v", len(next), err)
			return fmt.Errorf("persist messages: %w", err)
		}
	}

	ids := make(map[string]struct{}, len(next))
	for _, m := range next {
		ids[m.ID] = struct{}{}
	}

	s.messages = next
	s.ids = ids
	s.metrics.SetStoreSize(len(next))

	return nil
}

// fingerprint hashes from, to and content with length prefixes so that
// field boundaries cannot be shifted to forge a collision.
func fingerprint(m domain.ACARSMessage) [sha256.Size]byte {
	h := sha256.New()
	var lenBuf [8]byte
	for _, field := range []string{m.From, m.To, m.Content} {
		binary.BigEndian.PutUint64(lenBuf[:], uint64(len(field)))
		h.Write(lenBuf[:])
		h.Write([]byte(field))
	}

	var sum [sha256.Size]byte
	copy(sum[:], h.Sum(nil))
	return sum
}

func withinWindow(times []time.Time, ts time.Time, window time.Duration) bool {
	for _, t := range times {
		d := ts.Sub(t)
		if d < 0 {
			d = -d
		}
		if d <= window {
			return true
		}
	}
	return false
}
