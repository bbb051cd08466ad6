package repository

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jalvirtual/acars-dispatch/internal/domain"
	"github.com/jalvirtual/acars-dispatch/pkg/logger"
	validatorpkg "github.com/jalvirtual/acars-dispatch/pkg/validator"
)

// Namespace is the default key the message log is stored under.
const Namespace = "messages"

// messageRecord is the persisted shape of an ACARSMessage. Timestamps are
// kept as RFC 3339 strings so every backend stores the same document.
type messageRecord struct {
	ID        string `json:"id" validate:"required"`
	Timestamp string `json:"timestamp" validate:"required"`
	From      string `json:"from" validate:"required"`
	To        string `json:"to" validate:"required"`
	Type      string `json:"type" validate:"required,oneof=telex loadsheet report notification pdc"`
	Content   string `json:"content"`
	Status    string `json:"status" validate:"required,oneof=sent delivered failed pending accepted rejected"`
	Priority  string `json:"priority" validate:"omitempty,oneof=low normal high urgent"`
}

var recordValidator = validatorpkg.New()

// EncodeMessages serialises the log in its current order.
func EncodeMessages(messages []domain.ACARSMessage) ([]byte, error) {
	records := make([]messageRecord, 0, len(messages))
	for _, m := range messages {
		records = append(records, messageRecord{
			ID:        m.ID,
			Timestamp: m.Timestamp.UTC().Format(time.RFC3339Nano),
			From:      m.From,
			To:        m.To,
			Type:      string(m.Type),
			Content:   m.Content,
			Status:    string(m.Status),
			Priority:  string(m.Priority),
		})
	}

	data, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("failed to encode messages: %w", err)
	}
	return data, nil
}

// DecodeMessages restores a log written by EncodeMessages. Records that do
// not fit the message shape are dropped and counted instead of failing the
// whole load; only a payload that is not a JSON array is an error.
func DecodeMessages(data []byte) ([]domain.ACARSMessage, int, error) {
	if len(data) == 0 {
		return nil, 0, nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, 0, fmt.Errorf("failed to decode message log: %w", err)
	}

	messages := make([]domain.ACARSMessage, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	dropped := 0

	for i, item := range raw {
		msg, err := decodeRecord(item)
		if err != nil {
			logger.Warnf("Dropping persisted record %d: %v", i, err)
			dropped++
			continue
		}
		if _, dup := seen[msg.ID]; dup {
			logger.Warnf("Dropping persisted record %d: duplicate id %s", i, msg.ID)
			dropped++
			continue
		}
		seen[msg.ID] = struct{}{}
		messages = append(messages, msg)
	}

	return messages, dropped, nil
}

func decodeRecord(item json.RawMessage) (domain.ACARSMessage, error) {
	var rec messageRecord
	if err := json.Unmarshal(item, &rec); err != nil {
		return domain.ACARSMessage{}, err
	}

	if err := recordValidator.Validate(rec); err != nil {
		return domain.ACARSMessage{}, err
	}

	ts, err := time.Parse(time.RFC3339Nano, rec.Timestamp)
	if err != nil {
		return domain.ACARSMessage{}, fmt.Errorf("invalid timestamp %q: %w", rec.Timestamp, err)
	}

	priority := domain.Priority(rec.Priority)
	if priority == "" {
		priority = domain.PriorityNormal
	}

	return domain.ACARSMessage{
		ID:        rec.ID,
		Timestamp: ts,
		From:      rec.From,
		To:        rec.To,
		Type:      domain.MessageType(rec.Type),
		Content:   rec.Content,
		Status:    domain.MessageStatus(rec.Status),
		Priority:  priority,
	}, nil
}
