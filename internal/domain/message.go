package domain

import (
	"time"
)

type MessageType string

const (
	TypeTelex        MessageType = "telex"
	TypeLoadsheet    MessageType = "loadsheet"
	TypeReport       MessageType = "report"
	TypeNotification MessageType = "notification"
	// TypePDC marks dispatch-originated company messages that wait for the
	// crew to accept or reject them. The wire protocol never sees it.
	TypePDC MessageType = "pdc"
)

func (t MessageType) Valid() bool {
	switch t {
	case TypeTelex, TypeLoadsheet, TypeReport, TypeNotification, TypePDC:
		return true
	}
	return false
}

type MessageStatus string

const (
	StatusSent      MessageStatus = "sent"
	StatusDelivered MessageStatus = "delivered"
	StatusFailed    MessageStatus = "failed"
	StatusPending   MessageStatus = "pending"
	StatusAccepted  MessageStatus = "accepted"
	StatusRejected  MessageStatus = "rejected"
)

func (s MessageStatus) Valid() bool {
	switch s {
	case StatusSent, StatusDelivered, StatusFailed, StatusPending, StatusAccepted, StatusRejected:
		return true
	}
	return false
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// ACARSMessage is a single entry of the dispatch message log.
type ACARSMessage struct {
	ID        string        `json:"id"`
	Timestamp time.Time     `json:"timestamp"`
	From      string        `json:"from"`
	To        string        `json:"to"`
	Type      MessageType   `json:"type"`
	Content   string        `json:"content"`
	Status    MessageStatus `json:"status"`
	Priority  Priority      `json:"priority"`
}

// OutboundRequest is a send request before wire encoding. It is never
// persisted.
type OutboundRequest struct {
	From      string      `json:"from"`
	To        string      `json:"to"`
	Type      MessageType `json:"type"`
	Packet    string      `json:"packet"`
	Priority  Priority    `json:"priority,omitempty"`
	LogonCode string      `json:"-"`
}

// Credentials gate the sync loop. Station is the dispatch callsign used as
// both sender and mailbox.
type Credentials struct {
	Station   string
	LogonCode string
}

func (c Credentials) Valid() bool {
	return c.Station != "" && c.LogonCode != ""
}

// InitialStatus is the status of a locally originated message right after
// the network accepted it.
func InitialStatus(t MessageType) MessageStatus {
	if t == TypePDC {
		return StatusPending
	}
	return StatusSent
}

var transitions = map[MessageStatus][]MessageStatus{
	StatusPending: {StatusAccepted, StatusRejected},
	StatusSent:    {StatusDelivered, StatusFailed},
}

// CanTransition reports whether a message in status from may move to to.
func CanTransition(from, to MessageStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// NewOutboundMessage builds the log entry for a request the network has
// accepted.
func NewOutboundMessage(id string, req OutboundRequest, at time.Time) ACARSMessage {
	priority := req.Priority
	if priority == "" {
		priority = PriorityNormal
	}

	msgType := req.Type
	if msgType == "" {
		msgType = TypeTelex
	}

	return ACARSMessage{
		ID:        id,
		Timestamp: at,
		From:      req.From,
		To:        req.To,
		Type:      msgType,
		Content:   req.Packet,
		Status:    InitialStatus(msgType),
		Priority:  priority,
	}
}

// DayKey is the UTC calendar day a message is grouped under.
func DayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

type DayGroup struct {
	Day      string         `json:"day"`
	Messages []ACARSMessage `json:"messages"`
}

type Stats struct {
	Total    int                   `json:"total"`
	ByStatus map[MessageStatus]int `json:"byStatus"`
}
