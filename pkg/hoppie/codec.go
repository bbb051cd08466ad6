package hoppie

import (
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jalvirtual/acars-dispatch/internal/domain"
	"github.com/jalvirtual/acars-dispatch/pkg/logger"
)

const (
	// DefaultURL is the public connect endpoint of the Hoppie network.
	DefaultURL = "http://www.hoppie.nl/acars/system/connect.html"

	wireTelex    = "telex"
	pollPacket   = "read"
	sendOkMarker = "ok"
)

// RequestSpec is a fully encoded GET request minus the base URL.
type RequestSpec struct {
	Query url.Values
}

// Redacted renders the query with the logon code masked, for logging.
func (r RequestSpec) Redacted() string {
	q := url.Values{}
	for k, v := range r.Query {
		q[k] = v
	}
	if q.Get("logon") != "" {
		q.Set("logon", "***")
	}
	return q.Encode()
}

// WireType maps a local message type onto the type the network
// understands. The network only carries free text, so every local
// classification travels as a telex.
func WireType(domain.MessageType) string {
	return wireTelex
}

// LocalType classifies an inbound wire kind.
func LocalType(kind string) domain.MessageType {
	switch strings.ToLower(kind) {
	case "progress", "position", "ads-c":
		return domain.TypeReport
	}
	return domain.TypeTelex
}

func EncodeSend(req domain.OutboundRequest) (RequestSpec, error) {
	if req.LogonCode == "" {
		return RequestSpec{}, ErrMissingCredential
	}
	if req.From == "" || req.To == "" {
		return RequestSpec{}, ErrInvalidStation
	}

	return RequestSpec{
		Query: url.Values{
			"logon":  {req.LogonCode},
			"from":   {req.From},
			"to":     {req.To},
			"type":   {WireType(req.Type)},
			"packet": {req.Packet},
		},
	}, nil
}

// DecodeSendResult only looks for "ok" anywhere in the body; the service
// gives no stronger success signal.
func DecodeSendResult(body string) error {
	if strings.Contains(body, sendOkMarker) {
		return nil
	}
	return &Error{Kind: KindRejected, Body: strings.TrimSpace(body)}
}

func EncodeReceive(station, logonCode string) (RequestSpec, error) {
	if logonCode == "" {
		return RequestSpec{}, ErrMissingCredential
	}
	if station == "" {
		return RequestSpec{}, ErrInvalidStation
	}

	return RequestSpec{
		Query: url.Values{
			"logon":  {logonCode},
			"from":   {station},
			"to":     {station},
			"type":   {wireTelex},
			"packet": {pollPacket},
		},
	}, nil
}

// Line is one parsed row of a receive body.
type Line struct {
	From    string
	To      string
	Kind    string
	Content string
}

// ParseLine splits from:to:kind:content. Only the first three colons are
// separators, the rest belong to the content.
func ParseLine(raw string) (Line, error) {
	parts := strings.SplitN(strings.TrimRight(raw, "\r"), ":", 4)
	if len(parts) < 4 {
		return Line{}, &Error{Kind: KindMalformed, Line: raw}
	}

	from := strings.TrimSpace(parts[0])
	to := strings.TrimSpace(parts[1])
	if from == "" || to == "" {
		return Line{}, &Error{Kind: KindMalformed, Line: raw}
	}

	return Line{
		From:    from,
		To:      to,
		Kind:    strings.TrimSpace(parts[2]),
		Content: decodeContent(parts[3]),
	}, nil
}

// EncodeContent is the inverse of the content decoding applied by
// ParseLine.
func EncodeContent(content string) string {
	return url.PathEscape(content)
}

// decodeContent unescapes content only when it is exactly the escaped form
// of its decoding. Free text that merely contains a %XX sequence, such as
// "DEICE 100%20MIN", is kept as typed.
func decodeContent(raw string) string {
	if !strings.Contains(raw, "%") {
		return raw
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil || EncodeContent(decoded) != raw {
		return raw
	}
	return decoded
}

// DecodeReceived turns a receive body into delivered messages stamped with
// now. Lines that do not parse are skipped.
func DecodeReceived(body string, now time.Time) []domain.ACARSMessage {
	var messages []domain.ACARSMessage

	for _, raw := range strings.Split(body, "\n") {
		if strings.TrimSpace(raw) == "" {
			continue
		}

		line, err := ParseLine(raw)
		if err != nil {
			logger.Debugf("Skipping receive line: %v", err)
			continue
		}

		messages = append(messages, domain.ACARSMessage{
			ID:        uuid.NewString(),
			Timestamp: now,
			From:      line.From,
			To:        line.To,
			Type:      LocalType(line.Kind),
			Content:   line.Content,
			Status:    domain.StatusDelivered,
			Priority:  domain.PriorityNormal,
		})
	}

	return messages
}
