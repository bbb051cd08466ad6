package hoppie

import (
	"context"
	"encoding/json"
	"time"
)

const DefaultStatusURL = "https://www.hoppie.nl/acars/system/status.html"

// Status is the public health document of the Hoppie network.
type Status struct {
	StatusCode     string      `json:"status_code"`
	SystemTime     string      `json:"system_time"`
	Message        string      `json:"message,omitempty"`
	LoadPercentage float32     `json:"system_load_percent"`
	UserCount      OnlineUsers `json:"online_users"`
	Notams         []string    `json:"notams"`
}

type OnlineUsers struct {
	IVAO   int `json:"IVAO"`
	None   int `json:"None"`
	VATSIM int `json:"VATSIM"`
}

// FetchStatus reads the network status page. It does not need a logon code.
func (c *Client) FetchStatus(ctx context.Context) (*Status, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &Error{Kind: KindTimeout, Err: err}
	}

	startTime := time.Now()

	resp, err := c.httpClient.R().
		SetContext(ctx).
		Get(c.statusURL)

	duration := time.Since(startTime)

	if err != nil {
		herr := classifyTransportError(err)
		c.metrics.RecordHoppieRequest("status", herr.Kind.String(), duration)
		return nil, herr
	}

	if !resp.IsSuccess() {
		c.metrics.RecordHoppieRequest("status", "http_error", duration)
		return nil, &Error{Kind: KindServerRejected, Status: resp.StatusCode(), Body: resp.String()}
	}

	var status Status
	if err := json.Unmarshal(resp.Body(), &status); err != nil {
		c.metrics.RecordHoppieRequest("status", "malformed", duration)
		return nil, &Error{Kind: KindMalformed, Line: truncate(resp.String(), 120), Err: err}
	}

	c.metrics.RecordHoppieRequest("status", "ok", duration)
	return &status, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
