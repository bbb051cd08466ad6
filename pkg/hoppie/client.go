package hoppie

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"github.com/jalvirtual/acars-dispatch/internal/domain"
	"github.com/jalvirtual/acars-dispatch/pkg/logger"
	"github.com/jalvirtual/acars-dispatch/pkg/metrics"
)

const limiterBurst = 5

type Config struct {
	BaseURL   string
	StatusURL string
	Timeout   time.Duration
	// RequestsPerMinute caps outgoing requests; zero disables the limit.
	RequestsPerMinute int
}

// Client performs single HTTP exchanges with the Hoppie network. It never
// retries; that decision belongs to the caller.
type Client struct {
	httpClient *resty.Client
	baseURL    string
	statusURL  string
	timeout    time.Duration
	limiter    *rate.Limiter
	metrics    *metrics.Metrics
}

func NewClient(cfg Config, m *metrics.Metrics) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultURL
	}
	if cfg.StatusURL == "" {
		cfg.StatusURL = DefaultStatusURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	limit := rate.Inf
	if cfg.RequestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(cfg.RequestsPerMinute))
	}

	httpClient := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(0).
		SetHeader("Accept", "text/plain, application/json")

	return &Client{
		httpClient: httpClient,
		baseURL:    cfg.BaseURL,
		statusURL:  cfg.StatusURL,
		timeout:    cfg.Timeout,
		limiter:    rate.NewLimiter(limit, limiterBurst),
		metrics:    m,
	}
}

// Do issues one GET request and returns the raw body of a 2xx response.
func (c *Client) Do(ctx context.Context, op string, spec RequestSpec) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		c.metrics.RecordHoppieRequest(op, "timeout", 0)
		return "", &Error{Kind: KindTimeout, Err: err}
	}

	startTime := time.Now()

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParamsFromValues(spec.Query).
		Get(c.baseURL)

	duration := time.Since(startTime)

	if err != nil {
		herr := classifyTransportError(err)
		c.metrics.RecordHoppieRequest(op, herr.Kind.String(), duration)
		logger.Warnf("Hoppie %s request failed after %v: %v", op, duration, herr)
		return "", herr
	}

	logger.Debugf("Hoppie %s request [%s] completed in %v (status: %d)",
		op, spec.Redacted(), duration, resp.StatusCode())

	if !resp.IsSuccess() {
		c.metrics.RecordHoppieRequest(op, "http_error", duration)
		return "", &Error{Kind: KindServerRejected, Status: resp.StatusCode(), Body: resp.String()}
	}

	c.metrics.RecordHoppieRequest(op, "ok", duration)
	return resp.String(), nil
}

// Send transmits one outbound message.
func (c *Client) Send(ctx context.Context, req domain.OutboundRequest) error {
	spec, err := EncodeSend(req)
	if err != nil {
		return err
	}

	body, err := c.Do(ctx, "send", spec)
	if err != nil {
		return err
	}

	return DecodeSendResult(body)
}

// Receive polls the mailbox of station and returns the decoded messages.
func (c *Client) Receive(ctx context.Context, station, logonCode string, now time.Time) ([]domain.ACARSMessage, error) {
	spec, err := EncodeReceive(station, logonCode)
	if err != nil {
		return nil, err
	}

	body, err := c.Do(ctx, "receive", spec)
	if err != nil {
		return nil, err
	}

	return DecodeReceived(body, now), nil
}

func classifyTransportError(err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Err: err}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Error{Kind: KindTimeout, Err: err}
	}

	return &Error{Kind: KindUnreachable, Err: err}
}
