package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"feedgate/internal/metrics"
	"feedgate/internal/models"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// maxResponseBytes caps how much of a node response is read.
const maxResponseBytes = 32 << 20

// DefaultHTTPTimeout bounds each request when Options.HTTPTimeout is unset.
var DefaultHTTPTimeout = 30 * time.Second

// Options configures a Client.
type Options struct {
	Endpoint    string
	User        string
	Password    string
	RateLimit   float64
	MaxRetries  int
	RetryDelay  time.Duration
	HTTPTimeout time.Duration
	Logger      *zerolog.Logger
	// Transport overrides the pooled default transport.
	Transport http.RoundTripper
}

// Client is a bitcoind JSON-RPC 1.0 client. It holds only its endpoint,
// credentials and pooled transport, and is safe for concurrent use.
type Client struct {
	endpoint    string
	rateLimiter *rate.Limiter
	maxRetries  int
	retryDelay  time.Duration
	logger      *zerolog.Logger
	httpClient  *http.Client
	nextID      atomic.Int64
}

// NewClient creates a new RPC client with the given configuration
func NewClient(opts Options) *Client {
	limit := rate.Inf
	burst := 1
	if opts.RateLimit > 0 {
		limit = rate.Limit(opts.RateLimit)
		if b := int(opts.RateLimit); b > burst {
			burst = b
		}
	}

	maxRetries := opts.MaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}

	timeout := opts.HTTPTimeout
	if timeout <= 0 {
		timeout = DefaultHTTPTimeout
	}

	logger := opts.Logger
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	base := opts.Transport
	if base == nil {
		base = &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        64,
			MaxIdleConnsPerHost: 64,
			IdleConnTimeout:     90 * time.Second,
		}
	}

	return &Client{
		endpoint:    opts.Endpoint,
		rateLimiter: rate.NewLimiter(limit, burst),
		maxRetries:  maxRetries,
		retryDelay:  opts.RetryDelay,
		logger:      logger,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &BasicAuthTransport{
				Base:     base,
				User:     opts.User,
				Password: opts.Password,
			},
		},
	}
}

// BasicAuthTransport adds the node credentials to every request.
type BasicAuthTransport struct {
	Base     http.RoundTripper
	User     string
	Password string
}

func (t *BasicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("Content-Type", "application/json")
	if t.User != "" {
		req.SetBasicAuth(t.User, t.Password)
	}
	return t.Base.RoundTrip(req)
}

// Call performs one RPC and returns the raw result. A non-null error field
// yields *RemoteRejected. Only transport failures are retried.
func (c *Client) Call(ctx context.Context, method string, params []interface{}) (json.RawMessage, error) {
	if params == nil {
		params = []interface{}{}
	}

	c.logger.Debug().
		Str("method", method).
		Interface("params", params).
		Msg("Making RPC call")

	payload, err := json.Marshal(models.RPCRequest{
		Jsonrpc: "1.0",
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return nil, fmt.Errorf("rpc %s: marshal request: %w", method, err)
	}

	start := time.Now()
	var result json.RawMessage
	err = c.retry(ctx, func() error {
		var callErr error
		result, callErr = c.do(ctx, method, payload)
		return callErr
	})
	metrics.RPCDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	metrics.RPCCalls.WithLabelValues(method, outcome(err)).Inc()

	if err != nil {
		c.logger.Error().
			Err(err).
			Str("method", method).
			Interface("params", params).
			Msg("RPC call failed")
		return nil, err
	}

	return result, nil
}

func (c *Client) do(ctx context.Context, method string, payload []byte) (json.RawMessage, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, &TransportError{Method: method, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, &TransportError{Method: method, Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Method: method, Err: err}
	}
	defer func(Body io.ReadCloser) {
		_ = Body.Close()
	}(resp.Body)

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &TransportError{Method: method, Err: fmt.Errorf("read body: %w", err)}
	}

	okStatus := resp.StatusCode >= 200 && resp.StatusCode < 300

	var response models.RPCResponse
	if err := json.Unmarshal(body, &response); err != nil {
		if !okStatus {
			return nil, &TransportError{Method: method, Err: fmt.Errorf("HTTP error: %s", resp.Status)}
		}
		return nil, protocolError(method, "decode response: %v", err)
	}

	// bitcoind reports RPC errors with HTTP 500 and a JSON body.
	if rpcErr := parseRPCError(response.Error); rpcErr != nil {
		return nil, &RemoteRejected{Method: method, Code: rpcErr.Code, Message: rpcErr.Message}
	}
	if !okStatus {
		return nil, &TransportError{Method: method, Err: fmt.Errorf("HTTP error: %s", resp.Status)}
	}

	return response.Result, nil
}

// parseRPCError returns nil when raw is absent or null. Nodes send either a
// {code, message} object or a bare string.
func parseRPCError(raw json.RawMessage) *models.RPCError {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	var msg string
	if err := json.Unmarshal(trimmed, &msg); err == nil {
		return &models.RPCError{Message: msg}
	}

	var rpcErr models.RPCError
	if err := json.Unmarshal(trimmed, &rpcErr); err == nil {
		return &rpcErr
	}

	return &models.RPCError{Message: string(trimmed)}
}

// retry executes fn up to maxRetries times, retrying transport failures only.
func (c *Client) retry(ctx context.Context, fn func() error) error {
	var err error
	for i := 0; i < c.maxRetries; i++ {
		if err = fn(); err == nil || !errors.Is(err, ErrTransport) {
			return err
		}
		if i == c.maxRetries-1 {
			break
		}

		select {
		case <-ctx.Done():
			return err
		case <-time.After(c.retryDelay):
		}
	}
	return err
}

// Close closes the HTTP client connections
func (c *Client) Close() {
	if c.httpClient != nil {
		c.httpClient.CloseIdleConnections()
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrRejected):
		return "rejected"
	case errors.Is(err, ErrProtocol):
		return "protocol"
	default:
		return "transport"
	}
}
