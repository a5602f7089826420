// Package push wraps the device-notification gateway. The dispatcher only
// sees the Client contract; the HTTP implementation talks to an FCM-style
// gateway that accepts topic sends and batched endpoint multicasts.
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gatherhub/gatherhub-backend/internal/platform/ctxutil"
	"github.com/gatherhub/gatherhub-backend/internal/platform/envutil"
	"github.com/gatherhub/gatherhub-backend/internal/platform/httpx"
	"github.com/gatherhub/gatherhub-backend/internal/platform/logger"
)

// MaxEndpointsPerSend is the gateway's cap on one multicast request.
// Larger endpoint lists are chunked by the caller.
const MaxEndpointsPerSend = 500

type Client interface {
	SendToTopic(ctx context.Context, topic string, msg Message) (*Receipt, error)
	SendToEndpoints(ctx context.Context, endpoints []string, msg Message) (*Receipt, error)
}

// Message is a fully coerced notification: Data values are plain text by the
// time they reach the transport.
type Message struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

type Receipt struct {
	MessageID string `json:"message_id"`
	Delivered int    `json:"delivered"`
	Failed    int    `json:"failed"`
}

type Config struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	MaxRetries int
}

func ConfigFromEnv() Config {
	return Config{
		BaseURL:    strings.TrimSpace(envutil.Str("PUSH_GATEWAY_URL", "")),
		APIKey:     strings.TrimSpace(envutil.Str("PUSH_GATEWAY_API_KEY", "")),
		Timeout:    envutil.Duration("PUSH_GATEWAY_TIMEOUT", 30*time.Second),
		MaxRetries: envutil.Int("PUSH_GATEWAY_MAX_RETRIES", 4),
	}
}

func NewFromEnv(log *logger.Logger) (Client, error) {
	return New(log, ConfigFromEnv())
}

func New(log *logger.Logger, cfg Config) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("missing PUSH_GATEWAY_URL")
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &client{
		log:        log.With("client", "PushClient"),
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type client struct {
	log        *logger.Logger
	cfg        Config
	httpClient *http.Client
}

// --- gateway wire types ---

type sendRequest struct {
	To           string            `json:"to,omitempty"`
	Endpoints    []string          `json:"registration_ids,omitempty"`
	Notification wireNotification  `json:"notification"`
	Data         map[string]string `json:"data,omitempty"`
}

type wireNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type sendResponse struct {
	MessageID string `json:"message_id"`
	Success   int    `json:"success"`
	Failure   int    `json:"failure"`
}

func (c *client) SendToTopic(ctx context.Context, topic string, msg Message) (*Receipt, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, fmt.Errorf("push: topic required")
	}
	wire := sendRequest{
		To:           "/topics/" + topic,
		Notification: wireNotification{Title: msg.Title, Body: msg.Body},
		Data:         msg.Data,
	}
	return c.send(ctx, wire)
}

func (c *client) SendToEndpoints(ctx context.Context, endpoints []string, msg Message) (*Receipt, error) {
	if len(endpoints) == 0 {
		return nil, fmt.Errorf("push: endpoints required")
	}
	if len(endpoints) > MaxEndpointsPerSend {
		return nil, fmt.Errorf("push: %d endpoints exceeds per-send cap %d", len(endpoints), MaxEndpointsPerSend)
	}
	wire := sendRequest{
		Endpoints:    endpoints,
		Notification: wireNotification{Title: msg.Title, Body: msg.Body},
		Data:         msg.Data,
	}
	return c.send(ctx, wire)
}

func (c *client) send(ctx context.Context, wire sendRequest) (*Receipt, error) {
	resp, raw, err := c.do(ctx, http.MethodPost, "/send", wire)
	if err != nil {
		return nil, err
	}

	var sr sendResponse
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &sr); err != nil {
			c.log.Warn("Push gateway returned unparseable body", "status", resp.StatusCode, "error", err)
		}
	}
	delivered := sr.Success
	if delivered == 0 && sr.Failure == 0 {
		delivered = len(wire.Endpoints)
	}
	return &Receipt{
		MessageID: strings.TrimSpace(sr.MessageID),
		Delivered: delivered,
		Failed:    sr.Failure,
	}, nil
}

// --- HTTP / retry helpers ---

type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e == nil {
		return "push: <nil error>"
	}
	msg := strings.TrimSpace(e.Body)
	if msg == "" {
		msg = "<empty body>"
	}
	if len(msg) > 2000 {
		msg = msg[:2000] + "..."
	}
	return fmt.Sprintf("push gateway http %d: %s", e.StatusCode, msg)
}

func (e *HTTPError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

func (c *client) do(ctx context.Context, method, path string, body any) (*http.Response, []byte, error) {
	backoff := 1 * time.Second

	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}

		resp, raw, err := c.doOnce(ctx, method, path, body)
		if err == nil {
			return resp, raw, nil
		}

		if !httpx.IsRetryableError(err) || attempt == c.cfg.MaxRetries {
			return nil, nil, err
		}

		sleepFor := httpx.RetryAfterDuration(resp, backoff, 10*time.Second)
		sleepFor = httpx.JitterSleep(sleepFor)

		c.log.Warn("Push gateway request retrying",
			"path", path,
			"attempt", attempt+1,
			"max_retries", c.cfg.MaxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)

		time.Sleep(sleepFor)
		backoff *= 2
	}

	return nil, nil, errors.New("unreachable retry loop")
}

func (c *client) doOnce(ctx context.Context, method, path string, body any) (*http.Response, []byte, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctxutil.Default(ctx), method, c.cfg.BaseURL+path, &buf)
	if err != nil {
		return nil, nil, err
	}
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}

	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, nil, readErr
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, raw, &HTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	return resp, raw, nil
}
