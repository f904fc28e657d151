package deviceapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/muurk/dmxsync/internal/logging"
	"github.com/muurk/dmxsync/internal/snapshot"
	"github.com/muurk/dmxsync/internal/version"
)

const (
	// DefaultTimeout is the default HTTP request timeout
	DefaultTimeout = 10 * time.Second

	// DefaultRetryDelay is the default delay between retry attempts
	DefaultRetryDelay = 1 * time.Second

	// DefaultMaxRetryDelay is the maximum delay for exponential backoff
	DefaultMaxRetryDelay = 30 * time.Second

	// maxBodySize bounds how much of a response is read
	maxBodySize = 64 << 10
)

// Command is a fire-and-forget device action.
type Command string

const (
	CommandReboot       Command = "reboot"
	CommandFactoryReset Command = "factory-reset"
)

// Label is the name used in notifications.
func (c Command) Label() string {
	switch c {
	case CommandReboot:
		return "Reboot"
	case CommandFactoryReset:
		return "Factory reset"
	default:
		return string(c)
	}
}

// Client talks to the controller's REST API.
type Client struct {
	// BaseURL is the base URL for the device (e.g., "http://192.168.1.50")
	BaseURL string

	// HTTPClient is the underlying HTTP client
	HTTPClient *http.Client

	// MaxRetries is the number of extra attempts for retryable failures.
	// The synchronizer leaves it at zero: the next poll is its retry.
	MaxRetries int

	// RetryDelay is the initial delay between retry attempts
	RetryDelay time.Duration

	// MaxRetryDelay is the maximum delay for exponential backoff
	MaxRetryDelay time.Duration

	// UseExponentialBackoff doubles the delay after each retry
	UseExponentialBackoff bool
}

// NewClient creates a client for host:port.
func NewClient(host string, port int) *Client {
	return NewClientWithURL("http://" + net.JoinHostPort(host, strconv.Itoa(port)))
}

// NewClientWithURL creates a client with a full base URL
// baseURL: e.g. "http://192.168.1.50" or "https://dmx.local:8443"
func NewClientWithURL(baseURL string) *Client {
	return &Client{
		BaseURL:               strings.TrimRight(baseURL, "/"),
		HTTPClient:            &http.Client{Timeout: DefaultTimeout},
		RetryDelay:            DefaultRetryDelay,
		MaxRetryDelay:         DefaultMaxRetryDelay,
		UseExponentialBackoff: true,
	}
}

// SetTimeout sets the HTTP request timeout
func (c *Client) SetTimeout(timeout time.Duration) {
	c.HTTPClient.Timeout = timeout
}

// SetRetry configures retry behavior
func (c *Client) SetRetry(maxRetries int, retryDelay time.Duration) {
	c.MaxRetries = maxRetries
	c.RetryDelay = retryDelay
}

// GetConfig fetches GET /api/config.
func (c *Client) GetConfig(ctx context.Context) (*snapshot.Snapshot, error) {
	body, err := c.do(ctx, http.MethodGet, "/api/config", nil)
	if err != nil {
		return nil, err
	}
	snap, err := snapshot.Parse(body)
	if err != nil {
		return nil, NewParseError("failed to parse configuration", c.BaseURL+"/api/config", err)
	}
	return snap, nil
}

// GetAPConfig fetches GET /api/ap/config (ssid and enabled; the password is
// never returned).
func (c *Client) GetAPConfig(ctx context.Context) (*snapshot.Snapshot, error) {
	body, err := c.do(ctx, http.MethodGet, "/api/ap/config", nil)
	if err != nil {
		return nil, err
	}
	snap, err := snapshot.Parse(body)
	if err != nil {
		return nil, NewParseError("failed to parse access point configuration", c.BaseURL+"/api/ap/config", err)
	}
	return snap, nil
}

// Submit posts fields as a JSON object to /api/{form}.
func (c *Client) Submit(ctx context.Context, form snapshot.Form, fields *snapshot.Snapshot) error {
	if _, err := snapshot.ParseForm(string(form)); err != nil {
		return NewValidationError(err.Error())
	}
	payload, err := json.Marshal(fields)
	if err != nil {
		return NewValidationError(fmt.Sprintf("failed to encode %s fields: %v", form, err))
	}
	_, err = c.do(ctx, http.MethodPost, "/api/"+string(form), payload)
	return err
}

// Reboot asks the controller to restart.
func (c *Client) Reboot(ctx context.Context) error {
	return c.Command(ctx, CommandReboot)
}

// FactoryReset asks the controller to restore its defaults.
func (c *Client) FactoryReset(ctx context.Context) error {
	return c.Command(ctx, CommandFactoryReset)
}

// Command posts an empty request to /api/{cmd}.
func (c *Client) Command(ctx context.Context, cmd Command) error {
	_, err := c.do(ctx, http.MethodPost, "/api/"+string(cmd), nil)
	return err
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	var lastErr error
	delay := c.RetryDelay

	for attempt := 0; attempt <= c.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ClassifyNetworkError(ctx.Err(), c.BaseURL+path)
			case <-time.After(delay):
			}
			if c.UseExponentialBackoff {
				delay *= 2
				if delay > c.MaxRetryDelay {
					delay = c.MaxRetryDelay
				}
			}
		}

		body, err := c.attempt(ctx, method, path, payload)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !IsRetryable(err) {
			return nil, err
		}
	}
	return nil, lastErr
}

func (c *Client) attempt(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	endpoint := c.BaseURL + path

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, NewValidationError(fmt.Sprintf("failed to create %s request: %v", method, err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		devErr := NewNetworkError(method+" request failed", endpoint, err)
		logging.LogHTTPRequest(method, endpoint, 0, devErr)
		return nil, devErr
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		devErr := NewNetworkError("failed to read response body", endpoint, err)
		logging.LogHTTPRequest(method, endpoint, resp.StatusCode, devErr)
		return nil, devErr
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		devErr := NewHTTPError(resp.StatusCode, endpoint, string(body))
		logging.LogHTTPRequest(method, endpoint, resp.StatusCode, devErr)
		return nil, devErr
	}

	logging.LogHTTPRequest(method, endpoint, resp.StatusCode, nil)
	return body, nil
}
