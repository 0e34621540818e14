package pushover

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"avr-control/internal/infra"
)

const DefaultEndpoint = "https://api.pushover.net/1/messages.json"

type Client struct {
	token      string
	userKey    string
	endpoint   string
	retry      infra.RetryConfig
	httpClient *http.Client
}

func NewClient(token, userKey string) *Client {
	return &Client{
		token:      token,
		userKey:    userKey,
		endpoint:   DefaultEndpoint,
		retry:      infra.DefaultRetryConfig(),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// WithEndpoint points the client at another messages API, e.g. a test server.
func (c *Client) WithEndpoint(endpoint string) *Client {
	c.endpoint = endpoint
	return c
}

func (c *Client) WithRetry(cfg infra.RetryConfig) *Client {
	c.retry = cfg
	return c
}

func (c *Client) Notify(ctx context.Context, message string) error {
	if c.token == "" || c.userKey == "" {
		return nil
	}

	data := url.Values{}
	data.Set("token", c.token)
	data.Set("user", c.userKey)
	data.Set("message", message)
	data.Set("title", "AVR Control")
	body := data.Encode()

	return infra.WithRetry(ctx, c.retry, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(body))
		if err != nil {
			return &infra.PermanentError{Err: fmt.Errorf("creating request: %w", err)}
		}

		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("sending notification: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			// Drained so the connection can be reused by the next attempt.
			io.Copy(io.Discard, resp.Body)
			err := fmt.Errorf("pushover error: %s", resp.Status)
			if !infra.IsRetryableHTTPStatus(resp.StatusCode) {
				return &infra.PermanentError{Err: err}
			}
			return err
		}

		return nil
	})
}
