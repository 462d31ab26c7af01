// Package postmark delivers outbound email through the Postmark REST API.
package postmark

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/eanyanwu/whotookmy.money/internal/core"
)

const defaultAPIURL = "https://api.postmarkapp.com/email"

// Client implements outbox.Sender against Postmark's single-email endpoint.
type Client struct {
	token  string
	apiURL string
	http   *http.Client
}

func NewClient(token string) *Client {
	return &Client{
		token:  token,
		apiURL: defaultAPIURL,
		http:   &http.Client{Timeout: 30 * time.Second},
	}
}

// outboundMessage is Postmark's payload shape.
type outboundMessage struct {
	From     string `json:"From"`
	To       string `json:"To"`
	Subject  string `json:"Subject"`
	TextBody string `json:"TextBody"`
	HtmlBody string `json:"HtmlBody,omitempty"`
}

// Send posts the email to Postmark. Network failures and non-2xx responses
// both come back as errors; the caller decides whether to retry.
func (c *Client) Send(ctx context.Context, email core.OutboundEmail, user core.User) error {
	payload, err := json.Marshal(outboundMessage{
		From:     email.Sender,
		To:       user.UserEmail,
		Subject:  email.Subject,
		TextBody: email.Body,
		HtmlBody: email.BodyHTML,
	})
	if err != nil {
		return fmt.Errorf("marshal postmark payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build postmark request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Postmark-Server-Token", c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("post to postmark: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("postmark returned %d: %s", resp.StatusCode, body)
	}

	return nil
}
