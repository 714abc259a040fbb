package webhook

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/radwatch/gammacore/pkg/models"
)

// Client pushes analysis records to the configured results endpoint (the
// exporting/UI layer). Connections are pooled because live acquisitions
// re-analyze and push on every poll cycle.
type Client struct {
	url        string
	httpClient *http.Client
}

// NewClient creates a webhook client with pooled connections.
func NewClient(url string) *Client {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 20,
		IdleConnTimeout:     90 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
	}
	return &Client{
		url: url,
		httpClient: &http.Client{
			Timeout:   45 * time.Second,
			Transport: transport,
		},
	}
}

// Enabled reports whether a target URL is configured.
func (c *Client) Enabled() bool { return c.url != "" }

// Send POSTs one result push, retrying transient failures twice with
// backoff.
func (c *Client) Send(item models.WebhookItem) error {
	if !c.Enabled() {
		return nil
	}
	payload, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		if attempt > 0 {
			time.Sleep(time.Duration(attempt) * 500 * time.Millisecond)
		}
		resp, err := c.httpClient.Post(c.url, "application/json", bytes.NewReader(payload))
		if err != nil {
			lastErr = err
			continue
		}
		resp.Body.Close()
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil
		}
		lastErr = fmt.Errorf("webhook endpoint returned %s", resp.Status)
	}
	return lastErr
}

// Run drains the queue until it is closed, logging delivery failures.
func (c *Client) Run(queue <-chan models.WebhookItem) {
	for item := range queue {
		if err := c.Send(item); err != nil {
			log.Printf("webhook delivery failed for %s: %v", item.RequestID, err)
		}
	}
}
