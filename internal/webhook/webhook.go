// Package webhook posts Discord embed notifications, used for staff
// announcements such as newly ranked beatmaps.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Embed mirrors the subset of the Discord embed object we send.
type Embed struct {
	Description string  `json:"description,omitempty"`
	Color       int     `json:"color,omitempty"`
	Author      *Author `json:"author,omitempty"`
	Footer      *Footer `json:"footer,omitempty"`
	Image       *Image  `json:"image,omitempty"`
}

type Author struct {
	Name    string `json:"name,omitempty"`
	URL     string `json:"url,omitempty"`
	IconURL string `json:"icon_url,omitempty"`
}

type Footer struct {
	Text string `json:"text,omitempty"`
}

type Image struct {
	URL string `json:"url,omitempty"`
}

type payload struct {
	Embeds []Embed `json:"embeds"`
}

// Client posts embeds to webhook URLs.
type Client struct {
	httpc *http.Client
}

func NewClient() *Client {
	return &Client{httpc: &http.Client{Timeout: 10 * time.Second}}
}

// Send delivers one embed to the given webhook URL.
func (c *Client) Send(ctx context.Context, url string, e Embed) error {
	body, err := json.Marshal(payload{Embeds: []Embed{e}})
	if err != nil {
		return fmt.Errorf("encoding webhook payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("posting webhook: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned %s", resp.Status)
	}
	return nil
}
