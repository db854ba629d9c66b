// Package performance asks the score server's API what a beatmap is
// worth in pp.
package performance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Result is the score server's answer for one beatmap and mod combo.
// PP holds four values (100%, 99%, 98%, 95%) for a plain request and a
// single value when an accuracy was given.
type Result struct {
	Status   int       `json:"status"`
	Message  string    `json:"message"`
	SongName string    `json:"song_name"`
	PP       []float64 `json:"pp"`
	Length   int       `json:"length"`
	Stars    float64   `json:"stars"`
	AR       float64   `json:"ar"`
	BPM      int       `json:"bpm"`
}

// Client queries the score server's pp endpoint.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the score server at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Calculate fetches pp values for a beatmap with the given mods.
// Accuracy below zero asks for the standard four-accuracy spread.
func (c *Client) Calculate(ctx context.Context, beatmapID, mods int32, accuracy float64) (Result, error) {
	query := url.Values{}
	query.Set("b", strconv.Itoa(int(beatmapID)))
	query.Set("m", strconv.Itoa(int(mods)))
	if accuracy >= 0 {
		query.Set("a", strconv.FormatFloat(accuracy, 'f', -1, 64))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/api/v1/pp?"+query.Encode(), nil)
	if err != nil {
		return Result{}, fmt.Errorf("building pp request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("querying pp api: %w", err)
	}
	defer resp.Body.Close()

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Result{}, fmt.Errorf("decoding pp response: %w", err)
	}
	return result, nil
}
