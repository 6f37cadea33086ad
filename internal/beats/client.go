// Package beats talks to the external beat/downbeat detection service.
// Detector failures surface as explicit errors naming the clip; an empty
// event list never turns into a silent zero signal downstream.
package beats

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

// Events holds one clip's detected beat and downbeat timestamps, seconds,
// strictly increasing.
type Events struct {
	Beats     []float64 `json:"beats"`
	Downbeats []float64 `json:"downbeats"`
}

// Client communicates with the beat detector's REST API.
type Client struct {
	apiURL string
	http   *http.Client
}

// NewClient creates a beat detector client.
func NewClient(apiURL string) *Client {
	return &Client{
		apiURL: apiURL,
		http:   &http.Client{Timeout: 60 * time.Second},
	}
}

type analyzeRequest struct {
	SampleRate int     `json:"sample_rate"`
	Samples    []int16 `json:"samples"`
}

type analyzeResponse struct {
	Beats     []float64 `json:"beats"`
	Downbeats []float64 `json:"downbeats"`
	Code      int       `json:"code"`
	Error     string    `json:"error"`
}

// WaitForHealthy blocks until the detector responds to health checks.
func (c *Client) WaitForHealthy(ctx context.Context) error {
	log.Println("Waiting for beat detector to be ready...")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		resp, err := c.http.Get(c.apiURL + "/health")
		if err == nil && resp.StatusCode == http.StatusOK {
			resp.Body.Close()
			log.Println("Beat detector is healthy")
			return nil
		}
		if resp != nil {
			resp.Body.Close()
		}

		log.Println("Beat detector not ready, retrying in 5s...")
		time.Sleep(5 * time.Second)
	}
}

// Analyze runs beat and downbeat detection on one clip. clipID is used only
// in error messages so batch logs identify the failing source.
func (c *Client) Analyze(ctx context.Context, clipID string, samples []int16, sampleRate int) (*Events, error) {
	body, err := json.Marshal(analyzeRequest{SampleRate: sampleRate, Samples: samples})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.apiURL+"/analyze", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("analyze %s: %w", clipID, err)
	}
	defer resp.Body.Close()

	var result analyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("analyze %s: decode response: %w", clipID, err)
	}
	if result.Code != 200 {
		return nil, fmt.Errorf("analyze %s: API error (code %d): %s", clipID, result.Code, result.Error)
	}

	ev := &Events{Beats: result.Beats, Downbeats: result.Downbeats}
	if err := ev.Validate(clipID); err != nil {
		return nil, err
	}
	return ev, nil
}

// Validate rejects event series too sparse to interpolate. The ramp builder
// needs at least one inter-event segment for each signal.
func (e *Events) Validate(clipID string) error {
	if len(e.Beats) < 2 {
		return fmt.Errorf("beats: clip %s: detector returned %d beats, need at least 2", clipID, len(e.Beats))
	}
	if len(e.Downbeats) < 2 {
		return fmt.Errorf("beats: clip %s: detector returned %d downbeats, need at least 2", clipID, len(e.Downbeats))
	}
	return nil
}
