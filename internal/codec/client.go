// Package codec talks to the neural audio codec service that turns raw
// audio into discrete code grids and back. The codec itself is an external
// oracle; this package only transports samples and validates its output.
package codec

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

// Client communicates with the codec service's REST API.
type Client struct {
	apiURL string
	apiKey string
	http   *http.Client
}

// NewClient creates a codec service client.
func NewClient(apiURL, apiKey string) *Client {
	return &Client{
		apiURL: apiURL,
		apiKey: apiKey,
		http:   &http.Client{Timeout: 120 * time.Second},
	}
}

type encodeRequest struct {
	SampleRate int     `json:"sample_rate"`
	Samples    []int16 `json:"samples"`
}

type encodeResponse struct {
	Codes [][]int32 `json:"codes"` // codebooks x frames
	Code  int       `json:"code"`
	Error string    `json:"error"`
}

type decodeRequest struct {
	Codes [][]int32 `json:"codes"`
}

type decodeResponse struct {
	SampleRate int     `json:"sample_rate"`
	Samples    []int16 `json:"samples"`
	Code       int     `json:"code"`
	Error      string  `json:"error"`
}

// WaitForHealthy blocks until the codec service responds to health checks.
func (c *Client) WaitForHealthy(ctx context.Context) error {
	log.Println("Waiting for codec service to be ready...")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		resp, err := c.http.Get(c.apiURL + "/health")
		if err == nil && resp.StatusCode == http.StatusOK {
			resp.Body.Close()
			log.Println("Codec service is healthy")
			return nil
		}
		if resp != nil {
			resp.Body.Close()
		}

		log.Println("Codec service not ready, retrying in 5s...")
		time.Sleep(5 * time.Second)
	}
}

// Encode sends raw PCM samples to the codec and returns the code grid
// (codebooks x frames). Every code is validated against vocabSize.
func (c *Client) Encode(ctx context.Context, samples []int16, sampleRate, vocabSize int) ([][]int32, error) {
	var result encodeResponse
	if err := c.post(ctx, "/encode", encodeRequest{SampleRate: sampleRate, Samples: samples}, &result); err != nil {
		return nil, fmt.Errorf("codec encode: %w", err)
	}
	if result.Code != 200 {
		return nil, fmt.Errorf("codec encode: API error (code %d): %s", result.Code, result.Error)
	}
	if err := ValidateGrid(result.Codes, vocabSize); err != nil {
		return nil, fmt.Errorf("codec encode: %w", err)
	}
	return result.Codes, nil
}

// Decode sends a code grid to the codec and returns reconstructed PCM.
func (c *Client) Decode(ctx context.Context, codes [][]int32) ([]int16, int, error) {
	var result decodeResponse
	if err := c.post(ctx, "/decode", decodeRequest{Codes: codes}, &result); err != nil {
		return nil, 0, fmt.Errorf("codec decode: %w", err)
	}
	if result.Code != 200 {
		return nil, 0, fmt.Errorf("codec decode: API error (code %d): %s", result.Code, result.Error)
	}
	return result.Samples, result.SampleRate, nil
}

func (c *Client) post(ctx context.Context, path string, reqBody, out any) error {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.apiURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
