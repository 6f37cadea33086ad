package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

// Client talks to the model inference server over REST. Generation is
// asynchronous on the server: submit returns a task id which is polled
// until the generated sequence is ready.
type Client struct {
	apiURL       string
	apiKey       string
	pollInterval time.Duration
	http         *http.Client
}

// NewClient creates a model server client.
func NewClient(apiURL, apiKey string, pollInterval time.Duration) *Client {
	return &Client{
		apiURL:       apiURL,
		apiKey:       apiKey,
		pollInterval: pollInterval,
		http:         &http.Client{Timeout: 60 * time.Second},
	}
}

type submitResp struct {
	Data struct {
		TaskID string `json:"task_id"`
	} `json:"data"`
	Code  int    `json:"code"`
	Error string `json:"error"`
}

type queryResp struct {
	Data struct {
		TaskID string  `json:"task_id"`
		Status int     `json:"status"` // 0=running, 1=success, 2=failed
		Tokens []int32 `json:"tokens"`
		Error  string  `json:"error"`
	} `json:"data"`
	Code int `json:"code"`
}

// WaitForHealthy blocks until the model server responds to health checks.
func (c *Client) WaitForHealthy(ctx context.Context) error {
	log.Println("Waiting for model server to be ready...")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		resp, err := c.http.Get(c.apiURL + "/health")
		if err == nil && resp.StatusCode == http.StatusOK {
			resp.Body.Close()
			log.Println("Model server is healthy")
			return nil
		}
		if resp != nil {
			resp.Body.Close()
		}

		log.Println("Model server not ready, retrying in 5s...")
		time.Sleep(5 * time.Second)
	}
}

// Generate submits one packed example and polls until the generated token
// sequence is available.
func (c *Client) Generate(ctx context.Context, req GenerateRequest) ([]int32, error) {
	taskID, err := c.submit(ctx, req)
	if err != nil {
		return nil, err
	}
	return c.pollUntilDone(ctx, taskID)
}

func (c *Client) submit(ctx context.Context, req GenerateRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.apiURL+"/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("submit generation: %w", err)
	}
	defer resp.Body.Close()

	var result submitResp
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if result.Code != 200 {
		return "", fmt.Errorf("model server error (code %d): %s", result.Code, result.Error)
	}
	return result.Data.TaskID, nil
}

func (c *Client) pollUntilDone(ctx context.Context, taskID string) ([]int32, error) {
	reqBody, _ := json.Marshal(map[string]string{"task_id": taskID})

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		httpReq, err := http.NewRequestWithContext(ctx, "POST", c.apiURL+"/query_result", bytes.NewReader(reqBody))
		if err != nil {
			return nil, fmt.Errorf("create poll request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		resp, err := c.http.Do(httpReq)
		if err != nil {
			log.Printf("Poll error: %v, retrying...", err)
			time.Sleep(c.pollInterval)
			continue
		}

		var result queryResp
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			resp.Body.Close()
			log.Printf("Decode error: %v, retrying...", err)
			time.Sleep(c.pollInterval)
			continue
		}
		resp.Body.Close()

		switch result.Data.Status {
		case 1: // success
			return result.Data.Tokens, nil
		case 2: // failed
			return nil, fmt.Errorf("generation failed for task %s: %s", taskID, result.Data.Error)
		default: // still running
			time.Sleep(c.pollInterval)
		}
	}
}
