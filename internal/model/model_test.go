package model

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// --- FindCheckpoint ---

func mkCheckpoints(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, n := range names {
		if err := os.Mkdir(filepath.Join(dir, n), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestFindCheckpointNewest(t *testing.T) {
	dir := mkCheckpoints(t, "checkpoint-100", "checkpoint-2500", "checkpoint-900")
	got, err := FindCheckpoint(dir)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(got) != "checkpoint-2500" {
		t.Errorf("FindCheckpoint = %s, want checkpoint-2500", got)
	}
}

func TestFindCheckpointIgnoresNoise(t *testing.T) {
	dir := mkCheckpoints(t, "checkpoint-50", "checkpoint-final", "logs", "checkpoint-")
	if err := os.WriteFile(filepath.Join(dir, "checkpoint-999"), nil, 0o644); err != nil {
		t.Fatal(err) // a file, not a directory: must be skipped
	}
	got, err := FindCheckpoint(dir)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(got) != "checkpoint-50" {
		t.Errorf("FindCheckpoint = %s, want checkpoint-50", got)
	}
}

func TestFindCheckpointNone(t *testing.T) {
	dir := mkCheckpoints(t, "logs")
	if _, err := FindCheckpoint(dir); !errors.Is(err, ErrNoCheckpoint) {
		t.Errorf("err = %v, want ErrNoCheckpoint", err)
	}
}

func TestFindCheckpointMissingDir(t *testing.T) {
	if _, err := FindCheckpoint(filepath.Join(t.TempDir(), "absent")); err == nil {
		t.Error("expected error for missing directory")
	}
}

// --- Client ---

func TestClientGenerate(t *testing.T) {
	polls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/generate":
			json.NewEncoder(w).Encode(map[string]any{
				"code": 200,
				"data": map[string]any{"task_id": "t-1"},
			})
		case "/query_result":
			polls++
			status := 0
			var tokens []int32
			if polls >= 2 {
				status = 1
				tokens = []int32{7, 8, 9}
			}
			json.NewEncoder(w).Encode(map[string]any{
				"code": 200,
				"data": map[string]any{"task_id": "t-1", "status": status, "tokens": tokens},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", time.Millisecond)
	got, err := c.Generate(context.Background(), GenerateRequest{InputIDs: []int32{1, 2, 3}})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 || got[0] != 7 {
		t.Errorf("tokens = %v, want [7 8 9]", got)
	}
	if polls < 2 {
		t.Errorf("polls = %d, want at least 2", polls)
	}
}

func TestClientGenerateTaskFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/generate":
			json.NewEncoder(w).Encode(map[string]any{
				"code": 200,
				"data": map[string]any{"task_id": "t-2"},
			})
		case "/query_result":
			json.NewEncoder(w).Encode(map[string]any{
				"code": 200,
				"data": map[string]any{"task_id": "t-2", "status": 2, "error": "oom"},
			})
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", time.Millisecond)
	if _, err := c.Generate(context.Background(), GenerateRequest{}); err == nil {
		t.Error("expected error for failed generation task")
	}
}

func TestClientSubmitError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"code": 400, "error": "bad request"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", time.Millisecond)
	if _, err := c.Generate(context.Background(), GenerateRequest{}); err == nil {
		t.Error("expected error for rejected submission")
	}
}
