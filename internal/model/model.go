// Package model is the boundary to the external sequence model. The model
// and its training loop live in a separate service; this package only
// submits packed inputs, polls for generated tokens, and locates per-class
// checkpoints. Fused embeddings are produced by composition in front of
// the model, never by reaching into it.
package model

import (
	"context"
	"errors"
)

// ErrNoCheckpoint is returned when a class has no trained checkpoint.
var ErrNoCheckpoint = errors.New("model: no checkpoint found")

// GenerateRequest carries one packed example to the model server. InputIDs
// and AttentionMask share the fixed context length; PosEmb is the packed
// positional embedding, row-major (ContextLength x Width); the server
// applies the configured fusion before the first transformer block.
type GenerateRequest struct {
	Checkpoint    string      `json:"checkpoint"`
	InputIDs      []int32     `json:"input_ids"`
	AttentionMask []bool      `json:"attention_mask"`
	PosEmb        [][]float64 `json:"positional_embeddings"`
	FusionMode    string      `json:"fusion_mode"`
}

// Generator produces a generated token sequence of the same fixed length
// as the input. Implementations must be safe for concurrent use.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) ([]int32, error)
}
