// Package packing reconciles variable-length codec token streams and
// positional-embedding matrices with the model's fixed context length.
// Tokens, attention mask, labels, and embedding rows of a packed example
// always share one time axis of exactly the target length.
package packing

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Tokens pads or truncates a token sequence to exactly targetLength.
// Overlong input keeps the leading targetLength tokens; short input is
// right-padded with padValue. The input slice is never modified.
func Tokens(raw []int32, targetLength int, padValue int32) []int32 {
	out := make([]int32, targetLength)
	n := copy(out, raw)
	for i := n; i < targetLength; i++ {
		out[i] = padValue
	}
	return out
}

// Mask derives the attention mask from an already-packed sequence:
// position i attends iff packed[i] differs from the pad value. A genuine
// token equal to the pad value is indistinguishable from padding; that
// ambiguity is inherited from the trained model's convention.
func Mask(packed []int32, padValue int32) []bool {
	mask := make([]bool, len(packed))
	for i, v := range packed {
		mask[i] = v != padValue
	}
	return mask
}

// Embeddings pads or truncates a positional-embedding matrix row-wise to
// exactly targetLength rows. Missing rows are all-zero; surplus rows are
// dropped from the tail.
func Embeddings(m *mat.Dense, targetLength int) *mat.Dense {
	rows, cols := m.Dims()
	out := mat.NewDense(targetLength, cols, nil)
	for i := 0; i < targetLength && i < rows; i++ {
		out.SetRow(i, m.RawRowView(i))
	}
	return out
}

// Example is one fixed-length, label-aligned training or inference example.
type Example struct {
	SampleID      string
	InputIDs      []int32
	AttentionMask []bool
	Labels        []int32
	PosEmb        *mat.Dense
}

// NewExample packs conditioning tokens, target tokens, and the positional
// embedding to the shared context length and derives the attention mask.
// The length postcondition is checked before returning.
func NewExample(sampleID string, inputTokens, labelTokens []int32, posEmb *mat.Dense, targetLength int, padValue int32) (*Example, error) {
	if targetLength <= 0 {
		return nil, fmt.Errorf("packing: target length must be positive, got %d", targetLength)
	}

	ex := &Example{
		SampleID: sampleID,
		InputIDs: Tokens(inputTokens, targetLength, padValue),
		Labels:   Tokens(labelTokens, targetLength, padValue),
		PosEmb:   Embeddings(posEmb, targetLength),
	}
	ex.AttentionMask = Mask(ex.InputIDs, padValue)

	rows, _ := ex.PosEmb.Dims()
	if len(ex.InputIDs) != targetLength || len(ex.AttentionMask) != targetLength ||
		len(ex.Labels) != targetLength || rows != targetLength {
		return nil, fmt.Errorf("packing: postcondition violated for sample %s: ids=%d mask=%d labels=%d posemb=%d want %d",
			sampleID, len(ex.InputIDs), len(ex.AttentionMask), len(ex.Labels), rows, targetLength)
	}
	return ex, nil
}
