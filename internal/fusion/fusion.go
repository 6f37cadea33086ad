// Package fusion merges beat-synchronized positional embeddings into token
// embeddings before they reach the sequence model. The two conventions are
// numerically incompatible: a model trained under one cannot be served under
// the other, so the mode is fixed by configuration and applied identically
// at training and inference time.
package fusion

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Mode selects the fusion convention.
type Mode string

const (
	// ModeConcatReplace adds the positional embedding into the trailing
	// posemb-width channels of the token embedding, leaving the leading
	// channels untouched.
	ModeConcatReplace Mode = "concat-replace"

	// ModeAdditive adds the positional embedding onto the full token
	// embedding; requires matching widths.
	ModeAdditive Mode = "additive"
)

// ParseMode validates a configured fusion mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeConcatReplace, ModeAdditive:
		return Mode(s), nil
	}
	return "", fmt.Errorf("fusion: unknown mode %q (want %q or %q)", s, ModeConcatReplace, ModeAdditive)
}

// Fuse applies the selected convention, returning a new (rows x embedDim)
// matrix. tokEmb is (rows x embedDim), posEmb is (rows x posDim); both
// inputs are left unmodified.
func Fuse(mode Mode, tokEmb, posEmb *mat.Dense) (*mat.Dense, error) {
	switch mode {
	case ModeConcatReplace:
		return ConcatReplace(tokEmb, posEmb)
	case ModeAdditive:
		return Additive(tokEmb, posEmb)
	}
	return nil, fmt.Errorf("fusion: unknown mode %q", mode)
}

// ConcatReplace keeps the leading (embedDim - posDim) token-embedding
// channels and adds the positional embedding into the trailing posDim
// channels.
func ConcatReplace(tokEmb, posEmb *mat.Dense) (*mat.Dense, error) {
	rows, embedDim := tokEmb.Dims()
	pRows, posDim := posEmb.Dims()
	if rows != pRows {
		return nil, fmt.Errorf("fusion: row mismatch: token %d vs positional %d", rows, pRows)
	}
	if posDim > embedDim {
		return nil, fmt.Errorf("fusion: positional width %d exceeds embedding width %d", posDim, embedDim)
	}

	out := mat.DenseCopyOf(tokEmb)
	lead := embedDim - posDim
	for i := 0; i < rows; i++ {
		for j := 0; j < posDim; j++ {
			out.Set(i, lead+j, tokEmb.At(i, lead+j)+posEmb.At(i, j))
		}
	}
	return out, nil
}

// Additive adds the positional embedding onto the whole token embedding.
func Additive(tokEmb, posEmb *mat.Dense) (*mat.Dense, error) {
	rows, embedDim := tokEmb.Dims()
	pRows, posDim := posEmb.Dims()
	if rows != pRows || embedDim != posDim {
		return nil, fmt.Errorf("fusion: additive mode needs matching shapes, got (%d,%d) vs (%d,%d)",
			rows, embedDim, pRows, posDim)
	}
	out := mat.NewDense(rows, embedDim, nil)
	out.Add(tokEmb, posEmb)
	return out, nil
}
