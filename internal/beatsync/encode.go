package beatsync

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Width returns the embedding width produced by Encode for k harmonics:
// sin+cos per harmonic, for the downbeat and the beat signal.
func Width(k int) int { return 4 * k }

// Encode maps the downbeat and beat phase ramps into a bank of Fourier
// features. Row i of the result is, for harmonics 1..k:
//
//	[db sin_1, db cos_1, ..., db sin_k, db cos_k, beat sin_1, ..., beat cos_k]
//
// The column order is part of the trained-model contract and must not change.
// Both ramps must have the same length; the result has one row per frame and
// Width(k) columns.
func Encode(downbeatRamp, beatRamp []float64, k int) (*mat.Dense, error) {
	if k < 1 {
		return nil, fmt.Errorf("beatsync: harmonic count must be >= 1, got %d", k)
	}
	if len(downbeatRamp) != len(beatRamp) {
		return nil, fmt.Errorf("beatsync: ramp length mismatch: downbeat %d vs beat %d",
			len(downbeatRamp), len(beatRamp))
	}
	if len(downbeatRamp) == 0 {
		return nil, fmt.Errorf("beatsync: empty ramps")
	}

	frames := len(downbeatRamp)
	m := mat.NewDense(frames, Width(k), nil)
	for i := 0; i < frames; i++ {
		writeHarmonics(m, i, 0, downbeatRamp[i], k)
		writeHarmonics(m, i, 2*k, beatRamp[i], k)
	}
	return m, nil
}

func writeHarmonics(m *mat.Dense, row, colOff int, phase float64, k int) {
	for h := 1; h <= k; h++ {
		angle := 2 * math.Pi * float64(h) * phase
		m.Set(row, colOff+2*(h-1), math.Sin(angle))
		m.Set(row, colOff+2*(h-1)+1, math.Cos(angle))
	}
}
