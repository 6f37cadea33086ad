// Package beatsync converts sparse beat and downbeat timestamps into dense
// per-frame phase signals and Fourier positional embeddings for the
// stem-generation model.
package beatsync

import (
	"errors"
	"fmt"
	"math"
)

// ErrTooFewEvents is returned when fewer than two events are available,
// leaving no inter-event segment to interpolate or tile from.
var ErrTooFewEvents = errors.New("beatsync: need at least 2 events")

// Ramp converts ordered event times (seconds) into a dense per-frame phase
// signal over the whole clip. Each inter-event span is filled with a linear
// ramp from 0 toward 1, resetting to 0 at every event. Frames before the
// first event and after the last are filled by tiling the nearest segment,
// so the signal stays periodic at the clip edges instead of going flat.
//
// The output always has ceil(duration*frameRate) frames, regardless of the
// number of events.
func Ramp(eventTimes []float64, frameRate, duration float64) ([]float64, error) {
	if len(eventTimes) < 2 {
		return nil, fmt.Errorf("%w, got %d", ErrTooFewEvents, len(eventTimes))
	}
	if frameRate <= 0 || duration <= 0 {
		return nil, fmt.Errorf("beatsync: invalid frame rate %v or duration %v", frameRate, duration)
	}
	for i := 1; i < len(eventTimes); i++ {
		if eventTimes[i] <= eventTimes[i-1] {
			return nil, fmt.Errorf("beatsync: event times not strictly increasing at index %d (%v <= %v)",
				i, eventTimes[i], eventTimes[i-1])
		}
	}

	numFrames := int(math.Ceil(duration * frameRate))
	out := make([]float64, numFrames)

	// Event times to frame indices. Indices past the clip end are clamped
	// when filling; the ramp geometry still uses the rounded positions.
	idx := make([]int, len(eventTimes))
	for i, t := range eventTimes {
		idx[i] = int(math.Round(t * frameRate))
	}

	// Collapse events that round to the same frame.
	idx = dedupe(idx)
	if len(idx) < 2 {
		return nil, fmt.Errorf("%w after rounding to frames", ErrTooFewEvents)
	}

	// Fill each inter-event span [a, b) with (j-a)/(b-a).
	for s := 0; s < len(idx)-1; s++ {
		a, b := idx[s], idx[s+1]
		span := float64(b - a)
		for j := max(a, 0); j < b && j < numFrames; j++ {
			out[j] = float64(j-a) / span
		}
	}

	fillPreRoll(out, idx)
	fillPostRoll(out, idx, numFrames)
	return out, nil
}

// fillPreRoll tiles the first inter-event segment backward over the frames
// before the first event, taking the trailing values of the repeated pattern.
func fillPreRoll(out []float64, idx []int) {
	first := idx[0]
	if first <= 0 {
		return
	}
	segLen := idx[1] - idx[0]
	for j := 0; j < first && j < len(out); j++ {
		// Position within the backward-tiled pattern: frame first-1 maps to
		// the last pattern value, first-2 to the one before, wrapping.
		off := ((j-first)%segLen + segLen) % segLen
		out[j] = float64(off) / float64(segLen)
	}
}

// fillPostRoll tiles the last inter-event segment forward over the frames
// after the last event, taking the leading values of the repeated pattern.
func fillPostRoll(out []float64, idx []int, numFrames int) {
	last := idx[len(idx)-1]
	if last >= numFrames {
		return
	}
	segLen := idx[len(idx)-1] - idx[len(idx)-2]
	for j := max(last, 0); j < numFrames; j++ {
		off := (j - last) % segLen
		out[j] = float64(off) / float64(segLen)
	}
}

func dedupe(idx []int) []int {
	out := idx[:1]
	for _, v := range idx[1:] {
		if v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}
