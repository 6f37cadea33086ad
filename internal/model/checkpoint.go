package model

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// FindCheckpoint returns the checkpoint with the highest step number under
// dir. Checkpoints are subdirectories named "checkpoint-<step>"; anything
// else is ignored. ErrNoCheckpoint is returned when none exist, which
// halts that class while other classes proceed.
func FindCheckpoint(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("model: read checkpoint dir %s: %w", dir, err)
	}

	best := -1
	var bestName string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		step, ok := checkpointStep(e.Name())
		if !ok {
			continue
		}
		if step > best {
			best = step
			bestName = e.Name()
		}
	}
	if best < 0 {
		return "", fmt.Errorf("%w in %s", ErrNoCheckpoint, dir)
	}
	return filepath.Join(dir, bestName), nil
}

func checkpointStep(name string) (int, bool) {
	rest, ok := strings.CutPrefix(name, "checkpoint-")
	if !ok {
		return 0, false
	}
	step, err := strconv.Atoi(rest)
	if err != nil || step < 0 {
		return 0, false
	}
	return step, true
}
