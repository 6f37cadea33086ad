package codec

import "fmt"

// Flatten converts a (codebooks x frames) code grid into one token stream,
// row-major: all of codebook 0, then codebook 1, and so on. This is the
// exact layout the model was trained on; Reshape is its inverse.
func Flatten(grid [][]int32) []int32 {
	n := 0
	for _, row := range grid {
		n += len(row)
	}
	flat := make([]int32, 0, n)
	for _, row := range grid {
		flat = append(flat, row...)
	}
	return flat
}

// Reshape recovers a (codebooks x frames) grid from a flat token stream.
// The stream length must equal codebooks*frames exactly.
func Reshape(flat []int32, codebooks, frames int) ([][]int32, error) {
	if codebooks <= 0 || frames <= 0 {
		return nil, fmt.Errorf("codec: invalid grid shape %dx%d", codebooks, frames)
	}
	if len(flat) != codebooks*frames {
		return nil, fmt.Errorf("codec: cannot reshape %d tokens into %dx%d grid", len(flat), codebooks, frames)
	}
	grid := make([][]int32, codebooks)
	for i := range grid {
		grid[i] = flat[i*frames : (i+1)*frames : (i+1)*frames]
	}
	return grid, nil
}

// ValidateGrid checks that the grid is rectangular, non-empty, and that
// every code lies in [0, vocabSize).
func ValidateGrid(grid [][]int32, vocabSize int) error {
	if len(grid) == 0 || len(grid[0]) == 0 {
		return fmt.Errorf("codec: empty code grid")
	}
	frames := len(grid[0])
	for i, row := range grid {
		if len(row) != frames {
			return fmt.Errorf("codec: ragged grid: codebook %d has %d frames, want %d", i, len(row), frames)
		}
		for j, v := range row {
			if v < 0 || int(v) >= vocabSize {
				return fmt.Errorf("codec: code %d at (%d, %d) outside vocabulary [0, %d)", v, i, j, vocabSize)
			}
		}
	}
	return nil
}
