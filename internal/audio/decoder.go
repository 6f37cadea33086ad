package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os/exec"
	"strconv"
)

// DecodeFile runs FFmpeg to decode an audio file to raw mono PCM int16
// samples at the given rate, truncated to maxSecs seconds.
func DecodeFile(path string, sampleRate, maxSecs int) ([]int16, error) {
	cmd := exec.Command("ffmpeg",
		"-i", path,
		"-t", strconv.Itoa(maxSecs),
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"-ar", strconv.Itoa(sampleRate),
		"-ac", strconv.Itoa(Channels),
		"-loglevel", "error",
		"pipe:1",
	)

	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg decode %s: %w", path, err)
	}

	// Ensure even byte count for int16 alignment
	if len(out)%2 != 0 {
		out = out[:len(out)-1]
	}

	samples := make([]int16, len(out)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(out[i*2 : i*2+2]))
	}

	return samples, nil
}

// EncodeFile runs FFmpeg to write raw mono PCM samples to an audio file,
// with the output format inferred from the path extension.
func EncodeFile(path string, samples []int16, sampleRate int) error {
	cmd := exec.Command("ffmpeg",
		"-y",
		"-f", "s16le",
		"-ar", strconv.Itoa(sampleRate),
		"-ac", strconv.Itoa(Channels),
		"-i", "pipe:0",
		"-loglevel", "error",
		path,
	)
	cmd.Stdin = bytes.NewReader(SamplesToBytes(samples))

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg encode %s: %w", path, err)
	}
	return nil
}

// SamplesToBytes converts int16 samples to little-endian bytes.
func SamplesToBytes(samples []int16) []byte {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	return buf
}

// BytesToSamples converts little-endian bytes back to int16 samples.
// A trailing odd byte is dropped.
func BytesToSamples(buf []byte) []int16 {
	samples := make([]int16, len(buf)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(buf[i*2 : i*2+2]))
	}
	return samples
}

// Duration returns the clip length in seconds for a mono sample buffer.
func Duration(samples []int16, sampleRate int) float64 {
	return float64(len(samples)) / float64(sampleRate)
}
