package config

import (
	"os"
	"strconv"

	"github.com/UtsahaJoshi/stemgen/internal/audio"
)

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

// Pipeline holds the constants that must agree between dataset preparation
// and inference. They are pinned into the dataset store's metadata; any
// mismatch is refused rather than silently corrupting alignment.
type Pipeline struct {
	VocabSize     int     // codec vocabulary size
	ContextLength int     // fixed model context L
	FrameRate     float64 // positional frame rate, Hz
	Harmonics     int     // Fourier harmonics K per phase signal
	PadValue      int     // token pad value (and mask sentinel)
	Codebooks     int     // codec codebooks per frame
	ClipSecs      int     // clip-length cap, seconds
	SampleRate    int     // codec input sample rate, Hz
	FusionMode    string  // embedding fusion convention
}

// Config holds all runtime configuration, loaded from environment variables.
type Config struct {
	// External oracle services
	CodecAPIURL string
	CodecAPIKey string
	BeatAPIURL  string
	ModelAPIURL string
	ModelAPIKey string

	// Artifacts
	StoreDir     string // dataset store location
	RegistryPath string // class registry YAML
	OutputDir    string // generated stems

	// Batch behavior
	Workers     int     // concurrent samples per class
	PollSecs    int     // model server poll interval
	ValFraction float64 // held-out fraction for the split
	SplitSeed   int     // split permutation seed

	Pipeline Pipeline
}

// Load reads configuration from environment variables with sane defaults.
func Load() Config {
	return Config{
		CodecAPIURL: envStr("STEMGEN_CODEC_URL", "http://codec:8000"),
		CodecAPIKey: envStr("STEMGEN_CODEC_KEY", ""),
		BeatAPIURL:  envStr("STEMGEN_BEATS_URL", "http://beats:8001"),
		ModelAPIURL: envStr("STEMGEN_MODEL_URL", "http://model:8002"),
		ModelAPIKey: envStr("STEMGEN_MODEL_KEY", ""),

		StoreDir:     envStr("STEMGEN_STORE_DIR", "./dataset"),
		RegistryPath: envStr("STEMGEN_CLASSES", "./classes.yaml"),
		OutputDir:    envStr("STEMGEN_OUTPUT_DIR", "./stems"),

		Workers:     envInt("STEMGEN_WORKERS", 4),
		PollSecs:    envInt("STEMGEN_POLL_SECS", 3),
		ValFraction: envFloat("STEMGEN_VAL_FRACTION", 0.1),
		SplitSeed:   envInt("STEMGEN_SPLIT_SEED", 42),

		Pipeline: Pipeline{
			VocabSize:     envInt("STEMGEN_VOCAB_SIZE", 1024),
			ContextLength: envInt("STEMGEN_CONTEXT_LENGTH", 3000),
			FrameRate:     envFloat("STEMGEN_FRAME_RATE", 75),
			Harmonics:     envInt("STEMGEN_HARMONICS", 32),
			PadValue:      envInt("STEMGEN_PAD_VALUE", 0),
			Codebooks:     envInt("STEMGEN_CODEBOOKS", 4),
			ClipSecs:      envInt("STEMGEN_CLIP_SECS", audio.MaxClipSecs),
			SampleRate:    envInt("STEMGEN_SAMPLE_RATE", audio.SampleRate),
			FusionMode:    envStr("STEMGEN_FUSION_MODE", "concat-replace"),
		},
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
