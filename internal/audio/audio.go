// Package audio loads source clips into raw PCM for the codec and beat
// detector oracles. Decoding shells out to ffmpeg so any container format
// in the dataset works.
package audio

// Ingest defaults. The codec consumes mono PCM at its own rate; clips
// longer than the cap are truncated at decode time so every sample sees
// the same context window.
const (
	SampleRate  = 32000 // codec input rate, Hz
	Channels    = 1
	MaxClipSecs = 10
)
