package audio

import "testing"

// --- SamplesToBytes / round-trip ---

func TestSamplesToBytes(t *testing.T) {
	samples := []int16{0, 1, -1, 32767, -32768, 256}
	buf := SamplesToBytes(samples)
	if len(buf) != len(samples)*2 {
		t.Fatalf("SamplesToBytes length = %d, want %d", len(buf), len(samples)*2)
	}

	// Verify little-endian encoding manually for a known value:
	// 256 = 0x0100 -> bytes [0x00, 0x01]
	idx := 5 * 2
	if buf[idx] != 0x00 || buf[idx+1] != 0x01 {
		t.Errorf("Sample 256 encoded as [%02x, %02x], want [00, 01]", buf[idx], buf[idx+1])
	}
}

func TestSamplesBytesRoundTrip(t *testing.T) {
	original := []int16{0, 1, -1, 32767, -32768, 12345, -6789}
	recovered := BytesToSamples(SamplesToBytes(original))
	if len(recovered) != len(original) {
		t.Fatalf("round-trip length = %d, want %d", len(recovered), len(original))
	}
	for i, v := range original {
		if recovered[i] != v {
			t.Errorf("Round-trip sample[%d]: got %d, want %d", i, recovered[i], v)
		}
	}
}

func TestBytesToSamplesOddTail(t *testing.T) {
	got := BytesToSamples([]byte{0x01, 0x00, 0xff})
	if len(got) != 1 || got[0] != 1 {
		t.Errorf("odd tail: got %v, want [1]", got)
	}
}

// --- Duration ---

func TestDuration(t *testing.T) {
	tests := []struct {
		samples int
		rate    int
		want    float64
	}{
		{32000, 32000, 1},
		{320000, 32000, 10},
		{16000, 32000, 0.5},
	}
	for _, tt := range tests {
		got := Duration(make([]int16, tt.samples), tt.rate)
		if got != tt.want {
			t.Errorf("Duration(%d samples @ %d Hz) = %v, want %v", tt.samples, tt.rate, got, tt.want)
		}
	}
}
