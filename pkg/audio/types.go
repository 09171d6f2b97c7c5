// Package audio holds the PCM plumbing between uploaded recordings and the
// speech-to-text providers: WAV decoding and encoding, channel mixing,
// resampling and duration probing for catalog setup.
//
// All PCM handled here is 16-bit signed little-endian, interleaved when
// there is more than one channel.
package audio

import (
	"fmt"
	"time"
)

// Format describes the sample rate and channel count of PCM data.
type Format struct {
	SampleRate int
	Channels   int
}

// String returns a human-readable form such as "48000Hz stereo".
func (f Format) String() string {
	ch := "mono"
	switch {
	case f.Channels == 2:
		ch = "stereo"
	case f.Channels > 2:
		ch = fmt.Sprintf("%dch", f.Channels)
	}
	return fmt.Sprintf("%dHz %s", f.SampleRate, ch)
}

// STTFormat is the format every transcriber receives: 16 kHz mono.
var STTFormat = Format{SampleRate: 16000, Channels: 1}

// Clip is a complete in-memory recording, typically one sing-along take.
type Clip struct {
	// PCM holds 16-bit signed little-endian samples.
	PCM []byte

	Format
}

// Duration returns the playing time of the clip. It is zero for clips with
// an invalid format.
func (c Clip) Duration() time.Duration {
	bytesPerSec := c.SampleRate * c.Channels * 2
	if bytesPerSec <= 0 {
		return 0
	}
	return time.Duration(int64(len(c.PCM)) * int64(time.Second) / int64(bytesPerSec))
}

// Empty reports whether the clip carries no samples.
func (c Clip) Empty() bool { return len(c.PCM) < 2 }
