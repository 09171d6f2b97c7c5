package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ErrNotWAV is returned when a stream is not a readable RIFF/WAVE file.
var ErrNotWAV = errors.New("audio: not a valid WAV file")

// ErrUnsupportedFormat is returned by [ProbeDuration] for containers it
// cannot read.
var ErrUnsupportedFormat = errors.New("audio: unsupported container")

// DecodeWAV reads a whole WAV stream into a [Clip]. Samples of any bit
// depth are rescaled to 16 bits.
func DecodeWAV(r io.ReadSeeker) (Clip, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return Clip{}, ErrNotWAV
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return Clip{}, fmt.Errorf("audio: read wav samples: %w", err)
	}
	return Clip{
		PCM: intBufferToPCM16(buf),
		Format: Format{
			SampleRate: int(dec.SampleRate),
			Channels:   int(dec.NumChans),
		},
	}, nil
}

// intBufferToPCM16 packs decoded samples as 16-bit little-endian PCM.
func intBufferToPCM16(buf *goaudio.IntBuffer) []byte {
	shift := buf.SourceBitDepth - 16
	out := make([]byte, len(buf.Data)*2)
	for i, v := range buf.Data {
		switch {
		case buf.SourceBitDepth == 8:
			// 8-bit WAV is unsigned.
			v = (v - 128) << 8
		case shift > 0:
			v >>= shift
		case shift < 0:
			v <<= -shift
		}
		putSample(out, i, int16(v))
	}
	return out
}

// EncodeWAV wraps the clip's PCM in a canonical 44-byte RIFF/WAVE header.
func EncodeWAV(c Clip) []byte {
	const bitsPerSample = 16
	blockAlign := c.Channels * bitsPerSample / 8
	size := len(c.PCM)

	out := make([]byte, 44+size)
	le := binary.LittleEndian

	copy(out[0:], "RIFF")
	le.PutUint32(out[4:], uint32(36+size))
	copy(out[8:], "WAVE")

	copy(out[12:], "fmt ")
	le.PutUint32(out[16:], 16)
	le.PutUint16(out[20:], 1) // PCM
	le.PutUint16(out[22:], uint16(c.Channels))
	le.PutUint32(out[24:], uint32(c.SampleRate))
	le.PutUint32(out[28:], uint32(c.SampleRate*blockAlign))
	le.PutUint16(out[32:], uint16(blockAlign))
	le.PutUint16(out[34:], bitsPerSample)

	copy(out[36:], "data")
	le.PutUint32(out[40:], uint32(size))
	copy(out[44:], c.PCM)
	return out
}

// ProbeDuration returns the playing time of the audio file at path, in
// seconds. Only WAV files can be probed; other containers return
// [ErrUnsupportedFormat] so callers can fall back to a default length.
func ProbeDuration(path string) (float64, error) {
	if ext := strings.ToLower(filepath.Ext(path)); ext != ".wav" {
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("audio: open %s: %w", path, err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return 0, fmt.Errorf("audio: probe %s: %w", path, ErrNotWAV)
	}
	d, err := dec.Duration()
	if err != nil {
		return 0, fmt.Errorf("audio: probe %s: %w", path, err)
	}
	return d.Seconds(), nil
}
