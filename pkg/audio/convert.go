package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
)

// ErrOddLength is returned when PCM data does not hold a whole number of
// 16-bit samples.
var ErrOddLength = errors.New("audio: odd byte count in 16-bit PCM data")

// Convert returns clip converted to target. Resampling runs before channel
// conversion so stereo input is never resampled twice. A clip already in the
// target format is returned unchanged.
func Convert(clip Clip, target Format) (Clip, error) {
	if len(clip.PCM)%2 != 0 {
		return Clip{}, fmt.Errorf("%w: %d bytes", ErrOddLength, len(clip.PCM))
	}
	if clip.Format == target {
		return clip, nil
	}
	if clip.Channels < 1 || clip.SampleRate <= 0 {
		return Clip{}, fmt.Errorf("audio: invalid source format %s", clip.Format)
	}
	if target.Channels < 1 || target.Channels > 2 || target.SampleRate <= 0 {
		return Clip{}, fmt.Errorf("audio: unsupported target format %s", target)
	}

	slog.Debug("audio: converting clip", "from", clip.Format.String(), "to", target.String())

	pcm := clip.PCM
	channels := clip.Channels

	// Multi-channel sources other than stereo are mixed down first.
	if channels > 2 {
		pcm = DownmixToMono(pcm, channels)
		channels = 1
	}

	if clip.SampleRate != target.SampleRate {
		if channels == 1 {
			pcm = ResampleMono16(pcm, clip.SampleRate, target.SampleRate)
		} else {
			pcm = ResampleStereo16(pcm, clip.SampleRate, target.SampleRate)
		}
	}

	switch {
	case channels == 1 && target.Channels == 2:
		pcm = MonoToStereo(pcm)
	case channels == 2 && target.Channels == 1:
		pcm = StereoToMono(pcm)
	}

	return Clip{PCM: pcm, Format: target}, nil
}

// MonoToStereo duplicates each mono sample into an L+R pair.
func MonoToStereo(pcm []byte) []byte {
	out := make([]byte, (len(pcm)/2)*4)
	for i := 0; i+1 < len(pcm); i += 2 {
		copy(out[i*2:i*2+2], pcm[i:i+2])
		copy(out[i*2+2:i*2+4], pcm[i:i+2])
	}
	return out
}

// StereoToMono averages L and R of each frame.
func StereoToMono(pcm []byte) []byte {
	return DownmixToMono(pcm, 2)
}

// DownmixToMono averages all channels of each interleaved frame. Sums are
// computed in int32 so the result always fits int16.
func DownmixToMono(pcm []byte, channels int) []byte {
	if channels <= 1 {
		return pcm
	}
	frameBytes := channels * 2
	frames := len(pcm) / frameBytes
	out := make([]byte, frames*2)
	for i := range frames {
		var sum int32
		for ch := range channels {
			sum += int32(sampleAt(pcm, i*channels+ch))
		}
		putSample(out, i, int16(sum/int32(channels)))
	}
	return out
}

// ResampleMono16 resamples mono PCM from srcRate to dstRate with linear
// interpolation. Invalid or equal rates return the input unchanged.
func ResampleMono16(pcm []byte, srcRate, dstRate int) []byte {
	return resample(pcm, 1, srcRate, dstRate)
}

// ResampleStereo16 resamples interleaved stereo PCM from srcRate to dstRate
// with linear interpolation. Invalid or equal rates return the input
// unchanged.
func ResampleStereo16(pcm []byte, srcRate, dstRate int) []byte {
	return resample(pcm, 2, srcRate, dstRate)
}

func resample(pcm []byte, channels, srcRate, dstRate int) []byte {
	if srcRate <= 0 || dstRate <= 0 || srcRate == dstRate {
		return pcm
	}
	srcFrames := len(pcm) / (2 * channels)
	if srcFrames == 0 {
		return pcm
	}
	dstFrames := int(int64(srcFrames) * int64(dstRate) / int64(srcRate))
	if dstFrames == 0 {
		return nil
	}

	out := make([]byte, dstFrames*2*channels)
	ratio := float64(srcRate) / float64(dstRate)
	for i := range dstFrames {
		pos := float64(i) * ratio
		idx := int(pos)
		frac := pos - float64(idx)
		next := min(idx+1, srcFrames-1)
		for ch := range channels {
			s0 := float64(sampleAt(pcm, idx*channels+ch))
			s1 := float64(sampleAt(pcm, next*channels+ch))
			putSample(out, i*channels+ch, int16(s0*(1-frac)+s1*frac))
		}
	}
	return out
}

func sampleAt(pcm []byte, i int) int16 {
	return int16(binary.LittleEndian.Uint16(pcm[i*2:]))
}

func putSample(pcm []byte, i int, v int16) {
	binary.LittleEndian.PutUint16(pcm[i*2:], uint16(v))
}
