// Package lyrics turns song lyrics into a word-level timing map that a
// playback UI can use to highlight each word while the track plays.
//
// Two sources of timing are supported:
//
//   - Timestamped lyrics: LRC-style lines tagged with "[MM:SS.ff]". Each
//     line's words share a time budget that starts at the line's tag and is
//     capped by a reading-time estimate, so short lines before a long
//     instrumental break do not drag across the whole gap.
//
//   - Untimed lyrics: when no tags are present but the track duration is
//     known, lines are spread evenly between a fixed intro offset and the
//     presumed end of the vocals. This is a crude approximation and only
//     meant as a fallback.
//
// Within a line the budget is split across words in proportion to a
// length-based weight (see [TimingConfig.WordWeight]). Word timings inside a
// line are contiguous: each word starts where the previous one ended.
//
// All functions in this package are pure and safe for concurrent use.
package lyrics

import "math"

// LyricLine is one singable line with its vocal onset in seconds.
type LyricLine struct {
	Time float64 `json:"time"`
	Text string  `json:"text"`
}

// WordTiming is the highlight window of a single word, in seconds.
type WordTiming struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Line is a [LyricLine] together with the timings of its words.
type Line struct {
	Time  float64      `json:"time"`
	Text  string       `json:"text"`
	Words []WordTiming `json:"words"`
}

// Map is the full timing table of a song. It is built once at catalog setup
// and treated as read-only afterwards.
type Map struct {
	// Lines holds one entry per non-empty lyric line, in source order.
	Lines []Line `json:"lines"`

	// IntroOffset is the number of seconds before which no highlighting is
	// expected.
	IntroOffset float64 `json:"intro_offset"`
}

// Round2 rounds v to two decimal places, the precision used for every time
// value that is persisted.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
