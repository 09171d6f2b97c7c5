package lyrics

import "strings"

// GenericLyrics is the placeholder block used when a song has neither
// timestamped lyrics nor a known duration.
const GenericLyrics = `[00:10.00] (Instrumental Intro)
[00:15.00] Get ready to sing...
[00:20.00] (Waiting for lyrics...)
[00:25.00] Feel the rhythm!
[00:30.00] Sing your heart out!`

// Generate builds the timing map of a lyrics block and returns it along with
// the clean lyrics text (tags removed, one line per row) that performances
// are scored against.
//
// Mode selection:
//   - block has timestamp tags: [Synthesizer.Timestamped].
//   - no tags, duration > 0:    [Synthesizer.Heuristic].
//   - no tags, no duration:     [GenericLyrics], timestamped.
func (s *Synthesizer) Generate(block string, duration float64) (string, Map) {
	parsed := ParseLRC(block)
	if len(parsed) == 0 && duration > 0 {
		return strings.Join(nonEmptyLines(block), "\n"), s.Heuristic(block, duration)
	}
	if len(parsed) == 0 {
		parsed = ParseLRC(GenericLyrics)
	}

	texts := make([]string, len(parsed))
	for i, l := range parsed {
		texts[i] = l.Text
	}
	return strings.Join(texts, "\n"), s.Timestamped(parsed)
}

// Generate is a convenience wrapper around [Synthesizer.Generate] using the
// [DefaultTimingConfig].
func Generate(block string, duration float64) (string, Map) {
	return NewSynthesizer(DefaultTimingConfig()).Generate(block, duration)
}
