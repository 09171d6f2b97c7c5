package stt

import (
	"strings"
	"time"
)

// Transcript is the recognized text of one recording.
type Transcript struct {
	// Text is the full transcription. Segments returned by the backend are
	// joined with single spaces.
	Text string

	// Confidence is the overall confidence (0.0–1.0). Zero if the provider
	// does not report it.
	Confidence float64

	// Words holds per-word detail when the provider reports it.
	Words []WordDetail

	// Provider names the backend that produced the transcript. Set by
	// fallback wrappers so callers can tell which backend answered.
	Provider string

	// Latency is how long the backend took to answer.
	Latency time.Duration
}

// WordDetail holds per-word metadata from providers that support it.
type WordDetail struct {
	Word       string
	Start      time.Duration
	End        time.Duration
	Confidence float64
}

// KeywordBoost is a vocabulary hint. Sing-along sessions boost the unusual
// words of the song being performed.
type KeywordBoost struct {
	// Keyword is the text to boost.
	Keyword string

	// Boost is the intensity of the boost (provider-specific scale).
	Boost float64
}

// JoinSegments joins the trimmed, non-empty segments with single spaces.
func JoinSegments(segments []string) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}
