package lyrics

import (
	"cmp"
	"math"
	"slices"
	"strings"
	"unicode/utf8"
)

// Default timing heuristics, as returned by [DefaultTimingConfig].
const (
	DefaultSecondsPerChar   = 0.15
	DefaultReadingBuffer    = 1.0
	DefaultLastLineGap      = 4.0
	DefaultIntroLead        = 4.0
	DefaultHeuristicIntro   = 8.0
	DefaultVocalEndFraction = 0.95
	DefaultLineGap          = 1.0

	DefaultShortWordMax     = 2
	DefaultShortWordFactor  = 0.6
	DefaultMediumWordMax    = 4
	DefaultMediumWordFactor = 0.9
	DefaultLongWordMin      = 8
	DefaultLongWordFactor   = 1.2
)

// TimingConfig holds the tunable constants of the timing heuristics. Every
// field is used as given, so IntroLead 0 anchors the intro on the first line.
// Start from [DefaultTimingConfig] to override single constants.
type TimingConfig struct {
	// SecondsPerChar estimates how long it takes to sing one character.
	// Default: 0.15.
	SecondsPerChar float64 `yaml:"seconds_per_char"`

	// ReadingBuffer is added to the reading-time estimate of a line before
	// it is compared to the gap to the next line. Default: 1.0.
	ReadingBuffer float64 `yaml:"reading_buffer"`

	// LastLineGap is the gap assumed after the final timestamped line.
	// It also replaces non-positive gaps between out-of-order lines.
	// Default: 4.0.
	LastLineGap float64 `yaml:"last_line_gap"`

	// IntroLead is subtracted from the first line's time to derive the
	// intro offset of timestamped lyrics. Default: 4.0.
	IntroLead float64 `yaml:"intro_lead"`

	// HeuristicIntro is the presumed vocal start of untimed lyrics.
	// Default: 8.0.
	HeuristicIntro float64 `yaml:"heuristic_intro"`

	// VocalEndFraction is the fraction of the track duration at which the
	// vocals of untimed lyrics are presumed to end. Default: 0.95.
	VocalEndFraction float64 `yaml:"vocal_end_fraction"`

	// LineGap is the pause inserted between untimed lines. Default: 1.0.
	LineGap float64 `yaml:"line_gap"`

	// Word weight bands. A word of n characters weighs n multiplied by:
	// ShortWordFactor when n <= ShortWordMax, MediumWordFactor when
	// n <= MediumWordMax, LongWordFactor when n >= LongWordMin, and 1.0
	// otherwise.
	ShortWordMax     int     `yaml:"short_word_max"`
	ShortWordFactor  float64 `yaml:"short_word_factor"`
	MediumWordMax    int     `yaml:"medium_word_max"`
	MediumWordFactor float64 `yaml:"medium_word_factor"`
	LongWordMin      int     `yaml:"long_word_min"`
	LongWordFactor   float64 `yaml:"long_word_factor"`

	// SortLines sorts timestamped lines by time (stable) before timing them.
	// When false, file order is canonical and gaps are taken between
	// adjacent entries.
	SortLines bool `yaml:"sort_lines"`
}

// DefaultTimingConfig returns the standard timing heuristics.
func DefaultTimingConfig() TimingConfig {
	return TimingConfig{
		SecondsPerChar:   DefaultSecondsPerChar,
		ReadingBuffer:    DefaultReadingBuffer,
		LastLineGap:      DefaultLastLineGap,
		IntroLead:        DefaultIntroLead,
		HeuristicIntro:   DefaultHeuristicIntro,
		VocalEndFraction: DefaultVocalEndFraction,
		LineGap:          DefaultLineGap,
		ShortWordMax:     DefaultShortWordMax,
		ShortWordFactor:  DefaultShortWordFactor,
		MediumWordMax:    DefaultMediumWordMax,
		MediumWordFactor: DefaultMediumWordFactor,
		LongWordMin:      DefaultLongWordMin,
		LongWordFactor:   DefaultLongWordFactor,
	}
}

// WordWeight returns the share of a line's time budget that word receives,
// relative to the other words of the line. Length is counted in characters,
// not bytes.
func (c TimingConfig) WordWeight(word string) float64 {
	n := utf8.RuneCountInString(word)
	w := float64(n)
	switch {
	case n <= c.ShortWordMax:
		w *= c.ShortWordFactor
	case n <= c.MediumWordMax:
		w *= c.MediumWordFactor
	case n >= c.LongWordMin:
		w *= c.LongWordFactor
	}
	return w
}

// Synthesizer builds timing maps with a fixed [TimingConfig]. It holds no
// mutable state and is safe for concurrent use.
type Synthesizer struct {
	cfg TimingConfig
}

// NewSynthesizer returns a [Synthesizer] using cfg.
func NewSynthesizer(cfg TimingConfig) *Synthesizer {
	return &Synthesizer{cfg: cfg}
}

// Config returns the configuration the synthesizer times with.
func (s *Synthesizer) Config() TimingConfig { return s.cfg }

// Timestamped builds a map anchored on the line timestamps.
//
// The budget of line i is min(gap, SecondsPerChar*chars + ReadingBuffer)
// where gap is the distance to line i+1, or LastLineGap for the last line.
// Lines without words are skipped. The intro offset is the first line's
// time minus IntroLead, floored at zero.
func (s *Synthesizer) Timestamped(lines []LyricLine) Map {
	if s.cfg.SortLines {
		lines = slices.Clone(lines)
		slices.SortStableFunc(lines, func(a, b LyricLine) int { return cmp.Compare(a.Time, b.Time) })
	}

	m := Map{Lines: make([]Line, 0, len(lines))}
	for i, line := range lines {
		words := strings.Fields(line.Text)
		if len(words) == 0 {
			continue
		}

		gap := s.cfg.LastLineGap
		if i < len(lines)-1 {
			gap = lines[i+1].Time - line.Time
			if gap <= 0 {
				gap = s.cfg.LastLineGap
			}
		}
		budget := math.Min(gap, s.readingTime(line.Text))

		timings, _ := s.distribute(words, line.Time, budget)
		m.Lines = append(m.Lines, Line{
			Time:  Round2(line.Time),
			Text:  line.Text,
			Words: timings,
		})
	}

	if len(m.Lines) > 0 {
		m.IntroOffset = Round2(math.Max(0, m.Lines[0].Time-s.cfg.IntroLead))
	}
	return m
}

// Heuristic builds a map for untimed lyrics of a track lasting duration
// seconds. Every trimmed, non-empty line of text gets an equal share of the
// span between HeuristicIntro and duration*VocalEndFraction, minus LineGap.
// When that share is not positive the line falls back to its reading-time
// estimate.
func (s *Synthesizer) Heuristic(text string, duration float64) Map {
	lines := nonEmptyLines(text)

	vocalEnd := duration * s.cfg.VocalEndFraction
	available := math.Max(0, vocalEnd-s.cfg.HeuristicIntro)
	avgLine := available / float64(max(1, len(lines)))

	m := Map{
		Lines:       make([]Line, 0, len(lines)),
		IntroOffset: s.cfg.HeuristicIntro,
	}
	cursor := s.cfg.HeuristicIntro
	for _, line := range lines {
		budget := avgLine - s.cfg.LineGap
		if budget <= 0 {
			budget = s.readingTime(line)
		}
		timings, end := s.distribute(strings.Fields(line), cursor, budget)
		m.Lines = append(m.Lines, Line{
			Time:  Round2(cursor),
			Text:  line,
			Words: timings,
		})
		cursor = end + s.cfg.LineGap
	}
	return m
}

// readingTime estimates how long a line takes to sing, buffer included.
func (s *Synthesizer) readingTime(text string) float64 {
	return float64(utf8.RuneCountInString(text))*s.cfg.SecondsPerChar + s.cfg.ReadingBuffer
}

// distribute splits budget across words proportionally to their weights,
// starting at start. It returns the rounded timings and the unrounded end of
// the last word.
func (s *Synthesizer) distribute(words []string, start, budget float64) ([]WordTiming, float64) {
	weights := make([]float64, len(words))
	var total float64
	for i, w := range words {
		weights[i] = s.cfg.WordWeight(w)
		total += weights[i]
	}
	if total == 0 {
		total = 1
	}
	perUnit := budget / total

	timings := make([]WordTiming, len(words))
	cursor := start
	for i, w := range words {
		d := weights[i] * perUnit
		timings[i] = WordTiming{
			Text:  w,
			Start: Round2(cursor),
			End:   Round2(cursor + d),
		}
		cursor += d
	}
	return timings, cursor
}

// nonEmptyLines returns the trimmed, non-empty lines of text.
func nonEmptyLines(text string) []string {
	var out []string
	for _, l := range strings.Split(text, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}
