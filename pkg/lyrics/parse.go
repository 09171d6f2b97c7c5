package lyrics

import (
	"regexp"
	"strconv"
	"strings"
)

// lrcTag matches a leading "[MM:SS.ff]" or "[MM:SS.fff]" tag and captures the
// remainder of the line.
var lrcTag = regexp.MustCompile(`^\[(\d{2}):(\d{2})\.(\d{2,3})\](.*)`)

// ParseLRC extracts timestamped lines from an LRC-style block.
//
// Lines without a leading tag are ignored, as are tagged lines whose text is
// empty after trimming. The result keeps file order and is not sorted by
// time. An empty result means the block carries no timing and callers should
// fall back to [Synthesizer.Heuristic].
func ParseLRC(block string) []LyricLine {
	var lines []LyricLine
	for _, raw := range strings.Split(block, "\n") {
		m := lrcTag.FindStringSubmatch(raw)
		if m == nil {
			continue
		}
		text := strings.TrimSpace(m[4])
		if text == "" {
			continue
		}
		lines = append(lines, LyricLine{
			Time: tagSeconds(m[1], m[2], m[3]),
			Text: text,
		})
	}
	return lines
}

// tagSeconds converts the captured minute, second and fraction digits of a
// tag into seconds. The fraction is read as a decimal, so "50" and "500" are
// both half a second.
func tagSeconds(min, sec, frac string) float64 {
	// The regexp guarantees digits, so the conversions cannot fail.
	m, _ := strconv.Atoi(min)
	s, _ := strconv.Atoi(sec)
	f, _ := strconv.ParseFloat("0."+frac, 64)
	return float64(m*60+s) + f
}
