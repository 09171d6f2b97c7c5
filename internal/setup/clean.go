package setup

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// titleNoise are fragments stripped from titles, in this order.
var titleNoise = []string{
	"backing track", "guitar", "bass", "drum", "vocal", "karaoke", "version",
	"instrumental", "cover", "tribute", "hq", "demo", "remastered", "with click",
	"lyrics", "(", ")", "[", "]",
}

var nonIDChars = regexp.MustCompile(`[^a-z0-9_]`)

// CleanTitle turns a raw file or track title into a display title: anything
// after " - " is dropped, then karaoke noise words, brackets, the artist
// name and any artist word longer than three letters are removed. The
// result is whitespace-collapsed and title-cased.
//
// Removal is plain substring replacement, so "vocals" becomes "s".
func CleanTitle(title, artist string) string {
	t := strings.ToLower(title)
	if before, _, ok := strings.Cut(t, " - "); ok {
		t = before
	}
	for _, noise := range titleNoise {
		t = strings.ReplaceAll(t, noise, "")
	}
	if artist != "" {
		t = strings.ReplaceAll(t, strings.ToLower(artist), "")
		for _, part := range strings.Fields(artist) {
			if utf8.RuneCountInString(part) > 3 {
				t = strings.ReplaceAll(t, strings.ToLower(part), "")
			}
		}
	}
	return titleCase(strings.Join(strings.Fields(t), " "))
}

// titleCase upper-cases every letter that follows a non-letter and
// lower-cases the rest, so "don't stop" becomes "Don'T Stop".
func titleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevLetter := false
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) && !prevLetter:
			b.WriteRune(unicode.ToUpper(r))
		case unicode.IsLetter(r):
			b.WriteRune(unicode.ToLower(r))
		default:
			b.WriteRune(r)
		}
		prevLetter = unicode.IsLetter(r)
	}
	return b.String()
}

// CleanFilename derives a song ID from a title: lower-cased, spaces become
// underscores, and everything outside [a-z0-9_] is dropped.
func CleanFilename(title string) string {
	s := strings.ReplaceAll(strings.ToLower(title), " ", "_")
	return nonIDChars.ReplaceAllString(s, "")
}

// titleFromFilename turns "we_wish-you.mp3" into "we wish you".
func titleFromFilename(name string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	return strings.NewReplacer("_", " ", "-", " ").Replace(base)
}
