package scoring

import (
	"strings"
	"unicode"
)

// DefaultSubstitutions expands the contractions and slang that speech
// recognizers and lyric sources disagree on. Values containing spaces expand
// into several tokens.
var DefaultSubstitutions = map[string]string{
	"gonna": "going to",
	"wanna": "want to",
	"cause": "because",
	"cos":   "because",
	"em":    "them",
	"im":    "i am",
	"youre": "you are",
	"cant":  "cannot",
	"dont":  "do not",
	"wont":  "will not",
}

// wordOrSpace drops every rune that is neither a letter, a number, an
// underscore nor Unicode whitespace.
func wordOrSpace(r rune) rune {
	if unicode.IsLetter(r) || unicode.IsNumber(r) || r == '_' || unicode.IsSpace(r) {
		return r
	}
	return -1
}

// Normalizer turns free text into a comparable token sequence. It is
// immutable after construction and safe for concurrent use.
type Normalizer struct {
	subs map[string][]string
}

// NewNormalizer returns a Normalizer using table as its substitution table.
// A nil table selects [DefaultSubstitutions]; pass an empty map to disable
// substitution.
func NewNormalizer(table map[string]string) *Normalizer {
	if table == nil {
		table = DefaultSubstitutions
	}
	subs := make(map[string][]string, len(table))
	for from, to := range table {
		if f := strings.Fields(to); len(f) > 0 {
			subs[strings.ToLower(from)] = f
		}
	}
	return &Normalizer{subs: subs}
}

// Tokens lowercases text, strips punctuation, splits on whitespace and
// applies the substitution table to each token. Empty input yields nil.
func (n *Normalizer) Tokens(text string) []string {
	text = strings.Map(wordOrSpace, strings.ToLower(text))
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	tokens := make([]string, 0, len(words))
	for _, w := range words {
		if sub, ok := n.subs[w]; ok {
			tokens = append(tokens, sub...)
			continue
		}
		tokens = append(tokens, w)
	}
	return tokens
}

var defaultNormalizer = NewNormalizer(nil)

// Normalize tokenizes text with the default substitution table.
func Normalize(text string) []string {
	return defaultNormalizer.Tokens(text)
}
