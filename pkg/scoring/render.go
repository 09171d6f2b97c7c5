package scoring

import (
	"html"
	"strings"
)

// spanClasses maps tags to the CSS classes of the sing-along page.
var spanClasses = map[Tag]string{
	TagExact:   "text-green-400 font-bold",
	TagNear:    "text-green-400 font-bold",
	TagPartial: "text-yellow-400 font-bold",
	TagMiss:    "text-red-500 line-through opacity-50",
	TagExtra:   "text-red-500 text-xs opacity-50",
	TagMissing: "text-gray-500 italic opacity-40",
}

// RenderHTML renders spans as space-separated HTML span elements. Untagged
// spans are emitted as plain escaped text.
func RenderHTML(spans []Span) string {
	var b strings.Builder
	for i, s := range spans {
		if i > 0 {
			b.WriteByte(' ')
		}
		token := html.EscapeString(s.Token)
		class, ok := spanClasses[s.Tag]
		if !ok {
			b.WriteString(token)
			continue
		}
		b.WriteString("<span class='")
		b.WriteString(class)
		b.WriteString("'>")
		b.WriteString(token)
		b.WriteString("</span>")
	}
	return b.String()
}

// RenderPlain renders spans as "token[tag]" separated by spaces, leaving
// untagged tokens bare. Useful for logs and tests.
func RenderPlain(spans []Span) string {
	parts := make([]string, len(spans))
	for i, s := range spans {
		if s.Tag == TagNone {
			parts[i] = s.Token
			continue
		}
		parts[i] = s.Token + "[" + string(s.Tag) + "]"
	}
	return strings.Join(parts, " ")
}
