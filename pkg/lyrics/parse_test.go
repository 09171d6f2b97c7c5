package lyrics_test

import (
	"math"
	"testing"

	"github.com/MrWong99/singalong/pkg/lyrics"
)

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestParseLRC(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		block string
		want  []lyrics.LyricLine
	}{
		{
			name:  "two digit fraction",
			block: "[00:14.00] We wish you a Merry Christmas",
			want:  []lyrics.LyricLine{{Time: 14, Text: "We wish you a Merry Christmas"}},
		},
		{
			name:  "three digit fraction",
			block: "[01:02.345]Hello",
			want:  []lyrics.LyricLine{{Time: 62.345, Text: "Hello"}},
		},
		{
			name:  "untagged and empty lines are skipped",
			block: "[ar:Someone]\nplain text\n[00:05.50]   \n[00:06.00] kept\n\n",
			want:  []lyrics.LyricLine{{Time: 6, Text: "kept"}},
		},
		{
			name:  "windows line endings",
			block: "[00:01.00] one\r\n[00:02.00] two\r\n",
			want: []lyrics.LyricLine{
				{Time: 1, Text: "one"},
				{Time: 2, Text: "two"},
			},
		},
		{
			name:  "file order is kept",
			block: "[00:20.00] late\n[00:10.00] early",
			want: []lyrics.LyricLine{
				{Time: 20, Text: "late"},
				{Time: 10, Text: "early"},
			},
		},
		{
			name:  "tag must lead the line",
			block: "text [00:01.00] later",
			want:  nil,
		},
		{
			name:  "single digit fraction is not a tag",
			block: "[00:01.5] nope",
			want:  nil,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := lyrics.ParseLRC(tc.block)
			if len(got) != len(tc.want) {
				t.Fatalf("ParseLRC() returned %d lines, want %d: %+v", len(got), len(tc.want), got)
			}
			for i := range got {
				if !approx(got[i].Time, tc.want[i].Time) || got[i].Text != tc.want[i].Text {
					t.Errorf("line %d = %+v, want %+v", i, got[i], tc.want[i])
				}
			}
		})
	}
}

func TestParseLRC_Empty(t *testing.T) {
	t.Parallel()

	if got := lyrics.ParseLRC(""); len(got) != 0 {
		t.Errorf("ParseLRC(\"\") = %+v, want empty", got)
	}
}
