package termview

import (
	"strings"
	"testing"
)

func TestWrapMeasuresColumns(t *testing.T) {
	cases := []struct {
		name  string
		text  string
		width int
		want  []string
	}{
		{"wide word split", "漢字漢字漢字漢字", 4, []string{"漢字", "漢字", "漢字", "漢字"}},
		{"odd width", "漢字漢", 3, []string{"漢", "字", "漢"}},
		{"mixed words", "go 世界", 4, []string{"go ", "世界"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Wrap(tc.text, tc.width)
			if strings.Join(got, "|") != strings.Join(tc.want, "|") {
				t.Fatalf("Wrap(%q, %d) = %q, want %q", tc.text, tc.width, got, tc.want)
			}
			for _, line := range got {
				if StringWidth(line) > tc.width {
					t.Fatalf("line %q is %d columns wide", line, StringWidth(line))
				}
			}
		})
	}
}

func TestTruncateAndPadColumns(t *testing.T) {
	if got := Truncate("漢字漢字", 5); got != "漢字" {
		t.Fatalf("unexpected truncate %q", got)
	}
	if got := Pad("漢字", 6); got != "漢字  " {
		t.Fatalf("unexpected pad %q", got)
	}
	if got := Pad("漢字", 4); got != "漢字" {
		t.Fatalf("expected exact fit, got %q", got)
	}
	if got := Pad("漢字漢", 5); StringWidth(got) != 5 || got != "漢字 " {
		t.Fatalf("unexpected pad %q (%d columns)", got, StringWidth(got))
	}
}

func TestBlockGlyphsAreSingleColumn(t *testing.T) {
	if StringWidth("██▀▄") != 4 {
		t.Fatalf("expected block glyphs to be one column each, got %d", StringWidth("██▀▄"))
	}
	if RuneWidth('漢') != 2 {
		t.Fatalf("expected CJK rune to be two columns")
	}
}

func TestInputColumnCountsWideRunes(t *testing.T) {
	var line Input
	line.Set("ls 漢字")
	if line.Column() != 7 {
		t.Fatalf("expected column 7, got %d", line.Column())
	}
	line.Move(-1)
	if line.Cursor() != 4 || line.Column() != 5 {
		t.Fatalf("unexpected cursor %d column %d", line.Cursor(), line.Column())
	}
}

func TestSanitizeEscapes(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"\x1b[1;32mok\x1b[0m", "ok"},
		{"\x1b]0;title\x07shell", "shell"},
		{"\x1b]8;;https://x\x1b\\link", "link"},
		{"cut\x1b[31", "cut"},
		{"a b\r\n", "a b"},
		{"bad\xffutf8", "badutf8"},
	}
	for _, tc := range cases {
		if got := Sanitize(tc.in); got != tc.want {
			t.Fatalf("Sanitize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
