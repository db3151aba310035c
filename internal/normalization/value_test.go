package normalization

import "testing"

func TestNormalizeSignedInteger_NegativeGlyphs(t *testing.T) {
	glyphs := []string{"-", "－", "−", "‐", "‑", "–", "—", "ー", "▲", "△", "▼", "▽"}

	for _, g := range glyphs {
		got := NormalizeSignedInteger(g + "1,234")
		if got != -1234 {
			t.Errorf("Glyph %q: expected -1234, got %d", g, got)
		}
	}
}

func TestNormalizeSignedInteger(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"", 0},
		{"-", 0},
		{"ー", 0},
		{"▲", 0},
		{"abc", 0},
		{"3,070", 3070},
		{"+3,070", 3070},
		{"＋３，０７０", 3070},
		{"８３００", 8300},
		{"1、200", 1200},
		{" ▲ 1 200 ", -1200},
		{"　1234　", 1234},
		{"-0", 0},
		{"1234枚", 1234},
		{"差枚 -560", -560},
		{"99999999999999999999", 0},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := NormalizeSignedInteger(tt.in)
			if got != tt.want {
				t.Errorf("NormalizeSignedInteger(%q): expected %d, got %d", tt.in, tt.want, got)
			}
		})
	}
}
