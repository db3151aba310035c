// Package normalization turns the heterogeneous text found on report pages into
// canonical values: signed integers, calendar dates and unit records.
package normalization

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// negativeGlyphs are rendered by report sites in place of an ASCII minus.
// The geometric triangles are a visual "negative" marker, not decoration.
var negativeGlyphs = []rune{
	'-',      // ASCII hyphen-minus
	'－', // fullwidth hyphen-minus
	'−', // minus sign
	'‐', // hyphen
	'‑', // non-breaking hyphen
	'–', // en dash
	'—', // em dash
	'ー', // katakana prolonged sound mark, used as a dash
	'▲', // black up-pointing triangle
	'△', // white up-pointing triangle
	'▼', // black down-pointing triangle
	'▽', // white down-pointing triangle
}

// thousandsSeparators are removed before matching.
var thousandsSeparators = []rune{',', '，', '、', '\''}

var signedIntPattern = regexp.MustCompile(`[+-]?\d+`)

var numericReplacer = buildNumericReplacer()

func buildNumericReplacer() *strings.Replacer {
	var pairs []string
	for _, g := range negativeGlyphs {
		pairs = append(pairs, string(g), "-")
	}
	for _, s := range thousandsSeparators {
		pairs = append(pairs, string(s), "")
	}
	pairs = append(pairs, "＋", "+")
	for d := '0'; d <= '9'; d++ {
		pairs = append(pairs, string(d-'0'+'０'), string(d))
	}
	return strings.NewReplacer(pairs...)
}

// NormalizeSignedInteger parses a displayed numeral into a signed integer.
//
// Separators and whitespace are removed, every negative glyph becomes '-', and the
// first optionally-signed digit run is parsed. Empty cells, lone dashes and any other
// text without digits yield 0; malformed cells must never abort a batch.
func NormalizeSignedInteger(text string) int64 {
	s := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, text)
	s = numericReplacer.Replace(s)

	m := signedIntPattern.FindString(s)
	if m == "" {
		return 0
	}
	n, err := strconv.ParseInt(m, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
