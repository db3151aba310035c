package normalization

import (
	"regexp"
	"strconv"
	"strings"
)

// slashRun matches any slash-joined run of numbers; plausibility is decided afterwards
// so that unrelated numerals like "1/2/3/4" are not mistaken for dates.
var slashRun = regexp.MustCompile(`\d+(?:/\d+)+`)

// ExtractDateToken finds the first plausible "M/D" or "Y/M/D" token in a title.
//
// Only the first token is used. ambiguous reports that the title holds another
// plausible token naming a different day; such titles are flagged for manual review instead of
// guessing which one is the report date.
func ExtractDateToken(title string) (token string, ambiguous bool, ok bool) {
	s := parenthetical.ReplaceAllString(title, " ")
	s = foldDigits(s)
	s = strings.NewReplacer("年", "/", "月", "/", "／", "/").Replace(s)

	for _, run := range slashRun.FindAllString(s, -1) {
		if !plausibleDateToken(run) {
			continue
		}
		if !ok {
			token, ok = run, true
			continue
		}
		if !sameDay(run, token) {
			ambiguous = true
			break
		}
	}
	return token, ambiguous, ok
}

func plausibleDateToken(run string) bool {
	parts := strings.Split(run, "/")
	switch len(parts) {
	case 2:
		return len(parts[0]) <= 2 && len(parts[1]) <= 2
	case 3:
		return (len(parts[0]) == 2 || len(parts[0]) == 4) && len(parts[1]) <= 2 && len(parts[2]) <= 2
	default:
		return false
	}
}

// sameDay reports whether two date tokens name the same day. A token without a
// year borrows the other's; if neither has one, any leap year will do.
func sameDay(a, b string) bool {
	year := 2000
	if y, ok := tokenYear(a); ok {
		year = y
	} else if y, ok := tokenYear(b); ok {
		year = y
	}
	da, okA := NormalizeDate(a, year)
	db, okB := NormalizeDate(b, year)
	if !okA || !okB {
		return a == b
	}
	return da == db
}

func tokenYear(token string) (int, bool) {
	parts := strings.Split(token, "/")
	if len(parts) != 3 {
		return 0, false
	}
	y, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, false
	}
	if y < 100 {
		y += 2000
	}
	return y, true
}
