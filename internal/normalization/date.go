package normalization

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"hall-data-lab/internal/domain"
)

var parenthetical = regexp.MustCompile(`[(（][^)）]*[)）]`)

var dateReplacer = strings.NewReplacer(
	"年", "/",
	"月", "/",
	"日", "",
	"／", "/",
	"-", "/",
	".", "/",
)

// foldDigits maps fullwidth digits to ASCII.
func foldDigits(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '０' && r <= '９' {
			return r - '０' + '0'
		}
		return r
	}, s)
}

// canonicalDateText strips weekday annotations and unifies separators to '/'.
func canonicalDateText(text string) string {
	s := parenthetical.ReplaceAllString(text, "")
	s = foldDigits(s)
	s = dateReplacer.Replace(s)
	return strings.TrimSpace(s)
}

// NormalizeDate canonicalizes "Y/M/D" or "M/D" text into a calendar date.
// Parenthetical annotations such as "(火)" are ignored; defaultYear fills in a
// missing year and two-digit years are read as 20YY.
// Returns false on any parse failure; callers skip the item.
func NormalizeDate(text string, defaultYear int) (domain.CalendarDate, bool) {
	s := canonicalDateText(text)
	if s == "" {
		return domain.CalendarDate{}, false
	}

	parts := strings.Split(s, "/")
	nums := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			return domain.CalendarDate{}, false
		}
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return domain.CalendarDate{}, false
		}
		nums = append(nums, n)
	}

	var year, month, day int
	switch len(nums) {
	case 2:
		year, month, day = defaultYear, nums[0], nums[1]
	case 3:
		year, month, day = nums[0], nums[1], nums[2]
		if year < 100 {
			year += 2000
		}
	default:
		return domain.CalendarDate{}, false
	}

	return domain.NewCalendarDate(year, time.Month(month), day)
}
