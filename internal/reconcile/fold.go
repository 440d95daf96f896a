package reconcile

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var (
	folder = cases.Fold()

	partPattern      = regexp.MustCompile(`(?i)^(.*?)\s*\(\s*part\s+(\d+)\s*(?:of|/)\s*(\d+)\s*\)\s*$`)
	continuedPattern = regexp.MustCompile(`(?i)\s*\(continued\)\s*$`)
	autoBlockPattern = regexp.MustCompile(`^(auto-generated block|story block) \d+$`)
)

// Fold normalizes a title for comparison: Unicode NFKC, case folding and
// collapsed whitespace.
func Fold(title string) string {
	s := norm.NFKC.String(title)
	s = folder.String(s)
	return strings.Join(strings.Fields(s), " ")
}

// Tokens splits a folded title into alphanumeric tokens.
func Tokens(title string) []string {
	return strings.FieldsFunc(Fold(title), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// PartRef is the parsed "(Part X of Y)" suffix of a split task title.
type PartRef struct {
	Base   string
	Number int
	Total  int
}

// ParsePartTitle strips a "(continued)" marker and a "(Part X of Y)" suffix.
// ok is false when the title carries neither.
func ParsePartTitle(title string) (PartRef, bool) {
	s := strings.TrimSpace(title)
	continued := continuedPattern.MatchString(s)
	if continued {
		s = strings.TrimSpace(continuedPattern.ReplaceAllString(s, ""))
	}
	m := partPattern.FindStringSubmatch(s)
	if m == nil {
		if continued {
			return PartRef{Base: s}, true
		}
		return PartRef{}, false
	}
	n, _ := strconv.Atoi(m[2])
	total, _ := strconv.Atoi(m[3])
	return PartRef{Base: strings.TrimSpace(m[1]), Number: n, Total: total}, true
}

// PartTitle formats the title of part n of total.
func PartTitle(base string, n, total int) string {
	return base + " (Part " + strconv.Itoa(n) + " of " + strconv.Itoa(total) + ")"
}

// IsSentinel reports whether a title names a synthetic placeholder rather
// than a real story: a break, or an auto-generated block name.
func IsSentinel(title string) bool {
	f := Fold(title)
	return strings.Contains(f, "break") || autoBlockPattern.MatchString(f)
}
