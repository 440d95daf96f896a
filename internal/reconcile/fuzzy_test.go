package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFuzzyThresholds_Required(t *testing.T) {
	f := DefaultThresholds()
	cases := map[int]int{1: 2, 2: 2, 3: 2, 4: 2, 5: 3, 6: 3, 9: 5}
	for n, want := range cases {
		assert.Equal(t, want, f.Required(n), "n=%d", n)
	}
}

func TestTokenOverlap(t *testing.T) {
	assert.Equal(t, 2, TokenOverlap(Tokens("review PRs"), Tokens("Review pull requests PRs")))
	assert.Equal(t, 1, TokenOverlap(Tokens("integrations"), Tokens("API integration")))
	assert.Equal(t, 0, TokenOverlap(Tokens("gym"), Tokens("Email triage")))
}

// TestFuzzy_Calibration pins the behaviour of the default thresholds on the
// short-title cases where a ratio rule is most likely to misfire.
func TestFuzzy_Calibration(t *testing.T) {
	m := NewMatcher([]string{
		"Email triage",
		"Prepare slides for board meeting",
		"Read chapter 4 of systems design book",
	}, nil)

	cases := []struct {
		title string
		want  int // -1: no fuzzy match expected
	}{
		// Single-token titles never clear the two-token floor.
		{"Email", -1},
		{"Triage emails", 0},
		{"Board meeting slides", 1},
		{"Slides", -1},
		{"Systems design chapter 4", 2},
		{"Design doc review", -1},
	}
	for _, tc := range cases {
		t.Run(tc.title, func(t *testing.T) {
			i, _ := m.fuzzyIndex(Fold(tc.title))
			assert.Equal(t, tc.want, i)
		})
	}
}
