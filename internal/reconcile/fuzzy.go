package reconcile

import (
	"math"
	"strings"
)

// FuzzyThresholds tune the token-overlap match. A candidate matches when at
// least max(MinTokenMatches, ceil(len(search)*TokenMatchRatio)) search
// tokens overlap it. Both values are tuning parameters; see the calibration
// cases in fuzzy_test.go before changing them.
type FuzzyThresholds struct {
	MinTokenMatches int
	TokenMatchRatio float64
}

func DefaultThresholds() FuzzyThresholds {
	return FuzzyThresholds{MinTokenMatches: 2, TokenMatchRatio: 0.5}
}

// Required is the overlap needed for a search title of n tokens.
func (f FuzzyThresholds) Required(n int) int {
	need := int(math.Ceil(float64(n) * f.TokenMatchRatio))
	if need < f.MinTokenMatches {
		need = f.MinTokenMatches
	}
	return need
}

// TokenOverlap counts search tokens that are a substring of, or contain, at
// least one candidate token.
func TokenOverlap(search, candidate []string) int {
	score := 0
	for _, s := range search {
		for _, c := range candidate {
			if strings.Contains(c, s) || strings.Contains(s, c) {
				score++
				break
			}
		}
	}
	return score
}
