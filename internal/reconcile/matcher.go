// Package reconcile maps scheduled titles, which the generator may rename or
// split, back to the original titles they stand for.
package reconcile

import (
	"errors"
	"fmt"
	"strings"

	"github.com/alexanderramin/timeboxer/internal/domain"
)

var ErrNoMatch = errors.New("no matching title")

type MatchKind string

const (
	MatchMapping   MatchKind = "mapping"
	MatchExact     MatchKind = "exact"
	MatchSplitPart MatchKind = "split_part"
	MatchFuzzy     MatchKind = "fuzzy"
	MatchSentinel  MatchKind = "sentinel"
)

type Match struct {
	Kind  MatchKind
	Index int // into the matcher's titles; -1 for sentinels
	Title string
	Part  *PartRef
	Score int
}

func (m Match) IsSentinel() bool { return m.Kind == MatchSentinel }

// Matcher runs the reconciliation cascade over a fixed list of original
// titles. It is safe for concurrent use once built.
type Matcher struct {
	titles     []string
	folded     []string
	tokens     [][]string
	parts      []*PartRef
	mapping    map[string]string
	thresholds FuzzyThresholds
}

type Option func(*Matcher)

func WithThresholds(t FuzzyThresholds) Option {
	return func(m *Matcher) { m.thresholds = t }
}

// NewMatcher builds a matcher over titles. Mapping entries whose original
// title is not among titles are ignored by Match.
func NewMatcher(titles []string, mapping []domain.StoryMapping, opts ...Option) *Matcher {
	m := &Matcher{
		titles:     append([]string(nil), titles...),
		folded:     make([]string, len(titles)),
		tokens:     make([][]string, len(titles)),
		parts:      make([]*PartRef, len(titles)),
		mapping:    make(map[string]string, len(mapping)),
		thresholds: DefaultThresholds(),
	}
	for i, t := range titles {
		m.folded[i] = Fold(t)
		m.tokens[i] = Tokens(t)
		if p, ok := ParsePartTitle(t); ok && p.Number > 0 {
			m.parts[i] = &p
		}
	}
	for _, e := range mapping {
		key := Fold(e.PossibleTitle)
		if _, dup := m.mapping[key]; key == "" || dup {
			continue
		}
		m.mapping[key] = e.OriginalTitle
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Titles returns the original titles in order.
func (m *Matcher) Titles() []string { return m.titles }

// Match resolves title through, in order: the caller mapping, exact match,
// split-part base match, token-overlap match and the sentinel names. The
// first step that matches wins; ties inside a step go to the earliest title.
func (m *Matcher) Match(title string) (Match, error) {
	f := Fold(title)

	if orig, ok := m.mapping[f]; ok {
		if i := m.exactIndex(orig); i >= 0 {
			return Match{Kind: MatchMapping, Index: i, Title: m.titles[i]}, nil
		}
	}

	if i := m.exactIndex(title); i >= 0 {
		return Match{Kind: MatchExact, Index: i, Title: m.titles[i]}, nil
	}

	search := f
	part, isPart := ParsePartTitle(title)
	if isPart {
		if i := m.baseIndex(part.Base); i >= 0 {
			i = m.sibling(i, part)
			p := part
			return Match{Kind: MatchSplitPart, Index: i, Title: m.titles[i], Part: &p}, nil
		}
		search = Fold(part.Base)
	}

	if i, score := m.fuzzyIndex(search); i >= 0 {
		if isPart {
			i = m.sibling(i, part)
		}
		mt := Match{Kind: MatchFuzzy, Index: i, Title: m.titles[i], Score: score}
		if isPart {
			p := part
			mt.Part = &p
		}
		return mt, nil
	}

	if IsSentinel(title) {
		return Match{Kind: MatchSentinel, Index: -1, Title: title}, nil
	}
	return Match{}, fmt.Errorf("%w: %q", ErrNoMatch, title)
}

func (m *Matcher) exactIndex(title string) int {
	for i, t := range m.titles {
		if t == title {
			return i
		}
	}
	f := Fold(title)
	for i, t := range m.folded {
		if t == f {
			return i
		}
	}
	return -1
}

// baseIndex matches a split-part base exactly, then by containment in
// either direction.
func (m *Matcher) baseIndex(base string) int {
	if i := m.exactIndex(base); i >= 0 {
		return i
	}
	f := Fold(base)
	if f == "" {
		return -1
	}
	for i, t := range m.folded {
		if t != "" && (strings.Contains(t, f) || strings.Contains(f, t)) {
			return i
		}
	}
	return -1
}

func (m *Matcher) fuzzyIndex(search string) (int, int) {
	tokens := Tokens(search)
	if len(tokens) == 0 {
		return -1, 0
	}
	need := m.thresholds.Required(len(tokens))
	best, bestScore := -1, 0
	for i, cand := range m.tokens {
		score := TokenOverlap(tokens, cand)
		if score >= need && score > bestScore {
			best, bestScore = i, score
		}
	}
	return best, bestScore
}

// sibling moves a split-part match from candidate i to the candidate of the
// same split carrying part.Number. Candidates that are not parts themselves,
// or splits without that number, keep i.
func (m *Matcher) sibling(i int, part PartRef) int {
	cand := m.parts[i]
	if cand == nil || part.Number == 0 || cand.Number == part.Number {
		return i
	}
	base := Fold(cand.Base)
	for j, p := range m.parts {
		if p != nil && p.Number == part.Number && p.Total == cand.Total && Fold(p.Base) == base {
			return j
		}
	}
	return i
}
