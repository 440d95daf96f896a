package domain

import "strings"

type TaskCategory string

const (
	CategoryFocus    TaskCategory = "focus"
	CategoryLearning TaskCategory = "learning"
	CategoryReview   TaskCategory = "review"
	CategoryResearch TaskCategory = "research"
)

// ValidTaskCategories is the canonical set of accepted task category strings.
var ValidTaskCategories = map[TaskCategory]bool{
	CategoryFocus: true, CategoryLearning: true,
	CategoryReview: true, CategoryResearch: true,
}

type StoryType string

const (
	StoryTimeboxed StoryType = "timeboxed"
	StoryFlexible  StoryType = "flexible"
	StoryMilestone StoryType = "milestone"
)

// ValidStoryTypes is the canonical set of accepted story type strings.
var ValidStoryTypes = map[StoryType]bool{
	StoryTimeboxed: true, StoryFlexible: true, StoryMilestone: true,
}

type TimeBoxType string

const (
	TimeBoxWork       TimeBoxType = "work"
	TimeBoxShortBreak TimeBoxType = "short-break"
	TimeBoxLongBreak  TimeBoxType = "long-break"
	TimeBoxDebrief    TimeBoxType = "debrief"
)

// IsWork reports whether the box counts toward work time.
func (t TimeBoxType) IsWork() bool { return t == TimeBoxWork }

// IsBreak reports whether the box is a short or long break.
func (t TimeBoxType) IsBreak() bool {
	return t == TimeBoxShortBreak || t == TimeBoxLongBreak
}

// ParseTimeBoxType accepts the spellings generators tend to produce
// ("short_break", "Long Break", "break") and maps them onto the canonical set.
func ParseTimeBoxType(raw string) (TimeBoxType, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.NewReplacer("_", "-", " ", "-").Replace(s)
	switch s {
	case "work", "focus", "task":
		return TimeBoxWork, true
	case "short-break", "shortbreak", "break":
		return TimeBoxShortBreak, true
	case "long-break", "longbreak":
		return TimeBoxLongBreak, true
	case "debrief", "review-break":
		return TimeBoxDebrief, true
	}
	return "", false
}

type SuggestionType string

const (
	SuggestionPartialCoverage  SuggestionType = "partial_coverage"
	SuggestionDurationAdjusted SuggestionType = "duration_adjusted"
	SuggestionDroppedBlock     SuggestionType = "dropped_block"
	SuggestionRepaired         SuggestionType = "repaired"
)

type RunStatus string

const (
	RunPending   RunStatus = "pending"
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)
