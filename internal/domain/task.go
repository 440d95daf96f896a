package domain

import "fmt"

// SplitInfo marks a task as one numbered part of a longer original task.
type SplitInfo struct {
	OriginalTitle string `json:"originalTitle"`
	OriginalID    string `json:"originalId,omitempty"`
	IsParent      bool   `json:"isParent"`
	PartNumber    int    `json:"partNumber"`
	TotalParts    int    `json:"totalParts"`
}

// SuggestedBreak asks the generator to place a break after the given
// number of minutes of the task.
type SuggestedBreak struct {
	After    int    `json:"after"`
	Duration int    `json:"duration"`
	Reason   string `json:"reason,omitempty"`
}

type Task struct {
	ID              string           `json:"id"`
	Title           string           `json:"title"`
	Duration        int              `json:"duration"`
	TaskCategory    TaskCategory     `json:"taskCategory,omitempty"`
	IsFrog          bool             `json:"isFrog"`
	IsFlexible      bool             `json:"isFlexible"`
	ProjectType     string           `json:"projectType,omitempty"`
	SplitInfo       *SplitInfo       `json:"splitInfo,omitempty"`
	SuggestedBreaks []SuggestedBreak `json:"suggestedBreaks,omitempty"`
}

// IsPart reports whether the task is a numbered child of a split task.
func (t Task) IsPart() bool {
	return t.SplitInfo != nil && !t.SplitInfo.IsParent
}

// Validate checks the task-level invariants.
func (t Task) Validate() error {
	if t.Duration <= 0 {
		return fmt.Errorf("task %q: duration must be positive, got %d", t.Title, t.Duration)
	}
	if t.IsPart() {
		if t.SplitInfo.PartNumber < 1 || t.SplitInfo.PartNumber > t.SplitInfo.TotalParts {
			return fmt.Errorf("task %q: part %d of %d is out of range",
				t.Title, t.SplitInfo.PartNumber, t.SplitInfo.TotalParts)
		}
	}
	return nil
}

// Clone returns a deep copy of the task.
func (t Task) Clone() Task {
	c := t
	if t.SplitInfo != nil {
		si := *t.SplitInfo
		c.SplitInfo = &si
	}
	if t.SuggestedBreaks != nil {
		c.SuggestedBreaks = append([]SuggestedBreak(nil), t.SuggestedBreaks...)
	}
	return c
}

type Story struct {
	Title             string       `json:"title"`
	Summary           string       `json:"summary,omitempty"`
	Icon              string       `json:"icon,omitempty"`
	EstimatedDuration int          `json:"estimatedDuration"`
	StoryType         StoryType    `json:"storyType,omitempty"`
	Category          TaskCategory `json:"category,omitempty"`
	ProjectType       string       `json:"projectType,omitempty"`
	Tasks             []Task       `json:"tasks"`
}

// TaskDuration sums the durations of the story's tasks.
func (s Story) TaskDuration() int {
	total := 0
	for _, t := range s.Tasks {
		total += t.Duration
	}
	return total
}

// Clone returns a deep copy of the story.
func (s Story) Clone() Story {
	c := s
	c.Tasks = make([]Task, len(s.Tasks))
	for i, t := range s.Tasks {
		c.Tasks[i] = t.Clone()
	}
	return c
}

// CloneStories deep-copies a story list.
func CloneStories(stories []Story) []Story {
	out := make([]Story, len(stories))
	for i, s := range stories {
		out[i] = s.Clone()
	}
	return out
}

// TotalEstimatedDuration sums estimatedDuration over all stories.
func TotalEstimatedDuration(stories []Story) int {
	total := 0
	for _, s := range stories {
		total += s.EstimatedDuration
	}
	return total
}

// StoryMapping is a caller-supplied hint that a scheduled title stands for
// an original one.
type StoryMapping struct {
	PossibleTitle string `json:"possibleTitle"`
	OriginalTitle string `json:"originalTitle"`
}
