package domain

import "time"

type TimeBoxTask struct {
	Title        string       `json:"title"`
	Duration     int          `json:"duration"`
	TaskCategory TaskCategory `json:"taskCategory,omitempty"`
	IsFrog       bool         `json:"isFrog,omitempty"`
	ProjectType  string       `json:"projectType,omitempty"`
	SplitInfo    *SplitInfo   `json:"splitInfo,omitempty"`
}

type TimeBox struct {
	Type      TimeBoxType   `json:"type"`
	StartTime time.Time     `json:"startTime"`
	Duration  int           `json:"duration"`
	Tasks     []TimeBoxTask `json:"tasks"`
}

// EndTime is the start time plus the box duration.
func (b TimeBox) EndTime() time.Time {
	return b.StartTime.Add(time.Duration(b.Duration) * time.Minute)
}

// Clone returns a deep copy of the time box.
func (b TimeBox) Clone() TimeBox {
	c := b
	c.Tasks = make([]TimeBoxTask, len(b.Tasks))
	for i, t := range b.Tasks {
		c.Tasks[i] = t
		if t.SplitInfo != nil {
			si := *t.SplitInfo
			c.Tasks[i].SplitInfo = &si
		}
	}
	return c
}

type StoryBlock struct {
	Title         string    `json:"title"`
	Summary       string    `json:"summary,omitempty"`
	Icon          string    `json:"icon,omitempty"`
	TimeBoxes     []TimeBox `json:"timeBoxes"`
	TotalDuration int       `json:"totalDuration"`
}

// Clone returns a deep copy of the block.
func (b StoryBlock) Clone() StoryBlock {
	c := b
	c.TimeBoxes = make([]TimeBox, len(b.TimeBoxes))
	for i, tb := range b.TimeBoxes {
		c.TimeBoxes[i] = tb.Clone()
	}
	return c
}

type ScheduleSummary struct {
	TotalSessions int       `json:"totalSessions"`
	StartTime     time.Time `json:"startTime"`
	EndTime       time.Time `json:"endTime"`
	TotalDuration int       `json:"totalDuration"`
}

type Schedule struct {
	Summary     ScheduleSummary `json:"summary"`
	StoryBlocks []StoryBlock    `json:"storyBlocks"`
}

// Clone returns a deep copy of the schedule.
func (s Schedule) Clone() Schedule {
	c := s
	c.StoryBlocks = make([]StoryBlock, len(s.StoryBlocks))
	for i, b := range s.StoryBlocks {
		c.StoryBlocks[i] = b.Clone()
	}
	return c
}

// Boxes returns every time box in schedule order.
func (s Schedule) Boxes() []TimeBox {
	var out []TimeBox
	for _, b := range s.StoryBlocks {
		out = append(out, b.TimeBoxes...)
	}
	return out
}

// Suggestion is a soft warning attached to an accepted schedule.
type Suggestion struct {
	Type    SuggestionType `json:"type"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}
