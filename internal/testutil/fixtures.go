package testutil

import (
	"time"

	"github.com/alexanderramin/timeboxer/internal/domain"
	"github.com/alexanderramin/timeboxer/internal/scheduler"
	"github.com/google/uuid"
)

// FixedStart is the default schedule anchor used across fixtures.
var FixedStart = time.Date(2025, 6, 16, 9, 0, 0, 0, time.UTC)

// Task options
type TaskOption func(*domain.Task)

func WithDuration(m int) TaskOption {
	return func(t *domain.Task) {
		t.Duration = m
	}
}

func WithCategory(c domain.TaskCategory) TaskOption {
	return func(t *domain.Task) {
		t.TaskCategory = c
	}
}

func WithFrog() TaskOption {
	return func(t *domain.Task) {
		t.IsFrog = true
	}
}

func WithTaskID(id string) TaskOption {
	return func(t *domain.Task) {
		t.ID = id
	}
}

// AsPart marks the task as part n of total of originalTitle.
func AsPart(originalTitle, originalID string, n, total int) TaskOption {
	return func(t *domain.Task) {
		t.SplitInfo = &domain.SplitInfo{
			OriginalTitle: originalTitle,
			OriginalID:    originalID,
			PartNumber:    n,
			TotalParts:    total,
		}
	}
}

func NewTestTask(title string, opts ...TaskOption) domain.Task {
	t := domain.Task{
		ID:           uuid.New().String(),
		Title:        title,
		Duration:     30,
		TaskCategory: domain.CategoryFocus,
	}
	for _, opt := range opts {
		opt(&t)
	}
	return t
}

// Story options
type StoryOption func(*domain.Story)

func WithTasks(tasks ...domain.Task) StoryOption {
	return func(s *domain.Story) {
		s.Tasks = append(s.Tasks, tasks...)
	}
}

func WithEstimate(m int) StoryOption {
	return func(s *domain.Story) {
		s.EstimatedDuration = m
	}
}

func WithStoryType(t domain.StoryType) StoryOption {
	return func(s *domain.Story) {
		s.StoryType = t
	}
}

// NewTestStory builds a story whose estimate defaults to the sum of its
// task durations.
func NewTestStory(title string, opts ...StoryOption) domain.Story {
	s := domain.Story{
		Title:     title,
		StoryType: domain.StoryTimeboxed,
		Tasks:     []domain.Task{},
	}
	for _, opt := range opts {
		opt(&s)
	}
	if s.EstimatedDuration == 0 {
		s.EstimatedDuration = s.TaskDuration()
	}
	return s
}

// NewTestStoryWithTasks is a shorthand for a story of default 30-minute
// tasks with the given titles.
func NewTestStoryWithTasks(title string, taskTitles ...string) domain.Story {
	tasks := make([]domain.Task, len(taskTitles))
	for i, tt := range taskTitles {
		tasks[i] = NewTestTask(tt)
	}
	return NewTestStory(title, WithTasks(tasks...))
}

func WorkBox(minutes int, taskTitles ...string) domain.TimeBox {
	b := domain.TimeBox{Type: domain.TimeBoxWork, Duration: minutes, Tasks: []domain.TimeBoxTask{}}
	for _, tt := range taskTitles {
		b.Tasks = append(b.Tasks, domain.TimeBoxTask{Title: tt, Duration: minutes / len(taskTitles)})
	}
	return b
}

func BreakBox(t domain.TimeBoxType, minutes int) domain.TimeBox {
	return domain.TimeBox{Type: t, Duration: minutes, Tasks: []domain.TimeBoxTask{}}
}

// NewTestBlock builds a block whose total matches its boxes.
func NewTestBlock(title string, boxes ...domain.TimeBox) domain.StoryBlock {
	blk := domain.StoryBlock{Title: title, TimeBoxes: boxes}
	blk.TotalDuration = scheduler.SummarizeBlock(blk).Total
	return blk
}

// NewTestSchedule stamps every box back to back from start and fills in the
// summary.
func NewTestSchedule(start time.Time, blocks ...domain.StoryBlock) domain.Schedule {
	s := domain.Schedule{StoryBlocks: blocks}
	cursor := start
	for i := range s.StoryBlocks {
		for j := range s.StoryBlocks[i].TimeBoxes {
			b := &s.StoryBlocks[i].TimeBoxes[j]
			b.StartTime = cursor
			cursor = b.EndTime()
			if b.Type.IsWork() {
				s.Summary.TotalSessions++
			}
		}
		s.Summary.TotalDuration += s.StoryBlocks[i].TotalDuration
	}
	s.Summary.StartTime = start
	s.Summary.EndTime = cursor
	return s
}

// LayoutSchedule is a well-behaved generator: one block per story, one work
// box per task, a short break after each box and a long break whenever the
// next box would exceed the work limit. Tasks longer than the limit are not
// split.
func LayoutSchedule(stories []domain.Story, start time.Time) domain.Schedule {
	rules := scheduler.DefaultRules()
	limit := rules.WorkLimit()
	counter := 0
	var blocks []domain.StoryBlock
	for _, st := range stories {
		var boxes []domain.TimeBox
		for _, t := range st.Tasks {
			if counter > 0 && counter+t.Duration > limit {
				boxes = append(boxes, BreakBox(domain.TimeBoxLongBreak, rules.LongBreak))
				counter = 0
			}
			boxes = append(boxes, domain.TimeBox{
				Type:     domain.TimeBoxWork,
				Duration: t.Duration,
				Tasks: []domain.TimeBoxTask{{
					Title:        t.Title,
					Duration:     t.Duration,
					TaskCategory: t.TaskCategory,
					SplitInfo:    t.Clone().SplitInfo,
				}},
			})
			counter += t.Duration
			boxes = append(boxes, BreakBox(domain.TimeBoxShortBreak, rules.ShortBreak))
			counter -= rules.ShortBreakWorkReduction
			if counter < 0 {
				counter = 0
			}
		}
		blocks = append(blocks, NewTestBlock(st.Title, boxes...))
	}
	return NewTestSchedule(start, blocks...)
}
