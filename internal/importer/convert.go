package importer

import (
	"fmt"
	"time"

	"github.com/alexanderramin/timeboxer/internal/app"
	"github.com/alexanderramin/timeboxer/internal/domain"
	"github.com/alexanderramin/timeboxer/internal/scheduler"
	"github.com/google/uuid"
)

// Convert turns a validated StoryFile into a ScheduleRequest. Tasks without
// an id get a fresh uuid, task durations are rounded up to the block size
// and raised to the minimum, and a missing story estimate is derived from
// its tasks. now is used when the file carries no start time.
// Call ValidateStoryFile first; Convert assumes the file is valid.
func Convert(f *StoryFile, rules scheduler.Rules, now time.Time) (app.ScheduleRequest, error) {
	start := now
	if f.StartTime != "" {
		t, err := time.Parse(time.RFC3339, f.StartTime)
		if err != nil {
			return app.ScheduleRequest{}, fmt.Errorf("parsing startTime: %w", err)
		}
		start = t
	}

	stories := make([]domain.Story, 0, len(f.Stories))
	for _, s := range f.Stories {
		stories = append(stories, convertStory(s, rules))
	}

	req := app.NewScheduleRequest(stories, start)
	req.StoryMapping = append([]domain.StoryMapping(nil), f.StoryMapping...)
	return req, nil
}

func convertStory(s StoryImport, rules scheduler.Rules) domain.Story {
	story := domain.Story{
		Title:       s.Title,
		Summary:     s.Summary,
		Icon:        s.Icon,
		StoryType:   domain.StoryType(s.StoryType),
		Category:    domain.TaskCategory(s.Category),
		ProjectType: s.ProjectType,
		Tasks:       make([]domain.Task, 0, len(s.Tasks)),
	}
	if story.StoryType == "" {
		story.StoryType = domain.StoryFlexible
	}

	for _, t := range s.Tasks {
		task := domain.Task{
			ID:           domain.CoalesceStr(t.ID, uuid.New().String()),
			Title:        t.Title,
			Duration:     TaskMinutes(rules, domain.IntFromPtrWithDefault(rules.MinTaskDuration, t.Duration)),
			TaskCategory: domain.TaskCategory(t.TaskCategory),
			IsFrog:       t.IsFrog,
			IsFlexible:   t.IsFlexible,
			ProjectType:  domain.CoalesceStr(t.ProjectType, s.ProjectType),
		}
		if task.TaskCategory == "" {
			task.TaskCategory = domain.TaskCategory(domain.CoalesceStr(string(story.Category), string(domain.CategoryFocus)))
		}
		story.Tasks = append(story.Tasks, task)
	}

	story.EstimatedDuration = domain.IntFromPtrWithDefault(0, s.EstimatedDuration)
	if story.EstimatedDuration == 0 {
		story.EstimatedDuration = story.TaskDuration()
	}
	return story
}

// TaskMinutes rounds a requested task duration up to the block size and
// raises it to the minimum task duration.
func TaskMinutes(rules scheduler.Rules, d int) int {
	d = rules.RoundToBlock(d)
	if d < rules.MinTaskDuration {
		return rules.MinTaskDuration
	}
	return d
}
