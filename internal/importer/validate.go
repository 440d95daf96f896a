package importer

import (
	"fmt"
	"time"

	"github.com/alexanderramin/timeboxer/internal/domain"
	"github.com/alexanderramin/timeboxer/internal/scheduler"
)

// ValidateStoryFile checks the document before conversion and returns every
// problem found, each prefixed with the path of the offending field.
func ValidateStoryFile(f *StoryFile, rules scheduler.Rules) []error {
	var errs []error

	if f.StartTime != "" {
		if _, err := time.Parse(time.RFC3339, f.StartTime); err != nil {
			errs = append(errs, fmt.Errorf("startTime: invalid timestamp %q (expected RFC 3339)", f.StartTime))
		}
	}
	if len(f.Stories) == 0 {
		errs = append(errs, fmt.Errorf("stories: at least one story is required"))
	}

	taskIDs := make(map[string]bool)
	for i, s := range f.Stories {
		errs = append(errs, validateStory(fmt.Sprintf("stories[%d]", i), s, rules, taskIDs)...)
	}

	for i, m := range f.StoryMapping {
		if m.PossibleTitle == "" || m.OriginalTitle == "" {
			errs = append(errs, fmt.Errorf("storyMapping[%d]: possibleTitle and originalTitle are required", i))
		}
	}
	return errs
}

func validateStory(prefix string, s StoryImport, rules scheduler.Rules, taskIDs map[string]bool) []error {
	var errs []error

	if s.Title == "" {
		errs = append(errs, fmt.Errorf("%s.title is required", prefix))
	}
	if s.StoryType != "" && !domain.ValidStoryTypes[domain.StoryType(s.StoryType)] {
		errs = append(errs, fmt.Errorf("%s.storyType: invalid value %q", prefix, s.StoryType))
	}
	if s.EstimatedDuration != nil && *s.EstimatedDuration < 0 {
		errs = append(errs, fmt.Errorf("%s.estimatedDuration must not be negative", prefix))
	}
	if len(s.Tasks) == 0 {
		errs = append(errs, fmt.Errorf("%s.tasks: at least one task is required", prefix))
	}

	for j, t := range s.Tasks {
		tp := fmt.Sprintf("%s.tasks[%d]", prefix, j)
		if t.Title == "" {
			errs = append(errs, fmt.Errorf("%s.title is required", tp))
		}
		switch {
		case t.Duration == nil:
			errs = append(errs, fmt.Errorf("%s.duration is required", tp))
		case *t.Duration <= 0:
			errs = append(errs, fmt.Errorf("%s.duration must be positive", tp))
		case *t.Duration > rules.MaxTaskDuration:
			errs = append(errs, fmt.Errorf("%s.duration: %d exceeds the %d minute maximum", tp, *t.Duration, rules.MaxTaskDuration))
		}
		if t.TaskCategory != "" && !domain.ValidTaskCategories[domain.TaskCategory(t.TaskCategory)] {
			errs = append(errs, fmt.Errorf("%s.taskCategory: invalid value %q", tp, t.TaskCategory))
		}
		if t.ID != "" {
			if taskIDs[t.ID] {
				errs = append(errs, fmt.Errorf("%s.id: duplicate id %q", tp, t.ID))
			}
			taskIDs[t.ID] = true
		}
	}
	return errs
}
