package normalize

// aliasSet maps non-canonical field names onto their canonical name.
type aliasSet map[string]string

var (
	storyAliases = aliasSet{
		"type":     "storyType",
		"project":  "projectType",
		"duration": "estimatedDuration",
	}
	taskAliases = aliasSet{
		"type":     "taskCategory",
		"category": "taskCategory",
		"project":  "projectType",
		"name":     "title",
	}
)

func (a aliasSet) apply(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	for alias, canonical := range a {
		v, ok := out[alias]
		if !ok {
			continue
		}
		delete(out, alias)
		if _, exists := out[canonical]; !exists {
			out[canonical] = v
		}
	}
	return out
}

// StoryAliases returns a copy of a raw story object with story-level and
// task-level field aliases rewritten to their canonical names. The canonical
// field wins when both spellings are present.
func StoryAliases(m map[string]any) map[string]any {
	out := storyAliases.apply(m)
	if tasks, ok := out["tasks"].([]any); ok {
		out["tasks"] = taskList(tasks)
	}
	return out
}

// TaskAliases returns a copy of a raw task object with aliases rewritten.
func TaskAliases(m map[string]any) map[string]any {
	return taskAliases.apply(m)
}

func taskList(tasks []any) []any {
	out := make([]any, 0, len(tasks))
	for _, t := range tasks {
		tm, ok := t.(map[string]any)
		if !ok {
			continue
		}
		tm = TaskAliases(tm)
		if d, ok := coerceMinutes(tm["duration"]); ok {
			tm["duration"] = d
		} else {
			delete(tm, "duration")
		}
		out = append(out, tm)
	}
	return out
}
