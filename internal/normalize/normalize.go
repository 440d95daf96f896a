// Package normalize turns the generator's loosely-typed schedule output into
// well-formed story blocks.
package normalize

import (
	"fmt"
	"strings"
	"time"

	"github.com/alexanderramin/timeboxer/internal/app"
	"github.com/alexanderramin/timeboxer/internal/domain"
	"github.com/alexanderramin/timeboxer/internal/scheduler"
)

// Options control how gaps in the raw schedule are filled.
type Options struct {
	// StartTime anchors the first box when the generator omitted start
	// times and dates bare clock times.
	StartTime time.Time
	Rules     scheduler.Rules
}

type WarningKind string

const (
	WarnDroppedEntry WarningKind = "dropped_entry"
	WarnWrappedBox   WarningKind = "wrapped_time_box"
	WarnRepaired     WarningKind = "repaired_block"
	WarnCoercedType  WarningKind = "coerced_type"
	WarnUnwrapped    WarningKind = "unwrapped_root"
)

// Warning is a non-fatal signal raised while normalizing.
type Warning struct {
	Kind    WarningKind
	Index   int
	Message string
}

type Result struct {
	Schedule domain.Schedule
	Warnings []Warning
}

// Schedule normalizes a decoded generator object. It is best-effort: the
// only failure is INVALID_STRUCTURE when no story-block list can be
// recovered at all or a block cannot be decoded.
func Schedule(raw any, opts Options) (*Result, error) {
	violations := structureViolations(raw)

	var warnings []Warning
	blocks, summary, recovered := locateBlocks(raw)
	if !recovered {
		return nil, app.NewPipelineError(app.ErrInvalidStructure,
			map[string]any{"violations": violations},
			"response has no recoverable storyBlocks array")
	}
	if len(violations) > 0 {
		warnings = append(warnings, Warning{
			Kind:    WarnUnwrapped,
			Index:   -1,
			Message: fmt.Sprintf("recovered story blocks from non-canonical root (%d schema violations)", len(violations)),
		})
	}

	out, blockWarnings, err := Blocks(blocks, opts)
	warnings = append(warnings, blockWarnings...)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, app.NewPipelineError(app.ErrInvalidStructure,
			map[string]any{"warnings": len(warnings)},
			"response contains no usable story blocks")
	}

	var s domain.Schedule
	if summary != nil {
		// The summary is recomputed later; a malformed one is not an error.
		_ = decodeLoose(summary, &s.Summary, opts.StartTime)
	}
	s.StoryBlocks = out
	return &Result{Schedule: s, Warnings: warnings}, nil
}

// locateBlocks finds the story-block list in the shapes generators emit:
// the canonical object, a bare array, an object wrapped under "schedule",
// a single block under storyBlocks, or a lone block at the root.
func locateBlocks(raw any) ([]any, map[string]any, bool) {
	switch v := raw.(type) {
	case []any:
		return v, nil, true
	case map[string]any:
		summary, _ := v["summary"].(map[string]any)
		switch sb := v["storyBlocks"].(type) {
		case []any:
			return sb, summary, true
		case map[string]any:
			return []any{sb}, summary, true
		}
		if inner, ok := v["schedule"].(map[string]any); ok {
			if _, nested := inner["schedule"]; !nested {
				return locateBlocks(inner)
			}
		}
		if _, ok := v["timeBoxes"].([]any); ok {
			return []any{v}, nil, true
		}
	}
	return nil, nil, false
}

// Blocks normalizes a raw story-block list. Null entries are dropped with a
// warning, bare time boxes are wrapped into synthetic blocks and blocks
// without a timeBoxes array get an empty one.
func Blocks(raw []any, opts Options) ([]domain.StoryBlock, []Warning, error) {
	var (
		out      []domain.StoryBlock
		warnings []Warning
		cursor   = opts.StartTime
	)
	for i, entry := range raw {
		n := i + 1
		m, ok := entry.(map[string]any)
		if !ok {
			msg := fmt.Sprintf("dropped story block %d: not an object", n)
			if entry == nil {
				msg = fmt.Sprintf("dropped story block %d: null entry", n)
			}
			warnings = append(warnings, Warning{Kind: WarnDroppedEntry, Index: i, Message: msg})
			continue
		}

		if _, has := m["timeBoxes"].([]any); !has {
			if looksLikeTimeBox(m) {
				m = wrapTimeBox(m, n)
				warnings = append(warnings, Warning{Kind: WarnWrappedBox, Index: i,
					Message: fmt.Sprintf("wrapped bare time box %d into block %q", n, m["title"])})
			} else {
				m = repairBlock(m, n)
				warnings = append(warnings, Warning{Kind: WarnRepaired, Index: i,
					Message: fmt.Sprintf("block %d had no timeBoxes array", n)})
			}
		}

		blk, blockWarnings, err := decodeBlock(m, i, opts, &cursor)
		if err != nil {
			return nil, warnings, app.NewPipelineError(app.ErrInvalidStructure,
				map[string]any{"blockIndex": i},
				"story block %d could not be decoded: %v", n, err)
		}
		warnings = append(warnings, blockWarnings...)
		out = append(out, blk)
	}
	return out, warnings, nil
}

func looksLikeTimeBox(m map[string]any) bool {
	typ, ok := m["type"].(string)
	if !ok {
		return false
	}
	if _, valid := domain.ParseTimeBoxType(typ); !valid {
		return false
	}
	_, hasTasks := m["tasks"].([]any)
	_, hasStart := m["startTime"].(string)
	return isNumeric(m["duration"]) && hasTasks && hasStart
}

func wrapTimeBox(m map[string]any, n int) map[string]any {
	typ, _ := domain.ParseTimeBoxType(m["type"].(string))
	title := fmt.Sprintf("Auto-Generated Block %d", n)
	if typ.IsBreak() {
		title = "Break"
	}
	d, _ := coerceMinutes(m["duration"])
	return map[string]any{
		"title":         title,
		"timeBoxes":     []any{m},
		"totalDuration": d,
	}
}

func repairBlock(m map[string]any, n int) map[string]any {
	out := make(map[string]any, len(m)+2)
	for k, v := range m {
		out[k] = v
	}
	if t, _ := out["title"].(string); t == "" {
		out["title"] = fmt.Sprintf("Story Block %d", n)
	}
	out["timeBoxes"] = []any{}
	out["totalDuration"] = 0
	return out
}

func decodeBlock(m map[string]any, index int, opts Options, cursor *time.Time) (domain.StoryBlock, []Warning, error) {
	var warnings []Warning
	rawBoxes, _ := m["timeBoxes"].([]any)
	boxes := make([]any, 0, len(rawBoxes))
	for j, rb := range rawBoxes {
		bm, ok := rb.(map[string]any)
		if !ok {
			warnings = append(warnings, Warning{Kind: WarnDroppedEntry, Index: index,
				Message: fmt.Sprintf("dropped time box %d of block %d", j+1, index+1)})
			continue
		}
		boxes = append(boxes, cleanTimeBox(bm))
	}

	clean := make(map[string]any, len(m))
	for k, v := range m {
		clean[k] = v
	}
	clean["timeBoxes"] = boxes
	if d, ok := coerceMinutes(m["totalDuration"]); ok {
		clean["totalDuration"] = d
	} else {
		delete(clean, "totalDuration")
	}

	var blk domain.StoryBlock
	if err := decodeLoose(clean, &blk, opts.StartTime); err != nil {
		return blk, warnings, err
	}
	if blk.TimeBoxes == nil {
		blk.TimeBoxes = []domain.TimeBox{}
	}

	for j := range blk.TimeBoxes {
		b := &blk.TimeBoxes[j]
		if w, changed := fixBoxType(b); changed {
			warnings = append(warnings, Warning{Kind: WarnCoercedType, Index: index,
				Message: fmt.Sprintf("block %d box %d: %s", index+1, j+1, w)})
		}
		b.Duration = opts.Rules.RoundToBlock(b.Duration)
		if b.Tasks == nil {
			b.Tasks = []domain.TimeBoxTask{}
		}
		if !b.Type.IsWork() {
			b.Tasks = []domain.TimeBoxTask{}
		}
		for k := range b.Tasks {
			t := &b.Tasks[k]
			if t.Duration <= 0 && len(b.Tasks) == 1 {
				t.Duration = b.Duration
			}
			t.Duration = opts.Rules.RoundToBlock(t.Duration)
			if cat, ok := normalizeCategory(t.TaskCategory); ok {
				t.TaskCategory = cat
			}
		}
		if b.StartTime.IsZero() {
			b.StartTime = *cursor
		}
		if !b.StartTime.IsZero() {
			*cursor = b.EndTime()
		}
	}
	return blk, warnings, nil
}

// cleanTimeBox applies task aliases and strips non-object tasks.
func cleanTimeBox(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	if tasks, ok := m["tasks"].([]any); ok {
		out["tasks"] = taskList(tasks)
	}
	if d, ok := coerceMinutes(m["duration"]); ok {
		out["duration"] = d
	} else {
		delete(out, "duration")
	}
	return out
}

func fixBoxType(b *domain.TimeBox) (string, bool) {
	if t, ok := domain.ParseTimeBoxType(string(b.Type)); ok {
		b.Type = t
		return "", false
	}
	orig := b.Type
	if len(b.Tasks) > 0 {
		b.Type = domain.TimeBoxWork
	} else {
		b.Type = domain.TimeBoxShortBreak
	}
	return fmt.Sprintf("unknown type %q treated as %q", orig, b.Type), true
}

func normalizeCategory(c domain.TaskCategory) (domain.TaskCategory, bool) {
	lower := domain.TaskCategory(strings.ToLower(strings.TrimSpace(string(c))))
	if domain.ValidTaskCategories[lower] {
		return lower, true
	}
	return c, false
}
