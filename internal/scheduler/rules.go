package scheduler

import (
	"errors"
	"fmt"
)

// Rules is the fixed duration rule set every schedule is checked against.
// All values are minutes.
type Rules struct {
	MinTaskDuration int `yaml:"min_task_duration" json:"minTaskDuration"`
	MaxTaskDuration int `yaml:"max_task_duration" json:"maxTaskDuration"`
	BlockSize       int `yaml:"block_size" json:"blockSize"`
	ShortBreak      int `yaml:"short_break" json:"shortBreak"`
	LongBreak       int `yaml:"long_break" json:"longBreak"`
	Debrief         int `yaml:"debrief" json:"debrief"`

	MaxWorkWithoutBreak int `yaml:"max_work_without_break" json:"maxWorkWithoutBreak"`

	// WorkTimeTolerance absorbs rounding noise on top of MaxWorkWithoutBreak.
	// Tuning parameter, not an invariant.
	WorkTimeTolerance int `yaml:"work_time_tolerance" json:"workTimeTolerance"`

	// ShortBreakWorkReduction is how much a short break takes off the
	// consecutive-work counter. Tuning parameter, not an invariant.
	ShortBreakWorkReduction int `yaml:"short_break_work_reduction" json:"shortBreakWorkReduction"`

	// DurationTolerance is the drift allowed between a story's requested
	// estimate and the realised work before a suggestion is attached.
	DurationTolerance int `yaml:"duration_tolerance" json:"durationTolerance"`

	// MaxScheduleMinutes caps the total requested work for one schedule.
	MaxScheduleMinutes int `yaml:"max_schedule_minutes" json:"maxScheduleMinutes"`
}

// DefaultRules returns the standard rule set.
func DefaultRules() Rules {
	return Rules{
		MinTaskDuration:         15,
		MaxTaskDuration:         180,
		BlockSize:               5,
		ShortBreak:              5,
		LongBreak:               15,
		Debrief:                 5,
		MaxWorkWithoutBreak:     90,
		WorkTimeTolerance:       5,
		ShortBreakWorkReduction: 15,
		DurationTolerance:       10,
		MaxScheduleMinutes:      24 * 60,
	}
}

// WorkLimit is the largest accumulated work the spacing walk tolerates.
func (r Rules) WorkLimit() int {
	return r.MaxWorkWithoutBreak + r.WorkTimeTolerance
}

// PreemptiveSplitThreshold is the task duration above which tasks are split
// before the first generator attempt.
func (r Rules) PreemptiveSplitThreshold() int {
	return r.RoundDown(r.MaxWorkWithoutBreak / 2)
}

// RoundToBlock rounds a positive duration up to the next block multiple.
// Non-positive durations are returned unchanged.
func (r Rules) RoundToBlock(min int) int {
	if min <= 0 || r.BlockSize <= 1 {
		return min
	}
	if rem := min % r.BlockSize; rem != 0 {
		return min + r.BlockSize - rem
	}
	return min
}

// RoundDown rounds down to a block multiple, never below one block.
func (r Rules) RoundDown(min int) int {
	if r.BlockSize <= 1 {
		return min
	}
	out := min - min%r.BlockSize
	if out < r.BlockSize {
		return r.BlockSize
	}
	return out
}

// BreakDuration returns the configured length of a non-work box type.
func (r Rules) BreakDuration(long bool) int {
	if long {
		return r.LongBreak
	}
	return r.ShortBreak
}

// Validate checks the rule set is internally consistent.
func (r Rules) Validate() error {
	var errs []error
	positive := map[string]int{
		"min_task_duration":      r.MinTaskDuration,
		"max_task_duration":      r.MaxTaskDuration,
		"block_size":             r.BlockSize,
		"short_break":            r.ShortBreak,
		"long_break":             r.LongBreak,
		"max_work_without_break": r.MaxWorkWithoutBreak,
		"max_schedule_minutes":   r.MaxScheduleMinutes,
	}
	for _, name := range []string{
		"min_task_duration", "max_task_duration", "block_size", "short_break",
		"long_break", "max_work_without_break", "max_schedule_minutes",
	} {
		if positive[name] <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}
	if r.WorkTimeTolerance < 0 || r.ShortBreakWorkReduction < 0 || r.DurationTolerance < 0 || r.Debrief < 0 {
		errs = append(errs, errors.New("tolerances and reductions must not be negative"))
	}
	if r.MinTaskDuration > r.MaxTaskDuration {
		errs = append(errs, fmt.Errorf("min_task_duration (%d) exceeds max_task_duration (%d)",
			r.MinTaskDuration, r.MaxTaskDuration))
	}
	if r.BlockSize > 0 && r.MaxWorkWithoutBreak%r.BlockSize != 0 {
		errs = append(errs, fmt.Errorf("max_work_without_break (%d) must be a multiple of block_size (%d)",
			r.MaxWorkWithoutBreak, r.BlockSize))
	}
	return errors.Join(errs...)
}
