package scheduler

import "github.com/alexanderramin/timeboxer/internal/domain"

// workCounter tracks consecutive work minutes. A long break resets it; a
// short break or debrief only takes ShortBreakWorkReduction off.
type workCounter struct {
	rules   Rules
	minutes int
	breaks  []domain.TimeBoxType
}

func newWorkCounter(rules Rules, carried int) *workCounter {
	return &workCounter{rules: rules, minutes: carried}
}

func (c *workCounter) observe(b domain.TimeBox) {
	switch b.Type {
	case domain.TimeBoxWork:
		c.minutes += b.Duration
	case domain.TimeBoxLongBreak:
		c.minutes = 0
		c.breaks = nil
	default:
		c.minutes -= c.rules.ShortBreakWorkReduction
		if c.minutes < 0 {
			c.minutes = 0
		}
		c.breaks = append(c.breaks, b.Type)
	}
}

// SpacingViolation describes the first point where accumulated work exceeds
// the limit.
type SpacingViolation struct {
	BlockIndex       int
	BlockTitle       string
	BoxIndex         int
	Box              domain.TimeBox
	Accumulated      int
	Limit            int
	BreaksSinceReset []domain.TimeBoxType
}

// CheckSpacing replays the consecutive-work walk over the whole schedule
// without changing it and reports the first violation, or nil.
func CheckSpacing(rules Rules, s domain.Schedule) *SpacingViolation {
	c := newWorkCounter(rules, 0)
	limit := rules.WorkLimit()
	for i, blk := range s.StoryBlocks {
		for j, b := range blk.TimeBoxes {
			c.observe(b)
			if b.Type.IsWork() && c.minutes > limit {
				return &SpacingViolation{
					BlockIndex:       i,
					BlockTitle:       blk.Title,
					BoxIndex:         j,
					Box:              b,
					Accumulated:      c.minutes,
					Limit:            limit,
					BreaksSinceReset: append([]domain.TimeBoxType(nil), c.breaks...),
				}
			}
		}
	}
	return nil
}
