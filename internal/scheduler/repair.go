package scheduler

import (
	"strings"
	"time"

	"github.com/alexanderramin/timeboxer/internal/domain"
)

const continuedSuffix = " (continued)"

// ContinuedTitle marks a task title as the continuation of an earlier segment.
func ContinuedTitle(title string) string {
	if strings.HasSuffix(strings.ToLower(strings.TrimSpace(title)), "(continued)") {
		return title
	}
	return title + continuedSuffix
}

// RepairReport counts what RepairSchedule changed.
type RepairReport struct {
	SplitBoxes      int
	InsertedBreaks  int
	RetotaledBlocks int
}

// Changed reports whether the repair altered the box sequence.
func (r RepairReport) Changed() bool {
	return r.SplitBoxes > 0 || r.InsertedBreaks > 0
}

// SplitOversized splits every work box longer than MaxWorkWithoutBreak into
// balanced segments separated by long breaks. Segment start times walk
// forward from the original box's start. It returns the new sequence, the
// number of boxes split, and the index of the first changed box (-1 if none).
func SplitOversized(rules Rules, boxes []domain.TimeBox) ([]domain.TimeBox, int, int) {
	out := make([]domain.TimeBox, 0, len(boxes))
	splits, first := 0, -1
	for _, b := range boxes {
		if !b.Type.IsWork() || b.Duration <= rules.MaxWorkWithoutBreak {
			out = append(out, b.Clone())
			continue
		}
		if first < 0 {
			first = len(out)
		}
		splits++
		cursor := b.StartTime
		for i, d := range SplitDuration(b.Duration, rules.MaxWorkWithoutBreak, rules.BlockSize) {
			if i > 0 {
				brk := breakBox(domain.TimeBoxLongBreak, cursor, rules.LongBreak)
				out = append(out, brk)
				cursor = brk.EndTime()
			}
			seg := b.Clone()
			seg.StartTime = cursor
			seg.Duration = d
			for j := range seg.Tasks {
				if len(seg.Tasks) == 1 {
					seg.Tasks[j].Duration = d
				}
				if i > 0 {
					seg.Tasks[j].Title = ContinuedTitle(seg.Tasks[j].Title)
				}
			}
			out = append(out, seg)
			cursor = seg.EndTime()
		}
	}
	return out, splits, first
}

// InsertBreaks walks boxes with a consecutive-work counter seeded from
// carried and inserts a long break ahead of any work box that would push the
// counter past WorkLimit. It returns the new sequence, the counter after the
// last box, the number of inserted breaks, and the index of the first
// inserted break (-1 if none).
func InsertBreaks(rules Rules, boxes []domain.TimeBox, carried int) ([]domain.TimeBox, int, int, int) {
	out := make([]domain.TimeBox, 0, len(boxes))
	c := newWorkCounter(rules, carried)
	inserted, first := 0, -1
	for _, b := range boxes {
		if b.Type.IsWork() && c.minutes > 0 && c.minutes+b.Duration > rules.WorkLimit() {
			if first < 0 {
				first = len(out)
			}
			brk := breakBox(domain.TimeBoxLongBreak, b.StartTime, rules.LongBreak)
			out = append(out, brk)
			c.observe(brk)
			inserted++
		}
		out = append(out, b.Clone())
		c.observe(b)
	}
	return out, c.minutes, inserted, first
}

// RepairSchedule runs both break passes over every block, carrying the work
// counter across block boundaries, re-stamps start times forward from the
// first change, and recomputes every block total. The input is not modified.
func RepairSchedule(rules Rules, s domain.Schedule) (domain.Schedule, RepairReport) {
	out := s.Clone()
	var report RepairReport
	carried := 0
	dirtyBlock, dirtyBox := -1, -1

	for i, blk := range out.StoryBlocks {
		boxes, splits, firstSplit := SplitOversized(rules, blk.TimeBoxes)
		boxes, counter, inserted, firstInsert := InsertBreaks(rules, boxes, carried)
		carried = counter
		report.SplitBoxes += splits
		report.InsertedBreaks += inserted

		first := firstSplit
		if firstInsert >= 0 && (first < 0 || firstInsert <= first) {
			first = firstInsert
		}
		if first >= 0 && dirtyBlock < 0 {
			dirtyBlock, dirtyBox = i, first
		}

		blk.TimeBoxes = boxes
		total := Summarize(boxes).Total
		if blk.TotalDuration != total {
			report.RetotaledBlocks++
			blk.TotalDuration = total
		}
		out.StoryBlocks[i] = blk
	}

	if dirtyBlock >= 0 {
		out = Restamp(out, dirtyBlock, dirtyBox)
	}
	return out, report
}

// Restamp returns a copy of s where every box after position (block, box)
// starts when its predecessor ends. The box at the position keeps its start.
func Restamp(s domain.Schedule, block, box int) domain.Schedule {
	out := s.Clone()
	var cursor time.Time
	started := false
	for i := block; i < len(out.StoryBlocks); i++ {
		boxes := out.StoryBlocks[i].TimeBoxes
		j := 0
		if i == block {
			j = box
		}
		for ; j < len(boxes); j++ {
			if started {
				boxes[j].StartTime = cursor
			}
			started = true
			cursor = boxes[j].EndTime()
		}
	}
	return out
}

func breakBox(t domain.TimeBoxType, start time.Time, minutes int) domain.TimeBox {
	return domain.TimeBox{
		Type:      t,
		StartTime: start,
		Duration:  minutes,
		Tasks:     []domain.TimeBoxTask{},
	}
}
