package scheduler

import (
	"testing"

	"github.com/alexanderramin/timeboxer/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestSummarize(t *testing.T) {
	boxes := []domain.TimeBox{
		workBox("A", 30),
		{Type: domain.TimeBoxShortBreak, Duration: 5},
		workBox("B", 45),
		{Type: domain.TimeBoxLongBreak, Duration: 15},
		{Type: domain.TimeBoxDebrief, Duration: 5},
	}
	d := Summarize(boxes)
	assert.Equal(t, 75, d.Work)
	assert.Equal(t, 25, d.Break)
	assert.Equal(t, 100, d.Total)
	assert.Equal(t, 75, d.Realized())
}

func TestSummarize_Empty(t *testing.T) {
	assert.Equal(t, Durations{}, Summarize(nil))
}

func TestDurations_Realized_PureBreak(t *testing.T) {
	d := Summarize([]domain.TimeBox{{Type: domain.TimeBoxLongBreak, Duration: 15}})
	assert.Equal(t, 0, d.Work)
	assert.Equal(t, 15, d.Realized())
}
