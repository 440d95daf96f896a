package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultRules_Valid(t *testing.T) {
	r := DefaultRules()
	assert.NoError(t, r.Validate())
	assert.Equal(t, 95, r.WorkLimit())
	assert.Equal(t, 45, r.PreemptiveSplitThreshold())
}

func TestRules_Validate_Rejects(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Rules)
	}{
		{"zero block size", func(r *Rules) { r.BlockSize = 0 }},
		{"negative tolerance", func(r *Rules) { r.WorkTimeTolerance = -1 }},
		{"min above max", func(r *Rules) { r.MinTaskDuration = 200 }},
		{"limit off grid", func(r *Rules) { r.MaxWorkWithoutBreak = 92 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := DefaultRules()
			tc.mutate(&r)
			assert.Error(t, r.Validate())
		})
	}
}

func TestRules_RoundToBlock(t *testing.T) {
	r := DefaultRules()
	cases := map[int]int{0: 0, -5: -5, 1: 5, 5: 5, 29: 30, 31: 35, 150: 150}
	for in, want := range cases {
		assert.Equal(t, want, r.RoundToBlock(in), "in=%d", in)
	}
}

func TestRules_RoundDown(t *testing.T) {
	r := DefaultRules()
	assert.Equal(t, 45, r.RoundDown(47))
	assert.Equal(t, 5, r.RoundDown(3))
	assert.Equal(t, 90, r.RoundDown(90))
}
