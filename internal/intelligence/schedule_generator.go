package intelligence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alexanderramin/timeboxer/internal/app"
	"github.com/alexanderramin/timeboxer/internal/domain"
	"github.com/alexanderramin/timeboxer/internal/llm"
	"github.com/alexanderramin/timeboxer/internal/scheduler"
)

// ScheduleInput is everything one generator attempt is told about.
type ScheduleInput struct {
	Stories   []domain.Story
	StartTime time.Time
	Mapping   []domain.StoryMapping
	Rules     scheduler.Rules
}

// Proposal is the generator's raw, unvalidated answer.
type Proposal struct {
	Text      string
	Model     string
	LatencyMs int64
}

// ScheduleGenerator asks a language model for a candidate schedule.
type ScheduleGenerator interface {
	Propose(ctx context.Context, in ScheduleInput) (*Proposal, error)
}

type scheduleGenerator struct {
	client llm.LLMClient
}

// NewScheduleGenerator creates a ScheduleGenerator backed by an LLM client.
func NewScheduleGenerator(client llm.LLMClient) ScheduleGenerator {
	return &scheduleGenerator{client: client}
}

func (g *scheduleGenerator) Propose(ctx context.Context, in ScheduleInput) (*Proposal, error) {
	prompt, err := BuildSchedulePrompt(in)
	if err != nil {
		return nil, app.NewPipelineError(app.ErrInternal, nil, "building prompt: %v", err)
	}

	resp, err := g.client.Generate(ctx, llm.GenerateRequest{
		Task:         llm.TaskSchedule,
		SystemPrompt: SystemPrompt(in.Rules),
		UserPrompt:   prompt,
	})
	if err != nil {
		return nil, generationError(err)
	}
	return &Proposal{Text: resp.Text, Model: resp.Model, LatencyMs: resp.LatencyMs}, nil
}

// SystemPrompt renders the fixed instructions for the given rules.
func SystemPrompt(r scheduler.Rules) string {
	return fmt.Sprintf(scheduleSystemPrompt,
		r.MaxWorkWithoutBreak, r.ShortBreak, r.LongBreak, r.Debrief,
		r.BlockSize, r.MinTaskDuration, r.MaxTaskDuration)
}

// promptStory is the subset of a story the model needs.
type promptStory struct {
	Title             string        `json:"title"`
	Summary           string        `json:"summary,omitempty"`
	Icon              string        `json:"icon,omitempty"`
	EstimatedDuration int           `json:"estimatedDuration"`
	StoryType         string        `json:"storyType,omitempty"`
	Tasks             []domain.Task `json:"tasks"`
}

// BuildSchedulePrompt embeds the stories, start time and title hints.
func BuildSchedulePrompt(in ScheduleInput) (string, error) {
	stories := make([]promptStory, len(in.Stories))
	for i, s := range in.Stories {
		stories[i] = promptStory{
			Title:             s.Title,
			Summary:           s.Summary,
			Icon:              s.Icon,
			EstimatedDuration: s.EstimatedDuration,
			StoryType:         string(s.StoryType),
			Tasks:             s.Tasks,
		}
	}
	data, err := json.MarshalIndent(stories, "", "  ")
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Start time: %s\n", in.StartTime.Format(time.RFC3339))
	fmt.Fprintf(&b, "Total work: %d minutes\n\n", domain.TotalEstimatedDuration(in.Stories))
	b.WriteString("Stories:\n")
	b.Write(data)
	b.WriteString("\n")

	if len(in.Mapping) > 0 {
		b.WriteString("\nTitle hints (a block or task may use the left title for the right one):\n")
		for _, m := range in.Mapping {
			if m.PossibleTitle == m.OriginalTitle {
				continue
			}
			fmt.Fprintf(&b, "- %q -> %q\n", m.PossibleTitle, m.OriginalTitle)
		}
	}
	return b.String(), nil
}

// generationError classifies a transport failure for the retry loop.
func generationError(err error) error {
	switch {
	case errors.Is(err, llm.ErrOverloaded):
		return app.NewPipelineError(app.ErrUpstreamOverloaded, nil, "generator overloaded: %v", err)
	case errors.Is(err, context.Canceled):
		return err
	default:
		return app.NewPipelineError(app.ErrGenerationFailed, nil, "generator call failed: %v", err)
	}
}
