package service

import (
	"context"
	"time"

	"github.com/alexanderramin/timeboxer/internal/app"
	"github.com/alexanderramin/timeboxer/internal/domain"
	"github.com/alexanderramin/timeboxer/internal/llm"
	"github.com/alexanderramin/timeboxer/internal/normalize"
	"github.com/alexanderramin/timeboxer/internal/scheduler"
	"github.com/alexanderramin/timeboxer/internal/validation"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/alexanderramin/timeboxer/internal/service"

// previewLen bounds how much of an unparsable response is echoed back.
const previewLen = 200

type PipelineInput struct {
	Raw       string
	Stories   []domain.Story
	Mapping   []domain.StoryMapping
	StartTime time.Time
}

type PipelineResult struct {
	Schedule    domain.Schedule
	Stories     []domain.Story
	Suggestions []domain.Suggestion
	Coverage    validation.Coverage
	Repair      scheduler.RepairReport
	Warnings    []normalize.Warning

	// LenientParse is set when the JSON only parsed after repair.
	LenientParse bool
}

// Pipeline runs parse, normalize, repair and validate over one raw
// generator response. Each stage returns a new value; nothing is modified
// in place.
type Pipeline struct {
	rules  scheduler.Rules
	tracer trace.Tracer
}

func NewPipeline(rules scheduler.Rules) *Pipeline {
	return &Pipeline{rules: rules, tracer: otel.Tracer(tracerName)}
}

func (p *Pipeline) Rules() scheduler.Rules { return p.rules }

func (p *Pipeline) Run(ctx context.Context, in PipelineInput) (*PipelineResult, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.run")
	defer span.End()

	res, err := p.run(ctx, in)
	if err != nil {
		pe := app.AsPipelineError(err)
		span.SetAttributes(attribute.String("pipeline.error_code", string(pe.Code)))
		span.SetStatus(codes.Error, pe.Message)
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("pipeline.blocks", len(res.Schedule.StoryBlocks)),
		attribute.Int("pipeline.split_boxes", res.Repair.SplitBoxes),
		attribute.Int("pipeline.inserted_breaks", res.Repair.InsertedBreaks),
		attribute.Bool("pipeline.lenient_parse", res.LenientParse),
	)
	return res, nil
}

func (p *Pipeline) run(ctx context.Context, in PipelineInput) (*PipelineResult, error) {
	var raw any
	var repaired bool
	err := p.stage(ctx, "parse", func() error {
		var perr error
		raw, repaired, perr = llm.ExtractJSONLenient[any](in.Raw, nil)
		if perr != nil {
			return app.NewPipelineError(app.ErrInvalidResponseFormat,
				map[string]any{"preview": preview(in.Raw)},
				"response is not valid JSON: %v", perr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var norm *normalize.Result
	err = p.stage(ctx, "normalize", func() error {
		var nerr error
		norm, nerr = normalize.Schedule(raw, normalize.Options{StartTime: in.StartTime, Rules: p.rules})
		return nerr
	})
	if err != nil {
		return nil, err
	}

	var fixed domain.Schedule
	var report scheduler.RepairReport
	_ = p.stage(ctx, "repair", func() error {
		fixed, report = scheduler.RepairSchedule(p.rules, norm.Schedule)
		return nil
	})

	var valid *validation.Result
	err = p.stage(ctx, "validate", func() error {
		var verr error
		valid, verr = validation.Validate(validation.Input{
			Rules:    p.rules,
			Stories:  in.Stories,
			Mapping:  in.Mapping,
			Schedule: fixed,
		})
		return verr
	})
	if err != nil {
		return nil, err
	}

	suggestions := append([]domain.Suggestion(nil), valid.Suggestions...)
	if report.Changed() {
		suggestions = append(suggestions, domain.Suggestion{
			Type:    domain.SuggestionRepaired,
			Message: "work sessions were split or breaks inserted to respect the work-time limit",
			Details: map[string]any{
				"splitBoxes":     report.SplitBoxes,
				"insertedBreaks": report.InsertedBreaks,
			},
		})
	}
	for _, w := range norm.Warnings {
		if w.Kind != normalize.WarnDroppedEntry {
			continue
		}
		suggestions = append(suggestions, domain.Suggestion{
			Type:    domain.SuggestionDroppedBlock,
			Message: w.Message,
			Details: map[string]any{"blockIndex": w.Index},
		})
	}

	return &PipelineResult{
		Schedule:     valid.Schedule,
		Stories:      valid.Stories,
		Suggestions:  suggestions,
		Coverage:     valid.Coverage,
		Repair:       report,
		Warnings:     norm.Warnings,
		LenientParse: repaired,
	}, nil
}

func (p *Pipeline) stage(ctx context.Context, name string, fn func() error) error {
	_, span := p.tracer.Start(ctx, "pipeline."+name)
	defer span.End()
	if err := fn(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

func preview(s string) string {
	r := []rune(s)
	if len(r) <= previewLen {
		return s
	}
	return string(r[:previewLen]) + "…"
}
