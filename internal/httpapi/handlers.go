package httpapi

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/alexanderramin/timeboxer/internal/app"
	"github.com/alexanderramin/timeboxer/internal/importer"
	"github.com/alexanderramin/timeboxer/internal/scheduler"
	"github.com/gin-gonic/gin"
)

// maxBodyBytes caps POST /api/schedule bodies.
const maxBodyBytes = 1 << 20

type ScheduleHandler struct {
	plan  app.PlanScheduleUseCase
	rules scheduler.Rules
	now   func() time.Time
}

func NewScheduleHandler(plan app.PlanScheduleUseCase, rules scheduler.Rules) *ScheduleHandler {
	return &ScheduleHandler{plan: plan, rules: rules, now: time.Now}
}

// POST /api/schedule
func (h *ScheduleHandler) Plan(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes))
	if err != nil {
		RespondError(c, app.NewPipelineError(app.ErrInvalidRequest, nil, "reading body: %v", err))
		return
	}

	format := importer.FormatJSON
	if strings.Contains(c.ContentType(), "yaml") {
		format = importer.FormatYAML
	}
	file, err := importer.Parse(body, format)
	if err != nil {
		RespondError(c, app.NewPipelineError(app.ErrInvalidRequest, nil, "%v", err))
		return
	}
	if errs := importer.ValidateStoryFile(file, h.rules); len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		RespondError(c, app.NewPipelineError(app.ErrInvalidRequest, map[string]any{"errors": msgs},
			"request is invalid: %s", msgs[0]))
		return
	}
	req, err := importer.Convert(file, h.rules, h.now().UTC())
	if err != nil {
		RespondError(c, app.NewPipelineError(app.ErrInvalidRequest, nil, "%v", err))
		return
	}
	req.NoCache = c.Query("nocache") == "1" || c.Query("nocache") == "true"

	resp, err := h.plan.Plan(c.Request.Context(), req, nil)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.Header("X-Run-Id", resp.RunID)
	RespondOK(c, resp)
}

type RunHandler struct {
	runs app.RunQueryUseCase
}

func NewRunHandler(runs app.RunQueryUseCase) *RunHandler {
	return &RunHandler{runs: runs}
}

// GET /api/runs
func (h *RunHandler) List(c *gin.Context) {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			RespondError(c, app.NewPipelineError(app.ErrInvalidRequest, nil, "limit must be a positive integer, got %q", raw))
			return
		}
		limit = n
	}
	runs, err := h.runs.ListRuns(c.Request.Context(), limit)
	if err != nil {
		RespondError(c, fmt.Errorf("listing runs: %w", err))
		return
	}
	RespondOK(c, gin.H{"runs": runs})
}

// GET /api/runs/:id
func (h *RunHandler) Get(c *gin.Context) {
	run, err := h.runs.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"run": run})
}

func HealthCheck(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}
