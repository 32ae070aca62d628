package httpapi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"

	"github.com/vsinha/prodplan/pkg/application/dto"
	"github.com/vsinha/prodplan/pkg/application/services/orchestration"
	"github.com/vsinha/prodplan/pkg/application/services/report"
	"github.com/vsinha/prodplan/pkg/domain/entities"
	"github.com/vsinha/prodplan/pkg/domain/services"
	"github.com/vsinha/prodplan/pkg/infrastructure/events"
	"github.com/vsinha/prodplan/pkg/infrastructure/excel"
	"github.com/vsinha/prodplan/pkg/interfaces/cli/output"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// errRunNotConfirmed is returned when a confirmed plan is required
var errRunNotConfirmed = errors.New("run is not confirmed")

// runResponse is a run together with its management report
type runResponse struct {
	Run          *dto.PlanningResult  `json:"run"`
	Report       *report.Report       `json:"report"`
	MachinePlans []report.MachinePlan `json:"machine_plans"`
}

// runSummary is one entry of the run list
type runSummary struct {
	RunID       string     `json:"run_id"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt time.Time  `json:"completed_at"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
	Products    int        `json:"products"`
	Flags       int        `json:"flags"`
	Lines       int        `json:"lines"`
	Unmet       int        `json:"unmet"`
}

func newRunResponse(result *dto.PlanningResult) runResponse {
	return runResponse{
		Run:          result,
		Report:       report.Build(result),
		MachinePlans: report.MachinePlans(result),
	}
}

func (s *Server) createRun(c *gin.Context) {
	ctx, span := s.tracer.Start(c.Request.Context(), "http.create_run")
	defer span.End()

	input, err := s.bindRunInput(c)
	if err != nil {
		span.RecordError(err)
		s.writeError(c, err, http.StatusBadRequest)
		return
	}
	span.SetAttributes(
		attribute.Int("input.stock_rows", len(input.Stock)),
		attribute.Int("input.machines", len(input.Machines)),
	)

	result, err := s.planner.Run(ctx, input)
	if err != nil {
		span.RecordError(err)
		s.writeError(c, err, http.StatusInternalServerError)
		return
	}
	span.SetAttributes(attribute.String("run.id", result.RunID))

	c.JSON(http.StatusCreated, newRunResponse(result))
}

func (s *Server) listRuns(c *gin.Context) {
	runs, err := s.planner.List(c.Request.Context())
	if err != nil {
		s.writeError(c, err, http.StatusInternalServerError)
		return
	}

	summaries := make([]runSummary, 0, len(runs))
	for _, run := range runs {
		summaries = append(summaries, runSummary{
			RunID:       run.RunID,
			StartedAt:   run.StartedAt,
			CompletedAt: run.CompletedAt,
			ConfirmedAt: run.ConfirmedAt,
			Products:    len(run.Products),
			Flags:       len(run.Flags),
			Lines:       len(run.Lines),
			Unmet:       len(run.Unmet),
		})
	}
	c.JSON(http.StatusOK, gin.H{"runs": summaries})
}

func (s *Server) getRun(c *gin.Context) {
	result, ok := s.lookupRun(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, newRunResponse(result))
}

// confirmRun applies overrides, then planner-added lines, to a stored run
func (s *Server) confirmRun(c *gin.Context) {
	ctx, span := s.tracer.Start(c.Request.Context(), "http.confirm_run")
	defer span.End()

	var req confirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.RecordError(err)
		s.writeError(c, err, http.StatusBadRequest)
		return
	}

	result, ok := s.lookupRunContext(ctx, c)
	if !ok {
		return
	}
	span.SetAttributes(
		attribute.String("run.id", result.RunID),
		attribute.Int("confirm.overrides", len(req.Overrides)),
		attribute.Int("confirm.added_lines", len(req.AddLines)),
	)

	confirmed, err := s.confirm(ctx, result, req)
	if err != nil {
		span.RecordError(err)
		s.writeError(c, err, http.StatusInternalServerError)
		return
	}

	c.JSON(http.StatusOK, newRunResponse(confirmed))
}

func (s *Server) confirm(ctx context.Context, result *dto.PlanningResult, req confirmRequest) (*dto.PlanningResult, error) {
	confirmed, err := s.planner.Confirm(ctx, result, req.Overrides)
	if err != nil {
		return nil, err
	}
	for _, line := range req.AddLines {
		confirmed, err = s.planner.AddLine(ctx, confirmed, line.ProductCode, line.MachineID, line.Qty)
		if err != nil {
			return nil, err
		}
	}
	return confirmed, nil
}

func (s *Server) runEvents(c *gin.Context) {
	result, ok := s.lookupRun(c)
	if !ok {
		return
	}
	records, err := s.planner.Events(result.RunID)
	if err != nil {
		s.writeError(c, err, http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, gin.H{"run_id": result.RunID, "events": records})
}

// auditLog lists events across runs from the ?from position
func (s *Server) auditLog(c *gin.Context) {
	from := 0
	if raw := c.Query("from"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.writeError(c, fmt.Errorf("invalid from position %q", raw), http.StatusBadRequest)
			return
		}
		from = n
	}

	records, err := s.planner.AuditLog(from)
	if err != nil {
		s.writeError(c, err, http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []events.Record{}
	}
	c.JSON(http.StatusOK, gin.H{"from": from, "next": from + len(records), "events": records})
}

// runWorkbook downloads the management workbook of a run
func (s *Server) runWorkbook(c *gin.Context) {
	result, ok := s.lookupRun(c)
	if !ok {
		return
	}

	tables := report.Build(result).Tables()
	for _, plan := range report.MachinePlans(result) {
		tables = append(tables, plan.Table)
	}
	f, err := output.BuildWorkbook(tables)
	if err != nil {
		s.writeError(c, err, http.StatusInternalServerError)
		return
	}
	defer f.Close()

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		s.writeError(c, fmt.Errorf("failed to write workbook: %w", err), http.StatusInternalServerError)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="production_plan_%s.xlsx"`, result.RunID))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// fillTemplate fills an uploaded order template with the confirmed quantities
func (s *Server) fillTemplate(c *gin.Context) {
	result, ok := s.lookupRun(c)
	if !ok {
		return
	}
	if !result.IsConfirmed() {
		s.writeError(c, errRunNotConfirmed, http.StatusConflict)
		return
	}

	header, err := c.FormFile(formTemplate)
	if err != nil {
		s.writeError(c, fmt.Errorf("missing upload: %s", formTemplate), http.StatusBadRequest)
		return
	}
	file, err := header.Open()
	if err != nil {
		s.writeError(c, fmt.Errorf("failed to open upload %s: %w", header.Filename, err), http.StatusBadRequest)
		return
	}
	defer file.Close()

	var buf bytes.Buffer
	normalizer := services.NewCodeNormalizer(result.Policy.Codes)
	fill, err := excel.FillTemplate(file, &buf, result.Final, normalizer, excel.DefaultTemplateOptions())
	if err != nil {
		s.writeError(c, err, http.StatusBadRequest)
		return
	}

	c.Header("X-Filled-Rows", strconv.Itoa(fill.Filled))
	c.Header("X-Unmatched-Rows", strconv.Itoa(fill.Unmatched))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="filled_%s"`, header.Filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

func (s *Server) lookupRun(c *gin.Context) (*dto.PlanningResult, bool) {
	return s.lookupRunContext(c.Request.Context(), c)
}

func (s *Server) lookupRunContext(ctx context.Context, c *gin.Context) (*dto.PlanningResult, bool) {
	result, err := s.planner.Get(ctx, c.Param("id"))
	if err != nil {
		s.writeError(c, err, http.StatusInternalServerError)
		return nil, false
	}
	return result, true
}

// writeError maps err to a status: domain errors are unprocessable and carry their
// kind, unknown runs are not found, anything else gets fallback
func (s *Server) writeError(c *gin.Context, err error, fallback int) {
	status := fallback
	body := gin.H{"error": err.Error()}

	switch {
	case errors.Is(err, orchestration.ErrRunNotFound):
		status = http.StatusNotFound
	case errors.Is(err, entities.ErrInvalidPolicy):
		status = http.StatusBadRequest
	case errors.Is(err, errRunNotConfirmed):
		status = http.StatusConflict
	case entities.ErrorKind(err) != "":
		status = http.StatusUnprocessableEntity
		body["kind"] = entities.ErrorKind(err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusServiceUnavailable
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(status, body)
}
