package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tpoisot/IntroScientificComputing/adapters/excel"
	"github.com/tpoisot/IntroScientificComputing/adapters/report"
	"github.com/tpoisot/IntroScientificComputing/app"
	"github.com/tpoisot/IntroScientificComputing/domain/core"
	"github.com/tpoisot/IntroScientificComputing/domain/occupancy"
	"github.com/tpoisot/IntroScientificComputing/domain/run"
	"github.com/tpoisot/IntroScientificComputing/domain/summary"
	"github.com/tpoisot/IntroScientificComputing/internal"
	"github.com/tpoisot/IntroScientificComputing/internal/errors"
	"github.com/tpoisot/IntroScientificComputing/ports"
)

// Request limits. A single estimate runs inside the request.
const (
	MaxSamples      = 1_000_000
	MaxSteps        = 100_000
	DefaultRunLimit = 20
)

const simulateStage = "api-simulate"

// Handler serves the estimator over HTTP
type Handler struct {
	estimator *app.Estimator
	rng       ports.RNGPort
	runs      ports.RunRepository
	base      run.Settings
	logger    *internal.Logger
}

// NewHandler creates a handler. base holds the settings a request starts
// from before its own overrides apply.
func NewHandler(estimator *app.Estimator, rng ports.RNGPort, runs ports.RunRepository, base run.Settings, logger *internal.Logger) *Handler {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Handler{
		estimator: estimator,
		rng:       rng,
		runs:      runs,
		base:      base,
		logger:    logger.Component("API"),
	}
}

// Register mounts the routes on r
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/healthz", h.Health)

	v1 := r.Group("/v1")
	v1.POST("/simulate", h.Simulate)
	v1.POST("/estimate", h.Estimate)
	v1.GET("/runs", h.ListRuns)
	v1.GET("/runs/:id", h.GetRun)
	v1.GET("/runs/:id/report", h.GetReport)
	v1.GET("/runs/:id/xlsx", h.GetWorkbook)
}

// Router builds a gin engine serving the handler
func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), h.requestLogger())
	h.Register(r)
	return r
}

func (h *Handler) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		h.logger.Debug("%s %s -> %d", c.Request.Method, c.Request.URL.Path, c.Writer.Status())
	}
}

// Health reports liveness
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// SimulateRequest asks for one true and one measured sequence
type SimulateRequest struct {
	Extinction       *float64 `json:"e"`
	Colonization     *float64 `json:"c"`
	MeasurementError *float64 `json:"m"`
	Steps            *int     `json:"steps"`
	Seed             *uint64  `json:"seed"`
}

// SimulateResponse carries both sequences and their summaries
type SimulateResponse struct {
	Params          occupancy.Params   `json:"params"`
	Steps           int                `json:"steps"`
	Seed            uint64             `json:"seed"`
	State           string             `json:"state"`
	Measured        string             `json:"measured"`
	StateSummary    map[string]float64 `json:"state_summary"`
	MeasuredSummary map[string]float64 `json:"measured_summary"`
}

// Simulate runs the occupancy model once
func (h *Handler) Simulate(c *gin.Context) {
	var req SimulateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, errors.InvalidInput(fmt.Sprintf("invalid request body: %v", err)))
		return
	}
	if req.Extinction == nil || req.Colonization == nil || req.MeasurementError == nil {
		h.respondError(c, errors.InvalidInput("e, c and m are required"))
		return
	}
	steps := occupancy.DefaultSteps
	if req.Steps != nil {
		steps = *req.Steps
	}
	if steps > MaxSteps {
		h.respondError(c, errors.InvalidInput(fmt.Sprintf("steps must not exceed %d", MaxSteps)))
		return
	}
	seed := h.base.Seed
	if req.Seed != nil {
		seed = *req.Seed
	}

	params := occupancy.Params{
		Extinction:       *req.Extinction,
		Colonization:     *req.Colonization,
		MeasurementError: *req.MeasurementError,
	}
	r, err := h.rng.SeededStream(c.Request.Context(), simulateStage, seed)
	if err != nil {
		h.respondError(c, err)
		return
	}
	state, measured, err := occupancy.SimulateBoth(r, params, steps)
	if err != nil {
		h.respondError(c, err)
		return
	}

	stats, err := summary.Resolve(summary.Names())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, SimulateResponse{
		Params:          params,
		Steps:           steps,
		Seed:            seed,
		State:           state.String(),
		Measured:        measured.String(),
		StateSummary:    namedSummary(state, stats),
		MeasuredSummary: namedSummary(measured, stats),
	})
}

func namedSummary(seq occupancy.Sequence, stats []summary.Named) map[string]float64 {
	v := summary.Summarize(seq, stats)
	out := make(map[string]float64, len(stats))
	for i, s := range stats {
		out[s.Name] = v[i]
	}
	return out
}

// EstimateRequest overrides the server's estimator settings for one run.
// Absent fields keep the server value.
type EstimateRequest struct {
	Samples      *int     `json:"samples"`
	Threshold    *float64 `json:"threshold"`
	Steps        *int     `json:"steps"`
	Seed         *uint64  `json:"seed"`
	Workers      *int     `json:"workers"`
	Statistics   []string `json:"statistics"`
	Distance     *string  `json:"distance"`
	PriorE       *string  `json:"prior_e"`
	PriorC       *string  `json:"prior_c"`
	PriorM       *string  `json:"prior_m"`
	Empirical    *string  `json:"empirical"`
	PredictSteps *int     `json:"predict_steps"`
}

// Apply overlays the request on base
func (r EstimateRequest) Apply(base run.Settings) run.Settings {
	s := base
	s.Statistics = append([]string(nil), base.Statistics...)
	if r.Samples != nil {
		s.Samples = *r.Samples
	}
	if r.Threshold != nil {
		s.Threshold = *r.Threshold
	}
	if r.Steps != nil {
		s.Steps = *r.Steps
	}
	if r.Seed != nil {
		s.Seed = *r.Seed
	}
	if r.Workers != nil {
		s.Workers = *r.Workers
	}
	if len(r.Statistics) > 0 {
		s.Statistics = r.Statistics
	}
	if r.Distance != nil {
		s.Distance = *r.Distance
	}
	if r.PriorE != nil {
		s.PriorE = *r.PriorE
	}
	if r.PriorC != nil {
		s.PriorC = *r.PriorC
	}
	if r.PriorM != nil {
		s.PriorM = *r.PriorM
	}
	if r.Empirical != nil {
		s.Empirical = *r.Empirical
	}
	return s
}

// EstimateResponse is the persisted run plus its noise-free prediction
type EstimateResponse struct {
	Run        *run.Record     `json:"run"`
	Prediction *run.Prediction `json:"prediction,omitempty"`
}

// Estimate runs the estimator and stores the result
func (h *Handler) Estimate(c *gin.Context) {
	var req EstimateRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.respondError(c, errors.InvalidInput(fmt.Sprintf("invalid request body: %v", err)))
			return
		}
	}

	settings := req.Apply(h.base)
	if settings.Samples > MaxSamples {
		h.respondError(c, errors.InvalidInput(fmt.Sprintf("samples must not exceed %d", MaxSamples)))
		return
	}
	if settings.Steps > MaxSteps {
		h.respondError(c, errors.InvalidInput(fmt.Sprintf("steps must not exceed %d", MaxSteps)))
		return
	}
	if req.PredictSteps != nil && (*req.PredictSteps < 1 || *req.PredictSteps > MaxSteps) {
		h.respondError(c, errors.InvalidInput(fmt.Sprintf("predict_steps must be between 1 and %d", MaxSteps)))
		return
	}
	cfg, err := app.EstimatorConfigFromSettings(settings)
	if err != nil {
		h.respondError(c, err)
		return
	}

	ctx := c.Request.Context()
	result, err := h.estimator.Run(ctx, cfg)
	if err != nil {
		h.respondError(c, err)
		return
	}

	rec := run.NewRecord(result)
	if err := h.runs.Save(ctx, rec); err != nil {
		h.respondError(c, errors.DatabaseError("failed to save run", err))
		return
	}

	resp := EstimateResponse{Run: rec}
	if result.Outcome == run.OutcomeAccepted {
		steps := cfg.Steps
		if req.PredictSteps != nil {
			steps = *req.PredictSteps
		}
		pred, err := h.estimator.PredictOccupancy(ctx, result, steps)
		if err != nil {
			h.respondError(c, err)
			return
		}
		resp.Prediction = pred
	}

	c.JSON(http.StatusCreated, resp)
}

// ListRuns returns the most recent runs
func (h *Handler) ListRuns(c *gin.Context) {
	limit := DefaultRunLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			h.respondError(c, errors.InvalidInput(fmt.Sprintf("invalid limit %q", raw)))
			return
		}
		limit = n
	}

	records, err := h.runs.List(c.Request.Context(), limit)
	if err != nil {
		h.respondError(c, errors.DatabaseError("failed to list runs", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": records})
}

// GetRun returns one stored run
func (h *Handler) GetRun(c *gin.Context) {
	rec, ok := h.loadRun(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, rec)
}

// GetReport renders a stored run as an HTML page
func (h *Handler) GetReport(c *gin.Context) {
	rec, ok := h.loadRun(c)
	if !ok {
		return
	}

	var pred *run.Prediction
	if rec.Outcome == run.OutcomeAccepted && len(rec.Accepted) > 0 {
		p, err := h.estimator.PredictOccupancy(c.Request.Context(), rec.Result(), rec.Settings.Steps)
		if err != nil {
			h.respondError(c, err)
			return
		}
		pred = p
	}

	page := report.HTML(report.Markdown(rec, pred), "ABC run "+rec.ID.String())
	c.Data(http.StatusOK, "text/html; charset=utf-8", page)
}

// GetWorkbook exports a stored run as an xlsx workbook
func (h *Handler) GetWorkbook(c *gin.Context) {
	rec, ok := h.loadRun(c)
	if !ok {
		return
	}

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "abc-"+rec.ID.String()+".xlsx"))
	c.Status(http.StatusOK)
	if err := excel.WritePosteriorTo(c.Writer, rec); err != nil {
		h.logger.Error("run %s: workbook export failed: %v", rec.ID, err)
	}
}

func (h *Handler) loadRun(c *gin.Context) (*run.Record, bool) {
	id, err := core.ParseRunID(c.Param("id"))
	if err != nil {
		h.respondError(c, errors.InvalidInput(err.Error()))
		return nil, false
	}
	rec, err := h.runs.Get(c.Request.Context(), id)
	if err != nil {
		if core.IsNotFoundError(err) {
			h.respondError(c, errors.NotFound("run "+id.String()))
			return nil, false
		}
		h.respondError(c, errors.DatabaseError("failed to load run", err))
		return nil, false
	}
	return rec, true
}

func (h *Handler) respondError(c *gin.Context, err error) {
	err = errors.FromDomain(err)
	code := errors.GetCode(err)
	status := errors.HTTPStatus(code)
	switch {
	case errors.IsCancellation(code):
		h.logger.Warn("%s %s abandoned: %v", c.Request.Method, c.Request.URL.Path, err)
	case status >= http.StatusInternalServerError:
		h.logger.Error("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error(), "code": code})
}
