package simulation

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/ilramdhan/stepsheet/config"
	"github.com/ilramdhan/stepsheet/internal/domain/entity"
	"github.com/ilramdhan/stepsheet/internal/domain/repository"
	"github.com/ilramdhan/stepsheet/pkg/formula"
)

// Handler exposes the simulation engine and its stored projects over HTTP
type Handler struct {
	engine      *SimulationEngine
	projectRepo repository.ProjectRepository
	runRepo     repository.SimulationRunRepository
	seriesRepo  repository.DataSeriesRepository
	jobRepo     repository.BatchJobRepository
	limits      config.SimulationConfig
}

// NewHandler creates a new HTTP handler
func NewHandler(
	engine *SimulationEngine,
	projectRepo repository.ProjectRepository,
	runRepo repository.SimulationRunRepository,
	seriesRepo repository.DataSeriesRepository,
	jobRepo repository.BatchJobRepository,
	limits config.SimulationConfig,
) *Handler {
	return &Handler{
		engine:      engine,
		projectRepo: projectRepo,
		runRepo:     runRepo,
		seriesRepo:  seriesRepo,
		jobRepo:     jobRepo,
		limits:      limits,
	}
}

// RegisterRoutes mounts every endpoint on the given router, normally the /api/v1 group
func (h *Handler) RegisterRoutes(r fiber.Router) {
	r.Get("/health", h.health)

	r.Post("/simulate", h.simulate)
	r.Post("/formulas/parse", h.parseFormula)
	r.Post("/formulas/lint", h.lintFormula)

	r.Get("/projects", h.listProjects)
	r.Post("/projects", h.createProject)
	r.Get("/projects/:id", h.getProject)
	r.Put("/projects/:id", h.updateProject)
	r.Delete("/projects/:id", h.deleteProject)
	r.Get("/projects/:id/runs", h.listRuns)
	r.Post("/projects/:id/runs", h.runProject)
	r.Post("/projects/:id/jobs", h.enqueueProject)
	r.Put("/projects/:id/series/:cell", h.putSeries)

	r.Get("/runs/:id", h.getRun)
	r.Get("/runs/:id/export.xlsx", h.exportRun)

	r.Post("/jobs/simulate-all", h.enqueueAll)
	r.Get("/jobs", h.listJobs)
	r.Get("/jobs/:id", h.getJob)
}

// SimulateRequest is the body of POST /simulate
type SimulateRequest struct {
	Cells     map[string]string   `json:"cells"`
	Constants map[string]string   `json:"constants"`
	Steps     int                 `json:"steps"`
	Series    map[string][]string `json:"series"`
}

// SimulateResponse renders every value with the display formatter
type SimulateResponse struct {
	Steps   int                 `json:"steps"`
	Order   []string            `json:"order"`
	CycleAt string              `json:"cycle_at,omitempty"`
	Blocked []string            `json:"blocked,omitempty"`
	History map[string][]string `json:"history"`
	Final   map[string]string   `json:"final"`
}

// ProjectRequest is the body of POST and PUT /projects
type ProjectRequest struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	StepCount   int               `json:"step_count"`
	Cells       map[string]string `json:"cells"`
	Constants   map[string]string `json:"constants"`
}

type formulaRequest struct {
	Formula string `json:"formula"`
}

type seriesRequest struct {
	Values []string `json:"values"`
}

type jobRequest struct {
	Steps int `json:"steps"`
}

func (h *Handler) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (h *Handler) simulate(c *fiber.Ctx) error {
	var req SimulateRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	sim, err := h.engine.Evaluate(req.Cells, req.Constants, h.limits.ClampSteps(req.Steps), req.Series)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(NewSimulateResponse(sim))
}

// NewSimulateResponse converts a simulation into its JSON shape
func NewSimulateResponse(sim *formula.Simulation) SimulateResponse {
	resp := SimulateResponse{
		Steps:   sim.Steps,
		Order:   sim.Order,
		CycleAt: sim.CycleAt,
		Blocked: sim.Blocked,
		History: make(map[string][]string, len(sim.History)),
		Final:   make(map[string]string, len(sim.History)),
	}
	for id, values := range sim.History {
		rendered := make([]string, len(values))
		for i, v := range values {
			rendered[i] = formula.FormatValue(v)
		}
		resp.History[id] = rendered
	}
	for id, v := range sim.Final() {
		resp.Final[id] = formula.FormatValue(v)
	}
	return resp
}

func (h *Handler) parseFormula(c *fiber.Ctx) error {
	var req formulaRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if !formula.IsFormula(req.Formula) {
		return badRequest(c, "formula must start with '='")
	}

	parts := formula.GetFormula(req.Formula)
	primary, err := formula.Parse(parts.Primary)
	if err != nil {
		return badRequest(c, err.Error())
	}
	resp := fiber.Map{
		"primary":    primary.String(),
		"references": formula.References(req.Formula),
	}
	if parts.HasDefault {
		def, err := formula.Parse(parts.Default)
		if err != nil {
			return badRequest(c, err.Error())
		}
		resp["default"] = def.String()
	}
	return c.JSON(resp)
}

func (h *Handler) lintFormula(c *fiber.Ctx) error {
	var req formulaRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	report := formula.Lint(req.Formula)
	return c.JSON(fiber.Map{
		"report": report,
		"valid":  report.Valid(),
	})
}

func (h *Handler) listProjects(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 20)
	offset := c.QueryInt("offset", 0)
	projects, err := h.projectRepo.List(c.UserContext(), limit, offset)
	if err != nil {
		return fail(c, err)
	}
	count, _ := h.projectRepo.Count(c.UserContext())
	return c.JSON(fiber.Map{
		"data":   projects,
		"total":  count,
		"limit":  limit,
		"offset": offset,
	})
}

func (h *Handler) createProject(c *fiber.Ctx) error {
	var req ProjectRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	now := time.Now()
	project := &entity.Project{ID: uuid.New(), CreatedAt: now, UpdatedAt: now}
	if err := h.applyProject(project, req); err != nil {
		return fail(c, err)
	}
	if err := h.projectRepo.Create(c.UserContext(), project); err != nil {
		return fail(c, err)
	}
	return c.Status(201).JSON(project)
}

func (h *Handler) getProject(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid id")
	}
	project, err := h.projectRepo.GetByID(c.UserContext(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(project)
}

func (h *Handler) updateProject(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid id")
	}
	var req ProjectRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	project, err := h.projectRepo.GetByID(c.UserContext(), id)
	if err != nil {
		return fail(c, err)
	}
	if err := h.applyProject(project, req); err != nil {
		return fail(c, err)
	}
	project.UpdatedAt = time.Now()
	if err := h.projectRepo.Update(c.UserContext(), project); err != nil {
		return fail(c, err)
	}
	return c.JSON(project)
}

// applyProject validates a request before it reaches storage so bad sheets are
// rejected at write time rather than on the first run
func (h *Handler) applyProject(project *entity.Project, req ProjectRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidSheet)
	}
	cells, err := NormalizeCells(req.Cells)
	if err != nil {
		return err
	}
	if _, err := formula.ResolveConstants(req.Constants); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSheet, err)
	}

	project.Name = req.Name
	project.Description = req.Description
	project.StepCount = h.limits.ClampSteps(req.StepCount)
	project.Cells = cells
	project.Constants = req.Constants
	return nil
}

func (h *Handler) deleteProject(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid id")
	}
	if err := h.projectRepo.Delete(c.UserContext(), id); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(204)
}

func (h *Handler) listRuns(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid id")
	}
	runs, err := h.runRepo.ListByProject(c.UserContext(), id, c.QueryInt("limit", 20))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"data": runs})
}

func (h *Handler) runProject(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid id")
	}

	steps := c.QueryInt("steps", 0)
	if steps > 0 {
		steps = h.limits.ClampSteps(steps)
	}
	run, err := h.engine.RunProject(c.UserContext(), id, steps)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(201).JSON(run)
}

func (h *Handler) putSeries(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid id")
	}
	coords, err := formula.CellIDToCoords(c.Params("cell"))
	if err != nil {
		return badRequest(c, err.Error())
	}
	var req seriesRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	if _, err := h.projectRepo.GetByID(c.UserContext(), id); err != nil {
		return fail(c, err)
	}
	series := &entity.DataSeries{
		ProjectID: id,
		CellID:    formula.CellCoordsToID(coords),
		Values:    req.Values,
		UpdatedAt: time.Now(),
	}
	if err := h.seriesRepo.Upsert(c.UserContext(), series); err != nil {
		return fail(c, err)
	}
	return c.JSON(series)
}

func (h *Handler) getRun(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid id")
	}
	run, entries, err := h.engine.LoadRun(c.UserContext(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{
		"run":     run,
		"history": Snapshot(entries),
	})
}

func (h *Handler) exportRun(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid id")
	}
	ctx := c.UserContext()
	run, entries, err := h.engine.LoadRun(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	project, err := h.projectRepo.GetByID(ctx, run.ProjectID)
	if err != nil {
		return fail(c, err)
	}

	var buf bytes.Buffer
	if err := WriteWorkbook(&buf, project, run, entries); err != nil {
		return fail(c, err)
	}
	c.Attachment(fmt.Sprintf("run-%s.xlsx", run.ID))
	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	return c.Send(buf.Bytes())
}

func (h *Handler) enqueueAll(c *fiber.Ctx) error {
	var req jobRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request body")
		}
	}
	return h.enqueue(c, entity.JobTypeSimulateAll, map[string]interface{}{"steps": h.jobSteps(req.Steps)})
}

func (h *Handler) enqueueProject(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid id")
	}
	if _, err := h.projectRepo.GetByID(c.UserContext(), id); err != nil {
		return fail(c, err)
	}
	return h.enqueue(c, entity.JobTypeSimulateProject, map[string]interface{}{
		"project_id": id.String(),
		"steps":      h.jobSteps(c.QueryInt("steps", 0)),
	})
}

// jobSteps keeps 0 as "use each project's step count"
func (h *Handler) jobSteps(requested int) int {
	if requested <= 0 {
		return 0
	}
	return h.limits.ClampSteps(requested)
}

func (h *Handler) enqueue(c *fiber.Ctx, jobType entity.JobType, metadata map[string]interface{}) error {
	job := &entity.BatchJob{
		ID:        uuid.New(),
		JobType:   jobType,
		Status:    entity.JobStatusPending,
		Metadata:  metadata,
		CreatedAt: time.Now(),
	}
	if err := h.jobRepo.Create(c.UserContext(), job); err != nil {
		return fail(c, err)
	}
	return c.Status(202).JSON(fiber.Map{
		"job_id":  job.ID,
		"message": "Simulation queued",
		"status":  job.Status,
	})
}

func (h *Handler) listJobs(c *fiber.Ctx) error {
	jobs, err := h.jobRepo.ListRecent(c.UserContext(), c.QueryInt("limit", 20))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"data": jobs})
}

func (h *Handler) getJob(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid id")
	}
	job, err := h.jobRepo.GetByID(c.UserContext(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{
		"job":      job,
		"progress": job.Progress(),
	})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(400).JSON(fiber.Map{"error": msg})
}

// fail maps service errors onto status codes
func fail(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return c.Status(404).JSON(fiber.Map{"error": "not found"})
	case errors.Is(err, ErrInvalidSheet):
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return c.Status(503).JSON(fiber.Map{"error": err.Error()})
	}
	return c.Status(500).JSON(fiber.Map{"error": err.Error()})
}
