package simulation

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ilramdhan/stepsheet/config"
	"github.com/ilramdhan/stepsheet/internal/domain/entity"
)

func newTestApp(f *fixture) *fiber.App {
	app := fiber.New()
	handler := NewHandler(f.engine, f.projects, f.runs, f.series, f.jobs, config.SimulationConfig{DefaultSteps: 4, MaxSteps: 20})
	handler.RegisterRoutes(app.Group("/api/v1"))
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]interface{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func TestHandler_Simulate(t *testing.T) {
	app := newTestApp(newFixture())

	testCases := []struct {
		name        string
		body        SimulateRequest
		expectSteps int
		expectC1    string
	}{
		{
			name:        "Explicit steps",
			body:        SimulateRequest{Cells: map[string]string{"A1": "=1=A1+1", "B1": "=A1+5", "C1": "=B1*A1"}, Steps: 5},
			expectSteps: 5,
			expectC1:    "50",
		},
		{
			name:        "Default steps",
			body:        SimulateRequest{Cells: map[string]string{"C1": "=C1+2"}},
			expectSteps: 4,
			expectC1:    "8",
		},
		{
			name:        "Capped steps",
			body:        SimulateRequest{Cells: map[string]string{"C1": "=C1+1"}, Steps: 500},
			expectSteps: 20,
			expectC1:    "20",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			status, body := doJSON(t, app, http.MethodPost, "/api/v1/simulate", tc.body)

			require.Equal(t, http.StatusOK, status)
			assert.Equal(t, float64(tc.expectSteps), body["steps"])
			assert.Equal(t, tc.expectC1, body["final"].(map[string]interface{})["C1"])
			assert.Len(t, body["history"].(map[string]interface{})["C1"], tc.expectSteps)
		})
	}
}

func TestHandler_Simulate_Errors(t *testing.T) {
	app := newTestApp(newFixture())

	status, body := doJSON(t, app, http.MethodPost, "/api/v1/simulate", SimulateRequest{Cells: map[string]string{"total": "1"}})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body["error"], "invalid sheet")

	status, body = doJSON(t, app, http.MethodPost, "/api/v1/simulate", SimulateRequest{
		Cells: map[string]string{"A1": "=B1", "B1": "=A1"},
		Steps: 2,
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "A1", body["cycle_at"])
	assert.Equal(t, "#ERROR: Circular dependency detected at A1", body["final"].(map[string]interface{})["B1"])
}

func TestHandler_Formulas(t *testing.T) {
	app := newTestApp(newFixture())

	status, body := doJSON(t, app, http.MethodPost, "/api/v1/formulas/parse", formulaRequest{Formula: "=1=A1+2*B2"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "1", body["default"])
	assert.Equal(t, "(A1 + (2 * B2))", body["primary"])
	assert.Equal(t, []interface{}{"A1", "B2"}, body["references"])

	status, body = doJSON(t, app, http.MethodPost, "/api/v1/formulas/parse", formulaRequest{Formula: "=1 +"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Unexpected token EOF", body["error"])

	status, _ = doJSON(t, app, http.MethodPost, "/api/v1/formulas/parse", formulaRequest{Formula: "12"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = doJSON(t, app, http.MethodPost, "/api/v1/formulas/lint", formulaRequest{Formula: "=FOO(A1)"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["valid"])
}

func TestHandler_ProjectLifecycle(t *testing.T) {
	f := newFixture()
	app := newTestApp(f)

	status, body := doJSON(t, app, http.MethodPost, "/api/v1/projects", ProjectRequest{
		Name:      "growth",
		StepCount: 3,
		Cells:     map[string]string{"a1": "=1=A1*RATE", "B1": "=A1+B2"},
		Constants: map[string]string{"rate": "2"},
	})
	require.Equal(t, http.StatusCreated, status)
	id := body["id"].(string)
	assert.Equal(t, "=1=A1*RATE", body["cells"].(map[string]interface{})["A1"])

	status, _ = doJSON(t, app, http.MethodPut, "/api/v1/projects/"+id+"/series/b2", seriesRequest{Values: []string{"10", "20", "30"}})
	require.Equal(t, http.StatusOK, status)

	status, body = doJSON(t, app, http.MethodPost, "/api/v1/projects/"+id+"/runs", nil)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, string(entity.RunStatusCompleted), body["status"])
	runID := body["id"].(string)

	status, body = doJSON(t, app, http.MethodGet, "/api/v1/runs/"+runID, nil)
	require.Equal(t, http.StatusOK, status)
	history := body["history"].(map[string]interface{})
	assert.Equal(t, []interface{}{"1", "2", "4"}, history["A1"])
	assert.Equal(t, []interface{}{"11", "22", "34"}, history["B1"])

	status, body = doJSON(t, app, http.MethodGet, "/api/v1/projects/"+id+"/runs", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["data"], 1)

	status, _ = doJSON(t, app, http.MethodPut, "/api/v1/projects/"+id, ProjectRequest{Name: "renamed", Cells: map[string]string{"A1": "1"}})
	require.Equal(t, http.StatusOK, status)

	status, body = doJSON(t, app, http.MethodGet, "/api/v1/projects/"+id, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "renamed", body["name"])
	assert.Equal(t, float64(4), body["step_count"])

	status, _ = doJSON(t, app, http.MethodDelete, "/api/v1/projects/"+id, nil)
	assert.Equal(t, http.StatusNoContent, status)

	status, body = doJSON(t, app, http.MethodGet, "/api/v1/projects/"+id, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "not found", body["error"])
}

func TestHandler_ProjectValidation(t *testing.T) {
	app := newTestApp(newFixture())

	testCases := []struct {
		name string
		body ProjectRequest
	}{
		{name: "Missing name", body: ProjectRequest{Cells: map[string]string{"A1": "1"}}},
		{name: "Bad cell id", body: ProjectRequest{Name: "x", Cells: map[string]string{"1A": "1"}}},
		{name: "Bad constant", body: ProjectRequest{Name: "x", Constants: map[string]string{"a": "b"}}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			status, _ := doJSON(t, app, http.MethodPost, "/api/v1/projects", tc.body)
			assert.Equal(t, http.StatusBadRequest, status)
		})
	}

	status, _ := doJSON(t, app, http.MethodGet, "/api/v1/projects/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestHandler_ExportRun(t *testing.T) {
	project := counterProject(3)
	f := newFixture(project)
	app := newTestApp(f)

	status, body := doJSON(t, app, http.MethodPost, "/api/v1/projects/"+project.ID.String()+"/runs", nil)
	require.Equal(t, http.StatusCreated, status)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/runs/"+body["id"].(string)+"/export.xlsx", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), ".xlsx")

	status, _ = doJSON(t, app, http.MethodGet, "/api/v1/runs/"+uuid.NewString()+"/export.xlsx", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestHandler_Jobs(t *testing.T) {
	project := counterProject(3)
	f := newFixture(project)
	app := newTestApp(f)

	status, body := doJSON(t, app, http.MethodPost, "/api/v1/jobs/simulate-all", jobRequest{Steps: 50})
	require.Equal(t, http.StatusAccepted, status)
	jobID := body["job_id"].(string)

	status, body = doJSON(t, app, http.MethodGet, "/api/v1/jobs/"+jobID, nil)
	require.Equal(t, http.StatusOK, status)
	job := body["job"].(map[string]interface{})
	assert.Equal(t, string(entity.JobStatusPending), job["status"])
	assert.Equal(t, float64(20), job["metadata"].(map[string]interface{})["steps"])

	status, _ = doJSON(t, app, http.MethodPost, "/api/v1/projects/"+project.ID.String()+"/jobs", nil)
	require.Equal(t, http.StatusAccepted, status)

	status, body = doJSON(t, app, http.MethodGet, "/api/v1/jobs", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["data"], 2)

	status, _ = doJSON(t, app, http.MethodPost, "/api/v1/projects/"+uuid.NewString()+"/jobs", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestHandler_Health(t *testing.T) {
	status, body := doJSON(t, newTestApp(newFixture()), http.MethodGet, "/api/v1/health", nil)

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "healthy", body["status"])
}
