package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/martijn/harvestd/internal/adapter/system"
	"github.com/martijn/harvestd/internal/api/dto"
	"github.com/martijn/harvestd/internal/api/middleware"
	"github.com/martijn/harvestd/internal/core/domain"
	"github.com/martijn/harvestd/internal/core/repository"
	"github.com/martijn/harvestd/internal/core/service"
	"github.com/martijn/harvestd/internal/infrastructure/file"
	"github.com/martijn/harvestd/internal/infrastructure/sqlite"
	"go.uber.org/zap"
)

// testEnv holds all test dependencies
type testEnv struct {
	db              *sqlite.DB
	router          *gin.Engine
	runRepo         repository.RunRepository
	runService      *service.RunService
	scheduleService *service.ScheduleService
	artifactsDir    string
}

// setupTestEnv creates a test environment with in-memory SQLite database.
// script is the collector run by POST /run.
func setupTestEnv(t *testing.T, script string) *testEnv {
	t.Helper()
	return setupTestEnvWithCommand(t, []string{"/bin/sh", "-c", script})
}

// setupTestEnvWithCommand is setupTestEnv with a raw collector command line
func setupTestEnvWithCommand(t *testing.T, command []string) *testEnv {
	t.Helper()

	// Use in-memory SQLite database
	db, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	fs := system.NewAdapter()
	dataDir := t.TempDir()
	artifactsDir := filepath.Join(dataDir, "artifacts")
	log := zap.NewNop().Sugar()

	// Create repositories
	runRepo := sqlite.NewRunRepository(db)
	artifacts := file.NewArtifactStore(filepath.Join(dataDir, "found_tenders.json"), artifactsDir, fs)
	scheduleRepo := file.NewScheduleStore(filepath.Join(dataDir, "schedule.cron"), fs)
	configRepo := file.NewCollectorConfigStore(filepath.Join(dataDir, "config.json"), fs)

	// Create services
	runService := service.NewRunService(runRepo, artifacts, service.CollectorOptions{
		Command:   command,
		Workdir:   dataDir,
		StopGrace: 2 * time.Second,
	}, log)
	scheduleService := service.NewScheduleService(scheduleRepo, runService, service.ScheduleOptions{}, log)
	if err := scheduleService.Load(context.Background()); err != nil {
		t.Fatalf("failed to load schedule: %v", err)
	}
	configService := service.NewConfigService(configRepo, log)

	// Create handlers
	runHandler := NewRunHandler(runService)
	scheduleHandler := NewScheduleHandler(scheduleService)
	configHandler := NewConfigHandler(configService)
	streamHandler := NewStreamHandler(runService, 50*time.Millisecond, middleware.NewOriginPolicy(nil), log)

	// Setup gin router in test mode
	gin.SetMode(gin.TestMode)
	router := gin.New()

	// Register routes without auth middleware
	router.POST("/run", runHandler.StartRun)
	router.POST("/stop", runHandler.StopRun)
	router.GET("/status", runHandler.Status)
	router.GET("/ws", streamHandler.Stream)
	router.GET("/runs", runHandler.ListRuns)
	router.GET("/runs/:id", runHandler.GetRun)
	router.GET("/runs/:id/log", runHandler.GetRunLog)
	router.GET("/runs/:id/artifact", runHandler.GetRunArtifact)
	router.GET("/schedule", scheduleHandler.GetSchedule)
	router.PUT("/schedule", scheduleHandler.UpdateSchedule)
	router.GET("/next_run", scheduleHandler.NextRun)
	router.GET("/config", configHandler.GetConfig)
	router.PUT("/config", configHandler.UpdateConfig)
	router.GET("/keywords", configHandler.GetKeywords)
	router.PUT("/keywords", configHandler.UpdateKeywords)

	env := &testEnv{
		db:              db,
		router:          router,
		runRepo:         runRepo,
		runService:      runService,
		scheduleService: scheduleService,
		artifactsDir:    artifactsDir,
	}
	t.Cleanup(env.cleanup)
	return env
}

// cleanup stops any active run and closes the test database
func (env *testEnv) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = env.runService.Shutdown(ctx)
	if env.db != nil {
		env.db.Close()
	}
}

// seedTestData populates the run history with five finished runs and one
// active-looking row
func (env *testEnv) seedTestData(t *testing.T) {
	t.Helper()

	// Base time: Nov 1, 2025
	baseTime := time.Date(2025, 11, 1, 2, 0, 0, 0, time.UTC)

	runs := []struct {
		id       string
		started  time.Time
		exitCode *int
	}{
		{"run-001", baseTime, ptr(0)},
		{"run-002", baseTime.Add(24 * time.Hour), ptr(0)},
		{"run-003", baseTime.Add(2 * 24 * time.Hour), ptr(1)},
		{"run-004", baseTime.Add(3 * 24 * time.Hour), ptr(0)},
		{"run-005", baseTime.Add(4 * 24 * time.Hour), ptr(-9)},
		{"run-006", baseTime.Add(5 * 24 * time.Hour), nil},
	}

	for _, r := range runs {
		run := &domain.Run{ID: r.id, StartedAt: r.started, ExitCode: r.exitCode, Log: "output of " + r.id + "\n"}
		if r.exitCode != nil {
			run.FinishedAt = ptr(r.started.Add(10 * time.Minute))
		}
		if err := env.runRepo.Save(context.Background(), run); err != nil {
			t.Fatalf("failed to seed run %s: %v", r.id, err)
		}
	}
}

// makeRequest performs a GET request and returns the response
func (env *testEnv) makeRequest(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	return env.doRequest(t, http.MethodGet, path, nil)
}

// doRequest performs a request with an optional JSON body
func (env *testEnv) doRequest(t *testing.T, method, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()

	req, err := http.NewRequest(method, path, bytes.NewReader(body))
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

// waitForRun blocks until the active run is finalized
func (env *testEnv) waitForRun(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := env.runService.Wait(ctx); err != nil {
		t.Fatalf("run did not finish: %v", err)
	}
}

// parseJSON parses the response body into v
func parseJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()

	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to parse response: %v\nBody: %s", err, w.Body.String())
	}
}

// parseRunListResponse parses the response body into RunListResponse
func parseRunListResponse(t *testing.T, w *httptest.ResponseRecorder) dto.RunListResponse {
	t.Helper()

	var resp dto.RunListResponse
	parseJSON(t, w, &resp)
	return resp
}

// parseErrorResponse parses the response body into ErrorResponse
func parseErrorResponse(t *testing.T, w *httptest.ResponseRecorder) dto.ErrorResponse {
	t.Helper()

	var resp dto.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, w.Body.String())
	}
	return resp
}

// ptr is a helper to create a pointer to a value
func ptr[T any](v T) *T {
	return &v
}
