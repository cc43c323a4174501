package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/martijn/harvestd/internal/api/dto"
	"github.com/martijn/harvestd/internal/api/util"
	"github.com/martijn/harvestd/internal/core/domain"
	"github.com/martijn/harvestd/internal/core/repository"
	"github.com/martijn/harvestd/internal/core/service"
)

const maxRunLimit = 1000

type RunHandler struct {
	runService *service.RunService
}

func NewRunHandler(runService *service.RunService) *RunHandler {
	return &RunHandler{
		runService: runService,
	}
}

// StartRun handles POST /run
func (h *RunHandler) StartRun(c *gin.Context) {
	id, err := h.runService.Start(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.StartRunResponse{RunID: id})
}

// StopRun handles POST /stop
func (h *RunHandler) StopRun(c *gin.Context) {
	stopped := h.runService.Stop(c.Request.Context())
	c.JSON(http.StatusOK, dto.StopRunResponse{Stopped: stopped})
}

// Status handles GET /status
func (h *RunHandler) Status(c *gin.Context) {
	status := h.runService.Status()
	response := dto.StatusResponse{
		Progress:  status.Progress,
		Observers: h.runService.Observers(),
	}
	if status.Active() {
		response.ID = &status.ID
	}
	c.JSON(http.StatusOK, response)
}

// ListRuns handles GET /runs
func (h *RunHandler) ListRuns(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(repository.DefaultRunLimit)))
	if err != nil || limit < 1 || limit > maxRunLimit {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("limit must be between 1 and %d", maxRunLimit))
		return
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		abortWithError(c, http.StatusBadRequest, "offset must be a non-negative integer")
		return
	}

	filter := repository.RunFilter{
		ListFilter: util.ListFilter{
			Limit:  limit,
			Offset: offset,
		},
	}

	// Parse query filters
	if queryStr := c.Query("query"); queryStr != "" {
		filters, err := util.ParseQueryString(queryStr)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, err.Error())
			return
		}

		// Validate field names
		if err := util.ValidateFilterFields(filters, repository.RunFields); err != nil {
			abortWithError(c, http.StatusBadRequest, err.Error())
			return
		}

		filter.Filters = filters
	}

	// Parse order
	if orderStr := c.Query("order"); orderStr != "" {
		orders, err := util.ParseOrderString(orderStr)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, err.Error())
			return
		}

		if err := util.ValidateOrderFields(orders, repository.RunFields); err != nil {
			abortWithError(c, http.StatusBadRequest, err.Error())
			return
		}

		filter.Order = orders
	}

	runs, err := h.runService.ListRuns(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	count, _ := h.runService.CountRuns(c.Request.Context(), filter)

	response := dto.RunListResponse{
		Items: make([]dto.RunResponse, len(runs)),
		Pagination: dto.PaginationInfo{
			Total:  count,
			Limit:  limit,
			Offset: offset,
		},
	}

	for i, run := range runs {
		response.Items[i] = toRunResponse(run, false)
	}

	c.JSON(http.StatusOK, response)
}

// GetRun handles GET /runs/:id
func (h *RunHandler) GetRun(c *gin.Context) {
	id := c.Param("id")

	run, err := h.runService.GetRun(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toRunResponse(run, true))
}

// GetRunLog handles GET /runs/:id/log
func (h *RunHandler) GetRunLog(c *gin.Context) {
	output, err := h.runService.GetLog(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(output))
}

// GetRunArtifact handles GET /runs/:id/artifact
func (h *RunHandler) GetRunArtifact(c *gin.Context) {
	data, err := h.runService.OpenArtifact(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json", data)
}

func toRunResponse(run *domain.Run, withLog bool) dto.RunResponse {
	response := dto.RunResponse{
		ID:       run.ID,
		Started:  run.StartedAt,
		Finished: run.FinishedAt,
		ExitCode: run.ExitCode,
		Status:   string(run.Status()),
	}
	if withLog {
		response.Log = &run.Log
	}
	return response
}
