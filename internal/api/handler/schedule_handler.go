package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/martijn/harvestd/internal/api/dto"
	"github.com/martijn/harvestd/internal/core/service"
)

type ScheduleHandler struct {
	scheduleService *service.ScheduleService
}

func NewScheduleHandler(scheduleService *service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{
		scheduleService: scheduleService,
	}
}

// GetSchedule handles GET /schedule
func (h *ScheduleHandler) GetSchedule(c *gin.Context) {
	c.JSON(http.StatusOK, h.toResponse())
}

// UpdateSchedule handles PUT /schedule
func (h *ScheduleHandler) UpdateSchedule(c *gin.Context) {
	var req dto.UpdateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.scheduleService.Set(c.Request.Context(), req.Expression); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, h.toResponse())
}

// NextRun handles GET /next_run
func (h *ScheduleHandler) NextRun(c *gin.Context) {
	next, err := h.scheduleService.NextFire(time.Now())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NextRunResponse{
		Expression: h.scheduleService.Get(),
		Next:       next,
	})
}

func (h *ScheduleHandler) toResponse() dto.ScheduleResponse {
	schedule := h.scheduleService.Schedule(time.Now())
	return dto.ScheduleResponse{
		Expression: schedule.Expression,
		Timezone:   schedule.Timezone,
		Enabled:    schedule.Enabled,
		Next:       schedule.Next,
	}
}
