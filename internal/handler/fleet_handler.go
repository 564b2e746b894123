package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/bus-schedule/internal/middleware"
	"github.com/noah-isme/bus-schedule/internal/service"
	appErrors "github.com/noah-isme/bus-schedule/pkg/errors"
	"github.com/noah-isme/bus-schedule/pkg/response"
)

// ListSchedules godoc
// @Summary List schedules
// @Tags Schedules
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /schedules [get]
func (h *TransitHandler) ListSchedules(c *gin.Context) {
	schedules, err := h.service.ListSchedules(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedules)
}

// CreateSchedule godoc
// @Summary Create schedule
// @Tags Schedules
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.CreateScheduleRequest true "Arrival time as HH:MM:SS"
// @Success 201 {object} response.Envelope
// @Router /schedules [post]
func (h *TransitHandler) CreateSchedule(c *gin.Context) {
	var req service.CreateScheduleRequest
	if !bindJSON(c, &req) {
		return
	}
	schedule, err := h.service.CreateSchedule(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, schedule)
}

// Roster godoc
// @Summary List every bus with arrival time and line number
// @Tags Buses
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /buses [get]
func (h *TransitHandler) Roster(c *gin.Context) {
	roster, hit, err := h.service.Roster(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, roster, middleware.ExtractMeta(c))
}

// GetBus godoc
// @Summary Get bus with schedule and line
// @Tags Buses
// @Produce json
// @Param id path int true "Bus ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /buses/{id} [get]
func (h *TransitHandler) GetBus(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	bus, err := h.service.GetBus(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, bus)
}

// CreateBus godoc
// @Summary Put a bus on a line at a schedule
// @Tags Buses
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.AssignBusRequest true "Bus payload"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /buses [post]
func (h *TransitHandler) CreateBus(c *gin.Context) {
	var req service.AssignBusRequest
	if !bindJSON(c, &req) {
		return
	}
	bus, err := h.service.CreateBus(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, bus)
}

// ReassignBus godoc
// @Summary Move a bus to another schedule and line
// @Tags Buses
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Bus ID"
// @Param payload body service.AssignBusRequest true "Assignment payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /buses/{id} [put]
func (h *TransitHandler) ReassignBus(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req service.AssignBusRequest
	if !bindJSON(c, &req) {
		return
	}
	bus, err := h.service.ReassignBus(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, bus)
}

// DeleteBus godoc
// @Summary Delete a bus
// @Tags Buses
// @Security BearerAuth
// @Param id path int true "Bus ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /buses/{id} [delete]
func (h *TransitHandler) DeleteBus(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.service.DeleteBus(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// DeleteLineBuses godoc
// @Summary Delete every bus on lines with the given number
// @Tags Buses
// @Produce json
// @Security BearerAuth
// @Param line_number query int true "Bus line number"
// @Success 200 {object} response.Envelope
// @Router /buses [delete]
func (h *TransitHandler) DeleteLineBuses(c *gin.Context) {
	number, err := strconv.Atoi(c.Query("line_number"))
	if err != nil || number < 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "line_number must be a non-negative integer"))
		return
	}
	deleted, err := h.service.DeleteBusesByLineNumber(c.Request.Context(), number)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"line_number": number, "deleted": deleted})
}

// ExportRoster godoc
// @Summary Download the roster as CSV or PDF
// @Tags Buses
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} file
// @Failure 404 {object} response.Envelope
// @Router /buses/export [get]
func (h *TransitHandler) ExportRoster(c *gin.Context) {
	if h.exporter == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "roster export is not configured"))
		return
	}
	rendered, err := h.exporter.Render(c.Request.Context(), c.DefaultQuery("format", "csv"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, rendered.Filename, rendered.ContentType, rendered.Content)
}

