package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/bus-schedule/internal/service"
	"github.com/noah-isme/bus-schedule/pkg/response"
)

// ListBusStops godoc
// @Summary List bus stops
// @Tags BusStops
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /bus-stops [get]
func (h *TransitHandler) ListBusStops(c *gin.Context) {
	stops, err := h.service.ListBusStops(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stops)
}

// GetBusStop godoc
// @Summary Get bus stop with the routes serving it
// @Tags BusStops
// @Produce json
// @Param id path int true "Bus stop ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /bus-stops/{id} [get]
func (h *TransitHandler) GetBusStop(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	stop, err := h.service.GetBusStop(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stop)
}

// CreateBusStop godoc
// @Summary Create bus stop
// @Tags BusStops
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.CreateBusStopRequest true "Bus stop payload"
// @Success 201 {object} response.Envelope
// @Router /bus-stops [post]
func (h *TransitHandler) CreateBusStop(c *gin.Context) {
	var req service.CreateBusStopRequest
	if !bindJSON(c, &req) {
		return
	}
	stop, err := h.service.CreateBusStop(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, stop)
}

// ListRoutes godoc
// @Summary List routes with their ordered stops
// @Tags Routes
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /routes [get]
func (h *TransitHandler) ListRoutes(c *gin.Context) {
	routes, err := h.service.ListRoutes(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, routes)
}

// GetRoute godoc
// @Summary Get route with its ordered stops
// @Tags Routes
// @Produce json
// @Param id path int true "Route ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /routes/{id} [get]
func (h *TransitHandler) GetRoute(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	route, err := h.service.GetRoute(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, route)
}

// CreateRoute godoc
// @Summary Create route linking stops in the given order
// @Tags Routes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.CreateRouteRequest true "Route payload"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /routes [post]
func (h *TransitHandler) CreateRoute(c *gin.Context) {
	var req service.CreateRouteRequest
	if !bindJSON(c, &req) {
		return
	}
	route, err := h.service.CreateRoute(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, route)
}

// ReverseRoute godoc
// @Summary Create the return route of an existing route
// @Tags Routes
// @Produce json
// @Security BearerAuth
// @Param id path int true "Route ID"
// @Success 201 {object} response.Envelope
// @Router /routes/{id}/reverse [post]
func (h *TransitHandler) ReverseRoute(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	route, err := h.service.ReverseRoute(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, route)
}

// ListBusLines godoc
// @Summary List bus lines with routes and buses
// @Tags BusLines
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /bus-lines [get]
func (h *TransitHandler) ListBusLines(c *gin.Context) {
	lines, err := h.service.ListBusLines(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lines)
}

// GetBusLine godoc
// @Summary Get bus line with routes and buses
// @Tags BusLines
// @Produce json
// @Param id path int true "Bus line ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /bus-lines/{id} [get]
func (h *TransitHandler) GetBusLine(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	line, err := h.service.GetBusLine(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, line)
}

// CreateBusLine godoc
// @Summary Create bus line owning the given routes
// @Tags BusLines
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.CreateBusLineRequest true "Bus line payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /bus-lines [post]
func (h *TransitHandler) CreateBusLine(c *gin.Context) {
	var req service.CreateBusLineRequest
	if !bindJSON(c, &req) {
		return
	}
	line, err := h.service.CreateBusLine(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, line)
}
