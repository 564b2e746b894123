package handler

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/bus-schedule/internal/models"
	"github.com/noah-isme/bus-schedule/internal/service"
	appErrors "github.com/noah-isme/bus-schedule/pkg/errors"
	"github.com/noah-isme/bus-schedule/pkg/response"
)

type transitService interface {
	CreateBusStop(ctx context.Context, req service.CreateBusStopRequest) (*models.BusStop, error)
	ListBusStops(ctx context.Context) ([]models.BusStop, error)
	GetBusStop(ctx context.Context, id int64) (*models.BusStopDetail, error)
	CreateRoute(ctx context.Context, req service.CreateRouteRequest) (*models.RouteDetail, error)
	GetRoute(ctx context.Context, id int64) (*models.RouteDetail, error)
	ListRoutes(ctx context.Context) ([]models.RouteDetail, error)
	ReverseRoute(ctx context.Context, id int64) (*models.RouteDetail, error)
	CreateBusLine(ctx context.Context, req service.CreateBusLineRequest) (*models.BusLineDetail, error)
	GetBusLine(ctx context.Context, id int64) (*models.BusLineDetail, error)
	ListBusLines(ctx context.Context) ([]models.BusLineDetail, error)
	CreateSchedule(ctx context.Context, req service.CreateScheduleRequest) (*models.Schedule, error)
	ListSchedules(ctx context.Context) ([]models.Schedule, error)
	CreateBus(ctx context.Context, req service.AssignBusRequest) (*models.BusDetail, error)
	GetBus(ctx context.Context, id int64) (*models.BusDetail, error)
	Roster(ctx context.Context) ([]models.BusDetail, bool, error)
	ReassignBus(ctx context.Context, busID int64, req service.AssignBusRequest) (*models.BusDetail, error)
	DeleteBus(ctx context.Context, id int64) error
	DeleteBusesByLineNumber(ctx context.Context, number int) (int, error)
}

type rosterExporter interface {
	Render(ctx context.Context, format string) (*service.RenderedExport, error)
}

// TransitHandler serves the bus network and roster endpoints.
type TransitHandler struct {
	service  transitService
	exporter rosterExporter
}

// NewTransitHandler constructs a transit handler.
func NewTransitHandler(svc transitService, exporter rosterExporter) *TransitHandler {
	return &TransitHandler{service: svc, exporter: exporter}
}

// Routes registers read endpoints on public and mutations on protected.
func (h *TransitHandler) Routes(public, protected gin.IRoutes) {
	public.GET("/bus-stops", h.ListBusStops)
	public.GET("/bus-stops/:id", h.GetBusStop)
	public.GET("/routes", h.ListRoutes)
	public.GET("/routes/:id", h.GetRoute)
	public.GET("/bus-lines", h.ListBusLines)
	public.GET("/bus-lines/:id", h.GetBusLine)
	public.GET("/schedules", h.ListSchedules)
	public.GET("/buses", h.Roster)
	public.GET("/buses/export", h.ExportRoster)
	public.GET("/buses/:id", h.GetBus)

	protected.POST("/bus-stops", h.CreateBusStop)
	protected.POST("/routes", h.CreateRoute)
	protected.POST("/routes/:id/reverse", h.ReverseRoute)
	protected.POST("/bus-lines", h.CreateBusLine)
	protected.POST("/schedules", h.CreateSchedule)
	protected.POST("/buses", h.CreateBus)
	protected.PUT("/buses/:id", h.ReassignBus)
	protected.DELETE("/buses", h.DeleteLineBuses)
	protected.DELETE("/buses/:id", h.DeleteBus)
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "id must be a positive integer"))
		return 0, false
	}
	return id, true
}

func bindJSON(c *gin.Context, dest interface{}) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.Validation(err, "invalid payload"))
		return false
	}
	return true
}
