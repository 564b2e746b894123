package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/bus-schedule/internal/models"
	appErrors "github.com/noah-isme/bus-schedule/pkg/errors"
)

type busStopRepository interface {
	Create(ctx context.Context, stop *models.BusStop) (int64, error)
	FindByID(ctx context.Context, id int64) (*models.BusStop, error)
	List(ctx context.Context) ([]models.BusStop, error)
	ListByIDs(ctx context.Context, ids []int64) ([]models.BusStop, error)
}

type routeRepository interface {
	CreateWithStops(ctx context.Context, route *models.Route, stopIDs []int64) (int64, error)
	FindByID(ctx context.Context, id int64) (*models.Route, error)
	List(ctx context.Context) ([]models.Route, error)
	ListByLine(ctx context.Context, lineID int64) ([]models.Route, error)
	AssignLine(ctx context.Context, routeID, lineID int64) error
	StopsForRoute(ctx context.Context, routeID int64) ([]models.RouteStop, error)
	RoutesForStop(ctx context.Context, stopID int64) ([]models.Route, error)
}

type busLineRepository interface {
	Create(ctx context.Context, line *models.BusLine) (int64, error)
	FindByID(ctx context.Context, id int64) (*models.BusLine, error)
	List(ctx context.Context) ([]models.BusLine, error)
	Last(ctx context.Context) (*models.BusLine, error)
}

type scheduleRepository interface {
	Create(ctx context.Context, schedule *models.Schedule) (int64, error)
	FindByID(ctx context.Context, id int64) (*models.Schedule, error)
	List(ctx context.Context) ([]models.Schedule, error)
	Last(ctx context.Context) (*models.Schedule, error)
}

type busRepository interface {
	Create(ctx context.Context, bus *models.Bus) (int64, error)
	FindByID(ctx context.Context, id int64) (*models.Bus, error)
	FindDetail(ctx context.Context, id int64) (*models.BusDetail, error)
	First(ctx context.Context) (*models.Bus, error)
	ListDetails(ctx context.Context) ([]models.BusDetail, error)
	ListDetailsByLine(ctx context.Context, lineID int64) ([]models.BusDetail, error)
	ListByLineNumber(ctx context.Context, number int) ([]models.Bus, error)
	Update(ctx context.Context, bus *models.Bus) error
	Delete(ctx context.Context, id int64) error
}

// TransitRepositories groups the stores backing the transit service.
type TransitRepositories struct {
	Stops     busStopRepository
	Routes    routeRepository
	Lines     busLineRepository
	Schedules scheduleRepository
	Buses     busRepository
}

// CreateBusStopRequest captures a new stop.
type CreateBusStopRequest struct {
	Code string `json:"code" validate:"required,max=32"`
}

// CreateRouteRequest captures a new route and its stops in travel order.
type CreateRouteRequest struct {
	Name    string  `json:"name" validate:"required,max=64"`
	StopIDs []int64 `json:"stop_ids" validate:"required,min=1,unique,dive,gt=0"`
}

// CreateBusLineRequest captures a new line and the routes it takes over.
type CreateBusLineRequest struct {
	Number   int     `json:"number" validate:"min=0"`
	RouteIDs []int64 `json:"route_ids" validate:"unique,dive,gt=0"`
}

// CreateScheduleRequest captures a new arrival time.
type CreateScheduleRequest struct {
	ArrivalTime models.TimeOfDay `json:"arrival_time"`
}

// AssignBusRequest references the schedule and line a bus runs on.
type AssignBusRequest struct {
	ScheduleID int64 `json:"schedule_id" validate:"required,gt=0"`
	BusLineID  int64 `json:"bus_line_id" validate:"required,gt=0"`
}

const (
	rosterCacheKey     = "roster:all"
	rosterCachePattern = "roster:*"
)

// TransitService owns validation and referential integrity for the transit network.
type TransitService struct {
	stops     busStopRepository
	routes    routeRepository
	lines     busLineRepository
	schedules scheduleRepository
	buses     busRepository
	cache     *CacheService
	metrics   *MetricsService
	rosterTTL time.Duration
	validator *validator.Validate
	logger    *zap.Logger
}

// TransitServiceOption customises optional collaborators.
type TransitServiceOption func(*TransitService)

// WithRosterCache serves the roster from cache for ttl.
func WithRosterCache(cache *CacheService, ttl time.Duration) TransitServiceOption {
	return func(s *TransitService) {
		s.cache = cache
		s.rosterTTL = ttl
	}
}

// WithMetrics counts mutations per entity.
func WithMetrics(metrics *MetricsService) TransitServiceOption {
	return func(s *TransitService) {
		s.metrics = metrics
	}
}

// NewTransitService builds the service.
func NewTransitService(repos TransitRepositories, validate *validator.Validate, logger *zap.Logger, opts ...TransitServiceOption) *TransitService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &TransitService{
		stops:     repos.Stops,
		routes:    repos.Routes,
		lines:     repos.Lines,
		schedules: repos.Schedules,
		buses:     repos.Buses,
		validator: validate,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

func (s *TransitService) validate(payload interface{}, message string) error {
	if err := s.validator.Struct(payload); err != nil {
		return appErrors.Validation(err, message)
	}
	return nil
}

// lookupErr maps a missing row to NOT_FOUND and anything else to INTERNAL_ERROR.
func lookupErr(err error, entity string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.NotFound(entity)
	}
	return appErrors.Internal(err, "failed to load "+entity)
}

func (s *TransitService) mutated(ctx context.Context, entity, op string) {
	s.metrics.RecordMutation(entity, op)
	if entity == "bus_stop" || entity == "route" {
		return
	}
	if err := s.cache.Invalidate(ctx, rosterCachePattern); err != nil {
		s.logger.Warn("roster cache not invalidated", zap.String("entity", entity), zap.Error(err))
	}
}
