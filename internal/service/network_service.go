package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/bus-schedule/internal/models"
	appErrors "github.com/noah-isme/bus-schedule/pkg/errors"
)

// CreateBusStop stores a new stop.
func (s *TransitService) CreateBusStop(ctx context.Context, req CreateBusStopRequest) (*models.BusStop, error) {
	if err := s.validate(req, "invalid bus stop payload"); err != nil {
		return nil, err
	}
	stop := &models.BusStop{Code: req.Code}
	if _, err := s.stops.Create(ctx, stop); err != nil {
		return nil, appErrors.Internal(err, "failed to create bus stop")
	}
	s.mutated(ctx, "bus_stop", "create")
	return stop, nil
}

// ListBusStops returns every stop in creation order.
func (s *TransitService) ListBusStops(ctx context.Context) ([]models.BusStop, error) {
	stops, err := s.stops.List(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list bus stops")
	}
	return stops, nil
}

// GetBusStop returns a stop and the routes serving it.
func (s *TransitService) GetBusStop(ctx context.Context, id int64) (*models.BusStopDetail, error) {
	stop, err := s.stops.FindByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "bus stop")
	}
	routes, err := s.routes.RoutesForStop(ctx, id)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load routes for bus stop")
	}
	return &models.BusStopDetail{BusStop: *stop, Routes: routes}, nil
}

// CreateRoute stores a route linking the stops in the order given.
func (s *TransitService) CreateRoute(ctx context.Context, req CreateRouteRequest) (*models.RouteDetail, error) {
	if err := s.validate(req, "invalid route payload"); err != nil {
		return nil, err
	}
	known, err := s.stops.ListByIDs(ctx, req.StopIDs)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load bus stops")
	}
	if len(known) != len(req.StopIDs) {
		return nil, appErrors.NotFound("bus stop")
	}

	route := &models.Route{Name: req.Name}
	if _, err := s.routes.CreateWithStops(ctx, route, req.StopIDs); err != nil {
		return nil, appErrors.Internal(err, "failed to create route")
	}
	s.mutated(ctx, "route", "create")
	return s.routeDetail(ctx, route)
}

// GetRoute returns a route with its stops in travel order.
func (s *TransitService) GetRoute(ctx context.Context, id int64) (*models.RouteDetail, error) {
	route, err := s.routes.FindByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "route")
	}
	return s.routeDetail(ctx, route)
}

// ListRoutes returns every route with its stops in travel order.
func (s *TransitService) ListRoutes(ctx context.Context) ([]models.RouteDetail, error) {
	routes, err := s.routes.List(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list routes")
	}
	details := make([]models.RouteDetail, 0, len(routes))
	for i := range routes {
		detail, err := s.routeDetail(ctx, &routes[i])
		if err != nil {
			return nil, err
		}
		details = append(details, *detail)
	}
	return details, nil
}

// ReverseRoute creates the return route "<name> R" visiting the same stops backwards.
func (s *TransitService) ReverseRoute(ctx context.Context, id int64) (*models.RouteDetail, error) {
	forward, err := s.GetRoute(ctx, id)
	if err != nil {
		return nil, err
	}
	stopIDs := make([]int64, len(forward.Stops))
	for i, stop := range forward.Stops {
		stopIDs[len(stopIDs)-1-i] = stop.StopID
	}
	return s.CreateRoute(ctx, CreateRouteRequest{Name: forward.Name + " R", StopIDs: stopIDs})
}

func (s *TransitService) routeDetail(ctx context.Context, route *models.Route) (*models.RouteDetail, error) {
	stops, err := s.routes.StopsForRoute(ctx, route.ID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load route stops")
	}
	detail := &models.RouteDetail{Route: *route, Stops: stops}
	if lineID, ok := route.LineID(); ok {
		detail.BusLineID = &lineID
	}
	return detail, nil
}

// CreateBusLine stores a line and hands it ownership of the given routes.
func (s *TransitService) CreateBusLine(ctx context.Context, req CreateBusLineRequest) (*models.BusLineDetail, error) {
	if err := s.validate(req, "invalid bus line payload"); err != nil {
		return nil, err
	}
	for _, routeID := range req.RouteIDs {
		route, err := s.routes.FindByID(ctx, routeID)
		if err != nil {
			return nil, lookupErr(err, "route")
		}
		if owner, owned := route.LineID(); owned {
			s.logger.Debug("route already owned", zap.Int64("route_id", routeID), zap.Int64("bus_line_id", owner))
			return nil, appErrors.Clone(appErrors.ErrConflict, "route already belongs to a bus line")
		}
	}

	line := &models.BusLine{Number: req.Number}
	if _, err := s.lines.Create(ctx, line); err != nil {
		return nil, appErrors.Internal(err, "failed to create bus line")
	}
	for _, routeID := range req.RouteIDs {
		if err := s.routes.AssignLine(ctx, routeID, line.ID); err != nil {
			return nil, appErrors.Internal(err, "failed to assign route to bus line")
		}
	}
	s.mutated(ctx, "bus_line", "create")
	return s.lineDetail(ctx, line)
}

// GetBusLine returns a line with its routes and buses.
func (s *TransitService) GetBusLine(ctx context.Context, id int64) (*models.BusLineDetail, error) {
	line, err := s.lines.FindByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "bus line")
	}
	return s.lineDetail(ctx, line)
}

// ListBusLines returns every line with its routes and buses.
func (s *TransitService) ListBusLines(ctx context.Context) ([]models.BusLineDetail, error) {
	lines, err := s.lines.List(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list bus lines")
	}
	details := make([]models.BusLineDetail, 0, len(lines))
	for i := range lines {
		detail, err := s.lineDetail(ctx, &lines[i])
		if err != nil {
			return nil, err
		}
		details = append(details, *detail)
	}
	return details, nil
}

// LatestBusLine returns the most recently created line.
func (s *TransitService) LatestBusLine(ctx context.Context) (*models.BusLine, error) {
	line, err := s.lines.Last(ctx)
	if err != nil {
		return nil, lookupErr(err, "bus line")
	}
	return line, nil
}

func (s *TransitService) lineDetail(ctx context.Context, line *models.BusLine) (*models.BusLineDetail, error) {
	routes, err := s.routes.ListByLine(ctx, line.ID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load bus line routes")
	}
	buses, err := s.buses.ListDetailsByLine(ctx, line.ID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load bus line buses")
	}
	return &models.BusLineDetail{BusLine: *line, Routes: routes, Buses: buses}, nil
}

func (s *TransitService) requireBusLine(ctx context.Context, id int64) error {
	if _, err := s.lines.FindByID(ctx, id); err != nil {
		return lookupErr(err, "bus line")
	}
	return nil
}

func (s *TransitService) requireSchedule(ctx context.Context, id int64) error {
	if _, err := s.schedules.FindByID(ctx, id); err != nil {
		return lookupErr(err, "schedule")
	}
	return nil
}

func isNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows) || errors.Is(err, appErrors.ErrNotFound)
}
