package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/noah-isme/bus-schedule/internal/models"
	"github.com/noah-isme/bus-schedule/pkg/database"
)

// RouteRepository persists routes and their ordered stop links.
type RouteRepository struct {
	db *database.DB
}

// NewRouteRepository creates a new route repository.
func NewRouteRepository(db *database.DB) *RouteRepository {
	return &RouteRepository{db: db}
}

const (
	insertRouteQuery = `INSERT INTO routes (name, bus_line_id) VALUES (?, ?) RETURNING id`
	linkStopQuery    = `INSERT INTO bus_stops_routes (route_id, bus_stop_id, position) VALUES (?, ?, ?)`
)

// routeWriter is satisfied by both the store handle and a transaction, so
// single statements and CreateWithStops share one code path.
type routeWriter interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func createRoute(ctx context.Context, w routeWriter, route *models.Route) error {
	if err := w.GetContext(ctx, &route.ID, insertRouteQuery, route.Name, route.BusLineID); err != nil {
		return fmt.Errorf("create route: %w", err)
	}
	return nil
}

func linkStop(ctx context.Context, w routeWriter, routeID, stopID int64, position int) error {
	if _, err := w.ExecContext(ctx, linkStopQuery, routeID, stopID, position); err != nil {
		return fmt.Errorf("link stop %d to route %d: %w", stopID, routeID, err)
	}
	return nil
}

// Create stores a route without stops and returns its id.
func (r *RouteRepository) Create(ctx context.Context, route *models.Route) (int64, error) {
	if err := createRoute(ctx, r.db, route); err != nil {
		return 0, err
	}
	return route.ID, nil
}

// CreateWithStops stores a route and links stopIDs in the given order within
// one transaction. It runs the same statements as Create followed by LinkStop
// per stop.
func (r *RouteRepository) CreateWithStops(ctx context.Context, route *models.Route, stopIDs []int64) (id int64, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin create route: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = createRoute(ctx, tx, route); err != nil {
		return 0, err
	}
	for position, stopID := range stopIDs {
		if err = linkStop(ctx, tx, route.ID, stopID, position); err != nil {
			return 0, err
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit create route: %w", err)
	}
	return route.ID, nil
}

// LinkStop records stopID at position on routeID outside a transaction.
func (r *RouteRepository) LinkStop(ctx context.Context, routeID, stopID int64, position int) error {
	return linkStop(ctx, r.db, routeID, stopID, position)
}

// StopsForRoute returns the route's stops ordered by position.
func (r *RouteRepository) StopsForRoute(ctx context.Context, routeID int64) ([]models.RouteStop, error) {
	const query = `SELECT bsr.route_id AS route_id, bsr.bus_stop_id AS bus_stop_id, s.code AS code, bsr.position AS position
        FROM bus_stops_routes bsr JOIN bus_stops s ON s.id = bsr.bus_stop_id
        WHERE bsr.route_id = ? ORDER BY bsr.position ASC`
	var stops []models.RouteStop
	if err := r.db.SelectContext(ctx, &stops, query, routeID); err != nil {
		return nil, fmt.Errorf("list stops for route: %w", err)
	}
	return stops, nil
}

// RoutesForStop returns every route passing through stopID.
func (r *RouteRepository) RoutesForStop(ctx context.Context, stopID int64) ([]models.Route, error) {
	const query = `SELECT r.id AS id, r.name AS name, r.bus_line_id AS bus_line_id
        FROM routes r JOIN bus_stops_routes bsr ON bsr.route_id = r.id
        WHERE bsr.bus_stop_id = ? ORDER BY r.id ASC`
	var routes []models.Route
	if err := r.db.SelectContext(ctx, &routes, query, stopID); err != nil {
		return nil, fmt.Errorf("list routes for stop: %w", err)
	}
	return routes, nil
}

// FindByID loads a route by id.
func (r *RouteRepository) FindByID(ctx context.Context, id int64) (*models.Route, error) {
	const query = `SELECT id, name, bus_line_id FROM routes WHERE id = ?`
	var route models.Route
	if err := r.db.GetContext(ctx, &route, query, id); err != nil {
		return nil, err
	}
	return &route, nil
}

// List returns every route in creation order.
func (r *RouteRepository) List(ctx context.Context) ([]models.Route, error) {
	const query = `SELECT id, name, bus_line_id FROM routes ORDER BY id ASC`
	var routes []models.Route
	if err := r.db.SelectContext(ctx, &routes, query); err != nil {
		return nil, fmt.Errorf("list routes: %w", err)
	}
	return routes, nil
}

// ListByLine returns the routes owned by a bus line.
func (r *RouteRepository) ListByLine(ctx context.Context, lineID int64) ([]models.Route, error) {
	const query = `SELECT id, name, bus_line_id FROM routes WHERE bus_line_id = ? ORDER BY id ASC`
	var routes []models.Route
	if err := r.db.SelectContext(ctx, &routes, query, lineID); err != nil {
		return nil, fmt.Errorf("list routes by line: %w", err)
	}
	return routes, nil
}

// AssignLine sets the owning line of a route.
func (r *RouteRepository) AssignLine(ctx context.Context, routeID, lineID int64) error {
	const query = `UPDATE routes SET bus_line_id = ? WHERE id = ?`
	result, err := r.db.ExecContext(ctx, query, lineID, routeID)
	if err != nil {
		return fmt.Errorf("assign route line: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("route rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
