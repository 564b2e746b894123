package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/bus-schedule/internal/models"
	"github.com/noah-isme/bus-schedule/pkg/database"
)

// BusStopRepository provides persistence for bus stops.
type BusStopRepository struct {
	db *database.DB
}

// NewBusStopRepository creates a new bus stop repository.
func NewBusStopRepository(db *database.DB) *BusStopRepository {
	return &BusStopRepository{db: db}
}

// Create stores a stop and returns its assigned id.
func (r *BusStopRepository) Create(ctx context.Context, stop *models.BusStop) (int64, error) {
	const query = `INSERT INTO bus_stops (code) VALUES (?) RETURNING id`
	if err := r.db.GetContext(ctx, &stop.ID, query, stop.Code); err != nil {
		return 0, fmt.Errorf("create bus stop: %w", err)
	}
	return stop.ID, nil
}

// FindByID loads a stop by id.
func (r *BusStopRepository) FindByID(ctx context.Context, id int64) (*models.BusStop, error) {
	const query = `SELECT id, code FROM bus_stops WHERE id = ?`
	var stop models.BusStop
	if err := r.db.GetContext(ctx, &stop, query, id); err != nil {
		return nil, err
	}
	return &stop, nil
}

// List returns every stop in creation order.
func (r *BusStopRepository) List(ctx context.Context) ([]models.BusStop, error) {
	const query = `SELECT id, code FROM bus_stops ORDER BY id ASC`
	var stops []models.BusStop
	if err := r.db.SelectContext(ctx, &stops, query); err != nil {
		return nil, fmt.Errorf("list bus stops: %w", err)
	}
	return stops, nil
}

// ListByIDs returns the stops matching ids in creation order. Unknown ids are skipped.
func (r *BusStopRepository) ListByIDs(ctx context.Context, ids []int64) ([]models.BusStop, error) {
	if len(ids) == 0 {
		return []models.BusStop{}, nil
	}
	query, args, err := sqlx.In(`SELECT id, code FROM bus_stops WHERE id IN (?) ORDER BY id ASC`, ids)
	if err != nil {
		return nil, fmt.Errorf("build bus stop lookup: %w", err)
	}
	var stops []models.BusStop
	if err := r.db.SelectContext(ctx, &stops, query, args...); err != nil {
		return nil, fmt.Errorf("list bus stops by id: %w", err)
	}
	return stops, nil
}
