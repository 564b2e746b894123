package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/noah-isme/bus-schedule/internal/models"
	"github.com/noah-isme/bus-schedule/pkg/database"
)

// BusRepository persists bus assignments.
type BusRepository struct {
	db *database.DB
}

// NewBusRepository creates a new bus repository.
func NewBusRepository(db *database.DB) *BusRepository {
	return &BusRepository{db: db}
}

const busDetailSelect = `SELECT b.id AS id, b.schedule_id AS schedule_id, s.arrival_time AS arrival_time, b.bus_line_id AS bus_line_id, l.number AS line_number
        FROM buses b JOIN schedules s ON s.id = b.schedule_id JOIN bus_lines l ON l.id = b.bus_line_id`

// Create stores a bus and returns its id.
func (r *BusRepository) Create(ctx context.Context, bus *models.Bus) (int64, error) {
	const query = `INSERT INTO buses (schedule_id, bus_line_id) VALUES (?, ?) RETURNING id`
	if err := r.db.GetContext(ctx, &bus.ID, query, bus.ScheduleID, bus.BusLineID); err != nil {
		return 0, fmt.Errorf("create bus: %w", err)
	}
	return bus.ID, nil
}

// FindByID loads a bus by id.
func (r *BusRepository) FindByID(ctx context.Context, id int64) (*models.Bus, error) {
	const query = `SELECT id, schedule_id, bus_line_id FROM buses WHERE id = ?`
	var bus models.Bus
	if err := r.db.GetContext(ctx, &bus, query, id); err != nil {
		return nil, err
	}
	return &bus, nil
}

// FindDetail loads a bus with its schedule and line.
func (r *BusRepository) FindDetail(ctx context.Context, id int64) (*models.BusDetail, error) {
	query := busDetailSelect + ` WHERE b.id = ?`
	var detail models.BusDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// First returns the earliest created bus.
func (r *BusRepository) First(ctx context.Context) (*models.Bus, error) {
	const query = `SELECT id, schedule_id, bus_line_id FROM buses ORDER BY id ASC LIMIT 1`
	var bus models.Bus
	if err := r.db.GetContext(ctx, &bus, query); err != nil {
		return nil, err
	}
	return &bus, nil
}

// List returns every bus in creation order.
func (r *BusRepository) List(ctx context.Context) ([]models.Bus, error) {
	const query = `SELECT id, schedule_id, bus_line_id FROM buses ORDER BY id ASC`
	var buses []models.Bus
	if err := r.db.SelectContext(ctx, &buses, query); err != nil {
		return nil, fmt.Errorf("list buses: %w", err)
	}
	return buses, nil
}

// ListDetails returns the roster: every bus with schedule and line, in creation order.
func (r *BusRepository) ListDetails(ctx context.Context) ([]models.BusDetail, error) {
	query := busDetailSelect + ` ORDER BY b.id ASC`
	var roster []models.BusDetail
	if err := r.db.SelectContext(ctx, &roster, query); err != nil {
		return nil, fmt.Errorf("list bus roster: %w", err)
	}
	return roster, nil
}

// ListDetailsByLine returns the buses currently assigned to a line.
func (r *BusRepository) ListDetailsByLine(ctx context.Context, lineID int64) ([]models.BusDetail, error) {
	query := busDetailSelect + ` WHERE b.bus_line_id = ? ORDER BY b.id ASC`
	var roster []models.BusDetail
	if err := r.db.SelectContext(ctx, &roster, query, lineID); err != nil {
		return nil, fmt.Errorf("list buses by line: %w", err)
	}
	return roster, nil
}

// ListByLineNumber returns the buses whose line carries number.
func (r *BusRepository) ListByLineNumber(ctx context.Context, number int) ([]models.Bus, error) {
	const query = `SELECT b.id AS id, b.schedule_id AS schedule_id, b.bus_line_id AS bus_line_id
        FROM buses b JOIN bus_lines l ON l.id = b.bus_line_id WHERE l.number = ? ORDER BY b.id ASC`
	var buses []models.Bus
	if err := r.db.SelectContext(ctx, &buses, query, number); err != nil {
		return nil, fmt.Errorf("list buses by line number: %w", err)
	}
	return buses, nil
}

// Update persists the schedule and line references of a bus.
func (r *BusRepository) Update(ctx context.Context, bus *models.Bus) error {
	const query = `UPDATE buses SET schedule_id = ?, bus_line_id = ? WHERE id = ?`
	result, err := r.db.ExecContext(ctx, query, bus.ScheduleID, bus.BusLineID, bus.ID)
	if err != nil {
		return fmt.Errorf("update bus: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("bus rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a single bus row.
func (r *BusRepository) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM buses WHERE id = ?`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete bus: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("bus rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
