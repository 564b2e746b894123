package repository

import (
	"context"
	"fmt"

	"github.com/noah-isme/bus-schedule/internal/models"
	"github.com/noah-isme/bus-schedule/pkg/database"
)

// BusLineRepository provides persistence for bus lines.
type BusLineRepository struct {
	db *database.DB
}

// NewBusLineRepository creates a new bus line repository.
func NewBusLineRepository(db *database.DB) *BusLineRepository {
	return &BusLineRepository{db: db}
}

// Create stores a line and returns its id.
func (r *BusLineRepository) Create(ctx context.Context, line *models.BusLine) (int64, error) {
	const query = `INSERT INTO bus_lines (number) VALUES (?) RETURNING id`
	if err := r.db.GetContext(ctx, &line.ID, query, line.Number); err != nil {
		return 0, fmt.Errorf("create bus line: %w", err)
	}
	return line.ID, nil
}

// FindByID loads a line by id.
func (r *BusLineRepository) FindByID(ctx context.Context, id int64) (*models.BusLine, error) {
	const query = `SELECT id, number FROM bus_lines WHERE id = ?`
	var line models.BusLine
	if err := r.db.GetContext(ctx, &line, query, id); err != nil {
		return nil, err
	}
	return &line, nil
}

// List returns every line in creation order.
func (r *BusLineRepository) List(ctx context.Context) ([]models.BusLine, error) {
	const query = `SELECT id, number FROM bus_lines ORDER BY id ASC`
	var lines []models.BusLine
	if err := r.db.SelectContext(ctx, &lines, query); err != nil {
		return nil, fmt.Errorf("list bus lines: %w", err)
	}
	return lines, nil
}

// Last returns the most recently created line.
func (r *BusLineRepository) Last(ctx context.Context) (*models.BusLine, error) {
	const query = `SELECT id, number FROM bus_lines ORDER BY id DESC LIMIT 1`
	var line models.BusLine
	if err := r.db.GetContext(ctx, &line, query); err != nil {
		return nil, err
	}
	return &line, nil
}
