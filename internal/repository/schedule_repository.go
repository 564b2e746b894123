package repository

import (
	"context"
	"fmt"

	"github.com/noah-isme/bus-schedule/internal/models"
	"github.com/noah-isme/bus-schedule/pkg/database"
)

// ScheduleRepository provides persistence for schedules.
type ScheduleRepository struct {
	db *database.DB
}

// NewScheduleRepository creates a new schedule repository.
func NewScheduleRepository(db *database.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// Create stores a schedule and returns its id.
func (r *ScheduleRepository) Create(ctx context.Context, schedule *models.Schedule) (int64, error) {
	const query = `INSERT INTO schedules (arrival_time) VALUES (?) RETURNING id`
	if err := r.db.GetContext(ctx, &schedule.ID, query, schedule.ArrivalTime); err != nil {
		return 0, fmt.Errorf("create schedule: %w", err)
	}
	return schedule.ID, nil
}

// FindByID loads a schedule by id.
func (r *ScheduleRepository) FindByID(ctx context.Context, id int64) (*models.Schedule, error) {
	const query = `SELECT id, arrival_time FROM schedules WHERE id = ?`
	var schedule models.Schedule
	if err := r.db.GetContext(ctx, &schedule, query, id); err != nil {
		return nil, err
	}
	return &schedule, nil
}

// List returns every schedule in creation order.
func (r *ScheduleRepository) List(ctx context.Context) ([]models.Schedule, error) {
	const query = `SELECT id, arrival_time FROM schedules ORDER BY id ASC`
	var schedules []models.Schedule
	if err := r.db.SelectContext(ctx, &schedules, query); err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	return schedules, nil
}

// Last returns the most recently created schedule.
func (r *ScheduleRepository) Last(ctx context.Context) (*models.Schedule, error) {
	const query = `SELECT id, arrival_time FROM schedules ORDER BY id DESC LIMIT 1`
	var schedule models.Schedule
	if err := r.db.GetContext(ctx, &schedule, query); err != nil {
		return nil, err
	}
	return &schedule, nil
}
