package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/bus-schedule/internal/models"
	appErrors "github.com/noah-isme/bus-schedule/pkg/errors"
)

// CreateSchedule stores a new arrival time.
func (s *TransitService) CreateSchedule(ctx context.Context, req CreateScheduleRequest) (*models.Schedule, error) {
	if err := s.validate(req, "invalid schedule payload"); err != nil {
		return nil, err
	}
	schedule := &models.Schedule{ArrivalTime: req.ArrivalTime}
	if _, err := s.schedules.Create(ctx, schedule); err != nil {
		return nil, appErrors.Internal(err, "failed to create schedule")
	}
	s.mutated(ctx, "schedule", "create")
	return schedule, nil
}

// ListSchedules returns every schedule in creation order.
func (s *TransitService) ListSchedules(ctx context.Context) ([]models.Schedule, error) {
	schedules, err := s.schedules.List(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list schedules")
	}
	return schedules, nil
}

// LatestSchedule returns the most recently created schedule.
func (s *TransitService) LatestSchedule(ctx context.Context) (*models.Schedule, error) {
	schedule, err := s.schedules.Last(ctx)
	if err != nil {
		return nil, lookupErr(err, "schedule")
	}
	return schedule, nil
}

// CreateBus puts a bus on a line at a schedule. Both must exist.
func (s *TransitService) CreateBus(ctx context.Context, req AssignBusRequest) (*models.BusDetail, error) {
	if err := s.validate(req, "invalid bus payload"); err != nil {
		return nil, err
	}
	if err := s.requireSchedule(ctx, req.ScheduleID); err != nil {
		return nil, err
	}
	if err := s.requireBusLine(ctx, req.BusLineID); err != nil {
		return nil, err
	}

	bus := &models.Bus{ScheduleID: req.ScheduleID, BusLineID: req.BusLineID}
	if _, err := s.buses.Create(ctx, bus); err != nil {
		return nil, appErrors.Internal(err, "failed to create bus")
	}
	s.mutated(ctx, "bus", "create")
	return s.GetBus(ctx, bus.ID)
}

// GetBus returns a bus with its schedule and line resolved.
func (s *TransitService) GetBus(ctx context.Context, id int64) (*models.BusDetail, error) {
	detail, err := s.buses.FindDetail(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "bus")
	}
	return detail, nil
}

// FirstBus returns the earliest created bus still in service.
func (s *TransitService) FirstBus(ctx context.Context) (*models.Bus, error) {
	bus, err := s.buses.First(ctx)
	if err != nil {
		return nil, lookupErr(err, "bus")
	}
	return bus, nil
}

// Roster lists every bus with its arrival time and line number, in creation
// order. The second return value reports whether it was served from cache.
func (s *TransitService) Roster(ctx context.Context) ([]models.BusDetail, bool, error) {
	roster, hit, err := remember(ctx, s.cache, rosterCacheKey, s.rosterTTL, func() ([]models.BusDetail, error) {
		return s.buses.ListDetails(ctx)
	})
	if err != nil {
		return nil, false, appErrors.Internal(err, "failed to list bus roster")
	}
	if roster == nil {
		roster = []models.BusDetail{}
	}
	return roster, hit, nil
}

// ReassignBus moves a bus to another schedule and line. Both must exist.
func (s *TransitService) ReassignBus(ctx context.Context, busID int64, req AssignBusRequest) (*models.BusDetail, error) {
	if err := s.validate(req, "invalid bus assignment payload"); err != nil {
		return nil, err
	}
	bus, err := s.buses.FindByID(ctx, busID)
	if err != nil {
		return nil, lookupErr(err, "bus")
	}
	if err := s.requireSchedule(ctx, req.ScheduleID); err != nil {
		return nil, err
	}
	if err := s.requireBusLine(ctx, req.BusLineID); err != nil {
		return nil, err
	}

	bus.ScheduleID = req.ScheduleID
	bus.BusLineID = req.BusLineID
	if err := s.buses.Update(ctx, bus); err != nil {
		if isNotFound(err) {
			return nil, appErrors.NotFound("bus")
		}
		return nil, appErrors.Internal(err, "failed to reassign bus")
	}
	s.mutated(ctx, "bus", "update")
	return s.GetBus(ctx, bus.ID)
}

// DeleteBus removes one bus. Its schedule and line are left untouched.
func (s *TransitService) DeleteBus(ctx context.Context, id int64) error {
	if err := s.buses.Delete(ctx, id); err != nil {
		if isNotFound(err) {
			return appErrors.NotFound("bus")
		}
		return appErrors.Internal(err, "failed to delete bus")
	}
	s.mutated(ctx, "bus", "delete")
	return nil
}

// DeleteBusesByLineNumber removes every bus on a line with the given number
// and returns how many were removed.
func (s *TransitService) DeleteBusesByLineNumber(ctx context.Context, number int) (int, error) {
	buses, err := s.buses.ListByLineNumber(ctx, number)
	if err != nil {
		return 0, appErrors.Internal(err, "failed to list buses by line number")
	}
	deleted := 0
	defer func() {
		if deleted > 0 {
			s.mutated(ctx, "bus", "delete")
		}
	}()
	for _, bus := range buses {
		if err := s.buses.Delete(ctx, bus.ID); err != nil {
			if isNotFound(err) {
				continue
			}
			return deleted, appErrors.Internal(err, "failed to delete bus")
		}
		deleted++
	}
	s.logger.Info("buses removed from line", zap.Int("line_number", number), zap.Int("deleted", deleted))
	return deleted, nil
}
