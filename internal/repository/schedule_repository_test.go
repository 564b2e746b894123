package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/bus-schedule/internal/models"
)

func TestScheduleRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO schedules (arrival_time) VALUES (?) RETURNING id")).
		WithArgs("08:30:00").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2))

	id, err := repo.Create(context.Background(), &models.Schedule{ArrivalTime: models.TimeOfDay{Hour: 8, Minute: 30}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryRoundTrip(t *testing.T) {
	db := newTestStore(t)
	repo := NewScheduleRepository(db)
	ctx := context.Background()

	first := &models.Schedule{ArrivalTime: models.TimeOfDay{Hour: 6, Minute: 45, Second: 12}}
	_, err := repo.Create(ctx, first)
	require.NoError(t, err)
	second := &models.Schedule{ArrivalTime: first.ArrivalTime.Add(15 * time.Minute)}
	_, err = repo.Create(ctx, second)
	require.NoError(t, err)

	found, err := repo.FindByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, *first, *found)

	last, err := repo.Last(ctx)
	require.NoError(t, err)
	assert.Equal(t, *second, *last)
	assert.Equal(t, "07:00:12", last.ArrivalTime.String())

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.Schedule{*first, *second}, all)
}
