package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/bus-schedule/internal/models"
	appErrors "github.com/noah-isme/bus-schedule/pkg/errors"
)

// transitStoreStub keeps every entity in memory and satisfies all five
// repository interfaces through thin views.
type transitStoreStub struct {
	seq       int64
	stops     map[int64]models.BusStop
	routes    map[int64]models.Route
	links     map[int64][]int64
	lines     map[int64]models.BusLine
	schedules map[int64]models.Schedule
	buses     map[int64]models.Bus
	failList  error
	// failDelete, when set, is returned by the bus delete of that id.
	failDelete map[int64]error
}

func newTransitStoreStub() *transitStoreStub {
	return &transitStoreStub{
		stops:     map[int64]models.BusStop{},
		routes:    map[int64]models.Route{},
		links:     map[int64][]int64{},
		lines:     map[int64]models.BusLine{},
		schedules: map[int64]models.Schedule{},
		buses:     map[int64]models.Bus{},
	}
}

func (s *transitStoreStub) next() int64 {
	s.seq++
	return s.seq
}

func sortedKeys[V any](m map[int64]V) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

type stopView struct{ *transitStoreStub }

func (v stopView) Create(ctx context.Context, stop *models.BusStop) (int64, error) {
	stop.ID = v.next()
	v.stops[stop.ID] = *stop
	return stop.ID, nil
}

func (v stopView) FindByID(ctx context.Context, id int64) (*models.BusStop, error) {
	stop, ok := v.stops[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &stop, nil
}

func (v stopView) List(ctx context.Context) ([]models.BusStop, error) {
	var out []models.BusStop
	for _, id := range sortedKeys(v.stops) {
		out = append(out, v.stops[id])
	}
	return out, nil
}

func (v stopView) ListByIDs(ctx context.Context, ids []int64) ([]models.BusStop, error) {
	var out []models.BusStop
	for _, id := range ids {
		if stop, ok := v.stops[id]; ok {
			out = append(out, stop)
		}
	}
	return out, nil
}

type routeView struct{ *transitStoreStub }

func (v routeView) CreateWithStops(ctx context.Context, route *models.Route, stopIDs []int64) (int64, error) {
	route.ID = v.next()
	v.routes[route.ID] = *route
	v.links[route.ID] = append([]int64(nil), stopIDs...)
	return route.ID, nil
}

func (v routeView) FindByID(ctx context.Context, id int64) (*models.Route, error) {
	route, ok := v.routes[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &route, nil
}

func (v routeView) List(ctx context.Context) ([]models.Route, error) {
	var out []models.Route
	for _, id := range sortedKeys(v.routes) {
		out = append(out, v.routes[id])
	}
	return out, nil
}

func (v routeView) ListByLine(ctx context.Context, lineID int64) ([]models.Route, error) {
	var out []models.Route
	for _, id := range sortedKeys(v.routes) {
		if owner, ok := v.routes[id].LineID(); ok && owner == lineID {
			out = append(out, v.routes[id])
		}
	}
	return out, nil
}

func (v routeView) AssignLine(ctx context.Context, routeID, lineID int64) error {
	route, ok := v.routes[routeID]
	if !ok {
		return sql.ErrNoRows
	}
	route.BusLineID = sql.NullInt64{Int64: lineID, Valid: true}
	v.routes[routeID] = route
	return nil
}

func (v routeView) StopsForRoute(ctx context.Context, routeID int64) ([]models.RouteStop, error) {
	var out []models.RouteStop
	for pos, stopID := range v.links[routeID] {
		out = append(out, models.RouteStop{RouteID: routeID, StopID: stopID, Code: v.stops[stopID].Code, Position: pos})
	}
	return out, nil
}

func (v routeView) RoutesForStop(ctx context.Context, stopID int64) ([]models.Route, error) {
	var out []models.Route
	for _, id := range sortedKeys(v.routes) {
		for _, linked := range v.links[id] {
			if linked == stopID {
				out = append(out, v.routes[id])
				break
			}
		}
	}
	return out, nil
}

type lineView struct{ *transitStoreStub }

func (v lineView) Create(ctx context.Context, line *models.BusLine) (int64, error) {
	line.ID = v.next()
	v.lines[line.ID] = *line
	return line.ID, nil
}

func (v lineView) FindByID(ctx context.Context, id int64) (*models.BusLine, error) {
	line, ok := v.lines[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &line, nil
}

func (v lineView) List(ctx context.Context) ([]models.BusLine, error) {
	var out []models.BusLine
	for _, id := range sortedKeys(v.lines) {
		out = append(out, v.lines[id])
	}
	return out, nil
}

func (v lineView) Last(ctx context.Context) (*models.BusLine, error) {
	keys := sortedKeys(v.lines)
	if len(keys) == 0 {
		return nil, sql.ErrNoRows
	}
	line := v.lines[keys[len(keys)-1]]
	return &line, nil
}

type scheduleView struct{ *transitStoreStub }

func (v scheduleView) Create(ctx context.Context, schedule *models.Schedule) (int64, error) {
	schedule.ID = v.next()
	v.schedules[schedule.ID] = *schedule
	return schedule.ID, nil
}

func (v scheduleView) FindByID(ctx context.Context, id int64) (*models.Schedule, error) {
	schedule, ok := v.schedules[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &schedule, nil
}

func (v scheduleView) List(ctx context.Context) ([]models.Schedule, error) {
	var out []models.Schedule
	for _, id := range sortedKeys(v.schedules) {
		out = append(out, v.schedules[id])
	}
	return out, nil
}

func (v scheduleView) Last(ctx context.Context) (*models.Schedule, error) {
	keys := sortedKeys(v.schedules)
	if len(keys) == 0 {
		return nil, sql.ErrNoRows
	}
	schedule := v.schedules[keys[len(keys)-1]]
	return &schedule, nil
}

type busView struct{ *transitStoreStub }

func (v busView) Create(ctx context.Context, bus *models.Bus) (int64, error) {
	bus.ID = v.next()
	v.buses[bus.ID] = *bus
	return bus.ID, nil
}

func (v busView) FindByID(ctx context.Context, id int64) (*models.Bus, error) {
	bus, ok := v.buses[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &bus, nil
}

func (v busView) detail(bus models.Bus) models.BusDetail {
	return models.BusDetail{
		ID:          bus.ID,
		ScheduleID:  bus.ScheduleID,
		ArrivalTime: v.schedules[bus.ScheduleID].ArrivalTime,
		BusLineID:   bus.BusLineID,
		LineNumber:  v.lines[bus.BusLineID].Number,
	}
}

func (v busView) FindDetail(ctx context.Context, id int64) (*models.BusDetail, error) {
	bus, ok := v.buses[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	detail := v.detail(bus)
	return &detail, nil
}

func (v busView) First(ctx context.Context) (*models.Bus, error) {
	keys := sortedKeys(v.buses)
	if len(keys) == 0 {
		return nil, sql.ErrNoRows
	}
	bus := v.buses[keys[0]]
	return &bus, nil
}

func (v busView) ListDetails(ctx context.Context) ([]models.BusDetail, error) {
	if v.failList != nil {
		return nil, v.failList
	}
	var out []models.BusDetail
	for _, id := range sortedKeys(v.buses) {
		out = append(out, v.detail(v.buses[id]))
	}
	return out, nil
}

func (v busView) ListDetailsByLine(ctx context.Context, lineID int64) ([]models.BusDetail, error) {
	var out []models.BusDetail
	for _, id := range sortedKeys(v.buses) {
		if v.buses[id].BusLineID == lineID {
			out = append(out, v.detail(v.buses[id]))
		}
	}
	return out, nil
}

func (v busView) ListByLineNumber(ctx context.Context, number int) ([]models.Bus, error) {
	var out []models.Bus
	for _, id := range sortedKeys(v.buses) {
		if v.lines[v.buses[id].BusLineID].Number == number {
			out = append(out, v.buses[id])
		}
	}
	return out, nil
}

func (v busView) Update(ctx context.Context, bus *models.Bus) error {
	if _, ok := v.buses[bus.ID]; !ok {
		return sql.ErrNoRows
	}
	v.buses[bus.ID] = *bus
	return nil
}

func (v busView) Delete(ctx context.Context, id int64) error {
	if err := v.failDelete[id]; err != nil {
		return err
	}
	if _, ok := v.buses[id]; !ok {
		return sql.ErrNoRows
	}
	delete(v.buses, id)
	return nil
}

func (s *transitStoreStub) repositories() TransitRepositories {
	return TransitRepositories{
		Stops:     stopView{s},
		Routes:    routeView{s},
		Lines:     lineView{s},
		Schedules: scheduleView{s},
		Buses:     busView{s},
	}
}

// memoryCache is a map backed CacheRepository.
type memoryCache struct {
	entries map[string]interface{}
	deletes []string
}

func (m *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	value, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	*(dest.(*[]models.BusDetail)) = value.([]models.BusDetail)
	return nil
}

func (m *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.entries[key] = value
	return nil
}

func (m *memoryCache) DeleteByPattern(ctx context.Context, pattern string) error {
	m.deletes = append(m.deletes, pattern)
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range m.entries {
		if strings.HasPrefix(key, prefix) {
			delete(m.entries, key)
		}
	}
	return nil
}

func newTestTransitService(store *transitStoreStub, opts ...TransitServiceOption) *TransitService {
	return NewTransitService(store.repositories(), validator.New(), zap.NewNop(), opts...)
}

func seedNetwork(t *testing.T, svc *TransitService) (stops []models.BusStop, route *models.RouteDetail) {
	t.Helper()
	ctx := context.Background()
	for _, code := range []string{"S01", "S02", "S03"} {
		stop, err := svc.CreateBusStop(ctx, CreateBusStopRequest{Code: code})
		require.NoError(t, err)
		stops = append(stops, *stop)
	}
	route, err := svc.CreateRoute(ctx, CreateRouteRequest{Name: "Route 1", StopIDs: []int64{stops[2].ID, stops[0].ID, stops[1].ID}})
	require.NoError(t, err)
	return stops, route
}

func TestTransitServiceCreateRouteKeepsOrder(t *testing.T) {
	svc := newTestTransitService(newTransitStoreStub())
	_, route := seedNetwork(t, svc)

	assert.Equal(t, "Route 1", route.Name)
	assert.Nil(t, route.BusLineID)
	assert.Equal(t, []string{"S03", "S01", "S02"}, route.StopCodes())
}

func TestTransitServiceCreateRouteUnknownStop(t *testing.T) {
	svc := newTestTransitService(newTransitStoreStub())
	stops, _ := seedNetwork(t, svc)

	_, err := svc.CreateRoute(context.Background(), CreateRouteRequest{Name: "Broken", StopIDs: []int64{stops[0].ID, 999}})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestTransitServiceCreateRouteValidation(t *testing.T) {
	svc := newTestTransitService(newTransitStoreStub())
	stops, _ := seedNetwork(t, svc)

	cases := map[string]CreateRouteRequest{
		"missing name":   {StopIDs: []int64{stops[0].ID}},
		"no stops":       {Name: "Empty"},
		"duplicate stop": {Name: "Loop", StopIDs: []int64{stops[0].ID, stops[0].ID}},
		"zero id":        {Name: "Zero", StopIDs: []int64{0}},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.CreateRoute(context.Background(), req)
			assert.ErrorIs(t, err, appErrors.ErrValidation)
		})
	}
}

func TestTransitServiceReverseRoute(t *testing.T) {
	svc := newTestTransitService(newTransitStoreStub())
	_, route := seedNetwork(t, svc)

	reversed, err := svc.ReverseRoute(context.Background(), route.ID)
	require.NoError(t, err)
	assert.Equal(t, "Route 1 R", reversed.Name)
	assert.Equal(t, []string{"S02", "S01", "S03"}, reversed.StopCodes())

	stop, err := svc.GetBusStop(context.Background(), route.Stops[0].StopID)
	require.NoError(t, err)
	assert.Len(t, stop.Routes, 2)
}

func TestTransitServiceCreateBusLineOwnsRoutes(t *testing.T) {
	svc := newTestTransitService(newTransitStoreStub())
	ctx := context.Background()
	_, route := seedNetwork(t, svc)
	back, err := svc.ReverseRoute(ctx, route.ID)
	require.NoError(t, err)

	line, err := svc.CreateBusLine(ctx, CreateBusLineRequest{Number: 0, RouteIDs: []int64{route.ID, back.ID}})
	require.NoError(t, err)
	require.Len(t, line.Routes, 2)
	assert.Equal(t, "Route 1", line.Routes[0].Name)
	assert.Equal(t, "Route 1 R", line.Routes[1].Name)

	owned, err := svc.GetRoute(ctx, route.ID)
	require.NoError(t, err)
	require.NotNil(t, owned.BusLineID)
	assert.Equal(t, line.ID, *owned.BusLineID)

	_, err = svc.CreateBusLine(ctx, CreateBusLineRequest{Number: 1, RouteIDs: []int64{route.ID}})
	assert.ErrorIs(t, err, appErrors.ErrConflict)

	_, err = svc.CreateBusLine(ctx, CreateBusLineRequest{Number: 1, RouteIDs: []int64{404}})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	_, err = svc.CreateBusLine(ctx, CreateBusLineRequest{Number: -1})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestTransitServiceCreateBusChecksReferences(t *testing.T) {
	store := newTransitStoreStub()
	svc := newTestTransitService(store)
	ctx := context.Background()

	line, err := svc.CreateBusLine(ctx, CreateBusLineRequest{Number: 7})
	require.NoError(t, err)
	schedule, err := svc.CreateSchedule(ctx, CreateScheduleRequest{ArrivalTime: models.TimeOfDay{Hour: 7, Minute: 5}})
	require.NoError(t, err)

	_, err = svc.CreateBus(ctx, AssignBusRequest{ScheduleID: 999, BusLineID: line.ID})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	_, err = svc.CreateBus(ctx, AssignBusRequest{ScheduleID: schedule.ID, BusLineID: 999})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	_, err = svc.CreateBus(ctx, AssignBusRequest{ScheduleID: schedule.ID})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	assert.Empty(t, store.buses)

	bus, err := svc.CreateBus(ctx, AssignBusRequest{ScheduleID: schedule.ID, BusLineID: line.ID})
	require.NoError(t, err)
	assert.Equal(t, 7, bus.LineNumber)
	assert.Equal(t, "07:05:00", bus.ArrivalTime.String())
}

func TestTransitServiceCreateScheduleValidatesClock(t *testing.T) {
	svc := newTestTransitService(newTransitStoreStub())

	_, err := svc.CreateSchedule(context.Background(), CreateScheduleRequest{ArrivalTime: models.TimeOfDay{Hour: 24}})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func seedFleet(t *testing.T, svc *TransitService) (lines []models.BusLineDetail, schedules []models.Schedule) {
	t.Helper()
	ctx := context.Background()
	for number := 0; number < 3; number++ {
		line, err := svc.CreateBusLine(ctx, CreateBusLineRequest{Number: number})
		require.NoError(t, err)
		lines = append(lines, *line)
	}
	for _, tod := range []models.TimeOfDay{{Hour: 9}, {Hour: 9, Minute: 15}} {
		schedule, err := svc.CreateSchedule(ctx, CreateScheduleRequest{ArrivalTime: tod})
		require.NoError(t, err)
		schedules = append(schedules, *schedule)
		for _, line := range lines {
			_, err := svc.CreateBus(ctx, AssignBusRequest{ScheduleID: schedule.ID, BusLineID: line.ID})
			require.NoError(t, err)
		}
	}
	return lines, schedules
}

func TestTransitServiceDeleteBusesByLineNumber(t *testing.T) {
	store := newTransitStoreStub()
	svc := newTestTransitService(store)
	ctx := context.Background()
	_, schedules := seedFleet(t, svc)

	deleted, err := svc.DeleteBusesByLineNumber(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)
	assert.Len(t, store.buses, 4)
	assert.Len(t, store.schedules, len(schedules), "schedules survive bus deletion")
	assert.Len(t, store.lines, 3, "lines survive bus deletion")

	deleted, err = svc.DeleteBusesByLineNumber(ctx, 42)
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

func TestTransitServiceDeleteBusesByLineNumberInvalidatesOnPartialFailure(t *testing.T) {
	store := newTransitStoreStub()
	cacheRepo := &memoryCache{entries: map[string]interface{}{}}
	cache := NewCacheService(cacheRepo, nil, time.Minute, zap.NewNop(), true)
	svc := newTestTransitService(store, WithRosterCache(cache, time.Minute))
	ctx := context.Background()
	seedFleet(t, svc)

	_, _, err := svc.Roster(ctx)
	require.NoError(t, err)
	require.Contains(t, cacheRepo.entries, rosterCacheKey)

	onLine := []int64{}
	for _, id := range sortedKeys(store.buses) {
		if store.lines[store.buses[id].BusLineID].Number == 1 {
			onLine = append(onLine, id)
		}
	}
	require.Len(t, onLine, 2)
	store.failDelete = map[int64]error{onLine[1]: errors.New("disk full")}

	deleted, err := svc.DeleteBusesByLineNumber(ctx, 1)
	assert.ErrorIs(t, err, appErrors.ErrInternal)
	assert.Equal(t, 1, deleted)
	assert.NotContains(t, cacheRepo.entries, rosterCacheKey, "stale roster evicted after a partial delete")

	roster, hit, err := svc.Roster(ctx)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Len(t, roster, 5)
}

func TestTransitServiceReassignBus(t *testing.T) {
	svc := newTestTransitService(newTransitStoreStub())
	ctx := context.Background()
	seedFleet(t, svc)

	first, err := svc.FirstBus(ctx)
	require.NoError(t, err)
	latestSchedule, err := svc.LatestSchedule(ctx)
	require.NoError(t, err)
	latestLine, err := svc.LatestBusLine(ctx)
	require.NoError(t, err)

	moved, err := svc.ReassignBus(ctx, first.ID, AssignBusRequest{ScheduleID: latestSchedule.ID, BusLineID: latestLine.ID})
	require.NoError(t, err)
	assert.Equal(t, first.ID, moved.ID)
	assert.Equal(t, "09:15:00", moved.ArrivalTime.String())
	assert.Equal(t, 2, moved.LineNumber)

	_, err = svc.ReassignBus(ctx, 999, AssignBusRequest{ScheduleID: latestSchedule.ID, BusLineID: latestLine.ID})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	_, err = svc.ReassignBus(ctx, first.ID, AssignBusRequest{ScheduleID: 999, BusLineID: latestLine.ID})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestTransitServiceDeleteBus(t *testing.T) {
	svc := newTestTransitService(newTransitStoreStub())
	ctx := context.Background()
	seedFleet(t, svc)

	first, err := svc.FirstBus(ctx)
	require.NoError(t, err)
	require.NoError(t, svc.DeleteBus(ctx, first.ID))
	assert.ErrorIs(t, svc.DeleteBus(ctx, first.ID), appErrors.ErrNotFound)
	_, err = svc.GetBus(ctx, first.ID)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestTransitServiceLatestOnEmptyStore(t *testing.T) {
	svc := newTestTransitService(newTransitStoreStub())
	ctx := context.Background()

	_, err := svc.LatestSchedule(ctx)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	_, err = svc.LatestBusLine(ctx)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	_, err = svc.FirstBus(ctx)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	roster, hit, err := svc.Roster(ctx)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Empty(t, roster)
	assert.NotNil(t, roster)
}

func TestTransitServiceRosterCache(t *testing.T) {
	store := newTransitStoreStub()
	cacheRepo := &memoryCache{entries: map[string]interface{}{}}
	metrics := NewMetricsService()
	cache := NewCacheService(cacheRepo, metrics, time.Minute, zap.NewNop(), true)
	svc := newTestTransitService(store, WithRosterCache(cache, time.Minute), WithMetrics(metrics))
	ctx := context.Background()
	seedFleet(t, svc)

	roster, hit, err := svc.Roster(ctx)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Len(t, roster, 6)

	_, hit, err = svc.Roster(ctx)
	require.NoError(t, err)
	assert.True(t, hit)

	store.failList = errors.New("store offline")
	cached, hit, err := svc.Roster(ctx)
	require.NoError(t, err, "cached roster is served without touching the store")
	assert.True(t, hit)
	assert.Len(t, cached, 6)
	store.failList = nil

	_, err = svc.DeleteBusesByLineNumber(ctx, 0)
	require.NoError(t, err)
	assert.Contains(t, cacheRepo.deletes, rosterCachePattern)

	roster, hit, err = svc.Roster(ctx)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Len(t, roster, 4)

	snapshot := metrics.Snapshot()
	assert.Equal(t, uint64(2), snapshot.CacheHits)
	assert.Equal(t, uint64(2), snapshot.CacheMisses)
	assert.NotZero(t, snapshot.Mutations)
}

func TestTransitServiceRosterStoreFailure(t *testing.T) {
	store := newTransitStoreStub()
	store.failList = errors.New("boom")
	svc := newTestTransitService(store)

	_, _, err := svc.Roster(context.Background())
	assert.ErrorIs(t, err, appErrors.ErrInternal)
}
