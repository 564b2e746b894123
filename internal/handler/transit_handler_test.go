package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/bus-schedule/internal/middleware"
	"github.com/noah-isme/bus-schedule/internal/models"
	"github.com/noah-isme/bus-schedule/internal/service"
	appErrors "github.com/noah-isme/bus-schedule/pkg/errors"
	"github.com/noah-isme/bus-schedule/pkg/response"
)

// transitServiceMock implements only what the tests exercise; the embedded
// interface panics on anything else.
type transitServiceMock struct {
	transitService
	roster        []models.BusDetail
	rosterHit     bool
	reassigned    *service.AssignBusRequest
	reassignedID  int64
	deletedNumber int
}

func (m *transitServiceMock) Roster(ctx context.Context) ([]models.BusDetail, bool, error) {
	return m.roster, m.rosterHit, nil
}

func (m *transitServiceMock) GetRoute(ctx context.Context, id int64) (*models.RouteDetail, error) {
	return nil, appErrors.Clone(appErrors.ErrNotFound, "route not found")
}

func (m *transitServiceMock) CreateBus(ctx context.Context, req service.AssignBusRequest) (*models.BusDetail, error) {
	return &models.BusDetail{ID: 11, ScheduleID: req.ScheduleID, BusLineID: req.BusLineID}, nil
}

func (m *transitServiceMock) ReassignBus(ctx context.Context, busID int64, req service.AssignBusRequest) (*models.BusDetail, error) {
	m.reassignedID = busID
	m.reassigned = &req
	return &models.BusDetail{ID: busID, ScheduleID: req.ScheduleID, BusLineID: req.BusLineID}, nil
}

func (m *transitServiceMock) DeleteBusesByLineNumber(ctx context.Context, number int) (int, error) {
	m.deletedNumber = number
	return 2, nil
}

func (m *transitServiceMock) CreateSchedule(ctx context.Context, req service.CreateScheduleRequest) (*models.Schedule, error) {
	return &models.Schedule{ID: 3, ArrivalTime: req.ArrivalTime}, nil
}

type exporterMock struct {
	err error
}

func (m exporterMock) Render(ctx context.Context, format string) (*service.RenderedExport, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &service.RenderedExport{Filename: "roster." + format, ContentType: "text/csv", Content: []byte("bus_id\n")}, nil
}

func newTransitRouter(svc transitService, exporter rosterExporter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.WithResponseMeta())
	api := r.Group("/api/v1")
	NewTransitHandler(svc, exporter).Routes(api, api)
	return r
}

func doRequest(r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, _ := json.Marshal(b)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) response.Envelope {
	t.Helper()
	var env response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestTransitHandlerRoster(t *testing.T) {
	svc := &transitServiceMock{
		roster:    []models.BusDetail{{ID: 1, ScheduleID: 1, ArrivalTime: models.TimeOfDay{Hour: 6}, BusLineID: 1, LineNumber: 0}},
		rosterHit: true,
	}
	w := doRequest(newTransitRouter(svc, nil), http.MethodGet, "/api/v1/buses", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":[{"id":1,"schedule_id":1,"arrival_time":"06:00:00","bus_line_id":1,"line_number":0}],"meta":{"cache_hit":true}}`, w.Body.String())
}

func TestTransitHandlerRejectsBadID(t *testing.T) {
	w := doRequest(newTransitRouter(&transitServiceMock{}, nil), http.MethodGet, "/api/v1/buses/abc", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, appErrors.ErrValidation.Code, decodeEnvelope(t, w).Error.Code)
}

func TestTransitHandlerNotFound(t *testing.T) {
	w := doRequest(newTransitRouter(&transitServiceMock{}, nil), http.MethodGet, "/api/v1/routes/9", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "route not found", decodeEnvelope(t, w).Error.Message)
}

func TestTransitHandlerCreateBus(t *testing.T) {
	r := newTransitRouter(&transitServiceMock{}, nil)

	w := doRequest(r, http.MethodPost, "/api/v1/buses", `{"schedule_id":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(r, http.MethodPost, "/api/v1/buses", service.AssignBusRequest{ScheduleID: 2, BusLineID: 5})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"id":11`)
}

func TestTransitHandlerCreateScheduleParsesClock(t *testing.T) {
	r := newTransitRouter(&transitServiceMock{}, nil)

	w := doRequest(r, http.MethodPost, "/api/v1/schedules", `{"arrival_time":"08:15:00"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"arrival_time":"08:15:00"`)

	w = doRequest(r, http.MethodPost, "/api/v1/schedules", `{"arrival_time":"quarter past"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTransitHandlerReassignBus(t *testing.T) {
	svc := &transitServiceMock{}
	w := doRequest(newTransitRouter(svc, nil), http.MethodPut, "/api/v1/buses/3", service.AssignBusRequest{ScheduleID: 2, BusLineID: 5})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(3), svc.reassignedID)
	assert.Equal(t, &service.AssignBusRequest{ScheduleID: 2, BusLineID: 5}, svc.reassigned)
}

func TestTransitHandlerDeleteLineBuses(t *testing.T) {
	svc := &transitServiceMock{}
	r := newTransitRouter(svc, nil)

	w := doRequest(r, http.MethodDelete, "/api/v1/buses?line_number=4", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 4, svc.deletedNumber)
	assert.JSONEq(t, `{"data":{"line_number":4,"deleted":2}}`, w.Body.String())

	w = doRequest(r, http.MethodDelete, "/api/v1/buses?line_number=four", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTransitHandlerExportRoster(t *testing.T) {
	w := doRequest(newTransitRouter(&transitServiceMock{}, exporterMock{}), http.MethodGet, "/api/v1/buses/export", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="roster.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "bus_id\n", w.Body.String())

	failing := exporterMock{err: appErrors.Wrap(errors.New("xlsx"), appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "unsupported export format")}
	w = doRequest(newTransitRouter(&transitServiceMock{}, failing), http.MethodGet, "/api/v1/buses/export?format=xlsx", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(newTransitRouter(&transitServiceMock{}, nil), http.MethodGet, "/api/v1/buses/export", nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "an unconfigured exporter is absent, not forbidden")
	assert.Contains(t, w.Body.String(), appErrors.CodeNotFound)
}
