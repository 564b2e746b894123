package service

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"github.com/noah-isme/bus-schedule/internal/models"
	appErrors "github.com/noah-isme/bus-schedule/pkg/errors"
	"github.com/noah-isme/bus-schedule/pkg/export"
)

type rosterSource interface {
	Roster(ctx context.Context) ([]models.BusDetail, bool, error)
}

// FileStorage persists rendered export files.
type FileStorage interface {
	Save(filename string, data []byte) (string, error)
}

// RenderedExport is a roster file ready to be written or served.
type RenderedExport struct {
	Filename    string
	ContentType string
	Content     []byte
}

// ExportService renders the bus roster to files.
type ExportService struct {
	roster rosterSource
	logger *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(roster rosterSource, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{roster: roster, logger: logger}
}

// RosterDataset lays the roster out as a table in roster order.
func RosterDataset(roster []models.BusDetail) export.Dataset {
	data := export.Dataset{
		Title:   "Bus Roster",
		Headers: []string{"bus_id", "arrival_time", "bus_line"},
		Rows:    make([][]string, 0, len(roster)),
	}
	for _, bus := range roster {
		data.Rows = append(data.Rows, []string{
			strconv.FormatInt(bus.ID, 10),
			bus.ArrivalTime.String(),
			BusLineLabel(bus.LineNumber),
		})
	}
	return data
}

// BusLineLabel is the display name of a line number.
func BusLineLabel(number int) string {
	return "Bus Line " + strconv.Itoa(number)
}

// Render loads the current roster and renders it in the requested format.
func (s *ExportService) Render(ctx context.Context, rawFormat string) (*RenderedExport, error) {
	format, err := export.ParseFormat(rawFormat)
	if err != nil {
		return nil, appErrors.Validation(err, "unsupported export format")
	}
	renderer, err := export.For(format)
	if err != nil {
		return nil, appErrors.Internal(err, "export renderer unavailable")
	}
	roster, _, err := s.roster.Roster(ctx)
	if err != nil {
		return nil, err
	}
	content, err := renderer.Render(RosterDataset(roster))
	if err != nil {
		return nil, appErrors.Internal(err, "failed to render roster")
	}
	return &RenderedExport{
		Filename:    "roster" + renderer.Extension(),
		ContentType: renderer.ContentType(),
		Content:     content,
	}, nil
}

// SaveAll renders the roster once per format into dir on store and returns
// the written paths.
func (s *ExportService) SaveAll(ctx context.Context, store FileStorage, dir string, formats []string) ([]string, error) {
	paths := make([]string, 0, len(formats))
	for _, format := range formats {
		rendered, err := s.Render(ctx, format)
		if err != nil {
			return paths, err
		}
		path, err := store.Save(dir+"/"+rendered.Filename, rendered.Content)
		if err != nil {
			return paths, appErrors.Internal(err, "failed to store roster export")
		}
		s.logger.Info("roster exported", zap.String("format", format), zap.String("path", path), zap.Int("bytes", len(rendered.Content)))
		paths = append(paths, path)
	}
	return paths, nil
}
