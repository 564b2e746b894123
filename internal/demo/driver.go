// Package demo runs the scripted transit scenario: stops, routes, lines,
// two schedule batches, a line removal and a reassignment.
package demo

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/bus-schedule/internal/models"
	"github.com/noah-isme/bus-schedule/internal/service"
)

const (
	StopCount     = 20
	StopsPerRoute = 10
	RoutePairs    = 5
	ScheduleGap   = 15 * time.Minute
	// RemovedLine is the line number whose buses are deleted in step 6.
	RemovedLine = 4
)

const bannerRule = "===================="

type transit interface {
	CreateBusStop(ctx context.Context, req service.CreateBusStopRequest) (*models.BusStop, error)
	ListBusStops(ctx context.Context) ([]models.BusStop, error)
	CreateRoute(ctx context.Context, req service.CreateRouteRequest) (*models.RouteDetail, error)
	ReverseRoute(ctx context.Context, id int64) (*models.RouteDetail, error)
	ListRoutes(ctx context.Context) ([]models.RouteDetail, error)
	CreateBusLine(ctx context.Context, req service.CreateBusLineRequest) (*models.BusLineDetail, error)
	ListBusLines(ctx context.Context) ([]models.BusLineDetail, error)
	CreateSchedule(ctx context.Context, req service.CreateScheduleRequest) (*models.Schedule, error)
	LatestSchedule(ctx context.Context) (*models.Schedule, error)
	LatestBusLine(ctx context.Context) (*models.BusLine, error)
	CreateBus(ctx context.Context, req service.AssignBusRequest) (*models.BusDetail, error)
	FirstBus(ctx context.Context) (*models.Bus, error)
	ReassignBus(ctx context.Context, busID int64, req service.AssignBusRequest) (*models.BusDetail, error)
	DeleteBusesByLineNumber(ctx context.Context, number int) (int, error)
	Roster(ctx context.Context) ([]models.BusDetail, bool, error)
}

type rosterExporter interface {
	SaveAll(ctx context.Context, store service.FileStorage, dir string, formats []string) ([]string, error)
}

// Export writes the final roster to Storage once per format.
type Export struct {
	Service rosterExporter
	Storage service.FileStorage
	Formats []string
}

// Options wires the driver's collaborators. Zero values pick a time seeded
// random source, the wall clock, io.Discard and a no-op logger.
type Options struct {
	Rand   *rand.Rand
	Now    func() time.Time
	Out    io.Writer
	Logger *zap.Logger
	Export *Export
	RunID  string
}

// RosterSnapshot is the bus roster as printed after a step.
type RosterSnapshot struct {
	Banner string
	Buses  []models.BusDetail
}

// RoutePair is a forward route and its return route.
type RoutePair struct {
	Forward models.RouteDetail
	Return  models.RouteDetail
}

// Result records what a run created so callers can inspect it.
type Result struct {
	RunID           string
	Stops           []models.BusStop
	Routes          []RoutePair
	Lines           []models.BusLineDetail
	Schedules       []models.Schedule
	Snapshots       []RosterSnapshot
	ReassignedBusID int64
	ExportPaths     []string
}

// Driver runs the scenario against a transit service.
type Driver struct {
	svc    transit
	rand   *rand.Rand
	now    func() time.Time
	out    io.Writer
	logger *zap.Logger
	export *Export
	runID  string
}

// NewDriver builds a driver.
func NewDriver(svc transit, opts Options) *Driver {
	d := &Driver{svc: svc, rand: opts.Rand, now: opts.Now, out: opts.Out, logger: opts.Logger, export: opts.Export, runID: opts.RunID}
	if d.rand == nil {
		d.rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if d.now == nil {
		d.now = time.Now
	}
	if d.out == nil {
		d.out = io.Discard
	}
	if d.logger == nil {
		d.logger = zap.NewNop()
	}
	if d.runID == "" {
		d.runID = uuid.NewString()
	}
	d.logger = d.logger.With(zap.String("run_id", d.runID))
	return d
}

// Run executes every step in order and stops at the first failure.
func (d *Driver) Run(ctx context.Context) (*Result, error) {
	res := &Result{RunID: d.runID}
	steps := []struct {
		name string
		fn   func(context.Context, *Result) error
	}{
		{"define bus stops", d.defineStops},
		{"define routes", d.defineRoutes},
		{"define bus lines", d.defineLines},
		{"define first buses", d.defineFirstBuses},
		{"add second buses", d.addSecondBuses},
		{"delete line buses", d.deleteLineBuses},
		{"reassign first bus", d.reassignFirstBus},
	}
	for i, step := range steps {
		start := time.Now()
		if err := step.fn(ctx, res); err != nil {
			return res, fmt.Errorf("step %d (%s): %w", i+1, step.name, err)
		}
		d.logger.Debug("demo step done", zap.Int("step", i+1), zap.String("name", step.name), zap.Duration("took", time.Since(start)))
	}

	if d.export != nil && len(d.export.Formats) > 0 {
		paths, err := d.export.Service.SaveAll(ctx, d.export.Storage, d.runID, d.export.Formats)
		if err != nil {
			return res, fmt.Errorf("export roster: %w", err)
		}
		res.ExportPaths = paths
	}
	d.logger.Info("demo finished", zap.Int("buses", len(res.Snapshots[len(res.Snapshots)-1].Buses)))
	return res, nil
}

func (d *Driver) banner(title string) string {
	return bannerRule + " " + title + " " + bannerRule
}

func (d *Driver) defineStops(ctx context.Context, res *Result) error {
	for i := 1; i <= StopCount; i++ {
		stop, err := d.svc.CreateBusStop(ctx, service.CreateBusStopRequest{Code: fmt.Sprintf("S%02d", i)})
		if err != nil {
			return err
		}
		res.Stops = append(res.Stops, *stop)
	}

	// The listing covers the whole store; routes only sample this run's stops.
	stops, err := d.svc.ListBusStops(ctx)
	if err != nil {
		return err
	}
	codes := make([]string, len(stops))
	for i, stop := range stops {
		codes[i] = stop.Code
	}
	fmt.Fprintln(d.out, d.banner(fmt.Sprintf("%d bus stops defined", len(stops))))
	fmt.Fprintln(d.out, strings.Join(codes, ","))
	return nil
}

// sampleStops draws n stop ids without replacement, in draw order.
func (d *Driver) sampleStops(stops []models.BusStop, n int) []int64 {
	picked := d.rand.Perm(len(stops))[:n]
	ids := make([]int64, n)
	for i, idx := range picked {
		ids[i] = stops[idx].ID
	}
	return ids
}

func (d *Driver) defineRoutes(ctx context.Context, res *Result) error {
	for n := 1; n <= RoutePairs; n++ {
		forward, err := d.svc.CreateRoute(ctx, service.CreateRouteRequest{
			Name:    fmt.Sprintf("Route %d", n),
			StopIDs: d.sampleStops(res.Stops, StopsPerRoute),
		})
		if err != nil {
			return err
		}
		back, err := d.svc.ReverseRoute(ctx, forward.ID)
		if err != nil {
			return err
		}
		res.Routes = append(res.Routes, RoutePair{Forward: *forward, Return: *back})
	}

	routes, err := d.svc.ListRoutes(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(d.out, d.banner(fmt.Sprintf("%d routes defined", len(routes))))
	for _, route := range routes {
		fmt.Fprintf(d.out, "%s \t[%s]\n", route.Name, strings.Join(route.StopCodes(), ","))
	}
	return nil
}

func (d *Driver) defineLines(ctx context.Context, res *Result) error {
	for i, pair := range res.Routes {
		line, err := d.svc.CreateBusLine(ctx, service.CreateBusLineRequest{
			Number:   i,
			RouteIDs: []int64{pair.Forward.ID, pair.Return.ID},
		})
		if err != nil {
			return err
		}
		res.Lines = append(res.Lines, *line)
	}

	lines, err := d.svc.ListBusLines(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(d.out, d.banner(fmt.Sprintf("%d bus lines defined", len(lines))))
	for _, line := range lines {
		names := make([]string, len(line.Routes))
		for i, route := range line.Routes {
			names[i] = route.Name
		}
		fmt.Fprintf(d.out, "Line %d\t\t[%s]\n", line.Number, strings.Join(names, ","))
	}
	return nil
}

// scheduleBatch creates one schedule at arrival and one bus per line on it.
func (d *Driver) scheduleBatch(ctx context.Context, res *Result, arrival time.Time) error {
	schedule, err := d.svc.CreateSchedule(ctx, service.CreateScheduleRequest{ArrivalTime: models.TimeOfDayOf(arrival)})
	if err != nil {
		return err
	}
	res.Schedules = append(res.Schedules, *schedule)
	for _, line := range res.Lines {
		if _, err := d.svc.CreateBus(ctx, service.AssignBusRequest{ScheduleID: schedule.ID, BusLineID: line.ID}); err != nil {
			return err
		}
	}
	return nil
}

func (d *Driver) defineFirstBuses(ctx context.Context, res *Result) error {
	if err := d.scheduleBatch(ctx, res, d.now()); err != nil {
		return err
	}
	return d.printRoster(ctx, res, fmt.Sprintf("%d buses defined", len(res.Lines)))
}

func (d *Driver) addSecondBuses(ctx context.Context, res *Result) error {
	if err := d.scheduleBatch(ctx, res, d.now().Add(ScheduleGap)); err != nil {
		return err
	}
	return d.printRoster(ctx, res, fmt.Sprintf("after add another %d buses", len(res.Lines)))
}

func (d *Driver) deleteLineBuses(ctx context.Context, res *Result) error {
	deleted, err := d.svc.DeleteBusesByLineNumber(ctx, RemovedLine)
	if err != nil {
		return err
	}
	d.logger.Debug("line buses deleted", zap.Int("line_number", RemovedLine), zap.Int("deleted", deleted))
	return d.printRoster(ctx, res, fmt.Sprintf("after delete buses in line %d", RemovedLine))
}

func (d *Driver) reassignFirstBus(ctx context.Context, res *Result) error {
	schedule, err := d.svc.LatestSchedule(ctx)
	if err != nil {
		return err
	}
	line, err := d.svc.LatestBusLine(ctx)
	if err != nil {
		return err
	}
	bus, err := d.svc.FirstBus(ctx)
	if err != nil {
		return err
	}
	if _, err := d.svc.ReassignBus(ctx, bus.ID, service.AssignBusRequest{ScheduleID: schedule.ID, BusLineID: line.ID}); err != nil {
		return err
	}
	res.ReassignedBusID = bus.ID
	return d.printRoster(ctx, res, fmt.Sprintf("after reassign bus to line %d", line.Number))
}

func (d *Driver) printRoster(ctx context.Context, res *Result, title string) error {
	roster, _, err := d.svc.Roster(ctx)
	if err != nil {
		return err
	}
	snapshot := RosterSnapshot{Banner: d.banner(title), Buses: roster}
	res.Snapshots = append(res.Snapshots, snapshot)

	fmt.Fprintln(d.out, snapshot.Banner)
	for _, bus := range roster {
		fmt.Fprintf(d.out, "%s\t%s\n", bus.ArrivalTime, service.BusLineLabel(bus.LineNumber))
	}
	return nil
}
