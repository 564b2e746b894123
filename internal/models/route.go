package models

import "database/sql"

// Route is an ordered path of bus stops, optionally owned by a bus line.
type Route struct {
	ID        int64         `db:"id" json:"id"`
	Name      string        `db:"name" json:"name"`
	BusLineID sql.NullInt64 `db:"bus_line_id" json:"-"`
}

// LineID returns the owning line, if any.
func (r Route) LineID() (int64, bool) {
	return r.BusLineID.Int64, r.BusLineID.Valid
}

// RouteStop is one entry of the bus_stops_routes join table resolved to its stop.
type RouteStop struct {
	RouteID  int64  `db:"route_id" json:"-"`
	StopID   int64  `db:"bus_stop_id" json:"id"`
	Code     string `db:"code" json:"code"`
	Position int    `db:"position" json:"position"`
}

// RouteDetail is a route with its stops in travel order.
type RouteDetail struct {
	Route
	BusLineID *int64      `json:"bus_line_id"`
	Stops     []RouteStop `json:"stops"`
}

// StopCodes lists the stop codes in travel order.
func (d RouteDetail) StopCodes() []string {
	codes := make([]string, len(d.Stops))
	for i, s := range d.Stops {
		codes[i] = s.Code
	}
	return codes
}
