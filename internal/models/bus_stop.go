package models

// BusStop is a physical stop identified by a code.
type BusStop struct {
	ID   int64  `db:"id" json:"id"`
	Code string `db:"code" json:"code"`
}

// BusStopDetail is a stop together with the routes serving it.
type BusStopDetail struct {
	BusStop
	Routes []Route `json:"routes"`
}
