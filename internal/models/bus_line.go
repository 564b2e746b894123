package models

// BusLine is a logical service line grouping routes and buses.
type BusLine struct {
	ID     int64 `db:"id" json:"id"`
	Number int   `db:"number" json:"number"`
}

// BusLineDetail is a line with the routes and buses it owns.
type BusLineDetail struct {
	BusLine
	Routes []Route     `json:"routes"`
	Buses  []BusDetail `json:"buses"`
}
