package models

// Schedule is an arrival-time record shared by one or more buses.
type Schedule struct {
	ID          int64     `db:"id" json:"id"`
	ArrivalTime TimeOfDay `db:"arrival_time" json:"arrival_time"`
}
