package models

// Bus assigns one schedule to one bus line.
type Bus struct {
	ID         int64 `db:"id" json:"id"`
	ScheduleID int64 `db:"schedule_id" json:"schedule_id"`
	BusLineID  int64 `db:"bus_line_id" json:"bus_line_id"`
}

// BusDetail is a bus with its schedule and line resolved.
type BusDetail struct {
	ID          int64     `db:"id" json:"id"`
	ScheduleID  int64     `db:"schedule_id" json:"schedule_id"`
	ArrivalTime TimeOfDay `db:"arrival_time" json:"arrival_time"`
	BusLineID   int64     `db:"bus_line_id" json:"bus_line_id"`
	LineNumber  int       `db:"line_number" json:"line_number"`
}

// Bus drops the resolved associations.
func (d BusDetail) Bus() Bus {
	return Bus{ID: d.ID, ScheduleID: d.ScheduleID, BusLineID: d.BusLineID}
}
