package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

const timeOfDayLayout = "15:04:05"

// TimeOfDay is a wall-clock arrival time with second precision.
type TimeOfDay struct {
	Hour   int `validate:"min=0,max=23"`
	Minute int `validate:"min=0,max=59"`
	Second int `validate:"min=0,max=59"`
}

// TimeOfDayOf truncates t to its clock reading.
func TimeOfDayOf(t time.Time) TimeOfDay {
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute(), Second: t.Second()}
}

// ParseTimeOfDay parses "HH:MM:SS".
func ParseTimeOfDay(raw string) (TimeOfDay, error) {
	t, err := time.Parse(timeOfDayLayout, raw)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("parse time of day %q: %w", raw, err)
	}
	return TimeOfDayOf(t), nil
}

// Add returns the clock reading d later, wrapping past midnight.
func (t TimeOfDay) Add(d time.Duration) TimeOfDay {
	base := time.Date(2000, 1, 1, t.Hour, t.Minute, t.Second, 0, time.UTC)
	return TimeOfDayOf(base.Add(d))
}

// String renders the time as HH:MM:SS.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}

// Value implements driver.Valuer.
func (t TimeOfDay) Value() (driver.Value, error) {
	return t.String(), nil
}

// Scan implements sql.Scanner. PostgreSQL TIME columns arrive as time.Time,
// SQLite text columns as string or []byte.
func (t *TimeOfDay) Scan(src interface{}) error {
	switch v := src.(type) {
	case time.Time:
		*t = TimeOfDayOf(v)
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	case nil:
		return fmt.Errorf("scan time of day: null value")
	default:
		return fmt.Errorf("scan time of day: unsupported type %T", src)
	}
}

func (t *TimeOfDay) parse(raw string) error {
	// drivers may append fractional seconds or a zone
	if len(raw) > len(timeOfDayLayout) {
		raw = raw[:len(timeOfDayLayout)]
	}
	parsed, err := ParseTimeOfDay(raw)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// MarshalJSON renders the time as a JSON string.
func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON accepts "HH:MM:SS".
func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseTimeOfDay(raw)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
