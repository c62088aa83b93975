package charging

import (
	"fmt"
	"time"
)

// DefaultTimezone is the provider's home region. All civil date/time fields
// are rendered in this zone unless configured otherwise.
const DefaultTimezone = "Europe/London"

const (
	civilDateLayout = "2006-01-02"
	civilTimeLayout = "15:04"
)

// CivilFormatter renders absolute instants as civil date and time strings in
// one fixed zone. It must be applied to every persisted or displayed
// timestamp so stored civil fields never drift from the underlying instants.
type CivilFormatter struct {
	loc *time.Location
}

// NewCivilFormatter loads the named zone, defaulting to Europe/London.
func NewCivilFormatter(name string) (*CivilFormatter, error) {
	if name == "" {
		name = DefaultTimezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("charging: load timezone %q: %w", name, err)
	}
	return &CivilFormatter{loc: loc}, nil
}

// Local shifts an instant into the civil zone without changing the moment
// it names. Storage-layer civil comparisons need their parameters localized
// this way first.
func (f *CivilFormatter) Local(t time.Time) time.Time {
	return t.In(f.loc)
}

// Date renders YYYY-MM-DD.
func (f *CivilFormatter) Date(t time.Time) string {
	return t.In(f.loc).Format(civilDateLayout)
}

// Time renders HH:MM, 24-hour.
func (f *CivilFormatter) Time(t time.Time) string {
	return t.In(f.loc).Format(civilTimeLayout)
}

// Span converts stored civil fields back into the instants they cover. An
// end time of day at or before the start time of day means the session
// crosses midnight, so the end lands on the following day.
func (f *CivilFormatter) Span(date, startTime, endTime string) (time.Time, time.Time, error) {
	start, err := time.ParseInLocation(civilDateLayout+" "+civilTimeLayout, date+" "+startTime, f.loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("charging: parse civil start: %w", err)
	}
	end, err := time.ParseInLocation(civilDateLayout+" "+civilTimeLayout, date+" "+endTime, f.loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("charging: parse civil end: %w", err)
	}
	if !end.After(start) {
		end = end.AddDate(0, 0, 1)
	}
	return start, end, nil
}
