package recap

import "time"

// Window is one Sunday–Saturday recap range. Start and End are midnight
// UTC dates.
type Window struct {
	Start time.Time
	End   time.Time
}

// DateRange is the wire form of a window.
type DateRange struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

const dateLayout = "2006-01-02"

// DateRange returns the window formatted for API responses and cache keys.
func (w Window) DateRange() DateRange {
	return DateRange{
		StartDate: w.Start.Format(dateLayout),
		EndDate:   w.End.Format(dateLayout),
	}
}

// LastCompletedWeek returns the most recent fully completed Sunday–Saturday
// window relative to today. On a Sunday the window is the seven days ending
// yesterday; on any other day it ends on the Saturday before the current
// week.
func LastCompletedWeek(today time.Time) Window {
	day := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	start := day.AddDate(0, 0, -int(day.Weekday())-7)
	return Window{Start: start, End: start.AddDate(0, 0, 6)}
}

// ParseDateRange turns a wire-form range back into a window.
func ParseDateRange(dr DateRange) (Window, error) {
	start, err := time.ParseInLocation(dateLayout, dr.StartDate, time.UTC)
	if err != nil {
		return Window{}, err
	}
	end, err := time.ParseInLocation(dateLayout, dr.EndDate, time.UTC)
	if err != nil {
		return Window{}, err
	}
	return Window{Start: start, End: end}, nil
}
