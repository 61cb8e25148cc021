package wasteapi

import (
	"fmt"
	"sort"
	"time"
)

// Schedule is a single scheduled waste pickup: one trash type on one date.
type Schedule struct {
	TrashType  string
	PickupDate time.Time
}

// DateOnly truncates a time to its calendar date, normalized to UTC so that
// parsed pickup dates and clock-derived dates compare equal.
func DateOnly(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// parseCalendar flattens the raw calendar payload into one record per
// (trash type, pickup date) pair. Each pickup date is the first 10 chars of
// the upstream string; any time-of-day suffix is ignored. The result is
// stably sorted ascending by date, so records sharing a date keep the
// upstream dataList order.
func parseCalendar(cal *CalendarResponse) ([]Schedule, error) {
	var schedules []Schedule
	for _, pickupType := range cal.DataList {
		for _, raw := range pickupType.PickupDates {
			if len(raw) < len(dateLayout) {
				return nil, fmt.Errorf("%w: short pickup date %q", ErrParse, raw)
			}
			date, err := time.Parse(dateLayout, raw[:len(dateLayout)])
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrParse, err)
			}
			schedules = append(schedules, Schedule{
				TrashType:  pickupType.PickupTypeText,
				PickupDate: date,
			})
		}
	}

	sort.SliceStable(schedules, func(i, j int) bool {
		return schedules[i].PickupDate.Before(schedules[j].PickupDate)
	})
	return schedules, nil
}
