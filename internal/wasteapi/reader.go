// Package wasteapi implements the client for the Twentemilieu waste
// collection API and the throttled schedule reader built on top of it.
package wasteapi

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// fetchWindowDays is the forward window requested from the calendar API.
const fetchWindowDays = 30

// CalendarAPI is the part of the API client the reader depends on.
type CalendarAPI interface {
	ResolveAddress(ctx context.Context, postcode, houseNumber string) (string, error)
	FetchCalendar(ctx context.Context, addressID string, start, end time.Time) (*CalendarResponse, error)
}

// Reader caches the pickup schedule for one address and answers queries over
// the cached snapshot. Each configured address gets its own Reader with an
// independent refresh watermark.
type Reader struct {
	api         CalendarAPI
	postcode    string
	houseNumber string
	logger      *logrus.Logger
	now         func() time.Time

	mu          sync.RWMutex
	schedules   []Schedule
	lastUpdated time.Time
}

// NewReader creates a Reader for one address.
func NewReader(api CalendarAPI, postcode, houseNumber string, logger *logrus.Logger) *Reader {
	return &Reader{
		api:         api,
		postcode:    postcode,
		houseNumber: houseNumber,
		logger:      logger,
		now:         time.Now,
	}
}

// Refresh fetches the coming 30 days of pickups and replaces the cached
// snapshot. It performs at most one fetch attempt per calendar day: the
// watermark advances before the fetch, so a failed attempt leaves the cache
// empty until the next day instead of retrying on every call. Any fetch-path
// failure clears the snapshot and is returned to the caller.
func (r *Reader) Refresh(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	today := DateOnly(r.now())
	if r.lastUpdated.Equal(today) {
		return nil
	}
	r.lastUpdated = today

	r.logger.WithFields(logrus.Fields{
		"postcode":     r.postcode,
		"house_number": r.houseNumber,
	}).Debug("refreshing waste collection schedule")

	addressID, err := r.api.ResolveAddress(ctx, r.postcode, r.houseNumber)
	if err != nil {
		r.schedules = nil
		return err
	}

	cal, err := r.api.FetchCalendar(ctx, addressID, today, today.AddDate(0, 0, fetchWindowDays))
	if err != nil {
		r.schedules = nil
		return err
	}

	schedules, err := parseCalendar(cal)
	if err != nil {
		r.schedules = nil
		return err
	}

	r.schedules = schedules
	r.logger.WithField("schedules", len(schedules)).Debug("waste collection schedule updated")
	return nil
}

// NextCollection returns the earliest upcoming pickup.
func (r *Reader) NextCollection() (Schedule, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.schedules) == 0 {
		return Schedule{}, false
	}
	return r.schedules[0], true
}

// NextCollectionOf returns the earliest upcoming pickup of one trash type.
// Type labels are compared verbatim; upstream reports them uppercase.
func (r *Reader) NextCollectionOf(trashType string) (Schedule, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, s := range r.schedules {
		if s.TrashType == trashType {
			return s, true
		}
	}
	return Schedule{}, false
}

// CollectionOn returns the first pickup scheduled on the given date. When
// several types share the date, the one first in sorted order wins.
func (r *Reader) CollectionOn(date time.Time) (Schedule, bool) {
	day := DateOnly(date)

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, s := range r.schedules {
		if s.PickupDate.Equal(day) {
			return s, true
		}
	}
	return Schedule{}, false
}

// CollectionToday returns the pickup scheduled for today, if any.
func (r *Reader) CollectionToday() (Schedule, bool) {
	return r.CollectionOn(r.now())
}

// CollectionTomorrow returns the pickup scheduled for tomorrow, if any.
func (r *Reader) CollectionTomorrow() (Schedule, bool) {
	return r.CollectionOn(r.now().AddDate(0, 0, 1))
}

// LastUpdated returns the date of the last refresh attempt, or the zero time
// before the first call.
func (r *Reader) LastUpdated() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastUpdated
}
