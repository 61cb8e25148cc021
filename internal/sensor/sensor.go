// Package sensor maps the cached waste pickup schedule to host-visible
// sensor states, one sensor per configured resource.
package sensor

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rvanloon/twentemilieu/internal/wasteapi"
)

const (
	namePrefix = "Twentemilieu "

	// StateNone is rendered when no pickup answers the sensor's question.
	StateNone = "None"

	displayLayout = "02-01-2006"
	genericIcon   = "mdi:recycle"
)

// TypeInfo is the display metadata of one trash type.
type TypeInfo struct {
	Name string
	Unit string
	Icon string
}

// SensorTypes maps upstream trash type keys to display metadata.
var SensorTypes = map[string]TypeInfo{
	"GREY":     {Name: "Restafval", Icon: genericIcon},
	"PAPER":    {Name: "Papier en karton", Icon: genericIcon},
	"GREEN":    {Name: "Groente, fruit- en tuinafval", Icon: genericIcon},
	"PACKAGES": {Name: "PMD", Icon: genericIcon},
}

// InfoFor returns display metadata for a trash type key. Unknown keys get a
// synthesized entry so new upstream types show up without a code change.
func InfoFor(key string) TypeInfo {
	if info, ok := SensorTypes[key]; ok {
		return info
	}
	return TypeInfo{Name: titleCase(key), Icon: genericIcon}
}

func titleCase(key string) string {
	if key == "" {
		return key
	}
	return strings.ToUpper(key[:1]) + strings.ToLower(key[1:])
}

// ScheduleReader is the part of the waste schedule reader sensors depend on.
type ScheduleReader interface {
	Refresh(ctx context.Context) error
	NextCollectionOf(trashType string) (wasteapi.Schedule, bool)
	CollectionOn(date time.Time) (wasteapi.Schedule, bool)
	LastUpdated() time.Time
}

// Sensor produces a display state from the current schedule snapshot.
type Sensor interface {
	EntityID() string
	Name() string
	Icon() string
	State() string
	LastUpdated() time.Time
	Update(ctx context.Context)
}

type baseSensor struct {
	reader ScheduleReader
	logger *logrus.Logger
	name   string
	icon   string
	now    func() time.Time

	mu    sync.RWMutex
	state string
}

func (s *baseSensor) Name() string { return s.name }

func (s *baseSensor) EntityID() string { return entityID(s.name) }

func (s *baseSensor) Icon() string { return s.icon }

func (s *baseSensor) State() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *baseSensor) LastUpdated() time.Time { return s.reader.LastUpdated() }

func (s *baseSensor) setState(state string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}

// refresh runs the throttled schedule refresh. Failures are logged and end
// up as the "no data" state; they never propagate to the host surface.
func (s *baseSensor) refresh(ctx context.Context) {
	if err := s.reader.Refresh(ctx); err != nil {
		s.logger.WithError(err).WithField("sensor", s.name).Warn("schedule refresh failed")
	}
}

func entityID(name string) string {
	id := strings.ToLower(strings.TrimSpace(name))
	id = strings.ReplaceAll(id, ",", "")
	return strings.ReplaceAll(id, " ", "_")
}

// TypeSensor reports the next pickup date of one trash type.
type TypeSensor struct {
	baseSensor
	key string
}

// NewTypeSensor creates a sensor for one trash type key. Keys are uppercased
// so they match the labels the upstream reports.
func NewTypeSensor(reader ScheduleReader, key string, logger *logrus.Logger) *TypeSensor {
	key = strings.ToUpper(key)
	info := InfoFor(key)
	return &TypeSensor{
		baseSensor: baseSensor{
			reader: reader,
			logger: logger,
			name:   namePrefix + info.Name,
			icon:   info.Icon,
			now:    time.Now,
			state:  StateNone,
		},
		key: key,
	}
}

func (s *TypeSensor) Update(ctx context.Context) {
	s.refresh(ctx)

	sched, ok := s.reader.NextCollectionOf(s.key)
	if !ok {
		s.setState(StateNone)
		return
	}
	s.setState(displayState(sched.PickupDate, wasteapi.DateOnly(s.now())))
}

// displayState formats a pickup date relative to today: the plain date when
// more than a week out, weekday-qualified within the week, and "Tomorrow," /
// "Today," on the last two days.
func displayState(pickup, today time.Time) string {
	days := int(pickup.Sub(today).Hours() / 24)
	switch {
	case days < 0:
		return StateNone
	case days == 0:
		return "Today, " + pickup.Format(displayLayout)
	case days == 1:
		return "Tomorrow, " + pickup.Format(displayLayout)
	case days < 8:
		return pickup.Format("Monday, " + displayLayout)
	default:
		return pickup.Format(displayLayout)
	}
}

// DaySensor reports which trash type is collected today or tomorrow.
type DaySensor struct {
	baseSensor
	offset int
}

// NewTodaySensor creates a sensor answering "what is collected today".
func NewTodaySensor(reader ScheduleReader, logger *logrus.Logger) *DaySensor {
	return newDaySensor(reader, "Today", 0, logger)
}

// NewTomorrowSensor creates a sensor answering "what is collected tomorrow".
func NewTomorrowSensor(reader ScheduleReader, logger *logrus.Logger) *DaySensor {
	return newDaySensor(reader, "Tomorrow", 1, logger)
}

func newDaySensor(reader ScheduleReader, name string, offset int, logger *logrus.Logger) *DaySensor {
	return &DaySensor{
		baseSensor: baseSensor{
			reader: reader,
			logger: logger,
			name:   namePrefix + name,
			icon:   genericIcon,
			now:    time.Now,
			state:  StateNone,
		},
		offset: offset,
	}
}

func (s *DaySensor) Update(ctx context.Context) {
	s.refresh(ctx)

	sched, ok := s.reader.CollectionOn(s.now().AddDate(0, 0, s.offset))
	if !ok {
		s.setState(StateNone)
		return
	}
	s.setState(InfoFor(sched.TrashType).Name)
}

// ForResources builds the sensor set for the configured resource keys.
// TODAY and TOMORROW select the day variants; everything else becomes a
// by-type sensor.
func ForResources(reader ScheduleReader, resources []string, logger *logrus.Logger) []Sensor {
	sensors := make([]Sensor, 0, len(resources))
	for _, resource := range resources {
		switch strings.ToUpper(resource) {
		case "TODAY":
			sensors = append(sensors, NewTodaySensor(reader, logger))
		case "TOMORROW":
			sensors = append(sensors, NewTomorrowSensor(reader, logger))
		default:
			sensors = append(sensors, NewTypeSensor(reader, resource, logger))
		}
	}
	return sensors
}
