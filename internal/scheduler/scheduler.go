package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/rvanloon/twentemilieu/internal/sensor"
)

type Scheduler struct {
	ctx     context.Context
	sensors []sensor.Sensor
	logger  *logrus.Logger
	cron    *cron.Cron
}

func NewScheduler(ctx context.Context, sensors []sensor.Sensor, logger *logrus.Logger) *Scheduler {
	return &Scheduler{
		ctx:     ctx,
		sensors: sensors,
		logger:  logger,
		cron:    cron.New(),
	}
}

// Start the scheduler
func (s *Scheduler) Start() error {
	// Update sensors hourly. The reader's once-per-day watermark keeps the
	// extra runs off the network; they only re-derive display states, which
	// shift at midnight ("Tomorrow" becomes "Today").
	_, err := s.cron.AddFunc("0 * * * *", s.updateSensors)
	if err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// updateSensors refreshes the schedule and recomputes every sensor state.
func (s *Scheduler) updateSensors() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	for _, sn := range s.sensors {
		sn.Update(ctx)
	}
	s.logger.WithField("sensors", len(s.sensors)).Debug("sensor states updated")
}

// Stop the scheduler
func (s *Scheduler) Stop() {
	s.cron.Stop()
}
