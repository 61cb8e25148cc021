package server_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rvanloon/twentemilieu/internal/sensor"
	"github.com/rvanloon/twentemilieu/internal/server"
)

type fakeSensor struct {
	id          string
	name        string
	icon        string
	state       string
	lastUpdated time.Time
	updates     int
}

func (f *fakeSensor) EntityID() string          { return f.id }
func (f *fakeSensor) Name() string              { return f.name }
func (f *fakeSensor) Icon() string              { return f.icon }
func (f *fakeSensor) State() string             { return f.state }
func (f *fakeSensor) LastUpdated() time.Time    { return f.lastUpdated }
func (f *fakeSensor) Update(ctx context.Context) { f.updates++ }

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestService() (*server.SensorService, []*fakeSensor) {
	sensors := []*fakeSensor{
		{
			id:          "twentemilieu_restafval",
			name:        "Twentemilieu Restafval",
			icon:        "mdi:recycle",
			state:       "Tomorrow, 02-03-2024",
			lastUpdated: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			id:    "twentemilieu_today",
			name:  "Twentemilieu Today",
			icon:  "mdi:recycle",
			state: sensor.StateNone,
		},
	}

	svc := server.NewSensorService([]sensor.Sensor{sensors[0], sensors[1]}, testLogger())
	return svc, sensors
}

func TestListSensors(t *testing.T) {
	svc, sensors := newTestService()
	srv := httptest.NewServer(svc.Routes())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/sensors")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var entities []server.Entity
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&entities))
	require.Len(t, entities, 2)

	assert.Equal(t, "twentemilieu_restafval", entities[0].EntityID)
	assert.Equal(t, "Tomorrow, 02-03-2024", entities[0].State)
	assert.Equal(t, "Twentemilieu Restafval", entities[0].Attributes.FriendlyName)
	assert.Equal(t, "mdi:recycle", entities[0].Attributes.Icon)
	assert.Equal(t, "2024-03-01T00:00:00Z", entities[0].LastUpdated)

	// A sensor that never refreshed has no last_updated.
	assert.Equal(t, sensor.StateNone, entities[1].State)
	assert.Empty(t, entities[1].LastUpdated)

	// Every sensor gets updated exactly once per list request.
	assert.Equal(t, 1, sensors[0].updates)
	assert.Equal(t, 1, sensors[1].updates)
}

func TestGetSensor(t *testing.T) {
	svc, sensors := newTestService()
	srv := httptest.NewServer(svc.Routes())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/sensors/twentemilieu_today")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var entity server.Entity
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&entity))
	assert.Equal(t, "twentemilieu_today", entity.EntityID)
	assert.Equal(t, 1, sensors[1].updates)
	assert.Equal(t, 0, sensors[0].updates)
}

func TestGetUnknownSensor(t *testing.T) {
	svc, _ := newTestService()
	srv := httptest.NewServer(svc.Routes())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/sensors/twentemilieu_nope")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHealthz(t *testing.T) {
	svc, _ := newTestService()
	srv := httptest.NewServer(svc.Routes())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
