package wasteapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()

	cfg := DefaultClientConfig()
	cfg.BaseURL = baseURL
	cfg.RateLimit = 100
	cfg.RateLimitBurst = 100

	client, err := NewClient(cfg, testLogger())
	require.NoError(t, err)
	return client
}

func TestResolveAddress(t *testing.T) {
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/FetchAdress", r.URL.Path)

		require.NoError(t, r.ParseForm())
		assert.Equal(t, companyCode, r.PostFormValue("companyCode"))
		assert.Equal(t, "7500AA", r.PostFormValue("postCode"))
		assert.Equal(t, "42", r.PostFormValue("houseNumber"))
		assert.Equal(t, userAgent, r.Header.Get("User-Agent"))
		assert.Equal(t, referer, r.Header.Get("Referer"))

		w.Write([]byte(`{"dataList":[{"UniqueId":"addr-42"}]}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	id, err := client.ResolveAddress(context.Background(), "7500AA", "42")
	require.NoError(t, err)
	assert.Equal(t, "addr-42", id)

	// Second lookup for the same address is served from the LRU cache.
	id, err = client.ResolveAddress(context.Background(), "7500AA", "42")
	require.NoError(t, err)
	assert.Equal(t, "addr-42", id)
	assert.Equal(t, 1, requests)
}

func TestResolveAddressNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Upstream answers 200 with an empty result set for unknown addresses.
		w.Write([]byte(`{"dataList":[]}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	_, err := client.ResolveAddress(context.Background(), "0000XX", "1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAddressNotFound))
	assert.False(t, errors.Is(err, ErrRequest))
}

func TestResolveAddressBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream broken", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	_, err := client.ResolveAddress(context.Background(), "7500AA", "42")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStatus))
}

func TestResolveAddressMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>definitely not json</html>`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	_, err := client.ResolveAddress(context.Background(), "7500AA", "42")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrParse))
}

func TestFetchCalendar(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/GetCalendar", r.URL.Path)

		require.NoError(t, r.ParseForm())
		assert.Equal(t, companyCode, r.PostFormValue("companyCode"))
		assert.Equal(t, "addr-42", r.PostFormValue("uniqueAddressId"))
		assert.Equal(t, "2024-03-01", r.PostFormValue("startDate"))
		assert.Equal(t, "2024-03-31", r.PostFormValue("endDate"))

		w.Write([]byte(`{"dataList":[{"_pickupTypeText":"GREY","pickupDates":["2024-03-05T00:00:00"]}]}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	cal, err := client.FetchCalendar(context.Background(), "addr-42", start, start.AddDate(0, 0, 30))
	require.NoError(t, err)
	require.Len(t, cal.DataList, 1)
	assert.Equal(t, "GREY", cal.DataList[0].PickupTypeText)
	assert.Equal(t, []string{"2024-03-05T00:00:00"}, cal.DataList[0].PickupDates)
}

func TestPostTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	client := newTestClient(t, srv.URL)

	_, err := client.FetchCalendar(context.Background(), "addr-42", time.Now(), time.Now().AddDate(0, 0, 30))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRequest))
}
