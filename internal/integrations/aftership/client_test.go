package aftership

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BearBump/ShipSync/internal/models"
	"github.com/stretchr/testify/require"
)

func newTestServer(h http.HandlerFunc) *httptest.Server {
	srv := httptest.NewServer(h)
	srv.Config.SetKeepAlivesEnabled(false)
	return srv
}

func TestClient_GetTracking_OK(t *testing.T) {
	srv := newTestServer(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/trackings/ups/1Z999", r.URL.Path)
		require.Equal(t, "k", r.Header.Get("aftership-api-key"))
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
  "meta": {"code": 200},
  "data": {
    "tracking": {
      "tag": "Delivered",
      "expected_delivery": "2024-01-01T00:00:00Z",
      "tracking_url": "https://x"
    }
  }
}`))
	})
	defer srv.Close()

	c := New(srv.URL, "k", time.Second)
	res, err := c.GetTracking(context.Background(), models.TrackingQuery{Slug: "ups", TrackingNumber: "1Z999"})
	require.NoError(t, err)
	require.Equal(t, "Delivered", res.Status)
	require.NotNil(t, res.ETA)
	require.Equal(t, "2024-01-01T00:00:00Z", *res.ETA)
	require.NotNil(t, res.URL)
	require.Equal(t, "https://x", *res.URL)
}

func TestClient_GetTracking_Fallbacks(t *testing.T) {
	srv := newTestServer(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"tracking":{"tag":"","expected_delivery":null}}}`))
	})
	defer srv.Close()

	c := New(srv.URL, "k", time.Second)
	res, err := c.GetTracking(context.Background(), models.TrackingQuery{Slug: "tnt", TrackingNumber: "N"})
	require.NoError(t, err)
	require.Equal(t, models.StatusInTransit, res.Status)
	require.Nil(t, res.ETA)
	require.Nil(t, res.URL)
}

func TestClient_GetTracking_HTTPError(t *testing.T) {
	srv := newTestServer(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	defer srv.Close()

	c := New(srv.URL, "k", time.Second)
	_, err := c.GetTracking(context.Background(), models.TrackingQuery{Slug: "ups", TrackingNumber: "1"})
	require.Error(t, err)

	var se *HTTPStatusError
	require.True(t, errors.As(err, &se))
	require.Equal(t, http.StatusInternalServerError, se.StatusCode)
	require.Contains(t, err.Error(), "500")
}

func TestClient_GetTracking_BadJSON(t *testing.T) {
	srv := newTestServer(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{`))
	})
	defer srv.Close()

	_, err := New(srv.URL, "k", time.Second).GetTracking(context.Background(), models.TrackingQuery{Slug: "ups", TrackingNumber: "1"})
	require.ErrorContains(t, err, "decode")
}

func TestClient_GetTracking_EscapesPath(t *testing.T) {
	srv := newTestServer(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v4/trackings/dhl/AB%2F12", r.URL.EscapedPath())
		_, _ = w.Write([]byte(`{"data":{"tracking":{"tag":"InTransit"}}}`))
	})
	defer srv.Close()

	res, err := New(srv.URL+"/v4/", "k", time.Second).GetTracking(context.Background(), models.TrackingQuery{Slug: "dhl", TrackingNumber: "AB/12"})
	require.NoError(t, err)
	require.Equal(t, "InTransit", res.Status)
}

func TestClient_Register_Accepted(t *testing.T) {
	srv := newTestServer(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/trackings", r.URL.Path)

		var body map[string]map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "ups", body["tracking"]["slug"])
		require.Equal(t, "1Z999", body["tracking"]["tracking_number"])

		w.WriteHeader(http.StatusCreated)
	})
	defer srv.Close()

	r := New(srv.URL, "k", time.Second).Register(context.Background(), models.TrackingQuery{Slug: "ups", TrackingNumber: "1Z999"})
	require.False(t, r.IsIgnored())
}

func TestClient_Register_IgnoredOnConflict(t *testing.T) {
	srv := newTestServer(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"meta":{"code":4003,"message":"Tracking already exists."}}`))
	})
	defer srv.Close()

	r := New(srv.URL, "k", time.Second).Register(context.Background(), models.TrackingQuery{Slug: "ups", TrackingNumber: "1Z999"})
	require.True(t, r.IsIgnored())
	require.ErrorContains(t, r.Reason, "400")
}

func TestClient_Register_IgnoredOnTransportError(t *testing.T) {
	srv := newTestServer(func(w http.ResponseWriter, r *http.Request) {})
	url := srv.URL
	srv.Close()

	r := New(url, "k", time.Second).Register(context.Background(), models.TrackingQuery{Slug: "ups", TrackingNumber: "1Z999"})
	require.True(t, r.IsIgnored())
	require.Error(t, r.Reason)
}
