package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestReverseGeocode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/reverse", r.URL.Path)
		assert.Equal(t, "53.4808", r.URL.Query().Get("lat"))
		assert.Equal(t, "-2.2426", r.URL.Query().Get("lon"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"display_name":"12 Market Street, Manchester, England, M1 1PT, United Kingdom"}`))
	}))
	defer srv.Close()

	client := NewNominatim(srv.URL, zap.NewNop())
	address, err := client.ReverseGeocode(context.Background(), 53.4808, -2.2426)
	require.NoError(t, err)
	assert.Equal(t, "12 Market Street, Manchester, England, M1 1PT, United Kingdom", address)
}

func TestReverseGeocodeErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewNominatim(srv.URL, zap.NewNop())
	_, err := client.ReverseGeocode(context.Background(), 53.4808, -2.2426)
	require.Error(t, err)
}
