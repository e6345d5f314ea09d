package sentiment

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestFearGreedCollector_Collect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[{"value":"65","value_classification":"Greed","timestamp":"1700000000"}]}`))
	}))
	defer srv.Close()

	c := NewWithBaseURL(srv.URL, srv.Client(), zerolog.Nop())

	points, err := c.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, points, 1)
	require.Equal(t, "fear_greed_index", points[0].DataType)
	require.Equal(t, "65", points[0].Value.String())
}

func TestFearGreedCollector_EmptyData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	c := NewWithBaseURL(srv.URL, srv.Client(), zerolog.Nop())

	points, err := c.Collect(context.Background())
	require.NoError(t, err)
	require.Empty(t, points)
}

func TestFearGreedCollector_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewWithBaseURL(srv.URL, srv.Client(), zerolog.Nop())

	_, err := c.Collect(context.Background())
	require.Error(t, err)
}
