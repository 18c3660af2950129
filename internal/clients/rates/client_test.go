package rates

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchRatesSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/USD", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"rates":{"EUR":0.92,"INR":83.10}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	ratesMap, err := client.FetchRates(context.Background(), "USD")
	require.NoError(t, err)

	assert.True(t, ratesMap["EUR"].Equal(decimal.RequireFromString("0.92")))
	assert.True(t, ratesMap["INR"].Equal(decimal.RequireFromString("83.10")))
}

func TestFetchRatesNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.FetchRates(context.Background(), "USD")
	assert.ErrorContains(t, err, "status 502")
}

func TestFetchRatesMalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.FetchRates(context.Background(), "USD")
	assert.Error(t, err)
}

func TestFetchRatesEmptyRates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"rates":{}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.FetchRates(context.Background(), "USD")
	assert.ErrorContains(t, err, "no rates")
}
