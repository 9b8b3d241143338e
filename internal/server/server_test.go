package server_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EightfoldWitch/the-hermit/internal/server"
)

func TestNew_Health(t *testing.T) {
	e := server.New(prometheus.NewRegistry(), false)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())

	_, err := uuid.Parse(rec.Header().Get(echo.HeaderXRequestID))
	assert.NoError(t, err, "request id should be a uuid")
}

func TestNew_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "hermit_test_total", Help: "test"})
	require.NoError(t, reg.Register(counter))
	counter.Inc()
	e := server.New(reg, false)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "hermit_test_total 1")
}

func TestNew_RecoversPanics(t *testing.T) {
	e := server.New(prometheus.NewRegistry(), false)
	e.GET("/boom", func(c echo.Context) error {
		panic("tower struck")
	})

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestNew_ClientIP(t *testing.T) {
	tests := []struct {
		name       string
		trustProxy bool
		remoteAddr string
		want       string
	}{
		{"DirectIgnoresForwardedHeaders", false, "10.0.0.2:5555", "10.0.0.2"},
		{"TrustedProxyForwards", true, "10.0.0.2:5555", "203.0.113.9"},
		{"UntrustedPeerIgnored", true, "198.51.100.4:5555", "198.51.100.4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := server.New(prometheus.NewRegistry(), tt.trustProxy)
			e.GET("/ip", func(c echo.Context) error {
				return c.String(http.StatusOK, c.RealIP())
			})

			req := httptest.NewRequest(http.MethodGet, "/ip", nil)
			req.RemoteAddr = tt.remoteAddr
			req.Header.Set(echo.HeaderXForwardedFor, "203.0.113.9")
			req.Header.Set(echo.HeaderXRealIP, "203.0.113.9")
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Body.String())
		})
	}
}
