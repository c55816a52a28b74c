package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/khdiyz/image-gateway/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterExposesCollectors(t *testing.T) {
	metrics.Register()
	require.NotPanics(t, metrics.Register)

	metrics.RequestCounter.WithLabelValues("/imagegateway.v1.ImageGateway/Upload", "OK").Inc()
	metrics.RequestDuration.WithLabelValues("/imagegateway.v1.ImageGateway/Upload").Observe(0.01)
	metrics.ValidationRejections.WithLabelValues("type").Inc()
	metrics.UploadedBytes.Add(4)

	families, err := metrics.GetRegistry().Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	for _, want := range []string{
		"image_gateway_requests_total",
		"image_gateway_request_duration_seconds",
		"image_gateway_uploaded_bytes_total",
		"image_gateway_validation_rejections_total",
		"go_goroutines",
	} {
		assert.True(t, names[want], "missing %s", want)
	}
}

func TestHandlerServesRegistry(t *testing.T) {
	metrics.Register()
	metrics.UploadedBytes.Add(1)

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "image_gateway_uploaded_bytes_total")
}
