package handler

import (
	"net/http"

	"bias-tracker/metrics"

	"github.com/labstack/echo/v4"
)

// MetricsHandler exposes the in-process metrics collector.
type MetricsHandler struct {
	collector *metrics.Collector
}

// NewMetricsHandler creates a new metrics handler.
func NewMetricsHandler(collector *metrics.Collector) *MetricsHandler {
	return &MetricsHandler{collector: collector}
}

// JSON handles GET /metrics.
func (h *MetricsHandler) JSON(c echo.Context) error {
	data, err := h.collector.ExportJSON()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to export metrics")
	}

	return c.JSONBlob(http.StatusOK, data)
}

// Prometheus handles GET /metrics/prometheus.
func (h *MetricsHandler) Prometheus(c echo.Context) error {
	return c.String(http.StatusOK, h.collector.ExportPrometheus())
}
