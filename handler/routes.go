package handler

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes mounts all read-only endpoints on the echo instance.
func RegisterRoutes(e *echo.Echo, query *QueryHandler, health *HealthHandler, metricsH *MetricsHandler) {
	e.GET("/v1/health", health.Health)

	e.GET("/v1/judgments", query.ListJudgments)
	e.GET("/v1/authors/:key", query.GetAuthor)
	e.GET("/v1/topics/:id/ranking", query.GetTopicRanking)
	e.GET("/v1/topics/:id/stats", query.GetTopicStats)

	e.GET("/metrics", metricsH.JSON)
	e.GET("/metrics/prometheus", metricsH.Prometheus)
}
