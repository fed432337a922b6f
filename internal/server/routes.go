package server

import (
	"fmt"
	"net/http"

	"github.com/CreasolTech/pzem2mqtt/internal/core/domain"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

type pollStatus struct {
	Cycles     uint64              `json:"cycles"`
	LastReport *domain.CycleReport `json:"last_report,omitempty"`
}

func (s *Server) RegisterRoutes() http.Handler {
	e := echo.New()
	e.HideBanner = true
	if s.httpLog {
		e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
			LogURI:     true,
			LogStatus:  true,
			LogMethod:  true,
			LogLatency: true,
			LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
				s.logger.Info("http request", zap.String("method", v.Method), zap.String("uri", v.URI),
					zap.Int("status", v.Status), zap.Duration("latency", v.Latency))
				return nil
			},
		}))
	}
	e.Use(middleware.Recover())

	e.GET("/healthcheck", s.HealthCheckHandler)
	e.GET("/status", s.StatusHandler)

	return e
}

func (s *Server) HealthCheckHandler(c echo.Context) error {
	res, err := s.askMaster(domain.ActorHealthRequest{})
	if err != nil {
		return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
	}
	response, ok := res.(domain.ActorHealthResponse)
	switch {
	case ok && response.Healthy:
		return c.String(http.StatusOK, "health_check: OK")
	case ok && response.State != "":
		return c.String(http.StatusServiceUnavailable, fmt.Sprintf("health_check: FAIL (%s)", response.State))
	default:
		return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
	}
}

func (s *Server) StatusHandler(c echo.Context) error {
	res, err := s.askMaster(domain.GetPollStatusRequest{})
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}
	response, ok := res.(domain.GetPollStatusResponse)
	if !ok {
		return echo.NewHTTPError(http.StatusInternalServerError, "unexpected response")
	}
	return c.JSON(http.StatusOK, pollStatus{
		Cycles:     response.Cycles,
		LastReport: response.LastReport,
	})
}
