package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/markusressel/clevod/internal/controller"
	"github.com/markusressel/clevod/internal/persistence"
)

const (
	urlParamLimit       = "limit"
	defaultHistoryLimit = 100
)

// HistoryProvider yields persisted telemetry. May be nil when
// persistence is disabled.
type HistoryProvider interface {
	LoadRecentSamples(limit int) ([]controller.Sample, error)
	LoadRecentTunings(limit int) ([]persistence.TuningRecord, error)
}

func registerHistoryEndpoints(rest *echo.Echo, history HistoryProvider) {
	group := rest.Group("/history")

	group.GET("/samples/", func(c echo.Context) error {
		return getSampleHistory(c, history)
	})
	group.GET("/tunings/", func(c echo.Context) error {
		return getTuningHistory(c, history)
	})
}

// returns recently persisted samples, newest first
func getSampleHistory(c echo.Context, history HistoryProvider) error {
	if history == nil {
		return returnHistoryDisabled(c)
	}
	samples, err := history.LoadRecentSamples(historyLimit(c))
	if err != nil {
		return returnError(c, err)
	}
	return c.JSONPretty(http.StatusOK, samples, indentationChar)
}

// returns recently persisted tuning passes, newest first
func getTuningHistory(c echo.Context, history HistoryProvider) error {
	if history == nil {
		return returnHistoryDisabled(c)
	}
	records, err := history.LoadRecentTunings(historyLimit(c))
	if err != nil {
		return returnError(c, err)
	}
	return c.JSONPretty(http.StatusOK, records, indentationChar)
}

func historyLimit(c echo.Context) int {
	limit, err := strconv.Atoi(c.QueryParam(urlParamLimit))
	if err != nil || limit <= 0 {
		return defaultHistoryLimit
	}
	return limit
}

func returnHistoryDisabled(c echo.Context) error {
	return c.JSONPretty(http.StatusNotFound, &Result{
		Name:    "Not found",
		Message: "Telemetry persistence is disabled",
	}, indentationChar)
}
