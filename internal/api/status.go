package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/markusressel/clevod/internal/controller"
)

// SnapshotProvider yields the current controller state.
type SnapshotProvider interface {
	Snapshot() controller.Snapshot
}

func registerStatusEndpoints(rest *echo.Echo, provider SnapshotProvider) {
	group := rest.Group("/status")

	group.GET("/", func(c echo.Context) error {
		return getStatus(c, provider)
	})
}

// returns the full controller snapshot
func getStatus(c echo.Context, provider SnapshotProvider) error {
	data := provider.Snapshot()
	return c.JSONPretty(http.StatusOK, data, indentationChar)
}
