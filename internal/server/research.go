package server

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/mohammad-safakhou/insight/internal/agent/core"
)

type ResearchHandler struct {
	Orchestrator *core.Orchestrator
}

func (h *ResearchHandler) Register(g *echo.Group) {
	g.POST("", h.research)
}

// research runs one full research loop synchronously and returns the
// terminal run state. Long queries are expected; the request context
// carries the client's deadline into every provider and model call.
func (h *ResearchHandler) research(c echo.Context) error {
	var req struct {
		Query string `json:"query"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(req.Query) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query required")
	}

	state := h.Orchestrator.Run(c.Request().Context(), req.Query)
	return c.JSON(http.StatusOK, state)
}
