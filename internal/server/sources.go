package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/spigell/jobfit/internal/ats"
)

type SourceResponse struct {
	Supported bool       `json:"supported"`
	Source    ats.Source `json:"source,omitempty"`
}

// SourcesHandler reports whether a board URL is served by a known provider.
type SourcesHandler struct{}

func (h *SourcesHandler) Register(g *echo.Group) {
	g.GET("/sources", h.detect)
}

func (h *SourcesHandler) detect(c echo.Context) error {
	boardURL := c.QueryParam("url")
	if boardURL == "" {
		return newAPIError(http.StatusBadRequest, "ValidationError", "url query parameter is required")
	}

	source, ok := ats.DetectSource(boardURL)
	return c.JSON(http.StatusOK, SourceResponse{Supported: ok, Source: source})
}
