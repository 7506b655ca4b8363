package version

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Handler provides REST endpoints for version resolution.
type Handler struct {
	svc *Service
}

// NewHandler creates a new version handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes registers version routes on the API group.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	ccsr := api.Group("/ccsr")
	ccsr.GET("/:family/latest", h.Latest)
	ccsr.GET("/:family/versions", h.Versions)
	ccsr.GET("/:family/versions/:version", h.Resolve)
}

// tagResponse is the JSON rendering of a resolved tag.
type tagResponse struct {
	Family  Family `json:"family"`
	Version string `json:"version"`
	Year    int    `json:"year"`
	Minor   int    `json:"minor"`
	File    string `json:"file_version"`
}

func toTagResponse(t Tag) tagResponse {
	return tagResponse{
		Family:  t.Family,
		Version: t.String(),
		Year:    t.Year,
		Minor:   t.Minor,
		File:    t.FileVersion(),
	}
}

// Latest handles GET /api/v1/ccsr/:family/latest?refresh=true.
func (h *Handler) Latest(c echo.Context) error {
	force := c.QueryParam("refresh") == "true"
	return h.resolve(c, "latest", force)
}

// Resolve handles GET /api/v1/ccsr/:family/versions/:version, validating an
// explicit tag and rendering its canonical and file forms.
func (h *Handler) Resolve(c echo.Context) error {
	return h.resolve(c, c.Param("version"), false)
}

func (h *Handler) resolve(c echo.Context, requested string, force bool) error {
	tag, err := h.svc.Resolve(c.Request().Context(), c.Param("family"), requested, force)
	if err != nil {
		if errors.Is(err, ErrUnknownFamily) || errors.Is(err, ErrInvalidVersionFormat) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	return c.JSON(http.StatusOK, toTagResponse(tag))
}

// Versions handles GET /api/v1/ccsr/:family/versions?refresh=true.
func (h *Handler) Versions(c echo.Context) error {
	force := c.QueryParam("refresh") == "true"

	tags, err := h.svc.List(c.Request().Context(), c.Param("family"), force)
	if err != nil {
		if errors.Is(err, ErrUnknownFamily) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		if errors.Is(err, ErrNoVersionFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}

	out := make([]tagResponse, 0, len(tags))
	for _, t := range tags {
		out = append(out, toTagResponse(t))
	}
	return c.JSON(http.StatusOK, out)
}
