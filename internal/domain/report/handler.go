package report

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/vikrant31/HCUPtools/internal/domain/version"
	"github.com/vikrant31/HCUPtools/internal/platform/tabular"
)

// Handler provides REST endpoints for report workbooks.
type Handler struct {
	svc *Service
}

// NewHandler creates a new report handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes registers report routes on the API group.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	reports := api.Group("/reports")
	reports.GET("/:family/:version/sheets", h.Sheets)
	reports.GET("/:family/:version", h.Sheet)
}

// SheetResponse is the response body for a parsed workbook sheet.
type SheetResponse struct {
	Family  version.Family `json:"family"`
	Version string         `json:"version"`
	Sheet   string         `json:"sheet,omitempty"`
	Table   *tabular.Table `json:"table"`
}

// Sheets handles GET /api/v1/reports/:family/:version/sheets.
func (h *Handler) Sheets(c echo.Context) error {
	fam, err := version.ParseFamily(c.Param("family"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	force := c.QueryParam("refresh") == "true"

	sheets, tag, err := h.svc.Sheets(c.Request().Context(), fam, c.Param("version"), force)
	if err != nil {
		return reportError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"family":  fam,
		"version": tag.String(),
		"sheets":  sheets,
	})
}

// Sheet handles GET /api/v1/reports/:family/:version?sheet=....
func (h *Handler) Sheet(c echo.Context) error {
	fam, err := version.ParseFamily(c.Param("family"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	force := c.QueryParam("refresh") == "true"

	table, tag, err := h.svc.Sheet(c.Request().Context(), fam, c.Param("version"), c.QueryParam("sheet"), force)
	if err != nil {
		return reportError(err)
	}
	return c.JSON(http.StatusOK, SheetResponse{
		Family:  fam,
		Version: tag.String(),
		Sheet:   c.QueryParam("sheet"),
		Table:   table,
	})
}

func reportError(err error) error {
	if errors.Is(err, version.ErrInvalidVersionFormat) || errors.Is(err, version.ErrUnknownFamily) {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return echo.NewHTTPError(http.StatusBadGateway, err.Error())
}
