package mapping

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/vikrant31/HCUPtools/internal/domain/version"
	"github.com/vikrant31/HCUPtools/internal/platform/tabular"
)

// Handler provides REST endpoints for the mapping engine.
type Handler struct {
	svc *Service
}

// NewHandler creates a new mapping handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes registers mapping routes on the API group.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	ccsr := api.Group("/ccsr")
	ccsr.POST("/map", h.Map)
	ccsr.POST("/infer", h.Infer)
}

// MapRequest is the request body of POST /api/v1/ccsr/map. The mapping
// table is either supplied inline or fetched for (family, version).
type MapRequest struct {
	Records    *tabular.Table `json:"records"`
	CodeColumn string         `json:"code_column"`
	Mapping    *tabular.Table `json:"mapping,omitempty"`
	Family     string         `json:"family,omitempty"`
	Version    string         `json:"version,omitempty"`
	Refresh    bool           `json:"refresh,omitempty"`
	Options
}

// MapResponse is the response body of POST /api/v1/ccsr/map.
type MapResponse struct {
	Table     *tabular.Table `json:"table"`
	Family    version.Family `json:"family"`
	Version   string         `json:"version,omitempty"`
	Roles     ColumnRoles    `json:"roles"`
	Unmatched int            `json:"unmatched"`
}

// Map handles POST /api/v1/ccsr/map.
func (h *Handler) Map(c echo.Context) error {
	var req MapRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Records == nil || len(req.Records.Columns) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "records table is required")
	}
	if req.CodeColumn == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "code_column is required")
	}

	var fam version.Family
	if req.Family != "" {
		var err error
		if fam, err = version.ParseFamily(req.Family); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}

	resp := MapResponse{}
	if req.Mapping != nil {
		opts := req.Options
		if opts.Family == "" {
			opts.Family = fam
		}
		res, err := h.svc.MapCodes(req.Records, req.CodeColumn, &Table{Family: fam, Data: req.Mapping}, opts)
		if err != nil {
			return mapError(err)
		}
		resp.Table, resp.Family, resp.Roles, resp.Unmatched = res.Table, res.Family, res.Roles, res.Unmatched
	} else {
		if fam == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "family is required when no inline mapping table is supplied")
		}
		res, tag, err := h.svc.MapAgainstVersion(c.Request().Context(), req.Records, req.CodeColumn, fam, req.Version, req.Refresh, req.Options)
		if err != nil {
			return mapError(err)
		}
		resp.Table, resp.Family, resp.Roles, resp.Unmatched = res.Table, res.Family, res.Roles, res.Unmatched
		resp.Version = tag.String()
	}
	return c.JSON(http.StatusOK, resp)
}

// InferRequest is the request body of POST /api/v1/ccsr/infer.
type InferRequest struct {
	Mapping     *tabular.Table `json:"mapping"`
	Family      string         `json:"family,omitempty"`
	WantDefault bool           `json:"want_default"`
}

// InferResponse is the response body of POST /api/v1/ccsr/infer.
type InferResponse struct {
	Family   version.Family `json:"family"`
	Inferred bool           `json:"family_inferred"`
	Roles    ColumnRoles    `json:"roles"`
}

// Infer handles POST /api/v1/ccsr/infer: resolve column roles (and family,
// when undeclared) for a mapping table without performing a join.
func (h *Handler) Infer(c echo.Context) error {
	var req InferRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Mapping == nil || len(req.Mapping.Columns) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "mapping table is required")
	}

	resp := InferResponse{}
	if req.Family != "" {
		fam, err := version.ParseFamily(req.Family)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		resp.Family = fam
	} else {
		resp.Family, _ = InferFamily(req.Mapping)
		resp.Inferred = true
	}

	roles, err := h.svc.InferColumns(req.Mapping, resp.Family, req.WantDefault)
	if err != nil {
		return mapError(err)
	}
	resp.Roles = roles
	return c.JSON(http.StatusOK, resp)
}

// mapError translates engine errors to HTTP errors: caller mistakes are
// 400s with the specific role or format named, upstream trouble is a 502.
func mapError(err error) error {
	var cnf *ColumnNotFoundError
	switch {
	case errors.As(err, &cnf),
		errors.Is(err, ErrInvalidMapping),
		errors.Is(err, ErrInvalidOutputFormat),
		errors.Is(err, version.ErrInvalidVersionFormat),
		errors.Is(err, version.ErrUnknownFamily):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
}
