package drugref

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/gheop3s/gheop3s/internal/domain/screening"
	"github.com/gheop3s/gheop3s/internal/platform/auth"
	"github.com/gheop3s/gheop3s/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/drugs", auth.RequireRole(auth.ClinicalRoles...))
	g.GET("", h.SearchDrugs)
	g.GET("/:code", h.GetDrug)
	g.POST("/:code/entry", h.BuildEntry)
	g.POST("/import", h.Import, auth.RequireRole(auth.RoleAdmin))
}

// SearchDrugs serves both the paginated listing (no q) and name or code
// search (q set, limited by limit).
func (h *Handler) SearchDrugs(c echo.Context) error {
	ctx := c.Request().Context()
	q := c.QueryParam("q")
	if q == "" {
		pg := pagination.FromContext(c)
		items, total, err := h.svc.List(ctx, pg.Limit, pg.Offset)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, pagination.NewResponse(nonNil(items), total, pg.Limit, pg.Offset))
	}

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit > pagination.MaxLimit {
		limit = pagination.MaxLimit
	}
	items, err := h.svc.Search(ctx, q, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": nonNil(items)})
}

func (h *Handler) GetDrug(c echo.Context) error {
	p, err := h.svc.Get(c.Request().Context(), c.Param("code"))
	if err != nil {
		return drugError(err)
	}
	return c.JSON(http.StatusOK, p)
}

type entryRequest struct {
	Dosage    float64                  `json:"dosage"`
	Interval  screening.DosageInterval `json:"interval"`
	Frequency screening.Frequency      `json:"frequency"`
}

func (h *Handler) BuildEntry(c echo.Context) error {
	var req entryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	entry, err := h.svc.EntryFor(c.Request().Context(), c.Param("code"), req.Dosage, req.Interval, req.Frequency)
	if err != nil {
		return drugError(err)
	}
	return c.JSON(http.StatusOK, entry)
}

func (h *Handler) Import(c echo.Context) error {
	n, err := h.svc.Import(c.Request().Context(), c.Request().Body)
	if err != nil {
		var ie *ImportError
		var he *echo.HTTPError
		switch {
		case errors.As(err, &ie):
			return echo.NewHTTPError(http.StatusBadRequest, ie.Error())
		case errors.As(err, &he):
			// Raised by the body limit while the file is read.
			return he
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]int{"imported": n})
}

func drugError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "drug product not found")
	case errors.Is(err, ErrInvalidCode), errors.Is(err, ErrInvalidDosage), errors.Is(err, ErrInvalidInterval):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}

func nonNil(items []*Product) []*Product {
	if items == nil {
		return []*Product{}
	}
	return items
}
