package screening

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

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
	g := api.Group("", auth.RequireRole(auth.ClinicalRoles...))
	g.POST("/screenings", h.Screen)
	g.GET("/rules", h.ListRules)
	g.GET("/rules/:code", h.GetRule)
}

func (h *Handler) Screen(c echo.Context) error {
	var in Input
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	res, err := h.svc.Screen(c.Request().Context(), &in, SourceAPI)
	if err != nil {
		return screenError(err)
	}
	return c.JSON(http.StatusOK, res)
}

func screenError(err error) error {
	switch {
	case errors.Is(err, ErrNilInput):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return echo.NewHTTPError(http.StatusGatewayTimeout, "screening timed out")
	case errors.Is(err, context.Canceled):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "request canceled")
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}

func (h *Handler) ListRules(c echo.Context) error {
	pg := pagination.FromContext(c)
	rules, total := h.svc.ListRules(pg.Limit, pg.Offset)
	items := make([]RuleSummary, 0, len(rules))
	for _, r := range rules {
		items = append(items, Summarize(r))
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetRule(c echo.Context) error {
	r, err := h.svc.GetRule(c.Param("code"))
	if errors.Is(err, ErrRuleNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "rule not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, r)
}
