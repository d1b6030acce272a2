package screening

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/gheop3s/gheop3s/internal/platform/auth"
)

func newTestHandler(t *testing.T) (*Handler, *echo.Echo) {
	t.Helper()
	h := NewHandler(newTestService(t))
	e := echo.New()
	return h, e
}

func TestHandler_Screen(t *testing.T) {
	h, e := newTestHandler(t)
	body := `{
		"age": 79,
		"gender": "male",
		"drugs": [
			{"drug": {"name": "Hydrochloorthiazide", "codes": ["C03AA03"]}, "selected_code": "C03AA03", "frequency": "chronic", "dosage": 25, "interval": "daily"},
			{"drug": {"name": "Allopurinol", "codes": ["M04AA01"]}, "selected_code": "M04AA01", "frequency": "chronic", "dosage": 300, "interval": "daily"}
		]
	}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Screen(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var res struct {
		ID        string        `json:"id"`
		Triggered []RuleSummary `json:"triggered"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if res.ID == "" {
		t.Error("expected screening id")
	}
	if len(res.Triggered) != 1 || res.Triggered[0].Code != "2.26" {
		t.Errorf("expected rule 2.26, got %+v", res.Triggered)
	}
}

func TestHandler_Screen_ContextErrors(t *testing.T) {
	tests := []struct {
		name   string
		ctx    func() (context.Context, context.CancelFunc)
		status int
	}{
		{"canceled", func() (context.Context, context.CancelFunc) {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			return ctx, cancel
		}, http.StatusServiceUnavailable},
		{"deadline", func() (context.Context, context.CancelFunc) {
			return context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
		}, http.StatusGatewayTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, e := newTestHandler(t)
			ctx, cancel := tt.ctx()
			defer cancel()
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"drugs": []}`)).WithContext(ctx)
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			err := h.Screen(e.NewContext(req, httptest.NewRecorder()))
			he, ok := err.(*echo.HTTPError)
			if !ok || he.Code != tt.status {
				t.Errorf("expected %d, got %v", tt.status, err)
			}
		})
	}
}

func TestScreenError(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{ErrNilInput, http.StatusBadRequest},
		{fmt.Errorf("screen: %w", context.DeadlineExceeded), http.StatusGatewayTimeout},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		he, ok := screenError(tt.err).(*echo.HTTPError)
		if !ok || he.Code != tt.status {
			t.Errorf("%v: expected %d, got %v", tt.err, tt.status, he)
		}
	}
}

func TestHandler_Screen_OmittedGender(t *testing.T) {
	h, e := newTestHandler(t)
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"age": 80, "drugs": []}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	if err := h.Screen(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 without gender, got %d", rec.Code)
	}
	var in Input
	if err := json.Unmarshal([]byte(`{"age": 80}`), &in); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if in.Gender != GenderMale {
		t.Errorf("expected omitted gender to decode as male, got %v", in.Gender)
	}
}

func TestHandler_Screen_BadRequest(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{"age":`},
		{"unknown interval", `{"drugs": [{"selected_code": "A", "interval": "sometimes"}]}`},
		{"unknown gender", `{"gender": "x"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, e := newTestHandler(t)
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			c := e.NewContext(req, httptest.NewRecorder())
			err := h.Screen(c)
			he, ok := err.(*echo.HTTPError)
			if !ok || he.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %v", err)
			}
		})
	}
}

func TestHandler_ListRules(t *testing.T) {
	h, e := newTestHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/?limit=2", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.ListRules(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var page struct {
		Data    []RuleSummary `json:"data"`
		Total   int           `json:"total"`
		HasMore bool          `json:"has_more"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if page.Total != 3 || len(page.Data) != 2 || !page.HasMore {
		t.Errorf("unexpected page %+v", page)
	}
}

func TestHandler_GetRule(t *testing.T) {
	h, e := newTestHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("code")
	c.SetParamValues("3.34")

	if err := h.GetRule(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"not":{"or":[`) {
		t.Errorf("expected encoded expression, got %s", rec.Body.String())
	}
}

func TestHandler_GetRule_NotFound(t *testing.T) {
	h, e := newTestHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetParamNames("code")
	c.SetParamValues("9.9")

	err := h.GetRule(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %v", err)
	}
}

func TestHandler_RoutesRequireRole(t *testing.T) {
	h, e := newTestHandler(t)
	withRoles := func(roles ...string) echo.MiddlewareFunc {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error {
				ctx := auth.WithIdentity(c.Request().Context(), "u", roles)
				c.SetRequest(c.Request().WithContext(ctx))
				return next(c)
			}
		}
	}

	e.Use(withRoles("receptionist"))
	h.RegisterRoutes(e.Group("/api/v1"))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/rules", nil))
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rec.Code)
	}

	e2 := echo.New()
	e2.Use(withRoles(auth.RolePharmacist))
	h.RegisterRoutes(e2.Group("/api/v1"))
	rec = httptest.NewRecorder()
	e2.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/rules/1.2", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}
