package cdshooks

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

// ---------------------------------------------------------------------------
// CDS Hooks 2.0 types
// ---------------------------------------------------------------------------

// Service describes a single CDS service returned in discovery.
type Service struct {
	Hook              string            `json:"hook"`
	Title             string            `json:"title,omitempty"`
	Description       string            `json:"description"`
	ID                string            `json:"id"`
	Prefetch          map[string]string `json:"prefetch,omitempty"`
	UsageRequirements string            `json:"usageRequirements,omitempty"`
}

// Request is the payload POSTed to invoke a hook.
type Request struct {
	Hook         string                     `json:"hook"`
	HookInstance string                     `json:"hookInstance"`
	FHIRServer   string                     `json:"fhirServer,omitempty"`
	Context      map[string]json.RawMessage `json:"context"`
	Prefetch     map[string]json.RawMessage `json:"prefetch,omitempty"`
}

// Card is a single card in the hook response.
type Card struct {
	UUID              string       `json:"uuid,omitempty"`
	Summary           string       `json:"summary"`
	Detail            string       `json:"detail,omitempty"`
	Indicator         string       `json:"indicator"`
	Source            Source       `json:"source"`
	Suggestions       []Suggestion `json:"suggestions,omitempty"`
	Links             []Link       `json:"links,omitempty"`
	OverrideReasons   []Coding     `json:"overrideReasons,omitempty"`
	SelectionBehavior string       `json:"selectionBehavior,omitempty"`
}

// Card indicators.
const (
	IndicatorInfo     = "info"
	IndicatorWarning  = "warning"
	IndicatorCritical = "critical"
)

// Source identifies the source of a card.
type Source struct {
	Label string  `json:"label"`
	URL   string  `json:"url,omitempty"`
	Topic *Coding `json:"topic,omitempty"`
}

// Suggestion is a suggested action within a card.
type Suggestion struct {
	Label         string `json:"label"`
	UUID          string `json:"uuid,omitempty"`
	IsRecommended bool   `json:"isRecommended,omitempty"`
}

// Link is an external link within a card.
type Link struct {
	Label string `json:"label"`
	URL   string `json:"url"`
	Type  string `json:"type"`
}

// Coding is a code/system/display triple used in CDS Hooks.
type Coding struct {
	Code    string `json:"code"`
	System  string `json:"system,omitempty"`
	Display string `json:"display,omitempty"`
}

// Response is returned from hook invocation.
type Response struct {
	Cards []Card `json:"cards"`
}

// Feedback outcomes.
const (
	OutcomeAccepted   = "accepted"
	OutcomeOverridden = "overridden"
)

// Feedback records what the user did with a card.
type Feedback struct {
	Card             string   `json:"card"`
	Outcome          string   `json:"outcome"`
	OverrideReasons  []Coding `json:"overrideReasons,omitempty"`
	OutcomeTimestamp string   `json:"outcomeTimestamp,omitempty"`
}

// ---------------------------------------------------------------------------
// Handler function types
// ---------------------------------------------------------------------------

// ServiceHandler processes a CDS hook request and returns cards.
type ServiceHandler func(ctx context.Context, req Request) (*Response, error)

// FeedbackHandler processes feedback for a service.
type FeedbackHandler func(ctx context.Context, serviceID string, fb Feedback) error

// RequestError marks a ServiceHandler or FeedbackHandler failure caused by
// the caller's request; it is answered with 400 instead of 500.
type RequestError struct {
	Err error
}

func (e *RequestError) Error() string { return e.Err.Error() }
func (e *RequestError) Unwrap() error { return e.Err }

// ---------------------------------------------------------------------------
// Handler
// ---------------------------------------------------------------------------

// Handler implements the CDS Hooks 2.0 REST API. Services are registered
// at startup; the maps are read-only once routes are served.
type Handler struct {
	services         map[string]Service
	handlers         map[string]ServiceHandler
	feedbackHandlers map[string]FeedbackHandler
	order            []string
}

func NewHandler() *Handler {
	return &Handler{
		services:         make(map[string]Service),
		handlers:         make(map[string]ServiceHandler),
		feedbackHandlers: make(map[string]FeedbackHandler),
	}
}

// RegisterService registers a CDS service and its handler.
func (h *Handler) RegisterService(svc Service, handler ServiceHandler) {
	if _, exists := h.services[svc.ID]; !exists {
		h.order = append(h.order, svc.ID)
	}
	h.services[svc.ID] = svc
	h.handlers[svc.ID] = handler
}

// RegisterFeedbackHandler registers an optional feedback handler for a service.
func (h *Handler) RegisterFeedbackHandler(serviceID string, handler FeedbackHandler) {
	h.feedbackHandlers[serviceID] = handler
}

// RegisterRoutes registers CDS Hooks routes on the root Echo instance. mw
// guards hook invocation and feedback; discovery stays open.
func (h *Handler) RegisterRoutes(e *echo.Echo, mw ...echo.MiddlewareFunc) {
	g := e.Group("/cds-services")
	g.GET("", h.Discovery)
	g.POST("/:id", h.HandleHook, mw...)
	g.POST("/:id/feedback", h.HandleFeedback, mw...)
}

func errorBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}

// Discovery handles GET /cds-services.
func (h *Handler) Discovery(c echo.Context) error {
	services := make([]Service, 0, len(h.order))
	for _, id := range h.order {
		if svc, ok := h.services[id]; ok {
			services = append(services, svc)
		}
	}
	return c.JSON(http.StatusOK, map[string][]Service{
		"services": services,
	})
}

// HandleHook handles POST /cds-services/:id.
func (h *Handler) HandleHook(c echo.Context) error {
	serviceID := c.Param("id")

	svc, ok := h.services[serviceID]
	if !ok {
		return c.JSON(http.StatusNotFound, errorBody(fmt.Sprintf("CDS service %q not found", serviceID)))
	}

	var req Request
	if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody(fmt.Sprintf("invalid request body: %v", err)))
	}

	if req.Hook != svc.Hook {
		return c.JSON(http.StatusBadRequest, errorBody(
			fmt.Sprintf("hook mismatch: request hook %q does not match service hook %q", req.Hook, svc.Hook),
		))
	}

	if req.HookInstance == "" {
		return c.JSON(http.StatusBadRequest, errorBody("hookInstance is required"))
	}

	handler, ok := h.handlers[serviceID]
	if !ok {
		return c.JSON(http.StatusInternalServerError, errorBody("no handler registered for service"))
	}

	resp, err := handler(c.Request().Context(), req)
	if err != nil {
		if reqErr, ok := err.(*RequestError); ok {
			return c.JSON(http.StatusBadRequest, errorBody(reqErr.Error()))
		}
		return c.JSON(http.StatusInternalServerError, errorBody(err.Error()))
	}
	if resp.Cards == nil {
		resp.Cards = []Card{}
	}

	return c.JSON(http.StatusOK, resp)
}

// HandleFeedback handles POST /cds-services/:id/feedback.
func (h *Handler) HandleFeedback(c echo.Context) error {
	serviceID := c.Param("id")

	if _, ok := h.services[serviceID]; !ok {
		return c.JSON(http.StatusNotFound, errorBody(fmt.Sprintf("CDS service %q not found", serviceID)))
	}

	var fb Feedback
	if err := json.NewDecoder(c.Request().Body).Decode(&fb); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody(fmt.Sprintf("invalid feedback body: %v", err)))
	}

	handler, ok := h.feedbackHandlers[serviceID]
	if !ok {
		// No feedback handler registered; accept as a no-op.
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	}

	if err := handler(c.Request().Context(), serviceID, fb); err != nil {
		if reqErr, ok := err.(*RequestError); ok {
			return c.JSON(http.StatusBadRequest, errorBody(reqErr.Error()))
		}
		return c.JSON(http.StatusInternalServerError, errorBody(err.Error()))
	}

	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
