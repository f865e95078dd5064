package controllers

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	h "velvetden/internal/delivery/http/helpers"
	"velvetden/internal/domain"
)

// CreateEventRequest is the request body for POST /events.
type CreateEventRequest struct {
	City             string    `json:"city"`
	DateTime         time.Time `json:"date_time"`
	SpaceTemplateIDs []string  `json:"space_template_ids"`
}

// Validate implements Validator.
func (c CreateEventRequest) Validate() []string {
	var errs []string
	if strings.TrimSpace(c.City) == "" {
		errs = append(errs, "city is required")
	}
	if c.DateTime.IsZero() {
		errs = append(errs, "date_time is required")
	}
	switch n := len(c.SpaceTemplateIDs); {
	case n == 0:
		errs = append(errs, "at least one space template must be selected")
	case n > domain.MaxSpacesPerEvent:
		errs = append(errs, fmt.Sprintf("maximum %d spaces allowed per event", domain.MaxSpacesPerEvent))
	}
	return errs
}

// EventSuccessResponse is the success envelope for single-event endpoints.
type EventSuccessResponse struct {
	Data  *domain.EventView `json:"data"`
	Error *h.APIError       `json:"error"`
}

// EventListSuccessResponse is the success envelope for GET /events.
type EventListSuccessResponse struct {
	Data  []*domain.EventView `json:"data"`
	Error *h.APIError         `json:"error"`
}

type EventController struct {
	Logger  *slog.Logger
	Service domain.EventService
	Now     func() time.Time
}

func NewEventController(logger *slog.Logger, svc domain.EventService) *EventController {
	return &EventController{
		Logger:  logger,
		Service: svc,
		Now:     time.Now,
	}
}

// Upcoming godoc
// @Summary Displayed event
// @Description Returns the event to show on the landing page: the earliest future event, active or cancelled. At the same date and time the active one wins.
// @Tags events
// @Produce json
// @Success 200 {object} controllers.EventSuccessResponse
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/upcoming [get]
func (c *EventController) Upcoming(w http.ResponseWriter, r *http.Request) {
	view, err := c.Service.ResolveDisplayedEvent(r.Context(), c.Now())
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, view)
}

// List godoc
// @Summary List events
// @Description All events, latest date first, each with its spaces.
// @Tags events
// @Produce json
// @Success 200 {object} controllers.EventListSuccessResponse
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events [get]
func (c *EventController) List(w http.ResponseWriter, r *http.Request) {
	views, err := c.Service.ListEvents(r.Context())
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, views)
}

// Get godoc
// @Summary Get an event
// @Tags events
// @Produce json
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} controllers.EventSuccessResponse
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID} [get]
func (c *EventController) Get(w http.ResponseWriter, r *http.Request) {
	view, err := c.Service.GetEvent(r.Context(), r.PathValue("eventID"))
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, view)
}

// Create godoc
// @Summary Create an event
// @Description Creates an event in a city with one space per selected template (1 to 6, no repeats), in the order given.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param event body CreateEventRequest true "Event data"
// @Success 201 {object} controllers.EventSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: validation"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Router /events [post]
func (c *EventController) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateEventRequest
	if !h.DecodeAndValidate(w, r, &req) {
		return
	}
	view, err := c.Service.CreateEvent(r.Context(), req.City, req.DateTime, req.SpaceTemplateIDs)
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusCreated, view)
}

// Cancel godoc
// @Summary Cancel an event
// @Description Marks the event cancelled. Existing bookings are kept.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} controllers.EventSuccessResponse
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID}/cancel [post]
func (c *EventController) Cancel(w http.ResponseWriter, r *http.Request) {
	view, err := c.Service.CancelEvent(r.Context(), r.PathValue("eventID"))
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, view)
}
