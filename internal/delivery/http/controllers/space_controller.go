package controllers

import (
	"log/slog"
	"net/http"

	h "velvetden/internal/delivery/http/helpers"
	"velvetden/internal/domain"
)

type SpaceController struct {
	Logger    *slog.Logger
	Bookings  domain.BookingService
	Users     domain.UserService
	Templates domain.SpaceTemplateService
}

func NewSpaceController(logger *slog.Logger, bookings domain.BookingService, users domain.UserService, templates domain.SpaceTemplateService) *SpaceController {
	return &SpaceController{
		Logger:    logger,
		Bookings:  bookings,
		Users:     users,
		Templates: templates,
	}
}

// Book godoc
// @Summary Book a space
// @Description Books the space for the authenticated user. The user must be APPROVED and may hold one space per event.
// @Tags spaces
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param spaceID path string true "Space ID (UUID)"
// @Success 200 {object} helpers.APIResponse "data contains the booked space"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict"
// @Router /events/{eventID}/spaces/{spaceID}/book [post]
func (c *SpaceController) Book(w http.ResponseWriter, r *http.Request) {
	user := currentUser(w, r, c.Logger, c.Users)
	if user == nil {
		return
	}
	space, err := c.Bookings.BookSpace(r.Context(), r.PathValue("eventID"), r.PathValue("spaceID"), user)
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, space)
}

// CancelBooking godoc
// @Summary Cancel a booking
// @Description Releases the space. Only the user holding it may cancel.
// @Tags spaces
// @Produce json
// @Security BearerAuth
// @Param spaceID path string true "Space ID (UUID)"
// @Success 204 "booking cancelled"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict"
// @Router /spaces/{spaceID}/booking [delete]
func (c *SpaceController) CancelBooking(w http.ResponseWriter, r *http.Request) {
	user := currentUser(w, r, c.Logger, c.Users)
	if user == nil {
		return
	}
	if err := c.Bookings.CancelBooking(r.Context(), r.PathValue("spaceID"), user); err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListTemplates godoc
// @Summary List space templates
// @Description The template catalog, sorted by name.
// @Tags spaces
// @Produce json
// @Success 200 {object} helpers.APIResponse "data contains the templates"
// @Router /space-templates [get]
func (c *SpaceController) ListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := c.Templates.ListTemplates(r.Context())
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, templates)
}

// GetTemplate godoc
// @Summary Get a space template
// @Tags spaces
// @Produce json
// @Param templateID path string true "Template ID"
// @Success 200 {object} helpers.APIResponse "data contains the template"
// @Failure 404 {object} helpers.APIResponse
// @Router /space-templates/{templateID} [get]
func (c *SpaceController) GetTemplate(w http.ResponseWriter, r *http.Request) {
	template, err := c.Templates.GetTemplate(r.Context(), r.PathValue("templateID"))
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, template)
}
