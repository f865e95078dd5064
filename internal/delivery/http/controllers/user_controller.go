package controllers

import (
	"log/slog"
	"net/http"

	h "velvetden/internal/delivery/http/helpers"
	"velvetden/internal/delivery/http/middleware"
	"velvetden/internal/domain"
)

type UserController struct {
	Logger *slog.Logger
	Users  domain.UserService
	Review domain.ReviewService
}

func NewUserController(logger *slog.Logger, users domain.UserService, review domain.ReviewService) *UserController {
	return &UserController{
		Logger: logger,
		Users:  users,
		Review: review,
	}
}

// currentUser loads the user behind the request's principal. It writes the
// error response and returns nil when that is not possible.
func currentUser(w http.ResponseWriter, r *http.Request, logger *slog.Logger, users domain.UserService) *domain.User {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "unauthorized")
		return nil
	}
	user, err := users.GetByID(r.Context(), userID)
	if err != nil {
		h.WriteServiceError(w, r, logger, err)
		return nil
	}
	return user
}

// Me godoc
// @Summary Current user
// @Description Returns the profile and review status of the authenticated user.
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} helpers.APIResponse "data contains the user"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /users/me [get]
func (c *UserController) Me(w http.ResponseWriter, r *http.Request) {
	user := currentUser(w, r, c.Logger, c.Users)
	if user == nil {
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, user)
}

// SubmitPicture godoc
// @Summary Submit a new verification picture
// @Description Only allowed while the account is PICTURE_REQUESTED. Replaces the image and moves the account back to IN_REVIEW.
// @Tags users
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param image formData file true "Verification image"
// @Success 200 {object} helpers.APIResponse "data contains the updated user"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request or validation"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 409 {object} helpers.APIResponse "error.code: invalid_state"
// @Router /users/me/picture [post]
func (c *UserController) SubmitPicture(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "unauthorized")
		return
	}
	if !h.ParseMultipart(w, r) {
		return
	}
	image, closer, err := h.FormUpload(r, "image")
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	defer closer.Close()
	if image == nil {
		h.WriteJSONError(w, http.StatusBadRequest, h.ErrCodeValidation, "image is required")
		return
	}

	user, err := c.Review.SubmitPicture(r.Context(), userID, image)
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, user)
}
