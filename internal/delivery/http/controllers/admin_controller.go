package controllers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path"
	"strconv"
	"strings"

	h "velvetden/internal/delivery/http/helpers"
	"velvetden/internal/domain"
)

// UpdateProfileRequest is the request body for PATCH /admin/users/{userID}.
// Omitted fields are unchanged; clear_age sets the age to null.
type UpdateProfileRequest struct {
	Age           *int    `json:"age"`
	ClearAge      bool    `json:"clear_age"`
	Location      *string `json:"location"`
	Height        *string `json:"height"`
	Size          *string `json:"size"`
	AdminComments *string `json:"admin_comments"`
}

// Validate implements Validator.
func (u UpdateProfileRequest) Validate() []string {
	var errs []string
	if u.Age != nil && *u.Age < 0 {
		errs = append(errs, "age must not be negative")
	}
	if u.Age != nil && u.ClearAge {
		errs = append(errs, "age and clear_age are mutually exclusive")
	}
	return errs
}

func (u UpdateProfileRequest) toDomain() domain.ProfileUpdate {
	return domain.ProfileUpdate{
		Age:           u.Age,
		ClearAge:      u.ClearAge,
		Location:      u.Location,
		Height:        u.Height,
		Size:          u.Size,
		AdminComments: u.AdminComments,
	}
}

// AdminBookingRequest is the request body for POST /admin/bookings.
type AdminBookingRequest struct {
	EventID string `json:"event_id"`
	SpaceID string `json:"space_id"`
	Email   string `json:"email"`
}

// Validate implements Validator.
func (b AdminBookingRequest) Validate() []string {
	var errs []string
	if strings.TrimSpace(b.EventID) == "" {
		errs = append(errs, "event_id is required")
	}
	if strings.TrimSpace(b.SpaceID) == "" {
		errs = append(errs, "space_id is required")
	}
	if strings.TrimSpace(b.Email) == "" {
		errs = append(errs, "email is required")
	}
	return errs
}

// ListUsersResponse is the data of GET /admin/users.
type ListUsersResponse struct {
	Users      []*domain.UserWithBookings `json:"users"`
	Pagination h.PaginationMeta           `json:"pagination"`
}

type AdminController struct {
	Logger   *slog.Logger
	Users    domain.UserService
	Review   domain.ReviewService
	Bookings domain.BookingService
	Files    domain.FileStore
}

func NewAdminController(logger *slog.Logger, users domain.UserService, review domain.ReviewService, bookings domain.BookingService, files domain.FileStore) *AdminController {
	return &AdminController{
		Logger:   logger,
		Users:    users,
		Review:   review,
		Bookings: bookings,
		Files:    files,
	}
}

// ListUsers godoc
// @Summary List users
// @Description Users with their booked-spaces count, newest first. An unknown status filter lists every user.
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param status query string false "IN_REVIEW, APPROVED, REJECTED or PICTURE_REQUESTED"
// @Param page query int false "Page (default 1)"
// @Param page_size query int false "Page size (default 50, max 200)"
// @Success 200 {object} helpers.APIResponse "data contains users and pagination"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Router /admin/users [get]
func (c *AdminController) ListUsers(w http.ResponseWriter, r *http.Request) {
	var filter domain.UserFilter
	if status, ok := domain.ParseUserStatus(r.URL.Query().Get("status")); ok {
		filter.Status = &status
	}
	page := h.ParsePagination(r)
	users, total, err := c.Users.List(r.Context(), filter, page)
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, ListUsersResponse{Users: users, Pagination: h.NewPaginationMeta(page, total)})
}

// GetUser godoc
// @Summary Get a user
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param userID path string true "User ID (UUID)"
// @Success 200 {object} helpers.APIResponse "data contains the user"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /admin/users/{userID} [get]
func (c *AdminController) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := c.Users.GetByID(r.Context(), r.PathValue("userID"))
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, user)
}

// CreateUser godoc
// @Summary Create a user
// @Description Every field is optional. A missing email gets a generated placeholder, a missing password the default one, a missing status IN_REVIEW.
// @Tags admin
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param email formData string false "Email"
// @Param password formData string false "Password"
// @Param first_name formData string false "First name"
// @Param last_name formData string false "Last name"
// @Param status formData string false "Initial status"
// @Param age formData int false "Age"
// @Param location formData string false "Location"
// @Param height formData string false "Height"
// @Param size formData string false "Size"
// @Param admin_comments formData string false "Admin comments"
// @Param image formData file false "Verification image"
// @Success 201 {object} helpers.APIResponse "data contains the created user"
// @Failure 400 {object} helpers.APIResponse "error.code: validation"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict"
// @Router /admin/users [post]
func (c *AdminController) CreateUser(w http.ResponseWriter, r *http.Request) {
	if !h.ParseMultipart(w, r) {
		return
	}
	in := domain.AdminCreateUserInput{
		Email:     h.FormValue(r, "email"),
		Password:  r.FormValue("password"),
		FirstName: h.FormValue(r, "first_name"),
		LastName:  h.FormValue(r, "last_name"),
		Status:    domain.UserStatus(strings.ToUpper(h.FormValue(r, "status"))),
		Profile: domain.ProfileUpdate{
			Location:      optionalForm(r, "location"),
			Height:        optionalForm(r, "height"),
			Size:          optionalForm(r, "size"),
			AdminComments: optionalForm(r, "admin_comments"),
		},
	}
	if raw := h.FormValue(r, "age"); raw != "" {
		age, err := strconv.Atoi(raw)
		if err != nil || age < 0 {
			h.WriteJSONError(w, http.StatusBadRequest, h.ErrCodeValidation, "age must be a non-negative integer")
			return
		}
		in.Profile.Age = &age
	}
	image, closer, err := h.FormUpload(r, "image")
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	defer closer.Close()
	in.Image = image

	user, err := c.Users.CreateByAdmin(r.Context(), in)
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusCreated, user)
}

func optionalForm(r *http.Request, key string) *string {
	v := h.FormValue(r, key)
	if v == "" {
		return nil
	}
	return &v
}

// UpdateProfile godoc
// @Summary Update profile fields
// @Description Updates age, location, height, size and admin comments. Returns the user with the booked-spaces count.
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param userID path string true "User ID (UUID)"
// @Param body body UpdateProfileRequest true "Fields to update"
// @Success 200 {object} helpers.APIResponse "data contains the user"
// @Failure 400 {object} helpers.APIResponse "error.code: validation"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /admin/users/{userID} [patch]
func (c *AdminController) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req UpdateProfileRequest
	if !h.DecodeAndValidate(w, r, &req) {
		return
	}
	user, err := c.Users.UpdateProfile(r.Context(), r.PathValue("userID"), req.toDomain())
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, user)
}

// Approve godoc
// @Summary Approve a user
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param userID path string true "User ID (UUID)"
// @Success 200 {object} helpers.APIResponse "data contains the user"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /admin/users/{userID}/approve [post]
func (c *AdminController) Approve(w http.ResponseWriter, r *http.Request) {
	c.transition(w, r, c.Review.Approve)
}

// Reject godoc
// @Summary Reject a user
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param userID path string true "User ID (UUID)"
// @Success 200 {object} helpers.APIResponse "data contains the user"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /admin/users/{userID}/reject [post]
func (c *AdminController) Reject(w http.ResponseWriter, r *http.Request) {
	c.transition(w, r, c.Review.Reject)
}

// RequestPicture godoc
// @Summary Ask a user for a new picture
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param userID path string true "User ID (UUID)"
// @Success 200 {object} helpers.APIResponse "data contains the user"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /admin/users/{userID}/request-picture [post]
func (c *AdminController) RequestPicture(w http.ResponseWriter, r *http.Request) {
	c.transition(w, r, c.Review.RequestPicture)
}

func (c *AdminController) transition(w http.ResponseWriter, r *http.Request, fn func(context.Context, string) (*domain.User, error)) {
	user, err := fn(r.Context(), r.PathValue("userID"))
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, user)
}

// BookForUser godoc
// @Summary Book a space for a user
// @Description Books the space for the user with the given email, regardless of review status. The user may still hold only one space per event.
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body AdminBookingRequest true "Event, space and user email"
// @Success 200 {object} helpers.APIResponse "data contains the booked space"
// @Failure 400 {object} helpers.APIResponse "error.code: validation"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict"
// @Router /admin/bookings [post]
func (c *AdminController) BookForUser(w http.ResponseWriter, r *http.Request) {
	var req AdminBookingRequest
	if !h.DecodeAndValidate(w, r, &req) {
		return
	}
	target, err := c.Users.GetByEmail(r.Context(), req.Email)
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	space, err := c.Bookings.BookSpaceForUser(r.Context(), req.EventID, req.SpaceID, target)
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, space)
}

// GetFile godoc
// @Summary View an uploaded file
// @Description Streams a verification image by the path stored on the user.
// @Tags admin
// @Produce octet-stream
// @Security BearerAuth
// @Param path query string true "Stored file path"
// @Success 200 {file} binary
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /admin/files [get]
func (c *AdminController) GetFile(w http.ResponseWriter, r *http.Request) {
	p := r.URL.Query().Get("path")
	if p == "" {
		h.WriteJSONError(w, http.StatusBadRequest, h.ErrCodeValidation, "path is required")
		return
	}
	rc, err := c.Files.Open(r.Context(), p)
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	defer rc.Close()
	contentType := mime.TypeByExtension(path.Ext(p))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "private, max-age=300")
	if _, err := io.Copy(w, rc); err != nil && !errors.Is(err, r.Context().Err()) {
		c.Logger.WarnContext(r.Context(), "file stream interrupted", "path", p, "err", err)
	}
}
