package controllers

import (
	"log/slog"
	"net/http"
	"strings"

	h "velvetden/internal/delivery/http/helpers"
	"velvetden/internal/domain"
)

// LoginRequest is the request body for POST /auth/login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate implements Validator.
func (l LoginRequest) Validate() []string {
	var errs []string
	if strings.TrimSpace(l.Email) == "" {
		errs = append(errs, "email is required")
	}
	if l.Password == "" {
		errs = append(errs, "password is required")
	}
	return errs
}

// LoginResponse is the response body for POST /auth/login
type LoginResponse struct {
	Token     string       `json:"token"`
	TokenType string       `json:"token_type"`
	User      *domain.User `json:"user"`
}

type AuthController struct {
	Logger *slog.Logger
	Users  domain.UserService
}

func NewAuthController(logger *slog.Logger, users domain.UserService) *AuthController {
	return &AuthController{
		Logger: logger,
		Users:  users,
	}
}

// Register godoc
// @Summary Register a new user
// @Description Multipart form with email, password, first_name, last_name and a verification image. The account starts IN_REVIEW and the admin is notified.
// @Tags auth
// @Accept multipart/form-data
// @Produce json
// @Param email formData string true "Email"
// @Param password formData string true "Password"
// @Param first_name formData string false "First name"
// @Param last_name formData string false "Last name"
// @Param image formData file true "Verification image"
// @Success 201 {object} helpers.APIResponse "data contains the created user"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request or validation"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /auth/register [post]
func (c *AuthController) Register(w http.ResponseWriter, r *http.Request) {
	if !h.ParseMultipart(w, r) {
		return
	}
	image, closer, err := h.FormUpload(r, "image")
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	defer closer.Close()

	user, err := c.Users.Register(r.Context(),
		h.FormValue(r, "email"),
		r.FormValue("password"),
		h.FormValue(r, "first_name"),
		h.FormValue(r, "last_name"),
		image,
	)
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusCreated, user)
}

// Login godoc
// @Summary Log in
// @Description Authenticate with email and password. Returns a JWT carrying the user id, email and roles. Attempts per email are rate limited.
// @Tags auth
// @Accept json
// @Produce json
// @Param body body LoginRequest true "Login credentials"
// @Success 200 {object} helpers.APIResponse "data contains token, token_type and user"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 429 {object} helpers.APIResponse "error.code: too_many_requests"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /auth/login [post]
func (c *AuthController) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !h.DecodeAndValidate(w, r, &req) {
		return
	}
	token, user, err := c.Users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, LoginResponse{Token: token, TokenType: "Bearer", User: user})
}
