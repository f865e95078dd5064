package http

import (
	"log/slog"
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"
	"velvetden/internal/delivery/http/controllers"
	h "velvetden/internal/delivery/http/helpers"
	"velvetden/internal/delivery/http/middleware"
	"velvetden/internal/domain"
)

// Controllers groups the HTTP controllers served by the router.
type Controllers struct {
	Auth   *controllers.AuthController
	Users  *controllers.UserController
	Events *controllers.EventController
	Spaces *controllers.SpaceController
	Admin  *controllers.AdminController
}

// NewRouter initializes the HTTP router with all application routes.
func NewRouter(c Controllers, verifier domain.TokenVerifier, logger *slog.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	auth := middleware.RequireAuth(verifier, logger)
	admin := middleware.RequireAdmin(verifier, logger)

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		h.WriteJSONSuccess(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Auth
	mux.HandleFunc("POST /auth/register", c.Auth.Register)
	mux.HandleFunc("POST /auth/login", c.Auth.Login)

	// Current user
	mux.HandleFunc("GET /users/me", auth(c.Users.Me))
	mux.HandleFunc("POST /users/me/picture", auth(c.Users.SubmitPicture))

	// Events
	mux.HandleFunc("GET /events/upcoming", c.Events.Upcoming)
	mux.HandleFunc("GET /events", c.Events.List)
	mux.HandleFunc("GET /events/{eventID}", c.Events.Get)
	mux.HandleFunc("POST /events", admin(c.Events.Create))
	mux.HandleFunc("POST /events/{eventID}/cancel", admin(c.Events.Cancel))

	// Spaces
	mux.HandleFunc("POST /events/{eventID}/spaces/{spaceID}/book", auth(c.Spaces.Book))
	mux.HandleFunc("DELETE /spaces/{spaceID}/booking", auth(c.Spaces.CancelBooking))
	mux.HandleFunc("GET /space-templates", c.Spaces.ListTemplates)
	mux.HandleFunc("GET /space-templates/{templateID}", c.Spaces.GetTemplate)

	// Admin
	mux.HandleFunc("GET /admin/users", admin(c.Admin.ListUsers))
	mux.HandleFunc("POST /admin/users", admin(c.Admin.CreateUser))
	mux.HandleFunc("GET /admin/users/{userID}", admin(c.Admin.GetUser))
	mux.HandleFunc("PATCH /admin/users/{userID}", admin(c.Admin.UpdateProfile))
	mux.HandleFunc("POST /admin/users/{userID}/approve", admin(c.Admin.Approve))
	mux.HandleFunc("POST /admin/users/{userID}/reject", admin(c.Admin.Reject))
	mux.HandleFunc("POST /admin/users/{userID}/request-picture", admin(c.Admin.RequestPicture))
	mux.HandleFunc("POST /admin/bookings", admin(c.Admin.BookForUser))
	mux.HandleFunc("GET /admin/files", admin(c.Admin.GetFile))

	// Swagger
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	return mux
}
