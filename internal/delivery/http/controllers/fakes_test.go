package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"velvetden/internal/delivery/http/helpers"
	"velvetden/internal/delivery/http/middleware"
	"velvetden/internal/domain"
)

// testLogger is a no-op logger for controller tests so we don't assert on log output.
var testLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))

// fakeUserService implements domain.UserService for handler tests.
type fakeUserService struct {
	users map[string]*domain.User // by id
	err   error

	registerUser  *domain.User
	lastRegister  []string
	lastImage     []byte
	loginToken    string
	lastAdminIn   domain.AdminCreateUserInput
	lastUpdate    domain.ProfileUpdate
	lastUpdateID  string
	lastFilter    domain.UserFilter
	lastPage      domain.PaginationParams
	listResult    []*domain.UserWithBookings
	listTotal     int
	lastLookupKey string
}

func (f *fakeUserService) Register(_ context.Context, email, password, firstName, lastName string, image *domain.Upload) (*domain.User, error) {
	f.lastRegister = []string{email, password, firstName, lastName}
	if image != nil {
		f.lastImage, _ = io.ReadAll(image.Body)
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.registerUser, nil
}

func (f *fakeUserService) Login(_ context.Context, email, _ string) (string, *domain.User, error) {
	if f.err != nil {
		return "", nil, f.err
	}
	return f.loginToken, &domain.User{ID: "user-1", Email: email}, nil
}

func (f *fakeUserService) GetByID(_ context.Context, id string) (*domain.User, error) {
	f.lastLookupKey = id
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	if f.err != nil {
		return nil, f.err
	}
	return nil, domain.ErrUserNotFound
}

func (f *fakeUserService) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	f.lastLookupKey = email
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (f *fakeUserService) CreateByAdmin(_ context.Context, in domain.AdminCreateUserInput) (*domain.User, error) {
	f.lastAdminIn = in
	if f.err != nil {
		return nil, f.err
	}
	return &domain.User{ID: "created", Email: in.Email, Status: in.Status}, nil
}

func (f *fakeUserService) UpdateProfile(_ context.Context, userID string, update domain.ProfileUpdate) (*domain.UserWithBookings, error) {
	f.lastUpdateID = userID
	f.lastUpdate = update
	if f.err != nil {
		return nil, f.err
	}
	u := &domain.User{ID: userID}
	update.Apply(u)
	return &domain.UserWithBookings{User: u, BookedSpacesCount: 2}, nil
}

func (f *fakeUserService) List(_ context.Context, filter domain.UserFilter, page domain.PaginationParams) ([]*domain.UserWithBookings, int, error) {
	f.lastFilter = filter
	f.lastPage = page
	if f.err != nil {
		return nil, 0, f.err
	}
	return f.listResult, f.listTotal, nil
}

// fakeReviewService implements domain.ReviewService.
type fakeReviewService struct {
	err      error
	lastCall string
	lastID   string
}

func (f *fakeReviewService) do(call, id string, status domain.UserStatus) (*domain.User, error) {
	f.lastCall, f.lastID = call, id
	if f.err != nil {
		return nil, f.err
	}
	return &domain.User{ID: id, Status: status}, nil
}

func (f *fakeReviewService) Approve(_ context.Context, id string) (*domain.User, error) {
	return f.do("approve", id, domain.StatusApproved)
}

func (f *fakeReviewService) Reject(_ context.Context, id string) (*domain.User, error) {
	return f.do("reject", id, domain.StatusRejected)
}

func (f *fakeReviewService) RequestPicture(_ context.Context, id string) (*domain.User, error) {
	return f.do("request-picture", id, domain.StatusPictureRequested)
}

func (f *fakeReviewService) SubmitPicture(_ context.Context, id string, image *domain.Upload) (*domain.User, error) {
	if image == nil {
		return nil, domain.InvalidArgument("image is required")
	}
	return f.do("submit-picture", id, domain.StatusInReview)
}

// fakeEventService implements domain.EventService.
type fakeEventService struct {
	err       error
	view      *domain.EventView
	views     []*domain.EventView
	lastID    string
	lastNow   time.Time
	lastCity  string
	lastDate  time.Time
	lastIDs   []string
	cancelled bool
}

func (f *fakeEventService) CreateEvent(_ context.Context, city string, dateTime time.Time, ids []string) (*domain.EventView, error) {
	f.lastCity, f.lastDate, f.lastIDs = city, dateTime, ids
	return f.view, f.err
}

func (f *fakeEventService) CancelEvent(_ context.Context, id string) (*domain.EventView, error) {
	f.lastID = id
	f.cancelled = true
	return f.view, f.err
}

func (f *fakeEventService) ResolveDisplayedEvent(_ context.Context, now time.Time) (*domain.EventView, error) {
	f.lastNow = now
	return f.view, f.err
}

func (f *fakeEventService) ListEvents(_ context.Context) ([]*domain.EventView, error) {
	return f.views, f.err
}

func (f *fakeEventService) GetEvent(_ context.Context, id string) (*domain.EventView, error) {
	f.lastID = id
	return f.view, f.err
}

// fakeBookingService implements domain.BookingService.
type fakeBookingService struct {
	err         error
	lastEventID string
	lastSpaceID string
	lastUser    *domain.User
	lastCall    string
}

func (f *fakeBookingService) BookSpace(_ context.Context, eventID, spaceID string, actor *domain.User) (*domain.SpaceView, error) {
	return f.book("self", eventID, spaceID, actor)
}

func (f *fakeBookingService) BookSpaceForUser(_ context.Context, eventID, spaceID string, target *domain.User) (*domain.SpaceView, error) {
	return f.book("admin", eventID, spaceID, target)
}

func (f *fakeBookingService) book(call, eventID, spaceID string, u *domain.User) (*domain.SpaceView, error) {
	f.lastCall, f.lastEventID, f.lastSpaceID, f.lastUser = call, eventID, spaceID, u
	if f.err != nil {
		return nil, f.err
	}
	return &domain.SpaceView{ID: spaceID, EventID: eventID, Name: "Buddy", Color: domain.ColorGreen, BookedBy: &u.Email}, nil
}

func (f *fakeBookingService) CancelBooking(_ context.Context, spaceID string, actor *domain.User) error {
	f.lastCall, f.lastSpaceID, f.lastUser = "cancel", spaceID, actor
	return f.err
}

// fakeTemplateService implements domain.SpaceTemplateService.
type fakeTemplateService struct {
	templates []*domain.SpaceTemplate
	err       error
}

func (f *fakeTemplateService) ListTemplates(context.Context) ([]*domain.SpaceTemplate, error) {
	return f.templates, f.err
}

func (f *fakeTemplateService) GetTemplate(_ context.Context, id string) (*domain.SpaceTemplate, error) {
	for _, t := range f.templates {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, domain.ErrTemplateNotFound
}

func (f *fakeTemplateService) GetTemplatesByIDs(context.Context, []string) ([]*domain.SpaceTemplate, error) {
	return nil, nil
}

// fakeFileStore implements domain.FileStore over a map.
type fakeFileStore struct {
	files map[string]string
}

func (f *fakeFileStore) Save(_ context.Context, filename, _ string, body io.Reader) (string, error) {
	b, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	f.files[filename] = string(b)
	return filename, nil
}

func (f *fakeFileStore) Open(_ context.Context, path string) (io.ReadCloser, error) {
	content, ok := f.files[path]
	if !ok {
		return nil, domain.ErrFileNotFound
	}
	return io.NopCloser(strings.NewReader(content)), nil
}

func (f *fakeFileStore) Delete(_ context.Context, path string) error {
	delete(f.files, path)
	return nil
}

// withUser sets an authenticated principal on the request.
func withUser(req *http.Request, userID string) *http.Request {
	return req.WithContext(middleware.SetPrincipal(req.Context(), &domain.Principal{UserID: userID, Roles: []string{domain.RoleUser}}))
}

// decode reads the response envelope and unmarshals its data into dest, when given.
func decode(t *testing.T, rr *httptest.ResponseRecorder, dest any) helpers.APIResponse {
	t.Helper()
	var envelope helpers.APIResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&envelope), "response must be valid JSON envelope")
	if dest != nil && envelope.Data != nil {
		b, err := json.Marshal(envelope.Data)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(b, dest))
	}
	return envelope
}

// multipartBody builds a multipart form with the given fields and, when image is
// non-empty, an image/png file part named "image".
func multipartBody(t *testing.T, fields map[string]string, image string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if image != "" {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, "photo.png"))
		h.Set("Content-Type", "image/png")
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write([]byte(image))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}
