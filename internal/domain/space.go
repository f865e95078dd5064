package domain

import "context"

// SpaceColor is the display color of a space template.
type SpaceColor string

const (
	ColorGreen  SpaceColor = "GREEN"
	ColorYellow SpaceColor = "YELLOW"
	ColorOrange SpaceColor = "ORANGE"
	ColorBlue   SpaceColor = "BLUE"
	ColorPurple SpaceColor = "PURPLE"
	ColorWhite  SpaceColor = "WHITE"
)

// SpaceTemplate is a reusable named and colored space definition.
// swagger:model SpaceTemplate
type SpaceTemplate struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Color       SpaceColor `json:"color"`
	Description *string    `json:"description"`
}

// Space is a bookable slot of an event. UserID is nil while the space is available.
// Name, Color and BookedBy are populated on reads from the template and the booking user.
type Space struct {
	ID         string
	EventID    string
	TemplateID string
	UserID     *string

	Name     string
	Color    SpaceColor
	BookedBy *string
}

// NewSpace returns an available space for the event, instantiated from the template.
func NewSpace(eventID string, t *SpaceTemplate) *Space {
	return &Space{
		EventID:    eventID,
		TemplateID: t.ID,
		Name:       t.Name,
		Color:      t.Color,
	}
}

// IsAvailable reports whether nobody holds the space.
func (s *Space) IsAvailable() bool {
	return s.UserID == nil
}

// IsHeldBy reports whether the given user holds the space.
func (s *Space) IsHeldBy(userID string) bool {
	return s.UserID != nil && *s.UserID == userID
}

// SpaceView is the presentation projection of a space.
// swagger:model SpaceView
type SpaceView struct {
	ID        string     `json:"id"`
	EventID   string     `json:"event_id"`
	Name      string     `json:"name"`
	Color     SpaceColor `json:"color"`
	Available bool       `json:"available"`
	BookedBy  *string    `json:"booked_by"`
}

// NewSpaceView builds the projection of s.
func NewSpaceView(s *Space) SpaceView {
	return SpaceView{
		ID:        s.ID,
		EventID:   s.EventID,
		Name:      s.Name,
		Color:     s.Color,
		Available: s.IsAvailable(),
		BookedBy:  s.BookedBy,
	}
}

// SpaceRepository defines storage for spaces. Methods participate in the
// transaction carried by ctx, if any.
type SpaceRepository interface {
	CreateBatch(ctx context.Context, spaces []*Space) error
	GetByID(ctx context.Context, id string) (*Space, error)
	// GetForUpdate loads the space of the event and locks its row until the transaction ends.
	GetForUpdate(ctx context.Context, eventID, spaceID string) (*Space, error)
	ExistsForUserInEvent(ctx context.Context, eventID, userID string) (bool, error)
	// Assign sets the booking user only if the space is still available. Returns false when no row matched.
	Assign(ctx context.Context, spaceID, userID string) (bool, error)
	// ReleaseIfHeldBy clears the booking only if userID holds it. Returns false when no row matched.
	ReleaseIfHeldBy(ctx context.Context, spaceID, userID string) (bool, error)
	ListByEventIDs(ctx context.Context, eventIDs []string) (map[string][]*Space, error)
	CountByUser(ctx context.Context, userID string) (int, error)
}

// SpaceTemplateRepository defines read access to the template catalog.
type SpaceTemplateRepository interface {
	ListByName(ctx context.Context) ([]*SpaceTemplate, error)
	GetByID(ctx context.Context, id string) (*SpaceTemplate, error)
	GetByIDs(ctx context.Context, ids []string) ([]*SpaceTemplate, error)
}

// BookingService defines space booking and cancellation.
type BookingService interface {
	BookSpace(ctx context.Context, eventID, spaceID string, actor *User) (*SpaceView, error)
	BookSpaceForUser(ctx context.Context, eventID, spaceID string, target *User) (*SpaceView, error)
	CancelBooking(ctx context.Context, spaceID string, actor *User) error
}

// SpaceTemplateService defines the template catalog.
type SpaceTemplateService interface {
	ListTemplates(ctx context.Context) ([]*SpaceTemplate, error)
	GetTemplate(ctx context.Context, id string) (*SpaceTemplate, error)
	GetTemplatesByIDs(ctx context.Context, ids []string) ([]*SpaceTemplate, error)
}

// Transactor runs fn inside a single database transaction. Repositories called
// with the ctx passed to fn join that transaction.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
