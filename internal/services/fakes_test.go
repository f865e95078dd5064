package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"velvetden/internal/domain"
)

type txKey struct{}

// memTx is the state of one memStore transaction: the space rows it locked and the
// undo steps for the writes it made.
type memTx struct {
	held map[string]*sync.Mutex
	undo []func()
}

func txFrom(ctx context.Context) *memTx {
	tx, _ := ctx.Value(txKey{}).(*memTx)
	return tx
}

// memStore is an in-memory store for events, spaces and templates. Like Postgres
// under READ COMMITTED, transactions are not serialized: mu only guards single
// operations, GetForUpdate takes a per-space row lock held until the transaction
// ends, and Assign enforces one space per user per event like the unique index.
type memStore struct {
	mu        sync.Mutex
	rows      map[string]*sync.Mutex
	events    map[string]*domain.Event
	spaces    map[string]*domain.Space
	order     []string
	templates map[string]*domain.SpaceTemplate
	emails    map[string]string

	createEventErr error
	createBatchErr error
	commits        int
}

func newMemStore() *memStore {
	return &memStore{
		rows:      make(map[string]*sync.Mutex),
		events:    make(map[string]*domain.Event),
		spaces:    make(map[string]*domain.Space),
		templates: make(map[string]*domain.SpaceTemplate),
		emails:    make(map[string]string),
	}
}

func (m *memStore) lock(context.Context) func() {
	m.mu.Lock()
	return m.mu.Unlock
}

func (m *memStore) id(string) string {
	return uuid.NewString()
}

// tplID is the fixed id of the template with the given name.
func tplID(name string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("template/"+name)).String()
}

// lockRow blocks until the transaction in ctx holds the row lock of spaceID.
func (m *memStore) lockRow(ctx context.Context, spaceID string) {
	tx := txFrom(ctx)
	if tx == nil {
		return
	}
	if _, ok := tx.held[spaceID]; ok {
		return
	}
	m.mu.Lock()
	row, ok := m.rows[spaceID]
	if !ok {
		row = &sync.Mutex{}
		m.rows[spaceID] = row
	}
	m.mu.Unlock()
	row.Lock()
	tx.held[spaceID] = row
}

// onRollback records an undo step for a write made under m.mu.
func onRollback(ctx context.Context, undo func()) {
	if tx := txFrom(ctx); tx != nil {
		tx.undo = append(tx.undo, undo)
	}
}

// WithinTx runs fn in a transaction. A failing fn has its writes undone in reverse order.
func (m *memStore) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFrom(ctx) != nil {
		return fn(ctx)
	}
	tx := &memTx{held: make(map[string]*sync.Mutex)}
	defer func() {
		for _, row := range tx.held {
			row.Unlock()
		}
	}()
	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		m.mu.Lock()
		for i := len(tx.undo) - 1; i >= 0; i-- {
			tx.undo[i]()
		}
		m.mu.Unlock()
		return err
	}
	m.mu.Lock()
	m.commits++
	m.mu.Unlock()
	return nil
}

func (m *memStore) addTemplate(name string, color domain.SpaceColor) *domain.SpaceTemplate {
	t := &domain.SpaceTemplate{ID: tplID(name), Name: name, Color: color}
	m.templates[t.ID] = t
	return t
}

// seedEvent adds an event with one space per template name.
func (m *memStore) seedEvent(dateTime time.Time, names ...string) (*domain.Event, []*domain.Space) {
	e := &domain.Event{ID: m.id("event"), City: "Berlin", DateTime: dateTime, IsUpcoming: true}
	m.events[e.ID] = e
	var spaces []*domain.Space
	for _, n := range names {
		t, ok := m.templates[tplID(n)]
		if !ok {
			t = m.addTemplate(n, domain.ColorGreen)
		}
		s := domain.NewSpace(e.ID, t)
		s.ID = m.id("space")
		m.spaces[s.ID] = s
		m.order = append(m.order, s.ID)
		spaces = append(spaces, s)
	}
	return e, spaces
}

func (m *memStore) holder(spaceID string) *string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.spaces[spaceID]; ok && s.UserID != nil {
		v := *s.UserID
		return &v
	}
	return nil
}

func (m *memStore) view(s *domain.Space) *domain.Space {
	c := *s
	c.BookedBy = nil
	if s.UserID != nil {
		if email, ok := m.emails[*s.UserID]; ok {
			c.BookedBy = &email
		}
	}
	return &c
}

// EventRepository

func (m *memStore) Create(ctx context.Context, e *domain.Event) error {
	defer m.lock(ctx)()
	if m.createEventErr != nil {
		return m.createEventErr
	}
	e.ID = m.id("event")
	m.events[e.ID] = e
	onRollback(ctx, func() { delete(m.events, e.ID) })
	return nil
}

func (m *memStore) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	defer m.lock(ctx)()
	if e, ok := m.events[id]; ok {
		return e, nil
	}
	return nil, domain.ErrEventNotFound
}

func (m *memStore) Exists(ctx context.Context, id string) (bool, error) {
	defer m.lock(ctx)()
	_, ok := m.events[id]
	return ok, nil
}

func (m *memStore) MarkCancelled(ctx context.Context, id string) (*domain.Event, error) {
	defer m.lock(ctx)()
	e, ok := m.events[id]
	if !ok {
		return nil, domain.ErrEventNotFound
	}
	if !e.Cancelled {
		e.Cancelled = true
		onRollback(ctx, func() { e.Cancelled = false })
	}
	return e, nil
}

func (m *memStore) first(now time.Time, match func(e *domain.Event) bool) *domain.Event {
	var best *domain.Event
	for _, e := range m.events {
		if !e.DateTime.After(now) || !match(e) {
			continue
		}
		if best == nil || e.DateTime.Before(best.DateTime) {
			best = e
		}
	}
	return best
}

func (m *memStore) FirstActiveUpcomingAfter(ctx context.Context, now time.Time) (*domain.Event, error) {
	defer m.lock(ctx)()
	return m.first(now, func(e *domain.Event) bool { return e.IsUpcoming && !e.Cancelled }), nil
}

func (m *memStore) FirstCancelledAfter(ctx context.Context, now time.Time) (*domain.Event, error) {
	defer m.lock(ctx)()
	return m.first(now, func(e *domain.Event) bool { return e.Cancelled }), nil
}

func (m *memStore) ListByDateDesc(ctx context.Context) ([]*domain.Event, error) {
	defer m.lock(ctx)()
	out := make([]*domain.Event, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DateTime.After(out[j].DateTime) })
	return out, nil
}

// spaceRepo adapts memStore to SpaceRepository, whose GetByID differs from EventRepository's.
type spaceRepo struct{ *memStore }

func (r spaceRepo) CreateBatch(ctx context.Context, spaces []*domain.Space) error {
	defer r.lock(ctx)()
	if r.createBatchErr != nil {
		return r.createBatchErr
	}
	before := len(r.order)
	for _, s := range spaces {
		s.ID = r.id("space")
		c := *s
		r.spaces[s.ID] = &c
		r.order = append(r.order, s.ID)
	}
	onRollback(ctx, func() {
		for _, id := range r.order[before:] {
			delete(r.spaces, id)
		}
		r.order = r.order[:before]
	})
	return nil
}

func (r spaceRepo) GetByID(ctx context.Context, id string) (*domain.Space, error) {
	defer r.lock(ctx)()
	if s, ok := r.spaces[id]; ok {
		return r.view(s), nil
	}
	return nil, domain.ErrSpaceNotFound
}

func (r spaceRepo) GetForUpdate(ctx context.Context, eventID, spaceID string) (*domain.Space, error) {
	r.lockRow(ctx, spaceID)
	defer r.lock(ctx)()
	if s, ok := r.spaces[spaceID]; ok && s.EventID == eventID {
		return r.view(s), nil
	}
	return nil, domain.ErrSpaceNotFound
}

func (r spaceRepo) heldInEvent(eventID, userID string) bool {
	for _, s := range r.spaces {
		if s.EventID == eventID && s.IsHeldBy(userID) {
			return true
		}
	}
	return false
}

func (r spaceRepo) ExistsForUserInEvent(ctx context.Context, eventID, userID string) (bool, error) {
	defer r.lock(ctx)()
	return r.heldInEvent(eventID, userID), nil
}

func (r spaceRepo) Assign(ctx context.Context, spaceID, userID string) (bool, error) {
	defer r.lock(ctx)()
	s, ok := r.spaces[spaceID]
	if !ok || s.UserID != nil {
		return false, nil
	}
	if r.heldInEvent(s.EventID, userID) {
		return false, domain.ErrOneBookingPerEvent
	}
	s.UserID = &userID
	onRollback(ctx, func() { s.UserID = nil })
	return true, nil
}

func (r spaceRepo) ReleaseIfHeldBy(ctx context.Context, spaceID, userID string) (bool, error) {
	defer r.lock(ctx)()
	s, ok := r.spaces[spaceID]
	if !ok || !s.IsHeldBy(userID) {
		return false, nil
	}
	s.UserID = nil
	onRollback(ctx, func() { s.UserID = &userID })
	return true, nil
}

func (r spaceRepo) ListByEventIDs(ctx context.Context, eventIDs []string) (map[string][]*domain.Space, error) {
	defer r.lock(ctx)()
	want := make(map[string]bool, len(eventIDs))
	for _, id := range eventIDs {
		want[id] = true
	}
	out := make(map[string][]*domain.Space)
	for _, id := range r.order {
		s := r.spaces[id]
		if want[s.EventID] {
			out[s.EventID] = append(out[s.EventID], r.view(s))
		}
	}
	return out, nil
}

func (r spaceRepo) CountByUser(ctx context.Context, userID string) (int, error) {
	defer r.lock(ctx)()
	n := 0
	for _, s := range r.spaces {
		if s.IsHeldBy(userID) {
			n++
		}
	}
	return n, nil
}

// templateRepo adapts memStore to SpaceTemplateRepository.
type templateRepo struct{ *memStore }

func (r templateRepo) ListByName(ctx context.Context) ([]*domain.SpaceTemplate, error) {
	defer r.lock(ctx)()
	out := make([]*domain.SpaceTemplate, 0, len(r.templates))
	for _, t := range r.templates {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r templateRepo) GetByID(ctx context.Context, id string) (*domain.SpaceTemplate, error) {
	defer r.lock(ctx)()
	if t, ok := r.templates[id]; ok {
		return t, nil
	}
	return nil, domain.ErrTemplateNotFound
}

func (r templateRepo) GetByIDs(ctx context.Context, ids []string) ([]*domain.SpaceTemplate, error) {
	defer r.lock(ctx)()
	out := make([]*domain.SpaceTemplate, 0, len(ids))
	seen := make(map[string]bool)
	for _, id := range ids {
		if t, ok := r.templates[id]; ok && !seen[id] {
			seen[id] = true
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// fakeUserRepo is an in-memory UserRepository for tests.
type fakeUserRepo struct {
	mu   sync.Mutex
	byID map[string]*domain.User

	createErr error
	listErr   error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byID: make(map[string]*domain.User)}
}

func (f *fakeUserRepo) add(u *domain.User) *domain.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	c := *u
	f.byID[u.ID] = &c
	return u
}

func (f *fakeUserRepo) Create(ctx context.Context, u *domain.User) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.mu.Lock()
	for _, existing := range f.byID {
		if existing.Email == u.Email {
			f.mu.Unlock()
			return domain.ErrDuplicateEmail
		}
	}
	f.mu.Unlock()
	f.add(u)
	return nil
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.byID[id]; ok {
		c := *u
		return &c, nil
	}
	return nil, domain.ErrUserNotFound
}

func (f *fakeUserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := f.GetByEmail(ctx, email)
	if errors.Is(err, domain.ErrUserNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (f *fakeUserRepo) UpdateProfile(ctx context.Context, id string, p domain.ProfileUpdate) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	p.Apply(u)
	c := *u
	return &c, nil
}

func (f *fakeUserRepo) UpdateStatus(ctx context.Context, id string, status domain.UserStatus) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	u.Status = status
	c := *u
	return &c, nil
}

func (f *fakeUserRepo) ReplacePictureIfRequested(ctx context.Context, id, imagePath string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok || u.Status != domain.StatusPictureRequested {
		return false, nil
	}
	u.VerificationImagePath = &imagePath
	u.Status = domain.StatusInReview
	return true, nil
}

func (f *fakeUserRepo) List(ctx context.Context, filter domain.UserFilter, page domain.PaginationParams) ([]*domain.UserWithBookings, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.UserWithBookings
	for _, u := range f.byID {
		if filter.Status != nil && u.Status != *filter.Status {
			continue
		}
		c := *u
		out = append(out, &domain.UserWithBookings{User: &c})
	}
	return out, nil
}

func (f *fakeUserRepo) Count(ctx context.Context, filter domain.UserFilter) (int, error) {
	users, err := f.List(ctx, filter, domain.PaginationParams{})
	return len(users), err
}

// recordingNotifier records notifications instead of delivering them.
type recordingNotifier struct {
	mu   sync.Mutex
	sent []domain.Notification
}

func (n *recordingNotifier) Notify(msg domain.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
}

func (n *recordingNotifier) kinds() []domain.NotificationKind {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]domain.NotificationKind, len(n.sent))
	for i, m := range n.sent {
		out[i] = m.Kind
	}
	return out
}

// fakeFileStore keeps saved files in memory.
type fakeFileStore struct {
	files   map[string][]byte
	next    int
	saveErr error
	deleted []string
}

func newFakeFileStore() *fakeFileStore {
	return &fakeFileStore{files: make(map[string][]byte)}
}

func (f *fakeFileStore) Save(ctx context.Context, filename, contentType string, body io.Reader) (string, error) {
	if f.saveErr != nil {
		return "", f.saveErr
	}
	b, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	f.next++
	path := fmt.Sprintf("uploads/%d-%s", f.next, filename)
	f.files[path] = b
	return path, nil
}

func (f *fakeFileStore) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	b, ok := f.files[path]
	if !ok {
		return nil, domain.ErrFileNotFound
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (f *fakeFileStore) Delete(ctx context.Context, path string) error {
	delete(f.files, path)
	f.deleted = append(f.deleted, path)
	return nil
}

func upload(name string) *domain.Upload {
	return &domain.Upload{Filename: name, ContentType: "image/jpeg", Body: bytes.NewReader([]byte("jpeg"))}
}

// fakePasswordHasher implements domain.PasswordHasher for tests.
type fakePasswordHasher struct{}

func (fakePasswordHasher) Hash(password string) (string, error) { return "hash-" + password, nil }

func (fakePasswordHasher) Compare(hash, password string) error {
	if hash != "hash-"+password {
		return errors.New("mismatch")
	}
	return nil
}

// fakeTokenIssuer implements domain.TokenIssuer for tests.
type fakeTokenIssuer struct {
	roles []string
}

func (f *fakeTokenIssuer) Issue(userID, email string, roles []string, expiry time.Duration) (string, error) {
	f.roles = roles
	return "token-" + userID, nil
}

// fakeLimiter allows a fixed number of attempts per key.
type fakeLimiter struct {
	max    int
	counts map[string]int
	resets int
}

func (f *fakeLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if f.counts == nil {
		f.counts = make(map[string]int)
	}
	f.counts[key]++
	return f.counts[key] <= f.max, nil
}

func (f *fakeLimiter) Reset(ctx context.Context, key string) error {
	delete(f.counts, key)
	f.resets++
	return nil
}
