package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"velvetden/internal/domain"
)

func newReviewFixture(t *testing.T) (*fakeUserRepo, *fakeFileStore, *recordingNotifier, domain.ReviewService) {
	t.Helper()
	users := newFakeUserRepo()
	files := newFakeFileStore()
	notifier := &recordingNotifier{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return users, files, notifier, NewReviewService(users, files, notifier, logger)
}

func TestReviewService_Transitions(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		from   domain.UserStatus
		action func(svc domain.ReviewService, id string) (*domain.User, error)
		want   domain.UserStatus
	}{
		{"approve from review", domain.StatusInReview, func(s domain.ReviewService, id string) (*domain.User, error) { return s.Approve(ctx, id) }, domain.StatusApproved},
		{"reject an approved user", domain.StatusApproved, func(s domain.ReviewService, id string) (*domain.User, error) { return s.Reject(ctx, id) }, domain.StatusRejected},
		{"approve a rejected user", domain.StatusRejected, func(s domain.ReviewService, id string) (*domain.User, error) { return s.Approve(ctx, id) }, domain.StatusApproved},
		{"request picture", domain.StatusInReview, func(s domain.ReviewService, id string) (*domain.User, error) { return s.RequestPicture(ctx, id) }, domain.StatusPictureRequested},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users, _, notifier, svc := newReviewFixture(t)
			u := users.add(&domain.User{Email: "a@example.com", Status: tt.from})

			got, err := tt.action(svc, u.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Status)
			assert.Equal(t, []domain.NotificationKind{domain.NotificationReviewDecision}, notifier.kinds())
		})
	}
}

func TestReviewService_TransitionUnknownUser(t *testing.T) {
	_, _, notifier, svc := newReviewFixture(t)
	_, err := svc.Approve(context.Background(), "missing")
	require.ErrorIs(t, err, domain.ErrUserNotFound)
	_, err = svc.Reject(context.Background(), uuid.NewString())
	require.ErrorIs(t, err, domain.ErrUserNotFound)
	assert.Empty(t, notifier.kinds())
}

func TestReviewService_SubmitPicture(t *testing.T) {
	ctx := context.Background()
	users, files, notifier, svc := newReviewFixture(t)
	u := users.add(&domain.User{Email: "a@example.com", Status: domain.StatusPictureRequested})

	got, err := svc.SubmitPicture(ctx, u.ID, upload("new.jpg"))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInReview, got.Status)
	require.NotNil(t, got.VerificationImagePath)
	assert.Contains(t, files.files, *got.VerificationImagePath)
	assert.Equal(t, []domain.NotificationKind{domain.NotificationPictureReplaced}, notifier.kinds())
}

func TestReviewService_SubmitPictureRefused(t *testing.T) {
	ctx := context.Background()

	for _, status := range []domain.UserStatus{domain.StatusApproved, domain.StatusInReview, domain.StatusRejected} {
		t.Run(string(status), func(t *testing.T) {
			users, files, notifier, svc := newReviewFixture(t)
			u := users.add(&domain.User{Email: "a@example.com", Status: status})

			_, err := svc.SubmitPicture(ctx, u.ID, upload("new.jpg"))
			require.ErrorIs(t, err, domain.ErrPictureNotRequested)
			require.ErrorIs(t, err, domain.ErrInvalidState)
			assert.Empty(t, files.files)
			assert.Empty(t, notifier.kinds())
			stored, _ := users.GetByID(ctx, u.ID)
			assert.Equal(t, status, stored.Status)
		})
	}
}

func TestReviewService_SubmitPictureErrors(t *testing.T) {
	ctx := context.Background()
	users, files, _, svc := newReviewFixture(t)

	_, err := svc.SubmitPicture(ctx, "missing", upload("a.jpg"))
	require.ErrorIs(t, err, domain.ErrUserNotFound)

	_, err = svc.SubmitPicture(ctx, "missing", nil)
	require.ErrorIs(t, err, domain.ErrInvalidArgument)

	u := users.add(&domain.User{Email: "a@example.com", Status: domain.StatusPictureRequested})
	files.saveErr = errors.New("bucket gone")
	_, err = svc.SubmitPicture(ctx, u.ID, upload("a.jpg"))
	require.Error(t, err)
	stored, _ := users.GetByID(ctx, u.ID)
	assert.Equal(t, domain.StatusPictureRequested, stored.Status)
}

// racingUserRepo flips the status after the first read, as a concurrent admin action would.
type racingUserRepo struct {
	*fakeUserRepo
	reads int
}

func (r *racingUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	u, err := r.fakeUserRepo.GetByID(ctx, id)
	r.reads++
	if r.reads == 1 && err == nil {
		_, _ = r.fakeUserRepo.UpdateStatus(ctx, id, domain.StatusApproved)
	}
	return u, err
}

func TestReviewService_SubmitPictureLosesRace(t *testing.T) {
	ctx := context.Background()
	users := &racingUserRepo{fakeUserRepo: newFakeUserRepo()}
	files := newFakeFileStore()
	svc := NewReviewService(users, files, &recordingNotifier{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	u := users.add(&domain.User{Email: "a@example.com", Status: domain.StatusPictureRequested})

	_, err := svc.SubmitPicture(ctx, u.ID, upload("late.jpg"))
	require.ErrorIs(t, err, domain.ErrPictureNotRequested)
	assert.Empty(t, files.files, "orphaned upload is removed")
	assert.Len(t, files.deleted, 1)
}
