package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"shareit/internal/domain"
	"shareit/internal/events"
	"shareit/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestCommentService_AddComment_Gate(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)
	svc := NewCommentService(db, nil, nopLogger())
	svc.now = fixedNow
	day := 24 * time.Hour

	owner := seedUser(t, db, "owner")
	stranger := seedUser(t, db, "stranger")
	waiter := seedUser(t, db, "waiter")
	rejected := seedUser(t, db, "rejected")
	renter := seedUser(t, db, "renter")
	item := seedItem(t, db, owner.ID, "drill", true)

	seedBooking(t, db, item.ID, waiter.ID, testNow.Add(-2*day), testNow.Add(-day), models.StatusWaiting)
	seedBooking(t, db, item.ID, rejected.ID, testNow.Add(-2*day), testNow.Add(-day), models.StatusRejected)
	seedBooking(t, db, item.ID, renter.ID, testNow.Add(-day), testNow.Add(day), models.StatusApproved)

	tests := []struct {
		name     string
		authorID int64
		msg      string
	}{
		{"never booked", stranger.ID, "user cannot leave a comment because they didn't rent this item"},
		{"not approved", waiter.ID, "cannot leave a comment, has not yet been given the item"},
		{"rejected only", rejected.ID, "cannot leave a comment, has not yet been given the item"},
		{"rent not finished", renter.ID, "comment can be left only after the end of the rent period"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.AddComment(ctx, tt.authorID, item.ID, "nice")
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrInvalidData))
			assert.Equal(t, tt.msg, err.Error())
		})
	}

	comments, err := db.GetCommentsByItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Empty(t, comments)
}

func TestCommentService_AddComment(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)
	pub := &mockPublisher{}
	svc := NewCommentService(db, pub, nopLogger())
	svc.now = fixedNow
	day := 24 * time.Hour

	owner := seedUser(t, db, "owner")
	renter := seedUser(t, db, "renter")
	item := seedItem(t, db, owner.ID, "drill", true)
	seedBooking(t, db, item.ID, renter.ID, testNow.Add(-3*day), testNow.Add(-2*day), models.StatusApproved)
	seedBooking(t, db, item.ID, renter.ID, testNow.Add(day), testNow.Add(2*day), models.StatusApproved)

	pub.On("PublishJSON", events.EventCommentAdded, mock.AnythingOfType("events.CommentEventPayload")).Return(nil).Twice()

	first, err := svc.AddComment(ctx, renter.ID, item.ID, "works well")
	require.NoError(t, err)
	assert.Equal(t, "works well", first.Text)
	assert.Equal(t, "renter", first.AuthorName)
	assert.True(t, testNow.Equal(first.Created))

	// не идемпотентно
	second, err := svc.AddComment(ctx, renter.ID, item.ID, "works well")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	comments, err := db.GetCommentsByItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Len(t, comments, 2)
	pub.AssertExpectations(t)
}

func TestCommentService_AddComment_BlankText(t *testing.T) {
	db := setupDB(t)
	svc := NewCommentService(db, nil, nopLogger())

	_, err := svc.AddComment(context.Background(), 1, 1, "   ")
	assert.True(t, errors.Is(err, domain.ErrInvalidData))
}
