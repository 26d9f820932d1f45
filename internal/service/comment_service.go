package service

import (
	"context"
	"strings"
	"time"

	"shareit/internal/domain"
	"shareit/internal/events"
	"shareit/internal/metrics"
	"shareit/internal/models"

	"github.com/rs/zerolog"
)

type CommentService struct {
	repo     domain.Repository
	eventBus domain.EventPublisher
	logger   *zerolog.Logger
	now      func() time.Time
}

var _ domain.CommentService = (*CommentService)(nil)

func NewCommentService(repo domain.Repository, eventBus domain.EventPublisher, logger *zerolog.Logger) *CommentService {
	return &CommentService{
		repo:     repo,
		eventBus: eventBus,
		logger:   logger,
		now:      time.Now,
	}
}

// AddComment пропускает отзыв только после завершенной подтвержденной аренды.
func (s *CommentService) AddComment(ctx context.Context, authorID, itemID int64, text string) (*models.Comment, error) {
	if strings.TrimSpace(text) == "" {
		return nil, domain.InvalidDataf("comment text must not be blank")
	}

	now := s.now()
	var comment *models.Comment
	err := s.repo.InTx(ctx, func(tx domain.Repository) error {
		bookings, err := tx.GetBookingsByBookerAndItem(ctx, authorID, itemID)
		if err != nil {
			return err
		}
		if len(bookings) == 0 {
			return domain.InvalidDataf("user cannot leave a comment because they didn't rent this item")
		}

		var approved *models.Booking
		for _, b := range bookings {
			if b.Status == models.StatusApproved {
				approved = b
				break
			}
		}
		if approved == nil {
			return domain.InvalidDataf("cannot leave a comment, has not yet been given the item")
		}
		if approved.End.After(now) {
			return domain.InvalidDataf("comment can be left only after the end of the rent period")
		}

		c := &models.Comment{
			Text:       text,
			ItemID:     approved.ItemID,
			AuthorID:   approved.BookerID,
			AuthorName: approved.Booker.Name,
			Created:    now,
		}
		if err := tx.CreateComment(ctx, c); err != nil {
			return err
		}
		comment = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.IncComments()
	if s.eventBus != nil {
		payload := events.CommentEventPayload{
			CommentID: comment.ID,
			ItemID:    comment.ItemID,
			AuthorID:  comment.AuthorID,
			Created:   comment.Created,
		}
		if err := s.eventBus.PublishJSON(events.EventCommentAdded, payload); err != nil {
			s.logger.Error().
				Err(err).
				Str("event_type", events.EventCommentAdded).
				Int64("comment_id", comment.ID).
				Msg("publish event error")
		}
	}
	return comment, nil
}
