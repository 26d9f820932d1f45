package service

import (
	"context"
	"errors"
	"time"

	"shareit/internal/domain"
	"shareit/internal/events"
	"shareit/internal/metrics"
	"shareit/internal/models"

	"github.com/rs/zerolog"
)

type BookingService struct {
	repo     domain.Repository
	eventBus domain.EventPublisher
	logger   *zerolog.Logger
	now      func() time.Time
}

var _ domain.BookingService = (*BookingService)(nil)

func NewBookingService(repo domain.Repository, eventBus domain.EventPublisher, logger *zerolog.Logger) *BookingService {
	return &BookingService{
		repo:     repo,
		eventBus: eventBus,
		logger:   logger,
		now:      time.Now,
	}
}

// CreateBooking создает заявку в статусе WAITING. Пересечения с другими
// заявками на ту же вещь не проверяются: выбор делает владелец при подтверждении.
func (s *BookingService) CreateBooking(ctx context.Context, bookerID int64, req models.NewBooking) (*models.Booking, error) {
	var booking *models.Booking
	err := s.repo.InTx(ctx, func(tx domain.Repository) error {
		item, err := tx.GetItemByID(ctx, req.ItemID)
		if err != nil {
			return err
		}
		if _, err := tx.GetUserByID(ctx, bookerID); err != nil {
			return err
		}
		if !item.Available {
			return domain.InvalidDataf("item with id=%d is not available", item.ID)
		}
		// Владельцу отвечаем "не найдено", а не "запрещено"
		if item.OwnerID == bookerID {
			return domain.NotFoundf("item with id=%d not found", item.ID)
		}
		if req.End.Before(req.Start) {
			return domain.InvalidDataf("booking end must be after start")
		}
		if req.End.Equal(req.Start) {
			return domain.InvalidDataf("booking start and end must not be equal")
		}

		b := &models.Booking{
			ItemID:   item.ID,
			BookerID: bookerID,
			Start:    req.Start,
			End:      req.End,
			Status:   models.StatusWaiting,
		}
		if err := tx.CreateBooking(ctx, b); err != nil {
			return err
		}
		booking = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.IncBookingTransition(string(models.StatusWaiting))
	s.publishEvent(events.EventBookingCreated, booking, bookerID)
	return booking, nil
}

// ApproveBooking переводит заявку из WAITING в APPROVED или REJECTED. Решение
// принимается один раз: повторный вызов, в том числе конкурентный, получает InvalidData.
func (s *BookingService) ApproveBooking(ctx context.Context, ownerID, bookingID int64, approved bool) (*models.Booking, error) {
	status := models.StatusRejected
	if approved {
		status = models.StatusApproved
	}

	var booking *models.Booking
	err := s.repo.InTx(ctx, func(tx domain.Repository) error {
		b, err := tx.GetBooking(ctx, bookingID)
		if err != nil {
			return err
		}
		if b.Item.OwnerID != ownerID {
			return domain.NotFoundf("booking with id=%d not found", bookingID)
		}
		if b.Status != models.StatusWaiting {
			return errOnlyWaiting()
		}

		if err := tx.UpdateBookingStatusWithVersion(ctx, b.ID, b.Version, status); err != nil {
			if errors.Is(err, domain.ErrConcurrentModification) {
				return errOnlyWaiting()
			}
			return err
		}
		b.Status = status
		b.Version++
		booking = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.IncBookingTransition(string(status))
	eventType := events.EventBookingRejected
	if approved {
		eventType = events.EventBookingApproved
	}
	s.publishEvent(eventType, booking, ownerID)
	return booking, nil
}

func errOnlyWaiting() error {
	return domain.InvalidDataf("only WAITING can be updated")
}

// GetBooking доступен только арендатору и владельцу вещи
func (s *BookingService) GetBooking(ctx context.Context, userID, bookingID int64) (*models.Booking, error) {
	booking, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if userID != booking.BookerID && userID != booking.Item.OwnerID {
		return nil, domain.NotFoundf("booking with id=%d not found", bookingID)
	}
	return booking, nil
}

func (s *BookingService) GetBookerBookings(ctx context.Context, bookerID int64, state string, page models.Page) ([]*models.Booking, error) {
	return s.listBookings(ctx, models.RoleBooker, bookerID, state, page)
}

func (s *BookingService) GetOwnerBookings(ctx context.Context, ownerID int64, state string, page models.Page) ([]*models.Booking, error) {
	return s.listBookings(ctx, models.RoleOwner, ownerID, state, page)
}

func (s *BookingService) listBookings(ctx context.Context, role models.BookingRole, userID int64, rawState string, page models.Page) ([]*models.Booking, error) {
	if _, err := s.repo.GetUserByID(ctx, userID); err != nil {
		return nil, err
	}

	state, err := ParseBookingState(rawState)
	if err != nil {
		return nil, err
	}

	return s.repo.ListBookings(ctx, models.BookingQuery{
		Role:   role,
		UserID: userID,
		State:  state,
		Now:    s.now(),
		Page:   page,
	})
}

func (s *BookingService) publishEvent(eventType string, booking *models.Booking, changedBy int64) {
	if s.eventBus == nil {
		return
	}

	payload := events.BookingEventPayload{
		BookingID:   booking.ID,
		ItemID:      booking.ItemID,
		ItemName:    booking.Item.Name,
		OwnerID:     booking.Item.OwnerID,
		BookerID:    booking.BookerID,
		Status:      string(booking.Status),
		Start:       booking.Start,
		End:         booking.End,
		ChangedByID: changedBy,
	}

	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().
			Err(err).
			Str("event_type", eventType).
			Int64("booking_id", booking.ID).
			Msg("publish event error")
	}
}
