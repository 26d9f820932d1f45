package service

import (
	"strings"

	"shareit/internal/domain"
	"shareit/internal/models"
)

// ParseBookingState разбирает фильтр списка бронирований без учета регистра.
// Пустая строка означает ALL.
func ParseBookingState(raw string) (models.BookingState, error) {
	switch s := strings.ToUpper(strings.TrimSpace(raw)); s {
	case "", "ALL":
		return models.BookingState{Kind: models.StateAll}, nil
	case "CURRENT":
		return models.BookingState{Kind: models.StateCurrent}, nil
	case "PAST":
		return models.BookingState{Kind: models.StatePast}, nil
	case "FUTURE":
		return models.BookingState{Kind: models.StateFuture}, nil
	case string(models.StatusWaiting), string(models.StatusApproved),
		string(models.StatusRejected), string(models.StatusCanceled):
		return models.BookingState{Kind: models.StateStatus, Status: models.BookingStatus(s)}, nil
	default:
		return models.BookingState{}, domain.InvalidDataf("Unknown state: %s", raw)
	}
}
