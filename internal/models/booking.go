package models

import "time"

type BookingStatus string

const (
	StatusWaiting  BookingStatus = "WAITING"
	StatusApproved BookingStatus = "APPROVED"
	StatusRejected BookingStatus = "REJECTED"
	StatusCanceled BookingStatus = "CANCELED"
)

// Booking хранит заявку на аренду вместе с вещью и арендатором,
// которые подтягиваются из базы одним JOIN.
type Booking struct {
	ID        int64         `json:"id"`
	Start     time.Time     `json:"start"`
	End       time.Time     `json:"end"`
	Status    BookingStatus `json:"status"`
	ItemID    int64         `json:"-"`
	BookerID  int64         `json:"-"`
	Booker    User          `json:"booker"`
	Item      Item          `json:"item"`
	CreatedAt time.Time     `json:"-"`
	UpdatedAt time.Time     `json:"-"`
	Version   int64         `json:"-"`
}

// BookingShort is the booking summary embedded into item views.
type BookingShort struct {
	ID       int64 `json:"id"`
	BookerID int64 `json:"bookerId"`
}

func (b *Booking) Short() *BookingShort {
	if b == nil {
		return nil
	}
	return &BookingShort{ID: b.ID, BookerID: b.BookerID}
}

type NewBooking struct {
	ItemID int64
	Start  time.Time
	End    time.Time
}
