package models

import "time"

// StateKind selects how bookings are filtered when listed.
type StateKind int

const (
	StateAll StateKind = iota
	StateCurrent
	StatePast
	StateFuture
	StateStatus
)

// BookingState is a parsed state filter. Status is only meaningful
// for StateStatus.
type BookingState struct {
	Kind   StateKind
	Status BookingStatus
}

func (s BookingState) String() string {
	switch s.Kind {
	case StateAll:
		return "ALL"
	case StateCurrent:
		return "CURRENT"
	case StatePast:
		return "PAST"
	case StateFuture:
		return "FUTURE"
	case StateStatus:
		return string(s.Status)
	default:
		return "UNKNOWN"
	}
}

// Page is an offset/limit window.
type Page struct {
	Offset int
	Limit  int
}

// BookingRole tells whose bookings are listed: the booker's own or those
// made on the owner's items.
type BookingRole int

const (
	RoleBooker BookingRole = iota
	RoleOwner
)

type BookingQuery struct {
	Role   BookingRole
	UserID int64
	State  BookingState
	Now    time.Time
	Page   Page
}
