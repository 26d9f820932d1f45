package models

import "time"

// ItemRequest is a wish for an item nobody has listed yet. Items created
// in answer to it reference it through Item.RequestID.
type ItemRequest struct {
	ID          int64     `json:"id"`
	Description string    `json:"description"`
	RequestorID int64     `json:"-"`
	Created     time.Time `json:"created"`
	Items       []*Item   `json:"items"`
}
