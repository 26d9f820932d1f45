package service

import (
	"context"
	"time"

	"shareit/internal/models"
)

// ItemViewSource is the read side the aggregator needs from the store.
type ItemViewSource interface {
	GetItemByID(ctx context.Context, id int64) (*models.Item, error)
	GetItemsByOwner(ctx context.Context, ownerID int64, page models.Page) ([]*models.Item, error)
	GetItemBookings(ctx context.Context, itemID, ownerID int64) ([]*models.Booking, error)
	GetBookingsByItems(ctx context.Context, itemIDs []int64) ([]*models.Booking, error)
	GetCommentsByItem(ctx context.Context, itemID int64) ([]*models.Comment, error)
	GetCommentsByItems(ctx context.Context, itemIDs []int64) ([]*models.Comment, error)
}

// selectLastBooking ожидает бронирования, отсортированные по start desc.
// Последнее: первое с началом раньше now.
func selectLastBooking(bookings []*models.Booking, now time.Time) *models.Booking {
	for _, b := range bookings {
		if b.Status == models.StatusRejected {
			continue
		}
		if b.Start.Before(now) {
			return b
		}
	}
	return nil
}

// selectNextBooking выбирает среди будущих бронирований то, что раньше всех
// освобождает вещь (минимальный end). При равном end остается первое по порядку.
func selectNextBooking(bookings []*models.Booking, now time.Time) *models.Booking {
	var next *models.Booking
	for _, b := range bookings {
		if b.Status == models.StatusRejected || !b.Start.After(now) {
			continue
		}
		if next == nil || b.End.Before(next.End) {
			next = b
		}
	}
	return next
}

func composeItemView(item *models.Item, bookings []*models.Booking, comments []*models.Comment, now time.Time) *models.ItemView {
	if comments == nil {
		comments = []*models.Comment{}
	}
	return &models.ItemView{
		Item:        *item,
		LastBooking: selectLastBooking(bookings, now).Short(),
		NextBooking: selectNextBooking(bookings, now).Short(),
		Comments:    comments,
	}
}

// BuildItemView собирает представление одной вещи. Бронирования берутся только
// если viewerID владеет вещью, поэтому чужие пользователи видят пустые last/next.
func BuildItemView(ctx context.Context, src ItemViewSource, itemID, viewerID int64, now time.Time) (*models.ItemView, error) {
	item, err := src.GetItemByID(ctx, itemID)
	if err != nil {
		return nil, err
	}

	bookings, err := src.GetItemBookings(ctx, itemID, viewerID)
	if err != nil {
		return nil, err
	}

	comments, err := src.GetCommentsByItem(ctx, itemID)
	if err != nil {
		return nil, err
	}

	return composeItemView(item, bookings, comments, now), nil
}

// BuildOwnerItemViews is the batch variant of BuildItemView for all items of
// an owner: three flat queries grouped by item id in memory.
func BuildOwnerItemViews(ctx context.Context, src ItemViewSource, ownerID int64, page models.Page, now time.Time) ([]*models.ItemView, error) {
	items, err := src.GetItemsByOwner(ctx, ownerID, page)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return []*models.ItemView{}, nil
	}

	ids := make([]int64, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}

	bookings, err := src.GetBookingsByItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	comments, err := src.GetCommentsByItems(ctx, ids)
	if err != nil {
		return nil, err
	}

	// порядок внутри группы сохраняется из запроса
	bookingsByItem := make(map[int64][]*models.Booking, len(items))
	for _, b := range bookings {
		bookingsByItem[b.ItemID] = append(bookingsByItem[b.ItemID], b)
	}
	commentsByItem := make(map[int64][]*models.Comment, len(items))
	for _, c := range comments {
		commentsByItem[c.ItemID] = append(commentsByItem[c.ItemID], c)
	}

	views := make([]*models.ItemView, 0, len(items))
	for _, item := range items {
		views = append(views, composeItemView(item, bookingsByItem[item.ID], commentsByItem[item.ID], now))
	}
	return views, nil
}
