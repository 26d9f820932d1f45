package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"shareit/internal/domain"
	"shareit/internal/models"
)

const bookingSelect = `SELECT b.id, b.item_id, b.booker_id, b.start_at, b.end_at, b.status, b.version,
                              b.created_at, b.updated_at,
                              ` + itemColumns + `,
                              u.id, u.name, u.email, u.created_at, u.updated_at
                       FROM bookings b
                       JOIN items i ON i.id = b.item_id
                       JOIN users u ON u.id = b.booker_id`

// CreateBooking сохраняет новое бронирование и подтягивает вещь и арендатора
func (db *DB) CreateBooking(ctx context.Context, booking *models.Booking) error {
	query := `INSERT INTO bookings (item_id, booker_id, start_at, end_at, status, version, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	if booking.Status == "" {
		booking.Status = models.StatusWaiting
	}
	now := time.Now().UTC()
	result, err := db.q.ExecContext(ctx, query,
		booking.ItemID,
		booking.BookerID,
		formatTime(booking.Start),
		formatTime(booking.End),
		booking.Status,
		1,
		formatTime(now),
		formatTime(now),
	)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	stored, err := db.GetBooking(ctx, id)
	if err != nil {
		return err
	}
	*booking = *stored
	return nil
}

// GetBooking возвращает бронирование по ID
func (db *DB) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	booking, err := scanBooking(db.q.QueryRowContext(ctx, bookingSelect+` WHERE b.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFoundf("booking with id=%d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return booking, nil
}

// UpdateBookingStatusWithVersion меняет статус только у бронирования в WAITING
// с ожидаемой версией. Если строка не обновилась, возвращает ErrConcurrentModification.
func (db *DB) UpdateBookingStatusWithVersion(ctx context.Context, id, version int64, status models.BookingStatus) error {
	query := `UPDATE bookings SET status = ?, version = version + 1, updated_at = ?
              WHERE id = ? AND version = ? AND status = ?`
	result, err := db.q.ExecContext(ctx, query, status, formatTime(time.Now()), id, version, models.StatusWaiting)
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrConcurrentModification
	}
	return nil
}

// ListBookings возвращает бронирования арендатора или владельца, отфильтрованные
// по состоянию и отсортированные по началу от новых к старым.
func (db *DB) ListBookings(ctx context.Context, q models.BookingQuery) ([]*models.Booking, error) {
	var where string
	switch q.Role {
	case models.RoleBooker:
		where = ` WHERE b.booker_id = ?`
	case models.RoleOwner:
		where = ` WHERE i.owner_id = ?`
	default:
		return nil, fmt.Errorf("unsupported booking role %d", q.Role)
	}
	args := []any{q.UserID}

	predicate, predicateArgs, err := statePredicate(q.State, q.Now)
	if err != nil {
		return nil, err
	}
	args = append(args, predicateArgs...)

	limit, offset := limitOffset(q.Page.Limit, q.Page.Offset)
	args = append(args, limit, offset)

	query := bookingSelect + where + predicate + ` ORDER BY b.start_at DESC, b.id DESC LIMIT ? OFFSET ?`
	return db.queryBookings(ctx, query, args...)
}

func statePredicate(state models.BookingState, now time.Time) (string, []any, error) {
	ts := formatTime(now)
	switch state.Kind {
	case models.StateAll:
		return "", nil, nil
	case models.StateCurrent:
		return ` AND b.start_at < ? AND b.end_at > ?`, []any{ts, ts}, nil
	case models.StatePast:
		return ` AND b.end_at < ?`, []any{ts}, nil
	case models.StateFuture:
		return ` AND b.start_at > ? AND b.end_at > ?`, []any{ts, ts}, nil
	case models.StateStatus:
		return ` AND b.status = ?`, []any{string(state.Status)}, nil
	default:
		return "", nil, fmt.Errorf("unsupported booking state kind %d", state.Kind)
	}
}

// GetItemBookings возвращает неотклоненные бронирования вещи, если ей владеет ownerID
func (db *DB) GetItemBookings(ctx context.Context, itemID, ownerID int64) ([]*models.Booking, error) {
	query := bookingSelect + ` WHERE b.item_id = ? AND i.owner_id = ? AND b.status <> ?
              ORDER BY b.start_at DESC, b.id DESC`
	return db.queryBookings(ctx, query, itemID, ownerID, models.StatusRejected)
}

// GetBookingsByItems возвращает неотклоненные бронирования сразу для набора вещей
func (db *DB) GetBookingsByItems(ctx context.Context, itemIDs []int64) ([]*models.Booking, error) {
	if len(itemIDs) == 0 {
		return nil, nil
	}
	in, args := inClause(itemIDs)
	args = append(args, models.StatusRejected)
	query := bookingSelect + ` WHERE b.item_id IN ` + in + ` AND b.status <> ?
              ORDER BY b.start_at DESC, b.id DESC`
	return db.queryBookings(ctx, query, args...)
}

// GetBookingsByBookerAndItem возвращает все бронирования пользователя на вещь,
// первыми те, что закончились раньше.
func (db *DB) GetBookingsByBookerAndItem(ctx context.Context, bookerID, itemID int64) ([]*models.Booking, error) {
	query := bookingSelect + ` WHERE b.booker_id = ? AND b.item_id = ? ORDER BY b.end_at, b.id`
	return db.queryBookings(ctx, query, bookerID, itemID)
}

func (db *DB) queryBookings(ctx context.Context, query string, args ...any) ([]*models.Booking, error) {
	rows, err := db.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*models.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, booking)
	}
	return bookings, rows.Err()
}

func scanBooking(row rowScanner) (*models.Booking, error) {
	var (
		b                                models.Booking
		status                           string
		start, end, createdAt, updatedAt string
		itemRequestID                    sql.NullInt64
		itemCreated, itemUpdated         string
		userCreated, userUpdated         string
	)
	err := row.Scan(
		&b.ID, &b.ItemID, &b.BookerID, &start, &end, &status, &b.Version, &createdAt, &updatedAt,
		&b.Item.ID, &b.Item.OwnerID, &b.Item.Name, &b.Item.Description, &b.Item.Available,
		&itemRequestID, &itemCreated, &itemUpdated,
		&b.Booker.ID, &b.Booker.Name, &b.Booker.Email, &userCreated, &userUpdated,
	)
	if err != nil {
		return nil, err
	}
	b.Status = models.BookingStatus(status)
	if itemRequestID.Valid {
		id := itemRequestID.Int64
		b.Item.RequestID = &id
	}

	for _, f := range []struct {
		dst *time.Time
		src string
	}{
		{&b.Start, start},
		{&b.End, end},
		{&b.CreatedAt, createdAt},
		{&b.UpdatedAt, updatedAt},
		{&b.Item.CreatedAt, itemCreated},
		{&b.Item.UpdatedAt, itemUpdated},
		{&b.Booker.CreatedAt, userCreated},
		{&b.Booker.UpdatedAt, userUpdated},
	} {
		if *f.dst, err = parseTime(f.src); err != nil {
			return nil, err
		}
	}
	return &b, nil
}
