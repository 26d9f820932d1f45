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

const requestColumns = `r.id, r.description, r.requestor_id, r.created_at`

// CreateRequest сохраняет запрос вещи
func (db *DB) CreateRequest(ctx context.Context, request *models.ItemRequest) error {
	if request.Created.IsZero() {
		request.Created = time.Now().UTC()
	}
	query := `INSERT INTO requests (description, requestor_id, created_at) VALUES (?, ?, ?)`
	result, err := db.q.ExecContext(ctx, query, request.Description, request.RequestorID, formatTime(request.Created))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	request.ID = id
	return nil
}

// GetRequestByID возвращает запрос без списка вещей
func (db *DB) GetRequestByID(ctx context.Context, id int64) (*models.ItemRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM requests r WHERE r.id = ?`
	request, err := scanRequest(db.q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFoundf("request with id=%d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get request: %w", err)
	}
	return request, nil
}

// GetRequestsByRequestor возвращает запросы пользователя, новые первыми
func (db *DB) GetRequestsByRequestor(ctx context.Context, requestorID int64) ([]*models.ItemRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM requests r
              WHERE r.requestor_id = ? ORDER BY r.created_at DESC, r.id DESC`
	return db.queryRequests(ctx, query, requestorID)
}

// GetRequestsOfOthers возвращает страницу чужих запросов, новые первыми
func (db *DB) GetRequestsOfOthers(ctx context.Context, userID int64, page models.Page) ([]*models.ItemRequest, error) {
	limit, offset := limitOffset(page.Limit, page.Offset)
	query := `SELECT ` + requestColumns + ` FROM requests r
              WHERE r.requestor_id <> ? ORDER BY r.created_at DESC, r.id DESC LIMIT ? OFFSET ?`
	return db.queryRequests(ctx, query, userID, limit, offset)
}

func (db *DB) queryRequests(ctx context.Context, query string, args ...any) ([]*models.ItemRequest, error) {
	rows, err := db.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query requests: %w", err)
	}
	defer rows.Close()

	var requests []*models.ItemRequest
	for rows.Next() {
		request, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan request: %w", err)
		}
		requests = append(requests, request)
	}
	return requests, rows.Err()
}

func scanRequest(row rowScanner) (*models.ItemRequest, error) {
	var (
		request   models.ItemRequest
		createdAt string
	)
	if err := row.Scan(&request.ID, &request.Description, &request.RequestorID, &createdAt); err != nil {
		return nil, err
	}
	created, err := parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	request.Created = created
	return &request, nil
}
