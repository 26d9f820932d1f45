package database

import (
	"context"
	"fmt"
	"time"

	"shareit/internal/models"
)

const commentSelect = `SELECT c.id, c.text, c.item_id, c.author_id, u.name, c.created_at
                       FROM comments c JOIN users u ON u.id = c.author_id`

// CreateComment сохраняет отзыв и заполняет имя автора
func (db *DB) CreateComment(ctx context.Context, comment *models.Comment) error {
	if comment.Created.IsZero() {
		comment.Created = time.Now().UTC()
	}
	query := `INSERT INTO comments (text, item_id, author_id, created_at) VALUES (?, ?, ?, ?)`
	result, err := db.q.ExecContext(ctx, query, comment.Text, comment.ItemID, comment.AuthorID, formatTime(comment.Created))
	if err != nil {
		return fmt.Errorf("failed to create comment: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	comment.ID = id

	if comment.AuthorName == "" {
		err = db.q.QueryRowContext(ctx, `SELECT name FROM users WHERE id = ?`, comment.AuthorID).Scan(&comment.AuthorName)
		if err != nil {
			return fmt.Errorf("failed to get comment author: %w", err)
		}
	}
	return nil
}

// GetCommentsByItem возвращает отзывы о вещи от старых к новым
func (db *DB) GetCommentsByItem(ctx context.Context, itemID int64) ([]*models.Comment, error) {
	return db.queryComments(ctx, commentSelect+` WHERE c.item_id = ? ORDER BY c.created_at, c.id`, itemID)
}

// GetCommentsByItems возвращает отзывы сразу для набора вещей
func (db *DB) GetCommentsByItems(ctx context.Context, itemIDs []int64) ([]*models.Comment, error) {
	if len(itemIDs) == 0 {
		return nil, nil
	}
	in, args := inClause(itemIDs)
	query := commentSelect + ` WHERE c.item_id IN ` + in + ` ORDER BY c.item_id, c.created_at, c.id`
	return db.queryComments(ctx, query, args...)
}

func (db *DB) queryComments(ctx context.Context, query string, args ...any) ([]*models.Comment, error) {
	rows, err := db.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query comments: %w", err)
	}
	defer rows.Close()

	var comments []*models.Comment
	for rows.Next() {
		var (
			c         models.Comment
			createdAt string
		)
		if err := rows.Scan(&c.ID, &c.Text, &c.ItemID, &c.AuthorID, &c.AuthorName, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		if c.Created, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		comments = append(comments, &c)
	}
	return comments, rows.Err()
}
