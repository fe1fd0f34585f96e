package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JoaoG250/micro-do/common/database"
	"github.com/JoaoG250/micro-do/notifications/internal/models"
)

type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const notificationColumns = `id, user_id, type, message, metadata, is_read, created_at`

func (r *PostgresRepository) CreateNotification(ctx context.Context, n *models.Notification) error {
	ctx, cancel := database.WriteContext(ctx)
	defer cancel()

	metadata := n.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}

	err := r.pool.QueryRow(ctx, `
		INSERT INTO notifications (id, user_id, type, message, metadata, is_read)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, n.ID, n.UserID, n.Type, n.Message, metadata, n.IsRead).Scan(&n.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListNotifications(ctx context.Context, userID string, unreadOnly bool, offset, limit int) ([]*models.Notification, int, error) {
	ctx, cancel := database.QueryContext(ctx)
	defer cancel()

	where := ` WHERE user_id = $1`
	if unreadOnly {
		where += ` AND NOT is_read`
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM notifications`+where, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}

	query := `SELECT ` + notificationColumns + ` FROM notifications` + where +
		` ORDER BY created_at DESC, id DESC OFFSET $2`
	args := []any{userID, offset}
	if limit > 0 {
		query += ` LIMIT $3`
		args = append(args, limit)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list notifications: %w", err)
	}
	notifications, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*models.Notification, error) {
		return scanNotification(row)
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to scan notifications: %w", err)
	}
	return notifications, total, nil
}

func (r *PostgresRepository) MarkRead(ctx context.Context, id, userID string) (*models.Notification, error) {
	ctx, cancel := database.WriteContext(ctx)
	defer cancel()

	n, err := scanNotification(r.pool.QueryRow(ctx, `
		UPDATE notifications SET is_read = TRUE
		WHERE id = $1 AND user_id = $2
		RETURNING `+notificationColumns, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotificationNotFound
		}
		return nil, fmt.Errorf("failed to mark notification read: %w", err)
	}
	return n, nil
}

func scanNotification(row pgx.Row) (*models.Notification, error) {
	var n models.Notification
	if err := row.Scan(&n.ID, &n.UserID, &n.Type, &n.Message, &n.Metadata, &n.IsRead, &n.CreatedAt); err != nil {
		return nil, err
	}
	return &n, nil
}
