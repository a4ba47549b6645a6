package db

import (
	"context"
	"fmt"

	"backoffice-alerts/internal/models"
)

// CreateNotification appends n to the notification log.
func (d *DB) CreateNotification(ctx context.Context, n models.Notification) error {
	query := `
        INSERT INTO notifications (id, created_at, source, severity, message, auto_expire)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (id) DO NOTHING`
	_, err := d.Pool.Exec(ctx, query, n.ID, n.CreatedAt, n.Source, string(n.Severity), n.Message, n.AutoExpire)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

// GetNotifications returns the most recent logged notifications, newest first.
func (d *DB) GetNotifications(ctx context.Context, limit, offset int) ([]models.Notification, error) {
	query := `
        SELECT id::text, created_at, source, severity, message, auto_expire
        FROM notifications
        ORDER BY created_at DESC
        LIMIT $1 OFFSET $2`
	rows, err := d.Pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get notifications: %w", err)
	}
	defer rows.Close()

	var notifications []models.Notification
	for rows.Next() {
		var n models.Notification
		var severity string
		if err := rows.Scan(&n.ID, &n.CreatedAt, &n.Source, &severity, &n.Message, &n.AutoExpire); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		n.Severity = models.Severity(severity)
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read notifications: %w", err)
	}
	return notifications, nil
}
