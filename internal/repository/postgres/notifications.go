package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"RIDESHARE_BACK-END/internal/models"
	"RIDESHARE_BACK-END/internal/repository"
)

// NotificationStore persists in-app notifications.
type NotificationStore struct {
	db *pgxpool.Pool
}

func NewNotificationStore(db *pgxpool.Pool) *NotificationStore {
	return &NotificationStore{db: db}
}

// Create inserts n. A second notification for the same user and event yields
// repository.ErrDuplicate.
func (s *NotificationStore) Create(ctx context.Context, n *models.Notification) error {
	if n.UserID == uuid.Nil {
		return errors.New("user_id cannot be nil")
	}
	var data any
	if len(n.Data) > 0 {
		b, err := json.Marshal(n.Data)
		if err != nil {
			return fmt.Errorf("marshal notification data: %w", err)
		}
		data = string(b)
	}

	insertCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	err := s.db.QueryRow(insertCtx, `
		INSERT INTO notifications (user_id, event_id, type, title, message, data, action_url)
		VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7)
		ON CONFLICT (user_id, event_id) WHERE event_id IS NOT NULL DO NOTHING
		RETURNING id, created_at
	`, n.UserID, n.EventID, n.Type, n.Title, n.Message, data, n.ActionURL).Scan(&n.ID, &n.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (s *NotificationStore) List(ctx context.Context, userID uuid.UUID, f models.NotificationFilter) (*models.NotificationPage, error) {
	page := &models.NotificationPage{Items: []models.Notification{}}

	err := s.db.QueryRow(ctx, `
		SELECT COUNT(*) FILTER (WHERE ($2 = FALSE OR read = FALSE) AND ($3 = '' OR type = $3)),
		       COUNT(*) FILTER (WHERE read = FALSE)
		  FROM notifications WHERE user_id = $1
	`, userID, f.UnreadOnly, f.Type).Scan(&page.Total, &page.UnreadCount)
	if err != nil {
		return nil, fmt.Errorf("count notifications: %w", err)
	}

	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, type, title, message, data, action_url, read, created_at
		  FROM notifications
		 WHERE user_id = $1 AND ($2 = FALSE OR read = FALSE) AND ($3 = '' OR type = $3)
		 ORDER BY created_at DESC
		 LIMIT $4 OFFSET $5
	`, userID, f.UnreadOnly, f.Type, f.Limit, f.Offset)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			n   models.Notification
			raw []byte
		)
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message, &raw, &n.ActionURL, &n.Read, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &n.Data); err != nil {
				return nil, fmt.Errorf("decode notification data: %w", err)
			}
		}
		page.Items = append(page.Items, n)
	}
	return page, rows.Err()
}

// MarkRead flags one notification owned by userID as read.
func (s *NotificationStore) MarkRead(ctx context.Context, userID, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE notifications SET read = TRUE WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// MarkAllRead flags every unread notification of userID and returns how many changed.
func (s *NotificationStore) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	tag, err := s.db.Exec(ctx,
		`UPDATE notifications SET read = TRUE WHERE user_id = $1 AND read = FALSE`, userID)
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}
	return tag.RowsAffected(), nil
}
