package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"RIDESHARE_BACK-END/internal/models"
	"RIDESHARE_BACK-END/internal/repository"
)

// ConversationStore persists conversations and their membership. Leaving
// hides a conversation for one member; the history stays.
type ConversationStore struct {
	db *pgxpool.Pool
}

func NewConversationStore(db *pgxpool.Pool) *ConversationStore {
	return &ConversationStore{db: db}
}

// Create inserts c together with its members, all active.
func (s *ConversationStore) Create(ctx context.Context, c *models.Conversation) error {
	return pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO conversations (id, created_at, updated_at) VALUES ($1, $2, $3)`,
			c.ID, c.CreatedAt, c.UpdatedAt,
		); err != nil {
			return fmt.Errorf("insert conversation: %w", err)
		}
		for _, uid := range c.Members {
			_, err := tx.Exec(ctx,
				`INSERT INTO conversation_members (conversation_id, user_id) VALUES ($1, $2)`,
				c.ID, uid)
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23503" {
				return repository.ErrNotFound
			}
			if err != nil {
				return fmt.Errorf("insert conversation member: %w", err)
			}
		}
		return nil
	})
}

// FindDirect returns the two-member conversation between a and b.
func (s *ConversationStore) FindDirect(ctx context.Context, a, b uuid.UUID) (*models.Conversation, error) {
	var id uuid.UUID
	err := s.db.QueryRow(ctx, `
		SELECT m1.conversation_id
		  FROM conversation_members m1
		  JOIN conversation_members m2 ON m2.conversation_id = m1.conversation_id
		 WHERE m1.user_id = $1 AND m2.user_id = $2
		   AND (SELECT COUNT(*) FROM conversation_members m3 WHERE m3.conversation_id = m1.conversation_id) = 2
		 LIMIT 1
	`, a, b).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find conversation: %w", err)
	}
	return s.Get(ctx, id)
}

func (s *ConversationStore) Get(ctx context.Context, id uuid.UUID) (*models.Conversation, error) {
	c := models.Conversation{ID: id}
	err := s.db.QueryRow(ctx,
		`SELECT created_at, updated_at FROM conversations WHERE id = $1`, id,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}
	if err := s.loadMembers(ctx, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// ListForUser returns the conversations userID belongs to, most recently
// active first. activeOnly drops the ones the user has left.
func (s *ConversationStore) ListForUser(ctx context.Context, userID uuid.UUID, activeOnly bool) ([]models.Conversation, error) {
	rows, err := s.db.Query(ctx, `
		SELECT c.id, c.created_at, c.updated_at
		  FROM conversations c
		  JOIN conversation_members m ON m.conversation_id = c.id
		 WHERE m.user_id = $1 AND ($2 = FALSE OR m.left_at IS NULL)
		 ORDER BY c.updated_at DESC, c.id
	`, userID, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}

	out := make([]models.Conversation, 0)
	for rows.Next() {
		var c models.Conversation
		if err := rows.Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		out = append(out, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}

	for i := range out {
		if err := s.loadMembers(ctx, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// IsMember reports whether userID belongs to the conversation, left or not.
func (s *ConversationStore) IsMember(ctx context.Context, conversationID, userID uuid.UUID) (bool, error) {
	var ok bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM conversation_members WHERE conversation_id = $1 AND user_id = $2)`,
		conversationID, userID,
	).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("check conversation member: %w", err)
	}
	return ok, nil
}

// Leave hides the conversation for userID.
func (s *ConversationStore) Leave(ctx context.Context, conversationID, userID uuid.UUID) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE conversation_members SET left_at = COALESCE(left_at, NOW())
          WHERE conversation_id = $1 AND user_id = $2`,
		conversationID, userID)
	if err != nil {
		return fmt.Errorf("leave conversation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Rejoin makes the conversation visible again to every member and bumps it.
func (s *ConversationStore) Rejoin(ctx context.Context, conversationID uuid.UUID) (*models.Conversation, error) {
	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE conversations SET updated_at = $2 WHERE id = $1`, conversationID, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("touch conversation: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return repository.ErrNotFound
		}
		if _, err := tx.Exec(ctx,
			`UPDATE conversation_members SET left_at = NULL WHERE conversation_id = $1`, conversationID,
		); err != nil {
			return fmt.Errorf("rejoin conversation: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, conversationID)
}

func (s *ConversationStore) loadMembers(ctx context.Context, c *models.Conversation) error {
	rows, err := s.db.Query(ctx,
		`SELECT user_id, left_at IS NULL FROM conversation_members
          WHERE conversation_id = $1 ORDER BY user_id`, c.ID)
	if err != nil {
		return fmt.Errorf("load conversation members: %w", err)
	}
	defer rows.Close()

	c.Members = make([]uuid.UUID, 0, 2)
	c.Active = make([]uuid.UUID, 0, 2)
	for rows.Next() {
		var (
			uid    uuid.UUID
			active bool
		)
		if err := rows.Scan(&uid, &active); err != nil {
			return fmt.Errorf("scan conversation member: %w", err)
		}
		c.Members = append(c.Members, uid)
		if active {
			c.Active = append(c.Active, uid)
		}
	}
	return rows.Err()
}
