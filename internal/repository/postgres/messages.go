package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"RIDESHARE_BACK-END/internal/models"
	"RIDESHARE_BACK-END/internal/repository"
)

const messageColumns = `id, conversation_id, sender_id, text, picture, location, latitude, longitude,
       edited, deleted, created_at, updated_at`

// MessageStore persists chat messages. Deletion is soft: the row stays with
// its text blanked so conversation order is preserved.
type MessageStore struct {
	db *pgxpool.Pool
}

func NewMessageStore(db *pgxpool.Pool) *MessageStore {
	return &MessageStore{db: db}
}

// Create inserts m and moves its conversation to the top of the members' lists.
func (s *MessageStore) Create(ctx context.Context, m *models.Message) error {
	return pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO messages (`+messageColumns+`)
             VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
			m.ID, m.ConversationID, m.SenderID, m.Text, m.Picture, m.Location, m.Latitude, m.Longitude,
			m.Edited, m.Deleted, m.CreatedAt, m.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert message: %w", err)
		}
		if _, err := tx.Exec(ctx,
			`UPDATE conversations SET updated_at = $2 WHERE id = $1`, m.ConversationID, m.CreatedAt,
		); err != nil {
			return fmt.Errorf("touch conversation: %w", err)
		}
		return nil
	})
}

// ListByConversation returns messages oldest first.
func (s *MessageStore) ListByConversation(ctx context.Context, conversationID uuid.UUID, limit, offset int) ([]models.Message, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+messageColumns+` FROM messages
          WHERE conversation_id = $1
          ORDER BY created_at, id
          LIMIT $2 OFFSET $3`,
		conversationID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	out := make([]models.Message, 0)
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

// Edit replaces the text of a live message sent by senderID.
func (s *MessageStore) Edit(ctx context.Context, id, senderID uuid.UUID, text string) (*models.Message, error) {
	return s.mutate(ctx, id, senderID,
		`UPDATE messages SET text = $3, edited = TRUE, updated_at = NOW()
          WHERE id = $1 AND sender_id = $2 AND deleted = FALSE
      RETURNING `+messageColumns, text)
}

// SoftDelete blanks a message sent by senderID and flags it deleted.
func (s *MessageStore) SoftDelete(ctx context.Context, id, senderID uuid.UUID) (*models.Message, error) {
	return s.mutate(ctx, id, senderID,
		`UPDATE messages SET text = '', picture = NULL, deleted = TRUE, updated_at = NOW()
          WHERE id = $1 AND sender_id = $2
      RETURNING `+messageColumns)
}

// mutate runs query and tells a missing message apart from someone else's.
func (s *MessageStore) mutate(ctx context.Context, id, senderID uuid.UUID, query string, extra ...any) (*models.Message, error) {
	args := append([]any{id, senderID}, extra...)
	m, err := scanMessage(s.db.QueryRow(ctx, query, args...))
	if !errors.Is(err, pgx.ErrNoRows) {
		return m, err
	}

	var owner uuid.UUID
	var deleted bool
	err = s.db.QueryRow(ctx, `SELECT sender_id, deleted FROM messages WHERE id = $1`, id).Scan(&owner, &deleted)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return nil, repository.ErrNotFound
	case err != nil:
		return nil, fmt.Errorf("load message: %w", err)
	case owner != senderID:
		return nil, repository.ErrForbidden
	default:
		// only an edit of a deleted message lands here
		return nil, repository.ErrNotFound
	}
}

func scanMessage(row pgx.Row) (*models.Message, error) {
	var m models.Message
	err := row.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Text, &m.Picture, &m.Location,
		&m.Latitude, &m.Longitude, &m.Edited, &m.Deleted, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan message: %w", err)
	}
	return &m, nil
}
