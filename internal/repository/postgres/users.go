package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"RIDESHARE_BACK-END/internal/models"
	"RIDESHARE_BACK-END/internal/repository"
)

const userColumns = `id, username, email, password_hash, google_id, profile_pic, date_of_birth, created_at, updated_at`

// UserStore persists accounts.
type UserStore struct {
	db *pgxpool.Pool
}

func NewUserStore(db *pgxpool.Pool) *UserStore {
	return &UserStore{db: db}
}

// Create inserts u. A taken email yields repository.ErrDuplicate.
func (s *UserStore) Create(ctx context.Context, u *models.User) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		u.ID, u.Username, u.Email, u.PasswordHash, u.GoogleID, u.ProfilePic, u.DateOfBirth, u.CreatedAt, u.UpdatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return repository.ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *UserStore) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.getBy(ctx, "id", id)
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getBy(ctx, "email", email)
}

func (s *UserStore) GetByGoogleID(ctx context.Context, googleID string) (*models.User, error) {
	return s.getBy(ctx, "google_id", googleID)
}

// LinkGoogle attaches a Google account to an existing user.
func (s *UserStore) LinkGoogle(ctx context.Context, id uuid.UUID, googleID string, picture *string) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE users SET google_id = $2, profile_pic = COALESCE(profile_pic, $3), updated_at = NOW() WHERE id = $1`,
		id, googleID, picture,
	)
	if err != nil {
		return fmt.Errorf("link google account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (s *UserStore) Update(ctx context.Context, id uuid.UUID, upd models.UserUpdate) (*models.User, error) {
	row := s.db.QueryRow(ctx,
		`UPDATE users
            SET username      = COALESCE($2, username),
                profile_pic   = COALESCE($3, profile_pic),
                date_of_birth = COALESCE($4, date_of_birth),
                updated_at    = NOW()
          WHERE id = $1
      RETURNING `+userColumns,
		id, upd.Username, upd.ProfilePic, upd.DateOfBirth,
	)
	return scanUser(row)
}

func (s *UserStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (s *UserStore) getBy(ctx context.Context, column string, value any) (*models.User, error) {
	row := s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE `+column+` = $1`, value)
	return scanUser(row)
}

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.GoogleID, &u.ProfilePic,
		&u.DateOfBirth, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}
