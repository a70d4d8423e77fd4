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

const reviewColumns = `id, subject_id, author_id, text, rating, created_at, updated_at`

// ReviewStore persists user reviews. An author reviews a given user once.
type ReviewStore struct {
	db *pgxpool.Pool
}

func NewReviewStore(db *pgxpool.Pool) *ReviewStore {
	return &ReviewStore{db: db}
}

// Create inserts rv. A second review of the same user by the same author
// yields repository.ErrDuplicate.
func (s *ReviewStore) Create(ctx context.Context, rv *models.Review) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO reviews (`+reviewColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rv.ID, rv.SubjectID, rv.AuthorID, rv.Text, rv.Rating, rv.CreatedAt, rv.UpdatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return repository.ErrDuplicate
		case "23503":
			return repository.ErrNotFound
		}
	}
	if err != nil {
		return fmt.Errorf("insert review: %w", err)
	}
	return nil
}

// ListBySubject returns the reviews written about subjectID, newest first.
func (s *ReviewStore) ListBySubject(ctx context.Context, subjectID uuid.UUID) ([]models.Review, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+reviewColumns+` FROM reviews WHERE subject_id = $1 ORDER BY created_at DESC, id`,
		subjectID)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	out := make([]models.Review, 0)
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rv)
	}
	return out, rows.Err()
}

// Update replaces the text and rating of a review written by authorID.
func (s *ReviewStore) Update(ctx context.Context, subjectID, reviewID, authorID uuid.UUID, text string, rating int) (*models.Review, error) {
	rv, err := scanReview(s.db.QueryRow(ctx,
		`UPDATE reviews SET text = $4, rating = $5, updated_at = NOW()
          WHERE id = $1 AND subject_id = $2 AND author_id = $3
      RETURNING `+reviewColumns,
		reviewID, subjectID, authorID, text, rating))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, s.missOrForbidden(ctx, subjectID, reviewID)
	}
	return rv, err
}

// Delete removes a review written by authorID.
func (s *ReviewStore) Delete(ctx context.Context, subjectID, reviewID, authorID uuid.UUID) error {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM reviews WHERE id = $1 AND subject_id = $2 AND author_id = $3`,
		reviewID, subjectID, authorID)
	if err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return s.missOrForbidden(ctx, subjectID, reviewID)
	}
	return nil
}

func (s *ReviewStore) missOrForbidden(ctx context.Context, subjectID, reviewID uuid.UUID) error {
	var exists bool
	err := s.db.QueryRow(ctx,
		`SELECT TRUE FROM reviews WHERE id = $1 AND subject_id = $2`, reviewID, subjectID).Scan(&exists)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return repository.ErrNotFound
	case err != nil:
		return fmt.Errorf("load review: %w", err)
	default:
		return repository.ErrForbidden
	}
}

func scanReview(row pgx.Row) (*models.Review, error) {
	var rv models.Review
	err := row.Scan(&rv.ID, &rv.SubjectID, &rv.AuthorID, &rv.Text, &rv.Rating, &rv.CreatedAt, &rv.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan review: %w", err)
	}
	return &rv, nil
}
