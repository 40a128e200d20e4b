package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/latoalla/roster-server/internal/model"
)

var _ model.SignupStore = (*SignupRepository)(nil)

const signupColumns = `id, owner_id, owner_email, display_name, event_date, category, categories,
		lunch, midday, dinner, adults, children, created_at, updated_at, deleted_at`

type SignupRepository struct {
	db DB
}

func NewSignupRepository(db DB) *SignupRepository {
	return &SignupRepository{
		db: db,
	}
}

func (r *SignupRepository) Create(ctx context.Context, signup model.Signup) (model.Signup, error) {
	query := `
		INSERT INTO signups (id, owner_id, owner_email, display_name, event_date, category,
		                     lunch, midday, dinner, adults, children)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at`

	if signup.ID == uuid.Nil {
		signup.ID = uuid.New()
	}

	err := r.db.QueryRow(ctx, query,
		signup.ID, nullable(signup.OwnerID), nullable(signup.OwnerEmail), nullable(signup.DisplayName),
		signup.Date, string(signup.Category()),
		signup.Meals.Lunch, signup.Meals.Midday, signup.Meals.Dinner,
		signup.Adults, signup.Children,
	).Scan(&signup.CreatedAt, &signup.UpdatedAt)
	if err != nil {
		return model.Signup{}, fmt.Errorf("failed to create signup: %w", err)
	}

	return signup, nil
}

func (r *SignupRepository) GetByID(ctx context.Context, id uuid.UUID) (model.Signup, error) {
	query := `SELECT ` + signupColumns + ` FROM signups WHERE id = $1 AND deleted_at IS NULL`

	signup, _, err := scanSignup(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Signup{}, model.ErrNotFound
		}
		return model.Signup{}, fmt.Errorf("failed to get signup by id: %w", err)
	}

	return signup, nil
}

// ExistsByKey reports whether a live signup matches the composite key.
func (r *SignupRepository) ExistsByKey(ctx context.Context, key model.DedupKey) (bool, error) {
	var column string
	switch key.Field {
	case model.OwnerFieldID:
		column = "owner_id"
	case model.OwnerFieldEmail:
		column = "owner_email"
	default:
		return false, fmt.Errorf("unknown owner field %q", key.Field)
	}

	query := `SELECT EXISTS (
		SELECT 1 FROM signups
		WHERE ` + column + ` = $1 AND event_date = $2 AND category = $3 AND deleted_at IS NULL)`

	var exists bool
	if err := r.db.QueryRow(ctx, query, key.Owner, key.Date, string(key.Category)).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check signup key: %w", err)
	}

	return exists, nil
}

func (r *SignupRepository) UpdateMutable(ctx context.Context, id uuid.UUID, ownerID string, fields model.MutableFields) error {
	const query = `
		UPDATE signups
		SET lunch = $3, midday = $4, dinner = $5, adults = $6, children = $7, updated_at = NOW()
		WHERE id = $1 AND owner_id = $2 AND deleted_at IS NULL`

	cmd, err := r.db.Exec(ctx, query, id, ownerID,
		fields.Meals.Lunch, fields.Meals.Midday, fields.Meals.Dinner, fields.Adults, fields.Children)
	if err != nil {
		return fmt.Errorf("failed to update signup: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return r.missOrForbidden(ctx, id)
	}
	return nil
}

func (r *SignupRepository) SoftDelete(ctx context.Context, id uuid.UUID, ownerID string) error {
	const query = `
		UPDATE signups SET deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND owner_id = $2 AND deleted_at IS NULL`

	cmd, err := r.db.Exec(ctx, query, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete signup: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return r.missOrForbidden(ctx, id)
	}
	return nil
}

// ListActive returns every live signup ordered by date.
func (r *SignupRepository) ListActive(ctx context.Context) ([]model.Signup, error) {
	query := `SELECT ` + signupColumns + ` FROM signups
		WHERE deleted_at IS NULL
		ORDER BY event_date ASC NULLS LAST, created_at ASC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list signups: %w", err)
	}
	defer rows.Close()

	var signups []model.Signup
	for rows.Next() {
		signup, _, err := scanSignup(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan signup: %w", err)
		}
		signups = append(signups, signup)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return signups, nil
}

// ChangedSince returns the current state of every row touched at or after since,
// oldest first. Soft-deleted rows become remove changes. The returned cursor is
// the newest updated_at seen, or since when nothing changed.
func (r *SignupRepository) ChangedSince(ctx context.Context, since time.Time) ([]model.Change, time.Time, error) {
	query := `SELECT ` + signupColumns + ` FROM signups
		WHERE updated_at >= $1
		ORDER BY updated_at ASC`

	rows, err := r.db.Query(ctx, query, since)
	if err != nil {
		return nil, since, fmt.Errorf("failed to query changed signups: %w", err)
	}
	defer rows.Close()

	cursor := since
	var changes []model.Change
	for rows.Next() {
		signup, deletedAt, err := scanSignup(rows)
		if err != nil {
			return nil, since, fmt.Errorf("failed to scan signup: %w", err)
		}
		if signup.UpdatedAt.After(cursor) {
			cursor = signup.UpdatedAt
		}
		if deletedAt != nil {
			changes = append(changes, model.Change{Kind: model.ChangeRemove, ID: signup.ID})
			continue
		}
		changes = append(changes, model.Change{Kind: model.ChangeUpsert, ID: signup.ID, Signup: signup})
	}
	if err := rows.Err(); err != nil {
		return nil, since, err
	}

	return changes, cursor, nil
}

// Now returns the database clock.
func (r *SignupRepository) Now(ctx context.Context) (time.Time, error) {
	var now time.Time
	if err := r.db.QueryRow(ctx, `SELECT NOW()`).Scan(&now); err != nil {
		return time.Time{}, fmt.Errorf("failed to read database clock: %w", err)
	}
	return now, nil
}

func (r *SignupRepository) missOrForbidden(ctx context.Context, id uuid.UUID) error {
	const query = `SELECT owner_id FROM signups WHERE id = $1 AND deleted_at IS NULL`

	var owner *string
	err := r.db.QueryRow(ctx, query, id).Scan(&owner)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to check signup owner: %w", err)
	}
	return model.ErrForbidden
}

func scanSignup(row pgx.Row) (model.Signup, *time.Time, error) {
	var (
		s           model.Signup
		ownerID     *string
		ownerEmail  *string
		displayName *string
		date        *string
		category    *string
		categories  []string
		deletedAt   *time.Time
	)

	err := row.Scan(
		&s.ID, &ownerID, &ownerEmail, &displayName, &date, &category, &categories,
		&s.Meals.Lunch, &s.Meals.Midday, &s.Meals.Dinner, &s.Adults, &s.Children,
		&s.CreatedAt, &s.UpdatedAt, &deletedAt,
	)
	if err != nil {
		return model.Signup{}, nil, err
	}

	s.OwnerID = deref(ownerID)
	s.OwnerEmail = deref(ownerEmail)
	s.DisplayName = deref(displayName)
	s.Date = deref(date)
	s.Categories = model.StoredCategory{Scalar: deref(category), Legacy: categories}.Normalize()

	return s, deletedAt, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
