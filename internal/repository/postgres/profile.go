package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/latoalla/roster-server/internal/model"
)

var _ model.ProfileStore = (*ProfileRepository)(nil)

type ProfileRepository struct {
	db DB
}

func NewProfileRepository(db DB) *ProfileRepository {
	return &ProfileRepository{
		db: db,
	}
}

func (r *ProfileRepository) GetByID(ctx context.Context, ownerID string) (model.Profile, error) {
	var profile model.Profile
	query := `SELECT id, username, first_name, last_name, email FROM profiles WHERE id = $1`

	err := r.db.QueryRow(ctx, query, ownerID).Scan(
		&profile.ID, &profile.Username, &profile.FirstName, &profile.LastName, &profile.Email,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Profile{}, model.ErrNotFound
		}
		return model.Profile{}, fmt.Errorf("failed to get profile by id: %w", err)
	}

	return profile, nil
}

// Upsert creates or replaces a profile.
func (r *ProfileRepository) Upsert(ctx context.Context, profile model.Profile) error {
	query := `INSERT INTO profiles (id, username, first_name, last_name, email)
			  VALUES ($1, $2, $3, $4, $5)
			  ON CONFLICT (id) DO UPDATE
			  SET username = EXCLUDED.username, first_name = EXCLUDED.first_name,
			      last_name = EXCLUDED.last_name, email = EXCLUDED.email`

	_, err := r.db.Exec(ctx, query, profile.ID, profile.Username, profile.FirstName, profile.LastName, profile.Email)
	if err != nil {
		return fmt.Errorf("failed to upsert profile: %w", err)
	}

	return nil
}
