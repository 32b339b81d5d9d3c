package identity

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atrium-realty/atrium/internal/platform/db"
	"github.com/atrium-realty/atrium/internal/shared"
)

// Profile is the persisted identity record backing a principal.
type Profile struct {
	ID        int64
	Email     string
	Name      string
	Role      string
	Active    bool
	Overrides []string
}

// ProfileStore loads profiles and per-user permission overrides.
type ProfileStore interface {
	FetchProfile(ctx context.Context, userID int64) (Profile, error)
}

// PGProfileStore implements ProfileStore against PostgreSQL.
type PGProfileStore struct {
	pool   *pgxpool.Pool
	policy db.MissingRelationPolicy
	logger *slog.Logger
}

// NewProfileStore constructs a PGProfileStore. The missing-relation policy
// applies to the overrides table only: the overrides feature may not be
// provisioned yet in every environment, while the users table is mandatory.
func NewProfileStore(pool *pgxpool.Pool, policy db.MissingRelationPolicy, logger *slog.Logger) *PGProfileStore {
	return &PGProfileStore{pool: pool, policy: policy, logger: logger}
}

// FetchProfile loads the user row and its override grants.
func (s *PGProfileStore) FetchProfile(ctx context.Context, userID int64) (Profile, error) {
	var p Profile
	err := s.pool.QueryRow(ctx,
		`SELECT id, email, name, role, is_active FROM users WHERE id = $1`,
		userID,
	).Scan(&p.ID, &p.Email, &p.Name, &p.Role, &p.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Profile{}, shared.ErrNotFound
		}
		return Profile{}, err
	}

	rows, err := s.pool.Query(ctx,
		`SELECT permission FROM user_permission_overrides WHERE user_id = $1 ORDER BY permission`,
		userID,
	)
	if err != nil {
		if softened, err := s.policy.Soften(err, s.logger, "user_permission_overrides"); !softened {
			return Profile{}, err
		}
		return p, nil
	}
	defer rows.Close()
	for rows.Next() {
		var perm string
		if err := rows.Scan(&perm); err != nil {
			return Profile{}, err
		}
		p.Overrides = append(p.Overrides, perm)
	}
	if err := rows.Err(); err != nil {
		return Profile{}, err
	}
	return p, nil
}

var _ ProfileStore = (*PGProfileStore)(nil)
