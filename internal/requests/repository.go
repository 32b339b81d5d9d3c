package requests

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atrium-realty/atrium/internal/shared"
)

// RepositoryPort defines data access for service requests.
type RepositoryPort interface {
	Insert(ctx context.Context, req Request) (Request, error)
	Get(ctx context.Context, id int64) (Request, error)
	List(ctx context.Context, filters ListFilters) ([]Request, int, error)
	Assign(ctx context.Context, id, userID int64) error
	UpdateStatus(ctx context.Context, id int64, status Status) error
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const requestColumns = `id, token, service, property_usage, property_type, facility_name, activity_type,
	name, phone, email, contact_method, city, notes, status, assigned_to, created_at, updated_at`

// Insert persists a new request.
func (r *Repository) Insert(ctx context.Context, req Request) (Request, error) {
	now := time.Now().UTC()
	err := r.pool.QueryRow(ctx, `
		INSERT INTO property_requests
			(token, service, property_usage, property_type, facility_name, activity_type,
			 name, phone, email, contact_method, city, notes, status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$14)
		RETURNING id, created_at, updated_at`,
		req.Token, req.Service, req.PropertyUsage, req.PropertyType, req.FacilityName, req.ActivityType,
		req.Name, req.Phone, req.Email, req.ContactMethod, req.City, req.Notes, StatusNew, now,
	).Scan(&req.ID, &req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		return Request{}, fmt.Errorf("requests: insert: %w", err)
	}
	req.Status = StatusNew
	return req, nil
}

// Get fetches a request by ID.
func (r *Repository) Get(ctx context.Context, id int64) (Request, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+requestColumns+` FROM property_requests WHERE id = $1`, id)
	req, err := scanRequest(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Request{}, shared.ErrNotFound
		}
		return Request{}, err
	}
	return req, nil
}

// List returns requests matching filters plus the unpaged total.
func (r *Repository) List(ctx context.Context, filters ListFilters) ([]Request, int, error) {
	var conds []string
	var args []any
	if filters.Status != "" {
		args = append(args, filters.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if filters.AssignedTo > 0 {
		args = append(args, filters.AssignedTo)
		conds = append(conds, fmt.Sprintf("assigned_to = $%d", len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM property_requests`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page := shared.NewPagination(filters.Page, filters.PerPage, total)
	args = append(args, page.PerPage, (page.Page-1)*page.PerPage)
	query := fmt.Sprintf(`SELECT %s FROM property_requests%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		requestColumns, where, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, req)
	}
	return out, total, rows.Err()
}

// Assign sets the staff member handling a request.
func (r *Repository) Assign(ctx context.Context, id, userID int64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE property_requests SET assigned_to = $2, status = $3, updated_at = NOW() WHERE id = $1`,
		id, userID, StatusInProgress)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// UpdateStatus moves a request to a new status.
func (r *Repository) UpdateStatus(ctx context.Context, id int64, status Status) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE property_requests SET status = $2, updated_at = NOW() WHERE id = $1`,
		id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ListStaleNew returns requests still untouched after the given age. The
// reminder job uses it to nag the managers.
func (r *Repository) ListStaleNew(ctx context.Context, olderThan time.Duration) ([]Request, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	rows, err := r.pool.Query(ctx,
		`SELECT `+requestColumns+` FROM property_requests WHERE status = $1 AND created_at < $2 ORDER BY created_at`,
		StatusNew, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (Request, error) {
	var req Request
	err := row.Scan(
		&req.ID, &req.Token, &req.Service, &req.PropertyUsage, &req.PropertyType,
		&req.FacilityName, &req.ActivityType,
		&req.Name, &req.Phone, &req.Email, &req.ContactMethod, &req.City, &req.Notes,
		&req.Status, &req.AssignedTo, &req.CreatedAt, &req.UpdatedAt,
	)
	return req, err
}

var _ RepositoryPort = (*Repository)(nil)
