package clients

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

// RepositoryPort defines data access for the client directory.
type RepositoryPort interface {
	Insert(ctx context.Context, c Client) (Client, error)
	Update(ctx context.Context, id int64, input Input) error
	Get(ctx context.Context, id int64) (Client, error)
	List(ctx context.Context, filters ListFilters) ([]Client, int, error)
	AssignAgent(ctx context.Context, id int64, agentID *int64) error
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const clientColumns = `id, name, phone, email, city, notes, agent_id, user_id, created_at, updated_at`

// Insert stores a new client record.
func (r *Repository) Insert(ctx context.Context, c Client) (Client, error) {
	now := time.Now().UTC()
	err := r.pool.QueryRow(ctx, `
		INSERT INTO clients (name, phone, email, city, notes, agent_id, user_id, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$8)
		RETURNING id, created_at, updated_at`,
		c.Name, c.Phone, c.Email, c.City, c.Notes, c.AgentID, c.UserID, now,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return Client{}, fmt.Errorf("clients: insert: %w", err)
	}
	return c, nil
}

// Update replaces the editable fields.
func (r *Repository) Update(ctx context.Context, id int64, input Input) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE clients SET name = $2, phone = $3, email = $4, city = $5, notes = $6, updated_at = NOW()
		WHERE id = $1`,
		id, input.Name, input.Phone, input.Email, input.City, input.Notes)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Get fetches one client record.
func (r *Repository) Get(ctx context.Context, id int64) (Client, error) {
	var c Client
	err := r.pool.QueryRow(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = $1`, id).Scan(
		&c.ID, &c.Name, &c.Phone, &c.Email, &c.City, &c.Notes, &c.AgentID, &c.UserID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Client{}, shared.ErrNotFound
		}
		return Client{}, err
	}
	return c, nil
}

// List returns directory entries matching filters plus the unpaged total.
func (r *Repository) List(ctx context.Context, filters ListFilters) ([]Client, int, error) {
	var conds []string
	var args []any
	if filters.Query != "" {
		args = append(args, "%"+filters.Query+"%")
		conds = append(conds, fmt.Sprintf("(name ILIKE $%d OR phone ILIKE $%d OR email ILIKE $%d)",
			len(args), len(args), len(args)))
	}
	if filters.AgentID > 0 {
		args = append(args, filters.AgentID)
		conds = append(conds, fmt.Sprintf("agent_id = $%d", len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM clients`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page := shared.NewPagination(filters.Page, filters.PerPage, total)
	args = append(args, page.PerPage, (page.Page-1)*page.PerPage)
	query := fmt.Sprintf(`SELECT %s FROM clients%s ORDER BY name LIMIT $%d OFFSET $%d`,
		clientColumns, where, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Client
	for rows.Next() {
		var c Client
		if err := rows.Scan(&c.ID, &c.Name, &c.Phone, &c.Email, &c.City, &c.Notes,
			&c.AgentID, &c.UserID, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}

// AssignAgent hands a client to an agent; nil unassigns.
func (r *Repository) AssignAgent(ctx context.Context, id int64, agentID *int64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE clients SET agent_id = $2, updated_at = NOW() WHERE id = $1`, id, agentID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ RepositoryPort = (*Repository)(nil)
