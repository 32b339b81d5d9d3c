package contact

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atrium-realty/atrium/internal/shared"
)

// RepositoryPort defines data access for contact messages.
type RepositoryPort interface {
	Insert(ctx context.Context, m Message) (Message, error)
	Get(ctx context.Context, id int64) (Message, error)
	List(ctx context.Context, filters ListFilters) ([]Message, int, error)
	MarkHandled(ctx context.Context, id, staffID int64) error
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const messageColumns = `id, name, phone, email, subject, body, handled_by, handled_at, created_at`

// Insert stores a new message.
func (r *Repository) Insert(ctx context.Context, m Message) (Message, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO contact_messages (name, phone, email, subject, body, created_at)
		VALUES ($1,$2,$3,$4,$5,NOW())
		RETURNING id, created_at`,
		m.Name, m.Phone, m.Email, m.Subject, m.Body,
	).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return Message{}, fmt.Errorf("contact: insert: %w", err)
	}
	return m, nil
}

// Get fetches one message.
func (r *Repository) Get(ctx context.Context, id int64) (Message, error) {
	var m Message
	err := r.pool.QueryRow(ctx, `SELECT `+messageColumns+` FROM contact_messages WHERE id = $1`, id).Scan(
		&m.ID, &m.Name, &m.Phone, &m.Email, &m.Subject, &m.Body, &m.HandledBy, &m.HandledAt, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Message{}, shared.ErrNotFound
		}
		return Message{}, err
	}
	return m, nil
}

// List returns inbox entries plus the unpaged total.
func (r *Repository) List(ctx context.Context, filters ListFilters) ([]Message, int, error) {
	where := ""
	if filters.UnhandledOnly {
		where = " WHERE handled_at IS NULL"
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM contact_messages`+where).Scan(&total); err != nil {
		return nil, 0, err
	}

	page := shared.NewPagination(filters.Page, filters.PerPage, total)
	query := fmt.Sprintf(`SELECT %s FROM contact_messages%s ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		messageColumns, where)

	rows, err := r.pool.Query(ctx, query, page.PerPage, (page.Page-1)*page.PerPage)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.Name, &m.Phone, &m.Email, &m.Subject, &m.Body,
			&m.HandledBy, &m.HandledAt, &m.CreatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, m)
	}
	return out, total, rows.Err()
}

// MarkHandled stamps a message as taken care of.
func (r *Repository) MarkHandled(ctx context.Context, id, staffID int64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE contact_messages SET handled_by = $2, handled_at = NOW() WHERE id = $1 AND handled_at IS NULL`,
		id, staffID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ RepositoryPort = (*Repository)(nil)
