package properties

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

// RepositoryPort defines data access for listings.
type RepositoryPort interface {
	Insert(ctx context.Context, p Property) (Property, error)
	Update(ctx context.Context, id int64, input Input) error
	Get(ctx context.Context, id int64) (Property, error)
	List(ctx context.Context, filters ListFilters) ([]Property, int, error)
	SetStatus(ctx context.Context, id int64, status Status, publishedAt *time.Time) error
	AddPhoto(ctx context.Context, photo Photo) (Photo, error)
	DeletePhoto(ctx context.Context, propertyID, photoID int64) error
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const propertyColumns = `id, title, description, service, usage, type, city, district,
	price, area_sqm, bedrooms, bathrooms, status, agent_id, published_at, created_at, updated_at`

// Insert persists a new draft listing.
func (r *Repository) Insert(ctx context.Context, p Property) (Property, error) {
	now := time.Now().UTC()
	err := r.pool.QueryRow(ctx, `
		INSERT INTO properties
			(title, description, service, usage, type, city, district,
			 price, area_sqm, bedrooms, bathrooms, status, agent_id, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$14)
		RETURNING id, created_at, updated_at`,
		p.Title, p.Description, p.Service, p.Usage, p.Type, p.City, p.District,
		p.Price, p.AreaSqm, p.Bedrooms, p.Bathrooms, StatusDraft, p.AgentID, now,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Property{}, fmt.Errorf("properties: insert: %w", err)
	}
	p.Status = StatusDraft
	return p, nil
}

// Update replaces the editable fields of a listing.
func (r *Repository) Update(ctx context.Context, id int64, input Input) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE properties SET
			title = $2, description = $3, service = $4, usage = $5, type = $6,
			city = $7, district = $8, price = $9, area_sqm = $10,
			bedrooms = $11, bathrooms = $12, updated_at = NOW()
		WHERE id = $1`,
		id, input.Title, input.Description, input.Service, input.Usage, input.Type,
		input.City, input.District, input.Price, input.AreaSqm, input.Bedrooms, input.Bathrooms)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Get fetches a listing with its photos.
func (r *Repository) Get(ctx context.Context, id int64) (Property, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+propertyColumns+` FROM properties WHERE id = $1`, id)
	p, err := scanProperty(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Property{}, shared.ErrNotFound
		}
		return Property{}, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, property_id, url, sort_order, created_at FROM property_photos WHERE property_id = $1 ORDER BY sort_order, id`, id)
	if err != nil {
		return Property{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var photo Photo
		if err := rows.Scan(&photo.ID, &photo.PropertyID, &photo.URL, &photo.SortOrder, &photo.CreatedAt); err != nil {
			return Property{}, err
		}
		p.Photos = append(p.Photos, photo)
	}
	return p, rows.Err()
}

// List returns listings matching filters plus the unpaged total.
func (r *Repository) List(ctx context.Context, filters ListFilters) ([]Property, int, error) {
	var conds []string
	var args []any
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if filters.PublicOnly {
		add("status = $%d", StatusPublished)
	} else if filters.Status != "" {
		add("status = $%d", filters.Status)
	}
	if filters.Usage != "" {
		add("usage = $%d", filters.Usage)
	}
	if filters.Type != "" {
		add("type = $%d", filters.Type)
	}
	if filters.City != "" {
		add("city = $%d", filters.City)
	}
	if filters.AgentID > 0 {
		add("agent_id = $%d", filters.AgentID)
	}
	if filters.MinPrice > 0 {
		add("price >= $%d", filters.MinPrice)
	}
	if filters.MaxPrice > 0 {
		add("price <= $%d", filters.MaxPrice)
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM properties`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page := shared.NewPagination(filters.Page, filters.PerPage, total)
	args = append(args, page.PerPage, (page.Page-1)*page.PerPage)
	query := fmt.Sprintf(`SELECT %s FROM properties%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		propertyColumns, where, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Property
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}

// SetStatus moves a listing through its lifecycle.
func (r *Repository) SetStatus(ctx context.Context, id int64, status Status, publishedAt *time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE properties SET status = $2, published_at = COALESCE($3, published_at), updated_at = NOW() WHERE id = $1`,
		id, status, publishedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// AddPhoto attaches an uploaded photo to a listing.
func (r *Repository) AddPhoto(ctx context.Context, photo Photo) (Photo, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO property_photos (property_id, url, sort_order, created_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING id, created_at`,
		photo.PropertyID, photo.URL, photo.SortOrder,
	).Scan(&photo.ID, &photo.CreatedAt)
	if err != nil {
		return Photo{}, fmt.Errorf("properties: add photo: %w", err)
	}
	return photo, nil
}

// DeletePhoto removes a photo row.
func (r *Repository) DeletePhoto(ctx context.Context, propertyID, photoID int64) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM property_photos WHERE id = $1 AND property_id = $2`, photoID, propertyID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProperty(row rowScanner) (Property, error) {
	var p Property
	err := row.Scan(
		&p.ID, &p.Title, &p.Description, &p.Service, &p.Usage, &p.Type, &p.City, &p.District,
		&p.Price, &p.AreaSqm, &p.Bedrooms, &p.Bathrooms, &p.Status, &p.AgentID,
		&p.PublishedAt, &p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}

var _ RepositoryPort = (*Repository)(nil)
