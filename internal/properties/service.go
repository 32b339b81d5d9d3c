package properties

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/atrium-realty/atrium/internal/authz"
	"github.com/atrium-realty/atrium/internal/shared"
)

// ErrInvalidType indicates a property type that does not belong to the
// selected usage.
var ErrInvalidType = errors.New("properties: type does not match usage")

// ErrUnsupportedMedia indicates an upload that is not an accepted image
// format.
var ErrUnsupportedMedia = errors.New("properties: unsupported media type")

var typesByUsage = map[string][]string{
	"residential": {"apartment", "villa", "duplex", "floor", "land"},
	"commercial":  {"office", "showroom", "warehouse", "building", "land"},
}

var photoContentTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// MediaStore persists uploaded photos. The platform object store satisfies
// it.
type MediaStore interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader) (string, error)
}

// AuditPort records listing lifecycle events.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service handles listing business logic.
type Service struct {
	repo     RepositoryPort
	media    MediaStore
	audit    AuditPort
	logger   *slog.Logger
	validate *validator.Validate
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, media MediaStore, audit AuditPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, media: media, audit: audit, logger: logger, validate: validator.New()}
}

// TypesFor returns the valid property types for a usage.
func TypesFor(usage string) []string {
	return typesByUsage[usage]
}

func (s *Service) validateInput(input Input) error {
	if err := s.validate.Struct(input); err != nil {
		return err
	}
	for _, t := range typesByUsage[input.Usage] {
		if t == input.Type {
			return nil
		}
	}
	return ErrInvalidType
}

// Create stores a new draft listing. Agents own the listings they create;
// managers and above create unassigned drafts to hand out later.
func (s *Service) Create(ctx context.Context, actor *authz.Principal, input Input) (Property, error) {
	if err := s.validateInput(input); err != nil {
		return Property{}, err
	}
	p := Property{
		Title:       input.Title,
		Description: input.Description,
		Service:     input.Service,
		Usage:       input.Usage,
		Type:        input.Type,
		City:        input.City,
		District:    input.District,
		Price:       input.Price,
		AreaSqm:     input.AreaSqm,
		Bedrooms:    input.Bedrooms,
		Bathrooms:   input.Bathrooms,
	}
	if actor != nil && actor.Role == authz.RoleAgent {
		p.AgentID = &actor.ID
	}
	return s.repo.Insert(ctx, p)
}

// Update replaces the editable fields of a listing.
func (s *Service) Update(ctx context.Context, id int64, input Input) error {
	if err := s.validateInput(input); err != nil {
		return err
	}
	return s.repo.Update(ctx, id, input)
}

// Get fetches one listing.
func (s *Service) Get(ctx context.Context, id int64) (Property, error) {
	return s.repo.Get(ctx, id)
}

// GetPublished fetches one listing for the public site. Drafts and archived
// listings read as not found.
func (s *Service) GetPublished(ctx context.Context, id int64) (Property, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return Property{}, err
	}
	if p.Status != StatusPublished {
		return Property{}, shared.ErrNotFound
	}
	return p, nil
}

// List returns listings for the back-office.
func (s *Service) List(ctx context.Context, filters ListFilters) ([]Property, int, error) {
	return s.repo.List(ctx, filters)
}

// PublicList returns published listings for the site.
func (s *Service) PublicList(ctx context.Context, filters ListFilters) ([]Property, int, error) {
	filters.PublicOnly = true
	return s.repo.List(ctx, filters)
}

// Publish makes a listing visible on the public site and records who did
// it.
func (s *Service) Publish(ctx context.Context, actor *authz.Principal, id int64) error {
	now := time.Now().UTC()
	if err := s.repo.SetStatus(ctx, id, StatusPublished, &now); err != nil {
		return err
	}
	if s.audit != nil && actor != nil {
		if err := s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actor.ID,
			Action:   shared.AuditPropertyPublished,
			Entity:   "property",
			EntityID: strconv.FormatInt(id, 10),
		}); err != nil && s.logger != nil {
			s.logger.Warn("audit property publish", slog.Any("error", err))
		}
	}
	return nil
}

// Archive takes a listing off the public site.
func (s *Service) Archive(ctx context.Context, id int64) error {
	return s.repo.SetStatus(ctx, id, StatusArchived, nil)
}

// UploadPhoto stores a photo in the object store and attaches it to the
// listing.
func (s *Service) UploadPhoto(ctx context.Context, propertyID int64, contentType string, body io.Reader, sortOrder int16) (Photo, error) {
	ext, ok := photoContentTypes[contentType]
	if !ok {
		return Photo{}, ErrUnsupportedMedia
	}
	if _, err := s.repo.Get(ctx, propertyID); err != nil {
		return Photo{}, err
	}
	key := path.Join("properties", strconv.FormatInt(propertyID, 10), uuid.NewString()+ext)
	url, err := s.media.Upload(ctx, key, contentType, body)
	if err != nil {
		return Photo{}, fmt.Errorf("properties: upload photo: %w", err)
	}
	return s.repo.AddPhoto(ctx, Photo{PropertyID: propertyID, URL: url, SortOrder: sortOrder})
}

// DeletePhoto removes a photo row. The stored object stays in the bucket;
// keys are namespaced per listing so orphans can be swept offline, and a
// slow object store cannot fail the request.
func (s *Service) DeletePhoto(ctx context.Context, propertyID, photoID int64) error {
	return s.repo.DeletePhoto(ctx, propertyID, photoID)
}
