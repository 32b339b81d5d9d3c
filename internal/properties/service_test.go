package properties

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atrium-realty/atrium/internal/authz"
	"github.com/atrium-realty/atrium/internal/shared"
)

type memoryRepo struct {
	properties map[int64]Property
	photos     map[int64]Photo
	nextID     int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{properties: make(map[int64]Property), photos: make(map[int64]Photo), nextID: 1}
}

func (m *memoryRepo) Insert(ctx context.Context, p Property) (Property, error) {
	p.ID = m.nextID
	p.Status = StatusDraft
	m.nextID++
	m.properties[p.ID] = p
	return p, nil
}

func (m *memoryRepo) Update(ctx context.Context, id int64, input Input) error {
	p, ok := m.properties[id]
	if !ok {
		return shared.ErrNotFound
	}
	p.Title = input.Title
	p.Usage = input.Usage
	p.Type = input.Type
	p.Price = input.Price
	m.properties[id] = p
	return nil
}

func (m *memoryRepo) Get(ctx context.Context, id int64) (Property, error) {
	p, ok := m.properties[id]
	if !ok {
		return Property{}, shared.ErrNotFound
	}
	return p, nil
}

func (m *memoryRepo) List(ctx context.Context, filters ListFilters) ([]Property, int, error) {
	var out []Property
	for _, p := range m.properties {
		if filters.PublicOnly && p.Status != StatusPublished {
			continue
		}
		out = append(out, p)
	}
	return out, len(out), nil
}

func (m *memoryRepo) SetStatus(ctx context.Context, id int64, status Status, publishedAt *time.Time) error {
	p, ok := m.properties[id]
	if !ok {
		return shared.ErrNotFound
	}
	p.Status = status
	if publishedAt != nil {
		p.PublishedAt = publishedAt
	}
	m.properties[id] = p
	return nil
}

func (m *memoryRepo) AddPhoto(ctx context.Context, photo Photo) (Photo, error) {
	photo.ID = m.nextID
	m.nextID++
	m.photos[photo.ID] = photo
	return photo, nil
}

func (m *memoryRepo) DeletePhoto(ctx context.Context, propertyID, photoID int64) error {
	if _, ok := m.photos[photoID]; !ok {
		return shared.ErrNotFound
	}
	delete(m.photos, photoID)
	return nil
}

type memoryMedia struct {
	uploads map[string]string
}

func (m *memoryMedia) Upload(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	if m.uploads == nil {
		m.uploads = make(map[string]string)
	}
	m.uploads[key] = contentType
	return "https://cdn.test/" + key, nil
}

func (m *memoryMedia) Delete(ctx context.Context, key string) error {
	delete(m.uploads, key)
	return nil
}

type recordingAudit struct {
	logs []shared.AuditLog
}

func (a *recordingAudit) Record(ctx context.Context, log shared.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

func validInput() Input {
	return Input{
		Title:   "Modern apartment in Al Olaya",
		Service: "sale",
		Usage:   "residential",
		Type:    "apartment",
		City:    "Riyadh",
		Price:   850_000,
	}
}

func TestCreateAssignsAgentListings(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, &memoryMedia{}, nil, nil)

	agent := &authz.Principal{ID: 7, Role: authz.RoleAgent, Active: true}
	p, err := svc.Create(context.Background(), agent, validInput())
	require.NoError(t, err)
	require.NotNil(t, p.AgentID)
	assert.Equal(t, int64(7), *p.AgentID)
	assert.Equal(t, StatusDraft, p.Status)

	manager := &authz.Principal{ID: 3, Role: authz.RoleManager, Active: true}
	p2, err := svc.Create(context.Background(), manager, validInput())
	require.NoError(t, err)
	assert.Nil(t, p2.AgentID)
}

func TestCreateRejectsTypeUsageMismatch(t *testing.T) {
	svc := NewService(newMemoryRepo(), &memoryMedia{}, nil, nil)

	input := validInput()
	input.Usage = "residential"
	input.Type = "showroom"
	_, err := svc.Create(context.Background(), nil, input)
	assert.ErrorIs(t, err, ErrInvalidType)

	// Land is valid for both usages.
	input.Type = "land"
	_, err = svc.Create(context.Background(), nil, input)
	assert.NoError(t, err)
}

func TestPublishAuditsAndExposesListing(t *testing.T) {
	repo := newMemoryRepo()
	audit := &recordingAudit{}
	svc := NewService(repo, &memoryMedia{}, audit, nil)

	p, err := svc.Create(context.Background(), nil, validInput())
	require.NoError(t, err)

	// Drafts never reach the public site.
	_, err = svc.GetPublished(context.Background(), p.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	actor := &authz.Principal{ID: 2, Role: authz.RoleManager, Active: true}
	require.NoError(t, svc.Publish(context.Background(), actor, p.ID))

	got, err := svc.GetPublished(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPublished, got.Status)
	require.NotNil(t, got.PublishedAt)

	require.Len(t, audit.logs, 1)
	assert.Equal(t, shared.AuditPropertyPublished, audit.logs[0].Action)
}

func TestPublicListOnlyShowsPublished(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, &memoryMedia{}, nil, nil)

	draft, err := svc.Create(context.Background(), nil, validInput())
	require.NoError(t, err)
	published, err := svc.Create(context.Background(), nil, validInput())
	require.NoError(t, err)
	require.NoError(t, svc.Publish(context.Background(), &authz.Principal{ID: 1, Role: authz.RoleAdmin, Active: true}, published.ID))

	list, total, err := svc.PublicList(context.Background(), ListFilters{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, list, 1)
	assert.Equal(t, published.ID, list[0].ID)
	assert.NotEqual(t, draft.ID, list[0].ID)
}

func TestUploadPhotoValidatesContentType(t *testing.T) {
	repo := newMemoryRepo()
	media := &memoryMedia{}
	svc := NewService(repo, media, nil, nil)

	p, err := svc.Create(context.Background(), nil, validInput())
	require.NoError(t, err)

	_, err = svc.UploadPhoto(context.Background(), p.ID, "application/pdf", strings.NewReader("%PDF"), 0)
	assert.ErrorIs(t, err, ErrUnsupportedMedia)
	assert.Empty(t, media.uploads)

	photo, err := svc.UploadPhoto(context.Background(), p.ID, "image/jpeg", bytes.NewReader([]byte{0xFF, 0xD8}), 0)
	require.NoError(t, err)
	assert.Contains(t, photo.URL, "https://cdn.test/properties/")
	assert.True(t, strings.HasSuffix(photo.URL, ".jpg"))
	assert.Len(t, media.uploads, 1)
}

func TestUploadPhotoUnknownListing(t *testing.T) {
	svc := NewService(newMemoryRepo(), &memoryMedia{}, nil, nil)
	_, err := svc.UploadPhoto(context.Background(), 99, "image/png", bytes.NewReader(nil), 0)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
