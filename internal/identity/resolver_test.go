package identity

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atrium-realty/atrium/internal/authz"
	"github.com/atrium-realty/atrium/internal/shared"
)

type stubStore struct {
	profiles map[int64]Profile
	err      error
	calls    atomic.Int64
	delay    time.Duration
}

func (s *stubStore) FetchProfile(ctx context.Context, userID int64) (Profile, error) {
	s.calls.Add(1)
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return Profile{}, ctx.Err()
		}
	}
	if s.err != nil {
		return Profile{}, s.err
	}
	p, ok := s.profiles[userID]
	if !ok {
		return Profile{}, shared.ErrNotFound
	}
	return p, nil
}

func newTestResolver(t *testing.T, store ProfileStore) *Resolver {
	t.Helper()
	return NewResolver(store, NewLegacyCodec("legacy-secret"), nil, time.Second)
}

// sessionRequest builds a request whose context carries a session bound to
// the given user ID, mirroring what the session middleware produces.
func sessionRequest(t *testing.T, userID string) *http.Request {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	manager := shared.NewSessionManager(client, "test_session", "secret", time.Hour, false)

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	sess, err := manager.Load(context.Background(), req)
	require.NoError(t, err)
	if userID != "" {
		sess.SetUser(userID)
	}
	return req.WithContext(shared.ContextWithSession(req.Context(), sess))
}

func legacyRequest(t *testing.T, codec *LegacyCodec, rec LegacyRecord) *http.Request {
	t.Helper()
	value, err := codec.Encode(rec)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: LegacyCookieName, Value: value})
	return req
}

func TestResolveFromSession(t *testing.T) {
	store := &stubStore{profiles: map[int64]Profile{
		7: {ID: 7, Role: "manager", Active: true, Overrides: []string{authz.PermSystemSettings}},
	}}
	resolver := newTestResolver(t, store)
	req := sessionRequest(t, "7")

	res := resolver.Resolve(req.Context(), req)
	require.NoError(t, res.Err)
	require.True(t, res.Snapshot.Ready)
	require.NotNil(t, res.Snapshot.Principal)
	assert.Equal(t, authz.RoleManager, res.Snapshot.Principal.Role)
	assert.True(t, res.Snapshot.Principal.Active)
	assert.Equal(t, []string{authz.PermSystemSettings}, res.Snapshot.Principal.Overrides)
}

func TestResolveAnonymous(t *testing.T) {
	resolver := newTestResolver(t, &stubStore{})
	req := sessionRequest(t, "")

	res := resolver.Resolve(req.Context(), req)
	require.NoError(t, res.Err)
	assert.True(t, res.Snapshot.Ready)
	assert.Nil(t, res.Snapshot.Principal)
}

func TestResolveLegacyFallback(t *testing.T) {
	store := &stubStore{profiles: map[int64]Profile{
		3: {ID: 3, Role: "agent", Active: true},
	}}
	resolver := newTestResolver(t, store)
	req := legacyRequest(t, NewLegacyCodec("legacy-secret"), LegacyRecord{UserID: 3, Role: "agent"})

	res := resolver.Resolve(req.Context(), req)
	require.NoError(t, res.Err)
	require.NotNil(t, res.Snapshot.Principal)
	assert.Equal(t, int64(3), res.Snapshot.Principal.ID)
}

func TestResolveMalformedLegacyDiscarded(t *testing.T) {
	resolver := newTestResolver(t, &stubStore{})
	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: LegacyCookieName, Value: "not-a-signed-record"})

	res := resolver.Resolve(req.Context(), req)
	require.NoError(t, res.Err, "malformed record is discarded, not failed")
	assert.True(t, res.Snapshot.Ready)
	assert.Nil(t, res.Snapshot.Principal)
}

func TestResolveLegacyWrongSignatureDiscarded(t *testing.T) {
	resolver := newTestResolver(t, &stubStore{profiles: map[int64]Profile{9: {ID: 9, Role: "admin", Active: true}}})
	req := legacyRequest(t, NewLegacyCodec("other-secret"), LegacyRecord{UserID: 9, Role: "admin"})

	res := resolver.Resolve(req.Context(), req)
	require.NoError(t, res.Err)
	assert.Nil(t, res.Snapshot.Principal)
}

func TestResolveSessionPreferredOverLegacy(t *testing.T) {
	store := &stubStore{profiles: map[int64]Profile{
		1: {ID: 1, Role: "admin", Active: true},
		2: {ID: 2, Role: "client", Active: true},
	}}
	resolver := newTestResolver(t, store)

	codec := NewLegacyCodec("legacy-secret")
	value, err := codec.Encode(LegacyRecord{UserID: 2, Role: "client"})
	require.NoError(t, err)

	req := sessionRequest(t, "1")
	req.AddCookie(&http.Cookie{Name: LegacyCookieName, Value: value})

	res := resolver.Resolve(req.Context(), req)
	require.NoError(t, res.Err)
	require.NotNil(t, res.Snapshot.Principal)
	assert.Equal(t, int64(1), res.Snapshot.Principal.ID, "session wins when both sources are present")
}

func TestResolveIdempotentWithoutAuthEvents(t *testing.T) {
	store := &stubStore{profiles: map[int64]Profile{7: {ID: 7, Role: "employee", Active: true}}}
	resolver := newTestResolver(t, store)
	req := sessionRequest(t, "7")

	first := resolver.Resolve(req.Context(), req)
	second := resolver.Resolve(req.Context(), req)
	require.NoError(t, first.Err)
	require.NoError(t, second.Err)
	assert.Equal(t, first.Snapshot, second.Snapshot)
	assert.Equal(t, int64(1), store.calls.Load(), "second resolution served from cache")
}

func TestInvalidateForcesReResolution(t *testing.T) {
	store := &stubStore{profiles: map[int64]Profile{7: {ID: 7, Role: "employee", Active: true}}}
	resolver := newTestResolver(t, store)
	req := sessionRequest(t, "7")

	_ = resolver.Resolve(req.Context(), req)
	resolver.Invalidate()
	store.profiles[7] = Profile{ID: 7, Role: "manager", Active: true}

	res := resolver.Resolve(req.Context(), req)
	require.NoError(t, res.Err)
	assert.Equal(t, authz.RoleManager, res.Snapshot.Principal.Role)
	assert.Equal(t, int64(2), store.calls.Load())
}

func TestResolveStoreErrorIsIndeterminate(t *testing.T) {
	store := &stubStore{err: errors.New("connection refused")}
	resolver := newTestResolver(t, store)
	req := sessionRequest(t, "7")

	res := resolver.Resolve(req.Context(), req)
	require.Error(t, res.Err)
	assert.False(t, res.Snapshot.Ready, "a failed fetch must stay indeterminate, not denied")
}

func TestResolveTimeoutIsIndeterminate(t *testing.T) {
	store := &stubStore{delay: 200 * time.Millisecond, profiles: map[int64]Profile{7: {ID: 7, Role: "agent", Active: true}}}
	resolver := NewResolver(store, nil, nil, 20*time.Millisecond)
	req := sessionRequest(t, "7")

	res := resolver.Resolve(req.Context(), req)
	require.Error(t, res.Err)
	assert.False(t, res.Snapshot.Ready)
}

func TestResolveDeletedAccountIsAnonymous(t *testing.T) {
	resolver := newTestResolver(t, &stubStore{profiles: map[int64]Profile{}})
	req := sessionRequest(t, "42")

	res := resolver.Resolve(req.Context(), req)
	require.NoError(t, res.Err)
	assert.True(t, res.Snapshot.Ready)
	assert.Nil(t, res.Snapshot.Principal)
}

func TestResolveUnknownRoleGrantsNothing(t *testing.T) {
	store := &stubStore{profiles: map[int64]Profile{5: {ID: 5, Role: "owner", Active: true}}}
	resolver := newTestResolver(t, store)
	req := sessionRequest(t, "5")

	res := resolver.Resolve(req.Context(), req)
	require.NoError(t, res.Err)
	require.NotNil(t, res.Snapshot.Principal)
	for _, permission := range authz.AllPermissions() {
		assert.False(t, authz.HasPermission(res.Snapshot.Principal, permission))
	}
}
