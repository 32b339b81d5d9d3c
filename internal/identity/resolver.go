package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/atrium-realty/atrium/internal/authz"
	"github.com/atrium-realty/atrium/internal/shared"
)

// DefaultResolveTimeout bounds a single principal resolution so a stalled
// backend surfaces as Indeterminate instead of an indefinite wait.
const DefaultResolveTimeout = 3 * time.Second

// Resolution is the outcome of reconciling the identity sources. When the
// snapshot is not Ready the error explains what is still unsettled; guards
// must treat that state as loading, never as a denial.
type Resolution struct {
	Snapshot authz.Snapshot
	Err      error
}

// Resolver produces the single current principal from two overlapping
// sources: the Redis-backed session (authoritative) and the legacy signed
// cookie left behind by the pre-migration site (fallback). No other
// component reads either source directly.
type Resolver struct {
	store   ProfileStore
	legacy  *LegacyCodec
	logger  *slog.Logger
	timeout time.Duration

	// rev is bumped on every auth-state change. A resolution started under
	// an older revision is discarded when it completes, so the most recent
	// event wins regardless of fetch completion order.
	rev   atomic.Uint64
	group singleflight.Group

	mu    sync.RWMutex
	cache map[string]authz.Snapshot
}

// NewResolver constructs a Resolver. A zero timeout selects the default.
func NewResolver(store ProfileStore, legacy *LegacyCodec, logger *slog.Logger, timeout time.Duration) *Resolver {
	if timeout <= 0 {
		timeout = DefaultResolveTimeout
	}
	return &Resolver{
		store:   store,
		legacy:  legacy,
		logger:  logger,
		timeout: timeout,
		cache:   make(map[string]authz.Snapshot),
	}
}

// Resolve reconciles the request's identity sources into a snapshot. The
// session is preferred when both are present; a malformed legacy record is
// discarded silently (logged) and resolution continues without it.
func (r *Resolver) Resolve(ctx context.Context, req *http.Request) Resolution {
	userID, ok := r.identify(ctx, req)
	if !ok {
		return Resolution{Snapshot: authz.Snapshot{Ready: true}}
	}

	for attempt := 0; attempt < 3; attempt++ {
		rev := r.rev.Load()
		key := strconv.FormatUint(rev, 10) + ":" + strconv.FormatInt(userID, 10)

		r.mu.RLock()
		snap, hit := r.cache[key]
		r.mu.RUnlock()
		if hit {
			return Resolution{Snapshot: snap}
		}

		result, err, _ := r.group.Do(key, func() (any, error) {
			fetchCtx, cancel := context.WithTimeout(ctx, r.timeout)
			defer cancel()
			return r.fetch(fetchCtx, userID)
		})
		if err != nil {
			return Resolution{Snapshot: authz.Snapshot{}, Err: err}
		}
		snap = result.(authz.Snapshot)

		// Discard a resolution that went stale while in flight: an
		// intervening auth event has already superseded it.
		if r.rev.Load() != rev {
			continue
		}
		r.mu.Lock()
		r.cache[key] = snap
		r.mu.Unlock()
		return Resolution{Snapshot: snap}
	}
	return Resolution{Snapshot: authz.Snapshot{}, Err: errors.New("identity: resolution superseded by concurrent auth events")}
}

// Invalidate records an auth-state change (sign-in, sign-out, role change).
// Cached resolutions from earlier revisions are dropped atomically.
func (r *Resolver) Invalidate() {
	r.rev.Add(1)
	r.mu.Lock()
	r.cache = make(map[string]authz.Snapshot)
	r.mu.Unlock()
}

// identify picks the user ID from the preferred available source.
func (r *Resolver) identify(ctx context.Context, req *http.Request) (int64, bool) {
	if sess := shared.SessionFromContext(ctx); sess != nil {
		if raw := sess.User(); raw != "" {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err == nil && id > 0 {
				return id, true
			}
			if r.logger != nil {
				r.logger.Error("session carries unparseable user id", slog.String("value", raw))
			}
		}
	}
	if r.legacy == nil || req == nil {
		return 0, false
	}
	cookie, err := req.Cookie(LegacyCookieName)
	if err != nil {
		return 0, false
	}
	rec, err := r.legacy.Decode(cookie.Value)
	if err != nil {
		if r.logger != nil {
			r.logger.Warn("discarding malformed legacy identity record", slog.Any("error", err))
		}
		return 0, false
	}
	return rec.UserID, true
}

// fetch loads the profile and assembles an immutable snapshot. Role and
// active flag always land together; consumers never observe a half-updated
// principal.
func (r *Resolver) fetch(ctx context.Context, userID int64) (authz.Snapshot, error) {
	profile, err := r.store.FetchProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			// Identity points at a deleted account: resolved, unauthenticated.
			return authz.Snapshot{Ready: true}, nil
		}
		return authz.Snapshot{}, fmt.Errorf("identity: fetch profile: %w", err)
	}

	role, known := authz.ParseRole(profile.Role)
	if !known && r.logger != nil {
		// Unrecognized role keeps its raw value; the registry fails closed
		// so it grants nothing.
		r.logger.Warn("profile carries unregistered role",
			slog.Int64("user_id", profile.ID),
			slog.String("role", profile.Role))
	}
	principal := &authz.Principal{
		ID:        profile.ID,
		Role:      role,
		Active:    profile.Active,
		Overrides: profile.Overrides,
	}
	return authz.Snapshot{Principal: principal, Ready: true}, nil
}
