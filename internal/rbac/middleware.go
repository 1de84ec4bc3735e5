package rbac

import (
	"net/http"
	"strings"

	"log/slog"

	"github.com/google/uuid"

	"github.com/vetnest/vetnest/internal/shared"
)

// OrgHeader carries the organization scope for a request, when any.
const OrgHeader = "X-Org-ID"

// Middleware wires RBAC authorization helpers for HTTP handlers. Every
// guarded request resolves the caller's assignments fresh; requests after
// a grant or revoke observe the new state without any invalidation step.
type Middleware struct {
	Resolver *Resolver
	Logger   *slog.Logger
}

// RequireAny ensures the current user has at least one of the required
// permissions within the request's organization scope.
func (m Middleware) RequireAny(perms ...string) func(http.Handler) http.Handler {
	required := dedupePermissions(perms)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(required) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			snap, ok := m.resolve(w, r)
			if !ok {
				return
			}
			if snap.HasAnyPermission(RequestOrgID(r), required...) {
				next.ServeHTTP(w, r)
				return
			}
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		})
	}
}

// RequireAll ensures the current user has all required permissions within
// the request's organization scope.
func (m Middleware) RequireAll(perms ...string) func(http.Handler) http.Handler {
	required := dedupePermissions(perms)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(required) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			snap, ok := m.resolve(w, r)
			if !ok {
				return
			}
			if snap.HasAllPermissions(RequestOrgID(r), required...) {
				next.ServeHTTP(w, r)
				return
			}
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		})
	}
}

// RequireRole ensures the current user holds one of the named roles under
// strict scoping: without an organization on the request, only global
// assignments qualify.
func (m Middleware) RequireRole(names ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(names) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			snap, ok := m.resolve(w, r)
			if !ok {
				return
			}
			if snap.HasAnyRole(RequestOrgID(r), names...) {
				next.ServeHTTP(w, r)
				return
			}
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		})
	}
}

func (m Middleware) resolve(w http.ResponseWriter, r *http.Request) (Snapshot, bool) {
	userID, ok := CurrentUserID(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		return Snapshot{}, false
	}
	snap, err := m.Resolver.Load(r.Context(), userID)
	if err != nil {
		if m.Logger != nil {
			m.Logger.Error("rbac resolve request", slog.Any("error", err))
		}
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return Snapshot{}, false
	}
	return snap, true
}

// CurrentUserID extracts the authenticated user from the request session.
func CurrentUserID(r *http.Request) (uuid.UUID, bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return uuid.Nil, false
	}
	raw := strings.TrimSpace(sess.User())
	if raw == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// RequestOrgID reads the organization scope from the X-Org-ID header or the
// org_id query parameter. Absent or malformed values mean "no organization
// scope" (uuid.Nil).
func RequestOrgID(r *http.Request) uuid.UUID {
	raw := strings.TrimSpace(r.Header.Get(OrgHeader))
	if raw == "" {
		raw = strings.TrimSpace(r.URL.Query().Get("org_id"))
	}
	if raw == "" {
		return uuid.Nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil
	}
	return id
}

// dedupePermissions trims and deduplicates a requirement list. Permission
// names stay case-sensitive.
func dedupePermissions(perms []string) []string {
	unique := make(map[string]struct{}, len(perms))
	deduped := make([]string, 0, len(perms))
	for _, p := range perms {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, ok := unique[p]; ok {
			continue
		}
		unique[p] = struct{}{}
		deduped = append(deduped, p)
	}
	return deduped
}
