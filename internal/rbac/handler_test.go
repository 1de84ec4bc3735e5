package rbac_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/vetnest/vetnest/internal/rbac"
)

func newAccessRouter(store *stubStore) chi.Router {
	logger := slog.New(slog.DiscardHandler)
	resolver := rbac.NewResolver(store, logger)
	service := rbac.NewService(store, nil, nil, logger)
	mw := rbac.Middleware{Resolver: resolver, Logger: logger}
	handler := rbac.NewHandler(logger, resolver, service, mw)

	r := chi.NewRouter()
	r.Route("/access", handler.MountRoutes)
	return r
}

func jsonSessionRequest(t *testing.T, method, target, userID string, payload any) *http.Request {
	t.Helper()
	req := sessionRequest(t, method, target, userID)
	if payload == nil {
		return req
	}
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	body := httptest.NewRequest(method, target, bytes.NewReader(data))
	body.Header.Set("Content-Type", "application/json")
	return body.WithContext(req.Context())
}

func TestCurrentAccessUnauthenticated(t *testing.T) {
	router := newAccessRouter(newStubStore())

	res := httptest.NewRecorder()
	router.ServeHTTP(res, sessionRequest(t, http.MethodGet, "/access/me", ""))

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	var resp struct {
		Assignments []json.RawMessage `json:"assignments"`
		Permissions []string          `json:"permissions"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Assignments) != 0 || len(resp.Permissions) != 0 {
		t.Fatalf("expected empty access for anonymous caller, got %s", res.Body.String())
	}
}

func TestCurrentAccessReturnsEffectivePermissions(t *testing.T) {
	store := newStubStore()
	user := uuid.New()
	store.grant(user, rbac.RoleVetSupport, []string{rbac.PermManageMedicalRecords}, nil)
	store.grant(user, rbac.RoleSales, []string{rbac.PermManageSales}, &testOrgOne)

	router := newAccessRouter(store)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, sessionRequest(t, http.MethodGet, "/access/me", user.String()))

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	var resp struct {
		Assignments []struct {
			Role struct {
				Name string `json:"name"`
			} `json:"role"`
		} `json:"assignments"`
		Permissions []string `json:"permissions"`
		PrimaryRole *struct {
			Role struct {
				Name string `json:"name"`
			} `json:"role"`
		} `json:"primary_role"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Assignments) != 2 {
		t.Fatalf("expected 2 assignments, got %d", len(resp.Assignments))
	}
	if len(resp.Permissions) != 2 {
		t.Fatalf("expected union of 2 permissions, got %v", resp.Permissions)
	}
	if resp.PrimaryRole == nil || resp.PrimaryRole.Role.Name != rbac.RoleSales {
		t.Fatalf("expected most recent assignment as primary role, got %+v", resp.PrimaryRole)
	}
}

func TestAssignEndpointRequiresPermission(t *testing.T) {
	store := newStubStore()
	actor := uuid.New()
	sales := store.addRole(rbac.RoleSales, rbac.PermManageSales)
	router := newAccessRouter(store)

	payload := map[string]any{"user_id": uuid.New(), "role_id": sales.ID}
	res := httptest.NewRecorder()
	router.ServeHTTP(res, jsonSessionRequest(t, http.MethodPost, "/access/assignments", actor.String(), payload))

	if res.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for unprivileged actor, got %d", res.Code)
	}
}

func TestAssignAndRevokeThroughAPI(t *testing.T) {
	store := newStubStore()
	actor := uuid.New()
	store.grant(actor, rbac.RoleSuperAdmin, []string{rbac.PermManageUsersGlobal}, nil)
	sales := store.addRole(rbac.RoleSales, rbac.PermManageSales)
	subject := uuid.New()

	router := newAccessRouter(store)

	payload := map[string]any{"user_id": subject, "role_id": sales.ID, "organization_id": testOrgOne}
	res := httptest.NewRecorder()
	router.ServeHTTP(res, jsonSessionRequest(t, http.MethodPost, "/access/assignments", actor.String(), payload))
	if res.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", res.Code, res.Body.String())
	}
	var created struct {
		ID   uuid.UUID `json:"id"`
		Role struct {
			Name string `json:"name"`
		} `json:"role"`
		AssignedBy uuid.UUID `json:"assigned_by"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode created assignment: %v", err)
	}
	if created.Role.Name != rbac.RoleSales || created.AssignedBy != actor {
		t.Fatalf("unexpected assignment payload: %s", res.Body.String())
	}

	// The grant shows up in the subject's assignment listing.
	res = httptest.NewRecorder()
	router.ServeHTTP(res, sessionRequest(t, http.MethodGet, "/access/users/"+subject.String()+"/assignments", actor.String()))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	var listing struct {
		Assignments []json.RawMessage `json:"assignments"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &listing); err != nil {
		t.Fatalf("decode listing: %v", err)
	}
	if len(listing.Assignments) != 1 {
		t.Fatalf("expected 1 assignment, got %d", len(listing.Assignments))
	}

	// Revoke and verify it disappears.
	res = httptest.NewRecorder()
	router.ServeHTTP(res, sessionRequest(t, http.MethodDelete, "/access/assignments/"+created.ID.String(), actor.String()))
	if res.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", res.Code)
	}

	res = httptest.NewRecorder()
	router.ServeHTTP(res, sessionRequest(t, http.MethodDelete, "/access/assignments/"+created.ID.String(), actor.String()))
	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on double revoke, got %d", res.Code)
	}
}

func TestAssignEndpointValidation(t *testing.T) {
	store := newStubStore()
	actor := uuid.New()
	store.grant(actor, rbac.RoleSuperAdmin, []string{rbac.PermManageUsersGlobal}, nil)
	router := newAccessRouter(store)

	payload := map[string]any{"user_id": uuid.Nil, "role_id": uuid.Nil}
	res := httptest.NewRecorder()
	router.ServeHTTP(res, jsonSessionRequest(t, http.MethodPost, "/access/assignments", actor.String(), payload))

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", res.Code, res.Body.String())
	}
}
