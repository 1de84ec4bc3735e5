package rbac

import (
	"errors"
	"net/http"
	"time"

	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/vetnest/vetnest/internal/platform/httpx"
)

// Handler exposes assignment resolution and mutation endpoints.
type Handler struct {
	logger    *slog.Logger
	resolver  *Resolver
	service   *Service
	mw        Middleware
	validator *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, resolver *Resolver, service *Service, mw Middleware) *Handler {
	return &Handler{
		logger:    logger,
		resolver:  resolver,
		service:   service,
		mw:        mw,
		validator: validator.New(),
	}
}

// MountRoutes registers access-control routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/me", h.currentAccess)
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequireAny(PermManageUsersGlobal, PermCreateOrgUsers))
		r.Get("/users/{userID}/assignments", h.listUserAssignments)
		r.Post("/assignments", h.assignRole)
		r.Delete("/assignments/{assignmentID}", h.revokeRole)
	})
}

type organizationResponse struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type roleResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	DisplayName string    `json:"display_name"`
	Permissions []string  `json:"permissions"`
	IsSystem    bool      `json:"is_system_role"`
}

type assignmentResponse struct {
	ID           uuid.UUID             `json:"id"`
	UserID       uuid.UUID             `json:"user_id"`
	Role         roleResponse          `json:"role"`
	Organization *organizationResponse `json:"organization,omitempty"`
	IsActive     bool                  `json:"is_active"`
	AssignedBy   uuid.UUID             `json:"assigned_by"`
	CreatedAt    time.Time             `json:"created_at"`
}

type accessResponse struct {
	Assignments []assignmentResponse `json:"assignments"`
	Permissions []string             `json:"permissions"`
	PrimaryRole *assignmentResponse  `json:"primary_role,omitempty"`
}

func (h *Handler) currentAccess(w http.ResponseWriter, r *http.Request) {
	userID, ok := CurrentUserID(r)
	if !ok {
		// Unauthenticated callers see the empty permission set, not an error.
		httpx.JSON(w, http.StatusOK, accessResponse{Assignments: []assignmentResponse{}, Permissions: []string{}})
		return
	}
	snap := h.resolver.LoadOrEmpty(r.Context(), userID)
	httpx.JSON(w, http.StatusOK, toAccessResponse(snap, RequestOrgID(r)))
}

func (h *Handler) listUserAssignments(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid user id")
		return
	}
	snap, err := h.resolver.Load(r.Context(), userID)
	if err != nil {
		h.logger.Error("list assignments", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, toAccessResponse(snap, uuid.Nil))
}

type assignRoleRequest struct {
	UserID         uuid.UUID  `json:"user_id" validate:"required"`
	RoleID         uuid.UUID  `json:"role_id" validate:"required"`
	OrganizationID *uuid.UUID `json:"organization_id"`
}

func (h *Handler) assignRole(w http.ResponseWriter, r *http.Request) {
	var req assignRoleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	actorID, _ := CurrentUserID(r)
	assignment, err := h.service.AssignRole(r.Context(), actorID, req.UserID, req.RoleID, req.OrganizationID)
	if err != nil {
		switch {
		case errors.Is(err, ErrDuplicateAssignment):
			httpx.Problem(w, http.StatusConflict, "Duplicate", "user already holds this role in that scope")
		case errors.Is(err, ErrUnauthenticated):
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		default:
			h.logger.Error("assign role", slog.Any("error", err))
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		}
		return
	}
	resp := toAssignmentResponse(assignment)
	httpx.JSON(w, http.StatusCreated, resp)
}

func (h *Handler) revokeRole(w http.ResponseWriter, r *http.Request) {
	assignmentID, err := uuid.Parse(chi.URLParam(r, "assignmentID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid assignment id")
		return
	}
	actorID, _ := CurrentUserID(r)
	if err := h.service.RevokeRole(r.Context(), actorID, assignmentID); err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			httpx.Problem(w, http.StatusNotFound, "Not Found", "assignment not found")
		case errors.Is(err, ErrUnauthenticated):
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		default:
			h.logger.Error("revoke role", slog.Any("error", err))
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		}
		return
	}
	httpx.NoContent(w)
}

func toAccessResponse(snap Snapshot, orgID uuid.UUID) accessResponse {
	assignments := snap.Assignments()
	resp := accessResponse{
		Assignments: make([]assignmentResponse, 0, len(assignments)),
		Permissions: snap.Permissions(orgID),
	}
	for _, a := range assignments {
		resp.Assignments = append(resp.Assignments, toAssignmentResponse(a))
	}
	if primary := snap.PrimaryRole(); primary != nil {
		pr := toAssignmentResponse(*primary)
		resp.PrimaryRole = &pr
	}
	return resp
}

func toAssignmentResponse(a Assignment) assignmentResponse {
	resp := assignmentResponse{
		ID:     a.ID,
		UserID: a.UserID,
		Role: roleResponse{
			ID:          a.Role.ID,
			Name:        a.Role.Name,
			DisplayName: a.Role.DisplayName,
			Permissions: a.Role.Permissions,
			IsSystem:    a.Role.IsSystemRole,
		},
		IsActive:   a.IsActive,
		AssignedBy: a.AssignedBy,
		CreatedAt:  a.CreatedAt,
	}
	if a.Organization != nil {
		resp.Organization = &organizationResponse{ID: a.Organization.ID, Name: a.Organization.Name}
	}
	return resp
}
