package api

import (
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/cleohq/cleo-api/internal/api/shared"
	"github.com/cleohq/cleo-api/internal/domain"
	"github.com/cleohq/cleo-api/internal/store"
)

// WorkspaceHandler handles workspace CRUD API requests. All routes
// require authentication; ownership is enforced by the store layer,
// which reports another user's workspace as not found.
type WorkspaceHandler struct {
	workspaceStore store.WorkspaceStore
	validator      *validator.Validate
}

// NewWorkspaceHandler creates a new WorkspaceHandler.
func NewWorkspaceHandler(workspaceStore store.WorkspaceStore) *WorkspaceHandler {
	return &WorkspaceHandler{
		workspaceStore: workspaceStore,
		validator:      validator.New(),
	}
}

// Create handles POST /api/workspaces.
func (h *WorkspaceHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserIDFromContext(r)
	if !ok {
		HandleAPIError(w, r, domain.ErrUnauthorized, "")
		return
	}

	var req CreateWorkspaceRequest
	if err := DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	workspace, err := domain.NewWorkspace(userID, req.Name)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid workspace data: "+err.Error())
		return
	}

	if err := h.workspaceStore.Create(r.Context(), workspace); err != nil {
		HandleAPIError(w, r, err, "Failed to create workspace")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, NewWorkspaceResponse(workspace))
}

// List handles GET /api/workspaces.
func (h *WorkspaceHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserIDFromContext(r)
	if !ok {
		HandleAPIError(w, r, domain.ErrUnauthorized, "")
		return
	}

	workspaces, err := h.workspaceStore.ListByUser(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list workspaces")
		return
	}

	responses := make([]WorkspaceResponse, 0, len(workspaces))
	for _, ws := range workspaces {
		responses = append(responses, NewWorkspaceResponse(ws))
	}

	shared.RespondWithJSON(w, r, http.StatusOK, responses)
}

// Get handles GET /api/workspaces/{id}.
func (h *WorkspaceHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, workspaceID, ok := requireUserAndPathUUID(w, r, "id")
	if !ok {
		return
	}

	workspace, err := h.workspaceStore.GetForUser(r.Context(), workspaceID, userID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, NewWorkspaceResponse(workspace))
}

// Update handles PUT /api/workspaces/{id}.
func (h *WorkspaceHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, workspaceID, ok := requireUserAndPathUUID(w, r, "id")
	if !ok {
		return
	}

	var req UpdateWorkspaceRequest
	if err := DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	workspace, err := h.workspaceStore.UpdateName(r.Context(), workspaceID, userID, req.Name)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, NewWorkspaceResponse(workspace))
}

// Delete handles DELETE /api/workspaces/{id}. Tasks and credentials
// under the workspace are removed by the schema cascade.
func (h *WorkspaceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, workspaceID, ok := requireUserAndPathUUID(w, r, "id")
	if !ok {
		return
	}

	if err := h.workspaceStore.Delete(r.Context(), workspaceID, userID); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusNoContent, nil)
}
