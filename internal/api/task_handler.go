package api

import (
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/cleohq/cleo-api/internal/api/shared"
	"github.com/cleohq/cleo-api/internal/domain"
	"github.com/cleohq/cleo-api/internal/service"
)

// TaskHandler handles AI task API requests.
type TaskHandler struct {
	aiService *service.AIService
	validator *validator.Validate
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(aiService *service.AIService) *TaskHandler {
	return &TaskHandler{
		aiService: aiService,
		validator: validator.New(),
	}
}

// Create handles POST /api/ai/task. The task is accepted, persisted as
// pending, and queued; processing happens asynchronously.
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserIDFromContext(r)
	if !ok {
		HandleAPIError(w, r, domain.ErrUnauthorized, "")
		return
	}

	var req CreateTaskRequest
	if err := DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	task, err := h.aiService.CreateTask(r.Context(), userID, req.WorkspaceID, req.Type, req.Payload)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, NewTaskResponse(task))
}

// Get handles GET /api/ai/task/{id}. Polling this endpoint is how
// clients observe task progress; a task in another user's workspace
// reads as 404.
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, taskID, ok := requireUserAndPathUUID(w, r, "id")
	if !ok {
		return
	}

	task, err := h.aiService.GetTask(r.Context(), userID, taskID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, NewTaskResponse(task))
}
