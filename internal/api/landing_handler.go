package api

import (
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/cleohq/cleo-api/internal/api/shared"
	"github.com/cleohq/cleo-api/internal/domain"
	"github.com/cleohq/cleo-api/internal/store"
)

// LandingHandler captures landing-page form submissions. The endpoint is
// public and intentionally is not tied to user accounts.
type LandingHandler struct {
	submissionStore store.SubmissionStore
	validator       *validator.Validate
}

// NewLandingHandler creates a new LandingHandler.
func NewLandingHandler(submissionStore store.SubmissionStore) *LandingHandler {
	return &LandingHandler{
		submissionStore: submissionStore,
		validator:       validator.New(),
	}
}

// Submit handles POST /api/landing/submit.
func (h *LandingHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmissionRequest
	if err := DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	submission, err := domain.NewSubmission(req.Name, req.Email, req.Website)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid submission: "+err.Error())
		return
	}

	if err := h.submissionStore.Create(r.Context(), submission); err != nil {
		HandleAPIError(w, r, err, "Failed to record submission")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, submission)
}

// List handles GET /api/landing/submissions. It requires authentication;
// every registered user may read the capture list.
func (h *LandingHandler) List(w http.ResponseWriter, r *http.Request) {
	submissions, err := h.submissionStore.List(r.Context())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list submissions")
		return
	}

	resp := make([]SubmissionResponse, 0, len(submissions))
	for _, sub := range submissions {
		resp = append(resp, SubmissionResponse{
			ID:        sub.ID,
			Name:      sub.Name,
			Email:     sub.Email,
			Website:   sub.Website,
			CreatedAt: sub.CreatedAt,
		})
	}

	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}
