package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"sqlgym/internal/app/service"
	"sqlgym/internal/common"

	"github.com/go-chi/chi/v5"
)

type SubmissionHandler struct {
	dispatcher    *service.DispatcherService
	resultService *service.ResultService
}

func NewSubmissionHandler(dispatcher *service.DispatcherService, resultService *service.ResultService) *SubmissionHandler {
	return &SubmissionHandler{dispatcher: dispatcher, resultService: resultService}
}

func (h *SubmissionHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.createSubmission)
	r.Get("/{submissionID}", h.getResult)
}

type createSubmissionRequest struct {
	UserID    string `json:"user_id"`
	ProblemID string `json:"problem_id"`
	SQL       string `json:"sql"`
}

func (h *SubmissionHandler) createSubmission(w http.ResponseWriter, r *http.Request) {
	var req createSubmissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	submissionID, err := h.dispatcher.Submit(r.Context(), req.UserID, req.ProblemID, req.SQL)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), publicMessage(err))
		return
	}
	// 202: the result arrives asynchronously; the client polls for it.
	common.RespondWithJSON(w, http.StatusAccepted, map[string]string{"submission_id": submissionID})
}

func (h *SubmissionHandler) getResult(w http.ResponseWriter, r *http.Request) {
	submissionID := chi.URLParam(r, "submissionID")

	res, err := h.resultService.GetResult(r.Context(), submissionID)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), publicMessage(err))
		return
	}
	common.RespondWithJSON(w, http.StatusOK, res)
}

// publicMessage keeps infrastructure detail out of client-facing errors.
func publicMessage(err error) string {
	switch {
	case errors.Is(err, common.ErrNotFound):
		return common.ErrNotFound.Error()
	case errors.Is(err, common.ErrInvalidInput):
		return err.Error()
	case errors.Is(err, common.ErrStorageUnavailable):
		return common.ErrStorageUnavailable.Error()
	default:
		return common.ErrInternalServer.Error()
	}
}
