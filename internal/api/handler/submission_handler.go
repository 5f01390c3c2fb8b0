package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"judgehub/internal/api/middleware"
	"judgehub/internal/app/service"
	"judgehub/internal/common"

	"github.com/go-chi/chi/v5"
)

type SubmissionHandler struct {
	gradingService *service.GradingService
}

func NewSubmissionHandler(gs *service.GradingService) *SubmissionHandler {
	return &SubmissionHandler{gradingService: gs}
}

func (h *SubmissionHandler) RegisterRoutes(r chi.Router) {
	r.Use(middleware.Authenticator) // All submission routes require auth
	r.Post("/", h.submit)
	r.Post("/run", h.run)
	r.Get("/me", h.listMine)
	r.Get("/{submissionID}", h.getSubmission)
}

// submit is the graded mode: persists a Submission with per-test results and
// updates streak state on a full pass.
func (h *SubmissionHandler) submit(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}

	var req service.GradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}

	submission, err := h.gradingService.Submit(r.Context(), userID, req)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, submission)
}

// run is the ungraded mode: the report is returned and nothing is persisted.
func (h *SubmissionHandler) run(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}

	var req service.GradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}

	verdict, err := h.gradingService.Execute(r.Context(), userID, req)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, verdict)
}

func (h *SubmissionHandler) getSubmission(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}

	submission, err := h.gradingService.GetSubmission(r.Context(), userID, chi.URLParam(r, "submissionID"))
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, submission)
}

func (h *SubmissionHandler) listMine(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page <= 0 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}

	submissions, total, err := h.gradingService.ListSubmissions(r.Context(), userID, pageSize, (page-1)*pageSize)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}

	type PaginatedSubmissionsResponse struct {
		Submissions interface{} `json:"submissions"`
		Total       int         `json:"total"`
		Page        int         `json:"page"`
		PageSize    int         `json:"page_size"`
	}
	common.RespondWithJSON(w, http.StatusOK, PaginatedSubmissionsResponse{
		Submissions: submissions,
		Total:       total,
		Page:        page,
		PageSize:    pageSize,
	})
}
