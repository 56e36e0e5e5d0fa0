package handlers

import (
	"errors"
	"net/http"
	"time"

	pgrepo "github.com/kikipou/Loopi-App/internal/repo/postgres"
	authsvc "github.com/kikipou/Loopi-App/internal/services/auth"
	boardssvc "github.com/kikipou/Loopi-App/internal/services/boards"
	"github.com/kikipou/Loopi-App/internal/transport/http/dto"
	httperrors "github.com/kikipou/Loopi-App/internal/transport/http/errors"
)

const dateLayout = "2006-01-02"

type BoardsHandler struct {
	service *boardssvc.Service
}

func NewBoardsHandler(service *boardssvc.Service) *BoardsHandler {
	return &BoardsHandler{service: service}
}

func (h *BoardsHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	identity, matchID, ok := h.boardRequest(w, r)
	if !ok {
		return
	}

	var req dto.CreateTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	input := boardssvc.CreateTaskInput{
		Title:      req.Title,
		Details:    req.Details,
		AssignedTo: req.AssignedTo,
	}
	if req.DueDate != "" {
		due, err := time.Parse(dateLayout, req.DueDate)
		if err != nil {
			writeBadRequest(w, "VALIDATION_ERROR", "due_date must be YYYY-MM-DD")
			return
		}
		input.DueDate = &due
	}

	task, err := h.service.CreateTask(r.Context(), matchID, identity.UserID, input)
	if err != nil {
		handleBoardsError(w, err)
		return
	}

	httperrors.Write(w, http.StatusCreated, toTaskResponse(task))
}

func (h *BoardsHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	identity, matchID, ok := h.boardRequest(w, r)
	if !ok {
		return
	}

	tasks, err := h.service.ListTasks(r.Context(), matchID, identity.UserID)
	if err != nil {
		handleBoardsError(w, err)
		return
	}

	out := make([]dto.TaskResponse, 0, len(tasks))
	for _, task := range tasks {
		out = append(out, toTaskResponse(task))
	}
	httperrors.Write(w, http.StatusOK, dto.TaskListResponse{Tasks: out})
}

func (h *BoardsHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	identity, matchID, ok := h.boardRequest(w, r)
	if !ok {
		return
	}

	taskID, ok := pathID(r, "taskID")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid task id")
		return
	}

	var req dto.UpdateTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	input := boardssvc.UpdateTaskInput{
		Title:      req.Title,
		Details:    req.Details,
		Status:     req.Status,
		ClearDue:   req.ClearDue,
		AssignedTo: req.AssignedTo,
	}
	if req.DueDate != nil {
		due, err := time.Parse(dateLayout, *req.DueDate)
		if err != nil {
			writeBadRequest(w, "VALIDATION_ERROR", "due_date must be YYYY-MM-DD")
			return
		}
		input.DueDate = &due
	}

	task, err := h.service.UpdateTask(r.Context(), matchID, taskID, identity.UserID, input)
	if err != nil {
		handleBoardsError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, toTaskResponse(task))
}

func (h *BoardsHandler) CycleTaskStatus(w http.ResponseWriter, r *http.Request) {
	identity, matchID, ok := h.boardRequest(w, r)
	if !ok {
		return
	}

	taskID, ok := pathID(r, "taskID")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid task id")
		return
	}

	task, err := h.service.CycleTaskStatus(r.Context(), matchID, taskID, identity.UserID)
	if err != nil {
		handleBoardsError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, toTaskResponse(task))
}

func (h *BoardsHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	identity, matchID, ok := h.boardRequest(w, r)
	if !ok {
		return
	}

	taskID, ok := pathID(r, "taskID")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid task id")
		return
	}

	if err := h.service.DeleteTask(r.Context(), matchID, taskID, identity.UserID); err != nil {
		handleBoardsError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.BoardDeleteResponse{OK: true})
}

func (h *BoardsHandler) CreateDeadline(w http.ResponseWriter, r *http.Request) {
	identity, matchID, ok := h.boardRequest(w, r)
	if !ok {
		return
	}

	var req dto.CreateDeadlineRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	due, err := time.Parse(dateLayout, req.DueDate)
	if err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "due_date must be YYYY-MM-DD")
		return
	}

	deadline, err := h.service.CreateDeadline(r.Context(), matchID, identity.UserID, boardssvc.CreateDeadlineInput{
		Title:   req.Title,
		Notes:   req.Notes,
		DueDate: due,
		DueTime: req.DueTime,
	})
	if err != nil {
		handleBoardsError(w, err)
		return
	}

	httperrors.Write(w, http.StatusCreated, toDeadlineResponse(deadline))
}

func (h *BoardsHandler) ListDeadlines(w http.ResponseWriter, r *http.Request) {
	identity, matchID, ok := h.boardRequest(w, r)
	if !ok {
		return
	}

	deadlines, err := h.service.ListDeadlines(r.Context(), matchID, identity.UserID)
	if err != nil {
		handleBoardsError(w, err)
		return
	}

	out := make([]dto.DeadlineResponse, 0, len(deadlines))
	for _, deadline := range deadlines {
		out = append(out, toDeadlineResponse(deadline))
	}
	httperrors.Write(w, http.StatusOK, dto.DeadlineListResponse{Deadlines: out})
}

func (h *BoardsHandler) DeadlineSummary(w http.ResponseWriter, r *http.Request) {
	identity, matchID, ok := h.boardRequest(w, r)
	if !ok {
		return
	}

	summary, err := h.service.DeadlineSummary(r.Context(), matchID, identity.UserID)
	if err != nil {
		handleBoardsError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.DeadlineSummaryResponse{
		DueSoon: summary.DueSoon,
		Overdue: summary.Overdue,
		Total:   summary.Total,
	})
}

func (h *BoardsHandler) DeleteDeadline(w http.ResponseWriter, r *http.Request) {
	identity, matchID, ok := h.boardRequest(w, r)
	if !ok {
		return
	}

	deadlineID, ok := pathID(r, "deadlineID")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid deadline id")
		return
	}

	if err := h.service.DeleteDeadline(r.Context(), matchID, deadlineID, identity.UserID); err != nil {
		handleBoardsError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.BoardDeleteResponse{OK: true})
}

func (h *BoardsHandler) boardRequest(w http.ResponseWriter, r *http.Request) (authsvc.Identity, int64, bool) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return authsvc.Identity{}, 0, false
	}
	if h.service == nil {
		writeInternal(w, "BOARDS_SERVICE_UNAVAILABLE", "boards service is unavailable")
		return authsvc.Identity{}, 0, false
	}

	matchID, ok := pathID(r, "matchID")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid match id")
		return authsvc.Identity{}, 0, false
	}
	return identity, matchID, true
}

func handleBoardsError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, boardssvc.ErrValidation):
		writeBadRequest(w, "VALIDATION_ERROR", "invalid board payload")
	case errors.Is(err, boardssvc.ErrMatchNotFound):
		writeNotFound(w, "MATCH_NOT_FOUND", "match not found")
	case errors.Is(err, boardssvc.ErrForbidden):
		writeForbidden(w, "NOT_MATCH_MEMBER", "only a match member can use this board")
	case errors.Is(err, boardssvc.ErrTaskNotFound):
		writeNotFound(w, "TASK_NOT_FOUND", "task not found")
	case errors.Is(err, boardssvc.ErrDeadlineNotFound):
		writeNotFound(w, "DEADLINE_NOT_FOUND", "deadline not found")
	default:
		writeInternal(w, "INTERNAL_ERROR", "failed to process board request")
	}
}

func toTaskResponse(task pgrepo.TaskRecord) dto.TaskResponse {
	resp := dto.TaskResponse{
		ID:         task.ID,
		MatchID:    task.MatchID,
		Title:      task.Title,
		Details:    task.Details,
		Status:     task.Status,
		AssignedTo: task.AssignedTo,
		CreatedBy:  task.CreatedBy,
		CreatedAt:  task.CreatedAt,
		UpdatedAt:  task.UpdatedAt,
	}
	if task.DueDate != nil {
		resp.DueDate = task.DueDate.Format(dateLayout)
	}
	return resp
}

func toDeadlineResponse(deadline pgrepo.DeadlineRecord) dto.DeadlineResponse {
	return dto.DeadlineResponse{
		ID:        deadline.ID,
		MatchID:   deadline.MatchID,
		Title:     deadline.Title,
		Notes:     deadline.Notes,
		DueDate:   deadline.DueDate.Format(dateLayout),
		DueTime:   deadline.DueTime,
		CreatedBy: deadline.CreatedBy,
		CreatedAt: deadline.CreatedAt,
	}
}
