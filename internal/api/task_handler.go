package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/teamtasks-api/internal/api/shared"
	"github.com/phrazzld/teamtasks-api/internal/domain"
	"github.com/phrazzld/teamtasks-api/internal/platform/logger"
	"github.com/phrazzld/teamtasks-api/internal/service"
)

// TaskHandler handles task-related HTTP requests.
type TaskHandler struct {
	tasks  service.TaskService
	logger *slog.Logger
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(tasks service.TaskService, logger *slog.Logger) *TaskHandler {
	if tasks == nil {
		panic("tasks cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskHandler{
		tasks:  tasks,
		logger: logger.With(slog.String("component", "task_handler")),
	}
}

// CreateTask handles POST /api/tasks.
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r, h.logger)
	if !ok {
		return
	}

	var req CreateTaskRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		HandleValidationError(w, r, err)
		return
	}

	draft, err := req.Draft()
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	task, err := h.tasks.CreateTask(r.Context(), actor, draft)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	logger.FromContextOrDefault(r.Context(), h.logger).Info("task created",
		slog.String("task_id", task.ID.String()))
	shared.RespondWithData(w, r, http.StatusCreated, task)
}

// Draft converts the request into a domain.TaskDraft.
func (req CreateTaskRequest) Draft() (domain.TaskDraft, error) {
	due, err := domain.ParseDueDate(req.DueDate)
	if err != nil {
		return domain.TaskDraft{}, err
	}
	draft := domain.TaskDraft{
		Title:       req.Title,
		Description: req.Description,
		DueDate:     due,
		Priority:    domain.Priority(req.Priority),
		Status:      domain.TaskStatus(req.Status),
	}
	if req.AssignedTo != nil && *req.AssignedTo != "" {
		id, err := uuid.Parse(*req.AssignedTo)
		if err != nil {
			return domain.TaskDraft{}, domain.NewValidationError("assignedTo", "must be a valid user ID", domain.ErrInvalidID)
		}
		draft.AssignedTo = &id
	}
	return draft, nil
}

// ListTasks handles GET /api/tasks.
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r, h.logger)
	if !ok {
		return
	}

	query, err := queryTaskFilter(r)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	page, err := h.tasks.ListTasks(r.Context(), actor, query)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithList(w, r, page.Items, &page.Pagination)
}

// GetTask handles GET /api/tasks/{id}.
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := handleActorAndPathUUID(w, r, "id", h.logger)
	if !ok {
		return
	}

	task, err := h.tasks.GetTask(r.Context(), actor, id)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithData(w, r, http.StatusOK, task)
}

// UpdateTask handles PUT /api/tasks/{id}.
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := handleActorAndPathUUID(w, r, "id", h.logger)
	if !ok {
		return
	}

	var req UpdateTaskRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		HandleAPIError(w, r, asRequestError(err), "")
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		HandleValidationError(w, r, err)
		return
	}

	patch, err := req.Patch()
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	task, err := h.tasks.UpdateTask(r.Context(), actor, id, patch)
	if err != nil {
		HandleAPIError(w, r, err, "Not authorized to update this task")
		return
	}

	shared.RespondWithData(w, r, http.StatusOK, task)
}

// DeleteTask handles DELETE /api/tasks/{id}.
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := handleActorAndPathUUID(w, r, "id", h.logger)
	if !ok {
		return
	}

	if err := h.tasks.DeleteTask(r.Context(), actor, id); err != nil {
		HandleAPIError(w, r, err, "Not authorized to delete this task")
		return
	}

	shared.RespondWithData(w, r, http.StatusOK, struct{}{})
}

// AssignTask handles PUT /api/tasks/{id}/assign.
func (h *TaskHandler) AssignTask(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := handleActorAndPathUUID(w, r, "id", h.logger)
	if !ok {
		return
	}

	var req AssignTaskRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		HandleValidationError(w, r, err)
		return
	}

	// validate:"uuid" has already accepted the value
	assigneeID := uuid.MustParse(req.AssignedTo)
	task, err := h.tasks.AssignTask(r.Context(), actor, id, assigneeID)
	if err != nil {
		HandleAPIError(w, r, err, "Not authorized to assign this task")
		return
	}

	shared.RespondWithData(w, r, http.StatusOK, task)
}

// AddComment handles POST /api/tasks/{id}/comments.
func (h *TaskHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := handleActorAndPathUUID(w, r, "id", h.logger)
	if !ok {
		return
	}

	var req CommentRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		HandleValidationError(w, r, err)
		return
	}

	comments, err := h.tasks.AddComment(r.Context(), actor, id, req.Text)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithData(w, r, http.StatusOK, comments)
}

// SearchTasks handles GET /api/tasks/search?q=.
func (h *TaskHandler) SearchTasks(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r, h.logger)
	if !ok {
		return
	}

	tasks, err := h.tasks.SearchTasks(r.Context(), actor, r.URL.Query().Get("q"))
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithList(w, r, tasks, nil)
}

// FilterTasks handles GET /api/tasks/filter/{filter} for the overdue, assigned
// and created listings.
func (h *TaskHandler) FilterTasks(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r, h.logger)
	if !ok {
		return
	}

	var (
		tasks []domain.Task
		err   error
	)
	switch chi.URLParam(r, "filter") {
	case "overdue":
		tasks, err = h.tasks.OverdueTasks(r.Context(), actor)
	case "assigned":
		tasks, err = h.tasks.AssignedTasks(r.Context(), actor)
	case "created":
		tasks, err = h.tasks.CreatedTasks(r.Context(), actor)
	default:
		shared.RespondWithError(w, r, http.StatusNotFound, "Filter not found")
		return
	}
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithList(w, r, tasks, nil)
}

// asRequestError keeps typed validation errors raised while decoding and
// classifies everything else as a malformed body.
func asRequestError(err error) error {
	if shared.FieldErrors(err) != nil {
		return err
	}
	return domain.NewValidationError("", "Invalid request format", domain.ErrInvalidFormat)
}
