package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/teamtasks-api/internal/api/shared"
	"github.com/phrazzld/teamtasks-api/internal/domain"
	"github.com/phrazzld/teamtasks-api/internal/platform/logger"
	"github.com/phrazzld/teamtasks-api/internal/service"
)

// actorFromRequest extracts the authenticated actor placed in the request context
// by the authentication middleware. It writes a 401 response when none is present.
func actorFromRequest(w http.ResponseWriter, r *http.Request, log *slog.Logger) (domain.Actor, bool) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		log.Warn("actor not found in request context")
		HandleAPIError(w, r, service.ErrNotAuthorized, "Not authorized to access this route")
		return domain.Actor{}, false
	}
	return actor, true
}

// getPathUUID extracts a UUID from the URL path parameters.
//
// Returns:
//   - (uuid.UUID, nil): The parsed UUID if valid
//   - (uuid.Nil, error): A validation error if the parameter is missing or malformed
func getPathUUID(r *http.Request, paramName string) (uuid.UUID, error) {
	pathParam := chi.URLParam(r, paramName)
	if pathParam == "" {
		return uuid.Nil, domain.NewValidationError(paramName, "is required", domain.ErrValidation)
	}

	id, err := uuid.Parse(pathParam)
	if err != nil {
		return uuid.Nil, domain.NewValidationError(paramName, "has invalid format", domain.ErrInvalidID)
	}

	return id, nil
}

// handleActorAndPathUUID is a composite helper that extracts both the actor from context
// and a UUID from the path parameters. It writes an error response if either extraction fails.
func handleActorAndPathUUID(
	w http.ResponseWriter,
	r *http.Request,
	paramName string,
	log *slog.Logger,
) (domain.Actor, uuid.UUID, bool) {
	if log == nil {
		log = logger.FromContextOrDefault(r.Context(), slog.Default())
	}

	actor, ok := actorFromRequest(w, r, log)
	if !ok {
		return domain.Actor{}, uuid.Nil, false
	}

	pathID, err := getPathUUID(r, paramName)
	if err != nil {
		log.Warn("invalid "+paramName,
			slog.String("param_name", paramName),
			slog.String("value", chi.URLParam(r, paramName)))
		HandleAPIError(w, r, err, "")
		return domain.Actor{}, uuid.Nil, false
	}

	return actor, pathID, true
}

// queryPage reads the page and limit query parameters. Missing or malformed
// values fall back to the defaults.
func queryPage(r *http.Request) domain.Page {
	q := r.URL.Query()
	number, _ := strconv.Atoi(q.Get("page"))
	size, _ := strconv.Atoi(q.Get("limit"))
	return domain.NewPage(number, size)
}

// queryTaskFilter reads the status, priority and dueDate query parameters.
func queryTaskFilter(r *http.Request) (service.TaskQuery, error) {
	q := r.URL.Query()
	query := service.TaskQuery{Page: queryPage(r)}

	if raw := q.Get("status"); raw != "" {
		status := domain.TaskStatus(raw)
		if !status.IsValid() {
			return service.TaskQuery{}, domain.NewValidationError("status", "is not a valid status", domain.ErrInvalidFormat)
		}
		query.Status = &status
	}
	if raw := q.Get("priority"); raw != "" {
		priority := domain.Priority(raw)
		if !priority.IsValid() {
			return service.TaskQuery{}, domain.NewValidationError("priority", "is not a valid priority", domain.ErrInvalidFormat)
		}
		query.Priority = &priority
	}
	due, err := domain.ParseDueBucket(q.Get("dueDate"))
	if err != nil {
		return service.TaskQuery{}, err
	}
	query.Due = due

	return query, nil
}
