package api

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/teamtasks-api/internal/api/shared"
	"github.com/phrazzld/teamtasks-api/internal/domain"
	"github.com/phrazzld/teamtasks-api/internal/platform/logger"
	"github.com/phrazzld/teamtasks-api/internal/service"
)

// NotificationHandler serves the notification inbox of the authenticated user.
type NotificationHandler struct {
	notifications service.NotificationService
	logger        *slog.Logger
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(notifications service.NotificationService, logger *slog.Logger) *NotificationHandler {
	if notifications == nil {
		panic("notifications cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &NotificationHandler{
		notifications: notifications,
		logger:        logger.With(slog.String("component", "notification_handler")),
	}
}

// ListUnread handles GET /api/notifications.
func (h *NotificationHandler) ListUnread(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r, h.logger)
	if !ok {
		return
	}

	page, err := h.notifications.ListUnread(r.Context(), actor, queryPage(r))
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithList(w, r, page.Items, &page.Pagination)
}

// MarkRead handles PUT /api/notifications/{id}/read.
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := handleActorAndPathUUID(w, r, "id", h.logger)
	if !ok {
		return
	}

	notification, err := h.notifications.MarkRead(r.Context(), actor, id)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithData(w, r, http.StatusOK, notification)
}

// MarkAllRead handles PUT /api/notifications/read-all.
func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r, h.logger)
	if !ok {
		return
	}

	updated, err := h.notifications.MarkAllRead(r.Context(), actor)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	logger.FromContextOrDefault(r.Context(), h.logger).Debug("notifications marked read",
		slog.Int64("updated", updated))
	shared.RespondWithMessage(w, r, http.StatusOK, "All notifications marked as read")
}

// DeleteNotification handles DELETE /api/notifications/{id}.
func (h *NotificationHandler) DeleteNotification(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := handleActorAndPathUUID(w, r, "id", h.logger)
	if !ok {
		return
	}

	if err := h.notifications.Delete(r.Context(), actor, id); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithData(w, r, http.StatusOK, struct{}{})
}

// UpdatePreferences handles PUT /api/notifications/preferences.
func (h *NotificationHandler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r, h.logger)
	if !ok {
		return
	}

	var patch domain.PreferencesPatch
	if err := shared.DecodeJSON(r, &patch); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	prefs, err := h.notifications.UpdatePreferences(r.Context(), actor, patch)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithData(w, r, http.StatusOK, prefs)
}
