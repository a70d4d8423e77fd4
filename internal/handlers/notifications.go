package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"RIDESHARE_BACK-END/internal/dto"
	"RIDESHARE_BACK-END/internal/ledger"
	"RIDESHARE_BACK-END/internal/models"
	"RIDESHARE_BACK-END/internal/repository"
	"RIDESHARE_BACK-END/internal/utils"
)

var validNotificationTypes = map[string]bool{
	models.NotificationMemberJoined: true,
	models.NotificationMemberLeft:   true,
	models.NotificationTripUpdate:   true,
	models.NotificationTripDeleted:  true,
}

// NotificationRepository stores in-app notifications.
type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	List(ctx context.Context, userID uuid.UUID, f models.NotificationFilter) (*models.NotificationPage, error)
	MarkRead(ctx context.Context, userID, id uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
}

// UserLookup resolves a user for outbound mail.
type UserLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// TripNotifier turns ledger events into notifications. It is a
// ledger.Publisher so it can sit behind the broker consumer or be wired
// straight into the ledger.
type TripNotifier struct {
	repo   NotificationRepository
	users  UserLookup
	mailer utils.Mailer
	logger *slog.Logger
}

// NewTripNotifier creates a notifier. users and mailer may be nil, in which
// case no mail is sent.
func NewTripNotifier(repo NotificationRepository, users UserLookup, mailer utils.Mailer, logger *slog.Logger) *TripNotifier {
	return &TripNotifier{repo: repo, users: users, mailer: mailer, logger: logger}
}

func (n *TripNotifier) Publish(ctx context.Context, ev ledger.TripEvent) error {
	data := map[string]any{
		"trip_id":    ev.TripID.String(),
		"user_id":    ev.UserID.String(),
		"seats_left": ev.SeatsLeft,
	}
	actionURL := "/trips/" + ev.TripID.String()

	switch ev.Type {
	case ledger.EventTripJoined:
		if ev.UserID == ev.OwnerID {
			return nil
		}
		data["tickets"] = ev.Tickets
		msg := fmt.Sprintf("A rider booked %d ticket(s) on %s", ev.Tickets, ev.Route)
		_, err := n.notify(ctx, ev, ev.OwnerID, models.NotificationMemberJoined, "New passenger", &msg, data, &actionURL)
		return err

	case ledger.EventTripRefunded:
		if !ev.Left || ev.UserID == ev.OwnerID {
			return nil
		}
		msg := fmt.Sprintf("A rider left %s", ev.Route)
		_, err := n.notify(ctx, ev, ev.OwnerID, models.NotificationMemberLeft, "Passenger left", &msg, data, &actionURL)
		return err

	case ledger.EventTripCancelled, ledger.EventTripReactivated:
		title, verb := "Trip cancelled", "cancelled"
		if ev.Type == ledger.EventTripReactivated {
			title, verb = "Trip reactivated", "reactivated"
		}
		data["cancelled"] = ev.Type == ledger.EventTripCancelled
		msg := fmt.Sprintf("%s was %s by its owner", ev.Route, verb)
		_, err := n.fanOut(ctx, ev, models.NotificationTripUpdate, title, &msg, data, &actionURL)
		return err

	case ledger.EventTripDeleted:
		msg := fmt.Sprintf("%s was deleted by its owner", ev.Route)
		fresh, err := n.fanOut(ctx, ev, models.NotificationTripDeleted, "Trip deleted", &msg, data, nil)
		n.mailDeleted(ctx, ev, fresh)
		return err
	}
	return nil
}

// fanOut notifies every participant except the owner and returns the users
// whose notification was stored by this call.
func (n *TripNotifier) fanOut(ctx context.Context, ev ledger.TripEvent, typ, title string, msg *string, data map[string]any, actionURL *string) ([]uuid.UUID, error) {
	var (
		fresh []uuid.UUID
		errs  []error
	)
	for _, uid := range ev.Participants {
		if uid == ev.OwnerID {
			continue
		}
		created, err := n.notify(ctx, ev, uid, typ, title, msg, data, actionURL)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if created {
			fresh = append(fresh, uid)
		}
	}
	return fresh, errors.Join(errs...)
}

// notify stores one notification. created is false when a redelivered event
// finds the earlier notification already stored.
func (n *TripNotifier) notify(ctx context.Context, ev ledger.TripEvent, userID uuid.UUID, typ, title string, msg *string, data map[string]any, actionURL *string) (created bool, err error) {
	var eventID *uuid.UUID
	if ev.ID != uuid.Nil {
		id := ev.ID
		eventID = &id
	}
	err = n.repo.Create(ctx, &models.Notification{
		UserID:    userID,
		EventID:   eventID,
		Type:      typ,
		Title:     title,
		Message:   msg,
		Data:      data,
		ActionURL: actionURL,
	})
	if errors.Is(err, repository.ErrDuplicate) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("notify %s: %w", userID, err)
	}
	return true, nil
}

// mailDeleted mails the users who were just notified about a deleted trip,
// so a redelivered event does not mail anyone twice. Failures are logged
// and skipped.
func (n *TripNotifier) mailDeleted(ctx context.Context, ev ledger.TripEvent, recipients []uuid.UUID) {
	if n.mailer == nil || n.users == nil {
		return
	}
	body := utils.TripDeletedBody(ev.Route, ev.DepartureDate, ev.DepartureTime)
	for _, uid := range recipients {
		u, err := n.users.GetByID(ctx, uid)
		if err != nil {
			n.logger.Warn("trip deleted mail: user lookup failed", "user_id", uid, "error", err)
			continue
		}
		if err := n.mailer.Send(u.Email, "Your trip has been deleted", body); err != nil {
			n.logger.Warn("trip deleted mail failed", "user_id", uid, "error", err)
		}
	}
}

// NotificationsHandler serves the notification inbox
type NotificationsHandler struct {
	repo   NotificationRepository
	logger *slog.Logger
}

func NewNotificationsHandler(repo NotificationRepository, logger *slog.Logger) *NotificationsHandler {
	return &NotificationsHandler{repo: repo, logger: logger}
}

// ListNotifications lists the caller's notifications
// @Summary List notifications
// @Description List user notifications with filters and pagination.
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Param unread_only query bool false "true|false (default false)"
// @Param type query string false "filter by type"
// @Param limit query int false "default 20 (max 100)"
// @Param offset query int false "default 0"
// @Success 200 {object} dto.NotificationsListResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/notifications [get]
func (h *NotificationsHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.WriteErrorResponse(w, http.StatusUnauthorized, "Unauthorized", "Invalid user context")
		return
	}

	q := r.URL.Query()
	filter := models.NotificationFilter{
		UnreadOnly: strings.EqualFold(q.Get("unread_only"), "true"),
		Type:       strings.TrimSpace(q.Get("type")),
	}

	limit, err := intParam(q.Get("limit"), 20)
	if err != nil || limit <= 0 {
		utils.WriteErrorResponse(w, http.StatusBadRequest, "Invalid limit", "limit must be a positive integer")
		return
	}
	if limit > 100 {
		limit = 100
	}
	offset, err := intParam(q.Get("offset"), 0)
	if err != nil || offset < 0 {
		utils.WriteErrorResponse(w, http.StatusBadRequest, "Invalid offset", "offset must be a non-negative integer")
		return
	}
	filter.Limit, filter.Offset = limit, offset

	if filter.Type != "" && !validNotificationTypes[filter.Type] {
		utils.WriteErrorResponse(w, http.StatusBadRequest, "Invalid type", "invalid notification type")
		return
	}

	page, err := h.repo.List(r.Context(), userID, filter)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	items := make([]dto.NotificationItem, 0, len(page.Items))
	for _, n := range page.Items {
		items = append(items, dto.NotificationItem{
			ID:        n.ID.String(),
			Type:      n.Type,
			Title:     n.Title,
			Message:   n.Message,
			Data:      n.Data,
			ActionURL: n.ActionURL,
			Read:      n.Read,
			CreatedAt: utils.FormatTimestamp(n.CreatedAt),
		})
	}

	utils.WriteJSONResponse(w, http.StatusOK, dto.NotificationsListResponse{
		Notifications: items,
		Pagination: dto.NotificationsPagination{
			Total:       page.Total,
			UnreadCount: page.UnreadCount,
			Limit:       limit,
			Offset:      offset,
		},
	})
}

// MarkRead marks one notification as read
// @Summary Mark a notification as read
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Param id path string true "Notification ID"
// @Success 200 {object} map[string]string
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/notifications/{id}/read [post]
func (h *NotificationsHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.WriteErrorResponse(w, http.StatusUnauthorized, "Unauthorized", "Invalid user context")
		return
	}

	nID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		utils.WriteErrorResponse(w, http.StatusBadRequest, "Invalid id", "notification id must be a valid UUID")
		return
	}

	if err := h.repo.MarkRead(r.Context(), userID, nID); err != nil {
		writeError(w, h.logger, err)
		return
	}

	utils.WriteJSONResponse(w, http.StatusOK, map[string]string{
		"message": "Notification marked as read",
	})
}

// MarkAllRead marks every unread notification of the caller as read
// @Summary Mark all notifications as read
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.MarkAllReadResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/notifications/read-all [post]
func (h *NotificationsHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.WriteErrorResponse(w, http.StatusUnauthorized, "Unauthorized", "Invalid user context")
		return
	}

	updated, err := h.repo.MarkAllRead(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	utils.WriteJSONResponse(w, http.StatusOK, dto.MarkAllReadResponse{Updated: updated})
}
