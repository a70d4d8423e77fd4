package handlers

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"RIDESHARE_BACK-END/internal/dto"
	"RIDESHARE_BACK-END/internal/ledger"
	"RIDESHARE_BACK-END/internal/models"
)

func TestTripNotifierEventMapping(t *testing.T) {
	owner, rider, other := uuid.New(), uuid.New(), uuid.New()
	tripID := uuid.New()
	base := ledger.TripEvent{
		TripID:       tripID,
		OwnerID:      owner,
		UserID:       rider,
		SeatsLeft:    2,
		Participants: []uuid.UUID{owner, rider, other},
		Route:        "Khon Kaen → Bangkok",
	}

	tests := []struct {
		name   string
		mutate func(*ledger.TripEvent)
		want   map[uuid.UUID]string // recipient -> notification type
	}{
		{
			name:   "join notifies owner",
			mutate: func(ev *ledger.TripEvent) { ev.Type, ev.Tickets = ledger.EventTripJoined, 2 },
			want:   map[uuid.UUID]string{owner: models.NotificationMemberJoined},
		},
		{
			name:   "owner joining own trip is silent",
			mutate: func(ev *ledger.TripEvent) { ev.Type, ev.UserID = ledger.EventTripJoined, owner },
			want:   map[uuid.UUID]string{},
		},
		{
			name:   "partial refund is silent",
			mutate: func(ev *ledger.TripEvent) { ev.Type = ledger.EventTripRefunded },
			want:   map[uuid.UUID]string{},
		},
		{
			name:   "leaving notifies owner",
			mutate: func(ev *ledger.TripEvent) { ev.Type, ev.Left = ledger.EventTripRefunded, true },
			want:   map[uuid.UUID]string{owner: models.NotificationMemberLeft},
		},
		{
			name:   "cancel fans out to riders",
			mutate: func(ev *ledger.TripEvent) { ev.Type, ev.UserID = ledger.EventTripCancelled, owner },
			want:   map[uuid.UUID]string{rider: models.NotificationTripUpdate, other: models.NotificationTripUpdate},
		},
		{
			name:   "created is ignored",
			mutate: func(ev *ledger.TripEvent) { ev.Type = ledger.EventTripCreated },
			want:   map[uuid.UUID]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &fakeNotifications{}
			n := NewTripNotifier(repo, nil, nil, discardLogger())
			ev := base
			tt.mutate(&ev)

			if err := n.Publish(context.Background(), ev); err != nil {
				t.Fatalf("Publish: %v", err)
			}
			if len(repo.created) != len(tt.want) {
				t.Fatalf("created %d notifications, want %d: %+v", len(repo.created), len(tt.want), repo.created)
			}
			for _, got := range repo.created {
				if tt.want[got.UserID] != got.Type {
					t.Errorf("user %s got %q, want %q", got.UserID, got.Type, tt.want[got.UserID])
				}
				if got.Data["trip_id"] != tripID.String() {
					t.Errorf("data.trip_id = %v", got.Data["trip_id"])
				}
			}
		})
	}
}

func TestTripNotifierCancelCarriesState(t *testing.T) {
	repo := &fakeNotifications{}
	n := NewTripNotifier(repo, nil, nil, discardLogger())
	owner, rider := uuid.New(), uuid.New()

	n.Publish(context.Background(), ledger.TripEvent{Type: ledger.EventTripReactivated, OwnerID: owner, UserID: owner, Participants: []uuid.UUID{rider}})
	got := repo.forUser(rider)
	if len(got) != 1 || got[0].Title != "Trip reactivated" || got[0].Data["cancelled"] != false {
		t.Fatalf("reactivation notice = %+v", got)
	}
}

func TestTripNotifierDeleteMailsRiders(t *testing.T) {
	users := newFakeUsers()
	owner := users.add("owner@example.com")
	rider := users.add("rider@example.com")
	ghost := uuid.New()
	repo := &fakeNotifications{}
	mailer := &fakeMailer{}
	n := NewTripNotifier(repo, users, mailer, discardLogger())

	err := n.Publish(context.Background(), ledger.TripEvent{
		Type:          ledger.EventTripDeleted,
		TripID:        uuid.New(),
		OwnerID:       owner.ID,
		UserID:        owner.ID,
		Participants:  []uuid.UUID{owner.ID, rider.ID, ghost},
		Route:         "Chiang Mai → Pai",
		DepartureDate: "2031-05-20",
		DepartureTime: "07:15",
		OccurredAt:    time.Date(2026, 12, 1, 8, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if got := repo.forUser(rider.ID); len(got) != 1 || got[0].Type != models.NotificationTripDeleted || got[0].ActionURL != nil {
		t.Fatalf("rider notices = %+v", got)
	}
	if len(repo.forUser(owner.ID)) != 0 {
		t.Fatal("owner notified about their own deletion")
	}
	if len(mailer.sent) != 1 || mailer.sent[0].to != "rider@example.com" {
		t.Fatalf("mail sent = %+v", mailer.sent)
	}
	body := mailer.sent[0].body
	if !strings.Contains(body, "Chiang Mai → Pai") || !strings.Contains(body, "departing on 2031-05-20 at 07:15") {
		t.Fatalf("mail body = %q", body)
	}
	if strings.Contains(body, "2026-12-01") {
		t.Fatalf("mail body uses the deletion time as departure: %q", body)
	}
}

func TestTripNotifierRedeliveryDoesNotDuplicate(t *testing.T) {
	users := newFakeUsers()
	owner := users.add("owner@example.com")
	first := users.add("first@example.com")
	second := users.add("second@example.com")
	repo := &fakeNotifications{failOnce: map[uuid.UUID]error{second.ID: context.DeadlineExceeded}}
	mailer := &fakeMailer{}
	n := NewTripNotifier(repo, users, mailer, discardLogger())

	ev := ledger.TripEvent{
		ID:            uuid.New(),
		Type:          ledger.EventTripDeleted,
		TripID:        uuid.New(),
		OwnerID:       owner.ID,
		UserID:        owner.ID,
		Participants:  []uuid.UUID{first.ID, second.ID},
		Route:         "Udon Thani → Nong Khai",
		DepartureDate: "2031-01-02",
		DepartureTime: "09:00",
	}

	if err := n.Publish(context.Background(), ev); err == nil {
		t.Fatal("partial fan-out reported success")
	}
	if len(mailer.sent) != 1 || mailer.sent[0].to != "first@example.com" {
		t.Fatalf("mail after partial fan-out = %+v", mailer.sent)
	}

	// broker redelivers the same event
	if err := n.Publish(context.Background(), ev); err != nil {
		t.Fatalf("redelivery: %v", err)
	}
	if err := n.Publish(context.Background(), ev); err != nil {
		t.Fatalf("second redelivery: %v", err)
	}

	for _, u := range []*models.User{first, second} {
		if got := repo.forUser(u.ID); len(got) != 1 {
			t.Errorf("%s has %d notifications, want 1", u.Email, len(got))
		}
	}
	if len(mailer.sent) != 2 || mailer.sent[1].to != "second@example.com" {
		t.Fatalf("mails = %+v, want one per rider", mailer.sent)
	}
}

func TestTripNotifierReportsStoreFailure(t *testing.T) {
	repo := &fakeNotifications{fail: context.DeadlineExceeded}
	n := NewTripNotifier(repo, nil, nil, discardLogger())
	err := n.Publish(context.Background(), ledger.TripEvent{Type: ledger.EventTripJoined, OwnerID: uuid.New(), UserID: uuid.New()})
	if err == nil {
		t.Fatal("Publish swallowed the store error")
	}
}

func newNotificationsRouter(repo NotificationRepository) http.Handler {
	h := NewNotificationsHandler(repo, discardLogger())
	r := newTestRouter()
	r.HandleFunc("/api/notifications", authed(h.ListNotifications)).Methods(http.MethodGet)
	r.HandleFunc("/api/notifications/read-all", authed(h.MarkAllRead)).Methods(http.MethodPost)
	r.HandleFunc("/api/notifications/{id}/read", authed(h.MarkRead)).Methods(http.MethodPost)
	return r
}

func seedNotifications(t *testing.T, repo *fakeNotifications, userID uuid.UUID, types ...string) {
	t.Helper()
	for _, typ := range types {
		if err := repo.Create(context.Background(), &models.Notification{UserID: userID, Type: typ, Title: typ}); err != nil {
			t.Fatal(err)
		}
	}
}

func TestNotificationsInbox(t *testing.T) {
	repo := &fakeNotifications{}
	me := uuid.New()
	seedNotifications(t, repo, me, models.NotificationMemberJoined, models.NotificationTripUpdate, models.NotificationMemberJoined)
	seedNotifications(t, repo, uuid.New(), models.NotificationTripDeleted)
	r := newNotificationsRouter(repo)

	var list dto.NotificationsListResponse
	rec := doJSON(t, r, http.MethodGet, "/api/notifications?type=member_joined", me, nil, &list)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: status %d", rec.Code)
	}
	if len(list.Notifications) != 2 || list.Pagination.UnreadCount != 3 || list.Pagination.Limit != 20 {
		t.Fatalf("list = %+v", list)
	}

	first := list.Notifications[0].ID
	if rec := doJSON(t, r, http.MethodPost, "/api/notifications/"+first+"/read", me, nil, nil); rec.Code != http.StatusOK {
		t.Fatalf("mark read: status %d", rec.Code)
	}
	if rec := doJSON(t, r, http.MethodPost, "/api/notifications/"+first+"/read", uuid.New(), nil, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("mark someone else's: status %d, want 404", rec.Code)
	}

	doJSON(t, r, http.MethodGet, "/api/notifications?unread_only=true", me, nil, &list)
	if len(list.Notifications) != 2 {
		t.Fatalf("unread = %d, want 2", len(list.Notifications))
	}

	var all dto.MarkAllReadResponse
	doJSON(t, r, http.MethodPost, "/api/notifications/read-all", me, nil, &all)
	if all.Updated != 2 {
		t.Fatalf("updated = %d, want 2", all.Updated)
	}
}

func TestNotificationsListValidation(t *testing.T) {
	r := newNotificationsRouter(&fakeNotifications{})
	me := uuid.New()
	for _, q := range []string{"limit=0", "limit=abc", "offset=-1", "type=party"} {
		if rec := doJSON(t, r, http.MethodGet, "/api/notifications?"+q, me, nil, nil); rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status %d, want 400", q, rec.Code)
		}
	}

	var list dto.NotificationsListResponse
	doJSON(t, r, http.MethodGet, "/api/notifications?limit=1000", me, nil, &list)
	if list.Pagination.Limit != 100 {
		t.Fatalf("limit = %d, want 100", list.Pagination.Limit)
	}
	if rec := doJSON(t, r, http.MethodPost, "/api/notifications/nope/read", me, nil, nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad id: status %d", rec.Code)
	}
}
