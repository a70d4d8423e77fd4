package handlers

import (
	"net/http"
	"slices"
	"testing"

	"github.com/google/uuid"

	"RIDESHARE_BACK-END/internal/dto"
)

func newConversationsRouter(repo ConversationRepository, users UserLookup) http.Handler {
	h := NewConversationsHandler(repo, users, discardLogger())
	r := newTestRouter()
	r.HandleFunc("/api/conversations", authed(h.ListConversations)).Methods(http.MethodGet)
	r.HandleFunc("/api/conversations", authed(h.CreateConversation)).Methods(http.MethodPost)
	r.HandleFunc("/api/conversations/filtered", authed(h.ListActiveConversations)).Methods(http.MethodGet)
	r.HandleFunc("/api/conversations/{id}", authed(h.GetConversation)).Methods(http.MethodGet)
	r.HandleFunc("/api/conversations/{id}", authed(h.LeaveConversation)).Methods(http.MethodDelete)
	r.HandleFunc("/api/conversations/{id}/retrieve", authed(h.RetrieveConversation)).Methods(http.MethodPut)
	return r
}

func TestConversationLifecycle(t *testing.T) {
	users := newFakeUsers()
	alice := users.add("alice@example.com")
	bob := users.add("bob@example.com")
	convs := newFakeConversations()
	r := newConversationsRouter(convs, users)

	var created dto.ConversationResponse
	rec := doJSON(t, r, http.MethodPost, "/api/conversations", alice.ID, dto.CreateConversationRequest{ReceiverID: bob.ID.String()}, &created)
	if rec.Code != http.StatusCreated || len(created.Members) != 2 || len(created.ActiveMembers) != 2 {
		t.Fatalf("create: status %d body %+v", rec.Code, created)
	}
	path := "/api/conversations/" + created.ID

	if rec := doJSON(t, r, http.MethodDelete, path, bob.ID, nil, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("leave: status %d", rec.Code)
	}

	var all, visible dto.ConversationListResponse
	doJSON(t, r, http.MethodGet, "/api/conversations", bob.ID, nil, &all)
	doJSON(t, r, http.MethodGet, "/api/conversations/filtered", bob.ID, nil, &visible)
	if len(all.Conversations) != 1 || len(visible.Conversations) != 0 {
		t.Fatalf("after leave: all %d visible %d", len(all.Conversations), len(visible.Conversations))
	}
	doJSON(t, r, http.MethodGet, "/api/conversations/filtered", alice.ID, nil, &visible)
	if len(visible.Conversations) != 1 {
		t.Fatalf("leaving hid the conversation for the other member too")
	}

	// opening it again returns the same conversation, visible to both
	var again dto.ConversationResponse
	rec = doJSON(t, r, http.MethodPost, "/api/conversations", alice.ID, dto.CreateConversationRequest{ReceiverID: bob.ID.String()}, &again)
	if rec.Code != http.StatusOK || again.ID != created.ID || !slices.Contains(again.ActiveMembers, bob.ID.String()) {
		t.Fatalf("reopen: status %d body %+v", rec.Code, again)
	}

	doJSON(t, r, http.MethodDelete, path, alice.ID, nil, nil)
	var restored dto.ConversationResponse
	rec = doJSON(t, r, http.MethodPut, path+"/retrieve", alice.ID, nil, &restored)
	if rec.Code != http.StatusOK || len(restored.ActiveMembers) != 2 {
		t.Fatalf("retrieve: status %d body %+v", rec.Code, restored)
	}

	var got dto.ConversationResponse
	if rec := doJSON(t, r, http.MethodGet, path, bob.ID, nil, &got); rec.Code != http.StatusOK || got.ID != created.ID {
		t.Fatalf("get: status %d", rec.Code)
	}
}

func TestConversationsRestrictedToMembers(t *testing.T) {
	users := newFakeUsers()
	alice := users.add("alice@example.com")
	bob := users.add("bob@example.com")
	mallory := users.add("mallory@example.com")
	convs := newFakeConversations()
	id := convs.open(alice.ID, bob.ID).String()
	r := newConversationsRouter(convs, users)
	path := "/api/conversations/" + id

	for _, tt := range []struct{ method, path string }{
		{http.MethodGet, path},
		{http.MethodDelete, path},
		{http.MethodPut, path + "/retrieve"},
	} {
		if rec := doJSON(t, r, tt.method, tt.path, mallory.ID, nil, nil); rec.Code != http.StatusForbidden {
			t.Errorf("%s %s by outsider: status %d, want 403", tt.method, tt.path, rec.Code)
		}
	}

	var list dto.ConversationListResponse
	doJSON(t, r, http.MethodGet, "/api/conversations", mallory.ID, nil, &list)
	if len(list.Conversations) != 0 {
		t.Fatalf("outsider lists %+v", list.Conversations)
	}
	if rec := doJSON(t, r, http.MethodGet, "/api/conversations/"+uuid.NewString(), alice.ID, nil, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown conversation: status %d", rec.Code)
	}
}

func TestCreateConversationValidation(t *testing.T) {
	users := newFakeUsers()
	alice := users.add("alice@example.com")
	r := newConversationsRouter(newFakeConversations(), users)

	tests := []struct {
		name     string
		receiver string
		want     int
	}{
		{"not a uuid", "bob", http.StatusBadRequest},
		{"self", alice.ID.String(), http.StatusBadRequest},
		{"unknown user", uuid.NewString(), http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, r, http.MethodPost, "/api/conversations", alice.ID, dto.CreateConversationRequest{ReceiverID: tt.receiver}, nil)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
	if rec := doJSON(t, r, http.MethodPost, "/api/conversations", uuid.Nil, dto.CreateConversationRequest{}, nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous: status %d", rec.Code)
	}
}
