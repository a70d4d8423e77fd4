package handlers

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/google/uuid"

	"RIDESHARE_BACK-END/internal/dto"
)

func newMessagesRouter(repo MessageRepository, convs ConversationMembership) http.Handler {
	h := NewMessagesHandler(repo, convs, discardLogger())
	r := newTestRouter()
	r.HandleFunc("/api/messages", authed(h.ListMessages)).Methods(http.MethodGet)
	r.HandleFunc("/api/messages", authed(h.CreateMessage)).Methods(http.MethodPost)
	r.HandleFunc("/api/messages/{id}", authed(h.EditMessage)).Methods(http.MethodPut)
	r.HandleFunc("/api/messages/{id}", authed(h.DeleteMessage)).Methods(http.MethodDelete)
	return r
}

func TestCreateMessageValidation(t *testing.T) {
	convs := newFakeConversations()
	r := newMessagesRouter(&fakeMessages{}, convs)
	me := uuid.New()
	c1 := convs.open(me, uuid.New()).String()
	lat, lng, far := 13.75, 100.5, 181.0
	blank := "  "

	tests := []struct {
		name string
		req  dto.CreateMessageRequest
	}{
		{"no conversation", dto.CreateMessageRequest{Text: "hi"}},
		{"conversation id not a uuid", dto.CreateMessageRequest{ConversationID: "c1", Text: "hi"}},
		{"empty message", dto.CreateMessageRequest{ConversationID: c1}},
		{"blank picture only", dto.CreateMessageRequest{ConversationID: c1, Picture: &blank}},
		{"text too long", dto.CreateMessageRequest{ConversationID: c1, Text: strings.Repeat("x", maxMessageText+1)}},
		{"location without coordinates", dto.CreateMessageRequest{ConversationID: c1, Location: true, Latitude: &lat}},
		{"longitude out of range", dto.CreateMessageRequest{ConversationID: c1, Location: true, Latitude: &lat, Longitude: &far}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := doJSON(t, r, http.MethodPost, "/api/messages", me, tt.req, nil); rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
		})
	}

	var got dto.MessageResponse
	rec := doJSON(t, r, http.MethodPost, "/api/messages", me, dto.CreateMessageRequest{
		ConversationID: c1, Location: true, Latitude: &lat, Longitude: &lng,
	}, &got)
	if rec.Code != http.StatusCreated || !got.Location || got.SenderID != me.String() {
		t.Fatalf("location message: status %d body %+v", rec.Code, got)
	}
}

func TestMessagesHistoryAndOwnership(t *testing.T) {
	repo := &fakeMessages{}
	convs := newFakeConversations()
	r := newMessagesRouter(repo, convs)
	alice, bob, carol := uuid.New(), uuid.New(), uuid.New()
	trip1 := convs.open(alice, bob).String()
	trip2 := convs.open(bob, carol).String()

	var first dto.MessageResponse
	doJSON(t, r, http.MethodPost, "/api/messages", alice, dto.CreateMessageRequest{ConversationID: trip1, Text: " leaving at 6 "}, &first)
	doJSON(t, r, http.MethodPost, "/api/messages", bob, dto.CreateMessageRequest{ConversationID: trip1, Text: "ok"}, nil)
	doJSON(t, r, http.MethodPost, "/api/messages", bob, dto.CreateMessageRequest{ConversationID: trip2, Text: "elsewhere"}, nil)

	if first.Text != "leaving at 6" {
		t.Fatalf("text = %q, want trimmed", first.Text)
	}

	var list dto.MessageListResponse
	rec := doJSON(t, r, http.MethodGet, "/api/messages?conversation_id="+trip1+"&limit=500", bob, nil, &list)
	if rec.Code != http.StatusOK || len(list.Messages) != 2 || list.Pagination.Limit != 200 {
		t.Fatalf("list: status %d body %+v", rec.Code, list)
	}
	if rec := doJSON(t, r, http.MethodGet, "/api/messages", bob, nil, nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("missing conversation_id: status %d", rec.Code)
	}

	path := "/api/messages/" + first.ID
	if rec := doJSON(t, r, http.MethodPut, path, bob, dto.EditMessageRequest{Text: "hijack"}, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("edit by other user: status %d, want 403", rec.Code)
	}
	if rec := doJSON(t, r, http.MethodPut, path, alice, dto.EditMessageRequest{Text: " "}, nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("blank edit: status %d, want 400", rec.Code)
	}

	var edited dto.MessageResponse
	doJSON(t, r, http.MethodPut, path, alice, dto.EditMessageRequest{Text: "leaving at 7"}, &edited)
	if !edited.Edited || edited.Text != "leaving at 7" {
		t.Fatalf("edited = %+v", edited)
	}

	var deleted dto.MessageResponse
	rec = doJSON(t, r, http.MethodDelete, path, alice, nil, &deleted)
	if rec.Code != http.StatusOK || !deleted.Deleted || deleted.Text != "" {
		t.Fatalf("delete: status %d body %+v", rec.Code, deleted)
	}
	if rec := doJSON(t, r, http.MethodDelete, "/api/messages/"+uuid.NewString(), alice, nil, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown message: status %d", rec.Code)
	}
}

func TestMessagesRequireMembership(t *testing.T) {
	repo := &fakeMessages{}
	convs := newFakeConversations()
	r := newMessagesRouter(repo, convs)
	alice, bob, mallory := uuid.New(), uuid.New(), uuid.New()
	conv := convs.open(alice, bob).String()

	if rec := doJSON(t, r, http.MethodPost, "/api/messages", alice, dto.CreateMessageRequest{ConversationID: conv, Text: "secret"}, nil); rec.Code != http.StatusCreated {
		t.Fatalf("member post: status %d", rec.Code)
	}

	var list dto.MessageListResponse
	rec := doJSON(t, r, http.MethodGet, "/api/messages?conversation_id="+conv, mallory, nil, &list)
	if rec.Code != http.StatusForbidden || len(list.Messages) != 0 {
		t.Fatalf("outsider read: status %d body %s", rec.Code, rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), "secret") {
		t.Fatal("outsider saw message text")
	}

	rec = doJSON(t, r, http.MethodPost, "/api/messages", mallory, dto.CreateMessageRequest{ConversationID: conv, Text: "let me in"}, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("outsider post: status %d", rec.Code)
	}
	if len(repo.msgs) != 1 {
		t.Fatalf("outsider message stored: %+v", repo.msgs)
	}

	unknown := uuid.NewString()
	if rec := doJSON(t, r, http.MethodGet, "/api/messages?conversation_id="+unknown, alice, nil, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("unknown conversation: status %d", rec.Code)
	}

	convs.fail = errors.New("connection reset")
	if rec := doJSON(t, r, http.MethodGet, "/api/messages?conversation_id="+conv, bob, nil, nil); rec.Code != http.StatusInternalServerError {
		t.Fatalf("membership lookup failure: status %d", rec.Code)
	}
}
