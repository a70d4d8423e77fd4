package handlers

import (
	"net/http"
	"strings"
	"testing"

	"github.com/google/uuid"

	"RIDESHARE_BACK-END/internal/dto"
)

func newReviewsRouter(repo ReviewRepository, users UserLookup) http.Handler {
	h := NewReviewsHandler(repo, users, discardLogger())
	r := newTestRouter()
	r.HandleFunc("/api/users/{id}/reviews", h.ListReviews).Methods(http.MethodGet)
	r.HandleFunc("/api/users/{id}/reviews", authed(h.CreateReview)).Methods(http.MethodPost)
	r.HandleFunc("/api/users/{id}/reviews/{reviewId}", authed(h.UpdateReview)).Methods(http.MethodPut)
	r.HandleFunc("/api/users/{id}/reviews/{reviewId}", authed(h.DeleteReview)).Methods(http.MethodDelete)
	return r
}

func TestReviewsLifecycle(t *testing.T) {
	users := newFakeUsers()
	driver := users.add("driver@example.com")
	rider := users.add("rider@example.com")
	other := users.add("other@example.com")
	repo := &fakeReviews{}
	r := newReviewsRouter(repo, users)
	base := "/api/users/" + driver.ID.String() + "/reviews"

	var created dto.ReviewResponse
	rec := doJSON(t, r, http.MethodPost, base, rider.ID, dto.ReviewRequest{Text: "  smooth ride ", Rating: 5}, &created)
	if rec.Code != http.StatusCreated || created.Text != "smooth ride" || created.AuthorID != rider.ID.String() {
		t.Fatalf("create: status %d body %+v", rec.Code, created)
	}
	doJSON(t, r, http.MethodPost, base, other.ID, dto.ReviewRequest{Text: "late", Rating: 2}, nil)

	if rec := doJSON(t, r, http.MethodPost, base, rider.ID, dto.ReviewRequest{Text: "again", Rating: 4}, nil); rec.Code != http.StatusConflict {
		t.Fatalf("second review by same author: status %d, want 409", rec.Code)
	}

	var list dto.ReviewListResponse
	rec = doJSON(t, r, http.MethodGet, base, uuid.Nil, nil, &list)
	if rec.Code != http.StatusOK || list.Count != 2 || list.AverageRating != 3.5 {
		t.Fatalf("list: status %d body %+v", rec.Code, list)
	}

	path := base + "/" + created.ID
	if rec := doJSON(t, r, http.MethodPut, path, other.ID, dto.ReviewRequest{Text: "hijack", Rating: 1}, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("edit by other user: status %d, want 403", rec.Code)
	}
	var edited dto.ReviewResponse
	rec = doJSON(t, r, http.MethodPut, path, rider.ID, dto.ReviewRequest{Text: "good ride", Rating: 4}, &edited)
	if rec.Code != http.StatusOK || edited.Rating != 4 || edited.Text != "good ride" {
		t.Fatalf("edit: status %d body %+v", rec.Code, edited)
	}

	otherPath := "/api/users/" + other.ID.String() + "/reviews/" + created.ID
	if rec := doJSON(t, r, http.MethodDelete, otherPath, rider.ID, nil, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("review under wrong user: status %d, want 404", rec.Code)
	}
	if rec := doJSON(t, r, http.MethodDelete, path, driver.ID, nil, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("delete by reviewed user: status %d, want 403", rec.Code)
	}
	if rec := doJSON(t, r, http.MethodDelete, path, rider.ID, nil, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("delete: status %d", rec.Code)
	}
	doJSON(t, r, http.MethodGet, base, uuid.Nil, nil, &list)
	if list.Count != 1 || list.AverageRating != 2 {
		t.Fatalf("after delete: %+v", list)
	}
}

func TestCreateReviewValidation(t *testing.T) {
	users := newFakeUsers()
	driver := users.add("driver@example.com")
	rider := users.add("rider@example.com")
	r := newReviewsRouter(&fakeReviews{}, users)
	base := "/api/users/" + driver.ID.String() + "/reviews"

	tests := []struct {
		name   string
		path   string
		author uuid.UUID
		req    dto.ReviewRequest
		want   int
	}{
		{"rating too low", base, rider.ID, dto.ReviewRequest{Text: "ok", Rating: 0}, http.StatusBadRequest},
		{"rating too high", base, rider.ID, dto.ReviewRequest{Text: "ok", Rating: 6}, http.StatusBadRequest},
		{"blank text", base, rider.ID, dto.ReviewRequest{Text: "  ", Rating: 3}, http.StatusBadRequest},
		{"text too long", base, rider.ID, dto.ReviewRequest{Text: strings.Repeat("x", maxReviewText+1), Rating: 3}, http.StatusBadRequest},
		{"self review", base, driver.ID, dto.ReviewRequest{Text: "great", Rating: 5}, http.StatusBadRequest},
		{"unknown user", "/api/users/" + uuid.NewString() + "/reviews", rider.ID, dto.ReviewRequest{Text: "ok", Rating: 3}, http.StatusNotFound},
		{"bad user id", "/api/users/someone/reviews", rider.ID, dto.ReviewRequest{Text: "ok", Rating: 3}, http.StatusBadRequest},
		{"anonymous", base, uuid.Nil, dto.ReviewRequest{Text: "ok", Rating: 3}, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := doJSON(t, r, http.MethodPost, tt.path, tt.author, tt.req, nil); rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}

	var list dto.ReviewListResponse
	doJSON(t, r, http.MethodGet, base, uuid.Nil, nil, &list)
	if list.Count != 0 || list.Reviews == nil {
		t.Fatalf("rejected reviews stored: %+v", list)
	}
}
