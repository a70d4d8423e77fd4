package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"golang.org/x/oauth2"

	"RIDESHARE_BACK-END/internal/config"
	"RIDESHARE_BACK-END/internal/dto"
	"RIDESHARE_BACK-END/internal/middleware"
)

func newGoogleHandler(t *testing.T, users *fakeUsers, info *dto.GoogleUserInfo) *GoogleAuthHandler {
	t.Helper()
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"google-access","token_type":"Bearer","expires_in":3600}`))
	}))
	t.Cleanup(tokenSrv.Close)

	cfg := &config.Config{
		JWT: *testJWTConfig(),
		GoogleOAuth: config.GoogleOAuthConfig{
			ClientID:     "client",
			ClientSecret: "secret",
			RedirectURL:  "http://localhost:8080/api/auth/google/callback",
			FrontendURL:  "http://localhost:3000/callback",
		},
	}
	h := NewGoogleAuthHandler(users, cfg, discardLogger())
	h.oauth2Config.Endpoint = oauth2.Endpoint{AuthURL: tokenSrv.URL + "/auth", TokenURL: tokenSrv.URL + "/token"}
	h.userInfo = func(context.Context, *oauth2.Token) (*dto.GoogleUserInfo, error) { return info, nil }
	return h
}

func TestGoogleLoginSetsState(t *testing.T) {
	h := newGoogleHandler(t, newFakeUsers(), nil)
	rec := httptest.NewRecorder()
	h.GoogleLogin(rec, httptest.NewRequest(http.MethodGet, "/api/auth/google/login", nil))

	var resp dto.GoogleLoginResponse
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if err := jsonDecode(rec, &resp); err != nil {
		t.Fatal(err)
	}
	if resp.State == "" || !strings.Contains(resp.AuthURL, "state="+resp.State) {
		t.Fatalf("response = %+v", resp)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != stateCookie || cookies[0].Value != resp.State {
		t.Fatalf("cookies = %v", cookies)
	}
}

func callback(h *GoogleAuthHandler, code, state, cookie string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/auth/google/callback?code="+code+"&state="+state, nil)
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: stateCookie, Value: cookie})
	}
	rec := httptest.NewRecorder()
	h.GoogleCallback(rec, req)
	return rec
}

func TestGoogleCallbackRejectsBadState(t *testing.T) {
	h := newGoogleHandler(t, newFakeUsers(), &dto.GoogleUserInfo{ID: "g1", Email: "a@b.c"})
	if rec := callback(h, "", "s", "s"); rec.Code != http.StatusBadRequest {
		t.Fatalf("missing code: status %d", rec.Code)
	}
	if rec := callback(h, "c", "s", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("missing cookie: status %d", rec.Code)
	}
	if rec := callback(h, "c", "s", "other"); rec.Code != http.StatusBadRequest {
		t.Fatalf("mismatched state: status %d", rec.Code)
	}
}

func TestGoogleCallbackCreatesAccount(t *testing.T) {
	users := newFakeUsers()
	h := newGoogleHandler(t, users, &dto.GoogleUserInfo{ID: "g-42", Email: "New.Rider@Gmail.com", Picture: "https://img/p.png"})

	rec := callback(h, "code", "st", "st")
	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d body %s", rec.Code, rec.Body.String())
	}
	loc, err := url.Parse(rec.Header().Get("Location"))
	if err != nil || !strings.HasPrefix(loc.String(), "http://localhost:3000/callback?") {
		t.Fatalf("redirect = %q", rec.Header().Get("Location"))
	}
	claims, err := middleware.ValidateToken(loc.Query().Get("token"), testJWTConfig())
	if err != nil || claims.UserID.String() != loc.Query().Get("user_id") || loc.Query().Get("provider") != "google" {
		t.Fatalf("redirect query = %v err = %v", loc.Query(), err)
	}

	u, err := users.GetByGoogleID(context.Background(), "g-42")
	if err != nil {
		t.Fatalf("account not created: %v", err)
	}
	if u.Username != "New.Rider" || u.Email != "new.rider@gmail.com" || u.PasswordHash != "" {
		t.Fatalf("created user = %+v", u)
	}

	// A second login finds the same account by Google id.
	callback(h, "code", "st", "st")
	if n := len(users.byID); n != 1 {
		t.Fatalf("users = %d, want 1", n)
	}
}

func TestGoogleCallbackLinksExistingEmail(t *testing.T) {
	users := newFakeUsers()
	existing := users.add("linked@example.com")
	h := newGoogleHandler(t, users, &dto.GoogleUserInfo{ID: "g-7", Email: "Linked@example.com", Name: "Linked"})

	if rec := callback(h, "code", "st", "st"); rec.Code != http.StatusFound {
		t.Fatalf("status = %d", rec.Code)
	}
	u, err := users.GetByGoogleID(context.Background(), "g-7")
	if err != nil || u.ID != existing.ID {
		t.Fatalf("google id linked to %v (err %v), want %s", u, err, existing.ID)
	}
	for _, c := range users.calls {
		if c == "Create" {
			t.Fatal("a duplicate account was created")
		}
	}
}
