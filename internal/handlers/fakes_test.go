package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"RIDESHARE_BACK-END/internal/middleware"
	"RIDESHARE_BACK-END/internal/models"
	"RIDESHARE_BACK-END/internal/payment"
	"RIDESHARE_BACK-END/internal/repository"
)

// doJSON sends body (if any) to h as userID (uuid.Nil for anonymous) and
// decodes the response into out when out is non-nil.
func doJSON(t *testing.T, h http.Handler, method, path string, userID uuid.UUID, body any, out any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != uuid.Nil {
		token, err := middleware.GenerateToken(userID, "rider@example.com", testJWTConfig())
		if err != nil {
			t.Fatalf("GenerateToken: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if out != nil && rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			t.Fatalf("decode %s %s response %q: %v", method, path, rec.Body.String(), err)
		}
	}
	return rec
}

func authed(fn http.HandlerFunc) http.HandlerFunc {
	return middleware.AuthMiddleware(fn, testJWTConfig())
}

func newTestRouter() *mux.Router { return mux.NewRouter() }

type fakeUsers struct {
	mu    sync.Mutex
	byID  map[uuid.UUID]*models.User
	fail  error
	calls []string
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: make(map[uuid.UUID]*models.User)}
}

func (f *fakeUsers) Create(_ context.Context, u *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "Create")
	for _, existing := range f.byID {
		if existing.Email == u.Email {
			return repository.ErrDuplicate
		}
	}
	c := *u
	f.byID[u.ID] = &c
	return nil
}

func (f *fakeUsers) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return nil, f.fail
	}
	u, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *u
	return &c, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUsers) GetByGoogleID(_ context.Context, googleID string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.GoogleID != nil && *u.GoogleID == googleID {
			c := *u
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUsers) LinkGoogle(_ context.Context, id uuid.UUID, googleID string, picture *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "LinkGoogle")
	u, ok := f.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.GoogleID = &googleID
	if u.ProfilePic == nil {
		u.ProfilePic = picture
	}
	return nil
}

func (f *fakeUsers) Update(_ context.Context, id uuid.UUID, upd models.UserUpdate) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if upd.Username != nil {
		u.Username = *upd.Username
	}
	if upd.ProfilePic != nil {
		u.ProfilePic = upd.ProfilePic
	}
	if upd.DateOfBirth != nil {
		u.DateOfBirth = upd.DateOfBirth
	}
	u.UpdatedAt = time.Now().UTC()
	c := *u
	return &c, nil
}

func (f *fakeUsers) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeUsers) add(email string) *models.User {
	u := &models.User{
		ID:        uuid.New(),
		Username:  "rider",
		Email:     email,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	f.mu.Lock()
	f.byID[u.ID] = u
	f.mu.Unlock()
	return u
}

type fakeNotifications struct {
	mu       sync.Mutex
	created  []models.Notification
	fail     error
	failOnce map[uuid.UUID]error // consumed by the first Create for that user
}

func (f *fakeNotifications) Create(_ context.Context, n *models.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	if err, ok := f.failOnce[n.UserID]; ok {
		delete(f.failOnce, n.UserID)
		return err
	}
	for _, existing := range f.created {
		if n.EventID != nil && existing.EventID != nil && *existing.EventID == *n.EventID && existing.UserID == n.UserID {
			return repository.ErrDuplicate
		}
	}
	n.ID = uuid.New()
	n.CreatedAt = time.Now().UTC()
	f.created = append(f.created, *n)
	return nil
}

func (f *fakeNotifications) List(_ context.Context, userID uuid.UUID, filter models.NotificationFilter) (*models.NotificationPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	page := &models.NotificationPage{}
	for _, n := range f.created {
		if n.UserID != userID {
			continue
		}
		if !n.Read {
			page.UnreadCount++
		}
		if filter.UnreadOnly && n.Read || filter.Type != "" && n.Type != filter.Type {
			continue
		}
		page.Total++
		page.Items = append(page.Items, n)
	}
	return page, nil
}

func (f *fakeNotifications) MarkRead(_ context.Context, userID, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.created {
		if f.created[i].ID == id && f.created[i].UserID == userID {
			f.created[i].Read = true
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakeNotifications) MarkAllRead(_ context.Context, userID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for i := range f.created {
		if f.created[i].UserID == userID && !f.created[i].Read {
			f.created[i].Read = true
			n++
		}
	}
	return n, nil
}

func (f *fakeNotifications) forUser(id uuid.UUID) []models.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Notification
	for _, n := range f.created {
		if n.UserID == id {
			out = append(out, n)
		}
	}
	return out
}

type sentMail struct{ to, subject, body string }

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
}

func (m *fakeMailer) Send(to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{to, subject, body})
	return nil
}

type fakeMessages struct {
	mu   sync.Mutex
	msgs []models.Message
}

func (f *fakeMessages) Create(_ context.Context, m *models.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, *m)
	return nil
}

func (f *fakeMessages) ListByConversation(_ context.Context, conversationID uuid.UUID, limit, offset int) ([]models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Message{}
	for _, m := range f.msgs {
		if m.ConversationID == conversationID {
			out = append(out, m)
		}
	}
	if offset >= len(out) {
		return []models.Message{}, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeMessages) Edit(_ context.Context, id, senderID uuid.UUID, text string) (*models.Message, error) {
	return f.mutate(id, senderID, func(m *models.Message) {
		m.Text = text
		m.Edited = true
	})
}

func (f *fakeMessages) SoftDelete(_ context.Context, id, senderID uuid.UUID) (*models.Message, error) {
	return f.mutate(id, senderID, func(m *models.Message) {
		m.Text = ""
		m.Deleted = true
	})
}

func (f *fakeMessages) mutate(id, senderID uuid.UUID, apply func(*models.Message)) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.msgs {
		if f.msgs[i].ID != id {
			continue
		}
		if f.msgs[i].SenderID != senderID {
			return nil, repository.ErrForbidden
		}
		apply(&f.msgs[i])
		c := f.msgs[i]
		return &c, nil
	}
	return nil, repository.ErrNotFound
}

type fakeConversations struct {
	mu    sync.Mutex
	convs map[uuid.UUID]*models.Conversation
	fail  error
}

func newFakeConversations() *fakeConversations {
	return &fakeConversations{convs: make(map[uuid.UUID]*models.Conversation)}
}

func (f *fakeConversations) Create(_ context.Context, c *models.Conversation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.convs[c.ID] = cloneConversation(c)
	return nil
}

func (f *fakeConversations) FindDirect(_ context.Context, a, b uuid.UUID) (*models.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.convs {
		if len(c.Members) == 2 && c.HasMember(a) && c.HasMember(b) {
			return cloneConversation(c), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeConversations) Get(_ context.Context, id uuid.UUID) (*models.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.convs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneConversation(c), nil
}

func (f *fakeConversations) ListForUser(_ context.Context, userID uuid.UUID, activeOnly bool) ([]models.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Conversation{}
	for _, c := range f.convs {
		if !c.HasMember(userID) || activeOnly && !slices.Contains(c.Active, userID) {
			continue
		}
		out = append(out, *cloneConversation(c))
	}
	return out, nil
}

func (f *fakeConversations) IsMember(_ context.Context, conversationID, userID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return false, f.fail
	}
	c, ok := f.convs[conversationID]
	return ok && c.HasMember(userID), nil
}

func (f *fakeConversations) Leave(_ context.Context, conversationID, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.convs[conversationID]
	if !ok || !c.HasMember(userID) {
		return repository.ErrNotFound
	}
	c.Active = slices.DeleteFunc(c.Active, func(id uuid.UUID) bool { return id == userID })
	return nil
}

func (f *fakeConversations) Rejoin(_ context.Context, conversationID uuid.UUID) (*models.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.convs[conversationID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c.Active = append([]uuid.UUID(nil), c.Members...)
	return cloneConversation(c), nil
}

// open seeds a conversation between members and returns its id.
func (f *fakeConversations) open(members ...uuid.UUID) uuid.UUID {
	c := &models.Conversation{ID: uuid.New(), Members: members, Active: members, CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC()}
	_ = f.Create(context.Background(), c)
	return c.ID
}

func cloneConversation(c *models.Conversation) *models.Conversation {
	out := *c
	out.Members = append([]uuid.UUID(nil), c.Members...)
	out.Active = append([]uuid.UUID(nil), c.Active...)
	return &out
}

type fakeReviews struct {
	mu      sync.Mutex
	reviews []models.Review
}

func (f *fakeReviews) Create(_ context.Context, rv *models.Review) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.reviews {
		if existing.SubjectID == rv.SubjectID && existing.AuthorID == rv.AuthorID {
			return repository.ErrDuplicate
		}
	}
	f.reviews = append(f.reviews, *rv)
	return nil
}

func (f *fakeReviews) ListBySubject(_ context.Context, subjectID uuid.UUID) ([]models.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Review{}
	for _, rv := range f.reviews {
		if rv.SubjectID == subjectID {
			out = append(out, rv)
		}
	}
	return out, nil
}

func (f *fakeReviews) Update(_ context.Context, subjectID, reviewID, authorID uuid.UUID, text string, rating int) (*models.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i, err := f.findLocked(subjectID, reviewID, authorID)
	if err != nil {
		return nil, err
	}
	f.reviews[i].Text, f.reviews[i].Rating = text, rating
	f.reviews[i].UpdatedAt = time.Now().UTC()
	c := f.reviews[i]
	return &c, nil
}

func (f *fakeReviews) Delete(_ context.Context, subjectID, reviewID, authorID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	i, err := f.findLocked(subjectID, reviewID, authorID)
	if err != nil {
		return err
	}
	f.reviews = append(f.reviews[:i], f.reviews[i+1:]...)
	return nil
}

func (f *fakeReviews) findLocked(subjectID, reviewID, authorID uuid.UUID) (int, error) {
	for i, rv := range f.reviews {
		if rv.ID != reviewID || rv.SubjectID != subjectID {
			continue
		}
		if rv.AuthorID != authorID {
			return 0, repository.ErrForbidden
		}
		return i, nil
	}
	return 0, repository.ErrNotFound
}

type fakeCharger struct {
	got  []payment.ChargeRequest
	fail error
}

func (c *fakeCharger) Charge(_ context.Context, req payment.ChargeRequest) (*payment.Charge, error) {
	c.got = append(c.got, req)
	if c.fail != nil {
		return nil, c.fail
	}
	return &payment.Charge{ID: "chrg_test_1", Status: "successful", Amount: req.Amount, Currency: req.Currency}, nil
}
