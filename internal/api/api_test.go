package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/bilgisen/firenews/internal/accounts"
	"github.com/bilgisen/firenews/internal/auth"
	"github.com/bilgisen/firenews/internal/cache"
	"github.com/bilgisen/firenews/internal/config"
	"github.com/bilgisen/firenews/internal/feed"
	"github.com/bilgisen/firenews/internal/mail"
	"github.com/bilgisen/firenews/internal/media"
	"github.com/bilgisen/firenews/internal/middleware"
	"github.com/bilgisen/firenews/internal/news"
	"github.com/bilgisen/firenews/internal/session"
	"github.com/bilgisen/firenews/internal/storage/sqlite"
)

type fakeUploader struct{}

func (fakeUploader) Upload(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error) {
	if _, err := io.Copy(io.Discard, body); err != nil {
		return "", err
	}
	return "https://cdn.example.com/" + key, nil
}

type testServer struct {
	app    *fiber.App
	store  *sqlite.Store
	mailer *mail.LogSender
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	store, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	cfg := &config.Config{
		JWTSecret:           "test-secret",
		SessionTTL:          time.Hour,
		PublicBaseURL:       "http://localhost:8080",
		HTTPTimeout:         5 * time.Second,
		BootstrapAdminEmail: "admin@firenews.com",
		DefaultImageURL:     "https://example.com/placeholder.jpg",
	}
	c := cache.NewMemoryClient("test:")
	mailer := mail.NewLogSender(zerolog.Nop())
	authSvc := auth.NewService(cfg, store, c, mailer)
	mediaSvc := media.NewService(fakeUploader{}, 1<<20)
	hub := feed.NewHub()

	enforcer, err := middleware.NewEnforcer(middleware.DefaultPolicies)
	if err != nil {
		t.Fatalf("enforcer: %v", err)
	}
	h := NewHandlers(ctx, Deps{
		Store:    store,
		Auth:     authSvc,
		Sessions: session.NewManager(store, authSvc, cfg.BootstrapAdminEmail),
		News:     news.NewService(store, c, news.Options{DefaultImageURL: cfg.DefaultImageURL}),
		Accounts: accounts.NewService(store, authSvc, mediaSvc),
		Feed:     feed.New(store, hub, feed.NewLocalBus(hub)),
		Media:    mediaSvc,
	})

	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler})
	SetupRoutes(app, h, enforcer)
	return &testServer{app: app, store: store, mailer: mailer}
}

func (s *testServer) send(t *testing.T, req *http.Request, token string, out any) int {
	t.Helper()
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()
	if out != nil {
		b, _ := io.ReadAll(resp.Body)
		if len(b) > 0 {
			if err := json.Unmarshal(b, out); err != nil {
				t.Fatalf("decode %s %s: %v (%s)", req.Method, req.URL.Path, err, b)
			}
		}
	}
	return resp.StatusCode
}

func (s *testServer) do(t *testing.T, method, path, token string, body, out any) int {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encode body: %v", err)
		}
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	return s.send(t, req, token, out)
}

type authResponse struct {
	Token   string          `json:"token"`
	Session session.Session `json:"session"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func (s *testServer) register(t *testing.T, email string) authResponse {
	t.Helper()
	var out authResponse
	status := s.do(t, "POST", "/api/v1/auth/register", "", map[string]string{
		"email": email, "password": "secret123",
	}, &out)
	if status != fiber.StatusCreated {
		t.Fatalf("register %s: status %d", email, status)
	}
	return out
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	var out map[string]any
	if status := s.do(t, "GET", "/api/v1/health", "", nil, &out); status != 200 || out["status"] != "ok" {
		t.Fatalf("unexpected health %d %v", status, out)
	}

	var e errorResponse
	if status := s.do(t, "GET", "/api/v1/nope", "", nil, &e); status != 404 || e.Code != "NOT_FOUND" {
		t.Fatalf("unexpected 404 body %d %+v", status, e)
	}
}

func TestRegisterBootstrapsRoles(t *testing.T) {
	s := newTestServer(t)

	admin := s.register(t, "admin@firenews.com")
	if admin.Session.Role != "Admin" || !admin.Session.IsAdmin || !admin.Session.IsVerified {
		t.Fatalf("expected bootstrap admin, got %+v", admin.Session)
	}
	user := s.register(t, "reader@example.com")
	if user.Session.Role != "User" || user.Session.IsAdmin {
		t.Fatalf("expected plain user, got %+v", user.Session)
	}
	if got := len(s.mailer.Sent()); got != 1 {
		t.Fatalf("expected one verification email, got %d", got)
	}

	var e errorResponse
	if status := s.do(t, "POST", "/api/v1/auth/register", "", map[string]string{
		"email": "reader@example.com", "password": "secret123",
	}, &e); status != 409 || e.Error != "email already in use" {
		t.Fatalf("expected duplicate rejection, got %d %+v", status, e)
	}
	if status := s.do(t, "POST", "/api/v1/auth/register", "", map[string]string{
		"email": "new@example.com", "password": "123",
	}, &e); status != 400 || e.Error != "weak password" || e.Code != "VALIDATION" {
		t.Fatalf("expected weak password, got %d %+v", status, e)
	}
	if status := s.do(t, "POST", "/api/v1/auth/login", "", map[string]string{
		"email": "reader@example.com", "password": "wrong-password",
	}, &e); status != 401 || e.Error != "invalid credentials" {
		t.Fatalf("expected invalid credentials, got %d %+v", status, e)
	}

	var restored authResponse
	if status := s.do(t, "POST", "/api/v1/auth/session", user.Token, nil, &restored); status != 200 || restored.Session.UID != user.Session.UID {
		t.Fatalf("session restore failed: %d %+v", status, restored)
	}

	if status := s.do(t, "GET", "/api/v1/admin/dashboard", user.Token, nil, &e); status != 403 || e.Code != "FORBIDDEN" {
		t.Fatalf("expected forbidden for user, got %d %+v", status, e)
	}
	if status := s.do(t, "GET", "/api/v1/admin/dashboard", "", nil, &e); status != 401 {
		t.Fatalf("expected 401 for anonymous, got %d", status)
	}
	var stats map[string]int
	if status := s.do(t, "GET", "/api/v1/admin/dashboard", admin.Token, nil, &stats); status != 200 || stats["totalUsers"] != 2 {
		t.Fatalf("unexpected dashboard %d %v", status, stats)
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	s := newTestServer(t)
	user := s.register(t, "reader@example.com")

	if status := s.do(t, "GET", "/api/v1/me", user.Token, nil, nil); status != 200 {
		t.Fatalf("expected profile, got %d", status)
	}
	if status := s.do(t, "POST", "/api/v1/auth/logout", user.Token, nil, nil); status != 204 {
		t.Fatalf("logout: %d", status)
	}
	var e errorResponse
	if status := s.do(t, "GET", "/api/v1/me", user.Token, nil, &e); status != 401 || e.Error != "session has been signed out" {
		t.Fatalf("expected revoked token, got %d %+v", status, e)
	}
}

func TestNewsLikesAndCategories(t *testing.T) {
	s := newTestServer(t)
	admin := s.register(t, "admin@firenews.com")
	user := s.register(t, "reader@example.com")

	var cat struct {
		ID   string `json:"id"`
		Slug string `json:"slug"`
	}
	if status := s.do(t, "POST", "/api/v1/admin/categories", admin.Token, map[string]string{"name": "World News"}, &cat); status != 201 || cat.Slug != "world-news" {
		t.Fatalf("create category: %d %+v", status, cat)
	}

	var article struct {
		ID     string `json:"id"`
		Status string `json:"status"`
		Likes  int    `json:"likes"`
	}
	if status := s.do(t, "POST", "/api/v1/admin/news", admin.Token, map[string]string{
		"title": "Hello", "content": "World", "category": "World News", "status": "Published",
	}, &article); status != 201 || article.Status != "Published" {
		t.Fatalf("create article: %d %+v", status, article)
	}
	var draft struct {
		ID string `json:"id"`
	}
	s.do(t, "POST", "/api/v1/admin/news", admin.Token, map[string]string{
		"title": "Soon", "content": "Later", "category": "World News",
	}, &draft)

	var e errorResponse
	if status := s.do(t, "POST", "/api/v1/admin/news", admin.Token, map[string]string{"title": "No body"}, &e); status != 400 || e.Code != "VALIDATION" {
		t.Fatalf("expected validation error, got %d %+v", status, e)
	}

	var feedList struct {
		Items []struct {
			ID string `json:"id"`
		} `json:"items"`
	}
	if status := s.do(t, "GET", "/api/v1/news?category=World%20News&q=hello", "", nil, &feedList); status != 200 || len(feedList.Items) != 1 {
		t.Fatalf("unexpected feed %d %+v", status, feedList)
	}
	if status := s.do(t, "GET", "/api/v1/news/"+draft.ID, user.Token, nil, &e); status != 404 {
		t.Fatalf("expected draft hidden, got %d", status)
	}

	var like struct {
		Likes int `json:"likes"`
	}
	if status := s.do(t, "POST", "/api/v1/news/"+article.ID+"/like", user.Token, nil, &like); status != 200 || like.Likes != 1 {
		t.Fatalf("like: %d %+v", status, like)
	}
	if status := s.do(t, "POST", "/api/v1/news/"+article.ID+"/like", user.Token, nil, &e); status != 409 || e.Error != "already liked" {
		t.Fatalf("expected already liked, got %d %+v", status, e)
	}
	if status := s.do(t, "POST", "/api/v1/news/"+article.ID+"/like", "", nil, &e); status != 401 {
		t.Fatalf("expected sign-in required, got %d", status)
	}

	var detail struct {
		Liked bool `json:"liked"`
	}
	s.do(t, "GET", "/api/v1/news/"+article.ID, user.Token, nil, &detail)
	if !detail.Liked {
		t.Fatal("expected detail to report the like")
	}

	var cats struct {
		Items []struct {
			PostCount int `json:"postCount"`
		} `json:"items"`
	}
	if status := s.do(t, "GET", "/api/v1/admin/categories", admin.Token, nil, &cats); status != 200 || len(cats.Items) != 1 || cats.Items[0].PostCount != 2 {
		t.Fatalf("unexpected categories %d %+v", status, cats)
	}
	var names struct {
		Items []string `json:"items"`
	}
	if status := s.do(t, "GET", "/api/v1/news/categories", "", nil, &names); status != 200 || len(names.Items) != 1 || names.Items[0] != "World News" {
		t.Fatalf("unexpected category names %d %+v", status, names)
	}

	if status := s.do(t, "GET", "/api/v1/news?category=Sports", "", nil, &feedList); status != 200 || len(feedList.Items) != 0 {
		t.Fatalf("expected empty Sports feed, got %d %+v", status, feedList)
	}
	if status := s.do(t, "PUT", "/api/v1/admin/news/"+article.ID, admin.Token, map[string]string{
		"title": "Hello", "content": "World", "category": "World News", "status": "Draft",
	}, nil); status != 200 {
		t.Fatalf("unpublish: %d", status)
	}
	feedList.Items = nil
	if status := s.do(t, "GET", "/api/v1/news", "", nil, &feedList); status != 200 || len(feedList.Items) != 0 {
		t.Fatalf("expected unpublished article gone from feed, got %d %+v", status, feedList)
	}
}

func TestCommentModerationFlow(t *testing.T) {
	s := newTestServer(t)
	admin := s.register(t, "admin@firenews.com")
	alice := s.register(t, "alice@example.com")
	bob := s.register(t, "bob@example.com")

	var article struct {
		ID string `json:"id"`
	}
	s.do(t, "POST", "/api/v1/admin/news", admin.Token, map[string]string{
		"title": "T", "content": "C", "category": "Tech", "status": "Published",
	}, &article)

	var comment struct {
		ID string `json:"id"`
	}
	if status := s.do(t, "POST", "/api/v1/news/"+article.ID+"/comments", alice.Token, map[string]string{"text": "spam"}, &comment); status != 201 {
		t.Fatalf("post comment: %d", status)
	}
	var e errorResponse
	if status := s.do(t, "POST", "/api/v1/news/"+article.ID+"/comments", alice.Token, map[string]string{"text": "   "}, &e); status != 400 {
		t.Fatalf("expected empty comment rejection, got %d", status)
	}
	if status := s.do(t, "POST", "/api/v1/news/"+article.ID+"/comments", bob.Token, map[string]string{"text": "reply", "parentId": comment.ID}, nil); status != 201 {
		t.Fatalf("post reply: %d", status)
	}

	var thread feed.ThreadSnapshot
	if status := s.do(t, "GET", "/api/v1/news/"+article.ID+"/comments", "", nil, &thread); status != 200 || thread.Total != 2 {
		t.Fatalf("unexpected thread %d %+v", status, thread)
	}

	if status := s.do(t, "POST", "/api/v1/comments/"+comment.ID+"/report", bob.Token, nil, nil); status != 204 {
		t.Fatalf("report: %d", status)
	}
	if status := s.do(t, "POST", "/api/v1/users/"+alice.Session.UID+"/block", bob.Token, map[string]bool{"confirm": false}, &e); status != 400 {
		t.Fatalf("expected unconfirmed block rejection, got %d", status)
	}
	if status := s.do(t, "POST", "/api/v1/users/"+alice.Session.UID+"/block", bob.Token, map[string]bool{"confirm": true}, nil); status != 204 {
		t.Fatalf("block: %d", status)
	}

	var queue feed.ModerationSnapshot
	if status := s.do(t, "GET", "/api/v1/admin/notifications", admin.Token, nil, &queue); status != 200 || queue.Unread != 2 {
		t.Fatalf("unexpected queue %d %+v", status, queue)
	}
	if status := s.do(t, "GET", "/api/v1/admin/notifications", bob.Token, nil, nil); status != 403 {
		t.Fatalf("expected forbidden queue for users, got %d", status)
	}

	var reportID, blockID string
	for _, n := range queue.Notifications {
		switch n.Type {
		case "comment_report":
			reportID = n.ID
		case "user_blocked":
			blockID = n.ID
		}
	}

	if status := s.do(t, "POST", "/api/v1/admin/notifications/"+blockID+"/read", admin.Token, nil, nil); status != 204 {
		t.Fatalf("mark read: %d", status)
	}
	if status := s.do(t, "POST", "/api/v1/admin/notifications/"+reportID+"/ban-user", admin.Token, nil, nil); status != 204 {
		t.Fatalf("ban: %d", status)
	}
	if status := s.do(t, "POST", "/api/v1/news/"+article.ID+"/comments", alice.Token, map[string]string{"text": "again"}, &e); status != 403 {
		t.Fatalf("expected banned user rejection, got %d %+v", status, e)
	}

	if status := s.do(t, "POST", "/api/v1/admin/notifications/"+reportID+"/delete-comment", admin.Token, nil, nil); status != 204 {
		t.Fatalf("delete comment: %d", status)
	}
	s.do(t, "GET", "/api/v1/news/"+article.ID+"/comments", "", nil, &thread)
	if thread.Total != 0 {
		t.Fatalf("expected comment and reply removed, got %d", thread.Total)
	}
	s.do(t, "GET", "/api/v1/admin/notifications", admin.Token, nil, &queue)
	if queue.Unread != 0 {
		t.Fatalf("expected resolved queue, got %d unread", queue.Unread)
	}
}

func TestAdminUsersAndAvatar(t *testing.T) {
	s := newTestServer(t)
	admin := s.register(t, "admin@firenews.com")

	var created struct {
		ID      string `json:"id"`
		Role    string `json:"role"`
		IsAdmin bool   `json:"isAdmin"`
	}
	if status := s.do(t, "POST", "/api/v1/admin/users", admin.Token, map[string]string{
		"email": "editor@example.com", "password": "secret123", "role": "Admin",
	}, &created); status != 201 || created.Role != "Admin" || !created.IsAdmin {
		t.Fatalf("create user: %d %+v", status, created)
	}

	if status := s.do(t, "PUT", "/api/v1/admin/users/"+created.ID, admin.Token, map[string]string{"role": "User"}, &created); status != 200 || created.Role != "User" || created.IsAdmin {
		t.Fatalf("demote: %d %+v", status, created)
	}

	var editor authResponse
	if status := s.do(t, "POST", "/api/v1/auth/login", "", map[string]string{
		"email": "editor@example.com", "password": "secret123",
	}, &editor); status != 200 || editor.Session.IsAdmin {
		t.Fatalf("login as demoted editor: %d %+v", status, editor.Session)
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", `form-data; name="file"; filename="me.jpg"`)
	hdr.Set("Content-Type", "image/jpeg")
	part, _ := w.CreatePart(hdr)
	part.Write([]byte("jpeg-bytes"))
	w.Close()

	req := httptest.NewRequest("POST", "/api/v1/me/avatar", &body)
	req.Header.Set(fiber.HeaderContentType, w.FormDataContentType())
	var me struct {
		PhotoURL string `json:"photoURL"`
	}
	if status := s.send(t, req, editor.Token, &me); status != 200 || !strings.HasPrefix(me.PhotoURL, "https://cdn.example.com/avatars/") {
		t.Fatalf("avatar upload: %d %+v", status, me)
	}

	if status := s.do(t, "DELETE", "/api/v1/admin/users/"+created.ID, admin.Token, nil, nil); status != 204 {
		t.Fatalf("delete: %d", status)
	}
	var e errorResponse
	if status := s.do(t, "GET", "/api/v1/me", editor.Token, nil, &e); status != 401 || e.Error != "account no longer exists" {
		t.Fatalf("expected deleted account to be signed out, got %d %+v", status, e)
	}
}

func TestWriteEvent(t *testing.T) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	if err := writeEvent(w, "snapshot", feed.ModerationSnapshot{Unread: 2}); err != nil {
		t.Fatalf("write event: %v", err)
	}
	if err := writeKeepAlive(w); err != nil {
		t.Fatalf("keep-alive: %v", err)
	}
	want := "event: snapshot\ndata: {\"notifications\":null,\"unread\":2}\n\n: keep-alive\n\n"
	if buf.String() != want {
		t.Fatalf("unexpected stream %q", buf.String())
	}
}
