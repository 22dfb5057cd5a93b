package sqlite

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/bilgisen/firenews/internal/models"
	"github.com/bilgisen/firenews/internal/storage"
)

func openTempStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), filepath.Join(t.TempDir(), "firenews.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	})
	return store
}

var base = time.Date(2026, 1, 23, 10, 0, 0, 0, time.UTC)

func seedArticle(t *testing.T, s *Store, id, title, category string, status models.ArticleStatus, date string) models.Article {
	t.Helper()
	a := models.Article{
		ID: id, Title: title, Content: "body of " + title, Category: category,
		Status: status, Date: date, CreatedAt: base, UpdatedAt: base,
	}
	if err := s.CreateArticle(context.Background(), a); err != nil {
		t.Fatalf("create article %s: %v", id, err)
	}
	return a
}

func seedUser(t *testing.T, s *Store, id string, at time.Time) models.User {
	t.Helper()
	u := models.User{ID: id, Email: id + "@example.com", DisplayName: id, CreatedAt: at}
	u.SetRole(models.RoleUser)
	if err := s.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("create user %s: %v", id, err)
	}
	return u
}

func TestOpenIsIdempotent(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "firenews.db")
	for i := 0; i < 2; i++ {
		store, err := Open(context.Background(), path)
		if err != nil {
			t.Fatalf("open #%d: %v", i, err)
		}
		if err := store.Close(); err != nil {
			t.Fatalf("close #%d: %v", i, err)
		}
	}
	if _, err := Open(context.Background(), " "); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestListArticlesFiltersAndOrders(t *testing.T) {
	t.Parallel()
	s := openTempStore(t)
	ctx := context.Background()

	seedArticle(t, s, "a1", "Old Election Results", "Politics", models.StatusPublished, "2026-01-01")
	seedArticle(t, s, "a2", "New Stadium", "Sports", models.StatusPublished, "2026-01-05")
	seedArticle(t, s, "a3", "Secret Draft", "Politics", models.StatusDraft, "2026-01-09")
	seedArticle(t, s, "a4", "ÇAĞ election", "Politics", models.StatusPublished, "2026-01-03")

	published, err := s.ListArticles(ctx, storage.ArticleFilter{Status: models.StatusPublished})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	gotIDs := ids(published)
	if want := []string{"a2", "a4", "a1"}; fmt.Sprint(gotIDs) != fmt.Sprint(want) {
		t.Fatalf("expected %v, got %v", want, gotIDs)
	}

	politics, err := s.ListArticles(ctx, storage.ArticleFilter{Status: models.StatusPublished, Category: "Politics"})
	if err != nil {
		t.Fatalf("list politics: %v", err)
	}
	if fmt.Sprint(ids(politics)) != "[a4 a1]" {
		t.Fatalf("unexpected politics list %v", ids(politics))
	}

	search, err := s.ListArticles(ctx, storage.ArticleFilter{Status: models.StatusPublished, Query: "ELECTION"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if fmt.Sprint(ids(search)) != "[a4 a1]" {
		t.Fatalf("unexpected search result %v", ids(search))
	}

	all, err := s.CountArticles(ctx, "")
	if err != nil || all != 4 {
		t.Fatalf("expected 4 articles, got %d (%v)", all, err)
	}
	n, err := s.CountArticles(ctx, "Politics")
	if err != nil || n != 3 {
		t.Fatalf("expected 3 politics articles, got %d (%v)", n, err)
	}
}

func ids(articles []models.Article) []string {
	out := make([]string, 0, len(articles))
	for _, a := range articles {
		out = append(out, a.ID)
	}
	return out
}

func TestUpdateArticleKeepsCounters(t *testing.T) {
	t.Parallel()
	s := openTempStore(t)
	ctx := context.Background()

	a := seedArticle(t, s, "a1", "Title", "Tech", models.StatusDraft, "2026-01-01")
	if err := s.SetCommentsCount(ctx, "a1", 7); err != nil {
		t.Fatalf("set comments count: %v", err)
	}

	a.Title = "Renamed"
	a.Status = models.StatusPublished
	a.CommentsCount = 0
	if err := s.UpdateArticle(ctx, a); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := s.GetArticle(ctx, "a1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "Renamed" || got.Status != models.StatusPublished || got.CommentsCount != 7 {
		t.Fatalf("unexpected article %+v", got)
	}

	if err := s.UpdateArticle(ctx, models.Article{ID: "missing"}); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := s.DeleteArticle(ctx, "a1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetArticle(ctx, "a1"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestLikeArticle(t *testing.T) {
	t.Parallel()
	s := openTempStore(t)
	ctx := context.Background()

	seedArticle(t, s, "a1", "Title", "Tech", models.StatusPublished, "2026-01-01")
	seedUser(t, s, "u1", base)

	likes, err := s.LikeArticle(ctx, "u1", "a1")
	if err != nil {
		t.Fatalf("like: %v", err)
	}
	if likes != 1 {
		t.Fatalf("expected 1 like, got %d", likes)
	}

	if _, err := s.LikeArticle(ctx, "u1", "a1"); !errors.Is(err, storage.ErrAlreadyLiked) {
		t.Fatalf("expected already liked, got %v", err)
	}
	got, _ := s.GetArticle(ctx, "a1")
	if got.Likes != 1 {
		t.Fatalf("repeated like must not count, got %d", got.Likes)
	}
	u, _ := s.GetUser(ctx, "u1")
	if !u.HasLiked("a1") || len(u.LikedArticles) != 1 {
		t.Fatalf("unexpected liked set %v", u.LikedArticles)
	}

	if _, err := s.LikeArticle(ctx, "u1", "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected not found for missing article, got %v", err)
	}
	if _, err := s.LikeArticle(ctx, "ghost", "a1"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected not found for missing user, got %v", err)
	}
}

func TestConcurrentLikesCountExactly(t *testing.T) {
	t.Parallel()
	s := openTempStore(t)
	ctx := context.Background()

	seedArticle(t, s, "a1", "Title", "Tech", models.StatusPublished, "2026-01-01")
	const likers = 12
	for i := 0; i < likers; i++ {
		seedUser(t, s, fmt.Sprintf("u%d", i), base)
	}

	var wg sync.WaitGroup
	errs := make(chan error, likers*2)
	for i := 0; i < likers; i++ {
		for j := 0; j < 2; j++ {
			wg.Add(1)
			go func(uid string) {
				defer wg.Done()
				if _, err := s.LikeArticle(ctx, uid, "a1"); err != nil && !errors.Is(err, storage.ErrAlreadyLiked) {
					errs <- err
				}
			}(fmt.Sprintf("u%d", i))
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("like: %v", err)
	}

	got, _ := s.GetArticle(ctx, "a1")
	if got.Likes != likers {
		t.Fatalf("expected %d likes, got %d", likers, got.Likes)
	}
}

func TestUpdateUserRoleRewritesLegacyFlag(t *testing.T) {
	t.Parallel()
	s := openTempStore(t)
	ctx := context.Background()

	seedUser(t, s, "u1", base)
	admin := models.RoleAdmin
	name := "Ada"
	now := base.Add(time.Hour)
	if err := s.UpdateUser(ctx, "u1", storage.UserUpdate{Role: &admin, DisplayName: &name, LastLogin: &now}); err != nil {
		t.Fatalf("update: %v", err)
	}
	u, err := s.GetUser(ctx, "u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if u.Role != models.RoleAdmin || !u.IsAdmin || u.DisplayName != "Ada" {
		t.Fatalf("unexpected user %+v", u)
	}
	if u.LastLogin == nil || !u.LastLogin.Equal(now) {
		t.Fatalf("unexpected last login %v", u.LastLogin)
	}

	if err := s.UpdateUser(ctx, "ghost", storage.UserUpdate{DisplayName: &name}); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := s.UpdateUser(ctx, "ghost", storage.UserUpdate{}); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected not found for empty update, got %v", err)
	}
}

func TestListUsersSearch(t *testing.T) {
	t.Parallel()
	s := openTempStore(t)
	ctx := context.Background()

	seedUser(t, s, "alice", base)
	seedUser(t, s, "bob", base.Add(time.Minute))

	all, err := s.ListUsers(ctx, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 || all[0].ID != "bob" {
		t.Fatalf("expected newest first, got %+v", all)
	}

	found, err := s.ListUsers(ctx, "ALI")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(found) != 1 || found[0].ID != "alice" {
		t.Fatalf("unexpected search result %+v", found)
	}
	if n, _ := s.CountUsers(ctx); n != 2 {
		t.Fatalf("expected 2 users, got %d", n)
	}
}

func TestCredentials(t *testing.T) {
	t.Parallel()
	s := openTempStore(t)
	ctx := context.Background()

	c := models.Credential{UID: "u1", Email: "Ada@Example.com", PasswordHash: "h", Provider: models.ProviderPassword, CreatedAt: base, UpdatedAt: base}
	if err := s.CreateCredential(ctx, c); err != nil {
		t.Fatalf("create: %v", err)
	}
	dup := c
	dup.UID = "u2"
	if err := s.CreateCredential(ctx, dup); !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	got, err := s.GetCredentialByEmail(ctx, "ada@example.com")
	if err != nil || got.UID != "u1" {
		t.Fatalf("lookup by email: %+v %v", got, err)
	}

	gh := models.Credential{UID: "u3", Email: "gh@example.com", Provider: models.ProviderGitHub, Subject: "42", CreatedAt: base, UpdatedAt: base}
	if err := s.CreateCredential(ctx, gh); err != nil {
		t.Fatalf("create federated: %v", err)
	}
	if got, err := s.GetCredentialBySubject(ctx, models.ProviderGitHub, "42"); err != nil || got.UID != "u3" {
		t.Fatalf("lookup by subject: %+v %v", got, err)
	}

	if err := s.UpdatePasswordHash(ctx, "u1", "h2", base.Add(time.Hour)); err != nil {
		t.Fatalf("update password: %v", err)
	}
	if got, _ := s.GetCredential(ctx, "u1"); got.PasswordHash != "h2" {
		t.Fatalf("expected new hash, got %q", got.PasswordHash)
	}
	if err := s.DeleteCredential(ctx, "u1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetCredential(ctx, "u1"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func seedComment(t *testing.T, s *Store, id, newsID, parentID string, at time.Time) {
	t.Helper()
	c := models.Comment{
		ID: id, Text: "text " + id, NewsID: newsID, UserID: "u1",
		IsReply: parentID != "", ParentID: parentID, CreatedAt: at,
	}
	if err := s.CreateComment(context.Background(), c); err != nil {
		t.Fatalf("create comment %s: %v", id, err)
	}
}

func TestCommentOrdering(t *testing.T) {
	t.Parallel()
	s := openTempStore(t)
	ctx := context.Background()

	seedComment(t, s, "c1", "a1", "", base)
	seedComment(t, s, "c2", "a1", "", base.Add(time.Minute))
	seedComment(t, s, "r2", "a1", "c1", base.Add(3*time.Minute))
	seedComment(t, s, "r1", "a1", "c1", base.Add(2*time.Minute))
	seedComment(t, s, "x1", "a2", "", base)

	top, err := s.ListTopLevelComments(ctx, "a1")
	if err != nil {
		t.Fatalf("top level: %v", err)
	}
	if len(top) != 2 || top[0].ID != "c2" || top[1].ID != "c1" {
		t.Fatalf("expected newest first, got %+v", top)
	}
	replies, err := s.ListReplies(ctx, "c1")
	if err != nil {
		t.Fatalf("replies: %v", err)
	}
	if len(replies) != 2 || replies[0].ID != "r1" || replies[1].ID != "r2" {
		t.Fatalf("expected oldest first, got %+v", replies)
	}
	if replies[0].Reactions == nil {
		t.Fatal("expected empty reactions slice")
	}
}

func TestReportCommentIsAtomic(t *testing.T) {
	t.Parallel()
	s := openTempStore(t)
	ctx := context.Background()

	seedComment(t, s, "c1", "a1", "", base)
	n := models.Notification{ID: "n1", Type: models.NotificationCommentReport, CommentID: "c1", UserID: "u1", ActorID: "u2", NewsID: "a1", CreatedAt: base}
	if err := s.ReportComment(ctx, "c1", "u2", base, n); err != nil {
		t.Fatalf("report: %v", err)
	}
	c, _ := s.GetComment(ctx, "c1")
	if !c.IsReported || c.ReportedBy != "u2" || c.ReportedAt == nil {
		t.Fatalf("unexpected comment %+v", c)
	}

	missing := n
	missing.ID = "n2"
	if err := s.ReportComment(ctx, "ghost", "u2", base, missing); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	list, _ := s.ListNotifications(ctx)
	if len(list) != 1 {
		t.Fatalf("failed report must not leave a notification, got %d", len(list))
	}
}

func TestBlockUserKeepsSetSemantics(t *testing.T) {
	t.Parallel()
	s := openTempStore(t)
	ctx := context.Background()

	seedUser(t, s, "u1", base)
	for i := 0; i < 2; i++ {
		n := models.Notification{ID: fmt.Sprintf("n%d", i), Type: models.NotificationUserBlocked, UserID: "u2", ActorID: "u1", CreatedAt: base.Add(time.Duration(i) * time.Second)}
		if err := s.BlockUser(ctx, "u1", "u2", n); err != nil {
			t.Fatalf("block #%d: %v", i, err)
		}
	}
	u, _ := s.GetUser(ctx, "u1")
	if len(u.BlockedUsers) != 1 || u.BlockedUsers[0] != "u2" {
		t.Fatalf("unexpected blocked set %v", u.BlockedUsers)
	}
	list, _ := s.ListNotifications(ctx)
	if len(list) != 2 || list[0].ID != "n1" {
		t.Fatalf("expected two notifications newest first, got %+v", list)
	}
}

func TestDeleteCommentAndResolve(t *testing.T) {
	t.Parallel()
	s := openTempStore(t)
	ctx := context.Background()

	seedComment(t, s, "c1", "a1", "", base)
	seedComment(t, s, "r1", "a1", "c1", base.Add(time.Minute))
	seedComment(t, s, "c2", "a1", "", base)
	n := models.Notification{ID: "n1", Type: models.NotificationCommentReport, CommentID: "c1", UserID: "u1", ActorID: "u2", NewsID: "a1", CreatedAt: base}
	if err := s.ReportComment(ctx, "c1", "u2", base, n); err != nil {
		t.Fatalf("report: %v", err)
	}

	newsID, err := s.DeleteCommentAndResolve(ctx, "n1")
	if err != nil {
		t.Fatalf("delete and resolve: %v", err)
	}
	if newsID != "a1" {
		t.Fatalf("expected article a1, got %q", newsID)
	}
	if _, err := s.GetComment(ctx, "c1"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected comment gone, got %v", err)
	}
	if _, err := s.GetComment(ctx, "r1"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected reply gone, got %v", err)
	}
	if _, err := s.GetComment(ctx, "c2"); err != nil {
		t.Fatalf("sibling comment must survive: %v", err)
	}
	got, _ := s.GetNotification(ctx, "n1")
	if !got.Read {
		t.Fatal("expected notification marked read")
	}

	// The comment is already gone; resolving again still succeeds.
	if _, err := s.DeleteCommentAndResolve(ctx, "n1"); err != nil {
		t.Fatalf("repeat delete: %v", err)
	}
	if _, err := s.DeleteCommentAndResolve(ctx, "ghost"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestBanUserAndResolve(t *testing.T) {
	t.Parallel()
	s := openTempStore(t)
	ctx := context.Background()

	seedUser(t, s, "u1", base)
	seedComment(t, s, "c1", "a1", "", base)
	n := models.Notification{ID: "n1", Type: models.NotificationCommentReport, CommentID: "c1", UserID: "u1", ActorID: "u2", CreatedAt: base}
	if err := s.ReportComment(ctx, "c1", "u2", base, n); err != nil {
		t.Fatalf("report: %v", err)
	}

	if err := s.BanUserAndResolve(ctx, "n1", base.Add(time.Hour)); err != nil {
		t.Fatalf("ban: %v", err)
	}
	u, _ := s.GetUser(ctx, "u1")
	if !u.IsBanned || u.BannedAt == nil {
		t.Fatalf("expected banned user, got %+v", u)
	}
	got, _ := s.GetNotification(ctx, "n1")
	if !got.Read {
		t.Fatal("expected notification read")
	}

	orphan := models.Notification{ID: "n2", Type: models.NotificationUserBlocked, UserID: "ghost", ActorID: "u1", CreatedAt: base}
	if err := s.BlockUser(ctx, "u1", "ghost", orphan); err != nil {
		t.Fatalf("block: %v", err)
	}
	if err := s.BanUserAndResolve(ctx, "n2", base); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected not found for missing user, got %v", err)
	}
	if got, _ := s.GetNotification(ctx, "n2"); got.Read {
		t.Fatal("failed ban must not resolve the notification")
	}
}

func TestCategories(t *testing.T) {
	t.Parallel()
	s := openTempStore(t)
	ctx := context.Background()

	for i, name := range []string{"Tech", "Sports"} {
		c := models.Category{ID: fmt.Sprintf("c%d", i), Name: name, Slug: name, CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		if err := s.CreateCategory(ctx, c); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	list, err := s.ListCategories(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].Name != "Sports" {
		t.Fatalf("expected newest first, got %+v", list)
	}
	if err := s.UpdateCategory(ctx, models.Category{ID: "c0", Name: "Science", Slug: "science"}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if c, _ := s.GetCategory(ctx, "c0"); c.Name != "Science" {
		t.Fatalf("unexpected category %+v", c)
	}
	if err := s.DeleteCategory(ctx, "c1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if n, _ := s.CountCategories(ctx); n != 1 {
		t.Fatalf("expected 1 category, got %d", n)
	}
}
