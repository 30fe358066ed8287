package comments

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/angelmondragon/blogqna-backend/internal/notifications"
	"github.com/angelmondragon/blogqna-backend/internal/posts"
	"github.com/angelmondragon/blogqna-backend/internal/users"
	"github.com/angelmondragon/blogqna-backend/pkg/config"
	"github.com/angelmondragon/blogqna-backend/pkg/db/models"
	"github.com/angelmondragon/blogqna-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/blogqna-backend/pkg/errors"
)

type memRepo struct {
	comments []models.Comment
	calls    int
}

func (m *memRepo) Create(ctx context.Context, c *models.Comment) error {
	m.comments = append(m.comments, *c)
	return nil
}

func (m *memRepo) FindByID(ctx context.Context, id string) (*models.Comment, error) {
	for i := range m.comments {
		if m.comments[i].ID == id {
			c := m.comments[i]
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memRepo) ListTopLevel(ctx context.Context, postID string, limit int) ([]models.Comment, error) {
	m.calls++
	var out []models.Comment
	for _, c := range m.comments {
		if c.PostID == postID && c.ParentCommentID == nil {
			out = append(out, c)
		}
	}
	return capRows(out, limit), nil
}

func (m *memRepo) ListReplies(ctx context.Context, parentIDs []string, limit int) ([]models.Comment, error) {
	m.calls++
	parents := map[string]bool{}
	for _, id := range parentIDs {
		parents[id] = true
	}
	var out []models.Comment
	for _, c := range m.comments {
		if c.ParentCommentID != nil && parents[*c.ParentCommentID] {
			out = append(out, c)
		}
	}
	return capRows(out, limit), nil
}

func capRows(rows []models.Comment, limit int) []models.Comment {
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].CreatedAt.Before(rows[j].CreatedAt) })
	if len(rows) > limit {
		return rows[:limit]
	}
	return rows
}

type memPosts map[string]*models.Post

func (m memPosts) FindByID(ctx context.Context, id string) (*models.Post, error) {
	if p, ok := m[id]; ok {
		return p, nil
	}
	return nil, posts.ErrNotFound
}

type memUsers map[string]*models.User

func (m memUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m[id]; ok {
		return u, nil
	}
	return nil, users.ErrNotFound
}

func (m memUsers) FindByIDs(ctx context.Context, ids []string) ([]models.User, error) {
	var out []models.User
	for _, id := range ids {
		if u, ok := m[id]; ok {
			out = append(out, *u)
		}
	}
	return out, nil
}

type captureNotifier struct {
	sent []models.Notification
	err  error
}

func (c *captureNotifier) Deliver(ctx context.Context, n *models.Notification) error {
	c.sent = append(c.sent, *n)
	return c.err
}

type fixture struct {
	repo     *memRepo
	notifier *captureNotifier
	svc      Service
}

func newFixture(t *testing.T, limits config.ContentConfig) *fixture {
	t.Helper()
	f := &fixture{repo: &memRepo{}, notifier: &captureNotifier{}}
	svc, err := NewService(ServiceParams{
		Repo:     f.repo,
		Posts:    memPosts{"p1": {ID: "p1", AuthorID: "ada"}, "p2": {ID: "p2", AuthorID: "bo"}},
		Users:    memUsers{"ada": {ID: "ada", Name: "Ada"}, "bo": {ID: "bo", Name: "Bo"}, "cy": {ID: "cy", Name: "Cy"}},
		Notifier: f.notifier,
		Limits:   limits,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	f.svc = svc
	return f
}

func TestCreateTopLevelNotifiesPostAuthor(t *testing.T) {
	f := newFixture(t, config.ContentConfig{})

	res, err := f.svc.Create(context.Background(), "bo", CreateInput{PostID: "p1", Text: " nice post "})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if res.Comment.Text != "nice post" || res.Comment.ParentCommentID != nil {
		t.Fatalf("unexpected comment %+v", res.Comment)
	}
	if len(f.notifier.sent) != 1 {
		t.Fatalf("expected one notification, got %d", len(f.notifier.sent))
	}
	n := f.notifier.sent[0]
	if n.TargetUserID != "ada" || n.Kind != enums.NotificationKindComment || n.Message != "Bo commented on your post." {
		t.Fatalf("unexpected notification %+v", n)
	}
	if n.RelatedCommentID == nil || *n.RelatedCommentID != res.Comment.ID || n.RelatedPostID != "p1" {
		t.Fatalf("notification must reference the new comment: %+v", n)
	}
}

func TestCreateReplyNotifiesParentAuthor(t *testing.T) {
	f := newFixture(t, config.ContentConfig{})
	parent, err := f.svc.Create(context.Background(), "cy", CreateInput{PostID: "p1", Text: "question"})
	if err != nil {
		t.Fatalf("create parent: %v", err)
	}

	res, err := f.svc.Create(context.Background(), "bo", CreateInput{PostID: "p1", ParentCommentID: parent.Comment.ID, Text: "answer"})
	if err != nil {
		t.Fatalf("create reply: %v", err)
	}
	if res.Comment.ParentCommentID == nil || *res.Comment.ParentCommentID != parent.Comment.ID {
		t.Fatalf("reply must point at its parent: %+v", res.Comment)
	}
	last := f.notifier.sent[len(f.notifier.sent)-1]
	if last.TargetUserID != "cy" || last.Kind != enums.NotificationKindCommentReply || last.Message != "Bo replied to your comment." {
		t.Fatalf("unexpected reply notification %+v", last)
	}
}

func TestCreateSkipsSelfNotification(t *testing.T) {
	f := newFixture(t, config.ContentConfig{})
	res, err := f.svc.Create(context.Background(), "ada", CreateInput{PostID: "p1", Text: "thanks all"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if res.Notification.Status != notifications.OutcomeSkipped || len(f.notifier.sent) != 0 {
		t.Fatalf("author commenting on own post must not notify: %+v", res.Notification)
	}
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t, config.ContentConfig{})
	ctx := context.Background()

	if _, err := f.svc.Create(ctx, "bo", CreateInput{PostID: "p1", Text: "  "}); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := f.svc.Create(ctx, "bo", CreateInput{PostID: "nope", Text: "x"}); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found for missing post, got %v", err)
	}
	if _, err := f.svc.Create(ctx, "bo", CreateInput{PostID: "p1", ParentCommentID: "nope", Text: "x"}); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found for missing parent, got %v", err)
	}

	other, err := f.svc.Create(ctx, "ada", CreateInput{PostID: "p2", Text: "elsewhere"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.svc.Create(ctx, "bo", CreateInput{PostID: "p1", ParentCommentID: other.Comment.ID, Text: "x"}); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for cross-post reply, got %v", err)
	}
}

// seedChain stores a single reply chain of the given depth on p1.
func seedChain(repo *memRepo, depth int) {
	base := time.Now().Add(-time.Hour)
	var parent *string
	for i := 0; i < depth; i++ {
		id := fmt.Sprintf("c%03d", i)
		repo.comments = append(repo.comments, models.Comment{
			ID:              id,
			PostID:          "p1",
			ParentCommentID: parent,
			AuthorID:        "bo",
			Text:            id,
			CreatedAt:       base.Add(time.Duration(i) * time.Second),
		})
		idCopy := id
		parent = &idCopy
	}
}

func chainDepth(nodes []*Node) int {
	depth := 0
	for len(nodes) > 0 {
		depth++
		nodes = nodes[0].Replies
	}
	return depth
}

func TestThreadBuildsNestedReplies(t *testing.T) {
	f := newFixture(t, config.ContentConfig{})
	seedChain(f.repo, 4)

	thread, err := f.svc.Thread(context.Background(), "p1")
	if err != nil {
		t.Fatalf("thread: %v", err)
	}
	if thread.Truncated || thread.Count != 4 || chainDepth(thread.Comments) != 4 {
		t.Fatalf("unexpected thread count=%d truncated=%v depth=%d", thread.Count, thread.Truncated, chainDepth(thread.Comments))
	}
	if thread.Comments[0].Author.Name != "Bo" {
		t.Fatalf("expected author name to be attached, got %+v", thread.Comments[0].Author)
	}
}

func TestThreadStopsAtDepthBound(t *testing.T) {
	f := newFixture(t, config.ContentConfig{ThreadMaxDepth: 3, ThreadMaxNodes: 100})
	seedChain(f.repo, 500)

	thread, err := f.svc.Thread(context.Background(), "p1")
	if err != nil {
		t.Fatalf("thread: %v", err)
	}
	if !thread.Truncated || chainDepth(thread.Comments) != 3 || thread.Count != 3 {
		t.Fatalf("expected truncation at depth 3, got count=%d depth=%d truncated=%v", thread.Count, chainDepth(thread.Comments), thread.Truncated)
	}
	if f.repo.calls > 4 {
		t.Fatalf("expected one query per level, got %d", f.repo.calls)
	}
}

func TestThreadStopsAtNodeBound(t *testing.T) {
	f := newFixture(t, config.ContentConfig{ThreadMaxDepth: 10, ThreadMaxNodes: 5})
	base := time.Now().Add(-time.Hour)
	for i := 0; i < 8; i++ {
		f.repo.comments = append(f.repo.comments, models.Comment{
			ID: fmt.Sprintf("top-%d", i), PostID: "p1", AuthorID: "cy", Text: "x", CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
	}

	thread, err := f.svc.Thread(context.Background(), "p1")
	if err != nil {
		t.Fatalf("thread: %v", err)
	}
	if !thread.Truncated || len(thread.Comments) != 5 || thread.Count != 5 {
		t.Fatalf("expected 5 comments and truncation, got %d truncated=%v", len(thread.Comments), thread.Truncated)
	}
}

func TestThreadExactlyAtBoundsIsNotTruncated(t *testing.T) {
	f := newFixture(t, config.ContentConfig{ThreadMaxDepth: 3, ThreadMaxNodes: 3})
	seedChain(f.repo, 3)

	thread, err := f.svc.Thread(context.Background(), "p1")
	if err != nil {
		t.Fatalf("thread: %v", err)
	}
	if thread.Truncated || thread.Count != 3 {
		t.Fatalf("full tree within bounds must not be truncated: count=%d truncated=%v", thread.Count, thread.Truncated)
	}
}

func TestThreadMissingPost(t *testing.T) {
	f := newFixture(t, config.ContentConfig{})
	if _, err := f.svc.Thread(context.Background(), "nope"); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
