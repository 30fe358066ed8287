package comments

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/angelmondragon/blogqna-backend/internal/notifications"
	"github.com/angelmondragon/blogqna-backend/internal/posts"
	"github.com/angelmondragon/blogqna-backend/internal/users"
	"github.com/angelmondragon/blogqna-backend/pkg/config"
	"github.com/angelmondragon/blogqna-backend/pkg/db/models"
	"github.com/angelmondragon/blogqna-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/blogqna-backend/pkg/errors"
	"github.com/google/uuid"
)

const (
	maxTextLength   = 5000
	defaultMaxDepth = 32
	defaultMaxNodes = 2000
)

// Service adds comments and replies and reads bounded comment threads.
type Service interface {
	Create(ctx context.Context, authorID string, input CreateInput) (*CreateResult, error)
	Thread(ctx context.Context, postID string) (*Thread, error)
}

type postFinder interface {
	FindByID(ctx context.Context, id string) (*models.Post, error)
}

type userDirectory interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByIDs(ctx context.Context, ids []string) ([]models.User, error)
}

type notifier interface {
	Deliver(ctx context.Context, n *models.Notification) error
}

type CreateInput struct {
	PostID          string
	ParentCommentID string
	Text            string
}

type CreateResult struct {
	Comment      *models.Comment       `json:"comment"`
	Notification notifications.Outcome `json:"notification"`
}

// Author is the public slice of a comment author.
type Author struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	ProfilePicture *string `json:"profilePicture,omitempty"`
}

// Node is one comment with its loaded replies.
type Node struct {
	ID              string    `json:"id"`
	PostID          string    `json:"postId"`
	ParentCommentID *string   `json:"parentCommentId,omitempty"`
	Author          Author    `json:"author"`
	Text            string    `json:"text"`
	CreatedAt       time.Time `json:"createdAt"`
	Replies         []*Node   `json:"replies"`
}

// Thread is the comment tree of a post. Truncated is set when the depth or
// node bound stopped the read before the whole tree was loaded.
type Thread struct {
	PostID    string  `json:"postId"`
	Comments  []*Node `json:"comments"`
	Count     int     `json:"count"`
	Truncated bool    `json:"truncated"`
}

type ServiceParams struct {
	Repo     Repository
	Posts    postFinder
	Users    userDirectory
	Notifier notifier
	Limits   config.ContentConfig
}

type service struct {
	repo     Repository
	posts    postFinder
	users    userDirectory
	notifier notifier
	maxDepth int
	maxNodes int
	now      func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repo == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "comments repository required")
	case params.Posts == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "posts repository required")
	case params.Users == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "users repository required")
	case params.Notifier == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notification dispatcher required")
	}
	svc := &service{
		repo:     params.Repo,
		posts:    params.Posts,
		users:    params.Users,
		notifier: params.Notifier,
		maxDepth: params.Limits.ThreadMaxDepth,
		maxNodes: params.Limits.ThreadMaxNodes,
		now:      time.Now,
	}
	if svc.maxDepth < 1 {
		svc.maxDepth = defaultMaxDepth
	}
	if svc.maxNodes < 1 {
		svc.maxNodes = defaultMaxNodes
	}
	return svc, nil
}

func (s *service) Create(ctx context.Context, authorID string, input CreateInput) (*CreateResult, error) {
	text := strings.TrimSpace(input.Text)
	if text == "" || len(text) > maxTextLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "text is required")
	}

	post, err := s.posts.FindByID(ctx, input.PostID)
	if err != nil {
		return nil, lookupError(err, pkgerrors.CodeNotFound, "post not found")
	}
	actor, err := s.users.FindByID(ctx, authorID)
	if err != nil {
		return nil, lookupError(err, pkgerrors.CodeUnauthorized, "user not found")
	}

	var parent *models.Comment
	if input.ParentCommentID != "" {
		parent, err = s.repo.FindByID(ctx, input.ParentCommentID)
		if err != nil {
			return nil, lookupError(err, pkgerrors.CodeNotFound, "parent comment not found")
		}
		if parent.PostID != post.ID {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "parent comment belongs to another post")
		}
	}

	comment := &models.Comment{
		ID:        uuid.NewString(),
		PostID:    post.ID,
		AuthorID:  actor.ID,
		Text:      text,
		CreatedAt: s.now().UTC().Truncate(time.Millisecond),
	}
	if parent != nil {
		comment.ParentCommentID = &parent.ID
	}
	if err := s.repo.Create(ctx, comment); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create comment")
	}

	return &CreateResult{Comment: comment, Notification: s.notify(ctx, actor, post, parent, comment)}, nil
}

// notify tells the parent comment's author about a reply, or the post author
// about a top-level comment.
func (s *service) notify(ctx context.Context, actor *models.User, post *models.Post, parent *models.Comment, comment *models.Comment) notifications.Outcome {
	kind := enums.NotificationKindComment
	target := post.AuthorID
	if parent != nil {
		kind = enums.NotificationKindCommentReply
		target = parent.AuthorID
	}
	if target == actor.ID {
		return notifications.Skipped("own content")
	}

	message, err := notifications.RenderMessage(kind, notifications.MessageParams{ActorName: actor.Name}, 0)
	if err != nil {
		return notifications.Skipped(err.Error())
	}
	commentID := comment.ID
	return notifications.DeliveryOutcome(s.notifier.Deliver(ctx, &models.Notification{
		TargetUserID:     target,
		Kind:             kind,
		Message:          message,
		RelatedPostID:    post.ID,
		RelatedCommentID: &commentID,
		ActorUserID:      actor.ID,
	}))
}

func (s *service) Thread(ctx context.Context, postID string) (*Thread, error) {
	if _, err := s.posts.FindByID(ctx, postID); err != nil {
		return nil, lookupError(err, pkgerrors.CodeNotFound, "post not found")
	}

	thread := &Thread{PostID: postID, Comments: []*Node{}}

	roots, err := s.repo.ListTopLevel(ctx, postID, s.maxNodes+1)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list comments")
	}
	if len(roots) > s.maxNodes {
		roots = roots[:s.maxNodes]
		thread.Truncated = true
	}

	byID := make(map[string]*Node, len(roots))
	level := make([]*Node, 0, len(roots))
	for _, c := range roots {
		n := newNode(c)
		byID[n.ID] = n
		level = append(level, n)
		thread.Comments = append(thread.Comments, n)
	}
	count := len(roots)

	for depth := 1; len(level) > 0; depth++ {
		ids := make([]string, len(level))
		for i, n := range level {
			ids[i] = n.ID
		}

		remaining := s.maxNodes - count
		if depth >= s.maxDepth || remaining <= 0 {
			more, err := s.repo.ListReplies(ctx, ids, 1)
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list replies")
			}
			if len(more) > 0 {
				thread.Truncated = true
			}
			break
		}

		replies, err := s.repo.ListReplies(ctx, ids, remaining+1)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list replies")
		}
		if len(replies) > remaining {
			replies = replies[:remaining]
			thread.Truncated = true
		}

		next := make([]*Node, 0, len(replies))
		for _, c := range replies {
			if c.ParentCommentID == nil {
				continue
			}
			parent, ok := byID[*c.ParentCommentID]
			if !ok {
				continue
			}
			n := newNode(c)
			byID[n.ID] = n
			parent.Replies = append(parent.Replies, n)
			next = append(next, n)
		}
		count += len(next)
		level = next
	}
	thread.Count = count

	if err := s.attachAuthors(ctx, byID); err != nil {
		return nil, err
	}
	return thread, nil
}

func (s *service) attachAuthors(ctx context.Context, nodes map[string]*Node) error {
	if len(nodes) == 0 {
		return nil
	}
	seen := make(map[string]struct{})
	ids := make([]string, 0)
	for _, n := range nodes {
		if _, ok := seen[n.Author.ID]; ok {
			continue
		}
		seen[n.Author.ID] = struct{}{}
		ids = append(ids, n.Author.ID)
	}
	authors, err := s.users.FindByIDs(ctx, ids)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load comment authors")
	}
	byID := make(map[string]models.User, len(authors))
	for _, u := range authors {
		byID[u.ID] = u
	}
	for _, n := range nodes {
		if u, ok := byID[n.Author.ID]; ok {
			n.Author.Name = u.Name
			n.Author.ProfilePicture = u.ProfilePicture
		}
	}
	return nil
}

func newNode(c models.Comment) *Node {
	return &Node{
		ID:              c.ID,
		PostID:          c.PostID,
		ParentCommentID: c.ParentCommentID,
		Author:          Author{ID: c.AuthorID},
		Text:            c.Text,
		CreatedAt:       c.CreatedAt,
		Replies:         []*Node{},
	}
}

func lookupError(err error, missing pkgerrors.Code, message string) error {
	if errors.Is(err, ErrNotFound) || errors.Is(err, posts.ErrNotFound) || errors.Is(err, users.ErrNotFound) {
		return pkgerrors.New(missing, message)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, message)
}
