package posts

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/angelmondragon/blogqna-backend/internal/notifications"
	"github.com/angelmondragon/blogqna-backend/internal/users"
	"github.com/angelmondragon/blogqna-backend/pkg/db/models"
	"github.com/angelmondragon/blogqna-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/blogqna-backend/pkg/errors"
	"github.com/angelmondragon/blogqna-backend/pkg/logger"
	"github.com/angelmondragon/blogqna-backend/pkg/pagination"
	"github.com/google/uuid"
)

const (
	maxTitleLength   = 200
	maxContentLength = 20000
)

// Service creates posts and toggles likes, notifying the affected users.
type Service interface {
	Create(ctx context.Context, authorID string, input CreateInput) (*CreateResult, error)
	Get(ctx context.Context, postID string) (*models.Post, error)
	ToggleLike(ctx context.Context, postID, userID string) (*LikeResult, error)
	List(ctx context.Context, params ListParams) (*pagination.Page[models.Post], error)
}

type userDirectory interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	ListIDs(ctx context.Context) ([]string, error)
}

type notifier interface {
	Deliver(ctx context.Context, n *models.Notification) error
	Broadcast(ctx context.Context, template models.Notification, recipients []string) (notifications.BroadcastResult, error)
}

// CreateInput is a new post as submitted by its author.
type CreateInput struct {
	Type    string
	Title   string
	Content string
}

type CreateResult struct {
	Post         *models.Post          `json:"post"`
	Notification notifications.Outcome `json:"notification"`
}

// ListParams pages through the feed. Type is empty for every post type.
type ListParams struct {
	Type   string
	Limit  int
	Cursor string
}

type LikeResult struct {
	PostID       string                `json:"postId"`
	Liked        bool                  `json:"liked"`
	Notification notifications.Outcome `json:"notification"`
}

// ServiceParams bundles the dependencies required to build a posts service.
type ServiceParams struct {
	Repo          Repository
	Users         userDirectory
	Notifier      notifier
	SnippetLength int
	Logger        *logger.Logger
}

type service struct {
	repo          Repository
	users         userDirectory
	notifier      notifier
	snippetLength int
	logg          *logger.Logger
	now           func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "posts repository required")
	}
	if params.Users == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "users repository required")
	}
	if params.Notifier == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notification dispatcher required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		repo:          params.Repo,
		users:         params.Users,
		notifier:      params.Notifier,
		snippetLength: params.SnippetLength,
		logg:          logg,
		now:           time.Now,
	}, nil
}

func (s *service) Create(ctx context.Context, authorID string, input CreateInput) (*CreateResult, error) {
	postType, err := enums.ParsePostType(input.Type)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "type must be blog or qna")
	}
	title := strings.TrimSpace(input.Title)
	content := strings.TrimSpace(input.Content)
	if title == "" || len(title) > maxTitleLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title is required and must be at most 200 characters")
	}
	if content == "" || len(content) > maxContentLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "content is required")
	}

	author, err := s.users.FindByID(ctx, authorID)
	if err != nil {
		return nil, lookupError(err, pkgerrors.CodeUnauthorized, "user not found")
	}

	post := &models.Post{
		ID:        uuid.NewString(),
		Type:      postType,
		Title:     title,
		Content:   content,
		AuthorID:  author.ID,
		Likes:     []string{},
		CreatedAt: s.now().UTC().Truncate(time.Millisecond),
	}
	if err := s.repo.Create(ctx, post); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create post")
	}

	return &CreateResult{Post: post, Notification: s.announce(ctx, author, post)}, nil
}

// announce tells every other user about a new post. The post is already
// committed, so the fan-out does not stop when the caller goes away.
func (s *service) announce(ctx context.Context, author *models.User, post *models.Post) notifications.Outcome {
	ctx = context.WithoutCancel(ctx)
	kind, err := enums.NotificationKindForPost(post.Type)
	if err != nil {
		return notifications.Skipped(err.Error())
	}
	message, err := notifications.RenderMessage(kind, notifications.MessageParams{
		ActorName:   author.Name,
		PostTitle:   post.Title,
		PostContent: post.Content,
	}, s.snippetLength)
	if err != nil {
		return notifications.Skipped(err.Error())
	}

	ids, err := s.users.ListIDs(ctx)
	if err != nil {
		s.logg.Error(s.logg.WithField(ctx, "post_id", post.ID), "post.broadcast.recipients_failed", err)
		return notifications.Outcome{Status: notifications.OutcomeFailed, Reason: "recipients unavailable"}
	}
	recipients := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != author.ID {
			recipients = append(recipients, id)
		}
	}

	template := models.Notification{
		Kind:          kind,
		Message:       message,
		RelatedPostID: post.ID,
		ActorUserID:   author.ID,
	}
	return notifications.BroadcastOutcome(s.notifier.Broadcast(ctx, template, recipients))
}

func (s *service) Get(ctx context.Context, postID string) (*models.Post, error) {
	if strings.TrimSpace(postID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "post id required")
	}
	post, err := s.repo.FindByID(ctx, postID)
	if err != nil {
		return nil, lookupError(err, pkgerrors.CodeNotFound, "post not found")
	}
	return post, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*pagination.Page[models.Post], error) {
	query := FeedQuery{Limit: params.Limit}
	if strings.TrimSpace(params.Type) != "" {
		postType, err := enums.ParsePostType(params.Type)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "type must be blog or qna")
		}
		query.Type = &postType
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list posts")
	}
	page := pagination.Trim(rows, params.Limit, func(p models.Post) pagination.Cursor {
		return pagination.Cursor{CreatedAt: p.CreatedAt, ID: p.ID}
	})
	return &page, nil
}

func (s *service) ToggleLike(ctx context.Context, postID, userID string) (*LikeResult, error) {
	post, err := s.Get(ctx, postID)
	if err != nil {
		return nil, err
	}
	actor, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, lookupError(err, pkgerrors.CodeUnauthorized, "user not found")
	}

	liked, err := s.repo.ToggleLike(ctx, post.ID, actor.ID)
	if err != nil {
		return nil, lookupError(err, pkgerrors.CodeNotFound, "post not found")
	}

	result := &LikeResult{PostID: post.ID, Liked: liked}
	switch {
	case !liked:
		result.Notification = notifications.Skipped("like removed")
	case actor.ID == post.AuthorID:
		result.Notification = notifications.Skipped("own post")
	default:
		message, _ := notifications.RenderMessage(enums.NotificationKindLike, notifications.MessageParams{ActorName: actor.Name}, s.snippetLength)
		result.Notification = notifications.DeliveryOutcome(s.notifier.Deliver(ctx, &models.Notification{
			TargetUserID:  post.AuthorID,
			Kind:          enums.NotificationKindLike,
			Message:       message,
			RelatedPostID: post.ID,
			ActorUserID:   actor.ID,
		}))
	}
	return result, nil
}

func lookupError(err error, missing pkgerrors.Code, message string) error {
	if errors.Is(err, ErrNotFound) || errors.Is(err, users.ErrNotFound) {
		return pkgerrors.New(missing, message)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, message)
}
