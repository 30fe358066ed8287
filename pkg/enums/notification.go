package enums

import "fmt"

// NotificationKind identifies the event that produced a notification.
type NotificationKind string

const (
	NotificationKindLike         NotificationKind = "like"
	NotificationKindComment      NotificationKind = "comment"
	NotificationKindCommentReply NotificationKind = "comment_reply"
	NotificationKindNewPostBlog  NotificationKind = "new_post_blog"
	NotificationKindNewPostQnA   NotificationKind = "new_post_qna"
)

var validNotificationKinds = []NotificationKind{
	NotificationKindLike,
	NotificationKindComment,
	NotificationKindCommentReply,
	NotificationKindNewPostBlog,
	NotificationKindNewPostQnA,
}

// String implements fmt.Stringer.
func (n NotificationKind) String() string {
	return string(n)
}

// IsValid checks whether the given kind matches the canonical enum.
func (n NotificationKind) IsValid() bool {
	for _, candidate := range validNotificationKinds {
		if candidate == n {
			return true
		}
	}
	return false
}

// CarriesComment reports whether notifications of this kind reference a comment.
func (n NotificationKind) CarriesComment() bool {
	return n == NotificationKindComment || n == NotificationKindCommentReply
}

// NotificationKindForPost maps a post type to the broadcast kind announcing it.
func NotificationKindForPost(t PostType) (NotificationKind, error) {
	switch t {
	case PostTypeBlog:
		return NotificationKindNewPostBlog, nil
	case PostTypeQnA:
		return NotificationKindNewPostQnA, nil
	default:
		return "", fmt.Errorf("invalid post type %q", t)
	}
}

// ParseNotificationKind converts raw strings into NotificationKind.
func ParseNotificationKind(value string) (NotificationKind, error) {
	for _, candidate := range validNotificationKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification kind %q", value)
}
