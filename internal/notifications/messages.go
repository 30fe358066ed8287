package notifications

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/angelmondragon/blogqna-backend/pkg/enums"
)

// MessageParams carries the values a notification message is rendered from.
type MessageParams struct {
	ActorName   string
	PostTitle   string
	PostContent string
}

// RenderMessage builds the text stored on a notification. The result is a
// snapshot; later edits to the actor or post do not change it.
func RenderMessage(kind enums.NotificationKind, p MessageParams, snippetLen int) (string, error) {
	switch kind {
	case enums.NotificationKindLike:
		return fmt.Sprintf("%s liked your post.", p.ActorName), nil
	case enums.NotificationKindComment:
		return fmt.Sprintf("%s commented on your post.", p.ActorName), nil
	case enums.NotificationKindCommentReply:
		return fmt.Sprintf("%s replied to your comment.", p.ActorName), nil
	case enums.NotificationKindNewPostBlog:
		return fmt.Sprintf("New blog by %s : %s, check it out !", p.ActorName, p.PostTitle), nil
	case enums.NotificationKindNewPostQnA:
		return fmt.Sprintf("%s has asked for help with: \"%s\". Please contribute your insights if you can.",
			p.ActorName, Snippet(p.PostContent, snippetLen)), nil
	default:
		return "", fmt.Errorf("no message template for kind %q", kind)
	}
}

// Snippet trims s to at most n runes, marking the cut with an ellipsis.
// n <= 0 keeps the full text.
func Snippet(s string, n int) string {
	s = strings.TrimSpace(s)
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:n])) + "…"
}
