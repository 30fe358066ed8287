package enums

import (
	"fmt"
	"strings"
)

// PostType distinguishes long-form blogs from questions.
type PostType string

const (
	PostTypeBlog PostType = "blog"
	PostTypeQnA  PostType = "qna"
)

var validPostTypes = []PostType{PostTypeBlog, PostTypeQnA}

// String implements fmt.Stringer.
func (p PostType) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PostType.
func (p PostType) IsValid() bool {
	for _, candidate := range validPostTypes {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePostType converts raw input into a PostType. Matching ignores case.
func ParsePostType(value string) (PostType, error) {
	normalized := PostType(strings.ToLower(strings.TrimSpace(value)))
	if normalized.IsValid() {
		return normalized, nil
	}
	return "", fmt.Errorf("invalid post type %q", value)
}
