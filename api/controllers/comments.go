package controllers

import (
	"net/http"

	"github.com/angelmondragon/blogqna-backend/api/responses"
	"github.com/angelmondragon/blogqna-backend/api/validators"
	"github.com/angelmondragon/blogqna-backend/internal/comments"
	pkgerrors "github.com/angelmondragon/blogqna-backend/pkg/errors"
	"github.com/angelmondragon/blogqna-backend/pkg/logger"
)

type createCommentRequest struct {
	ParentCommentID string `json:"parentCommentId,omitempty"`
	Text            string `json:"text" validate:"required,max=5000"`
}

// CreateComment adds a comment, or a reply when parentCommentId is set.
func CreateComment(svc comments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "comments service unavailable"))
			return
		}
		userID, ok := requireUser(w, r, logg)
		if !ok {
			return
		}
		postID, ok := pathParam(w, r, "postId", logg)
		if !ok {
			return
		}

		var body createCommentRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Create(r.Context(), userID, comments.CreateInput{
			PostID:          postID,
			ParentCommentID: body.ParentCommentID,
			Text:            body.Text,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

func CommentThread(svc comments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "comments service unavailable"))
			return
		}
		postID, ok := pathParam(w, r, "postId", logg)
		if !ok {
			return
		}

		thread, err := svc.Thread(r.Context(), postID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, thread)
	}
}
