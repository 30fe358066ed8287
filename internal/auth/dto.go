package auth

import (
	"github.com/angelmondragon/blogqna-backend/internal/users"
)

// SignupRequest is the payload for creating an account.
type SignupRequest struct {
	Name     string  `json:"name" validate:"required,max=120"`
	Email    string  `json:"email" validate:"required,email"`
	Password string  `json:"password" validate:"required,min=8,max=256"`
	College  *string `json:"college,omitempty" validate:"omitempty,max=200"`
	Company  *string `json:"company,omitempty" validate:"omitempty,max=200"`
	LinkedIn *string `json:"linkedin,omitempty" validate:"omitempty,url"`
}

// LoginRequest captures the user credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse contains the tokens and user produced by a successful login.
type LoginResponse struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	User         *users.UserDTO `json:"user"`
}

// TokenPair is returned by a session refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}
