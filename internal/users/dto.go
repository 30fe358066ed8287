package users

import (
	"strings"
	"time"

	"github.com/angelmondragon/blogqna-backend/pkg/db/models"
	"github.com/angelmondragon/blogqna-backend/pkg/enums"
	"github.com/google/uuid"
)

// UserDTO is the transport shape that omits sensitive credentials.
type UserDTO struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	Email          string         `json:"email"`
	College        *string        `json:"college,omitempty"`
	Company        *string        `json:"company,omitempty"`
	LinkedIn       *string        `json:"linkedin,omitempty"`
	ProfilePicture *string        `json:"profilePicture,omitempty"`
	Role           enums.UserRole `json:"role"`
	CreatedAt      time.Time      `json:"createdAt"`
}

// CreateUserDTO holds the data required by the repo to persist a new user.
type CreateUserDTO struct {
	Name         string
	Email        string
	PasswordHash string
	College      *string
	Company      *string
	LinkedIn     *string
	Role         enums.UserRole
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}
	return &UserDTO{
		ID:             u.ID,
		Name:           u.Name,
		Email:          u.Email,
		College:        u.College,
		Company:        u.Company,
		LinkedIn:       u.LinkedIn,
		ProfilePicture: u.ProfilePicture,
		Role:           u.Role,
		CreatedAt:      u.CreatedAt,
	}
}

// ToModel assigns a fresh id and normalizes the email.
func (c CreateUserDTO) ToModel(now time.Time) *models.User {
	role := c.Role
	if !role.IsValid() {
		role = enums.UserRoleMember
	}
	return &models.User{
		ID:              uuid.NewString(),
		Name:            strings.TrimSpace(c.Name),
		Email:           NormalizeEmail(c.Email),
		PasswordHash:    c.PasswordHash,
		College:         c.College,
		Company:         c.Company,
		LinkedIn:        c.LinkedIn,
		Role:            role,
		NotificationIDs: []string{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
