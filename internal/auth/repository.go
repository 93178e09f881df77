package auth

import "github.com/pixelift/pixelift/internal/models"

// Repository persists the session token and the current user record.
type Repository interface {
	SaveSession(token string, user *models.User) error
	LoadSession() (string, *models.User, error)
	ClearSession() error
}
