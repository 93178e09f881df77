package auth

import (
	"context"

	"github.com/pixelift/pixelift/internal/models"
)

// UseCase consumes the sign-in flow's end result: a session token and the
// signed-in user. The token is opaque to the client; only presence gates
// remote processing.
type UseCase interface {
	SignIn(ctx context.Context, identityToken, userID, email string) (*models.User, error)
	Token() (string, error)
	CurrentUser() *models.User
	SignOut() error
}
