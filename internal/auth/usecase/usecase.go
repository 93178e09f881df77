package usecase

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/pkg/errors"

	"github.com/pixelift/pixelift/internal/auth"
	"github.com/pixelift/pixelift/internal/config"
	"github.com/pixelift/pixelift/internal/models"
	"github.com/pixelift/pixelift/pkg/logger"
	"github.com/pixelift/pixelift/pkg/utils"
)

var ErrNotSignedIn = errors.New("not signed in")

type authUC struct {
	cfg        *config.Config
	baseURL    string
	httpClient *http.Client
	repo       auth.Repository
	logger     logger.Logger

	mu    sync.Mutex
	token string
	user  *models.User
}

func NewAuthUseCase(cfg *config.Config, repo auth.Repository, log logger.Logger) (auth.UseCase, error) {
	token, user, err := repo.LoadSession()
	if err != nil {
		return nil, err
	}
	timeout := cfg.API.RequestTimeout
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	return &authUC{
		cfg:        cfg,
		baseURL:    strings.TrimRight(cfg.API.BaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		repo:       repo,
		logger:     log,
		token:      token,
		user:       user,
	}, nil
}

func (u *authUC) SignIn(ctx context.Context, identityToken, userID, email string) (*models.User, error) {
	input := &models.AppleAuthRequest{
		IdentityToken: identityToken,
		UserID:        userID,
		Email:         email,
	}
	if err := utils.ValidateStruct(ctx, input); err != nil {
		return nil, errors.Wrap(err, "authUC.SignIn.ValidateStruct")
	}

	payload, err := json.Marshal(input)
	if err != nil {
		return nil, errors.Wrap(err, "authUC.SignIn.Marshal")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.baseURL+"/api/auth/apple", bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrap(err, "authUC.SignIn.NewRequest")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "authUC.SignIn.Do")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.Errorf("authUC.SignIn: server returned %d", resp.StatusCode)
	}

	var authResp models.AppleAuthResponse
	if err := json.NewDecoder(resp.Body).Decode(&authResp); err != nil {
		return nil, errors.Wrap(err, "authUC.SignIn.Decode")
	}
	if authResp.SessionToken == "" {
		return nil, errors.New("authUC.SignIn: empty session token")
	}

	if err := u.repo.SaveSession(authResp.SessionToken, &authResp.User); err != nil {
		return nil, err
	}

	u.mu.Lock()
	u.token = authResp.SessionToken
	u.user = &authResp.User
	u.mu.Unlock()

	return &authResp.User, nil
}

// Token returns the stored session token. Expiry is surfaced as a warning
// only; the token is opaque here and validation is the server's job.
func (u *authUC) Token() (string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.token == "" {
		return "", ErrNotSignedIn
	}
	if claims, err := ParseClaims(u.token); err == nil {
		if claims.ExpiresAt != nil && claims.ExpiresAt.Before(time.Now()) {
			u.logger.Warnf("session token for user %s expired at %s", claims.UserID, claims.ExpiresAt)
		}
	}
	return u.token, nil
}

func (u *authUC) CurrentUser() *models.User {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.user == nil {
		return nil
	}
	snapshot := *u.user
	return &snapshot
}

func (u *authUC) SignOut() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if err := u.repo.ClearSession(); err != nil {
		return err
	}
	u.token = ""
	u.user = nil
	return nil
}

// ParseClaims decodes a session token without verifying it. Two shapes are
// accepted: a standard three-segment JWT, and the bare base64-encoded JSON
// object the current backend issues.
func ParseClaims(token string) (*models.SessionClaims, error) {
	if strings.Count(token, ".") == 2 {
		claims := &models.SessionClaims{}
		parser := jwt.NewParser()
		if _, _, err := parser.ParseUnverified(token, claims); err == nil {
			return claims, nil
		}
	}

	raw, err := decodeBase64(token)
	if err != nil {
		return nil, errors.Wrap(err, "ParseClaims.decode")
	}
	var payload struct {
		UserID  string `json:"userId"`
		AppleID string `json:"appleId"`
		Exp     int64  `json:"exp"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, errors.Wrap(err, "ParseClaims.Unmarshal")
	}
	claims := &models.SessionClaims{
		UserID:  payload.UserID,
		AppleID: payload.AppleID,
	}
	if payload.Exp > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(time.Unix(payload.Exp, 0))
	}
	return claims, nil
}

func decodeBase64(s string) ([]byte, error) {
	for _, enc := range []*base64.Encoding{
		base64.StdEncoding, base64.RawStdEncoding, base64.URLEncoding, base64.RawURLEncoding,
	} {
		if raw, err := enc.DecodeString(s); err == nil {
			return raw, nil
		}
	}
	return nil, errors.New("not base64")
}
