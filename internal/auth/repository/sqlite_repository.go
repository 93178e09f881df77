package repository

import (
	"database/sql"
	"encoding/json"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/pixelift/pixelift/internal/auth"
	"github.com/pixelift/pixelift/internal/models"
)

const (
	getValueQuery = `SELECT value FROM kv WHERE key = ?`

	setValueQuery = `INSERT INTO kv (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`

	deleteValueQuery = `DELETE FROM kv WHERE key = ?`
)

const (
	sessionTokenKey = "session_token"
	currentUserKey  = "current_user"
)

type authRepo struct {
	db *sqlx.DB
}

func NewAuthRepository(db *sqlx.DB) auth.Repository {
	return &authRepo{db: db}
}

func (r *authRepo) SaveSession(token string, user *models.User) error {
	rawUser, err := json.Marshal(user)
	if err != nil {
		return errors.Wrap(err, "authRepo.SaveSession.Marshal")
	}
	tx, err := r.db.Begin()
	if err != nil {
		return errors.Wrap(err, "authRepo.SaveSession.Begin")
	}
	if _, err := tx.Exec(setValueQuery, sessionTokenKey, token); err != nil {
		tx.Rollback()
		return errors.Wrap(err, "authRepo.SaveSession.token")
	}
	if _, err := tx.Exec(setValueQuery, currentUserKey, rawUser); err != nil {
		tx.Rollback()
		return errors.Wrap(err, "authRepo.SaveSession.user")
	}
	return errors.Wrap(tx.Commit(), "authRepo.SaveSession.Commit")
}

func (r *authRepo) LoadSession() (string, *models.User, error) {
	var token string
	if err := r.db.Get(&token, getValueQuery, sessionTokenKey); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil, nil
		}
		return "", nil, errors.Wrap(err, "authRepo.LoadSession.token")
	}

	var rawUser []byte
	if err := r.db.Get(&rawUser, getValueQuery, currentUserKey); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return token, nil, nil
		}
		return "", nil, errors.Wrap(err, "authRepo.LoadSession.user")
	}
	var user models.User
	if err := json.Unmarshal(rawUser, &user); err != nil {
		return "", nil, errors.Wrap(err, "authRepo.LoadSession.Unmarshal")
	}
	return token, &user, nil
}

func (r *authRepo) ClearSession() error {
	tx, err := r.db.Begin()
	if err != nil {
		return errors.Wrap(err, "authRepo.ClearSession.Begin")
	}
	for _, key := range []string{sessionTokenKey, currentUserKey} {
		if _, err := tx.Exec(deleteValueQuery, key); err != nil {
			tx.Rollback()
			return errors.Wrap(err, "authRepo.ClearSession.Exec")
		}
	}
	return errors.Wrap(tx.Commit(), "authRepo.ClearSession.Commit")
}
