package repository

import (
	"database/sql"
	"encoding/json"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/pixelift/pixelift/internal/history"
	"github.com/pixelift/pixelift/internal/models"
)

type historyRepo struct {
	db *sqlx.DB
}

func NewHistoryRepository(db *sqlx.DB) history.Repository {
	return &historyRepo{db: db}
}

func (r *historyRepo) Load() ([]models.HistoryEntry, error) {
	var raw []byte
	if err := r.db.Get(&raw, getHistoryQuery, historyKey); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "historyRepo.Load")
	}
	var entries []models.HistoryEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, errors.Wrap(err, "historyRepo.Load.Unmarshal")
	}
	return entries, nil
}

func (r *historyRepo) Save(entries []models.HistoryEntry) error {
	if entries == nil {
		entries = []models.HistoryEntry{}
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		return errors.Wrap(err, "historyRepo.Save.Marshal")
	}
	if _, err := r.db.Exec(setHistoryQuery, historyKey, raw); err != nil {
		return errors.Wrap(err, "historyRepo.Save.Exec")
	}
	return nil
}
