package repository

import (
	"database/sql"
	"encoding/json"
	"strconv"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/pixelift/pixelift/internal/credits"
)

type creditsRepo struct {
	db *sqlx.DB
}

func NewCreditsRepository(db *sqlx.DB) credits.Repository {
	return &creditsRepo{db: db}
}

func (r *creditsRepo) LoadBalances() (int, int, error) {
	image, err := r.getInt(imageCreditsKey)
	if err != nil {
		return 0, 0, errors.Wrap(err, "creditsRepo.LoadBalances.image")
	}
	video, err := r.getInt(videoSecondsKey)
	if err != nil {
		return 0, 0, errors.Wrap(err, "creditsRepo.LoadBalances.video")
	}
	return image, video, nil
}

func (r *creditsRepo) SaveBalances(imageCredits, videoSeconds int) error {
	tx, err := r.db.Begin()
	if err != nil {
		return errors.Wrap(err, "creditsRepo.SaveBalances.Begin")
	}
	for key, value := range map[string]int{
		imageCreditsKey: imageCredits,
		videoSecondsKey: videoSeconds,
	} {
		if _, err := tx.Exec(setValueQuery, key, strconv.Itoa(value)); err != nil {
			tx.Rollback()
			return errors.Wrap(err, "creditsRepo.SaveBalances.Exec")
		}
	}
	return errors.Wrap(tx.Commit(), "creditsRepo.SaveBalances.Commit")
}

func (r *creditsRepo) LoadTransactions() ([]string, error) {
	var raw []byte
	if err := r.db.Get(&raw, getValueQuery, transactionsKey); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "creditsRepo.LoadTransactions")
	}
	var ids []string
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, errors.Wrap(err, "creditsRepo.LoadTransactions.Unmarshal")
	}
	return ids, nil
}

func (r *creditsRepo) SaveTransactions(ids []string) error {
	raw, err := json.Marshal(ids)
	if err != nil {
		return errors.Wrap(err, "creditsRepo.SaveTransactions.Marshal")
	}
	if _, err := r.db.Exec(setValueQuery, transactionsKey, raw); err != nil {
		return errors.Wrap(err, "creditsRepo.SaveTransactions.Exec")
	}
	return nil
}

func (r *creditsRepo) getInt(key string) (int, error) {
	var raw string
	if err := r.db.Get(&raw, getValueQuery, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return strconv.Atoi(raw)
}
