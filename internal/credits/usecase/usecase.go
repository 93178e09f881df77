package usecase

import (
	"strings"
	"sync"

	"github.com/pixelift/pixelift/internal/credits"
	"github.com/pixelift/pixelift/pkg/logger"
)

type creditDelta struct {
	imageCredits int
	videoSeconds int
}

// Product identifiers are matched by suffix so the store bundle prefix can
// change without touching the ledger.
var productTable = map[string]creditDelta{
	".credits.10":  {imageCredits: 10},
	".credits.50":  {imageCredits: 50},
	".credits.100": {imageCredits: 100},
	".video.2min":  {videoSeconds: 120},
	".video.5min":  {videoSeconds: 300},
	".video.15min": {videoSeconds: 900},
	".pro.monthly": {imageCredits: 75, videoSeconds: 300},
}

type creditsUC struct {
	mu           sync.Mutex
	imageCredits int
	videoSeconds int
	applied      map[string]struct{}
	repo         credits.Repository
	logger       logger.Logger
}

func NewCreditsUseCase(repo credits.Repository, log logger.Logger) (credits.UseCase, error) {
	image, video, err := repo.LoadBalances()
	if err != nil {
		return nil, err
	}
	txns, err := repo.LoadTransactions()
	if err != nil {
		return nil, err
	}
	applied := make(map[string]struct{}, len(txns))
	for _, id := range txns {
		applied[id] = struct{}{}
	}
	return &creditsUC{
		imageCredits: image,
		videoSeconds: video,
		applied:      applied,
		repo:         repo,
		logger:       log,
	}, nil
}

func (u *creditsUC) DeductImageCredit() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.imageCredits <= 0 {
		return false
	}
	u.imageCredits--
	if err := u.repo.SaveBalances(u.imageCredits, u.videoSeconds); err != nil {
		u.imageCredits++
		u.logger.Errorf("DeductImageCredit - SaveBalances error: %v", err)
		return false
	}
	return true
}

func (u *creditsUC) DeductVideoSeconds(seconds int) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	if seconds <= 0 || u.videoSeconds < seconds {
		return false
	}
	u.videoSeconds -= seconds
	if err := u.repo.SaveBalances(u.imageCredits, u.videoSeconds); err != nil {
		u.videoSeconds += seconds
		u.logger.Errorf("DeductVideoSeconds - SaveBalances error: %v", err)
		return false
	}
	return true
}

func (u *creditsUC) RefundImageCredit() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.imageCredits++
	if err := u.repo.SaveBalances(u.imageCredits, u.videoSeconds); err != nil {
		u.logger.Errorf("RefundImageCredit - SaveBalances error: %v", err)
	}
}

func (u *creditsUC) RefundVideoSeconds(seconds int) {
	if seconds <= 0 {
		return
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	u.videoSeconds += seconds
	if err := u.repo.SaveBalances(u.imageCredits, u.videoSeconds); err != nil {
		u.logger.Errorf("RefundVideoSeconds - SaveBalances error: %v", err)
	}
}

func (u *creditsUC) ApplyPurchase(productID, transactionID string) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if transactionID != "" {
		if _, done := u.applied[transactionID]; done {
			u.logger.Infof("ApplyPurchase - transaction %s already applied, skipping", transactionID)
			return
		}
	}

	delta, ok := lookupProduct(productID)
	if !ok {
		u.logger.Warnf("ApplyPurchase - unknown product id: %s", productID)
		return
	}

	u.imageCredits += delta.imageCredits
	u.videoSeconds += delta.videoSeconds
	if err := u.repo.SaveBalances(u.imageCredits, u.videoSeconds); err != nil {
		u.imageCredits -= delta.imageCredits
		u.videoSeconds -= delta.videoSeconds
		u.logger.Errorf("ApplyPurchase - SaveBalances error: %v", err)
		return
	}

	if transactionID != "" {
		u.applied[transactionID] = struct{}{}
		ids := make([]string, 0, len(u.applied))
		for id := range u.applied {
			ids = append(ids, id)
		}
		if err := u.repo.SaveTransactions(ids); err != nil {
			u.logger.Errorf("ApplyPurchase - SaveTransactions error: %v", err)
		}
	}
}

func (u *creditsUC) Balances() (int, int) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.imageCredits, u.videoSeconds
}

func (u *creditsUC) SetBalances(imageCredits, videoSeconds int) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	prevImage, prevVideo := u.imageCredits, u.videoSeconds
	u.imageCredits, u.videoSeconds = imageCredits, videoSeconds
	if err := u.repo.SaveBalances(imageCredits, videoSeconds); err != nil {
		u.imageCredits, u.videoSeconds = prevImage, prevVideo
		return err
	}
	return nil
}

func lookupProduct(productID string) (creditDelta, bool) {
	for suffix, delta := range productTable {
		if strings.HasSuffix(productID, suffix) {
			return delta, true
		}
	}
	return creditDelta{}, false
}
