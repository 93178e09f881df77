package credits

// Repository persists ledger state to the local durable store.
type Repository interface {
	LoadBalances() (imageCredits, videoSeconds int, err error)
	SaveBalances(imageCredits, videoSeconds int) error
	LoadTransactions() ([]string, error)
	SaveTransactions(ids []string) error
}
