package credits

// UseCase is the credit ledger. All operations are serialized: a deduct that
// would take a balance negative fails without side effects, and every
// successful mutation is persisted before the call returns.
type UseCase interface {
	DeductImageCredit() bool
	DeductVideoSeconds(seconds int) bool
	RefundImageCredit()
	RefundVideoSeconds(seconds int)
	ApplyPurchase(productID, transactionID string)
	Balances() (imageCredits, videoSeconds int)
	SetBalances(imageCredits, videoSeconds int) error
}
