package repository

const (
	getValueQuery = `SELECT value FROM kv WHERE key = ?`

	setValueQuery = `INSERT INTO kv (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`
)

const (
	imageCreditsKey = "image_credits"
	videoSecondsKey = "video_seconds"
	transactionsKey = "applied_transactions"
)
