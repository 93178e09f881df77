package repository

const (
	getHistoryQuery = `SELECT value FROM kv WHERE key = ?`

	setHistoryQuery = `INSERT INTO kv (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`
)

const historyKey = "history"
