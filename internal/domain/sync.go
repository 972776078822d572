package domain

// SyncSummary reports a backfill run. Errors holds per-document upsert
// failures; their documents are excluded from Indexed.
type SyncSummary struct {
	Indexed int      `json:"indexed"`
	Total   int      `json:"total"`
	Skipped int      `json:"skipped"`
	Errors  []string `json:"errors"`
}
