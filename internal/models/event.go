package models

const (
	EventHistoryAppended = "history_appended"
	EventHistoryCleared  = "history_cleared"
)

// HistoryEvent is pushed to a user's websocket connections whenever their
// transcript changes. Clients refetch GET /history to apply it.
type HistoryEvent struct {
	Type   string `json:"type"`
	UserID string `json:"userId"`
}
