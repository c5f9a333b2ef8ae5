package requestlog

import "time"

// Channel names used by the relay.
const (
	ChannelConsole   = "console"
	ChannelWhatsApp  = "whatsapp"
	ChannelBroadcast = "broadcast"
)

// Entry is one recorded exchange: the query sent upstream and what came
// back. Rows are insert-only.
type Entry struct {
	ID        string    `json:"id"`
	Channel   string    `json:"channel"`
	Query     string    `json:"query"`
	Response  string    `json:"response"`
	Success   bool      `json:"success"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Contact is a distinct conversation partner reconstructed from the log.
type Contact struct {
	UserID       string    `json:"user_id"`
	Channel      string    `json:"channel"`
	MessageCount int64     `json:"message_count"`
	LastSeenAt   time.Time `json:"last_seen_at"`
}

// Session groups one user's consecutive exchanges separated by at most the
// session gap.
type Session struct {
	UserID    string    `json:"user_id"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`
	Entries   []Entry   `json:"entries"`
}

// Stats is the dashboard summary.
type Stats struct {
	Total       int64            `json:"total"`
	Succeeded   int64            `json:"succeeded"`
	SuccessRate float64          `json:"success_rate"`
	ByChannel   map[string]int64 `json:"by_channel"`
}
