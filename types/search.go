package types

import "fmt"

// SearchRequest asks for messages in Channel whose text contains Keyword,
// examining at most Limit messages of history.
type SearchRequest struct {
	// Channel is the bare handle, e.g. "durov"
	Channel string `json:"channel"`
	Keyword string `json:"keyword"`
	Limit   int    `json:"limit"`
}

func (r SearchRequest) String() string {
	return fmt.Sprintf("%s/%q/%d", r.Channel, r.Keyword, r.Limit)
}

// SearchResult is one matched message as written to the report.
type SearchResult struct {
	MessageID int    `json:"message_id"`
	Date      string `json:"date"`
	Sender    string `json:"sender"`
	Content   string `json:"content"`
}

const (
	UnknownDate   = "Unknown"
	UnknownSender = "Unknown"
	DateLayout    = "2006-01-02 15:04:05"
)
