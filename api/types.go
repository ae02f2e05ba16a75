package api

type SearchRequest struct {
	TelegramLink string `json:"telegram_link" validate:"required"`
	Keyword      string `json:"keyword" validate:"required"`
	// 0 means the server default
	Limit int `json:"limit" validate:"gte=0" default:"1000"`
}

type SearchResponse struct {
	Success      bool   `json:"success"`
	MessageCount int    `json:"message_count"`
	Filename     string `json:"filename"`
	Channel      string `json:"channel"`
	Keyword      string `json:"keyword"`
}

type ErrorResponse struct {
	Detail string `json:"detail"`
}
