package dto

type ResolveChatRequest struct {
	UserID string `json:"user_id" binding:"required,uuid"`
}

type SendMessageRequest struct {
	Body string `json:"body" binding:"required,max=4000"`
}
