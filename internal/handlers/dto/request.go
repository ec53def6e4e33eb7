package dto

import "time"

type CreateRequestRequest struct {
	Kind            string    `json:"kind" binding:"required,oneof=meal walk"`
	Content         string    `json:"content" binding:"max=2000"`
	Location        string    `json:"location" binding:"max=200"`
	StartTime       time.Time `json:"start_time" binding:"required"`
	DurationMinutes int       `json:"duration_minutes" binding:"required,min=1"`
	MaxParticipants *int      `json:"max_participants" binding:"omitempty,min=1"`
}
