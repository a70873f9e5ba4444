package models

import (
	"time"
)

// PlaytimeRecord is the persisted row for one player's accumulated playtime
type PlaytimeRecord struct {
	PlayerID  string    `gorm:"primarykey;size:36" json:"player_id"`
	Seconds   int64     `gorm:"not null;index" json:"seconds"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (PlaytimeRecord) TableName() string {
	return "player_playtimes"
}

// PlayerName is the last display name seen for a player
type PlayerName struct {
	PlayerID  string    `gorm:"primarykey;size:36" json:"player_id"`
	Name      string    `gorm:"size:32;not null" json:"name"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (PlayerName) TableName() string {
	return "player_names"
}

// SetPlaytimeRequest is the payload for overwriting a player's playtime
type SetPlaytimeRequest struct {
	Seconds *int64 `json:"seconds" validate:"required"`
}

// AddPlaytimeRequest is the payload for adding to (or subtracting from) a player's playtime
type AddPlaytimeRequest struct {
	Seconds *int64 `json:"seconds" validate:"required"`
}

// SessionStartRequest announces a player joining the server
type SessionStartRequest struct {
	UUID string `json:"uuid" validate:"required,uuid"`
	Name string `json:"name" validate:"omitempty,min=1,max=32"`
}

// PlayerProfile is a single player's playtime view
type PlayerProfile struct {
	UUID      string `json:"uuid"`
	Name      string `json:"name"`
	Seconds   int64  `json:"seconds"`
	Formatted string `json:"formatted"`
	Rank      int    `json:"rank,omitempty"`
	Online    bool   `json:"online"`
}

// LeaderboardEntry represents a single entry in the leaderboard
type LeaderboardEntry struct {
	Rank      int    `json:"rank"`
	UUID      string `json:"uuid"`
	Name      string `json:"name"`
	Seconds   int64  `json:"seconds"`
	Formatted string `json:"formatted"`
}

// LeaderboardPage represents one page of the full leaderboard
type LeaderboardPage struct {
	Data       []LeaderboardEntry `json:"data"`
	Page       int                `json:"page"`
	TotalPages int                `json:"total_pages"`
	PageSize   int                `json:"page_size"`
	Total      int                `json:"total"`
}

// TopResponse represents the top-N list
type TopResponse struct {
	Data  []LeaderboardEntry `json:"data"`
	Limit int                `json:"limit"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
