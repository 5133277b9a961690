package models

import "time"

// Room represents a physical hotel room
type Room struct {
	RoomNumber   int       `json:"room_number" db:"room_number"`
	RoomType     string    `json:"room_type" db:"room_type"`
	NightlyRate  float64   `json:"nightly_rate" db:"nightly_rate"`
	IsAvailable  bool      `json:"is_available" db:"is_available"`
	MaxOccupancy int       `json:"max_occupancy" db:"max_occupancy"`
	Description  *string   `json:"description,omitempty" db:"description"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}
