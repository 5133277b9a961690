package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/grandstay/hotel-booking-backend/internal/models"
)

// RoomRepository handles room database operations
type RoomRepository struct {
	db *sqlx.DB
}

// NewRoomRepository creates a new RoomRepository
func NewRoomRepository(db *sqlx.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

// FindByRoomNumber retrieves a room by number. Returns (nil, nil) when the
// room does not exist.
func (r *RoomRepository) FindByRoomNumber(roomNumber int) (*models.Room, error) {
	room := &models.Room{}
	query := `
		SELECT room_number, room_type, nightly_rate, is_available,
		       max_occupancy, description, updated_at
		FROM rooms WHERE room_number = $1`

	err := r.db.Get(room, query, roomNumber)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get room %d: %w", roomNumber, err)
	}
	return room, nil
}

// Save upserts a room keyed by room number
func (r *RoomRepository) Save(room *models.Room) error {
	query := `
		INSERT INTO rooms (
			room_number, room_type, nightly_rate, is_available,
			max_occupancy, description, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (room_number) DO UPDATE SET
			room_type = EXCLUDED.room_type,
			nightly_rate = EXCLUDED.nightly_rate,
			is_available = EXCLUDED.is_available,
			max_occupancy = EXCLUDED.max_occupancy,
			description = EXCLUDED.description,
			updated_at = NOW()`

	_, err := r.db.Exec(query,
		room.RoomNumber, room.RoomType, room.NightlyRate, room.IsAvailable,
		room.MaxOccupancy, room.Description,
	)
	if err != nil {
		return fmt.Errorf("failed to save room %d: %w", room.RoomNumber, err)
	}
	return nil
}

// ListAvailable retrieves rooms currently marked available
func (r *RoomRepository) ListAvailable() ([]*models.Room, error) {
	query := `
		SELECT room_number, room_type, nightly_rate, is_available,
		       max_occupancy, description, updated_at
		FROM rooms
		WHERE is_available = TRUE
		ORDER BY room_number`

	var rooms []*models.Room
	if err := r.db.Select(&rooms, query); err != nil {
		return nil, fmt.Errorf("failed to list available rooms: %w", err)
	}
	return rooms, nil
}
