package database

import (
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grandstay/hotel-booking-backend/internal/models"
)

var roomRows = []string{
	"room_number", "room_type", "nightly_rate", "is_available",
	"max_occupancy", "description", "updated_at",
}

var roomFixture = models.Room{
	RoomNumber:   101,
	RoomType:     "standard",
	NightlyRate:  100,
	IsAvailable:  true,
	MaxOccupancy: 2,
}

func TestRoomFindByRoomNumber(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRoomRepository(db)

	t.Run("Success", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM rooms WHERE room_number`).
			WithArgs(101).
			WillReturnRows(sqlmock.NewRows(roomRows).AddRow(
				101, "deluxe", 150.0, true, 2, nil, time.Now(),
			))

		room, err := repo.FindByRoomNumber(101)
		require.NoError(t, err)
		require.NotNil(t, room)
		assert.Equal(t, "deluxe", room.RoomType)
		assert.Equal(t, 150.0, room.NightlyRate)
		assert.True(t, room.IsAvailable)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Not Found", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM rooms WHERE room_number`).
			WithArgs(999).
			WillReturnError(sql.ErrNoRows)

		room, err := repo.FindByRoomNumber(999)
		require.NoError(t, err)
		assert.Nil(t, room)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Database Error", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM rooms WHERE room_number`).
			WithArgs(101).
			WillReturnError(fmt.Errorf("database error"))

		room, err := repo.FindByRoomNumber(101)
		assert.Error(t, err)
		assert.Nil(t, room)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRoomSave(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRoomRepository(db)

	mock.ExpectExec(`INSERT INTO rooms`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Save(&roomFixture)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoomListAvailable(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRoomRepository(db)

	mock.ExpectQuery(`SELECT (.+) FROM rooms`).
		WillReturnRows(sqlmock.NewRows(roomRows).
			AddRow(101, "standard", 100.0, true, 2, nil, time.Now()).
			AddRow(102, "deluxe", 150.0, true, 3, nil, time.Now()))

	rooms, err := repo.ListAvailable()
	require.NoError(t, err)
	assert.Len(t, rooms, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}
