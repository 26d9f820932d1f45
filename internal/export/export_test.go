package export

import (
	"bytes"
	"testing"
	"time"

	"shareit/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWriteBookings(t *testing.T) {
	start := time.Date(2030, 1, 10, 12, 0, 0, 0, time.UTC)
	bookings := []*models.Booking{
		{
			ID:     7,
			Start:  start,
			End:    start.Add(2 * time.Hour),
			Status: models.StatusApproved,
			Item:   models.Item{Name: "drill"},
			Booker: models.User{Name: "alice"},
		},
		{
			ID:     3,
			Start:  start.Add(-24 * time.Hour),
			End:    start.Add(-23 * time.Hour),
			Status: models.StatusWaiting,
			Item:   models.Item{Name: "saw"},
			Booker: models.User{Name: "bob"},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteBookings(&buf, bookings))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetName}, f.GetSheetList())

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"ID", "Item", "Booker", "Start", "End", "Status"}, rows[0])
	assert.Equal(t, []string{"7", "drill", "alice", "2030-01-10 12:00", "2030-01-10 14:00", "APPROVED"}, rows[1])
	assert.Equal(t, []string{"3", "saw", "bob", "2030-01-09 12:00", "2030-01-09 13:00", "WAITING"}, rows[2])
}

func TestWriteBookings_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteBookings(&buf, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Status", rows[0][5])
}
