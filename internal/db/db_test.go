package db

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"room-relay/internal/chat"
)

// The archive tests need a real Postgres; set ARCHIVE_TEST_DSN to run them.
func newTestDatabase(t *testing.T) *Database {
	t.Helper()

	dsn := os.Getenv("ARCHIVE_TEST_DSN")
	if dsn == "" {
		t.Skip("ARCHIVE_TEST_DSN not set")
	}

	database, err := NewDatabase(dsn)
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate())
	t.Cleanup(func() { database.Close() })
	return database
}

func TestArchiveMessage(t *testing.T) {
	database := newTestDatabase(t)
	ctx := context.Background()
	roomID := "archive-" + uuid.NewString()

	base := time.Now().UnixMilli()
	first := chat.ChatMessage{ID: uuid.NewString(), Timestamp: base, UserID: "1", Username: "Alice", Content: "hi", RoomID: roomID}
	second := chat.ChatMessage{ID: uuid.NewString(), Timestamp: base + 1, UserID: "2", Username: "Bob", Content: "hey", RoomID: roomID}

	require.NoError(t, database.ArchiveMessage(ctx, first))
	require.NoError(t, database.ArchiveMessage(ctx, second))
	// replay of a known id
	require.NoError(t, database.ArchiveMessage(ctx, first))

	got, err := database.RoomMessages(ctx, roomID, 10)
	require.NoError(t, err)
	assert.Equal(t, []chat.ChatMessage{second, first}, got)
}

func TestRoomMessages_Empty(t *testing.T) {
	database := newTestDatabase(t)

	got, err := database.RoomMessages(context.Background(), "archive-"+uuid.NewString(), 10)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NotNil(t, got)
}

func TestNewDatabase_Unreachable(t *testing.T) {
	_, err := NewDatabase("postgres://relay@127.0.0.1:1/relay?sslmode=disable&connect_timeout=1")
	assert.Error(t, err)
}
