// Package db keeps a durable copy of every relayed message in Postgres.
// Redis stays authoritative for history reads; the archive is write-only
// from the relay's point of view.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"room-relay/internal/chat"
)

type Database struct {
	Conn *sql.DB
}

func NewDatabase(dsn string) (*Database, error) {
	conn, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(25)
	conn.SetConnMaxLifetime(5 * time.Minute)
	return &Database{Conn: conn}, nil
}

func (d *Database) AutoMigrate() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS chat_messages (
            id TEXT PRIMARY KEY,
            room_id TEXT NOT NULL,
            user_id TEXT NOT NULL,
            username TEXT NOT NULL,
            content TEXT NOT NULL,
            sent_at TIMESTAMPTZ NOT NULL
        )`,

		`CREATE INDEX IF NOT EXISTS chat_messages_room_sent_at
            ON chat_messages (room_id, sent_at DESC)`,
	}

	for _, query := range queries {
		if _, err := d.Conn.Exec(query); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}

// ArchiveMessage inserts msg once; replays of the same id are ignored.
func (d *Database) ArchiveMessage(ctx context.Context, msg chat.ChatMessage) error {
	query := `
        INSERT INTO chat_messages (id, room_id, user_id, username, content, sent_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (id) DO NOTHING`

	_, err := d.Conn.ExecContext(ctx, query,
		msg.ID, msg.RoomID, msg.UserID, msg.Username, msg.Content, time.UnixMilli(msg.Timestamp).UTC())
	if err != nil {
		return fmt.Errorf("archive message %s: %w", msg.ID, err)
	}
	return nil
}

// RoomMessages returns up to limit archived messages of a room, newest first.
func (d *Database) RoomMessages(ctx context.Context, roomID string, limit int) ([]chat.ChatMessage, error) {
	query := `
        SELECT id, room_id, user_id, username, content, sent_at
        FROM chat_messages
        WHERE room_id = $1
        ORDER BY sent_at DESC
        LIMIT $2`

	rows, err := d.Conn.QueryContext(ctx, query, roomID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []chat.ChatMessage{}
	for rows.Next() {
		var m chat.ChatMessage
		var sentAt time.Time
		if err := rows.Scan(&m.ID, &m.RoomID, &m.UserID, &m.Username, &m.Content, &sentAt); err != nil {
			return nil, err
		}
		m.Timestamp = sentAt.UnixMilli()
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func (d *Database) Close() error {
	return d.Conn.Close()
}
