package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"voicelink_service/internal/room/domain"
)

// roomSchema tables shared by the pgx and gorm backends
const roomSchema = `
CREATE TABLE IF NOT EXISTS rooms (
	id               TEXT PRIMARY KEY,
	created_at       TIMESTAMPTZ NOT NULL,
	last_activity_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS room_users (
	room_id         TEXT NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
	user_id         TEXT NOT NULL,
	name            TEXT NOT NULL,
	source_language TEXT NOT NULL,
	target_language TEXT NOT NULL,
	avatar          TEXT NOT NULL DEFAULT '',
	last_seen_at    TEXT NOT NULL DEFAULT '',
	joined_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (room_id, user_id)
);
CREATE TABLE IF NOT EXISTS room_messages (
	seq               BIGSERIAL PRIMARY KEY,
	room_id           TEXT NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
	message_id        TEXT NOT NULL,
	user_id           TEXT NOT NULL,
	user_name         TEXT NOT NULL,
	original_text     TEXT NOT NULL,
	original_language TEXT NOT NULL,
	timestamp         TEXT NOT NULL,
	audio_url         TEXT NOT NULL DEFAULT '',
	translated_text   TEXT NOT NULL DEFAULT '',
	target_language   TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS room_messages_room_seq_idx ON room_messages (room_id, seq);
`

const upsertUserSQL = `
INSERT INTO room_users (room_id, user_id, name, source_language, target_language, avatar, last_seen_at, joined_at)
SELECT $1::text, $2::text, $3::text, $4::text, $5::text, $6::text, $7::text, $8::timestamptz
WHERE EXISTS (SELECT 1 FROM rooms WHERE id = $1::text)
ON CONFLICT (room_id, user_id) DO UPDATE SET
	name = EXCLUDED.name,
	source_language = EXCLUDED.source_language,
	target_language = EXCLUDED.target_language,
	avatar = EXCLUDED.avatar,
	last_seen_at = EXCLUDED.last_seen_at`

type pgRoomRepository struct {
	db *pgxpool.Pool
}

// NewPGRoomRepository create a RoomRepository backed by a pgx pool
func NewPGRoomRepository(db *pgxpool.Pool) RoomRepository {
	return &pgRoomRepository{db: db}
}

// EnsureRoomSchema create the room tables if they do not exist
func EnsureRoomSchema(ctx context.Context, db *pgxpool.Pool) error {
	if _, err := db.Exec(ctx, roomSchema); err != nil {
		return fmt.Errorf("create room schema: %w", err)
	}
	return nil
}

func (r *pgRoomRepository) Ready(ctx context.Context) error {
	return r.db.Ping(ctx)
}

func (r *pgRoomRepository) JoinRoom(ctx context.Context, roomID string, user domain.User, now time.Time) (*domain.RoomData, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO rooms (id, created_at, last_activity_at) VALUES ($1, $2, $2)
		ON CONFLICT (id) DO UPDATE SET last_activity_at = EXCLUDED.last_activity_at`,
		roomID, now)
	if err != nil {
		return nil, fmt.Errorf("upsert room %s: %w", roomID, err)
	}

	_, err = tx.Exec(ctx, upsertUserSQL,
		roomID, user.ID, user.Name, user.SourceLanguage, user.TargetLanguage, user.Avatar, user.LastSeenAt, now)
	if err != nil {
		return nil, fmt.Errorf("upsert user %s: %w", user.ID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return r.GetRoom(ctx, roomID)
}

func (r *pgRoomRepository) UpsertUser(ctx context.Context, roomID string, user domain.User) error {
	tag, err := r.db.Exec(ctx, upsertUserSQL,
		roomID, user.ID, user.Name, user.SourceLanguage, user.TargetLanguage, user.Avatar, user.LastSeenAt, time.Now())
	if err != nil {
		return fmt.Errorf("upsert user %s: %w", user.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRoomNotFound
	}
	return nil
}

func (r *pgRoomRepository) LeaveRoom(ctx context.Context, roomID, userID string) error {
	_, err := r.db.Exec(ctx, "DELETE FROM room_users WHERE room_id = $1 AND user_id = $2", roomID, userID)
	return err
}

func (r *pgRoomRepository) SendMessage(ctx context.Context, roomID string, msg domain.Message, now time.Time) (*domain.Message, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	// 明確更新 last_activity_at
	tag, err := tx.Exec(ctx, "UPDATE rooms SET last_activity_at = $2 WHERE id = $1", roomID, now)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, domain.ErrRoomNotFound
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO room_messages (room_id, message_id, user_id, user_name, original_text, original_language,
			timestamp, audio_url, translated_text, target_language)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		roomID, msg.ID, msg.UserID, msg.UserName, msg.OriginalText, msg.OriginalLanguage,
		msg.Timestamp, msg.AudioURL, msg.TranslatedText, msg.TargetLanguage)
	if err != nil {
		return nil, fmt.Errorf("insert message %s: %w", msg.ID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *pgRoomRepository) GetRoom(ctx context.Context, roomID string) (*domain.RoomData, error) {
	room, err := r.FindRoom(ctx, roomID)
	if err != nil || room == nil {
		return nil, err
	}

	data := &domain.RoomData{ID: roomID, Users: []domain.User{}, Messages: []domain.Message{}}

	rows, err := r.db.Query(ctx, `
		SELECT user_id, name, source_language, target_language, avatar, last_seen_at
		FROM room_users WHERE room_id = $1 ORDER BY joined_at, user_id`, roomID)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Name, &u.SourceLanguage, &u.TargetLanguage, &u.Avatar, &u.LastSeenAt); err != nil {
			rows.Close()
			return nil, err
		}
		data.Users = append(data.Users, u)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = r.db.Query(ctx, `
		SELECT message_id, user_id, user_name, original_text, original_language, timestamp,
			audio_url, translated_text, target_language
		FROM room_messages WHERE room_id = $1 ORDER BY seq`, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(&m.ID, &m.UserID, &m.UserName, &m.OriginalText, &m.OriginalLanguage, &m.Timestamp,
			&m.AudioURL, &m.TranslatedText, &m.TargetLanguage); err != nil {
			return nil, err
		}
		data.Messages = append(data.Messages, m)
	}
	return data, rows.Err()
}

func (r *pgRoomRepository) FindRoom(ctx context.Context, roomID string) (*domain.Room, error) {
	var room domain.Room
	err := r.db.QueryRow(ctx, "SELECT id, created_at, last_activity_at FROM rooms WHERE id = $1", roomID).
		Scan(&room.ID, &room.CreatedAt, &room.LastActivityAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &room, nil
}

func (r *pgRoomRepository) DeleteRoom(ctx context.Context, roomID string) error {
	_, err := r.db.Exec(ctx, "DELETE FROM rooms WHERE id = $1", roomID)
	return err
}

func (r *pgRoomRepository) DeleteExpiredRooms(ctx context.Context, cutoff time.Time) ([]string, error) {
	rows, err := r.db.Query(ctx,
		"DELETE FROM rooms WHERE GREATEST(created_at, last_activity_at) < $1 RETURNING id", cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
