package repository

import (
	"context"
	"time"

	"voicelink_service/internal/room/domain"
)

// RoomRepository definition room membership and message history
type RoomRepository interface {
	// JoinRoom 房間不存在就建立，upsert user，回傳完整快照
	JoinRoom(ctx context.Context, roomID string, user domain.User, now time.Time) (*domain.RoomData, error)
	// UpsertUser 更新成員資料，房間不存在回傳 domain.ErrRoomNotFound
	UpsertUser(ctx context.Context, roomID string, user domain.User) error
	LeaveRoom(ctx context.Context, roomID, userID string) error
	// SendMessage append message and touch room activity
	SendMessage(ctx context.Context, roomID string, msg domain.Message, now time.Time) (*domain.Message, error)
	// GetRoom returns nil, nil when the room does not exist
	GetRoom(ctx context.Context, roomID string) (*domain.RoomData, error)
	// FindRoom returns nil, nil when the room does not exist
	FindRoom(ctx context.Context, roomID string) (*domain.Room, error)
	DeleteRoom(ctx context.Context, roomID string) error
	// DeleteExpiredRooms 刪除最後活動時間早於 cutoff 的房間，回傳被刪除的 room id
	DeleteExpiredRooms(ctx context.Context, cutoff time.Time) ([]string, error)
}

// ReadinessChecker implemented by backends that depend on a remote database
type ReadinessChecker interface {
	Ready(ctx context.Context) error
}
