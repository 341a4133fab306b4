package repository

import (
	"context"
	"sync"
	"time"

	"voicelink_service/internal/room/domain"
)

type memoryRoom struct {
	meta     domain.Room
	users    []domain.User
	messages []domain.Message
}

type memoryRoomRepository struct {
	mu    sync.RWMutex
	rooms map[string]*memoryRoom
}

// NewMemoryRoomRepository create a single process RoomRepository
func NewMemoryRoomRepository() RoomRepository {
	return &memoryRoomRepository{rooms: make(map[string]*memoryRoom)}
}

func (r *memoryRoomRepository) JoinRoom(ctx context.Context, roomID string, user domain.User, now time.Time) (*domain.RoomData, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		room = &memoryRoom{meta: domain.Room{ID: roomID, CreatedAt: now, LastActivityAt: now}}
		r.rooms[roomID] = room
	}
	room.meta.LastActivityAt = now
	room.upsert(user)

	return room.snapshot(), nil
}

func (r *memoryRoomRepository) UpsertUser(ctx context.Context, roomID string, user domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return domain.ErrRoomNotFound
	}
	room.upsert(user)
	return nil
}

func (r *memoryRoomRepository) LeaveRoom(ctx context.Context, roomID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return nil
	}
	for i := range room.users {
		if room.users[i].ID == userID {
			room.users = append(room.users[:i], room.users[i+1:]...)
			break
		}
	}
	// 沒人了就整個刪掉
	if len(room.users) == 0 {
		delete(r.rooms, roomID)
	}
	return nil
}

func (r *memoryRoomRepository) SendMessage(ctx context.Context, roomID string, msg domain.Message, now time.Time) (*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	room.messages = append(room.messages, msg)
	room.meta.LastActivityAt = now
	return &msg, nil
}

func (r *memoryRoomRepository) GetRoom(ctx context.Context, roomID string) (*domain.RoomData, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return nil, nil
	}
	return room.snapshot(), nil
}

func (r *memoryRoomRepository) FindRoom(ctx context.Context, roomID string) (*domain.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return nil, nil
	}
	meta := room.meta
	return &meta, nil
}

func (r *memoryRoomRepository) DeleteRoom(ctx context.Context, roomID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rooms, roomID)
	return nil
}

func (r *memoryRoomRepository) DeleteExpiredRooms(ctx context.Context, cutoff time.Time) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var deleted []string
	for id, room := range r.rooms {
		if room.meta.CreatedAt.Before(cutoff) && room.meta.LastActivityAt.Before(cutoff) {
			delete(r.rooms, id)
			deleted = append(deleted, id)
		}
	}
	return deleted, nil
}

// upsert 保留原本的位置，新成員加在最後
func (m *memoryRoom) upsert(user domain.User) {
	for i := range m.users {
		if m.users[i].ID == user.ID {
			m.users[i] = user
			return
		}
	}
	m.users = append(m.users, user)
}

func (m *memoryRoom) snapshot() *domain.RoomData {
	users := make([]domain.User, len(m.users))
	copy(users, m.users)
	messages := make([]domain.Message, len(m.messages))
	copy(messages, m.messages)
	return &domain.RoomData{ID: m.meta.ID, Users: users, Messages: messages}
}
