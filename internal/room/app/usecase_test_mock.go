package app

import (
	"context"
	"io"
	"time"

	"github.com/stretchr/testify/mock"

	"voicelink_service/internal/room/domain"
)

// MockRoomRepository Mock RoomRepository
type MockRoomRepository struct {
	mock.Mock
}

// Ready mock readiness probe
func (m *MockRoomRepository) Ready(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// JoinRoom mock join room
func (m *MockRoomRepository) JoinRoom(ctx context.Context, roomID string, user domain.User, now time.Time) (*domain.RoomData, error) {
	args := m.Called(ctx, roomID, user, now)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.RoomData), args.Error(1)
	}
	return nil, args.Error(1)
}

// UpsertUser mock upsert user
func (m *MockRoomRepository) UpsertUser(ctx context.Context, roomID string, user domain.User) error {
	return m.Called(ctx, roomID, user).Error(0)
}

// LeaveRoom mock leave room
func (m *MockRoomRepository) LeaveRoom(ctx context.Context, roomID, userID string) error {
	return m.Called(ctx, roomID, userID).Error(0)
}

// SendMessage mock send message
func (m *MockRoomRepository) SendMessage(ctx context.Context, roomID string, msg domain.Message, now time.Time) (*domain.Message, error) {
	args := m.Called(ctx, roomID, msg, now)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Message), args.Error(1)
	}
	return nil, args.Error(1)
}

// GetRoom mock get room
func (m *MockRoomRepository) GetRoom(ctx context.Context, roomID string) (*domain.RoomData, error) {
	args := m.Called(ctx, roomID)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.RoomData), args.Error(1)
	}
	return nil, args.Error(1)
}

// FindRoom mock find room
func (m *MockRoomRepository) FindRoom(ctx context.Context, roomID string) (*domain.Room, error) {
	args := m.Called(ctx, roomID)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Room), args.Error(1)
	}
	return nil, args.Error(1)
}

// DeleteRoom mock delete room
func (m *MockRoomRepository) DeleteRoom(ctx context.Context, roomID string) error {
	return m.Called(ctx, roomID).Error(0)
}

// DeleteExpiredRooms mock sweep
func (m *MockRoomRepository) DeleteExpiredRooms(ctx context.Context, cutoff time.Time) ([]string, error) {
	args := m.Called(ctx, cutoff)
	if args.Get(0) != nil {
		return args.Get(0).([]string), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockEventPublisher Mock EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

// Publish mock publish
func (m *MockEventPublisher) Publish(ctx context.Context, event domain.RoomEvent) error {
	return m.Called(ctx, event).Error(0)
}

// Close mock close
func (m *MockEventPublisher) Close() error {
	return m.Called().Error(0)
}

// MockObjectStorage Mock ObjectStorage
type MockObjectStorage struct {
	mock.Mock
}

// UploadObject mock upload, drains the reader
func (m *MockObjectStorage) UploadObject(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error {
	_, _ = io.Copy(io.Discard, reader)
	return m.Called(ctx, objectName, size, contentType).Error(0)
}

// PresignGetURL mock presign
func (m *MockObjectStorage) PresignGetURL(ctx context.Context, objectName string, expiry time.Duration) (string, error) {
	args := m.Called(ctx, objectName, expiry)
	return args.String(0), args.Error(1)
}
