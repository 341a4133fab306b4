package app

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"voicelink_service/internal/room/domain"
	"voicelink_service/internal/room/repository"
	errprocess "voicelink_service/pkg/err"
	"voicelink_service/pkg/logger"
)

const (
	// MaxAudioSize 語音檔上限 5 MiB
	MaxAudioSize = 5 << 20
	// AudioURLExpiry presigned url 有效時間
	AudioURLExpiry = 24 * time.Hour
)

// ObjectStorage definition voice clip object store, *database.MinIOClient satisfies it
type ObjectStorage interface {
	UploadObject(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error
	PresignGetURL(ctx context.Context, objectName string, expiry time.Duration) (string, error)
}

// AudioUpload one uploaded voice clip
type AudioUpload struct {
	RoomID      string
	UserID      string
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// AudioObject stored clip
type AudioObject struct {
	ObjectName string `json:"objectName"`
	URL        string `json:"audioUrl"`
	ExpiresAt  string `json:"expiresAt"`
}

// AudioUseCase store voice clips and hand back a url usable as message audioUrl
type AudioUseCase struct {
	storage ObjectStorage
	rooms   repository.RoomRepository
	now     func() time.Time
}

// NewAudioUseCase storage may be nil, uploads then fail with ErrStorageDisabled
func NewAudioUseCase(storage ObjectStorage, rooms repository.RoomRepository, now func() time.Time) *AudioUseCase {
	if now == nil {
		now = time.Now
	}
	return &AudioUseCase{storage: storage, rooms: rooms, now: now}
}

// Enabled report whether object storage is configured
func (u *AudioUseCase) Enabled() bool {
	return u.storage != nil
}

// Upload check membership then store the clip under rooms/{roomId}/{uuid}{ext}
func (u *AudioUseCase) Upload(ctx context.Context, in AudioUpload) (*AudioObject, error) {
	if u.storage == nil {
		return nil, domain.ErrStorageDisabled
	}
	if strings.TrimSpace(in.RoomID) == "" || strings.TrimSpace(in.UserID) == "" {
		return nil, domain.NewValidationError("roomId and userId are required")
	}
	if in.Size <= 0 {
		return nil, domain.NewValidationError("audio file is empty")
	}
	if in.Size > MaxAudioSize {
		return nil, domain.NewValidationError(fmt.Sprintf("audio file exceeds %d bytes", MaxAudioSize))
	}

	mediaType, _, err := mime.ParseMediaType(in.ContentType)
	if err != nil || !strings.HasPrefix(mediaType, "audio/") {
		return nil, domain.NewValidationError("file must be audio/*")
	}

	data, err := u.rooms.GetRoom(ctx, in.RoomID)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, domain.ErrRoomNotFound
	}
	if _, ok := data.FindUser(in.UserID); !ok {
		return nil, domain.ErrUserNotFound
	}

	objectName := fmt.Sprintf("rooms/%s/%s%s", in.RoomID, uuid.NewString(), audioExt(in.FileName, mediaType))
	if err := u.storage.UploadObject(ctx, objectName, io.LimitReader(in.Body, MaxAudioSize), in.Size, mediaType); err != nil {
		return nil, errprocess.Wrap(err, "upload audio failed", zap.String("object", objectName))
	}

	url, err := u.storage.PresignGetURL(ctx, objectName, AudioURLExpiry)
	if err != nil {
		return nil, errprocess.Wrap(err, "presign audio url failed", zap.String("object", objectName))
	}
	if len(url) > domain.MaxAudioURLLength {
		return nil, errprocess.Set(fmt.Sprintf("presigned url of %s is %d bytes", objectName, len(url)))
	}

	logger.Log.Debug("audio uploaded", zap.String("room_id", in.RoomID), zap.String("object", objectName))
	return &AudioObject{
		ObjectName: objectName,
		URL:        url,
		ExpiresAt:  domain.FormatTimestamp(u.now().Add(AudioURLExpiry)),
	}, nil
}

func audioExt(fileName, mediaType string) string {
	if ext := strings.ToLower(filepath.Ext(fileName)); ext != "" && len(ext) <= 6 {
		return ext
	}
	if exts, err := mime.ExtensionsByType(mediaType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ""
}
