package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"voicelink_service/internal/room/domain"
	"voicelink_service/internal/room/repository"
	"voicelink_service/pkg/logger"
)

// autoDeleteCacheTTL 自動刪除旗標幾乎每個 request 都會讀，快取 30 秒
const autoDeleteCacheTTL = 30 * time.Second

// SettingsUseCase typed access to room settings and the auto delete flag
type SettingsUseCase struct {
	repo              repository.SettingsRepository
	autoDeleteDefault bool
	now               func() time.Time

	mu         sync.Mutex
	autoDelete bool
	cachedAt   time.Time
	cached     bool
}

// NewSettingsUseCase create SettingsUseCase, now defaults to time.Now
func NewSettingsUseCase(repo repository.SettingsRepository, autoDeleteDefault bool, now func() time.Time) *SettingsUseCase {
	if now == nil {
		now = time.Now
	}
	return &SettingsUseCase{repo: repo, autoDeleteDefault: autoDeleteDefault, now: now}
}

// LoadRoomPhase 沒有設定就是 Uninitialized，格式錯誤回傳 ErrMalformedSettings
func (s *SettingsUseCase) LoadRoomPhase(ctx context.Context, roomID string) (domain.RoomPhase, error) {
	raw, err := s.repo.Get(ctx, domain.RoomSettingsKey(roomID))
	if err != nil {
		if errors.Is(err, domain.ErrSettingNotFound) {
			return domain.Uninitialized(), nil
		}
		return domain.Uninitialized(), err
	}

	settings, err := domain.DecodeRoomSettings(raw)
	if err != nil {
		logger.Log.Error("stored room settings are malformed", zap.String("room_id", roomID), zap.Error(err))
		return domain.Uninitialized(), err
	}
	return domain.Active(settings), nil
}

// SaveRoomSettings validate then store
func (s *SettingsUseCase) SaveRoomSettings(ctx context.Context, roomID string, settings *domain.RoomSettings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	return s.repo.Set(ctx, domain.RoomSettingsKey(roomID), settings)
}

// DeleteRoomSettings remove the settings of a deleted room
func (s *SettingsUseCase) DeleteRoomSettings(ctx context.Context, roomID string) error {
	return s.repo.Delete(ctx, domain.RoomSettingsKey(roomID))
}

// AutoDeleteEnabled read the flag through the 30s cache.
// Missing or unreadable values fall back to the configured default.
func (s *SettingsUseCase) AutoDeleteEnabled(ctx context.Context) bool {
	now := s.now()

	s.mu.Lock()
	if s.cached && now.Sub(s.cachedAt) < autoDeleteCacheTTL {
		enabled := s.autoDelete
		s.mu.Unlock()
		return enabled
	}
	s.mu.Unlock()

	// 讀取不持有鎖，避免所有 request 排在同一次遠端讀取後面
	enabled := s.autoDeleteDefault
	raw, err := s.repo.Get(ctx, domain.AutoDeleteSettingKey)
	switch {
	case err == nil:
		flag, decodeErr := domain.DecodeAutoDeleteFlag(raw)
		if decodeErr != nil {
			logger.Log.Warn("auto delete flag is malformed, using default", zap.Error(decodeErr))
		} else {
			enabled = flag.Enabled
		}
	case errors.Is(err, domain.ErrSettingNotFound):
	default:
		logger.Log.Warn("read auto delete flag failed, using default", zap.Error(err))
	}

	s.mu.Lock()
	// SetAutoDelete 在讀取期間寫入的值比較新
	if !s.cached || !s.cachedAt.After(now) {
		s.autoDelete, s.cachedAt, s.cached = enabled, now, true
	} else {
		enabled = s.autoDelete
	}
	s.mu.Unlock()
	return enabled
}

// SetAutoDelete store the flag and refresh the cache
func (s *SettingsUseCase) SetAutoDelete(ctx context.Context, enabled bool) error {
	if err := s.repo.Set(ctx, domain.AutoDeleteSettingKey, domain.AutoDeleteFlag{Enabled: enabled}); err != nil {
		return err
	}

	s.mu.Lock()
	s.autoDelete, s.cachedAt, s.cached = enabled, s.now(), true
	s.mu.Unlock()
	return nil
}
