package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// JoinMode 決定加入房間的條件
type JoinMode string

const (
	// JoinModePublic anyone may join
	JoinModePublic JoinMode = "public"
	// JoinModePassword joiners must supply the room password
	JoinModePassword JoinMode = "password"
)

// AutoDeleteSettingKey global flag: delete rooms idle for more than 24h
const AutoDeleteSettingKey = "rooms:auto_delete_after_24h"

// RoomSettingsKey settings key of a room
func RoomSettingsKey(roomID string) string {
	return fmt.Sprintf("room:%s:settings", roomID)
}

// ParseJoinMode parse a join mode string
func ParseJoinMode(raw string) (JoinMode, bool) {
	switch JoinMode(raw) {
	case JoinModePublic:
		return JoinModePublic, true
	case JoinModePassword:
		return JoinModePassword, true
	}
	return "", false
}

// RoomSettings 房間的管理員與加入方式
type RoomSettings struct {
	AdminUserID  string   `json:"adminUserId"`
	JoinMode     JoinMode `json:"joinMode"`
	PasswordSalt string   `json:"passwordSalt,omitempty"`
	PasswordHash string   `json:"passwordHash,omitempty"`
	UpdatedAt    string   `json:"updatedAt"`
}

// Validate password mode always carries both salt and hash
func (s *RoomSettings) Validate() error {
	if s.AdminUserID == "" {
		return fmt.Errorf("%w: adminUserId is empty", ErrMalformedSettings)
	}
	switch s.JoinMode {
	case JoinModePublic:
	case JoinModePassword:
		if s.PasswordSalt == "" || s.PasswordHash == "" {
			return fmt.Errorf("%w: password mode without salt/hash", ErrMalformedSettings)
		}
	default:
		return fmt.Errorf("%w: unknown join mode %q", ErrMalformedSettings, s.JoinMode)
	}
	return nil
}

// HasPassword report whether a password hash is stored
func (s *RoomSettings) HasPassword() bool {
	return s.PasswordSalt != "" && s.PasswordHash != ""
}

// Summary settings visible to clients, never password material
func (s *RoomSettings) Summary() *SettingsSummary {
	return &SettingsSummary{AdminUserID: s.AdminUserID, JoinMode: s.JoinMode}
}

// DecodeRoomSettings decode and validate a stored settings value
func DecodeRoomSettings(raw []byte) (*RoomSettings, error) {
	var s RoomSettings
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSettings, err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// SettingsSummary 回傳給 client 的設定摘要
type SettingsSummary struct {
	AdminUserID string   `json:"adminUserId"`
	JoinMode    JoinMode `json:"joinMode"`
}

// RoomPhase 房間只有兩個狀態：尚未初始化 / 已有設定
type RoomPhase struct {
	settings *RoomSettings
}

// Uninitialized room without settings
func Uninitialized() RoomPhase {
	return RoomPhase{}
}

// Active room with settings
func Active(s *RoomSettings) RoomPhase {
	return RoomPhase{settings: s}
}

// Settings returns the settings and true when the room is active
func (p RoomPhase) Settings() (*RoomSettings, bool) {
	return p.settings, p.settings != nil
}

// IsActive report whether settings exist
func (p RoomPhase) IsActive() bool {
	return p.settings != nil
}

// Summary nil for an uninitialized room
func (p RoomPhase) Summary() *SettingsSummary {
	if p.settings == nil {
		return nil
	}
	return p.settings.Summary()
}

// AutoDeleteFlag stored as `true|false` or `{"enabled": bool}`
type AutoDeleteFlag struct {
	Enabled bool `json:"enabled"`
}

// DecodeAutoDeleteFlag accept both shapes of the stored flag
func DecodeAutoDeleteFlag(raw []byte) (AutoDeleteFlag, error) {
	trimmed := bytes.TrimSpace(raw)

	var b bool
	if err := json.Unmarshal(trimmed, &b); err == nil {
		return AutoDeleteFlag{Enabled: b}, nil
	}

	var obj struct {
		Enabled *bool `json:"enabled"`
	}
	if err := json.Unmarshal(trimmed, &obj); err != nil || obj.Enabled == nil {
		return AutoDeleteFlag{}, fmt.Errorf("%w: auto delete flag %s", ErrMalformedSettings, string(trimmed))
	}
	return AutoDeleteFlag{Enabled: *obj.Enabled}, nil
}

// NewRoomSettings build settings stamped with now
func NewRoomSettings(adminUserID string, mode JoinMode, salt, hash string, now time.Time) *RoomSettings {
	return &RoomSettings{
		AdminUserID:  adminUserID,
		JoinMode:     mode,
		PasswordSalt: salt,
		PasswordHash: hash,
		UpdatedAt:    FormatTimestamp(now),
	}
}
