package domain

import (
	"encoding/json"
	"strings"
)

// Action room action tag
type Action string

// 所有 /api/rooms 支援的 action
const (
	ActionInspect        Action = "inspect"
	ActionJoin           Action = "join"
	ActionLeave          Action = "leave"
	ActionKick           Action = "kick"
	ActionUpdateLanguage Action = "update_language"
	ActionUpdateUser     Action = "update_user"
	ActionMessage        Action = "message"
	ActionSignal         Action = "signal"
	ActionPoll           Action = "poll"
	ActionUpdateSettings Action = "update_settings"
)

// Known report whether the action is supported
func (a Action) Known() bool {
	switch a {
	case ActionInspect, ActionJoin, ActionLeave, ActionKick, ActionUpdateLanguage,
		ActionUpdateUser, ActionMessage, ActionSignal, ActionPoll, ActionUpdateSettings:
		return true
	}
	return false
}

// RoomRequest body of POST /api/rooms
type RoomRequest struct {
	Action         Action          `json:"action"`
	RoomID         string          `json:"roomId"`
	UserID         string          `json:"userId,omitempty"`
	UserName       string          `json:"userName,omitempty"`
	SourceLanguage string          `json:"sourceLanguage,omitempty"`
	TargetLanguage string          `json:"targetLanguage,omitempty"`
	Avatar         *string         `json:"avatar,omitempty"`
	JoinPassword   string          `json:"joinPassword,omitempty"`
	CreateJoinMode string          `json:"createJoinMode,omitempty"`
	CreatePassword string          `json:"createPassword,omitempty"`
	TargetUserID   string          `json:"targetUserId,omitempty"`
	ToUserID       string          `json:"toUserId,omitempty"`
	Payload        json.RawMessage `json:"payload,omitempty"`
	Message        *Message        `json:"message,omitempty"`
	Since          string          `json:"since,omitempty"`
	JoinMode       string          `json:"joinMode,omitempty"`
	Password       string          `json:"password,omitempty"`
}

// Validate per-action required fields, no store access
func (r *RoomRequest) Validate() error {
	if !r.Action.Known() {
		return NewValidationError("unknown action")
	}
	if strings.TrimSpace(r.RoomID) == "" {
		return NewValidationError("roomId is required")
	}

	need := func(name, value string) error {
		if strings.TrimSpace(value) == "" {
			return NewValidationError(name + " is required")
		}
		return nil
	}

	switch r.Action {
	case ActionInspect:
		return nil
	case ActionJoin:
		for _, f := range [][2]string{
			{"userId", r.UserID},
			{"userName", r.UserName},
			{"sourceLanguage", r.SourceLanguage},
			{"targetLanguage", r.TargetLanguage},
		} {
			if err := need(f[0], f[1]); err != nil {
				return err
			}
		}
		if r.CreateJoinMode != "" {
			if _, ok := ParseJoinMode(r.CreateJoinMode); !ok {
				return NewValidationError("createJoinMode must be public or password")
			}
		}
		return nil
	case ActionLeave:
		return need("userId", r.UserID)
	case ActionKick:
		if err := need("userId", r.UserID); err != nil {
			return err
		}
		return need("targetUserId", r.TargetUserID)
	case ActionUpdateLanguage:
		if err := need("userId", r.UserID); err != nil {
			return err
		}
		if err := need("sourceLanguage", r.SourceLanguage); err != nil {
			return err
		}
		return need("targetLanguage", r.TargetLanguage)
	case ActionUpdateUser:
		if err := need("userId", r.UserID); err != nil {
			return err
		}
		if strings.TrimSpace(r.UserName) == "" && r.Avatar == nil {
			return NewValidationError("userName or avatar is required")
		}
		return nil
	case ActionMessage:
		if r.Message == nil {
			return NewValidationError("message is required")
		}
		return r.Message.Validate()
	case ActionSignal:
		if err := need("userId", r.UserID); err != nil {
			return err
		}
		if err := need("toUserId", r.ToUserID); err != nil {
			return err
		}
		if len(r.Payload) == 0 || string(r.Payload) == "null" {
			return NewValidationError("payload is required")
		}
		if !json.Valid(r.Payload) {
			return NewValidationError("payload must be valid JSON")
		}
		return nil
	case ActionPoll:
		return nil
	case ActionUpdateSettings:
		if err := need("userId", r.UserID); err != nil {
			return err
		}
		if _, ok := ParseJoinMode(r.JoinMode); !ok {
			return NewValidationError("joinMode must be public or password")
		}
		return nil
	}
	return nil
}

// RoomResponse body of every /api/rooms response
type RoomResponse struct {
	Success      bool             `json:"success"`
	Error        string           `json:"error,omitempty"`
	Exists       *bool            `json:"exists,omitempty"`
	Room         *RoomData        `json:"room,omitempty"`
	Settings     *SettingsSummary `json:"settings,omitempty"`
	User         *User            `json:"user,omitempty"`
	Message      *Message         `json:"message,omitempty"`
	Signals      []Signal         `json:"signals,omitempty"`
	Throttled    bool             `json:"throttled,omitempty"`
	RetryAfterMs int64            `json:"retryAfterMs,omitempty"`
}
