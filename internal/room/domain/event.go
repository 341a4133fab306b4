package domain

// EventType room event type
type EventType string

// room event types
const (
	EventUserJoined      EventType = "user_joined"
	EventUserLeft        EventType = "user_left"
	EventUserKicked      EventType = "user_kicked"
	EventUserEvicted     EventType = "user_evicted"
	EventMessageSent     EventType = "message_sent"
	EventRoomExpired     EventType = "room_expired"
	EventSettingsUpdated EventType = "settings_updated"
)

// RoomEvent published after a room state change
type RoomEvent struct {
	Type    EventType `json:"type"`
	RoomID  string    `json:"roomId"`
	UserID  string    `json:"userId,omitempty"`
	At      string    `json:"at"`
	Message *Message  `json:"message,omitempty"`
}
