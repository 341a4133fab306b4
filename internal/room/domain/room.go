package domain

import (
	"strings"
	"time"
)

// ISOLayout timestamps exchanged with clients (UTC, millisecond precision)
const ISOLayout = "2006-01-02T15:04:05.000Z07:00"

// Room definition room metadata used for expiry
type Room struct {
	ID             string    `bson:"_id" json:"id"`
	CreatedAt      time.Time `bson:"created_at" json:"createdAt"`
	LastActivityAt time.Time `bson:"last_activity_at" json:"lastActivityAt"`
}

// Expired reports whether the room has been idle for longer than ttl
func (r *Room) Expired(now time.Time, ttl time.Duration) bool {
	last := r.LastActivityAt
	if r.CreatedAt.After(last) {
		last = r.CreatedAt
	}
	return now.Sub(last) > ttl
}

// User definition room member
type User struct {
	ID             string `bson:"user_id" json:"id"`
	Name           string `bson:"name" json:"name"`
	SourceLanguage string `bson:"source_language" json:"sourceLanguage"`
	TargetLanguage string `bson:"target_language" json:"targetLanguage"`
	Avatar         string `bson:"avatar,omitempty" json:"avatar,omitempty"`
	LastSeenAt     string `bson:"last_seen_at" json:"lastSeenAt,omitempty"`
}

// AccountID 取 user id 最後一個冒號前的部分，沒有冒號就是整個 id
func (u *User) AccountID() string {
	return AccountID(u.ID)
}

// AccountID returns the account prefix of an `account:session` user id
func AccountID(userID string) string {
	if i := strings.LastIndex(userID, ":"); i > 0 {
		return userID[:i]
	}
	return userID
}

// LastSeen parse LastSeenAt, ok is false when it is missing or malformed
func (u *User) LastSeen() (time.Time, bool) {
	return ParseTimestamp(u.LastSeenAt)
}

// Touch set LastSeenAt to now
func (u *User) Touch(now time.Time) {
	u.LastSeenAt = FormatTimestamp(now)
}

// RoomData room snapshot, messages ordered oldest first
type RoomData struct {
	ID       string    `json:"id"`
	Users    []User    `json:"users"`
	Messages []Message `json:"messages"`
}

// FindUser find member by id
func (r *RoomData) FindUser(userID string) (*User, bool) {
	for i := range r.Users {
		if r.Users[i].ID == userID {
			return &r.Users[i], true
		}
	}
	return nil, false
}

// FormatTimestamp format t as an ISO-8601 UTC string
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(ISOLayout)
}

// ParseTimestamp parse an ISO-8601 string
func ParseTimestamp(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
