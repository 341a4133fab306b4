package domain

import (
	"strings"
)

// MaxAudioURLLength audioUrl 長度上限
const MaxAudioURLLength = 2048

// Message 表示一則已轉寫(可含翻譯)的語音訊息
type Message struct {
	ID               string `bson:"message_id" json:"id"`
	UserID           string `bson:"user_id" json:"userId"`
	UserName         string `bson:"user_name" json:"userName"`
	OriginalText     string `bson:"original_text" json:"originalText"`
	OriginalLanguage string `bson:"original_language" json:"originalLanguage"`
	Timestamp        string `bson:"timestamp" json:"timestamp"`
	AudioURL         string `bson:"audio_url,omitempty" json:"audioUrl,omitempty"`
	TranslatedText   string `bson:"translated_text,omitempty" json:"translatedText,omitempty"`
	TargetLanguage   string `bson:"target_language,omitempty" json:"targetLanguage,omitempty"`
}

// Validate check required fields and the audio url
func (m *Message) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"message.id", m.ID},
		{"message.userId", m.UserID},
		{"message.userName", m.UserName},
		{"message.originalText", m.OriginalText},
		{"message.originalLanguage", m.OriginalLanguage},
		{"message.timestamp", m.Timestamp},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return NewValidationError(f.name + " is required")
		}
	}

	if m.AudioURL != "" {
		if strings.HasPrefix(strings.ToLower(strings.TrimSpace(m.AudioURL)), "data:") {
			return NewValidationError("message.audioUrl must not be a data URI")
		}
		if len(m.AudioURL) > MaxAudioURLLength {
			return NewValidationError("message.audioUrl is too long")
		}
	}
	return nil
}

// MessagesSince 過濾出 timestamp 嚴格晚於 since 的訊息，並只保留最後 limit 筆。
// since 無法解析時不過濾。
func MessagesSince(messages []Message, since string, limit int) []Message {
	out := messages
	if sinceAt, ok := ParseTimestamp(since); ok {
		out = make([]Message, 0, len(messages))
		for _, m := range messages {
			at, ok := ParseTimestamp(m.Timestamp)
			if ok && at.After(sinceAt) {
				out = append(out, m)
			}
		}
	}

	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	if out == nil {
		out = []Message{}
	}
	return out
}
