package domain

import (
	"encoding/json"
	"time"
)

// SignalTypeCallCaption live caption payloads, only the latest per call is kept
const SignalTypeCallCaption = "call_caption"

// Signal definition peer to peer payload waiting in the relay
type Signal struct {
	From      string          `json:"from"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt string          `json:"createdAt"`
}

// PendingSignal relay entry
type PendingSignal struct {
	To        string
	From      string
	Payload   json.RawMessage
	CreatedAt time.Time

	// 非空代表 call_caption，用於合併
	CallID string
}

// CaptionCallID returns the callId of a call_caption payload, empty otherwise
func CaptionCallID(payload json.RawMessage) string {
	var head struct {
		Type   string `json:"type"`
		CallID string `json:"callId"`
	}
	if err := json.Unmarshal(payload, &head); err != nil {
		return ""
	}
	if head.Type != SignalTypeCallCaption {
		return ""
	}
	return head.CallID
}
