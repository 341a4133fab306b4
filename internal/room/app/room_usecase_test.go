package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"voicelink_service/internal/room/domain"
	"voicelink_service/internal/room/repository"
	"voicelink_service/pkg/config"
	"voicelink_service/pkg/limiter"
	"voicelink_service/pkg/logger"
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2024, 5, 2, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type roomEnv struct {
	uc       *RoomUseCase
	rooms    repository.RoomRepository
	settings *SettingsUseCase
	relay    *SignalRelay
	events   *MockEventPublisher
	clock    *testClock
}

func newRoomEnv(t *testing.T) *roomEnv {
	t.Helper()
	return buildRoomEnv()
}

func buildRoomEnv() *roomEnv {
	logger.SetNewNop()

	clock := newTestClock()
	rooms := repository.NewMemoryRoomRepository()
	settings := NewSettingsUseCase(repository.NewMemorySettingsRepository(), true, clock.Now)
	rules, fallback := DefaultRateRules()
	rate := limiter.NewManager(limiter.NewMemoryFixedWindow(clock.Now), rules, fallback)

	events := new(MockEventPublisher)
	events.On("Publish", mock.Anything, mock.Anything).Return(nil)

	opts := DefaultRoomOptions()
	opts.Now = clock.Now
	relay := NewSignalRelayFor(opts)

	return &roomEnv{
		uc:       NewRoomUseCase(rooms, settings, relay, rate, events, opts),
		rooms:    rooms,
		settings: settings,
		relay:    relay,
		events:   events,
		clock:    clock,
	}
}

func (e *roomEnv) do(t *testing.T, req *domain.RoomRequest) (*domain.RoomResponse, error) {
	t.Helper()
	return e.handle(req)
}

func (e *roomEnv) handle(req *domain.RoomRequest) (*domain.RoomResponse, error) {
	return e.uc.Handle(context.Background(), req, "10.0.0.1")
}

func (e *roomEnv) eventTypes() []domain.EventType {
	var out []domain.EventType
	for _, call := range e.events.Calls {
		if call.Method == "Publish" {
			out = append(out, call.Arguments.Get(1).(domain.RoomEvent).Type)
		}
	}
	return out
}

func joinReq(roomID, userID string) *domain.RoomRequest {
	return &domain.RoomRequest{
		Action:         domain.ActionJoin,
		RoomID:         roomID,
		UserID:         userID,
		UserName:       userID,
		SourceLanguage: "en",
		TargetLanguage: "zh",
	}
}

func pollReq(roomID, userID, since string) *domain.RoomRequest {
	return &domain.RoomRequest{Action: domain.ActionPoll, RoomID: roomID, UserID: userID, Since: since}
}

func userIDs(users []domain.User) []string {
	ids := make([]string, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	return ids
}

func TestRoomUseCase_UnknownAction(t *testing.T) {
	env := newRoomEnv(t)
	_, err := env.do(t, &domain.RoomRequest{Action: "dance", RoomID: "r1"})
	assert.ErrorIs(t, err, domain.ErrUnknownAction)

	_, err = env.do(t, &domain.RoomRequest{Action: domain.ActionJoin, RoomID: "r1"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRoomUseCase_Inspect(t *testing.T) {
	env := newRoomEnv(t)

	resp, err := env.do(t, &domain.RoomRequest{Action: domain.ActionInspect, RoomID: "r1"})
	require.NoError(t, err)
	assert.False(t, *resp.Exists)
	assert.Nil(t, resp.Settings)

	_, err = env.do(t, joinReq("r1", "ann"))
	require.NoError(t, err)

	resp, err = env.do(t, &domain.RoomRequest{Action: domain.ActionInspect, RoomID: "r1"})
	require.NoError(t, err)
	assert.True(t, *resp.Exists)
	require.NotNil(t, resp.Settings)
	assert.Equal(t, "ann", resp.Settings.AdminUserID)
	assert.Equal(t, domain.JoinModePublic, resp.Settings.JoinMode)
}

func TestRoomUseCase_JoinIdempotent(t *testing.T) {
	env := newRoomEnv(t)

	_, err := env.do(t, joinReq("r1", "ann"))
	require.NoError(t, err)

	again := joinReq("r1", "ann")
	again.UserName = "Ann Lee"
	again.TargetLanguage = "ja"
	resp, err := env.do(t, again)
	require.NoError(t, err)

	require.Len(t, resp.Room.Users, 1)
	assert.Equal(t, "Ann Lee", resp.Room.Users[0].Name)
	assert.Equal(t, "ja", resp.Room.Users[0].TargetLanguage)
	assert.Equal(t, domain.FormatTimestamp(env.clock.Now()), resp.Room.Users[0].LastSeenAt)

	t.Run("沒帶 avatar 保留原本的", func(t *testing.T) {
		avatar := "https://cdn.example.com/a.png"
		req := joinReq("r1", "ann")
		req.Avatar = &avatar
		_, err := env.do(t, req)
		require.NoError(t, err)

		resp, err := env.do(t, joinReq("r1", "ann"))
		require.NoError(t, err)
		assert.Equal(t, avatar, resp.User.Avatar)
	})
}

func TestRoomUseCase_SingleAccountEviction(t *testing.T) {
	env := newRoomEnv(t)
	ctx := context.Background()

	_, err := env.do(t, joinReq("r1", "acct:sessionA"))
	require.NoError(t, err)
	_, err = env.do(t, joinReq("r1", "bob"))
	require.NoError(t, err)

	resp, err := env.do(t, joinReq("r1", "acct:sessionB"))
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"bob", "acct:sessionB"}, userIDs(resp.Room.Users))
	assert.Equal(t, "acct:sessionB", resp.Settings.AdminUserID)

	data, err := env.rooms.GetRoom(ctx, "r1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"bob", "acct:sessionB"}, userIDs(data.Users))

	phase, err := env.settings.LoadRoomPhase(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "acct:sessionB", phase.Summary().AdminUserID)
	assert.Contains(t, env.eventTypes(), domain.EventUserEvicted)

	t.Run("非管理員的舊 session 被踢不影響管理員", func(t *testing.T) {
		_, err := env.do(t, joinReq("r1", "bob:2"))
		require.NoError(t, err)
		resp, err := env.do(t, joinReq("r1", "bob:3"))
		require.NoError(t, err)

		assert.NotContains(t, userIDs(resp.Room.Users), "bob:2")
		assert.Equal(t, "acct:sessionB", resp.Settings.AdminUserID)
	})
}

func TestRoomUseCase_PasswordRoundTrip(t *testing.T) {
	env := newRoomEnv(t)

	create := joinReq("r1", "owner:1")
	create.CreateJoinMode = string(domain.JoinModePassword)
	create.CreatePassword = "x"
	resp, err := env.do(t, create)
	require.NoError(t, err)
	assert.Equal(t, domain.JoinModePassword, resp.Settings.JoinMode)
	assert.Equal(t, "owner:1", resp.Settings.AdminUserID)

	body, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.NotContains(t, string(body), "passwordHash")
	assert.NotContains(t, string(body), "passwordSalt")

	t.Run("密碼正確可以加入", func(t *testing.T) {
		req := joinReq("r1", "guest")
		req.JoinPassword = "x"
		_, err := env.do(t, req)
		assert.NoError(t, err)
	})

	t.Run("密碼錯誤", func(t *testing.T) {
		req := joinReq("r1", "intruder")
		req.JoinPassword = "y"
		_, err := env.do(t, req)
		assert.ErrorIs(t, err, domain.ErrInvalidPassword)
	})

	t.Run("沒帶密碼", func(t *testing.T) {
		_, err := env.do(t, joinReq("r1", "intruder"))
		assert.ErrorIs(t, err, domain.ErrPasswordRequired)
	})

	t.Run("管理員同帳號的新 session 沒帶密碼也要拒絕", func(t *testing.T) {
		_, err := env.do(t, joinReq("r1", "owner:attacker"))
		assert.ErrorIs(t, err, domain.ErrPasswordRequired)

		// 驗證失敗不會踢掉任何人
		data, err := env.rooms.GetRoom(context.Background(), "r1")
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"owner:1", "guest"}, userIDs(data.Users))
		phase, err := env.settings.LoadRoomPhase(context.Background(), "r1")
		require.NoError(t, err)
		assert.Equal(t, "owner:1", phase.Summary().AdminUserID)
	})

	t.Run("管理員本人重新加入也要密碼", func(t *testing.T) {
		_, err := env.do(t, joinReq("r1", "owner:1"))
		assert.ErrorIs(t, err, domain.ErrPasswordRequired)
	})

	t.Run("管理員同帳號的新 session 密碼正確就接手管理員", func(t *testing.T) {
		req := joinReq("r1", "owner:2")
		req.JoinPassword = "x"
		resp, err := env.do(t, req)
		require.NoError(t, err)
		assert.Equal(t, "owner:2", resp.Settings.AdminUserID)
		assert.ElementsMatch(t, []string{"guest", "owner:2"}, userIDs(resp.Room.Users))
	})

	t.Run("只給 createPassword 也是密碼房", func(t *testing.T) {
		req := joinReq("r2", "owner:1")
		req.CreatePassword = "secret"
		resp, err := env.do(t, req)
		require.NoError(t, err)
		assert.Equal(t, domain.JoinModePassword, resp.Settings.JoinMode)
	})

	t.Run("密碼房沒有密碼無法建立", func(t *testing.T) {
		req := joinReq("r3", "owner:1")
		req.CreateJoinMode = string(domain.JoinModePassword)
		_, err := env.do(t, req)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestRoomUseCase_PresenceTTL(t *testing.T) {
	env := newRoomEnv(t)

	_, err := env.do(t, joinReq("r1", "ann"))
	require.NoError(t, err)
	_, err = env.do(t, joinReq("r1", "bob"))
	require.NoError(t, err)

	env.clock.Advance(121 * time.Second)

	resp, err := env.do(t, pollReq("r1", "ann", ""))
	require.NoError(t, err)
	assert.Equal(t, []string{"ann"}, userIDs(resp.Room.Users))
	assert.Equal(t, domain.FormatTimestamp(env.clock.Now()), resp.Room.Users[0].LastSeenAt)

	data, err := env.rooms.GetRoom(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, []string{"ann"}, userIDs(data.Users))
	assert.Contains(t, env.eventTypes(), domain.EventUserLeft)
}

func TestRoomUseCase_PollMessagesSince(t *testing.T) {
	env := newRoomEnv(t)
	base := env.clock.Now()

	_, err := env.do(t, joinReq("r1", "ann"))
	require.NoError(t, err)

	for i := 1; i <= 3; i++ {
		_, err := env.do(t, &domain.RoomRequest{
			Action: domain.ActionMessage,
			RoomID: "r1",
			Message: &domain.Message{
				ID:               fmt.Sprintf("m%d", i),
				UserID:           "ann",
				UserName:         "Ann",
				OriginalText:     "hello",
				OriginalLanguage: "en",
				Timestamp:        domain.FormatTimestamp(base.Add(time.Duration(i) * time.Second)),
			},
		})
		require.NoError(t, err)
	}

	resp, err := env.do(t, pollReq("r1", "ann", domain.FormatTimestamp(base.Add(1500*time.Millisecond))))
	require.NoError(t, err)
	require.Len(t, resp.Room.Messages, 2)
	assert.Equal(t, "m2", resp.Room.Messages[0].ID)
	assert.Equal(t, "m3", resp.Room.Messages[1].ID)
	assert.NotNil(t, resp.Settings)

	t.Run("兩秒內再 poll 被節流", func(t *testing.T) {
		_, err := env.do(t, pollReq("r1", "ann", ""))
		var throttle *domain.ThrottleError
		require.ErrorAs(t, err, &throttle)
		assert.Equal(t, 2*time.Second, throttle.RetryAfter)
	})

	t.Run("since 無法解析就全部回傳", func(t *testing.T) {
		env.clock.Advance(2 * time.Second)
		resp, err := env.do(t, pollReq("r1", "ann", "yesterday"))
		require.NoError(t, err)
		assert.Len(t, resp.Room.Messages, 3)
	})
}

func TestRoomUseCase_PollMissingRoom(t *testing.T) {
	env := newRoomEnv(t)
	_, err := env.do(t, pollReq("nope", "ann", ""))
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)
}

func TestRoomUseCase_RateLimit(t *testing.T) {
	env := newRoomEnv(t)
	_, err := env.do(t, joinReq("r1", "ann"))
	require.NoError(t, err)

	var rateErr *domain.RateLimitError
	for i := 1; i <= 120; i++ {
		_, err := env.do(t, pollReq("r1", "ann", ""))
		require.False(t, errors.As(err, &rateErr), "poll %d should pass the rate limiter", i)
	}

	_, err = env.do(t, pollReq("r1", "ann", ""))
	require.ErrorAs(t, err, &rateErr)
	assert.Equal(t, domain.ActionPoll, rateErr.Action)
	assert.Equal(t, 120, rateErr.Limit)
	assert.Greater(t, rateErr.RetryAfter, time.Duration(0))

	t.Run("其他使用者不受影響", func(t *testing.T) {
		_, err := env.do(t, pollReq("r1", "bob", ""))
		assert.False(t, errors.As(err, &rateErr))
	})

	t.Run("窗口過後重新計數", func(t *testing.T) {
		env.clock.Advance(61 * time.Second)
		_, err := env.do(t, pollReq("r1", "ann", ""))
		assert.NoError(t, err)
	})
}

func TestRoomUseCase_Kick(t *testing.T) {
	env := newRoomEnv(t)
	for _, id := range []string{"admin", "bob", "carl"} {
		_, err := env.do(t, joinReq("r1", id))
		require.NoError(t, err)
	}

	kick := func(by, target string) error {
		_, err := env.do(t, &domain.RoomRequest{Action: domain.ActionKick, RoomID: "r1", UserID: by, TargetUserID: target})
		return err
	}

	assert.ErrorIs(t, kick("bob", "carl"), domain.ErrNotAdmin)
	assert.ErrorIs(t, kick("admin", "admin"), domain.ErrCannotKickSelf)
	require.NoError(t, kick("admin", "bob"))

	data, err := env.rooms.GetRoom(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, []string{"admin", "carl"}, userIDs(data.Users))
	assert.Contains(t, env.eventTypes(), domain.EventUserKicked)

	t.Run("房間沒有設定時不能踢人", func(t *testing.T) {
		_, err := env.do(t, &domain.RoomRequest{Action: domain.ActionKick, RoomID: "other", UserID: "admin", TargetUserID: "bob"})
		assert.ErrorIs(t, err, domain.ErrNotAdmin)
	})
}

func TestRoomUseCase_Leave(t *testing.T) {
	env := newRoomEnv(t)
	_, err := env.do(t, joinReq("r1", "ann"))
	require.NoError(t, err)

	_, err = env.do(t, &domain.RoomRequest{Action: domain.ActionLeave, RoomID: "r1", UserID: "ann"})
	require.NoError(t, err)

	data, err := env.rooms.GetRoom(context.Background(), "r1")
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestRoomUseCase_UpdateMember(t *testing.T) {
	env := newRoomEnv(t)
	_, err := env.do(t, joinReq("r1", "ann"))
	require.NoError(t, err)
	env.clock.Advance(5 * time.Second)

	resp, err := env.do(t, &domain.RoomRequest{
		Action: domain.ActionUpdateLanguage, RoomID: "r1", UserID: "ann",
		SourceLanguage: "ja", TargetLanguage: "ko",
	})
	require.NoError(t, err)
	assert.Equal(t, "ja", resp.User.SourceLanguage)
	assert.Equal(t, "ko", resp.User.TargetLanguage)
	assert.Equal(t, domain.FormatTimestamp(env.clock.Now()), resp.User.LastSeenAt)

	avatar := "https://cdn.example.com/ann.png"
	resp, err = env.do(t, &domain.RoomRequest{Action: domain.ActionUpdateUser, RoomID: "r1", UserID: "ann", Avatar: &avatar})
	require.NoError(t, err)
	assert.Equal(t, "ann", resp.User.Name)
	assert.Equal(t, avatar, resp.User.Avatar)
	assert.Equal(t, "ja", resp.User.SourceLanguage)

	t.Run("不是成員", func(t *testing.T) {
		_, err := env.do(t, &domain.RoomRequest{Action: domain.ActionUpdateUser, RoomID: "r1", UserID: "bob", UserName: "Bob"})
		assert.ErrorIs(t, err, domain.ErrUserNotFound)
	})

	t.Run("房間不存在", func(t *testing.T) {
		_, err := env.do(t, &domain.RoomRequest{Action: domain.ActionUpdateUser, RoomID: "nope", UserID: "bob", UserName: "Bob"})
		assert.ErrorIs(t, err, domain.ErrRoomNotFound)
	})
}

func TestRoomUseCase_UpdateSettings(t *testing.T) {
	env := newRoomEnv(t)
	ctx := context.Background()
	_, err := env.do(t, joinReq("r1", "admin"))
	require.NoError(t, err)
	_, err = env.do(t, joinReq("r1", "bob"))
	require.NoError(t, err)

	update := func(by, mode, password string) (*domain.RoomResponse, error) {
		return env.do(t, &domain.RoomRequest{
			Action: domain.ActionUpdateSettings, RoomID: "r1", UserID: by, JoinMode: mode, Password: password,
		})
	}

	_, err = update("bob", "password", "pw")
	assert.ErrorIs(t, err, domain.ErrNotAdmin)

	_, err = update("admin", "password", "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "沒有舊密碼時必須給密碼")

	resp, err := update("admin", "password", "pw")
	require.NoError(t, err)
	assert.Equal(t, domain.JoinModePassword, resp.Settings.JoinMode)

	phase, _ := env.settings.LoadRoomPhase(ctx, "r1")
	before, _ := phase.Settings()

	t.Run("不給新密碼保留舊 hash", func(t *testing.T) {
		_, err := update("admin", "password", "")
		require.NoError(t, err)
		phase, _ := env.settings.LoadRoomPhase(ctx, "r1")
		after, _ := phase.Settings()
		assert.Equal(t, before.PasswordHash, after.PasswordHash)

		req := joinReq("r1", "carl")
		req.JoinPassword = "pw"
		_, err = env.do(t, req)
		assert.NoError(t, err)
	})

	t.Run("改回公開清掉密碼", func(t *testing.T) {
		_, err := update("admin", "public", "")
		require.NoError(t, err)
		phase, _ := env.settings.LoadRoomPhase(ctx, "r1")
		after, _ := phase.Settings()
		assert.False(t, after.HasPassword())
	})

	t.Run("未初始化的房間", func(t *testing.T) {
		_, err := env.do(t, &domain.RoomRequest{Action: domain.ActionUpdateSettings, RoomID: "none", UserID: "admin", JoinMode: "public"})
		assert.ErrorIs(t, err, domain.ErrRoomNotFound)
	})
}

func TestRoomUseCase_Message(t *testing.T) {
	env := newRoomEnv(t)

	msg := &domain.Message{
		ID: "m1", UserID: "ann", UserName: "Ann", OriginalText: "hi", OriginalLanguage: "en",
		Timestamp: domain.FormatTimestamp(env.clock.Now()),
	}
	_, err := env.do(t, &domain.RoomRequest{Action: domain.ActionMessage, RoomID: "r1", Message: msg})
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)

	_, err = env.do(t, joinReq("r1", "ann"))
	require.NoError(t, err)

	resp, err := env.do(t, &domain.RoomRequest{Action: domain.ActionMessage, RoomID: "r1", Message: msg})
	require.NoError(t, err)
	assert.Equal(t, "m1", resp.Message.ID)
	assert.Contains(t, env.eventTypes(), domain.EventMessageSent)

	t.Run("data uri 的 audioUrl 被拒絕", func(t *testing.T) {
		bad := *msg
		bad.AudioURL = "data:audio/webm;base64,AAAA"
		_, err := env.do(t, &domain.RoomRequest{Action: domain.ActionMessage, RoomID: "r1", Message: &bad})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestRoomUseCase_Signal(t *testing.T) {
	env := newRoomEnv(t)
	_, err := env.do(t, joinReq("r1", "ann"))
	require.NoError(t, err)
	_, err = env.do(t, joinReq("r1", "bob"))
	require.NoError(t, err)

	env.clock.Advance(20 * time.Second)

	resp, err := env.do(t, &domain.RoomRequest{
		Action: domain.ActionSignal, RoomID: "r1", UserID: "ann", ToUserID: "bob",
		Payload: json.RawMessage(`{"type":"offer"}`),
	})
	require.NoError(t, err)
	assert.Empty(t, resp.Signals)

	data, _ := env.rooms.GetRoom(context.Background(), "r1")
	ann, _ := data.FindUser("ann")
	assert.Equal(t, domain.FormatTimestamp(env.clock.Now()), ann.LastSeenAt, "送訊號順便更新 heartbeat")

	resp, err = env.do(t, pollReq("r1", "bob", ""))
	require.NoError(t, err)
	require.Len(t, resp.Signals, 1)
	assert.Equal(t, "ann", resp.Signals[0].From)

	t.Run("回覆時帶回寄給自己的訊號", func(t *testing.T) {
		env.relay.Enqueue("r1", "bob", "ann", json.RawMessage(`{"type":"ice"}`))
		resp, err := env.do(t, &domain.RoomRequest{
			Action: domain.ActionSignal, RoomID: "r1", UserID: "bob", ToUserID: "ann",
			Payload: json.RawMessage(`{"type":"answer"}`),
		})
		require.NoError(t, err)
		require.Len(t, resp.Signals, 1)
		assert.JSONEq(t, `{"type":"ice"}`, string(resp.Signals[0].Payload))
	})

	t.Run("payload 必須是 JSON", func(t *testing.T) {
		_, err := env.do(t, &domain.RoomRequest{
			Action: domain.ActionSignal, RoomID: "r1", UserID: "bob", ToUserID: "ann",
			Payload: json.RawMessage(`{oops`),
		})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestRoomUseCase_Expiry(t *testing.T) {
	env := newRoomEnv(t)
	ctx := context.Background()

	_, err := env.do(t, joinReq("r1", "ann"))
	require.NoError(t, err)

	env.clock.Advance(25 * time.Hour)

	_, err = env.do(t, &domain.RoomRequest{Action: domain.ActionLeave, RoomID: "r1", UserID: "ann"})
	require.ErrorIs(t, err, domain.ErrRoomExpired)

	room, err := env.rooms.FindRoom(ctx, "r1")
	require.NoError(t, err)
	assert.Nil(t, room)

	phase, err := env.settings.LoadRoomPhase(ctx, "r1")
	require.NoError(t, err)
	assert.False(t, phase.IsActive())
	assert.Contains(t, env.eventTypes(), domain.EventRoomExpired)

	t.Run("關閉自動刪除就不過期", func(t *testing.T) {
		_, err := env.do(t, joinReq("r2", "ann"))
		require.NoError(t, err)
		require.NoError(t, env.settings.SetAutoDelete(ctx, false))

		env.clock.Advance(25 * time.Hour)
		_, err = env.do(t, pollReq("r2", "ann", ""))
		assert.NoError(t, err)
	})
}

func TestRoomUseCase_Sweep(t *testing.T) {
	env := newRoomEnv(t)
	ctx := context.Background()

	for _, id := range []string{"old-1", "old-2"} {
		_, err := env.do(t, joinReq(id, "ann"))
		require.NoError(t, err)
	}
	env.relay.Enqueue("old-1", "bob", "ann", json.RawMessage(`{}`))

	env.clock.Advance(25 * time.Hour)

	// 其他房間的 request 也會觸發清理
	_, err := env.do(t, &domain.RoomRequest{Action: domain.ActionInspect, RoomID: "fresh"})
	require.NoError(t, err)

	for _, id := range []string{"old-1", "old-2"} {
		room, err := env.rooms.FindRoom(ctx, id)
		require.NoError(t, err)
		assert.Nil(t, room, id)
	}
	assert.Equal(t, 0, env.relay.Pending("old-1"))
}

func TestRoomUseCase_DatabaseNotReady(t *testing.T) {
	logger.SetNewNop()
	repo := new(MockRoomRepository)
	repo.On("Ready", mock.Anything).Return(errors.New("dial tcp: timeout"))

	settings := NewSettingsUseCase(repository.NewMemorySettingsRepository(), true, nil)
	uc := NewRoomUseCase(repo, settings, NewSignalRelay(0, nil), nil, nil, RoomOptions{})

	_, err := uc.Handle(context.Background(), joinReq("r1", "ann"), "10.0.0.1")
	assert.ErrorIs(t, err, domain.ErrDatabaseNotReady)
	repo.AssertNotCalled(t, "JoinRoom", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRoomUseCase_PollBestEffort(t *testing.T) {
	logger.SetNewNop()
	clock := newTestClock()
	now := clock.Now()

	repo := new(MockRoomRepository)
	repo.On("Ready", mock.Anything).Return(nil)
	repo.On("FindRoom", mock.Anything, "r1").Return(&domain.Room{ID: "r1", CreatedAt: now, LastActivityAt: now}, nil)
	repo.On("DeleteExpiredRooms", mock.Anything, mock.Anything).Return([]string{}, nil)
	repo.On("GetRoom", mock.Anything, "r1").Return(&domain.RoomData{
		ID: "r1",
		Users: []domain.User{
			{ID: "ann", LastSeenAt: domain.FormatTimestamp(now.Add(-20 * time.Second))},
			{ID: "bob", LastSeenAt: "not a time"},
			{ID: "gone", LastSeenAt: domain.FormatTimestamp(now.Add(-10 * time.Minute))},
		},
		Messages: []domain.Message{},
	}, nil)
	repo.On("UpsertUser", mock.Anything, "r1", mock.Anything).Return(errors.New("write conflict"))
	repo.On("LeaveRoom", mock.Anything, "r1", "gone").Return(errors.New("write conflict"))

	settings := NewSettingsUseCase(repository.NewMemorySettingsRepository(), true, clock.Now)
	opts := DefaultRoomOptions()
	opts.Now = clock.Now
	uc := NewRoomUseCase(repo, settings, NewSignalRelay(0, clock.Now), nil, nil, opts)

	resp, err := uc.Handle(context.Background(), pollReq("r1", "ann", ""), "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, []string{"ann", "bob"}, userIDs(resp.Room.Users))
	assert.Equal(t, domain.FormatTimestamp(now), resp.Room.Users[1].LastSeenAt)

	repo.AssertNumberOfCalls(t, "UpsertUser", 2)
	repo.AssertCalled(t, "LeaveRoom", mock.Anything, "r1", "gone")
}

func TestRoomOptionsFromConfig(t *testing.T) {
	t.Run("沒設定時用預設值", func(t *testing.T) {
		opts := RoomOptionsFromConfig(config.RoomTunables{})
		assert.Equal(t, 60*time.Second, opts.SignalTTL)
		assert.Equal(t, 120*time.Second, opts.PresenceTTL)
		assert.Equal(t, 24*time.Hour, opts.RoomTTL)
	})

	t.Run("yaml 覆寫", func(t *testing.T) {
		opts := RoomOptionsFromConfig(config.RoomTunables{SignalTTL: 30 * time.Second, PresenceTTL: time.Minute, MessageLimit: 10})
		assert.Equal(t, 30*time.Second, opts.SignalTTL)
		assert.Equal(t, time.Minute, opts.PresenceTTL)
		assert.Equal(t, 10, opts.MessageLimit)
	})
}

func TestNewSignalRelayFor_SignalTTL(t *testing.T) {
	clock := newTestClock()
	opts := RoomOptionsFromConfig(config.RoomTunables{PresenceTTL: 120 * time.Second})
	opts.Now = clock.Now
	relay := NewSignalRelayFor(opts)

	relay.Enqueue("r1", "bob", "ann", json.RawMessage(`{"type":"offer"}`))
	relay.Enqueue("r1", "carl", "ann", json.RawMessage(`{"type":"offer"}`))

	clock.Advance(59 * time.Second)
	assert.Len(t, relay.Collect("r1", "carl"), 1, "60 秒內仍可取得")

	clock.Advance(31 * time.Second)
	assert.Empty(t, relay.Collect("r1", "bob"), "超過 60 秒就丟掉，不跟 presence TTL")
}

func TestRoomUseCase_EvictionBestEffort(t *testing.T) {
	logger.SetNewNop()
	clock := newTestClock()
	now := clock.Now()

	repo := new(MockRoomRepository)
	repo.On("Ready", mock.Anything).Return(nil)
	repo.On("FindRoom", mock.Anything, "r1").Return(&domain.Room{ID: "r1", CreatedAt: now, LastActivityAt: now}, nil)
	repo.On("DeleteExpiredRooms", mock.Anything, mock.Anything).Return([]string{}, nil)
	repo.On("GetRoom", mock.Anything, "r1").Return(&domain.RoomData{
		ID:       "r1",
		Users:    []domain.User{{ID: "acct:old", Name: "old"}},
		Messages: []domain.Message{},
	}, nil)
	repo.On("JoinRoom", mock.Anything, "r1", mock.Anything, now).Return(&domain.RoomData{
		ID:       "r1",
		Users:    []domain.User{{ID: "acct:old", Name: "old"}, {ID: "acct:new", Name: "new"}},
		Messages: []domain.Message{},
	}, nil)
	repo.On("LeaveRoom", mock.Anything, "r1", "acct:old").Return(errors.New("write conflict"))

	settings := NewSettingsUseCase(repository.NewMemorySettingsRepository(), true, clock.Now)
	opts := DefaultRoomOptions()
	opts.Now = clock.Now
	events := new(MockEventPublisher)
	events.On("Publish", mock.Anything, mock.Anything).Return(nil)
	uc := NewRoomUseCase(repo, settings, NewSignalRelayFor(opts), nil, events, opts)

	resp, err := uc.Handle(context.Background(), joinReq("r1", "acct:new"), "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, []string{"acct:new"}, userIDs(resp.Room.Users))
	repo.AssertCalled(t, "LeaveRoom", mock.Anything, "r1", "acct:old")

	for _, call := range events.Calls {
		assert.NotEqual(t, domain.EventUserEvicted, call.Arguments.Get(1).(domain.RoomEvent).Type)
	}
}
