package app

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"voicelink_service/internal/room/domain"
	"voicelink_service/internal/room/repository"
	"voicelink_service/pkg"
	"voicelink_service/pkg/config"
	"voicelink_service/pkg/encrypt"
	"voicelink_service/pkg/limiter"
	"voicelink_service/pkg/logger"
)

// RoomOptions room coordination timings
type RoomOptions struct {
	PresenceTTL       time.Duration
	SignalTTL         time.Duration
	HeartbeatInterval time.Duration
	PollMinInterval   time.Duration
	RoomTTL           time.Duration
	SweepInterval     time.Duration
	ReadyTimeout      time.Duration
	MessageLimit      int

	SessionPolicy func() config.SessionPolicy
	Now           func() time.Time
}

// DefaultRoomOptions presence 120s, signal 60s, heartbeat 15s, poll spacing 2s, room ttl 24h
func DefaultRoomOptions() RoomOptions {
	return RoomOptions{
		PresenceTTL:       120 * time.Second,
		SignalTTL:         DefaultSignalTTL,
		HeartbeatInterval: 15 * time.Second,
		PollMinInterval:   2 * time.Second,
		RoomTTL:           24 * time.Hour,
		SweepInterval:     10 * time.Minute,
		ReadyTimeout:      2500 * time.Millisecond,
		MessageLimit:      120,
		SessionPolicy:     config.JoinSessionPolicy,
		Now:               time.Now,
	}
}

// RoomOptionsFromConfig apply room_service.yaml tunables over DefaultRoomOptions
func RoomOptionsFromConfig(t config.RoomTunables) RoomOptions {
	opts := DefaultRoomOptions()
	if t.RoomTTL > 0 {
		opts.RoomTTL = t.RoomTTL
	}
	if t.PresenceTTL > 0 {
		opts.PresenceTTL = t.PresenceTTL
	}
	if t.SignalTTL > 0 {
		opts.SignalTTL = t.SignalTTL
	}
	if t.PollMinInterval > 0 {
		opts.PollMinInterval = t.PollMinInterval
	}
	if t.MessageLimit > 0 {
		opts.MessageLimit = t.MessageLimit
	}
	return opts
}

// NewSignalRelayFor relay using opts.SignalTTL and opts.Now
func NewSignalRelayFor(opts RoomOptions) *SignalRelay {
	opts = withDefaults(opts)
	return NewSignalRelay(opts.SignalTTL, opts.Now)
}

// DefaultRateRules poll 120/min, signal 600/min, everything else 60/min
func DefaultRateRules() (map[string]limiter.Rule, limiter.Rule) {
	return map[string]limiter.Rule{
			string(domain.ActionPoll):   {Limit: 120, Window: time.Minute},
			string(domain.ActionSignal): {Limit: 600, Window: time.Minute},
		},
		limiter.Rule{Limit: 60, Window: time.Minute}
}

// RoomUseCase 處理 /api/rooms 的每一個 action
type RoomUseCase struct {
	rooms    repository.RoomRepository
	settings *SettingsUseCase
	relay    *SignalRelay
	limiter  *limiter.Manager
	events   repository.EventPublisher
	opts     RoomOptions

	pollGate      *intervalGate
	heartbeatGate *intervalGate
	sweepGate     *intervalGate
}

// NewRoomUseCase create RoomUseCase, zero options fall back to DefaultRoomOptions
func NewRoomUseCase(
	rooms repository.RoomRepository,
	settings *SettingsUseCase,
	relay *SignalRelay,
	rateLimiter *limiter.Manager,
	events repository.EventPublisher,
	opts RoomOptions,
) *RoomUseCase {
	opts = withDefaults(opts)
	if events == nil {
		events = repository.NewNoopEventPublisher()
	}
	return &RoomUseCase{
		rooms:         rooms,
		settings:      settings,
		relay:         relay,
		limiter:       rateLimiter,
		events:        events,
		opts:          opts,
		pollGate:      newIntervalGate(opts.PollMinInterval),
		heartbeatGate: newIntervalGate(opts.HeartbeatInterval),
		sweepGate:     newIntervalGate(opts.SweepInterval),
	}
}

func withDefaults(opts RoomOptions) RoomOptions {
	def := DefaultRoomOptions()
	if opts.PresenceTTL <= 0 {
		opts.PresenceTTL = def.PresenceTTL
	}
	if opts.SignalTTL <= 0 {
		opts.SignalTTL = def.SignalTTL
	}
	if opts.HeartbeatInterval <= 0 {
		opts.HeartbeatInterval = def.HeartbeatInterval
	}
	if opts.PollMinInterval <= 0 {
		opts.PollMinInterval = def.PollMinInterval
	}
	if opts.RoomTTL <= 0 {
		opts.RoomTTL = def.RoomTTL
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = def.SweepInterval
	}
	if opts.ReadyTimeout <= 0 {
		opts.ReadyTimeout = def.ReadyTimeout
	}
	if opts.MessageLimit <= 0 {
		opts.MessageLimit = def.MessageLimit
	}
	if opts.SessionPolicy == nil {
		opts.SessionPolicy = def.SessionPolicy
	}
	if opts.Now == nil {
		opts.Now = def.Now
	}
	return opts
}

// Ready readiness of the room store, nil for backends without a probe
func (u *RoomUseCase) Ready(ctx context.Context) error {
	checker, ok := u.rooms.(repository.ReadinessChecker)
	if !ok {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, u.opts.ReadyTimeout)
	defer cancel()
	if err := checker.Ready(ctx); err != nil {
		logger.Log.Warn("room store not ready", zap.Error(err))
		return domain.ErrDatabaseNotReady
	}
	return nil
}

// Handle run one room action. clientIP keys the rate limiter for non room-scoped actions.
func (u *RoomUseCase) Handle(ctx context.Context, req *domain.RoomRequest, clientIP string) (*domain.RoomResponse, error) {
	if !req.Action.Known() {
		return nil, domain.ErrUnknownAction
	}
	if err := u.checkRate(ctx, req, clientIP); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := u.Ready(ctx); err != nil {
		return nil, err
	}

	now := u.opts.Now()

	if req.Action == domain.ActionPoll {
		if ok, wait := u.pollGate.allow(req.RoomID+":"+firstNonEmpty(req.UserID, clientIP), now); !ok {
			return nil, &domain.ThrottleError{RetryAfter: wait}
		}
	}

	// inspect 與 signal 不做過期檢查
	if req.Action != domain.ActionInspect && req.Action != domain.ActionSignal {
		if err := u.checkExpired(ctx, req.RoomID, now); err != nil {
			return nil, err
		}
	}

	u.maybeSweep(ctx, now)

	switch req.Action {
	case domain.ActionInspect:
		return u.inspect(ctx, req)
	case domain.ActionJoin:
		return u.join(ctx, req, now)
	case domain.ActionLeave:
		return u.leave(ctx, req, now)
	case domain.ActionKick:
		return u.kick(ctx, req, now)
	case domain.ActionUpdateLanguage, domain.ActionUpdateUser:
		return u.updateMember(ctx, req, now)
	case domain.ActionMessage:
		return u.message(ctx, req, now)
	case domain.ActionSignal:
		return u.signal(ctx, req, now)
	case domain.ActionPoll:
		return u.poll(ctx, req, now)
	case domain.ActionUpdateSettings:
		return u.updateSettings(ctx, req, now)
	}
	return nil, domain.ErrUnknownAction
}

func (u *RoomUseCase) checkRate(ctx context.Context, req *domain.RoomRequest, clientIP string) error {
	if u.limiter == nil {
		return nil
	}

	key := clientIP
	if req.Action == domain.ActionPoll || req.Action == domain.ActionSignal {
		key = req.RoomID + ":" + firstNonEmpty(req.UserID, clientIP)
	}

	d := u.limiter.Allow(ctx, string(req.Action), key)
	if !d.Allowed {
		return &domain.RateLimitError{Action: req.Action, Limit: d.Limit, RetryAfter: d.RetryAfter}
	}
	return nil
}

// checkExpired 房間超過 RoomTTL 沒有活動就刪除並回傳 ErrRoomExpired
func (u *RoomUseCase) checkExpired(ctx context.Context, roomID string, now time.Time) error {
	if !u.settings.AutoDeleteEnabled(ctx) {
		return nil
	}

	room, err := u.rooms.FindRoom(ctx, roomID)
	if err != nil {
		return err
	}
	if room == nil || !room.Expired(now, u.opts.RoomTTL) {
		return nil
	}

	if err := u.purgeRoom(ctx, roomID); err != nil {
		return err
	}
	u.publish(ctx, domain.RoomEvent{Type: domain.EventRoomExpired, RoomID: roomID}, now)
	return domain.ErrRoomExpired
}

// maybeSweep 每 SweepInterval 最多執行一次，刪除所有過期房間
func (u *RoomUseCase) maybeSweep(ctx context.Context, now time.Time) {
	if ok, _ := u.sweepGate.allow("rooms", now); !ok {
		return
	}
	if !u.settings.AutoDeleteEnabled(ctx) {
		return
	}

	ids, err := u.rooms.DeleteExpiredRooms(ctx, now.Add(-u.opts.RoomTTL))
	if err != nil {
		logger.Log.Error("sweep expired rooms failed", zap.Error(err))
		return
	}
	for _, id := range ids {
		if err := u.settings.DeleteRoomSettings(ctx, id); err != nil {
			logger.Log.Warn("delete settings of expired room failed", zap.String("room_id", id), zap.Error(err))
		}
		u.relay.DropRoom(id)
		u.publish(ctx, domain.RoomEvent{Type: domain.EventRoomExpired, RoomID: id}, now)
	}
	if len(ids) > 0 {
		logger.Log.Info("expired rooms deleted", zap.Int("count", len(ids)))
	}
}

func (u *RoomUseCase) purgeRoom(ctx context.Context, roomID string) error {
	if err := u.rooms.DeleteRoom(ctx, roomID); err != nil {
		return err
	}
	if err := u.settings.DeleteRoomSettings(ctx, roomID); err != nil {
		logger.Log.Warn("delete room settings failed", zap.String("room_id", roomID), zap.Error(err))
	}
	u.relay.DropRoom(roomID)
	return nil
}

func (u *RoomUseCase) inspect(ctx context.Context, req *domain.RoomRequest) (*domain.RoomResponse, error) {
	room, err := u.rooms.FindRoom(ctx, req.RoomID)
	if err != nil {
		return nil, err
	}
	exists := room != nil

	resp := &domain.RoomResponse{Success: true, Exists: &exists}
	if phase, err := u.settings.LoadRoomPhase(ctx, req.RoomID); err == nil {
		resp.Settings = phase.Summary()
	}
	return resp, nil
}

func (u *RoomUseCase) join(ctx context.Context, req *domain.RoomRequest, now time.Time) (*domain.RoomResponse, error) {
	snapshot, err := u.rooms.GetRoom(ctx, req.RoomID)
	if err != nil {
		return nil, err
	}
	phase, err := u.settings.LoadRoomPhase(ctx, req.RoomID)
	if err != nil {
		return nil, err
	}

	singleAccount := u.opts.SessionPolicy() == config.SessionPolicySingleAccount
	account := domain.AccountID(req.UserID)

	// 先驗證再踢舊 session，驗證失敗不影響任何人
	if err := u.admit(req, phase); err != nil {
		return nil, err
	}

	// 同帳號的舊 session 會被踢掉
	var (
		evicted       []string
		remaining     []domain.User
		previous      *domain.User
		adminTransfer bool
	)
	if snapshot != nil {
		for i := range snapshot.Users {
			m := snapshot.Users[i]
			if m.ID == req.UserID {
				previous = &m
			}
			if singleAccount && m.ID != req.UserID && domain.AccountID(m.ID) == account {
				evicted = append(evicted, m.ID)
				if s, ok := phase.Settings(); ok && s.AdminUserID == m.ID {
					adminTransfer = true
				}
				continue
			}
			remaining = append(remaining, m)
		}
	}

	if s, ok := phase.Settings(); !ok {
		created, err := u.createSettings(req, remaining, now)
		if err != nil {
			return nil, err
		}
		if err := u.settings.SaveRoomSettings(ctx, req.RoomID, created); err != nil {
			return nil, err
		}
		phase = domain.Active(created)
	} else if adminTransfer {
		s.AdminUserID = req.UserID
		s.UpdatedAt = domain.FormatTimestamp(now)
		if err := u.settings.SaveRoomSettings(ctx, req.RoomID, s); err != nil {
			return nil, err
		}
		logger.Log.Info("room admin moved to new session", zap.String("room_id", req.RoomID), zap.String("user_id", req.UserID))
	}

	user := domain.User{
		ID:             req.UserID,
		Name:           strings.TrimSpace(req.UserName),
		SourceLanguage: req.SourceLanguage,
		TargetLanguage: req.TargetLanguage,
	}
	switch {
	case req.Avatar != nil:
		user.Avatar = *req.Avatar
	case previous != nil:
		user.Avatar = previous.Avatar
	}
	user.Touch(now)

	data, err := u.rooms.JoinRoom(ctx, req.RoomID, user, now)
	if err != nil {
		return nil, err
	}

	// 新 session 先加入再移除舊的，避免 memory 房間因為暫時沒人被刪掉。
	// 移除失敗只記 log，舊 session 之後會因 presence TTL 被清掉
	for _, id := range evicted {
		if err := u.rooms.LeaveRoom(ctx, req.RoomID, id); err != nil {
			logger.Log.Warn("evict old session failed", zap.String("room_id", req.RoomID), zap.String("user_id", id), zap.Error(err))
			continue
		}
		u.publish(ctx, domain.RoomEvent{Type: domain.EventUserEvicted, RoomID: req.RoomID, UserID: id}, now)
	}
	data.Users = withoutUsers(data.Users, evicted)
	data.Messages = domain.MessagesSince(data.Messages, "", u.opts.MessageLimit)

	u.publish(ctx, domain.RoomEvent{Type: domain.EventUserJoined, RoomID: req.RoomID, UserID: req.UserID}, now)

	return &domain.RoomResponse{
		Success:  true,
		Room:     data,
		Settings: phase.Summary(),
		User:     &user,
	}, nil
}

// admit 密碼房每個加入者都要帶正確密碼，管理員也一樣
func (u *RoomUseCase) admit(req *domain.RoomRequest, phase domain.RoomPhase) error {
	s, ok := phase.Settings()
	if !ok || s.JoinMode != domain.JoinModePassword {
		return nil
	}
	if req.JoinPassword == "" {
		return domain.ErrPasswordRequired
	}
	if err := encrypt.CheckPassword(s.PasswordSalt, s.PasswordHash, req.JoinPassword); err != nil {
		if errors.Is(err, encrypt.ErrPasswordMismatch) {
			return domain.ErrInvalidPassword
		}
		return err
	}
	return nil
}

// createSettings 房間第一次有人加入時建立設定
func (u *RoomUseCase) createSettings(req *domain.RoomRequest, remaining []domain.User, now time.Time) (*domain.RoomSettings, error) {
	admin := req.UserID
	others := withoutUsers(remaining, []string{req.UserID})
	if len(others) > 0 {
		admin = others[0].ID
	}
	if admin != req.UserID {
		return domain.NewRoomSettings(admin, domain.JoinModePublic, "", "", now), nil
	}

	mode := domain.JoinModePublic
	if req.CreatePassword != "" {
		mode = domain.JoinModePassword
	}
	if req.CreateJoinMode != "" {
		mode, _ = domain.ParseJoinMode(req.CreateJoinMode)
	}

	if mode == domain.JoinModePublic {
		return domain.NewRoomSettings(admin, mode, "", "", now), nil
	}
	if req.CreatePassword == "" {
		return nil, domain.NewValidationError("createPassword is required for password rooms")
	}
	salt, hash, err := encrypt.HashPassword(req.CreatePassword)
	if err != nil {
		return nil, err
	}
	return domain.NewRoomSettings(admin, mode, salt, hash, now), nil
}

func (u *RoomUseCase) leave(ctx context.Context, req *domain.RoomRequest, now time.Time) (*domain.RoomResponse, error) {
	if err := u.rooms.LeaveRoom(ctx, req.RoomID, req.UserID); err != nil {
		return nil, err
	}
	u.publish(ctx, domain.RoomEvent{Type: domain.EventUserLeft, RoomID: req.RoomID, UserID: req.UserID}, now)
	return &domain.RoomResponse{Success: true}, nil
}

func (u *RoomUseCase) kick(ctx context.Context, req *domain.RoomRequest, now time.Time) (*domain.RoomResponse, error) {
	phase, err := u.settings.LoadRoomPhase(ctx, req.RoomID)
	if err != nil {
		return nil, err
	}
	s, ok := phase.Settings()
	if !ok || s.AdminUserID != req.UserID {
		return nil, domain.ErrNotAdmin
	}
	if req.TargetUserID == req.UserID {
		return nil, domain.ErrCannotKickSelf
	}

	room, err := u.rooms.FindRoom(ctx, req.RoomID)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, domain.ErrRoomNotFound
	}

	if err := u.rooms.LeaveRoom(ctx, req.RoomID, req.TargetUserID); err != nil {
		return nil, err
	}
	u.publish(ctx, domain.RoomEvent{Type: domain.EventUserKicked, RoomID: req.RoomID, UserID: req.TargetUserID}, now)
	return &domain.RoomResponse{Success: true, Settings: phase.Summary()}, nil
}

func (u *RoomUseCase) updateMember(ctx context.Context, req *domain.RoomRequest, now time.Time) (*domain.RoomResponse, error) {
	data, err := u.rooms.GetRoom(ctx, req.RoomID)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, domain.ErrRoomNotFound
	}
	member, ok := data.FindUser(req.UserID)
	if !ok {
		return nil, domain.ErrUserNotFound
	}

	user := *member
	if req.Action == domain.ActionUpdateLanguage {
		user.SourceLanguage = req.SourceLanguage
		user.TargetLanguage = req.TargetLanguage
	} else {
		if name := strings.TrimSpace(req.UserName); name != "" {
			user.Name = name
		}
		if req.Avatar != nil {
			user.Avatar = *req.Avatar
		}
	}
	user.Touch(now)

	if err := u.rooms.UpsertUser(ctx, req.RoomID, user); err != nil {
		return nil, err
	}
	return &domain.RoomResponse{Success: true, User: &user}, nil
}

func (u *RoomUseCase) message(ctx context.Context, req *domain.RoomRequest, now time.Time) (*domain.RoomResponse, error) {
	msg, err := u.rooms.SendMessage(ctx, req.RoomID, *req.Message, now)
	if err != nil {
		return nil, err
	}
	u.publish(ctx, domain.RoomEvent{Type: domain.EventMessageSent, RoomID: req.RoomID, UserID: msg.UserID, Message: msg}, now)
	return &domain.RoomResponse{Success: true, Message: msg}, nil
}

func (u *RoomUseCase) signal(ctx context.Context, req *domain.RoomRequest, now time.Time) (*domain.RoomResponse, error) {
	// 順便更新發送者的 heartbeat，查不到也不影響轉送
	if data, err := u.rooms.GetRoom(ctx, req.RoomID); err == nil && data != nil {
		if sender, ok := data.FindUser(req.UserID); ok {
			if allowed, _ := u.heartbeatGate.allow(req.RoomID+":"+req.UserID, now); allowed {
				user := *sender
				user.Touch(now)
				if err := u.rooms.UpsertUser(ctx, req.RoomID, user); err != nil {
					logger.Log.Warn("signal heartbeat failed", zap.String("room_id", req.RoomID), zap.Error(err))
				}
			}
		}
	}

	u.relay.Enqueue(req.RoomID, req.ToUserID, req.UserID, req.Payload)

	return &domain.RoomResponse{
		Success: true,
		Signals: u.relay.Collect(req.RoomID, req.UserID),
	}, nil
}

func (u *RoomUseCase) poll(ctx context.Context, req *domain.RoomRequest, now time.Time) (*domain.RoomResponse, error) {
	data, err := u.rooms.GetRoom(ctx, req.RoomID)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, domain.ErrRoomNotFound
	}

	var (
		updates []func(context.Context) error
		active  = make([]domain.User, 0, len(data.Users))
	)
	for _, m := range data.Users {
		member := m
		last, parsed := member.LastSeen()

		switch {
		case member.ID == req.UserID:
			if !parsed || now.Sub(last) >= u.opts.HeartbeatInterval {
				member.Touch(now)
				updates = append(updates, u.upsertLater(req.RoomID, member))
			}
		case !parsed:
			member.Touch(now)
			updates = append(updates, u.upsertLater(req.RoomID, member))
		case now.Sub(last) > u.opts.PresenceTTL:
			id := member.ID
			updates = append(updates, func(ctx context.Context) error {
				if err := u.rooms.LeaveRoom(ctx, req.RoomID, id); err != nil {
					return err
				}
				u.publish(ctx, domain.RoomEvent{Type: domain.EventUserLeft, RoomID: req.RoomID, UserID: id}, now)
				return nil
			})
			continue
		}
		active = append(active, member)
	}
	u.applyBestEffort(ctx, req.RoomID, updates)

	resp := &domain.RoomResponse{
		Success: true,
		Room: &domain.RoomData{
			ID:       data.ID,
			Users:    active,
			Messages: domain.MessagesSince(data.Messages, req.Since, u.opts.MessageLimit),
		},
	}
	if req.UserID != "" {
		resp.Signals = u.relay.Collect(req.RoomID, req.UserID)
	}
	if phase, err := u.settings.LoadRoomPhase(ctx, req.RoomID); err == nil {
		resp.Settings = phase.Summary()
	}
	return resp, nil
}

func (u *RoomUseCase) upsertLater(roomID string, user domain.User) func(context.Context) error {
	return func(ctx context.Context) error {
		return u.rooms.UpsertUser(ctx, roomID, user)
	}
}

// applyBestEffort 同時執行，個別失敗只記 log
func (u *RoomUseCase) applyBestEffort(ctx context.Context, roomID string, updates []func(context.Context) error) {
	if len(updates) == 0 {
		return
	}
	var wg sync.WaitGroup
	for _, fn := range updates {
		wg.Add(1)
		go func(fn func(context.Context) error) {
			defer wg.Done()
			if err := fn(ctx); err != nil {
				logger.Log.Warn("presence update failed", zap.String("room_id", roomID), zap.Error(err))
			}
		}(fn)
	}
	wg.Wait()
}

func (u *RoomUseCase) updateSettings(ctx context.Context, req *domain.RoomRequest, now time.Time) (*domain.RoomResponse, error) {
	phase, err := u.settings.LoadRoomPhase(ctx, req.RoomID)
	if err != nil {
		return nil, err
	}
	current, ok := phase.Settings()
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	if current.AdminUserID != req.UserID {
		return nil, domain.ErrNotAdmin
	}

	mode, _ := domain.ParseJoinMode(req.JoinMode)
	next := *current
	next.JoinMode = mode
	next.UpdatedAt = domain.FormatTimestamp(now)

	switch {
	case mode == domain.JoinModePublic:
		next.PasswordSalt, next.PasswordHash = "", ""
	case req.Password != "":
		salt, hash, err := encrypt.HashPassword(req.Password)
		if err != nil {
			return nil, err
		}
		next.PasswordSalt, next.PasswordHash = salt, hash
	case !current.HasPassword():
		return nil, domain.NewValidationError("password is required for password rooms")
	}

	if err := u.settings.SaveRoomSettings(ctx, req.RoomID, &next); err != nil {
		return nil, err
	}
	u.publish(ctx, domain.RoomEvent{Type: domain.EventSettingsUpdated, RoomID: req.RoomID, UserID: req.UserID}, now)
	return &domain.RoomResponse{Success: true, Settings: next.Summary()}, nil
}

func (u *RoomUseCase) publish(ctx context.Context, event domain.RoomEvent, now time.Time) {
	event.At = domain.FormatTimestamp(now)
	if err := u.events.Publish(ctx, event); err != nil {
		logger.Log.Warn("publish room event failed",
			zap.String("type", string(event.Type)),
			zap.String("room_id", event.RoomID),
			zap.Error(err),
		)
	}
}

func withoutUsers(users []domain.User, ids []string) []domain.User {
	if len(ids) == 0 {
		return users
	}
	out := make([]domain.User, 0, len(users))
	for _, u := range users {
		if !pkg.Contains(ids, u.ID) {
			out = append(out, u)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
