package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"voicelink_service/internal/room/domain"
)

// RoomModel gorm model of the rooms table
type RoomModel struct {
	ID             string    `gorm:"primaryKey"`
	CreatedAt      time.Time `gorm:"not null"`
	LastActivityAt time.Time `gorm:"not null;index"`
}

// TableName rooms
func (RoomModel) TableName() string { return "rooms" }

// RoomUserModel gorm model of the room_users table
type RoomUserModel struct {
	RoomID         string    `gorm:"primaryKey"`
	UserID         string    `gorm:"primaryKey"`
	Name           string    `gorm:"not null"`
	SourceLanguage string    `gorm:"not null"`
	TargetLanguage string    `gorm:"not null"`
	Avatar         string    `gorm:"not null;default:''"`
	LastSeenAt     string    `gorm:"not null;default:''"`
	JoinedAt       time.Time `gorm:"not null"`
}

// TableName room_users
func (RoomUserModel) TableName() string { return "room_users" }

// RoomMessageModel gorm model of the room_messages table
type RoomMessageModel struct {
	Seq              int64  `gorm:"primaryKey;autoIncrement"`
	RoomID           string `gorm:"not null;index"`
	MessageID        string `gorm:"not null"`
	UserID           string `gorm:"not null"`
	UserName         string `gorm:"not null"`
	OriginalText     string `gorm:"not null"`
	OriginalLanguage string `gorm:"not null"`
	Timestamp        string `gorm:"not null"`
	AudioURL         string `gorm:"not null;default:''"`
	TranslatedText   string `gorm:"not null;default:''"`
	TargetLanguage   string `gorm:"not null;default:''"`
}

// TableName room_messages
func (RoomMessageModel) TableName() string { return "room_messages" }

type gormRoomRepository struct {
	db *gorm.DB
}

// NewGormRoomRepository create a RoomRepository backed by gorm
func NewGormRoomRepository(db *gorm.DB) RoomRepository {
	return &gormRoomRepository{db: db}
}

// AutoMigrateRooms migrate the room tables
func AutoMigrateRooms(db *gorm.DB) error {
	return db.AutoMigrate(&RoomModel{}, &RoomUserModel{}, &RoomMessageModel{})
}

func (r *gormRoomRepository) Ready(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (r *gormRoomRepository) JoinRoom(ctx context.Context, roomID string, user domain.User, now time.Time) (*domain.RoomData, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		room := RoomModel{ID: roomID, CreatedAt: now, LastActivityAt: now}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"last_activity_at"}),
		}).Create(&room).Error; err != nil {
			return fmt.Errorf("upsert room %s: %w", roomID, err)
		}
		return upsertUserModel(tx, toUserModel(roomID, user, now))
	})
	if err != nil {
		return nil, err
	}
	return r.GetRoom(ctx, roomID)
}

func (r *gormRoomRepository) UpsertUser(ctx context.Context, roomID string, user domain.User) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&RoomModel{}).Where("id = ?", roomID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return domain.ErrRoomNotFound
		}
		return upsertUserModel(tx, toUserModel(roomID, user, time.Now()))
	})
}

func (r *gormRoomRepository) LeaveRoom(ctx context.Context, roomID, userID string) error {
	return r.db.WithContext(ctx).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Delete(&RoomUserModel{}).Error
}

func (r *gormRoomRepository) SendMessage(ctx context.Context, roomID string, msg domain.Message, now time.Time) (*domain.Message, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&RoomModel{}).Where("id = ?", roomID).Update("last_activity_at", now)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrRoomNotFound
		}
		m := RoomMessageModel{
			RoomID:           roomID,
			MessageID:        msg.ID,
			UserID:           msg.UserID,
			UserName:         msg.UserName,
			OriginalText:     msg.OriginalText,
			OriginalLanguage: msg.OriginalLanguage,
			Timestamp:        msg.Timestamp,
			AudioURL:         msg.AudioURL,
			TranslatedText:   msg.TranslatedText,
			TargetLanguage:   msg.TargetLanguage,
		}
		return tx.Create(&m).Error
	})
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *gormRoomRepository) GetRoom(ctx context.Context, roomID string) (*domain.RoomData, error) {
	room, err := r.FindRoom(ctx, roomID)
	if err != nil || room == nil {
		return nil, err
	}

	var users []RoomUserModel
	if err := r.db.WithContext(ctx).Where("room_id = ?", roomID).
		Order("joined_at").Order("user_id").Find(&users).Error; err != nil {
		return nil, err
	}
	var messages []RoomMessageModel
	if err := r.db.WithContext(ctx).Where("room_id = ?", roomID).
		Order("seq").Find(&messages).Error; err != nil {
		return nil, err
	}

	data := &domain.RoomData{
		ID:       roomID,
		Users:    make([]domain.User, 0, len(users)),
		Messages: make([]domain.Message, 0, len(messages)),
	}
	for _, u := range users {
		data.Users = append(data.Users, domain.User{
			ID:             u.UserID,
			Name:           u.Name,
			SourceLanguage: u.SourceLanguage,
			TargetLanguage: u.TargetLanguage,
			Avatar:         u.Avatar,
			LastSeenAt:     u.LastSeenAt,
		})
	}
	for _, m := range messages {
		data.Messages = append(data.Messages, domain.Message{
			ID:               m.MessageID,
			UserID:           m.UserID,
			UserName:         m.UserName,
			OriginalText:     m.OriginalText,
			OriginalLanguage: m.OriginalLanguage,
			Timestamp:        m.Timestamp,
			AudioURL:         m.AudioURL,
			TranslatedText:   m.TranslatedText,
			TargetLanguage:   m.TargetLanguage,
		})
	}
	return data, nil
}

func (r *gormRoomRepository) FindRoom(ctx context.Context, roomID string) (*domain.Room, error) {
	var m RoomModel
	err := r.db.WithContext(ctx).Where("id = ?", roomID).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &domain.Room{ID: m.ID, CreatedAt: m.CreatedAt, LastActivityAt: m.LastActivityAt}, nil
}

func (r *gormRoomRepository) DeleteRoom(ctx context.Context, roomID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return deleteRoomModels(tx, []string{roomID})
	})
}

func (r *gormRoomRepository) DeleteExpiredRooms(ctx context.Context, cutoff time.Time) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&RoomModel{}).
			Where("created_at < ? AND last_activity_at < ?", cutoff, cutoff).
			Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		return deleteRoomModels(tx, ids)
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func upsertUserModel(tx *gorm.DB, m RoomUserModel) error {
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "room_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "source_language", "target_language", "avatar", "last_seen_at"}),
	}).Create(&m).Error
	if err != nil {
		return fmt.Errorf("upsert user %s: %w", m.UserID, err)
	}
	return nil
}

func deleteRoomModels(tx *gorm.DB, ids []string) error {
	if err := tx.Where("room_id IN ?", ids).Delete(&RoomMessageModel{}).Error; err != nil {
		return err
	}
	if err := tx.Where("room_id IN ?", ids).Delete(&RoomUserModel{}).Error; err != nil {
		return err
	}
	return tx.Where("id IN ?", ids).Delete(&RoomModel{}).Error
}

func toUserModel(roomID string, u domain.User, joinedAt time.Time) RoomUserModel {
	return RoomUserModel{
		RoomID:         roomID,
		UserID:         u.ID,
		Name:           u.Name,
		SourceLanguage: u.SourceLanguage,
		TargetLanguage: u.TargetLanguage,
		Avatar:         u.Avatar,
		LastSeenAt:     u.LastSeenAt,
		JoinedAt:       joinedAt,
	}
}
