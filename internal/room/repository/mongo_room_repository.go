package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"voicelink_service/internal/room/domain"
)

// mongo collection names
const (
	RoomsCollection        = "rooms"
	RoomUsersCollection    = "room_users"
	RoomMessagesCollection = "room_messages"
)

type mongoRoomUser struct {
	RoomID      string    `bson:"room_id"`
	JoinedAt    time.Time `bson:"joined_at"`
	domain.User `bson:",inline"`
}

type mongoRoomMessage struct {
	RoomID         string `bson:"room_id"`
	Seq            int64  `bson:"seq"`
	domain.Message `bson:",inline"`
}

type mongoRoomRepository struct {
	db       *mongo.Database
	rooms    *mongo.Collection
	users    *mongo.Collection
	messages *mongo.Collection
}

// NewMongoRoomRepository create a RoomRepository backed by mongo collections
func NewMongoRoomRepository(db *mongo.Database) RoomRepository {
	return &mongoRoomRepository{
		db:       db,
		rooms:    db.Collection(RoomsCollection),
		users:    db.Collection(RoomUsersCollection),
		messages: db.Collection(RoomMessagesCollection),
	}
}

// EnsureMongoIndexes create unique (room_id, user_id) and message ordering indexes
func EnsureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(RoomUsersCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "room_id", Value: 1}, {Key: "user_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create room_users index: %w", err)
	}
	_, err = db.Collection(RoomMessagesCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "room_id", Value: 1}, {Key: "seq", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("create room_messages index: %w", err)
	}
	return nil
}

func (r *mongoRoomRepository) Ready(ctx context.Context) error {
	return r.db.Client().Ping(ctx, readpref.Primary())
}

func (r *mongoRoomRepository) JoinRoom(ctx context.Context, roomID string, user domain.User, now time.Time) (*domain.RoomData, error) {
	_, err := r.rooms.UpdateOne(ctx,
		bson.M{"_id": roomID},
		bson.M{
			"$setOnInsert": bson.M{"created_at": now},
			"$set":         bson.M{"last_activity_at": now},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return nil, fmt.Errorf("upsert room %s: %w", roomID, err)
	}

	if err := r.upsertUser(ctx, roomID, user, now); err != nil {
		return nil, err
	}
	return r.GetRoom(ctx, roomID)
}

func (r *mongoRoomRepository) UpsertUser(ctx context.Context, roomID string, user domain.User) error {
	n, err := r.rooms.CountDocuments(ctx, bson.M{"_id": roomID})
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrRoomNotFound
	}
	return r.upsertUser(ctx, roomID, user, time.Now())
}

func (r *mongoRoomRepository) upsertUser(ctx context.Context, roomID string, user domain.User, now time.Time) error {
	_, err := r.users.UpdateOne(ctx,
		bson.M{"room_id": roomID, "user_id": user.ID},
		bson.M{
			"$set": bson.M{
				"name":            user.Name,
				"source_language": user.SourceLanguage,
				"target_language": user.TargetLanguage,
				"avatar":          user.Avatar,
				"last_seen_at":    user.LastSeenAt,
			},
			"$setOnInsert": bson.M{"joined_at": now},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("upsert user %s: %w", user.ID, err)
	}
	return nil
}

func (r *mongoRoomRepository) LeaveRoom(ctx context.Context, roomID, userID string) error {
	_, err := r.users.DeleteOne(ctx, bson.M{"room_id": roomID, "user_id": userID})
	return err
}

func (r *mongoRoomRepository) SendMessage(ctx context.Context, roomID string, msg domain.Message, now time.Time) (*domain.Message, error) {
	res, err := r.rooms.UpdateOne(ctx, bson.M{"_id": roomID}, bson.M{"$set": bson.M{"last_activity_at": now}})
	if err != nil {
		return nil, err
	}
	if res.MatchedCount == 0 {
		return nil, domain.ErrRoomNotFound
	}

	doc := mongoRoomMessage{RoomID: roomID, Seq: now.UnixNano(), Message: msg}
	if _, err := r.messages.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("insert message %s: %w", msg.ID, err)
	}
	return &msg, nil
}

func (r *mongoRoomRepository) GetRoom(ctx context.Context, roomID string) (*domain.RoomData, error) {
	room, err := r.FindRoom(ctx, roomID)
	if err != nil || room == nil {
		return nil, err
	}

	data := &domain.RoomData{ID: roomID, Users: []domain.User{}, Messages: []domain.Message{}}

	cursor, err := r.users.Find(ctx, bson.M{"room_id": roomID},
		options.Find().SetSort(bson.D{{Key: "joined_at", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var users []mongoRoomUser
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	for _, u := range users {
		data.Users = append(data.Users, u.User)
	}

	cursor, err = r.messages.Find(ctx, bson.M{"room_id": roomID},
		options.Find().SetSort(bson.D{{Key: "seq", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var messages []mongoRoomMessage
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, err
	}
	for _, m := range messages {
		data.Messages = append(data.Messages, m.Message)
	}
	return data, nil
}

func (r *mongoRoomRepository) FindRoom(ctx context.Context, roomID string) (*domain.Room, error) {
	var room domain.Room
	err := r.rooms.FindOne(ctx, bson.M{"_id": roomID}).Decode(&room)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &room, nil
}

func (r *mongoRoomRepository) DeleteRoom(ctx context.Context, roomID string) error {
	return r.deleteRooms(ctx, []string{roomID})
}

func (r *mongoRoomRepository) DeleteExpiredRooms(ctx context.Context, cutoff time.Time) ([]string, error) {
	cursor, err := r.rooms.Find(ctx, bson.M{
		"created_at":       bson.M{"$lt": cutoff},
		"last_activity_at": bson.M{"$lt": cutoff},
	})
	if err != nil {
		return nil, err
	}
	var rooms []domain.Room
	if err := cursor.All(ctx, &rooms); err != nil {
		return nil, err
	}
	if len(rooms) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(rooms))
	for _, room := range rooms {
		ids = append(ids, room.ID)
	}
	if err := r.deleteRooms(ctx, ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *mongoRoomRepository) deleteRooms(ctx context.Context, ids []string) error {
	in := bson.M{"$in": ids}
	if _, err := r.messages.DeleteMany(ctx, bson.M{"room_id": in}); err != nil {
		return err
	}
	if _, err := r.users.DeleteMany(ctx, bson.M{"room_id": in}); err != nil {
		return err
	}
	_, err := r.rooms.DeleteMany(ctx, bson.M{"_id": in})
	return err
}
