package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"voicelink_service/internal/room/domain"
	"voicelink_service/pkg/logger"
)

// SettingsRepository key/value store for room settings and feature flags
type SettingsRepository interface {
	// Get returns the raw JSON value, domain.ErrSettingNotFound when absent
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores any JSON serializable value
	Set(ctx context.Context, key string, value interface{}) error
	Delete(ctx context.Context, key string) error
}

// SettingsCollection mongo collection / postgres table name
const SettingsCollection = "app_settings"

// schemaCheckInterval 多久重新確認一次 app_settings schema
const schemaCheckInterval = 10 * time.Minute

// ---- memory ----

type memorySettingsRepository struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// NewMemorySettingsRepository create an in-process SettingsRepository
func NewMemorySettingsRepository() SettingsRepository {
	return &memorySettingsRepository{values: make(map[string][]byte)}
}

func (r *memorySettingsRepository) Get(ctx context.Context, key string) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.values[key]
	if !ok {
		return nil, domain.ErrSettingNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (r *memorySettingsRepository) Set(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal setting %s: %w", key, err)
	}
	r.mu.Lock()
	r.values[key] = data
	r.mu.Unlock()
	return nil
}

func (r *memorySettingsRepository) Delete(ctx context.Context, key string) error {
	r.mu.Lock()
	delete(r.values, key)
	r.mu.Unlock()
	return nil
}

// ---- postgres ----

type pgSettingsRepository struct {
	db *pgxpool.Pool

	mu            sync.Mutex
	schemaChecked time.Time
	now           func() time.Time
}

// NewPGSettingsRepository create a SettingsRepository on the app_settings table.
// The table and its updated_at column are created lazily on first use.
func NewPGSettingsRepository(db *pgxpool.Pool) SettingsRepository {
	return &pgSettingsRepository{db: db, now: time.Now}
}

func (r *pgSettingsRepository) ensureSchema(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.schemaChecked.IsZero() && r.now().Sub(r.schemaChecked) < schemaCheckInterval {
		return nil
	}

	_, err := r.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS app_settings (
			key   TEXT PRIMARY KEY,
			value JSONB NOT NULL
		);
		ALTER TABLE app_settings ADD COLUMN IF NOT EXISTS updated_at TIMESTAMPTZ NOT NULL DEFAULT now();`)
	if err != nil {
		logger.Log.Error("migrate app_settings failed", zap.Error(err))
		return fmt.Errorf("migrate app_settings: %w", err)
	}
	r.schemaChecked = r.now()
	return nil
}

func (r *pgSettingsRepository) Get(ctx context.Context, key string) ([]byte, error) {
	if err := r.ensureSchema(ctx); err != nil {
		return nil, err
	}

	var raw string
	err := r.db.QueryRow(ctx, "SELECT value::text FROM app_settings WHERE key = $1", key).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSettingNotFound
		}
		return nil, err
	}
	return []byte(raw), nil
}

func (r *pgSettingsRepository) Set(ctx context.Context, key string, value interface{}) error {
	if err := r.ensureSchema(ctx); err != nil {
		return err
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal setting %s: %w", key, err)
	}
	_, err = r.db.Exec(ctx, `
		INSERT INTO app_settings (key, value, updated_at) VALUES ($1, $2::jsonb, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		key, string(data))
	return err
}

func (r *pgSettingsRepository) Delete(ctx context.Context, key string) error {
	if err := r.ensureSchema(ctx); err != nil {
		return err
	}
	_, err := r.db.Exec(ctx, "DELETE FROM app_settings WHERE key = $1", key)
	return err
}

// ---- mongo ----

type mongoSetting struct {
	Key       string    `bson:"_id"`
	Value     string    `bson:"value"`
	UpdatedAt time.Time `bson:"updated_at"`
}

type mongoSettingsRepository struct {
	coll *mongo.Collection
}

// NewMongoSettingsRepository create a SettingsRepository on a mongo collection
func NewMongoSettingsRepository(db *mongo.Database) SettingsRepository {
	return &mongoSettingsRepository{coll: db.Collection(SettingsCollection)}
}

func (r *mongoSettingsRepository) Get(ctx context.Context, key string) ([]byte, error) {
	var s mongoSetting
	err := r.coll.FindOne(ctx, bson.M{"_id": key}).Decode(&s)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrSettingNotFound
		}
		return nil, err
	}
	return []byte(s.Value), nil
}

func (r *mongoSettingsRepository) Set(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal setting %s: %w", key, err)
	}
	_, err = r.coll.UpdateOne(ctx,
		bson.M{"_id": key},
		bson.M{"$set": bson.M{"value": string(data), "updated_at": time.Now()}},
		options.Update().SetUpsert(true),
	)
	return err
}

func (r *mongoSettingsRepository) Delete(ctx context.Context, key string) error {
	_, err := r.coll.DeleteOne(ctx, bson.M{"_id": key})
	return err
}
