package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"go.uber.org/zap"

	"voicelink_service/internal/room/app"
	"voicelink_service/internal/room/repository"
	"voicelink_service/pkg/config"
	"voicelink_service/pkg/database"
	"voicelink_service/pkg/limiter"
	"voicelink_service/pkg/logger"
)

// roomStores 房間與設定的儲存後端
type roomStores struct {
	Rooms    repository.RoomRepository
	Settings repository.SettingsRepository

	closers []func()
}

// Close release every backend connection
func (s *roomStores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func openStores(ctx context.Context, target config.DeployTarget, cfg config.Room) (*roomStores, error) {
	stores := &roomStores{}

	switch target {
	case config.DeployPostgres:
		pool, err := openPG(cfg)
		if err != nil {
			return nil, err
		}
		stores.closers = append(stores.closers, pool.Close)
		if err := repository.EnsureRoomSchema(ctx, pool); err != nil {
			return nil, err
		}
		stores.Rooms = repository.NewPGRoomRepository(pool)
		stores.Settings = repository.NewPGSettingsRepository(pool)

	case config.DeployORM:
		gdb, err := database.NewPGConnection(pgConnection(cfg))
		if err != nil {
			return nil, err
		}
		if sqlDB, err := gdb.DB(); err == nil {
			stores.closers = append(stores.closers, func() { _ = sqlDB.Close() })
		}
		if err := repository.AutoMigrateRooms(gdb); err != nil {
			return nil, err
		}
		// settings 沿用 pgx
		pool, err := openPG(cfg)
		if err != nil {
			return nil, err
		}
		stores.closers = append(stores.closers, pool.Close)
		if err := repository.EnsureRoomSchema(ctx, pool); err != nil {
			return nil, err
		}
		stores.Rooms = repository.NewGormRoomRepository(gdb)
		stores.Settings = repository.NewPGSettingsRepository(pool)

	case config.DeployMongo:
		uri := database.MongoURI(cfg.MongoSQL.Host, cfg.MongoSQL.Port, cfg.MongoSQL.User, cfg.MongoSQL.Password)
		mdb, err := database.NewMongoDB(ctx, database.Connection{
			ConnectStr:    uri,
			RetryCount:    cfg.MongoSQL.RetryCount,
			RetryInterval: time.Duration(cfg.MongoSQL.RetryInterval),
		}, cfg.MongoSQL.Database)
		if err != nil {
			return nil, err
		}
		stores.closers = append(stores.closers, func() { _ = mdb.Close(context.Background()) })
		if err := repository.EnsureMongoIndexes(ctx, mdb.Database); err != nil {
			return nil, err
		}
		stores.Rooms = repository.NewMongoRoomRepository(mdb.Database)
		stores.Settings = repository.NewMongoSettingsRepository(mdb.Database)

	default:
		stores.Rooms = repository.NewMemoryRoomRepository()
		stores.Settings = repository.NewMemorySettingsRepository()
	}

	return stores, nil
}

func pgConnection(cfg config.Room) database.Connection {
	return database.Connection{
		ConnectStr:    database.PostgresDSN(cfg.PostgreSQL.Host, cfg.PostgreSQL.Port, cfg.PostgreSQL.User, cfg.PostgreSQL.Password, cfg.PostgreSQL.Database),
		RetryCount:    cfg.PostgreSQL.RetryCount,
		RetryInterval: time.Duration(cfg.PostgreSQL.RetryInterval),
	}
}

func openPG(cfg config.Room) (*pgxpool.Pool, error) {
	return database.NewDatabaseConnection(pgConnection(cfg))
}

// newRateLimiter redis 失敗時退回 in-process 計數
func newRateLimiter(cfg config.Room) *limiter.Manager {
	rules, fallback := app.DefaultRateRules()

	if cfg.RateLimit.Redis {
		rdb, err := database.NewRedisClient(database.RedisConnection{
			Addr:          cfg.Redis.Addr,
			Password:      cfg.Redis.Password,
			DB:            cfg.Redis.RedisDB,
			MasterName:    cfg.Redis.MasterName,
			SentinelAddrs: cfg.Redis.Sentinels,
			RetryCount:    3,
			RetryInterval: 2,
		})
		if err == nil {
			return limiter.NewManager(limiter.NewRedisFixedWindow(rdb, "voicelink:rl:"), rules, fallback)
		}
		logger.Log.Warn("redis unavailable, rate limit falls back to memory", zap.Error(err))
	}
	return limiter.NewManager(limiter.NewMemoryFixedWindow(nil), rules, fallback)
}

// newEventPublisher 依 events.driver 建立 publisher，連不上時不阻擋服務
func newEventPublisher(cfg config.Room) repository.EventPublisher {
	switch cfg.Events.Driver {
	case "kafka":
		writer, err := database.NewKafkaWriterWithRetry(database.KafkaConnection{
			Brokers:       cfg.Events.Brokers,
			Topic:         cfg.Events.Topic,
			RetryCount:    cfg.Events.RetryCount,
			RetryInterval: time.Duration(cfg.Events.RetryInterval),
		})
		if err != nil {
			logger.Log.Warn("kafka unavailable, room events disabled", zap.Error(err))
			break
		}
		return repository.NewKafkaEventPublisher(writer)

	case "rabbitmq":
		pub, err := newRabbitPublisher(cfg)
		if err != nil {
			logger.Log.Warn("rabbitmq unavailable, room events disabled", zap.Error(err))
			break
		}
		return pub

	case "":
	default:
		logger.Log.Warn(fmt.Sprintf("unknown events driver %q, room events disabled", cfg.Events.Driver))
	}
	return repository.NewNoopEventPublisher()
}

func newRabbitPublisher(cfg config.Room) (repository.EventPublisher, error) {
	conn, err := database.ConnectRabbitMQWithRetry(database.Connection{
		ConnectStr:    cfg.Events.RabbitURL,
		RetryCount:    cfg.Events.RetryCount,
		RetryInterval: time.Duration(cfg.Events.RetryInterval),
	})
	if err != nil {
		return nil, err
	}
	ch, err := database.GetRabbitMQChannelWithRetry(conn, cfg.Events.RetryCount, time.Duration(cfg.Events.RetryInterval))
	if err != nil {
		conn.Close()
		return nil, err
	}
	rabbit := database.NewRabbitRepository(ch, conn)
	pub, err := repository.NewRabbitEventPublisher(rabbit, cfg.Events.Exchange)
	if err != nil {
		_ = rabbit.Close()
		return nil, err
	}
	return pub, nil
}
