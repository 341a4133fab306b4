package config

import "time"

// Room definition room_service YAML structure
type Room struct {
	Port     string `mapstructure:"port"`
	GRPCPort string `mapstructure:"grpc_port"`

	// TrustedProxies 只有這些來源的 X-Forwarded-For 會被採用
	TrustedProxies []string `mapstructure:"trusted_proxies"`

	PostgreSQL DatabaseConfig `mapstructure:"pg"`
	MongoSQL   DatabaseConfig `mapstructure:"mongo"`
	Redis      RedisConfig    `mapstructure:"redis"`
	Events     EventsConfig   `mapstructure:"events"`
	MinIO      MinIOConfig    `mapstructure:"minio"`

	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Rooms     RoomTunables    `mapstructure:"rooms"`
	Admin     AdminConfig     `mapstructure:"admin"`
}

// RedisConfig definition redis setting
type RedisConfig struct {
	Addr       string   `mapstructure:"addr"`
	Password   string   `mapstructure:"password"`
	RedisDB    int      `mapstructure:"redis_db"`
	MasterName string   `mapstructure:"master_name"`
	Sentinels  []string `mapstructure:"sentinels"`
}

// DatabaseConfig definition db setting
type DatabaseConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	User          string `mapstructure:"user"`
	Password      string `mapstructure:"password"`
	Database      string `mapstructure:"database"`
	RetryInterval int    `mapstructure:"retry_interval"`
	RetryCount    int    `mapstructure:"retry_count"`
}

// EventsConfig definition room event publisher, driver: "", "kafka" or "rabbitmq"
type EventsConfig struct {
	Driver        string   `mapstructure:"driver"`
	Brokers       []string `mapstructure:"brokers"`
	Topic         string   `mapstructure:"topic"`
	RabbitURL     string   `mapstructure:"rabbit_url"`
	Exchange      string   `mapstructure:"exchange"`
	RetryCount    int      `mapstructure:"retry_count"`
	RetryInterval int      `mapstructure:"retry_interval"`
}

// MinIOConfig definition voice clip storage
type MinIOConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	User          string `mapstructure:"user"`
	Password      string `mapstructure:"password"`
	BucketName    string `mapstructure:"bucket_name"`
	UseSSL        bool   `mapstructure:"use_ssl"`
	RetryCount    int    `mapstructure:"retry_count"`
	RetryInterval int    `mapstructure:"retry_interval"`
}

// RateLimitConfig definition rate limit backing store
type RateLimitConfig struct {
	Redis bool `mapstructure:"redis"`
}

// RoomTunables room coordination timings, zero values fall back to defaults
type RoomTunables struct {
	AutoDeleteDefault bool          `mapstructure:"auto_delete_default"`
	RoomTTL           time.Duration `mapstructure:"room_ttl"`
	PresenceTTL       time.Duration `mapstructure:"presence_ttl"`
	SignalTTL         time.Duration `mapstructure:"signal_ttl"`
	PollMinInterval   time.Duration `mapstructure:"poll_min_interval"`
	MessageLimit      int           `mapstructure:"message_limit"`
}

// AdminConfig definition admin back office access
type AdminConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}
