package config

import (
	"bytes"
	"errors"
	"log"
	"os"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DeployTarget 決定使用哪一種儲存後端
type DeployTarget string

const (
	// DeployMemory single process, in-memory stores
	DeployMemory DeployTarget = "memory"
	// DeployPostgres pgx pool stores
	DeployPostgres DeployTarget = "postgres"
	// DeployORM gorm room store + pgx settings store
	DeployORM DeployTarget = "orm"
	// DeployMongo mongo document stores
	DeployMongo DeployTarget = "mongo"
)

// SessionPolicy 決定同一帳號是否只能保留一個 session
type SessionPolicy string

const (
	// SessionPolicySingleAccount a new session evicts the account's older sessions
	SessionPolicySingleAccount SessionPolicy = "single_account"
	// SessionPolicyMultiSession sessions of one account coexist
	SessionPolicyMultiSession SessionPolicy = "multi_session"
)

// JoinSessionPolicyEnv env key read on every join
const JoinSessionPolicyEnv = "VOICELINK_JOIN_SESSION_POLICY"

// EnvInfo 集合服務設定 from .env
type EnvInfo struct {
	RoomService         string
	RoomServicePort     string
	RoomServiceYAMLPath string
	RoomServiceLogPath  string
	DeployTarget        DeployTarget
}

// EnvConfig 集合服務設定
var (
	EnvConfig = initEnv()
	envConfig EnvInfo
	once      sync.Once
	env       string

	policyWarnOnce sync.Once
)

func initEnv() EnvInfo {
	once.Do(func() {
		path, err := GetPath(".env", 5)
		if err != nil {
			log.Printf("Warning: Could not get .env path: %v", err)
		} else if err := godotenv.Load(path); err != nil {
			log.Printf("Warning: Could not load .env file: %v", err)
		}

		env = os.Getenv("ENV")

		envConfig = EnvInfo{
			RoomService:         envOr("ROOM_SERVICE", "room_service"),
			RoomServicePort:     os.Getenv("ROOM_SERVICE_PORT"),
			RoomServiceYAMLPath: envOr("ROOM_SERVICE_YAML", "./configs"),
			RoomServiceLogPath:  envOr("ROOM_SERVICE_LOG", "./logs"),
			DeployTarget:        ParseDeployTarget(os.Getenv("DEPLOY_TARGET")),
		}
	})

	return envConfig
}

// ParseDeployTarget map DEPLOY_TARGET to a backend, unknown values use memory
func ParseDeployTarget(raw string) DeployTarget {
	switch DeployTarget(strings.ToLower(strings.TrimSpace(raw))) {
	case DeployPostgres, "mysql", "sql":
		return DeployPostgres
	case DeployORM, "prisma", "gorm":
		return DeployORM
	case DeployMongo, "cloudbase", "document":
		return DeployMongo
	default:
		return DeployMemory
	}
}

// JoinSessionPolicy read the join session policy for the current request.
// Every value resolves to single_account; opting out is logged once.
func JoinSessionPolicy() SessionPolicy {
	raw := SessionPolicy(strings.TrimSpace(os.Getenv(JoinSessionPolicyEnv)))
	if raw != "" && raw != SessionPolicySingleAccount {
		policyWarnOnce.Do(func() {
			log.Printf("Warning: %s=%s is ignored, single_account is enforced", JoinSessionPolicyEnv, raw)
		})
	}
	return SessionPolicySingleAccount
}

// IsProduction check run env
func IsProduction() bool {
	return env == "production"
}

// LoadConfig 加載配置
func LoadConfig[T any](serviceName string, configPath string) T {
	v := viper.New()
	v.SetConfigName(serviceName)
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)

	// 自動讀取環境變數
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		log.Fatalf("Error loading config file: %v", err)
	}

	rawConfig, err := os.ReadFile(v.ConfigFileUsed())
	if err != nil {
		log.Fatalf("Error reading raw config file: %v", err)
	}

	// 替換 ${} 占位符為環境變數的值
	expandedConfig := os.ExpandEnv(string(rawConfig))
	if err := v.ReadConfig(bytes.NewBuffer([]byte(expandedConfig))); err != nil {
		log.Fatalf("Error reading expanded config: %v", err)
	}

	var cfg T
	if err := v.Unmarshal(&cfg); err != nil {
		log.Fatalf("Error unmarshaling config: %v", err)
	}
	return cfg
}

// GetPath use fileName loop maxCount find file path
func GetPath(fileName string, maxCount int) (string, error) {
	path := "./" + fileName

	for i := 0; i < maxCount; i++ {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
		path = "../" + path
	}
	return "", errors.New(fileName + " can't find path")
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
