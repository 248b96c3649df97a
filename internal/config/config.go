package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Backend
	APIBaseURL     string
	RequestTimeout time.Duration

	// Push
	OneSignalAppID    string
	LogoutRevokesPush bool

	// Storage
	StoragePath string

	// Session
	PermissionPromptDelay time.Duration

	// Rate Limit
	RateLimitGateway int // バックエンドへの1分あたり最大リクエスト数
	RateLimitLocal   int // ローカルAPIの1分あたり最大リクエスト数

	// Server
	ServerPort string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.APIBaseURL = os.Getenv("API_BASE_URL")
	if cfg.APIBaseURL == "" {
		missing = append(missing, "API_BASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	// ONESIGNAL_APP_IDが空の場合、プッシュ機能は無効化されたまま起動する
	cfg.OneSignalAppID = getEnvString("ONESIGNAL_APP_ID", "")
	cfg.LogoutRevokesPush = getEnvBool("LOGOUT_REVOKES_PUSH", false)
	cfg.RequestTimeout = getEnvDuration("REQUEST_TIMEOUT", 15*time.Second)
	cfg.StoragePath = getEnvString("STORAGE_PATH", "aury.db")
	cfg.PermissionPromptDelay = getEnvDuration("PERMISSION_PROMPT_DELAY", time.Second)
	cfg.RateLimitGateway = getEnvInt("RATE_LIMIT_GATEWAY", 120)
	cfg.RateLimitLocal = getEnvInt("RATE_LIMIT_LOCAL", 300)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8787")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
