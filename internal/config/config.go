package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"
)

// Config 应用配置
type Config struct {
	Env         string
	DatabaseURL string
	Port        string

	// Telegram
	BotToken    string
	ChannelID   int64 // 广播频道
	AdminChatID int64 // 管理员，可触发 /check、/upcoming

	// TMDB
	TMDBToken string

	// Gemini（用于从帖子文案中提取片名，可为空）
	GeminiKey string

	// 调度参数
	CheckInterval time.Duration // 两次巡检之间的间隔
	RetryDelay    time.Duration // 巡检失败后的重试等待
	PostDelay     time.Duration // 逐条发送之间的延迟

	// 变更判定阈值（产品未最终确认，先做成可配置）
	RatingDelta     float64 // 评分变化阈值
	PopularityRatio float64 // 热度相对变化阈值
}

// Load 加载配置
func Load() *Config {
	dbUser := getEnv("DB_USER", "postgres")
	dbPass := getEnv("DB_PASSWORD", "postgres")
	dbHost := getEnv("DB_HOST", "localhost")
	dbPort := getEnv("DB_PORT", "5432")
	dbName := getEnv("DB_NAME", "cinealert")
	dbSSL := getEnv("DB_SSLMODE", "disable")

	dbURL := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		dbUser, dbPass, dbHost, dbPort, dbName, dbSSL)

	cfg := &Config{
		Env:             getEnv("APP_ENV", "development"),
		DatabaseURL:     dbURL,
		Port:            getEnv("PORT", "5006"),
		BotToken:        getEnv("BOT_TOKEN", ""),
		ChannelID:       getEnvInt64("CHANNEL_ID", 0),
		AdminChatID:     getEnvInt64("ADMIN_CHAT_ID", 0),
		TMDBToken:       getEnv("TMDB_API_TOKEN", ""),
		GeminiKey:       getEnv("GEMINI_API_KEY", ""),
		CheckInterval:   getEnvDuration("CHECK_INTERVAL", 24*time.Hour),
		RetryDelay:      getEnvDuration("RETRY_DELAY", time.Hour),
		PostDelay:       getEnvDuration("POST_DELAY", 2*time.Second),
		RatingDelta:     getEnvFloat("RATING_DELTA", 0.5),
		PopularityRatio: getEnvFloat("POPULARITY_RATIO", 0.20),
	}

	// 缺少凭证属于配置错误，启动即失败，不留到运行时
	if cfg.BotToken == "" {
		log.Fatal("BOT_TOKEN 未设置")
	}
	if cfg.ChannelID == 0 {
		log.Fatal("CHANNEL_ID 未设置")
	}
	if cfg.TMDBToken == "" {
		log.Fatal("TMDB_API_TOKEN 未设置")
	}

	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
