package config

import (
	"time"

	"github.com/spf13/viper"
)

func setDefaults() {
	viper.SetDefault("logger.log_level", string(LevelInfo))
	viper.SetDefault("logger.app_name", "autoapply")
	viper.SetDefault("logger.output_file", "./logs/errors.log")

	viper.SetDefault("db.driver", DriverSqlite)
	viper.SetDefault("db.connection_string", "./data/autoapply.db")

	viper.SetDefault("ai.providers", []string{})
	viper.SetDefault("ai.gemini_model", "gemini-1.5-flash")
	viper.SetDefault("ai.claude_model", "claude-3-5-haiku-latest")
	viper.SetDefault("ai.max_tokens", 1024)
	viper.SetDefault("ai.max_requests_per_minute", 15)
	viper.SetDefault("ai.max_requests_per_day", 1500)
	viper.SetDefault("ai.timeout", 30*time.Second)

	viper.SetDefault("mail.port", 587)

	viper.SetDefault("api.address", ":8080")
	viper.SetDefault("api.request_timeout", 90*time.Second)

	viper.SetDefault("redis.channel", "autoapply:applications")

	viper.SetDefault("scanner.request_timeout", 10*time.Second)
	viper.SetDefault("scanner.scan_timeout", 60*time.Second)
	viper.SetDefault("scanner.max_requests_per_second", 4.0)
	viper.SetDefault("scanner.max_body_bytes", 2<<20)
	viper.SetDefault("scanner.user_agent", "Mozilla/5.0 (compatible; autoapply/1.0)")
	viper.SetDefault("scanner.cache_ttl", 15*time.Minute)
	viper.SetDefault("scanner.report_retention", 30*24*time.Hour)
	viper.SetDefault("scanner.match_window", 7*24*time.Hour)

	viper.SetDefault("matching.min_score", 0.5)
	viper.SetDefault("matching.auto_apply_threshold", 0.75)

	viper.SetDefault("lifecycle.expiry_horizon", 72*time.Hour)
	viper.SetDefault("lifecycle.sweep_schedule", "*/15 * * * *")
	viper.SetDefault("lifecycle.submit_on_approval", true)
	viper.SetDefault("lifecycle.submit_max_attempts", 1)
	viper.SetDefault("lifecycle.submit_retry_delay", 30*time.Second)
	viper.SetDefault("lifecycle.submit_timeout", 60*time.Second)

	viper.SetDefault("dispatch.max_batch_size", 20)
	viper.SetDefault("dispatch.scan_concurrency", 4)
	viper.SetDefault("dispatch.send_interval", 5*time.Second)
	viper.SetDefault("dispatch.default_daily_cap", 10)
}
