package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type ScannerConfig struct {
	RequestTimeout       time.Duration `mapstructure:"request_timeout" validate:"gt=0"`
	ScanTimeout          time.Duration `mapstructure:"scan_timeout" validate:"gt=0"`
	MaxRequestsPerSecond float64       `mapstructure:"max_requests_per_second" validate:"gt=0"`
	MaxBodyBytes         int64         `mapstructure:"max_body_bytes" validate:"gt=0"`
	UserAgent            string        `mapstructure:"user_agent" validate:"required"`
	CacheTTL             time.Duration `mapstructure:"cache_ttl" validate:"gte=0"`
	ReportRetention      time.Duration `mapstructure:"report_retention" validate:"gte=0"`
	MatchWindow          time.Duration `mapstructure:"match_window" validate:"gt=0"`
}

func (config ScannerConfig) validate() error {
	return validate.Struct(config)
}

func (config ScannerConfig) bindEnvironmentVariables() error {
	return nil
}

type MatchingConfig struct {
	MinScore           float64 `mapstructure:"min_score" validate:"gte=0,lte=1"`
	AutoApplyThreshold float64 `mapstructure:"auto_apply_threshold" validate:"gte=0,lte=1"`
}

func (config MatchingConfig) validate() error {
	if err := validate.Struct(config); err != nil {
		return err
	}
	// the auto-apply score never exceeds the match score
	if config.AutoApplyThreshold < config.MinScore {
		return fmt.Errorf("auto_apply_threshold (%.2f) must not be below min_score (%.2f)",
			config.AutoApplyThreshold, config.MinScore)
	}
	return nil
}

func (config MatchingConfig) bindEnvironmentVariables() error {
	return nil
}

type LifecycleConfig struct {
	ExpiryHorizon     time.Duration `mapstructure:"expiry_horizon" validate:"gt=0"`
	SweepSchedule     string        `mapstructure:"sweep_schedule" validate:"required"`
	SubmitOnApproval  bool          `mapstructure:"submit_on_approval"`
	SubmitMaxAttempts int           `mapstructure:"submit_max_attempts" validate:"gte=1,lte=10"`
	SubmitRetryDelay  time.Duration `mapstructure:"submit_retry_delay" validate:"gte=0"`
	SubmitTimeout     time.Duration `mapstructure:"submit_timeout" validate:"gt=0"`
}

func (config LifecycleConfig) validate() error {
	return validate.Struct(config)
}

func (config LifecycleConfig) bindEnvironmentVariables() error {
	return nil
}

type DispatchConfig struct {
	MaxBatchSize    int           `mapstructure:"max_batch_size" validate:"gte=1"`
	ScanConcurrency int           `mapstructure:"scan_concurrency" validate:"gte=1"`
	SendInterval    time.Duration `mapstructure:"send_interval" validate:"gte=0"`
	DefaultDailyCap int           `mapstructure:"default_daily_cap" validate:"gte=0"`
}

func (config DispatchConfig) validate() error {
	return validate.Struct(config)
}

func (config DispatchConfig) bindEnvironmentVariables() error {
	return nil
}
