package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger"`
	DB        DBConfig        `mapstructure:"db"`
	AI        AIConfig        `mapstructure:"ai"`
	Mail      MailConfig      `mapstructure:"mail"`
	Bot       BotConfig       `mapstructure:"bot"`
	API       APIConfig       `mapstructure:"api"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Scanner   ScannerConfig   `mapstructure:"scanner"`
	Matching  MatchingConfig  `mapstructure:"matching"`
	Lifecycle LifecycleConfig `mapstructure:"lifecycle"`
	Dispatch  DispatchConfig  `mapstructure:"dispatch"`
}

var configFile = "./configs/config.yaml"

type section interface {
	validate() error
	bindEnvironmentVariables() error
}

// Path returns the config file location, honoring CONFIG_PATH.
func Path() string {
	if value, ok := os.LookupEnv("CONFIG_PATH"); ok && value != "" {
		return value
	}
	return configFile
}

func Load(file string) (*Config, error) {
	// a missing .env is the normal case outside local development
	_ = godotenv.Load()

	viper.Reset()
	viper.SetConfigFile(file)
	viper.AutomaticEnv()
	setDefaults()

	if err := bindEnvironmentVariables(); err != nil {
		return nil, err
	}

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", file, err)
	}

	config := Config{}
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (config *Config) sections() []namedSection {
	return []namedSection{
		{"LoggerConfig", config.Logger},
		{"DBConfig", config.DB},
		{"AIConfig", config.AI},
		{"MailConfig", config.Mail},
		{"BotConfig", config.Bot},
		{"APIConfig", config.API},
		{"RedisConfig", config.Redis},
		{"ScannerConfig", config.Scanner},
		{"MatchingConfig", config.Matching},
		{"LifecycleConfig", config.Lifecycle},
		{"DispatchConfig", config.Dispatch},
	}
}

type namedSection struct {
	name string
	section
}

func bindEnvironmentVariables() error {
	var errs []error
	for _, s := range (&Config{}).sections() {
		if err := s.bindEnvironmentVariables(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("multiple errors occurred: %w", errors.Join(errs...))
	}
	return nil
}

func (config *Config) validate() error {
	var errs []error
	for _, s := range config.sections() {
		if err := s.validate(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("multiple errors occurred: %w", errors.Join(errs...))
	}
	return nil
}

// bindEnvs binds viper keys to environment variables given as key, env pairs.
func bindEnvs(pairs ...string) error {
	var errs []error
	for i := 0; i+1 < len(pairs); i += 2 {
		if err := viper.BindEnv(pairs[i], pairs[i+1]); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
