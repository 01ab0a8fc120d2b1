package config

import "fmt"

// MailConfig configures outbound SMTP. An empty host keeps the sender in dry-run mode.
type MailConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
	ReplyTo  string `mapstructure:"reply_to"`
}

func (config MailConfig) DryRun() bool {
	return config.Host == ""
}

func (config MailConfig) validate() error {
	if config.DryRun() {
		return nil
	}
	if config.From == "" {
		return fmt.Errorf("missing variable: from")
	}
	if config.Port <= 0 {
		return fmt.Errorf("port must be positive")
	}
	return nil
}

func (config MailConfig) bindEnvironmentVariables() error {
	return bindEnvs(
		"mail.host", "SMTP_HOST",
		"mail.username", "SMTP_USERNAME",
		"mail.password", "SMTP_PASSWORD",
		"mail.from", "MAIL_FROM",
	)
}
