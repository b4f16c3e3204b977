package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string   `mapstructure:"PORT"`
	Env         string   `mapstructure:"ENV"`
	DatabaseURL string   `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32    `mapstructure:"DB_MIN_CONNS"`
	CORSOrigins []string `mapstructure:"CORS_ORIGINS"`

	RateLimitRPS   float64 `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int     `mapstructure:"RATE_LIMIT_BURST"`
	BodyLimit      string  `mapstructure:"BODY_LIMIT"`

	SessionLogPath  string `mapstructure:"SESSION_LOG_PATH"`
	FeedbackLogPath string `mapstructure:"FEEDBACK_LOG_PATH"`

	MQTTBroker      string `mapstructure:"MQTT_BROKER"`
	MQTTClientID    string `mapstructure:"MQTT_CLIENT_ID"`
	MQTTTopicPrefix string `mapstructure:"MQTT_TOPIC_PREFIX"`
	MQTTQoS         int    `mapstructure:"MQTT_QOS"`

	KafkaBrokers []string `mapstructure:"KAFKA_BROKERS"`
	KafkaTopic   string   `mapstructure:"KAFKA_TOPIC"`

	SMTPHost     string `mapstructure:"SMTP_HOST"`
	SMTPPort     int    `mapstructure:"SMTP_PORT"`
	SMTPUsername string `mapstructure:"SMTP_USERNAME"`
	SMTPPassword string `mapstructure:"SMTP_PASSWORD"`
	SMTPFrom     string `mapstructure:"SMTP_FROM"`

	BrevoAPIKey      string `mapstructure:"BREVO_API_KEY"`
	BrevoSenderName  string `mapstructure:"BREVO_SENDER_NAME"`
	BrevoSenderEmail string `mapstructure:"BREVO_SENDER_EMAIL"`

	AlertRecipient    string        `mapstructure:"ALERT_RECIPIENT"`
	FeedbackRecipient string        `mapstructure:"FEEDBACK_RECIPIENT"`
	NotifyTimeout     time.Duration `mapstructure:"NOTIFY_TIMEOUT"`
}

var keys = []string{
	"PORT", "ENV", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS", "CORS_ORIGINS",
	"RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "BODY_LIMIT",
	"SESSION_LOG_PATH", "FEEDBACK_LOG_PATH",
	"MQTT_BROKER", "MQTT_CLIENT_ID", "MQTT_TOPIC_PREFIX", "MQTT_QOS",
	"KAFKA_BROKERS", "KAFKA_TOPIC",
	"SMTP_HOST", "SMTP_PORT", "SMTP_USERNAME", "SMTP_PASSWORD", "SMTP_FROM",
	"BREVO_API_KEY", "BREVO_SENDER_NAME", "BREVO_SENDER_EMAIL",
	"ALERT_RECIPIENT", "FEEDBACK_RECIPIENT", "NOTIFY_TIMEOUT",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 1)
	v.SetDefault("RATE_LIMIT_BURST", 5)
	v.SetDefault("BODY_LIMIT", "64K")
	v.SetDefault("SESSION_LOG_PATH", "icu_data.csv")
	v.SetDefault("FEEDBACK_LOG_PATH", "feedback_log.csv")
	v.SetDefault("MQTT_BROKER", "tcp://broker.emqx.io:1883")
	v.SetDefault("MQTT_CLIENT_ID", "ICU_Simulator_Client")
	v.SetDefault("MQTT_TOPIC_PREFIX", "/icu/bed")
	v.SetDefault("MQTT_QOS", 0)
	v.SetDefault("KAFKA_TOPIC", "icu.protocols")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("BREVO_SENDER_NAME", "ICU Simulator")
	v.SetDefault("BREVO_SENDER_EMAIL", "no-reply@simulator.com")
	v.SetDefault("NOTIFY_TIMEOUT", "10s")

	// Bind env vars explicitly so Unmarshal picks them up
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.CORSOrigins = splitList(cfg.CORSOrigins, v.GetString("CORS_ORIGINS"))
	cfg.KafkaBrokers = splitList(cfg.KafkaBrokers, v.GetString("KAFKA_BROKERS"))

	return cfg, nil
}

// splitList accepts comma separated env values that viper leaves as a
// single element.
func splitList(parsed []string, raw string) []string {
	if len(parsed) == 1 {
		raw = parsed[0]
	} else if len(parsed) > 1 {
		return parsed
	}
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func (c *Config) MQTTEnabled() bool { return c.MQTTBroker != "" }

func (c *Config) KafkaEnabled() bool { return len(c.KafkaBrokers) > 0 }

func (c *Config) SMTPEnabled() bool { return c.SMTPHost != "" }

func (c *Config) BrevoEnabled() bool { return c.BrevoAPIKey != "" }

// Validate checks that the configuration is usable before any collaborator
// is constructed.
func (c *Config) Validate() error {
	if p, err := strconv.Atoi(c.Port); err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("PORT must be a number between 1 and 65535, got %q", c.Port)
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) must not exceed DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst < 1 {
		return fmt.Errorf("RATE_LIMIT_RPS must be positive and RATE_LIMIT_BURST at least 1")
	}
	if c.SessionLogPath == "" && c.DatabaseURL == "" {
		return fmt.Errorf("SESSION_LOG_PATH is required when DATABASE_URL is not set")
	}
	if c.FeedbackLogPath == "" {
		return fmt.Errorf("FEEDBACK_LOG_PATH is required")
	}
	if c.MQTTQoS < 0 || c.MQTTQoS > 2 {
		return fmt.Errorf("MQTT_QOS must be 0, 1 or 2, got %d", c.MQTTQoS)
	}
	if c.KafkaEnabled() && strings.TrimSpace(c.KafkaTopic) == "" {
		return fmt.Errorf("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}

	// SMTP validation: a host needs a sender and a usable port.
	if c.SMTPEnabled() {
		if c.SMTPFrom == "" {
			return fmt.Errorf("SMTP_FROM is required when SMTP_HOST is set")
		}
		if c.SMTPPort < 1 || c.SMTPPort > 65535 {
			return fmt.Errorf("SMTP_PORT must be between 1 and 65535, got %d", c.SMTPPort)
		}
		if c.SMTPPassword != "" && c.SMTPUsername == "" {
			return fmt.Errorf("SMTP_USERNAME is required when SMTP_PASSWORD is set")
		}
	}
	if c.BrevoEnabled() && c.BrevoSenderEmail == "" {
		return fmt.Errorf("BREVO_SENDER_EMAIL is required when BREVO_API_KEY is set")
	}

	if c.NotifyTimeout <= 0 {
		return fmt.Errorf("NOTIFY_TIMEOUT must be positive, got %s", c.NotifyTimeout)
	}
	return nil
}
