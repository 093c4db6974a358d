package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config - полная конфигурация процесса (HTTP + gRPC + планировщик).
type Config struct {
	Env      string `mapstructure:"APP_ENV"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	GRPCAddr string `mapstructure:"GRPC_ADDR"`

	JWTSecret     string        `mapstructure:"JWT_SECRET"`
	JWTIssuer     string        `mapstructure:"JWT_ISSUER"`
	JWTExpiration time.Duration `mapstructure:"JWT_EXPIRATION"`

	// Пустой REDIS_URL - блокировка слотов внутри процесса.
	RedisURL string        `mapstructure:"REDIS_URL"`
	LockTTL  time.Duration `mapstructure:"SLOT_LOCK_TTL"`

	ClinicTimezone string `mapstructure:"CLINIC_TIMEZONE"`

	Scheduling SchedulingConfig `mapstructure:",squash"`
	DB         DBConfig         `mapstructure:",squash"`
}

// SchedulingConfig - политика ядра записи.
type SchedulingConfig struct {
	Guard         string        `mapstructure:"SCHEDULING_GUARD"` // serialized | check_then_insert
	RejectPast    bool          `mapstructure:"SCHEDULING_REJECT_PAST"`
	PastGrace     time.Duration `mapstructure:"SCHEDULING_PAST_GRACE"`
	CheckOnUpdate bool          `mapstructure:"SCHEDULING_CHECK_ON_UPDATE"`
	PageSize      int           `mapstructure:"SCHEDULING_PAGE_SIZE"`
	TodayMax      int           `mapstructure:"SCHEDULING_TODAY_MAX"`
}

// LoadDotEnv подгружает .env, если он есть. Уже выставленные переменные не перетираются.
func LoadDotEnv(paths ...string) {
	_ = godotenv.Load(paths...)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load читает конфигурацию из окружения.
func Load() (*Config, error) {
	v := newViper()

	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("GRPC_ADDR", ":50051")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_ISSUER", "clinica-core")
	v.SetDefault("JWT_EXPIRATION", "8h")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("SLOT_LOCK_TTL", "10s")
	v.SetDefault("CLINIC_TIMEZONE", "Local")
	v.SetDefault("SCHEDULING_GUARD", "serialized")
	v.SetDefault("SCHEDULING_REJECT_PAST", true)
	v.SetDefault("SCHEDULING_PAST_GRACE", "60s")
	v.SetDefault("SCHEDULING_CHECK_ON_UPDATE", true)
	v.SetDefault("SCHEDULING_PAGE_SIZE", 10)
	v.SetDefault("SCHEDULING_TODAY_MAX", 6)
	setDBDefaults(v)

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

func (c *Config) Validate() error {
	if err := c.DB.Validate(); err != nil {
		return err
	}
	if c.JWTSecret == "" {
		if !c.IsDev() {
			return fmt.Errorf("JWT_SECRET is required when APP_ENV=%q", c.Env)
		}
		c.JWTSecret = "dev-secret"
	}
	switch c.Scheduling.Guard {
	case "serialized", "check_then_insert":
	default:
		return fmt.Errorf("SCHEDULING_GUARD must be \"serialized\" or \"check_then_insert\", got %q", c.Scheduling.Guard)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location - часовой пояс клиники, в котором считается «сегодня».
func (c *Config) Location() (*time.Location, error) {
	if c.ClinicTimezone == "" || c.ClinicTimezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.ClinicTimezone)
	if err != nil {
		return nil, fmt.Errorf("invalid CLINIC_TIMEZONE %q: %w", c.ClinicTimezone, err)
	}
	return loc, nil
}
