package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/ini.v1"

	"github.com/baxromumarov/hh-collector/internal/apperr"
)

const postgresSection = "postgresql"

// Postgres holds the connection parameters from the [postgresql] section of database.ini.
// The database name is not part of it: every run chooses its own.
type Postgres struct {
	Host     string `validate:"required"`
	Port     int    `validate:"min=1,max=65535"`
	User     string `validate:"required"`
	Password string
	SSLMode  string `validate:"oneof=disable allow prefer require verify-ca verify-full"`
	// Locale, when set, is used as LC_COLLATE and LC_CTYPE of created databases
	// (for example "ru_RU.UTF-8" or "C.UTF-8"). Empty inherits template1.
	Locale string
}

type Config struct {
	Postgres Postgres

	HHAPIBaseURL    string        `validate:"required,url"`
	HHArea          int           `validate:"min=1"`
	HHPerPage       int           `validate:"min=1,max=100"`
	HHUserAgent     string        `validate:"required"`
	HHAPITimeout    time.Duration `validate:"gt=0"`
	HHRatePerSecond float64       `validate:"gt=0"`

	SnapshotPath string

	RedisAddr     string
	RedisPassword string
	RedisDB       int `validate:"min=0"`
	CacheTTL      time.Duration

	Port     string `validate:"required"`
	LogLevel string
}

// LoadConfig reads .env (if present), the database.ini file named by DATABASE_INI
// and the remaining settings from the environment.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, apperr.Config("loading .env", err)
	}

	pg, err := LoadPostgres(getEnvString("DATABASE_INI", "database.ini"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Postgres: pg,

		HHAPIBaseURL:    getEnvString("HH_API_BASE_URL", "https://api.hh.ru"),
		HHArea:          getEnvInt("HH_AREA", 113),
		HHPerPage:       getEnvInt("HH_PER_PAGE", 100),
		HHUserAgent:     getEnvString("HH_USER_AGENT", "hh-collector/1.0 (hh-collector@example.com)"),
		HHAPITimeout:    getEnvDuration("HH_API_TIMEOUT", 15*time.Second),
		HHRatePerSecond: getEnvFloat("HH_RATE_PER_SECOND", 5),

		SnapshotPath: getEnvString("SNAPSHOT_PATH", "data/vacancies.json"),

		RedisAddr:     getEnvString("REDIS_ADDR", ""),
		RedisPassword: getEnvString("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		CacheTTL:      getEnvDuration("CACHE_TTL", 24*time.Hour),

		Port:     getEnvString("PORT", "8080"),
		LogLevel: getEnvString("LOG_LEVEL", "info"),
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadPostgres parses the [postgresql] section of an ini file.
// The "password" environment variable, when set, wins over the file.
func LoadPostgres(path string) (Postgres, error) {
	file, err := ini.Load(path)
	if err != nil {
		return Postgres{}, apperr.Config(fmt.Sprintf("reading %s", path), err)
	}
	if !file.HasSection(postgresSection) {
		return Postgres{}, apperr.Config(fmt.Sprintf("section %s is not found in the %s file", postgresSection, path), nil)
	}

	sec := file.Section(postgresSection)
	pg := Postgres{
		Host:     sec.Key("host").MustString("localhost"),
		Port:     sec.Key("port").MustInt(5432),
		User:     sec.Key("user").MustString("postgres"),
		Password: sec.Key("password").String(),
		SSLMode:  sec.Key("sslmode").MustString("disable"),
		Locale:   sec.Key("locale").String(),
	}
	if pass, ok := os.LookupEnv("password"); ok {
		pg.Password = pass
	}
	return pg, nil
}

var validate = validator.New()

func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return apperr.Config("invalid configuration", err)
	}
	return nil
}

func getEnvString(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
