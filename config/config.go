package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

// Config holds the application's configuration values.
type Config struct {
	AppName string `json:"appname"`
	AppEnv  string `json:"appenv"`
	AppPort uint16 `json:"appport"`
	GinMode string `json:"ginmode"`

	DBDriver string `json:"dbdriver"`
	DBPath   string `json:"dbpath"`
	DBHost   string `json:"dbhost"`
	DBPort   uint16 `json:"dbport"`
	DBName   string `json:"dbname"`
	DBUser   string `json:"dbuser"`
	DBPass   string `json:"-"`

	JWTSecret string        `json:"-"`
	JWTExpire time.Duration `json:"jwt_expire"`

	RedisAddr string `json:"redis_addr"`
	RedisPass string `json:"-"`
	RedisDB   int    `json:"redis_db"`

	LoginRateLimit  int           `json:"login_rate_limit"`
	LoginRateWindow time.Duration `json:"login_rate_window"`

	SeedDemo  bool   `json:"seed_demo"`
	GeoIPPath string `json:"geoip_path"`
	LogLevel  string `json:"log_level"`
}

var (
	config *Config
	once   sync.Once
)

// LoadConfig returns a process-wide Config built by Load on first use.
func LoadConfig() *Config {
	once.Do(func() {
		config = Load()
	})
	return config
}

// ResetConfigForTest drops the cached config so the next LoadConfig re-reads the environment.
func ResetConfigForTest() {
	config = nil
	once = sync.Once{}
}

// Load reads a .env file when one exists and builds a Config from the environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logrus.WithError(err).Warn("could not parse .env file")
	}

	return &Config{
		AppName: getEnv("APPNAME", "Serena API"),
		AppEnv:  getEnv("APPENV", "development"),
		AppPort: uint16(getEnvUint("APPPORT", 8000)),
		GinMode: getEnv("GINMODE", "release"),

		DBDriver: strings.ToLower(getEnv("DBDRIVER", DriverSQLite)),
		DBPath:   getEnv("DBPATH", "serena.db"),
		DBHost:   getEnv("DBHOST", "localhost"),
		DBPort:   uint16(getEnvUint("DBPORT", 3306)),
		DBName:   os.Getenv("DBNAME"),
		DBUser:   os.Getenv("DBUSER"),
		DBPass:   os.Getenv("DBPASS"),

		JWTSecret: os.Getenv("JWTSECRET"),
		JWTExpire: time.Duration(getEnvUint("JWT_EXPIRE_MINUTES", 60)) * time.Minute,

		RedisAddr: os.Getenv("REDIS_ADDR"),
		RedisPass: os.Getenv("REDIS_PASS"),
		RedisDB:   int(getEnvUint("REDIS_DB", 0)),

		LoginRateLimit:  int(getEnvUint("LOGIN_RATE_LIMIT", 5)),
		LoginRateWindow: getEnvDuration("LOGIN_RATE_WINDOW", 15*time.Minute),

		SeedDemo:  getEnvBool("SEED_DEMO", false),
		GeoIPPath: os.Getenv("GEOIP_DB_PATH"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
	}
}

// Validate reports settings the server cannot start without.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWTSECRET must be set")
	}
	if c.JWTExpire <= 0 {
		return fmt.Errorf("JWT_EXPIRE_MINUTES must be positive")
	}
	switch c.DBDriver {
	case DriverSQLite:
	case DriverMySQL:
		if c.DBName == "" {
			return fmt.Errorf("DBNAME is required for the mysql driver")
		}
	default:
		return fmt.Errorf("unsupported DBDRIVER %q", c.DBDriver)
	}
	return nil
}

// IsTest reports whether the process runs under APPENV=test.
func (c *Config) IsTest() bool {
	return c.AppEnv == "test"
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvUint(key string, fallback uint64) uint64 {
	v, err := strconv.ParseUint(os.Getenv(key), 10, 32)
	if err != nil {
		return fallback
	}
	return v
}

func getEnvBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
