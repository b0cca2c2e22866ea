package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"APPPORT", "DBDRIVER", "DBPATH", "JWT_EXPIRE_MINUTES", "LOGIN_RATE_LIMIT", "LOGIN_RATE_WINDOW", "SEED_DEMO", "REDIS_ADDR"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	assert.Equal(t, uint16(8000), cfg.AppPort)
	assert.Equal(t, DriverSQLite, cfg.DBDriver)
	assert.Equal(t, "serena.db", cfg.DBPath)
	assert.Equal(t, 60*time.Minute, cfg.JWTExpire)
	assert.Equal(t, 5, cfg.LoginRateLimit)
	assert.Equal(t, 15*time.Minute, cfg.LoginRateWindow)
	assert.False(t, cfg.SeedDemo)
	assert.Empty(t, cfg.RedisAddr)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("APPPORT", "9090")
	t.Setenv("DBDRIVER", "MySQL")
	t.Setenv("DBNAME", "serena")
	t.Setenv("JWTSECRET", "s3cret")
	t.Setenv("JWT_EXPIRE_MINUTES", "5")
	t.Setenv("LOGIN_RATE_WINDOW", "1m")
	t.Setenv("SEED_DEMO", "true")

	cfg := Load()
	assert.Equal(t, uint16(9090), cfg.AppPort)
	assert.Equal(t, DriverMySQL, cfg.DBDriver)
	assert.Equal(t, 5*time.Minute, cfg.JWTExpire)
	assert.Equal(t, time.Minute, cfg.LoginRateWindow)
	assert.True(t, cfg.SeedDemo)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"ok", Config{JWTSecret: "x", JWTExpire: time.Minute, DBDriver: DriverSQLite}, false},
		{"missing secret", Config{JWTExpire: time.Minute, DBDriver: DriverSQLite}, true},
		{"zero ttl", Config{JWTSecret: "x", DBDriver: DriverSQLite}, true},
		{"mysql without name", Config{JWTSecret: "x", JWTExpire: time.Minute, DBDriver: DriverMySQL}, true},
		{"unknown driver", Config{JWTSecret: "x", JWTExpire: time.Minute, DBDriver: "oracle"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadConfig_Singleton(t *testing.T) {
	ResetConfigForTest()
	t.Cleanup(ResetConfigForTest)

	first := LoadConfig()
	second := LoadConfig()
	assert.Same(t, first, second)
}

func TestConnectDatabase_TestEnv(t *testing.T) {
	cfg := &Config{AppEnv: "test", DBDriver: DriverSQLite}

	db, err := ConnectDatabase(cfg)
	require.NoError(t, err)
	require.NotNil(t, db)
	assert.NoError(t, db.Exec("SELECT 1").Error)
	assert.NoError(t, CloseDatabase(db))
}

func TestConnectRedis_SkippedWhenUnconfigured(t *testing.T) {
	rdb, err := ConnectRedis(&Config{AppEnv: "development"})
	assert.NoError(t, err)
	assert.Nil(t, rdb)

	rdb, err = ConnectRedis(&Config{AppEnv: "test", RedisAddr: "localhost:6379"})
	assert.NoError(t, err)
	assert.Nil(t, rdb)
}
