package config

import (
	"testing"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func environ(kv map[string]string) env.Options {
	return env.Options{Environment: kv}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := load(environ(map[string]string{}))
	require.NoError(t, err)
	assert.Equal(t, ":3001", cfg.Addr)
	assert.Equal(t, StoreMongo, cfg.Store)
	assert.Equal(t, "mongodb://localhost:27017", cfg.MongoURI)
	assert.Equal(t, "taskverse", cfg.MongoDatabase)
	assert.Equal(t, "*", cfg.CORSOrigin)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 15*time.Second, cfg.ShutdownTimeout)
}

func TestLoadPostgres(t *testing.T) {
	cfg, err := load(environ(map[string]string{
		"TASKVERSE_STORE":            "postgres",
		"DATABASE_URL":               "postgres://localhost/taskverse",
		"TASKVERSE_SHUTDOWN_TIMEOUT": "2s",
	}))
	require.NoError(t, err)
	assert.Equal(t, StorePostgres, cfg.Store)
	assert.Equal(t, "postgres://localhost/taskverse", cfg.DatabaseURL)
	assert.Equal(t, 2*time.Second, cfg.ShutdownTimeout)
}

func TestLoadRejectsBadValues(t *testing.T) {
	_, err := load(environ(map[string]string{"TASKVERSE_STORE": "postgres"}))
	assert.Error(t, err)

	_, err = load(environ(map[string]string{"TASKVERSE_SHUTDOWN_TIMEOUT": "soon"}))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	ok := Config{Store: StoreMemory, ShutdownTimeout: time.Second}
	assert.NoError(t, ok.Validate())

	cases := map[string]Config{
		"unknown store":   {Store: "redis", ShutdownTimeout: time.Second},
		"postgres no dsn": {Store: StorePostgres, ShutdownTimeout: time.Second},
		"mongo no uri":    {Store: StoreMongo, MongoDatabase: "x", ShutdownTimeout: time.Second},
		"zero shutdown":   {Store: StoreMemory},
	}
	for name, cfg := range cases {
		assert.Error(t, cfg.Validate(), name)
	}
}

func TestLoadClient(t *testing.T) {
	cfg, err := loadClient(environ(map[string]string{"TASKVERSE_API_URL": "http://tasks.internal:8080"}))
	require.NoError(t, err)
	assert.Equal(t, "http://tasks.internal:8080", cfg.APIURL)
}
