package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolDefaults(t *testing.T) {
	cfg := Config{URL: "postgres://localhost/test"}.withDefaults()

	assert.Equal(t, 10, cfg.MaxOpenConns)
	assert.Equal(t, 5, cfg.MaxIdleConns)
	assert.LessOrEqual(t, cfg.MaxIdleConns, cfg.MaxOpenConns)
	assert.Equal(t, 5, cfg.ConnMaxLifetime)
	assert.Equal(t, 2, cfg.ConnMaxIdleTime)
}

func TestPoolOverridesKept(t *testing.T) {
	cfg := Config{MaxOpenConns: 3, MaxIdleConns: 1}.withDefaults()

	assert.Equal(t, 3, cfg.MaxOpenConns)
	assert.Equal(t, 1, cfg.MaxIdleConns)
}

func TestConnectRequiresURL(t *testing.T) {
	db, err := Connect(context.Background(), Config{})
	require.Error(t, err)
	assert.Nil(t, db)
}
