package db

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskverse/internal/config"
	"taskverse/pkg/task"
)

func TestOpenMemory(t *testing.T) {
	ctx := context.Background()
	h, err := Open(ctx, config.Config{Store: config.StoreMemory, ShutdownTimeout: time.Second})
	require.NoError(t, err)
	assert.Equal(t, config.StoreMemory, h.Kind)
	assert.IsType(t, &task.MemStore{}, h.Store)
	assert.NoError(t, h.Close(ctx))
}

func TestOpenUnknown(t *testing.T) {
	_, err := Open(context.Background(), config.Config{Store: "sqlite"})
	assert.Error(t, err)
}
