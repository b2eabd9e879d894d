package database

import (
	"context"
	"praid/config"
	"praid/internal/logger"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheConstants(t *testing.T) {
	assert.Equal(t, 0, GENERAL_CACHE_INDEX)
	assert.Equal(t, 1, SEARCH_CACHE_INDEX)
	assert.Equal(t, 2, HEALTH_CACHE_INDEX)
	assert.Equal(t, 3, EVENTS_CACHE_INDEX)
}

func TestDB_StructCreation(t *testing.T) {
	log := logger.New("test")

	db := &DB{
		log: log,
	}

	assert.NotNil(t, db)
	assert.Nil(t, db.SQL)
	assert.False(t, db.Cache.Enabled())
	assert.NoError(t, db.Close())
	assert.NoError(t, db.FlushAllCaches(context.Background()))
}

func TestDSN(t *testing.T) {
	dsn := DSN(config.Config{
		DatabaseHost:     "postgres",
		DatabasePort:     5432,
		DatabaseUser:     "praid",
		DatabasePassword: "secret",
		DatabaseName:     "console",
	})

	assert.Contains(t, dsn, "host=postgres")
	assert.Contains(t, dsn, "port=5432")
	assert.Contains(t, dsn, "dbname=console")
	assert.True(t, strings.HasSuffix(dsn, "TimeZone=UTC"))
}

func TestNew_RequiresDatabaseHost(t *testing.T) {
	_, err := New(config.Config{DatabaseName: "console", DatabaseUser: "praid"})
	assert.Error(t, err)
}

func TestCacheBuilder_Key(t *testing.T) {
	id := uuid.MustParse("0190b8a4-5c2e-7d3a-9f00-000000000001")

	tests := []struct {
		name     string
		builder  *CacheBuilder
		expected string
	}{
		{"plain string", NewCacheBuilder(nil, "latest"), "latest"},
		{"uuid", NewCacheBuilder(nil, id), id.String()},
		{"hashed", NewCacheBuilder(nil, "latest").WithHash("search_context"), "search_context:latest"},
		{"empty hash", NewCacheBuilder(nil, "latest").WithHash(""), "latest"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.builder.Key())
		})
	}
}

func TestCacheBuilder_PayloadRoundTrip(t *testing.T) {
	type snapshot struct {
		Query string   `json:"query"`
		IDs   []string `json:"ids"`
	}
	value := snapshot{Query: strings.Repeat("cats ", 200), IDs: []string{"a", "b"}}

	t.Run("plain", func(t *testing.T) {
		builder := NewCacheBuilder(nil, "k").WithStruct(value)
		payload, err := builder.Payload()
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(string(payload), `{"query"`))

		var decoded snapshot
		require.NoError(t, builder.Decode(payload, &decoded))
		assert.Equal(t, value, decoded)
	})

	t.Run("compressed", func(t *testing.T) {
		builder := NewCacheBuilder(nil, "k").WithStruct(value).WithCompression()
		payload, err := builder.Payload()
		require.NoError(t, err)
		assert.Less(t, len(payload), len(value.Query))

		var decoded snapshot
		require.NoError(t, builder.Decode(payload, &decoded))
		assert.Equal(t, value, decoded)
	})

	t.Run("missing value", func(t *testing.T) {
		_, err := NewCacheBuilder(nil, "k").Payload()
		assert.Error(t, err)
	})

	t.Run("marshal failure is reported", func(t *testing.T) {
		_, err := NewCacheBuilder(nil, "k").WithStruct(make(chan int)).Payload()
		assert.Error(t, err)
	})
}

func TestCacheBuilder_TimeoutContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	builder := NewCacheBuilder(nil, "k").WithContext(ctx).WithTimeout(10 * time.Second)
	timeoutCtx, timeoutCancel := builder.createTimeoutContext()
	defer timeoutCancel()

	deadline, ok := timeoutCtx.Deadline()
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(time.Second), deadline, 500*time.Millisecond)
}
