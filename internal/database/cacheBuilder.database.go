package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/s2"
	"github.com/valkey-io/valkey-go"
)

type KeyType interface {
	string | uuid.UUID
}

// CacheBuilder assembles one valkey read or write.
//
//	err := NewCacheBuilder(cache, "latest").
//		WithContext(ctx).
//		WithHash(constants.SearchContextCachePrefix).
//		WithStruct(results).
//		WithCompression().
//		Set()
type CacheBuilder struct {
	cache      valkey.Client
	key        string
	value      []byte
	ttl        time.Duration
	ctx        context.Context
	ctxTimeout time.Duration
	compress   bool
	err        error
}

func NewCacheBuilder[K KeyType](cache valkey.Client, key K) *CacheBuilder {
	cacheBuilder := CacheBuilder{
		cache:      cache,
		ttl:        1 * time.Hour,
		ctxTimeout: 5 * time.Second,
		ctx:        context.Background(),
	}

	switch k := any(key).(type) {
	case string:
		cacheBuilder.key = k
	case uuid.UUID:
		cacheBuilder.key = k.String()
	}

	return &cacheBuilder
}

func (cb *CacheBuilder) WithValue(value string) *CacheBuilder {
	cb.value = []byte(value)
	return cb
}

func (cb *CacheBuilder) WithStruct(value any) *CacheBuilder {
	bytes, err := json.Marshal(value)
	if err != nil {
		cb.err = fmt.Errorf("failed to marshal value to json: %w", err)
		return cb
	}

	cb.value = bytes
	return cb
}

// WithCompression stores the value s2 compressed. Readers must also ask for it.
func (cb *CacheBuilder) WithCompression() *CacheBuilder {
	cb.compress = true
	return cb
}

func (cb *CacheBuilder) WithHash(hash string) *CacheBuilder {
	if hash != "" {
		cb.key = fmt.Sprintf("%s:%s", hash, cb.key)
	}

	return cb
}

func (cb *CacheBuilder) WithTTL(ttl time.Duration) *CacheBuilder {
	cb.ttl = ttl
	return cb
}

func (cb *CacheBuilder) WithContext(ctx context.Context) *CacheBuilder {
	cb.ctx = ctx
	return cb
}

func (cb *CacheBuilder) WithTimeout(timeout time.Duration) *CacheBuilder {
	cb.ctxTimeout = timeout
	return cb
}

// Key is the final key after hash prefixes are applied.
func (cb *CacheBuilder) Key() string {
	return cb.key
}

// Payload is the bytes Set would write.
func (cb *CacheBuilder) Payload() ([]byte, error) {
	if cb.err != nil {
		return nil, cb.err
	}
	if len(cb.value) == 0 {
		return nil, errors.New("value is required")
	}
	if cb.compress {
		return s2.Encode(nil, cb.value), nil
	}
	return cb.value, nil
}

func (cb *CacheBuilder) Set() error {
	if cb.key == "" {
		return errors.New("key is required")
	}

	payload, err := cb.Payload()
	if err != nil {
		return err
	}

	ctx, cancel := cb.createTimeoutContext()
	defer cancel()

	command := cb.cache.B().Set().Key(cb.key).Value(valkey.BinaryString(payload))
	if cb.ttl > 0 {
		return cb.cache.Do(ctx, command.Ex(cb.ttl).Build()).Error()
	}
	return cb.cache.Do(ctx, command.Build()).Error()
}

// Get decodes the stored JSON into result. A missing key reports false with no error.
func (cb *CacheBuilder) Get(result any) (bool, error) {
	if cb.err != nil {
		return false, cb.err
	}

	if cb.key == "" {
		return false, errors.New("key is required")
	}

	ctx, cancel := cb.createTimeoutContext()
	defer cancel()

	data, err := cb.cache.Do(ctx, cb.cache.B().Get().Key(cb.key).Build()).AsBytes()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return false, nil
		}
		return false, err
	}

	if len(data) == 0 {
		return false, nil
	}

	if err := cb.Decode(data, result); err != nil {
		return false, err
	}
	return true, nil
}

// Decode reverses Payload.
func (cb *CacheBuilder) Decode(data []byte, result any) error {
	if cb.compress {
		decoded, err := s2.Decode(nil, data)
		if err != nil {
			return fmt.Errorf("failed to decompress %s: %w", cb.key, err)
		}
		data = decoded
	}
	return json.Unmarshal(data, result)
}

func (cb *CacheBuilder) Delete() error {
	if cb.err != nil {
		return cb.err
	}

	ctx, cancel := cb.createTimeoutContext()
	defer cancel()

	return cb.cache.Do(ctx, cb.cache.B().Del().Key(cb.key).Build()).Error()
}

func (cb *CacheBuilder) createTimeoutContext() (context.Context, context.CancelFunc) {
	if deadline, ok := cb.ctx.Deadline(); ok && time.Until(deadline) < cb.ctxTimeout {
		return context.WithCancel(cb.ctx)
	}
	return context.WithTimeout(cb.ctx, cb.ctxTimeout)
}
