// Package redismap provides a Redis-backed mapper. Each record is stored as
// a JSON document under <prefix><id>, and queries scan the prefix.
package redismap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/cookieranger/transis/mapper"
)

// Config holds Redis-specific configuration
type Config struct {
	// Addr is the Redis server address (host:port)
	Addr string
	// Password is the Redis password (optional)
	Password string
	// DB is the Redis database number
	DB int
	// Prefix is prepended to all record keys
	Prefix string
}

// DefaultConfig returns a default configuration
func DefaultConfig() Config {
	return Config{
		Addr:   "localhost:6379",
		Prefix: "transis:",
	}
}

// Mapper reads and writes raw payloads against Redis
type Mapper struct {
	client *redis.Client
	prefix string
}

// New creates a mapper and verifies the connection
func New(config Config) (*Mapper, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	return NewWithClient(client, config.Prefix), nil
}

// NewWithClient creates a mapper around an existing client
func NewWithClient(client *redis.Client, prefix string) *Mapper {
	return &Mapper{client: client, prefix: prefix}
}

// Query returns all stored payloads, ordered by key for determinism. A
// "where" option holding a field map filters by exact match.
func (m *Mapper) Query(ctx context.Context, opts mapper.Options) ([]mapper.Payload, error) {
	keys, err := m.scanKeys(ctx)
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)

	where, _ := opts["where"].(map[string]interface{})
	out := make([]mapper.Payload, 0, len(keys))
	for _, key := range keys {
		raw, err := m.client.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, err
		}
		var payload mapper.Payload
		if err := json.Unmarshal(raw, &payload); err != nil {
			return nil, fmt.Errorf("decode %s: %w", key, err)
		}
		if !matches(payload, where) {
			continue
		}
		out = append(out, payload)
	}
	return out, nil
}

// Get returns the payload stored under the id
func (m *Mapper) Get(ctx context.Context, id interface{}, opts mapper.Options) (mapper.Payload, error) {
	raw, err := m.client.Get(ctx, m.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: id %v", mapper.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	var payload mapper.Payload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("decode id %v: %w", id, err)
	}
	return payload, nil
}

// Create stores a new payload, assigning a fresh uuid when it has no id
func (m *Mapper) Create(ctx context.Context, data mapper.Payload) (mapper.Payload, error) {
	stored := make(mapper.Payload, len(data))
	for k, v := range data {
		stored[k] = v
	}
	if stored["id"] == nil {
		stored["id"] = uuid.NewString()
	}

	raw, err := json.Marshal(stored)
	if err != nil {
		return nil, err
	}
	if err := m.client.Set(ctx, m.key(stored["id"]), raw, 0).Err(); err != nil {
		return nil, err
	}
	return stored, nil
}

// Update merges the given fields into the stored payload
func (m *Mapper) Update(ctx context.Context, id interface{}, data mapper.Payload) (mapper.Payload, error) {
	stored, err := m.Get(ctx, id, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range data {
		if k == "id" {
			continue
		}
		stored[k] = v
	}

	raw, err := json.Marshal(stored)
	if err != nil {
		return nil, err
	}
	if err := m.client.Set(ctx, m.key(id), raw, 0).Err(); err != nil {
		return nil, err
	}
	return stored, nil
}

// Delete removes the payload stored under the id
func (m *Mapper) Delete(ctx context.Context, id interface{}) error {
	n, err := m.client.Del(ctx, m.key(id)).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: id %v", mapper.ErrNotFound, id)
	}
	return nil
}

func (m *Mapper) key(id interface{}) string {
	if f, ok := id.(float64); ok && f == float64(int64(f)) {
		return fmt.Sprintf("%s%d", m.prefix, int64(f))
	}
	return fmt.Sprintf("%s%v", m.prefix, id)
}

func (m *Mapper) scanKeys(ctx context.Context) ([]string, error) {
	var keys []string
	var cursor uint64
	for {
		batch, next, err := m.client.Scan(ctx, cursor, m.prefix+"*", 100).Result()
		if err != nil {
			return nil, err
		}
		keys = append(keys, batch...)
		if next == 0 {
			return keys, nil
		}
		cursor = next
	}
}

func matches(payload mapper.Payload, where map[string]interface{}) bool {
	for field, want := range where {
		if payload[field] != want {
			return false
		}
	}
	return true
}
