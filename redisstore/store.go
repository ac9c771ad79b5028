// Package redisstore provides a persistence.DocumentStore backed by Redis.
//
// Keys, all under a configurable prefix:
//
//	definition:<model>  hash with the definition and its content hash
//	token:<model>       the ownership token
//	data:<model>        list of record ids, the per-model index
//	record:<id>         record data
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/asaidimu/go-daybed/core/persistence"
	"github.com/asaidimu/go-daybed/utils"
)

// Config holds the Redis connection settings.
type Config struct {
	// Addr is the Redis server address (host:port)
	Addr string
	// Password is the Redis password (optional)
	Password string
	// DB is the Redis database number
	DB int
	// Prefix is prepended to every key
	Prefix string
}

// DefaultConfig returns the default Redis configuration.
func DefaultConfig() Config {
	return Config{
		Addr:   "localhost:6379",
		DB:     0,
		Prefix: "daybed:",
	}
}

// claimScript sets the token only if none exists and, when it did, writes the
// first definition in the same atomic step. It returns the persisted token.
var claimScript = redis.NewScript(`
if redis.call('SETNX', KEYS[1], ARGV[1]) == 1 then
  redis.call('HSET', KEYS[2], 'definition', ARGV[2], 'hash', ARGV[3])
  return ARGV[1]
end
return redis.call('GET', KEYS[1])
`)

// Store is a Redis backed DocumentStore.
type Store struct {
	client *redis.Client
	prefix string
	logger *zap.Logger
}

// Ensure Store implements the persistence.DocumentStore interface.
var _ persistence.DocumentStore = (*Store)(nil)

// Open connects to Redis and checks the connection.
func Open(ctx context.Context, config Config, logger *zap.Logger) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", config.Addr, err)
	}

	return NewWithClient(client, config.Prefix, logger), nil
}

// NewWithClient creates a store over an existing client.
func NewWithClient(client *redis.Client, prefix string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{client: client, prefix: prefix, logger: logger}
}

func (s *Store) key(kind, name string) string {
	return s.prefix + kind + ":" + name
}

func (s *Store) GetDefinition(ctx context.Context, model string) (json.RawMessage, error) {
	definition, err := s.client.HGet(ctx, s.key(persistence.KindDefinition, model), "definition").Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, persistence.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read definition of %s: %w", model, err)
	}
	return definition, nil
}

func (s *Store) PutDefinition(ctx context.Context, model string, definition json.RawMessage) error {
	key := s.key(persistence.KindDefinition, model)
	if err := s.client.HSet(ctx, key, "definition", string(definition), "hash", utils.ContentHash(definition)).Err(); err != nil {
		return fmt.Errorf("failed to write definition of %s: %w", model, err)
	}
	return nil
}

func (s *Store) GetToken(ctx context.Context, model string) (string, error) {
	token, err := s.client.Get(ctx, s.key(persistence.KindToken, model)).Result()
	if errors.Is(err, redis.Nil) {
		return "", persistence.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read token of %s: %w", model, err)
	}
	return token, nil
}

func (s *Store) ClaimModel(ctx context.Context, model, token string, definition json.RawMessage) (string, error) {
	keys := []string{s.key(persistence.KindToken, model), s.key(persistence.KindDefinition, model)}
	persisted, err := claimScript.Run(ctx, s.client, keys, token, string(definition), utils.ContentHash(definition)).Text()
	if err != nil {
		return "", fmt.Errorf("failed to claim %s: %w", model, err)
	}
	s.logger.Debug("Claim evaluated", zap.String("model", model), zap.Bool("won", persisted == token))
	return persisted, nil
}

func (s *Store) InsertRecord(ctx context.Context, model string, data json.RawMessage) (string, error) {
	id := uuid.New().String()
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key("record", id), string(data), 0)
		pipe.RPush(ctx, s.key(persistence.KindData, model), id)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to insert record into %s: %w", model, err)
	}
	return id, nil
}

func (s *Store) ListRecords(ctx context.Context, model string) ([]json.RawMessage, error) {
	ids, err := s.client.LRange(ctx, s.key(persistence.KindData, model), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list records of %s: %w", model, err)
	}
	records := make([]json.RawMessage, 0, len(ids))
	if len(ids) == 0 {
		return records, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.key("record", id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read records of %s: %w", model, err)
	}
	for i, value := range values {
		data, ok := value.(string)
		if !ok {
			s.logger.Warn("Indexed record is missing", zap.String("model", model), zap.String("id", ids[i]))
			continue
		}
		records = append(records, json.RawMessage(data))
	}
	return records, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) Close() error {
	return s.client.Close()
}
