package repository

import (
	"context"
	"fmt"
	"log"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const (
	// SecondsKey is the Redis hash holding uuid -> accumulated seconds
	SecondsKey = "playtime:seconds"

	// LeaderboardKey is a sorted-set mirror of SecondsKey for external dashboards
	LeaderboardKey = "playtime:leaderboard"

	// VersionKey counts completed snapshot writes
	VersionKey = "playtime:version"

	// NamesKey is the Redis hash holding uuid -> last display name
	NamesKey = "playtime:names"
)

// RedisRepository persists playtime snapshots in Redis
type RedisRepository struct {
	client *redis.Client
}

// NewRedisRepository creates a new Redis repository
func NewRedisRepository(client *redis.Client) *RedisRepository {
	return &RedisRepository{
		client: client,
	}
}

// Name identifies the backend in logs
func (r *RedisRepository) Name() string {
	return "redis"
}

// Load reads the seconds hash. Values that are not integers are dropped.
func (r *RedisRepository) Load(ctx context.Context) (map[string]int64, error) {
	raw, err := r.client.HGetAll(ctx, SecondsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", SecondsKey, err)
	}

	out := make(map[string]int64, len(raw))
	for id, value := range raw {
		secs, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			log.Printf("⚠️  Skipping %q in %s: value %q is not a number of seconds", id, SecondsKey, value)
			continue
		}
		out[id] = secs
	}
	return out, nil
}

// Save replaces the hash and the sorted-set mirror in one MULTI/EXEC block
func (r *RedisRepository) Save(ctx context.Context, snapshot map[string]int64) error {
	pipe := r.client.TxPipeline()

	pipe.Del(ctx, SecondsKey, LeaderboardKey)

	if len(snapshot) > 0 {
		fields := make(map[string]interface{}, len(snapshot))
		members := make([]redis.Z, 0, len(snapshot))
		for id, secs := range snapshot {
			fields[id] = secs
			members = append(members, redis.Z{
				Score:  float64(secs),
				Member: id,
			})
		}
		pipe.HSet(ctx, SecondsKey, fields)
		pipe.ZAdd(ctx, LeaderboardKey, members...)
	}

	pipe.Incr(ctx, VersionKey)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}

// LoadNames reads the names hash
func (r *RedisRepository) LoadNames(ctx context.Context) (map[string]string, error) {
	names, err := r.client.HGetAll(ctx, NamesKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", NamesKey, err)
	}
	return names, nil
}

// SaveNames sets the given fields of the names hash; other fields are kept
func (r *RedisRepository) SaveNames(ctx context.Context, names map[string]string) error {
	if len(names) == 0 {
		return nil
	}

	fields := make(map[string]interface{}, len(names))
	for id, name := range names {
		fields[id] = name
	}
	if err := r.client.HSet(ctx, NamesKey, fields).Err(); err != nil {
		return fmt.Errorf("failed to write %s: %w", NamesKey, err)
	}
	return nil
}

// GetVersion returns how many snapshots have been written
func (r *RedisRepository) GetVersion(ctx context.Context) (int64, error) {
	version, err := r.client.Get(ctx, VersionKey).Int64()
	if err != nil {
		if err == redis.Nil {
			return 0, nil
		}
		return 0, err
	}
	return version, nil
}

// Ping checks if Redis is reachable
func (r *RedisRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (r *RedisRepository) Close() error {
	return r.client.Close()
}
