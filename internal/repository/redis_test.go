package repository

import (
	"context"
	"testing"

	"github.com/GerGh0stface/GhostyPlaytime/internal/persistence"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisRepo(t *testing.T) (*RedisRepository, *miniredis.Miniredis) {
	t.Helper()

	return newRedisRepoAt(t, miniredis.RunT(t))
}

// newRedisRepoAt opens another client on an existing miniredis
func newRedisRepoAt(t *testing.T, mr *miniredis.Miniredis) (*RedisRepository, *miniredis.Miniredis) {
	t.Helper()

	repo := NewRedisRepository(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { repo.Close() })
	return repo, mr
}

func TestRedisSave_WritesHashAndLeaderboard(t *testing.T) {
	repo, mr := newRedisRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, map[string]int64{"a": 10, "b": 30}))

	assert.Equal(t, "10", mr.HGet(SecondsKey, "a"))
	assert.Equal(t, "30", mr.HGet(SecondsKey, "b"))

	members, err := mr.ZMembers(LeaderboardKey)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, members)

	score, err := mr.ZScore(LeaderboardKey, "b")
	require.NoError(t, err)
	assert.Equal(t, float64(30), score)

	version, err := repo.GetVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)
}

func TestRedisSave_ReplacesPreviousSnapshot(t *testing.T) {
	repo, _ := newRedisRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, map[string]int64{"a": 1, "b": 2}))
	require.NoError(t, repo.Save(ctx, map[string]int64{"c": 3}))

	got, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"c": 3}, got)
}

func TestRedisLoad_SkipsNonIntegerValues(t *testing.T) {
	repo, mr := newRedisRepo(t)
	mr.HSet(SecondsKey, "good", "12", "bad", "twelve")

	got, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"good": 12}, got)
}

func TestRedisLoad_ConnectionFailure(t *testing.T) {
	repo, mr := newRedisRepo(t)
	mr.Close()

	_, err := repo.Load(context.Background())
	assert.Error(t, err)

	// the adapter absorbs it
	got := persistence.NewAdapter(repo, 0).Load(context.Background())
	assert.Empty(t, got)
}

func TestRedis_AdapterRoundTrip(t *testing.T) {
	repo, _ := newRedisRepo(t)
	ctx := context.Background()
	want := map[uuid.UUID]int64{uuid.New(): 99, uuid.New(): 1}

	require.NoError(t, persistence.NewAdapter(repo, 0).Save(ctx, want))
	assert.Equal(t, want, persistence.NewAdapter(repo, 0).Load(ctx))
}
