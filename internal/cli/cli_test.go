package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/GerGh0stface/GhostyPlaytime/internal/config"
	"github.com/GerGh0stface/GhostyPlaytime/internal/persistence"
	"github.com/GerGh0stface/GhostyPlaytime/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run executes playtimectl against a YAML file in dir
func run(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCommand(&RootOptions{
		loadConfig: func() (*config.Config, error) {
			cfg := config.Default()
			cfg.Storage.DataFile = filepath.Join(dir, "playtime.yml")
			cfg.Storage.SQLitePath = filepath.Join(dir, "playtime.db")
			return cfg, nil
		},
		openBackend: repository.Open,
	})

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

func seed(t *testing.T, dir string, data map[uuid.UUID]int64) {
	t.Helper()
	repo := repository.NewYAMLRepository(filepath.Join(dir, "playtime.yml"))
	require.NoError(t, persistence.NewAdapter(repo, 0).Save(context.Background(), data))
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "playtimectl", cmd.Use)

	for _, name := range []string{"get", "set", "add", "top", "migrate"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err, "command %s should exist", name)
		assert.Equal(t, name, sub.Name())
	}

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)
}

func TestInvalidFormat(t *testing.T) {
	_, err := run(t, t.TempDir(), "top", "--format", "xml")
	assert.Error(t, err)
}

func TestGet(t *testing.T) {
	dir := t.TempDir()
	a, b := uuid.New(), uuid.New()
	seed(t, dir, map[uuid.UUID]int64{a: 93784, b: 100})

	out, err := run(t, dir, "get", b.String())
	require.NoError(t, err)
	assert.Contains(t, out, "1m 40s")
	assert.Contains(t, out, "rank #2")

	out, err = run(t, dir, "get", uuid.NewString())
	require.NoError(t, err)
	assert.Contains(t, out, "0s (no playtime recorded)")

	_, err = run(t, dir, "get", "not-a-uuid")
	assert.Error(t, err)
}

func TestSetAndAdd_Persist(t *testing.T) {
	dir := t.TempDir()
	id := uuid.New()

	_, err := run(t, dir, "set", id.String(), "3600")
	require.NoError(t, err)
	_, err = run(t, dir, "add", id.String(), "--", "-600")
	require.NoError(t, err)

	out, err := run(t, dir, "get", id.String(), "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string `json:"status"`
		Data   struct {
			Seconds int64 `json:"seconds"`
			Rank    int   `json:"rank"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, int64(3000), resp.Data.Seconds)
	assert.Equal(t, 1, resp.Data.Rank)
}

func TestSet_RejectsBadSeconds(t *testing.T) {
	_, err := run(t, t.TempDir(), "set", uuid.NewString(), "lots")
	assert.Error(t, err)
}

func TestTop(t *testing.T) {
	dir := t.TempDir()
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	seed(t, dir, map[uuid.UUID]int64{a: 100, b: 50, c: 75})

	out, err := run(t, dir, "top", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "#1 "+a.String())
	assert.Contains(t, out, "#2 "+c.String())
	assert.NotContains(t, out, b.String())

	out, err = run(t, t.TempDir(), "top")
	require.NoError(t, err)
	assert.Contains(t, out, "no playtime recorded")
}

func TestMigrate_YAMLToSQLite(t *testing.T) {
	dir := t.TempDir()
	want := map[uuid.UUID]int64{uuid.New(): 10, uuid.New(): 20}
	seed(t, dir, want)

	out, err := run(t, dir, "migrate", "--to", "sqlite")
	require.NoError(t, err)
	assert.Contains(t, out, "Migrated 2 players")

	out, err = run(t, dir, "top", "--backend", "sqlite", "--format", "json")
	require.NoError(t, err)
	for id := range want {
		assert.Contains(t, out, id.String())
	}
}

func TestMigrate_SameTargetRejected(t *testing.T) {
	_, err := run(t, t.TempDir(), "migrate", "--to", "yaml")
	assert.Error(t, err)
}

func TestMigrate_CopiesNames(t *testing.T) {
	dir := t.TempDir()
	id := uuid.New()
	seed(t, dir, map[uuid.UUID]int64{id: 42})
	repo := repository.NewYAMLRepository(filepath.Join(dir, "playtime.yml"))
	require.NoError(t, repo.SaveNames(context.Background(), map[string]string{id.String(): "Ghosty"}))

	out, err := run(t, dir, "migrate", "--to", "sqlite", "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"names": 1`)

	db, err := repository.OpenSQLite(filepath.Join(dir, "playtime.db"))
	require.NoError(t, err)
	target := repository.NewSQLRepository(db)
	defer target.Close()

	got, err := target.LoadNames(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]string{id.String(): "Ghosty"}, got)
}
