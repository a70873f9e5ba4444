package service

import (
	"context"
	"errors"
	"testing"

	"github.com/GerGh0stface/GhostyPlaytime/internal/format"
	"github.com/GerGh0stface/GhostyPlaytime/internal/ledger"
	"github.com/GerGh0stface/GhostyPlaytime/internal/names"
	"github.com/GerGh0stface/GhostyPlaytime/internal/session"
	"github.com/GerGh0stface/GhostyPlaytime/internal/worker"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubQueue struct {
	tasks []worker.SaveTask
	err   error
}

func (q *stubQueue) Submit(task worker.SaveTask) error {
	if q.err != nil {
		return q.err
	}
	q.tasks = append(q.tasks, task)
	return nil
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(ctx context.Context) error { return p.err }

type fixture struct {
	svc    *PlaytimeService
	store  *ledger.Store
	names  *names.Directory
	queue  *stubQueue
	player uuid.UUID
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()

	store := ledger.NewStore()
	dir, err := names.NewDirectory(100)
	require.NoError(t, err)
	queue := &stubQueue{}
	tracker := session.NewTracker(store, dir, queue)

	player := uuid.New()
	dir.Remember(player, "Ghosty")
	store.Set(player, 3661)

	return &fixture{
		svc:    NewPlaytimeService(store, dir, tracker, queue, stubPinger{}, opts),
		store:  store,
		names:  dir,
		queue:  queue,
		player: player,
	}
}

func TestResolve(t *testing.T) {
	f := newFixture(t, Options{})

	id, err := f.svc.Resolve("ghosty")
	require.NoError(t, err)
	assert.Equal(t, f.player, id)

	other := uuid.New()
	id, err = f.svc.Resolve(other.String())
	require.NoError(t, err)
	assert.Equal(t, other, id)

	_, err = f.svc.Resolve("nobody")
	assert.ErrorIs(t, err, ErrPlayerNotFound)

	_, err = f.svc.Resolve("  ")
	assert.ErrorIs(t, err, ErrPlayerNotFound)
}

func TestProfile(t *testing.T) {
	f := newFixture(t, Options{})
	f.store.Set(uuid.New(), 99999)

	p, err := f.svc.Profile("Ghosty")
	require.NoError(t, err)

	assert.Equal(t, f.player.String(), p.UUID)
	assert.Equal(t, "Ghosty", p.Name)
	assert.Equal(t, int64(3661), p.Seconds)
	assert.Equal(t, "1h 1m 1s", p.Formatted)
	assert.Equal(t, 2, p.Rank)
	assert.False(t, p.Online)
}

func TestProfile_IdentityWithoutRecord(t *testing.T) {
	f := newFixture(t, Options{})
	id := uuid.New()

	p, err := f.svc.Profile(id.String())
	require.NoError(t, err)

	assert.Equal(t, int64(0), p.Seconds)
	assert.Equal(t, "0s", p.Formatted)
	assert.Equal(t, 0, p.Rank)
	assert.Equal(t, 1, f.store.Len(), "a lookup must not create a record")

	_, err = f.svc.Profile("nobody")
	assert.ErrorIs(t, err, ErrPlayerNotFound)
}

func TestSetAndAddPlaytime(t *testing.T) {
	f := newFixture(t, Options{})

	p, err := f.svc.SetPlaytime("Ghosty", 100)
	require.NoError(t, err)
	assert.Equal(t, int64(100), p.Seconds)

	p, err = f.svc.AddPlaytime("Ghosty", -150)
	require.NoError(t, err)
	assert.Equal(t, int64(0), p.Seconds)

	fresh := uuid.New()
	p, err = f.svc.AddPlaytime(fresh.String(), 60)
	require.NoError(t, err)
	assert.Equal(t, int64(60), p.Seconds)
	assert.Equal(t, names.Unknown, p.Name)
	assert.Equal(t, 1, p.Rank)
}

func TestTop(t *testing.T) {
	f := newFixture(t, Options{TopAmount: 2})
	f.store.Set(uuid.New(), 10)
	f.store.Set(uuid.New(), 5000)

	top := f.svc.Top(0)
	assert.Equal(t, 2, top.Limit)
	require.Len(t, top.Data, 2)
	assert.Equal(t, int64(5000), top.Data[0].Seconds)
	assert.Equal(t, 1, top.Data[0].Rank)
	assert.Equal(t, "Ghosty", top.Data[1].Name)
	assert.Equal(t, 2, top.Data[1].Rank)

	assert.Equal(t, MaxTopLimit, f.svc.Top(1000).Limit)
}

func TestPage(t *testing.T) {
	f := newFixture(t, Options{PageSize: 2})
	for i := 0; i < 4; i++ {
		f.store.Set(uuid.New(), int64(i))
	}

	first := f.svc.Page(1)
	assert.Equal(t, 1, first.Page)
	assert.Equal(t, 3, first.TotalPages)
	assert.Equal(t, 5, first.Total)
	assert.Equal(t, "Ghosty", first.Data[0].Name)

	last := f.svc.Page(99)
	assert.Equal(t, 3, last.Page)
	require.Len(t, last.Data, 1)
	assert.Equal(t, 5, last.Data[0].Rank)

	assert.Equal(t, 1, f.svc.Page(-3).Page)
}

func TestSessions(t *testing.T) {
	f := newFixture(t, Options{})
	id := uuid.New()

	p := f.svc.StartSession(id, "Newbie")
	assert.True(t, p.Online)
	assert.Equal(t, "Newbie", p.Name)
	assert.Equal(t, 1, f.svc.OnlineCount())

	require.NoError(t, f.svc.EndSession(id))
	assert.Len(t, f.queue.tasks, 1)
	assert.ErrorIs(t, f.svc.EndSession(id), ErrPlayerNotFound)
}

func TestSaveNow(t *testing.T) {
	f := newFixture(t, Options{})
	require.NoError(t, f.svc.SaveNow())
	assert.Len(t, f.queue.tasks, 1)

	f.queue.err = worker.ErrQueueFull
	assert.ErrorIs(t, f.svc.SaveNow(), worker.ErrQueueFull)
}

func TestHealthCheck(t *testing.T) {
	f := newFixture(t, Options{})
	assert.NoError(t, f.svc.HealthCheck(context.Background()))

	f.svc.storage = stubPinger{err: errors.New("connection refused")}
	assert.Error(t, f.svc.HealthCheck(context.Background()))
}

func TestReload(t *testing.T) {
	f := newFixture(t, Options{TopAmount: 2})

	_, err := f.svc.Reload()
	assert.ErrorIs(t, err, ErrReloadUnavailable)

	f.svc.SetReloader(func() (Options, error) {
		return Options{TopAmount: 1, Suffixes: format.Suffixes{Day: "T", Hour: "S", Minute: "M", Second: "Sek"}}, nil
	})
	opts, err := f.svc.Reload()
	require.NoError(t, err)
	assert.Equal(t, 45, opts.PageSize, "unset values fall back to defaults")

	assert.Equal(t, 1, f.svc.Top(0).Limit)
	assert.Equal(t, "1S 1M 1Sek", f.svc.Format(3661))

	f.svc.SetReloader(func() (Options, error) {
		return Options{}, errors.New("bad config")
	})
	_, err = f.svc.Reload()
	assert.Error(t, err)
	assert.Equal(t, 1, f.svc.Options().TopAmount, "failed reload keeps current options")
}
