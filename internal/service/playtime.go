package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/GerGh0stface/GhostyPlaytime/internal/format"
	"github.com/GerGh0stface/GhostyPlaytime/internal/ledger"
	"github.com/GerGh0stface/GhostyPlaytime/internal/models"
	"github.com/GerGh0stface/GhostyPlaytime/internal/names"
	"github.com/GerGh0stface/GhostyPlaytime/internal/session"
	"github.com/GerGh0stface/GhostyPlaytime/internal/worker"

	"github.com/google/uuid"
)

// MaxTopLimit caps the length of a top list
const MaxTopLimit = 100

var (
	// ErrPlayerNotFound means the target is neither a UUID nor a known name
	ErrPlayerNotFound = errors.New("player not found")

	// ErrReloadUnavailable means no option loader was installed
	ErrReloadUnavailable = errors.New("reload not available")
)

// Pinger checks that storage is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// SaveQueue accepts out-of-band save requests
type SaveQueue interface {
	Submit(task worker.SaveTask) error
}

// Options holds presentation settings
type Options struct {
	PageSize  int
	TopAmount int
	Suffixes  format.Suffixes
}

// PlaytimeService is what commands, menus and the HTTP API talk to
type PlaytimeService struct {
	ledger   *ledger.Store
	names    *names.Directory
	sessions *session.Tracker
	saves    SaveQueue
	storage  Pinger

	optsMu sync.RWMutex
	opts   Options
	reload func() (Options, error)
}

// NewPlaytimeService creates a new playtime service
func NewPlaytimeService(
	store *ledger.Store,
	directory *names.Directory,
	sessions *session.Tracker,
	saves SaveQueue,
	storage Pinger,
	opts Options,
) *PlaytimeService {
	return &PlaytimeService{
		ledger:   store,
		names:    directory,
		sessions: sessions,
		saves:    saves,
		storage:  storage,
		opts:     opts.withDefaults(),
	}
}

func (o Options) withDefaults() Options {
	if o.PageSize <= 0 {
		o.PageSize = 45
	}
	if o.TopAmount <= 0 {
		o.TopAmount = 5
	}
	if o.Suffixes == (format.Suffixes{}) {
		o.Suffixes = format.DefaultSuffixes
	}
	return o
}

// SetReloader installs the loader used by Reload
func (s *PlaytimeService) SetReloader(load func() (Options, error)) {
	s.optsMu.Lock()
	defer s.optsMu.Unlock()
	s.reload = load
}

// Reload re-reads page size, top amount and suffixes. On error the current
// options stay in effect.
func (s *PlaytimeService) Reload() (Options, error) {
	s.optsMu.RLock()
	load := s.reload
	s.optsMu.RUnlock()

	if load == nil {
		return s.Options(), ErrReloadUnavailable
	}

	opts, err := load()
	if err != nil {
		return s.Options(), fmt.Errorf("reload failed: %w", err)
	}
	opts = opts.withDefaults()

	s.optsMu.Lock()
	s.opts = opts
	s.optsMu.Unlock()
	return opts, nil
}

// Options returns the presentation settings in effect
func (s *PlaytimeService) Options() Options {
	s.optsMu.RLock()
	defer s.optsMu.RUnlock()
	return s.opts
}

// Resolve turns a command target into an identity. A UUID is taken as is;
// anything else must be the last known name of a player, ignoring case.
func (s *PlaytimeService) Resolve(target string) (uuid.UUID, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return uuid.Nil, ErrPlayerNotFound
	}
	if id, err := uuid.Parse(target); err == nil {
		return id, nil
	}
	if id, ok := s.names.Lookup(target); ok {
		return id, nil
	}
	return uuid.Nil, fmt.Errorf("%w: %s", ErrPlayerNotFound, target)
}

// Profile returns the playtime view of target. An identity without a record
// has 0 seconds and no rank.
func (s *PlaytimeService) Profile(target string) (*models.PlayerProfile, error) {
	id, err := s.Resolve(target)
	if err != nil {
		return nil, err
	}

	rank, _ := s.ledger.Rank(id)
	return s.profile(id, rank), nil
}

// SetPlaytime overwrites the playtime of target. Negative values become 0.
func (s *PlaytimeService) SetPlaytime(target string, seconds int64) (*models.PlayerProfile, error) {
	id, err := s.Resolve(target)
	if err != nil {
		return nil, err
	}

	s.ledger.Set(id, seconds)
	rank, _ := s.ledger.Rank(id)
	return s.profile(id, rank), nil
}

// AddPlaytime adds delta (possibly negative) to the playtime of target
func (s *PlaytimeService) AddPlaytime(target string, delta int64) (*models.PlayerProfile, error) {
	id, err := s.Resolve(target)
	if err != nil {
		return nil, err
	}

	s.ledger.Add(id, delta)
	rank, _ := s.ledger.Rank(id)
	return s.profile(id, rank), nil
}

// Top returns the best limit players. limit <= 0 uses the configured default.
func (s *PlaytimeService) Top(limit int) *models.TopResponse {
	if limit <= 0 {
		limit = s.Options().TopAmount
	}
	if limit > MaxTopLimit {
		limit = MaxTopLimit
	}

	return &models.TopResponse{
		Data:  s.entries(s.ledger.TopN(limit), 0),
		Limit: limit,
	}
}

// Page returns one page of the full leaderboard. page is 1-based and is
// clamped into range.
func (s *PlaytimeService) Page(page int) *models.LeaderboardPage {
	pageSize := s.Options().PageSize
	entries, info := s.ledger.Page(page-1, pageSize)

	return &models.LeaderboardPage{
		Data:       s.entries(entries, info.Offset),
		Page:       info.Page + 1,
		TotalPages: info.TotalPages,
		PageSize:   pageSize,
		Total:      info.Total,
	}
}

// Suggest lists known player names matching query
func (s *PlaytimeService) Suggest(query string, limit int) []string {
	if limit <= 0 || limit > MaxTopLimit {
		limit = 10
	}
	return s.names.Suggest(query, limit)
}

// StartSession announces a player joining
func (s *PlaytimeService) StartSession(id uuid.UUID, name string) *models.PlayerProfile {
	s.sessions.OnSessionStart(id, name)
	rank, _ := s.ledger.Rank(id)
	return s.profile(id, rank)
}

// EndSession announces a player leaving. Returns ErrPlayerNotFound when no
// session was in progress.
func (s *PlaytimeService) EndSession(id uuid.UUID) error {
	if !s.sessions.OnSessionEnd(id) {
		return fmt.Errorf("%w: no session for %s", ErrPlayerNotFound, id)
	}
	return nil
}

// SaveNow queues an immediate snapshot save
func (s *PlaytimeService) SaveNow() error {
	return s.saves.Submit(worker.SaveTask{Reason: "admin request"})
}

// OnlineCount returns the number of active sessions
func (s *PlaytimeService) OnlineCount() int {
	return s.sessions.Count()
}

// HealthCheck checks that storage is reachable
func (s *PlaytimeService) HealthCheck(ctx context.Context) error {
	if err := s.storage.Ping(ctx); err != nil {
		return fmt.Errorf("storage unhealthy: %w", err)
	}
	return nil
}

// Format renders seconds with the configured suffixes
func (s *PlaytimeService) Format(seconds int64) string {
	return format.Duration(seconds, s.Options().Suffixes)
}

func (s *PlaytimeService) profile(id uuid.UUID, rank int) *models.PlayerProfile {
	secs := s.ledger.Get(id)
	return &models.PlayerProfile{
		UUID:      id.String(),
		Name:      s.names.Name(id),
		Seconds:   secs,
		Formatted: s.Format(secs),
		Rank:      rank,
		Online:    s.sessions.IsActive(id),
	}
}

func (s *PlaytimeService) entries(list []ledger.Entry, offset int) []models.LeaderboardEntry {
	out := make([]models.LeaderboardEntry, 0, len(list))
	for i, e := range list {
		out = append(out, models.LeaderboardEntry{
			Rank:      offset + i + 1,
			UUID:      e.ID.String(),
			Name:      s.names.Name(e.ID),
			Seconds:   e.Seconds,
			Formatted: s.Format(e.Seconds),
		})
	}
	return out
}
