package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/GerGh0stface/GhostyPlaytime/internal/config"
	"github.com/GerGh0stface/GhostyPlaytime/internal/format"
	"github.com/GerGh0stface/GhostyPlaytime/internal/ledger"
	"github.com/GerGh0stface/GhostyPlaytime/internal/models"
	"github.com/GerGh0stface/GhostyPlaytime/internal/persistence"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "get <uuid>",
		Short:        "Show a player's playtime and rank",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)

			id, err := parseID(args[0])
			if err != nil {
				return out.Error(err)
			}

			var profile models.PlayerProfile
			err = rootOpts.withLedger(cmd.Context(), false, func(cfg *config.Config, store *ledger.Store, _ *persistence.Adapter) error {
				rank, _ := store.Rank(id)
				profile = newProfile(cfg, store, id, rank)
				return nil
			})
			if err != nil {
				return out.Error(err)
			}

			return out.Success(profile, profileLine(profile))
		},
	}
}

// NewSetCommand creates the set command.
func NewSetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "set <uuid> <seconds>",
		Short:        "Overwrite a player's playtime",
		Args:         cobra.ExactArgs(2),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.mutate(cmd, args, func(store *ledger.Store, id uuid.UUID, seconds int64) {
				store.Set(id, seconds)
			})
		},
	}
}

// NewAddCommand creates the add command.
func NewAddCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "add <uuid> <seconds>",
		Short:        "Add to (or, with a negative value, subtract from) a player's playtime",
		Args:         cobra.ExactArgs(2),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.mutate(cmd, args, func(store *ledger.Store, id uuid.UUID, seconds int64) {
				store.Add(id, seconds)
			})
		},
	}
}

// NewTopCommand creates the top command.
func NewTopCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "top [n]",
		Short:        "List the players with the most playtime",
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)

			n := 0
			if len(args) == 1 {
				v, err := strconv.Atoi(args[0])
				if err != nil || v <= 0 {
					return out.Error(fmt.Errorf("invalid count %q", args[0]))
				}
				n = v
			}

			var entries []models.LeaderboardEntry
			err := rootOpts.withLedger(cmd.Context(), false, func(cfg *config.Config, store *ledger.Store, _ *persistence.Adapter) error {
				if n == 0 {
					n = cfg.Playtime.TopAmount
				}
				sfx := cfg.Format.Suffixes()
				for i, e := range store.TopN(n) {
					entries = append(entries, models.LeaderboardEntry{
						Rank:      i + 1,
						UUID:      e.ID.String(),
						Seconds:   e.Seconds,
						Formatted: format.Duration(e.Seconds, sfx),
					})
				}
				return nil
			})
			if err != nil {
				return out.Error(err)
			}

			lines := make([]string, 0, len(entries))
			for _, e := range entries {
				lines = append(lines, fmt.Sprintf("#%d %s %s", e.Rank, e.UUID, e.Formatted))
			}
			if len(lines) == 0 {
				lines = append(lines, "no playtime recorded")
			}
			return out.Success(entries, lines...)
		},
	}
}

// mutate parses <uuid> <seconds>, applies fn and saves the result
func (o *RootOptions) mutate(cmd *cobra.Command, args []string, fn func(*ledger.Store, uuid.UUID, int64)) error {
	out := o.formatter(cmd)

	id, err := parseID(args[0])
	if err != nil {
		return out.Error(err)
	}
	seconds, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return out.Error(fmt.Errorf("invalid seconds %q", args[1]))
	}

	var profile models.PlayerProfile
	err = o.withLedger(cmd.Context(), true, func(cfg *config.Config, store *ledger.Store, _ *persistence.Adapter) error {
		fn(store, id, seconds)
		rank, _ := store.Rank(id)
		profile = newProfile(cfg, store, id, rank)
		return nil
	})
	if err != nil {
		return out.Error(err)
	}

	return out.Success(profile, profileLine(profile))
}

// withLedger loads the stored snapshot into a fresh ledger, runs fn with the
// source adapter and, when save is set, writes the ledger back
func (o *RootOptions) withLedger(ctx context.Context, save bool, fn func(*config.Config, *ledger.Store, *persistence.Adapter) error) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := o.config()
	if err != nil {
		return err
	}

	backend, err := o.openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer backend.Close()

	adapter := persistence.NewAdapter(backend, cfg.Playtime.SaveTimeout())
	snapshot, err := adapter.LoadStrict(ctx)
	if err != nil {
		return fmt.Errorf("failed to load from %s: %w", backend.Name(), err)
	}

	store := ledger.NewStore()
	store.Load(snapshot)

	if err := fn(cfg, store, adapter); err != nil {
		return err
	}

	if save {
		if err := adapter.Flush(ctx, store); err != nil {
			return fmt.Errorf("failed to save to %s: %w", backend.Name(), err)
		}
	}
	return nil
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format: o.Format,
		Writer: cmd.OutOrStdout(),
	}
}

func parseID(arg string) (uuid.UUID, error) {
	id, err := uuid.Parse(arg)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid uuid %q: %w", arg, err)
	}
	return id, nil
}

func newProfile(cfg *config.Config, store *ledger.Store, id uuid.UUID, rank int) models.PlayerProfile {
	secs := store.Get(id)
	return models.PlayerProfile{
		UUID:      id.String(),
		Seconds:   secs,
		Formatted: format.Duration(secs, cfg.Format.Suffixes()),
		Rank:      rank,
	}
}

func profileLine(p models.PlayerProfile) string {
	if p.Rank == 0 {
		return fmt.Sprintf("%s %s (no playtime recorded)", p.UUID, p.Formatted)
	}
	return fmt.Sprintf("%s %s (%d seconds, rank #%d)", p.UUID, p.Formatted, p.Seconds, p.Rank)
}
