package cli

import (
	"fmt"

	"github.com/GerGh0stface/GhostyPlaytime/internal/config"
	"github.com/GerGh0stface/GhostyPlaytime/internal/ledger"
	"github.com/GerGh0stface/GhostyPlaytime/internal/persistence"

	"github.com/spf13/cobra"
)

// MigrateOptions holds flags for the migrate command.
type MigrateOptions struct {
	To     string
	ToFile string
}

// MigrateResult is the JSON payload of a migration.
type MigrateResult struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Players int    `json:"players"`
	Names   int    `json:"names"`
}

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MigrateOptions{}

	cmd := &cobra.Command{
		Use:   "migrate --to <backend>",
		Short: "Copy all playtime from the configured backend to another one",
		Long: `Copy every stored record from the configured backend to the target.

The target's previous contents are replaced. Stored player names are
copied as well. Connection settings for the
target come from the same configuration; --to-file picks the YAML or SQLite
file when the target is file based.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd, rootOpts, opts)
		},
	}

	cmd.Flags().StringVar(&opts.To, "to", "", "target backend (yaml|postgres|sqlite|redis)")
	cmd.Flags().StringVar(&opts.ToFile, "to-file", "", "target YAML or SQLite file")
	_ = cmd.MarkFlagRequired("to")

	return cmd
}

func runMigrate(cmd *cobra.Command, rootOpts *RootOptions, opts *MigrateOptions) error {
	out := rootOpts.formatter(cmd)
	ctx := cmd.Context()

	var result MigrateResult
	err := rootOpts.withLedger(ctx, false, func(cfg *config.Config, store *ledger.Store, source *persistence.Adapter) error {
		target := *cfg
		target.Storage.Backend = opts.To
		if opts.ToFile != "" {
			target.Storage.DataFile = opts.ToFile
			target.Storage.SQLitePath = opts.ToFile
		}
		if err := target.Validate(); err != nil {
			return err
		}
		if target.Storage == cfg.Storage {
			return fmt.Errorf("source and target are the same storage")
		}

		backend, err := rootOpts.openBackend(ctx, &target)
		if err != nil {
			return err
		}
		defer backend.Close()

		adapter := persistence.NewAdapter(backend, target.Playtime.SaveTimeout())
		if err := adapter.Flush(ctx, store); err != nil {
			return fmt.Errorf("failed to write to %s: %w", backend.Name(), err)
		}

		names := source.LoadNames(ctx)
		if err := adapter.CopyNames(ctx, names); err != nil {
			return fmt.Errorf("failed to write names to %s: %w", backend.Name(), err)
		}

		result = MigrateResult{
			From:    cfg.Storage.Backend,
			To:      opts.To,
			Players: store.Len(),
			Names:   len(names),
		}
		return nil
	})
	if err != nil {
		return out.Error(err)
	}

	return out.Success(result, fmt.Sprintf("✓ Migrated %d players from %s to %s", result.Players, result.From, result.To))
}
