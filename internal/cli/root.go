package cli

import (
	"context"
	"fmt"

	"github.com/GerGh0stface/GhostyPlaytime/internal/config"
	"github.com/GerGh0stface/GhostyPlaytime/internal/persistence"
	"github.com/GerGh0stface/GhostyPlaytime/internal/repository"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Format   string // "json" | "text"
	Backend  string // overrides STORAGE_BACKEND
	DataFile string // overrides DATA_FILE / SQLITE_PATH for file backends

	// seams for tests
	loadConfig  func() (*config.Config, error)
	openBackend func(ctx context.Context, cfg *config.Config) (persistence.Backend, error)
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for playtimectl.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{
		loadConfig:  config.Load,
		openBackend: repository.Open,
	})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "playtimectl",
		Short: "Inspect and edit stored playtime",
		Long: `playtimectl works directly on the configured storage backend.

Mutating commands load the stored snapshot, change it and save it back.
Run them while the server is stopped, otherwise the server's next save
overwrites the change.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Backend, "backend", "", "storage backend (yaml|postgres|sqlite|redis)")
	cmd.PersistentFlags().StringVar(&opts.DataFile, "data-file", "", "YAML or SQLite file for file backends")

	cmd.AddCommand(NewGetCommand(opts))
	cmd.AddCommand(NewSetCommand(opts))
	cmd.AddCommand(NewAddCommand(opts))
	cmd.AddCommand(NewTopCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))

	return cmd
}

// config loads the configuration with the global flag overrides applied
func (o *RootOptions) config() (*config.Config, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	if o.Backend != "" {
		cfg.Storage.Backend = o.Backend
	}
	if o.DataFile != "" {
		cfg.Storage.DataFile = o.DataFile
		cfg.Storage.SQLitePath = o.DataFile
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
