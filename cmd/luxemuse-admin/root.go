package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/luxemuse/luxe-muse-backend/internal/bootstrap"
	"github.com/luxemuse/luxe-muse-backend/internal/config"
)

// adminEnv is what every subcommand runs against.
type adminEnv struct {
	cfg      *config.Config
	services *bootstrap.Services
	close    func()
}

type envOpener func(ctx context.Context, verbose bool) (*adminEnv, error)

// openEnv connects to the configured backends the same way the server does.
func openEnv(ctx context.Context, verbose bool) (*adminEnv, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	logger := zap.NewNop()
	if verbose {
		if logger, err = zap.NewDevelopment(); err != nil {
			return nil, err
		}
	}
	if cfg.Backend == config.BackendMemory {
		logger.Warn("BACKEND=memory: changes are discarded when the command exits")
	}
	backends, err := bootstrap.Open(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	catalog, err := bootstrap.LoadCatalog(cfg)
	if err != nil {
		backends.Close()
		return nil, err
	}
	return &adminEnv{
		cfg:      cfg,
		services: bootstrap.NewServices(cfg, backends, catalog, logger),
		close: func() {
			backends.Close()
			_ = logger.Sync()
		},
	}, nil
}

func newRootCmd(open envOpener) *cobra.Command {
	var (
		verbose bool
		timeout time.Duration
	)
	root := &cobra.Command{
		Use:           "luxemuse-admin",
		Short:         "Luxe Muse account administration",
		Long:          `luxemuse-admin reads and repairs Luxe Muse profiles and credit balances using the server's configuration.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log backend activity to stderr")
	root.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Deadline for the whole command")

	// withEnv runs fn against freshly opened backends.
	withEnv := func(fn func(ctx context.Context, env *adminEnv, out io.Writer, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			env, err := open(ctx, verbose)
			if err != nil {
				return err
			}
			defer env.close()
			return fn(ctx, env, cmd.OutOrStdout(), args)
		}
	}

	root.AddCommand(newProfileCmd(withEnv))
	root.AddCommand(newCreditsCmd(withEnv))
	return root
}

type runner func(fn func(ctx context.Context, env *adminEnv, out io.Writer, args []string) error) func(*cobra.Command, []string) error

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
