package main

import (
	"context"
	"errors"
	"io"

	"github.com/spf13/cobra"

	"github.com/luxemuse/luxe-muse-backend/internal/models"
)

func newProfileCmd(withEnv runner) *cobra.Command {
	profileCmd := &cobra.Command{
		Use:   "profile",
		Short: "Inspect and repair profiles",
	}

	profileCmd.AddCommand(&cobra.Command{
		Use:   "get <uid>",
		Short: "Print a stored profile",
		Args:  cobra.ExactArgs(1),
		RunE: withEnv(func(ctx context.Context, env *adminEnv, out io.Writer, args []string) error {
			profile, err := env.services.Profiles.GetProfile(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(out, profile)
		}),
	})

	profileCmd.AddCommand(&cobra.Command{
		Use:   "resolve-owner",
		Short: "Create or repair the OWNER_UID profile",
		Long: `resolve-owner provisions the owner profile if it does not exist yet and
otherwise restores the owner role and unlimited balance on it.`,
		Args: cobra.NoArgs,
		RunE: withEnv(func(ctx context.Context, env *adminEnv, out io.Writer, _ []string) error {
			if env.cfg.OwnerUID == "" {
				return errors.New("OWNER_UID is not set")
			}
			profile, err := env.services.Profiles.ResolveProfile(ctx, models.Principal{UID: env.cfg.OwnerUID}, "")
			if err != nil {
				return err
			}
			return printJSON(out, profile)
		}),
	})
	return profileCmd
}
