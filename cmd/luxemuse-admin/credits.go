package main

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"
)

func newCreditsCmd(withEnv runner) *cobra.Command {
	creditsCmd := &cobra.Command{
		Use:   "credits",
		Short: "Manage credit balances",
	}

	creditsCmd.AddCommand(&cobra.Command{
		Use:   "grant <uid> <amount>",
		Short: "Add credits to an account",
		Args:  cobra.ExactArgs(2),
		RunE: withEnv(func(ctx context.Context, env *adminEnv, out io.Writer, args []string) error {
			amount, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("amount must be a whole number: %w", err)
			}
			balance, err := env.services.Ledger.Refund(ctx, args[0], amount)
			if err != nil {
				return err
			}
			return printJSON(out, map[string]any{"uid": args[0], "credits": balance})
		}),
	})
	return creditsCmd
}
