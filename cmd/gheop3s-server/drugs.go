package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/gheop3s/gheop3s/internal/config"
	"github.com/gheop3s/gheop3s/internal/domain/drugref"
)

func drugsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drugs",
		Short: "Manage the drug reference table",
	}

	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Import a semicolon-delimited name;code reference file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("file")
			if path == "" {
				return fmt.Errorf("--file is required")
			}
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			pool, err := openPool(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			repo := drugref.NewProductRepoPG(pool)
			if cfg.RedisURL != "" {
				// Imported codes must not be served stale from the cache.
				client, err := newRedisClient(ctx, cfg.RedisURL)
				if err != nil {
					return err
				}
				defer client.Close()
				repo = drugref.NewCachedRepo(repo, client, cfg.DrugCacheTTL, zerolog.Nop())
			}

			svc := drugref.NewService(repo, zerolog.Nop())
			n, err := svc.Import(ctx, f)
			if err != nil {
				return fmt.Errorf("import %s: %w", path, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d drug product(s).\n", n)
			return nil
		},
	}
	importCmd.Flags().String("file", "", "Path to the reference file")
	cmd.AddCommand(importCmd)

	return cmd
}
