package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gheop3s/gheop3s/internal/catalog"
	"github.com/gheop3s/gheop3s/internal/config"
	"github.com/gheop3s/gheop3s/internal/domain/screening"
)

func loadCatalog(cmd *cobra.Command) (*screening.Catalog, error) {
	path, _ := cmd.Flags().GetString("catalog")
	if path == "" {
		cfg, err := config.Load()
		if err != nil {
			return nil, err
		}
		path = cfg.CatalogPath
	}
	return catalog.Resolve(path)
}

func rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect the rule catalog",
	}
	cmd.PersistentFlags().String("catalog", "", "Rule catalog YAML (defaults to CATALOG_PATH or the embedded reference catalog)")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List catalog rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := loadCatalog(cmd)
			if err != nil {
				return err
			}
			list, _ := cmd.Flags().GetInt("list")

			summaries := make([]screening.RuleSummary, 0, cat.Len())
			for _, r := range cat.Rules {
				if list != 0 && r.List() != list {
					continue
				}
				summaries = append(summaries, screening.Summarize(r))
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s, %d rule(s)\n", bold(cat.Name), cat.Version, len(summaries))
			writeRuleTable(out, summaries, false)
			return nil
		},
	}
	listCmd.Flags().Int("list", 0, "Only show rules of this list (1, 2 or 3)")
	cmd.AddCommand(listCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "export",
		Short: "Write the catalog as YAML to stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := loadCatalog(cmd)
			if err != nil {
				return err
			}
			return catalog.Encode(cmd.OutOrStdout(), cat)
		},
	})

	return cmd
}
