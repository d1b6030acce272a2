package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/gheop3s/gheop3s/internal/catalog"
	"github.com/gheop3s/gheop3s/internal/config"
	"github.com/gheop3s/gheop3s/internal/domain/screening"
)

func readInput(path string, stdin io.Reader) (*screening.Input, error) {
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	var in screening.Input
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&in); err != nil {
		return nil, fmt.Errorf("decode screening input: %w", err)
	}
	return &in, nil
}

func screenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "screen",
		Short: "Screen a regimen read from a JSON file against the rule catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			inputPath, _ := cmd.Flags().GetString("input")
			catalogPath, _ := cmd.Flags().GetString("catalog")
			format, _ := cmd.Flags().GetString("format")
			if inputPath == "" {
				return fmt.Errorf("--input is required (use - for stdin)")
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if catalogPath == "" {
				catalogPath = cfg.CatalogPath
			}
			cat, err := catalog.Resolve(catalogPath)
			if err != nil {
				return err
			}
			n, err := cfg.Normalizer()
			if err != nil {
				return err
			}

			in, err := readInput(inputPath, cmd.InOrStdin())
			if err != nil {
				return err
			}

			svc := screening.NewService(cat, screening.NewEvaluator(n), zerolog.Nop())
			res, err := svc.Screen(cmd.Context(), in, screening.SourceCLI)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch format {
			case "json":
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			case "table":
				writeScreeningResult(out, res)
				return nil
			default:
				return fmt.Errorf("unknown format %q (table or json)", format)
			}
		},
	}
	cmd.Flags().String("input", "", "JSON screening input, or - for stdin")
	cmd.Flags().String("catalog", "", "Rule catalog YAML (defaults to CATALOG_PATH or the embedded reference catalog)")
	cmd.Flags().String("format", "table", "Output format: table or json")
	return cmd
}
