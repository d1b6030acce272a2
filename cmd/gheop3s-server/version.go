package main

import (
	"fmt"

	"github.com/blang/semver"
	"github.com/spf13/cobra"
)

var (
	progVersion = semver.Version{
		Major: 1,
		Minor: 0,
		Patch: 0,
	}

	// Set with -ldflags "-X main.buildVersion=...".
	buildVersion string
)

func init() {
	if buildVersion != "" {
		progVersion.Build = []string{buildVersion}
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the program version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "gheop3s-server %s\n", progVersion)
		},
	}
}
