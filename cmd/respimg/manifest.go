package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newManifestCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "manifest",
		Short: "Write the original-to-variants manifest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.settings.ManifestPath
			if path == "" {
				return fmt.Errorf("manifest path is required (--manifest-path or manifest_path)")
			}
			return a.writeManifest(path, cmd.OutOrStdout())
		},
	}
}
