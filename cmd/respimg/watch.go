package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/yegorkir/respimg/internal/encode"
	"github.com/yegorkir/respimg/internal/watch"
)

func newWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Generate, then regenerate whenever source images change",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			enc, err := encode.New(ctx, a.settings)
			if err != nil {
				return err
			}

			w, err := watch.New(a.settings.SourceDir, a.log)
			if err != nil {
				return err
			}
			defer w.Close()

			out := cmd.OutOrStdout()
			if err := a.generate(ctx, enc, out); err != nil {
				return err
			}
			a.log.WithField("dir", a.settings.SourceDir).Info("watching for changes, press Ctrl+C to stop")
			return w.Run(ctx, func(ctx context.Context) error {
				return a.generate(ctx, enc, out)
			})
		},
	}
}
