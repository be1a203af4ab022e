package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/yegorkir/respimg/internal/common"
	"github.com/yegorkir/respimg/internal/encode"
	"github.com/yegorkir/respimg/internal/imageutil"
	"github.com/yegorkir/respimg/internal/manifest"
	"github.com/yegorkir/respimg/internal/pipeline"
	"github.com/yegorkir/respimg/internal/report"
	"github.com/yegorkir/respimg/internal/variant"
)

func newGenerateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "generate",
		Short: "Generate variants once and prune stale outputs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			enc, err := encode.New(cmd.Context(), a.settings)
			if err != nil {
				return err
			}
			return a.generate(cmd.Context(), enc, cmd.OutOrStdout())
		},
	}
}

func (a *app) generate(ctx context.Context, enc encode.Encoder, out io.Writer) error {
	s := a.settings
	if err := common.EnsureOutputDir(s.OutputDir); err != nil {
		return err
	}

	var totals report.Totals
	deps := pipeline.Deps{
		FS:      common.OS{},
		Encoder: enc,
		Log:     a.log,
		OnPlan: func(p *variant.Plan) {
			totals = report.Totals{PlannedClones: p.QueuedTargets(), QueuedSources: len(p.Queue)}
			report.Planned(out, len(p.Sources), p.TotalTargets(), p.QueuedTargets(), displayPath(s.SourceDir), displayPath(s.OutputDir))
		},
	}
	live := isTerminal(out)
	if live {
		deps.Progress = report.Progress(out, &totals, time.Now())
	}

	res, err := pipeline.Run(ctx, s, deps)
	if live {
		report.ClearProgress(out)
	}
	if err != nil {
		return fmt.Errorf("generate: %w", err)
	}

	report.Print(out, res.Summary, totals, res.Elapsed)

	if s.LogPath != "" {
		if err := report.WriteLog(s.LogPath, res.Summary); err != nil {
			a.log.WithError(err).Error("failed to write log")
		} else {
			fmt.Fprintf(out, "Image generation results logged at %s.\n", s.LogPath)
		}
	}
	if s.ManifestPath != "" {
		if err := a.writeManifest(s.ManifestPath, out); err != nil {
			a.log.WithError(err).Error("failed to write manifest")
		}
	}
	return nil
}

func (a *app) writeManifest(path string, out io.Writer) error {
	root, err := os.Getwd()
	if err != nil {
		return err
	}
	entries, err := manifest.Build(common.OS{}, imageutil.ReadDimensions, manifest.Options{
		SourceDir: a.settings.SourceDir,
		OutputDir: a.settings.OutputDir,
		Root:      root,
	})
	if err != nil {
		return err
	}
	if err := manifest.Write(path, entries); err != nil {
		return err
	}
	fmt.Fprintf(out, "Created manifest file at %s\n", path)
	return nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}
