package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yegorkir/respimg/internal/common"
	"github.com/yegorkir/respimg/internal/config"
	"github.com/yegorkir/respimg/internal/logging"
)

type app struct {
	configPath string
	logLevel   string

	src            string
	dest           string
	sizes          []string
	maxQuality     int
	minQuality     int
	batchSize      int
	skipExisting   bool
	resizeOriginal bool
	dqWidth        int
	dqHeight       int
	dqMaxBytes     int64
	logPath        string
	manifestPath   string
	encoder        string
	mozjpegArchive string

	settings config.Settings
	log      *logrus.Logger
}

func newRootCmd() *cobra.Command {
	root, _ := newRoot()
	return root
}

func newRoot() (*cobra.Command, *app) {
	a := &app{}
	root := &cobra.Command{
		Use:   "respimg",
		Short: "Generate responsive image variants",
		Long: `respimg resizes every image under a source directory into a set of
responsive variants, tunes the quality of the widest variant to a byte
budget and removes outputs that no longer belong to any source.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" {
				return nil
			}
			return a.load(cmd)
		},
	}

	f := root.PersistentFlags()
	f.StringVarP(&a.configPath, "config", "c", "", "YAML settings file")
	f.StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	f.StringVarP(&a.src, "src", "s", "", "directory with original images")
	f.StringVarP(&a.dest, "dest", "d", "", "directory for generated variants")
	f.StringArrayVar(&a.sizes, "size", nil, "variant size as WxH[:suffix], repeatable (default 1600x1200)")
	f.IntVar(&a.maxQuality, "max-quality", 0, "starting quality (default 90)")
	f.IntVar(&a.minQuality, "min-quality", 0, "lowest quality the search may use (default 1)")
	f.IntVar(&a.batchSize, "batch-size", 0, "images processed concurrently per batch (default 10)")
	f.BoolVar(&a.skipExisting, "skip-existing", false, "skip variants newer than their original")
	f.BoolVar(&a.resizeOriginal, "resize-original", false, "overwrite originals wider than their widest variant")
	f.IntVar(&a.dqWidth, "dq-width", 0, "reference width for the byte budget")
	f.IntVar(&a.dqHeight, "dq-height", 0, "reference height for the byte budget")
	f.Int64Var(&a.dqMaxBytes, "dq-max-bytes", 0, "byte budget for the reference area")
	f.StringVar(&a.logPath, "log-path", "", "write the run summary as JSON to this file")
	f.StringVar(&a.manifestPath, "manifest-path", "", "write the original-to-variants manifest to this file")
	f.StringVar(&a.encoder, "encoder", "", "encoder backend: imaging or mozjpeg")
	f.StringVar(&a.mozjpegArchive, "mozjpeg-archive", "", "tar.gz with a mozjpeg build (default: cjpeg from PATH)")

	root.AddCommand(newGenerateCmd(a), newManifestCmd(a), newWatchCmd(a))
	return root, a
}

func (a *app) load(cmd *cobra.Command) error {
	s := config.Default()
	if a.configPath != "" {
		loaded, err := config.Load(a.configPath)
		if err != nil {
			return err
		}
		s = loaded
	}
	if err := a.applyFlags(cmd, &s); err != nil {
		return err
	}
	if len(s.Sizes) == 0 {
		s.Sizes = config.DefaultSizes()
	}
	if err := s.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}

	var err error
	if s.SourceDir, err = common.ResolveDir(s.SourceDir); err != nil {
		return err
	}
	if s.OutputDir, err = common.ResolveDir(s.OutputDir); err != nil {
		return err
	}

	a.log, err = logging.New(s.LogLevel, os.Stderr)
	if err != nil {
		return err
	}
	a.settings = s
	return nil
}

func (a *app) applyFlags(cmd *cobra.Command, s *config.Settings) error {
	changed := cmd.Flags().Changed
	if changed("src") {
		s.SourceDir = a.src
	}
	if changed("dest") {
		s.OutputDir = a.dest
	}
	if changed("size") {
		sizes, err := parseSizes(a.sizes)
		if err != nil {
			return err
		}
		s.Sizes = sizes
	}
	if changed("max-quality") {
		s.MaxQuality = a.maxQuality
	}
	if changed("min-quality") {
		s.MinQuality = a.minQuality
	}
	if changed("batch-size") {
		s.BatchSize = a.batchSize
	}
	if changed("skip-existing") {
		s.SkipExisting = a.skipExisting
	}
	if changed("resize-original") {
		s.ResizeOriginal = a.resizeOriginal
	}
	if changed("dq-width") || changed("dq-height") || changed("dq-max-bytes") {
		dq := config.DynamicQuality{}
		if s.DynamicQuality != nil {
			dq = *s.DynamicQuality
		}
		if changed("dq-width") {
			dq.Width = a.dqWidth
		}
		if changed("dq-height") {
			dq.Height = a.dqHeight
		}
		if changed("dq-max-bytes") {
			dq.MaxBytes = a.dqMaxBytes
		}
		s.DynamicQuality = &dq
	}
	if changed("log-path") {
		s.LogPath = a.logPath
	}
	if changed("manifest-path") {
		s.ManifestPath = a.manifestPath
	}
	if changed("encoder") {
		s.Encoder = a.encoder
	}
	if changed("mozjpeg-archive") {
		s.MozjpegArchive = a.mozjpegArchive
	}
	if changed("log-level") {
		s.LogLevel = a.logLevel
	}
	return nil
}

// parseSizes reads "1600x1200" or "800x600:-{width}w-small" values.
func parseSizes(values []string) ([]config.SizeDefinition, error) {
	var sizes []config.SizeDefinition
	for _, v := range values {
		dims, suffix, _ := strings.Cut(v, ":")
		ws, hs, ok := strings.Cut(strings.ToLower(dims), "x")
		if !ok {
			return nil, fmt.Errorf("invalid size %q (want WxH[:suffix])", v)
		}
		w, err := strconv.Atoi(ws)
		if err != nil {
			return nil, fmt.Errorf("invalid width in size %q: %w", v, err)
		}
		h, err := strconv.Atoi(hs)
		if err != nil {
			return nil, fmt.Errorf("invalid height in size %q: %w", v, err)
		}
		sizes = append(sizes, config.SizeDefinition{MaxWidth: w, MaxHeight: h, Suffix: suffix})
	}
	return sizes, nil
}

func displayPath(path string) string {
	wd, err := os.Getwd()
	if err != nil {
		return path
	}
	rel, err := filepath.Rel(wd, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return rel
}
