package mozjpeg

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
)

type EncodeOptions struct {
	// Quality 0 leaves cjpeg at its default.
	Quality int
}

// EncodePPM runs cjpeg on ppmPath and atomically replaces destination.
// It returns the written size in bytes.
func EncodePPM(ctx context.Context, tc *Toolchain, ppmPath, destination string, opts EncodeOptions) (int64, error) {
	if tc == nil {
		return 0, fmt.Errorf("toolchain is nil")
	}

	if err := os.MkdirAll(filepath.Dir(destination), 0o755); err != nil {
		return 0, err
	}

	tmp := destination + ".tmp"
	defer os.Remove(tmp)

	out, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, err
	}
	defer out.Close()

	in, err := os.Open(ppmPath)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	args := []string{"-optimize", "-progressive"}
	if opts.Quality > 0 {
		args = append([]string{"-quality", strconv.Itoa(opts.Quality)}, args...)
	}
	cmd := exec.CommandContext(ctx, tc.CJPEG, args...)
	cmd.Stdin = in
	cmd.Stdout = out
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return 0, fmt.Errorf("cjpeg failed: %w (%s)", err, stderr.String())
	}

	if err := out.Close(); err != nil {
		return 0, err
	}
	if err := os.Rename(tmp, destination); err != nil {
		return 0, err
	}

	info, err := os.Stat(destination)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}
