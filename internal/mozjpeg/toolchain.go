package mozjpeg

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

type Toolchain struct {
	CJPEG string
}

// Ensure resolves a cjpeg binary. With an archive (a .tar.gz holding a
// mozjpeg build) it is unpacked once into the user cache dir; otherwise
// cjpeg is looked up on PATH.
func Ensure(ctx context.Context, archive string) (*Toolchain, error) {
	if archive == "" {
		path, err := exec.LookPath("cjpeg")
		if err != nil {
			return nil, fmt.Errorf("cjpeg not found in PATH (set mozjpeg_archive): %w", err)
		}
		return &Toolchain{CJPEG: path}, nil
	}

	data, err := os.ReadFile(archive)
	if err != nil {
		return nil, fmt.Errorf("read mozjpeg archive: %w", err)
	}

	cacheRoot, err := cacheDir()
	if err != nil {
		return nil, err
	}

	sum := sha256.Sum256(data)
	targetDir := filepath.Join(cacheRoot, hex.EncodeToString(sum[:8]))
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := ensureExtracted(targetDir, data); err != nil {
		return nil, err
	}

	cjpeg, err := findBinary(targetDir, "cjpeg")
	if err != nil {
		return nil, err
	}
	return &Toolchain{CJPEG: cjpeg}, nil
}

func cacheDir() (string, error) {
	if dir := os.Getenv("RESPIMG_CACHE_DIR"); dir != "" {
		return dir, nil
	}
	base, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "respimg", "mozjpeg"), nil
}

func findBinary(root, name string) (string, error) {
	var found string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && d.Name() == name {
			found = path
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if found == "" {
		return "", fmt.Errorf("no %s in mozjpeg archive", name)
	}
	return found, nil
}

func ensureExtracted(dest string, archive []byte) error {
	if stat, err := os.Stat(filepath.Join(dest, ".ready")); err == nil && !stat.IsDir() {
		return nil
	}

	if err := os.RemoveAll(dest); err != nil {
		return err
	}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return err
	}

	if err := untar(bytes.NewReader(archive), dest); err != nil {
		return err
	}

	sentinel := filepath.Join(dest, ".ready")
	return os.WriteFile(sentinel, []byte("ok"), 0o644)
}

func untar(r io.Reader, dest string) error {
	gr, err := gzip.NewReader(r)
	if err != nil {
		return fmt.Errorf("init gzip: %w", err)
	}
	defer gr.Close()

	tr := tar.NewReader(gr)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("read tar: %w", err)
		}

		name := filepath.Clean(hdr.Name)
		if strings.Contains(name, "..") || filepath.IsAbs(name) {
			return fmt.Errorf("unsafe path in archive: %q", hdr.Name)
		}
		target := filepath.Join(dest, name)

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(hdr.Mode)&0o777)
			if err != nil {
				return err
			}
			if _, err := io.Copy(out, tr); err != nil {
				out.Close()
				return err
			}
			if err := out.Close(); err != nil {
				return err
			}
		}
	}
	return nil
}
