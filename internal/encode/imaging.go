package encode

import (
	"context"
	"image"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"

	"github.com/yegorkir/respimg/internal/imageutil"
)

// Imaging encodes with disintegration/imaging. Quality drives the JPEG
// quantizer and the GIF palette size; PNG, BMP and TIFF are lossless and
// ignore it.
type Imaging struct{}

func (Imaging) Encode(ctx context.Context, src, dest string, opts Options) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	img, err := imageutil.Open(src)
	if err != nil {
		return 0, wrap(src, dest, opts, err)
	}
	img = fit(img, opts)

	format, err := imaging.FormatFromFilename(dest)
	if err != nil {
		return 0, wrap(src, dest, opts, err)
	}

	size, err := writeImage(img, dest, format, encodeOptions(format, opts.Quality))
	return size, wrap(src, dest, opts, err)
}

func fit(img image.Image, opts Options) image.Image {
	b := img.Bounds()
	original := imageutil.Dimensions{Width: b.Dx(), Height: b.Dy()}
	planned := imageutil.PlanSize(original, opts.Width, opts.Height)
	if planned == original {
		return img
	}
	return imaging.Resize(img, planned.Width, planned.Height, imaging.Lanczos)
}

func encodeOptions(format imaging.Format, quality int) []imaging.EncodeOption {
	if quality <= 0 {
		return nil
	}
	switch format {
	case imaging.JPEG:
		return []imaging.EncodeOption{imaging.JPEGQuality(quality)}
	case imaging.GIF:
		return []imaging.EncodeOption{imaging.GIFNumColors(max(2, quality*256/100))}
	}
	return nil
}

func writeImage(img image.Image, dest string, format imaging.Format, opts []imaging.EncodeOption) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return 0, err
	}

	tmp := dest + ".tmp"
	defer os.Remove(tmp)

	out, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, err
	}
	if err := imaging.Encode(out, img, format, opts...); err != nil {
		out.Close()
		return 0, err
	}
	if err := out.Close(); err != nil {
		return 0, err
	}
	if err := os.Rename(tmp, dest); err != nil {
		return 0, err
	}

	info, err := os.Stat(dest)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}
