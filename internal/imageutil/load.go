package imageutil

import (
	"bufio"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
)

// DimensionReadError marks a file whose header could not be decoded.
type DimensionReadError struct {
	Path string
	Err  error
}

func (e *DimensionReadError) Error() string {
	return fmt.Sprintf("read dimensions of %s: %v", e.Path, e.Err)
}

func (e *DimensionReadError) Unwrap() error { return e.Err }

// ReadDimensions decodes only the image header. JPEG dimensions are
// reported after EXIF orientation, matching what Open returns.
func ReadDimensions(path string) (Dimensions, error) {
	file, err := os.Open(path)
	if err != nil {
		return Dimensions{}, &DimensionReadError{Path: path, Err: err}
	}
	defer file.Close()

	cfg, format, err := image.DecodeConfig(bufio.NewReader(file))
	if err != nil {
		return Dimensions{}, &DimensionReadError{Path: path, Err: err}
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return Dimensions{}, &DimensionReadError{Path: path, Err: fmt.Errorf("empty image %dx%d", cfg.Width, cfg.Height)}
	}
	dims := Dimensions{Width: cfg.Width, Height: cfg.Height}
	if format == "jpeg" {
		if _, err := file.Seek(0, io.SeekStart); err != nil {
			return Dimensions{}, &DimensionReadError{Path: path, Err: err}
		}
		if transposed(exifOrientation(file)) {
			dims.Width, dims.Height = dims.Height, dims.Width
		}
	}
	return dims, nil
}

// Open decodes path with EXIF orientation applied.
func Open(path string) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}

type ImageInfo struct {
	Image     *image.NRGBA
	Original  Dimensions
	Processed Dimensions
}

// Load decodes path and downsizes it to fit maxWidth x maxHeight.
func Load(path string, maxWidth, maxHeight int) (*ImageInfo, error) {
	src, err := Open(path)
	if err != nil {
		return nil, err
	}

	img := toNRGBA(src)
	original := Dimensions{Width: img.Bounds().Dx(), Height: img.Bounds().Dy()}
	processed := PlanSize(original, maxWidth, maxHeight)
	if processed != original {
		dst := image.NewNRGBA(image.Rect(0, 0, processed.Width, processed.Height))
		xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), xdraw.Src, nil)
		img = dst
	}

	return &ImageInfo{
		Image:     img,
		Original:  original,
		Processed: processed,
	}, nil
}

// WritePPM stores img as a binary PPM in a temp file and returns its path.
// Alpha is dropped.
func WritePPM(img *image.NRGBA) (string, error) {
	tmp, err := os.CreateTemp("", "respimg-*.ppm")
	if err != nil {
		return "", err
	}

	bw := bufio.NewWriter(tmp)
	w := img.Bounds().Dx()
	h := img.Bounds().Dy()
	if _, err := fmt.Fprintf(bw, "P6\n%d %d\n255\n", w, h); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}

	row := make([]byte, w*3)
	for y := 0; y < h; y++ {
		off := y * img.Stride
		for x := 0; x < w; x++ {
			px := img.Pix[off+x*4 : off+x*4+3]
			copy(row[x*3:x*3+3], px)
		}
		if _, err := bw.Write(row); err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
			return "", err
		}
	}

	if err := bw.Flush(); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}

func toNRGBA(src image.Image) *image.NRGBA {
	if nrgba, ok := src.(*image.NRGBA); ok && nrgba.Rect.Min == (image.Point{}) && nrgba.Stride == nrgba.Rect.Dx()*4 {
		return nrgba
	}
	b := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst
}
