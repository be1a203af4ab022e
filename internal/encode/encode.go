package encode

import (
	"context"
	"fmt"

	"github.com/yegorkir/respimg/internal/config"
	"github.com/yegorkir/respimg/internal/mozjpeg"
)

// Options bound the output size. Quality 0 means the backend default.
type Options struct {
	Width   int
	Height  int
	Quality int
}

// Encoder resizes src to fit Options and writes it to dest in the format
// implied by dest's extension. It returns the number of bytes written.
type Encoder interface {
	Encode(ctx context.Context, src, dest string, opts Options) (int64, error)
}

// Error is returned for any resize, compress or write failure.
type Error struct {
	Src     string
	Dest    string
	Quality int
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("encode %s -> %s (q=%d): %v", e.Src, e.Dest, e.Quality, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func wrap(src, dest string, opts Options, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Src: src, Dest: dest, Quality: opts.Quality, Err: err}
}

// New builds the backend named by settings.Encoder.
func New(ctx context.Context, settings config.Settings) (Encoder, error) {
	switch settings.Encoder {
	case "", config.EncoderImaging:
		return Imaging{}, nil
	case config.EncoderMozjpeg:
		tc, err := mozjpeg.Ensure(ctx, settings.MozjpegArchive)
		if err != nil {
			return nil, fmt.Errorf("prepare mozjpeg: %w", err)
		}
		return NewMozjpeg(tc), nil
	default:
		return nil, fmt.Errorf("unknown encoder %q", settings.Encoder)
	}
}
