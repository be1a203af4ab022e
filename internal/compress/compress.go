package compress

import (
	"context"
	"errors"
	"math"

	"github.com/yegorkir/respimg/internal/config"
	"github.com/yegorkir/respimg/internal/encode"
	"github.com/yegorkir/respimg/internal/imageutil"
)

const (
	// Unbounded is the budget used when no dynamic quality is configured.
	Unbounded int64 = math.MaxInt64

	initialIncrement = 40.0
	refineFactor     = 5.0
	refineThreshold  = 5.0
)

// Budget returns the byte budget for a target of the given size: the
// configured bytes-per-pixel times the target's pixels, capped at the
// source's own size.
func Budget(dq *config.DynamicQuality, target imageutil.Dimensions, sourceBytes int64) int64 {
	if dq == nil {
		return Unbounded
	}
	ref := int64(dq.Width) * int64(dq.Height)
	if ref <= 0 {
		return Unbounded
	}
	return min(dq.MaxBytes*target.Pixels()/ref, sourceBytes)
}

type Request struct {
	Src        string
	Dest       string
	Width      int
	Height     int
	Budget     int64
	MaxQuality int
	MinQuality int
}

type Attempt struct {
	Quality   int
	Increment float64
	Bytes     int64
}

type Result struct {
	Quality  int
	Bytes    int64
	Attempts []Attempt
}

// WithinBudget is false when even MinQuality overshot the budget.
func (r Result) WithinBudget(budget int64) bool {
	return r.Bytes <= budget
}

// Label is the status tag printed next to a searched file.
func (r Result) Label(budget int64) string {
	if r.WithinBudget(budget) {
		return "OK"
	}
	return "MAXED"
}

// Search encodes req.Src into req.Dest at decreasing qualities until the
// output fits req.Budget. Over budget it steps down by the current
// increment; once an attempt fits it restarts one increment/5 below the
// tightest over-budget attempt, until the increment drops to 5 or below.
// The accepted attempt is always the last one, so req.Dest holds it.
func Search(ctx context.Context, enc encode.Encoder, req Request) (Result, error) {
	quality := req.MaxQuality
	increment := initialIncrement
	var attempts []Attempt

	for {
		if err := ctx.Err(); err != nil {
			return Result{Attempts: attempts}, err
		}

		size, err := enc.Encode(ctx, req.Src, req.Dest, encode.Options{
			Width:   req.Width,
			Height:  req.Height,
			Quality: quality,
		})
		if err != nil {
			return Result{Attempts: attempts}, asEncodeError(ctx, req, quality, err)
		}
		attempts = append(attempts, Attempt{Quality: quality, Increment: increment, Bytes: size})

		if size > req.Budget {
			if quality > req.MinQuality {
				quality = step(quality, increment, req.MinQuality)
				continue
			}
			return Result{Quality: quality, Bytes: size, Attempts: attempts}, nil
		}

		if len(attempts) == 1 && quality == req.MaxQuality {
			return Result{Quality: quality, Bytes: size, Attempts: attempts}, nil
		}

		closest, ok := closestOverBudget(attempts, req.Budget)
		if ok && increment > refineThreshold {
			increment /= refineFactor
			quality = step(closest.Quality, increment, req.MinQuality)
			continue
		}
		return Result{Quality: quality, Bytes: size, Attempts: attempts}, nil
	}
}

func step(quality int, increment float64, floor int) int {
	return max(int(math.Floor(float64(quality)-increment)), floor)
}

func closestOverBudget(attempts []Attempt, budget int64) (Attempt, bool) {
	var best Attempt
	found := false
	for _, a := range attempts {
		if a.Bytes > budget && (!found || a.Bytes < best.Bytes) {
			best = a
			found = true
		}
	}
	return best, found
}

func asEncodeError(ctx context.Context, req Request, quality int, err error) error {
	var encErr *encode.Error
	if errors.As(err, &encErr) || ctx.Err() != nil {
		return err
	}
	return &encode.Error{Src: req.Src, Dest: req.Dest, Quality: quality, Err: err}
}
