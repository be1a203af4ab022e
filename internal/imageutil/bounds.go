package imageutil

import (
	"fmt"
	"math"
)

type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (d Dimensions) Pixels() int64 {
	return int64(d.Width) * int64(d.Height)
}

func (d Dimensions) String() string {
	return fmt.Sprintf("%dx%d", d.Width, d.Height)
}

// PlanSize fits src inside maxWidth x maxHeight, preserving the aspect
// ratio and never upscaling. The axis with the larger excess is clamped;
// on a tie the height is clamped.
func PlanSize(src Dimensions, maxWidth, maxHeight int) Dimensions {
	if src.Width <= 0 || src.Height <= 0 || maxWidth <= 0 || maxHeight <= 0 {
		return src
	}

	heightExcess := float64(src.Height) / float64(maxHeight)
	widthExcess := float64(src.Width) / float64(maxWidth)
	if heightExcess <= 1 && widthExcess <= 1 {
		return src
	}

	ratio := float64(src.Width) / float64(src.Height)
	if heightExcess >= widthExcess {
		return Dimensions{
			Width:  max(1, int(math.Round(float64(maxHeight)*ratio))),
			Height: maxHeight,
		}
	}
	return Dimensions{
		Width:  maxWidth,
		Height: max(1, int(math.Round(float64(maxWidth)/ratio))),
	}
}

func FormatDimensionNote(original, processed Dimensions) string {
	if original == processed {
		return original.String()
	}
	return fmt.Sprintf("%s->%s", original, processed)
}
