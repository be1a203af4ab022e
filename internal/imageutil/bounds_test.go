package imageutil

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func TestPlanSize(t *testing.T) {
	cases := []struct {
		name       string
		src        Dimensions
		maxW, maxH int
		want       Dimensions
	}{
		{"fits", Dimensions{800, 600}, 1600, 1200, Dimensions{800, 600}},
		{"exact fit", Dimensions{1600, 1200}, 1600, 1200, Dimensions{1600, 1200}},
		{"tie clamps height", Dimensions{4000, 3000}, 1600, 1200, Dimensions{1600, 1200}},
		{"width dominates", Dimensions{4000, 1000}, 1600, 1200, Dimensions{1600, 400}},
		{"height dominates", Dimensions{1000, 4000}, 1600, 1200, Dimensions{300, 1200}},
		{"rounds to nearest", Dimensions{1000, 333}, 300, 300, Dimensions{300, 100}},
		{"tiny side floors at one", Dimensions{10000, 1}, 100, 100, Dimensions{100, 1}},
		{"only one axis over", Dimensions{1000, 100}, 500, 500, Dimensions{500, 50}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := PlanSize(tc.src, tc.maxW, tc.maxH)
			if got != tc.want {
				t.Errorf("PlanSize(%v, %d, %d) = %v, want %v", tc.src, tc.maxW, tc.maxH, got, tc.want)
			}
		})
	}
}

func TestPlanSizeNeverUpscalesOrExceedsBounds(t *testing.T) {
	for w := 1; w <= 400; w += 37 {
		for h := 1; h <= 400; h += 41 {
			for _, box := range [][2]int{{100, 100}, {300, 50}, {50, 300}, {1000, 1000}} {
				src := Dimensions{w, h}
				got := PlanSize(src, box[0], box[1])
				if got.Width > src.Width || got.Height > src.Height {
					t.Fatalf("PlanSize(%v, %v) = %v upscales", src, box, got)
				}
				if got.Width > box[0] || got.Height > box[1] {
					t.Fatalf("PlanSize(%v, %v) = %v exceeds bounds", src, box, got)
				}
				if w <= box[0] && h <= box[1] && got != src {
					t.Fatalf("PlanSize(%v, %v) = %v, want unchanged", src, box, got)
				}
			}
		}
	}
}

func TestFormatDimensionNote(t *testing.T) {
	if got := FormatDimensionNote(Dimensions{10, 20}, Dimensions{10, 20}); got != "10x20" {
		t.Errorf("got %q", got)
	}
	if got := FormatDimensionNote(Dimensions{40, 20}, Dimensions{20, 10}); got != "40x20->20x10" {
		t.Errorf("got %q", got)
	}
}

func TestReadDimensions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "img.png")
	writePNG(t, path, 64, 48)

	got, err := ReadDimensions(path)
	if err != nil {
		t.Fatalf("ReadDimensions: %v", err)
	}
	if got != (Dimensions{64, 48}) {
		t.Errorf("got %v, want 64x48", got)
	}

	bad := filepath.Join(dir, "bad.jpg")
	if err := os.WriteFile(bad, []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err = ReadDimensions(bad)
	var dre *DimensionReadError
	if !errors.As(err, &dre) {
		t.Fatalf("expected DimensionReadError, got %v", err)
	}
	if dre.Path != bad {
		t.Errorf("error path = %s, want %s", dre.Path, bad)
	}
}

func TestLoadResizesToFit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "img.png")
	writePNG(t, path, 200, 100)

	info, err := Load(path, 50, 50)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if info.Original != (Dimensions{200, 100}) {
		t.Errorf("Original = %v", info.Original)
	}
	if info.Processed != (Dimensions{50, 25}) {
		t.Errorf("Processed = %v", info.Processed)
	}
	if b := info.Image.Bounds(); b.Dx() != 50 || b.Dy() != 25 {
		t.Errorf("image bounds = %v", b)
	}
}

func TestWritePPM(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	img.SetNRGBA(0, 0, color.NRGBA{R: 10, G: 20, B: 30, A: 255})

	path, err := WritePPM(img)
	if err != nil {
		t.Fatalf("WritePPM: %v", err)
	}
	defer os.Remove(path)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	header := "P6\n3 2\n255\n"
	if string(data[:len(header)]) != header {
		t.Fatalf("header = %q", data[:len(header)])
	}
	if len(data) != len(header)+3*2*3 {
		t.Fatalf("size = %d", len(data))
	}
	if px := data[len(header) : len(header)+3]; px[0] != 10 || px[1] != 20 || px[2] != 30 {
		t.Errorf("first pixel = %v", px)
	}
}

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}
