package report

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"
)

type Clone struct {
	File    string `json:"file"`
	Quality int    `json:"quality,omitempty"`
	Bytes   int64  `json:"bytes"`
}

type Failure struct {
	File  string `json:"file"`
	Error string `json:"error"`
}

// Summary is the outcome of one generation run.
type Summary struct {
	NewClones        []Clone   `json:"newClones"`
	ResizedOriginals []string  `json:"resizedOriginals"`
	DeletedImages    []string  `json:"deletedImages"`
	DeletedDirs      []string  `json:"deletedDirs"`
	Failed           []Failure `json:"failed"`
}

// Empty reports whether the run changed nothing.
func (s Summary) Empty() bool {
	return len(s.NewClones) == 0 &&
		len(s.ResizedOriginals) == 0 &&
		len(s.DeletedImages) == 0 &&
		len(s.DeletedDirs) == 0 &&
		len(s.Failed) == 0
}

// WriteLog stores s as indented JSON at path.
func WriteLog(path string, s Summary) error {
	data, err := json.MarshalIndent(normalize(s), "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write log %s: %w", path, err)
	}
	return nil
}

// normalize swaps nil slices for empty ones so the log always has arrays.
func normalize(s Summary) Summary {
	if s.NewClones == nil {
		s.NewClones = []Clone{}
	}
	if s.ResizedOriginals == nil {
		s.ResizedOriginals = []string{}
	}
	if s.DeletedImages == nil {
		s.DeletedImages = []string{}
	}
	if s.DeletedDirs == nil {
		s.DeletedDirs = []string{}
	}
	if s.Failed == nil {
		s.Failed = []Failure{}
	}
	return s
}

// FormatDuration renders d as "1h 2m 3s"; durations under a second are
// shown with two decimals ("0.25s").
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		secs := math.Round(d.Seconds()*100) / 100
		return strconv.FormatFloat(secs, 'f', -1, 64) + "s"
	}

	var parts []string
	if h := d / time.Hour; h > 0 {
		parts = append(parts, fmt.Sprintf("%dh", h))
		d -= h * time.Hour
	}
	if m := d / time.Minute; m > 0 {
		parts = append(parts, fmt.Sprintf("%dm", m))
		d -= m * time.Minute
	}
	if s := d / time.Second; s > 0 {
		parts = append(parts, fmt.Sprintf("%ds", s))
	}
	return strings.Join(parts, " ")
}
