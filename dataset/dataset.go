// Package dataset - Dataset directory scanning for the exploration page.
//
// The expected layout is one subdirectory per class, each holding image
// files. Filenames carry an optional culture-day marker like "D5" which is
// extracted for the per-day breakdown.
package dataset

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/embryo-vision/go-embryo/images"
)

// UnknownDay marks images whose filename carries no day marker.
const UnknownDay = -1

var dayPattern = regexp.MustCompile(`D(\d+)`)

// imageExtensions lists the file extensions treated as images during a scan.
var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
	".bmp":  true,
}

// ImageInfo describes a single scanned image.
type ImageInfo struct {
	// The path of the image, relative to the scan root.
	Path string `json:"path"`
	// The class label, taken from the containing subdirectory.
	Class string `json:"class"`
	// The culture day extracted from the filename, or UnknownDay.
	Day int `json:"day"`
	// The width of the image in pixels.
	Width int `json:"width"`
	// The height of the image in pixels.
	Height int `json:"height"`
	// The sniffed image format.
	Format images.ImageFormat `json:"format"`
}

// ClassSummary is the per-class image count.
type ClassSummary struct {
	// The class label.
	Name string `json:"name"`
	// The number of readable images in the class.
	Count int `json:"count"`
}

// Summary aggregates the statistics of a dataset scan.
type Summary struct {
	// The scanned root directory.
	Root string `json:"root"`
	// The total number of readable images.
	TotalImages int `json:"total_images"`
	// Per-class counts, sorted by class name.
	Classes []ClassSummary `json:"classes"`
	// Image counts keyed by culture day. UnknownDay collects unmarked files.
	DayCounts map[int]int `json:"day_counts"`
	// Paths of files that could not be decoded, relative to the root.
	CorruptImages []string `json:"corrupt_images"`
	// Pixel dimension extremes over the readable images.
	MinWidth  int `json:"min_width"`
	MaxWidth  int `json:"max_width"`
	MinHeight int `json:"min_height"`
	MaxHeight int `json:"max_height"`
	// Aspect ratio (width/height) statistics over the readable images.
	MinAspectRatio  float64 `json:"min_aspect_ratio"`
	MaxAspectRatio  float64 `json:"max_aspect_ratio"`
	MeanAspectRatio float64 `json:"mean_aspect_ratio"`
}

// DayFromFilename extracts the culture day from a filename marker like
// "embryo_D5_042.jpg".
//
// Arguments:
//   - name: The filename to inspect.
//
// Returns:
//   - int: The day number, or UnknownDay when no marker is present.
func DayFromFilename(name string) int {
	match := dayPattern.FindStringSubmatch(name)
	if match == nil {
		return UnknownDay
	}
	day, err := strconv.Atoi(match[1])
	if err != nil {
		return UnknownDay
	}
	return day
}

// Scan walks a dataset directory and aggregates its statistics.
//
// Files that fail header decoding are recorded in CorruptImages rather
// than aborting the scan.
//
// Arguments:
//   - root: The dataset directory, one subdirectory per class.
//
// Returns:
//   - *Summary: The aggregated statistics.
//   - []ImageInfo: The readable images, ordered by class then filename.
//   - error: An error if the root cannot be read.
func Scan(root string) (*Summary, []ImageInfo, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "reading dataset root %s", root)
	}

	summary := &Summary{
		Root:      root,
		DayCounts: make(map[int]int),
	}
	var infos []ImageInfo
	var ratioSum float64

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		class := entry.Name()
		classDir := filepath.Join(root, class)

		files, err := os.ReadDir(classDir)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "reading class directory %s", classDir)
		}

		count := 0
		for _, file := range files {
			if file.IsDir() || !imageExtensions[strings.ToLower(filepath.Ext(file.Name()))] {
				continue
			}

			relPath := filepath.Join(class, file.Name())
			data, err := os.ReadFile(filepath.Join(classDir, file.Name()))
			if err != nil {
				summary.CorruptImages = append(summary.CorruptImages, relPath)
				continue
			}

			img, err := images.FromBytes(data)
			if err != nil {
				summary.CorruptImages = append(summary.CorruptImages, relPath)
				continue
			}

			day := DayFromFilename(file.Name())
			infos = append(infos, ImageInfo{
				Path:   relPath,
				Class:  class,
				Day:    day,
				Width:  img.Width,
				Height: img.Height,
				Format: img.Format,
			})

			count++
			summary.DayCounts[day]++

			ratio := float64(img.Width) / float64(img.Height)
			ratioSum += ratio
			if summary.TotalImages == 0 {
				summary.MinWidth, summary.MaxWidth = img.Width, img.Width
				summary.MinHeight, summary.MaxHeight = img.Height, img.Height
				summary.MinAspectRatio, summary.MaxAspectRatio = ratio, ratio
			} else {
				if img.Width < summary.MinWidth {
					summary.MinWidth = img.Width
				}
				if img.Width > summary.MaxWidth {
					summary.MaxWidth = img.Width
				}
				if img.Height < summary.MinHeight {
					summary.MinHeight = img.Height
				}
				if img.Height > summary.MaxHeight {
					summary.MaxHeight = img.Height
				}
				if ratio < summary.MinAspectRatio {
					summary.MinAspectRatio = ratio
				}
				if ratio > summary.MaxAspectRatio {
					summary.MaxAspectRatio = ratio
				}
			}
			summary.TotalImages++
		}

		summary.Classes = append(summary.Classes, ClassSummary{Name: class, Count: count})
	}

	sort.Slice(summary.Classes, func(i, j int) bool {
		return summary.Classes[i].Name < summary.Classes[j].Name
	})
	if summary.TotalImages > 0 {
		summary.MeanAspectRatio = ratioSum / float64(summary.TotalImages)
	}

	return summary, infos, nil
}
