package main

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	// Slice images arrive as PNG or 16-bit grayscale TIFF.
	_ "image/png"

	_ "golang.org/x/image/tiff"

	"slicevol/internal/models"
	"slicevol/pkg/dicom"
)

// manifest describes one slice stack: per-slice image files plus the header
// values an external DICOM parser would have exposed for them.
type manifest struct {
	Slices []manifestSlice `yaml:"slices"`
}

type manifestSlice struct {
	// File is the slice image path, relative to the manifest
	File string `yaml:"file"`

	// Tags holds header values keyed by DICOM keyword, e.g.
	// ImagePositionPatient: '0\0\12.5'
	Tags map[string]string `yaml:"tags"`
}

// strokeScript is a list of brush operations applied after assembly.
type strokeScript struct {
	Strokes []scriptStroke `yaml:"strokes"`
}

type scriptStroke struct {
	Slice     int     `yaml:"slice"`
	Row       int     `yaml:"row"`
	Col       int     `yaml:"col"`
	Radius    int     `yaml:"radius"`
	Threshold float64 `yaml:"threshold"`
	Segment   uint8   `yaml:"segment"`
	Erase     bool    `yaml:"erase"`
}

func loadManifest(path string) (*manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading manifest: %w", err)
	}
	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("error parsing manifest: %w", err)
	}
	if len(m.Slices) == 0 {
		return nil, fmt.Errorf("manifest lists no slices")
	}
	return &m, nil
}

func loadStrokes(path string) ([]scriptStroke, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading strokes file: %w", err)
	}
	var s strokeScript
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("error parsing strokes file: %w", err)
	}
	return s.Strokes, nil
}

// loadSlices decodes every manifest entry into a models.Slice, one task per
// slice; decoding and metadata extraction have no ordering dependency, so
// they run concurrently up to the worker limit and join in input order.
func loadSlices(ctx context.Context, baseDir string, m *manifest, workers int) ([]*models.Slice, error) {
	slices := make([]*models.Slice, len(m.Slices))
	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}

	for i, entry := range m.Slices {
		i, entry := i, entry
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			s, err := loadSlice(filepath.Join(baseDir, entry.File), entry.Tags)
			if err != nil {
				return fmt.Errorf("slice %q: %w", entry.File, err)
			}
			slices[i] = s
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return slices, nil
}

func loadSlice(path string, tags map[string]string) (*models.Slice, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("decode failed: %w", err)
	}

	meta := dicom.Extract(dicom.StaticSource(tags))

	bounds := img.Bounds()
	rows, cols := bounds.Dy(), bounds.Dx()
	pixels := make([]int16, rows*cols)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			// Gray16 luminance, clamped into the signed sample range.
			r, _, _, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			if r > 32767 {
				r = 32767
			}
			pixels[y*cols+x] = int16(r)
		}
	}

	return &models.Slice{
		Pixels:           pixels,
		Rows:             rows,
		Cols:             cols,
		Position:         meta.Position,
		HasPosition:      meta.HasPosition,
		PixelSpacing:     meta.PixelSpacing,
		Thickness:        meta.Thickness,
		HasThickness:     meta.HasThickness,
		RescaleSlope:     meta.RescaleSlope,
		RescaleIntercept: meta.RescaleIntercept,
	}, nil
}
