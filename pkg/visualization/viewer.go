// Package visualization exports slices of an assembled volume and its mask as
// images. It stands in for the external renderer during development and in
// the CLI: scalar values are windowed to gray levels, mask layers to
// black/white planes.
package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"

	"slicevol/internal/models"
)

// Viewer extracts 2D images from a reconstructed volume. The rescale
// coefficients convert stored raw samples to physical units before the
// window is applied.
type Viewer struct {
	volume *models.Volume

	// slope and intercept of the rescale transform to physical units
	slope     float64
	intercept float64

	// window center/width in physical units
	center float64
	width  float64
}

// NewViewer creates a viewer over the given volume. A non-positive window
// width falls back to a full-range linear mapping.
func NewViewer(volume *models.Volume, slope, intercept, center, width float64) *Viewer {
	if slope == 0 {
		slope = 1
	}
	if width <= 0 {
		width = 65535
	}
	return &Viewer{
		volume:    volume,
		slope:     slope,
		intercept: intercept,
		center:    center,
		width:     width,
	}
}

// ExtractSlice renders one axial (z) layer of the volume to a 16-bit
// grayscale image using the viewer's intensity window.
func (v *Viewer) ExtractSlice(position int) (image.Image, error) {
	geom := v.volume.Geom
	if position < 0 || position >= geom.Slices {
		return nil, fmt.Errorf("position %d exceeds slice count %d", position, geom.Slices)
	}

	img := image.NewGray16(image.Rect(0, 0, geom.Cols, geom.Rows))
	low := v.center - v.width/2
	for row := 0; row < geom.Rows; row++ {
		for col := 0; col < geom.Cols; col++ {
			idx := position*geom.PlaneSize() + row*geom.Cols + col
			value := float64(v.volume.Data[idx])*v.slope + v.intercept
			scaled := (value - low) / v.width * 65535
			gray := uint16(math.Max(0, math.Min(65535, scaled)))
			img.SetGray16(col, row, color.Gray16{Y: gray})
		}
	}
	return img, nil
}

// MaskSlice renders one layer of a mask as a black/white image. The mask
// must be congruent with the viewer's volume geometry.
func (v *Viewer) MaskSlice(mask *models.Mask, position int) (image.Image, error) {
	geom := v.volume.Geom
	if mask.Geom != geom {
		return nil, fmt.Errorf("mask geometry %v does not match volume geometry %v", mask.Geom, geom)
	}
	if position < 0 || position >= geom.Slices {
		return nil, fmt.Errorf("position %d exceeds slice count %d", position, geom.Slices)
	}

	img := image.NewGray(image.Rect(0, 0, geom.Cols, geom.Rows))
	layer := mask.Data[position*geom.PlaneSize() : (position+1)*geom.PlaneSize()]
	for row := 0; row < geom.Rows; row++ {
		for col := 0; col < geom.Cols; col++ {
			if layer[row*geom.Cols+col] != 0 {
				img.SetGray(col, row, color.Gray{Y: 255})
			}
		}
	}
	return img, nil
}

// SaveSlice saves an extracted slice as a PNG image. PNG keeps the full
// 16-bit gray depth that a lossy encode would flatten.
func (v *Viewer) SaveSlice(img image.Image, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	return png.Encode(file, img)
}

// SaveSliceSequence extracts and saves every axial slice of the volume into
// outputDir, one PNG per slice.
func (v *Viewer) SaveSliceSequence(outputDir string) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	for pos := 0; pos < v.volume.Geom.Slices; pos++ {
		img, err := v.ExtractSlice(pos)
		if err != nil {
			return err
		}

		filename := filepath.Join(outputDir, fmt.Sprintf("slice_%03d.png", pos))
		if err := v.SaveSlice(img, filename); err != nil {
			return err
		}
	}

	return nil
}

// SaveMaskSequence saves every layer of the mask into outputDir, one PNG per
// slice.
func (v *Viewer) SaveMaskSequence(mask *models.Mask, outputDir string) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	for pos := 0; pos < v.volume.Geom.Slices; pos++ {
		img, err := v.MaskSlice(mask, pos)
		if err != nil {
			return err
		}

		filename := filepath.Join(outputDir, fmt.Sprintf("mask_%03d.png", pos))
		if err := v.SaveSlice(img, filename); err != nil {
			return err
		}
	}

	return nil
}
