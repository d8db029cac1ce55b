package volume

import (
	"context"
	"errors"

	"slicevol/internal/models"
)

// ErrNoVolumeData is returned when zero slices survive validation; the caller
// never receives a partially constructed buffer.
var ErrNoVolumeData = errors.New("volume: no valid volume data")

// BuildStats reports the per-operation counters surfaced to the status layer.
// A non-zero Skipped with a non-zero Loaded is a successful build carrying a
// warning count, not an error.
type BuildStats struct {
	// Loaded is the number of slices copied into the volume.
	Loaded int

	// Skipped is the number of slices dropped because their pixel buffer
	// length did not match the geometry's in-plane extent.
	Skipped int
}

// Assemble copies the ordered slices into one dense slice-major buffer sized
// by the resolved geometry. Each slice's pixel buffer must be exactly
// Cols*Rows samples long; mismatched slices are skipped and counted rather
// than failing the whole build. Values are copied verbatim, with no unit
// conversion: rescale to physical units is deferred to consumers.
//
// The context is checked between slices so very large stacks stay responsive
// to cancellation; each per-slice copy itself is non-suspending.
func Assemble(ctx context.Context, ordered []*models.Slice, geom models.Geometry) (*models.Volume, BuildStats, error) {
	var stats BuildStats
	if len(ordered) == 0 {
		return nil, stats, ErrNoVolumeData
	}

	planeSize := geom.PlaneSize()
	data := make([]int16, geom.VoxelCount())

	for z, s := range ordered {
		if err := ctx.Err(); err != nil {
			return nil, stats, err
		}
		if z >= geom.Slices {
			break
		}
		if len(s.Pixels) != planeSize {
			stats.Skipped++
			continue
		}
		copy(data[z*planeSize:(z+1)*planeSize], s.Pixels)
		stats.Loaded++
	}

	if stats.Loaded == 0 {
		return nil, stats, ErrNoVolumeData
	}

	return &models.Volume{Geom: geom, Data: data}, stats, nil
}
