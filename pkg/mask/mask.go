// Package mask consolidates per-slice label planes into a dense 3D byte
// volume congruent with the reconstructed scalar volume.
package mask

import (
	"slicevol/internal/models"
	"slicevol/pkg/brush"
)

// Stats reports the consolidation counters surfaced to the status layer.
type Stats struct {
	// Planes is the number of label planes merged into the mask.
	Planes int

	// Skipped counts planes ignored because their dimensions disagreed with
	// the geometry or their slice index fell outside it.
	Skipped int

	// Voxels is the number of mask voxels set to 1.
	Voxels int
}

// Consolidate rebuilds the whole mask from the current plane set: a voxel is
// 1 iff the plane cell at the same (slice, row, col) carries a non-zero
// segment id; slices without a plane contribute an all-zero layer.
//
// Each invocation is a full rebuild, so consolidation is idempotent with
// respect to the plane set: the last-write state of the planes fully
// determines the mask, independent of the order edits were made in. The
// caller must ensure all brush operations for this sync point have completed
// before consolidating.
func Consolidate(geom models.Geometry, planes map[int]*brush.Plane) (*models.Mask, Stats) {
	var stats Stats
	planeSize := geom.PlaneSize()
	data := make([]uint8, geom.VoxelCount())

	for z, plane := range planes {
		if z < 0 || z >= geom.Slices || plane == nil {
			stats.Skipped++
			continue
		}
		if plane.Rows != geom.Rows || plane.Cols != geom.Cols {
			stats.Skipped++
			continue
		}
		layer := data[z*planeSize : (z+1)*planeSize]
		for i, cell := range plane.Cells {
			if cell != 0 {
				layer[i] = 1
				stats.Voxels++
			}
		}
		stats.Planes++
	}

	return &models.Mask{Geom: geom, Data: data}, stats
}
