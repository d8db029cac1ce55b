package models

// Slice represents a single 2D cross-sectional image with its header metadata.
// A Slice is constructed once per input image and is immutable afterwards; the
// resolver and assembler only read it.
type Slice struct {
	// Pixels is the raw pixel buffer in row-major order. The stored values
	// are the scanner's raw samples; conversion to physical units via the
	// rescale coefficients is deferred to consumers that need it.
	Pixels []int16

	// Rows and Cols are the in-plane dimensions. Rows*Cols must equal
	// len(Pixels) for the slice to be usable by the assembler.
	Rows, Cols int

	// Position is the physical (x, y, z) location of the slice. HasPosition
	// reports whether the header actually declared it; slices without a
	// position sort as if located at z=0.
	Position    [3]float64
	HasPosition bool

	// PixelSpacing is the physical in-plane sample spacing as (row, col),
	// following the DICOM PixelSpacing convention.
	PixelSpacing [2]float64

	// Thickness is the declared physical slice thickness. It is only a
	// fallback for the computed through-plane spacing, so absence is common
	// and harmless.
	Thickness    float64
	HasThickness bool

	// RescaleSlope and RescaleIntercept convert a raw sample to a physical
	// intensity value: physical = raw*slope + intercept.
	RescaleSlope     float64
	RescaleIntercept float64
}

// Geometry places a dense buffer in physical space. It is derived once by the
// resolver from the ordered slice set and never mutated afterwards.
type Geometry struct {
	// Cols, Rows and Slices are the buffer extents. Slice-major layout:
	// index = z*Rows*Cols + row*Cols + col.
	Cols, Rows, Slices int

	// Origin is the position of the spatially-first slice.
	Origin [3]float64

	// Spacing is (x, y, z) = (column spacing, row spacing, through-plane
	// spacing). All three components are strictly positive; the resolver
	// substitutes fallbacks before a degenerate value can land here.
	Spacing [3]float64
}

// VoxelCount returns the number of voxels addressed by the geometry.
func (g Geometry) VoxelCount() int {
	return g.Cols * g.Rows * g.Slices
}

// PlaneSize returns the number of samples in one slice layer.
func (g Geometry) PlaneSize() int {
	return g.Cols * g.Rows
}

// Volume is the dense 3D scalar buffer produced by the assembler, in
// slice-major order. Ownership transfers to the caller on completion; once
// published it is treated as an immutable snapshot.
type Volume struct {
	Geom Geometry
	Data []int16
}

// Mask is the dense 3D byte buffer produced by the consolidator, congruent
// with the volume it was built against: Data[i] is 1 iff the label plane cell
// corresponding to voxel i carries a non-zero segment id.
type Mask struct {
	Geom Geometry
	Data []uint8
}
