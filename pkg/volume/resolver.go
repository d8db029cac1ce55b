// Package volume orders 2D slice stacks along the through-plane axis,
// resolves a consistent volume geometry from their metadata, and assembles
// the dense 3D scalar buffer.
package volume

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"slicevol/internal/models"
)

const (
	// DefaultSpacing is the through-plane spacing used when neither the
	// slice positions nor a declared thickness yield a usable value. A zero
	// spacing is geometrically invalid for downstream volume sampling, so
	// the fallback is 1 unit, never 0.
	DefaultSpacing = 1.0

	// SpacingTolerance is the maximum absolute disagreement allowed between
	// the computed through-plane spacing and the declared slice thickness
	// before the declared value wins.
	SpacingTolerance = 0.25

	// degenerateSpacing is the cutoff below which a computed spacing is
	// treated as zero (e.g. all slices share one position).
	degenerateSpacing = 1e-6
)

// ErrNoSlices is returned when a resolution is requested on an empty slice
// collection.
var ErrNoSlices = errors.New("volume: no slices to resolve")

// ResolveResult carries the ordered slices, the derived geometry, and a
// human-readable diagnostic about metadata quality (empty when the stack was
// clean). The diagnostic is informational only; degraded metadata is always
// resolved through the fallback chain rather than reported as an error.
type ResolveResult struct {
	Ordered    []*models.Slice
	Geom       models.Geometry
	Diagnostic string
}

// Resolve orders the slices ascending along the through-plane (z) axis and
// derives the volume geometry: origin from the spatially-first slice,
// in-plane spacing and dimensions from the middle slice of the sorted
// sequence, and through-plane spacing from the full positional span
// reconciled against the declared thickness.
//
// The through-plane axis is fixed to z rather than auto-detected, matching
// what the rest of the pipeline assumes for axial stacks. In-plane spacing is
// deliberately read from a single representative slice; per-slice consistency
// is not validated.
func Resolve(slices []*models.Slice) (ResolveResult, error) {
	if len(slices) == 0 {
		return ResolveResult{}, ErrNoSlices
	}

	// Stable sort keeps input order for ties (duplicate positions).
	ordered := make([]*models.Slice, len(slices))
	copy(ordered, slices)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Position[2] < ordered[j].Position[2]
	})

	// The numerically middle slice avoids edge artifacts in stacks whose
	// first or last slice carries unreliable metadata.
	rep := ordered[len(ordered)/2]

	geom := models.Geometry{
		Cols:   rep.Cols,
		Rows:   rep.Rows,
		Slices: len(ordered),
		Origin: ordered[0].Position,
	}
	geom.Spacing[0] = rep.PixelSpacing[1]
	geom.Spacing[1] = rep.PixelSpacing[0]
	if geom.Spacing[0] <= 0 || geom.Spacing[1] <= 0 {
		geom.Spacing[0] = 1
		geom.Spacing[1] = 1
	}

	spacing, note := resolveThroughPlane(ordered)
	geom.Spacing[2] = spacing

	return ResolveResult{Ordered: ordered, Geom: geom, Diagnostic: note}, nil
}

// resolveThroughPlane computes the inter-slice spacing from the sorted stack
// and reconciles it against the declared thickness. The fallback chain is:
// computed spacing -> declared thickness -> DefaultSpacing.
func resolveThroughPlane(ordered []*models.Slice) (float64, string) {
	declared, hasDeclared := declaredThickness(ordered)

	// A single slice has no span to measure; it always resolves to the
	// default rather than trusting a declared thickness it cannot verify.
	if len(ordered) < 2 {
		return DefaultSpacing, ""
	}

	// The mean of consecutive gaps telescopes to span/(n-1).
	gaps := make([]float64, len(ordered)-1)
	for i := 1; i < len(ordered); i++ {
		gaps[i-1] = ordered[i].Position[2] - ordered[i-1].Position[2]
	}
	computed := stat.Mean(gaps, nil)

	if computed < degenerateSpacing {
		// Duplicate or missing positions. With no declared thickness either,
		// this is an inherent metadata-quality limitation; fall back to the
		// default with a note.
		if hasDeclared && declared > 0 {
			return declared, fmt.Sprintf(
				"degenerate computed spacing %.4g, using declared thickness %.4g", computed, declared)
		}
		return DefaultSpacing, fmt.Sprintf(
			"degenerate computed spacing %.4g and no declared thickness, using default %.4g",
			computed, DefaultSpacing)
	}

	if hasDeclared && declared > 0 && math.Abs(computed-declared) > SpacingTolerance {
		return declared, fmt.Sprintf(
			"computed spacing %.4g diverges from declared thickness %.4g, using declared value",
			computed, declared)
	}

	// Irregular stacks still resolve to the mean gap; the spread is worth
	// surfacing to the status layer.
	if sd := stat.StdDev(gaps, nil); sd > SpacingTolerance {
		return computed, fmt.Sprintf("irregular slice gaps (stddev %.4g), using mean %.4g", sd, computed)
	}

	return computed, ""
}

// declaredThickness picks the thickness the fallback chain compares against:
// the representative middle slice's declared value, or failing that the first
// slice in sorted order that declares one.
func declaredThickness(ordered []*models.Slice) (float64, bool) {
	if rep := ordered[len(ordered)/2]; rep.HasThickness {
		return rep.Thickness, true
	}
	for _, s := range ordered {
		if s.HasThickness {
			return s.Thickness, true
		}
	}
	return 0, false
}
