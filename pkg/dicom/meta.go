// Package dicom extracts per-slice geometry and rescale metadata from DICOM
// header fields. It does not parse byte streams itself; an external parser
// supplies tag lookups through the TagSource interface.
package dicom

import (
	"context"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Tag identifies a DICOM data element as (group, element).
type Tag struct {
	Group   uint16
	Element uint16
}

// Tags read by the extractor.
var (
	TagImagePositionPatient = Tag{0x0020, 0x0032}
	TagPixelSpacing         = Tag{0x0028, 0x0030}
	TagSliceThickness       = Tag{0x0018, 0x0050}
	TagRescaleIntercept     = Tag{0x0028, 0x1052}
	TagRescaleSlope         = Tag{0x0028, 0x1053}
)

// tagKeywords maps the standard DICOM keyword to its tag, for adapting
// keyword-keyed header sets (manifests, test fixtures) to tag lookups.
var tagKeywords = map[string]Tag{
	"ImagePositionPatient": TagImagePositionPatient,
	"PixelSpacing":         TagPixelSpacing,
	"SliceThickness":       TagSliceThickness,
	"RescaleIntercept":     TagRescaleIntercept,
	"RescaleSlope":         TagRescaleSlope,
}

// TagSource is the tag-lookup capability an external DICOM parser exposes.
// Find returns the raw string value of the element and whether it is present.
type TagSource interface {
	Find(tag Tag) (string, bool)
}

// StaticSource adapts a keyword-keyed map of header values to TagSource.
type StaticSource map[string]string

// Find implements TagSource. Unknown tags are reported as absent.
func (s StaticSource) Find(tag Tag) (string, bool) {
	for keyword, t := range tagKeywords {
		if t == tag {
			v, ok := s[keyword]
			return v, ok
		}
	}
	return "", false
}

// Meta holds the extracted metadata for one slice. Every field has a defined
// default, so extraction never fails; the Has* flags report which fields were
// actually declared by the header.
type Meta struct {
	Position    [3]float64
	HasPosition bool

	// PixelSpacing is (row, col), defaulting to (1, 1).
	PixelSpacing    [2]float64
	HasPixelSpacing bool

	Thickness    float64
	HasThickness bool

	// RescaleSlope defaults to 1 and RescaleIntercept to 0, the identity
	// transform to physical units.
	RescaleSlope     float64
	RescaleIntercept float64
	HasRescale       bool
}

// Extract reads one slice's metadata from the given header. Missing or
// malformed fields resolve to their defaults; a partial position triplet is
// treated as fully missing so that axes are never silently mixed.
func Extract(src TagSource) Meta {
	meta := Meta{
		PixelSpacing:     [2]float64{1, 1},
		RescaleSlope:     1,
		RescaleIntercept: 0,
	}

	if v, ok := src.Find(TagImagePositionPatient); ok {
		if pos, ok := parseTriplet(v); ok {
			meta.Position = pos
			meta.HasPosition = true
		}
	}

	if v, ok := src.Find(TagPixelSpacing); ok {
		if sp, ok := parsePair(v); ok {
			meta.PixelSpacing = sp
			meta.HasPixelSpacing = true
		}
	}

	if v, ok := src.Find(TagSliceThickness); ok {
		if t, err := parseDecimal(v); err == nil {
			meta.Thickness = t
			meta.HasThickness = true
		}
	}

	slope, okSlope := src.Find(TagRescaleSlope)
	intercept, okIntercept := src.Find(TagRescaleIntercept)
	if okSlope && okIntercept {
		s, errS := parseDecimal(slope)
		b, errB := parseDecimal(intercept)
		if errS == nil && errB == nil {
			meta.RescaleSlope = s
			meta.RescaleIntercept = b
			meta.HasRescale = true
		}
	}

	return meta
}

// ExtractAll extracts metadata for every header concurrently, one task per
// slice, and joins the results in input order. The only error it can return
// is context cancellation; extraction itself never fails.
func ExtractAll(ctx context.Context, sources []TagSource) ([]Meta, error) {
	metas := make([]Meta, len(sources))
	g, ctx := errgroup.WithContext(ctx)
	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			metas[i] = Extract(src)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return metas, nil
}

// parseDecimal parses a DICOM decimal string (DS), tolerating surrounding
// whitespace padding.
func parseDecimal(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

// parseTriplet parses a backslash-delimited coordinate triplet such as
// "-250.0\-250.0\12.5". Anything other than exactly three parseable numbers
// reports the whole triplet as missing.
func parseTriplet(s string) ([3]float64, bool) {
	parts := strings.Split(s, `\`)
	if len(parts) != 3 {
		return [3]float64{}, false
	}
	var out [3]float64
	for i, p := range parts {
		v, err := parseDecimal(p)
		if err != nil {
			return [3]float64{}, false
		}
		out[i] = v
	}
	return out, true
}

// parsePair parses a backslash-delimited value pair such as "0.7\0.7".
func parsePair(s string) ([2]float64, bool) {
	parts := strings.Split(s, `\`)
	if len(parts) != 2 {
		return [2]float64{}, false
	}
	var out [2]float64
	for i, p := range parts {
		v, err := parseDecimal(p)
		if err != nil {
			return [2]float64{}, false
		}
		out[i] = v
	}
	return out, true
}
