package volume

import (
	"context"
	"testing"

	"slicevol/internal/models"
)

func testGeometry(cols, rows, slices int) models.Geometry {
	return models.Geometry{
		Cols:    cols,
		Rows:    rows,
		Slices:  slices,
		Spacing: [3]float64{1, 1, 1},
	}
}

func pixelSlice(z float64, n int, fill int16) *models.Slice {
	pixels := make([]int16, n)
	for i := range pixels {
		pixels[i] = fill
	}
	return &models.Slice{
		Pixels:   pixels,
		Position: [3]float64{0, 0, z},
	}
}

func TestAssemble(t *testing.T) {
	geom := testGeometry(10, 10, 3)
	ordered := []*models.Slice{
		pixelSlice(0, 100, 1),
		pixelSlice(1, 100, 2),
		pixelSlice(2, 100, 3),
	}

	vol, stats, err := Assemble(context.Background(), ordered, geom)
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	if stats.Loaded != 3 || stats.Skipped != 0 {
		t.Errorf("stats = %+v, want 3 loaded, 0 skipped", stats)
	}
	if len(vol.Data) != 300 {
		t.Fatalf("volume length = %d, want 300", len(vol.Data))
	}

	// Slice-major layout: every element of layer z holds that slice's fill.
	for z := 0; z < 3; z++ {
		for i := 0; i < 100; i++ {
			if got := vol.Data[z*100+i]; got != int16(z+1) {
				t.Fatalf("voxel (z=%d, i=%d) = %d, want %d", z, i, got, z+1)
			}
		}
	}
}

func TestAssembleSkipsMismatchedSlices(t *testing.T) {
	geom := testGeometry(10, 10, 3)
	ordered := []*models.Slice{
		pixelSlice(0, 100, 1), // 10x10: accepted
		pixelSlice(1, 120, 2), // 12x10: skipped
		pixelSlice(2, 100, 3),
	}

	vol, stats, err := Assemble(context.Background(), ordered, geom)
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	if stats.Loaded != 2 || stats.Skipped != 1 {
		t.Errorf("stats = %+v, want 2 loaded, 1 skipped", stats)
	}

	// The skipped slice's layer stays zeroed.
	for i := 0; i < 100; i++ {
		if vol.Data[100+i] != 0 {
			t.Fatalf("skipped slice's layer should be zero, voxel %d = %d", i, vol.Data[100+i])
		}
	}
}

func TestAssembleNoValidData(t *testing.T) {
	geom := testGeometry(10, 10, 2)

	t.Run("EmptyInput", func(t *testing.T) {
		vol, _, err := Assemble(context.Background(), nil, geom)
		if err != ErrNoVolumeData {
			t.Errorf("error = %v, want ErrNoVolumeData", err)
		}
		if vol != nil {
			t.Error("caller must not receive a partially constructed buffer")
		}
	})

	t.Run("AllSlicesInvalid", func(t *testing.T) {
		ordered := []*models.Slice{pixelSlice(0, 99, 1), pixelSlice(1, 101, 2)}
		vol, stats, err := Assemble(context.Background(), ordered, geom)
		if err != ErrNoVolumeData {
			t.Errorf("error = %v, want ErrNoVolumeData", err)
		}
		if vol != nil {
			t.Error("caller must not receive a partially constructed buffer")
		}
		if stats.Skipped != 2 {
			t.Errorf("skipped = %d, want 2", stats.Skipped)
		}
	})
}

func TestAssembleCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	geom := testGeometry(10, 10, 1)
	_, _, err := Assemble(ctx, []*models.Slice{pixelSlice(0, 100, 1)}, geom)
	if err == nil {
		t.Error("canceled context should abort the build")
	}
}
