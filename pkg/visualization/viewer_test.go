package visualization

import (
	"image"
	"os"
	"path/filepath"
	"testing"

	"slicevol/internal/models"
)

func testVolume(cols, rows, slices int) *models.Volume {
	geom := models.Geometry{
		Cols:    cols,
		Rows:    rows,
		Slices:  slices,
		Spacing: [3]float64{1, 1, 1},
	}
	data := make([]int16, geom.VoxelCount())
	for i := range data {
		data[i] = int16(i % 1024)
	}
	return &models.Volume{Geom: geom, Data: data}
}

func TestExtractSlice(t *testing.T) {
	vol := testVolume(16, 12, 3)
	viewer := NewViewer(vol, 1, -1024, 40, 400)

	img, err := viewer.ExtractSlice(1)
	if err != nil {
		t.Fatalf("ExtractSlice failed: %v", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() != 16 || bounds.Dy() != 12 {
		t.Errorf("image is %dx%d, want 16x12", bounds.Dx(), bounds.Dy())
	}
	if _, ok := img.(*image.Gray16); !ok {
		t.Errorf("image type = %T, want *image.Gray16", img)
	}
}

func TestExtractSliceOutOfRange(t *testing.T) {
	viewer := NewViewer(testVolume(8, 8, 2), 1, 0, 40, 400)

	for _, pos := range []int{-1, 2, 100} {
		if _, err := viewer.ExtractSlice(pos); err == nil {
			t.Errorf("position %d should be rejected", pos)
		}
	}
}

func TestWindowClamping(t *testing.T) {
	vol := testVolume(2, 1, 1)
	vol.Data[0] = -32768
	vol.Data[1] = 32767
	viewer := NewViewer(vol, 1, 0, 0, 100)

	img, err := viewer.ExtractSlice(0)
	if err != nil {
		t.Fatalf("ExtractSlice failed: %v", err)
	}

	gray := img.(*image.Gray16)
	if gray.Gray16At(0, 0).Y != 0 {
		t.Errorf("value below window = %d, want 0", gray.Gray16At(0, 0).Y)
	}
	if gray.Gray16At(1, 0).Y != 65535 {
		t.Errorf("value above window = %d, want 65535", gray.Gray16At(1, 0).Y)
	}
}

func TestMaskSlice(t *testing.T) {
	vol := testVolume(4, 4, 2)
	msk := &models.Mask{Geom: vol.Geom, Data: make([]uint8, vol.Geom.VoxelCount())}
	msk.Data[16+5] = 1 // layer 1, row 1, col 1

	viewer := NewViewer(vol, 1, 0, 40, 400)
	img, err := viewer.MaskSlice(msk, 1)
	if err != nil {
		t.Fatalf("MaskSlice failed: %v", err)
	}

	gray := img.(*image.Gray)
	if gray.GrayAt(1, 1).Y != 255 {
		t.Error("set voxel should render white")
	}
	if gray.GrayAt(0, 0).Y != 0 {
		t.Error("unset voxel should render black")
	}
}

func TestMaskSliceGeometryMismatch(t *testing.T) {
	vol := testVolume(4, 4, 2)
	other := models.Geometry{Cols: 8, Rows: 8, Slices: 2, Spacing: [3]float64{1, 1, 1}}
	msk := &models.Mask{Geom: other, Data: make([]uint8, other.VoxelCount())}

	viewer := NewViewer(vol, 1, 0, 40, 400)
	if _, err := viewer.MaskSlice(msk, 0); err == nil {
		t.Error("incongruent mask should be rejected")
	}
}

func TestSaveSliceSequence(t *testing.T) {
	dir, err := os.MkdirTemp("", "slicevol-viewer-*")
	if err != nil {
		t.Fatalf("Failed to create temporary directory: %v", err)
	}
	defer os.RemoveAll(dir)

	viewer := NewViewer(testVolume(8, 8, 3), 1, 0, 40, 400)
	if err := viewer.SaveSliceSequence(dir); err != nil {
		t.Fatalf("SaveSliceSequence failed: %v", err)
	}

	for pos := 0; pos < 3; pos++ {
		path := filepath.Join(dir, "slice_00"+string(rune('0'+pos))+".png")
		if _, err := os.Stat(path); err != nil {
			t.Errorf("missing exported slice %s: %v", path, err)
		}
	}
}
