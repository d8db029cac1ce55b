package main

import (
	"context"
	"encoding/binary"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"slicevol/internal/models"
	"slicevol/pkg/brush"
	"slicevol/pkg/config"
	"slicevol/pkg/mask"
	"slicevol/pkg/visualization"
	"slicevol/pkg/volume"
)

func main() {
	// Parse command line arguments
	manifestPath := flag.String("manifest", "", "YAML manifest describing the slice stack")
	outputDir := flag.String("output", "output", "Directory for the assembled volume and mask")
	configPath := flag.String("config", "slicevol.yaml", "Configuration file (optional)")
	strokesPath := flag.String("strokes", "", "YAML stroke script to paint after assembly (optional)")
	workers := flag.Int("workers", 0, "Concurrent slice loaders (default: from config)")
	exportSlices := flag.Bool("export-slices", false, "Export windowed slice images after assembly")
	exportMask := flag.Bool("export-mask", false, "Export mask layer images after consolidation")
	flag.Parse()

	if *manifestPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *workers <= 0 {
		*workers = cfg.Processing.NumWorkers
	}

	ctx := context.Background()

	// Step 1: Load the manifest and decode all slices
	fmt.Println("Step 1: Loading slice stack...")
	m, err := loadManifest(*manifestPath)
	if err != nil {
		log.Fatalf("Failed to load manifest: %v", err)
	}
	slices, err := loadSlices(ctx, filepath.Dir(*manifestPath), m, *workers)
	if err != nil {
		log.Fatalf("Failed to load slices: %v", err)
	}
	fmt.Printf("Loaded %d slices\n", len(slices))

	// Step 2: Resolve ordering and geometry
	fmt.Println("Step 2: Resolving slice order and geometry...")
	res, err := volume.Resolve(slices)
	if err != nil {
		log.Fatalf("Failed to resolve geometry: %v", err)
	}
	if res.Diagnostic != "" && cfg.Output.Verbose {
		fmt.Printf("Note: %s\n", res.Diagnostic)
	}
	geom := res.Geom
	fmt.Printf("Geometry: %dx%dx%d, spacing (%.3f, %.3f, %.3f), origin (%.1f, %.1f, %.1f)\n",
		geom.Cols, geom.Rows, geom.Slices,
		geom.Spacing[0], geom.Spacing[1], geom.Spacing[2],
		geom.Origin[0], geom.Origin[1], geom.Origin[2])

	// Step 3: Assemble the dense volume
	fmt.Println("Step 3: Assembling volume...")
	vol, stats, err := volume.Assemble(ctx, res.Ordered, geom)
	if err != nil {
		log.Fatalf("Volume build failed: %v", err)
	}
	fmt.Printf("Assembled %d slices (%d skipped), volume buffer: %s\n",
		stats.Loaded, stats.Skipped, humanize.IBytes(uint64(len(vol.Data)*2)))

	// Step 4: Apply the stroke script, if any
	engine := brush.NewEngine()
	if *strokesPath != "" {
		fmt.Println("Step 4: Applying strokes...")
		strokes, err := loadStrokes(*strokesPath)
		if err != nil {
			log.Fatalf("Failed to load strokes: %v", err)
		}
		painted := 0
		for i, st := range strokes {
			if st.Slice < 0 || st.Slice >= len(res.Ordered) {
				log.Fatalf("Stroke %d targets slice %d outside the stack", i, st.Slice)
			}
			s := res.Ordered[st.Slice]
			src := brush.Source{
				Pixels:    s.Pixels,
				Rows:      s.Rows,
				Cols:      s.Cols,
				Slope:     s.RescaleSlope,
				Intercept: s.RescaleIntercept,
			}
			n, err := engine.Apply(st.Slice, src, toStroke(st, cfg))
			if err != nil {
				log.Fatalf("Brush failed on stroke %d: %v", i, err)
			}
			painted += n
		}
		fmt.Printf("Applied %d strokes, %d pixels modified\n", len(strokes), painted)
	}

	// Step 5: Consolidate label planes into the mask
	fmt.Println("Step 5: Consolidating mask...")
	msk, mstats := mask.Consolidate(geom, engine.Planes())
	fmt.Printf("Consolidated %d planes (%d skipped), %d voxels set, mask buffer: %s\n",
		mstats.Planes, mstats.Skipped, mstats.Voxels, humanize.IBytes(uint64(len(msk.Data))))

	// Step 6: Write outputs
	fmt.Println("Step 6: Writing outputs...")
	if err := writeOutputs(*outputDir, vol, msk); err != nil {
		log.Fatalf("Failed to write outputs: %v", err)
	}
	fmt.Printf("Volume, mask and geometry written to: %s\n", *outputDir)

	if *exportSlices || *exportMask || cfg.Output.SaveSlices {
		rep := res.Ordered[len(res.Ordered)/2]
		viewer := visualization.NewViewer(vol,
			rep.RescaleSlope, rep.RescaleIntercept,
			cfg.Window.Center, cfg.Window.Width)

		if *exportSlices || cfg.Output.SaveSlices {
			dir := filepath.Join(*outputDir, cfg.Output.SlicesDir)
			fmt.Printf("Exporting slice images to: %s\n", dir)
			if err := viewer.SaveSliceSequence(dir); err != nil {
				log.Printf("Warning: Failed to export slices: %v", err)
			}
		}
		if *exportMask {
			dir := filepath.Join(*outputDir, "mask_"+cfg.Output.SlicesDir)
			fmt.Printf("Exporting mask images to: %s\n", dir)
			if err := viewer.SaveMaskSequence(msk, dir); err != nil {
				log.Printf("Warning: Failed to export mask: %v", err)
			}
		}
	}
}

// toStroke fills unset stroke fields from the configured brush defaults. An
// erase stroke always carries segment id 0, which the engine treats as an
// ungated clear.
func toStroke(st scriptStroke, cfg *config.Config) brush.Stroke {
	out := brush.Stroke{
		Row:       st.Row,
		Col:       st.Col,
		Radius:    st.Radius,
		Threshold: st.Threshold,
		Segment:   st.Segment,
	}
	if out.Radius <= 0 {
		out.Radius = cfg.Brush.Radius
	}
	if out.Threshold == 0 {
		out.Threshold = cfg.Brush.Threshold
	}
	if st.Erase {
		out.Segment = 0
	} else if out.Segment == 0 {
		out.Segment = cfg.Brush.Segment
	}
	return out
}

// writeOutputs persists the volume and mask as raw little-endian buffers with
// a YAML geometry sidecar describing their layout.
func writeOutputs(dir string, vol *models.Volume, msk *models.Mask) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	volFile, err := os.Create(filepath.Join(dir, "volume.raw"))
	if err != nil {
		return err
	}
	defer volFile.Close()
	if err := binary.Write(volFile, binary.LittleEndian, vol.Data); err != nil {
		return fmt.Errorf("error writing volume: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "mask.raw"), msk.Data, 0644); err != nil {
		return fmt.Errorf("error writing mask: %w", err)
	}

	sidecar, err := yaml.Marshal(vol.Geom)
	if err != nil {
		return fmt.Errorf("error marshaling geometry: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, "geometry.yaml"), sidecar, 0644)
}
