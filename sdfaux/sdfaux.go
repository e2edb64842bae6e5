package sdfaux

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	math "github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/gsdfvm/sdfbuild"
	"github.com/soypat/gsdfvm/sdfeval"
	"github.com/soypat/gsdfvm/sdfmesh"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// ImageFormat selects the encoding of slice images.
type ImageFormat uint8

const (
	FormatPNG ImageFormat = iota
	FormatBMP
	FormatTIFF
)

func (f ImageFormat) String() string {
	switch f {
	case FormatPNG:
		return "png"
	case FormatBMP:
		return "bmp"
	case FormatTIFF:
		return "tiff"
	}
	return "ImageFormat(" + fmt.Sprint(uint8(f)) + ")"
}

// ImageFormatFromFilename picks the image format from the extension of name.
func ImageFormatFromFilename(name string) (ImageFormat, error) {
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".png":
		return FormatPNG, nil
	case ".bmp":
		return FormatBMP, nil
	case ".tif", ".tiff":
		return FormatTIFF, nil
	default:
		return 0, fmt.Errorf("unsupported image extension %q", ext)
	}
}

// EncodeImage writes img to w in format f.
func EncodeImage(w io.Writer, img image.Image, f ImageFormat) error {
	switch f {
	case FormatPNG:
		return png.Encode(w, img)
	case FormatBMP:
		return bmp.Encode(w, img)
	case FormatTIFF:
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	}
	return fmt.Errorf("unknown image format %s", f)
}

type RenderConfig struct {
	// Bounds is the region meshed and sliced. Required.
	Bounds ms3.Box
	// CellSize is the mesher lattice spacing. Required when writing meshes.
	CellSize float32
	// Workers limits mesher concurrency. Zero uses all CPUs.
	Workers int
	// RequireEdgeCrossing makes the mesher emit a closed surface.
	RequireEdgeCrossing bool

	STLOutput io.Writer
	OBJOutput io.Writer
	PLYOutput io.Writer

	// SliceOutput receives an image of the Z=center slice of Bounds.
	SliceOutput io.Writer
	SliceFormat ImageFormat
	// SliceHeight is the image height in pixels. Width keeps the aspect ratio of Bounds.
	SliceHeight int
	// SliceColor converts distances to colors. Nil uses [sdfmesh.RingColor].
	SliceColor func(float32) color.Color

	Logger *slog.Logger
	Silent bool
}

func (cfg *RenderConfig) meshing() bool {
	return cfg.STLOutput != nil || cfg.OBJOutput != nil || cfg.PLYOutput != nil
}

// Validate checks the configuration describes at least one output.
func (cfg *RenderConfig) Validate() error {
	if !cfg.meshing() && cfg.SliceOutput == nil {
		return errors.New("Render requires output parameter in config")
	}
	sz := cfg.Bounds.Size()
	if !(sz.X > 0 && sz.Y > 0 && sz.Z > 0) {
		return fmt.Errorf("empty or inverted render bounds %v", cfg.Bounds)
	}
	if cfg.meshing() && !(cfg.CellSize > 0) {
		return errors.New("mesh output requires positive cell size")
	}
	if cfg.SliceOutput != nil && cfg.SliceHeight < 1 {
		return errors.New("slice output requires positive slice height")
	}
	return nil
}

func (cfg *RenderConfig) logger() *slog.Logger {
	if cfg.Silent {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.Logger != nil {
		return cfg.Logger
	}
	return slog.Default()
}

// Render is an auxiliary function to aid users in getting setup in using gsdfvm quickly.
// It compiles root and writes every output set in cfg.
func Render(ctx context.Context, root sdfbuild.Node, cfg RenderConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	log := cfg.logger()
	watch := stopwatch()
	prog, err := sdfbuild.Compile(root)
	if err != nil {
		return fmt.Errorf("compiling SDF: %w", err)
	}
	log.Info("compiled program", "instructions", prog.InstructionCount(),
		"peak_stack", prog.PeakStackDepth(), "bytes", len(prog.Bytes()), "took", watch())
	return renderProgram(ctx, log, prog, cfg)
}

// RenderProgram is like [Render] for an already compiled program.
func RenderProgram(ctx context.Context, prog *sdfbuild.Program, cfg RenderConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	return renderProgram(ctx, cfg.logger(), prog, cfg)
}

func renderProgram(ctx context.Context, log *slog.Logger, prog *sdfbuild.Program, cfg RenderConfig) error {
	if cfg.meshing() {
		err := renderMesh(ctx, log, prog, cfg)
		if err != nil {
			return err
		}
	}
	if cfg.SliceOutput != nil {
		watch := stopwatch()
		img, err := RenderSlice(prog, cfg.Bounds, cfg.SliceHeight, cfg.SliceColor)
		if err != nil {
			return fmt.Errorf("rendering slice: %w", err)
		}
		err = EncodeImage(cfg.SliceOutput, img, cfg.SliceFormat)
		if err != nil {
			return fmt.Errorf("encoding slice image: %w", err)
		}
		log.Info("wrote slice", "file", outputName(cfg.SliceOutput, "slice image"),
			"format", cfg.SliceFormat.String(), "size", img.Bounds().Size().String(), "took", watch())
	}
	return nil
}

func renderMesh(ctx context.Context, log *slog.Logger, prog *sdfbuild.Program, cfg RenderConfig) error {
	mcfg, err := sdfmesh.ConfigForBox(cfg.Bounds, cfg.CellSize)
	if err != nil {
		return err
	}
	mcfg.Workers = cfg.Workers
	mcfg.RequireEdgeCrossing = cfg.RequireEdgeCrossing
	mcfg.Scratch = sdfmesh.ScratchRelease
	mesher, err := sdfmesh.NewMesher(mcfg)
	if err != nil {
		return err
	}
	watch := stopwatch()
	mesh, err := mesher.Build(ctx, prog)
	if err != nil {
		return fmt.Errorf("meshing: %w", err)
	}
	cellsPerChunk := uint64(mcfg.Resolution-1) * uint64(mcfg.Resolution-1) * uint64(mcfg.Resolution-1)
	cells := cellsPerChunk * uint64(mcfg.Chunks*mcfg.Chunks)
	log.Info("meshed SDF", "vertices", len(mesh.Vertices), "triangles", mesh.TriangleCount(),
		"chunks", mcfg.Chunks*mcfg.Chunks, "resolution", mcfg.Resolution,
		"surface_cell_percent", percentUint64(uint64(len(mesh.Vertices)), cells), "took", watch())

	if cfg.STLOutput != nil {
		watch = stopwatch()
		_, err = sdfmesh.WriteBinarySTL(cfg.STLOutput, mesh.Triangles(nil))
		if err != nil {
			return fmt.Errorf("writing STL file: %w", err)
		}
		log.Info("wrote mesh", "file", outputName(cfg.STLOutput, "STL"), "took", watch())
	}
	if cfg.OBJOutput != nil {
		watch = stopwatch()
		err = sdfmesh.WriteOBJ(cfg.OBJOutput, mesh)
		if err != nil {
			return fmt.Errorf("writing OBJ file: %w", err)
		}
		log.Info("wrote mesh", "file", outputName(cfg.OBJOutput, "OBJ"), "took", watch())
	}
	if cfg.PLYOutput != nil {
		watch = stopwatch()
		err = sdfmesh.WritePLY(cfg.PLYOutput, mesh)
		if err != nil {
			return fmt.Errorf("writing PLY file: %w", err)
		}
		log.Info("wrote mesh", "file", outputName(cfg.PLYOutput, "PLY"), "took", watch())
	}
	return nil
}

// RenderSlice renders the slice of prog through the center of bounds
// perpendicular to Z. The image width is sized automatically from height
// to preserve the aspect ratio of bounds.
// If a nil color conversion function is passed then one is automatically chosen.
func RenderSlice(prog *sdfbuild.Program, bounds ms3.Box, height int, colorConversion func(float32) color.Color) (*image.RGBA, error) {
	sz := bounds.Size()
	width := max(1, int(float32(height)*sz.X/sz.Y))
	renderer, err := sdfmesh.NewSliceRenderer(max(4096, width), colorConversion)
	if err != nil {
		return nil, err
	}
	center := ms3.Scale(0.5, ms3.Add(bounds.Min, bounds.Max))
	plane := sdfmesh.CenteredSlicePlane(center, ms3.Vec{X: sz.X}, ms3.Vec{Y: sz.Y}, width, height)
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	err = renderer.Render(sdfeval.NewSampler(prog), img, plane, nil)
	if err != nil {
		return nil, err
	}
	return img, nil
}

func outputName(w io.Writer, fallback string) string {
	if fp, ok := w.(*os.File); ok {
		return fp.Name()
	}
	return fallback
}

func stopwatch() func() time.Duration {
	start := time.Now()
	return func() time.Duration {
		return time.Since(start)
	}
}

func percentUint64(num, denom uint64) float32 {
	if denom == 0 {
		return 0
	}
	return math.Trunc(10000*float32(num)/float32(denom)) / 100
}
