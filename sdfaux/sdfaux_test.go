package sdfaux

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	math "github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/gsdfvm"
	"github.com/soypat/gsdfvm/sdfmesh"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

var testBounds = ms3.Box{Min: ms3.Vec{X: -2, Y: -1.5, Z: -1.5}, Max: ms3.Vec{X: 2, Y: 1.5, Z: 1.5}}

func TestRender(t *testing.T) {
	var bld gsdfvm.Builder
	root := bld.Union(bld.NewSphere(ms3.Vec{X: -0.5}, 1), bld.NewSphere(ms3.Vec{X: 0.5}, 1))
	var stl, obj, ply, slice bytes.Buffer
	err := Render(context.Background(), root, RenderConfig{
		Bounds:              testBounds,
		CellSize:            0.1,
		RequireEdgeCrossing: true,
		STLOutput:           &stl,
		OBJOutput:           &obj,
		PLYOutput:           &ply,
		SliceOutput:         &slice,
		SliceHeight:         48,
		Silent:              true,
	})
	if err != nil {
		t.Fatal(err)
	}
	tris, err := sdfmesh.ReadBinarySTL(&stl)
	if err != nil {
		t.Fatal(err)
	}
	if len(tris) == 0 {
		t.Fatal("no triangles rendered")
	}
	if faces := strings.Count(obj.String(), "\nf "); faces != len(tris) {
		t.Errorf("OBJ has %d faces, STL has %d triangles", faces, len(tris))
	}
	if !strings.HasPrefix(ply.String(), "ply\n") {
		t.Error("bad PLY output")
	}
	img, err := png.Decode(&slice)
	if err != nil {
		t.Fatal(err)
	}
	if got := img.Bounds().Size(); got != (image.Point{X: 64, Y: 48}) {
		t.Errorf("slice size %v, want 64x48", got)
	}
}

func TestRenderSliceFormats(t *testing.T) {
	var bld gsdfvm.Builder
	root := bld.NewSphere(ms3.Vec{}, 1)
	for _, format := range []ImageFormat{FormatBMP, FormatTIFF} {
		var buf bytes.Buffer
		err := Render(context.Background(), root, RenderConfig{
			Bounds:      testBounds,
			SliceOutput: &buf,
			SliceFormat: format,
			SliceHeight: 12,
			Silent:      true,
		})
		if err != nil {
			t.Fatalf("%s: %s", format, err)
		}
		var img image.Image
		if format == FormatBMP {
			img, err = bmp.Decode(&buf)
		} else {
			img, err = tiff.Decode(&buf)
		}
		if err != nil {
			t.Fatalf("%s: %s", format, err)
		}
		if img.Bounds().Dy() != 12 {
			t.Errorf("%s: height %d", format, img.Bounds().Dy())
		}
	}
}

func TestRenderConfigValidate(t *testing.T) {
	var buf bytes.Buffer
	for name, cfg := range map[string]RenderConfig{
		"no output":      {Bounds: testBounds, CellSize: 0.1},
		"empty bounds":   {STLOutput: &buf, CellSize: 0.1},
		"no cell size":   {Bounds: testBounds, STLOutput: &buf},
		"no slice size":  {Bounds: testBounds, SliceOutput: &buf},
		"inverted bound": {Bounds: ms3.Box{Min: testBounds.Max, Max: testBounds.Min}, SliceOutput: &buf, SliceHeight: 1},
	} {
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
	var bld gsdfvm.Builder
	err := Render(context.Background(), bld.NewSphere(ms3.Vec{}, 1), RenderConfig{Bounds: testBounds})
	if err == nil {
		t.Error("expected Render error without outputs")
	}
	bld.SetFlags(gsdfvm.FlagNoDimensionPanic)
	err = Render(context.Background(), bld.Offset(nil, 1), RenderConfig{Bounds: testBounds, SliceOutput: &buf, SliceHeight: 1})
	if err == nil {
		t.Error("expected compile error")
	}
}

func TestImageFormatFromFilename(t *testing.T) {
	for name, want := range map[string]ImageFormat{
		"a.png": FormatPNG, "b.PNG": FormatPNG, "c.bmp": FormatBMP, "d.tif": FormatTIFF, "e.tiff": FormatTIFF,
	} {
		got, err := ImageFormatFromFilename(name)
		if err != nil || got != want {
			t.Errorf("%s: got %v, %v, want %v", name, got, err, want)
		}
	}
	if _, err := ImageFormatFromFilename("x.jpg"); err == nil {
		t.Error("expected error for jpg")
	}
	if err := EncodeImage(&bytes.Buffer{}, image.NewRGBA(image.Rect(0, 0, 1, 1)), 9); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestColorConversions(t *testing.T) {
	iq := ColorConversionInigoQuilez(1)
	if c := iq(math.NaN()); c != red {
		t.Errorf("NaN: got %v", c)
	}
	if c := iq(0).(color.RGBA); c.R != 255 || c.G != 255 || c.B != 255 {
		t.Errorf("surface should be white, got %v", c)
	}
	inside, outside := iq(-0.5).(color.RGBA), iq(0.5).(color.RGBA)
	if inside.B <= inside.R || outside.R <= outside.B {
		t.Errorf("inside %v should be blue, outside %v orange", inside, outside)
	}

	bw := ColorConversionLinearGradient(2, color.Black, color.White)
	if bw(-5) != color.Black || bw(5) != color.White {
		t.Error("black and white gradient saturation")
	}
	if g := bw(0).(color.Gray); g.Y != 127 {
		t.Errorf("gradient midpoint %v", g)
	}
	if blackAndWhiteLinearSmooth(0)(-1) != color.Black {
		t.Error("unsmoothed gradient")
	}

	grad := ColorConversionLinearGradient(2, color.White, red)
	if grad(-5) != color.White || grad(5) != red {
		t.Error("gradient endpoints")
	}
	mid := grad(0).(color.RGBA)
	if mid.R != 255 || mid.G == 0 || mid.G == 255 {
		t.Errorf("gradient midpoint %v", mid)
	}
}

func TestPercentUint64(t *testing.T) {
	if p := percentUint64(1, 3); p != 33.33 {
		t.Errorf("got %v", p)
	}
	if p := percentUint64(1, 0); p != 0 {
		t.Errorf("got %v", p)
	}
}
