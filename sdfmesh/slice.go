package sdfmesh

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms1"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/gsdfvm/sdfeval"
	"github.com/soypat/gsdfvm/sdflib"
)

type setImage = interface {
	image.Image
	Set(x, y int, c color.Color)
}

// SlicePlane is a planar grid of sample positions. Texel (i, j) is sampled at
// Corner + i*XAxis + j*YAxis, with j growing upwards.
type SlicePlane struct {
	Corner ms3.Vec
	// XAxis and YAxis span one texel each.
	XAxis, YAxis ms3.Vec
}

// CenteredSlicePlane returns a plane centered at center spanning u and v
// (full side vectors) divided into width×height texels. Samples are taken at
// texel centers.
func CenteredSlicePlane(center, u, v ms3.Vec, width, height int) SlicePlane {
	xAxis := ms3.Scale(1/float32(width), u)
	yAxis := ms3.Scale(1/float32(height), v)
	corner := ms3.Sub(center, ms3.Scale(0.5, ms3.Add(u, v)))
	corner = ms3.Add(corner, ms3.Scale(0.5, ms3.Add(xAxis, yAxis)))
	return SlicePlane{Corner: corner, XAxis: xAxis, YAxis: yAxis}
}

// At returns the sample position of texel (i, j).
func (sp SlicePlane) At(i, j int) ms3.Vec {
	return ms3.Add(sp.Corner, ms3.Add(ms3.Scale(float32(i), sp.XAxis), ms3.Scale(float32(j), sp.YAxis)))
}

// SliceRenderer renders planar slices of 3D SDFs to images.
type SliceRenderer struct {
	conv func(d float32) color.Color
	pos  []ms3.Vec
	dist []float32
}

// NewSliceRenderer instances a [SliceRenderer]. A nil float->color conversion
// function selects [RingColor].
func NewSliceRenderer(evalBufferSize int, conversion func(float32) color.Color) (*SliceRenderer, error) {
	if evalBufferSize < 64 {
		return nil, errors.New("too small evaluation buffer size")
	}
	if conversion == nil {
		conversion = RingColor
	}
	return &SliceRenderer{
		conv: conversion,
		pos:  make([]ms3.Vec, evalBufferSize),
		dist: make([]float32, evalBufferSize),
	}, nil
}

// Render samples sdf on plane and writes one color per texel to img. Image
// row 0 holds the topmost texel row. userData is passed to all [sdfeval.SDF3.Evaluate] calls.
func (sr *SliceRenderer) Render(sdf sdfeval.SDF3, img setImage, plane SlicePlane, userData any) error {
	imgBB := img.Bounds()
	w, h := imgBB.Dx(), imgBB.Dy()
	if len(sr.dist) < w {
		return fmt.Errorf("require evaluation buffer (%d) to be at least of length of image rows (%d)", len(sr.dist), w)
	}
	for j := 0; j < h; j++ {
		err := sr.renderRow(sdf, img, plane, j, userData)
		if err != nil {
			return err
		}
	}
	return nil
}

func (sr *SliceRenderer) renderRow(sdf sdfeval.SDF3, img setImage, plane SlicePlane, j int, userData any) error {
	imgBB := img.Bounds()
	w, h := imgBB.Dx(), imgBB.Dy()
	for i := 0; i < w; i++ {
		sr.pos[i] = plane.At(i, j)
	}
	err := sdf.Evaluate(sr.pos[:w], sr.dist[:w], userData)
	if err != nil {
		return err
	}
	row := imgBB.Min.Y + h - 1 - j
	for i, d := range sr.dist[:w] {
		img.Set(imgBB.Min.X+i, row, sr.conv(d))
	}
	return nil
}

// RingColor shades distances with isodistance rings, red inside and green outside.
func RingColor(d float32) color.Color {
	if math32.IsNaN(d) {
		return color.RGBA{B: 255, A: 255}
	}
	ring := ms1.SmoothStep(0, 0.1, math32.Abs(sdflib.Frac(math32.Abs(d)*3)-0.5))
	outside := ms1.SmoothStep(-0.02, 0.02, d)
	return color.RGBA{
		R: uint8(255 * ring * (1 - outside)),
		G: uint8(255 * ring * outside),
		A: 255,
	}
}
