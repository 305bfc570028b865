/*
Copyright © 2026 the gridsplit authors.
This file is part of gridsplit.

gridsplit is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

gridsplit is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with gridsplit.  If not, see <http://www.gnu.org/licenses/>.
*/

package gridsplit

import (
	"fmt"
	"io"
	"math"

	"github.com/BurntSushi/toml"
	"github.com/ctessum/geom"
)

// GridDefinition describes a regular grid of Width x Height cells.
// The affine transform (a, b, c, d, e, f) maps the cell index (i, j) to the
// corner of that cell:
//
//	x = a*i + b*j + c
//	y = d*i + e*j + f
//
// A GridDefinition is immutable and safe to share between goroutines.
type GridDefinition struct {
	crs           string
	width, height int
	t             [6]float64 // forward transform
	inv           [6]float64 // inverse transform
}

// NewGridDefinition creates a grid definition from its coordinate reference
// identifier, dimensions, and the six affine transform coefficients.
func NewGridDefinition(crs string, width, height int, transform []float64) (*GridDefinition, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: width=%d and height=%d must both be >0", ErrInvalidGrid, width, height)
	}
	if len(transform) != 6 {
		return nil, fmt.Errorf("%w: transform has %d coefficients but should have 6", ErrInvalidGrid, len(transform))
	}
	g := &GridDefinition{crs: crs, width: width, height: height}
	for i, v := range transform {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: transform coefficient %d is %g", ErrInvalidGrid, i, v)
		}
		g.t[i] = v
	}
	a, b, c, d, e, f := g.t[0], g.t[1], g.t[2], g.t[3], g.t[4], g.t[5]
	if a == 0 || e == 0 {
		return nil, fmt.Errorf("%w: cell size coefficients a=%g and e=%g must be non-zero", ErrInvalidGrid, a, e)
	}
	det := a*e - b*d
	if det == 0 {
		return nil, fmt.Errorf("%w: transform is not invertible", ErrInvalidGrid)
	}
	ia, ib := e/det, -b/det
	id, ie := -d/det, a/det
	g.inv = [6]float64{ia, ib, -c*ia - f*ib, id, ie, -c*id - f*ie}
	return g, nil
}

// GridFromExtent creates a grid covering the rectangle from (xmin, ymin) to
// (xmax, ymax) with cells of the given size. The number of cells in each
// direction is rounded up, so the grid may extend past xmax and ymax.
func GridFromExtent(crs string, xmin, ymin, xmax, ymax, cellWidth, cellHeight float64) (*GridDefinition, error) {
	if cellWidth <= 0 || cellHeight <= 0 {
		return nil, fmt.Errorf("%w: cell size %gx%g must be >0", ErrInvalidGrid, cellWidth, cellHeight)
	}
	if !(xmax > xmin) || !(ymax > ymin) {
		return nil, fmt.Errorf("%w: extent (%g, %g), (%g, %g) is empty", ErrInvalidGrid, xmin, ymin, xmax, ymax)
	}
	width := int(math.Ceil((xmax - xmin) / cellWidth))
	height := int(math.Ceil((ymax - ymin) / cellHeight))
	return NewGridDefinition(crs, width, height, []float64{cellWidth, 0, xmin, 0, cellHeight, ymin})
}

// RasterMetadata is implemented by raster sources that can report the grid
// their data is stored on.
type RasterMetadata interface {
	CRS() string
	Dims() (width, height int)
	Transform() [6]float64
}

// GridFromRaster creates a grid definition from the metadata of a raster source.
func GridFromRaster(r RasterMetadata) (*GridDefinition, error) {
	w, h := r.Dims()
	t := r.Transform()
	return NewGridDefinition(r.CRS(), w, h, t[:])
}

// CRS returns the coordinate reference identifier of the grid.
func (g *GridDefinition) CRS() string { return g.crs }

// Dims returns the number of columns and rows in the grid.
func (g *GridDefinition) Dims() (width, height int) { return g.width, g.height }

// Transform returns the affine transform coefficients (a, b, c, d, e, f).
func (g *GridDefinition) Transform() [6]float64 { return g.t }

// Equal returns whether two grid definitions have the same CRS, dimensions,
// and transform.
func (g *GridDefinition) Equal(o *GridDefinition) bool {
	if g == nil || o == nil {
		return g == o
	}
	return g.crs == o.crs && g.width == o.width && g.height == o.height && g.t == o.t
}

func (g *GridDefinition) String() string {
	return fmt.Sprintf("%dx%d grid %v (%s)", g.width, g.height, g.t, g.crs)
}

// Forward returns the location of the fractional cell index (i, j).
func (g *GridDefinition) Forward(i, j float64) geom.Point {
	return geom.Point{
		X: g.t[0]*i + g.t[1]*j + g.t[2],
		Y: g.t[3]*i + g.t[4]*j + g.t[5],
	}
}

// Inverse returns the fractional cell index of location p.
func (g *GridDefinition) Inverse(p geom.Point) (i, j float64) {
	return g.inv[0]*p.X + g.inv[1]*p.Y + g.inv[2],
		g.inv[3]*p.X + g.inv[4]*p.Y + g.inv[5]
}

// toIndex converts a location to index space, where grid lines fall on
// integer coordinates.
func (g *GridDefinition) toIndex(p geom.Point) geom.Point {
	i, j := g.Inverse(p)
	return geom.Point{X: i, Y: j}
}

func (g *GridDefinition) fromIndex(p geom.Point) geom.Point {
	return g.Forward(p.X, p.Y)
}

// flipped reports whether the transform reverses orientation, as it does for
// north-up rasters with a negative e coefficient.
func (g *GridDefinition) flipped() bool {
	return g.t[0]*g.t[4]-g.t[1]*g.t[3] < 0
}

// CellBounds returns the outline of cell (i, j) as a polygon with a
// counter-clockwise ring.
func (g *GridDefinition) CellBounds(c CellIndex) geom.Polygon {
	i, j := float64(c.I), float64(c.J)
	ring := []geom.Point{
		g.Forward(i, j), g.Forward(i+1, j), g.Forward(i+1, j+1), g.Forward(i, j+1), g.Forward(i, j),
	}
	if g.flipped() {
		reversePoints(ring)
	}
	return geom.Polygon{ring}
}

// Extent returns the bounding box of the whole grid.
func (g *GridDefinition) Extent() *geom.Bounds {
	b := geom.NewBounds()
	w, h := float64(g.width), float64(g.height)
	for _, p := range []geom.Point{g.Forward(0, 0), g.Forward(w, 0), g.Forward(w, h), g.Forward(0, h)} {
		b.Extend(geom.NewBoundsPoint(p))
	}
	return b
}

// Contains returns whether c is a cell of the grid.
func (g *GridDefinition) Contains(c CellIndex) bool {
	return c.I >= 0 && c.I < g.width && c.J >= 0 && c.J < g.height
}

// gridFile is the on-disk form of a GridDefinition.
type gridFile struct {
	CRS       string
	Width     int
	Height    int
	Transform []float64
}

// ReadGridDefinition reads a grid definition in TOML format, for example:
//
//	CRS = "+proj=longlat"
//	Width = 360
//	Height = 180
//	Transform = [1.0, 0.0, -180.0, 0.0, 1.0, -90.0]
func ReadGridDefinition(r io.Reader) (*GridDefinition, error) {
	var f gridFile
	if _, err := toml.DecodeReader(r, &f); err != nil {
		return nil, fmt.Errorf("gridsplit: reading grid definition: %v", err)
	}
	return NewGridDefinition(f.CRS, f.Width, f.Height, f.Transform)
}

// Write writes the grid definition to w in the format read by
// ReadGridDefinition.
func (g *GridDefinition) Write(w io.Writer) error {
	f := gridFile{CRS: g.crs, Width: g.width, Height: g.height, Transform: g.t[:]}
	if err := toml.NewEncoder(w).Encode(f); err != nil {
		return fmt.Errorf("gridsplit: writing grid definition: %v", err)
	}
	return nil
}
