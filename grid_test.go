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
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/ctessum/geom"
)

// unitGrid is a width x height grid of unit cells with its corner at the origin.
func unitGrid(t *testing.T, width, height int) *GridDefinition {
	g, err := NewGridDefinition("", width, height, []float64{1, 0, 0, 0, 1, 0})
	if err != nil {
		t.Fatal(err)
	}
	return g
}

func TestNewGridDefinition(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
		transform     []float64
		ok            bool
	}{
		{name: "identity", width: 2, height: 2, transform: []float64{1, 0, 0, 0, 1, 0}, ok: true},
		{name: "north up", width: 3, height: 4, transform: []float64{10, 0, 500, 0, -10, 900}, ok: true},
		{name: "rotated", width: 3, height: 4, transform: []float64{1, 0.5, 0, -0.5, 1, 0}, ok: true},
		{name: "zero width", width: 0, height: 2, transform: []float64{1, 0, 0, 0, 1, 0}},
		{name: "negative height", width: 2, height: -1, transform: []float64{1, 0, 0, 0, 1, 0}},
		{name: "short transform", width: 2, height: 2, transform: []float64{1, 0, 0, 0, 1}},
		{name: "zero a", width: 2, height: 2, transform: []float64{0, 1, 0, 1, 1, 0}},
		{name: "zero e", width: 2, height: 2, transform: []float64{1, 0, 0, 0, 0, 0}},
		{name: "singular", width: 2, height: 2, transform: []float64{1, 2, 0, 2, 4, 0}},
		{name: "NaN", width: 2, height: 2, transform: []float64{1, 0, math.NaN(), 0, 1, 0}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := NewGridDefinition("", test.width, test.height, test.transform)
			if test.ok && err != nil {
				t.Fatal(err)
			}
			if !test.ok && !errors.Is(err, ErrInvalidGrid) {
				t.Errorf("error should be ErrInvalidGrid but is %v", err)
			}
		})
	}
}

func TestGridFromExtent(t *testing.T) {
	g, err := GridFromExtent("+proj=longlat", -1, 2, 3.5, 3, 1, 0.25)
	if err != nil {
		t.Fatal(err)
	}
	w, h := g.Dims()
	if w != 5 || h != 4 {
		t.Errorf("dims: have %dx%d, want 5x4", w, h)
	}
	want := [6]float64{1, 0, -1, 0, 0.25, 2}
	if g.Transform() != want {
		t.Errorf("transform: have %v, want %v", g.Transform(), want)
	}
	if g.CRS() != "+proj=longlat" {
		t.Errorf("crs: %s", g.CRS())
	}
	if _, err := GridFromExtent("", 0, 0, 1, 1, 0, 1); !errors.Is(err, ErrInvalidGrid) {
		t.Errorf("zero cell size should fail: %v", err)
	}
	if _, err := GridFromExtent("", 0, 0, 0, 1, 1, 1); !errors.Is(err, ErrInvalidGrid) {
		t.Errorf("empty extent should fail: %v", err)
	}
}

type testRaster struct{}

func (testRaster) CRS() string           { return "EPSG:4326" }
func (testRaster) Dims() (int, int)      { return 7, 3 }
func (testRaster) Transform() [6]float64 { return [6]float64{0.5, 0, 10, 0, -0.5, 50} }

func TestGridFromRaster(t *testing.T) {
	g, err := GridFromRaster(testRaster{})
	if err != nil {
		t.Fatal(err)
	}
	want, _ := NewGridDefinition("EPSG:4326", 7, 3, []float64{0.5, 0, 10, 0, -0.5, 50})
	if !g.Equal(want) {
		t.Errorf("have %v, want %v", g, want)
	}
}

func TestForwardInverse(t *testing.T) {
	for _, tr := range [][]float64{
		{1, 0, 0, 0, 1, 0},
		{30, 0, -1000, 0, -30, 5000},
		{2, 0.5, 3, -0.25, 1.5, -7},
	} {
		g, err := NewGridDefinition("", 10, 10, tr)
		if err != nil {
			t.Fatal(err)
		}
		for _, ij := range [][2]float64{{0, 0}, {1, 0}, {0, 1}, {3.25, 7.5}, {-2, 11}} {
			p := g.Forward(ij[0], ij[1])
			i, j := g.Inverse(p)
			if math.Abs(i-ij[0]) > 1e-9 || math.Abs(j-ij[1]) > 1e-9 {
				t.Errorf("%v: (%g, %g) -> %v -> (%g, %g)", tr, ij[0], ij[1], p, i, j)
			}
		}
	}
}

func TestGridEqual(t *testing.T) {
	a := unitGrid(t, 2, 2)
	b := unitGrid(t, 2, 2)
	c := unitGrid(t, 2, 3)
	d, _ := NewGridDefinition("EPSG:3857", 2, 2, []float64{1, 0, 0, 0, 1, 0})
	if !a.Equal(b) {
		t.Error("a and b should be equal")
	}
	if a.Equal(c) || a.Equal(d) || a.Equal(nil) {
		t.Error("grids should not be equal")
	}
}

func TestCellBounds(t *testing.T) {
	g, err := NewGridDefinition("", 4, 4, []float64{10, 0, 100, 0, -10, 200})
	if err != nil {
		t.Fatal(err)
	}
	b := g.CellBounds(CellIndex{I: 1, J: 2})
	if a := b.Area(); a != 100 {
		t.Errorf("area: %g", a)
	}
	if signedArea(b[0]) <= 0 {
		t.Error("cell ring should be counter-clockwise")
	}
	bb := b.Bounds()
	want := &geom.Bounds{Min: geom.Point{X: 110, Y: 170}, Max: geom.Point{X: 120, Y: 180}}
	if *bb != *want {
		t.Errorf("bounds: have %v, want %v", bb, want)
	}
	e := g.Extent()
	wantE := &geom.Bounds{Min: geom.Point{X: 100, Y: 160}, Max: geom.Point{X: 140, Y: 200}}
	if *e != *wantE {
		t.Errorf("extent: have %v, want %v", e, wantE)
	}
}

func TestGridDefinitionFile(t *testing.T) {
	g, err := NewGridDefinition("+proj=utm +zone=30", 12, 9, []float64{100, 0, 400000, 0, -100, 5000000})
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := g.Write(&buf); err != nil {
		t.Fatal(err)
	}
	g2, err := ReadGridDefinition(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if !g.Equal(g2) {
		t.Errorf("have %v, want %v", g2, g)
	}

	_, err = ReadGridDefinition(strings.NewReader("Width = 2\nHeight = 2\nTransform = [1.0, 0.0, 0.0]\n"))
	if !errors.Is(err, ErrInvalidGrid) {
		t.Errorf("short transform should fail: %v", err)
	}
}
