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
	"errors"
	"math"
	"math/rand"
	"reflect"
	"testing"

	"github.com/ctessum/geom"
)

func TestSplitLineString(t *testing.T) {
	g := unitGrid(t, 2, 2)
	tests := []struct {
		name string
		line geom.LineString
		want []geom.LineString
	}{
		{
			name: "two crossings",
			line: geom.LineString{{X: 0.5, Y: 0.5}, {X: 0.75, Y: 0.5}, {X: 1.5, Y: 0.5}, {X: 1.5, Y: 1.5}},
			want: []geom.LineString{
				{{X: 0.5, Y: 0.5}, {X: 0.75, Y: 0.5}, {X: 1.0, Y: 0.5}},
				{{X: 1.0, Y: 0.5}, {X: 1.5, Y: 0.5}, {X: 1.5, Y: 1.0}},
				{{X: 1.5, Y: 1.0}, {X: 1.5, Y: 1.5}},
			},
		},
		{
			name: "within one cell",
			line: geom.LineString{{X: 0.1, Y: 0.1}, {X: 0.2, Y: 0.2}},
			want: []geom.LineString{{{X: 0.1, Y: 0.1}, {X: 0.2, Y: 0.2}}},
		},
		{
			name: "through a corner",
			line: geom.LineString{{X: 0.5, Y: 0.5}, {X: 1.5, Y: 1.5}},
			want: []geom.LineString{
				{{X: 0.5, Y: 0.5}, {X: 1, Y: 1}},
				{{X: 1, Y: 1}, {X: 1.5, Y: 1.5}},
			},
		},
		{
			name: "vertex on grid line",
			line: geom.LineString{{X: 0.5, Y: 0.5}, {X: 1, Y: 0.5}, {X: 1.5, Y: 0.5}},
			want: []geom.LineString{
				{{X: 0.5, Y: 0.5}, {X: 1, Y: 0.5}},
				{{X: 1, Y: 0.5}, {X: 1.5, Y: 0.5}},
			},
		},
		{
			name: "touching a grid line",
			line: geom.LineString{{X: 0.5, Y: 0.5}, {X: 1, Y: 0.5}, {X: 0.5, Y: 0.7}},
			want: []geom.LineString{{{X: 0.5, Y: 0.5}, {X: 1, Y: 0.5}, {X: 0.5, Y: 0.7}}},
		},
		{
			name: "along a grid line",
			line: geom.LineString{{X: 1, Y: 0.5}, {X: 1, Y: 1.5}},
			want: []geom.LineString{
				{{X: 1, Y: 0.5}, {X: 1, Y: 1}},
				{{X: 1, Y: 1}, {X: 1, Y: 1.5}},
			},
		},
		{
			name: "leaving and coming back",
			line: geom.LineString{{X: 0.5, Y: 0.5}, {X: 1.5, Y: 0.5}, {X: 0.5, Y: 0.5}},
			want: []geom.LineString{
				{{X: 0.5, Y: 0.5}, {X: 1, Y: 0.5}},
				{{X: 1, Y: 0.5}, {X: 1.5, Y: 0.5}, {X: 1, Y: 0.5}},
				{{X: 1, Y: 0.5}, {X: 0.5, Y: 0.5}},
			},
		},
		{
			name: "repeated vertex",
			line: geom.LineString{{X: 0.2, Y: 0.2}, {X: 0.2, Y: 0.2}, {X: 0.4, Y: 0.2}},
			want: []geom.LineString{{{X: 0.2, Y: 0.2}, {X: 0.2, Y: 0.2}, {X: 0.4, Y: 0.2}}},
		},
		{
			name: "outside of the grid",
			line: geom.LineString{{X: -0.5, Y: 0.5}, {X: 0.5, Y: 0.5}},
			want: []geom.LineString{
				{{X: -0.5, Y: 0.5}, {X: 0, Y: 0.5}},
				{{X: 0, Y: 0.5}, {X: 0.5, Y: 0.5}},
			},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			have, err := g.SplitLineString(test.line)
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(have, test.want) {
				t.Errorf("have %v\nwant %v", have, test.want)
			}
		})
	}
}

func TestSplitLineStringInvalid(t *testing.T) {
	g := unitGrid(t, 2, 2)
	for _, l := range []geom.LineString{
		nil,
		{{X: 0.5, Y: 0.5}},
		{{X: 0.5, Y: 0.5}, {X: 0.5, Y: 0.5}},
		{{X: 0.5, Y: 0.5}, {X: math.Inf(1), Y: 0.5}},
	} {
		if _, err := g.SplitLineString(l); !errors.Is(err, ErrInvalidGeometry) {
			t.Errorf("%v: error should be ErrInvalidGeometry but is %v", l, err)
		}
	}
}

// randomLines returns n lines with up to 6 vertices in the rectangle
// from (lo, lo) to (hi, hi).
func randomLines(n int, lo, hi float64) []geom.LineString {
	r := rand.New(rand.NewSource(1))
	o := make([]geom.LineString, n)
	for k := range o {
		l := make(geom.LineString, 2+r.Intn(5))
		for v := range l {
			l[v] = geom.Point{X: lo + r.Float64()*(hi-lo), Y: lo + r.Float64()*(hi-lo)}
		}
		o[k] = l
	}
	return o
}

func testGrids(t *testing.T) map[string]*GridDefinition {
	o := make(map[string]*GridDefinition)
	for name, tr := range map[string][]float64{
		"unit":     {1, 0, 0, 0, 1, 0},
		"north up": {0.5, 0, -1, 0, -0.5, 4},
		"rotated":  {0.8, 0.3, 0.2, -0.3, 0.8, 1},
	} {
		g, err := NewGridDefinition("", 6, 6, tr)
		if err != nil {
			t.Fatal(err)
		}
		o[name] = g
	}
	return o
}

// checkInCell checks that all of pts are within the closed bounds of the
// cell that contains the midpoint of the first two points.
func checkInCell(t *testing.T, g *GridDefinition, pts []geom.Point) {
	t.Helper()
	const tol = 1e-9
	i0, j0 := g.Inverse(pts[0])
	i1, j1 := g.Inverse(pts[1])
	ci, cj := math.Floor((i0+i1)/2), math.Floor((j0+j1)/2)
	for _, p := range pts {
		i, j := g.Inverse(p)
		if i < ci-tol || i > ci+1+tol || j < cj-tol || j > cj+1+tol {
			t.Errorf("%v is not within cell (%g, %g)", pts, ci, cj)
			return
		}
	}
}

func TestSplitLineStringProperties(t *testing.T) {
	for name, g := range testGrids(t) {
		t.Run(name, func(t *testing.T) {
			for _, l := range randomLines(200, -2, 8) {
				frags, err := g.SplitLineString(l)
				if err != nil {
					t.Fatal(err)
				}

				// No gaps: fragments join at shared points and cover the
				// whole line.
				if frags[0][0] != l[0] {
					t.Errorf("first point: have %v, want %v", frags[0][0], l[0])
				}
				last := frags[len(frags)-1]
				if last[len(last)-1] != l[len(l)-1] {
					t.Errorf("last point: have %v, want %v", last[len(last)-1], l[len(l)-1])
				}
				var length float64
				for k, f := range frags {
					if len(f) < 2 {
						t.Fatalf("fragment %d has %d points", k, len(f))
					}
					if f.Length() == 0 {
						t.Errorf("fragment %d has zero length", k)
					}
					if k > 0 {
						prev := frags[k-1]
						if prev[len(prev)-1] != f[0] {
							t.Errorf("gap between fragments %d and %d", k-1, k)
						}
					}
					length += f.Length()
					checkInCell(t, g, f)
				}
				if want := l.Length(); math.Abs(length-want) > 1e-9*want {
					t.Errorf("length: have %g, want %g", length, want)
				}

				// The original vertices are all kept, in order.
				v := 0
				for _, f := range frags {
					for _, p := range f {
						if v < len(l) && p == l[v] {
							v++
						}
					}
				}
				if v != len(l) {
					t.Errorf("only %d of %d vertices kept", v, len(l))
				}

				// Splitting again is deterministic.
				frags2, err := g.SplitLineString(l)
				if err != nil {
					t.Fatal(err)
				}
				if !reflect.DeepEqual(frags, frags2) {
					t.Error("results differ between calls")
				}

				// Splitting a fragment gives the fragment back. Only the
				// unit grid round-trips crossing points exactly.
				if name != "unit" {
					continue
				}
				for _, f := range frags {
					again, err := g.SplitLineString(f)
					if err != nil {
						t.Fatal(err)
					}
					if len(again) != 1 || !reflect.DeepEqual(again[0], f) {
						t.Errorf("split of fragment %v gives %v", f, again)
					}
				}
			}
		})
	}
}

func TestSplitLineStringCells(t *testing.T) {
	g := unitGrid(t, 3, 3)
	l := geom.LineString{{X: 0.5, Y: 0.5}, {X: 2.5, Y: 0.5}, {X: 2.5, Y: 2.5}, {X: 0.5, Y: 2.5}}
	frags, err := g.SplitLineString(l)
	if err != nil {
		t.Fatal(err)
	}
	want := []CellIndex{{0, 0}, {1, 0}, {2, 0}, {2, 1}, {2, 2}, {1, 2}, {0, 2}}
	if len(frags) != len(want) {
		t.Fatalf("have %d fragments, want %d", len(frags), len(want))
	}
	for k, f := range frags {
		c, err := g.CellIndices(f, Sentinel)
		if err != nil {
			t.Fatal(err)
		}
		if c != want[k] {
			t.Errorf("fragment %d: have %v, want %v", k, c, want[k])
		}
	}
}
