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
	"math"

	"github.com/ctessum/geom"
)

// cornerTolerance is the largest difference in segment parameter between a
// vertical and a horizontal crossing for them to be treated as one crossing
// through a grid corner.
const cornerTolerance = 1e-12

// vertex is a point in both index space (g), where grid lines are at
// integer coordinates, and in world coordinates (w). Crossings are
// computed in index space so the coordinate on the crossed axis is exact.
type vertex struct {
	g, w geom.Point

	// crossing is true for points added where a segment crosses a grid line.
	crossing bool
}

func (g *GridDefinition) newVertex(w geom.Point) vertex {
	return vertex{g: g.toIndex(w), w: w}
}

// indexVertex creates a vertex at index-space location p.
func (g *GridDefinition) indexVertex(p geom.Point) vertex {
	return vertex{g: p, w: g.fromIndex(p), crossing: true}
}

// densify returns the points of l with every grid line crossing inserted
// between the original vertices.
func (g *GridDefinition) densify(l []geom.Point) []vertex {
	o := make([]vertex, 0, len(l))
	for k, p := range l {
		v := g.newVertex(p)
		if k > 0 {
			o = g.crossings(o[len(o)-1], v, o)
		}
		o = append(o, v)
	}
	return o
}

// lineSteps returns the integer grid lines strictly between a and b in the
// order they are passed when travelling from a to b.
func lineSteps(a, b float64) (first float64, step float64, n int) {
	switch {
	case b > a:
		first = math.Floor(a) + 1
		return first, 1, int(math.Ceil(b) - first)
	case b < a:
		first = math.Ceil(a) - 1
		return first, -1, int(first - math.Floor(b))
	default:
		return 0, 0, 0
	}
}

// crossings appends to dst the grid line crossings strictly between a and
// b, ordered from a to b. A segment that passes through a grid corner gets
// a single crossing at that corner.
func (g *GridDefinition) crossings(a, b vertex, dst []vertex) []vertex {
	dx, dy := b.g.X-a.g.X, b.g.Y-a.g.Y
	xk, xs, nx := lineSteps(a.g.X, b.g.X)
	yk, ys, ny := lineSteps(a.g.Y, b.g.Y)
	ix, iy := 0, 0
	for ix < nx || iy < ny {
		kx, ky := xk+float64(ix)*xs, yk+float64(iy)*ys
		tx, ty := math.Inf(1), math.Inf(1)
		if ix < nx {
			tx = (kx - a.g.X) / dx
		}
		if iy < ny {
			ty = (ky - a.g.Y) / dy
		}
		var p geom.Point
		switch {
		case math.Abs(tx-ty) <= cornerTolerance:
			p = geom.Point{X: kx, Y: ky}
			ix++
			iy++
		case tx < ty:
			p = geom.Point{X: kx, Y: a.g.Y + tx*dy}
			ix++
		default:
			p = geom.Point{X: a.g.X + ty*dx, Y: ky}
			iy++
		}
		dst = append(dst, g.indexVertex(p))
	}
	return dst
}

// cellKey identifies a cell by its floored index. Unlike CellIndex it is not
// limited to the extent of the grid.
type cellKey struct{ i, j float64 }

func pieceCell(a, b vertex) cellKey {
	return cellKey{math.Floor((a.g.X + b.g.X) / 2), math.Floor((a.g.Y + b.g.Y) / 2)}
}

// walk splits a densified line into fragments that each stay within one
// cell. Each piece between consecutive vertices belongs to the cell of its
// midpoint; a new fragment starts at the shared point whenever the cell
// changes.
func walk(pts []vertex) []geom.LineString {
	var (
		o       []geom.LineString
		cur     geom.LineString
		cell    cellKey
		pending int // repeated input vertices seen before the first fragment
	)
	for k := 1; k < len(pts); k++ {
		a, b := pts[k-1], pts[k]
		if a.w == b.w {
			// Keep repeated input vertices but drop the zero-length
			// pieces that come from a crossing landing on a vertex.
			if !a.crossing && !b.crossing {
				if cur == nil {
					pending++
				} else {
					cur = append(cur, b.w)
				}
			}
			continue
		}
		c := pieceCell(a, b)
		switch {
		case cur == nil:
			cur = make(geom.LineString, 0, pending+2)
			for ; pending >= 0; pending-- {
				cur = append(cur, a.w)
			}
			cur = append(cur, b.w)
			cell = c
		case c == cell:
			cur = append(cur, b.w)
		default:
			o = append(o, cur)
			cur = geom.LineString{a.w, b.w}
			cell = c
		}
	}
	if cur != nil {
		o = append(o, cur)
	}
	return o
}

// checkLine returns an error if l cannot be split.
func checkLine(op string, l geom.LineString) error {
	if len(l) < 2 {
		return invalidGeometry(op, KindLineString, "line has %d points but needs at least 2", len(l))
	}
	distinct := false
	for _, p := range l {
		if !finitePoint(p) {
			return invalidGeometry(op, KindLineString, "non-finite coordinates")
		}
		if p != l[0] {
			distinct = true
		}
	}
	if !distinct {
		return invalidGeometry(op, KindLineString, "line has zero length")
	}
	return nil
}

// SplitLineString splits l into fragments that each lie within one closed
// grid cell. Consecutive fragments share the point where l crosses the grid
// line between them, and the fragments are returned in the order they are
// passed when walking l. A fragment may include several of the original
// vertices. Grid lines are treated as continuing past the edges of the grid,
// so parts of l outside of the grid are split too.
func (g *GridDefinition) SplitLineString(l geom.LineString) ([]geom.LineString, error) {
	if err := checkLine("split linestring", l); err != nil {
		return nil, err
	}
	return walk(g.densify(l)), nil
}
