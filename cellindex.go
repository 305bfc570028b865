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
	"math"
	"sort"

	"github.com/ctessum/geom"
)

// CellIndex is the column (I) and row (J) of a grid cell.
type CellIndex struct {
	I, J int
}

// OutOfBounds is the cell index given to locations outside of the grid.
var OutOfBounds = CellIndex{I: -1, J: -1}

// BoundsPolicy specifies how locations outside of the grid are handled.
type BoundsPolicy int

const (
	// Sentinel resolves locations outside of the grid to OutOfBounds.
	Sentinel BoundsPolicy = iota
	// Reject returns an *OutOfBoundsError for locations outside of the grid.
	Reject
)

func (p BoundsPolicy) String() string {
	switch p {
	case Sentinel:
		return "sentinel"
	case Reject:
		return "reject"
	default:
		return fmt.Sprintf("BoundsPolicy(%d)", int(p))
	}
}

// ParseBoundsPolicy returns the policy with the given name.
func ParseBoundsPolicy(name string) (BoundsPolicy, error) {
	switch name {
	case "sentinel", "":
		return Sentinel, nil
	case "reject":
		return Reject, nil
	default:
		return Sentinel, fmt.Errorf("gridsplit: invalid out of bounds policy %q; options are 'sentinel' and 'reject'", name)
	}
}

// CellOf returns the index of the cell containing p, or OutOfBounds.
// Points on a grid line belong to the cell with the larger index on that
// axis, because the fractional index is floored.
func (g *GridDefinition) CellOf(p geom.Point) CellIndex {
	fi, fj := g.Inverse(p)
	return g.cellOfIndex(geom.Point{X: fi, Y: fj})
}

// cellOfIndex floors an index-space point.
func (g *GridDefinition) cellOfIndex(p geom.Point) CellIndex {
	fi, fj := math.Floor(p.X), math.Floor(p.Y)
	if math.IsNaN(fi) || math.IsNaN(fj) || fi < 0 || fj < 0 ||
		fi >= float64(g.width) || fj >= float64(g.height) {
		return OutOfBounds
	}
	return CellIndex{I: int(fi), J: int(fj)}
}

// CellIndices returns the index of the cell that owns geometry gm, which is
// the cell containing its representative point (see RepresentativePoint).
// The policy decides whether a location outside of the grid resolves to
// OutOfBounds or to an error.
func (g *GridDefinition) CellIndices(gm geom.Geom, policy BoundsPolicy) (CellIndex, error) {
	p, err := RepresentativePoint(gm)
	if err != nil {
		return OutOfBounds, err
	}
	fi, fj := g.Inverse(p)
	if c := g.cellOfIndex(geom.Point{X: fi, Y: fj}); c != OutOfBounds {
		return c, nil
	}
	if policy == Reject {
		c := CellIndex{I: int(math.Floor(fi)), J: int(math.Floor(fj))}
		return OutOfBounds, &OutOfBoundsError{Cell: c, Width: g.width, Height: g.height}
	}
	return OutOfBounds, nil
}

// RepresentativePoint returns a point that lies on or inside gm:
//   - for a Point, the point itself;
//   - for a LineString, the midpoint of its longest segment (the first
//     one if several are equally long);
//   - for a Polygon, the midpoint of the widest interior interval along a
//     horizontal line through the middle of its bounding box.
//
// A fragment produced by the splitting functions is confined to one cell,
// so its representative point is in the interior of that cell or on a
// cell edge that the fragment runs along.
func RepresentativePoint(gm geom.Geom) (geom.Point, error) {
	const op = "representative point"
	switch KindOf(gm) {
	case KindPoint:
		p := gm.(geom.Point)
		if !finitePoint(p) {
			return p, invalidGeometry(op, KindPoint, "non-finite coordinates")
		}
		return p, nil
	case KindLineString:
		l := gm.(geom.LineString)
		best, bestLen := -1, -1.
		for i := 1; i < len(l); i++ {
			if d := segLength(l[i-1], l[i]); d > bestLen {
				best, bestLen = i, d
			}
		}
		if best < 0 || bestLen == 0 || math.IsNaN(bestLen) {
			return geom.Point{}, invalidGeometry(op, KindLineString, "line has no length")
		}
		return midpoint(l[best-1], l[best]), nil
	case KindPolygon:
		p, ok := interiorPoint(gm.(geom.Polygon))
		if !ok {
			return geom.Point{}, invalidGeometry(op, KindPolygon, "polygon has no area")
		}
		return p, nil
	default:
		return geom.Point{}, invalidGeometry(op, KindOf(gm), "unsupported geometry type %T", gm)
	}
}

// interiorPoint finds a point strictly inside polygon p.
// Scan lines are tried starting from the middle of the bounding box and then
// halfway between each pair of adjacent vertex heights.
func interiorPoint(p geom.Polygon) (geom.Point, bool) {
	b := p.Bounds()
	if b.Empty() || !(b.Max.Y > b.Min.Y) {
		return geom.Point{}, false
	}
	if pt, ok := widestInterval(p, (b.Min.Y+b.Max.Y)/2); ok {
		return pt, true
	}
	var ys []float64
	for _, r := range p {
		for _, v := range r {
			ys = append(ys, v.Y)
		}
	}
	sort.Float64s(ys)
	for i := 1; i < len(ys); i++ {
		if ys[i] == ys[i-1] {
			continue
		}
		if pt, ok := widestInterval(p, (ys[i]+ys[i-1])/2); ok {
			return pt, true
		}
	}
	return geom.Point{}, false
}

// widestInterval intersects the horizontal line at height y with all rings
// of p and returns the middle of the widest interval that lies inside p.
func widestInterval(p geom.Polygon, y float64) (geom.Point, bool) {
	var xs []float64
	for _, r := range p {
		n := len(r)
		for k := 0; k < n; k++ {
			a, b := r[k], r[(k+1)%n]
			if (a.Y < y) != (b.Y < y) {
				xs = append(xs, a.X+(y-a.Y)*(b.X-a.X)/(b.Y-a.Y))
			}
		}
	}
	sort.Float64s(xs)
	best, bestW := -1, 0.
	for k := 0; k+1 < len(xs); k += 2 {
		if w := xs[k+1] - xs[k]; w > bestW {
			best, bestW = k, w
		}
	}
	if best < 0 {
		return geom.Point{}, false
	}
	return geom.Point{X: (xs[best] + xs[best+1]) / 2, Y: y}, true
}

func midpoint(a, b geom.Point) geom.Point {
	return geom.Point{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2}
}

func segLength(a, b geom.Point) float64 {
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}

func finitePoint(p geom.Point) bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}
