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
	"sort"

	"github.com/ctessum/geom"
)

// SplitPolygonMesh splits the boundary of p along the grid lines and adds
// the parts of the interior grid lines that are inside p. The result is
// the line work of the pieces of p, which Polygonize turns into polygons.
//
// The parts of a grid line inside p are found by sorting the points where
// the boundary meets the line and pairing them up in order, so p must not
// intersect itself. Polygons with holes are not supported.
func (g *GridDefinition) SplitPolygonMesh(p geom.Polygon) ([]geom.LineString, error) {
	const op = "split polygon mesh"
	if len(p) > 1 {
		return nil, invalidGeometry(op, KindPolygon, "polygons with holes are not supported by the mesh strategy")
	}
	rings, err := g.prepareRings(op, p, false)
	if err != nil {
		return nil, err
	}
	r := rings[0]
	lines := walk(append(r[:len(r):len(r)], r[0]))

	i0, i1, j0, j1 := cellRange(r)
	for _, ax := range []Axis{Vertical, Horizontal} {
		lo, hi := i0, i1
		if ax == Horizontal {
			lo, hi = j0, j1
		}
		// Boundary vertices on each interior grid line.
		on := make(map[int][]vertex)
		for _, v := range r {
			c := coord(v.g, ax)
			if k := math.Floor(c); c == k && int(k) > lo && int(k) <= hi {
				on[int(k)] = append(on[int(k)], v)
			}
		}
		for k := lo + 1; k <= hi; k++ {
			segs, err := g.interiorSegments(r, ax, k, on[k])
			if err != nil {
				return nil, err
			}
			lines = append(lines, segs...)
		}
	}
	return lines, nil
}

// interiorSegments returns the parts of grid line k of axis ax that are
// inside ring r, split where they meet the grid lines of the other axis and
// the boundary vertices in on.
func (g *GridDefinition) interiorSegments(r []vertex, ax Axis, k int, on []vertex) ([]geom.LineString, error) {
	fk := float64(k)
	along := 1 - ax
	var cross []vertex
	for n, a := range r {
		b := r[(n+1)%len(r)]
		if (coord(a.g, ax) < fk) == (coord(b.g, ax) < fk) {
			continue
		}
		// Crossings are inserted into the ring, so one end is on the line.
		if coord(a.g, ax) == fk {
			cross = append(cross, a)
		} else {
			cross = append(cross, b)
		}
	}
	if len(cross)%2 != 0 {
		return nil, &TopologyError{Axis: ax, Line: k, Reason: msgOddCrossings}
	}
	sort.SliceStable(cross, func(a, b int) bool {
		return coord(cross[a].g, along) < coord(cross[b].g, along)
	})

	var o []geom.LineString
	for n := 0; n < len(cross); n += 2 {
		a, b := cross[n], cross[n+1]
		from, to := coord(a.g, along), coord(b.g, along)
		if from == to {
			continue
		}
		pts := []vertex{a}
		for _, v := range on {
			if c := coord(v.g, along); c > from && c < to {
				pts = append(pts, v)
			}
		}
		for m := math.Floor(from) + 1; m < to; m++ {
			p := geom.Point{X: fk, Y: m}
			if ax == Horizontal {
				p = geom.Point{X: m, Y: fk}
			}
			pts = append(pts, g.indexVertex(p))
		}
		pts = append(pts, b)
		sort.SliceStable(pts, func(x, y int) bool {
			return coord(pts[x].g, along) < coord(pts[y].g, along)
		})
		for q := 1; q < len(pts); q++ {
			if coord(pts[q].g, along) != coord(pts[q-1].g, along) {
				o = append(o, geom.LineString{pts[q-1].w, pts[q].w})
			}
		}
	}
	return o, nil
}
