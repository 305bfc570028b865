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

// CoordinatePrecision is the number of decimal places that coordinates are
// rounded to before Polygonize matches up end points.
const CoordinatePrecision = 9

// roundPoint rounds p to CoordinatePrecision decimal places.
func roundPoint(p geom.Point) geom.Point {
	s := math.Pow(10, CoordinatePrecision)
	return geom.Point{X: math.Round(p.X*s) / s, Y: math.Round(p.Y*s) / s}
}

// Polygonize builds the polygons enclosed by a set of lines. The lines
// must only meet at their vertices. Coordinates are first rounded to
// CoordinatePrecision decimal places, repeated segments are merged, and
// segments that do not bound any face are removed. Each bounded face is
// returned as a polygon with a counter-clockwise ring, in a stable order.
func Polygonize(lines []geom.LineString) ([]geom.Polygon, error) {
	type seg struct{ a, b geom.Point }
	seen := make(map[seg]bool)
	var segs []seg
	degree := make(map[geom.Point]int)
	for _, l := range lines {
		for k := 1; k < len(l); k++ {
			a, b := roundPoint(l[k-1]), roundPoint(l[k])
			if a == b || seen[seg{a, b}] || seen[seg{b, a}] {
				continue
			}
			seen[seg{a, b}] = true
			segs = append(segs, seg{a, b})
			degree[a]++
			degree[b]++
		}
	}

	// Remove dangling segments until every node has at least two.
	removed := make([]bool, len(segs))
	for changed := true; changed; {
		changed = false
		for k, s := range segs {
			if !removed[k] && (degree[s.a] < 2 || degree[s.b] < 2) {
				removed[k] = true
				degree[s.a]--
				degree[s.b]--
				changed = true
			}
		}
	}

	var edges []dirEdge
	for k, s := range segs {
		if !removed[k] {
			edges = append(edges, dirEdge{s.a, s.b}, dirEdge{s.b, s.a})
		}
	}
	rings, err := traceRings(edges)
	if err != nil {
		return nil, err
	}
	var o []geom.Polygon
	for _, r := range rings {
		if signedArea(r) > 0 {
			o = append(o, geom.Polygon{append(r, r[0])})
		}
	}
	return o, nil
}
