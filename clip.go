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

import "github.com/ctessum/geom"

// coord returns the coordinate of p along axis a. Vertical grid lines have
// constant X in index space.
func coord(p geom.Point, a Axis) float64 {
	if a == Vertical {
		return p.X
	}
	return p.Y
}

// clipBand clips the open ring r to the band lo <= coord <= hi along
// axis a (Sutherland-Hodgman against two half-planes). Parts of r that leave
// the band and come back are joined along the band edges.
func (g *GridDefinition) clipBand(r []vertex, a Axis, lo, hi float64) []vertex {
	r = g.clipHalf(r, a, lo, true)
	return g.clipHalf(r, a, hi, false)
}

func (g *GridDefinition) clipHalf(r []vertex, a Axis, v float64, above bool) []vertex {
	if len(r) == 0 {
		return nil
	}
	in := func(p vertex) bool {
		if above {
			return coord(p.g, a) >= v
		}
		return coord(p.g, a) <= v
	}
	o := make([]vertex, 0, len(r))
	prev := r[len(r)-1]
	prevIn := in(prev)
	for _, cur := range r {
		curIn := in(cur)
		if curIn != prevIn {
			o = append(o, g.cut(prev, cur, a, v))
		}
		if curIn {
			o = append(o, cur)
		}
		prev, prevIn = cur, curIn
	}
	return dedupe(o)
}

// cut returns the point where segment p-q meets the grid line coord == v.
// End points already on the line are returned as they are so that shared
// points stay identical.
func (g *GridDefinition) cut(p, q vertex, a Axis, v float64) vertex {
	cp, cq := coord(p.g, a), coord(q.g, a)
	if cp == v {
		return p
	}
	if cq == v {
		return q
	}
	t := (v - cp) / (cq - cp)
	var pt geom.Point
	if a == Vertical {
		pt = geom.Point{X: v, Y: p.g.Y + t*(q.g.Y-p.g.Y)}
	} else {
		pt = geom.Point{X: p.g.X + t*(q.g.X-p.g.X), Y: v}
	}
	return g.indexVertex(pt)
}

// dedupe removes consecutive repeated points from the open ring r,
// including a last point equal to the first.
func dedupe(r []vertex) []vertex {
	if len(r) == 0 {
		return r
	}
	o := r[:1]
	for _, v := range r[1:] {
		if v.g != o[len(o)-1].g {
			o = append(o, v)
		}
	}
	for len(o) > 1 && o[len(o)-1].g == o[0].g {
		o = o[:len(o)-1]
	}
	if len(o) < 3 {
		return nil
	}
	return o
}
