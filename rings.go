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

// dirEdge is a directed edge between two nodes.
type dirEdge struct{ a, b geom.Point }

// traceRings links directed edges into closed rings. At a node with more
// than one way out, the walk takes the edge that turns furthest to the
// left, so each ring encloses the smallest face to the left of its edges.
// The rings are returned open (the first point is not repeated).
func traceRings(edges []dirEdge) ([][]geom.Point, error) {
	out := make(map[geom.Point][]int)
	for k, e := range edges {
		out[e.a] = append(out[e.a], k)
	}
	used := make([]bool, len(edges))
	var rings [][]geom.Point
	for start := range edges {
		if used[start] {
			continue
		}
		used[start] = true
		ring := []geom.Point{edges[start].a}
		cur := start
		for steps := 0; ; steps++ {
			if steps > len(edges) {
				return nil, &TopologyError{Reason: "ring does not close"}
			}
			u, v := edges[cur].a, edges[cur].b
			back := math.Atan2(u.Y-v.Y, u.X-v.X)
			next, best := -1, math.Inf(1)
			for _, k := range out[v] {
				if used[k] && k != start {
					continue
				}
				w := edges[k].b
				d := back - math.Atan2(w.Y-v.Y, w.X-v.X)
				for d <= 0 {
					d += 2 * math.Pi
				}
				if d < best {
					next, best = k, d
				}
			}
			if next < 0 {
				return nil, &TopologyError{Reason: "ring does not close"}
			}
			if next == start {
				break
			}
			used[next] = true
			ring = append(ring, v)
			cur = next
		}
		rings = append(rings, ring)
	}
	return rings, nil
}

// cellPieces assembles the rings that result from clipping every ring of a
// polygon to cell (i, j) into polygons. Clipping joins the parts of a ring
// along the cell edges, so edges on the cell boundary are split where they
// overlap and opposite edges cancel out before the remaining edges are
// traced into outer rings and holes.
func (g *GridDefinition) cellPieces(clipped [][]vertex, i, j int) ([]geom.Polygon, error) {
	world := make(map[geom.Point]geom.Point)
	var edges []dirEdge
	for _, r := range clipped {
		for k, v := range r {
			if _, ok := world[v.g]; !ok {
				world[v.g] = v.w
			}
			if next := r[(k+1)%len(r)]; next.g != v.g {
				edges = append(edges, dirEdge{v.g, next.g})
			}
		}
	}
	edges = splitSides(edges, world, float64(i), float64(j))
	edges = cancelEdges(edges)
	if len(edges) == 0 {
		return nil, nil
	}
	rings, err := traceRings(edges)
	if err != nil {
		return nil, err
	}
	var outers, holes [][]geom.Point
	for _, r := range rings {
		switch a := signedArea(r); {
		case a > 0:
			outers = append(outers, r)
		case a < 0:
			holes = append(holes, r)
		}
	}
	polys := make([]geom.Polygon, len(outers))
	for k, r := range outers {
		polys[k] = geom.Polygon{r}
	}
	for _, h := range holes {
		p, ok := interiorPoint(geom.Polygon{h})
		if !ok {
			continue
		}
		found := false
		for k, r := range outers {
			if p.Within(geom.Polygon{r}) == geom.Inside {
				polys[k] = append(polys[k], h)
				found = true
				break
			}
		}
		if !found {
			return nil, &TopologyError{Reason: "hole is not inside any piece of the polygon"}
		}
	}
	for _, p := range polys {
		for k, r := range p {
			p[k] = g.worldRing(r, world)
		}
	}
	return polys, nil
}

// worldRing converts an open index-space ring to a closed ring in world
// coordinates, keeping counter-clockwise outer rings counter-clockwise.
func (g *GridDefinition) worldRing(r []geom.Point, world map[geom.Point]geom.Point) []geom.Point {
	o := make([]geom.Point, len(r)+1)
	for k, p := range r {
		w, ok := world[p]
		if !ok {
			w = g.fromIndex(p)
		}
		o[k] = w
	}
	o[len(r)] = o[0]
	if g.flipped() {
		reversePoints(o)
	}
	return o
}

// splitSides splits edges that run along the sides of cell (i, j) at every
// node that lies on the same side, so overlapping edges share end points.
func splitSides(edges []dirEdge, nodes map[geom.Point]geom.Point, i, j float64) []dirEdge {
	type side struct {
		a Axis
		v float64
	}
	sides := []side{{Vertical, i}, {Vertical, i + 1}, {Horizontal, j}, {Horizontal, j + 1}}
	on := make(map[side][]float64)
	for p := range nodes {
		for _, s := range sides {
			if coord(p, s.a) == s.v {
				// Position along the side.
				on[s] = append(on[s], coord(p, 1-s.a))
			}
		}
	}
	for _, s := range sides {
		sort.Float64s(on[s])
	}
	var o []dirEdge
	for _, e := range edges {
		split := false
		for _, s := range sides {
			if coord(e.a, s.a) != s.v || coord(e.b, s.a) != s.v {
				continue
			}
			o = appendSplit(o, e, s.a, on[s])
			split = true
			break
		}
		if !split {
			o = append(o, e)
		}
	}
	return o
}

// appendSplit appends edge e, which runs along a grid line of axis a, split
// at the positions in pos (sorted) that lie strictly between its ends.
func appendSplit(o []dirEdge, e dirEdge, a Axis, pos []float64) []dirEdge {
	along := 1 - a
	from, to := coord(e.a, along), coord(e.b, along)
	at := func(c float64) geom.Point {
		p := e.a
		if along == Vertical {
			p.X = c
		} else {
			p.Y = c
		}
		return p
	}
	var mid []float64
	lo, hi := math.Min(from, to), math.Max(from, to)
	for _, c := range pos {
		if c > lo && c < hi {
			mid = append(mid, c)
		}
	}
	if from > to {
		sort.Sort(sort.Reverse(sort.Float64Slice(mid)))
	}
	prev := e.a
	for _, c := range mid {
		p := at(c)
		o = append(o, dirEdge{prev, p})
		prev = p
	}
	return append(o, dirEdge{prev, e.b})
}

// cancelEdges removes pairs of edges that run between the same nodes in
// opposite directions. The order of the remaining edges is kept.
func cancelEdges(edges []dirEdge) []dirEdge {
	count := make(map[dirEdge]int)
	for _, e := range edges {
		rev := dirEdge{e.b, e.a}
		if count[rev] > 0 {
			count[rev]--
		} else {
			count[e]++
		}
	}
	var o []dirEdge
	for _, e := range edges {
		if count[e] > 0 {
			count[e]--
			o = append(o, e)
		}
	}
	return o
}
