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
	"github.com/ctessum/geom/index/rtree"
)

// PolygonStrategy chooses the algorithm used to split polygons.
type PolygonStrategy int

const (
	// Direct clips the polygon to every cell it overlaps. It supports
	// polygons with holes.
	Direct PolygonStrategy = iota

	// Mesh splits the polygon boundary like a line, adds the parts of the
	// grid lines that are inside the polygon, and rebuilds the pieces with
	// Polygonize. It does not support holes.
	Mesh
)

func (s PolygonStrategy) String() string {
	switch s {
	case Direct:
		return "direct"
	case Mesh:
		return "mesh"
	default:
		return fmt.Sprintf("PolygonStrategy(%d)", int(s))
	}
}

// ParsePolygonStrategy returns the strategy with the given name.
func ParsePolygonStrategy(name string) (PolygonStrategy, error) {
	switch name {
	case "direct", "":
		return Direct, nil
	case "mesh":
		return Mesh, nil
	default:
		return Direct, fmt.Errorf("gridsplit: invalid polygon strategy %q; options are 'direct' and 'mesh'", name)
	}
}

// SplitPolygonWith splits p using the given strategy.
func (g *GridDefinition) SplitPolygonWith(p geom.Polygon, s PolygonStrategy) ([]geom.Polygon, error) {
	switch s {
	case Direct:
		return g.SplitPolygon(p)
	case Mesh:
		lines, err := g.SplitPolygonMesh(p)
		if err != nil {
			return nil, err
		}
		return Polygonize(lines)
	default:
		return nil, fmt.Errorf("gridsplit: invalid polygon strategy %v", s)
	}
}

// prepareRings checks the rings of p and converts them to index space with
// all grid line crossings inserted. The returned rings are open. When
// orient is true, the outer ring is made counter-clockwise and the holes
// clockwise in index space.
func (g *GridDefinition) prepareRings(op string, p geom.Polygon, orient bool) ([][]vertex, error) {
	if len(p) == 0 {
		return nil, invalidGeometry(op, KindPolygon, "polygon has no rings")
	}
	rings := make([][]vertex, len(p))
	for ri, rr := range p {
		r := make([]geom.Point, 0, len(rr)+1)
		for _, pt := range rr {
			if !finitePoint(pt) {
				return nil, invalidGeometry(op, KindPolygon, "non-finite coordinates")
			}
			if len(r) == 0 || pt != r[len(r)-1] {
				r = append(r, pt)
			}
		}
		if len(r) > 1 && r[0] != r[len(r)-1] {
			if err := g.checkOpenRing(r[0], r[len(r)-1]); err != nil {
				return nil, err
			}
			r = append(r, r[0])
		}
		if len(r) < 4 {
			return nil, invalidGeometry(op, KindPolygon, "ring %d has fewer than 3 distinct points", ri)
		}
		d := g.densify(r)
		d = d[:len(d)-1]
		pts := make([]geom.Point, len(d))
		for k, v := range d {
			pts[k] = v.g
		}
		a := signedArea(pts)
		if ri == 0 && a == 0 {
			return nil, invalidGeometry(op, KindPolygon, "polygon has no area")
		}
		if orient && (ri == 0) == (a < 0) {
			reverseVertices(d)
		}
		rings[ri] = d
	}
	return rings, nil
}

// checkOpenRing returns a TopologyError if closing a ring from a to b
// would cross a grid line, meaning the ring as given crosses that grid
// line an odd number of times.
func (g *GridDefinition) checkOpenRing(a, b geom.Point) error {
	ga, gb := g.toIndex(a), g.toIndex(b)
	for _, ax := range []Axis{Vertical, Horizontal} {
		lo, hi := coord(ga, ax), coord(gb, ax)
		if lo > hi {
			lo, hi = hi, lo
		}
		if k := math.Ceil(hi) - 1; k > lo {
			return &TopologyError{Axis: ax, Line: int(k), Reason: msgOddCrossings}
		}
	}
	return nil
}

func reverseVertices(r []vertex) {
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
}

// cellRange returns the range of cells covered by the index-space bounding
// box of ring r.
func cellRange(r []vertex) (i0, i1, j0, j1 int) {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, v := range r {
		minX, maxX = math.Min(minX, v.g.X), math.Max(maxX, v.g.X)
		minY, maxY = math.Min(minY, v.g.Y), math.Max(maxY, v.g.Y)
	}
	i0, j0 = int(math.Floor(minX)), int(math.Floor(minY))
	i1, j1 = int(math.Ceil(maxX))-1, int(math.Ceil(maxY))-1
	if i1 < i0 {
		i1 = i0
	}
	if j1 < j0 {
		j1 = j0
	}
	return
}

// ringEdge is a polygon edge stored in the edge index. Because every ring
// has grid line crossings inserted, each edge lies within one closed cell.
// The embedded line holds the end points in index space.
type ringEdge struct {
	geom.LineString
	ring int
	a, b vertex
	box  *geom.Bounds
}

func (e *ringEdge) Bounds() *geom.Bounds { return e.box }

func newRingEdge(ring int, a, b vertex) *ringEdge {
	box := geom.NewBoundsPoint(a.g)
	box.Extend(geom.NewBoundsPoint(b.g))
	return &ringEdge{LineString: geom.LineString{a.g, b.g}, ring: ring, a: a, b: b, box: box}
}

// rowCrossing is a point where an edge crosses the center line of a row.
type rowCrossing struct {
	x    float64
	ring int
}

// SplitPolygon splits p into pieces that each lie within one closed grid
// cell, by clipping p to each cell it overlaps. Holes are supported, and a
// cell can contain several pieces when p enters it more than once. Pieces
// without area are dropped. Cells are visited row by row and only cells
// within the bounding box of p are considered. A polygon that already lies
// within one cell is returned unchanged.
func (g *GridDefinition) SplitPolygon(p geom.Polygon) ([]geom.Polygon, error) {
	rings, err := g.prepareRings("split polygon", p, true)
	if err != nil {
		return nil, err
	}
	i0, i1, j0, j1 := cellRange(rings[0])
	if i0 == i1 && j0 == j1 {
		return []geom.Polygon{copyPolygon(p)}, nil
	}

	index := rtree.NewTree(25, 50)
	for ri, r := range rings {
		for k, a := range r {
			b := r[(k+1)%len(r)]
			index.Insert(newRingEdge(ri, a, b))
		}
	}

	var out []geom.Polygon
	for j := j0; j <= j1; j++ {
		fj := float64(j)
		row := &geom.Bounds{
			Min: geom.Point{X: float64(i0), Y: fj},
			Max: geom.Point{X: float64(i1 + 1), Y: fj + 1},
		}
		crossed := make(map[int]bool)        // cells whose interior an edge passes through
		touched := make(map[int]map[int]bool) // rings with an edge touching each cell
		var center []rowCrossing
		yc := fj + 0.5
		for _, s := range index.SearchIntersect(row) {
			e := s.(*ringEdge)
			if e.box.Max.Y < fj || e.box.Min.Y > fj+1 {
				continue
			}
			m := midpoint(e.a.g, e.b.g)
			if fm := math.Floor(m.X); m.Y > fj && m.Y < fj+1 && m.X != fm {
				crossed[int(fm)] = true
			}
			for i := int(math.Ceil(e.box.Min.X)) - 1; i <= int(math.Floor(e.box.Max.X)); i++ {
				if i < i0 || i > i1 {
					continue
				}
				if touched[i] == nil {
					touched[i] = make(map[int]bool)
				}
				touched[i][e.ring] = true
			}
			if (e.a.g.Y < yc) != (e.b.g.Y < yc) {
				x := e.a.g.X + (yc-e.a.g.Y)*(e.b.g.X-e.a.g.X)/(e.b.g.Y-e.a.g.Y)
				center = append(center, rowCrossing{x: x, ring: e.ring})
			}
		}
		sort.Slice(center, func(a, b int) bool { return center[a].x < center[b].x })

		// inside reports whether the center of cell i is inside ring ri,
		// or inside the polygon if ri < 0.
		inside := func(i, ri int) bool {
			xc := float64(i) + 0.5
			n := 0
			for _, c := range center {
				if c.x >= xc {
					break
				}
				if ri < 0 || c.ring == ri {
					n++
				}
			}
			return n%2 == 1
		}

		strips := make([][]vertex, len(rings))
		stripDone := make([]bool, len(rings))
		for i := i0; i <= i1; i++ {
			if !crossed[i] {
				if inside(i, -1) {
					out = append(out, g.CellBounds(CellIndex{I: i, J: j}))
				}
				continue
			}
			fi := float64(i)
			var clipped [][]vertex
			for ri, r := range rings {
				if touched[i][ri] {
					if !stripDone[ri] {
						strips[ri] = g.clipBand(r, Horizontal, fj, fj+1)
						stripDone[ri] = true
					}
					if c := g.clipBand(strips[ri], Vertical, fi, fi+1); len(c) > 0 {
						clipped = append(clipped, c)
					}
				} else if inside(i, ri) {
					clipped = append(clipped, g.cellRing(i, j, ri > 0))
				}
			}
			pieces, err := g.cellPieces(clipped, i, j)
			if err != nil {
				return nil, err
			}
			out = append(out, pieces...)
		}
	}
	return out, nil
}

// cellRing returns the open index-space ring around cell (i, j),
// counter-clockwise unless cw is true.
func (g *GridDefinition) cellRing(i, j int, cw bool) []vertex {
	fi, fj := float64(i), float64(j)
	r := []vertex{
		g.indexVertex(geom.Point{X: fi, Y: fj}),
		g.indexVertex(geom.Point{X: fi + 1, Y: fj}),
		g.indexVertex(geom.Point{X: fi + 1, Y: fj + 1}),
		g.indexVertex(geom.Point{X: fi, Y: fj + 1}),
	}
	if cw {
		reverseVertices(r)
	}
	return r
}

func copyPolygon(p geom.Polygon) geom.Polygon {
	o := make(geom.Polygon, len(p))
	for k, r := range p {
		o[k] = copyPoints(r)
	}
	return o
}
