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

	"github.com/ctessum/geom"
)

// Kind is the kind of a single-part geometry.
type Kind int

// These are the kinds of geometry that can be split.
const (
	KindUnsupported Kind = iota
	KindPoint
	KindLineString
	KindPolygon
)

func (k Kind) String() string {
	switch k {
	case KindPoint:
		return "Point"
	case KindLineString:
		return "LineString"
	case KindPolygon:
		return "Polygon"
	default:
		return "unsupported geometry"
	}
}

// KindOf returns the kind of g. Multi-part geometries are KindUnsupported;
// use Explode to break them into single parts first.
func KindOf(g geom.Geom) Kind {
	switch g.(type) {
	case geom.Point:
		return KindPoint
	case geom.LineString:
		return KindLineString
	case geom.Polygon:
		return KindPolygon
	default:
		return KindUnsupported
	}
}

// Explode breaks a multi-part geometry into its parts. Single-part
// geometries are returned as the only element of the result.
// Line parts are merged where their ends meet before they are exploded.
func Explode(g geom.Geom) ([]geom.Geom, error) {
	switch t := g.(type) {
	case geom.Point, geom.LineString, geom.Polygon:
		return []geom.Geom{g}, nil
	case geom.MultiPoint:
		o := make([]geom.Geom, len(t))
		for i, p := range t {
			o[i] = p
		}
		return o, nil
	case geom.MultiLineString:
		merged := MergeLines(t)
		o := make([]geom.Geom, len(merged))
		for i, l := range merged {
			o[i] = l
		}
		return o, nil
	case geom.MultiPolygon:
		o := make([]geom.Geom, len(t))
		for i, p := range t {
			o[i] = p
		}
		return o, nil
	case nil:
		return nil, invalidGeometry("explode", KindUnsupported, "missing geometry")
	default:
		return nil, invalidGeometry("explode", KindUnsupported, "unsupported geometry type %T", g)
	}
}

// MergeLines joins the lines in ml at end points shared by exactly two
// lines, so a road digitized as several touching parts is walked as one
// line. Lines are reversed where needed to join them. Lines that do not
// touch any other line are returned unchanged.
func MergeLines(ml geom.MultiLineString) geom.MultiLineString {
	degree := make(map[geom.Point]int)
	ends := make(map[geom.Point][]int)
	for i, l := range ml {
		if len(l) < 2 {
			continue
		}
		for _, p := range []geom.Point{l[0], l[len(l)-1]} {
			degree[p]++
			ends[p] = append(ends[p], i)
		}
	}
	used := make([]bool, len(ml))
	// next finds an unused line that can be joined at p.
	next := func(p geom.Point) int {
		if degree[p] != 2 {
			return -1
		}
		for _, i := range ends[p] {
			if !used[i] {
				return i
			}
		}
		return -1
	}
	var o geom.MultiLineString
	for i, l := range ml {
		if used[i] {
			continue
		}
		used[i] = true
		if len(l) < 2 {
			o = append(o, copyPoints(l))
			continue
		}
		line := copyPoints(l)
		// Extend forward from the last point.
		for {
			k := next(line[len(line)-1])
			if k < 0 {
				break
			}
			used[k] = true
			add := copyPoints(ml[k])
			if add[0] != line[len(line)-1] {
				reversePoints(add)
			}
			line = append(line, add[1:]...)
		}
		// Extend backward from the first point.
		for {
			k := next(line[0])
			if k < 0 {
				break
			}
			used[k] = true
			add := copyPoints(ml[k])
			if add[len(add)-1] != line[0] {
				reversePoints(add)
			}
			line = append(add[:len(add)-1], line...)
		}
		o = append(o, line)
	}
	return o
}

// Prepare explodes multi-part features into single-part features, each
// carrying a copy of the original attributes. The input is not modified.
func Prepare(features []Feature) ([]Feature, error) {
	o := make([]Feature, 0, len(features))
	for i, f := range features {
		parts, err := Explode(f.Geom)
		if err != nil {
			return nil, fmt.Errorf("gridsplit: preparing feature %d: %w", i, err)
		}
		for _, p := range parts {
			o = append(o, Feature{Geom: p, Attributes: copyAttributes(f.Attributes)})
		}
	}
	return o, nil
}

func copyPoints(l []geom.Point) []geom.Point {
	o := make([]geom.Point, len(l))
	copy(o, l)
	return o
}

func reversePoints(l []geom.Point) {
	for i, j := 0, len(l)-1; i < j; i, j = i+1, j-1 {
		l[i], l[j] = l[j], l[i]
	}
}

func copyAttributes(a map[string]interface{}) map[string]interface{} {
	if a == nil {
		return nil
	}
	o := make(map[string]interface{}, len(a))
	for k, v := range a {
		o[k] = v
	}
	return o
}

// signedArea returns twice the signed area of ring r, which is positive
// when r is counter-clockwise. r may be open or closed.
func signedArea(r []geom.Point) float64 {
	var a float64
	n := len(r)
	for k := 0; k < n; k++ {
		p, q := r[k], r[(k+1)%n]
		a += p.X*q.Y - q.X*p.Y
	}
	return a
}
