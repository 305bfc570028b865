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

// Package vectorio reads features from and writes split fragments to
// vector files.
package vectorio

import (
	"fmt"
	"io/ioutil"
	"os"
	"strings"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/shp"
	"github.com/ctessum/geom/op"
	"github.com/ctessum/geom/proj"
	"github.com/spatialmodel/gridsplit"
)

// FeatureSet holds the features read from a vector file.
type FeatureSet struct {
	Features []gridsplit.Feature

	// Fields are the attribute names, in file order.
	Fields []string

	// SR is the spatial reference of the features, or nil if the file
	// does not have one that can be parsed. PRJ is its text as read from
	// the file.
	SR  *proj.SR
	PRJ string

	// Skipped is the number of records with no geometry.
	Skipped int
}

// ReadShapefile reads all of the records in the shapefile at path.
// Attribute values are kept as strings, without the padding of the
// attribute table. Polygon rings are returned with counter-clockwise outer
// rings, and records with more than one outer ring as multi-polygons.
func ReadShapefile(path string) (*FeatureSet, error) {
	d, err := shp.NewDecoder(path)
	if err != nil {
		return nil, fmt.Errorf("vectorio: opening shapefile: %v", err)
	}
	defer d.Close()

	o := new(FeatureSet)
	for _, f := range d.Fields() {
		o.Fields = append(o.Fields, strings.TrimRight(string(f.Name[:]), "\x00"))
	}

	prjName := strings.TrimSuffix(path, ".shp") + ".prj"
	b, err := ioutil.ReadFile(prjName)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("vectorio: reading shapefile projection: %v", err)
	default:
		o.PRJ = string(b)
		// Projections proj can't parse are kept as text only.
		o.SR, _ = ParseCRS(o.PRJ)
	}

	for {
		g, fields, more := d.DecodeRowFields(o.Fields...)
		if !more {
			break
		}
		if g == nil {
			o.Skipped++
			continue
		}
		if p, ok := g.(geom.Polygon); ok {
			g = outerRings(p)
		}
		attrs := make(map[string]interface{}, len(fields))
		for k, v := range fields {
			attrs[k] = strings.Trim(v, " \x00")
		}
		o.Features = append(o.Features, gridsplit.Feature{Geom: g, Attributes: attrs})
	}
	if err = d.Error(); err != nil {
		return nil, fmt.Errorf("vectorio: reading shapefile %s: %v", path, err)
	}
	return o, nil
}

// outerRings makes outer rings counter-clockwise and holes clockwise, and
// breaks a polygon with several outer rings into a multi-polygon, assigning
// each hole to the outer ring that contains it.
func outerRings(p geom.Polygon) geom.Geom {
	for _, r := range p {
		if len(r) < 4 {
			return p
		}
	}
	if err := op.FixOrientation(p); err != nil {
		return p
	}
	if len(p) < 2 {
		return p
	}
	var outers, holes [][]geom.Point
	for _, r := range p {
		if ringArea(r) > 0 {
			outers = append(outers, r)
		} else {
			holes = append(holes, r)
		}
	}
	if len(outers) <= 1 {
		return p
	}
	mp := make(geom.MultiPolygon, len(outers))
	for i, r := range outers {
		mp[i] = geom.Polygon{r}
	}
	for _, h := range holes {
		for i := range mp {
			if h[0].Within(geom.Polygon{mp[i][0]}) != geom.Outside {
				mp[i] = append(mp[i], h)
				break
			}
		}
	}
	return mp
}

// ringArea returns twice the signed area of a ring, positive for
// counter-clockwise rings.
func ringArea(r []geom.Point) float64 {
	var a float64
	for i := range r {
		p, q := r[i], r[(i+1)%len(r)]
		a += p.X*q.Y - q.X*p.Y
	}
	return a
}

// ParseCRS parses a coordinate reference in WKT or PROJ.4 format.
func ParseCRS(s string) (*proj.SR, error) {
	sr, err := proj.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("vectorio: parsing coordinate reference: %v", err)
	}
	return sr, nil
}

// SameCRS returns whether a and b describe the same coordinate reference.
// A nil reference only matches another nil reference.
func SameCRS(a, b *proj.SR) (same bool) {
	if a == nil || b == nil {
		return a == b
	}
	// Equal panics when one reference is missing parts the other has.
	defer func() {
		if recover() != nil {
			same = false
		}
	}()
	const ulp = 1000000
	return a.Equal(b, ulp)
}
