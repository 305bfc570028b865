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

package vectorio

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/geojson"
	"github.com/ctessum/geom/encoding/shp"
	goshp "github.com/jonas-p/go-shp"
	"github.com/spatialmodel/gridsplit"
)

// ColumnType is the type of the values in an output column.
type ColumnType int

const (
	String ColumnType = iota
	Int
	Float
)

// Column is an output attribute.
type Column struct {
	Name string
	Type ColumnType
}

// Record is one output feature. Values holds one value per column: a
// string, int or float64 according to the column type.
type Record struct {
	Geom   geom.Geom
	Values []interface{}
}

var shpName = regexp.MustCompile(`^[A-Za-z]\w*$`)

// CheckShapefileNames checks that the column names can be used as
// shapefile attribute names, which are limited to 10 characters.
func CheckShapefileNames(cols []Column) error {
	seen := make(map[string]bool)
	for _, c := range cols {
		if len(c.Name) > 10 {
			return fmt.Errorf("vectorio: column name %s is %d characters long but shapefile names can be at most 10",
				c.Name, len(c.Name))
		}
		if !shpName.MatchString(c.Name) {
			return fmt.Errorf("vectorio: column name %q must start with a letter and contain only letters, numbers and underscores",
				c.Name)
		}
		k := strings.ToLower(c.Name)
		if seen[k] {
			return fmt.Errorf("vectorio: repeated column name %s", c.Name)
		}
		seen[k] = true
	}
	return nil
}

// shapeType returns the shapefile type for geometries of kind k, and a
// function that converts them to a form the encoder accepts.
func shapeType(k gridsplit.Kind) (goshp.ShapeType, func(geom.Geom) geom.Geom, error) {
	switch k {
	case gridsplit.KindPoint:
		return goshp.POINT, func(g geom.Geom) geom.Geom { return g }, nil
	case gridsplit.KindLineString:
		return goshp.POLYLINE, func(g geom.Geom) geom.Geom {
			return geom.MultiLineString{g.(geom.LineString)}
		}, nil
	case gridsplit.KindPolygon:
		// Shapefile outer rings are clockwise.
		return goshp.POLYGON, func(g geom.Geom) geom.Geom {
			p := g.(geom.Polygon)
			o := make(geom.Polygon, len(p))
			for i, r := range p {
				o[i] = make([]geom.Point, len(r))
				for j, pt := range r {
					o[i][len(r)-1-j] = pt
				}
			}
			return o
		}, nil
	default:
		return goshp.NULL, nil, fmt.Errorf("vectorio: unsupported geometry kind %v", k)
	}
}

// WriteShapefile writes recs to a shapefile at path. All of the records
// must have the same kind of geometry. If prj is not empty it is written
// as the projection file.
func WriteShapefile(path, prj string, cols []Column, recs []Record) error {
	if err := CheckShapefileNames(cols); err != nil {
		return err
	}
	kind := gridsplit.KindPolygon
	if len(recs) > 0 {
		kind = gridsplit.KindOf(recs[0].Geom)
	}
	for _, r := range recs {
		if k := gridsplit.KindOf(r.Geom); k != kind {
			return fmt.Errorf("vectorio: shapefile %s can't hold both %v and %v geometries", path, kind, k)
		}
		if len(r.Values) != len(cols) {
			return fmt.Errorf("vectorio: record has %d values but there are %d columns", len(r.Values), len(cols))
		}
	}
	t, toShp, err := shapeType(kind)
	if err != nil {
		return err
	}

	fields := make([]goshp.Field, len(cols))
	for i, c := range cols {
		switch c.Type {
		case String:
			n := 1
			for _, r := range recs {
				if l := len(fmt.Sprint(r.Values[i])); l > n {
					n = l
				}
			}
			if n > 254 {
				n = 254
			}
			fields[i] = goshp.StringField(c.Name, uint8(n))
		case Int:
			fields[i] = goshp.NumberField(c.Name, 10)
		default:
			fields[i] = goshp.FloatField(c.Name, 20, 8)
		}
	}

	// remove extension and replace it with .shp
	fileBase := strings.TrimSuffix(path, filepath.Ext(path))
	e, err := shp.NewEncoderFromFields(fileBase+".shp", t, fields...)
	if err != nil {
		return fmt.Errorf("vectorio: creating output shapefile: %v", err)
	}
	for _, r := range recs {
		vals := make([]interface{}, len(r.Values))
		for i, v := range r.Values {
			if cols[i].Type == String {
				v = fmt.Sprint(v)
			}
			vals[i] = v
		}
		if err = e.EncodeFields(toShp(r.Geom), vals...); err != nil {
			e.Close()
			return fmt.Errorf("vectorio: writing output shapefile: %v", err)
		}
	}
	e.Close()

	if prj == "" {
		return nil
	}
	f, err := os.Create(fileBase + ".prj")
	if err != nil {
		return fmt.Errorf("vectorio: creating output prj file: %v", err)
	}
	if _, err = fmt.Fprint(f, prj); err != nil {
		f.Close()
		return fmt.Errorf("vectorio: writing output prj file: %v", err)
	}
	return f.Close()
}

type geoJSONFeature struct {
	Type       string                 `json:"type"`
	Geometry   *geojson.Geometry      `json:"geometry"`
	Properties map[string]interface{} `json:"properties"`
}

type geoJSONCollection struct {
	Type     string            `json:"type"`
	Features []*geoJSONFeature `json:"features"`
}

// WriteGeoJSON writes recs to w as a GeoJSON feature collection. Float
// values that are NaN or infinite are written as null.
func WriteGeoJSON(w io.Writer, cols []Column, recs []Record) error {
	out := &geoJSONCollection{Type: "FeatureCollection", Features: make([]*geoJSONFeature, len(recs))}
	for i, r := range recs {
		if len(r.Values) != len(cols) {
			return fmt.Errorf("vectorio: record has %d values but there are %d columns", len(r.Values), len(cols))
		}
		x := &geoJSONFeature{Type: "Feature", Properties: make(map[string]interface{}, len(cols))}
		var err error
		x.Geometry, err = geojson.ToGeoJSON(r.Geom)
		if err != nil {
			return fmt.Errorf("vectorio: converting record %d to GeoJSON: %v", i, err)
		}
		for k, c := range cols {
			v := r.Values[k]
			if f, ok := v.(float64); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
				v = nil
			}
			x.Properties[c.Name] = v
		}
		out.Features[i] = x
	}
	if err := json.NewEncoder(w).Encode(out); err != nil {
		return fmt.Errorf("vectorio: writing GeoJSON: %v", err)
	}
	return nil
}
