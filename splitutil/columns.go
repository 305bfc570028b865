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

package splitutil

import (
	"fmt"

	"github.com/spatialmodel/gridsplit"
	"github.com/spatialmodel/gridsplit/vectorio"
)

// columns describes the output columns for split fragments: the feature
// attributes, the feature and split numbers, the cell in every grid, the
// value of every band and any output variables.
type columns struct {
	attrs   []string
	split   bool
	is, js  []string
	bands   []gridsplit.Band
	derived []outputVariable
	cols    []vectorio.Column
}

// cellColumnNames returns the names of the cell index columns for n grids.
func cellColumnNames(n int) (is, js []string) {
	if n == 1 {
		return []string{"index_i"}, []string{"index_j"}
	}
	for g := 0; g < n; g++ {
		is = append(is, fmt.Sprintf("i_%d", g))
		js = append(js, fmt.Sprintf("j_%d", g))
	}
	return is, js
}

// newColumns returns the output columns for fragments of features with the
// given attributes. The feature and split columns are only included if
// split is true.
func newColumns(attrs []string, split bool, ngrids int, bands []gridsplit.Band, outputVars map[string]string) (*columns, error) {
	c := &columns{attrs: attrs, split: split, bands: bands}
	c.is, c.js = cellColumnNames(ngrids)

	for _, a := range attrs {
		c.cols = append(c.cols, vectorio.Column{Name: a, Type: vectorio.String})
	}
	if split {
		c.cols = append(c.cols, vectorio.Column{Name: "feature", Type: vectorio.Int}, vectorio.Column{Name: "split", Type: vectorio.Int})
	}
	for g := range c.is {
		c.cols = append(c.cols, vectorio.Column{Name: c.is[g], Type: vectorio.Int}, vectorio.Column{Name: c.js[g], Type: vectorio.Int})
	}
	for _, b := range bands {
		c.cols = append(c.cols, vectorio.Column{Name: b.Name, Type: vectorio.Float})
	}

	params := make(map[string]bool, len(c.cols))
	for _, col := range c.cols {
		params[col.Name] = true
	}
	var err error
	if c.derived, err = newOutputVariables(outputVars, params); err != nil {
		return nil, err
	}
	for _, v := range c.derived {
		c.cols = append(c.cols, vectorio.Column{Name: v.name, Type: vectorio.Float})
	}

	seen := make(map[string]bool, len(c.cols))
	for _, col := range c.cols {
		if seen[col.Name] {
			return nil, fmt.Errorf("gridsplit: there is more than one output column named %s; rename the attribute, raster or output variable", col.Name)
		}
		seen[col.Name] = true
	}
	return c, nil
}

func (c *columns) columns() []vectorio.Column { return c.cols }

// record returns the output record for frag.
func (c *columns) record(frag gridsplit.Fragment) (vectorio.Record, error) {
	vals := make([]interface{}, 0, len(c.cols))
	var params map[string]interface{}
	if len(c.derived) > 0 {
		params = make(map[string]interface{}, len(c.cols))
	}
	add := func(name string, v, param interface{}) {
		vals = append(vals, v)
		if params != nil {
			params[name] = param
		}
	}

	for _, a := range c.attrs {
		v, ok := frag.Attributes[a]
		if !ok || v == nil {
			v = ""
		}
		add(a, v, parameterValue(v))
	}
	if c.split {
		add("feature", frag.Feature, float64(frag.Feature))
		add("split", frag.Split, float64(frag.Split))
	}
	for g, cell := range frag.Cells {
		add(c.is[g], cell.I, float64(cell.I))
		add(c.js[g], cell.J, float64(cell.J))
	}
	for b, band := range c.bands {
		add(band.Name, frag.Values[b], frag.Values[b])
	}
	for _, v := range c.derived {
		x, err := v.evaluate(params)
		if err != nil {
			return vectorio.Record{}, fmt.Errorf("gridsplit: feature %d split %d: %v", frag.Feature, frag.Split, err)
		}
		vals = append(vals, x)
	}
	return vectorio.Record{Geom: frag.Geom, Values: vals}, nil
}
