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

	"github.com/ctessum/sparse"
)

// NoData is the value given to fragments that are outside of the grid.
var NoData = math.NaN()

// Band is one layer of raster values, stored as a dense array with shape
// [height, width] so that the value for cell (i, j) is at Data.Get(j, i).
type Band struct {
	Name string
	Grid int // index of the grid the band is defined on
	Data *sparse.DenseArray
}

// RasterValues looks up the value in data for each cell. Cells equal to
// OutOfBounds get NoData. Any other cell outside of the shape of data
// is an error. Values are returned as stored, including any no-data value
// used by the raster itself. data is not modified.
func RasterValues(cells []CellIndex, data *sparse.DenseArray) ([]float64, error) {
	if data == nil || len(data.Shape) != 2 {
		return nil, fmt.Errorf("gridsplit: raster values: raster must be two-dimensional")
	}
	ny, nx := data.Shape[0], data.Shape[1]
	o := make([]float64, len(cells))
	for k, c := range cells {
		if c == OutOfBounds {
			o[k] = NoData
			continue
		}
		if c.I < 0 || c.I >= nx || c.J < 0 || c.J >= ny {
			return nil, &OutOfBoundsError{Cell: c, Width: nx, Height: ny}
		}
		o[k] = data.Get(c.J, c.I)
	}
	return o, nil
}
