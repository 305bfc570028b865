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

// Package rasterio reads and writes single-band rasters: gridded values
// together with the grid definition they are stored on.
package rasterio

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ctessum/sparse"
	"github.com/spatialmodel/gridsplit"
)

// Raster is one band of gridded data.
type Raster struct {
	Name string
	Grid *gridsplit.GridDefinition

	// Data has shape [height, width]; the value of cell (i, j) is
	// Data.Get(j, i).
	Data *sparse.DenseArray

	// NoData is the value the source uses for missing data. It is NaN
	// if the source does not define one.
	NoData float64
}

// Band returns r as a band defined on grid number g of a Splitter.
func (r *Raster) Band(g int) gridsplit.Band {
	return gridsplit.Band{Name: r.Name, Grid: g, Data: r.Data}
}

// check makes sure the data matches the grid.
func (r *Raster) check() error {
	if r.Grid == nil || r.Data == nil {
		return fmt.Errorf("rasterio: raster %q has no grid or data", r.Name)
	}
	w, h := r.Grid.Dims()
	if len(r.Data.Shape) != 2 || r.Data.Shape[0] != h || r.Data.Shape[1] != w {
		return fmt.Errorf("rasterio: raster %q has shape %v but its grid is %dx%d", r.Name, r.Data.Shape, w, h)
	}
	return nil
}

// Open reads a raster from the file at path, choosing the format from the
// file extension. NetCDF files (".nc") must be given as "file.nc:variable".
// ESRI ASCII grids (".asc") do not store a coordinate reference, so crs is
// used for them; for NetCDF files it is only used if the file has no "crs"
// attribute.
func Open(path, crs string) (*Raster, error) {
	fname, variable := path, ""
	if i := strings.LastIndex(path, ":"); i > 0 && strings.ToLower(filepath.Ext(path[:i])) == ".nc" {
		fname, variable = path[:i], path[i+1:]
	}
	switch strings.ToLower(filepath.Ext(fname)) {
	case ".nc":
		if variable == "" {
			return nil, fmt.Errorf("rasterio: NetCDF raster %s must be given as file.nc:variable", path)
		}
		f, err := os.Open(fname)
		if err != nil {
			return nil, fmt.Errorf("rasterio: opening raster: %v", err)
		}
		defer f.Close()
		r, err := ReadNetCDF(f, variable)
		if err != nil {
			return nil, err
		}
		if r.Grid.CRS() == "" && crs != "" {
			t := r.Grid.Transform()
			w, h := r.Grid.Dims()
			if r.Grid, err = gridsplit.NewGridDefinition(crs, w, h, t[:]); err != nil {
				return nil, err
			}
		}
		return r, nil
	case ".asc":
		f, err := os.Open(fname)
		if err != nil {
			return nil, fmt.Errorf("rasterio: opening raster: %v", err)
		}
		defer f.Close()
		r, err := ReadASCIIGrid(f, crs)
		if err != nil {
			return nil, fmt.Errorf("rasterio: reading %s: %v", fname, err)
		}
		r.Name = strings.TrimSuffix(filepath.Base(fname), filepath.Ext(fname))
		return r, nil
	default:
		return nil, fmt.Errorf("rasterio: unsupported raster format for file %s", path)
	}
}
