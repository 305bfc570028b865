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

package rasterio

import (
	"fmt"
	"math"
	"sort"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
	"github.com/spatialmodel/gridsplit"
)

// ReadNetCDF reads variable from a NetCDF file. The file describes its grid
// with the global attributes x0, y0, dx, dy (float64) and nx, ny (int32),
// and optionally crs (string). The variable must have dimensions [ny, nx].
// A _FillValue attribute on the variable is returned as the raster's
// NoData value.
func ReadNetCDF(rw cdf.ReaderWriterAt, variable string) (*Raster, error) {
	f, err := cdf.Open(rw)
	if err != nil {
		return nil, fmt.Errorf("rasterio.ReadNetCDF: %v", err)
	}
	var found bool
	for _, v := range f.Header.Variables() {
		if v == variable {
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("rasterio.ReadNetCDF: file has no variable %q", variable)
	}

	getFloat := func(name string) (float64, error) {
		if v, ok := f.Header.GetAttribute("", name).([]float64); ok && len(v) > 0 {
			return v[0], nil
		}
		return 0, fmt.Errorf("rasterio.ReadNetCDF: missing float64 attribute %q", name)
	}
	getInt := func(name string) (int, error) {
		if v, ok := f.Header.GetAttribute("", name).([]int32); ok && len(v) > 0 {
			return int(v[0]), nil
		}
		return 0, fmt.Errorf("rasterio.ReadNetCDF: missing int32 attribute %q", name)
	}
	var t [4]float64
	for k, name := range []string{"x0", "y0", "dx", "dy"} {
		if t[k], err = getFloat(name); err != nil {
			return nil, err
		}
	}
	nx, err := getInt("nx")
	if err != nil {
		return nil, err
	}
	ny, err := getInt("ny")
	if err != nil {
		return nil, err
	}
	crs, _ := f.Header.GetAttribute("", "crs").(string)

	x0, y0, dx, dy := t[0], t[1], t[2], t[3]
	grid, err := gridsplit.NewGridDefinition(crs, nx, ny, []float64{dx, 0, x0, 0, dy, y0})
	if err != nil {
		return nil, fmt.Errorf("rasterio.ReadNetCDF: %v", err)
	}

	dims := f.Header.Lengths(variable)
	if len(dims) != 2 || dims[0] != ny || dims[1] != nx {
		return nil, fmt.Errorf("rasterio.ReadNetCDF: variable %q has dimensions %v but the grid is [%d %d]",
			variable, dims, ny, nx)
	}
	data := sparse.ZerosDense(ny, nx)
	r := f.Reader(variable, nil, nil)
	switch tmp := r.Zero(len(data.Elements)).(type) {
	case []float32:
		if _, err = r.Read(tmp); err != nil {
			return nil, fmt.Errorf("rasterio.ReadNetCDF: reading %q: %v", variable, err)
		}
		for i, v := range tmp {
			data.Elements[i] = float64(v)
		}
	case []float64:
		if _, err = r.Read(tmp); err != nil {
			return nil, fmt.Errorf("rasterio.ReadNetCDF: reading %q: %v", variable, err)
		}
		copy(data.Elements, tmp)
	default:
		return nil, fmt.Errorf("rasterio.ReadNetCDF: variable %q has type %T; only float and double are supported",
			variable, tmp)
	}

	o := &Raster{Name: variable, Grid: grid, Data: data, NoData: math.NaN()}
	switch fv := f.Header.GetAttribute(variable, "_FillValue").(type) {
	case []float32:
		if len(fv) > 0 {
			o.NoData = float64(fv[0])
		}
	case []float64:
		if len(fv) > 0 {
			o.NoData = fv[0]
		}
	}
	return o, nil
}

// WriteNetCDF writes rasters to w in the format read by ReadNetCDF. All of
// the rasters must share one grid, and the grid must be axis-aligned.
func WriteNetCDF(w cdf.ReaderWriterAt, rasters ...*Raster) error {
	if len(rasters) == 0 {
		return fmt.Errorf("rasterio.WriteNetCDF: no rasters to write")
	}
	grid := rasters[0].Grid
	for _, r := range rasters {
		if err := r.check(); err != nil {
			return err
		}
		if !r.Grid.Equal(grid) {
			return fmt.Errorf("rasterio.WriteNetCDF: raster %q is not on the same grid as raster %q",
				r.Name, rasters[0].Name)
		}
	}
	t := grid.Transform()
	if t[1] != 0 || t[3] != 0 {
		return fmt.Errorf("rasterio.WriteNetCDF: grid %v is rotated", grid)
	}
	nx, ny := grid.Dims()

	h := cdf.NewHeader([]string{"y", "x"}, []int{ny, nx})
	h.AddAttribute("", "comment", "gridsplit raster file")
	h.AddAttribute("", "x0", []float64{t[2]})
	h.AddAttribute("", "y0", []float64{t[5]})
	h.AddAttribute("", "dx", []float64{t[0]})
	h.AddAttribute("", "dy", []float64{t[4]})
	h.AddAttribute("", "nx", []int32{int32(nx)})
	h.AddAttribute("", "ny", []int32{int32(ny)})
	if grid.CRS() != "" {
		h.AddAttribute("", "crs", grid.CRS())
	}

	// Sort the names so they write in the same order every time.
	byName := make(map[string]*Raster, len(rasters))
	names := make([]string, 0, len(rasters))
	for _, r := range rasters {
		if _, ok := byName[r.Name]; ok {
			return fmt.Errorf("rasterio.WriteNetCDF: repeated raster name %q", r.Name)
		}
		byName[r.Name] = r
		names = append(names, r.Name)
	}
	sort.Strings(names)

	for _, name := range names {
		h.AddVariable(name, []string{"y", "x"}, []float32{0})
		if r := byName[name]; !math.IsNaN(r.NoData) {
			h.AddAttribute(name, "_FillValue", []float32{float32(r.NoData)})
		}
	}
	h.Define()

	f, err := cdf.Create(w, h)
	if err != nil {
		return fmt.Errorf("rasterio.WriteNetCDF: %v", err)
	}
	for _, name := range names {
		data := byName[name].Data
		data32 := make([]float32, len(data.Elements))
		for i, e := range data.Elements {
			data32[i] = float32(e)
		}
		if _, err = f.Writer(name, make([]int, 2), f.Header.Lengths(name)).Write(data32); err != nil {
			return fmt.Errorf("rasterio.WriteNetCDF: writing variable %s: %v", name, err)
		}
	}
	return nil
}
