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
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/ctessum/sparse"
	"github.com/spatialmodel/gridsplit"
)

// asciiHeader holds the header of an ESRI ASCII grid.
type asciiHeader struct {
	crs          string
	ncols, nrows int
	xll, yll     float64 // lower left corner
	cellSize     float64
	noData       float64
}

func (h *asciiHeader) CRS() string               { return h.crs }
func (h *asciiHeader) Dims() (width, height int) { return h.ncols, h.nrows }

// Transform is north-up: row 0 is the top of the grid.
func (h *asciiHeader) Transform() [6]float64 {
	return [6]float64{h.cellSize, 0, h.xll, 0, -h.cellSize, h.yll + float64(h.nrows)*h.cellSize}
}

// ReadASCIIGrid reads an ESRI ASCII grid. The format has no place for a
// coordinate reference, so the grid gets crs.
func ReadASCIIGrid(r io.Reader, crs string) (*Raster, error) {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 64*1024), 1024*1024*1024)
	s.Split(bufio.ScanWords)

	h := &asciiHeader{crs: crs, noData: math.NaN()}
	var (
		have      = make(map[string]bool)
		xCenter   bool
		yCenter   bool
		firstData string
	)
	for firstData == "" && s.Scan() {
		key := strings.ToLower(s.Text())
		if _, err := strconv.ParseFloat(key, 64); err == nil {
			firstData = key
			break
		}
		if !s.Scan() {
			return nil, fmt.Errorf("rasterio: ASCII grid header %q has no value", key)
		}
		val := s.Text()
		var err error
		switch key {
		case "ncols":
			h.ncols, err = strconv.Atoi(val)
		case "nrows":
			h.nrows, err = strconv.Atoi(val)
		case "xllcorner", "xllcenter":
			h.xll, err = strconv.ParseFloat(val, 64)
			xCenter = key == "xllcenter"
			key = "xll"
		case "yllcorner", "yllcenter":
			h.yll, err = strconv.ParseFloat(val, 64)
			yCenter = key == "yllcenter"
			key = "yll"
		case "cellsize":
			h.cellSize, err = strconv.ParseFloat(val, 64)
		case "nodata_value":
			h.noData, err = strconv.ParseFloat(val, 64)
		default:
			return nil, fmt.Errorf("rasterio: invalid ASCII grid header %q", key)
		}
		if err != nil {
			return nil, fmt.Errorf("rasterio: ASCII grid header %s: %v", key, err)
		}
		have[key] = true
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("rasterio: reading ASCII grid: %v", err)
	}
	for _, key := range []string{"ncols", "nrows", "xll", "yll", "cellsize"} {
		if !have[key] {
			return nil, fmt.Errorf("rasterio: ASCII grid is missing header %s", key)
		}
	}
	if xCenter {
		h.xll -= h.cellSize / 2
	}
	if yCenter {
		h.yll -= h.cellSize / 2
	}

	grid, err := gridsplit.GridFromRaster(h)
	if err != nil {
		return nil, fmt.Errorf("rasterio: ASCII grid: %v", err)
	}
	data := sparse.ZerosDense(h.nrows, h.ncols)
	n := 0
	next := func() (string, bool) {
		if firstData != "" {
			v := firstData
			firstData = ""
			return v, true
		}
		if s.Scan() {
			return s.Text(), true
		}
		return "", false
	}
	for {
		tok, ok := next()
		if !ok {
			break
		}
		if n == len(data.Elements) {
			return nil, fmt.Errorf("rasterio: ASCII grid has more than %d values", n)
		}
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return nil, fmt.Errorf("rasterio: ASCII grid value %d: %v", n, err)
		}
		data.Elements[n] = v
		n++
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("rasterio: reading ASCII grid: %v", err)
	}
	if n != len(data.Elements) {
		return nil, fmt.Errorf("rasterio: ASCII grid has %d values but should have %dx%d", n, h.nrows, h.ncols)
	}
	return &Raster{Grid: grid, Data: data, NoData: h.noData}, nil
}
