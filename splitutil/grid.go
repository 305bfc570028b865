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
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/gridsplit"
	"github.com/spatialmodel/gridsplit/vectorio"
	"github.com/spf13/cobra"
)

// Grid creates a grid covering the extent (xmin, ymin), (xmax, ymax) with
// cells of the given size, and saves it to outputFile. Files ending in
// .toml hold a grid definition for use with Split, and shapefiles or
// GeoJSON files hold the outlines of the cells with their indices.
func Grid(cmd *cobra.Command, crs string, xmin, ymin, xmax, ymax, cellWidth, cellHeight float64, outputFile string) error {
	g, err := gridsplit.GridFromExtent(crs, xmin, ymin, xmax, ymax, cellWidth, cellHeight)
	if err != nil {
		return err
	}
	w, h := g.Dims()

	if strings.ToLower(filepath.Ext(outputFile)) == ".toml" {
		f, err := os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("gridsplit: creating grid definition file: %v", err)
		}
		if err = g.Write(f); err != nil {
			f.Close()
			return err
		}
		if err = f.Close(); err != nil {
			return err
		}
	} else {
		kind, err := outputKind(outputFile)
		if err != nil {
			return fmt.Errorf("gridsplit: grid output file %s must end in .toml, .shp, .geojson or .json", outputFile)
		}
		cols := []vectorio.Column{{Name: "i", Type: vectorio.Int}, {Name: "j", Type: vectorio.Int}}
		recs := make([]vectorio.Record, 0, w*h)
		for j := 0; j < h; j++ {
			for i := 0; i < w; i++ {
				recs = append(recs, vectorio.Record{
					Geom:   g.CellBounds(gridsplit.CellIndex{I: i, J: j}),
					Values: []interface{}{i, j},
				})
			}
		}
		var prj string
		if crs != "" {
			if _, err := vectorio.ParseCRS(crs); err == nil {
				prj = crs
			}
		}
		if err = writeRecords(outputFile, kind, prj, cols, recs); err != nil {
			return err
		}
	}
	textLogger(cmd.OutOrStdout()).WithFields(logrus.Fields{
		"width":  w,
		"height": h,
		"file":   outputFile,
	}).Info("gridsplit: grid created")
	return nil
}
