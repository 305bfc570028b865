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
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/gridsplit"
	"github.com/spatialmodel/gridsplit/rasterio"
	"github.com/spatialmodel/gridsplit/vectorio"
	"github.com/spf13/cobra"
)

// Split splits the features in a vector file by the cells of one or more
// grids and writes the fragments to a file.
//
// cmd is the command that is running; log messages are written to its
// output as well as to logFile.
//
// vectorFile is the shapefile holding the features to be split.
//
// gridFiles are TOML grid definitions to split by.
//
// rasterFiles are rasters whose values are attached to the fragments, in the
// form accepted by rasterio.Open. Each raster's grid is split by as well,
// unless it is the same as a grid that is already in use.
//
// crs is the coordinate reference given to rasters that do not have one.
//
// strategy and policy specify how polygons are split and how fragments
// outside of a grid are handled. workers is the number of features split at
// once, where 0 means one per processor.
//
// outputVars maps the names of additional output columns to expressions
// to calculate them.
//
// outputFile is the path to the output file, which must end in .shp,
// .geojson or .json.
func Split(cmd *cobra.Command, logFile, vectorFile string, gridFiles, rasterFiles []string, crs string,
	strategy gridsplit.PolygonStrategy, policy gridsplit.BoundsPolicy, workers int,
	outputVars map[string]string, outputFile string) error {

	log, f, err := newLogger(cmd, logFile)
	if err != nil {
		return err
	}
	defer f.Close()

	kind, err := outputKind(outputFile)
	if err != nil {
		return err
	}

	log.WithField("file", vectorFile).Info("gridsplit: reading features")
	fs, err := vectorio.ReadShapefile(vectorFile)
	if err != nil {
		return err
	}
	if fs.Skipped > 0 {
		log.WithField("records", fs.Skipped).Warn("gridsplit: skipping records with no geometry")
	}
	features, err := gridsplit.Prepare(fs.Features)
	if err != nil {
		return err
	}

	grids, bands, err := loadGrids(log, gridFiles, rasterFiles, crs)
	if err != nil {
		return err
	}
	if err = checkCRS(log, fs, grids); err != nil {
		return err
	}

	cols, err := newColumns(fs.Fields, true, len(grids), bands, outputVars)
	if err != nil {
		return err
	}
	if kind == shapefile {
		if err = vectorio.CheckShapefileNames(cols.columns()); err != nil {
			return err
		}
	}

	s := &gridsplit.Splitter{
		Grids:    grids,
		Bands:    bands,
		Strategy: strategy,
		Policy:   policy,
		Workers:  workers,
		Progress: logProgress(log),
		Log:      log,
	}
	log.WithFields(logrus.Fields{
		"features": len(features),
		"grids":    len(grids),
		"bands":    len(bands),
		"strategy": strategy,
		"policy":   policy,
	}).Info("gridsplit: splitting features")
	frags, failed := s.Split(context.Background(), features)
	if len(failed) > 0 && len(failed) == len(features) {
		return fmt.Errorf("gridsplit: all %d features failed; the first error was: %v", len(failed), failed[0])
	}

	recs := make([]vectorio.Record, len(frags))
	for i, frag := range frags {
		if recs[i], err = cols.record(frag); err != nil {
			return err
		}
	}

	log.WithFields(logrus.Fields{
		"file":      outputFile,
		"fragments": len(recs),
	}).Info("gridsplit: writing output")
	if err = writeRecords(outputFile, kind, fs.PRJ, cols.columns(), recs); err != nil {
		return err
	}
	log.Info("gridsplit: finished")
	return nil
}

// logProgress returns a progress function that logs every 10% of the features.
func logProgress(log logrus.FieldLogger) func(done, total int) {
	next := 0
	return func(done, total int) {
		if pct := 100 * done / total; pct >= next || done == total {
			log.WithFields(logrus.Fields{"done": done, "total": total}).Infof("gridsplit: %d%% of features split", pct)
			next = (pct/10 + 1) * 10
		}
	}
}

// loadGrids reads the grid definition files and rasters. The bands refer
// to the returned grids by index, and rasters that share a grid refer to
// the same one.
func loadGrids(log logrus.FieldLogger, gridFiles, rasterFiles []string, crs string) ([]*gridsplit.GridDefinition, []gridsplit.Band, error) {
	var grids []*gridsplit.GridDefinition
	gridIndex := func(g *gridsplit.GridDefinition) int {
		for i, gg := range grids {
			if gg.Equal(g) {
				return i
			}
		}
		grids = append(grids, g)
		return len(grids) - 1
	}
	for _, name := range gridFiles {
		f, err := os.Open(name)
		if err != nil {
			return nil, nil, fmt.Errorf("gridsplit: opening grid definition: %v", err)
		}
		g, err := gridsplit.ReadGridDefinition(f)
		f.Close()
		if err != nil {
			return nil, nil, fmt.Errorf("gridsplit: %s: %v", name, err)
		}
		gridIndex(g)
	}
	var bands []gridsplit.Band
	names := make(map[string]bool)
	for _, name := range rasterFiles {
		r, err := rasterio.Open(name, crs)
		if err != nil {
			return nil, nil, err
		}
		if names[r.Name] {
			return nil, nil, fmt.Errorf("gridsplit: more than one raster is named %s", r.Name)
		}
		names[r.Name] = true
		b := r.Band(gridIndex(r.Grid))
		log.WithFields(logrus.Fields{
			"raster": r.Name,
			"grid":   b.Grid,
		}).Info("gridsplit: loaded raster")
		bands = append(bands, b)
	}
	if len(grids) == 0 {
		return nil, nil, fmt.Errorf("gridsplit: you need to specify at least one grid or raster to split by")
	}
	return grids, bands, nil
}

// checkCRS makes sure the features and grids use the same coordinate
// reference. References that are missing or can't be parsed can't be
// checked and are assumed to match.
func checkCRS(log logrus.FieldLogger, fs *vectorio.FeatureSet, grids []*gridsplit.GridDefinition) error {
	if fs.SR == nil {
		if fs.PRJ == "" {
			log.Warn("gridsplit: the vector file has no coordinate reference; assuming it matches the grids")
		} else {
			log.Warn("gridsplit: the vector file coordinate reference can't be parsed; assuming it matches the grids")
		}
		return nil
	}
	for i, g := range grids {
		if g.CRS() == "" {
			log.WithField("grid", i).Warn("gridsplit: grid has no coordinate reference; assuming it matches the vector file")
			continue
		}
		sr, err := vectorio.ParseCRS(g.CRS())
		if err != nil {
			log.WithError(err).WithField("grid", i).Warn("gridsplit: grid coordinate reference can't be parsed; assuming it matches the vector file")
			continue
		}
		if !vectorio.SameCRS(fs.SR, sr) {
			return fmt.Errorf("gridsplit: the coordinate reference of grid %d (%s) doesn't match the vector file; the features need to be reprojected first",
				i, g.CRS())
		}
	}
	return nil
}

type outputFormat int

const (
	shapefile outputFormat = iota
	geoJSON
)

// outputKind returns the format of the output file from its extension.
func outputKind(path string) (outputFormat, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".shp":
		return shapefile, nil
	case ".geojson", ".json":
		return geoJSON, nil
	default:
		return shapefile, fmt.Errorf("gridsplit: output file %s must end in .shp, .geojson or .json", path)
	}
}

// writeRecords writes recs to path. prj is written alongside shapefiles.
func writeRecords(path string, kind outputFormat, prj string, cols []vectorio.Column, recs []vectorio.Record) error {
	if kind == shapefile {
		return vectorio.WriteShapefile(path, prj, cols, recs)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("gridsplit: creating output file: %v", err)
	}
	if err = vectorio.WriteGeoJSON(f, cols, recs); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
