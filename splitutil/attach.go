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

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/gridsplit"
	"github.com/spatialmodel/gridsplit/vectorio"
	"github.com/spf13/cobra"
)

// Attach adds the cell indices and raster values of each feature in
// vectorFile to its attributes without splitting it, and writes the
// result to outputFile. It is meant for features that have already been
// split, for example by Split with other grids. Each feature gets the cell
// of its representative point. Attributes with the same name as a cell,
// raster or output variable column are replaced.
//
// The arguments have the same meaning as for Split.
func Attach(cmd *cobra.Command, logFile, vectorFile string, gridFiles, rasterFiles []string, crs string,
	policy gridsplit.BoundsPolicy, outputVars map[string]string, outputFile string) error {

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

	attrs := replacedAttributes(log, fs.Fields, len(grids), bands, outputVars)
	cols, err := newColumns(attrs, false, len(grids), bands, outputVars)
	if err != nil {
		return err
	}
	if kind == shapefile {
		if err = vectorio.CheckShapefileNames(cols.columns()); err != nil {
			return err
		}
	}

	frags, failed := attachValues(grids, bands, features, policy)
	for _, fe := range failed {
		log.WithError(fe.Err).WithField("feature", fe.Index).Warn("gridsplit: skipping feature")
	}
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
		"file":     outputFile,
		"features": len(recs),
	}).Info("gridsplit: writing output")
	if err = writeRecords(outputFile, kind, fs.PRJ, cols.columns(), recs); err != nil {
		return err
	}
	log.Info("gridsplit: finished")
	return nil
}

// replacedAttributes returns the attribute names that are not also the
// names of attached columns.
func replacedAttributes(log logrus.FieldLogger, fields []string, ngrids int, bands []gridsplit.Band, outputVars map[string]string) []string {
	attached := make(map[string]bool)
	is, js := cellColumnNames(ngrids)
	for g := range is {
		attached[is[g]] = true
		attached[js[g]] = true
	}
	for _, b := range bands {
		attached[b.Name] = true
	}
	for name := range outputVars {
		attached[name] = true
	}
	var o []string
	for _, f := range fields {
		if attached[f] {
			log.WithField("attribute", f).Info("gridsplit: replacing attribute")
			continue
		}
		o = append(o, f)
	}
	return o
}

// attachValues returns one fragment for each feature that holds the cell
// of the feature in every grid and the value of every band. Features whose
// cells can't be found are left out and reported.
func attachValues(grids []*gridsplit.GridDefinition, bands []gridsplit.Band, features []gridsplit.Feature,
	policy gridsplit.BoundsPolicy) ([]gridsplit.Fragment, []*gridsplit.FeatureError) {

	var (
		frags  []gridsplit.Fragment
		failed []*gridsplit.FeatureError
	)
	for i, f := range features {
		frag := gridsplit.Fragment{
			Feature:    i,
			Geom:       f.Geom,
			Attributes: f.Attributes,
			Cells:      make([]gridsplit.CellIndex, len(grids)),
			Values:     make([]float64, len(bands)),
		}
		var err error
		for g, grid := range grids {
			if frag.Cells[g], err = grid.CellIndices(f.Geom, policy); err != nil {
				break
			}
		}
		if err != nil {
			failed = append(failed, &gridsplit.FeatureError{Index: i, Err: err})
			continue
		}
		frags = append(frags, frag)
	}

	cells := make([]gridsplit.CellIndex, len(frags))
	for b, band := range bands {
		for k := range frags {
			cells[k] = frags[k].Cells[band.Grid]
		}
		vals, err := gridsplit.RasterValues(cells, band.Data)
		if err != nil {
			// The band doesn't match its grid.
			for k := range frags {
				failed = append(failed, &gridsplit.FeatureError{Index: frags[k].Feature, Err: err})
			}
			return nil, failed
		}
		for k := range frags {
			frags[k].Values[b] = vals[k]
		}
	}
	return frags, failed
}
