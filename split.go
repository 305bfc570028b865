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
	"context"
	"fmt"
	"io/ioutil"
	"runtime"
	"sync"

	"github.com/ctessum/geom"
	"github.com/sirupsen/logrus"
)

// Feature is an input geometry and its attributes.
type Feature struct {
	Geom       geom.Geom
	Attributes map[string]interface{}
}

// Fragment is the part of a feature that lies within one cell of every
// grid it was split against.
type Fragment struct {
	Feature    int // index of the source feature
	Split      int // sequence number within the source feature
	Geom       geom.Geom
	Attributes map[string]interface{} // copy of the source feature's attributes
	Cells      []CellIndex            // cell in each grid
	Values     []float64              // value of each band
}

// Splitter splits batches of features against one or more grids and
// attributes the fragments with raster values.
type Splitter struct {
	// Grids are the grids to split against. Features are split by each
	// grid in turn, so every fragment lies within one cell of every grid.
	Grids []*GridDefinition

	// Bands are looked up for every fragment. Band.Grid refers to an
	// element of Grids.
	Bands []Band

	Strategy PolygonStrategy // how polygons are split
	Policy   BoundsPolicy    // how fragments outside of a grid are handled

	// Workers is the number of features split concurrently. If it is
	// not positive, runtime.GOMAXPROCS is used.
	Workers int

	// Progress, if not nil, is called after each feature is finished with
	// the number of finished features and the total.
	Progress func(done, total int)

	// Log receives messages about failed features. If it is nil, nothing
	// is logged.
	Log logrus.FieldLogger
}

func (s *Splitter) log() logrus.FieldLogger {
	if s.Log != nil {
		return s.Log
	}
	l := logrus.New()
	l.Out = ioutil.Discard
	return l
}

func (s *Splitter) check() error {
	if len(s.Grids) == 0 {
		return fmt.Errorf("gridsplit: no grids to split against")
	}
	for n, g := range s.Grids {
		if g == nil {
			return fmt.Errorf("gridsplit: grid %d is nil", n)
		}
	}
	for _, b := range s.Bands {
		if b.Grid < 0 || b.Grid >= len(s.Grids) {
			return fmt.Errorf("gridsplit: band %q refers to grid %d but there are %d grids", b.Name, b.Grid, len(s.Grids))
		}
		w, h := s.Grids[b.Grid].Dims()
		if b.Data == nil || len(b.Data.Shape) != 2 || b.Data.Shape[0] != h || b.Data.Shape[1] != w {
			return fmt.Errorf("gridsplit: band %q does not have shape [%d %d] of grid %d", b.Name, h, w, b.Grid)
		}
	}
	return nil
}

// split splits gm by one grid.
func (s *Splitter) split(g *GridDefinition, gm geom.Geom) ([]geom.Geom, error) {
	switch KindOf(gm) {
	case KindPoint:
		return []geom.Geom{gm}, nil
	case KindLineString:
		lines, err := g.SplitLineString(gm.(geom.LineString))
		if err != nil {
			return nil, err
		}
		o := make([]geom.Geom, len(lines))
		for k, l := range lines {
			o[k] = l
		}
		return o, nil
	case KindPolygon:
		polys, err := g.SplitPolygonWith(gm.(geom.Polygon), s.Strategy)
		if err != nil {
			return nil, err
		}
		o := make([]geom.Geom, len(polys))
		for k, p := range polys {
			o[k] = p
		}
		return o, nil
	default:
		return nil, invalidGeometry("split", KindUnsupported, "unsupported geometry type %T", gm)
	}
}

// SplitFeature splits one feature, which is the feature at position index
// in its batch. Fragments are returned in the order they occur along the
// feature. SplitFeature does not modify f and is safe to call concurrently.
func (s *Splitter) SplitFeature(index int, f Feature) ([]Fragment, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	geoms := []geom.Geom{f.Geom}
	for _, g := range s.Grids {
		var next []geom.Geom
		for _, gm := range geoms {
			parts, err := s.split(g, gm)
			if err != nil {
				return nil, err
			}
			next = append(next, parts...)
		}
		geoms = next
	}

	frags := make([]Fragment, len(geoms))
	for k, gm := range geoms {
		cells := make([]CellIndex, len(s.Grids))
		for n, g := range s.Grids {
			c, err := g.CellIndices(gm, s.Policy)
			if err != nil {
				return nil, err
			}
			cells[n] = c
		}
		frags[k] = Fragment{
			Feature:    index,
			Split:      k,
			Geom:       gm,
			Attributes: copyAttributes(f.Attributes),
			Cells:      cells,
			Values:     make([]float64, len(s.Bands)),
		}
	}
	cells := make([]CellIndex, len(frags))
	for b, band := range s.Bands {
		for k, fr := range frags {
			cells[k] = fr.Cells[band.Grid]
		}
		vals, err := RasterValues(cells, band.Data)
		if err != nil {
			return nil, err
		}
		for k := range frags {
			frags[k].Values[b] = vals[k]
		}
	}
	return frags, nil
}

// Split splits a batch of features using a pool of workers. The fragments
// are returned in feature order. A feature that cannot be split is
// reported in the returned errors and does not stop the rest of the batch.
// If ctx is cancelled, features that have not been started are reported
// with the context's error.
func (s *Splitter) Split(ctx context.Context, features []Feature) ([]Fragment, []*FeatureError) {
	if err := s.check(); err != nil {
		errs := make([]*FeatureError, len(features))
		for i := range features {
			errs[i] = &FeatureError{Index: i, Err: err}
		}
		return nil, errs
	}
	log := s.log()
	nprocs := s.Workers
	if nprocs <= 0 {
		nprocs = runtime.GOMAXPROCS(-1)
	}

	results := make([][]Fragment, len(features))
	errs := make([]error, len(features))
	jobs := make(chan int)
	done := make(chan int)
	var wg sync.WaitGroup
	wg.Add(nprocs)
	for p := 0; p < nprocs; p++ {
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i], errs[i] = s.SplitFeature(i, features[i])
				done <- i
			}
		}()
	}
	go func() {
		defer close(jobs)
		for i := range features {
			select {
			case jobs <- i:
			case <-ctx.Done():
				for ; i < len(features); i++ {
					errs[i] = ctx.Err()
				}
				return
			}
		}
	}()
	go func() {
		wg.Wait()
		close(done)
	}()

	n := 0
	for range done {
		n++
		if s.Progress != nil {
			s.Progress(n, len(features))
		}
	}

	var (
		frags  []Fragment
		failed []*FeatureError
	)
	for i, err := range errs {
		if err != nil {
			log.WithError(err).WithField("feature", i).Warn("gridsplit: skipping feature")
			failed = append(failed, &FeatureError{Index: i, Err: err})
			continue
		}
		frags = append(frags, results[i]...)
	}
	log.WithFields(logrus.Fields{
		"features":  len(features),
		"fragments": len(frags),
		"failed":    len(failed),
	}).Info("gridsplit: split finished")
	return frags, failed
}
