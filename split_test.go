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
	"bytes"
	"context"
	"errors"
	"math"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/ctessum/geom"
	"github.com/sirupsen/logrus"
)

func testFeatures() []Feature {
	return []Feature{
		{
			Geom:       geom.LineString{{X: 0.5, Y: 0.5}, {X: 0.75, Y: 0.5}, {X: 1.5, Y: 0.5}, {X: 1.5, Y: 1.5}},
			Attributes: map[string]interface{}{"id": 0},
		},
		{
			Geom:       geom.Point{X: 1.5, Y: 1.5},
			Attributes: map[string]interface{}{"id": 1},
		},
		{
			Geom:       square(0.5, 0.5, 1.5, 1.5),
			Attributes: map[string]interface{}{"id": 2},
		},
		{
			Geom:       geom.Point{X: 5, Y: 5},
			Attributes: map[string]interface{}{"id": 3},
		},
	}
}

func TestSplitter(t *testing.T) {
	s := &Splitter{
		Grids: []*GridDefinition{unitGrid(t, 2, 2)},
		Bands: []Band{{Name: "v", Data: testBand(2, 2)}},
	}
	frags, failed := s.Split(context.Background(), testFeatures())
	if len(failed) > 0 {
		t.Fatal(failed)
	}
	type result struct {
		feature, split int
		cell           CellIndex
	}
	want := []result{
		{0, 0, CellIndex{0, 0}},
		{0, 1, CellIndex{1, 0}},
		{0, 2, CellIndex{1, 1}},
		{1, 0, CellIndex{1, 1}},
		{2, 0, CellIndex{0, 0}},
		{2, 1, CellIndex{1, 0}},
		{2, 2, CellIndex{0, 1}},
		{2, 3, CellIndex{1, 1}},
		{3, 0, OutOfBounds},
	}
	if len(frags) != len(want) {
		t.Fatalf("have %d fragments, want %d", len(frags), len(want))
	}
	for k, f := range frags {
		w := want[k]
		if f.Feature != w.feature || f.Split != w.split {
			t.Errorf("%d: have feature %d split %d, want %d %d", k, f.Feature, f.Split, w.feature, w.split)
		}
		if f.Cells[0] != w.cell {
			t.Errorf("%d: have cell %v, want %v", k, f.Cells[0], w.cell)
		}
		if f.Attributes["id"] != f.Feature {
			t.Errorf("%d: attributes %v", k, f.Attributes)
		}
		if f.Cells[0] == OutOfBounds {
			if !math.IsNaN(f.Values[0]) {
				t.Errorf("%d: value should be NoData but is %g", k, f.Values[0])
			}
		} else if want := float64(10*f.Cells[0].J + f.Cells[0].I); f.Values[0] != want {
			t.Errorf("%d: have value %g, want %g", k, f.Values[0], want)
		}
	}
}

func TestSplitterFailedFeature(t *testing.T) {
	var buf bytes.Buffer
	log := logrus.New()
	log.Out = &buf
	log.Formatter = &logrus.JSONFormatter{}
	s := &Splitter{
		Grids: []*GridDefinition{unitGrid(t, 2, 2)},
		Log:   log,
	}
	features := testFeatures()
	features[1].Geom = geom.LineString{{X: 0.5, Y: 0.5}}
	features[3].Geom = geom.MultiPoint{{X: 0.5, Y: 0.5}}
	frags, failed := s.Split(context.Background(), features)
	if len(failed) != 2 || failed[0].Index != 1 || failed[1].Index != 3 {
		t.Fatalf("failed: %v", failed)
	}
	for _, f := range failed {
		if !errors.Is(f, ErrInvalidGeometry) {
			t.Errorf("%v should be ErrInvalidGeometry", f)
		}
	}
	if len(frags) != 7 {
		t.Errorf("have %d fragments, want 7", len(frags))
	}
	for _, f := range frags {
		if f.Feature == 1 || f.Feature == 3 {
			t.Errorf("fragment from failed feature %d", f.Feature)
		}
	}
	if out := buf.String(); !strings.Contains(out, `"feature":1`) || !strings.Contains(out, `"failed":2`) {
		t.Errorf("log output: %s", out)
	}
}

func TestSplitterMultipleGrids(t *testing.T) {
	fine, err := NewGridDefinition("", 4, 4, []float64{0.5, 0, 0, 0, 0.5, 0})
	if err != nil {
		t.Fatal(err)
	}
	s := &Splitter{
		Grids: []*GridDefinition{unitGrid(t, 2, 2), fine},
		Bands: []Band{
			{Name: "coarse", Grid: 0, Data: testBand(2, 2)},
			{Name: "fine", Grid: 1, Data: testBand(4, 4)},
		},
	}
	frags, err := s.SplitFeature(7, Feature{Geom: geom.LineString{{X: 0.25, Y: 0.25}, {X: 1.75, Y: 0.25}}})
	if err != nil {
		t.Fatal(err)
	}
	wantCells := [][]CellIndex{
		{{0, 0}, {0, 0}},
		{{0, 0}, {1, 0}},
		{{1, 0}, {2, 0}},
		{{1, 0}, {3, 0}},
	}
	wantValues := [][]float64{{0, 0}, {0, 1}, {1, 2}, {1, 3}}
	if len(frags) != len(wantCells) {
		t.Fatalf("have %d fragments, want %d", len(frags), len(wantCells))
	}
	for k, f := range frags {
		if f.Feature != 7 || f.Split != k {
			t.Errorf("%d: feature %d split %d", k, f.Feature, f.Split)
		}
		if !reflect.DeepEqual(f.Cells, wantCells[k]) {
			t.Errorf("%d: have cells %v, want %v", k, f.Cells, wantCells[k])
		}
		if !reflect.DeepEqual(f.Values, wantValues[k]) {
			t.Errorf("%d: have values %v, want %v", k, f.Values, wantValues[k])
		}
	}
}

func TestSplitterReject(t *testing.T) {
	s := &Splitter{
		Grids:  []*GridDefinition{unitGrid(t, 2, 2)},
		Policy: Reject,
	}
	_, err := s.SplitFeature(0, Feature{Geom: geom.LineString{{X: 1.5, Y: 0.5}, {X: 2.5, Y: 0.5}}})
	if !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("error should be ErrOutOfBounds but is %v", err)
	}
}

func TestSplitterProgress(t *testing.T) {
	var (
		mu    sync.Mutex
		calls []int
	)
	s := &Splitter{
		Grids:   []*GridDefinition{unitGrid(t, 2, 2)},
		Workers: 3,
		Progress: func(done, total int) {
			mu.Lock()
			defer mu.Unlock()
			if total != 4 {
				t.Errorf("total: %d", total)
			}
			calls = append(calls, done)
		},
	}
	s.Split(context.Background(), testFeatures())
	if !reflect.DeepEqual(calls, []int{1, 2, 3, 4}) {
		t.Errorf("progress: %v", calls)
	}
}

func TestSplitterCancel(t *testing.T) {
	s := &Splitter{Grids: []*GridDefinition{unitGrid(t, 2, 2)}, Workers: 1}
	var features []Feature
	for i := 0; i < 1000; i++ {
		features = append(features, testFeatures()...)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	frags, failed := s.Split(ctx, features)
	if len(failed) == 0 {
		t.Fatal("some features should be cancelled")
	}
	for _, f := range failed {
		if !errors.Is(f, context.Canceled) {
			t.Errorf("%v should be context.Canceled", f)
		}
	}
	done := make(map[int]bool)
	for _, f := range frags {
		done[f.Feature] = true
	}
	if len(done)+len(failed) != len(features) {
		t.Errorf("%d finished and %d failed of %d", len(done), len(failed), len(features))
	}
}

func TestSplitterInvalid(t *testing.T) {
	for name, s := range map[string]*Splitter{
		"no grids":   {},
		"nil grid":   {Grids: []*GridDefinition{nil}},
		"bad band":   {Grids: []*GridDefinition{unitGrid(t, 2, 2)}, Bands: []Band{{Grid: 1, Data: testBand(2, 2)}}},
		"band shape": {Grids: []*GridDefinition{unitGrid(t, 2, 2)}, Bands: []Band{{Data: testBand(3, 2)}}},
	} {
		if _, err := s.SplitFeature(0, testFeatures()[0]); err == nil {
			t.Errorf("%s: should fail", name)
		}
		if _, failed := s.Split(context.Background(), testFeatures()); len(failed) != 4 {
			t.Errorf("%s: %d failed", name, len(failed))
		}
	}
}
