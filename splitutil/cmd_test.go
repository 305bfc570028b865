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
	"bytes"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/ctessum/geom"
	"github.com/ctessum/sparse"
	"github.com/spatialmodel/gridsplit"
	"github.com/spatialmodel/gridsplit/rasterio"
	"github.com/spatialmodel/gridsplit/vectorio"
)

const longlat = "+proj=longlat +datum=WGS84 +no_defs"

// resetConfig sets every option to its default, replacing the values set
// by earlier tests or read from their configuration files.
func resetConfig() {
	for _, option := range options {
		Cfg.Set(option.name, option.defaultVal)
	}
}

// writeTestInputs writes a shapefile with two roads, a grid definition
// with 3x2 cells of 1 degree, and a NetCDF raster named depth on the same
// grid where the value of cell (i, j) is 10*j + i.
func writeTestInputs(t *testing.T, dir string) (vector, grid, raster string) {
	vector = filepath.Join(dir, "roads.shp")
	cols := []vectorio.Column{{Name: "name", Type: vectorio.String}, {Name: "lanes", Type: vectorio.Int}}
	recs := []vectorio.Record{
		{Geom: geom.LineString{{X: 0.5, Y: 0.5}, {X: 2.5, Y: 0.5}}, Values: []interface{}{"A1", 2}},
		{Geom: geom.LineString{{X: 0.5, Y: 1.5}, {X: 0.75, Y: 1.5}}, Values: []interface{}{"B2", 1}},
	}
	if err := vectorio.WriteShapefile(vector, longlat, cols, recs); err != nil {
		t.Fatal(err)
	}

	g, err := gridsplit.GridFromExtent(longlat, 0, 0, 3, 2, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	grid = filepath.Join(dir, "grid.toml")
	f, err := os.Create(grid)
	if err != nil {
		t.Fatal(err)
	}
	if err = g.Write(f); err != nil {
		t.Fatal(err)
	}
	f.Close()

	data := sparse.ZerosDense(2, 3)
	for j := 0; j < 2; j++ {
		for i := 0; i < 3; i++ {
			data.Set(float64(10*j+i), j, i)
		}
	}
	ncName := filepath.Join(dir, "hazard.nc")
	if f, err = os.Create(ncName); err != nil {
		t.Fatal(err)
	}
	if err = rasterio.WriteNetCDF(f, &rasterio.Raster{Name: "depth", Grid: g, Data: data, NoData: gridsplit.NoData}); err != nil {
		t.Fatal(err)
	}
	f.Close()
	return vector, grid, ncName + ":depth"
}

type testFeature struct {
	Geometry   json.RawMessage
	Properties map[string]interface{}
}

func readGeoJSON(t *testing.T, path string) []testFeature {
	b, err := ioutil.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var fc struct{ Features []testFeature }
	if err = json.Unmarshal(b, &fc); err != nil {
		t.Fatal(err)
	}
	return fc.Features
}

func TestVersion(t *testing.T) {
	resetConfig()
	var b bytes.Buffer
	Root.SetOutput(&b)
	defer Root.SetOutput(nil)
	Root.SetArgs([]string{"version"})
	if err := Root.Execute(); err != nil {
		t.Fatal(err)
	}
	if want := fmt.Sprintf("gridsplit v%s\n", gridsplit.Version); b.String() != want {
		t.Errorf("have %q, want %q", b.String(), want)
	}
}

func TestGridCommand(t *testing.T) {
	dir, err := ioutil.TempDir("", "gridsplit_cmd")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	resetConfig()
	Cfg.Set("crs", longlat)
	Cfg.Set("xmin", -1.0)
	Cfg.Set("ymin", 0.0)
	Cfg.Set("xmax", 1.0)
	Cfg.Set("ymax", 0.5)
	Cfg.Set("cell_width", 1.0)
	Cfg.Set("cell_height", 0.5)
	Cfg.Set("output", filepath.Join(dir, "grid.toml"))
	Root.SetArgs([]string{"grid"})
	if err = Root.Execute(); err != nil {
		t.Fatal(err)
	}
	f, err := os.Open(filepath.Join(dir, "grid.toml"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	g, err := gridsplit.ReadGridDefinition(f)
	if err != nil {
		t.Fatal(err)
	}
	want, err := gridsplit.GridFromExtent(longlat, -1, 0, 1, 0.5, 1, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	if !g.Equal(want) {
		t.Errorf("have %v, want %v", g, want)
	}

	Cfg.Set("output", filepath.Join(dir, "cells.shp"))
	if err = Root.Execute(); err != nil {
		t.Fatal(err)
	}
	fs, err := vectorio.ReadShapefile(filepath.Join(dir, "cells.shp"))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(fs.Fields, []string{"i", "j"}) {
		t.Errorf("fields: %v", fs.Fields)
	}
	if len(fs.Features) != 2 {
		t.Fatalf("have %d cells", len(fs.Features))
	}
	if a := fs.Features[1].Geom.(geom.Polygon).Area(); a != 0.5 {
		t.Errorf("cell area: %g", a)
	}
	if fs.Features[1].Attributes["i"] != "1" {
		t.Errorf("cell index: %v", fs.Features[1].Attributes)
	}

	Cfg.Set("output", filepath.Join(dir, "grid.tif"))
	if err = Root.Execute(); err == nil {
		t.Error("invalid output format should fail")
	}
}

func TestSplitCommand(t *testing.T) {
	dir, err := ioutil.TempDir("", "gridsplit_cmd")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	vector, grid, raster := writeTestInputs(t, dir)

	resetConfig()
	Cfg.Set("vector", vector)
	Cfg.Set("grid", []string{grid})
	Cfg.Set("raster", []string{raster})
	Cfg.Set("workers", 2)
	Cfg.Set("output_variables", map[string]string{"deep": "depth * lanes"})
	Cfg.Set("output", filepath.Join(dir, "out.geojson"))
	Root.SetArgs([]string{"split"})
	if err = Root.Execute(); err != nil {
		t.Fatal(err)
	}

	features := readGeoJSON(t, filepath.Join(dir, "out.geojson"))
	if len(features) != 4 {
		t.Fatalf("have %d fragments, want 4", len(features))
	}
	lanes := map[string]float64{"A1": 2, "B2": 1}
	count := make(map[string]int)
	seen := make(map[[2]float64]bool)
	for _, f := range features {
		p := f.Properties
		name := p["name"].(string)
		count[name]++
		i, j := p["index_i"].(float64), p["index_j"].(float64)
		seen[[2]float64{i, j}] = true
		if depth := p["depth"].(float64); depth != 10*j+i {
			t.Errorf("%s cell (%g, %g): depth %g", name, i, j, depth)
		}
		if deep := p["deep"].(float64); deep != p["depth"].(float64)*lanes[name] {
			t.Errorf("%s cell (%g, %g): deep %g", name, i, j, deep)
		}
		if _, ok := p["i_0"]; ok {
			t.Error("a single grid should have index_i and index_j columns")
		}
	}
	if count["A1"] != 3 || count["B2"] != 1 {
		t.Errorf("fragments per feature: %v", count)
	}
	for _, c := range [][2]float64{{0, 0}, {1, 0}, {2, 0}, {0, 1}} {
		if !seen[c] {
			t.Errorf("missing cell %v", c)
		}
	}
	if _, err = os.Stat(filepath.Join(dir, "out.log")); err != nil {
		t.Errorf("log file: %v", err)
	}
}

func TestSplitCommandShapefile(t *testing.T) {
	dir, err := ioutil.TempDir("", "gridsplit_cmd")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	vector, _, raster := writeTestInputs(t, dir)

	resetConfig()
	Cfg.Set("vector", vector)
	Cfg.Set("raster", []string{raster})
	Cfg.Set("output", filepath.Join(dir, "out.shp"))
	Root.SetArgs([]string{"split"})
	if err = Root.Execute(); err != nil {
		t.Fatal(err)
	}
	fs, err := vectorio.ReadShapefile(filepath.Join(dir, "out.shp"))
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"name", "lanes", "feature", "split", "index_i", "index_j", "depth"}
	if !reflect.DeepEqual(fs.Fields, want) {
		t.Errorf("fields: have %v, want %v", fs.Fields, want)
	}
	if len(fs.Features) != 4 {
		t.Errorf("have %d fragments, want 4", len(fs.Features))
	}
	if fs.PRJ != longlat {
		t.Errorf("prj: %q", fs.PRJ)
	}
}

func TestSplitCommandConfigFile(t *testing.T) {
	dir, err := ioutil.TempDir("", "gridsplit_cmd")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	vector, grid, _ := writeTestInputs(t, dir)

	cfgFile := filepath.Join(dir, "config.toml")
	cfg := fmt.Sprintf(`vector = '%s'
grid = ['%s', '%s']
output = '%s'
strategy = "mesh"

[output_variables]
double_i = "index_i * 2"
`, vector, grid, grid, filepath.Join(dir, "out.json"))
	if err = ioutil.WriteFile(cfgFile, []byte(cfg), 0644); err != nil {
		t.Fatal(err)
	}

	// Options that are set take precedence over the configuration file.
	for _, option := range options {
		Cfg.Set(option.name, nil)
	}
	Cfg.Set("config", cfgFile)
	Root.SetArgs([]string{"split"})
	if err = Root.Execute(); err != nil {
		t.Fatal(err)
	}
	features := readGeoJSON(t, filepath.Join(dir, "out.json"))
	if len(features) != 4 {
		t.Fatalf("have %d fragments, want 4", len(features))
	}
	for _, f := range features {
		if f.Properties["double_i"] != 2*f.Properties["index_i"].(float64) {
			t.Errorf("properties: %v", f.Properties)
		}
	}
}

func TestSplitCommandInvalid(t *testing.T) {
	dir, err := ioutil.TempDir("", "gridsplit_cmd")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	vector, grid, raster := writeTestInputs(t, dir)

	utm, err := gridsplit.GridFromExtent("+proj=utm +zone=10 +datum=WGS84 +units=m +no_defs", 0, 0, 3, 2, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	utmGrid := filepath.Join(dir, "utm.toml")
	f, err := os.Create(utmGrid)
	if err != nil {
		t.Fatal(err)
	}
	if err = utm.Write(f); err != nil {
		t.Fatal(err)
	}
	f.Close()

	for name, set := range map[string]map[string]interface{}{
		"no grid":             {},
		"crs mismatch":        {"grid": []string{utmGrid}},
		"strategy":            {"grid": []string{grid}, "strategy": "triangles"},
		"policy":              {"grid": []string{grid}, "outofbounds": "clip"},
		"undefined variable":  {"grid": []string{grid}, "output_variables": `{"x": "speed * 2"}`},
		"format":              {"grid": []string{grid}, "output": filepath.Join(dir, "out.csv")},
		"missing vector":      {"grid": []string{grid}, "vector": filepath.Join(dir, "missing.shp")},
		"repeated raster":     {"raster": []string{raster, raster}},
		"long shapefile name": {"raster": []string{raster}, "output_variables": `{"depth_in_meters": "depth"}`},
	} {
		resetConfig()
		Cfg.Set("vector", vector)
		Cfg.Set("output", filepath.Join(dir, "out.shp"))
		for k, v := range set {
			Cfg.Set(k, v)
		}
		Root.SetArgs([]string{"split"})
		if err := Root.Execute(); err == nil {
			t.Errorf("%s: should fail", name)
		} else if !strings.HasPrefix(err.Error(), "gridsplit") && !strings.HasPrefix(err.Error(), "vectorio") {
			t.Errorf("%s: error %q should name the package", name, err)
		}
	}
}
